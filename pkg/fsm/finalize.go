package fsm

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"text/template"

	"studylogbot/pkg/store"
)

type broadcastPayload struct {
	RealName string
	Hours    float64
	Subject  string
	Date     string
}

var broadcastTpl = template.Must(template.New("broadcast").Parse(`📅 Update
👤 {{.RealName}}
⏱ {{.Hours}} hrs
📝 {{.Subject}}
🗓 {{.Date}}`))

// finalizeSubmission converts the confirmed draft into a permanent StudyLog
// row, forwards a copy to the broadcast channel when one is configured, and
// resets the dialogue to HOME. On a persistence failure the state and draft
// are left untouched so the user can retry confirm_submit.
func (e *Engine) finalizeSubmission(ctx context.Context, user *store.User) {
	chatID := user.ChatID
	draft := user.Draft

	if user.BotState != store.StateConfirmSubmission {
		log.Printf("[finalizeSubmission] Ignoring confirm from chat %d in state %s", chatID, user.BotState)
		return
	}

	entry := &store.StudyLog{
		ChatID:    chatID,
		Duration:  draft.Hours,
		Subject:   draft.Subject,
		StudyDate: draft.StudyDate(),
	}
	if err := e.store.InsertStudyLog(ctx, entry); err != nil {
		log.Printf("[finalizeSubmission] Error inserting study log for chat %d: %v", chatID, err)
		_, _ = e.bot.SendMessage(ctx, chatID, textSaveError, nil)
		return
	}
	log.Printf("[finalizeSubmission] Chat %d logged %.2f hours on %s", chatID, draft.Hours, entry.StudyDate.Format("2006-01-02"))

	// Fire-and-forget relative to the user-facing flow.
	e.broadcastSubmission(ctx, user, draft)

	// Reset to HOME before acknowledging: the row is already written, and a
	// failed reset must surface as a save error rather than a false
	// acknowledgement that would invite a duplicating re-confirm.
	if err := e.transition(ctx, user, EventConfirmed, store.Draft{}); err != nil {
		e.reportTransitionError(ctx, chatID, "finalizeSubmission", err)
		return
	}

	_, _ = e.bot.SendMessage(ctx, chatID, textSubmitted, homeOnlyKeyboard())
}

// broadcastSubmission forwards the finalized submission to the configured
// channel. Failures are logged and never block the acknowledgement.
func (e *Engine) broadcastSubmission(ctx context.Context, user *store.User, draft store.Draft) {
	if e.channelID == 0 {
		return
	}

	caption, err := renderBroadcast(user, draft)
	if err != nil {
		log.Printf("[broadcastSubmission] Error rendering broadcast for chat %d: %v", user.ChatID, err)
		return
	}

	if draft.PhotoID != "" {
		if _, err := e.bot.SendPhoto(ctx, e.channelID, draft.PhotoID, caption, nil); err != nil {
			log.Printf("[broadcastSubmission] Error sending photo to channel %d: %v", e.channelID, err)
		}
		return
	}
	if _, err := e.bot.SendMessage(ctx, e.channelID, caption, nil); err != nil {
		log.Printf("[broadcastSubmission] Error sending message to channel %d: %v", e.channelID, err)
	}
}

func renderBroadcast(user *store.User, draft store.Draft) (string, error) {
	subject := draft.Subject
	if subject == "" {
		subject = "-"
	}
	payload := broadcastPayload{
		RealName: user.RealName,
		Hours:    draft.Hours,
		Subject:  subject,
		Date:     fmt.Sprintf("%d-%d-%d", draft.Year, draft.Month, draft.Day),
	}

	var buf bytes.Buffer
	if err := broadcastTpl.Execute(&buf, payload); err != nil {
		return "", fmt.Errorf("failed to render broadcast template: %w", err)
	}
	return buf.String(), nil
}
