package fsm

import (
	"context"
	"log"
	"regexp"
	"strconv"

	"studylogbot/pkg/store"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// hoursRegex matches the first decimal number in a caption: one or more
// digits, optional decimal point and more digits.
var hoursRegex = regexp.MustCompile(`\d+(\.\d+)?`)

// extractHours pulls the hours value out of a free-text caption. Returns 0
// when no number is present.
func extractHours(caption string) float64 {
	match := hoursRegex.FindString(caption)
	if match == "" {
		return 0
	}
	hours, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0
	}
	return hours
}

// largestPhotoID returns the file id of the largest photo-size variant, or ""
// when the message carries no photo. Telegram orders variants smallest first.
func largestPhotoID(message *tgbotapi.Message) string {
	if len(message.Photo) == 0 {
		return ""
	}
	return message.Photo[len(message.Photo)-1].FileID
}

func (e *Engine) startTodaySubmission(ctx context.Context, user *store.User) {
	today := e.now()
	draft := store.Draft{
		Year:  today.Year(),
		Month: int(today.Month()),
		Day:   today.Day(),
	}
	if err := e.transition(ctx, user, EventStartToday, draft); err != nil {
		e.reportTransitionError(ctx, user.ChatID, "startTodaySubmission", err)
		return
	}
	_, _ = e.bot.SendMessage(ctx, user.ChatID, textAskSubmission, cancelKeyboard())
}

func (e *Engine) startBackdatedSubmission(ctx context.Context, user *store.User) {
	if err := e.transition(ctx, user, EventStartBackdated, store.Draft{}); err != nil {
		e.reportTransitionError(ctx, user.ChatID, "startBackdatedSubmission", err)
		return
	}
	_, _ = e.bot.SendMessage(ctx, user.ChatID, textAskYear, cancelKeyboard())
}

func (e *Engine) handleYearInput(ctx context.Context, user *store.User, text string) {
	year, err := strconv.Atoi(text)
	if err != nil || year <= 0 {
		_, _ = e.bot.SendMessage(ctx, user.ChatID, textInvalidYear, nil)
		return
	}
	draft := store.Draft{Year: year}
	if err := e.transition(ctx, user, EventYearProvided, draft); err != nil {
		e.reportTransitionError(ctx, user.ChatID, "handleYearInput", err)
		return
	}
	_, _ = e.bot.SendMessage(ctx, user.ChatID, textAskMonth, cancelKeyboard())
}

func (e *Engine) handleMonthInput(ctx context.Context, user *store.User, text string) {
	month, err := strconv.Atoi(text)
	if err != nil || month < 1 || month > 12 {
		_, _ = e.bot.SendMessage(ctx, user.ChatID, textInvalidMonth, nil)
		return
	}
	draft := store.Draft{Year: user.Draft.Year, Month: month}
	if err := e.transition(ctx, user, EventMonthProvided, draft); err != nil {
		e.reportTransitionError(ctx, user.ChatID, "handleMonthInput", err)
		return
	}
	_, _ = e.bot.SendMessage(ctx, user.ChatID, textAskDay, cancelKeyboard())
}

func (e *Engine) handleDayInput(ctx context.Context, user *store.User, text string) {
	day, err := strconv.Atoi(text)
	if err != nil || day < 1 || day > 31 {
		_, _ = e.bot.SendMessage(ctx, user.ChatID, textInvalidDay, nil)
		return
	}
	draft := store.Draft{Year: user.Draft.Year, Month: user.Draft.Month, Day: day}
	if err := e.transition(ctx, user, EventDayProvided, draft); err != nil {
		e.reportTransitionError(ctx, user.ChatID, "handleDayInput", err)
		return
	}
	_, _ = e.bot.SendMessage(ctx, user.ChatID, textAskSubmission, cancelKeyboard())
}

// handleSubmissionInput captures the photo (optional) and the hours value
// from its caption, then presents the confirmation prompt. A caption without
// any number re-prompts without advancing.
func (e *Engine) handleSubmissionInput(ctx context.Context, user *store.User, message *tgbotapi.Message) {
	caption := message.Caption
	if caption == "" {
		caption = message.Text
	}

	hours := extractHours(caption)
	if hours == 0 {
		_, _ = e.bot.SendMessage(ctx, user.ChatID, textNoHoursFound, nil)
		return
	}

	draft := store.Draft{
		Year:    user.Draft.Year,
		Month:   user.Draft.Month,
		Day:     user.Draft.Day,
		Hours:   hours,
		Subject: caption,
		PhotoID: largestPhotoID(message),
	}
	if err := e.transition(ctx, user, EventDraftCaptured, draft); err != nil {
		e.reportTransitionError(ctx, user.ChatID, "handleSubmissionInput", err)
		return
	}

	log.Printf("[handleSubmissionInput] Chat %d drafted %.2f hours for %d-%d-%d", user.ChatID, hours, draft.Year, draft.Month, draft.Day)
	e.sendConfirmPrompt(ctx, user.ChatID, draft)
}

// editSubmission re-enters AWAITING_SUBMISSION with the existing draft
// unchanged so the user can resend the photo/caption.
func (e *Engine) editSubmission(ctx context.Context, user *store.User) {
	if !e.features.EditSubmission {
		log.Printf("[editSubmission] Feature disabled, ignoring callback from chat %d", user.ChatID)
		return
	}
	if err := e.transition(ctx, user, EventEditRequested, user.Draft); err != nil {
		e.reportTransitionError(ctx, user.ChatID, "editSubmission", err)
		return
	}
	_, _ = e.bot.SendMessage(ctx, user.ChatID, textAskSubmissionEdit, cancelKeyboard())
}

func (e *Engine) goHome(ctx context.Context, user *store.User, title string) {
	if err := e.transition(ctx, user, EventGoHome, store.Draft{}); err != nil {
		e.reportTransitionError(ctx, user.ChatID, "goHome", err)
		return
	}
	e.sendHomeMenu(ctx, user.ChatID, title)
}
