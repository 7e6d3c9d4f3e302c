package fsm

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"studylogbot/pkg/chart"
	"studylogbot/pkg/ports/botport"
	"studylogbot/pkg/store"
)

func homeKeyboard() botport.Keyboard {
	return botport.Keyboard{
		botport.Row(botport.Button{Label: ButtonProfile, CallbackData: CallbackProfile}),
		botport.Row(botport.Button{Label: ButtonLeaderboard, CallbackData: CallbackLeaderboard}),
		botport.Row(botport.Button{Label: ButtonSubmitToday, CallbackData: CallbackSubmitToday}),
		botport.Row(botport.Button{Label: ButtonSubmitOld, CallbackData: CallbackSubmitOld}),
	}
}

func cancelKeyboard() botport.Keyboard {
	return botport.Keyboard{
		botport.Row(botport.Button{Label: ButtonCancel, CallbackData: CallbackCancel}),
	}
}

func homeOnlyKeyboard() botport.Keyboard {
	return botport.Keyboard{
		botport.Row(botport.Button{Label: ButtonHome, CallbackData: CallbackHome}),
	}
}

func (e *Engine) confirmKeyboard() botport.Keyboard {
	var kb botport.Keyboard
	if e.features.EditSubmission {
		kb = append(kb, botport.Row(botport.Button{Label: ButtonEdit, CallbackData: CallbackEditSubmission}))
	}
	kb = append(kb,
		botport.Row(botport.Button{Label: ButtonSubmit, CallbackData: CallbackConfirmSubmit}),
		botport.Row(botport.Button{Label: ButtonCancel, CallbackData: CallbackCancel}),
	)
	return kb
}

func (e *Engine) profileKeyboard() botport.Keyboard {
	var kb botport.Keyboard
	if e.features.LineChart {
		kb = append(kb, botport.Row(botport.Button{Label: ButtonLineChart, CallbackData: CallbackLineChart}))
	}
	kb = append(kb, botport.Row(botport.Button{Label: ButtonHome, CallbackData: CallbackHome}))
	return kb
}

func (e *Engine) sendHomeMenu(ctx context.Context, chatID int64, title string) {
	if _, err := e.bot.SendMessage(ctx, chatID, title, homeKeyboard()); err != nil {
		log.Printf("[sendHomeMenu] Error sending home menu to chat %d: %v", chatID, err)
	}
}

func (e *Engine) sendConfirmPrompt(ctx context.Context, chatID int64, draft store.Draft) {
	text := fmt.Sprintf(textConfirmPrompt, draft.Hours, draft.Subject)
	if _, err := e.bot.SendMessage(ctx, chatID, text, e.confirmKeyboard()); err != nil {
		log.Printf("[sendConfirmPrompt] Error sending confirmation prompt to chat %d: %v", chatID, err)
	}
}

// renderProfile shows the aggregate rank card. It never changes state.
func (e *Engine) renderProfile(ctx context.Context, user *store.User) {
	rank, err := e.store.GetRank(ctx, user.ChatID)
	if err != nil && !errors.Is(err, store.ErrUserNotFound) {
		log.Printf("[renderProfile] Error loading rank for chat %d: %v", user.ChatID, err)
		_, _ = e.bot.SendMessage(ctx, user.ChatID, textSaveError, nil)
		return
	}

	name := user.RealName
	total := 0.0
	if rank != nil {
		name = rank.RealName
		total = rank.TotalHours
	}

	text := fmt.Sprintf("👤 My Profile\nName: %s\nHours: %v", name, total)
	_, _ = e.bot.SendMessage(ctx, user.ChatID, text, e.profileKeyboard())
}

// renderLeaderboard shows the top-10 rank rows.
func (e *Engine) renderLeaderboard(ctx context.Context, chatID int64) {
	leaders, err := e.store.TopRanks(ctx, 10)
	if err != nil {
		log.Printf("[renderLeaderboard] Error loading top ranks: %v", err)
		_, _ = e.bot.SendMessage(ctx, chatID, textSaveError, nil)
		return
	}

	var sb strings.Builder
	sb.WriteString("🏆 Leaderboard\n")
	for i, leader := range leaders {
		sb.WriteString(fmt.Sprintf("%d. %s - %v hrs\n", i+1, leader.RealName, leader.TotalHours))
	}
	_, _ = e.bot.SendMessage(ctx, chatID, sb.String(), homeOnlyKeyboard())
}

// renderRegistry dumps the full user registry for the admin.
func (e *Engine) renderRegistry(ctx context.Context, chatID int64) {
	users, err := e.store.AllRanks(ctx)
	if err != nil {
		log.Printf("[renderRegistry] Error loading registry: %v", err)
		_, _ = e.bot.SendMessage(ctx, chatID, "❌ Database Error", nil)
		return
	}

	var sb strings.Builder
	sb.WriteString("📋 Student Registry\n\n")
	if len(users) == 0 {
		sb.WriteString("No users found.")
	} else {
		for i, u := range users {
			sb.WriteString(fmt.Sprintf("%d. %s (@%s)\n   Total: %v hrs\n\n", i+1, u.RealName, u.Username, u.TotalHours))
		}
	}
	_, _ = e.bot.SendMessage(ctx, chatID, sb.String(), nil)
}

// renderLineChart sends a rendered chart of the user's recent daily totals.
// No state change.
func (e *Engine) renderLineChart(ctx context.Context, user *store.User) {
	if !e.features.LineChart {
		log.Printf("[renderLineChart] Feature disabled, ignoring callback from chat %d", user.ChatID)
		return
	}

	totals, err := e.store.DailyTotals(ctx, user.ChatID, 7)
	if err != nil {
		log.Printf("[renderLineChart] Error loading daily totals for chat %d: %v", user.ChatID, err)
		_, _ = e.bot.SendMessage(ctx, user.ChatID, textSaveError, nil)
		return
	}

	labels := make([]string, 0, len(totals))
	values := make([]float64, 0, len(totals))
	for _, t := range totals {
		labels = append(labels, t.Day.Format("01-02"))
		values = append(values, t.Hours)
	}

	url := chart.LineURL("Hrs", labels, values)
	if _, err := e.bot.SendPhoto(ctx, user.ChatID, url, "📈 Progress", nil); err != nil {
		log.Printf("[renderLineChart] Error sending chart to chat %d: %v", user.ChatID, err)
		_, _ = e.bot.SendMessage(ctx, user.ChatID, textGenericError, nil)
		return
	}
	_, _ = e.bot.SendMessage(ctx, user.ChatID, "Back to menu?", homeOnlyKeyboard())
}
