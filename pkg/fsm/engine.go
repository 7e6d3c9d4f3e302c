package fsm

import (
	"context"
	"errors"
	"log"
	"time"

	"studylogbot/pkg/config"
	"studylogbot/pkg/ports/botport"
	"studylogbot/pkg/store"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Engine drives the persisted dialogue state machine. Every inbound webhook
// event flows through HandleUpdate; the engine holds no per-chat memory, all
// dialogue position lives in the user row.
type Engine struct {
	store       store.Store
	bot         botport.BotPort
	adminChatID int64
	channelID   int64
	features    *config.Features

	// now is injectable so tests can pin "today" for submit_today.
	now func() time.Time
}

// New wires an engine from its collaborators.
func New(st store.Store, botPort botport.BotPort, cfg *config.Config, features *config.Features) *Engine {
	if features == nil {
		features = config.DefaultFeatures()
	}
	return &Engine{
		store:       st,
		bot:         botPort,
		adminChatID: cfg.AdminChatID,
		channelID:   cfg.ChannelID,
		features:    features,
		now:         time.Now,
	}
}

// HandleUpdate classifies one inbound event and routes it. Errors are fully
// handled here; the webhook surface only sees panics.
func (e *Engine) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		e.handleCallbackQuery(ctx, update.CallbackQuery)
	case update.Message != nil:
		e.handleMessage(ctx, update.Message)
	default:
		log.Printf("[HandleUpdate] Ignoring update %d: no message or callback", update.UpdateID)
	}
}

func (e *Engine) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	if message.Chat == nil {
		log.Printf("[handleMessage] Warning: Received message with nil Chat field")
		return
	}
	chatID := message.Chat.ID
	text := message.Text

	// Admin registry dump. Only short-circuits for the configured admin;
	// anyone else's "/users" falls through to normal dialogue handling.
	if message.IsCommand() && message.Command() == CommandUsers && e.isAdmin(chatID) {
		e.renderRegistry(ctx, chatID)
		return
	}

	user, err := e.store.GetUser(ctx, chatID)
	if errors.Is(err, store.ErrUserNotFound) {
		e.startRegistration(ctx, chatID)
		return
	}
	if err != nil {
		log.Printf("[handleMessage] Error loading user %d: %v", chatID, err)
		_, _ = e.bot.SendMessage(ctx, chatID, textGenericError, nil)
		return
	}

	if user.BotState.Phase() == store.PhaseRegistration {
		e.handleRegistrationMessage(ctx, user, message)
		return
	}

	if message.IsCommand() && message.Command() == CommandStart {
		e.goHome(ctx, user, textHomeMenu)
		return
	}

	switch user.BotState {
	case store.StateAwaitingYear:
		e.handleYearInput(ctx, user, text)
	case store.StateAwaitingMonth:
		e.handleMonthInput(ctx, user, text)
	case store.StateAwaitingDate:
		e.handleDayInput(ctx, user, text)
	case store.StateAwaitingSubmission:
		e.handleSubmissionInput(ctx, user, message)
	default:
		// HOME and CONFIRM_SUBMISSION have no free-text handling.
		_, _ = e.bot.SendMessage(ctx, chatID, textUseButtons, nil)
	}
}

func (e *Engine) handleCallbackQuery(ctx context.Context, query *tgbotapi.CallbackQuery) {
	if query.Message == nil || query.Message.Chat == nil {
		log.Printf("[handleCallbackQuery] Warning: Received callback query with nil Message or Chat field")
		return
	}
	chatID := query.Message.Chat.ID
	data := query.Data

	// Acknowledge first; a failed ack is non-fatal.
	if err := e.bot.AnswerCallback(ctx, query.ID, ""); err != nil {
		log.Printf("[handleCallbackQuery] Error answering callback %s for chat %d: %v", query.ID, chatID, err)
	}

	user, err := e.store.GetUser(ctx, chatID)
	if errors.Is(err, store.ErrUserNotFound) {
		e.startRegistration(ctx, chatID)
		return
	}
	if err != nil {
		log.Printf("[handleCallbackQuery] Error loading user %d: %v", chatID, err)
		_, _ = e.bot.SendMessage(ctx, chatID, textGenericError, nil)
		return
	}

	if user.BotState.Phase() == store.PhaseRegistration {
		log.Printf("[handleCallbackQuery] Ignoring callback '%s' from chat %d mid-registration (%s)", data, chatID, user.BotState)
		_, _ = e.bot.SendMessage(ctx, chatID, textFinishRegistration, nil)
		return
	}

	log.Printf("[handleCallbackQuery] Callback '%s' from chat %d in state %s", data, chatID, user.BotState)

	switch data {
	case CallbackHome, CallbackCancel:
		e.goHome(ctx, user, textHomeMenu)
	case CallbackProfile:
		e.renderProfile(ctx, user)
	case CallbackLeaderboard:
		e.renderLeaderboard(ctx, chatID)
	case CallbackLineChart:
		e.renderLineChart(ctx, user)
	case CallbackSubmitToday:
		e.startTodaySubmission(ctx, user)
	case CallbackSubmitOld:
		e.startBackdatedSubmission(ctx, user)
	case CallbackConfirmSubmit:
		e.finalizeSubmission(ctx, user)
	case CallbackEditSubmission:
		e.editSubmission(ctx, user)
	default:
		log.Printf("[handleCallbackQuery] Unknown callback '%s' from chat %d", data, chatID)
	}
}

// transition validates the event against the dialogue machine, validates the
// replacement draft for the resulting state, and persists both through the
// conditional update. The in-memory user is advanced on success so callers
// can keep using it.
func (e *Engine) transition(ctx context.Context, user *store.User, event string, draft store.Draft) error {
	machine := NewDialogFSM(user.BotState)
	if err := machine.Event(ctx, event); err != nil && !isNoTransitionError(err) {
		return err
	}

	next := store.BotState(machine.Current())
	if err := draft.ValidForState(next); err != nil {
		return err
	}

	if err := e.store.UpdateState(ctx, user.ChatID, user.StateVersion, next, draft); err != nil {
		return err
	}

	user.BotState = next
	user.Draft = draft
	user.StateVersion++
	return nil
}

// reportTransitionError maps transition failures to the user-visible posture:
// persistence problems get an apologetic message with state preserved, a lost
// concurrency race is dropped silently, everything else is logged.
func (e *Engine) reportTransitionError(ctx context.Context, chatID int64, op string, err error) {
	switch {
	case errors.Is(err, store.ErrStateConflict):
		// A concurrent delivery won the compare-and-swap; this event is stale.
		log.Printf("[%s] Dropping stale event for chat %d: %v", op, chatID, err)
	case isInvalidEventError(err):
		log.Printf("[%s] Ignoring event not legal from current state for chat %d: %v", op, chatID, err)
	default:
		log.Printf("[%s] Error persisting transition for chat %d: %v", op, chatID, err)
		_, _ = e.bot.SendMessage(ctx, chatID, textSaveError, nil)
	}
}

func (e *Engine) isAdmin(chatID int64) bool {
	return e.adminChatID != 0 && chatID == e.adminChatID
}
