package fsm

import (
	"context"
	"fmt"
	"log"
	"strings"

	"studylogbot/pkg/store"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/crypto/bcrypt"
)

// startRegistration creates the user row for an unseen chat id and sends the
// welcome prompt. The first event always lands here regardless of content.
func (e *Engine) startRegistration(ctx context.Context, chatID int64) {
	user := &store.User{
		ChatID:   chatID,
		BotState: store.StateRegName,
	}
	if err := e.store.CreateUser(ctx, user); err != nil {
		log.Printf("[startRegistration] Error creating user %d: %v", chatID, err)
		_, _ = e.bot.SendMessage(ctx, chatID, textSaveError, nil)
		return
	}
	log.Printf("[startRegistration] Created user %d in state %s", chatID, store.StateRegName)
	_, _ = e.bot.SendMessage(ctx, chatID, textWelcome, nil)
}

// handleRegistrationMessage advances the strictly sequential registration
// flow. "/start" is a reserved control token here: it restarts registration
// from the name step with a fresh draft instead of being captured as input.
func (e *Engine) handleRegistrationMessage(ctx context.Context, user *store.User, message *tgbotapi.Message) {
	chatID := user.ChatID

	if message.IsCommand() && message.Command() == CommandStart {
		if err := e.transition(ctx, user, EventRestartRegistration, store.Draft{}); err != nil {
			e.reportTransitionError(ctx, chatID, "handleRegistrationMessage", err)
			return
		}
		_, _ = e.bot.SendMessage(ctx, chatID, textWelcome, nil)
		return
	}

	text := strings.TrimSpace(message.Text)
	if text == "" {
		e.repromptRegistration(ctx, user)
		return
	}

	switch user.BotState {
	case store.StateRegName:
		draft := store.Draft{RealName: text}
		if err := e.transition(ctx, user, EventNameProvided, draft); err != nil {
			e.reportTransitionError(ctx, chatID, "handleRegistrationMessage", err)
			return
		}
		_, _ = e.bot.SendMessage(ctx, chatID, fmt.Sprintf(textAskUsername, text), nil)

	case store.StateRegUsername:
		draft := store.Draft{RealName: user.Draft.RealName, CustomUsername: text}
		if err := e.transition(ctx, user, EventUsernameProvided, draft); err != nil {
			e.reportTransitionError(ctx, chatID, "handleRegistrationMessage", err)
			return
		}
		_, _ = e.bot.SendMessage(ctx, chatID, textAskPassword, nil)

	case store.StateRegPassword:
		e.completeRegistration(ctx, user, text)

	default:
		log.Printf("[handleRegistrationMessage] Unexpected registration state %s for chat %d", user.BotState, chatID)
		e.repromptRegistration(ctx, user)
	}
}

// completeRegistration hashes the password, commits the profile, and lands the
// user on the home menu. Plaintext passwords never reach the store.
func (e *Engine) completeRegistration(ctx context.Context, user *store.User, password string) {
	chatID := user.ChatID

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("[completeRegistration] Error hashing password for chat %d: %v", chatID, err)
		_, _ = e.bot.SendMessage(ctx, chatID, textGenericError, nil)
		return
	}

	err = e.store.CompleteRegistration(ctx, chatID, user.StateVersion, user.Draft.RealName, user.Draft.CustomUsername, string(hash))
	if err != nil {
		e.reportTransitionError(ctx, chatID, "completeRegistration", err)
		return
	}

	user.RealName = user.Draft.RealName
	user.Username = user.Draft.CustomUsername
	user.BotState = store.StateHome
	user.Draft = store.Draft{}
	user.StateVersion++

	log.Printf("[completeRegistration] Chat %d registered as '%s'", chatID, user.RealName)
	e.sendHomeMenu(ctx, chatID, textRegistrationDone)
}

func (e *Engine) repromptRegistration(ctx context.Context, user *store.User) {
	switch user.BotState {
	case store.StateRegUsername:
		_, _ = e.bot.SendMessage(ctx, user.ChatID, fmt.Sprintf(textAskUsername, user.Draft.RealName), nil)
	case store.StateRegPassword:
		_, _ = e.bot.SendMessage(ctx, user.ChatID, textAskPassword, nil)
	default:
		_, _ = e.bot.SendMessage(ctx, user.ChatID, textWelcome, nil)
	}
}
