// Package botport provides the outbound interface between the dialogue engine
// and chat adapters. Adapters normalize transport failures into BotError codes
// so the engine never inspects raw Telegram errors.
package botport

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// BotMessage captures adapter-agnostic identifiers for previously sent messages.
type BotMessage struct {
	ChatID    int64
	MessageID int
	Transport string
	Payload   string
	Meta      map[string]string
}

// BotError wraps adapter failures with retry hints and normalized codes.
type BotError struct {
	Op         string
	Code       string
	RetryAfter time.Duration
	Wrapped    error
}

func (e *BotError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Wrapped != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Code, e.Wrapped)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Code)
}

// Unwrap exposes the underlying adapter error for errors.Is/As.
func (e *BotError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Wrapped
}

// NewBotError builds a BotError with the provided operation/code, preserving the wrapped error.
func NewBotError(op, code string, err error) *BotError {
	return &BotError{
		Op:      op,
		Code:    code,
		Wrapped: err,
	}
}

// IsCode determines whether err represents a BotError with the provided code.
func IsCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var be *BotError
	if errors.As(err, &be) {
		return be != nil && be.Code == code
	}
	return false
}

// Button is one inline keyboard entry: a label plus the opaque callback token.
type Button struct {
	Label        string
	CallbackData string
}

// Keyboard is a transport-agnostic inline keyboard, rows of buttons.
type Keyboard [][]Button

// Row builds a single keyboard row.
func Row(buttons ...Button) []Button {
	return buttons
}

// BotPort abstracts outbound message operations for adapters (Telegram, fake, etc.).
type BotPort interface {
	SendMessage(ctx context.Context, chatID int64, text string, keyboard Keyboard) (BotMessage, error)
	SendPhoto(ctx context.Context, chatID int64, fileID string, caption string, keyboard Keyboard) (BotMessage, error)
	AnswerCallback(ctx context.Context, callbackID string, text string) error
}
