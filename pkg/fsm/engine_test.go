package fsm

import (
	"context"
	"strings"
	"testing"
	"time"

	"studylogbot/pkg/bot/fakeadapter"
	"studylogbot/pkg/config"
	"studylogbot/pkg/store"
	"studylogbot/pkg/store/memstore"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	testAdminChat = int64(99)
	testChannel   = int64(500)
)

func newTestEngine(t *testing.T) (*Engine, *memstore.MemStore, *fakeadapter.FakeAdapter) {
	t.Helper()
	ms := memstore.New()
	fa := &fakeadapter.FakeAdapter{}
	cfg := &config.Config{AdminChatID: testAdminChat, ChannelID: testChannel}
	engine := New(ms, fa, cfg, config.DefaultFeatures())
	engine.now = func() time.Time {
		return time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	}
	return engine, ms, fa
}

func textUpdate(chatID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{
		Message: &tgbotapi.Message{
			Chat: &tgbotapi.Chat{ID: chatID},
			From: &tgbotapi.User{ID: chatID},
			Text: text,
		},
	}
}

func commandUpdate(chatID int64, command string) tgbotapi.Update {
	update := textUpdate(chatID, "/"+command)
	update.Message.Entities = []tgbotapi.MessageEntity{
		{Type: "bot_command", Offset: 0, Length: len(command) + 1},
	}
	return update
}

func callbackUpdate(chatID int64, data string) tgbotapi.Update {
	return tgbotapi.Update{
		CallbackQuery: &tgbotapi.CallbackQuery{
			ID:   "cb-1",
			Data: data,
			From: &tgbotapi.User{ID: chatID},
			Message: &tgbotapi.Message{
				Chat: &tgbotapi.Chat{ID: chatID},
			},
		},
	}
}

func photoUpdate(chatID int64, caption string) tgbotapi.Update {
	return tgbotapi.Update{
		Message: &tgbotapi.Message{
			Chat:    &tgbotapi.Chat{ID: chatID},
			From:    &tgbotapi.User{ID: chatID},
			Caption: caption,
			Photo: []tgbotapi.PhotoSize{
				{FileID: "small", Width: 90},
				{FileID: "large", Width: 800},
			},
		},
	}
}

func mustGetUser(t *testing.T, ms *memstore.MemStore, chatID int64) *store.User {
	t.Helper()
	user, err := ms.GetUser(context.Background(), chatID)
	if err != nil {
		t.Fatalf("failed to load user %d: %v", chatID, err)
	}
	return user
}

func TestFirstContactStartsRegistration(t *testing.T) {
	engine, ms, fa := newTestEngine(t)
	ctx := context.Background()

	// Content is irrelevant: any first event yields REG_NAME and a welcome.
	engine.HandleUpdate(ctx, textUpdate(10, "whatever text"))

	user := mustGetUser(t, ms, 10)
	if user.BotState != store.StateRegName {
		t.Fatalf("expected REG_NAME, got %s", user.BotState)
	}
	call := fa.LastCall("send_message")
	if call == nil || !strings.Contains(call.Text, "Welcome") {
		t.Fatalf("expected welcome prompt, got %+v", call)
	}
}

func TestFirstCallbackAlsoStartsRegistration(t *testing.T) {
	engine, ms, fa := newTestEngine(t)

	engine.HandleUpdate(context.Background(), callbackUpdate(11, CallbackProfile))

	user := mustGetUser(t, ms, 11)
	if user.BotState != store.StateRegName {
		t.Fatalf("expected REG_NAME, got %s", user.BotState)
	}
	if fa.LastCall("answer_callback") == nil {
		t.Fatalf("expected the callback to be acknowledged")
	}
}

func TestRegistrationSequence(t *testing.T) {
	engine, ms, fa := newTestEngine(t)
	ctx := context.Background()
	chat := int64(20)

	engine.HandleUpdate(ctx, commandUpdate(chat, CommandStart))
	engine.HandleUpdate(ctx, textUpdate(chat, "Alice"))

	user := mustGetUser(t, ms, chat)
	if user.BotState != store.StateRegUsername {
		t.Fatalf("expected REG_USERNAME after name, got %s", user.BotState)
	}
	if user.Draft.RealName != "Alice" {
		t.Fatalf("expected drafted real name 'Alice', got %q", user.Draft.RealName)
	}

	engine.HandleUpdate(ctx, textUpdate(chat, "alice99"))
	user = mustGetUser(t, ms, chat)
	if user.BotState != store.StateRegPassword {
		t.Fatalf("expected REG_PASSWORD after username, got %s", user.BotState)
	}
	if user.Draft.CustomUsername != "alice99" {
		t.Fatalf("expected drafted username 'alice99', got %q", user.Draft.CustomUsername)
	}

	engine.HandleUpdate(ctx, textUpdate(chat, "secret123"))
	user = mustGetUser(t, ms, chat)
	if user.BotState != store.StateHome {
		t.Fatalf("expected HOME after password, got %s", user.BotState)
	}
	if user.RealName != "Alice" || user.Username != "alice99" {
		t.Fatalf("expected committed profile, got %+v", user)
	}
	if user.PasswordHash == "" || user.PasswordHash == "secret123" {
		t.Fatalf("expected hashed password, got %q", user.PasswordHash)
	}
	if user.Draft != (store.Draft{}) {
		t.Fatalf("expected cleared draft, got %+v", user.Draft)
	}

	call := fa.LastCall("send_message")
	if call == nil || !strings.Contains(call.Text, "Registration Complete") {
		t.Fatalf("expected home menu after registration, got %+v", call)
	}
	if len(call.Keyboard) != 4 {
		t.Fatalf("expected 4 home menu rows, got %d", len(call.Keyboard))
	}
}

func TestStartMidRegistrationRestartsFlow(t *testing.T) {
	engine, ms, _ := newTestEngine(t)
	ctx := context.Background()
	chat := int64(21)

	engine.HandleUpdate(ctx, textUpdate(chat, "first contact"))
	engine.HandleUpdate(ctx, textUpdate(chat, "Alice"))
	engine.HandleUpdate(ctx, commandUpdate(chat, CommandStart))

	user := mustGetUser(t, ms, chat)
	if user.BotState != store.StateRegName {
		t.Fatalf("expected /start to restart registration, got %s", user.BotState)
	}
	if user.Draft != (store.Draft{}) {
		t.Fatalf("expected fresh draft after restart, got %+v", user.Draft)
	}
}

func TestCallbacksIgnoredMidRegistration(t *testing.T) {
	engine, ms, fa := newTestEngine(t)
	ctx := context.Background()
	chat := int64(22)

	engine.HandleUpdate(ctx, textUpdate(chat, "hello"))
	engine.HandleUpdate(ctx, callbackUpdate(chat, CallbackSubmitToday))

	user := mustGetUser(t, ms, chat)
	if user.BotState != store.StateRegName {
		t.Fatalf("expected registration state untouched, got %s", user.BotState)
	}
	call := fa.LastCall("send_message")
	if call == nil || !strings.Contains(call.Text, "registration") {
		t.Fatalf("expected registration hint, got %+v", call)
	}
}

func registerUser(t *testing.T, engine *Engine, chat int64, name, username string) {
	t.Helper()
	ctx := context.Background()
	engine.HandleUpdate(ctx, textUpdate(chat, "hi"))
	engine.HandleUpdate(ctx, textUpdate(chat, name))
	engine.HandleUpdate(ctx, textUpdate(chat, username))
	engine.HandleUpdate(ctx, textUpdate(chat, "password"))
}

func TestCancelClearsDraftFromAnyMainState(t *testing.T) {
	engine, ms, _ := newTestEngine(t)
	ctx := context.Background()
	chat := int64(30)
	registerUser(t, engine, chat, "Bob", "bob1")

	engine.HandleUpdate(ctx, callbackUpdate(chat, CallbackSubmitOld))
	engine.HandleUpdate(ctx, textUpdate(chat, "2024"))
	user := mustGetUser(t, ms, chat)
	if user.BotState != store.StateAwaitingMonth || user.Draft.Year != 2024 {
		t.Fatalf("unexpected state before cancel: %s %+v", user.BotState, user.Draft)
	}

	engine.HandleUpdate(ctx, callbackUpdate(chat, CallbackCancel))
	user = mustGetUser(t, ms, chat)
	if user.BotState != store.StateHome {
		t.Fatalf("expected HOME after cancel, got %s", user.BotState)
	}
	if user.Draft != (store.Draft{}) {
		t.Fatalf("expected cleared draft, got %+v", user.Draft)
	}
}

func TestUsersCommandFromNonAdminFallsThrough(t *testing.T) {
	engine, ms, fa := newTestEngine(t)
	ctx := context.Background()
	chat := int64(31)
	registerUser(t, engine, chat, "Eve", "eve1")

	engine.HandleUpdate(ctx, commandUpdate(chat, CommandUsers))

	user := mustGetUser(t, ms, chat)
	if user.BotState != store.StateHome {
		t.Fatalf("expected state unchanged, got %s", user.BotState)
	}
	call := fa.LastCall("send_message")
	if call == nil || strings.Contains(call.Text, "Registry") {
		t.Fatalf("registry dump must not leak to non-admin, got %+v", call)
	}
}

func TestUsersCommandFromAdminDumpsRegistry(t *testing.T) {
	engine, _, fa := newTestEngine(t)
	ctx := context.Background()
	registerUser(t, engine, 32, "Carol", "carol7")

	engine.HandleUpdate(ctx, commandUpdate(testAdminChat, CommandUsers))

	call := fa.LastCall("send_message")
	if call == nil || call.ChatID != testAdminChat {
		t.Fatalf("expected registry sent to admin, got %+v", call)
	}
	if !strings.Contains(call.Text, "Student Registry") || !strings.Contains(call.Text, "Carol") {
		t.Fatalf("expected registry content, got %q", call.Text)
	}
}

func TestProfileAndLeaderboardDoNotChangeState(t *testing.T) {
	engine, ms, fa := newTestEngine(t)
	ctx := context.Background()
	chat := int64(33)
	registerUser(t, engine, chat, "Dan", "dan3")

	engine.HandleUpdate(ctx, callbackUpdate(chat, CallbackProfile))
	call := fa.LastCall("send_message")
	if call == nil || !strings.Contains(call.Text, "My Profile") || !strings.Contains(call.Text, "Dan") {
		t.Fatalf("expected profile card, got %+v", call)
	}

	engine.HandleUpdate(ctx, callbackUpdate(chat, CallbackLeaderboard))
	call = fa.LastCall("send_message")
	if call == nil || !strings.Contains(call.Text, "Leaderboard") {
		t.Fatalf("expected leaderboard, got %+v", call)
	}

	user := mustGetUser(t, ms, chat)
	if user.BotState != store.StateHome {
		t.Fatalf("expected HOME preserved, got %s", user.BotState)
	}
}

func TestEndToEndTodaySubmission(t *testing.T) {
	engine, ms, fa := newTestEngine(t)
	ctx := context.Background()
	chat := int64(40)

	// Registration: Alice → alice99 → secret123 → home menu.
	engine.HandleUpdate(ctx, textUpdate(chat, "hello"))
	engine.HandleUpdate(ctx, textUpdate(chat, "Alice"))
	engine.HandleUpdate(ctx, textUpdate(chat, "alice99"))
	engine.HandleUpdate(ctx, textUpdate(chat, "secret123"))

	engine.HandleUpdate(ctx, callbackUpdate(chat, CallbackSubmitToday))
	user := mustGetUser(t, ms, chat)
	if user.BotState != store.StateAwaitingSubmission {
		t.Fatalf("expected AWAITING_SUBMISSION, got %s", user.BotState)
	}
	if user.Draft.Year != 2025 || user.Draft.Month != 3 || user.Draft.Day != 10 {
		t.Fatalf("expected today's date seeded, got %+v", user.Draft)
	}

	engine.HandleUpdate(ctx, photoUpdate(chat, "Physics 3 hrs"))
	user = mustGetUser(t, ms, chat)
	if user.BotState != store.StateConfirmSubmission {
		t.Fatalf("expected CONFIRM_SUBMISSION, got %s", user.BotState)
	}
	if user.Draft.Hours != 3 || user.Draft.Subject != "Physics 3 hrs" || user.Draft.PhotoID != "large" {
		t.Fatalf("unexpected draft: %+v", user.Draft)
	}
	confirm := fa.LastCall("send_message")
	if confirm == nil || !strings.Contains(confirm.Text, "Hours: 3") {
		t.Fatalf("expected confirmation prompt with hours, got %+v", confirm)
	}

	engine.HandleUpdate(ctx, callbackUpdate(chat, CallbackConfirmSubmit))
	user = mustGetUser(t, ms, chat)
	if user.BotState != store.StateHome {
		t.Fatalf("expected HOME after confirm, got %s", user.BotState)
	}

	logs := ms.Logs()
	if len(logs) != 1 {
		t.Fatalf("expected exactly one study log, got %d", len(logs))
	}
	entry := logs[0]
	if entry.ChatID != chat || entry.Duration != 3 || entry.Subject != "Physics 3 hrs" {
		t.Fatalf("unexpected study log: %+v", entry)
	}
	wantDate := time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)
	if !entry.StudyDate.Equal(wantDate) {
		t.Fatalf("expected study date %v, got %v", wantDate, entry.StudyDate)
	}

	// The broadcast copy goes to the channel as a photo.
	photo := fa.LastCall("send_photo")
	if photo == nil || photo.ChatID != testChannel || photo.FileID != "large" {
		t.Fatalf("expected channel broadcast photo, got %+v", photo)
	}
	if !strings.Contains(photo.Text, "Alice") || !strings.Contains(photo.Text, "3 hrs") {
		t.Fatalf("unexpected broadcast caption: %q", photo.Text)
	}
}

func TestFreeTextAtHomeGetsButtonHint(t *testing.T) {
	engine, _, fa := newTestEngine(t)
	chat := int64(41)
	registerUser(t, engine, chat, "Gus", "gus5")

	engine.HandleUpdate(context.Background(), textUpdate(chat, "random chatter"))

	call := fa.LastCall("send_message")
	if call == nil || !strings.Contains(call.Text, "buttons") {
		t.Fatalf("expected button hint, got %+v", call)
	}
}

func TestConcurrentDeliveryLosesRaceSilently(t *testing.T) {
	engine, ms, fa := newTestEngine(t)
	ctx := context.Background()
	chat := int64(42)
	registerUser(t, engine, chat, "Hal", "hal9")

	engine.HandleUpdate(ctx, callbackUpdate(chat, CallbackSubmitOld))

	// Simulate a concurrent delivery bumping the version between read and write.
	ms.Fail("update_state", store.ErrStateConflict)
	before := len(fa.CallsFor(chat))
	engine.HandleUpdate(ctx, textUpdate(chat, "2024"))

	user := mustGetUser(t, ms, chat)
	if user.BotState != store.StateAwaitingYear {
		t.Fatalf("expected state untouched on lost race, got %s", user.BotState)
	}
	// Dropped silently: no user-visible error message.
	if after := len(fa.CallsFor(chat)); after != before {
		t.Fatalf("expected no message on lost race, got %d new calls", after-before)
	}
}
