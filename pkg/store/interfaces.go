package store

import (
	"context"
	"errors"
)

var (
	// ErrUserNotFound signals an unseen chat id.
	ErrUserNotFound = errors.New("user not found")
	// ErrStateConflict signals a lost compare-and-swap race: another webhook
	// delivery already advanced this user's state.
	ErrStateConflict = errors.New("state version conflict")
)

// Store is the persistence boundary the dialogue engine works against.
type Store interface {
	// GetUser returns the user row for chatID, or ErrUserNotFound.
	GetUser(ctx context.Context, chatID int64) (*User, error)
	// CreateUser inserts a fresh user row (registration start).
	CreateUser(ctx context.Context, user *User) error
	// UpdateState performs the conditional transition write: bot_state and
	// draft are replaced only when state_version still equals
	// expectedVersion. Returns ErrStateConflict on a lost race.
	UpdateState(ctx context.Context, chatID, expectedVersion int64, newState BotState, draft Draft) error
	// CompleteRegistration commits the profile fields, clears the draft, and
	// moves the user to HOME in one conditional write.
	CompleteRegistration(ctx context.Context, chatID, expectedVersion int64, realName, username, passwordHash string) error

	// InsertStudyLog appends one finalized study session.
	InsertStudyLog(ctx context.Context, entry *StudyLog) error

	// GetRank reads the aggregate view row for one user.
	GetRank(ctx context.Context, chatID int64) (*UserRank, error)
	// TopRanks reads the highest-ranked rows, best first.
	TopRanks(ctx context.Context, limit int) ([]UserRank, error)
	// AllRanks reads the full registry, best first.
	AllRanks(ctx context.Context) ([]UserRank, error)
	// DailyTotals aggregates one user's hours per study date over the last
	// days calendar days.
	DailyTotals(ctx context.Context, chatID int64, days int) ([]DailyTotal, error)
}
