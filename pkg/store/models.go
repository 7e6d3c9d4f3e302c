package store

import (
	"fmt"
	"time"
)

// BotState identifies the user's position in the dialogue. The value is
// persisted verbatim in the users table, so the constants form a wire
// contract and must not be renamed.
type BotState string

const (
	StateRegName     BotState = "REG_NAME"
	StateRegUsername BotState = "REG_USERNAME"
	StateRegPassword BotState = "REG_PASSWORD"

	StateHome               BotState = "HOME"
	StateAwaitingYear       BotState = "AWAITING_YEAR"
	StateAwaitingMonth      BotState = "AWAITING_MONTH"
	StateAwaitingDate       BotState = "AWAITING_DATE"
	StateAwaitingSubmission BotState = "AWAITING_SUBMISSION"
	StateConfirmSubmission  BotState = "CONFIRM_SUBMISSION"
)

// Phase splits the state set into its two dialogue phases.
type Phase int

const (
	PhaseUnknown Phase = iota
	PhaseRegistration
	PhaseMain
)

var statePhases = map[BotState]Phase{
	StateRegName:            PhaseRegistration,
	StateRegUsername:        PhaseRegistration,
	StateRegPassword:        PhaseRegistration,
	StateHome:               PhaseMain,
	StateAwaitingYear:       PhaseMain,
	StateAwaitingMonth:      PhaseMain,
	StateAwaitingDate:       PhaseMain,
	StateAwaitingSubmission: PhaseMain,
	StateConfirmSubmission:  PhaseMain,
}

// Phase returns the dialogue phase the state belongs to.
func (s BotState) Phase() Phase {
	return statePhases[s]
}

// Valid reports whether s is one of the known dialogue states.
func (s BotState) Valid() bool {
	_, ok := statePhases[s]
	return ok
}

// Draft is the scratch payload carried across a multi-step dialogue. It is
// replaced wholesale on every transition; each step writes a complete new
// value holding only the fields its state may legally carry.
type Draft struct {
	RealName       string `json:"real_name,omitempty"`
	CustomUsername string `json:"custom_username,omitempty"`

	Year    int     `json:"year,omitempty"`
	Month   int     `json:"month,omitempty"`
	Day     int     `json:"day,omitempty"`
	Hours   float64 `json:"hours,omitempty"`
	Subject string  `json:"subject,omitempty"`
	PhotoID string  `json:"photo_id,omitempty"`
}

// StudyDate composes the calendar date from the draft's year/month/day.
func (d Draft) StudyDate() time.Time {
	return time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, time.UTC)
}

// ValidForState checks that the draft carries exactly the fields its target
// state requires. Transitions refuse to persist an under-filled draft.
func (d Draft) ValidForState(s BotState) error {
	switch s {
	case StateRegName, StateHome:
		if d != (Draft{}) {
			return fmt.Errorf("state %s requires an empty draft", s)
		}
	case StateRegUsername:
		if d.RealName == "" {
			return fmt.Errorf("state %s requires real_name", s)
		}
	case StateRegPassword:
		if d.RealName == "" || d.CustomUsername == "" {
			return fmt.Errorf("state %s requires real_name and custom_username", s)
		}
	case StateAwaitingMonth:
		if d.Year == 0 {
			return fmt.Errorf("state %s requires year", s)
		}
	case StateAwaitingDate:
		if d.Year == 0 || d.Month == 0 {
			return fmt.Errorf("state %s requires year and month", s)
		}
	case StateAwaitingSubmission:
		// Reached either with a full date (submit_today, date flow) or with a
		// complete prior draft when re-entered via edit_submission.
		if d.Year == 0 || d.Month == 0 || d.Day == 0 {
			return fmt.Errorf("state %s requires a complete date", s)
		}
	case StateConfirmSubmission:
		if d.Year == 0 || d.Month == 0 || d.Day == 0 {
			return fmt.Errorf("state %s requires a complete date", s)
		}
		if d.Hours <= 0 {
			return fmt.Errorf("state %s requires positive hours", s)
		}
	case StateAwaitingYear:
		// Entered with a cleared draft; fields accumulate from here.
		if d != (Draft{}) {
			return fmt.Errorf("state %s requires an empty draft", s)
		}
	default:
		return fmt.Errorf("unknown state %s", s)
	}
	return nil
}

// User is the durable representation of a chat participant.
type User struct {
	ChatID       int64    `gorm:"column:chat_id;primaryKey"`
	RealName     string   `gorm:"column:real_name"`
	Username     string   `gorm:"column:username"`
	PasswordHash string   `gorm:"column:password_hash"`
	BotState     BotState `gorm:"column:bot_state;not null"`
	Draft        Draft    `gorm:"column:draft;serializer:json"`
	// StateVersion increments on every transition; conditional updates compare
	// against it so concurrent webhook deliveries cannot interleave writes.
	StateVersion int64     `gorm:"column:state_version;not null;default:0"`
	CreatedAt    time.Time `gorm:"column:created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at"`
}

func (User) TableName() string { return "users" }

// StudyLog is one submitted study session. Rows are append-only.
type StudyLog struct {
	ID        uint      `gorm:"primaryKey"`
	ChatID    int64     `gorm:"column:chat_id;index;not null"`
	Duration  float64   `gorm:"column:duration;not null"`
	Subject   string    `gorm:"column:subject"`
	StudyDate time.Time `gorm:"column:study_date;type:date;not null"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (StudyLog) TableName() string { return "study_logs" }

// UserRank is a row of the read-only user_ranks aggregate view.
type UserRank struct {
	ChatID     int64   `gorm:"column:chat_id"`
	RealName   string  `gorm:"column:real_name"`
	Username   string  `gorm:"column:username"`
	TotalHours float64 `gorm:"column:total_hours"`
}

func (UserRank) TableName() string { return "user_ranks" }

// DailyTotal aggregates one user's logged hours for a single day.
type DailyTotal struct {
	Day   time.Time `gorm:"column:day"`
	Hours float64   `gorm:"column:hours"`
}
