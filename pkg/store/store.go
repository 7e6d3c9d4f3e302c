package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// GormStore implements Store on top of a Postgres database via gorm.
type GormStore struct {
	db *gorm.DB
}

var _ Store = (*GormStore)(nil)

// Open connects to Postgres and verifies connectivity.
func Open(dsn string) (*GormStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("database dsn cannot be empty")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	return &GormStore{db: db}, nil
}

// NewGormStore wraps an existing gorm handle (used by tests).
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Migrate creates the tables and the user_ranks aggregate view.
func (s *GormStore) Migrate() error {
	if err := s.db.AutoMigrate(&User{}, &StudyLog{}); err != nil {
		return fmt.Errorf("auto-migration failed: %w", err)
	}

	viewSQL := `
CREATE OR REPLACE VIEW user_ranks AS
SELECT u.chat_id,
       u.real_name,
       u.username,
       COALESCE(SUM(l.duration), 0) AS total_hours
FROM users u
LEFT JOIN study_logs l ON l.chat_id = u.chat_id
GROUP BY u.chat_id, u.real_name, u.username
ORDER BY total_hours DESC`
	if err := s.db.Exec(viewSQL).Error; err != nil {
		return fmt.Errorf("failed to create user_ranks view: %w", err)
	}
	log.Println("Database migration complete.")
	return nil
}

func (s *GormStore) GetUser(ctx context.Context, chatID int64) (*User, error) {
	var user User
	err := s.db.WithContext(ctx).First(&user, "chat_id = ?", chatID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user %d: %w", chatID, err)
	}
	return &user, nil
}

func (s *GormStore) CreateUser(ctx context.Context, user *User) error {
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("failed to create user %d: %w", user.ChatID, err)
	}
	return nil
}

func (s *GormStore) UpdateState(ctx context.Context, chatID, expectedVersion int64, newState BotState, draft Draft) error {
	res := s.db.WithContext(ctx).Model(&User{}).
		Where("chat_id = ? AND state_version = ?", chatID, expectedVersion).
		Select("bot_state", "draft", "state_version").
		Updates(&User{
			BotState:     newState,
			Draft:        draft,
			StateVersion: expectedVersion + 1,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update state for user %d: %w", chatID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrStateConflict
	}
	return nil
}

func (s *GormStore) CompleteRegistration(ctx context.Context, chatID, expectedVersion int64, realName, username, passwordHash string) error {
	res := s.db.WithContext(ctx).Model(&User{}).
		Where("chat_id = ? AND state_version = ?", chatID, expectedVersion).
		Select("real_name", "username", "password_hash", "bot_state", "draft", "state_version").
		Updates(&User{
			RealName:     realName,
			Username:     username,
			PasswordHash: passwordHash,
			BotState:     StateHome,
			Draft:        Draft{},
			StateVersion: expectedVersion + 1,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to complete registration for user %d: %w", chatID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrStateConflict
	}
	return nil
}

func (s *GormStore) InsertStudyLog(ctx context.Context, entry *StudyLog) error {
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to insert study log for user %d: %w", entry.ChatID, err)
	}
	return nil
}

func (s *GormStore) GetRank(ctx context.Context, chatID int64) (*UserRank, error) {
	var rank UserRank
	err := s.db.WithContext(ctx).First(&rank, "chat_id = ?", chatID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load rank for user %d: %w", chatID, err)
	}
	return &rank, nil
}

func (s *GormStore) TopRanks(ctx context.Context, limit int) ([]UserRank, error) {
	var ranks []UserRank
	err := s.db.WithContext(ctx).
		Order("total_hours DESC").
		Limit(limit).
		Find(&ranks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load top ranks: %w", err)
	}
	return ranks, nil
}

func (s *GormStore) AllRanks(ctx context.Context) ([]UserRank, error) {
	var ranks []UserRank
	err := s.db.WithContext(ctx).
		Order("total_hours DESC").
		Find(&ranks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load registry: %w", err)
	}
	return ranks, nil
}

func (s *GormStore) DailyTotals(ctx context.Context, chatID int64, days int) ([]DailyTotal, error) {
	since := time.Now().UTC().AddDate(0, 0, -days)
	var totals []DailyTotal
	err := s.db.WithContext(ctx).
		Model(&StudyLog{}).
		Select("study_date AS day, SUM(duration) AS hours").
		Where("chat_id = ? AND study_date >= ?", chatID, since).
		Group("study_date").
		Order("study_date ASC").
		Scan(&totals).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate daily totals for user %d: %w", chatID, err)
	}
	return totals, nil
}
