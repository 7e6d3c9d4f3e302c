package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"studylogbot/pkg/store"
)

// MemStore implements store.Store in memory for headless engine tests.
type MemStore struct {
	mu    sync.Mutex
	users map[int64]*store.User
	logs  []store.StudyLog

	// FailNext maps an operation name to an error returned once on its next
	// call, mirroring the fakeadapter failure-scripting pattern.
	FailNext map[string]error
}

var _ store.Store = (*MemStore)(nil)

func New() *MemStore {
	return &MemStore{
		users: make(map[int64]*store.User),
	}
}

// Fail configures the next call for op to return err.
func (m *MemStore) Fail(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailNext == nil {
		m.FailNext = make(map[string]error)
	}
	m.FailNext[op] = err
}

func (m *MemStore) maybeFail(op string) error {
	if m.FailNext == nil {
		return nil
	}
	err, ok := m.FailNext[op]
	if !ok {
		return nil
	}
	delete(m.FailNext, op)
	return err
}

func (m *MemStore) GetUser(ctx context.Context, chatID int64) (*store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.maybeFail("get_user"); err != nil {
		return nil, err
	}
	user, ok := m.users[chatID]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (m *MemStore) CreateUser(ctx context.Context, user *store.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.maybeFail("create_user"); err != nil {
		return err
	}
	copied := *user
	copied.CreatedAt = time.Now()
	m.users[user.ChatID] = &copied
	return nil
}

func (m *MemStore) UpdateState(ctx context.Context, chatID, expectedVersion int64, newState store.BotState, draft store.Draft) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.maybeFail("update_state"); err != nil {
		return err
	}
	user, ok := m.users[chatID]
	if !ok || user.StateVersion != expectedVersion {
		return store.ErrStateConflict
	}
	user.BotState = newState
	user.Draft = draft
	user.StateVersion++
	user.UpdatedAt = time.Now()
	return nil
}

func (m *MemStore) CompleteRegistration(ctx context.Context, chatID, expectedVersion int64, realName, username, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.maybeFail("complete_registration"); err != nil {
		return err
	}
	user, ok := m.users[chatID]
	if !ok || user.StateVersion != expectedVersion {
		return store.ErrStateConflict
	}
	user.RealName = realName
	user.Username = username
	user.PasswordHash = passwordHash
	user.BotState = store.StateHome
	user.Draft = store.Draft{}
	user.StateVersion++
	user.UpdatedAt = time.Now()
	return nil
}

func (m *MemStore) InsertStudyLog(ctx context.Context, entry *store.StudyLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.maybeFail("insert_study_log"); err != nil {
		return err
	}
	copied := *entry
	copied.ID = uint(len(m.logs) + 1)
	copied.CreatedAt = time.Now()
	m.logs = append(m.logs, copied)
	return nil
}

// Logs returns a snapshot of the appended study logs.
func (m *MemStore) Logs() []store.StudyLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]store.StudyLog, len(m.logs))
	copy(out, m.logs)
	return out
}

func (m *MemStore) GetRank(ctx context.Context, chatID int64) (*store.UserRank, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.maybeFail("get_rank"); err != nil {
		return nil, err
	}
	user, ok := m.users[chatID]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	rank := m.rankLocked(user)
	return &rank, nil
}

func (m *MemStore) TopRanks(ctx context.Context, limit int) ([]store.UserRank, error) {
	ranks, err := m.AllRanks(ctx)
	if err != nil {
		return nil, err
	}
	if len(ranks) > limit {
		ranks = ranks[:limit]
	}
	return ranks, nil
}

func (m *MemStore) AllRanks(ctx context.Context) ([]store.UserRank, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.maybeFail("all_ranks"); err != nil {
		return nil, err
	}
	ranks := make([]store.UserRank, 0, len(m.users))
	for _, user := range m.users {
		ranks = append(ranks, m.rankLocked(user))
	}
	sort.Slice(ranks, func(i, j int) bool {
		return ranks[i].TotalHours > ranks[j].TotalHours
	})
	return ranks, nil
}

func (m *MemStore) DailyTotals(ctx context.Context, chatID int64, days int) ([]store.DailyTotal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.maybeFail("daily_totals"); err != nil {
		return nil, err
	}
	since := time.Now().UTC().AddDate(0, 0, -days)
	byDay := make(map[time.Time]float64)
	for _, entry := range m.logs {
		if entry.ChatID != chatID || entry.StudyDate.Before(since) {
			continue
		}
		byDay[entry.StudyDate] += entry.Duration
	}
	totals := make([]store.DailyTotal, 0, len(byDay))
	for day, hours := range byDay {
		totals = append(totals, store.DailyTotal{Day: day, Hours: hours})
	}
	sort.Slice(totals, func(i, j int) bool {
		return totals[i].Day.Before(totals[j].Day)
	})
	return totals, nil
}

func (m *MemStore) rankLocked(user *store.User) store.UserRank {
	total := 0.0
	for _, entry := range m.logs {
		if entry.ChatID == user.ChatID {
			total += entry.Duration
		}
	}
	return store.UserRank{
		ChatID:     user.ChatID,
		RealName:   user.RealName,
		Username:   user.Username,
		TotalHours: total,
	}
}
