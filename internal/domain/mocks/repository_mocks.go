package mocks

import (
	"context"
	"sync"

	"github.com/user/playtime-tracker/internal/domain"
)

// MockSessionRepository is an in-memory implementation of
// domain.SessionRepository for testing. It mirrors the durable contract:
// admission and the session mutation of one call succeed or fail together.
type MockSessionRepository struct {
	mu       sync.Mutex
	Admitted map[string]domain.ProcessedLog
	Sessions []*domain.Session
	Profiles map[int64]string
	nextID   int64

	AdmitErr error
	OpenErr  error
	CloseErr error
	FindErr  error
}

func NewMockSessionRepository() *MockSessionRepository {
	return &MockSessionRepository{
		Admitted: make(map[string]domain.ProcessedLog),
		Profiles: make(map[int64]string),
	}
}

func (m *MockSessionRepository) Admit(ctx context.Context, rec domain.ProcessedLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.AdmitErr != nil {
		return m.AdmitErr
	}
	return m.admitLocked(rec)
}

func (m *MockSessionRepository) admitLocked(rec domain.ProcessedLog) error {
	if _, ok := m.Admitted[rec.LogID]; ok {
		return domain.ErrDuplicateEvent
	}
	m.Admitted[rec.LogID] = rec
	return nil
}

func (m *MockSessionRepository) OpenSession(ctx context.Context, rec domain.ProcessedLog, s *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.OpenErr != nil {
		return m.OpenErr
	}
	if err := m.admitLocked(rec); err != nil {
		return err
	}
	m.nextID++
	s.ID = m.nextID
	stored := *s
	m.Sessions = append(m.Sessions, &stored)
	return nil
}

func (m *MockSessionRepository) CloseSession(ctx context.Context, rec domain.ProcessedLog, sessionID int64, disconnectTime string, playtimeSeconds int, rollover []domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CloseErr != nil {
		return m.CloseErr
	}
	if err := m.admitLocked(rec); err != nil {
		return err
	}
	for _, s := range m.Sessions {
		if s.ID == sessionID && s.IsOpen() {
			s.DisconnectTime = disconnectTime
			s.PlaytimeSeconds = playtimeSeconds
			break
		}
	}
	for i := range rollover {
		m.nextID++
		stored := rollover[i]
		stored.ID = m.nextID
		m.Sessions = append(m.Sessions, &stored)
	}
	return nil
}

func (m *MockSessionRepository) FindOpenByHandle(ctx context.Context, handle string) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FindErr != nil {
		return nil, m.FindErr
	}
	for i := len(m.Sessions) - 1; i >= 0; i-- {
		if m.Sessions[i].SessionHandle == handle && m.Sessions[i].IsOpen() {
			found := *m.Sessions[i]
			return &found, nil
		}
	}
	return nil, nil
}

func (m *MockSessionRepository) SetProfileName(ctx context.Context, sessionID int64, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Profiles[sessionID] = name
	for _, s := range m.Sessions {
		if s.ID == sessionID {
			s.ProfileName = name
		}
	}
	return nil
}

// OpenCount returns the number of currently open session rows.
func (m *MockSessionRepository) OpenCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.Sessions {
		if s.IsOpen() {
			n++
		}
	}
	return n
}

// SessionsForHandle returns copies of all rows for a handle in insert order.
func (m *MockSessionRepository) SessionsForHandle(handle string) []domain.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Session
	for _, s := range m.Sessions {
		if s.SessionHandle == handle {
			out = append(out, *s)
		}
	}
	return out
}

// MockStatsRepository is a canned-result implementation of
// domain.StatsRepository.
type MockStatsRepository struct {
	Totals     []domain.PlayerPlaytime
	Daily      []domain.PlayerDailyPlaytime
	Active     []domain.Session
	Top        []domain.PlayerPlaytime
	TotalsErr  error
	DailyErr   error
	ActiveErr  error
	TopErr     error
	DailyDates []string
}

func (m *MockStatsRepository) TotalPlaytime(ctx context.Context) ([]domain.PlayerPlaytime, error) {
	return m.Totals, m.TotalsErr
}

func (m *MockStatsRepository) PlaytimeOnDate(ctx context.Context, date string) ([]domain.PlayerDailyPlaytime, error) {
	m.DailyDates = append(m.DailyDates, date)
	return m.Daily, m.DailyErr
}

func (m *MockStatsRepository) ActiveOnDate(ctx context.Context, date string) ([]domain.Session, error) {
	return m.Active, m.ActiveErr
}

func (m *MockStatsRepository) TopPlayers(ctx context.Context, limit int) ([]domain.PlayerPlaytime, error) {
	if m.TopErr != nil {
		return nil, m.TopErr
	}
	if limit < len(m.Top) {
		return m.Top[:limit], nil
	}
	return m.Top, nil
}

// MockNotifier records pushed notifications.
type MockNotifier struct {
	mu            sync.Mutex
	Notifications []domain.Notification
	NotifyErr     error
}

func (m *MockNotifier) Notify(ctx context.Context, n domain.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.NotifyErr != nil {
		return m.NotifyErr
	}
	m.Notifications = append(m.Notifications, n)
	return nil
}

func (m *MockNotifier) Sent() []domain.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Notification, len(m.Notifications))
	copy(out, m.Notifications)
	return out
}

// MockProfileResolver resolves display names from a fixed map.
type MockProfileResolver struct {
	Names      map[string]string
	ResolveErr error
}

func (m *MockProfileResolver) DisplayName(ctx context.Context, steamID string) (string, error) {
	if m.ResolveErr != nil {
		return "", m.ResolveErr
	}
	return m.Names[steamID], nil
}

// MockAPIKeyRepository validates keys against a fixed set.
type MockAPIKeyRepository struct {
	ValidKeys map[string]bool
	Err       error
}

func (m *MockAPIKeyRepository) IsValid(ctx context.Context, key string) (bool, error) {
	if m.Err != nil {
		return false, m.Err
	}
	return m.ValidKeys[key], nil
}
