package session

import (
	"context"
	"sync"
	"time"

	"besedka/internal/models"
)

// Memory keeps sessions in process memory.
type Memory struct {
	sessions map[int64]models.UserSession
	mu       sync.RWMutex
	timeout  time.Duration
	now      func() time.Time
}

// NewMemory creates a memory repository. Sessions idle longer than timeout
// are removed by Cleanup.
func NewMemory(timeout time.Duration) *Memory {
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	return &Memory{
		sessions: make(map[int64]models.UserSession),
		timeout:  timeout,
		now:      time.Now,
	}
}

func (m *Memory) Get(_ context.Context, userID int64) (*models.UserSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[userID]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *Memory) Save(_ context.Context, s *models.UserSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.UserID] = *s
	return nil
}

func (m *Memory) Clear(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
	return nil
}

// Len returns the number of stored sessions.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Cleanup removes expired sessions.
func (m *Memory) Cleanup() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-m.timeout)
	removed := 0
	for userID, s := range m.sessions {
		if s.UpdatedAt.Before(cutoff) {
			delete(m.sessions, userID)
			removed++
		}
	}
	return removed
}

// RunJanitor calls Cleanup every interval until ctx is done. onSweep, if set,
// gets the number of evicted sessions after every pass, including zero.
func (m *Memory) RunJanitor(ctx context.Context, interval time.Duration, onSweep func(removed int)) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n := m.Cleanup()
			if onSweep != nil {
				onSweep(n)
			}
		}
	}
}
