package ingest

import (
	"context"
	"sync"

	"bustrack/internal/model"
)

// Manager tracks at most one live session per device. Starting a new
// session for a device first stops and replaces any previous one, so an
// orphaned producer loop can never keep writing behind a new session's
// back.
type Manager struct {
	sink Sink

	mu       sync.Mutex
	sessions map[string]*Session
}

var (
	managerInstance *Manager
	managerOnce     sync.Once
)

// GetManager returns the singleton manager over the given sink. The sink
// is bound on first call.
func GetManager(sink Sink) *Manager {
	managerOnce.Do(func() {
		managerInstance = NewManager(sink)
	})
	return managerInstance
}

// NewManager creates a manager over the given sink
func NewManager(sink Sink) *Manager {
	return &Manager{
		sink:     sink,
		sessions: make(map[string]*Session),
	}
}

// StartSession starts a session for the device, stopping any previous one
func (m *Manager) StartSession(deviceID string, cfg SessionConfig) (*Session, error) {
	session, err := NewSession(cfg, m.sink)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	prev := m.sessions[deviceID]
	m.sessions[deviceID] = session
	m.mu.Unlock()

	if prev != nil {
		prev.Stop()
	}
	return session, nil
}

// Offer routes a fix to the device's live session
func (m *Manager) Offer(ctx context.Context, deviceID string, fix model.Fix) (bool, error) {
	m.mu.Lock()
	session := m.sessions[deviceID]
	m.mu.Unlock()

	if session == nil {
		return false, ErrNoActiveSession
	}
	return session.Offer(ctx, fix)
}

// StopSession stops and removes the device's session if one exists
func (m *Manager) StopSession(deviceID string) bool {
	m.mu.Lock()
	session := m.sessions[deviceID]
	delete(m.sessions, deviceID)
	m.mu.Unlock()

	if session == nil {
		return false
	}
	session.Stop()
	return true
}

// Session returns the device's live session if one exists
func (m *Manager) Session(deviceID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[deviceID]
	return session, ok
}
