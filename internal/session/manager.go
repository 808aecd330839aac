package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"pplxbridge/internal/browser"
	"pplxbridge/pkg/models"
)

// Manager owns the one-at-a-time browser session lifecycle. Every /ask
// request opens exactly one session and closes it on every outcome; a
// weighted semaphore of size one serializes requests, since concurrent
// Chrome launches against the shared profile directory corrupt it.
type Manager struct {
	launcher browser.Launcher

	slot *semaphore.Weighted

	mu      sync.RWMutex
	current *models.Session
	active  *browser.Instance
}

func NewManager(launcher browser.Launcher) *Manager {
	return &Manager{
		launcher: launcher,
		slot:     semaphore.NewWeighted(1),
	}
}

// Open waits for the profile slot, launches a browser, and records the
// session. Queued callers abandon their place when their request context
// is cancelled.
func (m *Manager) Open(ctx context.Context) (*browser.Instance, error) {
	if err := m.slot.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("waiting for browser slot: %w", err)
	}

	inst, err := m.launcher.Launch(ctx)
	if err != nil {
		m.slot.Release(1)
		return nil, fmt.Errorf("session launch failed: %w", err)
	}

	sess := &models.Session{
		ID:         uuid.New().String(),
		Status:     models.StatusRunning,
		Mode:       m.launcher.Mode(),
		StartedAt:  time.Now(),
		ConnectURL: inst.ConnectURL,
	}

	m.mu.Lock()
	m.current = sess
	m.active = inst
	m.mu.Unlock()

	log.Info("session: opened", "id", sess.ID[:8], "mode", sess.Mode)
	return inst, nil
}

// Close releases the browser unconditionally and frees the profile slot.
// ok records whether the request that owned the session succeeded.
func (m *Manager) Close(inst *browser.Instance, ok bool) {
	inst.Close()

	m.mu.Lock()
	if m.current != nil && m.current.Status == models.StatusRunning {
		now := time.Now()
		m.current.EndedAt = &now
		if ok {
			m.current.Status = models.StatusCompleted
		} else {
			m.current.Status = models.StatusError
		}
		log.Info("session: closed", "id", m.current.ID[:8], "status", m.current.Status,
			"duration", now.Sub(m.current.StartedAt).Round(time.Second))
	}
	m.active = nil
	m.mu.Unlock()

	m.slot.Release(1)
}

// Current returns a copy of the most recent session record, live or
// finished, or nil when no request has run yet.
func (m *Manager) Current() *models.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.current == nil {
		return nil
	}
	copied := *m.current
	return &copied
}

// ActiveConnectURL returns the CDP endpoint of the live browser, if a
// session is in flight right now.
func (m *Manager) ActiveConnectURL() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.active == nil {
		return "", false
	}
	return m.active.ConnectURL, true
}

// Busy reports whether a session is currently open.
func (m *Manager) Busy() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active != nil
}
