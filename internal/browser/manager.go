package browser

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog/log"
)

// ManagerConfig configures a Manager
type ManagerConfig struct {
	Headless      bool
	MaxSessions   int
	IdleTimeout   time.Duration
	SweepInterval time.Duration
}

// Manager tracks open browser sessions
type Manager struct {
	launcher Launcher
	cfg      ManagerConfig
	now      func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
	// IDs whose browser is still launching; they count against MaxSessions
	pending map[string]struct{}
	closed  bool
}

// NewManager creates a manager that opens pages with launcher
func NewManager(launcher Launcher, cfg ManagerConfig) *Manager {
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = 5
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 10 * time.Minute
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}
	return &Manager{
		launcher: launcher,
		cfg:      cfg,
		now:      time.Now,
		sessions: make(map[string]*Session),
		pending:  make(map[string]struct{}),
	}
}

// DefaultHeadless reports the configured headless default for new sessions
func (m *Manager) DefaultHeadless() bool {
	return m.cfg.Headless
}

// StartSession opens a new page and registers it under opts.ID or a generated ID
func (m *Manager) StartSession(ctx context.Context, opts SessionOptions) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if opts.ID == "" {
		id, err := gonanoid.New(12)
		if err != nil {
			return nil, fmt.Errorf("failed to generate session id: %w", err)
		}
		opts.ID = id
	}
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}

	if err := m.reserve(opts.ID); err != nil {
		return nil, err
	}

	session := newSession(opts.ID, opts.Headless, m.now)
	page, closer, err := m.launcher.Launch(opts, session)

	m.mu.Lock()
	delete(m.pending, opts.ID)
	if err != nil {
		m.mu.Unlock()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	session.page = page
	session.closer = closer
	if m.closed {
		m.mu.Unlock()
		if cerr := session.close(); cerr != nil {
			log.Warn().Err(cerr).Str("session_id", opts.ID).Msg("failed to close browser session launched during shutdown")
		}
		return nil, ErrManagerClosed
	}
	m.sessions[opts.ID] = session
	m.mu.Unlock()

	log.Info().Str("session_id", opts.ID).Bool("headless", opts.Headless).Msg("browser session started")
	return session, nil
}

// reserve claims id and a session slot while the browser launches outside the lock
func (m *Manager) reserve(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrManagerClosed
	}
	if _, exists := m.sessions[id]; exists {
		return fmt.Errorf("%w: %s", ErrSessionExists, id)
	}
	if _, launching := m.pending[id]; launching {
		return fmt.Errorf("%w: %s", ErrSessionExists, id)
	}
	if len(m.sessions)+len(m.pending) >= m.cfg.MaxSessions {
		return fmt.Errorf("%w (%d)", ErrSessionLimit, m.cfg.MaxSessions)
	}
	m.pending[id] = struct{}{}
	return nil
}

// GetSession returns an open session
func (m *Manager) GetSession(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return session, nil
}

// CloseSession closes and forgets a session
func (m *Manager) CloseSession(id string) error {
	m.mu.Lock()
	session, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	log.Info().Str("session_id", id).Msg("browser session closed")
	return session.close()
}

// ListSessions returns every open session ordered by creation time
func (m *Manager) ListSessions() []SessionInfo {
	m.mu.RLock()
	infos := make([]SessionInfo, 0, len(m.sessions))
	for _, s := range m.sessions {
		infos = append(infos, s.Info())
	}
	m.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool { return infos[i].CreatedAt.Before(infos[j].CreatedAt) })
	return infos
}

// Count returns the number of open sessions
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// CleanupIdle closes sessions unused for longer than the idle timeout and returns how many it closed
func (m *Manager) CleanupIdle() int {
	cutoff := m.now().Add(-m.cfg.IdleTimeout)

	m.mu.Lock()
	var idle []*Session
	for id, s := range m.sessions {
		if s.idleSince().Before(cutoff) {
			idle = append(idle, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range idle {
		if err := s.close(); err != nil {
			log.Warn().Err(err).Str("session_id", s.ID).Msg("failed to close idle browser session")
		}
	}
	if len(idle) > 0 {
		log.Info().Int("closed", len(idle)).Msg("closed idle browser sessions")
	}
	return len(idle)
}

// StartSweeper closes idle sessions every sweep interval until ctx is done
func (m *Manager) StartSweeper(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(m.cfg.SweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.CleanupIdle()
			}
		}
	}()
}

// Shutdown closes every session and then the launcher. Sessions still
// launching are closed as soon as their launch returns.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	m.closed = true
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	var errs []error
	for _, s := range sessions {
		if err := s.close(); err != nil {
			errs = append(errs, fmt.Errorf("session %s: %w", s.ID, err))
		}
	}
	if err := m.launcher.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
