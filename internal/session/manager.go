package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/starford/rollbook/internal/recordstore"
)

// DefaultIdleTimeout discards sessions unused for this long.
const DefaultIdleTimeout = 30 * time.Minute

// Manager maps session IDs to sessions. Expired sessions are swept on
// access; there is no background goroutine.
type Manager struct {
	store  *recordstore.Store
	idle   time.Duration
	logger *slog.Logger
	now    func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a Manager loading new sessions from store.
func NewManager(store *recordstore.Store, idle time.Duration, logger *slog.Logger) *Manager {
	if idle <= 0 {
		idle = DefaultIdleTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:    store,
		idle:     idle,
		logger:   logger,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Acquire returns the live session for id, or opens a new one when id is
// unknown or expired. The returned session's ID may differ from id.
func (m *Manager) Acquire(ctx context.Context, id string) (*Session, error) {
	now := m.now()

	m.mu.Lock()
	m.sweepLocked(now)
	if s, ok := m.sessions[id]; ok && id != "" {
		m.mu.Unlock()
		s.touch(now)
		return s, nil
	}
	m.mu.Unlock()

	s, err := Open(ctx, m.store)
	if err != nil {
		return nil, err
	}
	s.touch(now)

	m.mu.Lock()
	m.sessions[s.id] = s
	count := len(m.sessions)
	m.mu.Unlock()

	m.logger.Debug("session: opened",
		slog.String("session_id", s.id),
		slog.Int("records", s.Len()),
		slog.Int("active", count))
	return s, nil
}

// Discard ends the session with the given id.
func (m *Manager) Discard(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// IdleTimeout returns the configured idle timeout.
func (m *Manager) IdleTimeout() time.Duration { return m.idle }

func (m *Manager) sweepLocked(now time.Time) {
	for id, s := range m.sessions {
		if s.idleSince(now) <= m.idle {
			continue
		}
		if s.Unsaved() {
			m.logger.Warn("session: discarding unsaved records",
				slog.String("session_id", id),
				slog.Int("records", s.Len()))
		}
		delete(m.sessions, id)
	}
}

// Pinned holds the session of a surface that has no per-user identity,
// such as the JSON API or the MCP server. While the session has nothing
// unsaved, every Get reloads it, so the surface sees what other sessions
// have saved before it appends. A session with unsaved records is kept
// until a Persist succeeds. Without a backing store the first session is
// kept for good.
type Pinned struct {
	store *recordstore.Store

	mu   sync.Mutex
	sess *Session
}

// NewPinned creates a Pinned holder; the session opens on first Get.
func NewPinned(store *recordstore.Store) *Pinned {
	return &Pinned{store: store}
}

// Get returns the current session, reloading the store when it is safe.
func (p *Pinned) Get(ctx context.Context) (*Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sess != nil && (!p.store.Backed() || p.sess.Unsaved()) {
		return p.sess, nil
	}
	s, err := Open(ctx, p.store)
	if err != nil {
		return nil, err
	}
	p.sess = s
	return s, nil
}
