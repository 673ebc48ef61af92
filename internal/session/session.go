// Package session holds the record collection of one user session. Each
// session is created by loading the Record Store and lives until it is
// discarded or sits idle past its timeout.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/rollbook/internal/models"
	"github.com/starford/rollbook/internal/recordstore"
)

// Session is the explicit session-scoped state passed to every handler.
type Session struct {
	id    string
	store *recordstore.Store

	mu       sync.Mutex
	records  *models.Collection
	unsaved  bool
	lastSeen time.Time
}

// Open loads the store into a new session. No session exists when the
// load fails: an empty session must never overwrite a store it could not
// read.
func Open(ctx context.Context, store *recordstore.Store) (*Session, error) {
	c, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("session: open: %w", err)
	}
	return &Session{
		id:       uuid.NewString(),
		store:    store,
		records:  c,
		lastSeen: time.Now(),
	}, nil
}

// ID returns the opaque session identifier.
func (s *Session) ID() string { return s.id }

// Records returns a copy of the records in insertion order.
func (s *Session) Records() []models.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records.Clone().Records
}

// Len returns the number of records.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records.Len()
}

// Append adds r to the in-memory collection.
func (s *Session) Append(r models.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.Append(s.records, r)
	if s.store.Backed() {
		s.unsaved = true
	}
}

// Persist writes the full collection to the store. On failure the session
// stays usable and is flagged unsaved until a later Persist succeeds.
func (s *Session) Persist(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Persist(ctx, s.records); err != nil {
		s.unsaved = true
		return err
	}
	s.unsaved = false
	return nil
}

// Unsaved reports whether the in-memory records differ from the store.
func (s *Session) Unsaved() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unsaved
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen)
}
