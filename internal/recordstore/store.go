// Package recordstore loads and persists the record collection through an
// optional tabular backing provider.
package recordstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/rollbook/internal/apperr"
	"github.com/starford/rollbook/internal/models"
	"github.com/starford/rollbook/internal/storage"
)

// DefaultTimeout bounds every provider call when none is configured.
const DefaultTimeout = 15 * time.Second

// Store converts between the record collection and provider rows.
// A Store without a provider keeps records for the session only.
//
// There is no locking or versioning: concurrent writers race on Persist and
// the last one wins.
type Store struct {
	provider storage.Provider
	timeout  time.Duration
	logger   *slog.Logger
}

// New creates a Store. provider may be nil.
func New(provider storage.Provider, timeout time.Duration, logger *slog.Logger) *Store {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{provider: provider, timeout: timeout, logger: logger}
}

// Backed reports whether a provider is configured.
func (s *Store) Backed() bool {
	return s.provider != nil
}

// Load reads the collection from the provider. Without a provider, or when
// the provider holds no rows, it returns an empty collection with the
// canonical header.
func (s *Store) Load(ctx context.Context) (*models.Collection, error) {
	if s.provider == nil {
		return models.NewCollection(), nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	rows, err := s.provider.ReadRows(ctx)
	if err != nil {
		s.logger.Error("store: load failed", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: %w", apperr.ErrStoreUnavailable, err)
	}
	c, err := decodeRows(rows)
	if err != nil {
		s.logger.Error("store: decode failed", slog.String("error", err.Error()))
		return nil, fmt.Errorf("recordstore: load: %w", err)
	}
	s.logger.Debug("store: loaded",
		slog.Int("records", c.Len()),
		slog.Duration("elapsed", time.Since(start)))
	return c, nil
}

// Append adds r to the end of c and returns c.
func (s *Store) Append(c *models.Collection, r models.Record) *models.Collection {
	return c.Append(r)
}

// Persist replaces the provider's whole range with the header and every
// record of c. It is a no-op without a provider. The write is not
// guaranteed atomic; on error the external range may be partially updated.
func (s *Store) Persist(ctx context.Context, c *models.Collection) error {
	if s.provider == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rows := encodeRows(c)
	if err := s.provider.ReplaceRows(ctx, rows); err != nil {
		s.logger.Error("store: persist failed",
			slog.Int("rows", len(rows)),
			slog.Bool("timeout", errors.Is(err, context.DeadlineExceeded)),
			slog.String("error", err.Error()))
		return fmt.Errorf("%w: %w", apperr.ErrStoreUnavailable, err)
	}
	s.logger.Debug("store: persisted", slog.Int("records", c.Len()))
	return nil
}
