// Package storage defines the tabular backing-store abstraction and its
// implementations. A provider stores rows of string cells; the first row is
// the header.
package storage

import "context"

// Provider is the interface for an external tabular store.
type Provider interface {
	// ReadRows returns every stored row, header first. An empty store
	// returns no rows and no error.
	ReadRows(ctx context.Context) ([][]string, error)
	// ReplaceRows overwrites the whole stored range with rows.
	// Implementations document whether the replacement is atomic.
	ReplaceRows(ctx context.Context, rows [][]string) error
	// Close releases any resources held by the provider.
	Close() error
}

// Provider kinds accepted by configuration.
const (
	KindNone   = "none"
	KindSheets = "sheets"
	KindCSV    = "csv"
	KindSQLite = "sqlite"
)
