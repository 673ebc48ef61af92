// Package testutil provides shared test helpers: record builders and an
// in-memory tabular provider with failure injection.
package testutil

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/starford/rollbook/internal/models"
)

// ErrInjected is returned by FakeProvider when a failure is switched on.
var ErrInjected = errors.New("injected provider failure")

// Date parses YYYY-MM-DD or fails the test.
func Date(t testing.TB, s string) time.Time {
	t.Helper()
	d, err := time.Parse(models.DateLayout, s)
	if err != nil {
		t.Fatalf("bad test date %q: %v", s, err)
	}
	return d
}

// Rec builds a record from a YYYY-MM-DD date.
func Rec(t testing.TB, name, date string, roll int, notes string) models.Record {
	t.Helper()
	return models.Record{CharacterName: name, Date: Date(t, date), RollValue: roll, Notes: notes}
}

// AliceAndBob is the two-record collection used by scenario tests.
func AliceAndBob(t testing.TB) []models.Record {
	t.Helper()
	return []models.Record{
		Rec(t, "Alice", "2024-01-01", 55, "note A"),
		Rec(t, "Bob", "2024-02-01", 10, "note B"),
	}
}

// FakeProvider is an in-memory storage.Provider.
type FakeProvider struct {
	mu        sync.Mutex
	rows      [][]string
	FailRead  bool
	FailWrite bool
	Reads     int
	Writes    int
}

// NewFakeProvider returns a provider pre-filled with rows.
func NewFakeProvider(rows [][]string) *FakeProvider {
	return &FakeProvider{rows: rows}
}

func (f *FakeProvider) ReadRows(ctx context.Context) ([][]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Reads++
	if f.FailRead {
		return nil, ErrInjected
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return copyRows(f.rows), nil
}

func (f *FakeProvider) ReplaceRows(ctx context.Context, rows [][]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Writes++
	if f.FailWrite {
		return ErrInjected
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	f.rows = copyRows(rows)
	return nil
}

func (f *FakeProvider) Close() error { return nil }

// Rows returns a copy of the stored rows.
func (f *FakeProvider) Rows() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return copyRows(f.rows)
}

// SetFailures switches injected read and write failures.
func (f *FakeProvider) SetFailures(read, write bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.FailRead = read
	f.FailWrite = write
}

func copyRows(rows [][]string) [][]string {
	if rows == nil {
		return nil
	}
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = append([]string(nil), r...)
	}
	return out
}
