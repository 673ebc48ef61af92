package recordstore

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/starford/rollbook/internal/apperr"
	"github.com/starford/rollbook/internal/models"
	"github.com/starford/rollbook/internal/testutil"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLoad_NoProvider(t *testing.T) {
	s := New(nil, 0, quietLogger())
	c, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !c.Empty() || c.Header != models.CanonicalHeader {
		t.Errorf("collection = %+v, want empty canonical", c)
	}
	if s.Backed() {
		t.Error("store without provider reports backed")
	}
	if err := s.Persist(context.Background(), c); err != nil {
		t.Errorf("Persist without provider: %v", err)
	}
}

func TestLoad_Unavailable(t *testing.T) {
	p := testutil.NewFakeProvider(nil)
	p.SetFailures(true, false)
	s := New(p, time.Second, quietLogger())

	_, err := s.Load(context.Background())
	if !errors.Is(err, apperr.ErrStoreUnavailable) {
		t.Fatalf("err = %v, want ErrStoreUnavailable", err)
	}
	if !errors.Is(err, testutil.ErrInjected) {
		t.Errorf("err = %v, cause not preserved", err)
	}
}

func TestLoad_Malformed(t *testing.T) {
	p := testutil.NewFakeProvider([][]string{{"nope"}})
	s := New(p, time.Second, quietLogger())
	if _, err := s.Load(context.Background()); !errors.Is(err, apperr.ErrMalformedRow) {
		t.Fatalf("err = %v, want ErrMalformedRow", err)
	}
}

func TestAppendPersistLoad_RoundTrip(t *testing.T) {
	p := testutil.NewFakeProvider(nil)
	s := New(p, time.Second, quietLogger())
	ctx := context.Background()

	c, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	for _, r := range testutil.AliceAndBob(t) {
		before := c.Clone()
		s.Append(c, r)
		if c.Len() != before.Len()+1 {
			t.Fatalf("len = %d, want %d", c.Len(), before.Len()+1)
		}
		if diff := cmp.Diff(before.Records, c.Records[:before.Len()]); diff != "" {
			t.Fatalf("prior records changed (-want +got):\n%s", diff)
		}
	}
	if err := s.Persist(ctx, c); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	reloaded, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(c.Records, reloaded.Records); diff != "" {
		t.Errorf("reloaded mismatch (-want +got):\n%s", diff)
	}
	if got := p.Rows()[0]; got[0] != "character_name" {
		t.Errorf("header row = %v", got)
	}
}

func TestPersist_Unavailable(t *testing.T) {
	p := testutil.NewFakeProvider(nil)
	p.SetFailures(false, true)
	s := New(p, time.Second, quietLogger())

	err := s.Persist(context.Background(), models.NewCollection())
	if !errors.Is(err, apperr.ErrStoreUnavailable) {
		t.Fatalf("err = %v, want ErrStoreUnavailable", err)
	}
}

// slowProvider blocks until the context ends.
type slowProvider struct{}

func (slowProvider) ReadRows(ctx context.Context) ([][]string, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (slowProvider) ReplaceRows(ctx context.Context, _ [][]string) error {
	<-ctx.Done()
	return ctx.Err()
}

func (slowProvider) Close() error { return nil }

func TestTimeoutSurfacesUnavailable(t *testing.T) {
	s := New(slowProvider{}, 20*time.Millisecond, quietLogger())
	_, err := s.Load(context.Background())
	if !errors.Is(err, apperr.ErrStoreUnavailable) || !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("load err = %v", err)
	}
	err = s.Persist(context.Background(), models.NewCollection())
	if !errors.Is(err, apperr.ErrStoreUnavailable) || !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("persist err = %v", err)
	}
}
