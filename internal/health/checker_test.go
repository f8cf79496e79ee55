package health

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/attnlab/dopamind/internal/infra/sqlite"
)

func newTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	dir := t.TempDir()
	db, err := sqlite.Open(dir)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

type fakePersister struct {
	err    error
	synced int
}

func (f *fakePersister) PersistenceErr() error { return f.err }

func (f *fakePersister) Sync() error {
	f.synced++
	f.err = nil
	return nil
}

// ─── Checker Tests ──────────────────────────────────────────────────────────

func TestNewChecker_DefaultInterval(t *testing.T) {
	c := NewChecker(0)
	if c.interval != DefaultInterval {
		t.Errorf("interval = %v, want %v", c.interval, DefaultInterval)
	}
}

func TestChecker_RunAllHealthy(t *testing.T) {
	db := newTestDB(t)
	c := NewChecker(time.Minute,
		StoreCheck("sqlite", db),
		PersistenceCheck(&fakePersister{}),
		DataDirCheck(t.TempDir()),
	)

	statuses := c.RunOnce(context.Background())
	if len(statuses) != 3 {
		t.Fatalf("Statuses() = %d, want 3", len(statuses))
	}
	for _, s := range statuses {
		if !s.Healthy {
			t.Errorf("check %q should be healthy, got error: %s", s.Name, s.Error)
		}
	}
	if !c.IsHealthy() {
		t.Error("IsHealthy() should be true when all checks pass")
	}
}

func TestChecker_IsHealthy_BeforeRun(t *testing.T) {
	c := NewChecker(time.Minute, StoreCheck("sqlite", newTestDB(t)))

	// Before any run, there are no statuses; IsHealthy is vacuously true.
	if !c.IsHealthy() {
		t.Error("IsHealthy() should be true before first run (no statuses)")
	}
}

func TestChecker_ClosedStoreUnhealthy(t *testing.T) {
	db := newTestDB(t)
	db.Close()

	c := NewChecker(time.Minute, StoreCheck("sqlite", db))
	c.runAll(context.Background())
	if c.IsHealthy() {
		t.Error("IsHealthy() should be false for a closed database")
	}
	if s := c.Statuses()[0]; s.Error == "" {
		t.Error("Error should be set")
	}
}

func TestPersistenceCheck_RecoversThroughSync(t *testing.T) {
	p := &fakePersister{err: errors.New("disk full")}
	c := NewChecker(time.Minute, PersistenceCheck(p))

	c.runAll(context.Background())
	if c.IsHealthy() {
		t.Error("first run should report the persistence failure")
	}
	if p.synced != 1 {
		t.Errorf("Sync calls = %d, want 1", p.synced)
	}

	c.runAll(context.Background())
	if !c.IsHealthy() {
		t.Error("second run should be healthy after recovery")
	}
}

func TestDataDirCheck(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "missing")
	check := DataDirCheck(dir)

	if err := check.CheckFn(context.Background()); err == nil {
		t.Error("missing dir should fail")
	}
	if err := check.RecoverFn(context.Background()); err != nil {
		t.Fatalf("RecoverFn() error: %v", err)
	}
	if err := check.CheckFn(context.Background()); err != nil {
		t.Errorf("after recovery: %v", err)
	}

	file := filepath.Join(t.TempDir(), "file")
	os.WriteFile(file, []byte("x"), 0o644)
	if err := DataDirCheck(file).CheckFn(context.Background()); err == nil {
		t.Error("regular file should fail")
	}
}

func TestChecker_RunStopsOnCancel(t *testing.T) {
	c := NewChecker(time.Hour, DataDirCheck(t.TempDir()))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
