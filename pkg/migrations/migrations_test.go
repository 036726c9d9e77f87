package migrations

import (
	"context"
	"database/sql"
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
)

type testLogger struct {
	infos  []string
	warns  []string
	errors []string
}

func (l *testLogger) Info(msg string, _ ...any)  { l.infos = append(l.infos, msg) }
func (l *testLogger) Warn(msg string, _ ...any)  { l.warns = append(l.warns, msg) }
func (l *testLogger) Error(msg string, _ ...any) { l.errors = append(l.errors, msg) }

func (l *testLogger) hasInfo(msg string) bool {
	for _, m := range l.infos {
		if m == msg {
			return true
		}
	}
	return false
}

type fakeMigrator struct {
	upErr    error
	stepsErr error
	steps    []int
}

func (m *fakeMigrator) Up() error { return m.upErr }
func (m *fakeMigrator) Steps(n int) error {
	m.steps = append(m.steps, n)
	return m.stepsErr
}
func (m *fakeMigrator) Close() (error, error) {
	return nil, nil
}

type blockingMigrator struct {
	closeCh   chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool
}

func newBlockingMigrator() *blockingMigrator {
	return &blockingMigrator{closeCh: make(chan struct{})}
}

func (m *blockingMigrator) Up() error {
	<-m.closeCh
	return nil
}

func (m *blockingMigrator) Steps(int) error { return m.Up() }

func (m *blockingMigrator) Close() (error, error) {
	m.closeOnce.Do(func() {
		m.closed.Store(true)
		close(m.closeCh)
	})
	return nil, nil
}

// stubFactories swaps the driver and migrator constructors for the duration of the test.
func stubFactories(t *testing.T, newMigrator func(sourceURL string) (migrator, error)) {
	t.Helper()

	origDriverFactory := driverFactory
	origMigratorFactory := migratorFactory
	t.Cleanup(func() {
		driverFactory = origDriverFactory
		migratorFactory = origMigratorFactory
	})

	driverFactory = func(_ *sql.DB, cfg Config) (database.Driver, error) {
		if cfg.MigrationsTable == "" {
			t.Fatalf("expected migrations table to be defaulted")
		}
		return nil, nil
	}
	migratorFactory = func(sourceURL string, _ database.Driver) (migrator, error) {
		return newMigrator(sourceURL)
	}
}

func TestUp_NilDB(t *testing.T) {
	if err := Up(context.Background(), nil, Config{}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestUp_ContextAlreadyCancelled_ReturnsCtxErr(t *testing.T) {
	called := atomic.Bool{}
	stubFactories(t, func(string) (migrator, error) {
		called.Store(true)
		return &fakeMigrator{}, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Up(ctx, &sql.DB{}, Config{Dir: t.TempDir()})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if called.Load() {
		t.Fatalf("expected no migrator creation when ctx already cancelled")
	}
}

func TestUp_ContextDeadlineExceeded_ReturnsCtxErr_AndCloses(t *testing.T) {
	block := newBlockingMigrator()
	stubFactories(t, func(string) (migrator, error) { return block, nil })

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := Up(ctx, &sql.DB{}, Config{Dir: t.TempDir()})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context.DeadlineExceeded, got %v", err)
	}
	if !block.closed.Load() {
		t.Fatalf("expected migrator.Close to be attempted on ctx cancellation")
	}
}

func TestUp_ErrNoChange_ReturnsNil(t *testing.T) {
	stubFactories(t, func(string) (migrator, error) {
		return &fakeMigrator{upErr: migrate.ErrNoChange}, nil
	})

	logger := &testLogger{}
	if err := Up(context.Background(), &sql.DB{}, Config{Dir: t.TempDir(), Logger: logger}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if !logger.hasInfo("No migrations to apply") {
		t.Fatalf("expected 'No migrations to apply' log")
	}
}

func TestUp_Success_LogsApplied(t *testing.T) {
	stubFactories(t, func(string) (migrator, error) { return &fakeMigrator{}, nil })

	logger := &testLogger{}
	if err := Up(context.Background(), &sql.DB{}, Config{Dir: t.TempDir(), Logger: logger}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if !logger.hasInfo("Migrations applied successfully") {
		t.Fatalf("expected 'Migrations applied successfully' log")
	}
}

func TestUp_WrapsMigrationFailure(t *testing.T) {
	stubFactories(t, func(string) (migrator, error) {
		return &fakeMigrator{upErr: errors.New("syntax error at or near")}, nil
	})

	err := Up(context.Background(), &sql.DB{}, Config{Dir: t.TempDir()})
	if err == nil || !strings.Contains(err.Error(), "migrations: up") {
		t.Fatalf("expected wrapped up error, got %v", err)
	}
}

func TestDown_RollsBackRequestedSteps(t *testing.T) {
	fake := &fakeMigrator{}
	stubFactories(t, func(string) (migrator, error) { return fake, nil })

	if err := Down(context.Background(), &sql.DB{}, Config{Dir: t.TempDir()}, 1); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(fake.steps) != 1 || fake.steps[0] != -1 {
		t.Fatalf("expected a single Steps(-1) call, got %v", fake.steps)
	}
}

func TestDown_RejectsNonPositiveSteps(t *testing.T) {
	if err := Down(context.Background(), &sql.DB{}, Config{}, 0); err == nil {
		t.Fatalf("expected error for zero steps")
	}
}

func TestUp_BuildsFileSourceURL(t *testing.T) {
	tmp := t.TempDir()
	var gotSourceURL string
	stubFactories(t, func(sourceURL string) (migrator, error) {
		gotSourceURL = sourceURL
		return &fakeMigrator{upErr: migrate.ErrNoChange}, nil
	})

	if err := Up(context.Background(), &sql.DB{}, Config{Dir: tmp}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	abs, _ := filepath.Abs(tmp)
	expected := (&url.URL{
		Scheme: "file",
		Path:   filepath.ToSlash(abs),
	}).String()

	if gotSourceURL != expected {
		t.Fatalf("expected sourceURL %q, got %q", expected, gotSourceURL)
	}
}

func TestUp_MigratorInitError(t *testing.T) {
	stubFactories(t, func(string) (migrator, error) { return nil, errors.New("boom") })

	err := Up(context.Background(), &sql.DB{}, Config{Dir: t.TempDir()})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "migrations: init") {
		t.Fatalf("expected wrapped init error, got %v", err)
	}
}

func TestUp_HandlesPathsWithSpecialCharacters(t *testing.T) {
	tmp := t.TempDir()
	dirWithSpaces := filepath.Join(tmp, "my migrations dir")
	if err := os.MkdirAll(dirWithSpaces, 0755); err != nil {
		t.Fatalf("failed to create test dir: %v", err)
	}

	var gotSourceURL string
	stubFactories(t, func(sourceURL string) (migrator, error) {
		gotSourceURL = sourceURL
		return &fakeMigrator{upErr: migrate.ErrNoChange}, nil
	})

	if err := Up(context.Background(), &sql.DB{}, Config{Dir: dirWithSpaces}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	parsedURL, err := url.Parse(gotSourceURL)
	if err != nil {
		t.Fatalf("sourceURL is not a valid URL: %v", err)
	}
	if parsedURL.Scheme != "file" {
		t.Fatalf("expected scheme 'file', got %q", parsedURL.Scheme)
	}

	abs, _ := filepath.Abs(dirWithSpaces)
	if parsedURL.Path != filepath.ToSlash(abs) {
		t.Fatalf("expected path %q, got %q", filepath.ToSlash(abs), parsedURL.Path)
	}
}
