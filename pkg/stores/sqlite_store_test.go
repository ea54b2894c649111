package stores

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

// setupTestStore creates an in-memory SQLite store for testing
func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := Open(context.Background(), MemoryPath)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	return store
}

// TestStoreLifecycle tests database initialization and closure
func TestStoreLifecycle(t *testing.T) {
	store, err := NewSQLiteStore(Config{Path: MemoryPath})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}

	if err := store.HealthCheck(ctx); err != nil {
		t.Fatalf("health check failed: %v", err)
	}

	if err := store.Close(); err != nil {
		t.Fatalf("failed to close store: %v", err)
	}
}

func TestNewSQLiteStoreRequiresPath(t *testing.T) {
	if _, err := NewSQLiteStore(Config{}); err == nil {
		t.Fatal("expected error for empty path")
	}
}

// TestStoreMigrations tests database migrations
func TestStoreMigrations(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for _, table := range []string{"installs", "events"} {
		var count int
		if err := store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count); err != nil {
			t.Errorf("table %s does not exist or is not accessible: %v", table, err)
		}
	}

	// A second run is a no-op.
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("second migration failed: %v", err)
	}
}

func TestInstallLifecycle(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	install := &Install{
		Package:        "samtools",
		Version:        "1.21",
		Provenance:     "bioconda",
		InstallPath:    "/apps/samtools/1.21",
		ModulefilePath: "/apps_modulefiles/samtools/1.21",
	}
	if err := store.CreateInstall(ctx, install); err != nil {
		t.Fatalf("failed to create install: %v", err)
	}
	if install.ID == "" {
		t.Fatal("expected generated ID")
	}
	if install.Status != InstallStatusPending {
		t.Errorf("expected pending status, got %s", install.Status)
	}

	if err := store.UpdateInstallStatus(ctx, install.ID, InstallStatusRunning, nil); err != nil {
		t.Fatalf("failed to mark running: %v", err)
	}
	running, err := store.GetInstall(ctx, install.ID)
	if err != nil {
		t.Fatalf("failed to get install: %v", err)
	}
	if running.StartedAt == nil {
		t.Error("expected started_at to be set")
	}
	if running.CompletedAt != nil {
		t.Error("expected completed_at to be empty while running")
	}

	msg := "exit status 1"
	if err := store.UpdateInstallStatus(ctx, install.ID, InstallStatusFailed, &msg); err != nil {
		t.Fatalf("failed to mark failed: %v", err)
	}
	failed, err := store.GetInstall(ctx, install.ID)
	if err != nil {
		t.Fatalf("failed to get install: %v", err)
	}
	if failed.Status != InstallStatusFailed {
		t.Errorf("expected failed status, got %s", failed.Status)
	}
	if failed.Error == nil || *failed.Error != msg {
		t.Errorf("expected error %q, got %v", msg, failed.Error)
	}
	if failed.CompletedAt == nil {
		t.Error("expected completed_at to be set")
	}
	if failed.InstallPath != install.InstallPath {
		t.Errorf("expected install path %s, got %s", install.InstallPath, failed.InstallPath)
	}
}

func TestMissingInstall(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	if _, err := store.GetInstall(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := store.UpdateInstallStatus(ctx, "nope", InstallStatusInstalled, nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := store.LatestInstall(ctx, "foo", "1.0"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListInstalls(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	records := []*Install{
		{Package: "bar", Version: "1.2", Provenance: "local", Status: InstallStatusInstalled},
		{Package: "foo", Version: "2.0", Provenance: "local", Status: InstallStatusFailed},
		{Package: "foo", Version: "2.0", Provenance: "local", Status: InstallStatusInstalled},
	}
	for _, r := range records {
		if err := store.CreateInstall(ctx, r); err != nil {
			t.Fatalf("failed to create install: %v", err)
		}
	}

	all, err := store.ListInstalls(ctx, InstallFilter{})
	if err != nil {
		t.Fatalf("failed to list installs: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 installs, got %d", len(all))
	}

	foo, err := store.ListInstalls(ctx, InstallFilter{Package: "foo"})
	if err != nil {
		t.Fatalf("failed to list installs: %v", err)
	}
	if len(foo) != 2 {
		t.Errorf("expected 2 foo installs, got %d", len(foo))
	}

	installed, err := store.ListInstalls(ctx, InstallFilter{Status: InstallStatusInstalled, Limit: 1})
	if err != nil {
		t.Fatalf("failed to list installs: %v", err)
	}
	if len(installed) != 1 {
		t.Errorf("expected limit to apply, got %d", len(installed))
	}

	latest, err := store.LatestInstall(ctx, "foo", "2.0")
	if err != nil {
		t.Fatalf("failed to get latest install: %v", err)
	}
	if latest.ID != records[2].ID {
		t.Errorf("expected latest install %s, got %s", records[2].ID, latest.ID)
	}
}

func TestEvents(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	install := &Install{Package: "foo", Version: "1.0", Provenance: "local"}
	if err := store.CreateInstall(ctx, install); err != nil {
		t.Fatalf("failed to create install: %v", err)
	}

	messages := []string{"resolved version", "running build script", "module files written"}
	for _, m := range messages {
		if err := store.AppendEvent(ctx, &Event{InstallID: install.ID, Level: EventLevelInfo, Message: m}); err != nil {
			t.Fatalf("failed to append event: %v", err)
		}
	}

	events, err := store.GetEvents(ctx, install.ID, 0)
	if err != nil {
		t.Fatalf("failed to get events: %v", err)
	}
	if len(events) != len(messages) {
		t.Fatalf("expected %d events, got %d", len(messages), len(events))
	}
	for i, e := range events {
		if e.Message != messages[i] {
			t.Errorf("event %d: expected %q, got %q", i, messages[i], e.Message)
		}
	}

	if err := store.AppendEvent(ctx, &Event{InstallID: "missing", Level: EventLevelInfo, Message: "x"}); err == nil {
		t.Error("expected foreign key violation for unknown install")
	}
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metadata", "ledger.db")
	ctx := context.Background()

	store, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	if err := store.CreateInstall(ctx, &Install{Package: "foo", Version: "1.0", Provenance: "local"}); err != nil {
		t.Fatalf("failed to create install: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("failed to close store: %v", err)
	}

	reopened, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("failed to reopen store: %v", err)
	}
	defer reopened.Close()

	installs, err := reopened.ListInstalls(ctx, InstallFilter{})
	if err != nil {
		t.Fatalf("failed to list installs: %v", err)
	}
	if len(installs) != 1 {
		t.Errorf("expected 1 persisted install, got %d", len(installs))
	}
}
