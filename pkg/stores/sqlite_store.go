package stores

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"

	// SQLite driver
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db   *sql.DB
	path string
	cfg  Config
}

// Config holds SQLite store configuration
type Config struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// NewSQLiteStore creates a new SQLite store instance
func NewSQLiteStore(cfg Config) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	// Set defaults
	if cfg.MaxOpenConns == 0 {
		cfg.MaxOpenConns = 4
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = 2
	}
	if cfg.ConnMaxLifetime == 0 {
		cfg.ConnMaxLifetime = 5 * time.Minute
	}
	// Every connection to :memory: is a separate database.
	if cfg.Path == MemoryPath {
		cfg.MaxOpenConns = 1
		cfg.MaxIdleConns = 1
		cfg.ConnMaxLifetime = 0
	}

	return &SQLiteStore{
		path: cfg.Path,
		cfg:  cfg,
	}, nil
}

// Open creates, initializes and migrates the ledger at path.
func Open(ctx context.Context, path string) (*SQLiteStore, error) {
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create ledger directory: %w", err)
		}
	}

	store, err := NewSQLiteStore(Config{Path: path})
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

// Init initializes the database connection and enables WAL mode.
func (s *SQLiteStore) Init(ctx context.Context) error {
	dsn := s.path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	if s.path != MemoryPath {
		dsn += "&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(s.cfg.MaxOpenConns)
	db.SetMaxIdleConns(s.cfg.MaxIdleConns)
	db.SetConnMaxLifetime(s.cfg.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	s.db = db
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Migrate runs database migrations.
func (s *SQLiteStore) Migrate(_ context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	// Create migration source from embedded FS
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	// Create database driver
	driver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	// Create migration instance
	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	// Run migrations
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// CreateInstall creates a new install record. An empty ID is filled with a
// fresh UUID and zero timestamps with the current time.
func (s *SQLiteStore) CreateInstall(ctx context.Context, install *Install) error {
	if install.ID == "" {
		install.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if install.CreatedAt.IsZero() {
		install.CreatedAt = now
	}
	if install.UpdatedAt.IsZero() {
		install.UpdatedAt = now
	}
	if install.Status == "" {
		install.Status = InstallStatusPending
	}

	query := `
		INSERT INTO installs (
			id, package, version, provenance, status, install_path, modulefile_path,
			error, started_at, completed_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		install.ID,
		install.Package,
		install.Version,
		install.Provenance,
		install.Status,
		install.InstallPath,
		install.ModulefilePath,
		install.Error,
		install.StartedAt,
		install.CompletedAt,
		install.CreatedAt,
		install.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create install: %w", err)
	}

	return nil
}

const installColumns = `id, package, version, provenance, status, install_path, modulefile_path,
			error, started_at, completed_at, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanInstall(row scanner) (*Install, error) {
	install := &Install{}
	err := row.Scan(
		&install.ID,
		&install.Package,
		&install.Version,
		&install.Provenance,
		&install.Status,
		&install.InstallPath,
		&install.ModulefilePath,
		&install.Error,
		&install.StartedAt,
		&install.CompletedAt,
		&install.CreatedAt,
		&install.UpdatedAt,
	)
	return install, err
}

// GetInstall retrieves an install by ID
func (s *SQLiteStore) GetInstall(ctx context.Context, id string) (*Install, error) {
	query := `SELECT ` + installColumns + ` FROM installs WHERE id = ?`

	install, err := scanInstall(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("install %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get install: %w", err)
	}

	return install, nil
}

// UpdateInstallStatus updates the status of an install. The start time is
// set on the first transition to running and the completion time on every
// terminal status.
func (s *SQLiteStore) UpdateInstallStatus(ctx context.Context, id string, status InstallStatus, errMsg *string) error {
	query := `
		UPDATE installs
		SET status = ?, error = ?, updated_at = ?,
			started_at = CASE WHEN started_at IS NULL AND ? = 'running' THEN ? ELSE started_at END,
			completed_at = CASE WHEN ? THEN ? ELSE completed_at END
		WHERE id = ?
	`

	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx, query,
		status, errMsg, now,
		status, now,
		status.Terminal(), now,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to update install status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("install %s: %w", id, ErrNotFound)
	}

	return nil
}

// ListInstalls lists installs, newest first
func (s *SQLiteStore) ListInstalls(ctx context.Context, filter InstallFilter) ([]*Install, error) {
	var (
		where []string
		args  []any
	)
	if filter.Package != "" {
		where = append(where, "package = ?")
		args = append(args, filter.Package)
	}
	if filter.Version != "" {
		where = append(where, "version = ?")
		args = append(args, filter.Version)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}

	query := `SELECT ` + installColumns + ` FROM installs`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, rowid DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = -1
	}
	query += " LIMIT ? OFFSET ?"
	args = append(args, limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list installs: %w", err)
	}
	defer rows.Close()

	installs := []*Install{}
	for rows.Next() {
		install, err := scanInstall(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan install: %w", err)
		}
		installs = append(installs, install)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating installs: %w", err)
	}

	return installs, nil
}

// LatestInstall returns the most recent record for one package version.
func (s *SQLiteStore) LatestInstall(ctx context.Context, pkg, version string) (*Install, error) {
	installs, err := s.ListInstalls(ctx, InstallFilter{Package: pkg, Version: version, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(installs) == 0 {
		return nil, fmt.Errorf("install %s/%s: %w", pkg, version, ErrNotFound)
	}
	return installs[0], nil
}

// AppendEvent appends an event to the event log
func (s *SQLiteStore) AppendEvent(ctx context.Context, event *Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	query := `
		INSERT INTO events (install_id, level, message, timestamp)
		VALUES (?, ?, ?, ?)
	`

	result, err := s.db.ExecContext(ctx, query,
		event.InstallID,
		event.Level,
		event.Message,
		event.Timestamp,
	)

	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}

	// Get the auto-generated ID
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get event ID: %w", err)
	}

	event.ID = id
	return nil
}

// GetEvents returns the events of an install in insertion order
func (s *SQLiteStore) GetEvents(ctx context.Context, installID string, limit int) ([]*Event, error) {
	if limit <= 0 {
		limit = -1
	}

	query := `
		SELECT id, install_id, level, message, timestamp
		FROM events
		WHERE install_id = ?
		ORDER BY id ASC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, installID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}
	defer rows.Close()

	events := []*Event{}
	for rows.Next() {
		event := &Event{}
		err := rows.Scan(
			&event.ID,
			&event.InstallID,
			&event.Level,
			&event.Message,
			&event.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}

	return events, nil
}

// HealthCheck verifies the database connection is healthy
func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	return s.db.PingContext(ctx)
}
