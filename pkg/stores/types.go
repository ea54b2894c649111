package stores

import (
	"context"
	"time"
)

// InstallStatus represents the state of one install attempt
type InstallStatus string

const (
	InstallStatusPending   InstallStatus = "pending"
	InstallStatusRunning   InstallStatus = "running"
	InstallStatusInstalled InstallStatus = "installed"
	InstallStatusFailed    InstallStatus = "failed"
	InstallStatusSkipped   InstallStatus = "skipped"
	InstallStatusRemoved   InstallStatus = "removed"
)

// Terminal reports whether no further transition is expected.
func (s InstallStatus) Terminal() bool {
	switch s {
	case InstallStatusInstalled, InstallStatusFailed, InstallStatusSkipped, InstallStatusRemoved:
		return true
	}
	return false
}

// EventLevel represents the severity level of an event
type EventLevel string

const (
	EventLevelDebug   EventLevel = "debug"
	EventLevelInfo    EventLevel = "info"
	EventLevelWarning EventLevel = "warning"
	EventLevelError   EventLevel = "error"
)

// Install represents one install or removal of a package version
type Install struct {
	ID             string        `json:"id"`
	Package        string        `json:"package"`
	Version        string        `json:"version"`
	Provenance     string        `json:"provenance"`
	Status         InstallStatus `json:"status"`
	InstallPath    string        `json:"install_path"`
	ModulefilePath string        `json:"modulefile_path"`
	Error          *string       `json:"error,omitempty"`
	StartedAt      *time.Time    `json:"started_at,omitempty"`
	CompletedAt    *time.Time    `json:"completed_at,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// Event represents an append-only log line attached to an install
type Event struct {
	ID        int64      `json:"id"`
	InstallID string     `json:"install_id"`
	Level     EventLevel `json:"level"`
	Message   string     `json:"message"`
	Timestamp time.Time  `json:"timestamp"`
}

// InstallFilter narrows ListInstalls. Zero fields match everything.
type InstallFilter struct {
	Package string
	Version string
	Status  InstallStatus
	Limit   int
	Offset  int
}

// Store defines the interface for the ledger
type Store interface {
	// Lifecycle
	Init(ctx context.Context) error
	Close() error
	Migrate(ctx context.Context) error

	// Install operations
	CreateInstall(ctx context.Context, install *Install) error
	GetInstall(ctx context.Context, id string) (*Install, error)
	UpdateInstallStatus(ctx context.Context, id string, status InstallStatus, errMsg *string) error
	ListInstalls(ctx context.Context, filter InstallFilter) ([]*Install, error)
	LatestInstall(ctx context.Context, pkg, version string) (*Install, error)

	// Event operations
	AppendEvent(ctx context.Context, event *Event) error
	GetEvents(ctx context.Context, installID string, limit int) ([]*Event, error)

	// Utility
	HealthCheck(ctx context.Context) error
}
