package engine

import (
	"context"

	"github.com/Justype/modules/pkg/policy"
	"github.com/Justype/modules/pkg/scanner"
	"github.com/Justype/modules/pkg/stores"
)

// Installer performs the provenance-specific install step for one target.
// It blocks until the external step terminates.
type Installer interface {
	Install(ctx context.Context, target *Target) error
}

// DirectiveReader reads the directives of a local build script.
// *scanner.Scanner implements it.
type DirectiveReader interface {
	ReadDirectives(name, version string) (*scanner.Directives, error)
}

// PolicyChecker decides whether a resolved target may be installed.
// *policy.Engine implements it.
type PolicyChecker interface {
	Evaluate(ctx context.Context, input *policy.Input) (*policy.Result, error)
}

// Ledger records install attempts. *stores.SQLiteStore implements it.
type Ledger interface {
	CreateInstall(ctx context.Context, install *stores.Install) error
	UpdateInstallStatus(ctx context.Context, id string, status stores.InstallStatus, errMsg *string) error
	AppendEvent(ctx context.Context, event *stores.Event) error
	ListInstalls(ctx context.Context, filter stores.InstallFilter) ([]*stores.Install, error)
}

// Confirmer asks the user to approve a destructive operation on items.
type Confirmer interface {
	Confirm(prompt string, items []string) (bool, error)
}

// ConfirmFunc adapts a function to the Confirmer interface.
type ConfirmFunc func(prompt string, items []string) (bool, error)

// Confirm calls f.
func (f ConfirmFunc) Confirm(prompt string, items []string) (bool, error) {
	return f(prompt, items)
}
