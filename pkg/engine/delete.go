package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/Justype/modules/pkg/catalog"
	"github.com/Justype/modules/pkg/stores"
	"github.com/Justype/modules/pkg/telemetry"
)

// ErrAborted reports that the user declined a confirmation.
var ErrAborted = errors.New("aborted by user")

// BatchResult collects the outcome of a bulk operation.
type BatchResult struct {
	Succeeded []string
	Failed    map[string]error
}

func newBatchResult() *BatchResult {
	return &BatchResult{Failed: make(map[string]error)}
}

// Err joins the failures, or returns nil when everything succeeded.
func (r *BatchResult) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	errs := make([]error, 0, len(r.Failed))
	for _, id := range sortedKeys(r.Failed) {
		errs = append(errs, fmt.Errorf("%s: %w", id, r.Failed[id]))
	}
	return errors.Join(errs...)
}

// FailedIDs returns the failed identifiers in sorted order.
func (r *BatchResult) FailedIDs() []string {
	return sortedKeys(r.Failed)
}

// target returns the paths of name/version. Packages missing from the
// catalog are treated as reference data when the version has a slash.
func (o *Orchestrator) target(name, ver string) *Target {
	d, ok := o.catalog.Get(name)
	if !ok {
		d = catalog.Descriptor{Name: name, Provenance: catalog.Local()}
		if strings.Contains(ver, "/") {
			d.Provenance = catalog.Reference()
		}
	}
	return o.layout.Target(d, ver)
}

// Delete removes an installed package version: the install directory, both
// module files and any ancestor directories left empty.
func (o *Orchestrator) Delete(ctx context.Context, name, ver string) (err error) {
	ctx, span := o.tel.Tracer.StartPackageSpan(ctx, "delete", name, ver)
	defer func() { telemetry.EndSpan(span, err) }()

	if err := ValidateRequest(name, ver); err != nil {
		return err
	}
	if ver == "" {
		return NewValidationError("version is required", nil).WithResource(name)
	}
	if strings.HasSuffix(ver, "*") {
		return NewValidationError("version patterns cannot be deleted", nil).WithResource(name + "/" + ver)
	}

	t := o.target(name, ver)
	if !t.Installed() && !exists(t.InstallDir) && !exists(t.LuaModulefile()) {
		return NewNotFoundError("package is not installed", nil).WithResource(t.ID())
	}

	o.logger.Info().Str("package", t.ID()).Msg("Removing package")
	if err := t.Remove(); err != nil {
		return fmt.Errorf("failed to remove %s: %w", t.ID(), err)
	}
	o.recordOutcome(ctx, t, stores.InstallStatusRemoved, "removed")
	o.logger.Info().Msgf("Successfully removed %s", t.ID())
	return nil
}

// InstalledVersions lists the installed versions of name, newest first.
func (o *Orchestrator) InstalledVersions(name string) []string {
	d, ok := o.catalog.Get(name)
	if !ok {
		return nil
	}
	var out []string
	for _, v := range d.Versions {
		if o.layout.Target(d, v).Installed() {
			out = append(out, v)
		}
	}
	return out
}

// DeleteAll removes every installed version of every catalog package after
// confirm approves the list. It returns ErrAborted when confirm declines.
func (o *Orchestrator) DeleteAll(ctx context.Context, confirm Confirmer) (*BatchResult, error) {
	statuses, err := o.Status("")
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, st := range statuses {
		for _, v := range st.Installed() {
			ids = append(ids, st.Descriptor.Name+"/"+v)
		}
	}
	return o.DeleteMany(ctx, ids, confirm)
}

// DeleteMany removes the given "name/version" identifiers after confirm
// approves them. A nil confirm skips the confirmation.
func (o *Orchestrator) DeleteMany(ctx context.Context, ids []string, confirm Confirmer) (*BatchResult, error) {
	result := newBatchResult()
	if len(ids) == 0 {
		return result, nil
	}

	if confirm != nil {
		ok, err := confirm.Confirm("The following packages will be deleted:", ids)
		if err != nil {
			return nil, fmt.Errorf("failed to read confirmation: %w", err)
		}
		if !ok {
			return nil, ErrAborted
		}
	}

	for _, id := range ids {
		if ctx.Err() != nil {
			return result, NewInterruptedError("delete interrupted", ctx.Err())
		}
		name, ver := SplitSpec(id)
		if err := o.Delete(ctx, name, ver); err != nil {
			result.Failed[id] = err
			continue
		}
		result.Succeeded = append(result.Succeeded, id)
	}
	return result, nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
