package engine

import (
	"context"
	"fmt"

	"github.com/Justype/modules/pkg/stores"
)

// Ledger writes never fail an operation: disk state is the source of truth
// and the ledger only serves diagnostics. Writes detach from cancellation so
// an interrupted install is still recorded.

func (o *Orchestrator) newRecord(t *Target) *stores.Install {
	return &stores.Install{
		Package:        t.Name(),
		Version:        t.Version,
		Provenance:     t.Descriptor.Provenance.String(),
		InstallPath:    t.InstallDir,
		ModulefilePath: t.Modulefile,
	}
}

// startRecord creates a running install record and returns its ID, or ""
// when there is no ledger or the write failed.
func (o *Orchestrator) startRecord(ctx context.Context, t *Target) string {
	if o.ledger == nil {
		return ""
	}
	rec := o.newRecord(t)
	if err := o.ledger.CreateInstall(context.WithoutCancel(ctx), rec); err != nil {
		o.logger.Warn().Err(err).Str("package", t.ID()).Msg("Failed to record install")
		return ""
	}
	o.updateRecord(ctx, rec.ID, stores.InstallStatusRunning, nil)
	msg := "install started"
	if t.DependencyOf != "" {
		msg = fmt.Sprintf("install started as dependency of %s", t.DependencyOf)
	}
	o.appendEvent(ctx, rec.ID, stores.EventLevelInfo, msg)
	return rec.ID
}

// finishRecord moves a started record to a terminal status.
func (o *Orchestrator) finishRecord(ctx context.Context, id string, status stores.InstallStatus, cause error) {
	if o.ledger == nil || id == "" {
		return
	}
	var errMsg *string
	if cause != nil {
		msg := cause.Error()
		errMsg = &msg
		if diag := DiagnosticOf(cause); diag != "" {
			o.appendEvent(ctx, id, stores.EventLevelError, diag)
		}
	}
	o.updateRecord(ctx, id, status, errMsg)
	o.appendEvent(ctx, id, stores.EventLevelInfo, "install "+string(status))
}

// recordOutcome writes a record that is terminal from the start, such as a
// short-circuited install or a removal.
func (o *Orchestrator) recordOutcome(ctx context.Context, t *Target, status stores.InstallStatus, message string) {
	if o.ledger == nil {
		return
	}
	rec := o.newRecord(t)
	if err := o.ledger.CreateInstall(context.WithoutCancel(ctx), rec); err != nil {
		o.logger.Warn().Err(err).Str("package", t.ID()).Msg("Failed to record install")
		return
	}
	o.updateRecord(ctx, rec.ID, status, nil)
	if message != "" {
		o.appendEvent(ctx, rec.ID, stores.EventLevelInfo, message)
	}
}

func (o *Orchestrator) updateRecord(ctx context.Context, id string, status stores.InstallStatus, errMsg *string) {
	ctx = context.WithoutCancel(ctx)
	if err := o.ledger.UpdateInstallStatus(ctx, id, status, errMsg); err != nil {
		o.logger.Warn().Err(err).Str("install_id", id).Msg("Failed to update install record")
	}
}

func (o *Orchestrator) appendEvent(ctx context.Context, id string, level stores.EventLevel, message string) {
	ctx = context.WithoutCancel(ctx)
	err := o.ledger.AppendEvent(ctx, &stores.Event{InstallID: id, Level: level, Message: message})
	if err != nil {
		o.logger.Warn().Err(err).Str("install_id", id).Msg("Failed to append install event")
	}
}

