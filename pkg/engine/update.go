package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/Justype/modules/pkg/catalog"
	"github.com/Justype/modules/pkg/remote"
	"github.com/Justype/modules/pkg/telemetry"
)

// UpdateReport summarizes a catalog update.
type UpdateReport struct {
	// Scanned is the number of script-built packages found.
	Scanned int

	// Removed lists script-built packages deleted because their scripts
	// are gone.
	Removed []string

	// Refreshed lists remote packages whose metadata was fetched.
	Refreshed []string

	// Warnings lists remote packages whose refresh failed.
	Warnings map[string]error
}

// UpdateLocal rescans the build-script tree and reconciles the catalog.
func (o *Orchestrator) UpdateLocal(ctx context.Context) (report *UpdateReport, err error) {
	_, span := o.tel.Tracer.StartSpan(ctx, "catalog.update")
	defer func() { telemetry.EndSpan(span, err) }()

	scanned, err := o.scripts.Scan()
	if err != nil {
		return nil, fmt.Errorf("failed to scan build scripts: %w", err)
	}
	removed, err := o.catalog.Reconcile(scanned)
	if err != nil {
		return nil, fmt.Errorf("failed to reconcile catalog: %w", err)
	}
	for _, name := range removed {
		o.logger.Info().Str("package", name).Msg("Removed package without build scripts from catalog")
	}
	o.recordCatalogSize()

	return &UpdateReport{
		Scanned:  len(scanned),
		Removed:  removed,
		Warnings: make(map[string]error),
	}, nil
}

// UpdateAll rescans the build-script tree, then refreshes the versions of
// every remote package and the descriptions that are still empty. Remote
// failures are collected as warnings and never abort the update.
func (o *Orchestrator) UpdateAll(ctx context.Context) (*UpdateReport, error) {
	report, err := o.UpdateLocal(ctx)
	if err != nil {
		return nil, err
	}
	if o.fetcher == nil {
		return report, nil
	}

	for _, d := range o.catalog.Descriptors() {
		if d.Provenance.Kind() != catalog.KindRemote {
			continue
		}
		if ctx.Err() != nil {
			return report, NewInterruptedError("catalog update interrupted", ctx.Err())
		}
		if err := o.refresh(ctx, d); err != nil {
			o.logger.Warn().Err(err).Str("package", d.Name).Msg("Failed to refresh package")
			report.Warnings[d.Name] = err
			continue
		}
		report.Refreshed = append(report.Refreshed, d.Name)
	}
	o.recordCatalogSize()
	return report, nil
}

// refresh fetches the versions of a remote package and, when missing, its
// description.
func (o *Orchestrator) refresh(ctx context.Context, d catalog.Descriptor) error {
	o.logger.Info().Str("package", d.Name).Msg("Fetching versions")
	found, err := o.fetcher.Versions(ctx, d.Name)
	switch {
	case errors.Is(err, remote.ErrNotFound):
		d.SetVersions(nil)
	case err != nil:
		return NewNetworkError("failed to fetch versions", err).WithResource(d.Name)
	default:
		d.SetVersions(found.List)
	}
	if d.Description == "" {
		o.describe(ctx, &d)
	}
	return o.catalog.Upsert(d)
}

// Add looks up name on the remote channels and adds it to the catalog, or
// refreshes the entry when it is already a remote package. Existing tags are
// kept.
func (o *Orchestrator) Add(ctx context.Context, name string) (catalog.Descriptor, error) {
	if err := ValidateRequest(name, ""); err != nil {
		return catalog.Descriptor{}, err
	}
	existing, known := o.catalog.Get(name)
	if known && existing.Provenance.IsScripted() {
		return catalog.Descriptor{}, NewValidationError(
			fmt.Sprintf("%s is built by a local script; update the catalog instead", name), nil).
			WithResource(name)
	}
	if o.fetcher == nil {
		return catalog.Descriptor{}, NewNotFoundError("package not found", nil).WithResource(name)
	}

	d, err := o.fetchDescriptor(ctx, name)
	if err != nil {
		return catalog.Descriptor{}, err
	}
	if known {
		d.Tags = existing.Tags
		if d.Description == "" {
			d.Description = existing.Description
		}
		if d.Homepage == "" {
			d.Homepage = existing.Homepage
		}
	}
	if err := o.catalog.Upsert(d); err != nil {
		return catalog.Descriptor{}, err
	}
	o.recordCatalogSize()
	return d, nil
}

func (o *Orchestrator) recordCatalogSize() {
	counts := map[catalog.Kind]int{
		catalog.KindLocal:     0,
		catalog.KindRemote:    0,
		catalog.KindReference: 0,
	}
	for _, d := range o.catalog.Descriptors() {
		counts[d.Provenance.Kind()]++
	}
	for kind, n := range counts {
		o.tel.Metrics.SetCatalogPackages(kind.String(), n)
	}
}
