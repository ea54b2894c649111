package engine

import (
	"context"
	"fmt"
	"path"
	"sort"

	"github.com/Justype/modules/pkg/catalog"
	"github.com/Justype/modules/pkg/scanner"
	"github.com/Justype/modules/pkg/stores"
	"github.com/Justype/modules/pkg/version"
)

// VersionStatus reports whether one version is installed.
type VersionStatus struct {
	Version   string
	Installed bool
}

// PackageStatus is the install overview of one catalog package.
type PackageStatus struct {
	Descriptor catalog.Descriptor

	// Versions lists every version of a scripted package, newest first.
	// Remote packages list their installed versions and the newest one.
	Versions []VersionStatus

	// Dependencies are the raw directives of the newest local script.
	Dependencies []scanner.Dependency
}

// Installed returns the installed versions, newest first.
func (p PackageStatus) Installed() []string {
	var out []string
	for _, v := range p.Versions {
		if v.Installed {
			out = append(out, v.Version)
		}
	}
	return out
}

// Newest returns the highest known version.
func (p PackageStatus) Newest() string {
	return version.Newest(p.Descriptor.Versions)
}

// Status reports the installed versions of every catalog package whose
// name matches the glob pattern. An empty pattern matches everything.
func (o *Orchestrator) Status(pattern string) ([]PackageStatus, error) {
	if pattern != "" {
		if _, err := path.Match(pattern, ""); err != nil {
			return nil, NewValidationError(fmt.Sprintf("invalid pattern %q", pattern), err)
		}
	}

	var out []PackageStatus
	for _, d := range o.catalog.Descriptors() {
		if pattern != "" {
			if ok, _ := path.Match(pattern, d.Name); !ok {
				continue
			}
		}
		out = append(out, o.packageStatus(d))
	}
	return out, nil
}

func (o *Orchestrator) packageStatus(d catalog.Descriptor) PackageStatus {
	st := PackageStatus{Descriptor: d}
	newest := version.Newest(d.Versions)

	for _, v := range version.Order(d.Versions, true) {
		installed := o.layout.Target(d, v).Installed()
		if d.Provenance.IsScripted() || installed || v == newest {
			st.Versions = append(st.Versions, VersionStatus{Version: v, Installed: installed})
		}
	}

	if d.Provenance.Kind() == catalog.KindLocal && newest != "" {
		directives, err := o.scripts.ReadDirectives(d.Name, newest)
		if err != nil {
			o.logger.Debug().Err(err).Str("package", d.Name).Msg("Failed to read directives")
		} else {
			st.Dependencies = directives.Dependencies
		}
	}
	return st
}

// Upgrade names a package whose newest version is not installed.
type Upgrade struct {
	Name      string
	Newest    string
	Installed []string
}

// Upgradable lists packages whose newest version is not installed. With
// onlyInstalled set, packages without any installed version are skipped.
// Remote packages are only reported when some version is installed.
func (o *Orchestrator) Upgradable(onlyInstalled bool) ([]Upgrade, error) {
	statuses, err := o.Status("")
	if err != nil {
		return nil, err
	}

	var out []Upgrade
	for _, st := range statuses {
		newest := st.Newest()
		if newest == "" {
			continue
		}
		installed := st.Installed()
		if contains(installed, newest) {
			continue
		}
		if len(installed) == 0 && (onlyInstalled || !st.Descriptor.Provenance.IsScripted()) {
			continue
		}
		out = append(out, Upgrade{Name: st.Descriptor.Name, Newest: newest, Installed: installed})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// InstallNewest installs the newest version of each named package. Names
// are ordered so that selected packages other selections depend on are
// installed first. An empty list selects every upgradable package.
func (o *Orchestrator) InstallNewest(ctx context.Context, names []string) (*BatchResult, error) {
	if len(names) == 0 {
		upgrades, err := o.Upgradable(false)
		if err != nil {
			return nil, err
		}
		for _, u := range upgrades {
			names = append(names, u.Name)
		}
	}
	sort.Strings(names)

	newest := make(map[string]string, len(names))
	edges := make(map[string][]string, len(names))
	for _, name := range names {
		d, ok := o.catalog.Get(name)
		if !ok {
			return nil, NewNotFoundError("package not found", nil).WithResource(name)
		}
		v := version.Newest(d.Versions)
		if v == "" {
			return nil, NewNotFoundError("no versions available", nil).WithResource(name)
		}
		newest[name] = v

		if d.Provenance.Kind() != catalog.KindLocal {
			continue
		}
		directives, err := o.scripts.ReadDirectives(name, v)
		if err != nil {
			return nil, fmt.Errorf("failed to read dependencies of %s/%s: %w", name, v, err)
		}
		for _, dep := range directives.Dependencies {
			edges[name] = append(edges[name], dep.Name)
		}
	}

	order, err := ResolveOrder(names, edges)
	if err != nil {
		return nil, err
	}

	result := newBatchResult()
	for _, name := range order {
		v, selected := newest[name]
		if !selected {
			continue
		}
		id := name + "/" + v
		if _, err := o.Install(ctx, name, v); err != nil {
			result.Failed[id] = err
			if IsInterrupted(err) {
				return result, err
			}
			continue
		}
		result.Succeeded = append(result.Succeeded, id)
	}
	return result, nil
}

// Discrepancy is a disagreement between the ledger and the disk.
type Discrepancy struct {
	ID           string
	LedgerStatus stores.InstallStatus
	OnDisk       bool
}

// String describes the discrepancy.
func (d Discrepancy) String() string {
	if d.OnDisk {
		return fmt.Sprintf("%s: module file present but last recorded status is %s", d.ID, d.LedgerStatus)
	}
	return fmt.Sprintf("%s: recorded as %s but module file is missing", d.ID, d.LedgerStatus)
}

// Reconcile compares the latest ledger record of every package version
// with the module files on disk.
func (o *Orchestrator) Reconcile(ctx context.Context) ([]Discrepancy, error) {
	if o.ledger == nil {
		return nil, fmt.Errorf("install ledger is disabled")
	}
	records, err := o.ledger.ListInstalls(ctx, stores.InstallFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list installs: %w", err)
	}

	seen := make(map[string]bool)
	var out []Discrepancy
	for _, rec := range records {
		id := rec.Package + "/" + rec.Version
		if seen[id] || !rec.Status.Terminal() {
			continue
		}
		seen[id] = true

		d := catalog.Descriptor{Name: rec.Package, Provenance: catalog.ParseProvenance(rec.Provenance)}
		onDisk := o.layout.Target(d, rec.Version).Installed()
		recorded := rec.Status == stores.InstallStatusInstalled || rec.Status == stores.InstallStatusSkipped
		if onDisk != recorded {
			out = append(out, Discrepancy{ID: id, LedgerStatus: rec.Status, OnDisk: onDisk})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
