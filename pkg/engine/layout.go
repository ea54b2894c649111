package engine

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Justype/modules/pkg/catalog"
	"github.com/Justype/modules/pkg/config"
)

// Layout holds the root directories installs are written to.
type Layout struct {
	AppsRoot        string
	RefRoot         string
	AppsModulefiles string
	RefModulefiles  string
}

// LayoutFromConfig extracts the install roots from cfg.
func LayoutFromConfig(cfg *config.Config) Layout {
	return Layout{
		AppsRoot:        cfg.Paths.Apps,
		RefRoot:         cfg.Paths.Ref,
		AppsModulefiles: cfg.Paths.AppsModulefiles,
		RefModulefiles:  cfg.Paths.RefModulefiles,
	}
}

// Roots returns the install root and the module file root for a provenance.
func (l Layout) Roots(p catalog.Provenance) (installRoot, moduleRoot string) {
	if p.Kind() == catalog.KindReference {
		return l.RefRoot, l.RefModulefiles
	}
	return l.AppsRoot, l.AppsModulefiles
}

// Target returns the paths for installing d at version.
func (l Layout) Target(d catalog.Descriptor, version string) *Target {
	installRoot, moduleRoot := l.Roots(d.Provenance)
	rel := filepath.Join(d.Name, filepath.FromSlash(version))
	return &Target{
		Descriptor:  d,
		Version:     version,
		InstallRoot: installRoot,
		ModuleRoot:  moduleRoot,
		InstallDir:  filepath.Join(installRoot, rel),
		Modulefile:  filepath.Join(moduleRoot, rel),
	}
}

// Target is a resolved package version and the paths it occupies.
type Target struct {
	Descriptor catalog.Descriptor
	Version    string

	InstallRoot string
	ModuleRoot  string

	// InstallDir is <installRoot>/<name>/<version>.
	InstallDir string

	// Modulefile is the primary (Tcl) module file. The Lua file sits next
	// to it with a ".lua" suffix.
	Modulefile string

	// DependencyOf names the package that requested this one.
	DependencyOf string
}

// Name returns the package name.
func (t *Target) Name() string {
	return t.Descriptor.Name
}

// ID returns "name/version".
func (t *Target) ID() string {
	return t.Descriptor.Name + "/" + t.Version
}

// LuaModulefile returns the path of the alternate module file.
func (t *Target) LuaModulefile() string {
	return t.Modulefile + ".lua"
}

// Installed reports whether the primary module file exists as a regular
// file.
func (t *Target) Installed() bool {
	info, err := os.Stat(t.Modulefile)
	return err == nil && info.Mode().IsRegular()
}

// Remove deletes the install directory and both module files, then prunes
// ancestors left empty. The roots themselves are never removed.
func (t *Target) Remove() error {
	var errs []error
	if err := os.RemoveAll(t.InstallDir); err != nil {
		errs = append(errs, fmt.Errorf("failed to remove %s: %w", t.InstallDir, err))
	}
	pruneEmpty(filepath.Dir(t.InstallDir), t.InstallRoot)

	for _, path := range []string{t.Modulefile, t.LuaModulefile()} {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, fmt.Errorf("failed to remove %s: %w", path, err))
		}
	}
	pruneEmpty(filepath.Dir(t.Modulefile), t.ModuleRoot)
	return errors.Join(errs...)
}

// pruneEmpty removes dir and its parents while they are empty, stopping
// below stop. Directories outside stop are left alone.
func pruneEmpty(dir, stop string) {
	dir = filepath.Clean(dir)
	stop = filepath.Clean(stop)
	for dir != stop && strings.HasPrefix(dir, stop+string(filepath.Separator)) {
		entries, err := os.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			return
		}
		if err := os.Remove(dir); err != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}

func scriptPath(buildScripts, name, version string) string {
	return filepath.Join(buildScripts, name, filepath.FromSlash(version))
}
