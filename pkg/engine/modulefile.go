package engine

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

//go:embed templates/apps-template templates/apps-template.lua
var builtinTemplates embed.FS

// Template file names looked up under the build-script root.
const (
	TemplateName    = "apps-template"
	LuaTemplateName = "apps-template.lua"
)

const (
	defaultTclWhatis = "Loads $app_name version $app_version"
	defaultLuaWhatis = `"Loads " .. app_name .. " version " .. app_version`
	defaultHelp      = "No additional information available."
)

var (
	tclEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, `[`, `\[`, `]`, `\]`, `$`, `\$`)
	luaEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)
)

// ModulefileRenderer writes the Tcl and Lua module files of an installed
// package from the template pair.
type ModulefileRenderer struct {
	// templateDir overrides the built-in templates when it holds them.
	templateDir string
}

// NewModulefileRenderer creates a renderer reading overrides from dir.
func NewModulefileRenderer(dir string) *ModulefileRenderer {
	return &ModulefileRenderer{templateDir: dir}
}

func (r *ModulefileRenderer) template(name string) (string, error) {
	if r.templateDir != "" {
		data, err := os.ReadFile(filepath.Join(r.templateDir, name))
		if err == nil {
			return string(data), nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("failed to read module template %s: %w", name, err)
		}
	}
	data, err := builtinTemplates.ReadFile("templates/" + name)
	if err != nil {
		return "", fmt.Errorf("failed to read built-in module template %s: %w", name, err)
	}
	return string(data), nil
}

// Render writes both module files for t. With onlyMissing set, files that
// already exist are kept; build scripts may write their own.
func (r *ModulefileRenderer) Render(t *Target, onlyMissing bool) error {
	help := defaultHelp
	if t.Descriptor.Homepage != "" {
		help = "WEBSITE: " + t.Descriptor.Homepage
	}

	tclWhatis, luaWhatis := defaultTclWhatis, defaultLuaWhatis
	if desc := t.Descriptor.Description; desc != "" {
		tclWhatis = tclEscaper.Replace(desc)
		luaWhatis = `"` + luaEscaper.Replace(desc) + `"`
	}

	files := []struct {
		template string
		path     string
		whatis   string
		help     string
	}{
		{TemplateName, t.Modulefile, tclWhatis, tclEscaper.Replace(help)},
		{LuaTemplateName, t.LuaModulefile(), luaWhatis, help},
	}

	for _, f := range files {
		if onlyMissing {
			if _, err := os.Stat(f.path); err == nil {
				continue
			}
		}
		tmpl, err := r.template(f.template)
		if err != nil {
			return err
		}
		content := strings.NewReplacer(
			"${WHATIS}", f.whatis,
			"${HELP}", f.help,
			"${PREFIX}", t.InstallDir,
		).Replace(tmpl)
		if err := writeFileAtomic(f.path, []byte(content)); err != nil {
			return err
		}
	}
	return nil
}

// writeFileAtomic writes data to a temp file next to path and renames it.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to set mode of %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to rename %s: %w", path, err)
	}
	return nil
}
