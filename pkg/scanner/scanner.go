// Package scanner discovers script-built packages under the build-script
// root and reads the directives embedded in their scripts.
//
// Layout:
//
//	<root>/<name>/<version>              executable build script
//	<root>/<name>/<assembly>/<release>   reference data build script
//
// The reserved template directory and entries named "template*" or "*_data"
// are not packages.
package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Justype/modules/pkg/catalog"
	"github.com/Justype/modules/pkg/version"
)

// DefaultTemplateDir is the directory holding script templates.
const DefaultTemplateDir = "0-template"

// Scanner reads a build-script tree.
type Scanner struct {
	root        string
	templateDir string
	logger      zerolog.Logger
}

// New creates a scanner for root. An empty templateDir uses DefaultTemplateDir.
func New(root, templateDir string, logger zerolog.Logger) *Scanner {
	if templateDir == "" {
		templateDir = DefaultTemplateDir
	}
	return &Scanner{
		root:        root,
		templateDir: templateDir,
		logger:      logger.With().Str("component", "scanner").Logger(),
	}
}

// Root returns the build-script root.
func (s *Scanner) Root() string {
	return s.root
}

// ScriptPath returns the path of the build script for name/version.
func (s *Scanner) ScriptPath(name, ver string) string {
	return filepath.Join(s.root, name, filepath.FromSlash(ver))
}

// Scan walks the top level of the build-script root and returns one
// descriptor per package, in directory order.
func (s *Scanner) Scan() ([]catalog.Descriptor, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("failed to read build-script root: %w", err)
	}

	var out []catalog.Descriptor
	for _, entry := range entries {
		name := entry.Name()
		if name == s.templateDir || strings.HasPrefix(name, ".") {
			continue
		}
		dir := filepath.Join(s.root, name)
		if !isDir(dir) {
			continue
		}

		d, ok, err := s.scanPackage(name, dir)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *Scanner) scanPackage(name, dir string) (catalog.Descriptor, bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return catalog.Descriptor{}, false, fmt.Errorf("failed to read %s: %w", dir, err)
	}

	var candidates []string
	for _, e := range entries {
		n := e.Name()
		if strings.HasPrefix(n, "template") || strings.HasSuffix(n, "_data") || strings.HasPrefix(n, ".") {
			continue
		}
		candidates = append(candidates, n)
	}
	if len(candidates) == 0 {
		return catalog.Descriptor{}, false, nil
	}
	candidates = version.Order(candidates, true)

	if isDir(filepath.Join(dir, candidates[0])) {
		return s.scanReference(name, dir, candidates)
	}

	s.logger.Debug().Str("package", name).Msg("Processing executable package")
	d := catalog.Descriptor{Name: name, Provenance: catalog.Local()}
	d.SetVersions(candidates)

	latest := filepath.Join(dir, candidates[0])
	directives, err := readDirectivesFile(latest)
	if err != nil {
		s.logger.Warn().Err(err).Str("script", latest).Msg("Failed to read build script directives")
		return d, true, nil
	}
	d.Description = directives.Description
	d.Homepage = directives.Homepage
	return d, true, nil
}

func (s *Scanner) scanReference(name, dir string, assemblies []string) (catalog.Descriptor, bool, error) {
	s.logger.Debug().Str("package", name).Msg("Processing reference data package")

	var versions []string
	for _, assembly := range assemblies {
		inner, err := os.ReadDir(filepath.Join(dir, assembly))
		if err != nil {
			// a plain file next to assembly directories
			continue
		}
		for _, e := range inner {
			if strings.HasPrefix(e.Name(), "template") || strings.HasPrefix(e.Name(), ".") {
				continue
			}
			versions = append(versions, assembly+"/"+e.Name())
		}
	}
	if len(versions) == 0 {
		s.logger.Warn().Str("package", name).Msg("No data versions found for reference package, skipping")
		return catalog.Descriptor{}, false, nil
	}

	d := catalog.Descriptor{
		Name:        name,
		Description: fmt.Sprintf("Assembly %s reference and index data", name),
		Provenance:  catalog.Reference(),
	}
	d.SetVersions(version.Order(versions, true))
	return d, true, nil
}

// ReadDirectives parses the build script for name/version. A missing script
// yields an error wrapping os.ErrNotExist.
func (s *Scanner) ReadDirectives(name, ver string) (*Directives, error) {
	return readDirectivesFile(s.ScriptPath(name, ver))
}

func readDirectivesFile(path string) (*Directives, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open build script: %w", err)
	}
	defer f.Close()

	d, err := ParseDirectives(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse build script %s: %w", path, err)
	}
	return d, nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
