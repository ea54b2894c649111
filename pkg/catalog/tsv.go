package catalog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Column names written to the catalog header.
const (
	colName        = "package"
	colTags        = "tags"
	colDescription = "whatis"
	colHomepage    = "url"
	colProvenance  = "source"
	colVersions    = "versions"
)

var header = []string{colName, colTags, colDescription, colHomepage, colProvenance, colVersions}

// headerAliases maps the logical field names onto the written ones so that
// hand-written catalogs using either spelling load.
var headerAliases = map[string]string{
	"name":        colName,
	"description": colDescription,
	"homepage":    colHomepage,
	"provenance":  colProvenance,
}

// noVersions is written in the versions column when a lookup completed but
// found nothing. An empty column means the versions were never queried.
const noVersions = "-"

// Load reads a catalog file. A missing file yields an error wrapping
// os.ErrNotExist.
func Load(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	defer f.Close()

	cat, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	return cat, nil
}

// Read parses catalog rows from r.
func Read(r io.Reader) (*Catalog, error) {
	reader := csv.NewReader(r)
	reader.Comma = '\t'
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	cat := New()
	if len(rows) == 0 {
		return cat, nil
	}

	index := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		name = strings.ToLower(strings.TrimSpace(name))
		if alias, ok := headerAliases[name]; ok {
			name = alias
		}
		index[name] = i
	}
	if _, ok := index[colName]; !ok {
		return nil, fmt.Errorf("header has no %q column", colName)
	}

	field := func(row []string, col string) string {
		i, ok := index[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	for line, row := range rows[1:] {
		name := field(row, colName)
		if name == "" {
			continue
		}
		if cat.Has(name) {
			return nil, fmt.Errorf("line %d: duplicate package %q", line+2, name)
		}

		d := Descriptor{
			Name:        name,
			Tags:        splitList(field(row, colTags)),
			Description: field(row, colDescription),
			Homepage:    field(row, colHomepage),
			Provenance:  ParseProvenance(field(row, colProvenance)),
		}
		switch raw := field(row, colVersions); raw {
		case "":
		case noVersions:
			d.SetVersions(nil)
		default:
			d.SetVersions(splitList(raw))
		}

		if err := cat.Upsert(d); err != nil {
			return nil, fmt.Errorf("line %d: %w", line+2, err)
		}
	}

	cat.dirty = false
	return cat, nil
}

// Write serializes the catalog in catalog order.
func (c *Catalog) Write(w io.Writer) error {
	writer := csv.NewWriter(w)
	writer.Comma = '\t'

	if err := writer.Write(header); err != nil {
		return err
	}
	for _, d := range c.Descriptors() {
		versions := strings.Join(d.Versions, ",")
		if d.VersionsKnown && len(d.Versions) == 0 {
			versions = noVersions
		}
		row := []string{
			d.Name,
			strings.Join(d.Tags, ","),
			d.Description,
			d.Homepage,
			d.Provenance.String(),
			versions,
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// Save writes the catalog to a temporary sibling file and renames it over
// path, so readers see either the old or the new catalog.
func (c *Catalog) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create catalog directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary catalog: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := c.Write(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write catalog: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync catalog: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close catalog: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return fmt.Errorf("failed to set catalog permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to replace catalog: %w", err)
	}

	c.dirty = false
	return nil
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
