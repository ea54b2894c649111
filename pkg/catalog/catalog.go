package catalog

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"
)

// Catalog is the in-memory table of known packages keyed by name.
type Catalog struct {
	entries map[string]*Descriptor
	dirty   bool
}

// New creates an empty catalog.
func New() *Catalog {
	return &Catalog{entries: make(map[string]*Descriptor)}
}

// Open loads the catalog at path. When the file does not exist the catalog
// starts empty, is populated by scan and saved immediately.
func Open(path string, scan func(*Catalog) error) (*Catalog, error) {
	cat, err := Load(path)
	if err == nil {
		return cat, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	cat = New()
	if scan != nil {
		if err := scan(cat); err != nil {
			return nil, fmt.Errorf("failed to populate new catalog: %w", err)
		}
	}
	if err := cat.Save(path); err != nil {
		return nil, err
	}
	return cat, nil
}

// Len returns the number of entries.
func (c *Catalog) Len() int {
	return len(c.entries)
}

// Dirty reports whether the catalog changed since it was loaded or saved.
func (c *Catalog) Dirty() bool {
	return c.dirty
}

// Get returns a copy of the named entry.
func (c *Catalog) Get(name string) (Descriptor, bool) {
	d, ok := c.entries[name]
	if !ok {
		return Descriptor{}, false
	}
	return d.Clone(), true
}

// Has reports whether name is in the catalog.
func (c *Catalog) Has(name string) bool {
	_, ok := c.entries[name]
	return ok
}

// Upsert inserts or replaces the entry with the same name.
func (c *Catalog) Upsert(d Descriptor) error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("descriptor has empty name")
	}
	if d.Provenance.Kind() == KindRemote && !ValidChannel(d.Provenance.Channel()) {
		return fmt.Errorf("remote package %q has invalid channel %q", d.Name, d.Provenance.Channel())
	}
	clone := d.Clone()
	c.entries[d.Name] = &clone
	c.dirty = true
	return nil
}

// Delete removes the named entry and reports whether it existed.
func (c *Catalog) Delete(name string) bool {
	if _, ok := c.entries[name]; !ok {
		return false
	}
	delete(c.entries, name)
	c.dirty = true
	return true
}

// Names returns all package names in catalog order.
func (c *Catalog) Names() []string {
	descs := c.Descriptors()
	names := make([]string, len(descs))
	for i, d := range descs {
		names[i] = d.Name
	}
	return names
}

// Descriptors returns copies of all entries in catalog order: script-built
// packages first, then remote ones, each group sorted by lower-cased name.
func (c *Catalog) Descriptors() []Descriptor {
	out := make([]Descriptor, 0, len(c.entries))
	for _, d := range c.entries {
		out = append(out, d.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Provenance.IsScripted() != b.Provenance.IsScripted() {
			return a.Provenance.IsScripted()
		}
		la, lb := strings.ToLower(a.Name), strings.ToLower(b.Name)
		if la != lb {
			return la < lb
		}
		return a.Name < b.Name
	})
	return out
}

// Search returns entries whose name, tags or description contain term,
// ignoring case.
func (c *Catalog) Search(term string) []Descriptor {
	needle := strings.ToLower(term)
	var hits []Descriptor
	for _, d := range c.Descriptors() {
		if matches(d, needle) {
			hits = append(hits, d)
		}
	}
	return hits
}

func matches(d Descriptor, needle string) bool {
	if strings.Contains(strings.ToLower(d.Name), needle) ||
		strings.Contains(strings.ToLower(d.Description), needle) {
		return true
	}
	for _, tag := range d.Tags {
		if strings.Contains(strings.ToLower(tag), needle) {
			return true
		}
	}
	return false
}

// Suggest returns up to limit package names that fuzzily resemble name.
func (c *Catalog) Suggest(name string, limit int) []string {
	names := c.Names()
	lowered := make([]string, len(names))
	for i, n := range names {
		lowered[i] = strings.ToLower(n)
	}

	found := fuzzy.Find(strings.ToLower(name), lowered)
	out := make([]string, 0, limit)
	for _, m := range found {
		if len(out) == limit {
			break
		}
		out = append(out, names[m.Index])
	}
	return out
}

// Reconcile applies the result of a full local scan. Every scanned entry is
// upserted; script-built entries missing from the scan are deleted. Remote
// entries are never touched. Tags of an existing entry are kept when the
// scanned entry carries none. The names of deleted entries are returned.
func (c *Catalog) Reconcile(scanned []Descriptor) ([]string, error) {
	seen := make(map[string]struct{}, len(scanned))
	for _, d := range scanned {
		if existing, ok := c.entries[d.Name]; ok && len(d.Tags) == 0 {
			d.Tags = existing.Tags
		}
		if err := c.Upsert(d); err != nil {
			return nil, err
		}
		seen[d.Name] = struct{}{}
	}

	var removed []string
	for _, d := range c.Descriptors() {
		if !d.Provenance.IsScripted() {
			continue
		}
		if _, ok := seen[d.Name]; ok {
			continue
		}
		c.Delete(d.Name)
		removed = append(removed, d.Name)
	}
	return removed, nil
}
