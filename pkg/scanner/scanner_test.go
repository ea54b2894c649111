package scanner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Justype/modules/pkg/catalog"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o755); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
}

func buildTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	writeFile(t, filepath.Join(root, "0-template", "template.sh"), "#WHATIS:template\n")
	writeFile(t, filepath.Join(root, ".git", "HEAD"), "ref\n")
	writeFile(t, filepath.Join(root, "README"), "docs\n")

	writeFile(t, filepath.Join(root, "foo", "2.0"), "#!/bin/bash\n#WHATIS: Foo tool \n#URL:https://foo.example\n#DEPENDENCY:bar/1.*\n")
	writeFile(t, filepath.Join(root, "foo", "1.0"), "#!/bin/bash\n#WHATIS:Old foo\n")
	writeFile(t, filepath.Join(root, "foo", "template.sh"), "")
	writeFile(t, filepath.Join(root, "foo", "foo_data", "x"), "")

	writeFile(t, filepath.Join(root, "bar", "1.2"), "#!/bin/bash\n")
	writeFile(t, filepath.Join(root, "bar", "1.10"), "#!/bin/bash\n")

	writeFile(t, filepath.Join(root, "grch38", "gencode", "v44"), "#!/bin/bash\n")
	writeFile(t, filepath.Join(root, "grch38", "gencode", "v43"), "#!/bin/bash\n")
	writeFile(t, filepath.Join(root, "grch38", "gencode", "template"), "")
	writeFile(t, filepath.Join(root, "grch38", "ensembl", "110"), "#!/bin/bash\n")

	if err := os.MkdirAll(filepath.Join(root, "empty"), 0o755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(root, "noversions", "ensembl"), 0o755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	return root
}

func TestScanner_Scan(t *testing.T) {
	root := buildTree(t)
	s := New(root, "", zerolog.Nop())

	descs, err := s.Scan()
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	var names []string
	byName := make(map[string]catalog.Descriptor)
	for _, d := range descs {
		names = append(names, d.Name)
		byName[d.Name] = d
	}
	if !reflect.DeepEqual(names, []string{"bar", "foo", "grch38"}) {
		t.Fatalf("Expected [bar foo grch38], got %v", names)
	}

	foo := byName["foo"]
	if foo.Provenance.Kind() != catalog.KindLocal {
		t.Errorf("Expected foo to be local, got %v", foo.Provenance.Kind())
	}
	if !reflect.DeepEqual(foo.Versions, []string{"2.0", "1.0"}) {
		t.Errorf("Expected foo versions [2.0 1.0], got %v", foo.Versions)
	}
	if foo.Description != "Foo tool" || foo.Homepage != "https://foo.example" {
		t.Errorf("Expected directives from the newest script, got %q %q", foo.Description, foo.Homepage)
	}

	bar := byName["bar"]
	if !reflect.DeepEqual(bar.Versions, []string{"1.10", "1.2"}) {
		t.Errorf("Expected bar versions [1.10 1.2], got %v", bar.Versions)
	}

	ref := byName["grch38"]
	if ref.Provenance.Kind() != catalog.KindReference {
		t.Errorf("Expected grch38 to be reference data, got %v", ref.Provenance.Kind())
	}
	wantRef := []string{"gencode/v44", "gencode/v43", "ensembl/110"}
	if !reflect.DeepEqual(ref.Versions, wantRef) {
		t.Errorf("Expected %v, got %v", wantRef, ref.Versions)
	}
	if ref.Description != "Assembly grch38 reference and index data" || ref.Homepage != "" {
		t.Errorf("Unexpected reference metadata: %q %q", ref.Description, ref.Homepage)
	}
}

func TestScanner_ScanMissingRoot(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "missing"), "", zerolog.Nop())
	if _, err := s.Scan(); err == nil {
		t.Error("Expected error for missing root")
	}
}

func TestScanner_ReadDirectives(t *testing.T) {
	root := buildTree(t)
	s := New(root, "", zerolog.Nop())

	d, err := s.ReadDirectives("foo", "2.0")
	if err != nil {
		t.Fatalf("ReadDirectives failed: %v", err)
	}
	want := []Dependency{{Name: "bar", Token: "1.*"}}
	if !reflect.DeepEqual(d.Dependencies, want) {
		t.Errorf("Expected %v, got %v", want, d.Dependencies)
	}

	ref, err := s.ReadDirectives("grch38", "gencode/v44")
	if err != nil {
		t.Fatalf("ReadDirectives for reference data failed: %v", err)
	}
	if len(ref.Dependencies) != 0 {
		t.Errorf("Expected no dependencies, got %v", ref.Dependencies)
	}

	_, err = s.ReadDirectives("foo", "9.9")
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected not-exist error, got %v", err)
	}
}

func TestParseDirectives(t *testing.T) {
	script := strings.Join([]string{
		"#!/bin/bash",
		"#WHATIS:First description",
		"#WHATIS:Second description",
		"#URL: https://example.org ",
		"#DEPENDENCY:samtools",
		"#DEPENDENCY: grch38/gencode/v44 ",
		"#DEPENDENCY:",
		"  #DEPENDENCY:ignored/1.0",
		"echo done",
	}, "\n")

	d, err := ParseDirectives(strings.NewReader(script))
	if err != nil {
		t.Fatalf("ParseDirectives failed: %v", err)
	}
	if d.Description != "First description" {
		t.Errorf("Expected first description, got %q", d.Description)
	}
	if d.Homepage != "https://example.org" {
		t.Errorf("Expected trimmed homepage, got %q", d.Homepage)
	}

	want := []Dependency{
		{Name: "samtools"},
		{Name: "grch38", Token: "gencode/v44"},
	}
	if !reflect.DeepEqual(d.Dependencies, want) {
		t.Errorf("Expected %v, got %v", want, d.Dependencies)
	}
	if d.Dependencies[1].String() != "grch38/gencode/v44" || d.Dependencies[0].String() != "samtools" {
		t.Errorf("Unexpected dependency rendering: %v", d.Dependencies)
	}
}

func TestScanner_Watch(t *testing.T) {
	root := buildTree(t)
	s := New(root, "", zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan []catalog.Descriptor, 1)
	done := make(chan error, 1)
	go func() {
		done <- s.Watch(ctx, 50*time.Millisecond, func(descs []catalog.Descriptor) error {
			select {
			case changes <- descs:
			default:
			}
			return nil
		})
	}()

	deadline := time.After(5 * time.Second)
	for i := 0; ; i++ {
		writeFile(t, filepath.Join(root, fmt.Sprintf("baz%d", i), "1.0"), "#!/bin/bash\n")

		select {
		case descs := <-changes:
			found := false
			for _, d := range descs {
				if strings.HasPrefix(d.Name, "baz") {
					found = true
				}
			}
			if !found {
				t.Fatalf("Expected rescan to include baz")
			}
			cancel()
			if err := <-done; err != nil {
				t.Errorf("Watch returned error: %v", err)
			}
			return
		case <-time.After(200 * time.Millisecond):
		case <-deadline:
			t.Fatal("Timed out waiting for rescan")
		}
	}
}
