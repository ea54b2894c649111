package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/Justype/modules/pkg/config"
	"github.com/Justype/modules/pkg/engine"
)

// newTestRoot creates an installation root with build scripts for foo (2.0,
// 1.0) and bar (1.2). foo/2.0 depends on bar/1.*.
func newTestRoot(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	scripts := map[string]string{
		"foo/2.0": "#!/bin/bash\n#WHATIS:Foo tool\n#DEPENDENCY:bar/1.*\n",
		"foo/1.0": "#!/bin/bash\n#WHATIS:Foo tool\n",
		"bar/1.2": "#!/bin/bash\n#WHATIS:Bar library\n",
	}
	for rel, content := range scripts {
		path := filepath.Join(root, "build-scripts", filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("Failed to create script dir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o755); err != nil {
			t.Fatalf("Failed to write script: %v", err)
		}
	}
	return root
}

// runCLI executes modman with args against root and returns stdout.
func runCLI(t *testing.T, root string, args ...string) (string, error) {
	t.Helper()
	t.Setenv(config.EnvRoot, "")
	t.Setenv(config.EnvLogLevel, "error")

	cmd := newRootCommand("test", "none", "unknown")
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--root", root}, args...))

	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

func TestResolveCommand(t *testing.T) {
	root := newTestRoot(t)

	tests := []struct {
		name     string
		spec     string
		want     string
		exitCode int
	}{
		{"latest", "foo", "foo/2.0\n", 0},
		{"exact", "foo/1.0", "foo/1.0\n", 0},
		{"prefix", "foo/1.*", "foo/1.0\n", 0},
		{"unknown version", "foo/9.9", "", 1},
		{"invalid version", "foo/.", "", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := runCLI(t, root, "resolve", tt.spec)
			if got := engine.ExitCode(err); got != tt.exitCode {
				t.Fatalf("Expected exit code %d, got %d (%v)", tt.exitCode, got, err)
			}
			if out != tt.want {
				t.Errorf("Expected stdout %q, got %q", tt.want, out)
			}
		})
	}
}

func TestResolveCommand_ErrorClasses(t *testing.T) {
	root := newTestRoot(t)

	_, err := runCLI(t, root, "resolve", "foo/9.9")
	if !engine.IsNotFound(err) {
		t.Errorf("Expected not found, got %v", err)
	}

	_, err = runCLI(t, root, "resolve", "foo/.")
	if !engine.IsValidation(err) {
		t.Errorf("Expected validation error, got %v", err)
	}
}

func TestDepsCommand(t *testing.T) {
	root := newTestRoot(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no dependencies", []string{"deps", "bar/1.2"}, ""},
		{"direct dependencies", []string{"deps", "foo/2.0"}, "bar/1.2\n"},
		{"install order", []string{"deps", "foo/2.0", "--order"}, "bar/1.2\nfoo/2.0\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := runCLI(t, root, tt.args...)
			if err != nil {
				t.Fatalf("Expected success, got %v", err)
			}
			if out != tt.want {
				t.Errorf("Expected stdout %q, got %q", tt.want, out)
			}
		})
	}
}
