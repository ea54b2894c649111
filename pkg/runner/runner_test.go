package runner

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestExecRunner_CaptureStdout(t *testing.T) {
	requireShell(t)
	r := NewExecRunner(zerolog.Nop())

	res, err := r.Run(context.Background(), &Command{
		Name:          "sh",
		Args:          []string{"-c", "echo hello; echo oops >&2"},
		CaptureStdout: true,
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !res.Success() {
		t.Fatalf("Expected success, got exit %d", res.ExitCode)
	}
	if strings.TrimSpace(res.Stdout) != "hello" {
		t.Errorf("Expected stdout hello, got %q", res.Stdout)
	}
	if strings.TrimSpace(res.StderrTail) != "oops" {
		t.Errorf("Expected stderr tail oops, got %q", res.StderrTail)
	}
}

func TestExecRunner_NonzeroExit(t *testing.T) {
	requireShell(t)
	r := NewExecRunner(zerolog.Nop())

	var stream bytes.Buffer
	res, err := r.Run(context.Background(), &Command{
		Name:   "sh",
		Args:   []string{"-c", "echo building; exit 3"},
		Stream: &stream,
	})
	if err != nil {
		t.Fatalf("Expected no error for nonzero exit, got %v", err)
	}
	if res.ExitCode != 3 {
		t.Errorf("Expected exit code 3, got %d", res.ExitCode)
	}
	if !strings.Contains(stream.String(), "building") {
		t.Errorf("Expected streamed output, got %q", stream.String())
	}
}

func TestExecRunner_EnvAndDir(t *testing.T) {
	requireShell(t)
	dir := t.TempDir()
	r := NewExecRunner(zerolog.Nop())

	res, err := r.Run(context.Background(), &Command{
		Name:          "sh",
		Args:          []string{"-c", "echo $MODMAN_TEST_VALUE; pwd"},
		Dir:           dir,
		Env:           map[string]string{"MODMAN_TEST_VALUE": "42"},
		CaptureStdout: true,
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(res.Stdout), "\n")
	if len(lines) != 2 || lines[0] != "42" {
		t.Fatalf("Unexpected output %q", res.Stdout)
	}
	want, _ := filepath.EvalSymlinks(dir)
	got, _ := filepath.EvalSymlinks(lines[1])
	if got != want {
		t.Errorf("Expected working directory %s, got %s", want, got)
	}
}

func TestExecRunner_MissingProgram(t *testing.T) {
	r := NewExecRunner(zerolog.Nop())

	_, err := r.Run(context.Background(), &Command{Name: "definitely-not-a-real-program-xyz"})
	if err == nil {
		t.Error("Expected error for missing program")
	}
}

func TestAvailable(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "tool")
	if err := os.WriteFile(script, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	plain := filepath.Join(dir, "data")
	if err := os.WriteFile(plain, []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	if !Available(script) {
		t.Error("Expected executable file to be available")
	}
	if Available(plain) {
		t.Error("Expected non-executable file to be unavailable")
	}
	if Available(filepath.Join(dir, "missing")) {
		t.Error("Expected missing file to be unavailable")
	}
}

func TestTailBuffer(t *testing.T) {
	tb := newTailBuffer(5)
	tb.Write([]byte("abc"))
	tb.Write([]byte("defgh"))

	if tb.String() != "defgh" {
		t.Errorf("Expected defgh, got %q", tb.String())
	}
}
