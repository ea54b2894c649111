// Package runner executes external programs: build scripts and the remote
// package manager.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// DefaultTailSize is how much trailing stderr output is kept for diagnostics.
const DefaultTailSize = 4096

// Command describes one process invocation.
type Command struct {
	// Name is the program to run, resolved through PATH when it has no slash.
	Name string

	Args []string

	// Dir is the working directory. Empty means the current directory.
	Dir string

	// Env is added on top of the current process environment.
	Env map[string]string

	// CaptureStdout collects stdout into Result.Stdout instead of streaming it.
	CaptureStdout bool

	// Stream receives the live output that is not captured. Nil discards it.
	Stream io.Writer
}

// String renders the command line for logs.
func (c *Command) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// Result is the outcome of a process that started.
type Result struct {
	ExitCode int
	Stdout   string

	// StderrTail holds the last bytes the process wrote to stderr.
	StderrTail string

	Duration time.Duration
}

// Success reports whether the process exited with status zero.
func (r *Result) Success() bool {
	return r.ExitCode == 0
}

// Runner runs external commands. Run returns an error only when the process
// could not be started or waited for; a nonzero exit is reported in Result.
type Runner interface {
	Run(ctx context.Context, cmd *Command) (*Result, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	logger   zerolog.Logger
	tailSize int
}

// NewExecRunner creates a runner logging through logger.
func NewExecRunner(logger zerolog.Logger) *ExecRunner {
	return &ExecRunner{
		logger:   logger.With().Str("component", "runner").Logger(),
		tailSize: DefaultTailSize,
	}
}

// Run executes cmd and blocks until it exits. Cancelling ctx kills the process.
func (r *ExecRunner) Run(ctx context.Context, c *Command) (*Result, error) {
	if c.Name == "" {
		return nil, fmt.Errorf("command is required")
	}

	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	if c.Dir != "" {
		cmd.Dir = c.Dir
	}
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), formatEnv(c.Env)...)
	}

	stream := c.Stream
	if stream == nil {
		stream = io.Discard
	}

	var stdout bytes.Buffer
	if c.CaptureStdout {
		cmd.Stdout = &stdout
	} else {
		cmd.Stdout = stream
	}
	tail := newTailBuffer(r.tailSize)
	cmd.Stderr = io.MultiWriter(stream, tail)

	r.logger.Debug().Str("command", c.String()).Str("dir", c.Dir).Msg("Running command")

	start := time.Now()
	err := cmd.Run()
	result := &Result{
		Stdout:     stdout.String(),
		StderrTail: tail.String(),
		Duration:   time.Since(start),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("failed to execute %s: %w", c.Name, err)
		}
		result.ExitCode = exitErr.ExitCode()
	}

	r.logger.Debug().
		Str("command", c.Name).
		Int("exit_code", result.ExitCode).
		Dur("duration", result.Duration).
		Msg("Command finished")

	return result, nil
}

// Available reports whether name can be executed.
func Available(name string) bool {
	if strings.ContainsRune(name, os.PathSeparator) {
		info, err := os.Stat(name)
		return err == nil && !info.IsDir() && info.Mode()&0o111 != 0
	}
	_, err := exec.LookPath(name)
	return err == nil
}

func formatEnv(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, fmt.Sprintf("%s=%s", k, env[k]))
	}
	return out
}

// tailBuffer keeps the last size bytes written to it.
type tailBuffer struct {
	size int
	buf  []byte
}

func newTailBuffer(size int) *tailBuffer {
	return &tailBuffer{size: size}
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.size; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	return string(t.buf)
}
