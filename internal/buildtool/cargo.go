package buildtool

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"kiln/internal/manifest"
)

var commandContext = exec.CommandContext

// Option configures the cargo backend.
type Option func(*Cargo)

// WithBinary overrides the default cargo binary name.
func WithBinary(binary string) Option {
	return func(c *Cargo) {
		if binary != "" {
			c.binary = binary
		}
	}
}

// WithJobs caps the toolchain's internal parallelism. Zero lets the
// toolchain decide.
func WithJobs(jobs int) Option {
	return func(c *Cargo) {
		if jobs > 0 {
			c.jobs = jobs
		}
	}
}

// WithOffline forbids network access during dependency resolution.
func WithOffline(offline bool) Option {
	return func(c *Cargo) {
		c.offline = offline
	}
}

// WithLogger attaches a logger for streamed compiler output.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cargo) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Cargo wraps the cargo command-line toolchain.
type Cargo struct {
	binary  string
	jobs    int
	offline bool
	logger  *slog.Logger
}

// NewCargo constructs a cargo backend using defaults.
func NewCargo(opts ...Option) *Cargo {
	c := &Cargo{binary: "cargo"}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cargo) TargetDir(ws *manifest.Workspace) string {
	return filepath.Join(ws.Root, "target")
}

// BuildDeps compiles the stubbed workspace. Any failure here is fatal and
// tagged ErrDependencyBuild; the pipeline never retries with different
// assumptions.
func (c *Cargo) BuildDeps(ctx context.Context, ws *manifest.Workspace) error {
	output, err := c.run(ctx, ws)
	if err != nil {
		return fmt.Errorf("%w: workspace %s: %s", ErrDependencyBuild, ws.Root, tail(output))
	}
	return nil
}

// Build compiles the real workspace and returns the executable path. A
// failure is a first-party defect: a link failure when the diagnostics point
// at the linker, a compile failure otherwise.
func (c *Cargo) Build(ctx context.Context, ws *manifest.Workspace) (string, error) {
	output, err := c.run(ctx, ws)
	if err != nil {
		marker := ErrCompile
		if looksLikeLinkFailure(output) {
			marker = ErrLink
		}
		return "", fmt.Errorf("%w: crate %q: %s", marker, ws.ExecutableName(), tail(output))
	}
	return filepath.Join(c.TargetDir(ws), "release", ws.ExecutableName()), nil
}

func (c *Cargo) run(ctx context.Context, ws *manifest.Workspace) ([]string, error) {
	args := []string{"build", "--release", "--locked"}
	if c.jobs > 0 {
		args = append(args, "--jobs", strconv.Itoa(c.jobs))
	}
	if c.offline {
		args = append(args, "--offline")
	}

	cmd := commandContext(ctx, c.binary, args...) //nolint:gosec
	cmd.Dir = ws.Root

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	cmd.Stderr = cmd.Stdout
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", c.binary, err)
	}

	var lines []string
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		lines = append(lines, line)
		if c.logger != nil {
			c.logger.Debug("compiler output", "line", line)
		}
	}
	if err := scanner.Err(); err != nil {
		_ = cmd.Wait()
		return lines, fmt.Errorf("read compiler output: %w", err)
	}

	if err := cmd.Wait(); err != nil {
		return lines, err
	}
	return lines, nil
}

func looksLikeLinkFailure(output []string) bool {
	for _, line := range output {
		lower := strings.ToLower(line)
		if strings.Contains(lower, "linking with") && strings.Contains(lower, "error") {
			return true
		}
		if strings.Contains(lower, "linker") || strings.Contains(lower, "undefined symbol") {
			return true
		}
	}
	return false
}

// tail returns the last few output lines, enough context to act on without
// replaying the whole compile log.
func tail(output []string) string {
	const keep = 5
	if len(output) == 0 {
		return "no compiler output"
	}
	start := len(output) - keep
	if start < 0 {
		start = 0
	}
	return strings.Join(output[start:], " | ")
}

var _ Backend = (*Cargo)(nil)
