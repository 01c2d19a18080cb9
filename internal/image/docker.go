package image

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"kiln/internal/fileutil"
)

var commandContext = exec.CommandContext

// Assembler produces a runtime image from a spec.
type Assembler interface {
	Assemble(ctx context.Context, spec *Spec) error
}

// Option configures the docker assembler.
type Option func(*DockerCLI)

// WithBinary overrides the default docker binary name.
func WithBinary(binary string) Option {
	return func(d *DockerCLI) {
		if binary != "" {
			d.binary = binary
		}
	}
}

// WithLogger attaches a logger for streamed build output.
func WithLogger(logger *slog.Logger) Option {
	return func(d *DockerCLI) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// DockerCLI assembles images by invoking the docker command line.
type DockerCLI struct {
	binary string
	logger *slog.Logger
}

// NewDockerCLI constructs a docker assembler using defaults.
func NewDockerCLI(opts ...Option) *DockerCLI {
	d := &DockerCLI{binary: "docker"}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Assemble builds the image: it stages a build context holding only the
// rendered Dockerfile and the one artifact, then runs docker build. The
// build context is removed afterwards.
func (d *DockerCLI) Assemble(ctx context.Context, spec *Spec) error {
	dockerfile, err := Dockerfile(spec)
	if err != nil {
		return err
	}

	contextDir, err := os.MkdirTemp("", "kiln-image-")
	if err != nil {
		return fmt.Errorf("create build context: %w", err)
	}
	defer os.RemoveAll(contextDir)

	if err := os.WriteFile(filepath.Join(contextDir, "Dockerfile"), []byte(dockerfile), 0o644); err != nil {
		return fmt.Errorf("write dockerfile: %w", err)
	}
	if err := fileutil.CopyFileMode(spec.ArtifactPath, filepath.Join(contextDir, spec.ExecutableName), 0o755); err != nil {
		return fmt.Errorf("stage artifact: %w", err)
	}

	args := []string{"build", "--tag", spec.Tag, contextDir}
	cmd := commandContext(ctx, d.binary, args...) //nolint:gosec

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	cmd.Stderr = cmd.Stdout
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", d.binary, err)
	}

	var lines []string
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		lines = append(lines, line)
		if d.logger != nil {
			d.logger.Debug("image build output", "line", line)
		}
	}
	if err := scanner.Err(); err != nil {
		_ = cmd.Wait()
		return fmt.Errorf("read image build output: %w", err)
	}

	if err := cmd.Wait(); err != nil {
		if installFailed(lines) {
			return fmt.Errorf("%w: image %s: %s", ErrPrerequisiteInstall, spec.Tag, lastLine(lines))
		}
		return fmt.Errorf("assemble image %s: %w: %s", spec.Tag, err, lastLine(lines))
	}
	return nil
}

// installFailed recognizes package-manager diagnostics in the build output.
func installFailed(output []string) bool {
	for _, line := range output {
		lower := strings.ToLower(line)
		if strings.Contains(lower, "unable to locate package") ||
			strings.Contains(lower, "no such package") ||
			strings.Contains(lower, "unable to select packages") {
			return true
		}
	}
	return false
}

func lastLine(output []string) string {
	if len(output) == 0 {
		return "no build output"
	}
	return output[len(output)-1]
}

var _ Assembler = (*DockerCLI)(nil)
