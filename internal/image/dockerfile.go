package image

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// ErrPrerequisiteInstall marks a failure to install a native runtime package
// into the image.
var ErrPrerequisiteInstall = errors.New("runtime prerequisite install failed")

// Spec describes one runtime image to assemble.
type Spec struct {
	// Base is the minimal base platform, e.g. "debian:bookworm-slim".
	Base string
	// Packages are the native runtime prerequisites to install.
	Packages []string
	// InstallDir is where the executable lands inside the image.
	InstallDir string
	// ExecutableName is the binary crate's name.
	ExecutableName string
	// ArtifactPath is the host path of the compiled executable.
	ArtifactPath string
	// Tag names the built image.
	Tag string
}

// Validate checks the spec is complete enough to produce a runnable image.
// Completeness of the package list itself is a declarative contract: a
// missing runtime prerequisite only surfaces when the binary executes.
func (s *Spec) Validate() error {
	var missing []string
	if s.Base == "" {
		missing = append(missing, "base")
	}
	if len(s.Packages) == 0 {
		missing = append(missing, "packages")
	}
	if s.InstallDir == "" {
		missing = append(missing, "install dir")
	}
	if s.ExecutableName == "" {
		missing = append(missing, "executable name")
	}
	if s.ArtifactPath == "" {
		missing = append(missing, "artifact path")
	}
	if s.Tag == "" {
		missing = append(missing, "tag")
	}
	if len(missing) > 0 {
		return fmt.Errorf("incomplete image spec: missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// InstallPath returns the executable's path inside the image.
func (s *Spec) InstallPath() string {
	return path.Join(s.InstallDir, s.ExecutableName)
}

// Dockerfile renders the build instructions for the image. Each step is
// idempotent: base pull, package install with trust store refresh, a single
// artifact copy, and the default launch command with no arguments.
func Dockerfile(s *Spec) (string, error) {
	if err := s.Validate(); err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "FROM %s\n\n", s.Base)
	fmt.Fprintf(&b, "RUN %s\n\n", installCommand(s.Base, s.Packages))
	// Exactly one COPY: the compiled executable. Build tooling and source
	// never enter the image.
	fmt.Fprintf(&b, "COPY %s %s\n", s.ExecutableName, s.InstallPath())
	fmt.Fprintf(&b, "RUN chmod 0755 %s\n\n", s.InstallPath())
	fmt.Fprintf(&b, "ENTRYPOINT [%q]\n", s.InstallPath())
	return b.String(), nil
}

// installCommand installs the runtime prerequisites and refreshes the trust
// store index so certificate validation is consistent at runtime.
func installCommand(base string, packages []string) string {
	quoted := strings.Join(packages, " ")
	if strings.HasPrefix(base, "alpine") {
		return fmt.Sprintf("apk add --no-cache %s && update-ca-certificates", quoted)
	}
	return fmt.Sprintf(
		"apt-get update && apt-get install -y --no-install-recommends %s && update-ca-certificates && rm -rf /var/lib/apt/lists/*",
		quoted,
	)
}
