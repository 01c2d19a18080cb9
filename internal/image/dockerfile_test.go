package image

import (
	"strings"
	"testing"
)

func testSpec() *Spec {
	return &Spec{
		Base:           "debian:bookworm-slim",
		Packages:       []string{"ca-certificates", "libssl3", "ffmpeg"},
		InstallDir:     "/usr/local/bin",
		ExecutableName: "voice",
		ArtifactPath:   "/tmp/build/voice",
		Tag:            "voice:latest",
	}
}

func TestDockerfileShape(t *testing.T) {
	rendered, err := Dockerfile(testSpec())
	if err != nil {
		t.Fatalf("Dockerfile failed: %v", err)
	}

	if !strings.HasPrefix(rendered, "FROM debian:bookworm-slim\n") {
		t.Errorf("missing base: %q", rendered)
	}
	for _, pkg := range []string{"ca-certificates", "libssl3", "ffmpeg"} {
		if !strings.Contains(rendered, pkg) {
			t.Errorf("missing package %q", pkg)
		}
	}
	if !strings.Contains(rendered, "update-ca-certificates") {
		t.Error("trust store index not refreshed")
	}
	if !strings.Contains(rendered, `ENTRYPOINT ["/usr/local/bin/voice"]`) {
		t.Errorf("wrong entrypoint: %q", rendered)
	}
}

func TestDockerfileCopiesExactlyTheArtifact(t *testing.T) {
	rendered, err := Dockerfile(testSpec())
	if err != nil {
		t.Fatal(err)
	}

	if got := strings.Count(rendered, "COPY "); got != 1 {
		t.Fatalf("expected exactly one COPY, got %d:\n%s", got, rendered)
	}
	if !strings.Contains(rendered, "COPY voice /usr/local/bin/voice\n") {
		t.Fatalf("COPY must move only the executable:\n%s", rendered)
	}
	// No toolchain, source, or intermediate artifacts may enter the image.
	for _, forbidden := range []string{"cargo", "rustc", "src/", "target/", "ADD "} {
		if strings.Contains(rendered, forbidden) {
			t.Errorf("rendered plan references %q:\n%s", forbidden, rendered)
		}
	}
}

func TestDockerfileAlpineUsesApk(t *testing.T) {
	spec := testSpec()
	spec.Base = "alpine:3.20"
	spec.Packages = []string{"ca-certificates", "libssl3", "ffmpeg"}

	rendered, err := Dockerfile(spec)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(rendered, "apk add --no-cache") {
		t.Errorf("alpine base should install via apk:\n%s", rendered)
	}
	if strings.Contains(rendered, "apt-get") {
		t.Errorf("alpine base must not use apt-get:\n%s", rendered)
	}
}

func TestSpecValidateRejectsIncomplete(t *testing.T) {
	spec := testSpec()
	spec.Packages = nil
	if err := spec.Validate(); err == nil {
		t.Fatal("expected validation error for empty package list")
	}

	spec = testSpec()
	spec.ArtifactPath = ""
	if _, err := Dockerfile(spec); err == nil {
		t.Fatal("expected error for missing artifact path")
	}
}

func TestInstallFailedRecognition(t *testing.T) {
	if !installFailed([]string{"E: Unable to locate package ffmpegg"}) {
		t.Error("apt diagnostic not recognized")
	}
	if !installFailed([]string{"ERROR: unable to select packages:", "  ffmpegg (no such package)"}) {
		t.Error("apk diagnostic not recognized")
	}
	if installFailed([]string{"Step 3/5 : COPY voice /usr/local/bin/voice"}) {
		t.Error("false positive on normal output")
	}
}
