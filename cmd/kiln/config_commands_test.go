package main

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestCLIConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)
	target := filepath.Join(env.baseDir, "fresh", "config.toml")

	out, _, err := runCLI(t, env.configPath, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, "Wrote sample configuration") {
		t.Fatalf("unexpected init output: %q", out)
	}

	_, _, err = runCLI(t, env.configPath, "config", "init", "--path", target)
	if err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected overwrite refusal, got %v", err)
	}

	if _, _, err := runCLI(t, env.configPath, "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}

	out, _, err = runCLI(t, env.configPath, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	if !strings.Contains(out, "Configuration valid") {
		t.Fatalf("unexpected validate output: %q", out)
	}
}

func TestCLIConfigShow(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env.configPath, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if !strings.Contains(out, env.configPath) {
		t.Fatalf("expected config path header: %q", out)
	}
	if !strings.Contains(out, "binary_crate = 'voice'") && !strings.Contains(out, `binary_crate = "voice"`) {
		t.Fatalf("expected pipeline in rendered config: %q", out)
	}
}
