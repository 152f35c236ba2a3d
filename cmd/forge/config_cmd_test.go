package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/forgeloop/forge/internal/config"
)

func TestConfigInit_CreatesFile(t *testing.T) {
	dir := t.TempDir()

	out, err := executeCmd(t, "config", "init", "--dir", dir)
	if err != nil {
		t.Fatalf("config init failed: %v", err)
	}

	path := filepath.Join(dir, config.ConfigFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("config file not created: %v", err)
	}
	if string(data) != config.Template {
		t.Error("config file does not match the template")
	}
	if !strings.Contains(out, "Created "+path) {
		t.Errorf("unexpected output: %q", out)
	}
}

func TestConfigInit_RefusesToOverwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, config.ConfigFileName)
	if err := os.WriteFile(path, []byte("agent: claude\n"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := executeCmd(t, "config", "init", "--dir", dir)
	if err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected already exists error, got %v", err)
	}

	data, _ := os.ReadFile(path)
	if string(data) != "agent: claude\n" {
		t.Error("existing config file was modified")
	}
}

func TestConfigValidate_Template(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, config.ConfigFileName), []byte(config.Template), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := executeCmd(t, "config", "validate", "--dir", dir); err != nil {
		t.Fatalf("template should validate: %v", err)
	}
}

func TestConfigValidate_ReportsErrors(t *testing.T) {
	dir := t.TempDir()
	content := "max_fix_attempts: 50\ntarget_os: [plan9]\n"
	if err := os.WriteFile(filepath.Join(dir, config.ConfigFileName), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := executeCmd(t, "config", "validate", "--dir", dir)
	if err == nil || !strings.Contains(err.Error(), "configuration has") {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestConfigValidate_ExplicitPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	if err := os.WriteFile(path, []byte("agent: claude\nmodel: sonnet\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := executeCmd(t, "config", "validate", "--config", path); err != nil {
		t.Fatalf("config validate --config failed: %v", err)
	}
}

func TestConfigShow_ResolvesPrecedence(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, config.ConfigFileName), []byte("agent: claude\nlanguage: rust\n"), 0644); err != nil {
		t.Fatal(err)
	}

	out, err := executeCmd(t, "config", "show", "--dir", dir, "--language", "go")
	if err != nil {
		t.Fatalf("config show failed: %v", err)
	}

	if !strings.Contains(out, "agent: claude") {
		t.Errorf("expected agent from config file, got:\n%s", out)
	}
	if !strings.Contains(out, "language: go") {
		t.Errorf("expected --language to override the file, got:\n%s", out)
	}
}
