package main

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/forgeloop/forge/internal/buildplan"
	"github.com/forgeloop/forge/internal/domain"
)

func TestExitCode(t *testing.T) {
	if err := exitCode(domain.ExitSuccess); err != nil {
		t.Errorf("exitCode(success) = %v, want nil", err)
	}

	tests := []struct {
		code domain.ExitCode
		msg  string
	}{
		{domain.ExitBuildFailed, "build still failing"},
		{domain.ExitError, "run failed with error"},
		{domain.ExitInterrupted, "run was interrupted"},
		{domain.ExitCode(7), "exit code 7"},
	}
	for _, tt := range tests {
		err := exitCode(tt.code)
		var exitErr exitCodeError
		if !errors.As(err, &exitErr) || exitErr.code != tt.code {
			t.Errorf("exitCode(%d) = %v", tt.code, err)
			continue
		}
		if err.Error() != tt.msg {
			t.Errorf("exitCode(%d).Error() = %q, want %q", tt.code, err.Error(), tt.msg)
		}
	}
}

func TestReadDescription(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "task.md")
	if err := os.WriteFile(file, []byte("  build a todo app\n"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		args    []string
		file    string
		want    string
		wantErr string
	}{
		{"args joined", []string{"build", "a", "calculator"}, "", "build a calculator", ""},
		{"from file", nil, file, "build a todo app", ""},
		{"both", []string{"x"}, file, "", "not both"},
		{"none", nil, "", "", "task description is required"},
		{"blank args", []string{"  "}, "", "", "task description is required"},
		{"missing file", nil, filepath.Join(dir, "missing.md"), "", "failed to read prompt file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readDescription(tt.args, tt.file)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("readDescription() error = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("readDescription() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPlanTools(t *testing.T) {
	plan := buildplan.Plan{Commands: []buildplan.Command{
		{Args: []string{"dotnet", "restore"}},
		{Args: []string{"dotnet", "build"}},
		{},
		{Args: []string{"wine", "dotnet.exe"}},
	}}

	got := planTools(plan)
	if strings.Join(got, ",") != "dotnet,wine" {
		t.Errorf("planTools() = %v, want [dotnet wine]", got)
	}
}

func TestSortedKeys(t *testing.T) {
	got := sortedKeys(map[string]string{"b": "2", "a": "1", "c": "3"})
	if strings.Join(got, ",") != "a,b,c" {
		t.Errorf("sortedKeys() = %v", got)
	}
	if len(sortedKeys(nil)) != 0 {
		t.Error("expected no keys for nil map")
	}
}

func TestTargetOptionsMarkHost(t *testing.T) {
	targets := buildplan.TargetOSNames
	options := targetOptions(targets)
	if len(options) != len(targets) {
		t.Fatalf("expected %d options, got %d", len(targets), len(options))
	}

	idx := hostIndex(targets)
	if targets[idx] == runtime.GOOS && options[idx].Detail != "host" {
		t.Errorf("host option should be marked, got %+v", options[idx])
	}
}

func TestLanguageOptionsDescribePlans(t *testing.T) {
	options := languageOptions([]string{"go", "rust"})
	if options[0].Label != "go" || !strings.HasPrefix(options[0].Detail, "Go: go build") {
		t.Errorf("unexpected option: %+v", options[0])
	}
	if !strings.HasPrefix(options[1].Detail, "Rust: cargo build") {
		t.Errorf("unexpected option: %+v", options[1])
	}
}
