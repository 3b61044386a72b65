package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hqescan/scanner/internal/config"
	"github.com/hqescan/scanner/internal/manifest"
)

// Smoke test: ensure run() writes a full artifact set in local-only mode.
func TestRun_LocalOnly_WritesArtifacts(t *testing.T) {
	repoDir := t.TempDir()
	outDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(repoDir, "go.mod"), []byte("module fixture\n"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	cfg := config.ScanConfig{
		Limits:      manifest.DefaultLimits(),
		LocalOnly:   true,
		TimeoutSecs: 30,
		RepoPath:    repoDir,
		OutputRoot:  outDir,
	}
	if err := run(cfg); err != nil {
		t.Fatalf("run error: %v", err)
	}

	entries, err := os.ReadDir(outDir)
	if err != nil || len(entries) == 0 {
		t.Fatalf("expected at least one run directory under %s, err=%v", outDir, err)
	}
}

// run() should reject a config that enables LLM analysis outside local-only
// mode without a profile name (spec.md §3's validation invariant).
func TestRun_RejectsLLMWithoutProfile(t *testing.T) {
	cfg := config.ScanConfig{
		LLMEnabled: true,
		LocalOnly:  false,
		RepoPath:   t.TempDir(),
	}
	if err := run(cfg); err == nil {
		t.Fatal("expected validation error for llm_enabled without a profile name")
	}
}
