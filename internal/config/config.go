// Package config holds the scan configuration consumed by the pipeline
// driver, plus an optional on-disk loader for it.
package config

import (
	"fmt"
	"strings"

	"github.com/hqescan/scanner/internal/manifest"
)

// ScanConfig controls one run of the pipeline (spec.md §3).
type ScanConfig struct {
	LLMEnabled   bool
	ProfileName  string
	Limits       manifest.Limits
	LocalOnly    bool
	TimeoutSecs  int
	RepoPath     string
	OutputRoot   string
	// CacheDir, when non-empty, caches provider chat responses keyed by
	// model and prompt digest so re-scanning an unchanged repository under
	// the same profile skips the network round trip.
	CacheDir string
}

// Validate enforces the invariant from spec.md §3: llm_enabled ∧ ¬local_only
// requires a profile name; otherwise analysis is heuristic-only.
func (c ScanConfig) Validate() error {
	if c.LLMEnabled && !c.LocalOnly && strings.TrimSpace(c.ProfileName) == "" {
		return fmt.Errorf("config: llm_enabled without local_only requires a provider profile name")
	}
	if strings.TrimSpace(c.RepoPath) == "" {
		return fmt.Errorf("config: repo path is required")
	}
	return nil
}

// EffectiveLLM reports whether this run should attempt an LLM round-trip at
// all. It folds LocalOnly and the absence of a profile into a single check
// used by the pipeline driver's Phase B downgrade decision.
func (c ScanConfig) EffectiveLLM() bool {
	return c.LLMEnabled && !c.LocalOnly && strings.TrimSpace(c.ProfileName) != ""
}

// Default returns conservative defaults matching spec.md §5's memory bounds.
func Default(repoPath string) ScanConfig {
	return ScanConfig{
		Limits:      manifest.DefaultLimits(),
		TimeoutSecs: 60,
		RepoPath:    repoPath,
		OutputRoot:  ".",
	}
}
