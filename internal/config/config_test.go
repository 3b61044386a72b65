package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestValidateRequiresProfileForRemoteLLM(t *testing.T) {
	c := ScanConfig{LLMEnabled: true, LocalOnly: false, RepoPath: "/repo"}
	if err := c.Validate(); err == nil {
		t.Fatal("expected error when llm_enabled without local_only and no profile")
	}
	c.ProfileName = "default"
	if err := c.Validate(); err != nil {
		t.Fatalf("unexpected error once profile is set: %v", err)
	}
}

func TestValidateAllowsLocalOnlyWithoutProfile(t *testing.T) {
	c := ScanConfig{LLMEnabled: true, LocalOnly: true, RepoPath: "/repo"}
	if err := c.Validate(); err != nil {
		t.Fatalf("local_only should not require a profile: %v", err)
	}
}

func TestEffectiveLLM(t *testing.T) {
	cases := []struct {
		name string
		c    ScanConfig
		want bool
	}{
		{"disabled", ScanConfig{LLMEnabled: false}, false},
		{"local only", ScanConfig{LLMEnabled: true, LocalOnly: true}, false},
		{"no profile", ScanConfig{LLMEnabled: true}, false},
		{"fully configured", ScanConfig{LLMEnabled: true, ProfileName: "p"}, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.c.EffectiveLLM(); got != c.want {
				t.Fatalf("EffectiveLLM() = %v, want %v", got, c.want)
			}
		})
	}
}

func TestLoadFileAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scan.yaml")
	contents := "repo:\n  path: /repo\nllm:\n  enabled: true\n  profile: prod\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	fc, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	sc := fc.ToScanConfig()
	if sc.RepoPath != "/repo" || sc.ProfileName != "prod" || !sc.LLMEnabled {
		t.Fatalf("unexpected scan config: %+v", sc)
	}
	if sc.Limits.MaxFilesSent == 0 || sc.Limits.MaxTotalChars == 0 || sc.Limits.SnippetChars == 0 {
		t.Fatalf("expected default limits to be filled in, got %+v", sc.Limits)
	}
	if sc.TimeoutSecs != 60 {
		t.Fatalf("TimeoutSecs = %d, want default 60", sc.TimeoutSecs)
	}
}
