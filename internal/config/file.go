package config

import (
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v3"

	"github.com/hqescan/scanner/internal/manifest"
)

// FileConfig is the on-disk configuration schema, loaded from a single YAML
// (or JSON, since YAML is a superset) file. Nested sections mirror
// ScanConfig's fields the way the teacher's FileConfig mirrors app.Config.
type FileConfig struct {
	Repo struct {
		Path string `yaml:"path" json:"path"`
	} `yaml:"repo" json:"repo"`

	Output struct {
		Root string `yaml:"root" json:"root"`
	} `yaml:"output" json:"output"`

	LLM struct {
		Enabled bool   `yaml:"enabled" json:"enabled"`
		Profile string `yaml:"profile" json:"profile"`
	} `yaml:"llm" json:"llm"`

	LocalOnly bool   `yaml:"localOnly" json:"localOnly"`
	TimeoutS  int    `yaml:"timeoutSeconds" json:"timeoutSeconds"`
	CacheDir  string `yaml:"cacheDir" json:"cacheDir"`

	Limits struct {
		MaxFilesSent  int `yaml:"maxFilesSent" json:"maxFilesSent"`
		MaxTotalChars int `yaml:"maxTotalChars" json:"maxTotalChars"`
		SnippetChars  int `yaml:"snippetChars" json:"snippetChars"`
	} `yaml:"limits" json:"limits"`
}

// LoadFile reads and parses a FileConfig from path.
func LoadFile(path string) (FileConfig, error) {
	var fc FileConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return fc, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fc, fmt.Errorf("parse config file: %w", err)
	}
	return fc, nil
}

// ToScanConfig maps the file schema onto ScanConfig, filling in defaults for
// any zero-valued limit so a minimal config file still produces sane bounds.
func (fc FileConfig) ToScanConfig() ScanConfig {
	defaults := manifest.DefaultLimits()
	limits := manifest.Limits{
		MaxFilesSent:  fc.Limits.MaxFilesSent,
		MaxTotalChars: fc.Limits.MaxTotalChars,
		SnippetChars:  fc.Limits.SnippetChars,
	}
	if limits.MaxFilesSent <= 0 {
		limits.MaxFilesSent = defaults.MaxFilesSent
	}
	if limits.MaxTotalChars <= 0 {
		limits.MaxTotalChars = defaults.MaxTotalChars
	}
	if limits.SnippetChars <= 0 {
		limits.SnippetChars = defaults.SnippetChars
	}
	timeout := fc.TimeoutS
	if timeout <= 0 {
		timeout = 60
	}
	return ScanConfig{
		LLMEnabled:  fc.LLM.Enabled,
		ProfileName: fc.LLM.Profile,
		Limits:      limits,
		LocalOnly:   fc.LocalOnly,
		TimeoutSecs: timeout,
		RepoPath:    fc.Repo.Path,
		OutputRoot:  fc.Output.Root,
		CacheDir:    fc.CacheDir,
	}
}
