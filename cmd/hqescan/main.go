// Command hqescan runs one scan of a local repository: repository
// ingestion, local heuristic analysis (optionally augmented by an
// OpenAI-compatible provider profile), report generation, and artifact
// export (spec.md §1, §4.1).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hqescan/scanner/internal/config"
	"github.com/hqescan/scanner/internal/manifest"
	"github.com/hqescan/scanner/internal/pipeline"
	"github.com/hqescan/scanner/internal/profilestore"
	"github.com/hqescan/scanner/internal/provider"
	"github.com/hqescan/scanner/internal/ratelimit"
	"github.com/hqescan/scanner/internal/secretstore"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	var (
		repoPath    string
		outputRoot  string
		configPath  string
		profileName string
		llmEnabled  bool
		localOnly   bool
		timeoutSecs int
		cacheDir    string
		verbose     bool
	)

	flag.StringVar(&repoPath, "repo", ".", "Path to the repository to scan")
	flag.StringVar(&outputRoot, "output", ".", "Directory under which hqe_run_<run_id>/ is created")
	flag.StringVar(&configPath, "config", "", "Optional YAML/JSON config file overriding the flags above")
	flag.StringVar(&profileName, "profile", os.Getenv("HQE_PROFILE"), "Provider profile name to use for LLM analysis")
	flag.BoolVar(&llmEnabled, "llm", false, "Enable LLM-augmented analysis")
	flag.BoolVar(&localOnly, "local-only", true, "Restrict analysis to local heuristics only")
	flag.IntVar(&timeoutSecs, "timeout", 60, "Per-request provider timeout in seconds")
	flag.StringVar(&cacheDir, "cache-dir", "", "Optional directory for caching provider responses across runs")
	flag.BoolVar(&verbose, "v", false, "Verbose logging")
	flag.Parse()

	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	cfg := config.ScanConfig{
		LLMEnabled:  llmEnabled,
		ProfileName: profileName,
		Limits:      manifest.DefaultLimits(),
		LocalOnly:   localOnly,
		TimeoutSecs: timeoutSecs,
		RepoPath:    repoPath,
		OutputRoot:  outputRoot,
		CacheDir:    cacheDir,
	}
	if configPath != "" {
		fileCfg, err := config.LoadFile(configPath)
		if err != nil {
			log.Error().Err(err).Msg("load config file")
			os.Exit(1)
		}
		cfg = fileCfg.ToScanConfig()
	}

	if err := run(cfg); err != nil {
		log.Error().Err(err).Msg("scan failed")
		os.Exit(1)
	}
}

func run(cfg config.ScanConfig) error {
	if err := cfg.Validate(); err != nil {
		return &pipeline.ScanError{Kind: pipeline.KindConfig, Op: "validate config", Err: err}
	}

	ctx := context.Background()
	started := time.Now()

	providerDesc := manifest.ProviderDescriptor{Name: "local", LLMEnabled: false}
	var providerClient *provider.Client

	if cfg.EffectiveLLM() {
		client, desc, err := buildProviderClient(cfg)
		if err != nil {
			log.Warn().Err(err).Msg("provider setup failed, falling back to local-only analysis")
		} else {
			providerClient = client
			providerDesc = desc
		}
	}

	runID := manifest.NewRunID(started)
	mf := manifest.New(
		runID,
		manifest.RepoDescriptor{Source: manifest.SourceLocal, Path: cfg.RepoPath},
		providerDesc,
		cfg.Limits,
		started,
	)

	driver := pipeline.New(cfg, mf, providerClient)
	result, err := driver.Run(ctx)
	if err != nil {
		return err
	}

	log.Info().
		Str("run_id", result.Manifest.RunID).
		Str("artifact_dir", result.ArtifactDir).
		Float64("health_score", result.Report.ExecutiveSummary.HealthScore).
		Msg("scan complete")

	return nil
}

// buildProviderClient loads the named profile, its secret, and wires a
// rate-limited provider.Client for Phase B's LLM augmentation.
func buildProviderClient(cfg config.ScanConfig) (*provider.Client, manifest.ProviderDescriptor, error) {
	manager := profilestore.NewManager(profilestore.NewFileStore(""), secretstore.NewKeyringStore())

	profile, apiKey, ok, err := manager.GetProfileWithKey(cfg.ProfileName)
	if err != nil {
		return nil, manifest.ProviderDescriptor{}, fmt.Errorf("load profile %q: %w", cfg.ProfileName, err)
	}
	if !ok {
		return nil, manifest.ProviderDescriptor{}, fmt.Errorf("unknown provider profile %q", cfg.ProfileName)
	}

	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if profile.TimeoutS > 0 {
		timeout = time.Duration(profile.TimeoutS) * time.Second
	}

	client, err := provider.New(provider.Config{
		BaseURL:      profile.BaseURL,
		APIKey:       apiKey,
		DefaultModel: profile.DefaultModel,
		Headers:      profile.Headers,
		Timeout:      timeout,
		Limiter:      ratelimit.New(ratelimit.DefaultConfig()),
	})
	if err != nil {
		return nil, manifest.ProviderDescriptor{}, fmt.Errorf("construct provider client: %w", err)
	}

	desc := manifest.ProviderDescriptor{
		Name:       profile.Name,
		BaseURL:    client.BaseURL(),
		Model:      profile.DefaultModel,
		LLMEnabled: true,
	}
	return client, desc, nil
}
