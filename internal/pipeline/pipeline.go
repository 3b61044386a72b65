// Package pipeline drives the four-phase scan described in spec.md §4.1:
// ingestion (repository walk, redaction, local heuristics), analysis
// (local-only, or LLM-augmented when a provider profile is configured),
// report generation, and artifact export.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hqescan/scanner/internal/budget"
	"github.com/hqescan/scanner/internal/cache"
	"github.com/hqescan/scanner/internal/config"
	"github.com/hqescan/scanner/internal/heuristic"
	"github.com/hqescan/scanner/internal/manifest"
	"github.com/hqescan/scanner/internal/promptguard"
	"github.com/hqescan/scanner/internal/promptrunner"
	"github.com/hqescan/scanner/internal/provider"
	"github.com/hqescan/scanner/internal/redact"
	"github.com/hqescan/scanner/internal/report"
	"github.com/hqescan/scanner/internal/verify"
	"github.com/hqescan/scanner/internal/walker"
)

// Phase names the four pipeline stages (spec.md §4.1).
type Phase string

const (
	PhaseIngestion Phase = "ingestion"
	PhaseAnalysis  Phase = "analysis"
	PhaseReport    Phase = "report_generation"
	PhaseExport    Phase = "artifact_export"
)

// IngestionResult is Phase A's output: repository summary, redacted key-file
// contents, and whatever the heuristic detector found along the way.
type IngestionResult struct {
	Repo          report.RepoSummary
	Files         []report.IngestedFile
	LocalFindings []report.LocalFinding
	Redaction     redact.Summary
}

// AnalysisResult is Phase B's output, merging promoted local findings with
// an optional LLM pass.
type AnalysisResult struct {
	Findings  []report.Finding
	Todos     []report.TodoItem
	IsPartial bool
	Blockers  []report.Blocker
}

// Result is what Run returns.
type Result struct {
	Manifest    *manifest.Manifest
	Report      report.HQEReport
	ArtifactDir string
}

// Driver owns the pieces of state a run threads through all four phases: the
// validated config, the run's manifest, a fresh redaction engine, and an
// optional provider client for Phase B's LLM augmentation.
type Driver struct {
	config       config.ScanConfig
	manifest     *manifest.Manifest
	redaction    *redact.Engine
	provider     *provider.Client
	promptRunner *promptrunner.Runner
	promptGuard  *promptguard.Guard
	responses    *cache.ResponseCache
	phase        Phase
	now          func() time.Time
}

// New constructs a Driver. providerClient may be nil, in which case Phase B
// always runs in local-only mode regardless of cfg.LLMEnabled. When
// cfg.CacheDir is set, Phase B response caching is enabled.
func New(cfg config.ScanConfig, mf *manifest.Manifest, providerClient *provider.Client) *Driver {
	d := &Driver{
		config:       cfg,
		manifest:     mf,
		redaction:    redact.New(),
		provider:     providerClient,
		promptRunner: promptrunner.New(),
		promptGuard:  promptguard.New(),
		phase:        PhaseIngestion,
		now:          time.Now,
	}
	if strings.TrimSpace(cfg.CacheDir) != "" {
		d.responses = &cache.ResponseCache{Dir: cfg.CacheDir, StrictPerms: true}
	}
	return d
}

// CurrentPhase reports which phase the driver is in, for progress reporting.
func (d *Driver) CurrentPhase() Phase {
	return d.phase
}

// Run executes all four phases in order and returns the finished report
// together with the directory it was exported to.
func (d *Driver) Run(ctx context.Context) (*Result, error) {
	d.phase = PhaseIngestion
	ingestion, err := d.runIngestion()
	if err != nil {
		return nil, err
	}

	d.phase = PhaseAnalysis
	analysis, err := d.runAnalysis(ctx, ingestion)
	if err != nil {
		return nil, err
	}

	d.phase = PhaseReport
	rep := d.generateReport(ingestion, analysis)

	d.phase = PhaseExport
	dir, err := d.exportArtifacts(rep, ingestion)
	if err != nil {
		return nil, err
	}

	d.manifest.MarkExported(d.now())

	return &Result{Manifest: d.manifest, Report: rep, ArtifactDir: dir}, nil
}

// runIngestion walks the repository, runs the heuristic detector, and
// collects redacted content for a bounded set of key files.
func (d *Driver) runIngestion() (*IngestionResult, error) {
	scanner := walker.New(d.config.RepoPath)

	localFindings, err := runHeuristics(scanner)
	if err != nil {
		return nil, newScanError(KindIO, "heuristic scan", err)
	}

	scanned, err := scanner.Scan()
	if err != nil {
		return nil, newScanError(KindIO, "repository walk", err)
	}
	entrypoints := scanner.DetectEntrypoints()
	techStack := scanner.DetectTechStack()

	entrypointPaths := make([]string, 0, len(entrypoints))
	isEntrypoint := make(map[string]bool, len(entrypoints))
	for _, e := range entrypoints {
		entrypointPaths = append(entrypointPaths, e.FilePath)
		isEntrypoint[e.FilePath] = true
	}

	techNames := make([]string, 0, len(techStack.Detected))
	for _, t := range techStack.Detected {
		techNames = append(techNames, t.Name)
	}

	keyFiles := scanned.KeyFiles(d.config.Limits.MaxFilesSent)
	files := make([]report.IngestedFile, 0, len(keyFiles))
	for _, path := range keyFiles {
		content, err := scanner.ReadFile(path)
		if err != nil {
			return nil, newScanError(KindScan, "read key file "+path, err)
		}
		if content == nil {
			continue
		}
		redacted := d.redaction.Redact(string(content))
		files = append(files, report.IngestedFile{
			Path:       path,
			Content:    redacted,
			ByteSize:   len(content),
			Language:   walker.DetectLanguage(path),
			Entrypoint: isEntrypoint[path],
		})
	}

	repoName := filepath.Base(d.config.RepoPath)
	repoSummary := report.RepoSummary{
		Name:          repoName,
		Commit:        d.manifest.Repo.Commit,
		DirectoryTree: splitLines(scanned.TreeSummary(3)),
		TechStack:     techNames,
		Entrypoints:   entrypointPaths,
	}

	return &IngestionResult{
		Repo:          repoSummary,
		Files:         files,
		LocalFindings: localFindings,
		Redaction:     d.redaction.Summary(),
	}, nil
}

// runHeuristics is a thin indirection point so tests can stub it without
// touching the filesystem; production always delegates to heuristic.Run.
var runHeuristics = defaultRunHeuristics

func defaultRunHeuristics(scanner *walker.Scanner) ([]report.LocalFinding, error) {
	return heuristic.Run(scanner)
}

// runAnalysis promotes local findings to formal ones and, when a provider is
// configured and enabled, augments them with an LLM pass over the ingested
// evidence bundle. Any LLM failure falls back to the local-only result with
// an explanatory blocker rather than failing the whole run (spec.md §4.1:
// "analysis never fails the run outright").
func (d *Driver) runAnalysis(ctx context.Context, ingestion *IngestionResult) (*AnalysisResult, error) {
	localFindings, localTodos := promoteLocalFindings(ingestion.LocalFindings)

	if !d.config.EffectiveLLM() || d.provider == nil {
		return &AnalysisResult{
			Findings:  localFindings,
			Todos:     localTodos,
			IsPartial: true,
			Blockers: []report.Blocker{{
				Kind:        "llm_disabled",
				Description: "LLM analysis disabled - local mode only",
				HowToEnable: "Configure a provider profile and enable LLM analysis for AI-powered findings",
			}},
		}, nil
	}

	llmResult, err := d.runLLMAnalysis(ctx, ingestion)
	if err != nil {
		kind, ok := KindOf(err)
		if !ok {
			kind = KindProvider
		}
		if kind == KindIntegrity {
			// A system-prompt hash mismatch is fatal: the scan aborts
			// before any LLM call rather than degrading to a blocker.
			return nil, err
		}
		return &AnalysisResult{
			Findings:  localFindings,
			Todos:     localTodos,
			IsPartial: true,
			Blockers: []report.Blocker{{
				Kind:        string(kind),
				Description: fmt.Sprintf("LLM analysis failed: %v", err),
				HowToEnable: "Check the configured provider profile and retry",
			}},
		}, nil
	}

	findings := append(append([]report.Finding{}, localFindings...), llmResult.Findings...)
	todos := append(append([]report.TodoItem{}, localTodos...), llmResult.Todos...)

	blockers := llmResult.Blockers
	if unconfirmed := d.unconfirmedEvidenceBlocker(llmResult.Findings, llmResult.Todos, ingestion); unconfirmed != nil {
		blockers = append(blockers, *unconfirmed)
	}

	return &AnalysisResult{
		Findings:  findings,
		Todos:     todos,
		IsPartial: llmResult.IsPartial,
		Blockers:  blockers,
	}, nil
}

// unconfirmedEvidenceBlocker re-checks the LLM's own findings and todos
// against the files actually sent to it, returning a blocker (never an
// error) when the provider cited evidence that isn't present in the repo.
// Findings are never dropped on this basis: the blocker flags them for
// human review instead.
func (d *Driver) unconfirmedEvidenceBlocker(findings []report.Finding, todos []report.TodoItem, ingestion *IngestionResult) *report.Blocker {
	filesByPath := make(map[string]string, len(ingestion.Files))
	for _, f := range ingestion.Files {
		filesByPath[f.Path] = f.Content
	}
	result := verify.New().Verify(findings, todos, filesByPath)
	if len(result.Unconfirmed) == 0 {
		return nil
	}
	return &report.Blocker{
		Kind:        "unverified_evidence",
		Description: fmt.Sprintf("%s Unconfirmed IDs: %s.", result.Summary, strings.Join(result.Unconfirmed, ", ")),
		HowToEnable: "Manually review the cited file/line before acting on these findings",
	}
}

// runLLMAnalysis builds a prompt from the evidence bundle via promptrunner,
// sends it through the provider client, and coerces the response into an
// AnalysisResult.
func (d *Driver) runLLMAnalysis(ctx context.Context, ingestion *IngestionResult) (*provider.AnalysisResult, error) {
	contexts := make([]promptrunner.UntrustedContext, 0, len(ingestion.Files))
	for _, f := range ingestion.Files {
		contexts = append(contexts, promptrunner.UntrustedContext{
			Source:      f.Path,
			ContentType: promptrunner.ContentSourceCode,
			Content:     f.Content,
			SizeBytes:   len(f.Content),
		})
	}

	prompt, err := d.promptRunner.BuildPrompt(promptrunner.ExecutionRequest{
		Template: analysisTemplate,
		Inputs: map[string]string{
			"repo_name":  ingestion.Repo.Name,
			"tech_stack": joinOrNone(ingestion.Repo.TechStack),
		},
		UserMessage: "Analyze this repository and return the JSON report schema described above.",
		Context:     contexts,
	})
	if err != nil {
		return nil, newScanError(KindValidation, "build prompt", err)
	}

	if d.promptGuard.Hash != promptguard.ComputeHash() {
		return nil, newScanError(KindIntegrity, "baseline system prompt hash mismatch", fmt.Errorf("expected %s", d.promptGuard.Hash))
	}

	cacheKey := cache.KeyFrom(d.provider.DefaultModel(), promptguard.BaselineSystemPrompt+"\n\n"+prompt)
	if d.responses != nil {
		if raw, ok, _ := d.responses.Get(ctx, cacheKey); ok {
			var cached provider.AnalysisResult
			if err := json.Unmarshal(raw, &cached); err == nil {
				return &cached, nil
			}
		}
	}

	resp, err := d.provider.Chat(ctx, provider.ChatRequest{
		Messages: []provider.ChatMessage{
			{Role: "system", Content: promptguard.BaselineSystemPrompt},
			{Role: "user", Content: prompt},
		},
		JSONResponse:    true,
		EstimatedTokens: budget.EstimatePromptTokens(promptguard.BaselineSystemPrompt, prompt, nil),
	})
	if err != nil {
		return nil, newScanError(KindProvider, "chat request", err)
	}

	result, err := provider.CoerceAnalysisResult(resp.Content)
	if err != nil {
		return nil, newScanError(KindProvider, "coerce response", err)
	}
	if d.responses != nil {
		if b, err := json.Marshal(result); err == nil {
			_ = d.responses.Save(ctx, cacheKey, b)
		}
	}
	return result, nil
}

var analysisTemplate = promptrunner.Template{
	ID:   "repo-analysis",
	Text: "Analyze repository {{repo_name}} (tech stack: {{tech_stack}}) for security, code quality, and maintainability issues. Respond with a single JSON object matching the findings/todos/blockers/is_partial schema.",
	RequiredInputs: []promptrunner.InputSpec{
		{Name: "repo_name", Type: promptrunner.InputString, Required: true},
		{Name: "tech_stack", Type: promptrunner.InputString, Required: false},
	},
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "unknown"
	}
	out := items[0]
	for _, s := range items[1:] {
		out += ", " + s
	}
	return out
}

// promoteLocalFindings converts heuristic LocalFindings into the formal
// Finding/TodoItem shape, assigning stable ids via an IDAllocator and
// classifying each by its informal finding type (spec.md §4.1 Phase B's
// "local findings are promoted with a generic recommendation").
func promoteLocalFindings(locals []report.LocalFinding) ([]report.Finding, []report.TodoItem) {
	ids := report.NewIDAllocator()
	findings := make([]report.Finding, 0, len(locals))
	todos := make([]report.TodoItem, 0, len(locals))

	for _, local := range locals {
		category := categorizeFindingType(local.FindingType)
		prefix := report.SeverityToPrefix(category, local.FindingType)
		id := ids.Next(prefix)

		line := 1
		if local.Line != nil {
			line = *local.Line
		}
		snippet := "Detected via local heuristics"
		if local.Snippet != nil {
			snippet = *local.Snippet
		}
		evidence := report.NewFileLineEvidence(report.FileLineEvidence{
			File:    local.FilePath,
			Line:    line,
			Snippet: snippet,
		})

		recommendation := "Review and remediate"
		if local.Recommendation != nil {
			recommendation = *local.Recommendation
		}

		findings = append(findings, report.Finding{
			ID:             id,
			Severity:       local.Severity,
			Risk:           report.RiskMedium,
			Category:       category,
			Title:          local.Description,
			Evidence:       evidence,
			Impact:         "Potential security or maintainability risk",
			RootCause:      "Detected by local heuristic scan",
			Recommendation: recommendation,
			Verification:   "Re-run the scan to confirm the finding no longer appears",
		})

		todos = append(todos, report.TodoItem{
			ID:           id,
			Severity:     local.Severity,
			Risk:         report.RiskMedium,
			Category:     category,
			Title:        local.Description,
			Evidence:     evidence,
			FixApproach:  recommendation,
			Verification: "Re-run the scan to confirm the finding no longer appears",
		})
	}

	return findings, todos
}

func categorizeFindingType(findingType string) report.Category {
	switch findingType {
	case "TODO_MARKER", "DEBUG_CODE", "MISSING_README", "MISSING_LICENSE", "MISSING_GITIGNORE":
		return report.CategoryCodeQuality
	default:
		return report.CategorySecurity
	}
}

// generateReport assembles the HQEReport from ingestion and analysis
// results (spec.md §4.1 Phase C).
func (d *Driver) generateReport(ingestion *IngestionResult, analysis *AnalysisResult) report.HQEReport {
	rep := report.NewHQEReport(d.manifest.RunID)
	rep.ExecutiveSummary = report.BuildExecutiveSummary(analysis.Findings, blockersIfPartial(analysis))
	rep.ProjectMap = report.ProjectMap{
		Name:          ingestion.Repo.Name,
		DirectoryTree: ingestion.Repo.DirectoryTree,
		TechStack:     ingestion.Repo.TechStack,
		Entrypoints:   ingestion.Repo.Entrypoints,
	}
	rep.DeepScan = report.DeepScanResult{Categories: report.OrderedCategoryFindings(analysis.Findings)}
	rep.MasterTodoList = analysis.Todos
	rep.Plan = report.BuildImplementationPlan(analysis.Todos)

	completed := []string{"Ingestion", "Local Analysis"}
	var inProgress, next []string
	if analysis.IsPartial {
		inProgress = []string{"Waiting for LLM analysis"}
		next = []string{"Enable LLM provider for full analysis"}
	}
	discovered := make([]string, 0, len(analysis.Findings))
	for _, f := range analysis.Findings {
		discovered = append(discovered, f.ID)
	}
	rep.SessionLog = report.SessionLog{
		Completed:  completed,
		InProgress: inProgress,
		Discovered: discovered,
		Next:       next,
	}

	return rep
}

func blockersIfPartial(analysis *AnalysisResult) []report.Blocker {
	if !analysis.IsPartial {
		return nil
	}
	return analysis.Blockers
}

// exportArtifacts writes report.json, report.md, run-manifest.json, and
// redaction-log.json to the run's artifact directory (spec.md §6).
func (d *Driver) exportArtifacts(rep report.HQEReport, ingestion *IngestionResult) (string, error) {
	dir := manifest.ArtifactDir(d.config.OutputRoot, d.manifest.RunID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", newScanError(KindIO, "create artifact dir", err)
	}

	if err := writeJSON(filepath.Join(dir, manifest.FileReportJSON), rep); err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(dir, manifest.FileReportMD), []byte(report.RenderMarkdown(rep)), 0o644); err != nil {
		return "", newScanError(KindIO, "write "+manifest.FileReportMD, err)
	}
	if err := writeJSON(filepath.Join(dir, manifest.FileRunManifest), d.manifest); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(dir, manifest.FileRedactionLog), ingestion.Redaction); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(dir, manifest.FileSessionLog), rep.SessionLog); err != nil {
		return "", err
	}

	return dir, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return newScanError(KindIO, "encode "+path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return newScanError(KindIO, "write "+path, err)
	}
	return nil
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	lines = append(lines, s[start:])
	return lines
}
