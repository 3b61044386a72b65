// Package manifest identifies a scan run and carries the metadata recorded
// in run-manifest.json (spec.md §3, §6).
package manifest

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SourceKind identifies where the repository under scan came from.
type SourceKind string

const (
	SourceLocal SourceKind = "local"
	SourceGit   SourceKind = "git"
)

// RepoDescriptor identifies the repository under scan.
type RepoDescriptor struct {
	Source SourceKind `json:"source"`
	Path   string     `json:"path"`
	Remote string     `json:"remote,omitempty"`
	Commit string     `json:"commit,omitempty"`
}

// ProviderDescriptor records which LLM provider (if any) backed the run.
type ProviderDescriptor struct {
	Name       string `json:"name"`
	BaseURL    string `json:"base_url,omitempty"`
	Model      string `json:"model,omitempty"`
	LLMEnabled bool   `json:"llm_enabled"`
}

// Limits bounds what ingestion and analysis are allowed to send.
type Limits struct {
	MaxFilesSent   int `json:"max_files_sent"`
	MaxTotalChars  int `json:"max_total_chars"`
	SnippetChars   int `json:"snippet_chars"`
}

// DefaultLimits mirrors the conservative defaults spec.md names throughout
// §4 and §5.
func DefaultLimits() Limits {
	return Limits{
		MaxFilesSent:  40,
		MaxTotalChars: 250_000,
		SnippetChars:  2_000,
	}
}

// Manifest is the immutable-after-export identity record for one scan.
type Manifest struct {
	RunID           string              `json:"run_id"`
	Repo            RepoDescriptor      `json:"repo"`
	Provider        ProviderDescriptor  `json:"provider"`
	Limits          Limits              `json:"limits"`
	Started         time.Time           `json:"started"`
	Ended           *time.Time          `json:"ended,omitempty"`
	ProtocolVersion string              `json:"protocol_version"`
	SchemaVersion   string              `json:"schema_version"`

	exported bool
}

// runIDPattern mirrors the source's is_valid_run_id: a UTC timestamp stamp
// followed by an underscore and 8 hex characters. Dots are tolerated in the
// timestamp segment even though nothing in this implementation ever emits
// one — the source's validator accepts them defensively and this port
// preserves that tolerance rather than silently tightening the contract
// (spec.md §9 Open Questions).
var runIDPattern = regexp.MustCompile(`^[0-9]{4}-[0-9]{2}-[0-9]{2}T[0-9]{2}-[0-9]{2}-[0-9]{2}Z_[0-9a-f.]{8}$`)

// NewRunID mints a collision-resistant run id of the form
// YYYY-MM-DDTHH-MM-SSZ_<8hex>.
func NewRunID(now time.Time) string {
	stamp := now.UTC().Format("2006-01-02T15-04-05Z")
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	return stamp + "_" + suffix
}

// IsValidRunID reports whether s has the shape produced by NewRunID.
func IsValidRunID(s string) bool {
	return runIDPattern.MatchString(s)
}

// New constructs a Manifest at pipeline-construction time (spec.md §3:
// "Created at pipeline construction").
func New(runID string, repo RepoDescriptor, provider ProviderDescriptor, limits Limits, started time.Time) *Manifest {
	return &Manifest{
		RunID:           runID,
		Repo:            repo,
		Provider:        provider,
		Limits:          limits,
		Started:         started,
		ProtocolVersion: "3.1.0",
		SchemaVersion:   "3.1.0",
	}
}

// MarkExported stamps Ended and freezes the manifest; subsequent calls are
// no-ops so export can be retried idempotently without reordering timestamps.
func (m *Manifest) MarkExported(ended time.Time) {
	if m.exported {
		return
	}
	ts := ended.UTC()
	m.Ended = &ts
	m.exported = true
}

// Exported reports whether MarkExported has already run.
func (m *Manifest) Exported() bool { return m.exported }

// ArtifactDir returns the declared output directory for a run, per spec.md
// §6: "<output_root>/hqe_run_<run_id>/". Writing into this path is
// delegated to an external collaborator; the pipeline only publishes it.
func ArtifactDir(outputRoot, runID string) string {
	return fmt.Sprintf("%s/hqe_run_%s", strings.TrimRight(outputRoot, "/"), runID)
}

// Artifact file names within ArtifactDir (spec.md §6).
const (
	FileRunManifest  = "run-manifest.json"
	FileReportJSON   = "report.json"
	FileReportMD     = "report.md"
	FileSessionLog   = "session-log.json"
	FileRedactionLog = "redaction-log.json"
)
