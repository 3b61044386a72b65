// Package report defines the data model for scan findings, todos, evidence
// and the aggregated HQE report emitted at the end of a run.
package report

import "fmt"

// Severity orders findings from most to least urgent.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// severityRank gives a stable sort order: lower rank sorts first.
var severityRank = map[Severity]int{
	SeverityCritical: 0,
	SeverityHigh:      1,
	SeverityMedium:    2,
	SeverityLow:       3,
	SeverityInfo:      4,
}

// Rank returns the sort position of the severity, unknown values sort last.
func (s Severity) Rank() int {
	if r, ok := severityRank[s]; ok {
		return r
	}
	return len(severityRank)
}

// Risk is the coarse risk rating carried by formal Finding/TodoItem records.
type Risk string

const (
	RiskLow    Risk = "low"
	RiskMedium Risk = "medium"
	RiskHigh   Risk = "high"
)

// Category partitions findings for the deep-scan report. Order here is the
// canonical report ordering required by spec.md §5: security, code_quality,
// frontend, backend, testing.
type Category string

const (
	CategorySecurity    Category = "security"
	CategoryCodeQuality Category = "code_quality"
	CategoryFrontend    Category = "frontend"
	CategoryBackend     Category = "backend"
	CategoryTesting     Category = "testing"
)

// CategoryOrder is the fixed presentation order for §5's ordering guarantee.
var CategoryOrder = []Category{
	CategorySecurity,
	CategoryCodeQuality,
	CategoryFrontend,
	CategoryBackend,
	CategoryTesting,
}

// IDPrefix enumerates the id families assigned to Finding/TodoItem records.
type IDPrefix string

const (
	PrefixBoot IDPrefix = "BOOT"
	PrefixSec  IDPrefix = "SEC"
	PrefixBug  IDPrefix = "BUG"
	PrefixPerf IDPrefix = "PERF"
	PrefixUX   IDPrefix = "UX"
	PrefixDX   IDPrefix = "DX"
	PrefixDoc  IDPrefix = "DOC"
	PrefixDebt IDPrefix = "DEBT"
	PrefixDeps IDPrefix = "DEPS"
)

// FormatID zero-pads counter to three digits, e.g. FormatID(PrefixSec, 7) == "SEC-007".
func FormatID(prefix IDPrefix, counter int) string {
	return fmt.Sprintf("%s-%03d", prefix, counter)
}

// IngestedFile is produced during Phase A. Content is always the redacted
// form; original bytes are never retained (spec.md §3).
type IngestedFile struct {
	Path        string `json:"path"`
	Content     string `json:"content"`
	ByteSize    int    `json:"byte_size"`
	Language    string `json:"language"`
	Entrypoint  bool   `json:"entrypoint"`
}

// LocalFinding is produced only by the heuristic detector (§4.3). Snippets
// for secret-bearing lines must already be masked by the time this is built.
type LocalFinding struct {
	FindingType    string   `json:"finding_type"`
	Description    string   `json:"description"`
	FilePath       string   `json:"file_path"`
	Severity       Severity `json:"severity"`
	Line           *int     `json:"line,omitempty"`
	Snippet        *string  `json:"snippet,omitempty"`
	Recommendation *string  `json:"recommendation,omitempty"`
}

// Finding is a formal diagnostic promoted during Phase C, or returned
// directly by the LLM analyzer in Phase B. Every Finding must carry Evidence.
type Finding struct {
	ID             string   `json:"id"`
	Severity       Severity `json:"severity"`
	Risk           Risk     `json:"risk"`
	Category       Category `json:"category"`
	Title          string   `json:"title"`
	Evidence       Evidence `json:"evidence"`
	Impact         string   `json:"impact,omitempty"`
	RootCause      string   `json:"root_cause,omitempty"`
	Recommendation string   `json:"recommendation,omitempty"`
	Verification   string   `json:"verification,omitempty"`
	BlockedBy      []string `json:"blocked_by,omitempty"`
}

// TodoItem mirrors Finding's identification scheme but represents
// actionable backlog work rather than a diagnosed defect.
type TodoItem struct {
	ID           string   `json:"id"`
	Severity     Severity `json:"severity"`
	Risk         Risk     `json:"risk"`
	Category     Category `json:"category"`
	Title        string   `json:"title"`
	Evidence     Evidence `json:"evidence"`
	FixApproach  string   `json:"fix_approach,omitempty"`
	Verification string   `json:"verification,omitempty"`
	BlockedBy    []string `json:"blocked_by,omitempty"`
}

// Blocker records a reason a phase could not complete fully.
type Blocker struct {
	Kind        string `json:"kind"`
	Description string `json:"description"`
	HowToEnable string `json:"how_to_enable,omitempty"`
}

// RepoSummary is the repository-shaped portion of an EvidenceBundle.
type RepoSummary struct {
	Name            string   `json:"name"`
	Commit          string   `json:"commit,omitempty"`
	DirectoryTree   []string `json:"directory_tree"`
	TechStack       []string `json:"tech_stack"`
	Entrypoints     []string `json:"entrypoints"`
}

// FileSnippet is a single keyed-file excerpt handed to the LLM analyzer.
type FileSnippet struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// EvidenceBundle is the immutable input to LLM analysis (§3, §4.1 Phase A).
// It must never be mutated after construction.
type EvidenceBundle struct {
	Repo          RepoSummary    `json:"repo"`
	Snippets      []FileSnippet  `json:"snippets"`
	LocalFindings []LocalFinding `json:"local_findings"`
}
