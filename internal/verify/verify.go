// Package verify grounds LLM-reported findings against the repository
// content that was actually sent for analysis. A provider is free to
// hallucinate a file, line, or function that does not exist; this package
// gives Phase B a deterministic way to flag that before the finding reaches
// the report.
package verify

import (
	"fmt"
	"strings"

	"github.com/hqescan/scanner/internal/report"
)

// Result is the outcome of checking a batch of findings/todos.
type Result struct {
	// Confirmed lists the IDs whose evidence was found in the ingested file
	// content.
	Confirmed []string
	// Unconfirmed lists the IDs whose file_line or file_function evidence
	// could not be located. Reproduction evidence is never flagged: it
	// describes steps to take, not content already present in the repo.
	Unconfirmed []string
	Summary     string
}

// Verifier checks Finding/TodoItem evidence against the set of files that
// were ingested for the run. It is deterministic and never mutates or drops
// a finding; callers decide how to surface Unconfirmed IDs (spec.md's
// Blocker mechanism is the natural fit, see internal/pipeline).
type Verifier struct{}

// New returns a ready-to-use Verifier.
func New() *Verifier {
	return &Verifier{}
}

// Verify checks every finding and todo's evidence against filesByPath, a map
// from ingested file path to its (already-redacted) content.
func (v *Verifier) Verify(findings []report.Finding, todos []report.TodoItem, filesByPath map[string]string) Result {
	var confirmed, unconfirmed []string

	check := func(id string, ev report.Evidence) {
		if v.confirms(ev, filesByPath) {
			confirmed = append(confirmed, id)
		} else {
			unconfirmed = append(unconfirmed, id)
		}
	}

	for _, f := range findings {
		check(f.ID, f.Evidence)
	}
	for _, t := range todos {
		check(t.ID, t.Evidence)
	}

	return Result{
		Confirmed:   confirmed,
		Unconfirmed: unconfirmed,
		Summary:     summarize(confirmed, unconfirmed),
	}
}

// confirms reports whether ev's claim is actually present in filesByPath.
// Reproduction evidence is not file-anchored and is always treated as
// confirmed; it carries its own observed-effect description instead.
func (v *Verifier) confirms(ev report.Evidence, filesByPath map[string]string) bool {
	switch ev.Kind() {
	case report.EvidenceFileLine:
		fl, _ := ev.FileLine()
		content, ok := filesByPath[fl.File]
		if !ok {
			return false
		}
		return snippetPresent(content, fl.Snippet)
	case report.EvidenceFileFunction:
		ff, _ := ev.FileFunction()
		content, ok := filesByPath[ff.File]
		if !ok {
			return false
		}
		if strings.TrimSpace(ff.Function) != "" && !strings.Contains(content, ff.Function) {
			return false
		}
		return snippetPresent(content, ff.Snippet)
	case report.EvidenceReproduction:
		return true
	default:
		return false
	}
}

// snippetPresent reports whether a meaningful excerpt of snippet appears in
// content. Whitespace is collapsed before comparing since providers
// routinely re-indent quoted source.
func snippetPresent(content, snippet string) bool {
	snippet = strings.TrimSpace(snippet)
	if snippet == "" {
		return true
	}
	return strings.Contains(collapseSpace(content), collapseSpace(snippet))
}

func collapseSpace(s string) string {
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}

func summarize(confirmed, unconfirmed []string) string {
	total := len(confirmed) + len(unconfirmed)
	if total == 0 {
		return "No findings to verify."
	}
	return fmt.Sprintf("%d/%d findings grounded in ingested file content.", len(confirmed), total)
}
