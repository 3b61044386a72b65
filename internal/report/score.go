package report

import "sort"

// HealthScore computes the weighted health score over a set of findings per
// spec.md §4.1 Phase C: score = clamp(10 - (10*critical + 5*high + 2*medium +
// 0.5*low) / 10, 0, 10). Info-severity findings do not affect the score.
func HealthScore(findings []Finding) float64 {
	var critical, high, medium, low int
	for _, f := range findings {
		switch f.Severity {
		case SeverityCritical:
			critical++
		case SeverityHigh:
			high++
		case SeverityMedium:
			medium++
		case SeverityLow:
			low++
		}
	}
	weighted := 10*float64(critical) + 5*float64(high) + 2*float64(medium) + 0.5*float64(low)
	score := 10 - weighted/10
	if score < 0 {
		return 0
	}
	if score > 10 {
		return 10
	}
	return score
}

// TopPriorities projects the top n findings by (severity rank, insertion
// order) — a stable sort that never reorders findings of equal severity.
func TopPriorities(findings []Finding, n int) []Finding {
	if n <= 0 || len(findings) == 0 {
		return nil
	}
	ordered := make([]Finding, len(findings))
	copy(ordered, findings)
	stableSortBySeverity(ordered)
	if len(ordered) > n {
		ordered = ordered[:n]
	}
	return ordered
}

// CriticalFindings returns every critical-severity finding, insertion order preserved.
func CriticalFindings(findings []Finding) []Finding {
	out := make([]Finding, 0, len(findings))
	for _, f := range findings {
		if f.Severity == SeverityCritical {
			out = append(out, f)
		}
	}
	return out
}

// stableSortBySeverity orders by severity rank, preserving insertion order
// among equal severities (spec.md §5 ordering guarantee).
func stableSortBySeverity(findings []Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		return findings[i].Severity.Rank() < findings[j].Severity.Rank()
	})
}
