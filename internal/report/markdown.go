package report

import (
	"fmt"
	"strings"
)

// RenderMarkdown renders an HQEReport as the deterministic Markdown companion
// to report.json (spec.md §6's report.md artifact). Every section mirrors
// HQEReport's own field order so the two artifacts never disagree about
// what is included.
func RenderMarkdown(r HQEReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Scan report: %s\n\n", r.RunID)
	fmt.Fprintf(&b, "Protocol %s / schema %s\n\n", r.ProtocolVersion, r.SchemaVersion)

	fmt.Fprintf(&b, "## Executive summary\n\n")
	fmt.Fprintf(&b, "Health score: %.1f/10\n\n", r.ExecutiveSummary.HealthScore)
	renderFindingTitles(&b, "Top priorities", r.ExecutiveSummary.TopPriorities)
	renderFindingTitles(&b, "Critical findings", r.ExecutiveSummary.CriticalFindings)
	if len(r.ExecutiveSummary.Blockers) > 0 {
		b.WriteString("Blockers:\n\n")
		for _, blocker := range r.ExecutiveSummary.Blockers {
			fmt.Fprintf(&b, "- **%s**: %s", blocker.Kind, blocker.Description)
			if blocker.HowToEnable != "" {
				fmt.Fprintf(&b, " (%s)", blocker.HowToEnable)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "## Project map\n\n")
	fmt.Fprintf(&b, "Name: %s\n\n", r.ProjectMap.Name)
	if len(r.ProjectMap.TechStack) > 0 {
		fmt.Fprintf(&b, "Tech stack: %s\n\n", strings.Join(r.ProjectMap.TechStack, ", "))
	}
	if len(r.ProjectMap.Entrypoints) > 0 {
		fmt.Fprintf(&b, "Entrypoints: %s\n\n", strings.Join(r.ProjectMap.Entrypoints, ", "))
	}
	if len(r.ProjectMap.DirectoryTree) > 0 {
		b.WriteString("```\n")
		b.WriteString(strings.Join(r.ProjectMap.DirectoryTree, "\n"))
		b.WriteString("\n```\n\n")
	}

	fmt.Fprintf(&b, "## Deep scan\n\n")
	for _, cat := range r.DeepScan.Categories {
		fmt.Fprintf(&b, "### %s\n\n", cat.Category)
		if len(cat.Findings) == 0 {
			b.WriteString("No findings.\n\n")
			continue
		}
		for _, f := range cat.Findings {
			fmt.Fprintf(&b, "- **%s** [%s/%s] %s\n", f.ID, f.Severity, f.Risk, f.Title)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "## Implementation plan\n\n")
	renderTodoTitles(&b, "Immediate term", r.Plan.ImmediateTerm)
	renderTodoTitles(&b, "Short term", r.Plan.ShortTerm)
	renderTodoTitles(&b, "Medium term", r.Plan.MediumTerm)
	renderTodoTitles(&b, "Long term", r.Plan.LongTerm)
	if r.Plan.RiskAssessment != "" {
		fmt.Fprintf(&b, "Risk assessment: %s\n\n", r.Plan.RiskAssessment)
	}

	fmt.Fprintf(&b, "## Session log\n\n")
	renderStringList(&b, "Completed", r.SessionLog.Completed)
	renderStringList(&b, "In progress", r.SessionLog.InProgress)
	renderStringList(&b, "Discovered", r.SessionLog.Discovered)
	renderStringList(&b, "Reprioritized", r.SessionLog.Reprioritized)
	renderStringList(&b, "Next", r.SessionLog.Next)

	return b.String()
}

func renderFindingTitles(b *strings.Builder, heading string, findings []Finding) {
	if len(findings) == 0 {
		return
	}
	fmt.Fprintf(b, "%s:\n\n", heading)
	for _, f := range findings {
		fmt.Fprintf(b, "- %s: %s\n", f.ID, f.Title)
	}
	b.WriteString("\n")
}

func renderTodoTitles(b *strings.Builder, heading string, todos []TodoItem) {
	if len(todos) == 0 {
		return
	}
	fmt.Fprintf(b, "%s:\n\n", heading)
	for _, t := range todos {
		fmt.Fprintf(b, "- %s: %s\n", t.ID, t.Title)
	}
	b.WriteString("\n")
}

func renderStringList(b *strings.Builder, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "%s: %s\n\n", heading, strings.Join(items, ", "))
}
