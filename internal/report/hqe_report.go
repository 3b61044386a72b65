package report

// ProtocolVersion and SchemaVersion are written literally into every report
// per spec.md §6.
const (
	ProtocolVersion = "3.1.0"
	SchemaVersion   = "3.1.0"
)

// ExecutiveSummary aggregates the headline numbers for a run.
type ExecutiveSummary struct {
	HealthScore      float64   `json:"health_score"`
	TopPriorities    []Finding `json:"top_priorities"`
	CriticalFindings []Finding `json:"critical_findings"`
	Blockers         []Blocker `json:"blockers,omitempty"`
}

// ProjectMap is a light repository overview carried into the report.
type ProjectMap struct {
	Name          string   `json:"name"`
	DirectoryTree []string `json:"directory_tree"`
	TechStack     []string `json:"tech_stack"`
	Entrypoints   []string `json:"entrypoints"`
}

// DeepScanResult holds findings partitioned by category (§5 ordering).
type DeepScanResult struct {
	Categories []CategoryFindings `json:"categories"`
}

// ImplementationPlan buckets remediation work by horizon. DependencyGraph
// captures each TodoItem's BlockedBy edges as an adjacency list keyed by id.
type ImplementationPlan struct {
	ImmediateTerm   []TodoItem          `json:"immediate_term"`
	ShortTerm       []TodoItem          `json:"short_term"`
	MediumTerm      []TodoItem          `json:"medium_term"`
	LongTerm        []TodoItem          `json:"long_term"`
	DependencyGraph map[string][]string `json:"dependency_graph"`
	RiskAssessment  string              `json:"risk_assessment,omitempty"`
}

// SessionLog records what happened over the course of a run in the terms
// the original tool used: work completed, still in progress, newly
// discovered, reprioritized, and what to do next.
type SessionLog struct {
	Completed     []string `json:"completed"`
	InProgress    []string `json:"in_progress"`
	Discovered    []string `json:"discovered"`
	Reprioritized []string `json:"reprioritized"`
	Next          []string `json:"next"`
}

// PRHarvest is an optional section populated when the driver has pull
// request context available; it is left unpopulated by the core pipeline
// (PR/VCS metadata extraction is an external collaborator per spec.md §1).
type PRHarvest struct {
	Summary string `json:"summary,omitempty"`
}

// HQEReport is the root aggregation described in spec.md §3 and §6.
type HQEReport struct {
	ProtocolVersion string               `json:"protocol_version"`
	SchemaVersion   string               `json:"schema_version"`
	RunID           string               `json:"run_id"`
	ExecutiveSummary ExecutiveSummary    `json:"executive_summary"`
	ProjectMap      ProjectMap           `json:"project_map"`
	PRHarvest       *PRHarvest           `json:"pr_harvest,omitempty"`
	DeepScan        DeepScanResult       `json:"deep_scan"`
	MasterTodoList  []TodoItem           `json:"master_todo_backlog"`
	Plan            ImplementationPlan   `json:"implementation_plan"`
	ImmediateActions []string            `json:"immediate_actions,omitempty"`
	SessionLog      SessionLog           `json:"session_log"`
}

// NewHQEReport stamps the fixed protocol/schema versions for a given run id.
func NewHQEReport(runID string) HQEReport {
	return HQEReport{
		ProtocolVersion: ProtocolVersion,
		SchemaVersion:   SchemaVersion,
		RunID:           runID,
		Plan:            ImplementationPlan{DependencyGraph: map[string][]string{}},
	}
}

// BuildImplementationPlan buckets todos per spec.md §4.1 Phase C: immediate
// covers critical|high severity, short_term takes the first five
// medium-severity items in insertion order, and medium/long term are left
// empty by default (a later phase, or a caller-supplied policy, may
// populate them).
func BuildImplementationPlan(todos []TodoItem) ImplementationPlan {
	plan := ImplementationPlan{DependencyGraph: map[string][]string{}}
	mediumCount := 0
	for _, t := range todos {
		switch t.Severity {
		case SeverityCritical, SeverityHigh:
			plan.ImmediateTerm = append(plan.ImmediateTerm, t)
		case SeverityMedium:
			if mediumCount < 5 {
				plan.ShortTerm = append(plan.ShortTerm, t)
				mediumCount++
			}
		}
		if len(t.BlockedBy) > 0 {
			plan.DependencyGraph[t.ID] = append(plan.DependencyGraph[t.ID], t.BlockedBy...)
		}
	}
	return plan
}

// BuildExecutiveSummary assembles the headline section for Phase C,
// attaching blockers recorded by a partial analysis phase.
func BuildExecutiveSummary(findings []Finding, blockers []Blocker) ExecutiveSummary {
	return ExecutiveSummary{
		HealthScore:      HealthScore(findings),
		TopPriorities:    TopPriorities(findings, 3),
		CriticalFindings: CriticalFindings(findings),
		Blockers:         blockers,
	}
}
