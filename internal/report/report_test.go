package report

import "testing"

func TestHealthScore(t *testing.T) {
	cases := []struct {
		name     string
		findings []Finding
		want     float64
	}{
		{"empty", nil, 10},
		{"one critical", []Finding{{Severity: SeverityCritical}}, 9},
		{"one high", []Finding{{Severity: SeverityHigh}}, 9.5},
		{"one medium", []Finding{{Severity: SeverityMedium}}, 9.8},
		{"one low", []Finding{{Severity: SeverityLow}}, 9.95},
		{"clamped at zero", []Finding{
			{Severity: SeverityCritical}, {Severity: SeverityCritical},
			{Severity: SeverityCritical}, {Severity: SeverityCritical},
			{Severity: SeverityCritical}, {Severity: SeverityCritical},
			{Severity: SeverityCritical}, {Severity: SeverityCritical},
			{Severity: SeverityCritical}, {Severity: SeverityCritical},
			{Severity: SeverityCritical},
		}, 0},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := HealthScore(c.findings)
			if got != c.want {
				t.Fatalf("HealthScore() = %v, want %v", got, c.want)
			}
		})
	}
}

func TestTopPrioritiesStableOrder(t *testing.T) {
	findings := []Finding{
		{ID: "a", Severity: SeverityMedium},
		{ID: "b", Severity: SeverityCritical},
		{ID: "c", Severity: SeverityCritical},
		{ID: "d", Severity: SeverityHigh},
		{ID: "e", Severity: SeverityLow},
	}
	got := TopPriorities(findings, 3)
	want := []string{"b", "c", "d"}
	if len(got) != len(want) {
		t.Fatalf("TopPriorities() len = %d, want %d", len(got), len(want))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Fatalf("TopPriorities()[%d].ID = %s, want %s", i, got[i].ID, id)
		}
	}
}

func TestPartitionByCategoryPreservesOrder(t *testing.T) {
	findings := []Finding{
		{ID: "f1", Category: CategoryBackend},
		{ID: "f2", Category: CategorySecurity},
		{ID: "f3", Category: CategorySecurity},
		{ID: "f4", Category: CategoryTesting},
	}
	ordered := OrderedCategoryFindings(findings)
	if len(ordered) != len(CategoryOrder) {
		t.Fatalf("expected %d categories, got %d", len(CategoryOrder), len(ordered))
	}
	if ordered[0].Category != CategorySecurity || len(ordered[0].Findings) != 2 {
		t.Fatalf("security category mismatch: %+v", ordered[0])
	}
	if ordered[0].Findings[0].ID != "f2" || ordered[0].Findings[1].ID != "f3" {
		t.Fatalf("security findings out of insertion order: %+v", ordered[0].Findings)
	}
}

func TestEvidenceRoundTrip(t *testing.T) {
	e := NewFileLineEvidence(FileLineEvidence{File: "a.go", Line: 10, Snippet: "x := 1"})
	data, err := e.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}
	var decoded Evidence
	if err := decoded.UnmarshalJSON(data); err != nil {
		t.Fatalf("UnmarshalJSON: %v", err)
	}
	fl, ok := decoded.FileLine()
	if !ok || fl.File != "a.go" || fl.Line != 10 {
		t.Fatalf("round-trip mismatch: %+v ok=%v", fl, ok)
	}
}

func TestEvidenceValidateRejectsZeroValue(t *testing.T) {
	var e Evidence
	if err := e.Validate(); err == nil {
		t.Fatal("expected error for unset evidence variant")
	}
}

func TestIDAllocatorMonotonic(t *testing.T) {
	a := NewIDAllocator()
	if got := a.Next(PrefixSec); got != "SEC-001" {
		t.Fatalf("first id = %s, want SEC-001", got)
	}
	if got := a.Next(PrefixSec); got != "SEC-002" {
		t.Fatalf("second id = %s, want SEC-002", got)
	}
	if got := a.Next(PrefixBug); got != "BUG-001" {
		t.Fatalf("other prefix id = %s, want BUG-001", got)
	}
}

func TestBuildImplementationPlanBuckets(t *testing.T) {
	todos := []TodoItem{
		{ID: "t1", Severity: SeverityCritical},
		{ID: "t2", Severity: SeverityHigh},
		{ID: "t3", Severity: SeverityMedium},
		{ID: "t4", Severity: SeverityMedium},
		{ID: "t5", Severity: SeverityMedium},
		{ID: "t6", Severity: SeverityMedium},
		{ID: "t7", Severity: SeverityMedium},
		{ID: "t8", Severity: SeverityMedium},
		{ID: "t9", Severity: SeverityLow},
	}
	plan := BuildImplementationPlan(todos)
	if len(plan.ImmediateTerm) != 2 {
		t.Fatalf("ImmediateTerm len = %d, want 2", len(plan.ImmediateTerm))
	}
	if len(plan.ShortTerm) != 5 {
		t.Fatalf("ShortTerm len = %d, want 5 (capped)", len(plan.ShortTerm))
	}
	if len(plan.MediumTerm) != 0 || len(plan.LongTerm) != 0 {
		t.Fatal("MediumTerm/LongTerm should default empty")
	}
}
