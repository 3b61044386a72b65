package verify

import (
	"testing"

	"github.com/hqescan/scanner/internal/report"
)

func TestVerifyConfirmsFileLineEvidencePresentInContent(t *testing.T) {
	files := map[string]string{
		"app.py": "import os\npassword = \"hunter2\"\n",
	}
	findings := []report.Finding{{
		ID: "SEC-001",
		Evidence: report.NewFileLineEvidence(report.FileLineEvidence{
			File: "app.py", Line: 2, Snippet: "password = \"hunter2\"",
		}),
	}}

	result := New().Verify(findings, nil, files)
	if len(result.Confirmed) != 1 || len(result.Unconfirmed) != 0 {
		t.Fatalf("expected 1 confirmed finding, got confirmed=%v unconfirmed=%v", result.Confirmed, result.Unconfirmed)
	}
}

func TestVerifyFlagsFabricatedFileLineEvidence(t *testing.T) {
	files := map[string]string{
		"app.py": "import os\n",
	}
	findings := []report.Finding{{
		ID: "SEC-002",
		Evidence: report.NewFileLineEvidence(report.FileLineEvidence{
			File: "app.py", Line: 42, Snippet: "eval(user_input)",
		}),
	}}

	result := New().Verify(findings, nil, files)
	if len(result.Unconfirmed) != 1 || result.Unconfirmed[0] != "SEC-002" {
		t.Fatalf("expected SEC-002 to be unconfirmed, got confirmed=%v unconfirmed=%v", result.Confirmed, result.Unconfirmed)
	}
}

func TestVerifyFlagsEvidenceCitingAnUningestedFile(t *testing.T) {
	files := map[string]string{"app.py": "x = 1\n"}
	findings := []report.Finding{{
		ID: "SEC-003",
		Evidence: report.NewFileLineEvidence(report.FileLineEvidence{
			File: "missing.py", Line: 1, Snippet: "x = 1",
		}),
	}}

	result := New().Verify(findings, nil, files)
	if len(result.Unconfirmed) != 1 {
		t.Fatalf("expected evidence citing an unseen file to be unconfirmed, got %v", result.Confirmed)
	}
}

func TestVerifyAlwaysConfirmsReproductionEvidence(t *testing.T) {
	todos := []report.TodoItem{{
		ID: "DX-001",
		Evidence: report.NewReproductionEvidence(report.ReproductionEvidence{
			Steps:    []string{"run the binary with no arguments"},
			Observed: "panic: nil pointer dereference",
		}),
	}}

	result := New().Verify(nil, todos, map[string]string{})
	if len(result.Confirmed) != 1 {
		t.Fatalf("expected reproduction evidence to be confirmed unconditionally, got %v", result.Unconfirmed)
	}
}

func TestVerifyToleratesReindentedSnippets(t *testing.T) {
	files := map[string]string{
		"config.go": "func Load() {\n\t\tos.Getenv(\"TOKEN\")\n}\n",
	}
	findings := []report.Finding{{
		ID: "SEC-004",
		Evidence: report.NewFileLineEvidence(report.FileLineEvidence{
			File: "config.go", Line: 2, Snippet: "os.Getenv(\"TOKEN\")",
		}),
	}}

	result := New().Verify(findings, nil, files)
	if len(result.Confirmed) != 1 {
		t.Fatalf("expected whitespace-insensitive match to confirm, got unconfirmed=%v", result.Unconfirmed)
	}
}
