// Package heuristic implements the local, LLM-free risk checks described in
// spec.md §4.3. All checks are pure functions of filesystem contents and
// run synchronously, matching the "pure/synchronous... to simplify property
// testing" guidance in spec.md §5.
package heuristic

import (
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/hqescan/scanner/internal/report"
	"github.com/hqescan/scanner/internal/walker"
)

// maskSecretLine implements the "key=value -> key=***REDACTED***" masking
// rule from spec.md §4.3's Output section. A line with no "=" becomes the
// literal placeholder.
func maskSecretLine(line string) string {
	if idx := strings.Index(line, "="); idx >= 0 {
		return strings.TrimSpace(line[:idx]) + "=***REDACTED***"
	}
	return "***REDACTED***"
}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }

// Run executes every check family against scanner's repository and returns
// the combined, order-preserving list of findings.
func Run(scanner *walker.Scanner) ([]report.LocalFinding, error) {
	var findings []report.LocalFinding

	envFindings, err := checkEnvFiles(scanner)
	if err != nil {
		return nil, err
	}
	findings = append(findings, envFindings...)

	repo, err := scanner.Scan()
	if err != nil {
		return nil, err
	}

	findings = append(findings, checkCodeSecrets(scanner, repo)...)
	findings = append(findings, checkSecurityPatterns(scanner, repo)...)
	findings = append(findings, checkCodeQuality(scanner, repo)...)
	findings = append(findings, checkConfigIssues(scanner)...)
	findings = append(findings, checkSuspiciousFiles(scanner, repo)...)

	return findings, nil
}

var envFileNames = []string{".env", ".env.local", ".env.production", ".env.development", ".env.staging"}

// checkEnvFiles emits UNGITIGNORED_ENV when a .env variant exists and isn't
// mentioned in .gitignore, and HARDCODED_SECRET per line whose key contains
// password|secret|api_key|token with a non-empty value.
func checkEnvFiles(scanner *walker.Scanner) ([]report.LocalFinding, error) {
	var findings []report.LocalFinding

	gitignore, _ := scanner.ReadFile(".gitignore")

	for _, envFile := range envFileNames {
		content, err := scanner.ReadFile(envFile)
		if err != nil {
			return nil, err
		}
		if content == nil {
			continue
		}

		gitignored := gitignore != nil && (strings.Contains(string(gitignore), envFile) || strings.Contains(string(gitignore), ".env"))
		if !gitignored {
			lines := strings.Split(string(content), "\n")
			if len(lines) > 3 {
				lines = lines[:3]
			}
			var preview []string
			hasAssignment := false
			for _, l := range lines {
				masked := maskSecretLine(l)
				preview = append(preview, masked)
				if strings.Contains(l, "=") {
					hasAssignment = true
				}
			}
			snippet := "Environment file with potential secrets"
			if hasAssignment {
				snippet = strings.Join(preview, "\n")
			}
			findings = append(findings, report.LocalFinding{
				FindingType:    "UNGITIGNORED_ENV",
				Description:    envFile + " exists but is not gitignored - potential secret exposure",
				FilePath:       envFile,
				Severity:       report.SeverityHigh,
				Line:           intPtr(1),
				Snippet:        strPtr(snippet),
				Recommendation: strPtr("Add '" + envFile + "' to .gitignore"),
			})
		}

		for lineNum, line := range strings.Split(string(content), "\n") {
			lower := strings.ToLower(line)
			hasKeyword := strings.Contains(lower, "password") || strings.Contains(lower, "secret") ||
				strings.Contains(lower, "api_key") || strings.Contains(lower, "token")
			if hasKeyword && strings.Contains(line, "=") && !strings.HasSuffix(strings.TrimSpace(line), "=") {
				key := line
				if idx := strings.Index(line, "="); idx >= 0 {
					key = line[:idx]
				}
				findings = append(findings, report.LocalFinding{
					FindingType:    "HARDCODED_SECRET",
					Description:    "Potential hardcoded secret in " + envFile,
					FilePath:       envFile,
					Severity:       report.SeverityCritical,
					Line:           intPtr(lineNum + 1),
					Snippet:        strPtr(key + "=***REDACTED***"),
					Recommendation: strPtr("Move to secure vault or use environment variable injection"),
				})
			}
		}
	}

	return findings, nil
}

type namedSecretPattern struct {
	name string
	re   *regexp.Regexp
}

var codeSecretPatterns = []namedSecretPattern{
	{"API_KEY", regexp.MustCompile(`(?i)(api[_-]?key|apikey)\s*[=:]\s*['"][a-zA-Z0-9_-]{16,}['"]`)},
	{"PASSWORD", regexp.MustCompile(`(?i)(password|passwd|pwd)\s*[=:]\s*['"][^'"]{4,}['"]`)},
	{"SECRET", regexp.MustCompile(`(?i)(secret|private[_-]?key)\s*[=:]\s*['"][a-zA-Z0-9_-]{8,}['"]`)},
	{"TOKEN", regexp.MustCompile(`(?i)(token|auth[_-]?token)\s*[=:]\s*['"][a-zA-Z0-9_-]{10,}['"]`)},
	{"AWS_KEY", regexp.MustCompile(`AKIA[0-9A-Z]{16}`)},
	{"GITHUB_TOKEN", regexp.MustCompile(`gh[pousr]_[A-Za-z0-9_]{36,}`)},
	{"SLACK_TOKEN", regexp.MustCompile(`xox[baprs]-[0-9]{10,13}-[0-9]{10,13}`)},
}

var sourceExtensions = []string{".rs", ".js", ".ts", ".py", ".go", ".java", ".rb", ".php"}
var docExtensions = []string{".md", ".txt", ".rst", ".adoc", ".markdown"}
var skipNamePatterns = []string{"test", "spec", "fixture", "example", "mock"}

// checkCodeSecrets scans source files (excluding docs and test/fixture
// files) for secret-shaped assignments, reporting the first match per
// pattern per file and skipping comment lines.
func checkCodeSecrets(scanner *walker.Scanner, repo *walker.ScannedRepo) []report.LocalFinding {
	var findings []report.LocalFinding

	for _, file := range repo.Files {
		if !hasAnySuffix(file, sourceExtensions) {
			continue
		}
		lower := strings.ToLower(file)
		if hasAnySuffix(lower, docExtensions) {
			continue
		}
		name := strings.ToLower(filepath.Base(file))
		skip := false
		for _, p := range skipNamePatterns {
			if strings.Contains(name, p) {
				skip = true
				break
			}
		}
		if skip {
			continue
		}

		content, err := scanner.ReadFile(file)
		if err != nil || content == nil {
			continue
		}

		for _, pattern := range codeSecretPatterns {
			for idx, line := range strings.Split(string(content), "\n") {
				if !pattern.re.MatchString(line) {
					continue
				}
				trimmed := strings.TrimSpace(line)
				if strings.HasPrefix(trimmed, "//") || strings.HasPrefix(trimmed, "#") ||
					strings.HasPrefix(trimmed, "(*") || strings.HasPrefix(trimmed, "/*") {
					continue
				}
				findings = append(findings, report.LocalFinding{
					FindingType:    "POTENTIAL_" + pattern.name,
					Description:    "Potential " + strings.ToLower(strings.ReplaceAll(pattern.name, "_", " ")) + " detected in source code",
					FilePath:       file,
					Severity:       report.SeverityCritical,
					Line:           intPtr(idx + 1),
					Snippet:        strPtr(maskSecretLine(line)),
					Recommendation: strPtr("Use environment variables or a secrets manager"),
				})
				break // first occurrence per pattern per file
			}
		}
	}

	return findings
}

var sqlKeywords = []string{"select ", "insert ", "update ", "delete ", "drop ", "from ", "where "}

// checkSecurityPatterns flags SQL-injection-shaped lines, insecure HTTP
// URLs, eval( usage, and a package.json postinstall/network-activity
// combination.
func checkSecurityPatterns(scanner *walker.Scanner, repo *walker.ScannedRepo) []report.LocalFinding {
	var findings []report.LocalFinding

	for _, file := range repo.Files {
		content, err := scanner.ReadFile(file)
		if err != nil || content == nil {
			continue
		}

		for idx, line := range strings.Split(string(content), "\n") {
			trimmed := strings.TrimSpace(line)
			lower := strings.ToLower(trimmed)

			if strings.HasPrefix(trimmed, "//") || strings.HasPrefix(trimmed, "#") ||
				strings.HasPrefix(trimmed, "(*") || strings.HasPrefix(trimmed, "/*") ||
				strings.HasPrefix(trimmed, "--") || strings.HasPrefix(trimmed, "*") {
				continue
			}

			hasSQLKeyword := false
			for _, kw := range sqlKeywords {
				if strings.Contains(lower, kw) {
					hasSQLKeyword = true
					break
				}
			}
			hasFormatting := strings.Contains(lower, "format!(") || strings.Contains(lower, "format(") ||
				(strings.Contains(line, "$") && strings.Contains(line, "{"))
			hasConcat := strings.Contains(line, "+ ") || strings.Contains(line, " +")

			if hasSQLKeyword && (hasFormatting || hasConcat) {
				falsePositive := (strings.Contains(lower, "selected_") && !strings.Contains(lower, "select ")) ||
					(strings.Contains(lower, "updated_") && !strings.Contains(lower, "update ")) ||
					(strings.Contains(lower, "inserted_") && !strings.Contains(lower, "insert ")) ||
					(strings.Contains(lower, "from_") && !strings.Contains(lower, " from ")) ||
					(strings.Contains(lower, "where_") && !strings.Contains(lower, " where "))

				if !falsePositive {
					findings = append(findings, report.LocalFinding{
						FindingType:    "SQL_INJECTION_RISK",
						Description:    "Potential SQL injection - string formatting with SQL",
						FilePath:       file,
						Severity:       report.SeverityHigh,
						Line:           intPtr(idx + 1),
						Snippet:        strPtr(trimmed),
						Recommendation: strPtr("Use parameterized queries or prepared statements"),
					})
				}
			}

			if strings.Contains(lower, "http://") && !strings.Contains(lower, "localhost") && !strings.Contains(lower, "127.0.0.1") {
				findings = append(findings, report.LocalFinding{
					FindingType:    "INSECURE_HTTP",
					Description:    "Insecure HTTP URL detected",
					FilePath:       file,
					Severity:       report.SeverityMedium,
					Line:           intPtr(idx + 1),
					Snippet:        strPtr(trimmed),
					Recommendation: strPtr("Use HTTPS instead of HTTP"),
				})
			}

			if strings.Contains(lower, "eval(") {
				findings = append(findings, report.LocalFinding{
					FindingType:    "DANGEROUS_EVAL",
					Description:    "Dangerous eval() usage detected",
					FilePath:       file,
					Severity:       report.SeverityHigh,
					Line:           intPtr(idx + 1),
					Snippet:        strPtr(trimmed),
					Recommendation: strPtr("Avoid eval() - use safer alternatives"),
				})
			}
		}
	}

	if content, err := scanner.ReadFile("package.json"); err == nil && content != nil {
		s := string(content)
		if strings.Contains(s, "postinstall") && (strings.Contains(s, "curl") || strings.Contains(s, "wget") || strings.Contains(s, "http")) {
			findings = append(findings, report.LocalFinding{
				FindingType:    "SUSPICIOUS_POSTINSTALL",
				Description:    "package.json contains postinstall script with network activity - potential supply chain risk",
				FilePath:       "package.json",
				Severity:       report.SeverityHigh,
				Snippet:        strPtr(`"postinstall": "..."`),
				Recommendation: strPtr("Review postinstall scripts for security"),
			})
		}
	}

	return findings
}

// checkCodeQuality flags TODO/FIXME/HACK markers (High if they also mention
// security|vuln, otherwise Low) and console.log/console.debug statements in
// js/ts/tsx files.
func checkCodeQuality(scanner *walker.Scanner, repo *walker.ScannedRepo) []report.LocalFinding {
	var findings []report.LocalFinding

	for _, file := range repo.Files {
		content, err := scanner.ReadFile(file)
		if err != nil || content == nil {
			continue
		}

		for idx, line := range strings.Split(string(content), "\n") {
			trimmed := strings.ToLower(strings.TrimSpace(line))

			if strings.Contains(trimmed, "todo:") || strings.Contains(trimmed, "fixme:") || strings.Contains(trimmed, "hack:") {
				severity := report.SeverityLow
				if strings.Contains(trimmed, "security") || strings.Contains(trimmed, "vuln") {
					severity = report.SeverityHigh
				}
				findings = append(findings, report.LocalFinding{
					FindingType:    "TODO_MARKER",
					Description:    "Code marker found",
					FilePath:       file,
					Severity:       severity,
					Line:           intPtr(idx + 1),
					Snippet:        strPtr(strings.TrimSpace(line)),
					Recommendation: strPtr("Address or remove the TODO"),
				})
			}

			if hasAnySuffix(file, []string{".js", ".ts", ".tsx"}) &&
				(strings.Contains(trimmed, "console.log(") || strings.Contains(trimmed, "console.debug(")) {
				findings = append(findings, report.LocalFinding{
					FindingType:    "DEBUG_CODE",
					Description:    "Debug console statement in production code",
					FilePath:       file,
					Severity:       report.SeverityLow,
					Line:           intPtr(idx + 1),
					Snippet:        strPtr(strings.TrimSpace(line)),
					Recommendation: strPtr("Remove debug statements before production"),
				})
			}
		}
	}

	return findings
}

// checkConfigIssues emits project-level findings for a missing
// README/LICENSE/.gitignore.
func checkConfigIssues(scanner *walker.Scanner) []report.LocalFinding {
	var findings []report.LocalFinding

	hasReadme := fileExists(scanner, "README.md") || fileExists(scanner, "README.rst") || fileExists(scanner, "README.txt")
	if !hasReadme {
		findings = append(findings, report.LocalFinding{
			FindingType:    "MISSING_README",
			Description:    "No README file found in repository root",
			FilePath:       ".",
			Severity:       report.SeverityLow,
			Recommendation: strPtr("Add a README.md with project description"),
		})
	}

	hasLicense := fileExists(scanner, "LICENSE") || fileExists(scanner, "LICENSE.md") || fileExists(scanner, "LICENSE.txt")
	if !hasLicense {
		findings = append(findings, report.LocalFinding{
			FindingType:    "MISSING_LICENSE",
			Description:    "No LICENSE file found",
			FilePath:       ".",
			Severity:       report.SeverityInfo,
			Recommendation: strPtr("Add a LICENSE file"),
		})
	}

	if !fileExists(scanner, ".gitignore") {
		findings = append(findings, report.LocalFinding{
			FindingType:    "MISSING_GITIGNORE",
			Description:    "No .gitignore file found",
			FilePath:       ".",
			Severity:       report.SeverityMedium,
			Recommendation: strPtr("Create .gitignore for your tech stack"),
		})
	}

	return findings
}

var sensitiveFilePatterns = []struct{ pattern, description string }{
	{"id_rsa", "SSH private key"},
	{"id_dsa", "SSH private key"},
	{".pem", "PEM certificate/key"},
	{".p12", "PKCS12 certificate"},
	{".pfx", "PFX certificate"},
	{"credentials", "Credentials file"},
	{"secret", "Secret file"},
	{"backup", "Backup file"},
	{".bak", "Backup file"},
}

// checkSuspiciousFiles flags sensitive-looking filenames and, on platforms
// that expose a Unix permission bit, world-writable files.
func checkSuspiciousFiles(scanner *walker.Scanner, repo *walker.ScannedRepo) []report.LocalFinding {
	var findings []report.LocalFinding

	for _, file := range repo.Files {
		lower := strings.ToLower(file)
		for _, sp := range sensitiveFilePatterns {
			if strings.Contains(lower, sp.pattern) {
				findings = append(findings, report.LocalFinding{
					FindingType:    "SENSITIVE_FILE",
					Description:    sp.description + " detected: " + file,
					FilePath:       file,
					Severity:       report.SeverityHigh,
					Recommendation: strPtr("Ensure this file is gitignored and not committed"),
				})
				break
			}
		}

		if runtime.GOOS != "windows" {
			if info, err := os.Stat(filepath.Join(scanner.RootPath, file)); err == nil {
				if info.Mode().Perm()&0o002 != 0 {
					findings = append(findings, report.LocalFinding{
						FindingType:    "WORLD_WRITABLE",
						Description:    "World-writable file: " + file,
						FilePath:       file,
						Severity:       report.SeverityMedium,
						Recommendation: strPtr("Remove world-write permissions: chmod o-w"),
					})
				}
			}
		}
	}

	return findings
}

func fileExists(scanner *walker.Scanner, rel string) bool {
	_, err := os.Stat(filepath.Join(scanner.RootPath, rel))
	return err == nil
}

func hasAnySuffix(s string, suffixes []string) bool {
	for _, suf := range suffixes {
		if strings.HasSuffix(s, suf) {
			return true
		}
	}
	return false
}
