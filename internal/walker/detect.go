package walker

import (
	"os"
	"path/filepath"
	"strings"
)

// Entrypoint names a detected project entry point and its category.
type Entrypoint struct {
	FilePath    string
	EntryType   string
	Description string
}

var entrypointPatterns = []struct {
	entryType string
	filenames []string
}{
	{"main", []string{"main.rs", "main.go", "main.py", "main.js", "main.ts", "index.js", "index.ts", "app.py", "app.go", "lib.rs", "mod.rs"}},
	{"config", []string{"package.json", "Cargo.toml", "pyproject.toml", "setup.py", "go.mod", "requirements.txt", "Pipfile", "poetry.lock", "Gemfile", "composer.json"}},
	{"docker", []string{"Dockerfile", "docker-compose.yml", "docker-compose.yaml", ".dockerignore"}},
	{"ci", []string{".github/workflows/ci.yml", ".github/workflows/build.yml", ".github/workflows/test.yml", ".gitlab-ci.yml", "Jenkinsfile"}},
	{"docs", []string{"README.md", "README.rst", "CONTRIBUTING.md", "CHANGELOG.md", "LICENSE"}},
}

// DetectEntrypoints checks for a fixed set of well-known entrypoint files
// directly under the repository root.
func (s *Scanner) DetectEntrypoints() []Entrypoint {
	var found []Entrypoint
	for _, group := range entrypointPatterns {
		for _, filename := range group.filenames {
			if _, err := os.Stat(filepath.Join(s.RootPath, filename)); err == nil {
				found = append(found, Entrypoint{
					FilePath:    filename,
					EntryType:   group.entryType,
					Description: "Detected " + group.entryType + " entrypoint",
				})
			}
		}
	}
	return found
}

// DetectedTechnology names a framework/runtime found via manifest content
// sniffing, with the manifest file as evidence.
type DetectedTechnology struct {
	Name     string
	Version  string
	Evidence string
}

// TechStack summarizes detected technologies and package managers.
type TechStack struct {
	Detected        []DetectedTechnology
	PackageManagers []string
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func readIfExists(path string) (string, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	return string(data), true
}

// DetectTechStack sniffs package manifests at the repository root for a
// small fixed set of ecosystems and frameworks.
func (s *Scanner) DetectTechStack() TechStack {
	var detected []DetectedTechnology
	var managers []string

	pkgJSON := filepath.Join(s.RootPath, "package.json")
	if exists(pkgJSON) {
		managers = append(managers, "npm/pnpm/yarn")
		if content, ok := readIfExists(pkgJSON); ok {
			for _, pair := range []struct{ needle, name string }{
				{"react", "React"},
				{"vue", "Vue.js"},
				{"express", "Express"},
				{"next", "Next.js"},
				{"@tauri-apps", "Tauri"},
			} {
				if strings.Contains(content, pair.needle) {
					detected = append(detected, DetectedTechnology{Name: pair.name, Evidence: "package.json"})
				}
			}
		}
	}

	cargoToml := filepath.Join(s.RootPath, "Cargo.toml")
	if exists(cargoToml) {
		managers = append(managers, "cargo")
		detected = append(detected, DetectedTechnology{Name: "Rust", Evidence: "Cargo.toml"})
		if content, ok := readIfExists(cargoToml); ok && strings.Contains(content, "tokio") {
			detected = append(detected, DetectedTechnology{Name: "Tokio Async Runtime", Evidence: "Cargo.toml"})
		}
	}

	if exists(filepath.Join(s.RootPath, "requirements.txt")) || exists(filepath.Join(s.RootPath, "pyproject.toml")) {
		managers = append(managers, "pip/poetry")
		detected = append(detected, DetectedTechnology{Name: "Python", Evidence: "requirements.txt or pyproject.toml"})
	}

	if exists(filepath.Join(s.RootPath, "go.mod")) {
		managers = append(managers, "go modules")
		detected = append(detected, DetectedTechnology{Name: "Go", Evidence: "go.mod"})
	}

	if exists(filepath.Join(s.RootPath, "Dockerfile")) {
		detected = append(detected, DetectedTechnology{Name: "Docker", Evidence: "Dockerfile"})
	}

	return TechStack{Detected: detected, PackageManagers: managers}
}

// DetectLanguage maps a file extension to a display language name, falling
// back to the bare extension for anything unrecognized.
func DetectLanguage(path string) string {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	switch ext {
	case "rs":
		return "rust"
	case "ts", "tsx":
		return "typescript"
	case "js", "jsx":
		return "javascript"
	case "py":
		return "python"
	case "go":
		return "go"
	case "java":
		return "java"
	case "kt":
		return "kotlin"
	case "swift":
		return "swift"
	case "rb":
		return "ruby"
	case "php":
		return "php"
	case "c":
		return "c"
	case "cpp", "cc":
		return "cpp"
	case "h", "hpp":
		return "header"
	case "md":
		return "markdown"
	case "json":
		return "json"
	case "yaml", "yml":
		return "yaml"
	case "toml":
		return "toml"
	default:
		return ext
	}
}
