// Package walker implements the bounded, exclusion-aware repository
// traversal described in spec.md §4.2: file/directory enumeration, tech
// stack and entrypoint detection, and a path-traversal-safe file reader.
package walker

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	defaultMaxDepth    = 10
	defaultMaxFileSize = 1_000_000
)

var excludedExtensions = []string{
	".exe", ".dll", ".so", ".dylib", ".bin", ".jpg", ".jpeg", ".png", ".gif", ".svg", ".ico",
	".mp3", ".mp4", ".avi", ".mov", ".wav", ".zip", ".tar", ".gz", ".bz2", ".7z", ".rar",
	".pdf", ".doc", ".docx", ".xls", ".xlsx", ".ttf", ".otf", ".woff", ".woff2", ".eot",
}

var excludedPathSegments = []string{
	".git/", ".svn/", ".hg/", "node_modules/", "target/", "dist/", "build/",
	".next/", ".nuxt/", ".vuepress/dist/", "__pycache__/", ".pytest_cache/",
	".idea/", ".vscode/",
}

var excludedDirNames = []string{
	".git", ".svn", ".hg", "node_modules", "target", "dist", "build",
	".next", ".nuxt", ".vuepress", "__pycache__", ".pytest_cache", ".idea", ".vscode",
}

// ShouldExcludeFile reports whether a repo-relative path should be skipped
// during enumeration, by extension or by path segment.
func ShouldExcludeFile(relPath string) bool {
	lower := strings.ToLower(relPath)
	for _, ext := range excludedExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	for _, seg := range excludedPathSegments {
		if strings.Contains(lower, seg) {
			return true
		}
	}
	return false
}

func shouldExcludeDir(relPath string) bool {
	lower := strings.ToLower(relPath)
	for _, name := range excludedDirNames {
		if strings.Contains(lower, name) {
			return true
		}
	}
	return false
}

// IsSecretLikelyFile reports whether a repo-relative path matches a known
// secret-bearing filename pattern (spec.md §4.3 "sensitive filenames").
func IsSecretLikelyFile(relPath string) bool {
	secretFiles := []string{
		".env", ".env.local", ".env.production", ".env.development",
		".aws/credentials", ".ssh/id_rsa", ".ssh/id_dsa", ".ssh/id_ecdsa",
		"secrets.yml", "secrets.yaml", "secrets.json", "credentials.json",
		"service-account.json", "kubeconfig", ".dockercfg", ".npmrc", ".pypirc",
	}
	lower := strings.ToLower(relPath)
	for _, s := range secretFiles {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

// Scanner walks a single repository root under configurable depth and
// per-file size caps.
type Scanner struct {
	RootPath    string
	MaxDepth    int
	MaxFileSize int64
}

// New constructs a Scanner with spec.md §4.2's default caps (depth 10, 1MB).
func New(rootPath string) *Scanner {
	return &Scanner{RootPath: rootPath, MaxDepth: defaultMaxDepth, MaxFileSize: defaultMaxFileSize}
}

// ScannedRepo is the result of Scan: file/dir lists relative to the root.
type ScannedRepo struct {
	RootPath    string
	Files       []string
	Directories []string
	TotalSize   int64
}

// Scan recursively enumerates files and directories under the root,
// applying exclusion and size-cap rules. Symbolic links are not followed.
func (s *Scanner) Scan() (*ScannedRepo, error) {
	repo := &ScannedRepo{RootPath: s.RootPath}

	err := filepath.Walk(s.RootPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return fmt.Errorf("walk %s: %w", path, err)
		}
		if info.Mode()&os.ModeSymlink != 0 {
			return nil
		}
		rel, err := filepath.Rel(s.RootPath, path)
		if err != nil {
			return fmt.Errorf("relativize %s: %w", path, err)
		}
		if rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)
		depth := strings.Count(rel, "/") + 1
		if depth > s.MaxDepth {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if info.IsDir() {
			if shouldExcludeDir(rel) {
				return filepath.SkipDir
			}
			repo.Directories = append(repo.Directories, rel)
			return nil
		}

		if ShouldExcludeFile(rel) {
			return nil
		}
		if info.Size() > s.MaxFileSize {
			return nil
		}
		repo.TotalSize += info.Size()
		repo.Files = append(repo.Files, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan repository: %w", err)
	}
	return repo, nil
}

// TreeSummary renders an indented directory listing, sorted, capped to the
// first 50 directories within maxDepth — matching the original tool's
// bounded tree-summary rendering.
func (r *ScannedRepo) TreeSummary(maxDepth int) string {
	lines := []string{"."}

	sorted := make([]string, len(r.Directories))
	copy(sorted, r.Directories)
	sort.Strings(sorted)

	shown := 0
	for _, dir := range sorted {
		if shown >= 50 {
			break
		}
		depth := strings.Count(dir, "/") + 1
		if depth > maxDepth {
			continue
		}
		indent := strings.Repeat("  ", depth)
		parts := strings.Split(dir, "/")
		lines = append(lines, fmt.Sprintf("%s%s/", indent, parts[len(parts)-1]))
		shown++
	}
	if len(r.Directories) > 50 {
		lines = append(lines, "  ...")
	}
	return strings.Join(lines, "\n")
}

var keyFilePriorityPatterns = []string{
	"README", "CHANGELOG", "LICENSE", "package.json", "Cargo.toml", "pyproject.toml",
	"go.mod", "Dockerfile", "docker-compose", ".github/workflows",
	"src/main", "src/lib", "src/index", "app", "main", "index",
}

var keyFileSourceExtensions = []string{".rs", ".ts", ".js", ".py", ".go"}

// KeyFiles selects a bounded subset of Files suitable for LLM/ingestion
// submission: priority paths first (README, manifests, common entrypoints),
// then source files by extension in enumeration order, up to maxFiles.
func (r *ScannedRepo) KeyFiles(maxFiles int) []string {
	var keyFiles []string
	seen := make(map[string]bool)

	for _, f := range r.Files {
		lower := strings.ToLower(f)
		for _, p := range keyFilePriorityPatterns {
			if strings.Contains(lower, strings.ToLower(p)) {
				if !seen[f] {
					keyFiles = append(keyFiles, f)
					seen[f] = true
				}
				break
			}
		}
	}

	for _, ext := range keyFileSourceExtensions {
		if len(keyFiles) >= maxFiles {
			break
		}
		for _, f := range r.Files {
			if len(keyFiles) >= maxFiles {
				break
			}
			if strings.HasSuffix(f, ext) && !seen[f] {
				keyFiles = append(keyFiles, f)
				seen[f] = true
			}
		}
	}

	if len(keyFiles) > maxFiles {
		keyFiles = keyFiles[:maxFiles]
	}
	return keyFiles
}

// ReadFile reads a repo-relative path's contents after validating it cannot
// escape the root (spec.md §4.2 path-traversal invariant): rejects any
// input containing "..", "./", or a leading "/", then canonicalizes both
// the resolved target and the root and requires the former to descend from
// the latter. Returns (nil, nil) for missing files or files over the size
// cap, matching the "None, not an error" contract for oversized files.
func (s *Scanner) ReadFile(relPath string) ([]byte, error) {
	if strings.Contains(relPath, "..") || strings.Contains(relPath, "./") || strings.HasPrefix(relPath, "/") {
		return nil, fmt.Errorf("walker: invalid path pattern: %s", relPath)
	}

	fullPath := filepath.Join(s.RootPath, relPath)
	if _, err := os.Stat(fullPath); os.IsNotExist(err) {
		return nil, nil
	}

	canonicalFull, err := filepath.EvalSymlinks(fullPath)
	if err != nil {
		return nil, fmt.Errorf("walker: resolve %s: %w", relPath, err)
	}
	canonicalRoot, err := filepath.EvalSymlinks(s.RootPath)
	if err != nil {
		return nil, fmt.Errorf("walker: resolve root: %w", err)
	}
	rel, err := filepath.Rel(canonicalRoot, canonicalFull)
	if err != nil || strings.HasPrefix(rel, "..") {
		return nil, fmt.Errorf("walker: path traversal detected: file %q is outside the allowed directory", relPath)
	}

	info, err := os.Stat(canonicalFull)
	if err != nil {
		return nil, fmt.Errorf("walker: stat %s: %w", relPath, err)
	}
	if info.Size() > s.MaxFileSize {
		return nil, nil
	}

	content, err := os.ReadFile(canonicalFull)
	if err != nil {
		return nil, fmt.Errorf("walker: read %s: %w", relPath, err)
	}
	return content, nil
}
