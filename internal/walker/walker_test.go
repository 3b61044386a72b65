package walker

import (
	"os"
	"path/filepath"
	"testing"
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

func TestScanFindsFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "test.txt", "hello")
	writeFile(t, dir, "src/main.rs", "fn main() {}")

	repo, err := New(dir).Scan()
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if !contains(repo.Files, "test.txt") || !contains(repo.Files, "src/main.rs") {
		t.Fatalf("files = %v, missing expected entries", repo.Files)
	}
}

func TestScanExcludesNodeModules(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "node_modules/lodash/index.js", "module.exports = {}")
	writeFile(t, dir, "src/index.js", "console.log(1)")

	repo, err := New(dir).Scan()
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	for _, f := range repo.Files {
		if contains([]string{f}, "node_modules/lodash/index.js") {
			t.Fatalf("node_modules file should have been excluded, found %s", f)
		}
	}
	if !contains(repo.Files, "src/index.js") {
		t.Fatalf("expected src/index.js to survive, got %v", repo.Files)
	}
}

func TestDetectEntrypoints(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "package.json", `{"name":"test"}`)
	writeFile(t, dir, "src/main.rs", "fn main() {}")

	entrypoints := New(dir).DetectEntrypoints()
	if !anyEntrypoint(entrypoints, "package.json") {
		t.Fatalf("expected package.json entrypoint, got %+v", entrypoints)
	}
}

func TestDetectTechStack(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Cargo.toml", "[package]")

	stack := New(dir).DetectTechStack()
	found := false
	for _, d := range stack.Detected {
		if d.Name == "Rust" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected Rust detection, got %+v", stack.Detected)
	}
	if !contains(stack.PackageManagers, "cargo") {
		t.Fatalf("expected cargo package manager, got %v", stack.PackageManagers)
	}
}

func TestKeyFilesPriority(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "README.md", "# Test")
	writeFile(t, dir, "src/main.rs", "fn main() {}")
	writeFile(t, dir, "ignored.txt", "ignore me")

	repo, err := New(dir).Scan()
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	key := repo.KeyFiles(10)
	if !contains(key, "README.md") || !contains(key, "src/main.rs") {
		t.Fatalf("key files = %v, missing expected entries", key)
	}
}

func TestReadFileRejectsPathTraversal(t *testing.T) {
	parent := t.TempDir()
	child := filepath.Join(parent, "child_dir")
	if err := os.MkdirAll(child, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeFile(t, child, "allowed_file.txt", "content")
	writeFile(t, parent, "sensitive.txt", "secret")

	scanner := New(child)

	content, err := scanner.ReadFile("allowed_file.txt")
	if err != nil {
		t.Fatalf("unexpected error reading allowed file: %v", err)
	}
	if string(content) != "content" {
		t.Fatalf("content = %q, want %q", content, "content")
	}

	_, err = scanner.ReadFile("../sensitive.txt")
	if err == nil {
		t.Fatal("expected traversal error, got nil")
	}
}

func TestReadFileMissingReturnsNilNotError(t *testing.T) {
	dir := t.TempDir()
	scanner := New(dir)
	content, err := scanner.ReadFile("does-not-exist.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if content != nil {
		t.Fatalf("expected nil content for missing file, got %q", content)
	}
}

func TestReadFileOversizedReturnsNilNotError(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "big.txt", "0123456789")
	scanner := New(dir)
	scanner.MaxFileSize = 4
	content, err := scanner.ReadFile("big.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if content != nil {
		t.Fatalf("expected nil content for oversized file, got %q", content)
	}
}

func TestShouldExcludeFile(t *testing.T) {
	if !ShouldExcludeFile("path/to/image.png") {
		t.Fatal("expected .png to be excluded")
	}
	if !ShouldExcludeFile("node_modules/lodash/index.js") {
		t.Fatal("expected node_modules path to be excluded")
	}
	if ShouldExcludeFile("src/main.go") {
		t.Fatal("did not expect src/main.go to be excluded")
	}
}

func TestIsSecretLikelyFile(t *testing.T) {
	if !IsSecretLikelyFile(".env") {
		t.Fatal("expected .env to be secret-likely")
	}
	if !IsSecretLikelyFile("config/.env.production") {
		t.Fatal("expected nested .env.production to be secret-likely")
	}
	if IsSecretLikelyFile("README.md") {
		t.Fatal("did not expect README.md to be secret-likely")
	}
}

func contains(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

func anyEntrypoint(entrypoints []Entrypoint, path string) bool {
	for _, e := range entrypoints {
		if e.FilePath == path {
			return true
		}
	}
	return false
}
