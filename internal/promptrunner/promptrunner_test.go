package promptrunner

import (
	"strings"
	"testing"
)

func testTemplate() Template {
	return Template{
		ID:   "test_security",
		Text: "Analyze this {{language}} code for {{focus}} issues:\n\n{{code}}",
		RequiredInputs: []InputSpec{
			{Name: "language", Type: InputString, Required: true},
			{Name: "focus", Type: InputString, Required: true},
			{Name: "code", Type: InputCode, Required: true},
		},
	}
}

func TestValidateInputsSuccess(t *testing.T) {
	r := New()
	req := ExecutionRequest{
		Template:    testTemplate(),
		UserMessage: "Please analyze",
		Inputs: map[string]string{
			"language": "Go",
			"focus":    "security",
			"code":     "func main() {}",
		},
	}
	if _, err := r.BuildPrompt(req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateInputsMissingRequired(t *testing.T) {
	r := New()
	req := ExecutionRequest{
		Template:    testTemplate(),
		UserMessage: "Please analyze",
		Inputs:      map[string]string{"language": "Go"},
	}
	_, err := r.BuildPrompt(req)
	if err == nil {
		t.Fatal("expected error for missing required inputs")
	}
}

func TestSubstituteTemplate(t *testing.T) {
	result := substituteTemplate(testTemplate(), map[string]string{
		"language": "Python",
		"focus":    "SQL injection",
		"code":     "query = f'SELECT * FROM users WHERE id = {user_id}'",
	})
	for _, want := range []string{"Python", "SQL injection", "SELECT * FROM users"} {
		if !strings.Contains(result, want) {
			t.Fatalf("result %q missing %q", result, want)
		}
	}
}

func TestBuildContextBlockEmpty(t *testing.T) {
	result := buildContextBlock(nil, defaultMaxContextBytes)
	if result != "" {
		t.Fatalf("expected empty block, got %q", result)
	}
}

func TestBuildContextBlockWithContent(t *testing.T) {
	contexts := []UntrustedContext{{
		Source:      "src/main.go",
		ContentType: ContentSourceCode,
		Content:     `func main() { fmt.Println("hello") }`,
		SizeBytes:   40,
	}}
	result := buildContextBlock(contexts, defaultMaxContextBytes)
	for _, want := range []string{beginDelimiter, endDelimiter, "src/main.go", "func main()", "UNTRUSTED"} {
		if !strings.Contains(result, want) {
			t.Fatalf("result missing %q: %s", want, result)
		}
	}
}

func TestContextDelimiterEscaping(t *testing.T) {
	contexts := []UntrustedContext{{
		Source:      "test.txt",
		ContentType: ContentSourceCode,
		Content:     beginDelimiter + " malicious " + endDelimiter,
		SizeBytes:   72,
	}}
	result := buildContextBlock(contexts, defaultMaxContextBytes)
	if strings.Contains(result, beginDelimiter+" malicious") {
		t.Fatal("original delimiter should not survive inside escaped content")
	}
	if !strings.Contains(result, "[BEGIN_CONTEXT]") || !strings.Contains(result, "[END_CONTEXT]") {
		t.Fatalf("expected escaped placeholders, got %s", result)
	}
}

func TestBuildContextBlockTruncatesOverBudget(t *testing.T) {
	contexts := []UntrustedContext{{
		Source:      "huge.bin",
		ContentType: ContentUnknown,
		Content:     strings.Repeat("x", 1000),
		SizeBytes:   1000,
	}}
	result := buildContextBlock(contexts, 10)
	if !strings.Contains(result, "truncated") {
		t.Fatalf("expected truncation marker, got %s", result)
	}
}

func TestBuilderMissingRequiredYieldsError(t *testing.T) {
	r := New()
	_, err := r.BuildPrompt(ExecutionRequest{
		Template:    testTemplate(),
		UserMessage: "Analyze please",
		Inputs:      map[string]string{},
	})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestSystemPromptIncludedInBuild(t *testing.T) {
	r := New()
	tmpl := Template{ID: "simple", Text: "{{message}}"}
	prompt, err := r.BuildPrompt(ExecutionRequest{
		Template:    tmpl,
		UserMessage: "Hello",
		Inputs:      map[string]string{},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(prompt, "HQE scanner") {
		t.Fatalf("prompt missing system prompt banner: %s", prompt)
	}
	if !strings.Contains(prompt, "CRITICAL SECURITY DIRECTIVES") {
		t.Fatal("prompt missing security directives")
	}
	if !strings.Contains(prompt, "Hello") {
		t.Fatal("prompt missing user message")
	}
}

func TestIntegerInputValidation(t *testing.T) {
	r := New()
	tmpl := Template{
		ID:             "t",
		Text:           "{{count}}",
		RequiredInputs: []InputSpec{{Name: "count", Type: InputInteger, Required: true}},
	}
	if _, err := r.BuildPrompt(ExecutionRequest{Template: tmpl, Inputs: map[string]string{"count": "not-a-number"}}); err == nil {
		t.Fatal("expected error for non-integer input")
	}
	if _, err := r.BuildPrompt(ExecutionRequest{Template: tmpl, Inputs: map[string]string{"count": "42"}}); err != nil {
		t.Fatalf("unexpected error for valid integer: %v", err)
	}
}
