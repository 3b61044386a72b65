// Command openai-stub runs a minimal OpenAI-compatible HTTP server that
// answers /v1/models and /v1/chat/completions with a fixed analysis result,
// for exercising cmd/hqescan's LLM-augmented path without a real provider.
package main

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"strings"
)

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func main() {
	model := os.Getenv("MODEL_ID")
	if strings.TrimSpace(model) == "" {
		model = "test-model"
	}
	addr := os.Getenv("ADDR")
	if strings.TrimSpace(addr) == "" {
		addr = ":8081"
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/models", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"id": model, "object": "model"}},
		})
	})
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		var req chatRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		sys := ""
		if len(req.Messages) > 0 {
			sys = strings.TrimSpace(req.Messages[0].Content)
		}

		var content string
		switch {
		case strings.Contains(sys, "HQE scanner"):
			result := map[string]any{
				"findings": []map[string]any{
					{
						"id":         "SEC-901",
						"severity":   "high",
						"risk":       "high",
						"category":   "security",
						"title":      "Hardcoded credential referenced in configuration",
						"evidence":   map[string]any{"type": "file_line", "file": ".env", "line": 1, "snippet": "SECRET_KEY=abc123"},
						"impact":     "Leaked credential grants unauthorized access if the repository is exposed.",
						"root_cause": "Secret committed directly instead of loaded from a secret store.",
					},
				},
				"todos": []map[string]any{
					{
						"id":           "DEBT-901",
						"severity":     "medium",
						"risk":         "medium",
						"category":     "code_quality",
						"title":        "Add a README describing local setup",
						"evidence":     map[string]any{"type": "file_line", "file": "package.json", "line": 1, "snippet": `{"name":"fixture"}`},
						"fix_approach": "Document prerequisites, install steps, and how to run the test suite.",
					},
				},
				"blockers":   []map[string]any{},
				"is_partial": false,
			}
			b, _ := json.Marshal(result)
			content = string(b)
		default:
			http.Error(w, "unexpected system prompt", http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": content}},
			},
		})
	})

	log.Printf("openai-stub listening on %s (model=%s)", addr, model)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatal(err)
	}
}
