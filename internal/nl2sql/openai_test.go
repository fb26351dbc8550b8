package nl2sql

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestStripMarkdownSQL(t *testing.T) {
	got := StripMarkdownSQL("```sql\nSELECT 1;\n```")
	if got != "SELECT 1;" {
		t.Fatalf("StripMarkdownSQL() = %q", got)
	}
	got = StripMarkdownSQL("  SELECT name FROM dishes  ")
	if got != "SELECT name FROM dishes" {
		t.Fatalf("StripMarkdownSQL() = %q", got)
	}
}

func TestTranslateSendsSchemaHistoryAndHints(t *testing.T) {
	var captured struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("Authorization = %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"content": "```sql\nSELECT name FROM dishes\n```"}},
			},
		})
	}))
	defer server.Close()

	translator, err := NewOpenAITranslator(OpenAIConfig{
		BaseURL: server.URL,
		APIKey:  "sk-test",
		Model:   "gpt-4o-mini",
	})
	if err != nil {
		t.Fatalf("NewOpenAITranslator() error = %v", err)
	}

	result, err := translator.Translate(context.Background(), Request{
		Question: "what vegetarian dishes are there?",
		Tables: []TableContext{
			{TableName: "dishes", Columns: []string{"name", "is_vegetarian"}},
		},
		History: []Turn{
			{Question: "list cuisines", SQL: "SELECT DISTINCT cuisine FROM dishes", Summary: "4 rows"},
		},
		Hints: []string{"Paneer Tikka (dishes.name)"},
	})
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if result.SQL != "SELECT name FROM dishes" {
		t.Fatalf("SQL = %q", result.SQL)
	}
	if result.Model != "gpt-4o-mini" {
		t.Fatalf("Model = %q", result.Model)
	}

	if captured.Model != "gpt-4o-mini" {
		t.Fatalf("request model = %q", captured.Model)
	}
	// system + (user, assistant) history pair + final user question.
	if len(captured.Messages) != 4 {
		t.Fatalf("len(messages) = %d", len(captured.Messages))
	}
	if captured.Messages[0].Role != "system" || !strings.Contains(captured.Messages[0].Content, "Read-only") {
		t.Fatalf("system message = %+v", captured.Messages[0])
	}
	if captured.Messages[1].Content != "list cuisines" {
		t.Fatalf("history question = %q", captured.Messages[1].Content)
	}
	if !strings.Contains(captured.Messages[2].Content, "SELECT DISTINCT cuisine FROM dishes") {
		t.Fatalf("history answer = %q", captured.Messages[2].Content)
	}
	final := captured.Messages[3].Content
	if !strings.Contains(final, `"table_name":"dishes"`) {
		t.Fatalf("final message missing schema: %q", final)
	}
	if !strings.Contains(final, "Paneer Tikka") {
		t.Fatalf("final message missing hint: %q", final)
	}
	if !strings.Contains(final, "what vegetarian dishes are there?") {
		t.Fatalf("final message missing question: %q", final)
	}
}

func TestTranslateRejectsEmptyModelOutput(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"content": "   "}},
			},
		})
	}))
	defer server.Close()

	translator, err := NewOpenAITranslator(OpenAIConfig{BaseURL: server.URL, APIKey: "sk-test"})
	if err != nil {
		t.Fatalf("NewOpenAITranslator() error = %v", err)
	}
	if _, err := translator.Translate(context.Background(), Request{Question: "hi"}); err == nil {
		t.Fatal("Translate() should fail on empty SQL")
	}
}

func TestTranslateSurfacesAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	translator, err := NewOpenAITranslator(OpenAIConfig{BaseURL: server.URL, APIKey: "sk-test"})
	if err != nil {
		t.Fatalf("NewOpenAITranslator() error = %v", err)
	}
	_, err = translator.Translate(context.Background(), Request{Question: "hi"})
	if err == nil {
		t.Fatal("Translate() should surface API errors")
	}
	if !strings.Contains(err.Error(), "status=429") {
		t.Fatalf("error = %v", err)
	}
}

func TestNewOpenAITranslatorValidation(t *testing.T) {
	if _, err := NewOpenAITranslator(OpenAIConfig{APIKey: "sk-test"}); err == nil {
		t.Fatal("missing base URL should fail")
	}
	if _, err := NewOpenAITranslator(OpenAIConfig{BaseURL: "https://api.openai.com"}); err == nil {
		t.Fatal("missing api key should fail")
	}
}
