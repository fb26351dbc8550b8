package nl2sql

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type OpenAIConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

type OpenAITranslator struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	client      *http.Client
}

func NewOpenAITranslator(cfg OpenAIConfig) (*OpenAITranslator, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gpt-4o-mini"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &OpenAITranslator{
		baseURL:     strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:      strings.TrimSpace(cfg.APIKey),
		model:       model,
		temperature: cfg.Temperature,
		client:      &http.Client{Timeout: timeout},
	}, nil
}

func (t *OpenAITranslator) Translate(ctx context.Context, req Request) (Result, error) {
	payload, err := buildChatPayload(t.model, t.temperature, req)
	if err != nil {
		return Result{}, err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Result{}, fmt.Errorf("marshal chat payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("build chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+t.apiKey)

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return Result{}, fmt.Errorf("request chat completion: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	rawRespBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("read chat response body: %w", err)
	}
	if resp.StatusCode >= 400 {
		return Result{}, fmt.Errorf("chat completion failed status=%d", resp.StatusCode)
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(rawRespBody, &parsed); err != nil {
		return Result{}, fmt.Errorf("decode chat completion response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return Result{}, fmt.Errorf("empty chat completion choices")
	}

	sql := StripMarkdownSQL(parsed.Choices[0].Message.Content)
	if strings.TrimSpace(sql) == "" {
		return Result{}, fmt.Errorf("model returned empty SQL")
	}
	return Result{
		SQL:      sql,
		Provider: "openai-compatible",
		Model:    t.model,
	}, nil
}

func buildChatPayload(model string, temperature float64, req Request) (map[string]any, error) {
	tablesJSON, err := json.Marshal(req.Tables)
	if err != nil {
		return nil, fmt.Errorf("marshal table context: %w", err)
	}

	systemPrompt := "You convert questions about a restaurant menu into a single PostgreSQL SELECT query. " +
		"Rules: output exactly one statement, no semicolons chaining a second one. " +
		"Read-only: never emit INSERT, UPDATE, DELETE, DROP, ALTER or TRUNCATE. " +
		"Use only the listed tables and columns, with plain unquoted identifiers. " +
		"Do not use WITH/CTE syntax. Prefer explicit columns over SELECT *. " +
		"Add LIMIT 200 unless the user asks otherwise. " +
		"Return ONLY SQL. No markdown, no explanation."

	var userPrompt strings.Builder
	userPrompt.WriteString("Schema and sample context (JSON):\n")
	userPrompt.Write(tablesJSON)
	userPrompt.WriteString("\n")
	if len(req.Hints) > 0 {
		userPrompt.WriteString("\nKnown values matching the question (use the closest spelling):\n")
		for _, hint := range req.Hints {
			userPrompt.WriteString("- " + hint + "\n")
		}
	}
	userPrompt.WriteString("\nQuestion:\n")
	userPrompt.WriteString(strings.TrimSpace(req.Question))

	messages := make([]map[string]string, 0, 2+2*len(req.History))
	messages = append(messages, map[string]string{"role": "system", "content": systemPrompt})
	for _, turn := range req.History {
		messages = append(messages, map[string]string{"role": "user", "content": turn.Question})
		messages = append(messages, map[string]string{
			"role":    "assistant",
			"content": turn.SQL + "\n-- " + turn.Summary,
		})
	}
	messages = append(messages, map[string]string{"role": "user", "content": userPrompt.String()})

	return map[string]any{
		"model":       model,
		"messages":    messages,
		"temperature": temperature,
	}, nil
}

// StripMarkdownSQL unwraps a fenced code block if the model ignored the
// no-markdown instruction.
func StripMarkdownSQL(value string) string {
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```sql")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(trimmed, "```")
		return strings.TrimSpace(trimmed)
	}
	return trimmed
}
