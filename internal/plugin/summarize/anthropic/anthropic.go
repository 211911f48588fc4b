// Package anthropic implements the Summarizer interface over the Claude
// Messages API. Grounded on original_source/src/agent_memory/llm.py's
// _summarize_claude/extract_patterns, reshaped as a plain net/http client
// in the style of the teacher's internal/plugin/embed/openai.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/chirino/agent-memory/internal/config"
	"github.com/chirino/agent-memory/internal/model"
	registrysummarize "github.com/chirino/agent-memory/internal/registry/summarize"
)

const (
	apiURL       = "https://api.anthropic.com/v1/messages"
	apiVersion   = "2023-06-01"
	defaultModel = "claude-3-5-haiku-latest"
	maxTokens    = 1024
)

// compactionPrompt mirrors llm.py's COMPACTION_PROMPT verbatim in spirit:
// same rules, same "no preamble" instruction.
const compactionPrompt = `Summarize the following %d related memories into a single, comprehensive memory.

Rules:
- Preserve all key facts, decisions, and important context
- Be concise but complete
- Use clear, direct language
- If memories contradict each other, keep the most recent information
- Output only the summary, no preamble or explanation

Memories (oldest to newest):
%s

Summary:`

const extractPatternsPrompt = `Analyze the following session content and extract any error-fix patterns.

For each pattern found, return a JSON array of objects with these fields:
- "error": The error message or symptom
- "cause": The root cause
- "fix": How it was fixed
- "context": Where it occurred (file, module, component)

Return ONLY a JSON array. If no patterns found, return: []

Session content:
%s`

func init() {
	registrysummarize.Register(registrysummarize.Plugin{
		Name:   "anthropic",
		Loader: load,
	})
}

func load(ctx context.Context) (registrysummarize.Summarizer, error) {
	cfg := config.FromContext(ctx)
	if cfg == nil || cfg.AnthropicAPIKey == "" {
		return nil, fmt.Errorf("anthropic summarizer: ANTHROPIC_API_KEY is required")
	}
	model := cfg.LLM.Model
	if model == "" {
		model = defaultModel
	}
	return &Summarizer{apiKey: cfg.AnthropicAPIKey, model: model}, nil
}

// Summarizer calls the Claude Messages API directly over net/http, mirroring
// the hand-rolled HTTP client style the teacher uses for its OpenAI embedder
// rather than pulling in an SDK for a single endpoint.
type Summarizer struct {
	apiKey string
	model  string
}

func (s *Summarizer) Name() string { return "anthropic" }

type messagesRequest struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens"`
	Messages  []messageItem `json:"messages"`
}

type messageItem struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (s *Summarizer) call(ctx context.Context, prompt string) (string, error) {
	reqBody, err := json.Marshal(messagesRequest{
		Model:     s.model,
		MaxTokens: maxTokens,
		Messages:  []messageItem{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(reqBody))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", s.apiKey)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("anthropic summarize request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("anthropic summarize: read response: %w", err)
	}

	var result messagesResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("anthropic summarize: parse response: %w", err)
	}
	if result.Error != nil {
		return "", fmt.Errorf("anthropic summarize error: %s", result.Error.Message)
	}
	if len(result.Content) == 0 {
		return "", fmt.Errorf("anthropic summarize: empty response")
	}
	return strings.TrimSpace(result.Content[0].Text), nil
}

func (s *Summarizer) Summarize(ctx context.Context, contents []string) (string, error) {
	if len(contents) == 0 {
		return "", fmt.Errorf("anthropic summarize: no memories to summarize")
	}
	var b strings.Builder
	for i, c := range contents {
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString(". ")
		b.WriteString(c)
		b.WriteString("\n")
	}
	prompt := fmt.Sprintf(compactionPrompt, len(contents), b.String())
	return s.call(ctx, prompt)
}

func (s *Summarizer) ExtractPatterns(ctx context.Context, content string) ([]model.Pattern, error) {
	if content == "" {
		return nil, nil
	}
	raw, err := s.call(ctx, fmt.Sprintf(extractPatternsPrompt, content))
	if err != nil {
		return nil, nil // upstream failure degrades to "no patterns", per spec.md §7
	}
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var patterns []model.Pattern
	if err := json.Unmarshal([]byte(text), &patterns); err != nil {
		return nil, nil
	}
	return patterns, nil
}

var _ registrysummarize.Summarizer = (*Summarizer)(nil)
