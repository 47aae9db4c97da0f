package generator

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

const defaultTimeout = 120 * time.Second

// OllamaConfig holds connection details for an Ollama server.
type OllamaConfig struct {
	Host    string
	Model   string
	Timeout time.Duration
}

// Ollama generates documentation through the Ollama generate API.
type Ollama struct {
	host       string
	model      string
	httpClient *http.Client
}

// NewOllama creates a client for the configured host and model.
func NewOllama(cfg OllamaConfig) *Ollama {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Ollama{
		host:       strings.TrimSuffix(cfg.Host, "/"),
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type generateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

func (o *Ollama) generate(ctx context.Context, prompt string, options map[string]any) (string, error) {
	req := generateRequest{Model: o.model, Prompt: prompt, Options: options}
	body, err := json.Marshal(req)
	if err != nil {
		return "", Permanent(fmt.Errorf("failed to marshal request: %w", err))
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.host+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(httpReq)
	if err != nil {
		return "", Transient(fmt.Errorf("failed to send request: %w", err))
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", Transient(fmt.Errorf("failed to read response: %w", err))
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return "", Transient(fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(payload))))
	}
	if resp.StatusCode != http.StatusOK {
		return "", Permanent(fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(payload))))
	}
	var decoded generateResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return "", Permanent(fmt.Errorf("failed to decode response: %w", err))
	}
	return decoded.Response, nil
}

// GenerateBlockDoc asks the model for a documentation block and extracts the
// comment between the block markers. A response without both markers is a
// permanent failure.
func (o *Ollama) GenerateBlockDoc(ctx context.Context, functionText string) (string, error) {
	prompt := functionText + "\n\n" +
		"You are given a function. Your task is to:\n" +
		"Generate a documentation comment block in this format:\n" +
		"/**\n" +
		"* @brief \n" +
		"* @details \n" +
		"* @param \n" +
		"* @return \n" +
		"*/\n\n" +
		"NOTE: The output MUST begin with '/**' and end with '*/'.\n"
	response, err := o.generate(ctx, prompt, nil)
	if err != nil {
		return "", err
	}
	start := strings.Index(response, "/**")
	if start < 0 {
		return "", Permanent(fmt.Errorf("response carries no documentation block"))
	}
	end := strings.Index(response[start:], "*/")
	if end < 0 {
		return "", Permanent(fmt.Errorf("response carries no documentation block terminator"))
	}
	return response[start : start+end+2], nil
}

// GenerateInlineComments numbers the function lines, asks the model for a
// JSON array of line annotations, and decodes it. Responses wrapped in a
// markdown code fence are tolerated; anything that still fails to parse is
// a permanent failure.
func (o *Ollama) GenerateInlineComments(ctx context.Context, functionText string) ([]InlineComment, error) {
	prompt := "Below is a function. Each line starts with a line number followed by a colon and a space.\n\n" +
		"Return a JSON array of inline comments for the important logic blocks only.\n" +
		"Each object contains:\n" +
		"- \"line\": the 1-based line number the comment belongs to\n" +
		"- \"comment\": a short explanation of the logic\n\n" +
		"Only return a valid JSON array, and nothing else.\n\n" +
		numberLines(functionText)
	response, err := o.generate(ctx, prompt, map[string]any{"temperature": 0.0})
	if err != nil {
		return nil, err
	}
	cleaned := stripCodeFence(response)
	var comments []InlineComment
	if err := json.Unmarshal([]byte(cleaned), &comments); err != nil {
		return nil, Permanent(fmt.Errorf("failed to decode inline comments: %w", err))
	}
	return comments, nil
}

// numberLines prefixes each line with its 1-based number for the prompt.
func numberLines(text string) string {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	var builder strings.Builder
	for i, line := range lines {
		fmt.Fprintf(&builder, "%d: %s\n", i+1, strings.TrimRight(line, " \t"))
	}
	return builder.String()
}

// stripCodeFence removes a surrounding markdown code fence if present.
func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}
	return strings.TrimSpace(text)
}
