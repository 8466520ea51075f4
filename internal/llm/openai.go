package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tokosegar/tokobot/internal/config"
)

// OpenAICompatClient is the chat-only secondary backend. Any endpoint
// speaking the chat-completions wire format works (Groq by default).
type OpenAICompatClient struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

func NewOpenAICompatClient(cfg config.BackendConfig) *OpenAICompatClient {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = config.DefaultFallbackURL
	}
	model := cfg.Model
	if model == "" {
		model = config.DefaultFallbackModel
	}
	return &OpenAICompatClient{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		model:      model,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *OpenAICompatClient) Name() string { return ProviderFallback }

func (c *OpenAICompatClient) Configured() bool {
	return strings.TrimSpace(c.apiKey) != ""
}

func (c *OpenAICompatClient) Chat(ctx context.Context, messages []Message, temperature float64, maxTokens int) (string, error) {
	if !c.Configured() {
		return "", fmt.Errorf("fallback api key not set")
	}

	wireMessages := make([]map[string]string, 0, len(messages))
	for _, m := range messages {
		wireMessages = append(wireMessages, map[string]string{
			"role":    m.Role,
			"content": m.Content,
		})
	}

	body := map[string]any{
		"model":       c.model,
		"messages":    wireMessages,
		"max_tokens":  maxTokens,
		"temperature": temperature,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("fallback http %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var decoded struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return "", fmt.Errorf("empty choices in response")
	}
	content := strings.TrimSpace(decoded.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("empty content in response")
	}
	return content, nil
}
