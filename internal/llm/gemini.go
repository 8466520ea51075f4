package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tokosegar/tokobot/internal/config"
)

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com"

// GeminiClient talks to the Gemini generateContent API. It is the only
// backend with speech and image capabilities.
type GeminiClient struct {
	apiKey     string
	baseURL    string
	model      string
	imageModel string
	httpClient *http.Client
}

func NewGeminiClient(cfg config.BackendConfig) *GeminiClient {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultGeminiBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = config.DefaultPrimaryModel
	}
	imageModel := cfg.ImageModel
	if imageModel == "" {
		imageModel = config.DefaultImageModel
	}
	return &GeminiClient{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		model:      model,
		imageModel: imageModel,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *GeminiClient) Name() string { return ProviderPrimary }

func (c *GeminiClient) Configured() bool {
	return strings.TrimSpace(c.apiKey) != ""
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents          []geminiContent  `json:"contents"`
	SystemInstruction *geminiContent   `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenConfig `json:"generationConfig,omitempty"`
}

type geminiGenConfig struct {
	Temperature        float64  `json:"temperature,omitempty"`
	MaxOutputTokens    int      `json:"maxOutputTokens,omitempty"`
	ResponseMimeType   string   `json:"responseMimeType,omitempty"`
	ResponseModalities []string `json:"responseModalities,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *GeminiClient) Chat(ctx context.Context, messages []Message, temperature float64, maxTokens int) (string, error) {
	req := geminiRequest{
		GenerationConfig: &geminiGenConfig{
			Temperature:     temperature,
			MaxOutputTokens: maxTokens,
		},
	}
	for _, m := range messages {
		switch m.Role {
		case "system":
			req.SystemInstruction = &geminiContent{
				Parts: []geminiPart{{Text: m.Content}},
			}
		case "assistant":
			req.Contents = append(req.Contents, geminiContent{
				Role:  "model",
				Parts: []geminiPart{{Text: m.Content}},
			})
		default:
			req.Contents = append(req.Contents, geminiContent{
				Role:  "user",
				Parts: []geminiPart{{Text: m.Content}},
			})
		}
	}

	resp, err := c.generate(ctx, c.model, req)
	if err != nil {
		return "", err
	}
	return firstText(resp)
}

func (c *GeminiClient) Transcribe(ctx context.Context, audio []byte, mimeType, locale string) (string, error) {
	instruction := "Transcribe this audio exactly as spoken. Return only the transcription."
	if strings.HasPrefix(locale, "id") {
		instruction = "Transkripsikan audio ini persis seperti yang diucapkan. Kembalikan hanya teks transkripsi."
	}

	req := geminiRequest{
		Contents: []geminiContent{{
			Role: "user",
			Parts: []geminiPart{
				{Text: instruction},
				{InlineData: &geminiInlineData{
					MimeType: mimeType,
					Data:     base64.StdEncoding.EncodeToString(audio),
				}},
			},
		}},
		GenerationConfig: &geminiGenConfig{MaxOutputTokens: 512},
	}

	resp, err := c.generate(ctx, c.model, req)
	if err != nil {
		return "", err
	}
	return firstText(resp)
}

// TranscribeAction sends audio plus the catalog context in one
// round-trip and asks the model for a strict JSON action object. The
// caller parses the JSON defensively.
func (c *GeminiClient) TranscribeAction(ctx context.Context, audio []byte, mimeType, catalogContext, locale string) (string, error) {
	var sb strings.Builder
	sb.WriteString("Listen to this voice command from a drink store customer and respond with one JSON object:\n")
	sb.WriteString(`{"action":"add_to_cart|navigate|search|reply","products":[{"name":"...","quantity":1}],"destination":"","search_query":"","message":"..."}` + "\n")
	sb.WriteString("Rules: action reflects what the customer asked for; message is a short reply")
	if strings.HasPrefix(locale, "id") {
		sb.WriteString(" in Indonesian")
	}
	sb.WriteString("; only reference products from the menu below.\n\nMenu:\n")
	sb.WriteString(catalogContext)

	req := geminiRequest{
		Contents: []geminiContent{{
			Role: "user",
			Parts: []geminiPart{
				{Text: sb.String()},
				{InlineData: &geminiInlineData{
					MimeType: mimeType,
					Data:     base64.StdEncoding.EncodeToString(audio),
				}},
			},
		}},
		GenerationConfig: &geminiGenConfig{
			MaxOutputTokens:  1024,
			ResponseMimeType: "application/json",
		},
	}

	resp, err := c.generate(ctx, c.model, req)
	if err != nil {
		return "", err
	}
	return firstText(resp)
}

func (c *GeminiClient) GenerateImage(ctx context.Context, prompt, reference string) (*ImageResult, error) {
	parts := []geminiPart{{Text: prompt}}
	if reference != "" {
		parts = append(parts, geminiPart{InlineData: &geminiInlineData{
			MimeType: "image/jpeg",
			Data:     reference,
		}})
	}

	req := geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: parts}},
		GenerationConfig: &geminiGenConfig{
			ResponseModalities: []string{"TEXT", "IMAGE"},
		},
	}

	resp, err := c.generate(ctx, c.imageModel, req)
	if err != nil {
		return nil, err
	}

	for _, cand := range resp.Candidates {
		for _, part := range cand.Content.Parts {
			if part.InlineData == nil {
				continue
			}
			data, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
			if err != nil {
				return nil, fmt.Errorf("decode image data: %w", err)
			}
			return &ImageResult{Data: data, MIME: part.InlineData.MimeType}, nil
		}
	}
	return nil, fmt.Errorf("no image in response")
}

func (c *GeminiClient) generate(ctx context.Context, model string, body geminiRequest) (*geminiResponse, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("gemini api key not set")
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.baseURL, model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("gemini http %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var decoded geminiResponse
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if decoded.Error != nil {
		return nil, fmt.Errorf("gemini error %d: %s", decoded.Error.Code, decoded.Error.Message)
	}
	return &decoded, nil
}

func firstText(resp *geminiResponse) (string, error) {
	for _, cand := range resp.Candidates {
		for _, part := range cand.Content.Parts {
			if text := strings.TrimSpace(part.Text); text != "" {
				return text, nil
			}
		}
	}
	return "", fmt.Errorf("empty content in response")
}
