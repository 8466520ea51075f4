package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tokosegar/tokobot/internal/config"
)

func TestGeminiChat_MapsRolesAndExtractsText(t *testing.T) {
	var got geminiRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, ":generateContent") {
			t.Errorf("path = %q, want :generateContent suffix", r.URL.Path)
		}
		if key := r.URL.Query().Get("key"); key != "test-key" {
			t.Errorf("key = %q, want test-key", key)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		resp := map[string]any{
			"candidates": []map[string]any{{
				"content": map[string]any{
					"parts": []map[string]any{{"text": "  Es Jeruk enak sekali.  "}},
				},
			}},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := NewGeminiClient(config.BackendConfig{APIKey: "test-key", BaseURL: srv.URL})
	messages := []Message{
		{Role: "system", Content: "kamu asisten toko"},
		{Role: "user", Content: "rekomendasi dong"},
		{Role: "assistant", Content: "coba Es Jeruk"},
		{Role: "user", Content: "oke"},
	}
	text, err := c.Chat(context.Background(), messages, 0.7, 256)
	if err != nil {
		t.Fatalf("Chat error: %v", err)
	}
	if text != "Es Jeruk enak sekali." {
		t.Errorf("text = %q, want trimmed reply", text)
	}

	if got.SystemInstruction == nil || got.SystemInstruction.Parts[0].Text != "kamu asisten toko" {
		t.Errorf("systemInstruction = %+v, want the system message", got.SystemInstruction)
	}
	if len(got.Contents) != 3 {
		t.Fatalf("len(Contents) = %d, want 3", len(got.Contents))
	}
	if got.Contents[1].Role != "model" {
		t.Errorf("assistant role mapped to %q, want model", got.Contents[1].Role)
	}
	if got.GenerationConfig == nil || got.GenerationConfig.MaxOutputTokens != 256 {
		t.Errorf("generationConfig = %+v, want maxOutputTokens 256", got.GenerationConfig)
	}
}

func TestGeminiChat_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewGeminiClient(config.BackendConfig{APIKey: "test-key", BaseURL: srv.URL})
	_, err := c.Chat(context.Background(), []Message{{Role: "user", Content: "halo"}}, 0.7, 256)
	if err == nil {
		t.Fatal("Chat error = nil, want http error")
	}
	if !strings.Contains(err.Error(), "429") {
		t.Errorf("err = %v, want status code in message", err)
	}
}

func TestGeminiChat_ErrorObjectInBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"code": 400, "message": "invalid argument"},
		})
	}))
	defer srv.Close()

	c := NewGeminiClient(config.BackendConfig{APIKey: "test-key", BaseURL: srv.URL})
	_, err := c.Chat(context.Background(), []Message{{Role: "user", Content: "halo"}}, 0.7, 256)
	if err == nil || !strings.Contains(err.Error(), "invalid argument") {
		t.Errorf("err = %v, want embedded error message", err)
	}
}

func TestGeminiClient_NotConfigured(t *testing.T) {
	c := NewGeminiClient(config.BackendConfig{})
	if c.Configured() {
		t.Error("Configured() = true without api key")
	}
	if _, err := c.Chat(context.Background(), nil, 0.7, 256); err == nil {
		t.Error("Chat without api key should fail")
	}
}

func TestOpenAICompatChat_SendsBearerAndParsesChoice(t *testing.T) {
	var gotAuth string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q, want /chat/completions", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{
				"message": map[string]any{"content": "Jus Mangga sedang promo."},
			}},
		})
	}))
	defer srv.Close()

	c := NewOpenAICompatClient(config.BackendConfig{APIKey: "sk-test", BaseURL: srv.URL, Model: "test-model"})
	text, err := c.Chat(context.Background(), []Message{{Role: "user", Content: "promo apa?"}}, 0.5, 128)
	if err != nil {
		t.Fatalf("Chat error: %v", err)
	}
	if text != "Jus Mangga sedang promo." {
		t.Errorf("text = %q", text)
	}
	if gotAuth != "Bearer sk-test" {
		t.Errorf("Authorization = %q, want Bearer sk-test", gotAuth)
	}
	if gotBody["model"] != "test-model" {
		t.Errorf("model = %v, want test-model", gotBody["model"])
	}
}

func TestOpenAICompatChat_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer srv.Close()

	c := NewOpenAICompatClient(config.BackendConfig{APIKey: "sk-test", BaseURL: srv.URL})
	if _, err := c.Chat(context.Background(), []Message{{Role: "user", Content: "halo"}}, 0.5, 128); err == nil {
		t.Error("Chat with empty choices should fail")
	}
}

func TestOpenAICompatClient_NotConfigured(t *testing.T) {
	c := NewOpenAICompatClient(config.BackendConfig{})
	if c.Configured() {
		t.Error("Configured() = true without api key")
	}
	if _, err := c.Chat(context.Background(), nil, 0.5, 128); err == nil {
		t.Error("Chat without api key should fail")
	}
}
