package llm

import (
	"context"
	"log"
	"strings"

	"github.com/tokosegar/tokobot/internal/config"
)

// Provider is the single call surface the agents use. It owns the
// fallback policy; callers never retry.
type Provider struct {
	primary  MultimodalBackend
	fallback ChatBackend
	locale   string
}

func NewProvider(cfg config.ProvidersConfig, locale string) *Provider {
	return &Provider{
		primary:  NewGeminiClient(cfg.Primary),
		fallback: NewOpenAICompatClient(cfg.Fallback),
		locale:   locale,
	}
}

// NewProviderWithBackends wires explicit backends; used by tests.
func NewProviderWithBackends(primary MultimodalBackend, fallback ChatBackend, locale string) *Provider {
	return &Provider{primary: primary, fallback: fallback, locale: locale}
}

// Chat tries the primary backend, then the secondary, then the canned
// table. The result is always non-empty and tagged with the backend
// that served it.
func (p *Provider) Chat(ctx context.Context, messages []Message, temperature float64, maxTokens int) (*ChatResult, error) {
	if p.primary != nil && p.primary.Configured() {
		content, err := p.primary.Chat(ctx, messages, temperature, maxTokens)
		if err == nil && strings.TrimSpace(content) != "" {
			return &ChatResult{Content: content, Provider: p.primary.Name()}, nil
		}
		if err != nil {
			log.Printf("[llm] primary chat failed, trying fallback: %v", err)
		}
	}

	if p.fallback != nil && p.fallback.Configured() {
		content, err := p.fallback.Chat(ctx, messages, temperature, maxTokens)
		if err == nil && strings.TrimSpace(content) != "" {
			return &ChatResult{Content: content, Provider: p.fallback.Name()}, nil
		}
		if err != nil {
			log.Printf("[llm] fallback chat failed: %v", err)
		}
	}

	return &ChatResult{
		Content:  cannedResponse(messages, p.locale),
		Provider: ProviderCanned,
	}, nil
}

// Transcribe is available on the primary backend only.
func (p *Provider) Transcribe(ctx context.Context, audio []byte, mimeType, locale string) (string, error) {
	if p.primary == nil || !p.primary.Configured() {
		return "", ErrNotAvailable
	}
	text, err := p.primary.Transcribe(ctx, audio, mimeType, locale)
	if err != nil {
		log.Printf("[llm] transcribe failed: %v", err)
		return "", ErrNotAvailable
	}
	return text, nil
}

// TranscribeAction asks the primary backend to transcribe audio and
// emit the strict JSON action object in one round-trip. Returns the raw
// model text; the voice agent parses it defensively.
func (p *Provider) TranscribeAction(ctx context.Context, audio []byte, mimeType, catalogContext, locale string) (string, error) {
	if p.primary == nil || !p.primary.Configured() {
		return "", ErrNotAvailable
	}
	raw, err := p.primary.TranscribeAction(ctx, audio, mimeType, catalogContext, locale)
	if err != nil {
		log.Printf("[llm] transcribe action failed: %v", err)
		return "", ErrNotAvailable
	}
	return raw, nil
}

// GenerateImage is available on the primary backend only.
func (p *Provider) GenerateImage(ctx context.Context, prompt, reference string) (*ImageResult, error) {
	if p.primary == nil || !p.primary.Configured() {
		return nil, ErrNotAvailable
	}
	img, err := p.primary.GenerateImage(ctx, prompt, reference)
	if err != nil {
		log.Printf("[llm] image generation failed: %v", err)
		return nil, ErrNotAvailable
	}
	return img, nil
}
