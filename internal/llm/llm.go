// Package llm wraps the two external language-model backends behind one
// capability-checked call surface. Chat falls back from the primary to
// the secondary backend and finally to a canned-response table, so a
// turn never fails purely because a provider is down. Transcription and
// image generation exist only on the primary backend and fail closed.
package llm

import (
	"context"
	"errors"
)

// Message is one chat turn sent to a backend.
type Message struct {
	Role    string // "system", "user" or "assistant"
	Content string
}

// ChatResult carries the reply plus which backend actually served it.
type ChatResult struct {
	Content  string
	Provider string
}

// ImageResult is a generated image.
type ImageResult struct {
	Data []byte
	MIME string
}

// Backend names reported in ChatResult.Provider.
const (
	ProviderPrimary  = "gemini"
	ProviderFallback = "fallback"
	ProviderCanned   = "canned"
)

// ErrNotAvailable is returned for capabilities only the primary backend
// has (speech, image) when it is not configured or errors.
var ErrNotAvailable = errors.New("capability not available")

// ChatBackend is the chat-only surface both backends implement.
type ChatBackend interface {
	Name() string
	Configured() bool
	Chat(ctx context.Context, messages []Message, temperature float64, maxTokens int) (string, error)
}

// MultimodalBackend adds the primary-only capabilities.
type MultimodalBackend interface {
	ChatBackend
	Transcribe(ctx context.Context, audio []byte, mimeType, locale string) (string, error)
	TranscribeAction(ctx context.Context, audio []byte, mimeType, catalogContext, locale string) (string, error)
	GenerateImage(ctx context.Context, prompt, reference string) (*ImageResult, error)
}
