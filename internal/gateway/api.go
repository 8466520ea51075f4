package gateway

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/tokosegar/tokobot/internal/llm"
	"github.com/tokosegar/tokobot/internal/turn"
)

// maxAudioBytes caps the voice upload size (voice commands are short).
const maxAudioBytes = 5 << 20

func (g *Gateway) router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/health"))

	r.Route("/api", func(r chi.Router) {
		r.Post("/chat", g.handleChat)
		r.Post("/voice", g.handleVoice)
		r.Get("/history/{session}", g.handleGetHistory)
		r.Delete("/history/{session}", g.handleClearHistory)
		r.Post("/rate", g.handleRate)
		r.Post("/promo-image", g.handlePromoImage)
	})

	return r
}

func (g *Gateway) handleChat(w http.ResponseWriter, r *http.Request) {
	var req turn.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	res := g.service.Handle(r.Context(), req)
	writeJSON(w, http.StatusOK, res)
}

// handleVoice accepts a multipart form with an "audio" part plus
// optional locale and session_id fields.
func (g *Gateway) handleVoice(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxAudioBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		writeError(w, http.StatusBadRequest, "audio file is required")
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(io.LimitReader(file, maxAudioBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read audio upload")
		return
	}
	if len(audio) == 0 {
		writeError(w, http.StatusBadRequest, "audio file is empty")
		return
	}
	if len(audio) > maxAudioBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "audio file too large")
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = http.DetectContentType(audio)
	}

	res := g.service.Handle(r.Context(), turn.Request{
		Locale:    r.FormValue("locale"),
		SessionID: r.FormValue("session_id"),
		IsVoice:   true,
		Audio:     audio,
		AudioMIME: mimeType,
	})
	writeJSON(w, http.StatusOK, res)
}

func (g *Gateway) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session")
	entries, err := g.service.History(r.Context(), sessionID)
	if err != nil {
		log.Printf("[gateway] get history %s: %v", sessionID, err)
		writeError(w, http.StatusInternalServerError, "history unavailable")
		return
	}

	type entry struct {
		Role      string `json:"role"`
		Content   string `json:"content"`
		Intent    string `json:"intent,omitempty"`
		CreatedAt string `json:"created_at"`
	}
	out := make([]entry, 0, len(entries))
	for _, e := range entries {
		out = append(out, entry{Role: e.Role, Content: e.Content, Intent: e.Intent, CreatedAt: e.CreatedAt})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": sessionID,
		"history":    out,
	})
}

func (g *Gateway) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session")
	if err := g.service.ClearHistory(r.Context(), sessionID); err != nil {
		log.Printf("[gateway] clear history %s: %v", sessionID, err)
		writeError(w, http.StatusInternalServerError, "clear history failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session_id": sessionID, "cleared": true})
}

func (g *Gateway) handleRate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		InteractionID string `json:"interaction_id"`
		Rating        int    `json:"rating"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.InteractionID == "" {
		writeError(w, http.StatusBadRequest, "interaction_id is required")
		return
	}
	if req.Rating < 1 || req.Rating > 5 {
		writeError(w, http.StatusBadRequest, "rating must be between 1 and 5")
		return
	}

	if err := g.service.Rate(r.Context(), req.InteractionID, req.Rating); err != nil {
		log.Printf("[gateway] rate %s: %v", req.InteractionID, err)
		writeError(w, http.StatusInternalServerError, "rating failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rated": true})
}

func (g *Gateway) handlePromoImage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Prompt    string `json:"prompt"`
		Reference string `json:"reference,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Prompt == "" {
		writeError(w, http.StatusBadRequest, "prompt is required")
		return
	}

	img, err := g.provider.GenerateImage(r.Context(), req.Prompt, req.Reference)
	if err != nil {
		if errors.Is(err, llm.ErrNotAvailable) {
			writeError(w, http.StatusServiceUnavailable, "image generation not available")
			return
		}
		log.Printf("[gateway] promo image: %v", err)
		writeError(w, http.StatusBadGateway, "image generation failed")
		return
	}

	w.Header().Set("Content-Type", img.MIME)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img.Data)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[gateway] encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
