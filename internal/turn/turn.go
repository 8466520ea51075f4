// Package turn is the façade callers talk to. It owns everything that
// wraps a single agent pass: input/output sanitizing, session identity,
// history load and append, interaction records and latency accounting.
package turn

import (
	"context"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tokosegar/tokobot/internal/agent"
	"github.com/tokosegar/tokobot/internal/catalog"
	"github.com/tokosegar/tokobot/internal/memory"
	"github.com/tokosegar/tokobot/internal/sanitize"
)

// Handler runs one classified turn. Satisfied by agent.Orchestrator.
type Handler interface {
	HandleTurn(ctx context.Context, turn *agent.Context) agent.Response
}

// Request is one caller turn, text or voice.
type Request struct {
	Text      string `json:"text"`
	Locale    string `json:"locale"`
	UserID    int64  `json:"user_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	IsVoice   bool   `json:"is_voice_command"`

	// Audio is attached by the transport (multipart upload, voice
	// note), never from the JSON body.
	Audio     []byte `json:"-"`
	AudioMIME string `json:"-"`

	// History, when non-nil, replaces the stored session history for
	// this turn (stateless callers that keep their own transcript).
	History []memory.Entry `json:"-"`
}

// OrderData summarizes proposed cart lines with the fixed 10% tax
// applied at this boundary.
type OrderData struct {
	Items    []agent.OrderItem `json:"items"`
	Subtotal float64           `json:"subtotal"`
	Tax      float64           `json:"tax"`
	Total    float64           `json:"total"`
	Notes    string            `json:"notes,omitempty"`
}

const taxRate = 0.10

type Response struct {
	ResponseText     string                     `json:"response_text"`
	SessionID        string                     `json:"session_id"`
	Intent           string                     `json:"intent"`
	OrderData        *OrderData                 `json:"order_data,omitempty"`
	ShowCheckout     bool                       `json:"show_checkout"`
	FeaturedProducts []agent.RecommendedProduct `json:"featured_products,omitempty"`
	Destination      string                     `json:"destination,omitempty"`
	ShouldNavigate   bool                       `json:"should_navigate"`
	SearchQuery      string                     `json:"search_query,omitempty"`
	ResponseTimeMs   int64                      `json:"response_time_ms"`
}

// Service serializes turns per session and degrades around a flaky
// memory or interaction store instead of failing the turn.
type Service struct {
	handler       Handler
	history       memory.Store
	interactions  catalog.InteractionStore
	defaultLocale string

	mu       sync.Mutex
	sessions map[string]*sessionLock
}

// sessionLock is refcounted so lockSession can drop the map entry once
// the last holder releases it.
type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func NewService(handler Handler, history memory.Store, interactions catalog.InteractionStore, defaultLocale string) *Service {
	return &Service{
		handler:       handler,
		history:       history,
		interactions:  interactions,
		defaultLocale: defaultLocale,
		sessions:      make(map[string]*sessionLock),
	}
}

// Handle runs one turn end to end and always returns a well-formed
// response; provider and store failures surface as degraded content,
// not errors.
func (s *Service) Handle(ctx context.Context, req Request) *Response {
	start := time.Now()

	locale := req.Locale
	if locale == "" {
		locale = s.defaultLocale
	}
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	text := sanitize.Input(req.Text)

	unlock := s.lockSession(sessionID)
	defer unlock()

	history := req.History
	if history == nil && s.history != nil {
		h, err := s.history.History(ctx, sessionID)
		if err != nil {
			log.Printf("[turn] load history for %s: %v", sessionID, err)
		} else {
			history = h
		}
	}

	turn := &agent.Context{
		RawInput:  text,
		Locale:    locale,
		SessionID: sessionID,
		History:   history,
		Audio:     req.Audio,
		AudioMIME: req.AudioMIME,
		IsVoice:   req.IsVoice,
		Entities:  make(map[string]string),
	}
	if req.UserID != 0 {
		turn.UserID = strconv.FormatInt(req.UserID, 10)
	}

	res := s.handler.HandleTurn(ctx, turn)
	message := sanitize.Output(res.Message)

	recorded := text
	if recorded == "" && req.IsVoice {
		recorded = "[voice]"
	}
	s.remember(ctx, sessionID, recorded, message, string(res.Intent))
	s.record(ctx, &catalog.Interaction{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		UserID:    turn.UserID,
		Input:     recorded,
		InputType: inputType(req.IsVoice),
		Output:    message,
		Intent:    string(res.Intent),
		LatencyMs: time.Since(start).Milliseconds(),
		Status:    status(res.Success),
	})

	out := &Response{
		ResponseText:     message,
		SessionID:        sessionID,
		Intent:           string(res.Intent),
		ShowCheckout:     res.ShouldAddToCart || res.Intent == agent.IntentCheckout,
		FeaturedProducts: res.Recommended,
		Destination:      res.Destination,
		ShouldNavigate:   res.ShouldNavigate,
		SearchQuery:      res.SearchQuery,
		ResponseTimeMs:   time.Since(start).Milliseconds(),
	}
	if len(res.OrderItems) > 0 {
		out.OrderData = buildOrderData(res.OrderItems)
	}
	return out
}

// History exposes the stored transcript for a session, oldest first.
func (s *Service) History(ctx context.Context, sessionID string) ([]memory.Entry, error) {
	if s.history == nil {
		return nil, nil
	}
	return s.history.History(ctx, sessionID)
}

// ClearHistory drops the stored transcript for a session.
func (s *Service) ClearHistory(ctx context.Context, sessionID string) error {
	if s.history == nil {
		return nil
	}
	return s.history.Clear(ctx, sessionID)
}

// Rate attaches a 1-5 user rating to a recorded interaction.
func (s *Service) Rate(ctx context.Context, interactionID string, rating int) error {
	if s.interactions == nil {
		return nil
	}
	return s.interactions.RateInteraction(ctx, interactionID, rating)
}

func buildOrderData(items []agent.OrderItem) *OrderData {
	var subtotal float64
	for _, it := range items {
		subtotal += it.LineTotal
	}
	tax := subtotal * taxRate
	return &OrderData{
		Items:    items,
		Subtotal: subtotal,
		Tax:      tax,
		Total:    subtotal + tax,
	}
}

// lockSession serializes turns that share a session so interleaved
// appends cannot reorder the transcript. The map entry is dropped when
// the last holder releases it, so idle sessions cost nothing.
func (s *Service) lockSession(sessionID string) func() {
	s.mu.Lock()
	l, ok := s.sessions[sessionID]
	if !ok {
		l = &sessionLock{}
		s.sessions[sessionID] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.sessions, sessionID)
		}
		s.mu.Unlock()
	}
}

func (s *Service) remember(ctx context.Context, sessionID, input, output, intent string) {
	if s.history == nil {
		return
	}
	if input != "" {
		if err := s.history.Append(ctx, sessionID, memory.Entry{Role: "user", Content: input, Intent: intent}); err != nil {
			log.Printf("[turn] append user entry for %s: %v", sessionID, err)
			return
		}
	}
	if output != "" {
		if err := s.history.Append(ctx, sessionID, memory.Entry{Role: "assistant", Content: output, Intent: intent}); err != nil {
			log.Printf("[turn] append assistant entry for %s: %v", sessionID, err)
		}
	}
}

func (s *Service) record(ctx context.Context, rec *catalog.Interaction) {
	if s.interactions == nil {
		return
	}
	if err := s.interactions.RecordInteraction(ctx, rec); err != nil {
		log.Printf("[turn] record interaction %s: %v", rec.ID, err)
	}
}

func inputType(voice bool) string {
	if voice {
		return "voice"
	}
	return "text"
}

func status(success bool) string {
	if success {
		return "success"
	}
	return "clarification"
}

