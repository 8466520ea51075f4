package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/tokosegar/tokobot/internal/catalog"
)

// VoiceProvider is the provider surface the voice agent needs.
type VoiceProvider interface {
	TranscribeAction(ctx context.Context, audio []byte, mimeType, catalogContext, locale string) (string, error)
}

// VoiceAgent handles spoken commands with a single multimodal call
// that transcribes and decides the action in one round-trip.
type VoiceAgent struct {
	catalog  catalog.Store
	provider VoiceProvider
}

func NewVoiceAgent(store catalog.Store, provider VoiceProvider) *VoiceAgent {
	return &VoiceAgent{catalog: store, provider: provider}
}

type voiceAction struct {
	Action      string         `json:"action"`
	Products    []voiceProduct `json:"products"`
	Destination string         `json:"destination"`
	SearchQuery string         `json:"search_query"`
	Message     string         `json:"message"`
}

type voiceProduct struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

func (a *VoiceAgent) Process(ctx context.Context, turn *Context) Response {
	products, err := a.catalog.ListAvailable(ctx, catalog.Filter{Limit: catalogContextLimit})
	if err != nil {
		log.Printf("[voice-agent] list catalog failed: %v", err)
		products = nil
	}

	raw, err := a.provider.TranscribeAction(ctx, turn.Audio, turn.AudioMIME, CatalogContext(products), turn.Locale)
	if err != nil {
		log.Printf("[voice-agent] transcribe action failed: %v", err)
		return a.fallback(turn)
	}

	action, err := parseVoiceAction(raw)
	if err != nil {
		log.Printf("[voice-agent] parse action failed: %v", err)
		return a.fallback(turn)
	}

	switch action.Action {
	case "add_to_cart":
		return a.addToCart(turn, action, products)
	case "navigate":
		return a.navigate(turn, action)
	case "search":
		return a.search(turn, action)
	default:
		turn.SetIntent(IntentInquiry)
		msg := action.Message
		if strings.TrimSpace(msg) == "" {
			return a.fallback(turn)
		}
		return Response{Success: true, Intent: IntentInquiry, Message: msg}
	}
}

var jsonBlockRe = regexp.MustCompile(`(?s)\{.*\}`)

// parseVoiceAction extracts the first {...} block from the model text
// and decodes it, tolerating surrounding prose and a products array of
// either objects or plain strings.
func parseVoiceAction(raw string) (*voiceAction, error) {
	block := jsonBlockRe.FindString(raw)
	if block == "" {
		return nil, errNoJSON
	}

	var action voiceAction
	if err := json.Unmarshal([]byte(block), &action); err == nil {
		return &action, nil
	}

	var loose struct {
		Action      string   `json:"action"`
		Products    []string `json:"products"`
		Destination string   `json:"destination"`
		SearchQuery string   `json:"search_query"`
		Message     string   `json:"message"`
	}
	if err := json.Unmarshal([]byte(block), &loose); err != nil {
		return nil, err
	}
	action = voiceAction{
		Action:      loose.Action,
		Destination: loose.Destination,
		SearchQuery: loose.SearchQuery,
		Message:     loose.Message,
	}
	for _, name := range loose.Products {
		action.Products = append(action.Products, voiceProduct{Name: name, Quantity: 1})
	}
	return &action, nil
}

var errNoJSON = errors.New("no JSON object in model output")

func (a *VoiceAgent) addToCart(turn *Context, action *voiceAction, products []catalog.Product) Response {
	turn.SetIntent(IntentAddToCart)

	var items []OrderItem
	subtotal := 0.0
	for _, vp := range action.Products {
		p := resolveVoiceProduct(products, vp.Name)
		if p == nil {
			// Unmatched names are dropped from the proposal.
			log.Printf("[voice-agent] no catalog match for %q, dropping", vp.Name)
			continue
		}
		qty := vp.Quantity
		if qty <= 0 {
			qty = 1
		}
		item := OrderItem{
			ProductID:   p.ID,
			Name:        p.Name,
			Quantity:    qty,
			Size:        "medium",
			UnitPrice:   p.Price,
			LineTotal:   p.Price * float64(qty),
			ImageURL:    p.ImageURL,
			Description: p.Description,
		}
		subtotal += item.LineTotal
		items = append(items, item)
	}

	if len(items) == 0 {
		return Response{
			Success: false,
			Intent:  IntentAddToCart,
			Message: clarifyOrderMessage(turn.Locale),
		}
	}

	msg := action.Message
	if strings.TrimSpace(msg) == "" {
		msg = addToCartMessage(turn.Locale, items, subtotal)
	}
	return Response{
		Success:         true,
		Intent:          IntentAddToCart,
		Message:         msg,
		OrderItems:      items,
		ShouldAddToCart: true,
	}
}

// resolveVoiceProduct matches a spoken product name: exact, then
// substring, then best significant-word overlap.
func resolveVoiceProduct(products []catalog.Product, name string) *catalog.Product {
	norm := normalize(name)
	if norm == "" {
		return nil
	}

	for i := range products {
		if normalize(products[i].Name) == norm {
			return &products[i]
		}
	}
	for i := range products {
		pn := normalize(products[i].Name)
		if strings.Contains(pn, norm) || strings.Contains(norm, pn) {
			return &products[i]
		}
	}

	var best *catalog.Product
	bestScore := 0.0
	for i := range products {
		score := wordOverlap(name, products[i].Name)
		if score > bestScore {
			best = &products[i]
			bestScore = score
		}
	}
	if bestScore > 0 {
		return best
	}
	return nil
}

func (a *VoiceAgent) navigate(turn *Context, action *voiceAction) Response {
	turn.SetIntent(IntentNavigate)

	dest := action.Destination
	if dest != "" && !strings.HasPrefix(dest, "/") {
		dest = ResolveDestination(dest)
	}
	if dest == "" {
		return Response{
			Success: false,
			Intent:  IntentNavigate,
			Message: navigationClarifyMessage(turn.Locale),
		}
	}

	msg := action.Message
	if strings.TrimSpace(msg) == "" {
		msg = navigationMessage(turn.Locale, dest)
	}
	return Response{
		Success:        true,
		Intent:         IntentNavigate,
		Message:        msg,
		Destination:    dest,
		ShouldNavigate: true,
	}
}

func (a *VoiceAgent) search(turn *Context, action *voiceAction) Response {
	turn.SetIntent(IntentSearch)

	query := strings.TrimSpace(action.SearchQuery)
	if query == "" {
		return a.fallback(turn)
	}

	msg := action.Message
	if strings.TrimSpace(msg) == "" {
		msg = voiceSearchMessage(turn.Locale, query)
	}
	return Response{
		Success:        true,
		Intent:         IntentSearch,
		Message:        msg,
		SearchQuery:    query,
		ShouldNavigate: true,
		Destination:    "/menu",
	}
}

// voiceSearchMessage announces the search; the menu page runs the
// actual query, so no hit count is known here.
func voiceSearchMessage(locale, query string) string {
	if strings.HasPrefix(locale, "en") {
		return fmt.Sprintf("Searching the menu for %q.", query)
	}
	return fmt.Sprintf("Oke, kucarikan %q di menu ya.", query)
}

// fallback is the fixed reply for any voice failure; the turn never
// errors out just because speech handling did.
func (a *VoiceAgent) fallback(turn *Context) Response {
	turn.SetIntent(IntentUnknown)
	msg := "Maaf, aku kurang menangkap perintah suaranya. Coba ucapkan misalnya: " +
		"\"pesan dua es jeruk\", \"buka halaman menu\", atau \"cari jus mangga\"."
	if strings.HasPrefix(turn.Locale, "en") {
		msg = "Sorry, I didn't catch that voice command. Try saying something like: " +
			"\"order two orange juices\", \"open the menu page\", or \"search for mango juice\"."
	}
	return Response{Success: false, Intent: IntentUnknown, Message: msg}
}
