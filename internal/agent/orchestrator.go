package agent

import (
	"context"

	"github.com/tokosegar/tokobot/internal/catalog"
)

// Provider is the full model surface the orchestrator's agents share.
type Provider interface {
	ChatProvider
	VoiceProvider
}

// Orchestrator runs one turn through guard, router and the specialist
// dispatch table. One pass, terminal; all retry logic lives inside the
// provider.
type Orchestrator struct {
	voice    *VoiceAgent
	chat     *ConversationalAgent
	dispatch map[Intent]ProcessFunc
}

func NewOrchestrator(store catalog.Store, provider Provider, temperature float64, maxTokens int) *Orchestrator {
	product := NewProductAgent(store)
	order := NewOrderAgent(store)
	nav := NewNavigationAgent()
	chat := NewConversationalAgent(store, provider, temperature, maxTokens)
	voice := NewVoiceAgent(store, provider)

	o := &Orchestrator{
		voice: voice,
		chat:  chat,
		dispatch: map[Intent]ProcessFunc{
			IntentOrder:          order.Process,
			IntentAddToCart:      order.Process,
			IntentRemoveFromCart: order.Process,
			IntentClearCart:      order.Process,
			IntentCheckout:       order.Process,
			IntentSearch:         product.Process,
			IntentRecommendation: product.Process,
			IntentProductInfo:    product.Process,
			IntentNavigate:       nav.Process,
		},
	}
	return o
}

// HandleTurn processes one classified turn end to end.
func (o *Orchestrator) HandleTurn(ctx context.Context, turn *Context) Response {
	if turn.Entities == nil {
		turn.Entities = make(map[string]string)
	}

	if turn.IsVoice {
		return o.voice.Process(ctx, turn)
	}

	scope := ClassifyScope(turn.RawInput, turn.Locale)
	if !scope.Allowed {
		turn.SetIntent(IntentOffTopic)
		return Response{
			Success: false,
			Intent:  IntentOffTopic,
			Message: scope.Reply,
		}
	}

	switch scope.Hint {
	case IntentGreeting:
		turn.SetIntent(IntentGreeting)
		return Response{
			Success: true,
			Intent:  IntentGreeting,
			Message: GreetingReply(turn.Locale),
		}
	case IntentHealthInquiry:
		// Topic already resolved; no need to run the router.
		turn.SetIntent(IntentHealthInquiry)
		return o.chat.Process(ctx, turn)
	}

	if turn.DetectedIntent == "" {
		intent, entities := Route(turn.RawInput, turn.Locale)
		turn.SetIntent(intent)
		for k, v := range entities {
			turn.Entities[k] = v
		}
	}

	if fn, ok := o.dispatch[turn.DetectedIntent]; ok {
		return fn(ctx, turn)
	}
	// Everything else, unknown intents included: the conversational
	// agent always has a product-aware model to fall back on.
	return o.chat.Process(ctx, turn)
}
