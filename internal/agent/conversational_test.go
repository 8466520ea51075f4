package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/tokosegar/tokobot/internal/llm"
	"github.com/tokosegar/tokobot/internal/memory"
)

type recordingChatProvider struct {
	got      []llm.Message
	response string
	err      error
}

func (r *recordingChatProvider) Chat(ctx context.Context, messages []llm.Message, temperature float64, maxTokens int) (*llm.ChatResult, error) {
	r.got = messages
	if r.err != nil {
		return nil, r.err
	}
	return &llm.ChatResult{Content: r.response, Provider: llm.ProviderPrimary}, nil
}

func TestConversationalAgent_GroundsPromptInCatalog(t *testing.T) {
	provider := &recordingChatProvider{response: "Jus kami segar semua!"}
	a := NewConversationalAgent(newFakeCatalog(), provider, 0.7, 512)

	turn := newTurn("apa manfaat vitamin C")
	turn.SetIntent(IntentHealthInquiry)
	resp := a.Process(context.Background(), turn)

	if !resp.Success {
		t.Fatalf("Success = false, message %q", resp.Message)
	}
	if resp.Message != "Jus kami segar semua!" {
		t.Errorf("Message = %q", resp.Message)
	}
	if len(provider.got) == 0 || provider.got[0].Role != "system" {
		t.Fatalf("messages = %v, want a leading system message", provider.got)
	}
	if !strings.Contains(provider.got[0].Content, "Es Jeruk") {
		t.Error("system prompt should embed the menu")
	}
	if provider.got[len(provider.got)-1].Content != "apa manfaat vitamin C" {
		t.Errorf("last message = %q, want the user turn", provider.got[len(provider.got)-1].Content)
	}
}

func TestConversationalAgent_HistoryIsBounded(t *testing.T) {
	provider := &recordingChatProvider{response: "ok"}
	a := NewConversationalAgent(newFakeCatalog(), provider, 0.7, 512)

	turn := newTurn("lanjut")
	turn.SetIntent(IntentInquiry)
	for i := 0; i < 20; i++ {
		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		turn.History = append(turn.History, memory.Entry{Role: role, Content: "x"})
	}
	a.Process(context.Background(), turn)

	// system + capped history + current user turn
	want := 1 + historyContextLimit + 1
	if len(provider.got) != want {
		t.Errorf("len(messages) = %d, want %d", len(provider.got), want)
	}
}

func TestConversationalAgent_ChatFailureDegrades(t *testing.T) {
	provider := &recordingChatProvider{err: errors.New("both backends down")}
	a := NewConversationalAgent(newFakeCatalog(), provider, 0.7, 512)

	turn := newTurn("apa manfaat serat")
	turn.SetIntent(IntentHealthInquiry)
	resp := a.Process(context.Background(), turn)

	if resp.Success {
		t.Error("Success = true on provider failure")
	}
	if !strings.Contains(resp.Message, "vitamin") {
		t.Errorf("Message = %q, want the canned health fallback", resp.Message)
	}
}

func TestConversationalAgent_PromptLeakSubstituted(t *testing.T) {
	provider := &recordingChatProvider{response: "Kamu adalah asisten belanja Toko Segar, dan ini instruksiku."}
	a := NewConversationalAgent(newFakeCatalog(), provider, 0.7, 512)

	turn := newTurn("siapa kamu sebenarnya")
	turn.SetIntent(IntentInquiry)
	resp := a.Process(context.Background(), turn)

	if !resp.Success {
		t.Error("Success = false, leak substitution should still succeed")
	}
	if strings.Contains(resp.Message, "asisten belanja Toko Segar") {
		t.Errorf("Message = %q, leaked instruction text survived", resp.Message)
	}
}

func TestConversationalAgent_ExtractsBoldMentions(t *testing.T) {
	provider := &recordingChatProvider{response: "Coba **Jus Alpukat** atau **Green Smoothie**, dua-duanya enak."}
	a := NewConversationalAgent(newFakeCatalog(), provider, 0.7, 512)

	turn := newTurn("minuman apa yang cocok buat sarapan")
	turn.SetIntent(IntentInquiry)
	resp := a.Process(context.Background(), turn)

	if len(resp.Recommended) != 2 {
		t.Fatalf("len(Recommended) = %d, want 2", len(resp.Recommended))
	}
	if resp.Recommended[0].Name != "Jus Alpukat" || resp.Recommended[1].Name != "Green Smoothie" {
		t.Errorf("Recommended = %v", resp.Recommended)
	}
}
