package agent

import (
	"context"

	"github.com/tokosegar/tokobot/internal/catalog"
	"github.com/tokosegar/tokobot/internal/llm"
)

// testProducts mirrors the storefront menu closely enough for matcher
// and strategy assertions.
var testProducts = []catalog.Product{
	{ID: 1, Name: "Es Jeruk", Description: "Jeruk peras segar dengan es", Price: 15000, Calories: 90, Ingredients: "jeruk, gula, es", HealthBenefit: "Kaya vitamin C", OrderCount: 128, AvgRating: 4.6, Category: "jus buah", Available: true, CreatedAt: "2024-01-10"},
	{ID: 2, Name: "Jus Mangga", Description: "Mangga harum manis murni", Price: 18000, Calories: 150, Ingredients: "mangga, es", HealthBenefit: "Vitamin A untuk mata", OrderCount: 96, AvgRating: 4.5, Category: "jus buah", Available: true, CreatedAt: "2024-01-10"},
	{ID: 3, Name: "Jus Alpukat", Description: "Alpukat mentega dengan susu", Price: 20000, Calories: 250, Ingredients: "alpukat, susu, gula aren", HealthBenefit: "Lemak sehat", OrderCount: 87, AvgRating: 4.7, Category: "jus buah", Available: true, CreatedAt: "2024-02-01"},
	{ID: 4, Name: "Green Smoothie", Description: "Bayam, nanas, dan pisang", Price: 25000, Calories: 120, Ingredients: "bayam, nanas, pisang", HealthBenefit: "Serat dan antioksidan", OrderCount: 41, AvgRating: 4.3, Category: "healthy", Available: true, CreatedAt: "2024-03-15"},
	{ID: 5, Name: "Jus Wortel", Description: "Wortel segar dengan jeruk nipis", Price: 16000, Calories: 80, Ingredients: "wortel, jeruk nipis", HealthBenefit: "Beta karoten", OrderCount: 35, AvgRating: 4.2, Category: "healthy", Available: true, CreatedAt: "2024-02-20"},
	{ID: 6, Name: "Es Teh Manis", Description: "Teh melati dengan gula", Price: 8000, Calories: 70, Ingredients: "teh, gula, es", HealthBenefit: "Menyegarkan", OrderCount: 210, AvgRating: 4.4, Category: "minuman segar", Available: true, CreatedAt: "2024-01-05"},
	{ID: 7, Name: "Jus Strawberry", Description: "Stroberi asli tanpa pengawet", Price: 22000, Calories: 110, Ingredients: "stroberi, gula, es", HealthBenefit: "Antioksidan tinggi", OrderCount: 54, AvgRating: 4.5, Category: "jus buah", Available: true, CreatedAt: "2024-03-01"},
	{ID: 8, Name: "Air Mineral", Description: "Air mineral dingin", Price: 5000, Calories: 0, Ingredients: "air mineral", HealthBenefit: "Hidrasi", OrderCount: 180, AvgRating: 4.1, Category: "minuman segar", Available: true, CreatedAt: "2024-01-05"},
}

type fakeCatalog struct {
	products []catalog.Product
	listErr  error
}

func (f *fakeCatalog) ListAvailable(ctx context.Context, filter catalog.Filter) ([]catalog.Product, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := f.products
	if filter.Category != "" {
		var filtered []catalog.Product
		for _, p := range out {
			if p.Category == filter.Category {
				filtered = append(filtered, p)
			}
		}
		out = filtered
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (f *fakeCatalog) GetProduct(ctx context.Context, id int64) (*catalog.Product, error) {
	for i := range f.products {
		if f.products[i].ID == id {
			return &f.products[i], nil
		}
	}
	return nil, nil
}

func (f *fakeCatalog) GetUser(ctx context.Context, id int64) (*catalog.User, error) {
	return nil, nil
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{products: testProducts}
}

// fakeProvider satisfies the orchestrator's full provider surface.
type fakeProvider struct {
	chatContent string
	chatErr     error
	actionJSON  string
	actionErr   error
}

func (f *fakeProvider) Chat(ctx context.Context, messages []llm.Message, temperature float64, maxTokens int) (*llm.ChatResult, error) {
	if f.chatErr != nil {
		return nil, f.chatErr
	}
	return &llm.ChatResult{Content: f.chatContent, Provider: llm.ProviderPrimary}, nil
}

func (f *fakeProvider) TranscribeAction(ctx context.Context, audio []byte, mimeType, catalogContext, locale string) (string, error) {
	return f.actionJSON, f.actionErr
}

func newTurn(input string) *Context {
	return &Context{
		RawInput: input,
		Locale:   "id",
		Entities: make(map[string]string),
	}
}
