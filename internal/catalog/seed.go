package catalog

import (
	"context"
	"log"
)

// Seed populates an empty catalog with the default storefront menu so a
// fresh install has something to sell. No-op when products already exist.
func (s *SQLiteStore) Seed(ctx context.Context) error {
	n, err := s.countProducts(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	for _, p := range defaultMenu {
		if _, err := s.InsertProduct(ctx, p); err != nil {
			return err
		}
	}
	log.Printf("[catalog] seeded %d products", len(defaultMenu))
	return nil
}

var defaultMenu = []Product{
	{
		Name:          "Es Jeruk",
		Description:   "Es jeruk peras segar dengan gula aren",
		Price:         15000,
		Calories:      90,
		Ingredients:   "jeruk peras, gula aren, es batu",
		HealthBenefit: "Kaya vitamin C untuk daya tahan tubuh",
		OrderCount:    128,
		AvgRating:     4.7,
		Category:      "minuman segar",
		Available:     true,
	},
	{
		Name:          "Jus Mangga",
		Description:   "Jus mangga harum manis tanpa pemanis buatan",
		Price:         18000,
		Calories:      150,
		Ingredients:   "mangga harum manis, susu, es batu",
		HealthBenefit: "Sumber vitamin A dan serat untuk pencernaan",
		OrderCount:    96,
		AvgRating:     4.6,
		Category:      "jus buah",
		Available:     true,
	},
	{
		Name:          "Jus Alpukat",
		Description:   "Jus alpukat mentega dengan susu coklat",
		Price:         20000,
		Calories:      250,
		Ingredients:   "alpukat mentega, susu kental manis, coklat",
		HealthBenefit: "Lemak sehat untuk jantung dan energi tahan lama",
		OrderCount:    87,
		AvgRating:     4.8,
		Category:      "jus buah",
		Available:     true,
	},
	{
		Name:          "Green Smoothie",
		Description:   "Smoothie bayam, pisang, dan apel hijau",
		Price:         25000,
		Calories:      120,
		Ingredients:   "bayam, pisang, apel hijau, madu",
		HealthBenefit: "Detoks alami, tinggi zat besi dan antioksidan",
		OrderCount:    41,
		AvgRating:     4.4,
		Category:      "healthy",
		Available:     true,
	},
	{
		Name:          "Jus Wortel",
		Description:   "Jus wortel murni dengan perasan jeruk nipis",
		Price:         16000,
		Calories:      80,
		Ingredients:   "wortel, jeruk nipis, madu",
		HealthBenefit: "Beta karoten untuk kesehatan mata",
		OrderCount:    35,
		AvgRating:     4.3,
		Category:      "healthy",
		Available:     true,
	},
	{
		Name:          "Es Teh Manis",
		Description:   "Teh melati dingin dengan gula batu",
		Price:         8000,
		Calories:      70,
		Ingredients:   "teh melati, gula batu, es batu",
		HealthBenefit: "Antioksidan dari daun teh",
		OrderCount:    210,
		AvgRating:     4.5,
		Category:      "minuman segar",
		Available:     true,
	},
	{
		Name:          "Jus Strawberry",
		Description:   "Jus strawberry segar dengan yogurt",
		Price:         22000,
		Calories:      130,
		Ingredients:   "strawberry, yogurt, madu, es batu",
		HealthBenefit: "Vitamin C dan probiotik untuk pencernaan",
		OrderCount:    54,
		AvgRating:     4.6,
		Category:      "jus buah",
		Available:     true,
	},
	{
		Name:          "Air Mineral",
		Description:   "Air mineral dalam kemasan 600ml",
		Price:         5000,
		Calories:      0,
		Ingredients:   "air mineral",
		HealthBenefit: "Hidrasi harian",
		OrderCount:    180,
		AvgRating:     4.2,
		Category:      "minuman segar",
		Available:     true,
	},
}
