package llm

import "strings"

// cannedResponse answers a chat when neither backend is available, so
// the turn degrades instead of crashing. Keyed by simple keyword match
// on the last user message.
func cannedResponse(messages []Message, locale string) string {
	var lastUser string
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			lastUser = strings.ToLower(messages[i].Content)
			break
		}
	}

	id := strings.HasPrefix(locale, "id")

	switch {
	case containsAny(lastUser, "halo", "hai", "hello", "hi", "pagi", "siang", "sore", "malam"):
		if id {
			return "Halo! Selamat datang. Mau pesan minuman apa hari ini?"
		}
		return "Hello! Welcome to the store. What would you like to drink today?"
	case containsAny(lastUser, "rekomendasi", "recommend", "saran", "enak", "best"):
		if id {
			return "Menu favorit kami: Es Teh Manis, Es Jeruk, dan Jus Alpukat. Mau coba yang mana?"
		}
		return "Our customer favorites: sweet iced tea, fresh orange juice, and avocado juice. Want to try one?"
	case containsAny(lastUser, "harga", "price", "berapa", "murah", "cheap"):
		if id {
			return "Harga minuman kami mulai dari Rp5.000 sampai Rp25.000. Cek menu untuk detailnya ya."
		}
		return "Our drinks range from Rp5,000 to Rp25,000. Check the menu for details."
	case containsAny(lastUser, "sehat", "manfaat", "vitamin", "health", "nutrisi", "kalori"):
		if id {
			return "Minuman kami dibuat dari buah dan sayur segar, kaya vitamin dan antioksidan alami."
		}
		return "Our drinks are made from fresh fruit and vegetables, rich in natural vitamins and antioxidants."
	}

	if id {
		return "Maaf, asisten sedang sibuk. Silakan lihat-lihat menu dulu ya, atau tanya lagi sebentar lagi."
	}
	return "Sorry, the assistant is busy right now. Feel free to browse the menu, or ask again in a moment."
}

func containsAny(s string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
