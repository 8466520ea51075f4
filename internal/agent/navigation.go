package agent

import (
	"context"
	"strings"
)

// NavigationAgent resolves where the user wants to go. It only ever
// emits destinations from the fixed table; on a miss it asks instead
// of guessing.
type NavigationAgent struct{}

func NewNavigationAgent() *NavigationAgent {
	return &NavigationAgent{}
}

func (a *NavigationAgent) Process(ctx context.Context, turn *Context) Response {
	dest := turn.Entity(EntityDestination)
	if dest == "" {
		dest = ResolveDestination(turn.RawInput)
	}

	if dest == "" {
		return Response{
			Success: false,
			Intent:  IntentNavigate,
			Message: navigationClarifyMessage(turn.Locale),
		}
	}

	return Response{
		Success:        true,
		Intent:         IntentNavigate,
		Message:        navigationMessage(turn.Locale, dest),
		Destination:    dest,
		ShouldNavigate: true,
	}
}

func navigationMessage(locale, dest string) string {
	name := destinationName(locale, dest)
	if strings.HasPrefix(locale, "en") {
		return "Taking you to the " + name + " page."
	}
	return "Oke, aku bukakan halaman " + name + " ya."
}

func destinationName(locale, dest string) string {
	en := strings.HasPrefix(locale, "en")
	switch dest {
	case "/cart":
		if en {
			return "cart"
		}
		return "keranjang"
	case "/orders":
		if en {
			return "orders"
		}
		return "pesanan"
	case "/checkout":
		if en {
			return "checkout"
		}
		return "pembayaran"
	case "/promotions":
		if en {
			return "promotions"
		}
		return "promo"
	case "/profile":
		if en {
			return "profile"
		}
		return "profil"
	case "/menu":
		return "menu"
	default:
		if en {
			return "home"
		}
		return "beranda"
	}
}

func navigationClarifyMessage(locale string) string {
	if strings.HasPrefix(locale, "en") {
		return "Where would you like to go? I can open: menu, cart, orders, checkout, promotions, profile, or home."
	}
	return "Mau ke halaman mana? Aku bisa buka: menu, keranjang, pesanan, pembayaran, promo, profil, atau beranda."
}
