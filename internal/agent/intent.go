package agent

// Intent is the closed category describing what a turn asks for. One
// value per turn; the router never re-classifies an intent that is
// already set.
type Intent string

const (
	IntentOrder          Intent = "ORDER"
	IntentAddToCart      Intent = "ADD_TO_CART"
	IntentRemoveFromCart Intent = "REMOVE_FROM_CART"
	IntentClearCart      Intent = "CLEAR_CART"
	IntentNavigate       Intent = "NAVIGATE"
	IntentSearch         Intent = "SEARCH"
	IntentRecommendation Intent = "RECOMMENDATION"
	IntentProductInfo    Intent = "PRODUCT_INFO"
	IntentCheckout       Intent = "CHECKOUT"
	IntentInquiry        Intent = "INQUIRY"
	IntentHealthInquiry  Intent = "HEALTH_INQUIRY"
	IntentGreeting       Intent = "GREETING"
	IntentOffTopic       Intent = "OFF_TOPIC"
	IntentUnknown        Intent = "UNKNOWN"
)

// Entity keys filled in by the router.
const (
	EntityQuantity    = "quantity"
	EntitySize        = "size"
	EntityPricePref   = "price_preference"
	EntityCategory    = "category_preference"
	EntityDestination = "destination"
)
