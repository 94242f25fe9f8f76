package storage

// Namespace prefixes every key written by the application.
const Namespace = "medistore."

// Process-wide storage keys.
const (
	KeyAuthToken          = Namespace + "auth_token"
	KeyRefreshToken       = Namespace + "refresh_token"
	KeyUserData           = Namespace + "user_data"
	KeyAuthSession        = Namespace + "auth_session"
	KeyTheme              = Namespace + "theme_preference"
	KeyOnboardingComplete = Namespace + "onboarding_complete"
	KeyStoreProfile       = Namespace + "store_profile"
	KeyCartData           = Namespace + "cart_data"
	KeyProductsCache      = Namespace + "products_cache"
	KeyOrdersCache        = Namespace + "orders_cache"
)

// CredentialKeys lists the keys erased when a session ends.
var CredentialKeys = []string{
	KeyAuthToken,
	KeyRefreshToken,
	KeyUserData,
	KeyAuthSession,
}
