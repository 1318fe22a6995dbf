package api

// Endpoint paths, relative to the API base URL.
const (
	PathLogin                = "/login"
	PathGuest                = "/guest"
	PathRegister             = "/register"
	PathRegisterConfirm      = "/register/confirm"
	PathCredentials          = "/credentials"
	PathPasswordReset        = "/password-reset"
	PathPasswordResetConfirm = "/password-reset/confirm"
	PathLogout               = "/logout"
	PathRefreshToken         = "/refresh-token"

	PathProducts   = "/products"
	PathCategories = "/categories"
	PathLocale     = "/locale"

	PathCart      = "/cart"
	PathCartItems = "/cart/items"

	PathAddresses   = "/addresses"
	PathTaxEstimate = "/tax-estimate"
	PathOrders      = "/orders"
)

// HeaderIdempotencyKey deduplicates order creation server-side.
const HeaderIdempotencyKey = "Idempotency-Key"
