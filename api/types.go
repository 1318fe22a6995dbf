package api

import (
	"time"

	"github.com/MrEthical07/storefront/session"
	"github.com/shopspring/decimal"
)

// Tokens is the credential pair returned by the auth endpoints.
type Tokens struct {
	Token         string `json:"token"`
	RefreshToken  string `json:"refresh_token"`
	RequiresSetup bool   `json:"requires_setup,omitempty"`
}

// Session converts the pair for the session manager.
func (t Tokens) Session() session.Tokens {
	return session.Tokens{AccessToken: t.Token, RefreshToken: t.RefreshToken, RequiresSetup: t.RequiresSetup}
}

// Credential is the body of the login, registration and password endpoints.
type Credential struct {
	Email      string `json:"email"`
	Password   string `json:"password,omitempty"`
	InviteCode string `json:"invite_code,omitempty"`
	ResetCode  string `json:"reset_code,omitempty"`
}

// Image is a product photo.
type Image struct {
	ID           string `json:"id"`
	URL          string `json:"url"`
	Type         string `json:"type"`
	DisplayOrder int    `json:"display_order"`
	AltText      string `json:"alt_text,omitempty"`
}

// Product is a catalog entry.
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	Categories  []string        `json:"categories,omitempty"`
	Images      []Image         `json:"images,omitempty"`
}

// ProductPage is one page of the product listing.
type ProductPage struct {
	Items []Product `json:"items"`
	Total int       `json:"total"`
	Page  int       `json:"page"`
	Limit int       `json:"limit"`
}

// ProductFilters narrows the product listing. Zero values are omitted.
type ProductFilters struct {
	Page       int
	Limit      int
	Categories []string
	// SortBy is "price_asc", "price_desc" or empty for newest first.
	SortBy  string
	InStock bool
}

// Category groups products.
type Category struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description,omitempty"`
	ParentID    string `json:"parent_id,omitempty"`
}

// Locale is the store's configured country and currency.
type Locale struct {
	Country  string `json:"country"`
	Currency string `json:"currency"`
}

// CartItem is one line of the server-side cart.
type CartItem struct {
	Product   Product         `json:"product"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// Address is a shipping address. Country and state are ISO codes.
type Address struct {
	ID         string `json:"id,omitempty"`
	Addressee  string `json:"addressee"`
	Line1      string `json:"line1" validate:"required"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city" validate:"required"`
	State      string `json:"state"`
	Country    string `json:"country" validate:"required,len=2,alpha"`
	PostalCode string `json:"postal_code" validate:"required"`
	Email      string `json:"email,omitempty" validate:"omitempty,email"`
}

// TaxEstimate is the tax due on the cart for a destination.
type TaxEstimate struct {
	TaxAmount decimal.Decimal `json:"tax_amount"`
}

// PaymentIntent is issued by order creation.
type PaymentIntent struct {
	OrderID      string `json:"order_id"`
	ClientSecret string `json:"client_secret"`
}

// OrderStatus is the server-side lifecycle of an order.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderPaid      OrderStatus = "paid"
	OrderFulfilled OrderStatus = "fulfilled"
	OrderShipped   OrderStatus = "shipped"
	OrderDelivered OrderStatus = "delivered"
	OrderRefunded  OrderStatus = "refunded"
	OrderCanceled  OrderStatus = "canceled"
)

// Settled reports whether payment has been captured for the order.
func (s OrderStatus) Settled() bool {
	switch s {
	case OrderPaid, OrderFulfilled, OrderShipped, OrderDelivered:
		return true
	}
	return false
}

// OrderItem is one order line, priced at order time.
type OrderItem struct {
	ProductID   string          `json:"product_id"`
	Description string          `json:"description"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// Order is a placed order.
type Order struct {
	ID          string          `json:"id"`
	Status      OrderStatus     `json:"status"`
	ShippingID  string          `json:"shipping_id"`
	Currency    string          `json:"currency"`
	Amount      decimal.Decimal `json:"amount"`
	TaxAmount   decimal.Decimal `json:"tax_amount"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Items       []OrderItem     `json:"items"`
	CreatedAt   time.Time       `json:"created_at"`
}

// OrderPage is one page of orders.
type OrderPage struct {
	Items []Order `json:"items"`
	Total int     `json:"total"`
	Page  int     `json:"page"`
	Limit int     `json:"limit"`
}
