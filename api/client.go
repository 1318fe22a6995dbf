package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/MrEthical07/storefront/transport"
)

// Client calls the remote API.
type Client struct {
	authorized transport.Transport
	public     transport.Transport
}

// New returns a Client. authorized carries credentials (normally the request
// gateway); public is the bare transport used by endpoints that mint credentials.
func New(authorized, public transport.Transport) *Client {
	if public == nil {
		public = authorized
	}
	return &Client{authorized: authorized, public: public}
}

type call struct {
	method string
	path   string
	query  url.Values
	header http.Header
	in     any
	out    any
}

func (c *Client) do(ctx context.Context, t transport.Transport, cl call) error {
	req := &transport.Request{
		Method: cl.method,
		Path:   cl.path,
		Query:  cl.query,
		Header: cl.header,
	}
	if cl.in != nil {
		body, err := json.Marshal(cl.in)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", cl.method, cl.path, err)
		}
		req.Body = body
	}

	resp, err := t.Do(ctx, req)
	if err != nil {
		return err
	}
	if !resp.OK() {
		return FromResponse(resp)
	}
	if cl.out == nil || len(resp.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, cl.out); err != nil {
		return fmt.Errorf("decode %s %s: %w", cl.method, cl.path, err)
	}
	return nil
}

func (c *Client) tokens(ctx context.Context, t transport.Transport, method, path string, in any) (Tokens, error) {
	var out Tokens
	if err := c.do(ctx, t, call{method: method, path: path, in: in, out: &out}); err != nil {
		return Tokens{}, err
	}
	return out, nil
}

// Login exchanges an email and password for tokens.
func (c *Client) Login(ctx context.Context, email, password string) (Tokens, error) {
	return c.tokens(ctx, c.public, http.MethodPost, PathLogin, Credential{Email: email, Password: password})
}

// LoginAsGuest creates a guest account for anonymous checkout.
func (c *Client) LoginAsGuest(ctx context.Context) (Tokens, error) {
	return c.tokens(ctx, c.public, http.MethodPost, PathGuest, nil)
}

// Register starts registration; the API sends a confirmation code to email.
func (c *Client) Register(ctx context.Context, email string) error {
	return c.do(ctx, c.public, call{method: http.MethodPost, path: PathRegister, in: Credential{Email: email}})
}

// RegisterConfirm completes registration with the emailed code and signs the user in.
func (c *Client) RegisterConfirm(ctx context.Context, email, password, code string) (Tokens, error) {
	return c.tokens(ctx, c.public, http.MethodPost, PathRegisterConfirm, Credential{Email: email, Password: password, InviteCode: code})
}

// UpdateCredentials changes the signed-in user's email and password.
func (c *Client) UpdateCredentials(ctx context.Context, email, password string) (Tokens, error) {
	return c.tokens(ctx, c.authorized, http.MethodPut, PathCredentials, Credential{Email: email, Password: password})
}

// RequestPasswordReset asks the API to email a reset code.
func (c *Client) RequestPasswordReset(ctx context.Context, email string) error {
	return c.do(ctx, c.public, call{method: http.MethodPost, path: PathPasswordReset, in: Credential{Email: email}})
}

// ConfirmPasswordReset sets a new password using the emailed code and signs the user in.
func (c *Client) ConfirmPasswordReset(ctx context.Context, email, password, code string) (Tokens, error) {
	return c.tokens(ctx, c.public, http.MethodPost, PathPasswordResetConfirm, Credential{Email: email, Password: password, ResetCode: code})
}

// Logout revokes refreshToken server-side.
func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	return c.do(ctx, c.authorized, call{
		method: http.MethodPost,
		path:   PathLogout,
		in:     map[string]string{"refresh_token": refreshToken},
	})
}

// ListProducts returns one page of the catalog matching f. Catalog reads need no credentials.
func (c *Client) ListProducts(ctx context.Context, f ProductFilters) (ProductPage, error) {
	q := url.Values{}
	if f.Page > 0 {
		q.Set("page", strconv.Itoa(f.Page))
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	for _, cat := range f.Categories {
		q.Add("category", cat)
	}
	if f.SortBy != "" {
		q.Set("sort_by", f.SortBy)
	}
	if f.InStock {
		q.Set("in_stock", "true")
	}

	var out ProductPage
	err := c.do(ctx, c.authorized, call{method: http.MethodGet, path: PathProducts, query: q, out: &out})
	return out, err
}

// GetProduct returns the product with the given id.
func (c *Client) GetProduct(ctx context.Context, id string) (Product, error) {
	var out Product
	err := c.do(ctx, c.authorized, call{method: http.MethodGet, path: PathProducts + "/" + url.PathEscape(id), out: &out})
	return out, err
}

// ListCategories returns every product category.
func (c *Client) ListCategories(ctx context.Context) ([]Category, error) {
	var out []Category
	err := c.do(ctx, c.authorized, call{method: http.MethodGet, path: PathCategories, out: &out})
	return out, err
}

// GetLocale returns the store's country and currency.
func (c *Client) GetLocale(ctx context.Context) (Locale, error) {
	var out Locale
	err := c.do(ctx, c.authorized, call{method: http.MethodGet, path: PathLocale, out: &out})
	return out, err
}

// GetCart returns the server-side cart.
func (c *Client) GetCart(ctx context.Context) ([]CartItem, error) {
	var out []CartItem
	if err := c.do(ctx, c.authorized, call{method: http.MethodGet, path: PathCart, out: &out}); err != nil {
		return nil, err
	}
	if out == nil {
		out = []CartItem{}
	}
	return out, nil
}

func cartItemPath(productID string) string {
	return PathCartItems + "/" + url.PathEscape(productID)
}

type quantityBody struct {
	Quantity int `json:"quantity"`
}

// AddCartItem adds qty units of the product to the cart.
func (c *Client) AddCartItem(ctx context.Context, productID string, qty int) error {
	return c.do(ctx, c.authorized, call{method: http.MethodPost, path: cartItemPath(productID), in: quantityBody{qty}})
}

// UpdateCartItem sets the cart quantity of the product.
func (c *Client) UpdateCartItem(ctx context.Context, productID string, qty int) error {
	return c.do(ctx, c.authorized, call{method: http.MethodPatch, path: cartItemPath(productID), in: quantityBody{qty}})
}

// RemoveCartItem drops the product from the cart.
func (c *Client) RemoveCartItem(ctx context.Context, productID string) error {
	return c.do(ctx, c.authorized, call{method: http.MethodDelete, path: cartItemPath(productID)})
}

// CreateAddress stores a new address and returns it with its server id.
func (c *Client) CreateAddress(ctx context.Context, a Address) (Address, error) {
	var out Address
	err := c.do(ctx, c.authorized, call{method: http.MethodPost, path: PathAddresses, in: a, out: &out})
	return out, err
}

// UpdateAddress overwrites the address identified by a.ID.
func (c *Client) UpdateAddress(ctx context.Context, a Address) (Address, error) {
	var out Address
	err := c.do(ctx, c.authorized, call{method: http.MethodPut, path: PathAddresses, in: a, out: &out})
	return out, err
}

// RemoveAddress deletes the signed-in user's address with the given id.
func (c *Client) RemoveAddress(ctx context.Context, id string) error {
	return c.do(ctx, c.authorized, call{method: http.MethodDelete, path: PathAddresses + "/" + url.PathEscape(id)})
}

// EstimateTax returns the tax due on the current cart shipped to country and state.
func (c *Client) EstimateTax(ctx context.Context, country, state string) (TaxEstimate, error) {
	var out TaxEstimate
	q := url.Values{"country": {country}, "state": {state}}
	err := c.do(ctx, c.authorized, call{method: http.MethodGet, path: PathTaxEstimate, query: q, out: &out})
	return out, err
}

// CreateOrder turns the cart into an order shipped to shippingID and returns its
// payment intent. Requests repeating idempotencyKey return the same intent.
func (c *Client) CreateOrder(ctx context.Context, shippingID, idempotencyKey string) (PaymentIntent, error) {
	var out PaymentIntent
	h := http.Header{}
	if idempotencyKey != "" {
		h.Set(HeaderIdempotencyKey, idempotencyKey)
	}
	err := c.do(ctx, c.authorized, call{
		method: http.MethodPost,
		path:   PathOrders,
		query:  url.Values{"shipping_id": {shippingID}},
		header: h,
		out:    &out,
	})
	return out, err
}

// GetOrder returns one of the signed-in user's orders.
func (c *Client) GetOrder(ctx context.Context, id string) (Order, error) {
	var out Order
	err := c.do(ctx, c.authorized, call{method: http.MethodGet, path: PathOrders + "/" + url.PathEscape(id), out: &out})
	return out, err
}

// ListOrders returns a page of the signed-in user's orders, newest first.
func (c *Client) ListOrders(ctx context.Context, page, limit int) (OrderPage, error) {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out OrderPage
	err := c.do(ctx, c.authorized, call{method: http.MethodGet, path: PathOrders, query: q, out: &out})
	return out, err
}
