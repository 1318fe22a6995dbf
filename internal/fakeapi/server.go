package fakeapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/MrEthical07/storefront/api"
	"github.com/MrEthical07/storefront/jwt"
	"github.com/MrEthical07/storefront/permission"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

const (
	defaultAccessTTL = 15 * time.Minute
	issuerName       = "storefront-fakeapi"
	codeDigits       = 6
)

var defaultTaxRate = decimal.RequireFromString("0.08")

// Options configures a [Server].
type Options struct {
	// AccessTTL is the lifetime of issued access tokens. Default 15m.
	AccessTTL time.Duration
	// Secret signs access tokens with HS256. A fixed test secret is used when empty.
	Secret []byte
	// TaxRate is applied to the cart subtotal. Default 0.08.
	TaxRate decimal.Decimal
	// RefreshDelay holds every refresh response, widening the race window in
	// concurrency tests.
	RefreshDelay time.Duration
	Logger       *slog.Logger
}

type user struct {
	id            string
	email         string
	passwordHash  string
	role          permission.Role
	requiresSetup bool
}

type refreshSession struct {
	userID string
	hash   [32]byte
}

type cartLine struct {
	productID string
	quantity  int
}

type order struct {
	api.Order
	userID       string
	clientSecret string
}

// Server is the in-memory API. It is safe for concurrent use.
type Server struct {
	opts     Options
	issuer   *jwt.Issuer
	decoder  *jwt.Decoder
	validate *validator.Validate
	logger   *slog.Logger
	router   chi.Router

	mu          sync.Mutex
	users       map[string]*user // by email
	usersByID   map[string]*user
	sessions    map[string]*refreshSession
	access      map[string]struct{}
	codes       map[string]string
	products    []api.Product
	categories  []api.Category
	carts       map[string][]cartLine
	addresses   map[string]map[string]api.Address
	orders      map[string]*order
	orderByKey  map[string]string
	calls       map[string]int
	failures    map[string][]int
	addrCreated int
}

// New returns a Server seeded with a small catalog.
func New(opts Options) *Server {
	if opts.AccessTTL <= 0 {
		opts.AccessTTL = defaultAccessTTL
	}
	if len(opts.Secret) == 0 {
		opts.Secret = []byte("storefront-fakeapi-test-secret")
	}
	if opts.TaxRate.IsZero() {
		opts.TaxRate = defaultTaxRate
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	issuer, err := jwt.NewIssuer(jwt.IssuerConfig{
		SigningMethod: jwt.MethodHS256,
		Key:           opts.Secret,
		Issuer:        issuerName,
		AccessTTL:     opts.AccessTTL,
	})
	if err != nil {
		panic(err)
	}

	s := &Server{
		opts:       opts,
		issuer:     issuer,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		logger:     opts.Logger,
		users:      map[string]*user{},
		usersByID:  map[string]*user{},
		sessions:   map[string]*refreshSession{},
		access:     map[string]struct{}{},
		codes:      map[string]string{},
		carts:      map[string][]cartLine{},
		addresses:  map[string]map[string]api.Address{},
		orders:     map[string]*order{},
		orderByKey: map[string]string{},
		calls:      map[string]int{},
		failures:   map[string][]int{},
	}
	s.decoder, err = jwt.NewDecoder(s.DecoderConfig())
	if err != nil {
		panic(err)
	}
	s.seedCatalog()
	s.router = s.routes()
	return s
}

// DecoderConfig returns a configuration that verifies the tokens this server issues.
func (s *Server) DecoderConfig() jwt.DecoderConfig {
	return jwt.DecoderConfig{SigningMethod: jwt.MethodHS256, Key: s.opts.Secret, Issuer: issuerName}
}

// Handler returns the HTTP handler serving the API.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)

	r.Post(api.PathLogin, s.public("login", s.handleLogin))
	r.Post(api.PathGuest, s.public("guest", s.handleGuest))
	r.Post(api.PathRegister, s.public("register", s.handleRegister))
	r.Post(api.PathRegisterConfirm, s.public("register_confirm", s.handleRegisterConfirm))
	r.Post(api.PathPasswordReset, s.public("password_reset", s.handlePasswordReset))
	r.Post(api.PathPasswordResetConfirm, s.public("password_reset_confirm", s.handlePasswordResetConfirm))
	r.Post(api.PathRefreshToken, s.public("refresh", s.handleRefresh))

	r.Put(api.PathCredentials, s.authorized("credentials", s.handleCredentials))
	r.Post(api.PathLogout, s.authorized("logout", s.handleLogout))

	r.Get(api.PathProducts, s.public("list_products", s.handleListProducts))
	r.Get(api.PathProducts+"/{id}", s.public("get_product", s.handleGetProduct))
	r.Get(api.PathCategories, s.public("categories", s.handleCategories))
	r.Get(api.PathLocale, s.public("locale", s.handleLocale))

	r.Get(api.PathCart, s.authorized("get_cart", s.handleGetCart))
	r.Post(api.PathCartItems+"/{id}", s.authorized("add_item", s.handleAddItem))
	r.Patch(api.PathCartItems+"/{id}", s.authorized("update_item", s.handleUpdateItem))
	r.Delete(api.PathCartItems+"/{id}", s.authorized("remove_item", s.handleRemoveItem))

	r.Post(api.PathAddresses, s.authorized("create_address", s.handleCreateAddress))
	r.Put(api.PathAddresses, s.authorized("update_address", s.handleUpdateAddress))
	r.Delete(api.PathAddresses+"/{id}", s.authorized("remove_address", s.handleRemoveAddress))
	r.Get(api.PathTaxEstimate, s.authorized("tax", s.handleTax))
	r.Post(api.PathOrders, s.authorized("create_order", s.handleCreateOrder))
	r.Get(api.PathOrders, s.authorized("list_orders", s.handleListOrders))
	r.Get(api.PathOrders+"/{id}", s.authorized("get_order", s.handleGetOrder))
	return r
}

type claimsKey struct{}

func claimsFrom(ctx context.Context) jwt.Claims {
	c, _ := ctx.Value(claimsKey{}).(jwt.Claims)
	return c
}

// public counts the call and applies injected failures.
func (s *Server) public(name string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if status, fail := s.enter(name); fail {
			writeError(w, status, "injected failure")
			return
		}
		h(w, r)
	}
}

// authorized is public plus bearer-token authentication.
func (s *Server) authorized(name string, h http.HandlerFunc) http.HandlerFunc {
	return s.public(name, func(w http.ResponseWriter, r *http.Request) {
		claims, ok := s.authenticate(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		h(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
	})
}

func (s *Server) enter(name string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[name]++
	queue := s.failures[name]
	if len(queue) == 0 {
		return 0, false
	}
	s.failures[name] = queue[1:]
	return queue[0], true
}

func (s *Server) authenticate(r *http.Request) (jwt.Claims, bool) {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || token == "" {
		return jwt.Claims{}, false
	}
	s.mu.Lock()
	_, issued := s.access[token]
	s.mu.Unlock()
	if !issued {
		return jwt.Claims{}, false
	}

	claims, err := s.decoder.Decode(token)
	if err != nil || !time.Now().Before(claims.ExpiresAt) {
		return jwt.Claims{}, false
	}
	return claims, true
}

// Calls returns how many requests reached the named route.
func (s *Server) Calls(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[name]
}

// FailNext makes the next request to the named route fail with status. Calls queue.
func (s *Server) FailNext(name string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[name] = append(s.failures[name], status)
}

// InvalidateAccessTokens revokes every issued access token; refresh tokens stay valid.
func (s *Server) InvalidateAccessTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = map[string]struct{}{}
}

// AddUser registers an account directly.
func (s *Server) AddUser(email, password string, role permission.Role) error {
	hash, err := hashPassword(password)
	if err != nil {
		return err
	}
	email = strings.ToLower(strings.TrimSpace(email))
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[email]; exists {
		return errors.New("user exists")
	}
	s.addUserLocked(email, hash, role)
	return nil
}

// Code returns the last verification code sent to email.
func (s *Server) Code(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.codes[email]
}

// IssueRefreshToken opens a session for email without a password, for seeding a
// persisted refresh token.
func (s *Server) IssueRefreshToken(email string) (string, error) {
	s.mu.Lock()
	u, ok := s.users[email]
	s.mu.Unlock()
	if !ok {
		return "", errors.New("unknown user")
	}
	tokens, err := s.openSession(u)
	if err != nil {
		return "", err
	}
	return tokens.RefreshToken, nil
}

// SetOrderStatus moves an order through its lifecycle.
func (s *Server) SetOrderStatus(orderID string, status api.OrderStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return errors.New("unknown order")
	}
	o.Status = status
	if status == api.OrderPaid {
		delete(s.carts, o.userID)
	}
	return nil
}

// AddressCount returns how many addresses were created.
func (s *Server) AddressCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addrCreated
}

func decodeBody(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	return json.NewDecoder(r.Body).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
