package fakeapi

import (
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/MrEthical07/storefront/api"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type quantityBody struct {
	Quantity int `json:"quantity"`
}

// cartItemsLocked renders the user's cart with current catalog prices.
func (s *Server) cartItemsLocked(userID string) []api.CartItem {
	lines := s.carts[userID]
	items := make([]api.CartItem, 0, len(lines))
	for _, l := range lines {
		p, ok := s.product(l.productID)
		if !ok {
			continue
		}
		items = append(items, api.CartItem{Product: p, Quantity: l.quantity, UnitPrice: p.Price})
	}
	return items
}

func subtotal(items []api.CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total
}

func (s *Server) handleGetCart(w http.ResponseWriter, r *http.Request) {
	userID := claimsFrom(r.Context()).SubjectID
	s.mu.Lock()
	items := s.cartItemsLocked(userID)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, items)
}

func readQuantity(w http.ResponseWriter, r *http.Request) (int, bool) {
	var in quantityBody
	if err := decodeBody(r, &in); err != nil || in.Quantity <= 0 {
		writeError(w, http.StatusBadRequest, "quantity must be positive")
		return 0, false
	}
	return in.Quantity, true
}

func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	qty, ok := readQuantity(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	p, found := s.product(id)
	if !found {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}
	if p.Quantity == 0 {
		writeError(w, http.StatusConflict, "out of stock")
		return
	}

	userID := claimsFrom(r.Context()).SubjectID
	s.mu.Lock()
	defer s.mu.Unlock()
	lines := s.carts[userID]
	if i := slices.IndexFunc(lines, func(l cartLine) bool { return l.productID == id }); i >= 0 {
		lines[i].quantity += qty
	} else {
		s.carts[userID] = append(lines, cartLine{productID: id, quantity: qty})
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	qty, ok := readQuantity(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	userID := claimsFrom(r.Context()).SubjectID

	s.mu.Lock()
	defer s.mu.Unlock()
	lines := s.carts[userID]
	i := slices.IndexFunc(lines, func(l cartLine) bool { return l.productID == id })
	if i < 0 {
		writeError(w, http.StatusNotFound, "item not in cart")
		return
	}
	lines[i].quantity = qty
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	userID := claimsFrom(r.Context()).SubjectID

	s.mu.Lock()
	defer s.mu.Unlock()
	s.carts[userID] = slices.DeleteFunc(s.carts[userID], func(l cartLine) bool { return l.productID == id })
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) readAddress(w http.ResponseWriter, r *http.Request) (api.Address, bool) {
	var a api.Address
	if err := decodeBody(r, &a); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return a, false
	}
	if err := s.validate.Struct(a); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return a, false
	}
	return a, true
}

func (s *Server) handleCreateAddress(w http.ResponseWriter, r *http.Request) {
	a, ok := s.readAddress(w, r)
	if !ok {
		return
	}
	userID := claimsFrom(r.Context()).SubjectID
	a.ID = uuid.NewString()

	s.mu.Lock()
	if s.addresses[userID] == nil {
		s.addresses[userID] = map[string]api.Address{}
	}
	s.addresses[userID][a.ID] = a
	s.addrCreated++
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, a)
}

func (s *Server) handleUpdateAddress(w http.ResponseWriter, r *http.Request) {
	a, ok := s.readAddress(w, r)
	if !ok {
		return
	}
	userID := claimsFrom(r.Context()).SubjectID

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.addresses[userID][a.ID]; !exists {
		writeError(w, http.StatusNotFound, "address not found")
		return
	}
	s.addresses[userID][a.ID] = a
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleRemoveAddress(w http.ResponseWriter, r *http.Request) {
	userID := claimsFrom(r.Context()).SubjectID
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.addresses[userID][id]; !exists {
		writeError(w, http.StatusNotFound, "address not found")
		return
	}
	delete(s.addresses[userID], id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTax(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if strings.TrimSpace(q.Get("country")) == "" || strings.TrimSpace(q.Get("state")) == "" {
		writeError(w, http.StatusBadRequest, "country and state are required")
		return
	}
	userID := claimsFrom(r.Context()).SubjectID
	s.mu.Lock()
	sub := subtotal(s.cartItemsLocked(userID))
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, api.TaxEstimate{TaxAmount: sub.Mul(s.opts.TaxRate).Round(2)})
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	userID := claimsFrom(r.Context()).SubjectID
	shippingID := r.URL.Query().Get("shipping_id")
	key := r.Header.Get(api.HeaderIdempotencyKey)

	s.mu.Lock()
	defer s.mu.Unlock()

	if key != "" {
		if id, seen := s.orderByKey[userID+"|"+key]; seen {
			o := s.orders[id]
			writeJSON(w, http.StatusOK, api.PaymentIntent{OrderID: o.ID, ClientSecret: o.clientSecret})
			return
		}
	}
	addr, ok := s.addresses[userID][shippingID]
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown shipping address")
		return
	}
	items := s.cartItemsLocked(userID)
	if len(items) == 0 {
		writeError(w, http.StatusBadRequest, "cart is empty")
		return
	}

	amount := subtotal(items)
	tax := decimal.Zero
	if addr.State != "" {
		tax = amount.Mul(s.opts.TaxRate).Round(2)
	}
	o := &order{
		Order: api.Order{
			ID:          uuid.NewString(),
			Status:      api.OrderPending,
			ShippingID:  shippingID,
			Currency:    "USD",
			Amount:      amount,
			TaxAmount:   tax,
			TotalAmount: amount.Add(tax),
			CreatedAt:   time.Now().UTC(),
		},
		userID: userID,
	}
	for _, it := range items {
		o.Items = append(o.Items, api.OrderItem{
			ProductID:   it.Product.ID,
			Description: it.Product.Name,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
		})
	}
	o.clientSecret = "pi_" + o.ID + "_secret_" + uuid.NewString()
	s.orders[o.ID] = o
	if key != "" {
		s.orderByKey[userID+"|"+key] = o.ID
	}
	writeJSON(w, http.StatusCreated, api.PaymentIntent{OrderID: o.ID, ClientSecret: o.clientSecret})
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	userID := claimsFrom(r.Context()).SubjectID
	s.mu.Lock()
	o, ok := s.orders[chi.URLParam(r, "id")]
	var out api.Order
	if ok {
		out = o.Order
	}
	s.mu.Unlock()
	if !ok || o.userID != userID {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	userID := claimsFrom(r.Context()).SubjectID
	s.mu.Lock()
	var mine []api.Order
	for _, o := range s.orders {
		if o.userID == userID {
			mine = append(mine, o.Order)
		}
	}
	s.mu.Unlock()
	slices.SortFunc(mine, func(a, b api.Order) int { return b.CreatedAt.Compare(a.CreatedAt) })

	page, limit := pageParams(r)
	writeJSON(w, http.StatusOK, api.OrderPage{
		Items: paginate(mine, page, limit),
		Total: len(mine),
		Page:  page,
		Limit: limit,
	})
}
