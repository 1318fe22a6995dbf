package fakeapi

import (
	"net/http"
	"slices"
	"strconv"

	"github.com/MrEthical07/storefront/api"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

const defaultPageLimit = 20

func (s *Server) seedCatalog() {
	s.categories = []api.Category{
		{ID: "c-kitchen", Name: "Kitchen", Slug: "kitchen"},
		{ID: "c-apparel", Name: "Apparel", Slug: "apparel"},
		{ID: "c-prints", Name: "Prints", Slug: "prints", ParentID: "c-apparel"},
	}
	s.products = []api.Product{
		{
			ID: "mug", Name: "Enamel Mug", Description: "Camp mug, 350ml.",
			Price: decimal.RequireFromString("12.50"), Quantity: 40, Categories: []string{"kitchen"},
			Images: []api.Image{{ID: "img-mug", URL: "/img/mug.jpg", Type: "primary", AltText: "Enamel mug"}},
		},
		{
			ID: "tee", Name: "Logo Tee", Description: "Heavyweight cotton.",
			Price: decimal.RequireFromString("20.00"), Quantity: 15, Categories: []string{"apparel"},
		},
		{
			ID: "poster", Name: "Trail Poster", Description: "A2 print.",
			Price: decimal.RequireFromString("8.00"), Quantity: 0, Categories: []string{"prints"},
		},
	}
}

func (s *Server) product(id string) (api.Product, bool) {
	for _, p := range s.products {
		if p.ID == id {
			return p, true
		}
	}
	return api.Product{}, false
}

func pageParams(r *http.Request) (page, limit int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageLimit
	}
	return page, limit
}

func paginate[T any](items []T, page, limit int) []T {
	start := (page - 1) * limit
	if start >= len(items) {
		return []T{}
	}
	return items[start:min(start+limit, len(items))]
}

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	wantCats := q["category"]
	inStock := q.Get("in_stock") == "true"

	var matched []api.Product
	for _, p := range s.products {
		if inStock && p.Quantity == 0 {
			continue
		}
		if len(wantCats) > 0 && !slices.ContainsFunc(p.Categories, func(c string) bool {
			return slices.Contains(wantCats, c)
		}) {
			continue
		}
		matched = append(matched, p)
	}

	switch q.Get("sort_by") {
	case "price_asc":
		slices.SortStableFunc(matched, func(a, b api.Product) int { return a.Price.Cmp(b.Price) })
	case "price_desc":
		slices.SortStableFunc(matched, func(a, b api.Product) int { return b.Price.Cmp(a.Price) })
	}

	page, limit := pageParams(r)
	writeJSON(w, http.StatusOK, api.ProductPage{
		Items: paginate(matched, page, limit),
		Total: len(matched),
		Page:  page,
		Limit: limit,
	})
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	p, ok := s.product(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleCategories(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.categories)
}

func (s *Server) handleLocale(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, api.Locale{Country: "US", Currency: "USD"})
}
