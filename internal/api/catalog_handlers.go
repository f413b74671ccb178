package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/example/slick-storefront/internal/domain/catalog"
)

// DegradedHeader marks a catalog response served empty because the backend
// failed.
const DegradedHeader = "X-Catalog-Degraded"

// ListProducts handles GET /api/products?q=&category=&sort=
func (h *Handlers) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	products, err := h.catalog.Search(r.Context(), q.Get("q"))
	if err != nil {
		h.respondDegraded(w, []catalog.Product{})
		return
	}

	products = catalog.FilterCategory(products, q.Get("category"))
	respondJSON(w, http.StatusOK, catalog.Sorted(products, catalog.SortOrder(q.Get("sort"))))
}

func (h *Handlers) TrendingProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.GetTrending(r.Context())
	if err != nil {
		h.respondDegraded(w, []catalog.Product{})
		return
	}
	respondJSON(w, http.StatusOK, products)
}

func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.catalog.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if p == nil {
		respondJSONError(w, "Không tìm thấy sản phẩm", http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (h *Handlers) ListCategories(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, catalog.Categories)
}

func (h *Handlers) ListTestimonials(w http.ResponseWriter, r *http.Request) {
	testimonials, err := h.catalog.Testimonials(r.Context())
	if err != nil {
		h.respondDegraded(w, []catalog.Testimonial{})
		return
	}
	respondJSON(w, http.StatusOK, testimonials)
}

// respondDegraded serves an empty list so the storefront still renders.
func (h *Handlers) respondDegraded(w http.ResponseWriter, empty any) {
	w.Header().Set(DegradedHeader, "true")
	respondJSON(w, http.StatusOK, empty)
}
