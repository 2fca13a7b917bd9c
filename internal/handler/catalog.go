package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Stavickiy/internet-store/internal/catalog"
)

type CatalogHandler struct {
	repo *catalog.Repository
}

func NewCatalogHandler(repo *catalog.Repository) *CatalogHandler {
	return &CatalogHandler{repo: repo}
}

func (h *CatalogHandler) RegisterRoutes(router chi.Router) {
	router.Get("/products", h.handleListProducts)
	router.Get("/products/{id}", h.handleGetProduct)
}

// handleListProducts returns the catalog with prices computed from the
// current pricing parameters.
func (h *CatalogHandler) handleListProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	products, err := h.repo.List(ctx)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}

	params, err := h.repo.Params(ctx)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, catalog.PriceAll(products, params))
}

func (h *CatalogHandler) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	ctx := r.Context()

	product, err := h.repo.GetByID(ctx, id)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}

	params, err := h.repo.Params(ctx)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, catalog.Price(*product, params))
}
