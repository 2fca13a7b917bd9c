package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid"

	"github.com/Stavickiy/internet-store/internal/cart"
)

// CartService is the aggregator surface the HTTP layer drives.
type CartService interface {
	Compute(ctx context.Context, userID uuid.UUID, promoCode string) (cart.Totals, error)
	AddProduct(ctx context.Context, userID uuid.UUID, productID int64) error
	Decrement(ctx context.Context, userID uuid.UUID, productID int64) error
	Remove(ctx context.Context, userID uuid.UUID, lineID int64) error
}

// PromoSource exposes the promo code held in the checkout session, so the
// cart view and the checkout steps price against the same code.
type PromoSource interface {
	PromoCode(ctx context.Context, userID uuid.UUID) (string, error)
}

type CartHandler struct {
	carts  CartService
	promos PromoSource
}

func NewCartHandler(carts CartService, promos PromoSource) *CartHandler {
	return &CartHandler{carts: carts, promos: promos}
}

func (h *CartHandler) RegisterRoutes(router chi.Router) {
	router.Get("/cart", h.handleGetCart)
	router.Post("/cart/items/{productID}", h.handleAddProduct)
	router.Post("/cart/items/{productID}/decrement", h.handleDecrement)
	router.Delete("/cart/lines/{lineID}", h.handleRemove)
}

// handleGetCart returns the priced cart view. Quantities may be corrected
// against current stock as a side effect; corrections surface as warnings.
func (h *CartHandler) handleGetCart(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}

	// The session promo drives the totals; a promo_code query parameter
	// overrides it for preview without touching the session.
	promoCode := r.URL.Query().Get("promo_code")
	if promoCode == "" {
		promoCode, err = h.promos.PromoCode(r.Context(), uid)
		if err != nil {
			respondWithDomainError(w, err)
			return
		}
	}

	totals, err := h.carts.Compute(r.Context(), uid, promoCode)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, totals)
}

func (h *CartHandler) handleAddProduct(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}

	productID, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	if err := h.carts.AddProduct(r.Context(), uid, productID); err != nil {
		respondWithDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CartHandler) handleDecrement(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}

	productID, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	if err := h.carts.Decrement(r.Context(), uid, productID); err != nil {
		respondWithDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CartHandler) handleRemove(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}

	lineID, err := strconv.ParseInt(chi.URLParam(r, "lineID"), 10, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid cart line id")
		return
	}

	if err := h.carts.Remove(r.Context(), uid, lineID); err != nil {
		respondWithDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
