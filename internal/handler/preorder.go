package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid"

	"github.com/Stavickiy/internet-store/internal/preorder"
)

type PreorderHandler struct {
	svc    preorder.Service
	basket *preorder.Basket
}

func NewPreorderHandler(svc preorder.Service, basket *preorder.Basket) *PreorderHandler {
	return &PreorderHandler{svc: svc, basket: basket}
}

func (h *PreorderHandler) RegisterRoutes(router chi.Router) {
	router.Get("/preorder-cart", h.handleGetBasket)
	router.Post("/preorder-cart/items/{productID}", h.handleAddProduct)
	router.Post("/preorder-cart/items/{productID}/decrement", h.handleDecrement)
	router.Delete("/preorder-cart/lines/{lineID}", h.handleRemove)

	router.Post("/preorders", h.handleCreate)
	router.Get("/preorders", h.handleList)
	router.Get("/preorders/{id}", h.handleGet)
	router.Post("/preorders/{id}/cancel", h.handleCancel)
}

func (h *PreorderHandler) RegisterAdminRoutes(router chi.Router) {
	router.Patch("/preorders/{id}", h.handleUpdateStatuses)
}

func (h *PreorderHandler) handleGetBasket(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}

	totals, err := h.basket.Compute(r.Context(), uid, "")
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, totals)
}

func (h *PreorderHandler) handleAddProduct(w http.ResponseWriter, r *http.Request) {
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

	if err := h.basket.AddProduct(r.Context(), uid, productID); err != nil {
		respondWithDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *PreorderHandler) handleDecrement(w http.ResponseWriter, r *http.Request) {
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

	if err := h.basket.Decrement(r.Context(), uid, productID); err != nil {
		respondWithDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *PreorderHandler) handleRemove(w http.ResponseWriter, r *http.Request) {
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

	if err := h.basket.Remove(r.Context(), uid, lineID); err != nil {
		respondWithDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *PreorderHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}

	p, err := h.svc.Create(r.Context(), uid)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, p)
}

func (h *PreorderHandler) handleList(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}

	preorders, err := h.svc.ListByUser(r.Context(), uid)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, preorders)
}

func (h *PreorderHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}

	id, err := uuid.FromString(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid pre-order id")
		return
	}

	p, err := h.svc.GetByID(r.Context(), uid, id)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, p)
}

func (h *PreorderHandler) handleCancel(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}

	id, err := uuid.FromString(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid pre-order id")
		return
	}

	if _, err := h.svc.GetByID(r.Context(), uid, id); err != nil {
		respondWithDomainError(w, err)
		return
	}

	p, err := h.svc.Cancel(r.Context(), id)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, p)
}

func (h *PreorderHandler) handleUpdateStatuses(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.FromString(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid pre-order id")
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Status == nil && req.PaymentStatus == nil {
		respondWithError(w, http.StatusBadRequest, "nothing to update")
		return
	}

	p, err := h.svc.UpdateStatuses(r.Context(), id, req.Status, req.PaymentStatus)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, p)
}
