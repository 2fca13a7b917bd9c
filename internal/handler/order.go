package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid"

	"github.com/Stavickiy/internet-store/internal/order"
)

type updateStatusRequest struct {
	Status        *order.Status        `json:"status,omitempty"`
	PaymentStatus *order.PaymentStatus `json:"payment_status,omitempty"`
}

type OrderHandler struct {
	svc order.Service
}

func NewOrderHandler(svc order.Service) *OrderHandler {
	return &OrderHandler{svc: svc}
}

func (h *OrderHandler) RegisterRoutes(router chi.Router) {
	router.Post("/orders", h.handleCreateOrder)
	router.Get("/orders", h.handleListOrders)
	router.Get("/orders/{id}", h.handleGetOrder)
	router.Post("/orders/{id}/cancel", h.handleCancelOrder)
}

// RegisterAdminRoutes mounts the status-edit endpoint. The admin surface is
// expected to sit behind its own gateway auth.
func (h *OrderHandler) RegisterAdminRoutes(router chi.Router) {
	router.Patch("/orders/{id}", h.handleUpdateStatuses)
}

func (h *OrderHandler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}

	o, err := h.svc.Create(r.Context(), uid)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, o)
}

func (h *OrderHandler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}

	orders, err := h.svc.ListByUser(r.Context(), uid)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, orders)
}

func (h *OrderHandler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}

	id, err := uuid.FromString(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	o, err := h.svc.GetByID(r.Context(), uid, id)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, o)
}

func (h *OrderHandler) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}

	id, err := uuid.FromString(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	// ownership check before the cancel touches anything
	if _, err := h.svc.GetByID(r.Context(), uid, id); err != nil {
		respondWithDomainError(w, err)
		return
	}

	o, err := h.svc.Cancel(r.Context(), id)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, o)
}

func (h *OrderHandler) handleUpdateStatuses(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.FromString(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid order id")
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

	o, err := h.svc.UpdateStatuses(r.Context(), id, req.Status, req.PaymentStatus)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, o)
}
