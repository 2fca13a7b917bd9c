package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Stavickiy/internet-store/internal/cart"
	"github.com/Stavickiy/internet-store/internal/checkout"
)

type applyPromoRequest struct {
	Code string `json:"code"`
}

type setDeliveryRequest struct {
	Option checkout.DeliveryOption `json:"option"`
}

type setPaymentRequest struct {
	Payment checkout.PaymentType `json:"payment"`
}

type summaryResponse struct {
	State  *checkout.State `json:"state"`
	Totals cart.Totals     `json:"totals"`
}

// CheckoutHandler serves one wizard instance. The same handler is mounted
// twice: under /checkout for the regular flow and under /preorder-checkout
// for the pre-order flow, each with its own session store and calculator.
type CheckoutHandler struct {
	wizard *checkout.Wizard
}

func NewCheckoutHandler(wizard *checkout.Wizard) *CheckoutHandler {
	return &CheckoutHandler{wizard: wizard}
}

func (h *CheckoutHandler) RegisterRoutes(router chi.Router) {
	router.Post("/promo", h.handleApplyPromo)
	router.Post("/summary", h.handleSummary)
	router.Post("/delivery", h.handleSetDelivery)
	router.Post("/recipient", h.handleSetRecipient)
	router.Post("/payment", h.handleSetPayment)
}

func (h *CheckoutHandler) handleApplyPromo(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}

	var req applyPromoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.wizard.ApplyPromoCode(r.Context(), uid, req.Code); err != nil {
		respondWithDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CheckoutHandler) handleSummary(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}

	state, totals, err := h.wizard.Summary(r.Context(), uid)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, summaryResponse{State: state, Totals: totals})
}

func (h *CheckoutHandler) handleSetDelivery(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}

	var req setDeliveryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	state, err := h.wizard.SetDelivery(r.Context(), uid, req.Option)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, state)
}

func (h *CheckoutHandler) handleSetRecipient(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}

	var recipient checkout.Recipient
	if err := json.NewDecoder(r.Body).Decode(&recipient); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	state, err := h.wizard.SetRecipient(r.Context(), uid, recipient)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, state)
}

func (h *CheckoutHandler) handleSetPayment(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}

	var req setPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	review, err := h.wizard.SetPayment(r.Context(), uid, req.Payment)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, review)
}
