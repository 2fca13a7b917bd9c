package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Stavickiy/internet-store/internal/cart"
	"github.com/Stavickiy/internet-store/internal/catalog"
	"github.com/Stavickiy/internet-store/internal/checkout"
	"github.com/Stavickiy/internet-store/internal/order"
	"github.com/Stavickiy/internet-store/internal/preorder"
	"github.com/Stavickiy/internet-store/internal/promo"
)

// userIDHeader identifies the shopper. Authentication lives at the gateway;
// this service trusts the header it is handed.
const userIDHeader = "X-User-ID"

var errMissingUserID = errors.New("missing or invalid " + userIDHeader + " header")

func userID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.FromString(r.Header.Get(userIDHeader))
	if err != nil {
		return uuid.Nil, errMissingUserID
	}
	return id, nil
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("handler: failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"failed to marshal JSON response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(response); err != nil {
		log.Error().Err(err).Msg("handler: failed to write JSON response")
	}
}

func mapErrorToStatusCode(err error) int {
	var stockErr *catalog.InsufficientStockError
	var minSumErr *promo.MinSumError
	var validationErrs validator.ValidationErrors

	switch {
	case errors.Is(err, errMissingUserID):
		return http.StatusUnauthorized
	case errors.Is(err, catalog.ErrProductNotFound),
		errors.Is(err, cart.ErrLineNotFound),
		errors.Is(err, preorder.ErrLineNotFound),
		errors.Is(err, order.ErrOrderNotFound),
		errors.Is(err, preorder.ErrPreOrderNotFound):
		return http.StatusNotFound
	case errors.Is(err, order.ErrAlreadyCanceled),
		errors.Is(err, preorder.ErrAlreadyCanceled),
		errors.Is(err, order.ErrInvalidStatusTransition),
		errors.Is(err, preorder.ErrInvalidStatusTransition):
		return http.StatusConflict
	case errors.As(err, &stockErr),
		errors.As(err, &minSumErr),
		errors.As(err, &validationErrs),
		errors.Is(err, cart.ErrMinQuantity),
		errors.Is(err, order.ErrEmptyCart),
		errors.Is(err, preorder.ErrEmptyBasket),
		errors.Is(err, promo.ErrNoCode),
		errors.Is(err, promo.ErrUnknownCode),
		errors.Is(err, promo.ErrCodeInactive),
		errors.Is(err, checkout.ErrMissingCheckoutState),
		errors.Is(err, checkout.ErrUnknownDelivery),
		errors.Is(err, checkout.ErrUnknownPayment):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondWithDomainError maps known domain errors to their status code and
// passes their message through; anything unknown becomes an opaque 500.
func respondWithDomainError(w http.ResponseWriter, err error) {
	code := mapErrorToStatusCode(err)
	if code == http.StatusInternalServerError {
		log.Error().Err(err).Msg("handler: internal error")
		respondWithError(w, code, "internal server error")
		return
	}
	respondWithError(w, code, err.Error())
}
