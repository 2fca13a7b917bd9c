package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/Stavickiy/internet-store/internal/cart"
	"github.com/Stavickiy/internet-store/internal/checkout"
)

type memStore struct {
	states map[uuid.UUID]*checkout.State
}

func newMemStore() *memStore {
	return &memStore{states: make(map[uuid.UUID]*checkout.State)}
}

func (s *memStore) Get(ctx context.Context, userID uuid.UUID) (*checkout.State, error) {
	if state, ok := s.states[userID]; ok {
		copied := *state
		return &copied, nil
	}
	return &checkout.State{}, nil
}

func (s *memStore) Save(ctx context.Context, userID uuid.UUID, state *checkout.State) error {
	copied := *state
	s.states[userID] = &copied
	return nil
}

type staticCalculator struct {
	totals cart.Totals
}

func (c *staticCalculator) Compute(ctx context.Context, userID uuid.UUID, promoCode string) (cart.Totals, error) {
	return c.totals, nil
}

func newCheckoutRouter() *chi.Mux {
	wizard := checkout.NewWizard(newMemStore(), &staticCalculator{
		totals: cart.Totals{TotalPrice: 234, WithoutDiscount: 260, DiscountSum: 26},
	})
	r := chi.NewRouter()
	r.Route("/checkout", NewCheckoutHandler(wizard).RegisterRoutes)
	return r
}

func doStep(t *testing.T, router *chi.Mux, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set(userIDHeader, testUser)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCheckoutHandler_FullFlow(t *testing.T) {
	router := newCheckoutRouter()

	w := doStep(t, router, http.MethodPost, "/checkout/summary", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total_price":234`)

	w = doStep(t, router, http.MethodPost, "/checkout/delivery", `{"option":"mail"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doStep(t, router, http.MethodPost, "/checkout/recipient", `{
		"last_name": "Ivanov",
		"first_name": "Ivan",
		"middle_name": "Ivanovich",
		"email": "ivan@example.com",
		"phone": "+79990001122",
		"region": "Region",
		"city": "City",
		"address": "Street 1",
		"postal_code": "344000"
	}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doStep(t, router, http.MethodPost, "/checkout/payment", `{"payment":"cash"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	// 234 plus the mail surcharge
	assert.Contains(t, w.Body.String(), `"total_with_delivery":434`)
}

func TestCheckoutHandler_StepOrderEnforced(t *testing.T) {
	router := newCheckoutRouter()

	w := doStep(t, router, http.MethodPost, "/checkout/delivery", `{"option":"pickup"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doStep(t, router, http.MethodPost, "/checkout/payment", `{"payment":"cash"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCheckoutHandler_Validation(t *testing.T) {
	router := newCheckoutRouter()

	doStep(t, router, http.MethodPost, "/checkout/summary", "")
	doStep(t, router, http.MethodPost, "/checkout/delivery", `{"option":"mail"}`)

	// mail delivery demands the full address with a 6-digit postal code
	w := doStep(t, router, http.MethodPost, "/checkout/recipient", `{
		"last_name": "Ivanov",
		"first_name": "Ivan",
		"email": "ivan@example.com",
		"phone": "+79990001122"
	}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doStep(t, router, http.MethodPost, "/checkout/delivery", `{"option":"teleport"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
