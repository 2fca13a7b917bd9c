package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Stavickiy/internet-store/internal/cart"
)

type mockCartService struct {
	computeFunc func(ctx context.Context, userID uuid.UUID, promoCode string) (cart.Totals, error)
}

func (m *mockCartService) Compute(ctx context.Context, userID uuid.UUID, promoCode string) (cart.Totals, error) {
	return m.computeFunc(ctx, userID, promoCode)
}

func (m *mockCartService) AddProduct(ctx context.Context, userID uuid.UUID, productID int64) error {
	return nil
}

func (m *mockCartService) Decrement(ctx context.Context, userID uuid.UUID, productID int64) error {
	return nil
}

func (m *mockCartService) Remove(ctx context.Context, userID uuid.UUID, lineID int64) error {
	return nil
}

type stubPromoSource struct {
	code  string
	calls int
}

func (s *stubPromoSource) PromoCode(ctx context.Context, userID uuid.UUID) (string, error) {
	s.calls++
	return s.code, nil
}

func newCartRouter(carts CartService, promos PromoSource) *chi.Mux {
	r := chi.NewRouter()
	NewCartHandler(carts, promos).RegisterRoutes(r)
	return r
}

func TestCartHandler_GetCart_SessionPromoApplied(t *testing.T) {
	promos := &stubPromoSource{code: "BIG20"}
	var gotPromo string
	carts := &mockCartService{
		computeFunc: func(ctx context.Context, userID uuid.UUID, promoCode string) (cart.Totals, error) {
			gotPromo = promoCode
			return cart.Totals{
				TotalPrice:      208,
				WithoutDiscount: 260,
				DiscountSum:     52,
				PromoCode:       promoCode,
			}, nil
		},
	}
	router := newCartRouter(carts, promos)

	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.Header.Set(userIDHeader, testUser)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "BIG20", gotPromo)

	var totals cart.Totals
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &totals))
	assert.Equal(t, "BIG20", totals.PromoCode)
	assert.Equal(t, int64(208), totals.TotalPrice)
	assert.Equal(t, int64(260), totals.WithoutDiscount)
}

func TestCartHandler_GetCart_QueryParamOverridesSession(t *testing.T) {
	promos := &stubPromoSource{code: "BIG20"}
	var gotPromo string
	carts := &mockCartService{
		computeFunc: func(ctx context.Context, userID uuid.UUID, promoCode string) (cart.Totals, error) {
			gotPromo = promoCode
			return cart.Totals{PromoCode: promoCode}, nil
		},
	}
	router := newCartRouter(carts, promos)

	req := httptest.NewRequest(http.MethodGet, "/cart?promo_code=WELCOME10", nil)
	req.Header.Set(userIDHeader, testUser)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "WELCOME10", gotPromo)
	assert.Equal(t, 0, promos.calls)
}

func TestCartHandler_GetCart_NoPromo(t *testing.T) {
	promos := &stubPromoSource{}
	var gotPromo string
	carts := &mockCartService{
		computeFunc: func(ctx context.Context, userID uuid.UUID, promoCode string) (cart.Totals, error) {
			gotPromo = promoCode
			return cart.Totals{}, nil
		},
	}
	router := newCartRouter(carts, promos)

	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.Header.Set(userIDHeader, testUser)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, gotPromo)
}
