package preorder_test

import (
	"context"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Stavickiy/internet-store/internal/catalog"
	"github.com/Stavickiy/internet-store/internal/preorder"
)

type mockCartRepository struct {
	listByUserFunc   func(ctx context.Context, userID uuid.UUID) ([]preorder.Line, error)
	getByProductFunc func(ctx context.Context, userID uuid.UUID, productID int64) (*preorder.Line, error)
	addFunc          func(ctx context.Context, userID uuid.UUID, productID int64) error
	setQuantityFunc  func(ctx context.Context, lineID int64, quantity int) error
	removeFunc       func(ctx context.Context, userID uuid.UUID, lineID int64) error
	clearFunc        func(ctx context.Context, q preorder.DB, userID uuid.UUID) error
}

func (m *mockCartRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]preorder.Line, error) {
	return m.listByUserFunc(ctx, userID)
}

func (m *mockCartRepository) GetByProduct(ctx context.Context, userID uuid.UUID, productID int64) (*preorder.Line, error) {
	return m.getByProductFunc(ctx, userID, productID)
}

func (m *mockCartRepository) Add(ctx context.Context, userID uuid.UUID, productID int64) error {
	return m.addFunc(ctx, userID, productID)
}

func (m *mockCartRepository) SetQuantity(ctx context.Context, lineID int64, quantity int) error {
	return m.setQuantityFunc(ctx, lineID, quantity)
}

func (m *mockCartRepository) Remove(ctx context.Context, userID uuid.UUID, lineID int64) error {
	return m.removeFunc(ctx, userID, lineID)
}

func (m *mockCartRepository) Clear(ctx context.Context, q preorder.DB, userID uuid.UUID) error {
	return m.clearFunc(ctx, q, userID)
}

type mockProductStore struct {
	getByIDFunc func(ctx context.Context, id int64) (*catalog.Product, error)
	params      catalog.PricingParams
}

func (m *mockProductStore) GetByID(ctx context.Context, id int64) (*catalog.Product, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockProductStore) Params(ctx context.Context) (catalog.PricingParams, error) {
	return m.params, nil
}

func TestBasket_Compute(t *testing.T) {
	params := catalog.PricingParams{ExchangeRate: 1, MarkupPercent: 30}

	t.Run("prices_without_promo_or_stock_checks", func(t *testing.T) {
		// zero stock is the normal case for a pre-order line
		lines := []preorder.Line{
			{ID: 1, Quantity: 5, Product: catalog.Product{ID: 7, Title: "Vitamin A", BasePrice: 100, StockCount: 0, Discount: 10}},
		}
		repo := &mockCartRepository{
			listByUserFunc: func(ctx context.Context, userID uuid.UUID) ([]preorder.Line, error) {
				return lines, nil
			},
		}
		basket := preorder.NewBasket(repo, &mockProductStore{params: params})

		totals, err := basket.Compute(context.Background(), testUser, "SPRING20")

		require.NoError(t, err)
		require.Len(t, totals.Lines, 1)
		// 100 * 1.30 = 130 final, 10% product discount -> 117 a piece
		assert.Equal(t, 5, totals.Lines[0].Quantity)
		assert.Equal(t, int64(585), totals.Lines[0].Sum)
		assert.Equal(t, int64(585), totals.TotalPrice)
		assert.Equal(t, int64(650), totals.WithoutDiscount)
		assert.Equal(t, int64(65), totals.DiscountSum)
		// no promo, no warnings, ever
		assert.Empty(t, totals.PromoCode)
		assert.Empty(t, totals.Warnings)
	})

	t.Run("empty_basket", func(t *testing.T) {
		repo := &mockCartRepository{
			listByUserFunc: func(ctx context.Context, userID uuid.UUID) ([]preorder.Line, error) {
				return []preorder.Line{}, nil
			},
		}
		basket := preorder.NewBasket(repo, &mockProductStore{params: params})

		totals, err := basket.Compute(context.Background(), testUser, "")

		require.NoError(t, err)
		assert.Empty(t, totals.Lines)
		assert.Zero(t, totals.TotalPrice)
	})
}

func TestBasket_AddProduct(t *testing.T) {
	t.Run("out_of_stock_product_accepted", func(t *testing.T) {
		added := false
		repo := &mockCartRepository{
			addFunc: func(ctx context.Context, userID uuid.UUID, productID int64) error {
				added = true
				return nil
			},
		}
		products := &mockProductStore{
			getByIDFunc: func(ctx context.Context, id int64) (*catalog.Product, error) {
				return &catalog.Product{ID: id, StockCount: 0}, nil
			},
		}
		basket := preorder.NewBasket(repo, products)

		err := basket.AddProduct(context.Background(), testUser, 7)

		require.NoError(t, err)
		assert.True(t, added)
	})

	t.Run("unknown_product_rejected", func(t *testing.T) {
		products := &mockProductStore{
			getByIDFunc: func(ctx context.Context, id int64) (*catalog.Product, error) {
				return nil, catalog.ErrProductNotFound
			},
		}
		basket := preorder.NewBasket(&mockCartRepository{}, products)

		err := basket.AddProduct(context.Background(), testUser, 7)

		assert.ErrorIs(t, err, catalog.ErrProductNotFound)
	})
}
