package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Stavickiy/internet-store/internal/handler"
)

// Handlers collects the constructed handler set for router assembly.
type Handlers struct {
	Catalog          *handler.CatalogHandler
	Cart             *handler.CartHandler
	Checkout         *handler.CheckoutHandler
	PreorderCheckout *handler.CheckoutHandler
	Order            *handler.OrderHandler
	Preorder         *handler.PreorderHandler
}

func NewRouter(h Handlers) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	h.Catalog.RegisterRoutes(r)
	h.Cart.RegisterRoutes(r)
	h.Order.RegisterRoutes(r)
	h.Preorder.RegisterRoutes(r)

	r.Route("/checkout", h.Checkout.RegisterRoutes)
	r.Route("/preorder-checkout", h.PreorderCheckout.RegisterRoutes)

	r.Route("/admin", func(admin chi.Router) {
		h.Order.RegisterAdminRoutes(admin)
		h.Preorder.RegisterAdminRoutes(admin)
	})

	return r
}
