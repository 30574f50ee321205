package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/patriocele/fragrance-api/config"
	checkoutControllers "github.com/patriocele/fragrance-api/controllers/checkout"
	orderControllers "github.com/patriocele/fragrance-api/controllers/order"
	paymentControllers "github.com/patriocele/fragrance-api/controllers/payment"
	"github.com/patriocele/fragrance-api/store"
)

// Deps carries every constructed service the routes need. Handlers receive
// their dependencies explicitly; nothing reaches into shared state.
type Deps struct {
	Cfg        config.Config
	Store      store.Store
	Checkout   *checkoutControllers.Service
	Reconciler *paymentControllers.Reconciler
	Hub        *orderControllers.Hub
}

// SetupRoutes is the single entry point that wires up all route groups.
func SetupRoutes(r *gin.Engine, d Deps) {
	// Public catalog + payment gateway callbacks
	SetupPublicRoutes(r, d)

	// User routes (JWT protected)
	SetupUserRoutes(r, d)

	// Admin routes (API key protected)
	SetupAdminRoutes(r, d)
}
