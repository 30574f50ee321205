package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	paymentControllers "github.com/patriocele/fragrance-api/controllers/payment"
	productControllers "github.com/patriocele/fragrance-api/controllers/product"
	userControllers "github.com/patriocele/fragrance-api/controllers/user"
	"github.com/patriocele/fragrance-api/middleware"
)

// SetupPublicRoutes registers the catalog, the payment gateway callbacks and
// the realtime order feed.
func SetupPublicRoutes(r *gin.Engine, d Deps) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.POST("/auth/login", userControllers.LoginHandler(d.Store, d.Cfg.JWTSecret))

	r.GET("/products", productControllers.GetProducts(d.Store))
	r.GET("/products/:id", productControllers.GetProductByID(d.Store))

	payment := r.Group("/payment")
	{
		// ITN endpoint: signature verification runs before the reconciler.
		payment.POST("/notify",
			middleware.PayFastITNAuth(d.Cfg.PayFast),
			paymentControllers.WebhookHandler(d.Reconciler),
		)

		// Browser redirect targets; informational only, never write state.
		payment.GET("/return", paymentControllers.ReturnHandler())
		payment.GET("/cancel", paymentControllers.ReturnHandler())
	}

	// Realtime feed of webhook-confirmed orders
	r.GET("/orders/ws", d.Hub.Handler)
}
