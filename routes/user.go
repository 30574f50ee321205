package routes

import (
	"github.com/gin-gonic/gin"

	cartControllers "github.com/patriocele/fragrance-api/controllers/cart"
	checkoutControllers "github.com/patriocele/fragrance-api/controllers/checkout"
	orderControllers "github.com/patriocele/fragrance-api/controllers/order"
	userControllers "github.com/patriocele/fragrance-api/controllers/user"
	"github.com/patriocele/fragrance-api/middleware"
)

// SetupUserRoutes registers all "/user/*" endpoints. Requires JWT middleware.
func SetupUserRoutes(r *gin.Engine, d Deps) {
	userGroup := r.Group("/user")
	userGroup.Use(middleware.ValidateToken(d.Cfg.JWTSecret))
	{
		userGroup.GET("/profile", userControllers.GetProfile(d.Store))
		userGroup.PUT("/profile", userControllers.UpdateProfile(d.Store))

		cartGroup := userGroup.Group("/cart")
		{
			cartGroup.GET("/", cartControllers.GetUserCart(d.Store))                  // GET /user/cart
			cartGroup.POST("/", cartControllers.UpdateCartLine(d.Store))              // POST /user/cart
			cartGroup.DELETE("/:product_id", cartControllers.DeleteCartLine(d.Store)) // DELETE /user/cart/:product_id
			cartGroup.DELETE("/", cartControllers.ClearUserCart(d.Store))             // DELETE /user/cart
		}

		// Checkout: snapshot the cart, write the order, hand back the
		// hosted payment page URL.
		userGroup.POST("/checkout", checkoutControllers.CheckoutHandler(d.Checkout, d.Cfg.PayFast))

		userGroup.GET("/orders", orderControllers.GetUserOrdersHandler(d.Store))
		userGroup.GET("/orders/:orderID", orderControllers.GetOrderByIDHandler(d.Store))
	}
}
