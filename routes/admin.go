package routes

import (
	"github.com/gin-gonic/gin"

	orderControllers "github.com/patriocele/fragrance-api/controllers/order"
	productControllers "github.com/patriocele/fragrance-api/controllers/product"
	"github.com/patriocele/fragrance-api/middleware"
)

// SetupAdminRoutes registers all "/admin/*" endpoints. Requires API key
// middleware.
func SetupAdminRoutes(r *gin.Engine, d Deps) {
	adminGroup := r.Group("/admin")
	adminGroup.Use(middleware.ValidateAPIKey(d.Cfg.AdminAPIKey))
	{
		productAdmin := adminGroup.Group("/products")
		{
			productAdmin.POST("", productControllers.CreateProduct(d.Store))
			productAdmin.PUT("/:id", productControllers.UpdateProduct(d.Store))
			productAdmin.GET("", productControllers.GetProducts(d.Store))
		}

		orderAdmin := adminGroup.Group("/orders")
		{
			orderAdmin.GET("", orderControllers.GetAllOrdersHandler(d.Store))
			orderAdmin.PUT("/:orderID/status", orderControllers.UpdateOrderStatusHandler(d.Store))
			orderAdmin.GET("/export-excel", orderControllers.ExportOrdersToExcel(d.Store))
		}
	}
}
