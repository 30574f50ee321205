package cartControllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/patriocele/fragrance-api/models"
	"github.com/patriocele/fragrance-api/store"
)

type CartLineInput struct {
	ProductID   uint   `json:"product_id" binding:"required"`
	SizeVariant string `json:"size_variant"`
	Quantity    int    `json:"quantity" binding:"required,min=1"`
}

// cartLineView is a cart line joined with current product info. Prices shown
// here can drift until checkout snapshots them.
type cartLineView struct {
	models.CartItem
	Name          string  `json:"name"`
	UnitPrice     float64 `json:"unit_price"`
	StockQuantity int     `json:"stock_quantity"`
}

// POST /user/cart
func UpdateCartLine(s store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		userIDVal, exists := c.Get("user_id")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		userID := userIDVal.(string)

		var input CartLineInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}

		product, err := s.ProductByID(c.Request.Context(), input.ProductID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Product does not exist"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to validate product"})
			return
		}

		line := models.CartItem{
			UserID:      userID,
			ProductID:   product.ID,
			SizeVariant: input.SizeVariant,
			Quantity:    input.Quantity,
		}
		if err := s.UpsertCartLine(c.Request.Context(), &line); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update cart"})
			return
		}
		c.JSON(http.StatusOK, line)
	}
}

// GET /user/cart
func GetUserCart(s store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		userIDVal, exists := c.Get("user_id")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		userID := userIDVal.(string)

		lines, err := s.CartLines(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch cart"})
			return
		}
		if len(lines) == 0 {
			c.JSON(http.StatusOK, []cartLineView{})
			return
		}

		ids := make([]uint, 0, len(lines))
		for _, l := range lines {
			ids = append(ids, l.ProductID)
		}
		products, err := s.ProductsByIDs(c.Request.Context(), ids)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch cart"})
			return
		}

		views := make([]cartLineView, 0, len(lines))
		for _, l := range lines {
			v := cartLineView{CartItem: l}
			if p, ok := products[l.ProductID]; ok {
				v.Name = p.Name
				v.UnitPrice = p.VariantPrice(l.SizeVariant)
				v.StockQuantity = p.StockQuantity
			}
			views = append(views, v)
		}
		c.JSON(http.StatusOK, views)
	}
}

// DELETE /user/cart/:product_id
func DeleteCartLine(s store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		userIDVal, exists := c.Get("user_id")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		userID := userIDVal.(string)

		productID, err := strconv.ParseUint(c.Param("product_id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product ID"})
			return
		}
		sizeVariant := c.Query("size_variant")

		if err := s.DeleteCartLine(c.Request.Context(), userID, uint(productID), sizeVariant); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Cart item not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete item"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Cart item deleted"})
	}
}

// DELETE /user/cart
func ClearUserCart(s store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		userIDVal, exists := c.Get("user_id")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		userID := userIDVal.(string)

		if err := s.ClearCart(c.Request.Context(), userID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear cart"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Cart cleared"})
	}
}
