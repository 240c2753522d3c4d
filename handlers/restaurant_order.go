package handlers

import (
	"net/http"

	"delivery-marketplace-api/config"
	"delivery-marketplace-api/middleware"
	"delivery-marketplace-api/models"
	"delivery-marketplace-api/statemachine"

	"github.com/gin-gonic/gin"
)

// GetRestaurantOrders returns all orders for the restaurant owner
func GetRestaurantOrders(c *gin.Context) {
	ownerID := middleware.GetUserID(c)

	var restaurant models.Restaurant
	if err := config.DB.Where("owner_id = ?", ownerID).First(&restaurant).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No restaurant found for your account"})
		return
	}

	var restaurantOrders []models.Order
	query := config.DB.Preload("Items.MenuItem").Preload("Customer").Preload("DeliveryPartner").
		Where("restaurant_id = ?", restaurant.ID)

	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	query.Order("created_at desc").Find(&restaurantOrders)

	// Dashboard summary: counts grouped by status
	summary := map[string]int{}
	for _, o := range restaurantOrders {
		summary[string(o.Status)]++
	}

	c.JSON(http.StatusOK, gin.H{
		"restaurant":    restaurant.Name,
		"order_summary": summary,
		"count":         len(restaurantOrders),
		"orders":        restaurantOrders,
	})
}

// ConfirmOrder handles the restaurant accepting an order (PLACED → CONFIRMED).
// Re-confirming an already-confirmed order is a harmless no-op.
func ConfirmOrder(c *gin.Context) {
	ownerID := middleware.GetUserID(c)

	var restaurant models.Restaurant
	if err := config.DB.Where("owner_id = ?", ownerID).First(&restaurant).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No restaurant found for your account"})
		return
	}

	var order models.Order
	if err := config.DB.First(&order, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}
	if order.RestaurantID != restaurant.ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "This order does not belong to your restaurant"})
		return
	}

	confirmed, err := orderSvc.Confirm(order.ID, ownerID, statemachine.ActorRestaurant)
	if err != nil {
		respondOrderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Order confirmed",
		"order_id": confirmed.ID,
		"status":   confirmed.Status,
	})
}
