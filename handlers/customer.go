package handlers

import (
	"net/http"
	"time"

	"delivery-marketplace-api/config"
	"delivery-marketplace-api/middleware"
	"delivery-marketplace-api/models"
	"delivery-marketplace-api/orders"

	"github.com/gin-gonic/gin"
)

type PlaceOrderRequest struct {
	RestaurantID    uint                 `json:"restaurant_id" binding:"required"`
	DeliveryAddress string               `json:"delivery_address" binding:"required"`
	Notes           string               `json:"notes"`
	PaymentMethod   models.PaymentMethod `json:"payment_method"`
	Items           []struct {
		MenuItemID uint `json:"menu_item_id" binding:"required"`
		Quantity   int  `json:"quantity" binding:"required,min=1"`
	} `json:"items" binding:"required,min=1"`
}

// PlaceOrder creates a new order (customer only)
func PlaceOrder(c *gin.Context) {
	customerID := middleware.GetUserID(c)

	var req PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	in := orders.PlaceInput{
		RestaurantID:    req.RestaurantID,
		DeliveryAddress: req.DeliveryAddress,
		Notes:           req.Notes,
		PaymentMethod:   req.PaymentMethod,
	}
	for _, it := range req.Items {
		in.Items = append(in.Items, orders.PlaceItemInput{MenuItemID: it.MenuItemID, Quantity: it.Quantity})
	}

	order, err := orderSvc.Place(customerID, in)
	if err != nil {
		respondOrderError(c, err)
		return
	}

	config.DB.Preload("Items.MenuItem").Preload("Restaurant").First(order, order.ID)
	c.JSON(http.StatusCreated, gin.H{
		"message": "Order placed successfully",
		"order":   order,
	})
}

// GetMyOrders returns all orders for the logged-in customer
func GetMyOrders(c *gin.Context) {
	customerID := middleware.GetUserID(c)
	var myOrders []models.Order
	config.DB.Preload("Items.MenuItem").Preload("Restaurant").
		Where("customer_id = ?", customerID).
		Order("created_at desc").
		Find(&myOrders)
	c.JSON(http.StatusOK, gin.H{"count": len(myOrders), "orders": myOrders})
}

// GetOrderDetail returns a single order's full detail with history
func GetOrderDetail(c *gin.Context) {
	customerID := middleware.GetUserID(c)

	var order models.Order
	if err := config.DB.
		Preload("Items.MenuItem").
		Preload("Restaurant").
		Preload("StatusHistory").
		Preload("DeliveryPartner").
		First(&order, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}
	if order.CustomerID != customerID {
		c.JSON(http.StatusForbidden, gin.H{"error": "This order does not belong to you"})
		return
	}

	elapsed := time.Since(order.CreatedAt).Minutes()
	c.JSON(http.StatusOK, gin.H{
		"order":           order,
		"minutes_elapsed": int(elapsed),
	})
}

// CancelOrder cancels an order. Any refund runs first; on refund failure the
// order stays in its prior state and the customer is told to retry.
func CancelOrder(c *gin.Context) {
	customerID := middleware.GetUserID(c)

	var order models.Order
	if err := config.DB.First(&order, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}

	cancelled, err := orderSvc.Cancel(order.ID, customerID)
	if err != nil {
		respondOrderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":        "Order cancelled successfully",
		"order_id":       cancelled.ID,
		"payment_status": cancelled.PaymentStatus,
	})
}
