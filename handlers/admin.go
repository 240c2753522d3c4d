package handlers

import (
	"net/http"

	"delivery-marketplace-api/config"
	"delivery-marketplace-api/middleware"
	"delivery-marketplace-api/models"
	"delivery-marketplace-api/statemachine"

	"github.com/gin-gonic/gin"
)

// AdminGetAllOrders lists every order, filterable by status
func AdminGetAllOrders(c *gin.Context) {
	var allOrders []models.Order
	query := config.DB.Preload("Customer").Preload("Restaurant").Preload("DeliveryPartner")
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	query.Order("created_at desc").Find(&allOrders)
	c.JSON(http.StatusOK, gin.H{"count": len(allOrders), "orders": allOrders})
}

// AdminGetAllUsers lists every user account
func AdminGetAllUsers(c *gin.Context) {
	var users []models.User
	query := config.DB
	if role := c.Query("role"); role != "" {
		query = query.Where("role = ?", role)
	}
	query.Find(&users)
	c.JSON(http.StatusOK, gin.H{"count": len(users), "users": users})
}

// AdminGetAllRestaurants lists every restaurant
func AdminGetAllRestaurants(c *gin.Context) {
	var restaurants []models.Restaurant
	config.DB.Preload("Owner").Find(&restaurants)
	c.JSON(http.StatusOK, gin.H{"count": len(restaurants), "restaurants": restaurants})
}

type AdminForceStatusRequest struct {
	Status models.OrderStatus `json:"status" binding:"required"`
}

// AdminForceOrderStatus drives a transition on behalf of support. It goes
// through the same state machine as everyone else; states requiring a
// partner assignment cannot be forced from here.
func AdminForceOrderStatus(c *gin.Context) {
	adminID := middleware.GetUserID(c)

	var order models.Order
	if err := config.DB.First(&order, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}

	var req AdminForceStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var updated *models.Order
	var err error
	switch req.Status {
	case models.StatusConfirmed:
		updated, err = orderSvc.Confirm(order.ID, adminID, statemachine.ActorAdmin)
	case models.StatusCancelled:
		updated, err = orderSvc.CancelByAdmin(order.ID, adminID)
	default:
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": "Admins may only force CONFIRMED or CANCELLED; dispatch and delivery belong to the assigned partner",
		})
		return
	}
	if err != nil {
		respondOrderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":         "Order status updated",
		"order_id":        updated.ID,
		"previous_status": order.Status,
		"current_status":  updated.Status,
	})
}
