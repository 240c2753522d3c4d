package handlers

import (
	"math"
	"net/http"
	"time"

	"delivery-marketplace-api/config"
	"delivery-marketplace-api/middleware"
	"delivery-marketplace-api/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Delivery partner earns 10% of order total as commission
const deliveryCommissionRate = 0.10

func partnerProfile(c *gin.Context) (*models.DeliveryPartnerProfile, bool) {
	partnerID := middleware.GetUserID(c)
	var profile models.DeliveryPartnerProfile
	if err := config.DB.Where("user_id = ?", partnerID).First(&profile).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Delivery partner profile not found"})
		return nil, false
	}
	return &profile, true
}

// GetAvailableOrders shows CONFIRMED orders with no partner assigned.
// Partners that toggled themselves unavailable see nothing to accept.
func GetAvailableOrders(c *gin.Context) {
	profile, ok := partnerProfile(c)
	if !ok {
		return
	}
	if !profile.IsAvailable {
		c.JSON(http.StatusForbidden, gin.H{"error": "You are currently marked unavailable. Toggle availability to accept orders."})
		return
	}

	var available []models.Order
	config.DB.Preload("Restaurant").Preload("Customer").
		Where("status = ? AND delivery_partner_id IS NULL", models.StatusConfirmed).
		Order("created_at asc").
		Find(&available)
	c.JSON(http.StatusOK, gin.H{
		"count":  len(available),
		"orders": available,
	})
}

// AcceptOrder lets a partner claim an order. Exactly one of any number of
// concurrent claims wins; the rest get a 409.
func AcceptOrder(c *gin.Context) {
	profile, ok := partnerProfile(c)
	if !ok {
		return
	}
	if !profile.IsAvailable {
		c.JSON(http.StatusForbidden, gin.H{"error": "You are currently marked unavailable. Toggle availability to accept orders."})
		return
	}

	var order models.Order
	if err := config.DB.First(&order, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}

	claimed, err := orderSvc.Claim(order.ID, profile.UserID)
	if err != nil {
		respondOrderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Order accepted",
		"order_id": claimed.ID,
		"status":   claimed.Status,
	})
}

// DeliverOrder transitions OUT_FOR_DELIVERY → DELIVERED
func DeliverOrder(c *gin.Context) {
	partnerID := middleware.GetUserID(c)

	var order models.Order
	if err := config.DB.First(&order, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}

	delivered, err := orderSvc.Deliver(order.ID, partnerID)
	if err != nil {
		respondOrderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":        "Order delivered successfully! 🎉",
		"order_id":       delivered.ID,
		"status":         delivered.Status,
		"payment_status": delivered.PaymentStatus,
	})
}

// GetMyDeliveries returns all orders assigned to the logged-in partner
func GetMyDeliveries(c *gin.Context) {
	partnerID := middleware.GetUserID(c)
	var deliveries []models.Order
	config.DB.Preload("Items.MenuItem").Preload("Restaurant").Preload("Customer").
		Where("delivery_partner_id = ?", partnerID).
		Order("updated_at desc").
		Find(&deliveries)
	c.JSON(http.StatusOK, gin.H{"count": len(deliveries), "orders": deliveries})
}

// ToggleAvailability flips whether the partner appears available for claims.
// The flip happens in the database so concurrent toggles each take effect.
func ToggleAvailability(c *gin.Context) {
	partnerID := middleware.GetUserID(c)

	res := config.DB.Model(&models.DeliveryPartnerProfile{}).
		Where("user_id = ?", partnerID).
		Update("is_available", gorm.Expr("NOT is_available"))
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update availability"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Delivery partner profile not found"})
		return
	}

	var profile models.DeliveryPartnerProfile
	config.DB.Where("user_id = ?", partnerID).First(&profile)
	c.JSON(http.StatusOK, gin.H{
		"message":      "Availability updated",
		"is_available": profile.IsAvailable,
	})
}

type LocationRequest struct {
	Lat float64 `json:"lat" binding:"min=-90,max=90"`
	Lng float64 `json:"lng" binding:"min=-180,max=180"`
}

// UpdateLocation records the partner's current coordinates
func UpdateLocation(c *gin.Context) {
	partnerID := middleware.GetUserID(c)

	var req LocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res := config.DB.Model(&models.DeliveryPartnerProfile{}).
		Where("user_id = ?", partnerID).
		Updates(map[string]interface{}{
			"current_lat": req.Lat,
			"current_lng": req.Lng,
		})
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update location"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Delivery partner profile not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Location updated",
		"lat":     req.Lat,
		"lng":     req.Lng,
	})
}

// GetEarnings reports commission over delivered orders, optionally windowed
// by from/to (RFC 3339).
func GetEarnings(c *gin.Context) {
	partnerID := middleware.GetUserID(c)

	query := config.DB.Where("delivery_partner_id = ? AND status = ?", partnerID, models.StatusDelivered)
	if from := c.Query("from"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'from' timestamp, expected RFC 3339"})
			return
		}
		query = query.Where("delivered_date >= ?", t)
	}
	if to := c.Query("to"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'to' timestamp, expected RFC 3339"})
			return
		}
		query = query.Where("delivered_date <= ?", t)
	}

	var delivered []models.Order
	query.Find(&delivered)

	var total float64
	for _, o := range delivered {
		total += o.TotalAmount * deliveryCommissionRate
	}
	total = math.Round(total*100) / 100

	avg := 0.0
	if len(delivered) > 0 {
		avg = math.Round(total/float64(len(delivered))*100) / 100
	}

	c.JSON(http.StatusOK, gin.H{
		"total_earnings":               total,
		"total_deliveries":             len(delivered),
		"average_earning_per_delivery": avg,
	})
}
