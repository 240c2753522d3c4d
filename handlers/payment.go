package handlers

import (
	"net/http"
	"strconv"

	"delivery-marketplace-api/middleware"
	"delivery-marketplace-api/models"
	"delivery-marketplace-api/payments"

	"github.com/gin-gonic/gin"
)

type CreatePaymentRequest struct {
	OrderID uint                 `json:"order_id" binding:"required"`
	Method  models.PaymentMethod `json:"method" binding:"required"`
}

// CreatePaymentOrder opens a gateway payment for an existing order.
// At most one payment record can exist per order.
func CreatePaymentOrder(c *gin.Context) {
	customerID := middleware.GetUserID(c)

	var req CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	payment, err := paymentSvc.Create(req.OrderID, customerID, req.Method)
	if err != nil {
		respondPaymentError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Payment order created",
		"payment": payment,
	})
}

type VerifyPaymentRequest struct {
	PaymentID     uint   `json:"payment_id" binding:"required"`
	TransactionID string `json:"transaction_id" binding:"required"`
	Signature     string `json:"signature" binding:"required"`
}

// VerifyPayment settles a pending payment from the gateway's signed proof.
// Safe to call repeatedly: terminal payments return their stored result.
func VerifyPayment(c *gin.Context) {
	var req VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	payment, err := paymentSvc.Verify(req.PaymentID, payments.VerifyInput{
		TransactionID: req.TransactionID,
		Signature:     req.Signature,
	})
	if err != nil {
		respondPaymentError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Payment " + string(payment.Status),
		"payment": payment,
	})
}

type RefundRequest struct {
	PaymentID uint `json:"payment_id" binding:"required"`
}

// ProcessRefund refunds a successful payment.
// Note: in production, only admins/restaurants should be able to refund.
func ProcessRefund(c *gin.Context) {
	var req RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	payment, err := paymentSvc.Refund(req.PaymentID)
	if err != nil {
		respondPaymentError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Payment refunded",
		"payment": payment,
	})
}

// GetPaymentByOrder returns the payment record for one of the caller's orders
func GetPaymentByOrder(c *gin.Context) {
	customerID := middleware.GetUserID(c)

	orderID, err := strconv.ParseUint(c.Param("orderId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order id"})
		return
	}

	payment, err := paymentSvc.GetByOrder(uint(orderID), customerID)
	if err != nil {
		respondPaymentError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payment": payment})
}
