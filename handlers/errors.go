package handlers

import (
	"errors"
	"net/http"

	"delivery-marketplace-api/orders"
	"delivery-marketplace-api/payments"
	"delivery-marketplace-api/statemachine"

	"github.com/gin-gonic/gin"
)

// respondOrderError maps service errors to HTTP responses. Expected race
// outcomes and rule violations are client errors; only unknown failures
// become 500s.
func respondOrderError(c *gin.Context, err error) {
	var transitionErr *statemachine.TransitionError
	var refundErr *payments.RefundError

	switch {
	case errors.Is(err, orders.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
	case errors.Is(err, orders.ErrNotOrderOwner):
		c.JSON(http.StatusForbidden, gin.H{"error": "This order does not belong to you"})
	case errors.Is(err, orders.ErrNotAssignedPartner):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, orders.ErrAlreadyClaimed):
		// Expected outcome of the claim race, not a fault
		c.JSON(http.StatusConflict, gin.H{"error": "Order is no longer available"})
	case errors.Is(err, orders.ErrPaymentNotSettled):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Order cannot be delivered until its payment is settled"})
	case errors.As(err, &refundErr):
		c.JSON(http.StatusBadGateway, gin.H{
			"error":  "Refund could not be processed; the order was not cancelled. Please retry.",
			"reason": refundErr.Err.Error(),
		})
	case errors.As(err, &transitionErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":             "Invalid state transition",
			"current_status":    transitionErr.From,
			"requested":         transitionErr.To,
			"reason":            transitionErr.Error(),
			"valid_next_states": statemachine.ValidTransitionsFrom(transitionErr.From),
		})
	case errors.Is(err, orders.ErrRestaurantNotFound),
		errors.Is(err, orders.ErrRestaurantClosed),
		errors.Is(err, orders.ErrItemUnavailable),
		errors.Is(err, orders.ErrItemWrongMenu):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
	}
}

func respondPaymentError(c *gin.Context, err error) {
	var refundErr *payments.RefundError

	switch {
	case errors.Is(err, payments.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
	case errors.Is(err, payments.ErrPaymentNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Payment not found"})
	case errors.Is(err, payments.ErrNotOrderOwner):
		c.JSON(http.StatusForbidden, gin.H{"error": "This order does not belong to you"})
	case errors.Is(err, payments.ErrPaymentExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, payments.ErrInvalidPaymentState):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.As(err, &refundErr):
		c.JSON(http.StatusBadGateway, gin.H{"error": "Refund could not be processed. Please retry.", "reason": refundErr.Err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
	}
}
