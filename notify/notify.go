// Package notify is the outbound notification collaborator. Notifications are
// fire-and-forget: a failed send is logged by the caller and never blocks or
// rolls back the transition that triggered it.
package notify

import (
	"log"

	"delivery-marketplace-api/models"
)

type Notifier interface {
	OrderPlaced(order *models.Order) error
	OrderStatusChanged(order *models.Order, from, to models.OrderStatus) error
	PaymentOutcome(payment *models.Payment) error
}

// LogNotifier writes notifications to the process log. Stands in for the
// email/push provider in development and tests.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier { return &LogNotifier{} }

func (n *LogNotifier) OrderPlaced(order *models.Order) error {
	log.Printf("📦 order %d placed by customer %d (total %.2f)", order.ID, order.CustomerID, order.TotalAmount)
	return nil
}

func (n *LogNotifier) OrderStatusChanged(order *models.Order, from, to models.OrderStatus) error {
	log.Printf("📦 order %d status %s → %s", order.ID, from, to)
	return nil
}

func (n *LogNotifier) PaymentOutcome(payment *models.Payment) error {
	log.Printf("💳 payment %d for order %d is %s", payment.ID, payment.OrderID, payment.Status)
	return nil
}
