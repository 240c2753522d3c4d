package handlers

import (
	"delivery-marketplace-api/config"
	"delivery-marketplace-api/notify"
	"delivery-marketplace-api/orders"
	"delivery-marketplace-api/payments"

	"gorm.io/gorm"
)

var (
	orderSvc   *orders.Service
	paymentSvc *payments.Service
)

// Setup wires the order and payment services once at startup.
func Setup(db *gorm.DB) {
	notifier := notify.NewLogNotifier()
	paymentSvc = payments.NewService(db, payments.NewSimulatedGateway(), notifier, config.WebhookSecret)
	orderSvc = orders.NewService(db, paymentSvc, notifier)
}
