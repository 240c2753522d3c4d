// Package payments keeps payment records and order.payment_status in
// lockstep. Every joint write happens inside one DB transaction so no reader
// ever observes the two halves split.
package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strings"

	"delivery-marketplace-api/models"
	"delivery-marketplace-api/notify"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrOrderNotFound   = errors.New("order not found")
	ErrPaymentNotFound = errors.New("payment not found")
	// ErrPaymentExists: at most one payment record per order
	ErrPaymentExists = errors.New("a payment already exists for this order")
	// ErrInvalidPaymentState: refund attempted on a non-successful payment
	ErrInvalidPaymentState = errors.New("refund is only valid for a successful payment")
	ErrNotOrderOwner       = errors.New("order does not belong to this customer")
)

// RefundError wraps a downstream gateway failure. The triggering operation
// (refund or cancellation) is aborted and can be retried.
type RefundError struct {
	Err error
}

func (e *RefundError) Error() string { return "refund failed: " + e.Err.Error() }
func (e *RefundError) Unwrap() error { return e.Err }

// VerifyInput is the proof the gateway posts back after a capture attempt.
type VerifyInput struct {
	TransactionID string
	Signature     string
}

type Service struct {
	db       *gorm.DB
	gateway  Gateway
	notifier notify.Notifier
	secret   []byte
}

func NewService(db *gorm.DB, gateway Gateway, notifier notify.Notifier, secret []byte) *Service {
	return &Service{
		db:       db,
		gateway:  gateway,
		notifier: notifier,
		secret:   secret,
	}
}

// Sign computes the expected proof signature for a transaction id. Exposed so
// the simulated gateway flow and tests can build valid proofs.
func (s *Service) Sign(transactionID string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(transactionID))
	return hex.EncodeToString(mac.Sum(nil))
}

// Create opens a PENDING payment for an order. Fails with ErrPaymentExists if
// the order already has one; the unique index on order_id backs this up under
// concurrent creates.
func (s *Service) Create(orderID, customerID uint, method models.PaymentMethod) (*models.Payment, error) {
	var order models.Order
	if err := s.db.First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if order.CustomerID != customerID {
		return nil, ErrNotOrderOwner
	}

	var existing models.Payment
	if err := s.db.Where("order_id = ?", orderID).First(&existing).Error; err == nil {
		return nil, ErrPaymentExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	payment := models.Payment{
		OrderID: orderID,
		Amount:  order.TotalAmount,
		Method:  method,
		Status:  models.TxnPending,
		Receipt: "rcpt_" + uuid.NewString(),
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&payment).Error; err != nil {
			if isUniqueViolation(err) {
				return ErrPaymentExists
			}
			return err
		}
		return tx.Model(&models.Order{}).Where("id = ?", orderID).
			Update("payment_status", models.PaymentPending).Error
	})
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// Verify settles a PENDING payment from a gateway proof. Idempotent: a
// payment already in a terminal state is returned unchanged, no re-evaluation
// and no repeated side effects. On success payment.status=SUCCESS and
// order.payment_status=PAID are written as one atomic unit.
func (s *Service) Verify(paymentID uint, proof VerifyInput) (*models.Payment, error) {
	var payment models.Payment
	if err := s.db.First(&payment, paymentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	if payment.Status.Terminal() {
		return &payment, nil
	}

	ok := hmac.Equal([]byte(s.Sign(proof.TransactionID)), []byte(proof.Signature))

	newStatus := models.TxnFailed
	orderStatus := models.PaymentFailed
	if ok {
		newStatus = models.TxnSuccess
		orderStatus = models.PaymentPaid
	}

	settled := false
	err := s.db.Transaction(func(tx *gorm.DB) error {
		// Guard on PENDING so a racing Verify settles the payment once
		res := tx.Model(&models.Payment{}).
			Where("id = ? AND status = ?", paymentID, models.TxnPending).
			Updates(map[string]interface{}{
				"status":         newStatus,
				"transaction_id": proof.TransactionID,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil // settled by a concurrent call; reload below
		}
		settled = true
		return tx.Model(&models.Order{}).Where("id = ?", payment.OrderID).
			Update("payment_status", orderStatus).Error
	})
	if err != nil {
		return nil, err
	}

	if err := s.db.First(&payment, paymentID).Error; err != nil {
		return nil, err
	}
	// Only the call that committed the settlement notifies; the loser of a
	// race just reports the stored outcome
	if settled {
		s.fireNotify("payment outcome", func() error {
			return s.notifier.PaymentOutcome(&payment)
		})
	}
	return &payment, nil
}

// Refund reverses a successful payment. Gateway first: if the provider
// rejects the refund nothing changes locally and the caller may retry.
func (s *Service) Refund(paymentID uint) (*models.Payment, error) {
	var payment models.Payment
	if err := s.db.First(&payment, paymentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	if payment.Status != models.TxnSuccess {
		return nil, fmt.Errorf("%w (current status %s)", ErrInvalidPaymentState, payment.Status)
	}

	if err := s.gateway.Refund(payment.TransactionID, payment.Amount); err != nil {
		return nil, &RefundError{Err: err}
	}

	if err := s.markRefunded(&payment, models.TxnSuccess); err != nil {
		return nil, err
	}
	return &payment, nil
}

// RefundForCancellation settles money state ahead of an order cancellation.
// A captured payment is refunded through the gateway; a still-pending one is
// voided locally (nothing was captured); a failed one resets the order to
// UNPAID. Returns a RefundError when the gateway rejects, leaving everything
// untouched so the cancellation aborts.
func (s *Service) RefundForCancellation(orderID uint) error {
	var payment models.Payment
	if err := s.db.Where("order_id = ?", orderID).First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil // unpaid order, nothing to settle
		}
		return err
	}

	switch payment.Status {
	case models.TxnSuccess:
		if err := s.gateway.Refund(payment.TransactionID, payment.Amount); err != nil {
			return &RefundError{Err: err}
		}
		return s.markRefunded(&payment, models.TxnSuccess)
	case models.TxnPending:
		return s.markRefunded(&payment, models.TxnPending)
	case models.TxnFailed:
		return s.db.Model(&models.Order{}).Where("id = ?", orderID).
			Update("payment_status", models.PaymentUnpaid).Error
	default: // already refunded
		return nil
	}
}

// GetByOrder returns the payment record for an order.
func (s *Service) GetByOrder(orderID, customerID uint) (*models.Payment, error) {
	var payment models.Payment
	if err := s.db.Preload("Order").Where("order_id = ?", orderID).First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	if payment.Order.CustomerID != customerID {
		return nil, ErrNotOrderOwner
	}
	return &payment, nil
}

// markRefunded writes payment REFUNDED and order REFUNDED as one unit,
// guarded on the expected prior payment status.
func (s *Service) markRefunded(payment *models.Payment, expect models.TransactionStatus) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Payment{}).
			Where("id = ? AND status = ?", payment.ID, expect).
			Update("status", models.TxnRefunded)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w (payment %d changed concurrently)", ErrInvalidPaymentState, payment.ID)
		}
		return tx.Model(&models.Order{}).Where("id = ?", payment.OrderID).
			Update("payment_status", models.PaymentRefunded).Error
	})
	if err != nil {
		return err
	}
	payment.Status = models.TxnRefunded
	s.fireNotify("payment refunded", func() error {
		return s.notifier.PaymentOutcome(payment)
	})
	return nil
}

func (s *Service) fireNotify(event string, fn func() error) {
	if s.notifier == nil {
		return
	}
	if err := fn(); err != nil {
		log.Printf("⚠️  notification (%s) failed: %v", event, err)
	}
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "unique")
}
