// Package orders is the single authority over order status. Every transition
// is a conditional UPDATE guarded on the expected prior state, so concurrent
// readers only ever see the pre- or post-transition row.
package orders

import (
	"errors"
	"log"
	"math"
	"time"

	"delivery-marketplace-api/models"
	"delivery-marketplace-api/notify"
	"delivery-marketplace-api/payments"
	"delivery-marketplace-api/statemachine"

	"gorm.io/gorm"
)

var (
	ErrOrderNotFound      = errors.New("order not found")
	ErrNotOrderOwner      = errors.New("order does not belong to this customer")
	ErrRestaurantClosed   = errors.New("restaurant is currently closed")
	ErrRestaurantNotFound = errors.New("restaurant not found")
	ErrItemUnavailable    = errors.New("menu item is not available")
	ErrItemWrongMenu      = errors.New("menu item does not belong to this restaurant")
	ErrNotAssignedPartner = errors.New("you are not the assigned delivery partner for this order")
	// ErrPaymentNotSettled blocks delivery of an order whose money is not in:
	// a delivered order is always a paid order.
	ErrPaymentNotSettled = errors.New("payment has not been settled for this order")
	// ErrAlreadyClaimed is the expected outcome for all but one of the
	// partners racing to claim the same order.
	ErrAlreadyClaimed = errors.New("order is no longer available")
)

type Service struct {
	db         *gorm.DB
	reconciler *payments.Service
	notifier   notify.Notifier
	nowFunc    func() time.Time
}

func NewService(db *gorm.DB, reconciler *payments.Service, notifier notify.Notifier) *Service {
	return &Service{
		db:         db,
		reconciler: reconciler,
		notifier:   notifier,
		nowFunc:    time.Now,
	}
}

type PlaceItemInput struct {
	MenuItemID uint
	Quantity   int
}

type PlaceInput struct {
	RestaurantID    uint
	DeliveryAddress string
	Notes           string
	PaymentMethod   models.PaymentMethod
	Items           []PlaceItemInput
}

// Place creates a new order in PLACED / UNPAID with prices snapshotted from
// the current menu. Later menu edits never change the order total.
func (s *Service) Place(customerID uint, in PlaceInput) (*models.Order, error) {
	var restaurant models.Restaurant
	if err := s.db.First(&restaurant, in.RestaurantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRestaurantNotFound
		}
		return nil, err
	}
	if !restaurant.IsOpen {
		return nil, ErrRestaurantClosed
	}

	var orderItems []models.OrderItem
	var total float64
	for _, reqItem := range in.Items {
		var menuItem models.MenuItem
		if err := s.db.First(&menuItem, reqItem.MenuItemID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrItemUnavailable
			}
			return nil, err
		}
		if menuItem.RestaurantID != in.RestaurantID {
			return nil, ErrItemWrongMenu
		}
		if !menuItem.IsAvailable {
			return nil, ErrItemUnavailable
		}
		total += menuItem.Price * float64(reqItem.Quantity)
		orderItems = append(orderItems, models.OrderItem{
			MenuItemID: menuItem.ID,
			Quantity:   reqItem.Quantity,
			Price:      menuItem.Price,
			Name:       menuItem.Name,
		})
	}

	method := in.PaymentMethod
	if method == "" {
		method = models.MethodCashOnDelivery
	}
	order := models.Order{
		CustomerID:      customerID,
		RestaurantID:    in.RestaurantID,
		Status:          models.StatusPlaced,
		PaymentStatus:   models.PaymentUnpaid,
		PaymentMethod:   method,
		TotalAmount:     round2(total),
		DeliveryAddress: in.DeliveryAddress,
		Notes:           in.Notes,
		Items:           orderItems,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&order).Error; err != nil {
			return err
		}
		return tx.Create(&models.OrderStatusHistory{
			OrderID:   order.ID,
			ToStatus:  models.StatusPlaced,
			ChangedBy: customerID,
			Note:      "Order placed by customer",
		}).Error
	})
	if err != nil {
		return nil, err
	}

	s.fireNotify("order placed", func() error {
		return s.notifier.OrderPlaced(&order)
	})
	return &order, nil
}

// Confirm moves PLACED → CONFIRMED. Confirming an already-confirmed order is
// an explicit no-op; any other source state is rejected.
func (s *Service) Confirm(orderID, actorID uint, actor string) (*models.Order, error) {
	order, err := s.get(orderID)
	if err != nil {
		return nil, err
	}
	if order.Status == models.StatusConfirmed {
		return order, nil
	}
	if err := statemachine.CanTransition(order.Status, models.StatusConfirmed, actor); err != nil {
		return nil, err
	}

	res := s.db.Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, models.StatusPlaced).
		Update("status", models.StatusConfirmed)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		// Lost a race; a concurrent confirm still counts as success
		order, err = s.get(orderID)
		if err != nil {
			return nil, err
		}
		if order.Status == models.StatusConfirmed {
			return order, nil
		}
		return nil, statemachine.CanTransition(order.Status, models.StatusConfirmed, actor)
	}

	s.recordHistory(orderID, models.StatusPlaced, models.StatusConfirmed, actorID, "Order confirmed")
	return s.finishTransition(orderID, models.StatusPlaced, models.StatusConfirmed)
}

// Cancel aborts an order before dispatch. When money is in flight the refund
// runs first; if it fails the order keeps its prior status so state never
// drifts ahead of a failed compensating action.
func (s *Service) Cancel(orderID, customerID uint) (*models.Order, error) {
	return s.cancel(orderID, customerID, statemachine.ActorCustomer, true)
}

// CancelByAdmin cancels on behalf of support, skipping the ownership check.
func (s *Service) CancelByAdmin(orderID, adminID uint) (*models.Order, error) {
	return s.cancel(orderID, adminID, statemachine.ActorAdmin, false)
}

func (s *Service) cancel(orderID, actorID uint, actor string, enforceOwner bool) (*models.Order, error) {
	order, err := s.get(orderID)
	if err != nil {
		return nil, err
	}
	if enforceOwner && order.CustomerID != actorID {
		return nil, ErrNotOrderOwner
	}
	if err := statemachine.CanTransition(order.Status, models.StatusCancelled, actor); err != nil {
		return nil, err
	}

	// Refund before cancel; a gateway failure aborts the cancellation
	if order.PaymentStatus == models.PaymentPending || order.PaymentStatus == models.PaymentPaid ||
		order.PaymentStatus == models.PaymentFailed {
		if err := s.reconciler.RefundForCancellation(orderID); err != nil {
			return nil, err
		}
	}

	prev := order.Status
	res := s.db.Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, prev).
		Update("status", models.StatusCancelled)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		order, err = s.get(orderID)
		if err != nil {
			return nil, err
		}
		return nil, statemachine.CanTransition(order.Status, models.StatusCancelled, actor)
	}

	s.recordHistory(orderID, prev, models.StatusCancelled, actorID, "Order cancelled")
	return s.finishTransition(orderID, prev, models.StatusCancelled)
}

// Claim resolves the race between partners accepting the same order. The
// whole decision is one conditional UPDATE: exactly one caller flips the row
// from CONFIRMED/unassigned to OUT_FOR_DELIVERY, everyone else gets
// ErrAlreadyClaimed. There is no read-then-write window.
func (s *Service) Claim(orderID, partnerID uint) (*models.Order, error) {
	res := s.db.Model(&models.Order{}).
		Where("id = ? AND status = ? AND delivery_partner_id IS NULL", orderID, models.StatusConfirmed).
		Updates(map[string]interface{}{
			"status":              models.StatusOutForDelivery,
			"delivery_partner_id": partnerID,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := s.get(orderID); err != nil {
			return nil, err
		}
		return nil, ErrAlreadyClaimed
	}

	s.recordHistory(orderID, models.StatusConfirmed, models.StatusOutForDelivery, partnerID, "Delivery partner accepted the order")
	return s.finishTransition(orderID, models.StatusConfirmed, models.StatusOutForDelivery)
}

// Deliver completes the order. Only settled money can be handed over: prepaid
// orders must already be PAID, and a still-unpaid cash order is collected at
// the door, marked PAID by the same UPDATE that sets DELIVERED. Everything
// else (unpaid prepaid, cash with an unsettled payment record) is refused.
func (s *Service) Deliver(orderID, partnerID uint) (*models.Order, error) {
	order, err := s.get(orderID)
	if err != nil {
		return nil, err
	}
	if order.DeliveryPartnerID == nil || *order.DeliveryPartnerID != partnerID {
		return nil, ErrNotAssignedPartner
	}
	if err := statemachine.CanTransition(order.Status, models.StatusDelivered, statemachine.ActorDelivery); err != nil {
		return nil, err
	}

	cashCollect := order.PaymentMethod == models.MethodCashOnDelivery && order.PaymentStatus == models.PaymentUnpaid
	if !cashCollect && order.PaymentStatus != models.PaymentPaid {
		return nil, ErrPaymentNotSettled
	}

	updates := map[string]interface{}{
		"status":         models.StatusDelivered,
		"delivered_date": s.nowFunc(),
	}
	if cashCollect {
		updates["payment_status"] = models.PaymentPaid
	}

	// payment_status in the guard keeps the settlement check and the
	// transition one atomic decision
	res := s.db.Model(&models.Order{}).
		Where("id = ? AND status = ? AND delivery_partner_id = ? AND payment_status = ?",
			orderID, models.StatusOutForDelivery, partnerID, order.PaymentStatus).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		order, err = s.get(orderID)
		if err != nil {
			return nil, err
		}
		if err := statemachine.CanTransition(order.Status, models.StatusDelivered, statemachine.ActorDelivery); err != nil {
			return nil, err
		}
		// status was fine, so the payment guard is what failed; the caller
		// can retry once the payment settles
		return nil, ErrPaymentNotSettled
	}

	s.recordHistory(orderID, models.StatusOutForDelivery, models.StatusDelivered, partnerID, "Order delivered to customer")
	return s.finishTransition(orderID, models.StatusOutForDelivery, models.StatusDelivered)
}

func (s *Service) get(orderID uint) (*models.Order, error) {
	var order models.Order
	if err := s.db.First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

func (s *Service) recordHistory(orderID uint, from, to models.OrderStatus, changedBy uint, note string) {
	if err := s.db.Create(&models.OrderStatusHistory{
		OrderID:    orderID,
		FromStatus: from,
		ToStatus:   to,
		ChangedBy:  changedBy,
		Note:       note,
	}).Error; err != nil {
		log.Printf("⚠️  failed to record status history for order %d: %v", orderID, err)
	}
}

func (s *Service) finishTransition(orderID uint, from, to models.OrderStatus) (*models.Order, error) {
	order, err := s.get(orderID)
	if err != nil {
		return nil, err
	}
	s.fireNotify("status change", func() error {
		return s.notifier.OrderStatusChanged(order, from, to)
	})
	return order, nil
}

func (s *Service) fireNotify(event string, fn func() error) {
	if s.notifier == nil {
		return
	}
	if err := fn(); err != nil {
		log.Printf("⚠️  notification (%s) failed: %v", event, err)
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
