package models

import "time"

// OrderStatus represents all possible states of a marketplace order
type OrderStatus string

const (
	StatusPlaced         OrderStatus = "PLACED"
	StatusConfirmed      OrderStatus = "CONFIRMED"
	StatusOutForDelivery OrderStatus = "OUT_FOR_DELIVERY"
	StatusDelivered      OrderStatus = "DELIVERED"
	StatusCancelled      OrderStatus = "CANCELLED"
)

// PaymentStatus is the order-side view of money state. It is kept in lockstep
// with the Payment record by the payments service.
type PaymentStatus string

const (
	PaymentUnpaid   PaymentStatus = "UNPAID"
	PaymentPending  PaymentStatus = "PENDING"
	PaymentPaid     PaymentStatus = "PAID"
	PaymentFailed   PaymentStatus = "FAILED"
	PaymentRefunded PaymentStatus = "REFUNDED"
)

type Order struct {
	ID                uint                 `json:"id" gorm:"primaryKey"`
	CustomerID        uint                 `json:"customer_id" gorm:"not null"`
	Customer          User                 `json:"customer,omitempty" gorm:"foreignKey:CustomerID"`
	RestaurantID      uint                 `json:"restaurant_id" gorm:"not null"`
	Restaurant        Restaurant           `json:"restaurant,omitempty" gorm:"foreignKey:RestaurantID"`
	DeliveryPartnerID *uint                `json:"delivery_partner_id"`
	DeliveryPartner   *User                `json:"delivery_partner,omitempty" gorm:"foreignKey:DeliveryPartnerID"`
	Status            OrderStatus          `json:"status" gorm:"not null;default:'PLACED'"`
	PaymentStatus     PaymentStatus        `json:"payment_status" gorm:"not null;default:'UNPAID'"`
	PaymentMethod     PaymentMethod        `json:"payment_method" gorm:"not null;default:'CASH_ON_DELIVERY'"`
	TotalAmount       float64              `json:"total_amount"` // always rounded to 2 decimal places
	DeliveryAddress   string               `json:"delivery_address" gorm:"not null"`
	Notes             string               `json:"notes"`
	DeliveredDate     *time.Time           `json:"delivered_date"`
	Items             []OrderItem          `json:"items,omitempty" gorm:"foreignKey:OrderID"`
	StatusHistory     []OrderStatusHistory `json:"status_history,omitempty" gorm:"foreignKey:OrderID"`
	CreatedAt         time.Time            `json:"created_at"`
	UpdatedAt         time.Time            `json:"updated_at"`
}

type OrderItem struct {
	ID         uint     `json:"id" gorm:"primaryKey"`
	OrderID    uint     `json:"order_id" gorm:"not null"`
	MenuItemID uint     `json:"menu_item_id" gorm:"not null"`
	MenuItem   MenuItem `json:"menu_item,omitempty" gorm:"foreignKey:MenuItemID"`
	Quantity   int      `json:"quantity" gorm:"not null"`
	Price      float64  `json:"price" gorm:"not null"` // snapshot price at time of order
	Name       string   `json:"name"`                  // snapshot name
}

// OrderStatusHistory is the audit trail of status changes.
type OrderStatusHistory struct {
	ID         uint        `json:"id" gorm:"primaryKey"`
	OrderID    uint        `json:"order_id" gorm:"not null"`
	FromStatus OrderStatus `json:"from_status"`
	ToStatus   OrderStatus `json:"to_status" gorm:"not null"`
	ChangedBy  uint        `json:"changed_by"` // user ID who triggered the transition
	Note       string      `json:"note"`
	CreatedAt  time.Time   `json:"created_at"`
}
