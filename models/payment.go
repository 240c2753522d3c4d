package models

import "time"

// PaymentMethod enumerates supported payment instruments
type PaymentMethod string

const (
	MethodCreditCard     PaymentMethod = "CREDIT_CARD"
	MethodDebitCard      PaymentMethod = "DEBIT_CARD"
	MethodUPI            PaymentMethod = "UPI"
	MethodWallet         PaymentMethod = "WALLET"
	MethodNetBanking     PaymentMethod = "NET_BANKING"
	MethodCashOnDelivery PaymentMethod = "CASH_ON_DELIVERY"
)

// TransactionStatus is the gateway-side state of a payment record.
// SUCCESS, FAILED and REFUNDED are terminal.
type TransactionStatus string

const (
	TxnPending  TransactionStatus = "PENDING"
	TxnSuccess  TransactionStatus = "SUCCESS"
	TxnFailed   TransactionStatus = "FAILED"
	TxnRefunded TransactionStatus = "REFUNDED"
)

// Terminal reports whether the status can no longer change.
func (s TransactionStatus) Terminal() bool {
	return s == TxnSuccess || s == TxnFailed || s == TxnRefunded
}

// Payment is the single payment record for an order. The unique index on
// OrderID enforces at most one payment per order at the storage layer.
type Payment struct {
	ID            uint              `json:"id" gorm:"primaryKey"`
	OrderID       uint              `json:"order_id" gorm:"uniqueIndex;not null"`
	Order         Order             `json:"order,omitempty" gorm:"foreignKey:OrderID"`
	Amount        float64           `json:"amount" gorm:"not null"` // equals order total at creation
	Method        PaymentMethod     `json:"method" gorm:"not null"`
	Status        TransactionStatus `json:"status" gorm:"not null;default:'PENDING'"`
	Receipt       string            `json:"receipt" gorm:"not null"` // our reference handed to the gateway
	TransactionID string            `json:"transaction_id"`          // set once the gateway confirms
	PaymentDate   time.Time         `json:"payment_date" gorm:"autoCreateTime"`
	UpdatedAt     time.Time         `json:"updated_at"`
}
