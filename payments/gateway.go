package payments

import "log"

// Gateway is the downstream payment provider collaborator. Only the refund
// call is needed server-side; captures are confirmed through signed webhook
// proofs handled by Verify.
type Gateway interface {
	Refund(transactionID string, amount float64) error
}

// simulatedGateway approves every refund. Used when no real provider is wired.
type simulatedGateway struct{}

func NewSimulatedGateway() Gateway { return simulatedGateway{} }

func (simulatedGateway) Refund(transactionID string, amount float64) error {
	log.Printf("💳 simulated gateway: refunded %.2f for txn %s", amount, transactionID)
	return nil
}
