package statemachine

import (
	"fmt"

	"delivery-marketplace-api/models"
)

// Actors that may drive order transitions
const (
	ActorCustomer   = "customer"
	ActorRestaurant = "restaurant"
	ActorDelivery   = "delivery"
	ActorAdmin      = "admin"
	ActorSystem     = "system"
)

// Transition defines a valid state change and who can perform it
type Transition struct {
	From  models.OrderStatus
	To    models.OrderStatus
	Actor string
}

// validTransitions is the authoritative state machine definition
var validTransitions = []Transition{
	// Restaurant (or the system) confirms the order
	{From: models.StatusPlaced, To: models.StatusConfirmed, Actor: ActorRestaurant},
	{From: models.StatusPlaced, To: models.StatusConfirmed, Actor: ActorSystem},
	{From: models.StatusPlaced, To: models.StatusConfirmed, Actor: ActorAdmin},
	// Only the owning customer cancels, and only before dispatch
	{From: models.StatusPlaced, To: models.StatusCancelled, Actor: ActorCustomer},
	{From: models.StatusConfirmed, To: models.StatusCancelled, Actor: ActorCustomer},
	{From: models.StatusPlaced, To: models.StatusCancelled, Actor: ActorAdmin},
	{From: models.StatusConfirmed, To: models.StatusCancelled, Actor: ActorAdmin},
	// Delivery partner claims the order
	{From: models.StatusConfirmed, To: models.StatusOutForDelivery, Actor: ActorDelivery},
	// Assigned partner completes the delivery
	{From: models.StatusOutForDelivery, To: models.StatusDelivered, Actor: ActorDelivery},
	{From: models.StatusOutForDelivery, To: models.StatusDelivered, Actor: ActorAdmin},
}

// transitionKey is used to look up valid transitions quickly
type transitionKey struct {
	From  models.OrderStatus
	To    models.OrderStatus
	Actor string
}

// Build a lookup map for O(1) validation
var transitionMap = func() map[transitionKey]bool {
	m := make(map[transitionKey]bool)
	for _, t := range validTransitions {
		m[transitionKey{t.From, t.To, t.Actor}] = true
	}
	return m
}()

// TransitionError reports a rejected state change, naming the current and
// requested states.
type TransitionError struct {
	From  models.OrderStatus
	To    models.OrderStatus
	Actor string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid transition: %s → %s is not allowed for actor %q; valid transitions from %s are: %s",
		e.From, e.To, e.Actor, e.From, describeValidFrom(e.From))
}

// ValidTransitionsFrom returns all valid next states from a given state
func ValidTransitionsFrom(status models.OrderStatus) []models.OrderStatus {
	var nexts []models.OrderStatus
	seen := map[models.OrderStatus]bool{}
	for _, t := range validTransitions {
		if t.From == status && !seen[t.To] {
			nexts = append(nexts, t.To)
			seen[t.To] = true
		}
	}
	return nexts
}

// CanTransition checks if a given actor can move from one state to another
func CanTransition(from, to models.OrderStatus, actor string) error {
	if transitionMap[transitionKey{From: from, To: to, Actor: actor}] {
		return nil
	}
	return &TransitionError{From: from, To: to, Actor: actor}
}

func describeValidFrom(status models.OrderStatus) string {
	nexts := ValidTransitionsFrom(status)
	if len(nexts) == 0 {
		return "none (terminal state)"
	}
	result := ""
	for i, s := range nexts {
		if i > 0 {
			result += ", "
		}
		result += string(s)
	}
	return result
}

// GetAllTransitions returns the full state machine for documentation
func GetAllTransitions() []Transition {
	return validTransitions
}
