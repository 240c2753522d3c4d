package statemachine

import (
	"errors"
	"strings"
	"testing"

	"delivery-marketplace-api/models"
)

func TestValidTransitions(t *testing.T) {
	cases := []struct {
		from  models.OrderStatus
		to    models.OrderStatus
		actor string
	}{
		{models.StatusPlaced, models.StatusConfirmed, ActorRestaurant},
		{models.StatusPlaced, models.StatusConfirmed, ActorSystem},
		{models.StatusPlaced, models.StatusCancelled, ActorCustomer},
		{models.StatusConfirmed, models.StatusCancelled, ActorCustomer},
		{models.StatusConfirmed, models.StatusOutForDelivery, ActorDelivery},
		{models.StatusOutForDelivery, models.StatusDelivered, ActorDelivery},
	}
	for _, tc := range cases {
		if err := CanTransition(tc.from, tc.to, tc.actor); err != nil {
			t.Fatalf("%s → %s by %s should be valid: %v", tc.from, tc.to, tc.actor, err)
		}
	}
}

func TestInvalidTransitions(t *testing.T) {
	cases := []struct {
		from  models.OrderStatus
		to    models.OrderStatus
		actor string
	}{
		// wrong source state
		{models.StatusPlaced, models.StatusOutForDelivery, ActorDelivery},
		{models.StatusPlaced, models.StatusDelivered, ActorDelivery},
		{models.StatusOutForDelivery, models.StatusCancelled, ActorCustomer},
		{models.StatusDelivered, models.StatusCancelled, ActorCustomer},
		{models.StatusCancelled, models.StatusConfirmed, ActorRestaurant},
		// right transition, wrong actor
		{models.StatusConfirmed, models.StatusOutForDelivery, ActorCustomer},
		{models.StatusOutForDelivery, models.StatusDelivered, ActorRestaurant},
		{models.StatusPlaced, models.StatusCancelled, ActorRestaurant},
	}
	for _, tc := range cases {
		err := CanTransition(tc.from, tc.to, tc.actor)
		if err == nil {
			t.Fatalf("%s → %s by %s should be rejected", tc.from, tc.to, tc.actor)
		}
		var te *TransitionError
		if !errors.As(err, &te) {
			t.Fatalf("expected *TransitionError, got %T", err)
		}
		if te.From != tc.from || te.To != tc.to {
			t.Fatalf("error should carry current and requested states, got %+v", te)
		}
	}
}

func TestTransitionErrorNamesStates(t *testing.T) {
	err := CanTransition(models.StatusDelivered, models.StatusCancelled, ActorCustomer)
	if err == nil {
		t.Fatal("expected error")
	}
	msg := err.Error()
	if !strings.Contains(msg, string(models.StatusDelivered)) || !strings.Contains(msg, string(models.StatusCancelled)) {
		t.Fatalf("error message should name both states: %q", msg)
	}
	if !strings.Contains(msg, "terminal") {
		t.Fatalf("error from a terminal state should say so: %q", msg)
	}
}

func TestValidTransitionsFrom(t *testing.T) {
	nexts := ValidTransitionsFrom(models.StatusConfirmed)
	want := map[models.OrderStatus]bool{
		models.StatusCancelled:      true,
		models.StatusOutForDelivery: true,
	}
	if len(nexts) != len(want) {
		t.Fatalf("expected %d next states from CONFIRMED, got %v", len(want), nexts)
	}
	for _, s := range nexts {
		if !want[s] {
			t.Fatalf("unexpected next state %s from CONFIRMED", s)
		}
	}

	if got := ValidTransitionsFrom(models.StatusDelivered); len(got) != 0 {
		t.Fatalf("DELIVERED is terminal, got next states %v", got)
	}
	if got := ValidTransitionsFrom(models.StatusCancelled); len(got) != 0 {
		t.Fatalf("CANCELLED is terminal, got next states %v", got)
	}
}
