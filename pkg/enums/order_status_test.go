package enums

import "testing"

func TestOrderStatusTransitions(t *testing.T) {
	cases := []struct {
		from    OrderStatus
		to      OrderStatus
		allowed bool
	}{
		{OrderStatusPendingPayment, OrderStatusPending, true},
		{OrderStatusPendingPayment, OrderStatusPaymentFailed, true},
		{OrderStatusPaymentFailed, OrderStatusPendingPayment, true},
		{OrderStatusPending, OrderStatusShipped, true},
		{OrderStatusShipped, OrderStatusDelivered, true},
		{OrderStatusDelivered, OrderStatusShipped, false},
		{OrderStatusPendingPayment, OrderStatusShipped, false},
		{OrderStatusShipped, OrderStatusCanceled, false},
	}

	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.allowed {
			t.Fatalf("%s -> %s: expected allowed=%v, got %v", tc.from, tc.to, tc.allowed, got)
		}
	}
}

func TestParseOrderStatus(t *testing.T) {
	status, err := ParseOrderStatus("shipped")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != OrderStatusShipped {
		t.Fatalf("unexpected status %q", status)
	}

	if _, err := ParseOrderStatus("teleported"); err == nil {
		t.Fatal("expected error for unknown status")
	}
}
