package enums

import "testing"

func TestOrderStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to OrderStatus
		allowed  bool
	}{
		{OrderStatusPending, OrderStatusProcessing, true},
		{OrderStatusPending, OrderStatusDelivered, true},
		{OrderStatusProcessing, OrderStatusShipped, true},
		{OrderStatusShipped, OrderStatusDelivered, true},
		{OrderStatusDelivered, OrderStatusPending, false},
		{OrderStatusShipped, OrderStatusProcessing, false},
		{OrderStatusDelivered, OrderStatusDelivered, true},
	}
	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.allowed {
			t.Fatalf("%s -> %s expected %v got %v", tt.from, tt.to, tt.allowed, got)
		}
	}
}

func TestParseOrderStatusIgnoresCase(t *testing.T) {
	status, err := ParseOrderStatus(" shipped ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != OrderStatusShipped {
		t.Fatalf("expected SHIPPED, got %s", status)
	}
	if _, err := ParseOrderStatus("lost"); err == nil {
		t.Fatalf("expected error for unknown status")
	}
}

func TestEntityPrefixes(t *testing.T) {
	want := map[EntityType]string{
		EntityTypeItem:     "ITEM-",
		EntityTypeOrder:    "ORD-",
		EntityTypeCustomer: "CUST-",
		EntityTypeVendor:   "VEND-",
		EntityTypeEmployee: "EMP-",
	}
	for entity, prefix := range want {
		if entity.Prefix() != prefix {
			t.Fatalf("entity %s expected prefix %s got %s", entity, prefix, entity.Prefix())
		}
	}
	if EntityType("invoice").IsValid() {
		t.Fatalf("unknown entity type should be invalid")
	}
}

func TestLedgerEventTypeDirection(t *testing.T) {
	if LedgerEventTypeOrder.Additive() || LedgerEventTypeOrder.Sign() != -1 {
		t.Fatalf("order deductions remove stock")
	}
	if !LedgerEventTypeOrderRevert.Additive() || !LedgerEventTypeReplenishment.Additive() {
		t.Fatalf("reverts and replenishments are additive")
	}
	if LedgerEventType("TRANSFER").Sign() != 0 {
		t.Fatalf("unknown kinds have no direction")
	}

	kind, err := ParseLedgerEventType(" order_revert ")
	if err != nil || kind != LedgerEventTypeOrderRevert {
		t.Fatalf("expected ORDER_REVERT, got %s (%v)", kind, err)
	}
	if _, err := ParseLedgerEventType("transfer"); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}

func TestActorRoles(t *testing.T) {
	role, err := ParseActorRole("worker")
	if err != nil || role != ActorRoleWorker {
		t.Fatalf("expected WORKER, got %s (%v)", role, err)
	}
	if _, err := ParseActorRole("owner"); err == nil {
		t.Fatalf("expected error for unknown role")
	}
}
