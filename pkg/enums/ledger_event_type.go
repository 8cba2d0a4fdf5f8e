package enums

import (
	"fmt"
	"strings"
)

// LedgerEventType classifies an item update history entry.
type LedgerEventType string

const (
	LedgerEventTypeReplenishment LedgerEventType = "REPLENISHMENT"
	LedgerEventTypeOrder         LedgerEventType = "ORDER"
	LedgerEventTypeOrderRevert   LedgerEventType = "ORDER_REVERT"
)

// ledgerSigns maps each kind to the direction it moves stock.
var ledgerSigns = map[LedgerEventType]int{
	LedgerEventTypeReplenishment: 1,
	LedgerEventTypeOrder:         -1,
	LedgerEventTypeOrderRevert:   1,
}

func (t LedgerEventType) String() string {
	return string(t)
}

func (t LedgerEventType) IsValid() bool {
	_, ok := ledgerSigns[t]
	return ok
}

// Sign is +1 for kinds that add stock, -1 for deductions and 0 for unknown kinds.
func (t LedgerEventType) Sign() int {
	return ledgerSigns[t]
}

// Additive reports whether the entry increases stock.
func (t LedgerEventType) Additive() bool {
	return t.Sign() > 0
}

// ParseLedgerEventType accepts history filter input such as "order_revert".
func ParseLedgerEventType(value string) (LedgerEventType, error) {
	t := LedgerEventType(strings.ToUpper(strings.TrimSpace(value)))
	if !t.IsValid() {
		return "", fmt.Errorf("invalid ledger event type %q", value)
	}
	return t, nil
}
