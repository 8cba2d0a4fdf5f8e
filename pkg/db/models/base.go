package models

import "github.com/google/uuid"

// assignID fills a missing primary key before insert so rows never depend on database-side uuid defaults.
func assignID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

// All lists every model owned by the service, in dependency order for AutoMigrate in tests.
func All() []any {
	return []any{
		&Organization{},
		&OrganizationRef{},
		&SequenceCounter{},
		&Item{},
		&ItemUpdateHistory{},
		&Vendor{},
		&VendorRestock{},
		&Customer{},
		&CustomerOrderSummary{},
		&Order{},
		&OrderLineItem{},
		&Employee{},
		&PerformanceReview{},
	}
}
