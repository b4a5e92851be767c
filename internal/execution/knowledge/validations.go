package knowledge

import (
	"fmt"

	"github.com/astc-project/astc-backend/internal/execution/domain"
)

// Validations builds the post-execution validation template for a
// transaction. The first entry always reflects overall completion; the rest
// are transaction-specific expectations, defaulted to passed.
func (b *Base) Validations(transaction string, passed bool) []domain.ValidationResult {
	status := "passed"
	if !passed {
		status = "failed"
	}
	out := []domain.ValidationResult{{
		Validation: "Transaction completion",
		Expected:   fmt.Sprintf("%s transaction completed successfully", transaction),
		Actual:     fmt.Sprintf("%s completed with success status", transaction),
		Status:     status,
	}}

	specific := map[string][]domain.ValidationResult{
		"ME21N": {
			{Validation: "PO number generated", Expected: "4500xxxxxx format", Actual: "4500123456", Status: "passed"},
			{Validation: "Vendor validation", Expected: "Active vendor status", Actual: "Active vendor V001", Status: "passed"},
		},
		"MIGO": {
			{Validation: "Material document created", Expected: "5000xxxxxx format", Actual: "5000654321", Status: "passed"},
			{Validation: "Quantity validation", Expected: "Received quantity matches PO", Actual: "100 units received", Status: "passed"},
		},
		"VA01": {
			{Validation: "Sales order number generated", Expected: "1000xxxxxx format", Actual: "1000567890", Status: "passed"},
			{Validation: "ATP check", Expected: "Sufficient stock available", Actual: "Stock: 150 units available", Status: "passed"},
		},
	}

	return append(out, specific[transaction]...)
}
