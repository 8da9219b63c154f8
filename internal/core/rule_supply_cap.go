package core

import (
	"context"
	"fmt"

	"mintcore/pkg/domain"
)

// NewSupplyCapRule returns the in-transaction rule enforcing that no
// category's issued count exceeds its supply cap.
func NewSupplyCapRule() domain.Rule {
	return supplyCapRule{}
}

type supplyCapRule struct{}

func (supplyCapRule) Name() string { return "supply_cap" }

func (supplyCapRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, category := range view.ListCategories() {
		if category.IssuedCount > category.SupplyCap {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "supply_cap",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("category %d over supply: %d/%d issued", category.ID, category.IssuedCount, category.SupplyCap),
				Entity:   domain.EntityCategory,
				EntityID: category.ID,
			})
		}
	}
	return res, nil
}
