package core

import (
	"context"
	"fmt"

	"mintcore/pkg/domain"
)

// NewSerialContiguityRule returns the in-transaction rule enforcing that the
// serials assigned within each category form exactly the run 1..issuedCount
// with no gaps or duplicates. Retired items keep their serial, so the run
// never shrinks.
func NewSerialContiguityRule() domain.Rule {
	return serialContiguityRule{}
}

type serialContiguityRule struct{}

func (serialContiguityRule) Name() string { return "serial_contiguity" }

func (serialContiguityRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	counts := make(map[uint64]uint64)
	res := domain.Result{}
	for _, item := range view.ListItems() {
		counts[item.CategoryID]++
		category, ok := view.FindCategory(item.CategoryID)
		if !ok {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "serial_contiguity",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("item %d references unknown category %d", item.ID, item.CategoryID),
				Entity:   domain.EntityItem,
				EntityID: item.ID,
			})
			continue
		}
		if item.Serial == 0 || item.Serial > category.IssuedCount {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "serial_contiguity",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("item %d serial %d outside 1..%d", item.ID, item.Serial, category.IssuedCount),
				Entity:   domain.EntityItem,
				EntityID: item.ID,
			})
			continue
		}
		indexed, ok := view.ItemBySerial(item.CategoryID, item.Serial)
		if !ok || indexed.ID != item.ID {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "serial_contiguity",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("category %d serial %d index mismatch for item %d", item.CategoryID, item.Serial, item.ID),
				Entity:   domain.EntityItem,
				EntityID: item.ID,
			})
		}
	}
	for _, category := range view.ListCategories() {
		if counts[category.ID] != category.IssuedCount {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "serial_contiguity",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("category %d has %d items for issued count %d", category.ID, counts[category.ID], category.IssuedCount),
				Entity:   domain.EntityCategory,
				EntityID: category.ID,
			})
		}
	}
	return res, nil
}
