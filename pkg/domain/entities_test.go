package domain

import "testing"

func TestCategoryExistsFollowsSupplyCap(t *testing.T) {
	var never Category
	if never.Exists() {
		t.Fatalf("zero-value category must not exist")
	}
	created := Category{ID: 3, SupplyCap: 10}
	if !created.Exists() {
		t.Fatalf("category with positive cap must exist")
	}
	created.IssuedCount = created.SupplyCap
	if !created.Exists() {
		t.Fatalf("exhausted category must still exist")
	}
}

func TestCategoryAvailableSlots(t *testing.T) {
	cases := []struct {
		name     string
		category Category
		want     uint64
	}{
		{"never created", Category{}, 0},
		{"fresh", Category{SupplyCap: 5}, 5},
		{"partially issued", Category{SupplyCap: 5, IssuedCount: 3}, 2},
		{"exhausted", Category{SupplyCap: 5, IssuedCount: 5}, 0},
	}
	for _, tc := range cases {
		if got := tc.category.AvailableSlots(); got != tc.want {
			t.Fatalf("%s: expected %d slots, got %d", tc.name, tc.want, got)
		}
	}
}

func TestResultMergeAndHasBlocking(t *testing.T) {
	var res Result
	res.Merge(Result{})
	if res.Violations != nil {
		t.Fatalf("merging an empty result must not allocate violations")
	}
	res.Merge(Result{Violations: []Violation{{Rule: "supply_cap", Severity: SeverityWarn}}})
	if len(res.Violations) != 1 {
		t.Fatalf("expected 1 violation, got %d", len(res.Violations))
	}
	if res.HasBlocking() {
		t.Fatalf("warn severity must not block")
	}
	res.Merge(Result{Violations: []Violation{{Rule: "serial_contiguity", Severity: SeverityBlock}}})
	if !res.HasBlocking() {
		t.Fatalf("block severity must block")
	}
}

func TestRuleViolationErrorMessage(t *testing.T) {
	err := RuleViolationError{Result: Result{Violations: []Violation{{Rule: "supply_cap", Severity: SeverityBlock}}}}
	if err.Error() == "" {
		t.Fatalf("expected error message")
	}
}
