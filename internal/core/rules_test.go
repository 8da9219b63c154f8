package core_test

import (
	"context"
	"errors"
	"testing"

	"mintcore/internal/core"
	memory "mintcore/internal/infra/persistence/memory"
	"mintcore/pkg/domain"
)

// corruptState imports a snapshot with the given mutation applied, then runs
// a no-op transaction so the default rules evaluate the corrupted state.
func evaluateCorrupted(t *testing.T, mutate func(*memory.Snapshot)) error {
	t.Helper()
	store := memory.NewStore(core.NewDefaultRulesEngine())
	if _, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		category, txErr := tx.CreateCategory(5, "creator")
		if txErr != nil {
			return txErr
		}
		_, txErr = tx.IssueItem(category.ID, "alice")
		return txErr
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	snapshot := store.ExportState()
	mutate(&snapshot)
	store.ImportState(snapshot)

	_, err := store.RunInTransaction(context.Background(), func(domain.Transaction) error { return nil })
	return err
}

func violationRules(err error) []string {
	var violation domain.RuleViolationError
	if !errors.As(err, &violation) {
		return nil
	}
	rules := make([]string, 0, len(violation.Result.Violations))
	for _, v := range violation.Result.Violations {
		rules = append(rules, v.Rule)
	}
	return rules
}

func TestSupplyCapRuleBlocksOverIssuance(t *testing.T) {
	err := evaluateCorrupted(t, func(s *memory.Snapshot) {
		category := s.Categories[0]
		category.IssuedCount = category.SupplyCap + 1
		s.Categories[0] = category
	})
	rules := violationRules(err)
	if len(rules) == 0 {
		t.Fatalf("expected blocking violations, got %v", err)
	}
	found := false
	for _, rule := range rules {
		if rule == "supply_cap" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected supply_cap violation, got %v", rules)
	}
}

func TestSerialContiguityRuleBlocksOutOfRangeSerial(t *testing.T) {
	err := evaluateCorrupted(t, func(s *memory.Snapshot) {
		item := s.Items[0]
		item.Serial = 7
		s.Items[0] = item
	})
	rules := violationRules(err)
	if len(rules) == 0 {
		t.Fatalf("expected blocking violations, got %v", err)
	}
	for _, rule := range rules {
		if rule == "serial_contiguity" {
			return
		}
	}
	t.Fatalf("expected serial_contiguity violation, got %v", rules)
}

func TestSerialContiguityRuleBlocksUnknownCategoryReference(t *testing.T) {
	err := evaluateCorrupted(t, func(s *memory.Snapshot) {
		item := s.Items[0]
		item.CategoryID = 42
		s.Items[0] = item
	})
	if len(violationRules(err)) == 0 {
		t.Fatalf("expected blocking violations, got %v", err)
	}
}

func TestSerialContiguityRuleBlocksCountDrift(t *testing.T) {
	err := evaluateCorrupted(t, func(s *memory.Snapshot) {
		delete(s.Items, 0)
	})
	if len(violationRules(err)) == 0 {
		t.Fatalf("expected blocking violations, got %v", err)
	}
}

func TestDefaultRulesPassOnHealthyState(t *testing.T) {
	store := memory.NewStore(core.NewDefaultRulesEngine())
	res, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		category, txErr := tx.CreateCategory(3, "creator")
		if txErr != nil {
			return txErr
		}
		for i := 0; i < 3; i++ {
			if _, txErr := tx.IssueItem(category.ID, "alice"); txErr != nil {
				return txErr
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}
	if len(res.Violations) != 0 {
		t.Fatalf("healthy state must produce no violations: %+v", res.Violations)
	}
}
