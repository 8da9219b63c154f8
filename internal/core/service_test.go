package core_test

import (
	"context"
	"errors"
	"testing"

	"mintcore/pkg/domain"
)

func TestCreateCategoryRequiresAdministrator(t *testing.T) {
	env := newTestEnv(t)
	_, _, err := env.svc.CreateCategory(context.Background(), "mallory", 10, "creator")
	if !errors.Is(err, domain.ErrNotAdministrator) {
		t.Fatalf("expected ErrNotAdministrator, got %v", err)
	}
	if len(env.store.ListCategories()) != 0 {
		t.Fatalf("rejected creation must not persist")
	}
}

func TestCreateCategoryNotifiesAfterCommit(t *testing.T) {
	env := newTestEnv(t)
	category := env.createCategory(t, 10)
	if category.ID != 0 || category.SupplyCap != 10 {
		t.Fatalf("unexpected category %+v", category)
	}
	if len(env.notifier.created) != 1 || env.notifier.created[0] != category.ID {
		t.Fatalf("expected one creation notification, got %v", env.notifier.created)
	}
}

func TestExistsOutlivesExhaustion(t *testing.T) {
	env := newTestEnv(t)
	category := env.createCategory(t, 1)
	if !env.svc.Exists(category.ID) {
		t.Fatalf("fresh category must exist")
	}
	env.issue(t, category.ID, "alice")
	if !env.svc.Exists(category.ID) {
		t.Fatalf("exhausted category must still exist")
	}
	if env.svc.AvailableSlots(category.ID) != 0 {
		t.Fatalf("exhausted category must have 0 slots")
	}
	if env.svc.Exists(99) {
		t.Fatalf("never-created category must not exist")
	}
	if env.svc.AvailableSlots(99) != 0 {
		t.Fatalf("never-created category reports 0 slots by convention")
	}
}

func TestIssueOneRecordsOwnership(t *testing.T) {
	env := newTestEnv(t)
	category := env.createCategory(t, 5)
	item := env.issue(t, category.ID, "alice")

	if item.Serial != 1 || item.CategoryID != category.ID {
		t.Fatalf("unexpected item %+v", item)
	}
	if owner := env.ledger.owners[item.ID]; owner != "alice" {
		t.Fatalf("ledger owner mismatch: %q", owner)
	}
	if len(env.notifier.issued) != 1 {
		t.Fatalf("expected one issuance notification")
	}
}

func TestIssueOneGuards(t *testing.T) {
	env := newTestEnv(t)
	category := env.createCategory(t, 5)

	if _, _, err := env.svc.IssueOne(context.Background(), "mallory", category.ID, "alice"); !errors.Is(err, domain.ErrNotAdministrator) {
		t.Fatalf("expected ErrNotAdministrator, got %v", err)
	}

	env.auth.suspended = true
	if _, _, err := env.svc.IssueOne(context.Background(), admin, category.ID, "alice"); !errors.Is(err, domain.ErrOperationSuspended) {
		t.Fatalf("expected ErrOperationSuspended, got %v", err)
	}
	env.auth.suspended = false

	if _, _, err := env.svc.IssueOne(context.Background(), admin, 99, "alice"); !errors.Is(err, domain.ErrCategoryNotFound) {
		t.Fatalf("expected ErrCategoryNotFound, got %v", err)
	}
}

func TestIssueOneLedgerFailureRollsBack(t *testing.T) {
	env := newTestEnv(t)
	category := env.createCategory(t, 5)
	env.ledger.failCreate = errors.New("ledger down")

	_, _, err := env.svc.IssueOne(context.Background(), admin, category.ID, "alice")
	if err == nil {
		t.Fatalf("expected ledger failure")
	}
	if len(env.store.ListItems()) != 0 {
		t.Fatalf("failed issuance must not commit an item")
	}
	got, _ := env.store.GetCategory(category.ID)
	if got.IssuedCount != 0 {
		t.Fatalf("failed issuance must not consume supply, issued %d", got.IssuedCount)
	}
}

func TestIssueBatchAssignsSequentialSerials(t *testing.T) {
	env := newTestEnv(t)
	category := env.createCategory(t, 10)

	items, _, err := env.svc.IssueBatch(context.Background(), admin, category.ID, "alice", 4)
	if err != nil {
		t.Fatalf("issue batch: %v", err)
	}
	if len(items) != 4 {
		t.Fatalf("expected 4 items, got %d", len(items))
	}
	for i, item := range items {
		if item.Serial != uint64(i)+1 {
			t.Fatalf("expected serial %d, got %d", i+1, item.Serial)
		}
		if env.ledger.owners[item.ID] != "alice" {
			t.Fatalf("item %d missing ledger record", item.ID)
		}
	}
	if len(env.notifier.issued) != 4 {
		t.Fatalf("expected 4 issuance notifications, got %d", len(env.notifier.issued))
	}
}

// The precondition order is fixed: batch ceiling, then remaining quota, then
// category existence. A huge batch against an unknown category reports the
// ceiling, not the missing category.
func TestIssueBatchCheckOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, _, err := env.svc.IssueBatch(ctx, admin, 99, "alice", domain.DefaultMaxBatchSize+1); !errors.Is(err, domain.ErrBatchTooLarge) {
		t.Fatalf("expected ErrBatchTooLarge first, got %v", err)
	}
	if _, _, err := env.svc.IssueBatch(ctx, admin, 99, "alice", 1); !errors.Is(err, domain.ErrSupplyExhausted) {
		t.Fatalf("expected ErrSupplyExhausted before existence check, got %v", err)
	}
	if _, _, err := env.svc.IssueBatch(ctx, admin, 99, "alice", 0); !errors.Is(err, domain.ErrCategoryNotFound) {
		t.Fatalf("expected ErrCategoryNotFound for zero-count unknown category, got %v", err)
	}

	category := env.createCategory(t, 2)
	if _, _, err := env.svc.IssueBatch(ctx, admin, category.ID, "alice", 3); !errors.Is(err, domain.ErrSupplyExhausted) {
		t.Fatalf("expected ErrSupplyExhausted for over-quota batch, got %v", err)
	}
	got, _ := env.store.GetCategory(category.ID)
	if got.IssuedCount != 0 {
		t.Fatalf("failed batch must issue nothing, issued %d", got.IssuedCount)
	}
}

func TestIssueBatchHonorsLoweredCeiling(t *testing.T) {
	env := newTestEnv(t)
	category := env.createCategory(t, 50)

	if _, err := env.svc.SetMaxBatchSize(context.Background(), admin, 3); err != nil {
		t.Fatalf("set batch size: %v", err)
	}
	if env.svc.MaxBatchSize() != 3 {
		t.Fatalf("expected ceiling 3, got %d", env.svc.MaxBatchSize())
	}
	if _, _, err := env.svc.IssueBatch(context.Background(), admin, category.ID, "alice", 4); !errors.Is(err, domain.ErrBatchTooLarge) {
		t.Fatalf("expected ErrBatchTooLarge, got %v", err)
	}
	if _, _, err := env.svc.IssueBatch(context.Background(), admin, category.ID, "alice", 3); err != nil {
		t.Fatalf("batch at ceiling must pass: %v", err)
	}
}

func TestSetMaxBatchSizeRequiresAdministrator(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.svc.SetMaxBatchSize(context.Background(), "mallory", 5); !errors.Is(err, domain.ErrNotAdministrator) {
		t.Fatalf("expected ErrNotAdministrator, got %v", err)
	}
	if env.svc.MaxBatchSize() != domain.DefaultMaxBatchSize {
		t.Fatalf("rejected update must not change the ceiling")
	}
}

func TestSetUpgradeRuleAndLookups(t *testing.T) {
	env := newTestEnv(t)
	base := env.createCategory(t, 5)
	mix := env.createCategory(t, 5)
	target := env.createCategory(t, 5)

	env.setRule(t, base.ID, mix.ID, target.ID, 2)

	if !env.svc.IsUpgradeable(base.ID, mix.ID) || !env.svc.IsUpgradeable(mix.ID, base.ID) {
		t.Fatalf("rule must be readable under both orderings")
	}
	rule, ok := env.svc.GetUpgradeRule(base.ID, mix.ID)
	if !ok || rule.Target != target.ID || rule.RequiredCount != 2 {
		t.Fatalf("unexpected rule %+v ok=%v", rule, ok)
	}
	if env.svc.IsUpgradeable(base.ID, target.ID) {
		t.Fatalf("unrelated pair must not be upgradeable")
	}
}

func TestSetUpgradeRuleValidatesCategories(t *testing.T) {
	env := newTestEnv(t)
	base := env.createCategory(t, 5)
	if _, _, err := env.svc.SetUpgradeRule(context.Background(), admin, base.ID, 7, 8, 2); !errors.Is(err, domain.ErrCategoryNotFound) {
		t.Fatalf("expected ErrCategoryNotFound, got %v", err)
	}
	if _, _, err := env.svc.SetUpgradeRule(context.Background(), "mallory", base.ID, base.ID, base.ID, 2); !errors.Is(err, domain.ErrNotAdministrator) {
		t.Fatalf("expected ErrNotAdministrator, got %v", err)
	}
}
