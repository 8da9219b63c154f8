package core

import (
	"context"
	"fmt"

	"mintcore/pkg/domain"
)

// upgradePhase tracks where the batch walk stands while a plan is built.
type upgradePhase int

const (
	// phaseScanningBase: consuming items of the current base category.
	phaseScanningBase upgradePhase = iota
	// phaseMixedSwitch: the walk just crossed into a second category and the
	// base has been rebound to it.
	phaseMixedSwitch
	// phaseComplete: the required count has been consumed and the plan holds
	// the final target.
	phaseComplete
)

// upgradePlan is the validated outcome of an upgrade batch walk: the items
// to retire, in batch order, and the category to mint the replacement into.
// Building the plan performs no mutation; mutations are applied only after
// the whole batch validates, so a failed upgrade retires nothing and issues
// nothing.
type upgradePlan struct {
	owner  Address
	retire []uint64
	target uint64
	phase  upgradePhase
}

// buildUpgradePlan reproduces the merge validation walk:
//
//  1. The base category is the category of the first item (zero-value for an
//     unknown item, matching the original lookup-table semantics).
//  2. A self-pair rule must exist for the base, even for a pure
//     single-category merge.
//  3. The batch must carry at least the base's required count; only the
//     first requiredCount entries are consumed when it carries more.
//  4. Each consumed item must exist, be owned or approved for owner, and not
//     appear twice in the batch.
//  5. An item of a different category rebinds the base: a rule must link the
//     old base to the item's category, both categories must agree on the
//     required count, and the target is re-read for the new base's
//     self-pair. Later items validate against the new base.
//  6. The final target must exist and have an available slot, so the apply
//     phase never fails against valid state.
func buildUpgradePlan(ctx context.Context, tx domain.Transaction, ledger OwnershipLedger, owner Address, itemIDs []uint64) (upgradePlan, error) {
	if len(itemIDs) == 0 {
		return upgradePlan{}, fmt.Errorf("%w: empty batch", domain.ErrUpgradeCountMismatch)
	}

	// Unknown first items resolve to category zero, as a raw table read would.
	var currentFrom uint64
	if first, ok := tx.FindItem(itemIDs[0]); ok {
		currentFrom = first.CategoryID
	}

	if _, ok := tx.RuleTarget(currentFrom, currentFrom); !ok {
		return upgradePlan{}, fmt.Errorf("%w: category %d", domain.ErrUpgradeRuleNotFound, currentFrom)
	}
	required := tx.RequiredCount(currentFrom)
	if uint64(len(itemIDs)) < required {
		return upgradePlan{}, fmt.Errorf("%w: have %d, need %d", domain.ErrUpgradeCountMismatch, len(itemIDs), required)
	}
	currentTarget, _ := tx.RuleTarget(currentFrom, currentFrom)

	plan := upgradePlan{owner: owner, retire: make([]uint64, 0, required), phase: phaseScanningBase}
	pending := make(map[uint64]struct{}, required)
	for i := uint64(0); i < required; i++ {
		itemID := itemIDs[i]

		if _, dup := pending[itemID]; dup {
			return upgradePlan{}, fmt.Errorf("%w: item %d consumed twice in batch", domain.ErrItemNotFound, itemID)
		}

		exists, err := ledger.ItemExists(ctx, itemID)
		if err != nil {
			return upgradePlan{}, err
		}
		if !exists {
			return upgradePlan{}, fmt.Errorf("%w: item %d", domain.ErrItemNotFound, itemID)
		}
		item, ok := tx.FindItem(itemID)
		if !ok || item.Retired {
			return upgradePlan{}, fmt.Errorf("%w: item %d", domain.ErrItemNotFound, itemID)
		}

		approved, err := ledger.IsOwnerOrApproved(ctx, owner, itemID)
		if err != nil {
			return upgradePlan{}, err
		}
		if !approved {
			return upgradePlan{}, fmt.Errorf("%w: item %d", domain.ErrNotApprovedOrOwner, itemID)
		}

		if item.CategoryID != currentFrom {
			if _, ok := tx.RuleTarget(currentFrom, item.CategoryID); !ok {
				return upgradePlan{}, fmt.Errorf("%w: categories %d and %d", domain.ErrMixedUpgradeNotAllowed, currentFrom, item.CategoryID)
			}
			if tx.RequiredCount(currentFrom) != tx.RequiredCount(item.CategoryID) {
				return upgradePlan{}, fmt.Errorf("%w: categories %d and %d", domain.ErrMixedUpgradeCountMismatch, currentFrom, item.CategoryID)
			}
			// Rebind the base and re-read the target from the new base's
			// self-pair slot, mirroring the original table reads. An absent
			// self-pair leaves a zero target, preserved as inherited behavior.
			currentFrom = item.CategoryID
			currentTarget, _ = tx.RuleTarget(currentFrom, item.CategoryID)
			plan.phase = phaseMixedSwitch
		}

		pending[itemID] = struct{}{}
		plan.retire = append(plan.retire, itemID)
	}

	targetCategory, ok := tx.FindCategory(currentTarget)
	if !ok || !targetCategory.Exists() {
		return upgradePlan{}, fmt.Errorf("%w: category %d", domain.ErrCategoryNotFound, currentTarget)
	}
	if targetCategory.AvailableSlots() == 0 {
		return upgradePlan{}, fmt.Errorf("%w: category %d at %d/%d", domain.ErrSupplyExhausted, currentTarget, targetCategory.IssuedCount, targetCategory.SupplyCap)
	}

	plan.target = currentTarget
	plan.phase = phaseComplete
	return plan, nil
}

// applyUpgradePlan retires the planned items and issues the replacement.
// Runs only after buildUpgradePlan succeeded for the whole batch.
func (s *Service) applyUpgradePlan(ctx context.Context, tx domain.Transaction, plan upgradePlan, metadata []byte) (Item, error) {
	for _, itemID := range plan.retire {
		if err := s.ledger.DestroyItemRecord(ctx, itemID); err != nil {
			return Item{}, err
		}
		if _, err := tx.RetireItem(itemID); err != nil {
			return Item{}, err
		}
	}

	replacement, err := tx.IssueItem(plan.target, plan.owner)
	if err != nil {
		return Item{}, err
	}
	if err := s.ledger.CreateItemRecord(ctx, plan.owner, replacement.ID); err != nil {
		return Item{}, err
	}
	if len(metadata) > 0 {
		key, err := s.ledger.AssignMetadata(ctx, replacement.ID, metadata)
		if err != nil {
			return Item{}, err
		}
		replacement, err = tx.AssignItemMetadata(replacement.ID, key)
		if err != nil {
			return Item{}, err
		}
	}
	return replacement, nil
}

// Upgrade merges a batch of owned items into one newly issued item of the
// derived target category. The batch may span two categories linked by an
// upgrade rule; consumed items are retired and their category's issued count
// stays consumed. Any validation failure aborts with no retirement and no
// issuance.
func (s *Service) Upgrade(ctx context.Context, owner Address, itemIDs []uint64, metadata []byte) (Item, Result, error) {
	var replacement Item
	var plan upgradePlan
	var res Result
	err := s.observe(ctx, "upgrade", owner, func(ctx context.Context) error {
		if err := s.auth.RequireNotSuspended(ctx); err != nil {
			return err
		}
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			var txErr error
			plan, txErr = buildUpgradePlan(ctx, tx, s.ledger, owner, itemIDs)
			if txErr != nil {
				return txErr
			}
			replacement, txErr = s.applyUpgradePlan(ctx, tx, plan, metadata)
			return txErr
		})
		return err
	})
	if err != nil {
		return Item{}, res, err
	}
	s.notifier.ItemsUpgraded(ctx, owner, plan.retire, replacement)
	return replacement, res, nil
}
