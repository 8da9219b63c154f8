package domain

import "errors"

// Registry error taxonomy. Every failure aborts the enclosing operation and
// leaves tracked state unchanged; nothing is retried internally. Callers
// match with errors.Is against these sentinels; call sites wrap them with
// identifying detail via fmt.Errorf("%w: ...").
var (
	// ErrInvalidSupply rejects category creation with a non-positive supply cap.
	ErrInvalidSupply = errors.New("supply cap must be positive")
	// ErrCounterOverflow rejects category creation when the identifier counter would wrap.
	ErrCounterOverflow = errors.New("identifier counter overflow")
	// ErrCategoryExists rejects creation when the computed identifier already
	// denotes an existing category (identifier reuse or misconfiguration).
	ErrCategoryExists = errors.New("category already exists")
	// ErrCategoryNotFound reports an operation against a never-created category.
	ErrCategoryNotFound = errors.New("category not found")
	// ErrSupplyExhausted reports an issuance that would exceed the supply cap.
	ErrSupplyExhausted = errors.New("category supply exhausted")
	// ErrBatchTooLarge reports a batch issuance above the configured ceiling.
	ErrBatchTooLarge = errors.New("batch exceeds configured limit")
	// ErrItemNotFound reports a reference to an unknown or retired item.
	ErrItemNotFound = errors.New("item not found")
	// ErrNotApprovedOrOwner reports an upgrade attempt by a caller who is
	// neither the owner nor an approved agent of a consumed item.
	ErrNotApprovedOrOwner = errors.New("caller is not owner or approved agent")
	// ErrUpgradeRuleNotFound reports a missing self-pair rule for the first
	// item's category.
	ErrUpgradeRuleNotFound = errors.New("no upgrade rule configured for category")
	// ErrUpgradeCountMismatch reports a batch smaller than the required count.
	ErrUpgradeCountMismatch = errors.New("upgrade batch smaller than required count")
	// ErrMixedUpgradeNotAllowed reports a mixed item whose category has no
	// rule linking it to the current base category.
	ErrMixedUpgradeNotAllowed = errors.New("no upgrade rule between categories")
	// ErrMixedUpgradeCountMismatch reports a mixed merge whose two legs
	// disagree on the required item count.
	ErrMixedUpgradeCountMismatch = errors.New("mixed upgrade required counts differ")
	// ErrNotAdministrator reports a privileged operation without the
	// administrator credential.
	ErrNotAdministrator = errors.New("administrator credential required")
	// ErrOperationSuspended reports an ownership-moving operation while the
	// registry is suspended.
	ErrOperationSuspended = errors.New("registry operations suspended")
)
