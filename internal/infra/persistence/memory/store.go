// Package memory provides the in-memory transactional store for the
// registry domain. Durable backends wrap this store and snapshot its state
// after each successful transaction.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"mintcore/pkg/domain"
)

// Aliases keep call sites inside the package terse.
type (
	// Address aliases domain.Address.
	Address = domain.Address
	// Category aliases domain.Category.
	Category = domain.Category
	// Item aliases domain.Item.
	Item = domain.Item
	// UpgradeRule aliases domain.UpgradeRule.
	UpgradeRule = domain.UpgradeRule
	// RulePair aliases domain.RulePair keying rule targets.
	RulePair = domain.RulePair
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
	// PersistentStore aliases domain.PersistentStore abstraction.
	PersistentStore = domain.PersistentStore
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ PersistentStore = (*Store)(nil)

type memoryState struct {
	categories     map[uint64]Category
	items          map[uint64]Item
	serials        map[uint64]map[uint64]uint64 // category id -> serial -> item id
	ruleTargets    map[RulePair]uint64
	requiredCounts map[uint64]uint64
	nextCategoryID uint64
	nextItemID     uint64
	maxBatchSize   uint64
}

// Snapshot captures a point-in-time clone of the store state. Rule targets
// are flattened to records because struct-keyed maps do not round-trip
// through JSON; the serial index is rebuilt from items on import.
type Snapshot struct {
	Categories     map[uint64]Category  `json:"categories"`
	Items          map[uint64]Item      `json:"items"`
	RuleTargets    []SnapshotRuleTarget `json:"rule_targets"`
	RequiredCounts map[uint64]uint64    `json:"required_counts"`
	NextCategoryID uint64               `json:"next_category_id"`
	NextItemID     uint64               `json:"next_item_id"`
	MaxBatchSize   uint64               `json:"max_batch_size"`
}

// SnapshotRuleTarget is one (base, mix) -> target entry of the rule table.
type SnapshotRuleTarget struct {
	Base   uint64 `json:"base"`
	Mix    uint64 `json:"mix"`
	Target uint64 `json:"target"`
}

func newMemoryState() memoryState {
	return memoryState{
		categories:     make(map[uint64]Category),
		items:          make(map[uint64]Item),
		serials:        make(map[uint64]map[uint64]uint64),
		ruleTargets:    make(map[RulePair]uint64),
		requiredCounts: make(map[uint64]uint64),
		maxBatchSize:   domain.DefaultMaxBatchSize,
	}
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	snapshot := Snapshot{
		Categories:     make(map[uint64]Category, len(state.categories)),
		Items:          make(map[uint64]Item, len(state.items)),
		RuleTargets:    make([]SnapshotRuleTarget, 0, len(state.ruleTargets)),
		RequiredCounts: make(map[uint64]uint64, len(state.requiredCounts)),
		NextCategoryID: state.nextCategoryID,
		NextItemID:     state.nextItemID,
		MaxBatchSize:   state.maxBatchSize,
	}
	for id, c := range state.categories {
		snapshot.Categories[id] = c
	}
	for id, it := range state.items {
		snapshot.Items[id] = it
	}
	for pair, target := range state.ruleTargets {
		snapshot.RuleTargets = append(snapshot.RuleTargets, SnapshotRuleTarget{Base: pair.Base, Mix: pair.Mix, Target: target})
	}
	sort.Slice(snapshot.RuleTargets, func(i, j int) bool {
		a, b := snapshot.RuleTargets[i], snapshot.RuleTargets[j]
		if a.Base != b.Base {
			return a.Base < b.Base
		}
		return a.Mix < b.Mix
	})
	for id, count := range state.requiredCounts {
		snapshot.RequiredCounts[id] = count
	}
	return snapshot
}

func memoryStateFromSnapshot(s Snapshot) memoryState {
	state := newMemoryState()
	for id, c := range s.Categories {
		state.categories[id] = c
	}
	for id, it := range s.Items {
		state.items[id] = it
		bySerial, ok := state.serials[it.CategoryID]
		if !ok {
			bySerial = make(map[uint64]uint64)
			state.serials[it.CategoryID] = bySerial
		}
		bySerial[it.Serial] = it.ID
	}
	for _, rt := range s.RuleTargets {
		state.ruleTargets[RulePair{Base: rt.Base, Mix: rt.Mix}] = rt.Target
	}
	for id, count := range s.RequiredCounts {
		state.requiredCounts[id] = count
	}
	state.nextCategoryID = s.NextCategoryID
	state.nextItemID = s.NextItemID
	if s.MaxBatchSize > 0 {
		state.maxBatchSize = s.MaxBatchSize
	}
	return state
}

func (s memoryState) clone() memoryState {
	cloned := newMemoryState()
	for id, c := range s.categories {
		cloned.categories[id] = c
	}
	for id, it := range s.items {
		cloned.items[id] = it
	}
	for categoryID, bySerial := range s.serials {
		cp := make(map[uint64]uint64, len(bySerial))
		for serial, itemID := range bySerial {
			cp[serial] = itemID
		}
		cloned.serials[categoryID] = cp
	}
	for pair, target := range s.ruleTargets {
		cloned.ruleTargets[pair] = target
	}
	for id, count := range s.requiredCounts {
		cloned.requiredCounts[id] = count
	}
	cloned.nextCategoryID = s.nextCategoryID
	cloned.nextItemID = s.nextItemID
	cloned.maxBatchSize = s.maxBatchSize
	return cloned
}

// Store provides an in-memory transactional store for the registry domain.
// The execution model is a single global serialization: the store mutex
// admits exactly one in-flight transaction, and a transaction mutates a
// cloned state that replaces the committed state only on success.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *RulesEngine
	nowFn  func() time.Time
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  newMemoryState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces the store state with the provided snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = memoryStateFromSnapshot(snapshot)
}

// RulesEngine exposes the currently configured engine.
func (s *Store) RulesEngine() *RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// SetNowFunc overrides the time provider, primarily for tests.
func (s *Store) SetNowFunc(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nowFn = now
}

// transaction represents a mutation set applied to the store state.
type transaction struct {
	store   *Store
	state   memoryState
	changes []Change
	now     time.Time
}

// transactionView exposes a read-only snapshot of transactional state.
type transactionView struct {
	state *memoryState
}

func newTransactionView(state *memoryState) TransactionView {
	return transactionView{state: state}
}

func (v transactionView) ListCategories() []Category {
	out := make([]Category, 0, len(v.state.categories))
	for _, c := range v.state.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (v transactionView) ListItems() []Item {
	out := make([]Item, 0, len(v.state.items))
	for _, it := range v.state.items {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (v transactionView) FindCategory(id uint64) (Category, bool) {
	c, ok := v.state.categories[id]
	return c, ok
}

func (v transactionView) FindItem(id uint64) (Item, bool) {
	it, ok := v.state.items[id]
	return it, ok
}

func (v transactionView) ItemBySerial(categoryID, serial uint64) (Item, bool) {
	bySerial, ok := v.state.serials[categoryID]
	if !ok {
		return Item{}, false
	}
	itemID, ok := bySerial[serial]
	if !ok {
		return Item{}, false
	}
	it, ok := v.state.items[itemID]
	return it, ok
}

func (v transactionView) RuleTarget(base, mix uint64) (uint64, bool) {
	target, ok := v.state.ruleTargets[RulePair{Base: base, Mix: mix}]
	if !ok || target == 0 {
		return 0, false
	}
	return target, true
}

func (v transactionView) RequiredCount(categoryID uint64) uint64 {
	return v.state.requiredCounts[categoryID]
}

func (v transactionView) MaxBatchSize() uint64 { return v.state.maxBatchSize }

func (v transactionView) NextCategoryID() uint64 { return v.state.nextCategoryID }

func (v transactionView) NextItemID() uint64 { return v.state.nextItemID }

// RunInTransaction executes fn within a transactional copy of the store
// state. The committed state is replaced only when fn and all registered
// rules succeed; any error leaves the store byte-for-byte unchanged.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		store: s,
		state: s.state.clone(),
		now:   s.nowFn(),
	}

	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		view := newTransactionView(&tx.state)
		res, err := s.engine.Evaluate(ctx, view, tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := s.state.clone()
	view := newTransactionView(&snapshot)
	return fn(view)
}

func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

// Snapshot returns a read-only view over the transaction's candidate state.
func (tx *transaction) Snapshot() TransactionView {
	return newTransactionView(&tx.state)
}

// CreateCategory allocates the next sequential category identifier and
// records supply cap and creator. The identifier counter advances only on
// success.
func (tx *transaction) CreateCategory(supplyCap uint64, creator Address) (Category, error) {
	if supplyCap == 0 {
		return Category{}, domain.ErrInvalidSupply
	}
	if tx.state.nextCategoryID == math.MaxUint64 {
		return Category{}, domain.ErrCounterOverflow
	}
	id := tx.state.nextCategoryID
	if existing, ok := tx.state.categories[id]; ok && existing.Exists() {
		return Category{}, fmt.Errorf("%w: category %d", domain.ErrCategoryExists, id)
	}
	category := Category{
		ID:        id,
		SupplyCap: supplyCap,
		Creator:   creator,
		CreatedAt: tx.now,
		UpdatedAt: tx.now,
	}
	tx.state.categories[id] = category
	tx.state.nextCategoryID = id + 1
	tx.recordChange(Change{Entity: domain.EntityCategory, Action: domain.ActionCreate, After: category})
	return category, nil
}

// IssueItem assigns the next global item identifier and the next serial of
// the category. Serials stay contiguous because the issued count and serial
// advance together under the store's exclusive transaction.
func (tx *transaction) IssueItem(categoryID uint64, owner Address) (Item, error) {
	category, ok := tx.state.categories[categoryID]
	if !ok || !category.Exists() {
		return Item{}, fmt.Errorf("%w: category %d", domain.ErrCategoryNotFound, categoryID)
	}
	if category.IssuedCount >= category.SupplyCap {
		return Item{}, fmt.Errorf("%w: category %d at %d/%d", domain.ErrSupplyExhausted, categoryID, category.IssuedCount, category.SupplyCap)
	}

	itemID := tx.state.nextItemID
	serial := category.IssuedCount + 1

	item := Item{
		ID:         itemID,
		CategoryID: categoryID,
		Serial:     serial,
		Owner:      owner,
		IssuedAt:   tx.now,
	}
	before := category
	category.IssuedCount = serial
	category.UpdatedAt = tx.now

	tx.state.items[itemID] = item
	tx.state.categories[categoryID] = category
	bySerial, ok := tx.state.serials[categoryID]
	if !ok {
		bySerial = make(map[uint64]uint64)
		tx.state.serials[categoryID] = bySerial
	}
	bySerial[serial] = itemID
	tx.state.nextItemID = itemID + 1

	tx.recordChange(Change{Entity: domain.EntityItem, Action: domain.ActionCreate, After: item})
	tx.recordChange(Change{Entity: domain.EntityCategory, Action: domain.ActionUpdate, Before: before, After: category})
	return item, nil
}

// RetireItem marks an item consumed. The serial index entry and the owning
// category's issued count are retained: supply capacity consumed by a merge
// is never returned.
func (tx *transaction) RetireItem(itemID uint64) (Item, error) {
	item, ok := tx.state.items[itemID]
	if !ok {
		return Item{}, fmt.Errorf("%w: item %d", domain.ErrItemNotFound, itemID)
	}
	if item.Retired {
		return Item{}, fmt.Errorf("%w: item %d already retired", domain.ErrItemNotFound, itemID)
	}
	before := item
	item.Retired = true
	tx.state.items[itemID] = item
	tx.recordChange(Change{Entity: domain.EntityItem, Action: domain.ActionRetire, Before: before, After: item})
	return item, nil
}

// SetUpgradeRule stores target under both orderings of the pair and
// overwrites the per-category required-count slot of base and mix. The
// per-category slot is shared across rules, so the latest call wins for a
// category participating in several rules.
func (tx *transaction) SetUpgradeRule(base, mix, target, requiredCount uint64) (UpgradeRule, error) {
	for _, id := range []uint64{base, mix, target} {
		if c, ok := tx.state.categories[id]; !ok || !c.Exists() {
			return UpgradeRule{}, fmt.Errorf("%w: category %d", domain.ErrCategoryNotFound, id)
		}
	}
	tx.state.ruleTargets[RulePair{Base: base, Mix: mix}] = target
	tx.state.ruleTargets[RulePair{Base: mix, Mix: base}] = target
	tx.state.requiredCounts[base] = requiredCount
	tx.state.requiredCounts[mix] = requiredCount

	rule := UpgradeRule{Base: base, Mix: mix, Target: target, RequiredCount: requiredCount}
	tx.recordChange(Change{Entity: domain.EntityUpgradeRule, Action: domain.ActionUpdate, After: rule})
	return rule, nil
}

// AssignItemMetadata records the blob key under which the item's metadata
// payload lives.
func (tx *transaction) AssignItemMetadata(itemID uint64, key string) (Item, error) {
	item, ok := tx.state.items[itemID]
	if !ok {
		return Item{}, fmt.Errorf("%w: item %d", domain.ErrItemNotFound, itemID)
	}
	before := item
	item.MetadataKey = key
	tx.state.items[itemID] = item
	tx.recordChange(Change{Entity: domain.EntityItem, Action: domain.ActionUpdate, Before: before, After: item})
	return item, nil
}

// SetMaxBatchSize replaces the batch issuance ceiling.
func (tx *transaction) SetMaxBatchSize(limit uint64) error {
	if limit == 0 {
		return fmt.Errorf("batch limit must be positive")
	}
	before := tx.state.maxBatchSize
	tx.state.maxBatchSize = limit
	tx.recordChange(Change{Entity: domain.EntityConfig, Action: domain.ActionUpdate, Before: before, After: limit})
	return nil
}

func (tx *transaction) FindCategory(id uint64) (Category, bool) {
	c, ok := tx.state.categories[id]
	return c, ok
}

func (tx *transaction) FindItem(id uint64) (Item, bool) {
	it, ok := tx.state.items[id]
	return it, ok
}

func (tx *transaction) RuleTarget(base, mix uint64) (uint64, bool) {
	target, ok := tx.state.ruleTargets[RulePair{Base: base, Mix: mix}]
	if !ok || target == 0 {
		return 0, false
	}
	return target, true
}

func (tx *transaction) RequiredCount(categoryID uint64) uint64 {
	return tx.state.requiredCounts[categoryID]
}

func (tx *transaction) MaxBatchSize() uint64 { return tx.state.maxBatchSize }

// Read helpers ---------------------------------------------------------------

// GetCategory retrieves a category by ID from committed state.
func (s *Store) GetCategory(id uint64) (Category, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.state.categories[id]
	return c, ok
}

// ListCategories returns all categories from committed state in ID order.
func (s *Store) ListCategories() []Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Category, 0, len(s.state.categories))
	for _, c := range s.state.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// GetItem retrieves an item by its global identifier.
func (s *Store) GetItem(id uint64) (Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	it, ok := s.state.items[id]
	return it, ok
}

// ListItems returns all items from committed state in ID order.
func (s *Store) ListItems() []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Item, 0, len(s.state.items))
	for _, it := range s.state.items {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// GetItemBySerial resolves the per-category serial index.
func (s *Store) GetItemBySerial(categoryID, serial uint64) (Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bySerial, ok := s.state.serials[categoryID]
	if !ok {
		return Item{}, false
	}
	itemID, ok := bySerial[serial]
	if !ok {
		return Item{}, false
	}
	it, ok := s.state.items[itemID]
	return it, ok
}

// GetUpgradeRule returns the rule target stored for the ordered pair and the
// required count stored for base. The count read is asymmetric on purpose:
// the target table is written symmetrically but the count always comes from
// the base category's slot.
func (s *Store) GetUpgradeRule(base, mix uint64) (UpgradeRule, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	target, ok := s.state.ruleTargets[RulePair{Base: base, Mix: mix}]
	if !ok || target == 0 {
		return UpgradeRule{}, false
	}
	return UpgradeRule{Base: base, Mix: mix, Target: target, RequiredCount: s.state.requiredCounts[base]}, true
}

// MaxBatchSize returns the committed batch issuance ceiling.
func (s *Store) MaxBatchSize() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.maxBatchSize
}
