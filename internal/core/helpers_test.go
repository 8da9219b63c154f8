package core_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"mintcore/internal/core"
	memory "mintcore/internal/infra/persistence/memory"
	"mintcore/pkg/domain"
)

// fakeLedger tracks ownership in memory and records mutation order so tests
// can assert on what the service asked the ledger to do.
type fakeLedger struct {
	mu        sync.Mutex
	owners    map[uint64]domain.Address
	approvals map[uint64]map[domain.Address]bool
	metadata  map[uint64][]byte
	destroyed []uint64
	created   []uint64

	failCreate  error
	failDestroy error
	failAssign  error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		owners:    make(map[uint64]domain.Address),
		approvals: make(map[uint64]map[domain.Address]bool),
		metadata:  make(map[uint64][]byte),
	}
}

func (l *fakeLedger) ItemExists(_ context.Context, itemID uint64) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.owners[itemID]
	return ok, nil
}

func (l *fakeLedger) IsOwnerOrApproved(_ context.Context, addr domain.Address, itemID uint64) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.owners[itemID] == addr {
		return true, nil
	}
	return l.approvals[itemID][addr], nil
}

func (l *fakeLedger) CreateItemRecord(_ context.Context, owner domain.Address, itemID uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failCreate != nil {
		return l.failCreate
	}
	l.owners[itemID] = owner
	l.created = append(l.created, itemID)
	return nil
}

func (l *fakeLedger) DestroyItemRecord(_ context.Context, itemID uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failDestroy != nil {
		return l.failDestroy
	}
	delete(l.owners, itemID)
	l.destroyed = append(l.destroyed, itemID)
	return nil
}

func (l *fakeLedger) AssignMetadata(_ context.Context, itemID uint64, payload []byte) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failAssign != nil {
		return "", l.failAssign
	}
	l.metadata[itemID] = append([]byte(nil), payload...)
	return fmt.Sprintf("items/%d/metadata.json", itemID), nil
}

func (l *fakeLedger) approve(itemID uint64, addr domain.Address) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.approvals[itemID] == nil {
		l.approvals[itemID] = make(map[domain.Address]bool)
	}
	l.approvals[itemID][addr] = true
}

// fakeAuth grants administrator rights to a fixed set and can be suspended.
type fakeAuth struct {
	admins    map[domain.Address]bool
	suspended bool
}

func newFakeAuth(admins ...domain.Address) *fakeAuth {
	a := &fakeAuth{admins: make(map[domain.Address]bool)}
	for _, addr := range admins {
		a.admins[addr] = true
	}
	return a
}

func (a *fakeAuth) RequireAdministrator(_ context.Context, actor domain.Address) error {
	if !a.admins[actor] {
		return fmt.Errorf("%w: %s", domain.ErrNotAdministrator, actor)
	}
	return nil
}

func (a *fakeAuth) RequireNotSuspended(context.Context) error {
	if a.suspended {
		return domain.ErrOperationSuspended
	}
	return nil
}

// recordingNotifier counts delivered notifications.
type recordingNotifier struct {
	mu        sync.Mutex
	created   []uint64
	issued    []domain.Item
	upgrades  []domain.Item
	consumed  [][]uint64
	lastOwner domain.Address
}

func (n *recordingNotifier) CategoryCreated(_ context.Context, _ domain.Address, categoryID, _ uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.created = append(n.created, categoryID)
}

func (n *recordingNotifier) ItemIssued(_ context.Context, item domain.Item) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.issued = append(n.issued, item)
}

func (n *recordingNotifier) ItemsUpgraded(_ context.Context, owner domain.Address, consumed []uint64, replacement domain.Item) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.lastOwner = owner
	n.consumed = append(n.consumed, consumed)
	n.upgrades = append(n.upgrades, replacement)
}

const admin = domain.Address("admin")

type testEnv struct {
	svc      *core.Service
	store    *memory.Store
	ledger   *fakeLedger
	auth     *fakeAuth
	notifier *recordingNotifier
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memory.NewStore(core.NewDefaultRulesEngine())
	ledger := newFakeLedger()
	auth := newFakeAuth(admin)
	notifier := &recordingNotifier{}
	svc := core.NewService(store, ledger, auth, core.WithNotifier(notifier))
	return &testEnv{svc: svc, store: store, ledger: ledger, auth: auth, notifier: notifier}
}

func (e *testEnv) createCategory(t *testing.T, supplyCap uint64) domain.Category {
	t.Helper()
	category, _, err := e.svc.CreateCategory(context.Background(), admin, supplyCap, "creator")
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	return category
}

func (e *testEnv) issue(t *testing.T, categoryID uint64, recipient domain.Address) domain.Item {
	t.Helper()
	item, _, err := e.svc.IssueOne(context.Background(), admin, categoryID, recipient)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	return item
}

func (e *testEnv) setRule(t *testing.T, base, mix, target, count uint64) {
	t.Helper()
	if _, _, err := e.svc.SetUpgradeRule(context.Background(), admin, base, mix, target, count); err != nil {
		t.Fatalf("set rule (%d,%d)->%d: %v", base, mix, target, err)
	}
}
