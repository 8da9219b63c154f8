// Package ledger provides the in-process ownership ledger and access policy
// used by the registry service. Ownership records live in memory; metadata
// payloads are validated and written to a blob store.
package ledger

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"mintcore/internal/blob"
	"mintcore/internal/metadata"
	"mintcore/pkg/domain"
)

// Ledger implements domain.OwnershipLedger. Safe for concurrent use.
type Ledger struct {
	mu        sync.RWMutex
	owners    map[uint64]domain.Address
	approvals map[uint64]map[domain.Address]struct{}
	operators map[domain.Address]map[domain.Address]struct{}

	blobs     blob.Store
	validator *metadata.Validator
}

// New creates a ledger. Metadata payloads are validated with v and stored
// under items/<id>/metadata.json in blobs.
func New(blobs blob.Store, v *metadata.Validator) *Ledger {
	return &Ledger{
		owners:    make(map[uint64]domain.Address),
		approvals: make(map[uint64]map[domain.Address]struct{}),
		operators: make(map[domain.Address]map[domain.Address]struct{}),
		blobs:     blobs,
		validator: v,
	}
}

// ItemExists implements domain.OwnershipLedger.
func (l *Ledger) ItemExists(_ context.Context, itemID uint64) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.owners[itemID]
	return ok, nil
}

// OwnerOf returns the recorded owner for an item.
func (l *Ledger) OwnerOf(itemID uint64) (domain.Address, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	owner, ok := l.owners[itemID]
	return owner, ok
}

// IsOwnerOrApproved implements domain.OwnershipLedger. An address qualifies
// when it owns the item, holds a per-item approval, or is an operator the
// owner approved for all of their items.
func (l *Ledger) IsOwnerOrApproved(_ context.Context, addr domain.Address, itemID uint64) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	owner, ok := l.owners[itemID]
	if !ok {
		return false, nil
	}
	if owner == addr {
		return true, nil
	}
	if _, ok := l.approvals[itemID][addr]; ok {
		return true, nil
	}
	if _, ok := l.operators[owner][addr]; ok {
		return true, nil
	}
	return false, nil
}

// CreateItemRecord implements domain.OwnershipLedger.
func (l *Ledger) CreateItemRecord(_ context.Context, owner domain.Address, itemID uint64) error {
	if strings.TrimSpace(string(owner)) == "" {
		return fmt.Errorf("ledger: empty owner for item %d", itemID)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.owners[itemID]; ok {
		return fmt.Errorf("ledger: item %d already recorded", itemID)
	}
	l.owners[itemID] = owner
	return nil
}

// DestroyItemRecord implements domain.OwnershipLedger. Per-item approvals die
// with the record.
func (l *Ledger) DestroyItemRecord(_ context.Context, itemID uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.owners[itemID]; !ok {
		return fmt.Errorf("ledger: item %d not recorded", itemID)
	}
	delete(l.owners, itemID)
	delete(l.approvals, itemID)
	return nil
}

// Approve grants addr a per-item approval. The zero address clears it.
func (l *Ledger) Approve(itemID uint64, addr domain.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.owners[itemID]; !ok {
		return fmt.Errorf("ledger: item %d not recorded", itemID)
	}
	if addr == "" {
		delete(l.approvals, itemID)
		return nil
	}
	if l.approvals[itemID] == nil {
		l.approvals[itemID] = make(map[domain.Address]struct{})
	}
	l.approvals[itemID][addr] = struct{}{}
	return nil
}

// SetOperator grants or revokes operator rights over all of owner's items.
func (l *Ledger) SetOperator(owner, operator domain.Address, approved bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !approved {
		delete(l.operators[owner], operator)
		return
	}
	if l.operators[owner] == nil {
		l.operators[owner] = make(map[domain.Address]struct{})
	}
	l.operators[owner][operator] = struct{}{}
}

// AssignMetadata implements domain.OwnershipLedger. The payload is validated
// against the metadata schema, then written create-only to the blob store.
func (l *Ledger) AssignMetadata(ctx context.Context, itemID uint64, payload []byte) (string, error) {
	if l.validator != nil {
		if err := l.validator.Validate(payload); err != nil {
			return "", err
		}
	}
	key := MetadataKey(itemID)
	_, err := l.blobs.Put(ctx, key, strings.NewReader(string(payload)), blob.PutOptions{
		ContentType: "application/json",
		Metadata:    map[string]string{"item_id": fmt.Sprintf("%d", itemID)},
	})
	if err != nil {
		return "", fmt.Errorf("ledger: store metadata for item %d: %w", itemID, err)
	}
	return key, nil
}

// MetadataKey returns the blob key used for an item's metadata payload.
func MetadataKey(itemID uint64) string {
	return fmt.Sprintf("items/%d/metadata.json", itemID)
}
