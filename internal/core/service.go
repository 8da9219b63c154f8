package core

import (
	"context"
	"fmt"
	"time"

	"mintcore/pkg/domain"
)

// Service exposes the registry's transactional operations: category
// creation, item issuance, upgrade-rule configuration, and the merge
// transaction. Every operation runs inside exactly one store transaction;
// the store serializes transactions, so there is no interleaving between
// operations and a failed operation leaves tracked state unchanged.
type Service struct {
	store    domain.PersistentStore
	ledger   OwnershipLedger
	auth     Authorizer
	notifier Notifier
	metrics  MetricsRecorder
	tracer   Tracer
	audit    AuditLogger
}

// ServiceOption customizes optional service collaborators.
type ServiceOption func(*Service)

// WithNotifier wires outbound notifications.
func WithNotifier(n Notifier) ServiceOption {
	return func(s *Service) { s.notifier = n }
}

// WithMetricsRecorder wires operation metrics.
func WithMetricsRecorder(m MetricsRecorder) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// WithTracer wires span tracing around operations.
func WithTracer(t Tracer) ServiceOption {
	return func(s *Service) { s.tracer = t }
}

// WithAuditLogger wires audit trail recording.
func WithAuditLogger(a AuditLogger) ServiceOption {
	return func(s *Service) { s.audit = a }
}

// NewService constructs a service over the supplied store and mandatory
// collaborators.
func NewService(store domain.PersistentStore, ledger OwnershipLedger, auth Authorizer, opts ...ServiceOption) *Service {
	s := &Service{
		store:    store,
		ledger:   ledger,
		auth:     auth,
		notifier: domain.NopNotifier{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.notifier == nil {
		s.notifier = domain.NopNotifier{}
	}
	return s
}

// Store returns the underlying storage implementation.
func (s *Service) Store() domain.PersistentStore {
	return s.store
}

// observe wraps an operation with metrics, tracing, and audit recording.
func (s *Service) observe(ctx context.Context, operation string, actor Address, fn func(context.Context) error) error {
	var span TraceSpan
	if s.tracer != nil {
		ctx, span = s.tracer.Start(ctx, operation)
	}
	start := time.Now()
	err := fn(ctx)
	if s.metrics != nil {
		s.metrics.Observe(ctx, operation, err == nil, time.Since(start))
	}
	if span != nil {
		span.End(err)
	}
	if s.audit != nil {
		entry := AuditEntry{
			Operation:  operation,
			Actor:      actor,
			Status:     AuditStatusSucceeded,
			OccurredAt: start.UTC(),
		}
		if err != nil {
			entry.Status = AuditStatusFailed
			entry.Error = err.Error()
		}
		s.audit.Record(ctx, entry)
	}
	return err
}

// CreateCategory allocates the next sequential category identifier with the
// given supply cap, recording creator as the payout address. Administrator
// credential required.
func (s *Service) CreateCategory(ctx context.Context, actor Address, supplyCap uint64, creator Address) (Category, Result, error) {
	var created Category
	var res Result
	err := s.observe(ctx, "create_category", actor, func(ctx context.Context) error {
		if err := s.auth.RequireAdministrator(ctx, actor); err != nil {
			return err
		}
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			var txErr error
			created, txErr = tx.CreateCategory(supplyCap, creator)
			return txErr
		})
		return err
	})
	if err != nil {
		return Category{}, res, err
	}
	s.notifier.CategoryCreated(ctx, creator, created.ID, created.SupplyCap)
	return created, res, nil
}

// Exists reports whether the category was ever created. Existence never
// expires: an exhausted category still exists.
func (s *Service) Exists(categoryID uint64) bool {
	category, ok := s.store.GetCategory(categoryID)
	return ok && category.Exists()
}

// AvailableSlots returns the remaining issuable quota of a category; 0 for a
// never-created category by convention, so callers that care must check
// Exists first.
func (s *Service) AvailableSlots(categoryID uint64) uint64 {
	category, _ := s.store.GetCategory(categoryID)
	return category.AvailableSlots()
}

// IssueOne issues a single item of the category to recipient. Administrator
// credential required; the registry must not be suspended.
func (s *Service) IssueOne(ctx context.Context, actor Address, categoryID uint64, recipient Address) (Item, Result, error) {
	var issued Item
	var res Result
	err := s.observe(ctx, "issue_one", actor, func(ctx context.Context) error {
		if err := s.auth.RequireAdministrator(ctx, actor); err != nil {
			return err
		}
		if err := s.auth.RequireNotSuspended(ctx); err != nil {
			return err
		}
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			var txErr error
			issued, txErr = tx.IssueItem(categoryID, recipient)
			if txErr != nil {
				return txErr
			}
			return s.ledger.CreateItemRecord(ctx, recipient, issued.ID)
		})
		return err
	})
	if err != nil {
		return Item{}, res, err
	}
	s.notifier.ItemIssued(ctx, issued)
	return issued, res, nil
}

// IssueBatch issues count items of the category to recipient in serial
// order. The checks run in a fixed order: batch ceiling, remaining quota,
// category existence.
func (s *Service) IssueBatch(ctx context.Context, actor Address, categoryID uint64, recipient Address, count uint64) ([]Item, Result, error) {
	var issued []Item
	var res Result
	err := s.observe(ctx, "issue_batch", actor, func(ctx context.Context) error {
		if err := s.auth.RequireAdministrator(ctx, actor); err != nil {
			return err
		}
		if err := s.auth.RequireNotSuspended(ctx); err != nil {
			return err
		}
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			if count > tx.MaxBatchSize() {
				return fmt.Errorf("%w: %d > %d", domain.ErrBatchTooLarge, count, tx.MaxBatchSize())
			}
			category, _ := tx.FindCategory(categoryID)
			if count > category.AvailableSlots() {
				return fmt.Errorf("%w: category %d has %d slots, want %d", domain.ErrSupplyExhausted, categoryID, category.AvailableSlots(), count)
			}
			if !category.Exists() {
				return fmt.Errorf("%w: category %d", domain.ErrCategoryNotFound, categoryID)
			}
			issued = make([]Item, 0, count)
			for i := uint64(0); i < count; i++ {
				item, txErr := tx.IssueItem(categoryID, recipient)
				if txErr != nil {
					return txErr
				}
				if txErr := s.ledger.CreateItemRecord(ctx, recipient, item.ID); txErr != nil {
					return txErr
				}
				issued = append(issued, item)
			}
			return nil
		})
		return err
	})
	if err != nil {
		return nil, res, err
	}
	for _, item := range issued {
		s.notifier.ItemIssued(ctx, item)
	}
	return issued, res, nil
}

// SetMaxBatchSize replaces the batch issuance ceiling. Administrator
// credential required.
func (s *Service) SetMaxBatchSize(ctx context.Context, actor Address, limit uint64) (Result, error) {
	var res Result
	err := s.observe(ctx, "set_max_batch_size", actor, func(ctx context.Context) error {
		if err := s.auth.RequireAdministrator(ctx, actor); err != nil {
			return err
		}
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			return tx.SetMaxBatchSize(limit)
		})
		return err
	})
	return res, err
}

// MaxBatchSize returns the committed batch issuance ceiling.
func (s *Service) MaxBatchSize() uint64 {
	return s.store.MaxBatchSize()
}

// SetUpgradeRule stores an undirected merge rule between base and mix
// minting into target, and overwrites the required-count slot of both
// participating categories. Administrator credential required.
func (s *Service) SetUpgradeRule(ctx context.Context, actor Address, base, mix, target, requiredCount uint64) (UpgradeRule, Result, error) {
	var rule UpgradeRule
	var res Result
	err := s.observe(ctx, "set_upgrade_rule", actor, func(ctx context.Context) error {
		if err := s.auth.RequireAdministrator(ctx, actor); err != nil {
			return err
		}
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			var txErr error
			rule, txErr = tx.SetUpgradeRule(base, mix, target, requiredCount)
			return txErr
		})
		return err
	})
	if err != nil {
		return UpgradeRule{}, res, err
	}
	return rule, res, nil
}

// GetUpgradeRule returns the target stored for (base, mix) and the required
// count stored for base specifically. The asymmetric count read mirrors the
// symmetric target write and is intentional.
func (s *Service) GetUpgradeRule(base, mix uint64) (UpgradeRule, bool) {
	return s.store.GetUpgradeRule(base, mix)
}

// IsUpgradeable reports whether a nonzero target is stored for the ordered
// pair.
func (s *Service) IsUpgradeable(base, mix uint64) bool {
	_, ok := s.store.GetUpgradeRule(base, mix)
	return ok
}
