package ledger

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"mintcore/pkg/domain"
)

// Policy implements domain.Authorizer with a static administrator set and a
// runtime suspension switch.
type Policy struct {
	mu        sync.RWMutex
	admins    map[domain.Address]struct{}
	suspended atomic.Bool
}

// NewPolicy creates a policy granting administrator rights to admins.
func NewPolicy(admins ...domain.Address) *Policy {
	p := &Policy{admins: make(map[domain.Address]struct{}, len(admins))}
	for _, a := range admins {
		p.admins[a] = struct{}{}
	}
	return p
}

// NewPolicyFromEnv reads MINTCORE_ADMINISTRATORS, a comma-separated address
// list. An empty value yields a policy that rejects every privileged call.
func NewPolicyFromEnv() *Policy {
	var admins []domain.Address
	for _, raw := range strings.Split(os.Getenv("MINTCORE_ADMINISTRATORS"), ",") {
		if a := strings.TrimSpace(raw); a != "" {
			admins = append(admins, domain.Address(a))
		}
	}
	return NewPolicy(admins...)
}

// GrantAdministrator adds an administrator at runtime.
func (p *Policy) GrantAdministrator(addr domain.Address) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.admins[addr] = struct{}{}
}

// RevokeAdministrator removes an administrator at runtime.
func (p *Policy) RevokeAdministrator(addr domain.Address) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.admins, addr)
}

// Suspend halts ownership-moving operations until Resume.
func (p *Policy) Suspend() { p.suspended.Store(true) }

// Resume lifts a suspension.
func (p *Policy) Resume() { p.suspended.Store(false) }

// RequireAdministrator implements domain.Authorizer.
func (p *Policy) RequireAdministrator(_ context.Context, actor domain.Address) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if _, ok := p.admins[actor]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrNotAdministrator, actor)
	}
	return nil
}

// RequireNotSuspended implements domain.Authorizer.
func (p *Policy) RequireNotSuspended(context.Context) error {
	if p.suspended.Load() {
		return domain.ErrOperationSuspended
	}
	return nil
}
