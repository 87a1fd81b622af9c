package console

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/netwarlan/rconpanel/internal/rcon"
	"github.com/netwarlan/rconpanel/internal/settings"
)

// ErrResolve marks a failure to load the tenant's endpoint configuration.
var ErrResolve = errors.New("loading RCON settings")

// EndpointResolver supplies the endpoint a tenant's session connects to.
type EndpointResolver interface {
	Resolve(ctx context.Context, tenant string) (settings.Endpoint, error)
}

// Pool caches one authenticated session per tenant. Sessions are created
// lazily and at most one exists per tenant; creation is serialized by a
// single pool-wide lock, which is never held while a command executes.
type Pool struct {
	resolver EndpointResolver
	opts     []rcon.Option

	mu       sync.Mutex
	sessions map[string]*rcon.Session
}

// NewPool creates an empty pool. opts are applied to every session it opens.
func NewPool(resolver EndpointResolver, opts ...rcon.Option) *Pool {
	return &Pool{
		resolver: resolver,
		opts:     opts,
		sessions: make(map[string]*rcon.Session),
	}
}

// Get returns the cached session for tenant, connecting first if there is
// none. A session is cached only after its handshake succeeded.
func (p *Pool) Get(ctx context.Context, tenant string) (*rcon.Session, error) {
	key := settings.TenantKey(tenant)

	p.mu.Lock()
	defer p.mu.Unlock()

	if s, ok := p.sessions[key]; ok {
		return s, nil
	}

	ep, err := p.resolver.Resolve(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrResolve, err)
	}

	s, err := rcon.Open(ctx, ep.Addr(), ep.Password, p.opts...)
	if err != nil {
		return nil, err
	}
	log.Printf("RCON connected to %s for %s (%s)", ep.Addr(), key, ep.Provenance)
	p.sessions[key] = s
	return s, nil
}

// Invalidate closes and forgets the session cached for tenant, so the next
// Get re-resolves the configuration and reconnects. Settings workflows must
// call it right after persisting new configuration.
func (p *Pool) Invalidate(tenant string) {
	key := settings.TenantKey(tenant)

	p.mu.Lock()
	defer p.mu.Unlock()

	if s, ok := p.sessions[key]; ok {
		s.Close()
		delete(p.sessions, key)
	}
}

// InvalidateAll drops every cached session.
func (p *Pool) InvalidateAll() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for key, s := range p.sessions {
		s.Close()
		delete(p.sessions, key)
	}
}

// Close drops every cached session at shutdown.
func (p *Pool) Close() {
	p.InvalidateAll()
}

// Len returns the number of cached sessions.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sessions)
}

// discard evicts s only if it is still the session cached for key; a session
// another caller already replaced is closed but the replacement is kept.
func (p *Pool) discard(key string, s *rcon.Session) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if cur, ok := p.sessions[key]; ok && cur == s {
		delete(p.sessions, key)
	}
	s.Close()
}
