package console

import (
	"context"
	"strings"

	"github.com/netwarlan/rconpanel/internal/settings"
)

// Settings reads and saves a tenant's endpoint, keeping the pool in step with
// what is persisted.
type Settings struct {
	resolver *settings.Resolver
	pool     *Pool
}

func NewSettings(resolver *settings.Resolver, pool *Pool) *Settings {
	return &Settings{resolver: resolver, pool: pool}
}

// Get returns the effective endpoint for tenant.
func (s *Settings) Get(ctx context.Context, tenant string) (settings.Endpoint, error) {
	return s.resolver.Resolve(ctx, tenant)
}

// Save validates form and persists it. Validation problems are returned
// without touching storage. After a successful save the affected sessions are
// invalidated: the tenant's own in multi mode, every session in single mode
// because all tenants share the global endpoint.
func (s *Settings) Save(ctx context.Context, tenant string, form settings.Form) ([]string, error) {
	port, problems := form.Validate()
	if len(problems) > 0 {
		return problems, nil
	}

	if err := s.resolver.Save(ctx, tenant, strings.TrimSpace(form.Host), port, strings.TrimSpace(form.Password)); err != nil {
		return nil, err
	}

	if s.resolver.Mode() == settings.ModeMulti {
		s.pool.Invalidate(tenant)
	} else {
		s.pool.InvalidateAll()
	}
	return nil, nil
}
