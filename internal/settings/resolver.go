package settings

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// Mode selects the precedence model used to resolve endpoints.
type Mode string

const (
	// ModeSingle uses one global endpoint. A fully specified environment
	// overrides the stored singleton row.
	ModeSingle Mode = "single"
	// ModeMulti resolves every tenant independently from storage. The
	// environment is never consulted.
	ModeMulti Mode = "multi"
)

// Environment variables consulted in single mode.
const (
	EnvHost     = "RCON_HOST"
	EnvPort     = "RCON_PORT"
	EnvPassword = "RCON_PASSWORD"
)

var (
	ErrManagedByEnvironment = errors.New("RCON settings are managed via the environment and cannot be changed here")
	ErrNoTenant             = errors.New("a tenant is required to save settings")
)

// StoredEndpoint is a persisted row. Port is kept as the raw stored text so a
// malformed value degrades to the default port instead of failing.
type StoredEndpoint struct {
	Host     string
	Port     string
	Password string
}

// Store is the persistence collaborator for endpoint rows.
type Store interface {
	// ReadEndpoint returns ok=false when no row exists for key.
	ReadEndpoint(ctx context.Context, key string) (row StoredEndpoint, ok bool, err error)
	// UpsertEndpoint inserts or replaces the row for key in one transaction.
	UpsertEndpoint(ctx context.Context, key, host string, port int, password string) error
}

// Resolver computes the effective endpoint for a tenant.
type Resolver struct {
	mode        Mode
	store       Store
	defaultHost string
	defaultPort int
	lookupEnv   func(string) (string, bool)
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithDefaults overrides the built-in host and port.
func WithDefaults(host string, port int) ResolverOption {
	return func(r *Resolver) {
		if host != "" {
			r.defaultHost = host
		}
		if port > 0 && port <= 65535 {
			r.defaultPort = port
		}
	}
}

// WithLookupEnv replaces os.LookupEnv as the environment source.
func WithLookupEnv(fn func(string) (string, bool)) ResolverOption {
	return func(r *Resolver) { r.lookupEnv = fn }
}

func NewResolver(mode Mode, store Store, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		mode:        mode,
		store:       store,
		defaultHost: DefaultHost,
		defaultPort: DefaultPort,
		lookupEnv:   os.LookupEnv,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Mode returns the precedence model in use.
func (r *Resolver) Mode() Mode { return r.mode }

// Resolve returns the endpoint for tenant and the layer that supplied it.
func (r *Resolver) Resolve(ctx context.Context, tenant string) (Endpoint, error) {
	key := TenantKey(tenant)
	ep := Endpoint{
		Host:       r.defaultHost,
		Port:       r.defaultPort,
		Provenance: ProvenanceDefault,
	}
	if key != DefaultTenant {
		ep.Tenant = key
	}

	if r.mode != ModeMulti {
		if env, ok := r.environment(); ok {
			env.Tenant = ep.Tenant
			return env, nil
		}
		key = GlobalKey
	} else if key == DefaultTenant {
		return ep, nil
	}

	row, ok, err := r.store.ReadEndpoint(ctx, key)
	if err != nil {
		return Endpoint{}, fmt.Errorf("reading endpoint for %s: %w", key, err)
	}
	if !ok {
		return ep, nil
	}

	if row.Host != "" {
		ep.Host = row.Host
	}
	ep.Port = ParsePort(row.Port, r.defaultPort)
	ep.Password = row.Password
	ep.Provenance = ProvenanceStored
	return ep, nil
}

// Save persists the endpoint for tenant. In single mode the singleton row is
// written and the call is refused while the environment owns the settings.
func (r *Resolver) Save(ctx context.Context, tenant, host string, port int, password string) error {
	key := TenantKey(tenant)
	if r.mode != ModeMulti {
		if _, ok := r.environment(); ok {
			return ErrManagedByEnvironment
		}
		key = GlobalKey
	} else if key == DefaultTenant {
		return ErrNoTenant
	}

	if err := r.store.UpsertEndpoint(ctx, key, host, port, password); err != nil {
		return fmt.Errorf("saving endpoint for %s: %w", key, err)
	}
	return nil
}

// environment returns the endpoint supplied by the environment when host,
// port and password are all present.
func (r *Resolver) environment() (Endpoint, bool) {
	host, hostOK := r.lookupEnv(EnvHost)
	port, portOK := r.lookupEnv(EnvPort)
	password, passwordOK := r.lookupEnv(EnvPassword)
	if !hostOK || !portOK || !passwordOK || host == "" || port == "" || password == "" {
		return Endpoint{}, false
	}
	return Endpoint{
		Host:       host,
		Port:       ParsePort(port, r.defaultPort),
		Password:   password,
		Provenance: ProvenanceEnvironment,
	}, true
}
