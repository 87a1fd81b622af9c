package settings

import (
	"net"
	"strconv"
	"strings"
)

// Built-in endpoint used when neither storage nor the environment supplies one.
const (
	DefaultHost = "localhost"
	DefaultPort = 25575
)

// DefaultTenant keys the connection used when a caller has no tenant context.
const DefaultTenant = "default"

// GlobalKey is the storage key of the singleton row in single mode.
const GlobalKey = "global"

// Provenance names the configuration layer that supplied an endpoint.
type Provenance string

const (
	ProvenanceDefault     Provenance = "default"
	ProvenanceStored      Provenance = "stored"
	ProvenanceEnvironment Provenance = "environment"
)

// Label is the human-readable form shown next to the settings form.
func (p Provenance) Label() string {
	switch p {
	case ProvenanceStored:
		return "Saved in Database"
	case ProvenanceEnvironment:
		return "Managed by environment"
	default:
		return "Not Configured"
	}
}

// Endpoint is the effective remote console configuration for one tenant.
type Endpoint struct {
	Host       string
	Port       int
	Password   string
	Provenance Provenance
	// Tenant is empty when the endpoint was resolved without tenant context.
	Tenant string
}

// Addr returns host:port suitable for dialing.
func (e Endpoint) Addr() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// TenantKey normalizes a tenant identity; the empty identity maps to
// DefaultTenant.
func TenantKey(tenant string) string {
	tenant = strings.TrimSpace(tenant)
	if tenant == "" {
		return DefaultTenant
	}
	return tenant
}

// ParsePort coerces text to a TCP port, returning fallback when the text is
// not a number in 1-65535.
func ParsePort(text string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || n < 1 || n > 65535 {
		return fallback
	}
	return n
}
