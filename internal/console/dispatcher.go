package console

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/netwarlan/rconpanel/internal/rcon"
	"github.com/netwarlan/rconpanel/internal/settings"
)

// Messages returned in place of a response when the command could not be
// delivered. All start with "Error:" so callers can detect failure with the
// same check they apply to server-reported errors.
const (
	MsgCannotConnect = "Error: Cannot connect to the RCON server. Check the RCON settings."
	MsgRefused       = "Error: Connection refused. Make sure the server is running and RCON is enabled."
	MsgTimeout       = "Error: Connection timed out. Is the server running?"
	MsgAuthFailed    = "Error: Authentication failed. Check the RCON password in settings."
	MsgSettings      = "Error: Could not load RCON settings."
)

// Dispatcher runs commands on behalf of tenants through a Pool.
type Dispatcher struct {
	pool *Pool
}

func NewDispatcher(pool *Pool) *Dispatcher {
	return &Dispatcher{pool: pool}
}

// Run sends command to the tenant's server and returns the raw response.
// It never fails: delivery problems are returned as a message starting with
// "Error:". A broken connection is replaced and the command retried once.
func (d *Dispatcher) Run(ctx context.Context, tenant, command string) string {
	key := settings.TenantKey(tenant)

	s, err := d.pool.Get(ctx, key)
	if err != nil {
		d.pool.Invalidate(key)
		log.Printf("RCON connect for %s failed: %v", key, err)
		return connectMessage(err)
	}

	out, err := s.Execute(command)
	if err == nil {
		return out
	}

	kind := rcon.KindOf(err)
	switch {
	case kind == rcon.KindAuth:
		d.pool.discard(key, s)
		log.Printf("RCON credentials rejected for %s: %v", key, err)
		return MsgAuthFailed

	case kind.Broken():
		d.pool.discard(key, s)
		log.Printf("RCON session for %s broken (%v), reconnecting", key, err)

		s, err = d.pool.Get(ctx, key)
		if err != nil {
			d.pool.Invalidate(key)
			log.Printf("RCON reconnect for %s failed: %v", key, err)
			return MsgCannotConnect
		}
		out, err = s.Execute(command)
		if err != nil {
			d.pool.discard(key, s)
			log.Printf("RCON retry for %s failed: %v", key, err)
			return MsgCannotConnect
		}
		return out

	default:
		return applicationMessage(err)
	}
}

func connectMessage(err error) string {
	if errors.Is(err, ErrResolve) {
		return MsgSettings
	}
	switch rcon.KindOf(err) {
	case rcon.KindTimeout:
		return MsgTimeout
	case rcon.KindRefused:
		return MsgRefused
	case rcon.KindAuth:
		return MsgAuthFailed
	default:
		return MsgCannotConnect
	}
}

// applicationMessage surfaces a rejected command's own message.
func applicationMessage(err error) string {
	msg := err.Error()
	var e *rcon.Error
	if errors.As(err, &e) {
		msg = e.Err.Error()
	}
	if strings.HasPrefix(msg, "Error:") {
		return msg
	}
	return "Error: " + msg
}
