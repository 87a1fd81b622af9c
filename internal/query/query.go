// Package query probes a game server's public status over the A2S protocol.
// It complements the remote console: A2S needs no credentials, so it shows
// whether the server is up even when the console cannot be reached.
package query

import (
	"context"
	"fmt"
	"time"

	"github.com/rumblefrog/go-a2s"
)

// Status is the queried state of a game server.
type Status struct {
	Online     bool          `json:"online"`
	Name       string        `json:"name,omitempty"`
	Map        string        `json:"map,omitempty"`
	Version    string        `json:"version,omitempty"`
	Players    int           `json:"players"`
	MaxPlayers int           `json:"max_players"`
	Latency    time.Duration `json:"latency"`
	Roster     []Player      `json:"roster,omitempty"`
}

// Player is a single connected player as reported by A2S.
type Player struct {
	Name     string        `json:"name"`
	Duration time.Duration `json:"duration"`
}

// Prober reports server status.
type Prober interface {
	Probe(ctx context.Context, address string) (*Status, error)
}

// A2SProber implements Prober using the A2S protocol.
type A2SProber struct {
	timeout time.Duration
}

func NewA2SProber(timeout time.Duration) *A2SProber {
	return &A2SProber{timeout: timeout}
}

// Probe queries server info and, when the server is up, its player list.
// An unreachable server is reported as offline rather than as an error; an
// error means the query could not be attempted at all.
func (p *A2SProber) Probe(ctx context.Context, address string) (*Status, error) {
	timeout := p.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}
	if timeout <= 0 {
		return &Status{Online: false}, ctx.Err()
	}

	client, err := a2s.NewClient(address, a2s.TimeoutOption(timeout))
	if err != nil {
		return &Status{Online: false}, fmt.Errorf("creating A2S client: %w", err)
	}
	defer client.Close()

	start := time.Now()
	info, err := client.QueryInfo()
	latency := time.Since(start)
	if err != nil {
		return &Status{Online: false}, nil
	}

	status := &Status{
		Online:     true,
		Name:       info.Name,
		Map:        info.Map,
		Version:    info.Version,
		Players:    int(info.Players),
		MaxPlayers: int(info.MaxPlayers),
		Latency:    latency,
	}

	if status.Players == 0 {
		return status, nil
	}
	players, err := client.QueryPlayer()
	if err != nil {
		// Many servers answer info but not player queries.
		return status, nil
	}
	for _, pl := range players.Players {
		if pl.Name == "" {
			continue
		}
		status.Roster = append(status.Roster, Player{
			Name:     pl.Name,
			Duration: time.Duration(pl.Duration) * time.Second,
		})
	}
	return status, nil
}
