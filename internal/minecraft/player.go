package minecraft

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Runner sends a command to a tenant's server and returns the response.
// Delivery failures are reported as text starting with "Error:".
type Runner interface {
	Run(ctx context.Context, tenant, command string) string
}

var (
	ErrInvalidPlayer = errors.New("invalid player name")
	ErrNoPosition    = errors.New("could not parse position")
)

// CommandError carries a failed response verbatim.
type CommandError struct {
	Response string
}

func (e *CommandError) Error() string { return e.Response }

var (
	playerNamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{1,16}$`)

	floatPattern    = regexp.MustCompile(`(\d+\.?\d*)f?`)
	intPattern      = regexp.MustCompile(`(\d+)`)
	positionPattern = regexp.MustCompile(`\[(.*?)\]`)
)

// ValidPlayerName reports whether name can be a Minecraft username. Names
// are interpolated into commands, so anything else is refused.
func ValidPlayerName(name string) bool {
	return playerNamePattern.MatchString(name)
}

// entityValue returns the part of a "data get entity" response after the
// last colon, so digits in the player's name are not mistaken for the value.
func entityValue(text string) string {
	if i := strings.LastIndex(text, ":"); i >= 0 {
		return text[i+1:]
	}
	return text
}

// ExtractFloat pulls a decimal entity value such as "20.0f".
func ExtractFloat(text string) (float64, bool) {
	if rejected(text) {
		return 0, false
	}
	m := floatPattern.FindStringSubmatch(entityValue(text))
	if m == nil {
		return 0, false
	}
	f, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// ExtractInt pulls an integer entity value.
func ExtractInt(text string) (int, bool) {
	if rejected(text) {
		return 0, false
	}
	m := intPattern.FindStringSubmatch(entityValue(text))
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// Position is a block position truncated to integers.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

// ExtractPosition reads the first bracketed coordinate triple, as in
// "Steve has the following entity data: [12.5d, 64.0d, -3.2d]".
func ExtractPosition(text string) (Position, bool) {
	if rejected(text) {
		return Position{}, false
	}
	m := positionPattern.FindStringSubmatch(text)
	if m == nil {
		return Position{}, false
	}
	parts := strings.Split(m[1], ",")
	if len(parts) < 3 {
		return Position{}, false
	}
	var coords [3]int
	for i := range coords {
		f, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(parts[i]), "d"), 64)
		if err != nil {
			return Position{}, false
		}
		coords[i] = int(f)
	}
	return Position{X: coords[0], Y: coords[1], Z: coords[2]}, true
}

// GameModeName maps a playerGameType value to its name.
func GameModeName(n int) string {
	switch n {
	case 0:
		return "Survival"
	case 1:
		return "Creative"
	case 2:
		return "Adventure"
	case 3:
		return "Spectator"
	default:
		return "Unknown"
	}
}

// Stats holds whatever entity values could be read. Absent values are nil.
type Stats struct {
	Health   *float64 `json:"health,omitempty"`
	Food     *int     `json:"food,omitempty"`
	XPLevel  *int     `json:"xp_level,omitempty"`
	GameMode *string  `json:"game_mode,omitempty"`
}

func entityCommand(player, path string) string {
	return fmt.Sprintf("data get entity %s %s", player, path)
}

// PlayerStats reads health, food, XP level and game mode for player. A value
// the server does not return is left nil; the call itself fails only for an
// invalid name.
func PlayerStats(ctx context.Context, r Runner, tenant, player string) (Stats, error) {
	if !ValidPlayerName(player) {
		return Stats{}, fmt.Errorf("%w: %q", ErrInvalidPlayer, player)
	}

	var stats Stats
	if f, ok := ExtractFloat(r.Run(ctx, tenant, entityCommand(player, "Health"))); ok {
		stats.Health = &f
	}
	if n, ok := ExtractInt(r.Run(ctx, tenant, entityCommand(player, "foodLevel"))); ok {
		stats.Food = &n
	}
	if n, ok := ExtractInt(r.Run(ctx, tenant, entityCommand(player, "XpLevel"))); ok {
		stats.XPLevel = &n
	}
	if n, ok := ExtractInt(r.Run(ctx, tenant, entityCommand(player, "playerGameType"))); ok {
		mode := GameModeName(n)
		stats.GameMode = &mode
	}
	return stats, nil
}

// PlayerLocation reads player's position. A rejected command is returned as
// a *CommandError holding the response.
func PlayerLocation(ctx context.Context, r Runner, tenant, player string) (Position, error) {
	if !ValidPlayerName(player) {
		return Position{}, fmt.Errorf("%w: %q", ErrInvalidPlayer, player)
	}

	out := r.Run(ctx, tenant, entityCommand(player, "Pos"))
	if rejected(out) {
		return Position{}, &CommandError{Response: out}
	}
	pos, ok := ExtractPosition(out)
	if !ok {
		return Position{}, ErrNoPosition
	}
	return pos, nil
}

// OnlinePlayers lists the players connected to the tenant's server.
func OnlinePlayers(ctx context.Context, r Runner, tenant string) []string {
	return ExtractOnlinePlayers(r.Run(ctx, tenant, "list"))
}
