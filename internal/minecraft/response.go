// Package minecraft interprets the text a Minecraft server returns over its
// remote console and builds player views on top of it.
package minecraft

import (
	"log"
	"strings"
)

// errorMarkers appear somewhere in a response when the server rejected a
// command. Matching is case-sensitive.
var errorMarkers = []string{
	"Error:",
	"Unknown command",
	"Invalid",
	"Cannot",
	"Failed",
	"No player was found",
	"Incorrect argument",
	"Expected",
	"Unable to modify",
}

// IsErrorResponse reports whether text carries any error marker. Delivery
// failures from the console package start with "Error:" and so match too.
func IsErrorResponse(text string) bool {
	if text == "" {
		return false
	}
	for _, m := range errorMarkers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}

// entityDataMarker follows the player's name in a "data get entity" reply.
const entityDataMarker = " has the following entity data"

// rejected reports whether a reply to a player command is a failure. Player
// names are left out of the marker search, so a name such as "InvalidUser"
// does not read as an error.
func rejected(text string) bool {
	if strings.HasPrefix(text, "Error:") {
		return true
	}
	if strings.Contains(text, entityDataMarker) {
		return false
	}
	if head, _, ok := strings.Cut(text, "online:"); ok {
		return IsErrorResponse(head)
	}
	return IsErrorResponse(text)
}

// Outcome is the interpreted result of one command.
type Outcome struct {
	Success bool    `json:"success"`
	Message string  `json:"message"`
	Data    *string `json:"data"`
}

// Parse turns a raw response into an Outcome.
func Parse(text string) Outcome {
	if strings.TrimSpace(text) == "" {
		return Outcome{Success: true, Message: "Command executed"}
	}
	if IsErrorResponse(text) {
		return Outcome{Success: false, Message: text}
	}
	data := text
	return Outcome{Success: true, Message: text, Data: &data}
}

// ExtractOnlinePlayers returns the names listed after "online:" in the
// response to "list". It returns an empty slice rather than failing.
func ExtractOnlinePlayers(text string) (players []string) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Error extracting players: %v", r)
			players = []string{}
		}
	}()

	players = []string{}
	if rejected(text) {
		return players
	}
	_, rest, ok := strings.Cut(text, "online:")
	if !ok {
		return players
	}
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return players
	}
	for _, name := range strings.Split(rest, ",") {
		if name = strings.TrimSpace(name); name != "" {
			players = append(players, name)
		}
	}
	return players
}
