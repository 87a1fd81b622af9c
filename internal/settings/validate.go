package settings

import (
	"strconv"
	"strings"
)

// Form is the raw input of a settings save, before validation.
type Form struct {
	Host     string
	Port     string
	Password string
}

// Validate checks a settings form and returns the parsed port together with
// every problem found. The form is valid when problems is empty.
func (f Form) Validate() (port int, problems []string) {
	host := strings.TrimSpace(f.Host)
	portText := strings.TrimSpace(f.Port)

	if host == "" {
		problems = append(problems, "Host is required")
	}
	if portText == "" {
		problems = append(problems, "Port is required")
	} else if n, err := strconv.Atoi(portText); err != nil {
		problems = append(problems, "Port must be a number")
	} else if n < 1 || n > 65535 {
		problems = append(problems, "Port must be between 1 and 65535")
	} else {
		port = n
	}
	if strings.TrimSpace(f.Password) == "" {
		problems = append(problems, "Password is required")
	}
	return port, problems
}
