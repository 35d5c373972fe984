package health

import (
	"fmt"
	"net/http"
	"strings"
)

// Status represents the health status of a component.
//
// Statuses are ordered by severity: StatusHealthy < StatusDegraded <
// StatusUnhealthy.
type Status int

const (
	// StatusHealthy indicates the component is functioning normally.
	StatusHealthy Status = iota
	// StatusDegraded indicates the component is functioning but slowly.
	StatusDegraded
	// StatusUnhealthy indicates the component is not functioning properly.
	StatusUnhealthy
)

// String returns the wire name of the status.
func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "HEALTHY"
	case StatusDegraded:
		return "DEGRADED"
	case StatusUnhealthy:
		return "UNHEALTHY"
	default:
		return "UNKNOWN"
	}
}

// Valid reports whether s is one of the defined statuses.
func (s Status) Valid() bool {
	return s >= StatusHealthy && s <= StatusUnhealthy
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("health: invalid status %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Names are matched
// case-insensitively.
func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseStatus parses a status name such as "HEALTHY" or "degraded".
func ParseStatus(name string) (Status, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "HEALTHY":
		return StatusHealthy, nil
	case "DEGRADED":
		return StatusDegraded, nil
	case "UNHEALTHY":
		return StatusUnhealthy, nil
	default:
		return StatusUnhealthy, fmt.Errorf("health: unknown status %q", name)
	}
}

// Combine reduces two statuses to the more severe one.
//
// Combine is associative and commutative, StatusUnhealthy is absorbing and
// StatusHealthy is the identity, so folding any set of statuses gives the
// same answer regardless of order. Values outside the enumeration count as
// unhealthy.
func Combine(a, b Status) Status {
	if !a.Valid() || !b.Valid() {
		return StatusUnhealthy
	}
	if a == StatusUnhealthy || b == StatusUnhealthy {
		return StatusUnhealthy
	}
	if a == StatusDegraded || b == StatusDegraded {
		return StatusDegraded
	}
	return StatusHealthy
}

// Fold combines statuses starting from StatusHealthy.
func Fold(statuses ...Status) Status {
	overall := StatusHealthy
	for _, s := range statuses {
		overall = Combine(overall, s)
	}
	return overall
}

// HTTPStatus maps a status to the HTTP code a probe endpoint should return.
// Healthy and degraded services still accept traffic.
func HTTPStatus(s Status) int {
	switch s {
	case StatusHealthy, StatusDegraded:
		return http.StatusOK
	default:
		return http.StatusServiceUnavailable
	}
}
