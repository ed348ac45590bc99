package siblingclient

import (
	"time"

	"github.com/sony/gobreaker"
)

// DefaultBreakerSettings is the fallback circuit breaker policy used
// when a sibling's config does not override it: trip after 5
// consecutive failures, half-open after 30s (§4.2).
func DefaultBreakerSettings(name string) gobreaker.Settings {
	return gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    0,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}
}

// Clients bundles the two sibling clients this subgraph depends on.
type Clients struct {
	Users  *Client
	Offers *Client
}
