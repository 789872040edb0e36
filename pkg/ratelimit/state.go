// Package ratelimit paces Bitrix24 REST calls per portal.
// Bitrix24 applies a leaky-bucket limit per portal and answers with
// QUERY_LIMIT_EXCEEDED once the bucket overflows. The tracker keeps a local
// token bucket per portal and shares a cooldown window through Redis so all
// processes talking to the same portal back off together.
package ratelimit

import (
	"fmt"
	"time"
)

// Redis key layout for shared cooldown state.
const (
	redisKeyCooldownPrefix = "bitrix24:rate_limit:cooldown:"
)

// Defaults for the standard Bitrix24 plan.
const (
	// DefaultRequestsPerSecond is the drain rate of the portal bucket.
	DefaultRequestsPerSecond = 2.0

	// DefaultBurst is the bucket size before QUERY_LIMIT_EXCEEDED.
	DefaultBurst = 50

	// DefaultCooldown is how long callers pause after the portal reported an overflow.
	DefaultCooldown = 2 * time.Second
)

// CooldownKey returns the Redis key holding the cooldown deadline for a portal.
func CooldownKey(portal string) string {
	return fmt.Sprintf("%s%s", redisKeyCooldownPrefix, portal)
}

// CooldownState describes the pause window of one portal.
type CooldownState struct {
	// Portal is the host name of the Bitrix24 installation.
	Portal string `json:"portal"`

	// Until is the moment requests may resume. Zero when no cooldown is active.
	Until time.Time `json:"until"`
}

// Active reports whether the cooldown window is still open.
func (s *CooldownState) Active() bool {
	return !s.Until.IsZero() && time.Now().Before(s.Until)
}

// Remaining returns the time left in the cooldown window, or 0.
func (s *CooldownState) Remaining() time.Duration {
	if !s.Active() {
		return 0
	}
	return time.Until(s.Until)
}
