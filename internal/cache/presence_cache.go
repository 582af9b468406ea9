package cache

import (
	"fmt"
	"strconv"
	"time"
)

const (
	// Presence entries outlive the pong timeout so a flaky connection does
	// not flap the user's last-seen reads.
	PresenceTTL = 90 * time.Second
)

// PresenceCache keeps the hot copy of per-user last-seen timestamps so the
// conversation list does not hit the users table for every peer.
type PresenceCache struct {
	redis *RedisCache
}

// NewPresenceCache creates a new presence cache
func NewPresenceCache(redis *RedisCache) *PresenceCache {
	return &PresenceCache{redis: redis}
}

func presenceKey(userID uint) string {
	return fmt.Sprintf("presence:%d", userID)
}

// SetLastSeen records a last-seen timestamp with TTL
func (pc *PresenceCache) SetLastSeen(userID uint, at time.Time) error {
	if pc == nil || pc.redis == nil {
		return nil
	}
	value := strconv.FormatInt(at.UnixMilli(), 10)
	return pc.redis.Set(presenceKey(userID), []byte(value), PresenceTTL)
}

// GetLastSeen reads the cached last-seen timestamp. The second return is
// false on a miss; missing means "fall back to the durable record", not
// "never seen".
func (pc *PresenceCache) GetLastSeen(userID uint) (time.Time, bool) {
	if pc == nil || pc.redis == nil {
		return time.Time{}, false
	}
	data, err := pc.redis.Get(presenceKey(userID))
	if err != nil || data == nil {
		return time.Time{}, false
	}
	millis, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(millis), true
}
