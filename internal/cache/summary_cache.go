package cache

import (
	"fmt"
	"time"

	"github.com/codye1/chat.online.api/internal/models"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	// Summaries go stale on every send/read, so keep the TTL short; the
	// cache only has to absorb list-screen refresh bursts.
	SummaryTTL = 1 * time.Minute
)

// SummaryCache caches the per-user conversation list (titles, last message,
// unread counts) between invalidations.
type SummaryCache struct {
	redis *RedisCache
}

// NewSummaryCache creates a new conversation summary cache
func NewSummaryCache(redis *RedisCache) *SummaryCache {
	return &SummaryCache{redis: redis}
}

func summaryKey(userID uint) string {
	return fmt.Sprintf("summaries:%d", userID)
}

// Get retrieves the cached conversation list for a user
func (sc *SummaryCache) Get(userID uint) ([]models.ConversationSummary, bool) {
	if sc == nil || sc.redis == nil {
		return nil, false
	}
	data, err := sc.redis.Get(summaryKey(userID))
	if err != nil || data == nil {
		return nil, false
	}

	var summaries []models.ConversationSummary
	if err := msgpack.Unmarshal(data, &summaries); err != nil {
		return nil, false
	}
	return summaries, true
}

// Set caches the conversation list for a user
func (sc *SummaryCache) Set(userID uint, summaries []models.ConversationSummary) error {
	if sc == nil || sc.redis == nil {
		return nil
	}
	data, err := msgpack.Marshal(summaries)
	if err != nil {
		return err
	}
	return sc.redis.Set(summaryKey(userID), data, SummaryTTL)
}

// Invalidate drops the cached list for every affected user, typically all
// participants of a conversation that just changed.
func (sc *SummaryCache) Invalidate(userIDs ...uint) {
	if sc == nil || sc.redis == nil {
		return
	}
	for _, userID := range userIDs {
		_ = sc.redis.Delete(summaryKey(userID))
	}
}
