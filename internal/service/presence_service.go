package service

import (
	"errors"
	"time"

	"github.com/codye1/chat.online.api/internal/cache"
	"github.com/codye1/chat.online.api/internal/repository"
	"gorm.io/gorm"
)

// PresenceService tracks per-user last-seen timestamps. The durable row
// lives on the user record; Redis holds the hot copy with a TTL so list
// screens don't hammer the users table.
type PresenceService struct {
	userRepo      repository.UserRepositoryInterface
	presenceCache *cache.PresenceCache
}

func NewPresenceService(userRepo repository.UserRepositoryInterface, presenceCache *cache.PresenceCache) *PresenceService {
	return &PresenceService{
		userRepo:      userRepo,
		presenceCache: presenceCache,
	}
}

// Touch records "now" as the user's last-seen time. Called on connect and
// on explicit heartbeat only, never inferred from message activity.
func (s *PresenceService) Touch(userID uint) (time.Time, error) {
	now := time.Now().UTC()
	if err := s.userRepo.TouchLastSeen(userID, now); err != nil {
		return time.Time{}, err
	}
	_ = s.presenceCache.SetLastSeen(userID, now)
	return now, nil
}

// Get returns the user's last-seen timestamp, or nil if the user has never
// been seen. Absence is an answer, not an error.
func (s *PresenceService) Get(userID uint) (*time.Time, error) {
	if lastSeen, ok := s.presenceCache.GetLastSeen(userID); ok {
		return &lastSeen, nil
	}

	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return user.LastSeen, nil
}

// GetBatch resolves last-seen for several users at once. Users with no
// record simply don't appear in the map.
func (s *PresenceService) GetBatch(userIDs []uint) (map[uint]time.Time, error) {
	out := make(map[uint]time.Time, len(userIDs))
	misses := make([]uint, 0, len(userIDs))
	for _, id := range userIDs {
		if lastSeen, ok := s.presenceCache.GetLastSeen(id); ok {
			out[id] = lastSeen
		} else {
			misses = append(misses, id)
		}
	}

	if len(misses) > 0 {
		users, err := s.userRepo.FindByIDs(misses)
		if err != nil {
			return nil, err
		}
		for i := range users {
			if users[i].LastSeen != nil {
				out[users[i].ID] = *users[i].LastSeen
			}
		}
	}
	return out, nil
}
