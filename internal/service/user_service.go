package service

import (
	"errors"

	"github.com/codye1/chat.online.api/internal/models"
	"github.com/codye1/chat.online.api/internal/repository"
	"gorm.io/gorm"
)

// UserService covers the read-only user lookups this backend needs: search
// and recipient resolution. Profile CRUD lives in the identity system.
type UserService struct {
	userRepo repository.UserRepositoryInterface
}

func NewUserService(userRepo repository.UserRepositoryInterface) *UserService {
	return &UserService{userRepo: userRepo}
}

func (s *UserService) GetByID(userID uint) (*models.User, error) {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *UserService) Search(query string, limit int) ([]models.UserResponse, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	users, err := s.userRepo.SearchByNickname(query, limit)
	if err != nil {
		return nil, err
	}
	responses := make([]models.UserResponse, 0, len(users))
	for i := range users {
		responses = append(responses, users[i].ToResponse())
	}
	return responses, nil
}
