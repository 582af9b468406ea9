package repository

import (
	"time"

	"github.com/codye1/chat.online.api/internal/models"
	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) FindByID(id uint) (*models.User, error) {
	var user models.User
	err := r.db.First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByIDs(ids []uint) ([]models.User, error) {
	var users []models.User
	if len(ids) == 0 {
		return users, nil
	}
	err := r.db.Where("id IN ?", ids).Find(&users).Error
	return users, err
}

func (r *UserRepository) SearchByNickname(query string, limit int) ([]models.User, error) {
	var users []models.User
	err := r.db.Where("nickname ILIKE ?", query+"%").
		Limit(limit).
		Find(&users).Error
	return users, err
}

func (r *UserRepository) TouchLastSeen(userID uint, at time.Time) error {
	return r.db.Model(&models.User{}).
		Where("id = ?", userID).
		Update("last_seen", at).Error
}
