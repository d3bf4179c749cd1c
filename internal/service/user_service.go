package service

import (
	"context"

	"github.com/Lixing-Zhang/tailortech/internal/models"
	"github.com/Lixing-Zhang/tailortech/internal/repository"
)

// UserService handles client profile and balance operations
type UserService struct {
	users repository.UserRepository
}

// NewUserService creates a new user service
func NewUserService(users repository.UserRepository) *UserService {
	return &UserService{users: users}
}

// GetUser returns a user by ID
func (s *UserService) GetUser(ctx context.Context, id int64) (*models.User, error) {
	return s.users.GetUser(ctx, id)
}

// UpdateProfile changes the contact details of a user
func (s *UserService) UpdateProfile(ctx context.Context, update models.ProfileUpdate) (*models.User, error) {
	if update.ID <= 0 {
		return nil, repository.ErrUserNotFound
	}
	return s.users.UpdateProfile(ctx, update)
}

// TopUp adds a positive amount to a user's balance
func (s *UserService) TopUp(ctx context.Context, userID int64, amount models.Money) (*models.User, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidTopUp
	}
	return s.users.TopUp(ctx, userID, amount)
}
