package services

import (
	"context"
	"errors"
	"strings"

	"github.com/yukikurage/kanban-sync/internal/dto"
	"github.com/yukikurage/kanban-sync/internal/logging"
	"github.com/yukikurage/kanban-sync/internal/models"
	"github.com/yukikurage/kanban-sync/internal/realtime"
	"github.com/yukikurage/kanban-sync/internal/repository"
	"gorm.io/gorm"
)

// UserService lists users and manages the admin flag.
type UserService struct {
	userRepo repository.UserRepository
	bus      Publisher
	logger   logging.Logger
}

func NewUserService(userRepo repository.UserRepository, bus Publisher, logger logging.Logger) *UserService {
	return &UserService{userRepo: userRepo, bus: bus, logger: logger}
}

// ListUsers returns all users in ascending ID order.
func (s *UserService) ListUsers(ctx context.Context) ([]models.User, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, storageError("failed to list users", err)
	}
	return users, nil
}

// SetAdmin grants or revokes admin rights.
func (s *UserService) SetAdmin(ctx context.Context, userID uint64, isAdmin bool) (*models.User, error) {
	user, err := s.userRepo.SetAdmin(ctx, userID, isAdmin)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, storageError("failed to update user", err)
	}

	s.logger.Info(ctx, "admin flag changed", "user_id", user.ID, "is_admin", isAdmin)
	s.bus.Publish(ctx, realtime.EventUserUpdated, dto.ToUserDTO(*user))
	return user, nil
}

// GrantAdminByEmail promotes the user registered with email.
func (s *UserService) GrantAdminByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := s.userRepo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, storageError("failed to find user", err)
	}
	return s.SetAdmin(ctx, user.ID, true)
}
