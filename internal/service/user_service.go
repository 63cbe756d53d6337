package service

import (
	"context"

	"zala/internal/domain"
	"zala/internal/models"
)

type UserService struct {
	repo         domain.Repository
	staffSet     map[int64]bool
	blacklistSet map[int64]bool
}

func NewUserService(repo domain.Repository) *UserService {
	return &UserService{repo: repo}
}

// WithRoster pins staff and blacklist membership to the configured
// Telegram IDs; every save re-derives both flags from the roster.
func (s *UserService) WithRoster(staff, blacklist []int64) *UserService {
	s.staffSet = make(map[int64]bool, len(staff))
	for _, id := range staff {
		s.staffSet[id] = true
	}
	s.blacklistSet = make(map[int64]bool, len(blacklist))
	for _, id := range blacklist {
		s.blacklistSet[id] = true
	}
	return s
}

func (s *UserService) SaveUser(ctx context.Context, user *models.User) error {
	if s.staffSet != nil {
		user.IsStaff = s.staffSet[user.TelegramID]
		user.IsBlacklisted = s.blacklistSet[user.TelegramID]
	}
	return s.repo.CreateOrUpdateUser(ctx, user)
}

func (s *UserService) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return s.repo.GetUserByID(ctx, id)
}

func (s *UserService) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.repo.GetUserByUsername(ctx, username)
}

func (s *UserService) GetUserByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	return s.repo.GetUserByTelegramID(ctx, telegramID)
}

func (s *UserService) GetStaffUsers(ctx context.Context) ([]*models.User, error) {
	return s.repo.GetStaffUsers(ctx)
}

// IsStaff resolves the caller's staff flag; unknown users are not staff.
func (s *UserService) IsStaff(ctx context.Context, id int64) bool {
	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return false
	}
	return user.IsStaff
}
