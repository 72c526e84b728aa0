package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"time-nest/backend/internal/logging"
	"time-nest/backend/internal/models"
	"time-nest/backend/internal/repositories"
)

// UserService はユーザー関連のビジネスロジックを扱います。
type UserService struct {
	userRepo repositories.UserRepository
	now      func() time.Time
}

// NewUserService は新しいUserServiceを作成します。
func NewUserService(userRepo repositories.UserRepository) *UserService {
	return &UserService{userRepo: userRepo, now: time.Now}
}

// ResolveOAuthUser はOAuthプロフィールのemailでユーザーを検索し、
// 無ければ作成、あれば名前と更新日時を更新します。
// 同じemailの同時作成で一意制約に違反した場合は検索・更新にフォールバックします。
func (s *UserService) ResolveOAuthUser(ctx context.Context, profile models.GoogleProfile) (*models.User, error) {
	if profile.Email == "" {
		return nil, ErrMissingEmail
	}
	name := profile.DisplayName()
	now := s.now().UTC()

	existing, err := s.userRepo.FindByEmail(ctx, profile.Email)
	switch {
	case err == nil:
		return s.refresh(ctx, existing, name, now)
	case !errors.Is(err, repositories.ErrUserNotFound):
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	user := &models.User{
		Email:        profile.Email,
		Name:         name,
		AuthProvider: models.AuthProviderGoogle,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	err = s.userRepo.Create(ctx, user)
	if err == nil {
		logging.Ctx(ctx).Info().Str("user_id", user.ID).Msg("created user from Google login")
		return user, nil
	}
	if !errors.Is(err, repositories.ErrDuplicateEmail) {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	existing, err = s.userRepo.FindByEmail(ctx, profile.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user after duplicate insert: %w", err)
	}
	return s.refresh(ctx, existing, name, now)
}

func (s *UserService) refresh(ctx context.Context, u *models.User, name string, now time.Time) (*models.User, error) {
	provider := u.AuthProvider
	if provider == "" {
		provider = models.AuthProviderGoogle
	}
	updated, err := s.userRepo.UpdateLogin(ctx, u.ID, name, provider, now)
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return updated, nil
}

// FindByEmail はemailでユーザーを取得します。
func (s *UserService) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.userRepo.FindByEmail(ctx, email)
}

// FindByID はIDでユーザーを取得します。
func (s *UserService) FindByID(ctx context.Context, id string) (*models.User, error) {
	return s.userRepo.FindByID(ctx, id)
}
