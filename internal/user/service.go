package user

import (
	"context"
	"log/slog"

	errors "github.com/frahmantamala/tutoring-platform/internal"
	"github.com/frahmantamala/tutoring-platform/internal/core/datamodel/user"
)

type RepositoryAPI interface {
	Create(ctx context.Context, u *user.User) error
	GetByID(ctx context.Context, id string) (*user.User, error)
	GetByEmail(ctx context.Context, email string) (*user.User, error)
	Update(ctx context.Context, u *user.User) error
	SetDefaultPaymentMethod(ctx context.Context, userID string, paymentMethodID *string) error
}

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

func (s *Service) GetByID(ctx context.Context, id string) (*user.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) SetDefaultPaymentMethod(ctx context.Context, userID string, paymentMethodID *string) error {
	return s.repo.SetDefaultPaymentMethod(ctx, userID, paymentMethodID)
}

// GetProfile loads a user for display.
func (s *Service) GetProfile(ctx context.Context, userID string) (*ProfileResponse, error) {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, errors.NewInternalError("failed to load user", err)
	}
	if u == nil {
		return nil, errors.ErrUserNotFound
	}
	return toProfileResponse(u), nil
}

// UpdateProfile applies the mutable profile fields.
func (s *Service) UpdateProfile(ctx context.Context, userID string, req *UpdateProfileRequest) (*ProfileResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, errors.NewInternalError("failed to load user", err)
	}
	if u == nil {
		return nil, errors.ErrUserNotFound
	}

	if req.FullName != nil {
		u.FullName = *req.FullName
	}
	if req.Phone != nil {
		u.Phone = req.Phone
	}
	if req.AvatarURL != nil {
		u.AvatarURL = req.AvatarURL
	}
	if req.Bio != nil {
		u.Bio = req.Bio
	}

	if err := s.repo.Update(ctx, u); err != nil {
		s.logger.Error("failed to update profile", "error", err, "user_id", userID)
		return nil, errors.NewInternalError("failed to update profile", err)
	}

	return toProfileResponse(u), nil
}
