package auth

import (
	"context"

	"github.com/frahmantamala/tutoring-platform/internal/core/datamodel/user"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (*user.User, error)
	GetByID(ctx context.Context, id string) (*user.User, error)
	Create(ctx context.Context, u *user.User) error
}

type ServiceAPI interface {
	Register(ctx context.Context, dto RegisterDTO) (AuthTokens, error)
	Authenticate(ctx context.Context, dto LoginDTO) (AuthTokens, error)
	RefreshTokens(ctx context.Context, refreshToken string) (AuthTokens, error)
	ValidateAccessToken(tokenString string) (*Claims, error)
}

type Service struct {
	userRepo       UserRepository
	tokenGenerator TokenGenerator
	bcryptCost     int
}

func NewService(userRepo UserRepository, tokenGen TokenGenerator, bcryptCost int) *Service {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		userRepo:       userRepo,
		tokenGenerator: tokenGen,
		bcryptCost:     bcryptCost,
	}
}

// Register creates a user account and returns a token pair.
func (s *Service) Register(ctx context.Context, dto RegisterDTO) (AuthTokens, error) {
	if err := dto.Validate(); err != nil {
		return AuthTokens{}, err
	}

	existing, err := s.userRepo.GetByEmail(ctx, dto.Email)
	if err != nil {
		return AuthTokens{}, err
	}
	if existing != nil {
		return AuthTokens{}, ErrEmailTaken
	}

	hash, err := s.HashPassword(dto.Password)
	if err != nil {
		return AuthTokens{}, err
	}

	role := user.Role(dto.Role)
	if role == "" {
		role = user.RoleStudent
	}

	u := &user.User{
		ID:           uuid.New().String(),
		Email:        dto.Email,
		PasswordHash: hash,
		FullName:     dto.FullName,
		Role:         role,
	}
	if err := s.userRepo.Create(ctx, u); err != nil {
		return AuthTokens{}, err
	}

	return s.issueTokens(u)
}

// Authenticate validates credentials and returns tokens
func (s *Service) Authenticate(ctx context.Context, dto LoginDTO) (AuthTokens, error) {
	if err := dto.Validate(); err != nil {
		return AuthTokens{}, err
	}

	u, err := s.userRepo.GetByEmail(ctx, dto.Email)
	if err != nil {
		return AuthTokens{}, err
	}
	if u == nil {
		return AuthTokens{}, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(dto.Password)); err != nil {
		return AuthTokens{}, ErrInvalidCredentials
	}

	return s.issueTokens(u)
}

// RefreshTokens validates refresh token and returns new tokens
func (s *Service) RefreshTokens(ctx context.Context, refreshToken string) (AuthTokens, error) {
	claims, err := s.tokenGenerator.ValidateRefreshToken(refreshToken)
	if err != nil {
		return AuthTokens{}, err
	}

	u, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		return AuthTokens{}, err
	}
	if u == nil {
		return AuthTokens{}, ErrInvalidToken
	}

	return s.issueTokens(u)
}

// ValidateAccessToken validates access token and returns claims
func (s *Service) ValidateAccessToken(tokenString string) (*Claims, error) {
	return s.tokenGenerator.ValidateAccessToken(tokenString)
}

// HashPassword creates a bcrypt hash of the password
func (s *Service) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (s *Service) issueTokens(u *user.User) (AuthTokens, error) {
	accessToken, err := s.tokenGenerator.GenerateAccessToken(u.ID, string(u.Role))
	if err != nil {
		return AuthTokens{}, err
	}

	refreshToken, err := s.tokenGenerator.GenerateRefreshToken(u.ID, string(u.Role))
	if err != nil {
		return AuthTokens{}, err
	}

	return AuthTokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}
