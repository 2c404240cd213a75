package auth_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"golang.org/x/crypto/bcrypt"

	"github.com/frahmantamala/tutoring-platform/internal/auth"
	"github.com/frahmantamala/tutoring-platform/internal/core/datamodel/user"
)

type mockUserRepository struct {
	byEmail     map[string]*user.User
	byID        map[string]*user.User
	createError error
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{
		byEmail: make(map[string]*user.User),
		byID:    make(map[string]*user.User),
	}
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return m.byEmail[email], nil
}

func (m *mockUserRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	return m.byID[id], nil
}

func (m *mockUserRepository) Create(ctx context.Context, u *user.User) error {
	if m.createError != nil {
		return m.createError
	}
	m.byEmail[u.Email] = u
	m.byID[u.ID] = u
	return nil
}

var _ = Describe("AuthService", func() {
	var (
		service  *auth.Service
		mockRepo *mockUserRepository
		tokenGen *auth.JWTTokenGenerator
		ctx      context.Context
	)

	registerDTO := func() auth.RegisterDTO {
		return auth.RegisterDTO{
			Email:    "ivan@mail.com",
			Password: "correct horse",
			FullName: "Ivan Petrov",
		}
	}

	BeforeEach(func() {
		mockRepo = newMockUserRepository()
		tokenGen = auth.NewJWTTokenGenerator("access-secret", "refresh-secret", 15*time.Minute, 7*24*time.Hour)
		service = auth.NewService(mockRepo, tokenGen, bcrypt.MinCost)
		ctx = context.Background()
	})

	Describe("Register", func() {
		It("creates a student account and returns a token pair", func() {
			tokens, err := service.Register(ctx, registerDTO())

			Expect(err).ToNot(HaveOccurred())
			Expect(tokens.AccessToken).ToNot(BeEmpty())
			Expect(tokens.RefreshToken).ToNot(BeEmpty())

			created := mockRepo.byEmail["ivan@mail.com"]
			Expect(created).ToNot(BeNil())
			Expect(created.Role).To(Equal(user.RoleStudent))
			Expect(created.PasswordHash).ToNot(Equal("correct horse"))

			claims, err := tokenGen.ValidateAccessToken(tokens.AccessToken)
			Expect(err).ToNot(HaveOccurred())
			Expect(claims.UserID).To(Equal(created.ID))
			Expect(claims.Role).To(Equal("student"))
		})

		It("keeps an explicit tutor role", func() {
			dto := registerDTO()
			dto.Role = "tutor"

			_, err := service.Register(ctx, dto)

			Expect(err).ToNot(HaveOccurred())
			Expect(mockRepo.byEmail["ivan@mail.com"].Role).To(Equal(user.RoleTutor))
		})

		It("rejects a taken email", func() {
			_, err := service.Register(ctx, registerDTO())
			Expect(err).ToNot(HaveOccurred())

			_, err = service.Register(ctx, registerDTO())
			Expect(err).To(Equal(auth.ErrEmailTaken))
		})

		It("rejects a short password", func() {
			dto := registerDTO()
			dto.Password = "short"

			_, err := service.Register(ctx, dto)
			Expect(err).To(HaveOccurred())
		})

		It("rejects an admin role from the public endpoint", func() {
			dto := registerDTO()
			dto.Role = "admin"

			_, err := service.Register(ctx, dto)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Authenticate", func() {
		BeforeEach(func() {
			_, err := service.Register(ctx, registerDTO())
			Expect(err).ToNot(HaveOccurred())
		})

		It("returns tokens for valid credentials", func() {
			tokens, err := service.Authenticate(ctx, auth.LoginDTO{
				Email:    "ivan@mail.com",
				Password: "correct horse",
			})

			Expect(err).ToNot(HaveOccurred())
			Expect(tokens.AccessToken).ToNot(BeEmpty())
		})

		It("rejects a wrong password", func() {
			_, err := service.Authenticate(ctx, auth.LoginDTO{
				Email:    "ivan@mail.com",
				Password: "wrong horse",
			})

			Expect(err).To(Equal(auth.ErrInvalidCredentials))
		})

		It("rejects an unknown email with the same error", func() {
			_, err := service.Authenticate(ctx, auth.LoginDTO{
				Email:    "nobody@mail.com",
				Password: "correct horse",
			})

			Expect(err).To(Equal(auth.ErrInvalidCredentials))
		})
	})

	Describe("RefreshTokens", func() {
		It("issues a fresh pair from a valid refresh token", func() {
			tokens, err := service.Register(ctx, registerDTO())
			Expect(err).ToNot(HaveOccurred())

			refreshed, err := service.RefreshTokens(ctx, tokens.RefreshToken)

			Expect(err).ToNot(HaveOccurred())
			Expect(refreshed.AccessToken).ToNot(BeEmpty())
			Expect(refreshed.RefreshToken).ToNot(BeEmpty())
		})

		It("rejects an access token used as a refresh token", func() {
			tokens, err := service.Register(ctx, registerDTO())
			Expect(err).ToNot(HaveOccurred())

			_, err = service.RefreshTokens(ctx, tokens.AccessToken)
			Expect(err).To(Equal(auth.ErrInvalidToken))
		})

		It("rejects a token for a deleted user", func() {
			tokens, err := service.Register(ctx, registerDTO())
			Expect(err).ToNot(HaveOccurred())

			delete(mockRepo.byID, mockRepo.byEmail["ivan@mail.com"].ID)

			_, err = service.RefreshTokens(ctx, tokens.RefreshToken)
			Expect(err).To(Equal(auth.ErrInvalidToken))
		})
	})

	Describe("ValidateAccessToken", func() {
		It("returns claims for a live token", func() {
			tokens, err := service.Register(ctx, registerDTO())
			Expect(err).ToNot(HaveOccurred())

			claims, err := service.ValidateAccessToken(tokens.AccessToken)

			Expect(err).ToNot(HaveOccurred())
			Expect(claims.Role).To(Equal("student"))
		})

		It("reports an expired token", func() {
			shortGen := auth.NewJWTTokenGenerator("access-secret", "refresh-secret", time.Nanosecond, time.Hour)
			token, err := shortGen.GenerateAccessToken("user-1", "student")
			Expect(err).ToNot(HaveOccurred())

			time.Sleep(10 * time.Millisecond)

			_, err = shortGen.ValidateAccessToken(token)
			Expect(err).To(Equal(auth.ErrTokenExpired))
		})

		It("rejects garbage", func() {
			_, err := service.ValidateAccessToken("not-a-jwt")
			Expect(err).To(Equal(auth.ErrInvalidToken))
		})
	})
})
