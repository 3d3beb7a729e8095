// Package service implements the business logic for accounts, the brand
// catalog, customer types, pricing, quotes and analytics. Services validate
// input, orchestrate repositories, maintain the Redis read-through caches and
// publish domain events; they never touch HTTP concerns.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Sagar7057/pharma-backend/internal/auth"
	"github.com/Sagar7057/pharma-backend/internal/cache"
	"github.com/Sagar7057/pharma-backend/internal/domain"
	"github.com/Sagar7057/pharma-backend/internal/event"
	"github.com/Sagar7057/pharma-backend/internal/repository"
	apperrors "github.com/Sagar7057/pharma-backend/pkg/errors"
)

const minPasswordLength = 8

// UserService handles signup, login, profile and token lifecycle.
type UserService struct {
	userRepo         repository.UserRepository
	customerTypeRepo repository.CustomerTypeRepository
	jwtManager       *auth.JWTManager
	cache            *cache.Cache
	producer         *event.Producer
	logger           *slog.Logger
	bcryptCost       int
}

// NewUserService creates a new user service.
func NewUserService(
	userRepo repository.UserRepository,
	customerTypeRepo repository.CustomerTypeRepository,
	jwtManager *auth.JWTManager,
	c *cache.Cache,
	producer *event.Producer,
	logger *slog.Logger,
	bcryptCost int,
) *UserService {
	return &UserService{
		userRepo:         userRepo,
		customerTypeRepo: customerTypeRepo,
		jwtManager:       jwtManager,
		cache:            c,
		producer:         producer,
		logger:           logger,
		bcryptCost:       bcryptCost,
	}
}

// SignupInput contains the fields for registering a distributor account.
type SignupInput struct {
	Email       string
	Password    string
	FullName    string
	CompanyName string
	Phone       string
	City        string
	State       string
}

// LoginInput contains the credentials for authentication.
type LoginInput struct {
	Email    string
	Password string
}

// Signup registers a new distributor, seeds the predefined customer types
// for the account and returns a signed token.
func (s *UserService) Signup(ctx context.Context, input SignupInput) (*domain.AuthResult, error) {
	if input.Email == "" || input.FullName == "" || input.CompanyName == "" {
		return nil, apperrors.InvalidInput("email, full name and company name are required")
	}
	if input.City == "" || input.State == "" {
		return nil, apperrors.InvalidInput("city and state are required")
	}
	if err := validatePassword(input.Password); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.New().String(),
		Email:        strings.ToLower(strings.TrimSpace(input.Email)),
		PasswordHash: string(hash),
		FullName:     strings.TrimSpace(input.FullName),
		CompanyName:  strings.TrimSpace(input.CompanyName),
		Phone:        strings.TrimSpace(input.Phone),
		City:         strings.TrimSpace(input.City),
		State:        strings.TrimSpace(input.State),
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	// Seeding is idempotent; a failure leaves the account usable, so log
	// and continue rather than rolling back the signup.
	if err := s.customerTypeRepo.SeedDefaults(ctx, user.ID, domain.DefaultCustomerTypes()); err != nil {
		s.logger.ErrorContext(ctx, "failed to seed default customer types",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()))
	}

	token, err := s.jwtManager.Generate(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	// Publish registration event (non-blocking on failure).
	if err := s.producer.PublishUserRegistered(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user registered event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()))
	}

	s.logger.InfoContext(ctx, "user registered",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
		slog.String("company", user.CompanyName))

	return &domain.AuthResult{
		Token:     token,
		ExpiresIn: int64(s.jwtManager.TTL().Seconds()),
		User:      user,
	}, nil
}

// Login authenticates a distributor and returns a signed token.
func (s *UserService) Login(ctx context.Context, input LoginInput) (*domain.AuthResult, error) {
	if input.Email == "" || input.Password == "" {
		return nil, apperrors.InvalidInput("email and password are required")
	}

	user, err := s.userRepo.GetByEmail(ctx, input.Email)
	if err != nil {
		return nil, apperrors.Unauthorized("invalid email or password")
	}

	if !user.IsActive {
		return nil, apperrors.Unauthorized("account is deactivated")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, apperrors.Unauthorized("invalid email or password")
	}

	token, err := s.jwtManager.Generate(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	// Publish login event (non-blocking on failure).
	if err := s.producer.PublishUserLoggedIn(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user logged in event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()))
	}

	s.logger.InfoContext(ctx, "user logged in",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email))

	return &domain.AuthResult{
		Token:     token,
		ExpiresIn: int64(s.jwtManager.TTL().Seconds()),
		User:      user,
	}, nil
}

// GetProfile returns the authenticated user's profile, served from cache
// when warm.
func (s *UserService) GetProfile(ctx context.Context, userID string) (*domain.User, error) {
	key := cache.ProfileKey(userID)

	var cached domain.User
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		return &cached, nil
	} else if !errors.Is(err, cache.ErrMiss) {
		s.logger.WarnContext(ctx, "profile cache read failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()))
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user profile: %w", err)
	}

	if err := s.cache.Set(ctx, key, user, cache.TTLProfile); err != nil {
		s.logger.WarnContext(ctx, "profile cache write failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()))
	}

	return user, nil
}

// RefreshToken exchanges a valid token for a fresh one with a full TTL.
func (s *UserService) RefreshToken(ctx context.Context, token string) (*domain.AuthResult, error) {
	if token == "" {
		return nil, apperrors.InvalidInput("token is required")
	}

	newToken, err := s.jwtManager.Refresh(token)
	if err != nil {
		return nil, apperrors.Unauthorized("invalid or expired token")
	}

	s.logger.InfoContext(ctx, "token refreshed")

	return &domain.AuthResult{
		Token:     newToken,
		ExpiresIn: int64(s.jwtManager.TTL().Seconds()),
	}, nil
}

// Logout acknowledges a client-side logout. Tokens are stateless, so there
// is nothing to revoke server-side; the client discards its copy.
func (s *UserService) Logout(ctx context.Context, userID string) error {
	s.logger.InfoContext(ctx, "user logged out",
		slog.String("user_id", userID))
	return nil
}

// validatePassword enforces the password policy.
func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return apperrors.Validation(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	var hasUpper, hasLower, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}

	if !hasUpper || !hasLower || !hasDigit {
		return apperrors.Validation("password must contain at least one uppercase letter, one lowercase letter, and one digit")
	}

	return nil
}
