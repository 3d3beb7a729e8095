package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Sagar7057/pharma-backend/internal/auth"
	"github.com/Sagar7057/pharma-backend/internal/cache"
	"github.com/Sagar7057/pharma-backend/internal/domain"
	"github.com/Sagar7057/pharma-backend/internal/event"
	apperrors "github.com/Sagar7057/pharma-backend/pkg/errors"
	pkgkafka "github.com/Sagar7057/pharma-backend/pkg/kafka"
)

// --- Mocks ---

type mockUserRepository struct {
	mock.Mock
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if u := args.Get(0); u != nil {
		return u.(*domain.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if u := args.Get(0); u != nil {
		return u.(*domain.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserRepository) Update(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

type mockCustomerTypeRepository struct {
	mock.Mock
}

func (m *mockCustomerTypeRepository) Create(ctx context.Context, ct *domain.CustomerType) error {
	args := m.Called(ctx, ct)
	return args.Error(0)
}

func (m *mockCustomerTypeRepository) GetByID(ctx context.Context, userID, id string) (*domain.CustomerType, error) {
	args := m.Called(ctx, userID, id)
	if ct := args.Get(0); ct != nil {
		return ct.(*domain.CustomerType), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockCustomerTypeRepository) List(ctx context.Context, userID string) ([]domain.CustomerType, error) {
	args := m.Called(ctx, userID)
	if types := args.Get(0); types != nil {
		return types.([]domain.CustomerType), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockCustomerTypeRepository) Update(ctx context.Context, ct *domain.CustomerType) error {
	args := m.Called(ctx, ct)
	return args.Error(0)
}

func (m *mockCustomerTypeRepository) Delete(ctx context.Context, userID, id string) error {
	args := m.Called(ctx, userID, id)
	return args.Error(0)
}

func (m *mockCustomerTypeRepository) SeedDefaults(ctx context.Context, userID string, types []domain.CustomerType) error {
	args := m.Called(ctx, userID, types)
	return args.Error(0)
}

// --- Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

func newTestJWTManager() *auth.JWTManager {
	return auth.NewJWTManager("test-secret-key-for-testing", time.Hour)
}

// newTestEventProducer builds a producer against a broker that is not
// running. Publishes fail fast and services log and continue, which is
// exactly the degradation path worth exercising.
func newTestEventProducer() *event.Producer {
	logger := newTestLogger()
	cfg := pkgkafka.DefaultProducerConfig([]string{"localhost:9092"})
	return event.NewProducer(pkgkafka.NewProducer(cfg, logger), logger)
}

func newTestCache(t *testing.T) *cache.Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	return cache.New(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
}

// hashForTest uses the minimum bcrypt cost to keep tests fast.
func hashForTest(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func newTestUserService(t *testing.T, userRepo *mockUserRepository, typeRepo *mockCustomerTypeRepository) *UserService {
	t.Helper()
	return NewUserService(userRepo, typeRepo, newTestJWTManager(), newTestCache(t), newTestEventProducer(), newTestLogger(), bcrypt.MinCost)
}

func validSignupInput() SignupInput {
	return SignupInput{
		Email:       "Priya@MedSupply.example.com",
		Password:    "Str0ngPass",
		FullName:    "Priya Sharma",
		CompanyName: "MedSupply Distributors",
		Phone:       "+91 98765 43210",
		City:        "Pune",
		State:       "Maharashtra",
	}
}

// --- Signup ---

func TestSignup_Success(t *testing.T) {
	userRepo := new(mockUserRepository)
	typeRepo := new(mockCustomerTypeRepository)
	userRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.User")).Return(nil)
	typeRepo.On("SeedDefaults", mock.Anything, mock.AnythingOfType("string"), mock.MatchedBy(func(types []domain.CustomerType) bool {
		return len(types) == 4 && types[0].IsPredefined
	})).Return(nil)

	svc := newTestUserService(t, userRepo, typeRepo)

	result, err := svc.Signup(context.Background(), validSignupInput())

	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.Equal(t, int64(3600), result.ExpiresIn)
	require.NotNil(t, result.User)
	assert.Equal(t, "priya@medsupply.example.com", result.User.Email)
	assert.Equal(t, "Priya Sharma", result.User.FullName)
	assert.True(t, result.User.IsActive)
	assert.NotEmpty(t, result.User.ID)
	assert.NotContains(t, result.User.PasswordHash, "Str0ngPass")
	userRepo.AssertExpectations(t)
	typeRepo.AssertExpectations(t)
}

func TestSignup_DuplicateEmail(t *testing.T) {
	userRepo := new(mockUserRepository)
	typeRepo := new(mockCustomerTypeRepository)
	userRepo.On("Create", mock.Anything, mock.Anything).
		Return(apperrors.AlreadyExists("user", "email", "priya@medsupply.example.com"))

	svc := newTestUserService(t, userRepo, typeRepo)

	_, err := svc.Signup(context.Background(), validSignupInput())

	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
	typeRepo.AssertNotCalled(t, "SeedDefaults", mock.Anything, mock.Anything, mock.Anything)
}

func TestSignup_WeakPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
	}{
		{"too short", "Ab1"},
		{"no uppercase", "alllowercase1"},
		{"no lowercase", "ALLUPPERCASE1"},
		{"no digit", "NoDigitsHere"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			userRepo := new(mockUserRepository)
			typeRepo := new(mockCustomerTypeRepository)
			svc := newTestUserService(t, userRepo, typeRepo)

			input := validSignupInput()
			input.Password = tt.password
			_, err := svc.Signup(context.Background(), input)

			assert.ErrorIs(t, err, apperrors.ErrValidation)
			userRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestSignup_MissingFields(t *testing.T) {
	userRepo := new(mockUserRepository)
	typeRepo := new(mockCustomerTypeRepository)
	svc := newTestUserService(t, userRepo, typeRepo)

	input := validSignupInput()
	input.CompanyName = ""
	_, err := svc.Signup(context.Background(), input)

	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestSignup_SeedFailureDoesNotFailSignup(t *testing.T) {
	userRepo := new(mockUserRepository)
	typeRepo := new(mockCustomerTypeRepository)
	userRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	typeRepo.On("SeedDefaults", mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("connection reset"))

	svc := newTestUserService(t, userRepo, typeRepo)

	result, err := svc.Signup(context.Background(), validSignupInput())

	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
}

func TestSignup_HashesAreSaltedPerCall(t *testing.T) {
	var hashes []string
	userRepo := new(mockUserRepository)
	typeRepo := new(mockCustomerTypeRepository)
	userRepo.On("Create", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			hashes = append(hashes, args.Get(1).(*domain.User).PasswordHash)
		}).
		Return(nil)
	typeRepo.On("SeedDefaults", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	svc := newTestUserService(t, userRepo, typeRepo)

	input := validSignupInput()
	_, err := svc.Signup(context.Background(), input)
	require.NoError(t, err)
	input.Email = "second@medsupply.example.com"
	_, err = svc.Signup(context.Background(), input)
	require.NoError(t, err)

	require.Len(t, hashes, 2)
	assert.NotEqual(t, hashes[0], hashes[1])
	for _, h := range hashes {
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(h), []byte(input.Password)))
		assert.Error(t, bcrypt.CompareHashAndPassword([]byte(h), []byte("Wr0ngPass")))
	}
}

// --- Login ---

func TestLogin_Success(t *testing.T) {
	userRepo := new(mockUserRepository)
	typeRepo := new(mockCustomerTypeRepository)
	user := &domain.User{
		ID:           "user-123",
		Email:        "priya@medsupply.example.com",
		PasswordHash: hashForTest(t, "Str0ngPass"),
		FullName:     "Priya Sharma",
		IsActive:     true,
	}
	userRepo.On("GetByEmail", mock.Anything, "priya@medsupply.example.com").Return(user, nil)

	svc := newTestUserService(t, userRepo, typeRepo)

	result, err := svc.Login(context.Background(), LoginInput{
		Email:    "priya@medsupply.example.com",
		Password: "Str0ngPass",
	})

	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.Equal(t, "user-123", result.User.ID)
}

func TestLogin_WrongPassword(t *testing.T) {
	userRepo := new(mockUserRepository)
	typeRepo := new(mockCustomerTypeRepository)
	user := &domain.User{
		ID:           "user-123",
		Email:        "priya@medsupply.example.com",
		PasswordHash: hashForTest(t, "Str0ngPass"),
		IsActive:     true,
	}
	userRepo.On("GetByEmail", mock.Anything, mock.Anything).Return(user, nil)

	svc := newTestUserService(t, userRepo, typeRepo)

	_, err := svc.Login(context.Background(), LoginInput{
		Email:    "priya@medsupply.example.com",
		Password: "WrongPass1",
	})

	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	assert.ErrorContains(t, err, "invalid email or password")
}

func TestLogin_UnknownEmail(t *testing.T) {
	userRepo := new(mockUserRepository)
	typeRepo := new(mockCustomerTypeRepository)
	userRepo.On("GetByEmail", mock.Anything, mock.Anything).
		Return(nil, apperrors.NotFound("user", "nobody@example.com"))

	svc := newTestUserService(t, userRepo, typeRepo)

	_, err := svc.Login(context.Background(), LoginInput{
		Email:    "nobody@example.com",
		Password: "Str0ngPass",
	})

	// The lookup failure collapses into the same message as a bad password
	// so the endpoint does not leak which emails exist.
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	assert.ErrorContains(t, err, "invalid email or password")
}

func TestLogin_DeactivatedAccount(t *testing.T) {
	userRepo := new(mockUserRepository)
	typeRepo := new(mockCustomerTypeRepository)
	user := &domain.User{
		ID:           "user-123",
		Email:        "priya@medsupply.example.com",
		PasswordHash: hashForTest(t, "Str0ngPass"),
		IsActive:     false,
	}
	userRepo.On("GetByEmail", mock.Anything, mock.Anything).Return(user, nil)

	svc := newTestUserService(t, userRepo, typeRepo)

	_, err := svc.Login(context.Background(), LoginInput{
		Email:    "priya@medsupply.example.com",
		Password: "Str0ngPass",
	})

	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	assert.ErrorContains(t, err, "account is deactivated")
}

// --- Profile ---

func TestGetProfile_CachesResult(t *testing.T) {
	userRepo := new(mockUserRepository)
	typeRepo := new(mockCustomerTypeRepository)
	user := &domain.User{
		ID:       "user-123",
		Email:    "priya@medsupply.example.com",
		FullName: "Priya Sharma",
		IsActive: true,
	}
	userRepo.On("GetByID", mock.Anything, "user-123").Return(user, nil).Once()

	svc := newTestUserService(t, userRepo, typeRepo)

	first, err := svc.GetProfile(context.Background(), "user-123")
	require.NoError(t, err)
	assert.Equal(t, "priya@medsupply.example.com", first.Email)

	// Second call must be served from cache; the repo expectation is Once.
	second, err := svc.GetProfile(context.Background(), "user-123")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.FullName, second.FullName)
	userRepo.AssertExpectations(t)
}

func TestGetProfile_NotFound(t *testing.T) {
	userRepo := new(mockUserRepository)
	typeRepo := new(mockCustomerTypeRepository)
	userRepo.On("GetByID", mock.Anything, "ghost").
		Return(nil, apperrors.NotFound("user", "ghost"))

	svc := newTestUserService(t, userRepo, typeRepo)

	_, err := svc.GetProfile(context.Background(), "ghost")

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

// --- Token lifecycle ---

func TestRefreshToken_Success(t *testing.T) {
	userRepo := new(mockUserRepository)
	typeRepo := new(mockCustomerTypeRepository)
	svc := newTestUserService(t, userRepo, typeRepo)

	token, err := newTestJWTManager().Generate("user-123", "priya@medsupply.example.com")
	require.NoError(t, err)

	result, err := svc.RefreshToken(context.Background(), token)

	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.Equal(t, int64(3600), result.ExpiresIn)
	assert.Nil(t, result.User)
}

func TestRefreshToken_Invalid(t *testing.T) {
	userRepo := new(mockUserRepository)
	typeRepo := new(mockCustomerTypeRepository)
	svc := newTestUserService(t, userRepo, typeRepo)

	_, err := svc.RefreshToken(context.Background(), "not-a-token")

	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestRefreshToken_Empty(t *testing.T) {
	userRepo := new(mockUserRepository)
	typeRepo := new(mockCustomerTypeRepository)
	svc := newTestUserService(t, userRepo, typeRepo)

	_, err := svc.RefreshToken(context.Background(), "")

	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestLogout(t *testing.T) {
	userRepo := new(mockUserRepository)
	typeRepo := new(mockCustomerTypeRepository)
	svc := newTestUserService(t, userRepo, typeRepo)

	assert.NoError(t, svc.Logout(context.Background(), "user-123"))
}
