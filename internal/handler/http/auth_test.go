package http

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Sagar7057/pharma-backend/internal/auth"
	"github.com/Sagar7057/pharma-backend/internal/domain"
	apperrors "github.com/Sagar7057/pharma-backend/pkg/errors"
)

func validSignupRequest() SignupRequest {
	return SignupRequest{
		Email:       "priya@medsupply.example",
		Password:    "Str0ngPass",
		FullName:    "Priya Sharma",
		CompanyName: "MedSupply Distributors",
		Phone:       "+91-9812345678",
		City:        "Pune",
		State:       "Maharashtra",
	}
}

// ============================================================================
// Signup
// ============================================================================

func TestAuthHandler_Signup(t *testing.T) {
	env := newTestEnv(t)
	env.userRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.User")).Return(nil)
	env.typeRepo.On("SeedDefaults", mock.Anything, mock.AnythingOfType("string"), mock.Anything).Return(nil)

	rec := env.doJSON(t, http.MethodPost, "/api/auth/signup", "", validSignupRequest())

	assert.Equal(t, http.StatusCreated, rec.Code)
	resp := decodeResponse(t, rec)
	require.Nil(t, resp.Error)

	var result domain.AuthResult
	decodeData(t, resp, &result)
	assert.NotEmpty(t, result.Token)
	assert.Equal(t, int64(3600), result.ExpiresIn)
	require.NotNil(t, result.User)
	assert.Equal(t, "priya@medsupply.example", result.User.Email)
	assert.Equal(t, "MedSupply Distributors", result.User.CompanyName)

	env.userRepo.AssertExpectations(t)
	env.typeRepo.AssertExpectations(t)
}

func TestAuthHandler_Signup_DuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	env.userRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.User")).Return(apperrors.ErrAlreadyExists)

	rec := env.doJSON(t, http.MethodPost, "/api/auth/signup", "", validSignupRequest())

	assert.Equal(t, http.StatusConflict, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "ALREADY_EXISTS", resp.Error.Code)
}

func TestAuthHandler_Signup_MissingFields(t *testing.T) {
	env := newTestEnv(t)

	body := validSignupRequest()
	body.Email = ""
	body.City = ""
	rec := env.doJSON(t, http.MethodPost, "/api/auth/signup", "", body)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
	assert.Contains(t, resp.Error.Fields, "email")
	assert.Contains(t, resp.Error.Fields, "city")
	env.userRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAuthHandler_Signup_WeakPassword(t *testing.T) {
	env := newTestEnv(t)

	// Long enough to clear the request tag but missing an uppercase letter,
	// so the service-level policy rejects it.
	body := validSignupRequest()
	body.Password = "weakpassword1"
	rec := env.doJSON(t, http.MethodPost, "/api/auth/signup", "", body)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "uppercase")
}

func TestAuthHandler_Signup_MalformedJSON(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/signup", bytes.NewReader([]byte(`{"email":`)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_INPUT", resp.Error.Code)
}

// ============================================================================
// Login
// ============================================================================

func TestAuthHandler_Login(t *testing.T) {
	env := newTestEnv(t)
	user := sampleUser(t)
	env.userRepo.On("GetByEmail", mock.Anything, user.Email).Return(user, nil)

	rec := env.doJSON(t, http.MethodPost, "/api/auth/login", "", LoginRequest{
		Email:    user.Email,
		Password: "Str0ngPass",
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	require.Nil(t, resp.Error)

	var result domain.AuthResult
	decodeData(t, resp, &result)
	assert.NotEmpty(t, result.Token)
	require.NotNil(t, result.User)
	assert.Equal(t, user.ID, result.User.ID)

	// The returned token must be accepted by the auth middleware.
	env.userRepo.On("GetByID", mock.Anything, user.ID).Return(user, nil)
	profileRec := env.doJSON(t, http.MethodGet, "/api/auth/profile", result.Token, nil)
	assert.Equal(t, http.StatusOK, profileRec.Code)
}

func TestAuthHandler_Login_WrongPassword(t *testing.T) {
	env := newTestEnv(t)
	user := sampleUser(t)
	env.userRepo.On("GetByEmail", mock.Anything, user.Email).Return(user, nil)

	rec := env.doJSON(t, http.MethodPost, "/api/auth/login", "", LoginRequest{
		Email:    user.Email,
		Password: "WrongPass1",
	})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "UNAUTHORIZED", resp.Error.Code)
}

func TestAuthHandler_Login_UnknownEmail(t *testing.T) {
	env := newTestEnv(t)
	env.userRepo.On("GetByEmail", mock.Anything, "nobody@medsupply.example").Return(nil, apperrors.ErrNotFound)

	rec := env.doJSON(t, http.MethodPost, "/api/auth/login", "", LoginRequest{
		Email:    "nobody@medsupply.example",
		Password: "Str0ngPass",
	})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthHandler_Login_DeactivatedAccount(t *testing.T) {
	env := newTestEnv(t)
	user := sampleUser(t)
	user.IsActive = false
	env.userRepo.On("GetByEmail", mock.Anything, user.Email).Return(user, nil)

	rec := env.doJSON(t, http.MethodPost, "/api/auth/login", "", LoginRequest{
		Email:    user.Email,
		Password: "Str0ngPass",
	})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Contains(t, resp.Error.Message, "deactivated")
}

// ============================================================================
// Profile
// ============================================================================

func TestAuthHandler_Profile(t *testing.T) {
	env := newTestEnv(t)
	user := sampleUser(t)
	env.userRepo.On("GetByID", mock.Anything, testUserID).Return(user, nil).Once()

	rec := env.doJSON(t, http.MethodGet, "/api/auth/profile", env.token(t), nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "password")
	resp := decodeResponse(t, rec)

	var got domain.User
	decodeData(t, resp, &got)
	assert.Equal(t, user.Email, got.Email)
	assert.Equal(t, user.FullName, got.FullName)

	// Second read is served from cache without touching the repository.
	rec = env.doJSON(t, http.MethodGet, "/api/auth/profile", env.token(t), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	env.userRepo.AssertExpectations(t)
}

func TestAuthHandler_Profile_Unauthorized(t *testing.T) {
	env := newTestEnv(t)

	rec := env.doJSON(t, http.MethodGet, "/api/auth/profile", "", nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// ============================================================================
// Refresh and logout
// ============================================================================

func TestAuthHandler_RefreshToken(t *testing.T) {
	env := newTestEnv(t)

	rec := env.doJSON(t, http.MethodPost, "/api/auth/refresh-token", env.token(t), nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	require.Nil(t, resp.Error)

	var result domain.AuthResult
	decodeData(t, resp, &result)
	assert.NotEmpty(t, result.Token)
	assert.Equal(t, int64(3600), result.ExpiresIn)
	assert.Nil(t, result.User)
}

func TestAuthHandler_RefreshToken_MissingHeader(t *testing.T) {
	env := newTestEnv(t)

	rec := env.doJSON(t, http.MethodPost, "/api/auth/refresh-token", "", nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthHandler_RefreshToken_Expired(t *testing.T) {
	env := newTestEnv(t)

	// Same signing key, already-elapsed TTL: the signature checks out but the
	// expiry claim fails.
	expired := auth.NewJWTManager("test-secret-key-for-testing", -time.Hour)
	token, err := expired.Generate(testUserID, "priya@medsupply.example")
	require.NoError(t, err)

	rec := env.doJSON(t, http.MethodPost, "/api/auth/refresh-token", token, nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "UNAUTHORIZED", resp.Error.Code)
}

func TestAuthHandler_Logout(t *testing.T) {
	env := newTestEnv(t)

	rec := env.doJSON(t, http.MethodPost, "/api/auth/logout", env.token(t), nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	require.Nil(t, resp.Error)
	assert.Contains(t, rec.Body.String(), "successfully logged out")
}

func TestAuthHandler_Logout_Unauthorized(t *testing.T) {
	env := newTestEnv(t)

	rec := env.doJSON(t, http.MethodPost, "/api/auth/logout", "", nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
