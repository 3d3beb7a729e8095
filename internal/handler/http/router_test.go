package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
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
	"github.com/Sagar7057/pharma-backend/internal/mailer"
	"github.com/Sagar7057/pharma-backend/internal/repository"
	"github.com/Sagar7057/pharma-backend/internal/service"
	"github.com/Sagar7057/pharma-backend/pkg/health"
	"github.com/Sagar7057/pharma-backend/pkg/httputil"
	pkgkafka "github.com/Sagar7057/pharma-backend/pkg/kafka"
	"github.com/Sagar7057/pharma-backend/pkg/middleware"
)

// ============================================================================
// Mock repositories
// ============================================================================

type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if u := args.Get(0); u != nil {
		return u.(*domain.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if u := args.Get(0); u != nil {
		return u.(*domain.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserRepo) Update(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

type mockBrandRepo struct {
	mock.Mock
}

func (m *mockBrandRepo) Create(ctx context.Context, brand *domain.Brand) error {
	args := m.Called(ctx, brand)
	return args.Error(0)
}

func (m *mockBrandRepo) GetByID(ctx context.Context, userID, id string) (*domain.Brand, error) {
	args := m.Called(ctx, userID, id)
	if b := args.Get(0); b != nil {
		return b.(*domain.Brand), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockBrandRepo) GetByName(ctx context.Context, userID, name string) (*domain.Brand, error) {
	args := m.Called(ctx, userID, name)
	if b := args.Get(0); b != nil {
		return b.(*domain.Brand), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockBrandRepo) List(ctx context.Context, userID string, filter repository.BrandFilter) ([]domain.Brand, int, error) {
	args := m.Called(ctx, userID, filter)
	if b := args.Get(0); b != nil {
		return b.([]domain.Brand), args.Int(1), args.Error(2)
	}
	return nil, args.Int(1), args.Error(2)
}

func (m *mockBrandRepo) ListAllActive(ctx context.Context, userID string) ([]domain.Brand, error) {
	args := m.Called(ctx, userID)
	if b := args.Get(0); b != nil {
		return b.([]domain.Brand), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockBrandRepo) Update(ctx context.Context, brand *domain.Brand) error {
	args := m.Called(ctx, brand)
	return args.Error(0)
}

func (m *mockBrandRepo) SoftDelete(ctx context.Context, userID, id string) error {
	args := m.Called(ctx, userID, id)
	return args.Error(0)
}

type mockCustomerTypeRepo struct {
	mock.Mock
}

func (m *mockCustomerTypeRepo) Create(ctx context.Context, ct *domain.CustomerType) error {
	args := m.Called(ctx, ct)
	return args.Error(0)
}

func (m *mockCustomerTypeRepo) GetByID(ctx context.Context, userID, id string) (*domain.CustomerType, error) {
	args := m.Called(ctx, userID, id)
	if ct := args.Get(0); ct != nil {
		return ct.(*domain.CustomerType), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockCustomerTypeRepo) List(ctx context.Context, userID string) ([]domain.CustomerType, error) {
	args := m.Called(ctx, userID)
	if types := args.Get(0); types != nil {
		return types.([]domain.CustomerType), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockCustomerTypeRepo) Update(ctx context.Context, ct *domain.CustomerType) error {
	args := m.Called(ctx, ct)
	return args.Error(0)
}

func (m *mockCustomerTypeRepo) Delete(ctx context.Context, userID, id string) error {
	args := m.Called(ctx, userID, id)
	return args.Error(0)
}

func (m *mockCustomerTypeRepo) SeedDefaults(ctx context.Context, userID string, types []domain.CustomerType) error {
	args := m.Called(ctx, userID, types)
	return args.Error(0)
}

type mockPricingRuleRepo struct {
	mock.Mock
}

func (m *mockPricingRuleRepo) FindActiveRule(ctx context.Context, userID, brandID, customerTypeID string) (*domain.PricingRule, error) {
	args := m.Called(ctx, userID, brandID, customerTypeID)
	if r := args.Get(0); r != nil {
		return r.(*domain.PricingRule), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockNPPARepo struct {
	mock.Mock
}

func (m *mockNPPARepo) GetByDrugName(ctx context.Context, name string) (*domain.NPPADrug, error) {
	args := m.Called(ctx, name)
	if d := args.Get(0); d != nil {
		return d.(*domain.NPPADrug), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockQuoteRepo struct {
	mock.Mock
}

func (m *mockQuoteRepo) Create(ctx context.Context, quote *domain.Quote) error {
	args := m.Called(ctx, quote)
	return args.Error(0)
}

func (m *mockQuoteRepo) GetByID(ctx context.Context, userID, id string) (*domain.Quote, error) {
	args := m.Called(ctx, userID, id)
	if q := args.Get(0); q != nil {
		return q.(*domain.Quote), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockQuoteRepo) List(ctx context.Context, userID string, filter repository.QuoteFilter) ([]domain.Quote, int, error) {
	args := m.Called(ctx, userID, filter)
	if q := args.Get(0); q != nil {
		return q.([]domain.Quote), args.Int(1), args.Error(2)
	}
	return nil, args.Int(1), args.Error(2)
}

func (m *mockQuoteRepo) UpdateStatus(ctx context.Context, userID, id, status string) error {
	args := m.Called(ctx, userID, id, status)
	return args.Error(0)
}

func (m *mockQuoteRepo) Delete(ctx context.Context, userID, id string) error {
	args := m.Called(ctx, userID, id)
	return args.Error(0)
}

type mockAnalyticsRepo struct {
	mock.Mock
}

func (m *mockAnalyticsRepo) Dashboard(ctx context.Context, userID string) (*domain.DashboardMetrics, error) {
	args := m.Called(ctx, userID)
	if d := args.Get(0); d != nil {
		return d.(*domain.DashboardMetrics), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAnalyticsRepo) RevenueTrend(ctx context.Context, userID string, from, to time.Time) ([]domain.RevenueTrendPoint, error) {
	args := m.Called(ctx, userID, from, to)
	if p := args.Get(0); p != nil {
		return p.([]domain.RevenueTrendPoint), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAnalyticsRepo) QuoteMetrics(ctx context.Context, userID string) (*domain.QuoteMetrics, error) {
	args := m.Called(ctx, userID)
	if q := args.Get(0); q != nil {
		return q.(*domain.QuoteMetrics), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAnalyticsRepo) BrandMetrics(ctx context.Context, userID string) (*domain.BrandMetrics, error) {
	args := m.Called(ctx, userID)
	if b := args.Get(0); b != nil {
		return b.(*domain.BrandMetrics), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAnalyticsRepo) CustomerMetrics(ctx context.Context, userID string) (*domain.CustomerMetrics, error) {
	args := m.Called(ctx, userID)
	if c := args.Get(0); c != nil {
		return c.(*domain.CustomerMetrics), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockMailer struct {
	mock.Mock
}

func (m *mockMailer) Name() string {
	return "mock"
}

func (m *mockMailer) Send(ctx context.Context, msg *mailer.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

// ============================================================================
// Test environment
// ============================================================================

const testUserID = "550e8400-e29b-41d4-a716-446655440001"
const testBrandID = "550e8400-e29b-41d4-a716-446655440002"
const testTypeID = "550e8400-e29b-41d4-a716-446655440003"
const testQuoteID = "550e8400-e29b-41d4-a716-446655440004"

// testEnv wires the real router and services over mock repositories, a
// miniredis-backed cache and a producer pointed at a dead broker. Requests
// travel the full middleware chain including real JWT auth.
type testEnv struct {
	userRepo      *mockUserRepo
	brandRepo     *mockBrandRepo
	typeRepo      *mockCustomerTypeRepo
	ruleRepo      *mockPricingRuleRepo
	nppaRepo      *mockNPPARepo
	quoteRepo     *mockQuoteRepo
	analyticsRepo *mockAnalyticsRepo
	mailer        *mockMailer
	jwt           *auth.JWTManager
	router        http.Handler
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		userRepo:      new(mockUserRepo),
		brandRepo:     new(mockBrandRepo),
		typeRepo:      new(mockCustomerTypeRepo),
		ruleRepo:      new(mockPricingRuleRepo),
		nppaRepo:      new(mockNPPARepo),
		quoteRepo:     new(mockQuoteRepo),
		analyticsRepo: new(mockAnalyticsRepo),
		mailer:        new(mockMailer),
		jwt:           auth.NewJWTManager("test-secret-key-for-testing", time.Hour),
	}

	logger := testLogger()
	mr := miniredis.RunT(t)
	c := cache.New(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	producer := event.NewProducer(pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig([]string{"localhost:9092"}), logger), logger)

	userService := service.NewUserService(env.userRepo, env.typeRepo, env.jwt, c, producer, logger, bcrypt.MinCost)
	brandService := service.NewBrandService(env.brandRepo, c, logger)
	customerTypeService := service.NewCustomerTypeService(env.typeRepo, c, logger)
	pricingService := service.NewPricingService(env.brandRepo, env.typeRepo, env.ruleRepo, env.nppaRepo, c, logger)
	quoteService := service.NewQuoteService(env.quoteRepo, env.brandRepo, env.userRepo, env.mailer, c, producer, logger)
	analyticsService := service.NewAnalyticsService(env.analyticsRepo, c, logger)

	env.router = NewRouter(
		userService,
		brandService,
		customerTypeService,
		pricingService,
		quoteService,
		analyticsService,
		env.jwt,
		health.NewHandler(),
		logger,
		middleware.DefaultCORSConfig(),
		nil,
	)
	return env
}

// token issues a real bearer token for the canonical test user.
func (e *testEnv) token(t *testing.T) string {
	t.Helper()
	token, err := e.jwt.Generate(testUserID, "priya@medsupply.example")
	require.NoError(t, err)
	return token
}

// doJSON runs one request through the full router, JSON-encoding body when
// present and attaching the bearer token when non-empty.
func (e *testEnv) doJSON(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) httputil.Response {
	t.Helper()
	var resp httputil.Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

// decodeData re-marshals the data payload into a typed struct.
func decodeData(t *testing.T, resp httputil.Response, dst any) {
	t.Helper()
	b, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(b, dst))
}

func sampleUser(t *testing.T) *domain.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("Str0ngPass"), bcrypt.MinCost)
	require.NoError(t, err)
	now := time.Now().UTC()
	return &domain.User{
		ID:           testUserID,
		Email:        "priya@medsupply.example",
		PasswordHash: string(hash),
		FullName:     "Priya Sharma",
		CompanyName:  "MedSupply Distributors",
		Phone:        "+91-9812345678",
		City:         "Pune",
		State:        "Maharashtra",
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func sampleBrand() *domain.Brand {
	now := time.Now().UTC()
	return &domain.Brand{
		ID:                   testBrandID,
		UserID:               testUserID,
		Name:                 "Dolo 650",
		Manufacturer:         "Micro Labs",
		MRP:                  30,
		CostPrice:            22,
		DefaultMarginPercent: 12,
		IsActive:             true,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
}

// ============================================================================
// Router-level behavior
// ============================================================================

func TestRouter_HealthLive(t *testing.T) {
	env := newTestEnv(t)

	rec := env.doJSON(t, http.MethodGet, "/health/live", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_HealthReady(t *testing.T) {
	env := newTestEnv(t)

	rec := env.doJSON(t, http.MethodGet, "/health/ready", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_Metrics(t *testing.T) {
	env := newTestEnv(t)

	rec := env.doJSON(t, http.MethodGet, "/metrics", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestRouter_UnknownRoute_NotFound(t *testing.T) {
	env := newTestEnv(t)

	rec := env.doJSON(t, http.MethodGet, "/api/unknown", env.token(t), nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_MissingToken_Unauthorized(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{
		"/api/brands",
		"/api/customer-types",
		"/api/quotes",
		"/api/analytics/dashboard",
	} {
		rec := env.doJSON(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestRouter_TamperedToken_Unauthorized(t *testing.T) {
	env := newTestEnv(t)

	token := env.token(t)
	tampered := token[:len(token)-2] + "xx"
	rec := env.doJSON(t, http.MethodGet, "/api/brands", tampered, nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_WrongContentType_Unsupported(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader([]byte("email=x")))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestRouter_CORSPreflight(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/auth/login", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
