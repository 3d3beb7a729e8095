package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Sagar7057/pharma-backend/internal/cache"
	"github.com/Sagar7057/pharma-backend/internal/domain"
	"github.com/Sagar7057/pharma-backend/internal/repository"
	apperrors "github.com/Sagar7057/pharma-backend/pkg/errors"
)

// AnalyticsService serves the dashboard and reporting rollups. Everything
// here is read-only; the heavy lifting happens in SQL and the results are
// cached per user.
type AnalyticsService struct {
	repo   repository.AnalyticsRepository
	cache  *cache.Cache
	logger *slog.Logger
}

// NewAnalyticsService creates a new analytics service.
func NewAnalyticsService(repo repository.AnalyticsRepository, c *cache.Cache, logger *slog.Logger) *AnalyticsService {
	return &AnalyticsService{
		repo:   repo,
		cache:  c,
		logger: logger,
	}
}

// RevenueTrendInput selects the date range for the revenue trend. From and
// To are only consulted for the custom range.
type RevenueTrendInput struct {
	Range string
	From  *time.Time
	To    *time.Time
}

// Dashboard returns the headline metrics for the user.
func (s *AnalyticsService) Dashboard(ctx context.Context, userID string) (*domain.DashboardMetrics, error) {
	key := cache.DashboardKey(userID)

	var cached domain.DashboardMetrics
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		return &cached, nil
	} else if !errors.Is(err, cache.ErrMiss) {
		s.logger.WarnContext(ctx, "dashboard cache read failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()))
	}

	metrics, err := s.repo.Dashboard(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load dashboard metrics: %w", err)
	}

	if err := s.cache.Set(ctx, key, metrics, cache.TTLDashboard); err != nil {
		s.logger.WarnContext(ctx, "dashboard cache write failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()))
	}

	return metrics, nil
}

// RevenueTrend returns daily revenue buckets over the requested range.
func (s *AnalyticsService) RevenueTrend(ctx context.Context, userID string, input RevenueTrendInput) (*domain.RevenueTrend, error) {
	if !domain.IsValidRange(input.Range) {
		return nil, apperrors.Validation(fmt.Sprintf("invalid range %q", input.Range))
	}

	rangeKey, from, to, err := resolveDateRange(input.Range, input.From, input.To, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	qualifier := rangeKey
	if rangeKey == domain.RangeCustom {
		qualifier = fmt.Sprintf("custom_%s_%s", from.Format("20060102"), to.Format("20060102"))
	}
	key := cache.AnalyticsKey(userID, "revenue", qualifier)

	var cached domain.RevenueTrend
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		return &cached, nil
	} else if !errors.Is(err, cache.ErrMiss) {
		s.logger.WarnContext(ctx, "analytics cache read failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()))
	}

	points, err := s.repo.RevenueTrend(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("load revenue trend: %w", err)
	}

	trend := &domain.RevenueTrend{
		Range:  rangeKey,
		From:   from,
		To:     to,
		Points: points,
	}

	if err := s.cache.Set(ctx, key, trend, cache.TTLAnalytics); err != nil {
		s.logger.WarnContext(ctx, "analytics cache write failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()))
	}

	return trend, nil
}

// QuoteMetrics returns the per-status quote rollup.
func (s *AnalyticsService) QuoteMetrics(ctx context.Context, userID string) (*domain.QuoteMetrics, error) {
	key := cache.AnalyticsKey(userID, "quotes", "")

	var cached domain.QuoteMetrics
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		return &cached, nil
	} else if !errors.Is(err, cache.ErrMiss) {
		s.logger.WarnContext(ctx, "analytics cache read failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()))
	}

	metrics, err := s.repo.QuoteMetrics(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load quote metrics: %w", err)
	}

	if err := s.cache.Set(ctx, key, metrics, cache.TTLAnalytics); err != nil {
		s.logger.WarnContext(ctx, "analytics cache write failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()))
	}

	return metrics, nil
}

// BrandMetrics returns the catalog rollup with top-brand rankings.
func (s *AnalyticsService) BrandMetrics(ctx context.Context, userID string) (*domain.BrandMetrics, error) {
	key := cache.AnalyticsKey(userID, "brands", "")

	var cached domain.BrandMetrics
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		return &cached, nil
	} else if !errors.Is(err, cache.ErrMiss) {
		s.logger.WarnContext(ctx, "analytics cache read failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()))
	}

	metrics, err := s.repo.BrandMetrics(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load brand metrics: %w", err)
	}

	if err := s.cache.Set(ctx, key, metrics, cache.TTLAnalytics); err != nil {
		s.logger.WarnContext(ctx, "analytics cache write failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()))
	}

	return metrics, nil
}

// CustomerMetrics returns the customer-side rollup grouped by type.
func (s *AnalyticsService) CustomerMetrics(ctx context.Context, userID string) (*domain.CustomerMetrics, error) {
	key := cache.AnalyticsKey(userID, "customers", "")

	var cached domain.CustomerMetrics
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		return &cached, nil
	} else if !errors.Is(err, cache.ErrMiss) {
		s.logger.WarnContext(ctx, "analytics cache read failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()))
	}

	metrics, err := s.repo.CustomerMetrics(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load customer metrics: %w", err)
	}

	if err := s.cache.Set(ctx, key, metrics, cache.TTLAnalytics); err != nil {
		s.logger.WarnContext(ctx, "analytics cache write failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()))
	}

	return metrics, nil
}

// resolveDateRange turns a named range into concrete bounds. The empty key
// defaults to the last 30 days; weeks start on Monday.
func resolveDateRange(rangeKey string, from, to *time.Time, now time.Time) (string, time.Time, time.Time, error) {
	midnight := func(t time.Time) time.Time {
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	}

	switch rangeKey {
	case domain.RangeToday:
		return rangeKey, midnight(now), now, nil
	case domain.RangeWeek:
		offset := (int(now.Weekday()) + 6) % 7
		return rangeKey, midnight(now.AddDate(0, 0, -offset)), now, nil
	case domain.RangeMonth:
		return rangeKey, time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()), now, nil
	case domain.RangeLast90:
		return rangeKey, now.AddDate(0, 0, -90), now, nil
	case domain.RangeYear:
		return rangeKey, time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location()), now, nil
	case domain.RangeCustom:
		if from == nil || to == nil {
			return "", time.Time{}, time.Time{}, apperrors.Validation("custom range requires both from and to dates")
		}
		if to.Before(*from) {
			return "", time.Time{}, time.Time{}, apperrors.Validation("from date must not be after to date")
		}
		return rangeKey, *from, *to, nil
	default:
		return domain.RangeLast30, now.AddDate(0, 0, -30), now, nil
	}
}
