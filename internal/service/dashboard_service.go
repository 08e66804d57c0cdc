package service

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/noah-isme/asset-review-api/internal/dto"
	"github.com/noah-isme/asset-review-api/internal/models"
	"github.com/noah-isme/asset-review-api/internal/repository"
)

const dashboardCacheKey = "asset_review:dashboard:stats"

// DashboardService aggregates review statistics for the admin console.
type DashboardService interface {
	Stats(ctx context.Context) (dto.DashboardStatsResponse, error)
	Invalidate(ctx context.Context) error
}

type dashboardService struct {
	submissions repository.SubmissionRepository
	settings    SettingsService
	cache       *redis.Client
	cacheTTL    time.Duration
	logger      zerolog.Logger
	now         func() time.Time
}

// NewDashboardService constructs the dashboard service. cache may be nil.
func NewDashboardService(submissions repository.SubmissionRepository, settings SettingsService, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) DashboardService {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &dashboardService{
		submissions: submissions,
		settings:    settings,
		cache:       cache,
		cacheTTL:    ttl,
		logger:      logger.With().Str("component", "dashboard_service").Logger(),
		now:         time.Now,
	}
}

func (s *dashboardService) Stats(ctx context.Context) (dto.DashboardStatsResponse, error) {
	tracer := otel.Tracer("github.com/noah-isme/asset-review-api/internal/service/dashboard")
	ctx, span := tracer.Start(ctx, "dashboard.stats")
	defer span.End()

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, dashboardCacheKey).Result()
		if err == nil {
			var response dto.DashboardStatsResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				response.CacheHit = true
				span.SetAttributes(attribute.Bool("dashboard.cache_hit", true))
				return response, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("failed to read dashboard cache")
			span.RecordError(err)
		}
	}

	rows, err := s.submissions.Stats(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "stats_query_failed")
		return dto.DashboardStatsResponse{}, err
	}

	ghost, err := s.settings.GhostMode(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "ghost_mode_failed")
		return dto.DashboardStatsResponse{}, err
	}

	response := buildDashboardStats(rows, ghost, s.now().UTC())
	span.SetAttributes(attribute.Int64("dashboard.total", response.TotalSubmissions))

	if s.cache != nil {
		if payload, err := json.Marshal(response); err == nil {
			if err := s.cache.Set(ctx, dashboardCacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store dashboard cache")
				span.RecordError(err)
			}
		}
	}

	return response, nil
}

func (s *dashboardService) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Del(ctx, dashboardCacheKey).Err()
}

func buildDashboardStats(rows []repository.SubmissionStat, ghost dto.GhostModeResponse, now time.Time) dto.DashboardStatsResponse {
	perType := map[string]*dto.AssetTypeStat{}
	response := dto.DashboardStatsResponse{GhostMode: ghost, GeneratedAt: now}

	for _, row := range rows {
		stat, ok := perType[row.AssetType]
		if !ok {
			stat = &dto.AssetTypeStat{AssetType: row.AssetType}
			perType[row.AssetType] = stat
		}
		stat.Total += row.Total
		response.TotalSubmissions += row.Total
		switch row.Result {
		case models.SubmissionResultPass:
			stat.Passed += row.Total
			response.Passed += row.Total
		case models.SubmissionResultFail:
			stat.Failed += row.Total
			response.Failed += row.Total
		}
	}

	response.ByAssetType = make([]dto.AssetTypeStat, 0, len(perType))
	for _, stat := range perType {
		stat.PassRate = passRate(stat.Passed, stat.Total)
		response.ByAssetType = append(response.ByAssetType, *stat)
	}
	sort.Slice(response.ByAssetType, func(i, j int) bool {
		return response.ByAssetType[i].AssetType < response.ByAssetType[j].AssetType
	})
	response.PassRate = passRate(response.Passed, response.TotalSubmissions)

	return response
}

func passRate(passed, total int64) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(passed)/float64(total)*10000) / 100
}
