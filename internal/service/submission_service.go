package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/asset-review-api/internal/dto"
	"github.com/noah-isme/asset-review-api/internal/models"
	"github.com/noah-isme/asset-review-api/internal/repository"
	"github.com/noah-isme/asset-review-api/pkg/storage"
)

const (
	defaultSubmissionPageSize = 20
	submissionDateLayout      = "2006-01-02"
)

var (
	// ErrSubmissionNotFound indicates no submission has the requested id.
	ErrSubmissionNotFound = errors.New("submission not found")
	// ErrInvalidDateFilter indicates from/to could not be parsed.
	ErrInvalidDateFilter = errors.New("dates must be RFC3339 or YYYY-MM-DD")
)

// SubmissionService lists and inspects the submission log for admins.
type SubmissionService interface {
	List(ctx context.Context, req dto.SubmissionListRequest) (dto.SubmissionListResponse, error)
	Get(ctx context.Context, id uint) (dto.SubmissionResponse, error)
}

type submissionService struct {
	repo      repository.SubmissionRepository
	store     storage.ObjectStore
	validator *validator.Validate
	urlTTL    time.Duration
	logger    zerolog.Logger
}

// NewSubmissionService constructs the admin submission service.
func NewSubmissionService(repo repository.SubmissionRepository, store storage.ObjectStore, validate *validator.Validate, urlTTL time.Duration, logger zerolog.Logger) SubmissionService {
	if urlTTL <= 0 {
		urlTTL = time.Hour
	}
	return &submissionService{
		repo:      repo,
		store:     store,
		validator: validate,
		urlTTL:    urlTTL,
		logger:    logger.With().Str("component", "submission_service").Logger(),
	}
}

func (s *submissionService) List(ctx context.Context, req dto.SubmissionListRequest) (dto.SubmissionListResponse, error) {
	req.AssetType = NormalizeAssetTypeName(req.AssetType)
	req.Result = strings.ToLower(strings.TrimSpace(req.Result))
	if err := s.validator.Struct(req); err != nil {
		return dto.SubmissionListResponse{}, err
	}

	filter, err := BuildSubmissionFilter(req)
	if err != nil {
		return dto.SubmissionListResponse{}, err
	}

	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return dto.SubmissionListResponse{}, err
	}

	responses := make([]dto.SubmissionResponse, 0, len(items))
	for _, item := range items {
		responses = append(responses, s.toResponse(ctx, item))
	}

	totalPages := 0
	if filter.PageSize > 0 {
		totalPages = int((total + int64(filter.PageSize) - 1) / int64(filter.PageSize))
	}

	return dto.SubmissionListResponse{
		Items: responses,
		Pagination: dto.PaginationMeta{
			Page:       filter.Page,
			PageSize:   filter.PageSize,
			TotalItems: total,
			TotalPages: totalPages,
		},
	}, nil
}

func (s *submissionService) Get(ctx context.Context, id uint) (dto.SubmissionResponse, error) {
	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrSubmissionNotFound
		}
		return dto.SubmissionResponse{}, err
	}
	return s.toResponse(ctx, item), nil
}

// toResponse re-signs the file URL since the one stored at review time may have expired.
func (s *submissionService) toResponse(ctx context.Context, model models.Submission) dto.SubmissionResponse {
	response := dto.NewSubmissionResponse(model)
	if model.StoragePath == "" || s.store == nil {
		return response
	}

	url, err := s.store.SignedURL(ctx, model.StoragePath, s.urlTTL)
	if err != nil {
		s.logger.Debug().Err(err).Uint("submission_id", model.ID).Msg("failed to re-sign submission url")
		return response
	}
	response.FileURL = url
	return response
}

// BuildSubmissionFilter converts query parameters to a repository filter. The
// date window is inclusive; a bare date for "to" covers that whole day.
func BuildSubmissionFilter(req dto.SubmissionListRequest) (repository.SubmissionFilter, error) {
	filter := repository.SubmissionFilter{
		AssetType: NormalizeAssetTypeName(req.AssetType),
		Result:    strings.ToLower(strings.TrimSpace(req.Result)),
		Page:      req.Page,
		PageSize:  req.PageSize,
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = defaultSubmissionPageSize
	}

	if raw := strings.TrimSpace(req.From); raw != "" {
		from, _, err := parseFilterDate(raw)
		if err != nil {
			return repository.SubmissionFilter{}, err
		}
		filter.From = &from
	}

	if raw := strings.TrimSpace(req.To); raw != "" {
		to, dateOnly, err := parseFilterDate(raw)
		if err != nil {
			return repository.SubmissionFilter{}, err
		}
		if dateOnly {
			to = to.Add(24*time.Hour - time.Nanosecond)
		}
		filter.To = &to
	}

	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return repository.SubmissionFilter{}, fmt.Errorf("%w: from is after to", ErrInvalidDateFilter)
	}

	return filter, nil
}

func parseFilterDate(raw string) (time.Time, bool, error) {
	if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
		return parsed.UTC(), false, nil
	}
	if parsed, err := time.Parse(submissionDateLayout, raw); err == nil {
		return parsed.UTC(), true, nil
	}
	return time.Time{}, false, ErrInvalidDateFilter
}
