package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/asset-review-api/internal/models"
)

// SubmissionFilter narrows admin submission queries.
type SubmissionFilter struct {
	AssetType string
	Result    string
	From      *time.Time
	To        *time.Time
	Page      int
	PageSize  int
}

// SubmissionStat aggregates submission counts per asset type and result.
type SubmissionStat struct {
	AssetType string
	Result    string
	Total     int64
}

// SubmissionRepository defines data operations for the append-only submission log.
type SubmissionRepository interface {
	Create(ctx context.Context, submission *models.Submission) error
	GetByID(ctx context.Context, id uint) (models.Submission, error)
	List(ctx context.Context, filter SubmissionFilter) ([]models.Submission, int64, error)
	Stats(ctx context.Context) ([]SubmissionStat, error)
}

type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository instantiates the repository.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Create(submission).Error
}

func (r *submissionRepository) GetByID(ctx context.Context, id uint) (models.Submission, error) {
	var submission models.Submission
	err := r.db.WithContext(ctx).First(&submission, id).Error
	return submission, err
}

func (r *submissionRepository) List(ctx context.Context, filter SubmissionFilter) ([]models.Submission, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Submission{})

	if filter.AssetType != "" {
		query = query.Where("asset_type = ?", filter.AssetType)
	}
	if filter.Result != "" {
		query = query.Where("result = ?", filter.Result)
	}
	if filter.From != nil {
		query = query.Where("submitted_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("submitted_at <= ?", *filter.To)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.PageSize > 0 {
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		query = query.Offset((page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var submissions []models.Submission
	if err := query.Order("submitted_at DESC").Order("id DESC").Find(&submissions).Error; err != nil {
		return nil, 0, err
	}

	return submissions, total, nil
}

func (r *submissionRepository) Stats(ctx context.Context) ([]SubmissionStat, error) {
	var rows []SubmissionStat
	err := r.db.WithContext(ctx).
		Model(&models.Submission{}).
		Select("asset_type, result, COUNT(*) AS total").
		Group("asset_type, result").
		Order("asset_type ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
