package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/asset-review-api/internal/models"
)

// AssetTypeRepository manages guideline records keyed by asset type name.
type AssetTypeRepository interface {
	List(ctx context.Context) ([]models.AssetType, error)
	GetByName(ctx context.Context, name string) (models.AssetType, error)
	Count(ctx context.Context) (int64, error)
	Create(ctx context.Context, assetType *models.AssetType) error
	CreateBatch(ctx context.Context, assetTypes []models.AssetType) error
	Update(ctx context.Context, assetType *models.AssetType) error
	DeleteByName(ctx context.Context, name string) error
}

type assetTypeRepository struct {
	db *gorm.DB
}

// NewAssetTypeRepository constructs a repository for asset types.
func NewAssetTypeRepository(db *gorm.DB) AssetTypeRepository {
	return &assetTypeRepository{db: db}
}

func (r *assetTypeRepository) List(ctx context.Context) ([]models.AssetType, error) {
	var items []models.AssetType
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *assetTypeRepository) GetByName(ctx context.Context, name string) (models.AssetType, error) {
	var item models.AssetType
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&item).Error
	return item, err
}

func (r *assetTypeRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.AssetType{}).Count(&total).Error
	return total, err
}

func (r *assetTypeRepository) Create(ctx context.Context, assetType *models.AssetType) error {
	return r.db.WithContext(ctx).Create(assetType).Error
}

func (r *assetTypeRepository) CreateBatch(ctx context.Context, assetTypes []models.AssetType) error {
	if len(assetTypes) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&assetTypes).Error
}

func (r *assetTypeRepository) Update(ctx context.Context, assetType *models.AssetType) error {
	return r.db.WithContext(ctx).Save(assetType).Error
}

func (r *assetTypeRepository) DeleteByName(ctx context.Context, name string) error {
	result := r.db.WithContext(ctx).Where("name = ?", name).Delete(&models.AssetType{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
