package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"mime/multipart"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/asset-review-api/internal/dto"
	"github.com/noah-isme/asset-review-api/internal/models"
	"github.com/noah-isme/asset-review-api/internal/repository"
	"github.com/noah-isme/asset-review-api/pkg/storage"
)

var (
	// ErrAssetTypeExists indicates a create collided with an existing name.
	ErrAssetTypeExists = errors.New("asset type already exists")
	// ErrInvalidAssetTypeName indicates the name is not a lower-case slug.
	ErrInvalidAssetTypeName = errors.New("asset type name must contain only letters, digits, dashes or underscores")
	// ErrReferenceImageNotFound indicates the asset type holds no reference with that file name.
	ErrReferenceImageNotFound = errors.New("reference image not found")
)

var assetTypeNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// AssetTypeService manages guideline records and their reference images.
type AssetTypeService interface {
	List(ctx context.Context) ([]dto.AssetTypeResponse, error)
	ListPublic(ctx context.Context) ([]dto.AssetTypeSummary, error)
	Get(ctx context.Context, name string) (dto.AssetTypeResponse, error)
	Create(ctx context.Context, req dto.AssetTypeCreateRequest) (dto.AssetTypeResponse, error)
	Update(ctx context.Context, name string, req dto.AssetTypeUpdateRequest) (dto.AssetTypeResponse, error)
	Delete(ctx context.Context, name string) error
	AddReferenceImage(ctx context.Context, name string, file *multipart.FileHeader) (dto.AssetTypeResponse, error)
	RemoveReferenceImage(ctx context.Context, name, fileName string) (dto.AssetTypeResponse, error)
}

type assetTypeService struct {
	repo      repository.AssetTypeRepository
	store     storage.ObjectStore
	uploads   UploadStager
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	urlTTL    time.Duration
	logger    zerolog.Logger
}

// NewAssetTypeService constructs the asset type service.
func NewAssetTypeService(repo repository.AssetTypeRepository, store storage.ObjectStore, uploads UploadStager, validate *validator.Validate, urlTTL time.Duration, logger zerolog.Logger) AssetTypeService {
	if urlTTL <= 0 {
		urlTTL = time.Hour
	}
	return &assetTypeService{
		repo:      repo,
		store:     store,
		uploads:   uploads,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		urlTTL:    urlTTL,
		logger:    logger.With().Str("component", "asset_type_service").Logger(),
	}
}

func (s *assetTypeService) List(ctx context.Context) ([]dto.AssetTypeResponse, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.AssetTypeResponse, 0, len(items))
	for _, item := range items {
		responses = append(responses, s.toResponse(ctx, item))
	}
	return responses, nil
}

func (s *assetTypeService) ListPublic(ctx context.Context) ([]dto.AssetTypeSummary, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	summaries := make([]dto.AssetTypeSummary, 0, len(items))
	for _, item := range items {
		summaries = append(summaries, dto.AssetTypeSummary{Name: item.Name, Description: item.Description})
	}
	return summaries, nil
}

func (s *assetTypeService) Get(ctx context.Context, name string) (dto.AssetTypeResponse, error) {
	item, err := s.find(ctx, name)
	if err != nil {
		return dto.AssetTypeResponse{}, err
	}
	return s.toResponse(ctx, item), nil
}

func (s *assetTypeService) Create(ctx context.Context, req dto.AssetTypeCreateRequest) (dto.AssetTypeResponse, error) {
	req.Name = NormalizeAssetTypeName(req.Name)
	req.Guidelines = strings.TrimSpace(req.Guidelines)
	req.Description = s.clean(req.Description)
	req.PassMessage = s.clean(req.PassMessage)
	req.FailMessage = s.clean(req.FailMessage)

	if err := s.validator.Struct(req); err != nil {
		return dto.AssetTypeResponse{}, err
	}
	if !assetTypeNamePattern.MatchString(req.Name) {
		return dto.AssetTypeResponse{}, ErrInvalidAssetTypeName
	}

	if _, err := s.repo.GetByName(ctx, req.Name); err == nil {
		return dto.AssetTypeResponse{}, ErrAssetTypeExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.AssetTypeResponse{}, err
	}

	model := models.AssetType{
		Name:            req.Name,
		Description:     req.Description,
		Guidelines:      req.Guidelines,
		ReferenceImages: []models.ReferenceImage{},
		PassMessage:     req.PassMessage,
		FailMessage:     req.FailMessage,
	}
	if model.Description == "" {
		model.Description = DescriptionFromGuidelines(s.clean(model.Guidelines))
	}

	if err := s.repo.Create(ctx, &model); err != nil {
		return dto.AssetTypeResponse{}, err
	}

	s.logger.Info().Str("asset_type", model.Name).Msg("asset type created")
	return s.toResponse(ctx, model), nil
}

func (s *assetTypeService) Update(ctx context.Context, name string, req dto.AssetTypeUpdateRequest) (dto.AssetTypeResponse, error) {
	req.Description = s.cleanPtr(req.Description)
	req.Guidelines = trimPtr(req.Guidelines)
	req.PassMessage = s.cleanPtr(req.PassMessage)
	req.FailMessage = s.cleanPtr(req.FailMessage)

	if err := s.validator.Struct(req); err != nil {
		return dto.AssetTypeResponse{}, err
	}

	model, err := s.find(ctx, name)
	if err != nil {
		return dto.AssetTypeResponse{}, err
	}

	if req.Guidelines != nil {
		model.Guidelines = *req.Guidelines
	}
	if req.Description != nil {
		model.Description = *req.Description
	}
	if req.PassMessage != nil {
		model.PassMessage = *req.PassMessage
	}
	if req.FailMessage != nil {
		model.FailMessage = *req.FailMessage
	}
	if model.Description == "" {
		model.Description = DescriptionFromGuidelines(s.clean(model.Guidelines))
	}

	if err := s.repo.Update(ctx, &model); err != nil {
		return dto.AssetTypeResponse{}, err
	}

	s.logger.Info().Str("asset_type", model.Name).Msg("asset type updated")
	return s.toResponse(ctx, model), nil
}

func (s *assetTypeService) Delete(ctx context.Context, name string) error {
	model, err := s.find(ctx, name)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteByName(ctx, model.Name); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAssetTypeNotFound
		}
		return err
	}

	for _, ref := range model.ReferenceImages {
		s.deleteObject(ctx, ref.StoragePath)
	}

	s.logger.Info().Str("asset_type", model.Name).Msg("asset type deleted")
	return nil
}

func (s *assetTypeService) AddReferenceImage(ctx context.Context, name string, file *multipart.FileHeader) (dto.AssetTypeResponse, error) {
	model, err := s.find(ctx, name)
	if err != nil {
		return dto.AssetTypeResponse{}, err
	}

	staged, err := s.uploads.Stage(ctx, file)
	if err != nil {
		return dto.AssetTypeResponse{}, err
	}
	defer func() {
		if err := staged.Cleanup(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to remove staged reference image")
		}
	}()

	handle, err := staged.Open()
	if err != nil {
		return dto.AssetTypeResponse{}, fmt.Errorf("open staged reference image: %w", err)
	}
	defer handle.Close()

	key := storage.ObjectKey("references/"+model.Name, staged.FileName)
	if _, err := s.store.Put(ctx, key, handle, staged.Size, staged.MIMEType); err != nil {
		return dto.AssetTypeResponse{}, fmt.Errorf("store reference image: %w", err)
	}

	model.ReferenceImages = append(model.ReferenceImages, models.ReferenceImage{
		FileName:    path.Base(key),
		StoragePath: key,
	})
	if err := s.repo.Update(ctx, &model); err != nil {
		s.deleteObject(ctx, key)
		return dto.AssetTypeResponse{}, err
	}

	s.logger.Info().Str("asset_type", model.Name).Str("key", key).Msg("reference image added")
	return s.toResponse(ctx, model), nil
}

func (s *assetTypeService) RemoveReferenceImage(ctx context.Context, name, fileName string) (dto.AssetTypeResponse, error) {
	model, err := s.find(ctx, name)
	if err != nil {
		return dto.AssetTypeResponse{}, err
	}

	index := -1
	for i, ref := range model.ReferenceImages {
		if ref.FileName == fileName {
			index = i
			break
		}
	}
	if index < 0 {
		return dto.AssetTypeResponse{}, ErrReferenceImageNotFound
	}

	removed := model.ReferenceImages[index]
	remaining := make([]models.ReferenceImage, 0, len(model.ReferenceImages)-1)
	remaining = append(remaining, model.ReferenceImages[:index]...)
	remaining = append(remaining, model.ReferenceImages[index+1:]...)
	model.ReferenceImages = remaining

	if err := s.repo.Update(ctx, &model); err != nil {
		return dto.AssetTypeResponse{}, err
	}
	s.deleteObject(ctx, removed.StoragePath)

	s.logger.Info().Str("asset_type", model.Name).Str("file_name", fileName).Msg("reference image removed")
	return s.toResponse(ctx, model), nil
}

func (s *assetTypeService) find(ctx context.Context, name string) (models.AssetType, error) {
	normalized := NormalizeAssetTypeName(name)
	if normalized == "" {
		return models.AssetType{}, ErrAssetTypeRequired
	}

	model, err := s.repo.GetByName(ctx, normalized)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.AssetType{}, fmt.Errorf("%w: %s", ErrAssetTypeNotFound, normalized)
		}
		return models.AssetType{}, err
	}
	return model, nil
}

func (s *assetTypeService) toResponse(ctx context.Context, model models.AssetType) dto.AssetTypeResponse {
	response := dto.NewAssetTypeResponse(model)
	for i := range response.ReferenceImages {
		url, err := s.store.SignedURL(ctx, response.ReferenceImages[i].StoragePath, s.urlTTL)
		if err != nil {
			s.logger.Debug().Err(err).Str("key", response.ReferenceImages[i].StoragePath).Msg("failed to sign reference image url")
			continue
		}
		response.ReferenceImages[i].URL = url
	}
	return response
}

func (s *assetTypeService) deleteObject(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.store.Delete(ctx, key); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("failed to delete stored object")
	}
}

// clean strips markup while keeping plain text such as "&" readable. Guideline
// text is never cleaned; it reaches the model verbatim.
func (s *assetTypeService) clean(value string) string {
	return strings.TrimSpace(html.UnescapeString(s.sanitizer.Sanitize(value)))
}

func trimPtr(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	return &trimmed
}

func (s *assetTypeService) cleanPtr(value *string) *string {
	if value == nil {
		return nil
	}
	cleaned := s.clean(*value)
	return &cleaned
}

const maxDescriptionRunes = 255

// DescriptionFromGuidelines returns the first non-empty line of the guideline
// text, cut to maxDescriptionRunes characters.
func DescriptionFromGuidelines(guidelines string) string {
	for _, line := range strings.Split(guidelines, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return truncateRunes(trimmed, maxDescriptionRunes)
		}
	}
	return ""
}

func truncateRunes(value string, limit int) string {
	count := 0
	for i := range value {
		if count == limit {
			return value[:i]
		}
		count++
	}
	return value
}
