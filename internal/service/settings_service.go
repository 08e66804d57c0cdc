package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/asset-review-api/internal/dto"
	"github.com/noah-isme/asset-review-api/internal/models"
	"github.com/noah-isme/asset-review-api/internal/repository"
)

// SettingsService manages the ghost mode singleton.
type SettingsService interface {
	GhostMode(ctx context.Context) (dto.GhostModeResponse, error)
	SetGhostMode(ctx context.Context, enabled bool) (dto.GhostModeResponse, error)
	IncrementGhostCount(ctx context.Context) error
}

type settingsService struct {
	repo   repository.SettingRepository
	logger zerolog.Logger
	now    func() time.Time
}

// NewSettingsService constructs the settings service.
func NewSettingsService(repo repository.SettingRepository, logger zerolog.Logger) SettingsService {
	return &settingsService{
		repo:   repo,
		logger: logger.With().Str("component", "settings_service").Logger(),
		now:    time.Now,
	}
}

// GhostMode returns the stored state. A missing row reads as disabled.
func (s *settingsService) GhostMode(ctx context.Context) (dto.GhostModeResponse, error) {
	setting, err := s.repo.Get(ctx, models.SettingGhostMode)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.GhostModeResponse{}, nil
		}
		return dto.GhostModeResponse{}, fmt.Errorf("read ghost mode: %w", err)
	}

	value, err := decodeGhostMode(setting)
	if err != nil {
		return dto.GhostModeResponse{}, err
	}

	updatedAt := setting.UpdatedAt
	return dto.GhostModeResponse{
		Enabled:         value.Enabled,
		SubmissionCount: value.SubmissionCount,
		UpdatedAt:       &updatedAt,
	}, nil
}

// SetGhostMode toggles ghost mode. Enabling always resets the counter.
func (s *settingsService) SetGhostMode(ctx context.Context, enabled bool) (dto.GhostModeResponse, error) {
	current, err := s.GhostMode(ctx)
	if err != nil {
		return dto.GhostModeResponse{}, err
	}

	value := models.GhostModeValue{Enabled: enabled, SubmissionCount: current.SubmissionCount}
	if enabled {
		value.SubmissionCount = 0
	}

	updatedAt, err := s.write(ctx, value)
	if err != nil {
		return dto.GhostModeResponse{}, err
	}

	s.logger.Info().Bool("enabled", enabled).Msg("ghost mode updated")
	return dto.GhostModeResponse{
		Enabled:         value.Enabled,
		SubmissionCount: value.SubmissionCount,
		UpdatedAt:       &updatedAt,
	}, nil
}

// IncrementGhostCount bumps the informational counter. Read and write are not
// atomic; concurrent reviews may lose increments.
func (s *settingsService) IncrementGhostCount(ctx context.Context) error {
	current, err := s.GhostMode(ctx)
	if err != nil {
		return err
	}
	if !current.Enabled {
		return nil
	}

	_, err = s.write(ctx, models.GhostModeValue{Enabled: true, SubmissionCount: current.SubmissionCount + 1})
	return err
}

func (s *settingsService) write(ctx context.Context, value models.GhostModeValue) (time.Time, error) {
	payload, err := json.Marshal(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("encode ghost mode: %w", err)
	}

	setting := models.AppSetting{
		Key:       models.SettingGhostMode,
		Value:     payload,
		UpdatedAt: s.now().UTC(),
	}
	if err := s.repo.Upsert(ctx, &setting); err != nil {
		return time.Time{}, fmt.Errorf("write ghost mode: %w", err)
	}
	return setting.UpdatedAt, nil
}

func decodeGhostMode(setting models.AppSetting) (models.GhostModeValue, error) {
	var value models.GhostModeValue
	if len(setting.Value) == 0 {
		return value, nil
	}
	if err := json.Unmarshal(setting.Value, &value); err != nil {
		return models.GhostModeValue{}, fmt.Errorf("decode ghost mode: %w", err)
	}
	return value, nil
}
