package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/noah-isme/asset-review-api/internal/models"
	"github.com/noah-isme/asset-review-api/internal/repository"
)

const (
	defaultPassMessage = "Great work! This asset meets our brand guidelines and is approved for use."
	defaultFailMessage = "This asset does not meet our brand guidelines. Please review the violations listed and resubmit."
)

// PresetGuidelines are the guideline texts installed on a fresh database.
var PresetGuidelines = map[string]string{
	"logo": `LOGO GUIDELINES:
- Logo must maintain proper aspect ratio (not stretched or distorted)
- Minimum clear space around logo must be respected
- Logo colors must match brand palette (no unauthorized color variations)
- Logo must be high resolution and not pixelated
- No unauthorized modifications or additions to logo elements
- Background must not interfere with logo visibility`,

	"banner": `BANNER GUIDELINES:
- Banner dimensions must be appropriate for intended use
- Text must be readable and properly sized (not too small)
- Images must be high quality and not pixelated
- Brand colors must be consistent with brand palette
- Call-to-action must be clear and visible
- No clutter - maintain visual hierarchy
- Safe zones must be respected for text and key elements`,

	"social": `SOCIAL MEDIA GUIDELINES:
- Image must be optimized for social platform dimensions
- Text overlay must not exceed 20% of image area
- Brand logo must be visible but not overpowering
- Colors must be vibrant and attention-grabbing
- Key message must be immediately clear
- Contact/website info must be included if promotional
- Must be visually consistent with brand identity`,

	"print": `PRINT GUIDELINES:
- Resolution must be at least 300 DPI for print quality
- Colors must be CMYK-compatible (no neon/RGB-only colors)
- Bleed area must be included if required
- Text must be minimum 8pt for readability
- Logo must be vector or high-resolution
- No compression artifacts or pixelation
- Proper margins and safe zones must be maintained`,
}

var presetOrder = []string{"logo", "banner", "social", "print"}

// SeedService installs preset asset types.
type SeedService interface {
	SeedDefaults(ctx context.Context) (int, error)
}

type seedService struct {
	repo   repository.AssetTypeRepository
	logger zerolog.Logger
}

// NewSeedService constructs a seeding service.
func NewSeedService(repo repository.AssetTypeRepository, logger zerolog.Logger) SeedService {
	return &seedService{
		repo:   repo,
		logger: logger.With().Str("component", "seed_service").Logger(),
	}
}

// SeedDefaults inserts the presets only when no asset type exists yet.
func (s *seedService) SeedDefaults(ctx context.Context) (int, error) {
	total, err := s.repo.Count(ctx)
	if err != nil {
		return 0, err
	}
	if total > 0 {
		return 0, nil
	}

	items := make([]models.AssetType, 0, len(presetOrder))
	for _, name := range presetOrder {
		guidelines := PresetGuidelines[name]
		items = append(items, models.AssetType{
			Name:            name,
			Description:     DescriptionFromGuidelines(guidelines),
			Guidelines:      guidelines,
			ReferenceImages: []models.ReferenceImage{},
			PassMessage:     defaultPassMessage,
			FailMessage:     defaultFailMessage,
		})
	}

	if err := s.repo.CreateBatch(ctx, items); err != nil {
		return 0, err
	}

	s.logger.Info().Int("count", len(items)).Msg("preset asset types seeded")
	return len(items), nil
}
