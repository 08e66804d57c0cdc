package dto

import (
	"time"

	"github.com/noah-isme/asset-review-api/internal/models"
)

// AssetTypeCreateRequest is the payload for creating an asset type.
type AssetTypeCreateRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=64"`
	Description string `json:"description" validate:"omitempty,max=255"`
	Guidelines  string `json:"guidelines" validate:"required,min=10"`
	PassMessage string `json:"pass_message" validate:"omitempty,max=2000"`
	FailMessage string `json:"fail_message" validate:"omitempty,max=2000"`
}

// AssetTypeUpdateRequest carries partial updates for an asset type.
type AssetTypeUpdateRequest struct {
	Description *string `json:"description" validate:"omitempty,max=255"`
	Guidelines  *string `json:"guidelines" validate:"omitempty,min=10"`
	PassMessage *string `json:"pass_message" validate:"omitempty,max=2000"`
	FailMessage *string `json:"fail_message" validate:"omitempty,max=2000"`
}

// ReferenceImageResponse describes a stored reference image.
type ReferenceImageResponse struct {
	FileName    string `json:"fileName"`
	StoragePath string `json:"storagePath"`
	URL         string `json:"url,omitempty"`
}

// AssetTypeResponse is the admin view of an asset type.
type AssetTypeResponse struct {
	ID              uint                     `json:"id"`
	Name            string                   `json:"name"`
	Description     string                   `json:"description"`
	Guidelines      string                   `json:"guidelines"`
	ReferenceImages []ReferenceImageResponse `json:"reference_images"`
	PassMessage     string                   `json:"pass_message"`
	FailMessage     string                   `json:"fail_message"`
	CreatedAt       time.Time                `json:"created_at"`
	UpdatedAt       time.Time                `json:"updated_at"`
}

// AssetTypeSummary is the public listing entry used by upload forms.
type AssetTypeSummary struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// NewAssetTypeResponse converts a model. URLs for reference images are filled by the caller.
func NewAssetTypeResponse(model models.AssetType) AssetTypeResponse {
	refs := make([]ReferenceImageResponse, 0, len(model.ReferenceImages))
	for _, ref := range model.ReferenceImages {
		refs = append(refs, ReferenceImageResponse{FileName: ref.FileName, StoragePath: ref.StoragePath})
	}

	return AssetTypeResponse{
		ID:              model.ID,
		Name:            model.Name,
		Description:     model.Description,
		Guidelines:      model.Guidelines,
		ReferenceImages: refs,
		PassMessage:     model.PassMessage,
		FailMessage:     model.FailMessage,
		CreatedAt:       model.CreatedAt,
		UpdatedAt:       model.UpdatedAt,
	}
}
