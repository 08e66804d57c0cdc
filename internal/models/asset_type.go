package models

import (
	"time"

	"gorm.io/datatypes"
)

// ReferenceImage points at an example of a compliant asset kept in object storage.
type ReferenceImage struct {
	FileName    string `json:"fileName"`
	StoragePath string `json:"storagePath"`
}

// AssetType is a named category of uploaded content with its own review guidelines.
type AssetType struct {
	ID              uint                                `gorm:"primaryKey" json:"id"`
	Name            string                              `gorm:"size:64;not null;uniqueIndex" json:"name"`
	Description     string                              `gorm:"size:255" json:"description"`
	Guidelines      string                              `gorm:"type:text;not null" json:"guidelines"`
	ReferenceImages datatypes.JSONSlice[ReferenceImage] `json:"reference_images"`
	PassMessage     string                              `gorm:"type:text" json:"pass_message"`
	FailMessage     string                              `gorm:"type:text" json:"fail_message"`
	CreatedAt       time.Time                           `json:"created_at"`
	UpdatedAt       time.Time                           `json:"updated_at"`
}

// MessageFor returns the configured template for the given outcome.
func (a AssetType) MessageFor(passed bool) string {
	if passed {
		return a.PassMessage
	}
	return a.FailMessage
}
