package models

import (
	"time"

	"gorm.io/datatypes"
)

// SettingGhostMode is the key of the ghost mode settings row.
const SettingGhostMode = "ghost_mode"

// AppSetting is a keyed JSON configuration row managed from the admin console.
type AppSetting struct {
	Key       string         `gorm:"column:setting_key;primaryKey;size:64" json:"setting_key"`
	Value     datatypes.JSON `gorm:"column:setting_value" json:"setting_value"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// GhostModeValue is the payload stored under SettingGhostMode.
type GhostModeValue struct {
	Enabled         bool `json:"enabled"`
	SubmissionCount int  `json:"submission_count"`
}
