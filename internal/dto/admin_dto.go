package dto

import "time"

// PaginationMeta captures pagination metadata for list responses.
type PaginationMeta struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
}

// LoginRequest is the admin login payload.
type LoginRequest struct {
	Password string `json:"password" validate:"required"`
}

// LoginResponse returns a signed admin token.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// GhostModeUpdateRequest toggles ghost mode.
type GhostModeUpdateRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

// GhostModeResponse describes the current ghost mode state.
type GhostModeResponse struct {
	Enabled         bool       `json:"enabled"`
	SubmissionCount int        `json:"submission_count"`
	UpdatedAt       *time.Time `json:"updated_at,omitempty"`
}

// AssetTypeStat counts outcomes for one asset type.
type AssetTypeStat struct {
	AssetType string  `json:"asset_type"`
	Total     int64   `json:"total"`
	Passed    int64   `json:"passed"`
	Failed    int64   `json:"failed"`
	PassRate  float64 `json:"pass_rate"`
}

// DashboardStatsResponse summarizes review activity for the admin console.
type DashboardStatsResponse struct {
	TotalSubmissions int64             `json:"total_submissions"`
	Passed           int64             `json:"passed"`
	Failed           int64             `json:"failed"`
	PassRate         float64           `json:"pass_rate"`
	ByAssetType      []AssetTypeStat   `json:"by_asset_type"`
	GhostMode        GhostModeResponse `json:"ghost_mode"`
	GeneratedAt      time.Time         `json:"generated_at"`
	CacheHit         bool              `json:"cache_hit"`
}
