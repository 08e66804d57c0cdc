package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName     string
	AppEnv      string
	AppPort     string
	DatabaseURL string
	RedisURL    string
	NATSURL     string
	NATSSubject string

	JWTSecret      string
	AdminPassword  string
	AdminTokenTTL  time.Duration
	DashboardTTL   time.Duration
	ReviewRateMax  int
	ReviewRateSpan time.Duration

	UploadMaxSizeMB int
	UploadTempDir   string

	StorageProvider        string
	SignedURLTTL           time.Duration
	MinioEndpoint          string
	MinioAccessKey         string
	MinioSecretKey         string
	MinioBucket            string
	MinioRegion            string
	MinioUseSSL            bool
	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string

	OpenAIAPIKey    string
	OpenAIBaseURL   string
	VisionModel     string
	VisionMaxTokens int
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// UploadMaxBytes converts the configured upload limit to bytes.
func (c Config) UploadMaxBytes() int64 {
	return int64(c.UploadMaxSizeMB) * 1024 * 1024
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("ASSETREVIEW")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Asset Review API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "3001")
	v.SetDefault("nats.subject", "asset_review")
	v.SetDefault("admin.token_ttl", "12h")
	v.SetDefault("dashboard.cache_ttl", "1m")
	v.SetDefault("review.rate_max", 60)
	v.SetDefault("review.rate_window", "1m")
	v.SetDefault("upload.max_size_mb", 10)
	v.SetDefault("upload.temp_dir", "")
	v.SetDefault("storage.provider", "minio")
	v.SetDefault("storage.signed_url_ttl", "168h")
	v.SetDefault("minio.bucket", "asset-review")
	v.SetDefault("minio.region", "us-east-1")
	v.SetDefault("cloudinary.folder", "asset-review")
	v.SetDefault("vision.model", "gpt-4o")
	v.SetDefault("vision.max_tokens", 1000)

	tokenTTL, err := parseDuration(v, "admin.token_ttl")
	if err != nil {
		return Config{}, err
	}
	dashboardTTL, err := parseDuration(v, "dashboard.cache_ttl")
	if err != nil {
		return Config{}, err
	}
	rateWindow, err := parseDuration(v, "review.rate_window")
	if err != nil {
		return Config{}, err
	}
	signedTTL, err := parseDuration(v, "storage.signed_url_ttl")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:                v.GetString("app.name"),
		AppEnv:                 v.GetString("app.env"),
		AppPort:                v.GetString("app.port"),
		DatabaseURL:            v.GetString("database.url"),
		RedisURL:               v.GetString("redis.url"),
		NATSURL:                v.GetString("nats.url"),
		NATSSubject:            v.GetString("nats.subject"),
		JWTSecret:              v.GetString("jwt.secret"),
		AdminPassword:          v.GetString("admin.password"),
		AdminTokenTTL:          tokenTTL,
		DashboardTTL:           dashboardTTL,
		ReviewRateMax:          v.GetInt("review.rate_max"),
		ReviewRateSpan:         rateWindow,
		UploadMaxSizeMB:        v.GetInt("upload.max_size_mb"),
		UploadTempDir:          v.GetString("upload.temp_dir"),
		StorageProvider:        strings.ToLower(v.GetString("storage.provider")),
		SignedURLTTL:           signedTTL,
		MinioEndpoint:          v.GetString("minio.endpoint"),
		MinioAccessKey:         v.GetString("minio.access_key"),
		MinioSecretKey:         v.GetString("minio.secret_key"),
		MinioBucket:            v.GetString("minio.bucket"),
		MinioRegion:            v.GetString("minio.region"),
		MinioUseSSL:            v.GetBool("minio.use_ssl"),
		CloudinaryCloudName:    v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:       v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret:    v.GetString("cloudinary.api_secret"),
		CloudinaryUploadFolder: v.GetString("cloudinary.folder"),
		OpenAIAPIKey:           v.GetString("openai_api_key"),
		OpenAIBaseURL:          v.GetString("openai_base_url"),
		VisionModel:            v.GetString("vision.model"),
		VisionMaxTokens:        v.GetInt("vision.max_tokens"),
	}

	if cfg.JWTSecret == "" || cfg.AdminPassword == "" {
		return Config{}, fmt.Errorf("jwt secret and admin password must be provided")
	}

	if cfg.OpenAIAPIKey == "" {
		return Config{}, fmt.Errorf("openai api key must be provided")
	}

	switch cfg.StorageProvider {
	case "minio", "cloudinary", "memory":
	default:
		return Config{}, fmt.Errorf("unsupported storage provider %q", cfg.StorageProvider)
	}

	if cfg.UploadMaxSizeMB <= 0 {
		cfg.UploadMaxSizeMB = 10
	}

	if cfg.VisionMaxTokens <= 0 {
		cfg.VisionMaxTokens = 1000
	}

	if cfg.ReviewRateMax <= 0 {
		cfg.ReviewRateMax = 60
	}

	return cfg, nil
}

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	raw := v.GetString(key)
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}
