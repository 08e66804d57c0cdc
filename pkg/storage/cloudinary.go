package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/rs/zerolog"
)

// CloudinaryConfig contains credentials required to talk to Cloudinary.
type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

// CloudinaryStore implements ObjectStore using Cloudinary image assets.
// Delivery URLs are signed but do not expire; ttl is ignored.
type CloudinaryStore struct {
	client *cloudinary.Cloudinary
	folder string
	http   *http.Client
	logger zerolog.Logger
}

// NewCloudinaryStore constructs a Cloudinary-backed store.
func NewCloudinaryStore(cfg CloudinaryConfig, logger zerolog.Logger) (*CloudinaryStore, error) {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("cloudinary credentials must be provided")
	}

	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary: %w", err)
	}

	return &CloudinaryStore{
		client: cld,
		folder: strings.Trim(cfg.Folder, "/"),
		http:   &http.Client{Timeout: 30 * time.Second},
		logger: logger.With().Str("component", "cloudinary_store").Logger(),
	}, nil
}

// Put uploads the object under a public id derived from key.
func (s *CloudinaryStore) Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (Object, error) {
	params := uploader.UploadParams{
		PublicID:     s.publicID(key),
		ResourceType: "image",
	}

	result, err := s.client.Upload.Upload(ctx, reader, params)
	if err != nil {
		return Object{}, fmt.Errorf("failed to upload asset: %w", err)
	}
	if result.Error.Message != "" {
		return Object{}, fmt.Errorf("failed to upload asset: %s", result.Error.Message)
	}

	s.logger.Info().Str("public_id", result.PublicID).Msg("file uploaded to cloudinary")

	return Object{Key: key, Size: size, ContentType: contentType}, nil
}

// Get downloads the asset through its signed delivery URL.
func (s *CloudinaryStore) Get(ctx context.Context, key string) ([]byte, error) {
	deliveryURL, err := s.SignedURL(ctx, key, 0)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, deliveryURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build download request: %w", err)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download asset: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrObjectNotFound
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("download asset: unexpected status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

// SignedURL returns a signed delivery URL for the asset.
func (s *CloudinaryStore) SignedURL(_ context.Context, key string, _ time.Duration) (string, error) {
	img, err := s.client.Image(s.publicID(key))
	if err != nil {
		return "", fmt.Errorf("build asset url: %w", err)
	}
	img.Config.URL.Secure = true
	img.Config.URL.SignURL = true

	deliveryURL, err := img.String()
	if err != nil {
		return "", fmt.Errorf("build asset url: %w", err)
	}
	return deliveryURL, nil
}

// Delete destroys the asset.
func (s *CloudinaryStore) Delete(ctx context.Context, key string) error {
	if _, err := s.client.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: s.publicID(key)}); err != nil {
		return fmt.Errorf("failed to delete asset: %w", err)
	}
	return nil
}

// publicID strips the extension, which Cloudinary keeps outside the id.
func (s *CloudinaryStore) publicID(key string) string {
	id := strings.TrimSuffix(key, path.Ext(key))
	if s.folder == "" {
		return id
	}
	return s.folder + "/" + id
}
