// Package reviewclient talks to the asset review HTTP API.
package reviewclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const defaultTimeout = 2 * time.Minute

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
	Details string
}

func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s (%s)", e.Message, e.Details)
	}
	return e.Message
}

// ReviewResult is the structured compliance verdict.
type ReviewResult struct {
	Pass          bool     `json:"pass"`
	Confidence    int      `json:"confidence"`
	Violations    []string `json:"violations"`
	Summary       string   `json:"summary"`
	CustomMessage string   `json:"customMessage"`
}

// ReviewResponse is the body of a successful review call. Result is nil
// when the server answered in ghost mode.
type ReviewResponse struct {
	GhostMode bool          `json:"ghostMode"`
	Result    *ReviewResult `json:"result,omitempty"`
	Message   string        `json:"message,omitempty"`
}

// AssetType is the public view of a configured asset type.
type AssetType struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details"`
	Message string `json:"message"`
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// Client calls the review API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger.With().Str("component", "review_client").Logger()
	}
}

// New creates a client for the server at baseURL, e.g. http://localhost:8080.
func New(baseURL string, opts ...Option) *Client {
	client := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Submit uploads one image for review against assetType.
func (c *Client) Submit(ctx context.Context, assetType, fileName, contentType string, data []byte) (ReviewResponse, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if err := writer.WriteField("assetType", assetType); err != nil {
		return ReviewResponse{}, fmt.Errorf("write asset type field: %w", err)
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, fileName))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return ReviewResponse{}, fmt.Errorf("create file part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return ReviewResponse{}, fmt.Errorf("write file part: %w", err)
	}
	if err := writer.Close(); err != nil {
		return ReviewResponse{}, fmt.Errorf("close multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/review", body)
	if err != nil {
		return ReviewResponse{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var resp ReviewResponse
	if err := c.do(req, &resp); err != nil {
		return ReviewResponse{}, err
	}

	c.logger.Debug().Str("file", fileName).Bool("ghost_mode", resp.GhostMode).Msg("review submitted")
	return resp, nil
}

// AssetTypes lists the asset types a submission may target.
func (c *Client) AssetTypes(ctx context.Context) ([]AssetType, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/asset-types", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	var env envelope
	if err := c.do(req, &env); err != nil {
		return nil, err
	}

	var types []AssetType
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &types); err != nil {
			return nil, fmt.Errorf("decode asset types: %w", err)
		}
	}
	return types, nil
}

func (c *Client) do(req *http.Request, out interface{}) error {
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return decodeAPIError(resp.StatusCode, payload)
	}

	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeAPIError(status int, payload []byte) error {
	apiErr := &APIError{Status: status}

	var body errorBody
	if err := json.Unmarshal(payload, &body); err == nil {
		apiErr.Message = body.Error
		if apiErr.Message == "" {
			apiErr.Message = body.Message
		}
		apiErr.Details = body.Details
	}
	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(payload))
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}
