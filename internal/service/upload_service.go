package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	// ErrFileRequired indicates the multipart body carried no file.
	ErrFileRequired = errors.New("image file is required")
	// ErrUploadTooLarge indicates the payload exceeded the configured limit.
	ErrUploadTooLarge = errors.New("file exceeds maximum allowed size")
	// ErrUploadTypeNotAllowed indicates the sniffed MIME type is not permitted.
	ErrUploadTypeNotAllowed = errors.New("file type not allowed")
)

// AllowedImageTypes lists the MIME types accepted for submissions and reference images.
var AllowedImageTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

// StagedUpload is an upload copied to a local temp file after validation.
type StagedUpload struct {
	Path     string
	FileName string
	MIMEType string
	Size     int64
}

// Open opens the staged copy for reading.
func (u StagedUpload) Open() (*os.File, error) {
	return os.Open(u.Path)
}

// ReadAll loads the staged copy into memory.
func (u StagedUpload) ReadAll() ([]byte, error) {
	return os.ReadFile(u.Path)
}

// Cleanup removes the staged copy. Safe to call more than once.
func (u StagedUpload) Cleanup() error {
	if u.Path == "" {
		return nil
	}
	if err := os.Remove(u.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// UploadStager validates an incoming image and stages it on local disk.
type UploadStager interface {
	Stage(ctx context.Context, file *multipart.FileHeader) (StagedUpload, error)
	MaxBytes() int64
}

type uploadStager struct {
	tempDir string
	maxSize int64
	logger  zerolog.Logger
	tracer  trace.Tracer
}

// NewUploadStager constructs an upload stager writing into tempDir (os.TempDir when empty).
func NewUploadStager(tempDir string, maxSizeMB int, logger zerolog.Logger) UploadStager {
	if maxSizeMB <= 0 {
		maxSizeMB = 10
	}
	return &uploadStager{
		tempDir: tempDir,
		maxSize: int64(maxSizeMB) * 1024 * 1024,
		logger:  logger.With().Str("component", "upload_stager").Logger(),
		tracer:  otel.Tracer("github.com/noah-isme/asset-review-api/internal/service/upload"),
	}
}

func (s *uploadStager) MaxBytes() int64 {
	return s.maxSize
}

func (s *uploadStager) Stage(ctx context.Context, file *multipart.FileHeader) (StagedUpload, error) {
	_, span := s.tracer.Start(ctx, "upload.stage")
	defer span.End()

	span.SetAttributes(attribute.Int64("upload.max_bytes", s.maxSize))
	if file == nil {
		span.SetAttributes(attribute.Bool("upload.file_present", false))
		span.SetStatus(codes.Error, "validation failed")
		return StagedUpload{}, ErrFileRequired
	}
	span.SetAttributes(
		attribute.String("upload.original_name", strings.TrimSpace(file.Filename)),
		attribute.Int64("upload.request_size", file.Size),
	)

	if file.Size > s.maxSize {
		span.RecordError(ErrUploadTooLarge)
		span.SetStatus(codes.Error, "payload too large")
		return StagedUpload{}, ErrUploadTooLarge
	}

	src, err := file.Open()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "open failed")
		return StagedUpload{}, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	tmp, err := os.CreateTemp(s.tempDir, "review-*"+strings.ToLower(filepath.Ext(file.Filename)))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "temp file failed")
		return StagedUpload{}, fmt.Errorf("create temp file: %w", err)
	}
	staged := StagedUpload{Path: tmp.Name(), FileName: filepath.Base(strings.TrimSpace(file.Filename))}

	written, copyErr := io.Copy(tmp, io.LimitReader(src, s.maxSize+1))
	closeErr := tmp.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		_ = staged.Cleanup()
		span.RecordError(err)
		span.SetStatus(codes.Error, "spool failed")
		return StagedUpload{}, fmt.Errorf("spool upload: %w", err)
	}
	if written > s.maxSize {
		_ = staged.Cleanup()
		span.RecordError(ErrUploadTooLarge)
		span.SetStatus(codes.Error, "payload too large")
		return StagedUpload{}, ErrUploadTooLarge
	}

	detected, err := mimetype.DetectFile(staged.Path)
	if err != nil {
		_ = staged.Cleanup()
		span.RecordError(err)
		span.SetStatus(codes.Error, "sniff failed")
		return StagedUpload{}, fmt.Errorf("detect mime type: %w", err)
	}
	span.SetAttributes(attribute.String("upload.detected_mime", detected.String()))
	if !mimetype.EqualsAny(detected.String(), AllowedImageTypes...) {
		_ = staged.Cleanup()
		s.logger.Debug().Str("mime", detected.String()).Str("file", staged.FileName).Msg("rejected upload type")
		span.RecordError(ErrUploadTypeNotAllowed)
		span.SetStatus(codes.Error, "type not allowed")
		return StagedUpload{}, ErrUploadTypeNotAllowed
	}

	staged.MIMEType = detected.String()
	staged.Size = written
	if staged.FileName == "" || staged.FileName == "." {
		staged.FileName = "upload" + detected.Extension()
	}
	span.SetStatus(codes.Ok, "staged")

	return staged, nil
}
