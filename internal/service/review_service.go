package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/asset-review-api/internal/dto"
	"github.com/noah-isme/asset-review-api/internal/models"
	"github.com/noah-isme/asset-review-api/internal/observability"
	"github.com/noah-isme/asset-review-api/internal/repository"
	"github.com/noah-isme/asset-review-api/pkg/storage"
	"github.com/noah-isme/asset-review-api/pkg/vision"
)

var (
	// ErrAssetTypeRequired indicates the request named no asset type.
	ErrAssetTypeRequired = errors.New("asset type is required")
	// ErrAssetTypeNotFound indicates the named asset type has no guideline record.
	ErrAssetTypeNotFound = errors.New("asset type not found")
	// ErrReviewUnavailable indicates the vision model could not be reached or refused the call.
	ErrReviewUnavailable = errors.New("review could not be performed")
)

// Review pipeline step names.
const (
	StepValidate     = "validate"
	StepLookup       = "lookup_asset_type"
	StepReferences   = "load_references"
	StepInference    = "inference"
	StepGhostMode    = "read_ghost_mode"
	StepStoreFile    = "store_file"
	StepSignURL      = "sign_url"
	StepPersist      = "persist_submission"
	StepPublish      = "publish_event"
	StepInvalidate   = "invalidate_stats"
	StepGhostCounter = "ghost_counter"
)

// StepStatus classifies how a pipeline step ended.
type StepStatus string

const (
	// StepOK means the step succeeded.
	StepOK StepStatus = "ok"
	// StepDegraded means the step failed and the pipeline continued.
	StepDegraded StepStatus = "degraded"
	// StepAborted means the step failed and the pipeline stopped.
	StepAborted StepStatus = "aborted"
)

// StepReport records the outcome of one pipeline step.
type StepReport struct {
	Step   string
	Status StepStatus
	Err    error
}

// ReviewResult is everything one review produced.
type ReviewResult struct {
	Response     dto.ReviewResponse
	Verdict      vision.Verdict
	GhostMode    bool
	SubmissionID uint
	Steps        []StepReport
}

// Degraded returns the steps that failed without stopping the pipeline.
func (r ReviewResult) Degraded() []StepReport {
	return r.filter(StepDegraded)
}

// Aborted returns the step that stopped the pipeline, if any.
func (r ReviewResult) Aborted() (StepReport, bool) {
	steps := r.filter(StepAborted)
	if len(steps) == 0 {
		return StepReport{}, false
	}
	return steps[0], true
}

// Status returns the recorded status for step, or "" when it never ran.
func (r ReviewResult) Status(step string) StepStatus {
	for _, report := range r.Steps {
		if report.Step == step {
			return report.Status
		}
	}
	return ""
}

func (r ReviewResult) filter(status StepStatus) []StepReport {
	var out []StepReport
	for _, report := range r.Steps {
		if report.Status == status {
			out = append(out, report)
		}
	}
	return out
}

func (r *ReviewResult) record(step string, err error, status StepStatus) {
	if err == nil {
		status = StepOK
	}
	r.Steps = append(r.Steps, StepReport{Step: step, Status: status, Err: err})
}

// ReviewService runs single-asset reviews.
type ReviewService interface {
	Review(ctx context.Context, req dto.ReviewRequest) (ReviewResult, error)
}

// ReviewDependencies groups the collaborators of the review pipeline.
// Feed and Dashboard are optional.
type ReviewDependencies struct {
	AssetTypes   repository.AssetTypeRepository
	Submissions  repository.SubmissionRepository
	Settings     SettingsService
	Reviewer     vision.Reviewer
	Store        storage.ObjectStore
	Uploads      UploadStager
	Feed         SubmissionFeed
	Dashboard    DashboardService
	SignedURLTTL time.Duration
}

type reviewService struct {
	deps   ReviewDependencies
	logger zerolog.Logger
	tracer trace.Tracer
	now    func() time.Time
}

// NewReviewService constructs the review pipeline.
func NewReviewService(deps ReviewDependencies, logger zerolog.Logger) ReviewService {
	if deps.SignedURLTTL <= 0 {
		deps.SignedURLTTL = 7 * 24 * time.Hour
	}
	return &reviewService{
		deps:   deps,
		logger: logger.With().Str("component", "review_service").Logger(),
		tracer: otel.Tracer("github.com/noah-isme/asset-review-api/internal/service/review"),
		now:    time.Now,
	}
}

func (s *reviewService) Review(ctx context.Context, req dto.ReviewRequest) (ReviewResult, error) {
	ctx, span := s.tracer.Start(ctx, "review.run")
	defer span.End()

	start := time.Now()
	var result ReviewResult

	fail := func(step string, err error) (ReviewResult, error) {
		result.record(step, err, StepAborted)
		span.RecordError(err)
		span.SetStatus(codes.Error, step)
		return result, err
	}

	name := NormalizeAssetTypeName(req.AssetType)
	span.SetAttributes(attribute.String("review.asset_type", name))

	if req.File == nil {
		return fail(StepValidate, ErrFileRequired)
	}
	if name == "" {
		return fail(StepValidate, ErrAssetTypeRequired)
	}

	staged, err := s.deps.Uploads.Stage(ctx, req.File)
	if err != nil {
		return fail(StepValidate, err)
	}
	defer func() {
		if err := staged.Cleanup(); err != nil {
			s.logger.Warn().Err(err).Str("path", staged.Path).Msg("failed to remove staged upload")
		}
	}()
	result.record(StepValidate, nil, StepOK)

	assetType, err := s.deps.AssetTypes.GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fail(StepLookup, fmt.Errorf("%w: %s", ErrAssetTypeNotFound, name))
		}
		return fail(StepLookup, fmt.Errorf("lookup asset type: %w", err))
	}
	result.record(StepLookup, nil, StepOK)

	data, err := staged.ReadAll()
	if err != nil {
		return fail(StepValidate, fmt.Errorf("read staged upload: %w", err))
	}

	references, refErr := s.loadReferences(ctx, assetType)
	result.record(StepReferences, refErr, StepDegraded)

	verdict, err := s.deps.Reviewer.Review(ctx, vision.Request{
		Guidelines: assetType.Guidelines,
		References: references,
		Submission: vision.Image{Name: staged.FileName, MIMEType: staged.MIMEType, Data: data},
	})
	if err != nil {
		s.logger.Error().Err(err).Str("asset_type", name).Msg("vision review failed")
		return fail(StepInference, fmt.Errorf("%w: %w", ErrReviewUnavailable, err))
	}
	result.record(StepInference, nil, StepOK)
	result.Verdict = verdict

	ghostEnabled, ghostErr := s.readGhostMode(ctx)
	result.record(StepGhostMode, ghostErr, StepDegraded)
	result.GhostMode = ghostEnabled

	storagePath, fileURL := s.storeUpload(ctx, name, staged, data, &result)

	submission := models.Submission{
		AssetType:       name,
		FileName:        staged.FileName,
		FileURL:         fileURL,
		StoragePath:     storagePath,
		Result:          models.ResultFromPass(verdict.Passed),
		ConfidenceScore: verdict.Confidence,
		Violations:      append([]string{}, verdict.Violations...),
		Summary:         verdict.Summary,
		GhostMode:       ghostEnabled,
		SubmittedAt:     s.now().UTC(),
	}
	persistErr := s.deps.Submissions.Create(ctx, &submission)
	result.record(StepPersist, wrapIf(persistErr, "persist submission"), StepDegraded)
	if persistErr == nil {
		result.SubmissionID = submission.ID
		s.afterPersist(ctx, submission, &result)
	}

	if ghostEnabled && ghostErr == nil {
		result.record(StepGhostCounter, s.deps.Settings.IncrementGhostCount(ctx), StepDegraded)
	}

	result.Response = ShapeReviewResponse(assetType, verdict, ghostEnabled)

	for _, step := range result.Degraded() {
		observability.ReviewStepsDegraded().WithLabelValues(step.Step).Inc()
		s.logger.Warn().Err(step.Err).Str("step", step.Step).Str("asset_type", name).Msg("review step degraded")
	}
	observability.Reviews().WithLabelValues(name, submission.Result, strconv.FormatBool(ghostEnabled)).Inc()
	observability.ReviewDuration().Observe(time.Since(start).Seconds())

	span.SetAttributes(
		attribute.Bool("review.passed", verdict.Passed),
		attribute.Bool("review.ghost_mode", ghostEnabled),
		attribute.Int("review.degraded_steps", len(result.Degraded())),
	)
	span.SetStatus(codes.Ok, "reviewed")

	return result, nil
}

// readGhostMode fails closed: when the flag cannot be read results are withheld.
func (s *reviewService) readGhostMode(ctx context.Context) (bool, error) {
	state, err := s.deps.Settings.GhostMode(ctx)
	if err != nil {
		return true, err
	}
	return state.Enabled, nil
}

func (s *reviewService) loadReferences(ctx context.Context, assetType models.AssetType) ([]vision.Image, error) {
	images := make([]vision.Image, 0, len(assetType.ReferenceImages))
	var errs []error

	for _, ref := range assetType.ReferenceImages {
		data, err := s.deps.Store.Get(ctx, ref.StoragePath)
		if err != nil {
			s.logger.Warn().Err(err).Str("asset_type", assetType.Name).Str("reference", ref.FileName).Msg("skipping reference image")
			errs = append(errs, fmt.Errorf("reference %s: %w", ref.FileName, err))
			continue
		}
		images = append(images, vision.Image{
			Name:     ref.FileName,
			MIMEType: mimetype.Detect(data).String(),
			Data:     data,
		})
	}

	return images, errors.Join(errs...)
}

func (s *reviewService) storeUpload(ctx context.Context, assetType string, staged StagedUpload, data []byte, result *ReviewResult) (string, string) {
	key := storage.ObjectKey("submissions/"+assetType, staged.FileName)

	if _, err := s.deps.Store.Put(ctx, key, bytes.NewReader(data), int64(len(data)), staged.MIMEType); err != nil {
		result.record(StepStoreFile, fmt.Errorf("store upload: %w", err), StepDegraded)
		return "", ""
	}
	result.record(StepStoreFile, nil, StepOK)

	url, err := s.deps.Store.SignedURL(ctx, key, s.deps.SignedURLTTL)
	result.record(StepSignURL, wrapIf(err, "sign upload url"), StepDegraded)
	return key, url
}

func (s *reviewService) afterPersist(ctx context.Context, submission models.Submission, result *ReviewResult) {
	if s.deps.Feed != nil {
		result.record(StepPublish, s.deps.Feed.Publish(ctx, dto.NewSubmissionEvent(submission)), StepDegraded)
	}
	if s.deps.Dashboard != nil {
		result.record(StepInvalidate, wrapIf(s.deps.Dashboard.Invalidate(ctx), "invalidate stats"), StepDegraded)
	}
}

// ShapeReviewResponse builds the submitter-facing body. With ghost mode on the
// verdict is withheld entirely.
func ShapeReviewResponse(assetType models.AssetType, verdict vision.Verdict, ghostMode bool) dto.ReviewResponse {
	if ghostMode {
		return dto.NewGhostModeResponse()
	}

	violations := verdict.Violations
	if violations == nil {
		violations = []string{}
	}

	return dto.ReviewResponse{
		GhostMode: false,
		Result: &dto.ReviewResult{
			Pass:          verdict.Passed,
			Confidence:    verdict.Confidence,
			Violations:    violations,
			Summary:       verdict.Summary,
			CustomMessage: assetType.MessageFor(verdict.Passed),
		},
	}
}

// NormalizeAssetTypeName trims and lower-cases an asset type label.
func NormalizeAssetTypeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func wrapIf(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}
