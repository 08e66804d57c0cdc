package vision

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	visionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "asset_review",
		Subsystem: "vision",
		Name:      "request_duration_seconds",
		Help:      "Duration of vision model requests",
	}, []string{"model"})

	visionFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "asset_review",
		Subsystem: "vision",
		Name:      "failures_total",
		Help:      "Number of vision model calls that failed or returned unparseable replies",
	}, []string{"model", "kind"})
)

// OpenAIConfig defines configuration options for the OpenAI reviewer.
type OpenAIConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
	Logger    zerolog.Logger
}

// OpenAIReviewer implements Reviewer against the OpenAI chat completion API.
type OpenAIReviewer struct {
	client *openai.Client
	cfg    OpenAIConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewOpenAIReviewer builds a reviewer using the provided configuration.
func NewOpenAIReviewer(cfg OpenAIConfig) (*OpenAIReviewer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	if cfg.Model == "" {
		cfg.Model = "gpt-4o"
	}

	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 1000
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	return &OpenAIReviewer{
		client: openai.NewClientWithConfig(config),
		cfg:    cfg,
		tracer: otel.Tracer("github.com/noah-isme/asset-review-api/pkg/vision"),
		logger: cfg.Logger.With().Str("component", "vision_openai").Logger(),
	}, nil
}

// Review sends the guideline, reference images and submission to the model and
// normalizes its reply.
func (r *OpenAIReviewer) Review(parent context.Context, req Request) (Verdict, error) {
	ctx, span := r.tracer.Start(parent, "vision.review", trace.WithAttributes(
		attribute.String("model", r.cfg.Model),
		attribute.Int("vision.reference_count", len(req.References)),
	))
	defer span.End()

	request := openai.ChatCompletionRequest{
		Model:     r.cfg.Model,
		MaxTokens: r.cfg.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:         openai.ChatMessageRoleUser,
				MultiContent: BuildParts(req),
			},
		},
	}

	start := time.Now()
	resp, err := r.client.CreateChatCompletion(ctx, request)
	visionDuration.WithLabelValues(r.cfg.Model).Observe(time.Since(start).Seconds())
	if err != nil {
		kind := "transport"
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			kind = "status"
		}
		visionFailures.WithLabelValues(r.cfg.Model, kind).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "model call failed")
		return Verdict{}, fmt.Errorf("%w: %v", ErrInferenceFailed, err)
	}

	if len(resp.Choices) == 0 {
		err := fmt.Errorf("%w: no choices returned", ErrInferenceFailed)
		visionFailures.WithLabelValues(r.cfg.Model, "empty").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Verdict{}, err
	}

	content := resp.Choices[0].Message.Content
	verdict := NormalizeReply(content)
	if verdict.Fallback {
		visionFailures.WithLabelValues(r.cfg.Model, "format").Inc()
		r.logger.Warn().Str("reply", truncate(content, 200)).Msg("model reply carried no parseable json")
	}

	span.SetAttributes(
		attribute.Bool("vision.passed", verdict.Passed),
		attribute.Int("vision.confidence", verdict.Confidence),
		attribute.Bool("vision.fallback", verdict.Fallback),
	)
	span.SetStatus(codes.Ok, "reviewed")

	return verdict, nil
}

// BuildParts assembles the multi-part prompt: instructions with the guideline,
// optional reference images framed by explanatory text, then the submission.
func BuildParts(req Request) []openai.ChatMessagePart {
	parts := make([]openai.ChatMessagePart, 0, len(req.References)+4)
	parts = append(parts, textPart(instructionPrompt(req.Guidelines)))

	if len(req.References) > 0 {
		parts = append(parts, textPart(fmt.Sprintf(
			"REFERENCE IMAGES:\nThe following %d image(s) are approved examples of compliant assets. Use them as a visual baseline.",
			len(req.References),
		)))
		for _, ref := range req.References {
			parts = append(parts, imagePart(ref))
		}
		parts = append(parts, textPart("Now review the following submitted asset against the guidelines and the reference examples above."))
	}

	parts = append(parts, imagePart(req.Submission))
	return parts
}

func instructionPrompt(guidelines string) string {
	builder := strings.Builder{}
	builder.WriteString("You are a brand compliance reviewer. Analyze the submitted image against the following brand guidelines and provide a structured assessment.\n\n")
	builder.WriteString("BRAND GUIDELINES:\n")
	builder.WriteString(guidelines)
	builder.WriteString("\n\nINSTRUCTIONS:\n")
	builder.WriteString("1. Carefully examine the image for any violations of the brand guidelines\n")
	builder.WriteString("2. Determine if the asset passes or fails compliance\n")
	builder.WriteString("3. List specific violations found (if any)\n")
	builder.WriteString("4. Provide a confidence score (0-100) for your assessment\n\n")
	builder.WriteString("Respond ONLY with valid JSON in this exact format:\n")
	builder.WriteString("{\n  \"pass\": true or false,\n  \"violations\": [\"violation 1\", \"violation 2\"],\n  \"confidence\": 0-100,\n  \"summary\": \"Brief summary of the review\"\n}")
	return builder.String()
}

func textPart(text string) openai.ChatMessagePart {
	return openai.ChatMessagePart{Type: openai.ChatMessagePartTypeText, Text: text}
}

func imagePart(img Image) openai.ChatMessagePart {
	return openai.ChatMessagePart{
		Type: openai.ChatMessagePartTypeImageURL,
		ImageURL: &openai.ChatMessageImageURL{
			URL:    DataURL(img),
			Detail: openai.ImageURLDetailAuto,
		},
	}
}

// DataURL encodes an image as a base64 data URL.
func DataURL(img Image) string {
	mimeType := img.MIMEType
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

// truncate cuts value to limit characters without splitting a rune.
func truncate(value string, limit int) string {
	count := 0
	for i := range value {
		if count == limit {
			return value[:i] + "..."
		}
		count++
	}
	return value
}
