package vision

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type capturedPart struct {
	Type     string `json:"type"`
	Text     string `json:"text"`
	ImageURL *struct {
		URL string `json:"url"`
	} `json:"image_url"`
}

type capturedRequest struct {
	Model     string `json:"model"`
	MaxTokens int    `json:"max_tokens"`
	Messages  []struct {
		Role    string         `json:"role"`
		Content []capturedPart `json:"content"`
	} `json:"messages"`
}

func newTestReviewer(t *testing.T, handler http.HandlerFunc) *OpenAIReviewer {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	reviewer, err := NewOpenAIReviewer(OpenAIConfig{
		APIKey:  "test-key",
		BaseURL: server.URL + "/v1",
		Logger:  zerolog.New(io.Discard),
	})
	require.NoError(t, err)
	return reviewer
}

func completionBody(content string) string {
	payload := map[string]interface{}{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": 1,
		"model":   "gpt-4o",
		"choices": []map[string]interface{}{
			{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": content},
				"finish_reason": "stop",
			},
		},
	}
	data, _ := json.Marshal(payload)
	return string(data)
}

func TestOpenAIReviewerBuildsMultiImagePrompt(t *testing.T) {
	var captured capturedRequest
	reviewer := newTestReviewer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, completionBody("```json\n{\"pass\": true, \"confidence\": 92, \"violations\": [], \"summary\": \"ok\"}\n```"))
	})

	verdict, err := reviewer.Review(context.Background(), Request{
		Guidelines: "Logo must be blue.",
		References: []Image{
			{Name: "ref-1.png", MIMEType: "image/png", Data: []byte("ref1")},
			{Name: "ref-2.png", MIMEType: "image/png", Data: []byte("ref2")},
		},
		Submission: Image{Name: "logo.jpg", MIMEType: "image/jpeg", Data: []byte("submission")},
	})
	require.NoError(t, err)
	require.True(t, verdict.Passed)
	require.Equal(t, 92, verdict.Confidence)

	require.Equal(t, "gpt-4o", captured.Model)
	require.Equal(t, 1000, captured.MaxTokens)
	require.Len(t, captured.Messages, 1)
	parts := captured.Messages[0].Content
	require.Len(t, parts, 6)

	require.Equal(t, "text", parts[0].Type)
	require.Contains(t, parts[0].Text, "Logo must be blue.")
	require.Equal(t, "text", parts[1].Type)
	require.Contains(t, parts[1].Text, "REFERENCE IMAGES")
	require.Equal(t, DataURL(Image{MIMEType: "image/png", Data: []byte("ref1")}), parts[2].ImageURL.URL)
	require.Equal(t, DataURL(Image{MIMEType: "image/png", Data: []byte("ref2")}), parts[3].ImageURL.URL)
	require.Equal(t, "text", parts[4].Type)
	require.True(t, strings.HasPrefix(parts[5].ImageURL.URL, "data:image/jpeg;base64,"))
}

func TestOpenAIReviewerSkipsReferenceFramingWithoutReferences(t *testing.T) {
	parts := BuildParts(Request{
		Guidelines: "Any",
		Submission: Image{MIMEType: "image/png", Data: []byte("x")},
	})
	require.Len(t, parts, 2)
	require.Contains(t, parts[0].Text, "BRAND GUIDELINES:\nAny\n")
	require.NotNil(t, parts[1].ImageURL)
}

func TestOpenAIReviewerNormalizesUnparseableReply(t *testing.T) {
	reviewer := newTestReviewer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, completionBody("Sorry, I can't help with that."))
	})

	verdict, err := reviewer.Review(context.Background(), Request{
		Guidelines: "g",
		Submission: Image{MIMEType: "image/png", Data: []byte("x")},
	})
	require.NoError(t, err)
	require.True(t, verdict.Fallback)
	require.False(t, verdict.Passed)
	require.Equal(t, 50, verdict.Confidence)
	require.Equal(t, []string{FormatErrorViolation}, verdict.Violations)
}

func TestOpenAIReviewerPropagatesStatusFailure(t *testing.T) {
	reviewer := newTestReviewer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error":{"message":"upstream down","type":"server_error"}}`)
	})

	_, err := reviewer.Review(context.Background(), Request{
		Guidelines: "g",
		Submission: Image{MIMEType: "image/png", Data: []byte("x")},
	})
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInferenceFailed)
}

func TestNewOpenAIReviewerRequiresKey(t *testing.T) {
	_, err := NewOpenAIReviewer(OpenAIConfig{})
	require.Error(t, err)
}
