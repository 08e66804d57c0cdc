package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/asset-review-api/internal/database"
	"github.com/noah-isme/asset-review-api/internal/dto"
	"github.com/noah-isme/asset-review-api/internal/models"
	"github.com/noah-isme/asset-review-api/internal/repository"
	"github.com/noah-isme/asset-review-api/pkg/storage"
	"github.com/noah-isme/asset-review-api/pkg/vision"
)

var pngFixture = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 64)...)

var gifFixture = append([]byte("GIF89a"), bytes.Repeat([]byte{0}, 32)...)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func newFileHeader(t *testing.T, field, fileName string, data []byte) *multipart.FileHeader {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(field, fileName)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	form, err := multipart.NewReader(body, writer.Boundary()).ReadForm(32 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })
	require.Len(t, form.File[field], 1)
	return form.File[field][0]
}

type fakeReviewer struct {
	mu      sync.Mutex
	verdict vision.Verdict
	err     error
	calls   int
	last    vision.Request
}

func (f *fakeReviewer) Review(_ context.Context, req vision.Request) (vision.Verdict, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.last = req
	if f.err != nil {
		return vision.Verdict{}, f.err
	}
	return f.verdict, nil
}

type flakyStore struct {
	*storage.MemoryStore
	putErr  error
	signErr error
	getErr  map[string]error
}

func newFlakyStore() *flakyStore {
	return &flakyStore{MemoryStore: storage.NewMemoryStore(), getErr: map[string]error{}}
}

func (s *flakyStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (storage.Object, error) {
	if s.putErr != nil {
		return storage.Object{}, s.putErr
	}
	return s.MemoryStore.Put(ctx, key, r, size, contentType)
}

func (s *flakyStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err, ok := s.getErr[key]; ok {
		return nil, err
	}
	return s.MemoryStore.Get(ctx, key)
}

func (s *flakyStore) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if s.signErr != nil {
		return "", s.signErr
	}
	return s.MemoryStore.SignedURL(ctx, key, ttl)
}

type settingsStub struct {
	mu         sync.Mutex
	enabled    bool
	count      int
	readErr    error
	incrErr    error
	increments int
}

func (s *settingsStub) GhostMode(context.Context) (dto.GhostModeResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readErr != nil {
		return dto.GhostModeResponse{}, s.readErr
	}
	return dto.GhostModeResponse{Enabled: s.enabled, SubmissionCount: s.count}, nil
}

func (s *settingsStub) SetGhostMode(_ context.Context, enabled bool) (dto.GhostModeResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = enabled
	if enabled {
		s.count = 0
	}
	return dto.GhostModeResponse{Enabled: s.enabled, SubmissionCount: s.count}, nil
}

func (s *settingsStub) IncrementGhostCount(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.increments++
	if s.incrErr != nil {
		return s.incrErr
	}
	s.count++
	return nil
}

type failingSubmissionRepo struct {
	repository.SubmissionRepository
	createErr error
}

func (r *failingSubmissionRepo) Create(ctx context.Context, submission *models.Submission) error {
	if r.createErr != nil {
		return r.createErr
	}
	return r.SubmissionRepository.Create(ctx, submission)
}

var errBoom = errors.New("boom")

func newValidator() *validator.Validate {
	return validator.New()
}
