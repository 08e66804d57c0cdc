package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/asset-review-api/internal/dto"
	"github.com/noah-isme/asset-review-api/internal/models"
	"github.com/noah-isme/asset-review-api/internal/repository"
	"github.com/noah-isme/asset-review-api/pkg/storage"
)

func seedSubmissions(t *testing.T, repo repository.SubmissionRepository) {
	t.Helper()
	ctx := context.Background()
	rows := []models.Submission{
		{AssetType: "logo", FileName: "a.png", Result: models.SubmissionResultPass, ConfidenceScore: 90, SubmittedAt: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)},
		{AssetType: "logo", FileName: "b.png", Result: models.SubmissionResultFail, ConfidenceScore: 60, Violations: []string{"Stretched"}, SubmittedAt: time.Date(2024, 3, 2, 23, 30, 0, 0, time.UTC)},
		{AssetType: "banner", FileName: "c.png", Result: models.SubmissionResultPass, ConfidenceScore: 88, SubmittedAt: time.Date(2024, 3, 3, 12, 0, 0, 0, time.UTC)},
	}
	for i := range rows {
		require.NoError(t, repo.Create(ctx, &rows[i]))
	}
}

func TestSubmissionServiceFiltersByTypeResultAndWindow(t *testing.T) {
	repo := repository.NewSubmissionRepository(newTestDB(t))
	seedSubmissions(t, repo)
	svc := NewSubmissionService(repo, storage.NewMemoryStore(), newValidator(), time.Hour, testLogger())

	resp, err := svc.List(context.Background(), dto.SubmissionListRequest{
		AssetType: "LOGO",
		Result:    "fail",
		From:      "2024-03-02",
		To:        "2024-03-02",
	})
	require.NoError(t, err)
	require.Len(t, resp.Items, 1)
	require.Equal(t, "b.png", resp.Items[0].FileName)
	require.Equal(t, []string{"Stretched"}, resp.Items[0].Violations)
	require.Equal(t, int64(1), resp.Pagination.TotalItems)

	all, err := svc.List(context.Background(), dto.SubmissionListRequest{PageSize: 2})
	require.NoError(t, err)
	require.Len(t, all.Items, 2)
	require.Equal(t, "c.png", all.Items[0].FileName)
	require.Equal(t, int64(3), all.Pagination.TotalItems)
	require.Equal(t, 2, all.Pagination.TotalPages)
}

func TestSubmissionServiceRejectsBadFilters(t *testing.T) {
	repo := repository.NewSubmissionRepository(newTestDB(t))
	svc := NewSubmissionService(repo, storage.NewMemoryStore(), newValidator(), time.Hour, testLogger())

	_, err := svc.List(context.Background(), dto.SubmissionListRequest{Result: "maybe"})
	require.Error(t, err)

	_, err = svc.List(context.Background(), dto.SubmissionListRequest{From: "yesterday"})
	require.ErrorIs(t, err, ErrInvalidDateFilter)

	_, err = svc.List(context.Background(), dto.SubmissionListRequest{From: "2024-03-05", To: "2024-03-01"})
	require.ErrorIs(t, err, ErrInvalidDateFilter)
}

func TestSubmissionServiceGetResignsURL(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewSubmissionRepository(newTestDB(t))
	store := storage.NewMemoryStore()
	_, err := store.Put(ctx, "submissions/logo/a.png", strings.NewReader("img"), 3, "image/png")
	require.NoError(t, err)

	row := models.Submission{AssetType: "logo", FileName: "a.png", FileURL: "memory://stale", StoragePath: "submissions/logo/a.png", Result: models.SubmissionResultPass}
	require.NoError(t, repo.Create(ctx, &row))

	svc := NewSubmissionService(repo, store, newValidator(), time.Hour, testLogger())
	got, err := svc.Get(ctx, row.ID)
	require.NoError(t, err)
	require.NotEqual(t, "memory://stale", got.FileURL)
	require.True(t, strings.HasPrefix(got.FileURL, "memory://submissions%2Flogo%2Fa.png"))

	_, err = svc.Get(ctx, row.ID+100)
	require.ErrorIs(t, err, ErrSubmissionNotFound)
}

func TestBuildSubmissionFilterDateOnlyToCoversWholeDay(t *testing.T) {
	filter, err := BuildSubmissionFilter(dto.SubmissionListRequest{To: "2024-03-02"})
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, 3, 2, 23, 59, 59, 999999999, time.UTC), *filter.To)
	require.Equal(t, 1, filter.Page)
	require.Equal(t, 20, filter.PageSize)

	filter, err = BuildSubmissionFilter(dto.SubmissionListRequest{To: "2024-03-02T10:00:00Z"})
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC), *filter.To)
}
