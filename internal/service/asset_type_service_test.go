package service

import (
	"context"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/asset-review-api/internal/dto"
	"github.com/noah-isme/asset-review-api/internal/repository"
	"github.com/noah-isme/asset-review-api/pkg/storage"
)

func newAssetTypeTestService(t *testing.T) (AssetTypeService, *storage.MemoryStore) {
	t.Helper()
	store := storage.NewMemoryStore()
	svc := NewAssetTypeService(
		repository.NewAssetTypeRepository(newTestDB(t)),
		store,
		NewUploadStager(t.TempDir(), 10, testLogger()),
		newValidator(),
		time.Hour,
		testLogger(),
	)
	return svc, store
}

func TestAssetTypeServiceCreateSanitizesAndDefaults(t *testing.T) {
	svc, _ := newAssetTypeTestService(t)

	created, err := svc.Create(context.Background(), dto.AssetTypeCreateRequest{
		Name:        "  Poster ",
		Guidelines:  "<b>POSTER GUIDELINES:</b>\n- Colors & fonts must match",
		PassMessage: "<script>alert(1)</script>Approved",
	})
	require.NoError(t, err)
	require.Equal(t, "poster", created.Name)
	require.Equal(t, "<b>POSTER GUIDELINES:</b>\n- Colors & fonts must match", created.Guidelines)
	require.Equal(t, "POSTER GUIDELINES:", created.Description)
	require.Equal(t, "Approved", created.PassMessage)
	require.Empty(t, created.ReferenceImages)

	_, err = svc.Create(context.Background(), dto.AssetTypeCreateRequest{Name: "poster", Guidelines: "Another set of rules"})
	require.ErrorIs(t, err, ErrAssetTypeExists)
}

func TestAssetTypeServiceCreateValidates(t *testing.T) {
	svc, _ := newAssetTypeTestService(t)

	_, err := svc.Create(context.Background(), dto.AssetTypeCreateRequest{Name: "poster", Guidelines: "short"})
	require.Error(t, err)

	_, err = svc.Create(context.Background(), dto.AssetTypeCreateRequest{Name: "bad name!", Guidelines: "Long enough guidelines"})
	require.ErrorIs(t, err, ErrInvalidAssetTypeName)
}

func TestAssetTypeServiceUpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	svc, _ := newAssetTypeTestService(t)

	_, err := svc.Create(ctx, dto.AssetTypeCreateRequest{Name: "flyer", Guidelines: "FLYER RULES:\n- Keep it simple"})
	require.NoError(t, err)

	fail := "Try again"
	updated, err := svc.Update(ctx, "FLYER", dto.AssetTypeUpdateRequest{FailMessage: &fail})
	require.NoError(t, err)
	require.Equal(t, "Try again", updated.FailMessage)
	require.Equal(t, "FLYER RULES:\n- Keep it simple", updated.Guidelines)

	require.NoError(t, svc.Delete(ctx, "flyer"))
	_, err = svc.Get(ctx, "flyer")
	require.ErrorIs(t, err, ErrAssetTypeNotFound)
	require.ErrorIs(t, svc.Delete(ctx, "flyer"), ErrAssetTypeNotFound)
}

func TestAssetTypeServiceReferenceImages(t *testing.T) {
	ctx := context.Background()
	svc, store := newAssetTypeTestService(t)

	_, err := svc.Create(ctx, dto.AssetTypeCreateRequest{Name: "logo", Guidelines: "Logo must be blue."})
	require.NoError(t, err)

	withRef, err := svc.AddReferenceImage(ctx, "logo", newFileHeader(t, "file", "approved.png", pngFixture))
	require.NoError(t, err)
	require.Len(t, withRef.ReferenceImages, 1)
	ref := withRef.ReferenceImages[0]
	require.True(t, strings.HasPrefix(ref.StoragePath, "references/logo/"))
	require.True(t, strings.HasSuffix(ref.FileName, "-approved.png"))
	require.True(t, strings.HasPrefix(ref.URL, "memory://"))
	require.Equal(t, 1, store.Len())

	_, err = svc.AddReferenceImage(ctx, "logo", newFileHeader(t, "file", "notes.txt", []byte("plain text")))
	require.ErrorIs(t, err, ErrUploadTypeNotAllowed)

	_, err = svc.RemoveReferenceImage(ctx, "logo", "unknown.png")
	require.ErrorIs(t, err, ErrReferenceImageNotFound)

	withoutRef, err := svc.RemoveReferenceImage(ctx, "logo", ref.FileName)
	require.NoError(t, err)
	require.Empty(t, withoutRef.ReferenceImages)
	require.Zero(t, store.Len())
}

func TestAssetTypeServiceListPublic(t *testing.T) {
	ctx := context.Background()
	svc, _ := newAssetTypeTestService(t)

	for _, name := range []string{"print", "banner"} {
		_, err := svc.Create(ctx, dto.AssetTypeCreateRequest{Name: name, Guidelines: strings.ToUpper(name) + " GUIDELINES:\n- rule"})
		require.NoError(t, err)
	}

	items, err := svc.ListPublic(ctx)
	require.NoError(t, err)
	require.Equal(t, []dto.AssetTypeSummary{
		{Name: "banner", Description: "BANNER GUIDELINES:"},
		{Name: "print", Description: "PRINT GUIDELINES:"},
	}, items)
}

func TestDescriptionFromGuidelinesSkipsBlankLines(t *testing.T) {
	require.Equal(t, "First", DescriptionFromGuidelines("\n  \nFirst\nSecond"))
	require.Empty(t, DescriptionFromGuidelines("   "))
}

func TestDescriptionFromGuidelinesCutsOnRuneBoundary(t *testing.T) {
	description := DescriptionFromGuidelines(strings.Repeat("é", 300) + "\nrest")
	require.True(t, utf8.ValidString(description))
	require.Equal(t, 255, utf8.RuneCountInString(description))

	require.Equal(t, "Logo ✓", DescriptionFromGuidelines("Logo ✓\nmore"))
}

func TestAssetTypeServiceKeepsGuidelineTextVerbatim(t *testing.T) {
	ctx := context.Background()
	svc, _ := newAssetTypeTestService(t)

	guidelines := "Use <primary> palette only\n- Never place the logo on <busy> backgrounds"
	created, err := svc.Create(ctx, dto.AssetTypeCreateRequest{
		Name:        "badge",
		Guidelines:  "  " + guidelines + "\n",
		Description: "<i>Badges</i>",
	})
	require.NoError(t, err)
	require.Equal(t, guidelines, created.Guidelines)
	require.Equal(t, "Badges", created.Description)

	updatedText := "Über <accent> colours & ✓ marks are allowed"
	updated, err := svc.Update(ctx, "badge", dto.AssetTypeUpdateRequest{Guidelines: &updatedText})
	require.NoError(t, err)
	require.Equal(t, updatedText, updated.Guidelines)

	fetched, err := svc.Get(ctx, "badge")
	require.NoError(t, err)
	require.Equal(t, updatedText, fetched.Guidelines)
}

func TestAssetTypeServiceDerivesUTF8Description(t *testing.T) {
	svc, _ := newAssetTypeTestService(t)

	created, err := svc.Create(context.Background(), dto.AssetTypeCreateRequest{
		Name:       "mural",
		Guidelines: strings.Repeat("ß", 400) + "\nsecond line",
	})
	require.NoError(t, err)
	require.True(t, utf8.ValidString(created.Description))
	require.Equal(t, 255, utf8.RuneCountInString(created.Description))
}
