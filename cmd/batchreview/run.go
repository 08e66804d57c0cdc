package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/noah-isme/asset-review-api/pkg/batch"
	"github.com/noah-isme/asset-review-api/pkg/reviewclient"
)

const maxFileBytes = 10 << 20

func newRunCmd() *cobra.Command {
	var (
		assetType   string
		concurrency int
		timeout     time.Duration
		strict      bool
	)
	cmd := &cobra.Command{
		Use:   "run [file...]",
		Short: "Review every given image against one asset type",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			client := reviewclient.New(serverURL,
				reviewclient.WithTimeout(timeout),
				reviewclient.WithLogger(logger),
			)

			files, skipped := loadFiles(args, maxFileBytes, logger)
			scheduler := batch.New(clientReviewer{client: client}, batch.Options{
				Concurrency: concurrency,
				OnUpdate:    logUpdate(logger),
			})

			added, err := scheduler.Add(files...)
			switch {
			case errors.Is(err, batch.ErrNotImage):
				return err
			case errors.Is(err, batch.ErrBatchFull):
				logger.Warn().Err(err).Int("accepted", len(added)).Msg("batch limit reached, extra files ignored")
			case err != nil:
				return err
			}
			if dropped := len(files) - len(added); dropped > 0 && err == nil {
				logger.Warn().Int("count", dropped).Msg("skipped files that are not images")
			}

			logger.Info().Int("files", len(added)).Str("asset_type", assetType).Str("server", serverURL).Msg("starting batch review")
			counts, runErr := scheduler.Run(cmd.Context(), assetType)

			fmt.Fprintln(cmd.OutOrStdout(), renderSummary(scheduler.Outcomes(), counts, skipped))

			if runErr != nil {
				return runErr
			}
			if counts.Error > 0 {
				return fmt.Errorf("%d of %d reviews failed to complete", counts.Error, len(added))
			}
			if strict && counts.Fail > 0 {
				return fmt.Errorf("%d of %d assets did not pass", counts.Fail, len(added))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&assetType, "asset-type", "t", "", "Asset type every file is reviewed against")
	cmd.Flags().IntVarP(&concurrency, "concurrency", "c", batch.DefaultConcurrency, "Reviews in flight at once")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "Timeout for each review request")
	cmd.Flags().BoolVar(&strict, "strict", false, "Exit non-zero when any asset fails review")
	_ = cmd.MarkFlagRequired("asset-type")
	return cmd
}

func newAssetTypesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "asset-types",
		Short: "List the asset types the server accepts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := reviewclient.New(serverURL, reviewclient.WithLogger(newLogger()))
			types, err := client.AssetTypes(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderAssetTypes(types))
			return nil
		},
	}
}

// clientReviewer submits batch files through the HTTP client.
type clientReviewer struct {
	client *reviewclient.Client
}

func (r clientReviewer) Review(ctx context.Context, assetType string, file batch.File) (batch.Result, error) {
	resp, err := r.client.Submit(ctx, assetType, file.Name, file.ContentType, file.Data)
	if err != nil {
		return batch.Result{}, err
	}
	if resp.GhostMode || resp.Result == nil {
		return batch.Result{GhostMode: true, Message: resp.Message}, nil
	}
	return batch.Result{
		Pass:          resp.Result.Pass,
		Confidence:    resp.Result.Confidence,
		Violations:    resp.Result.Violations,
		Summary:       resp.Result.Summary,
		CustomMessage: resp.Result.CustomMessage,
	}, nil
}

// loadFiles reads the given paths, dropping unreadable and oversized files.
func loadFiles(paths []string, limit int64, logger zerolog.Logger) ([]batch.File, []string) {
	files := make([]batch.File, 0, len(paths))
	var skipped []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			logger.Warn().Str("file", path).Msg("skipping unreadable file")
			skipped = append(skipped, path)
			continue
		}
		if info.Size() > limit {
			logger.Warn().Str("file", path).Int64("size", info.Size()).Msg("skipping file larger than 10MB")
			skipped = append(skipped, path)
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Warn().Err(err).Str("file", path).Msg("skipping unreadable file")
			skipped = append(skipped, path)
			continue
		}
		files = append(files, batch.File{
			Name:        filepath.Base(path),
			ContentType: mimetype.Detect(data).String(),
			Data:        data,
		})
	}
	return files, skipped
}

func logUpdate(logger zerolog.Logger) func(batch.Update) {
	return func(update batch.Update) {
		progress := fmt.Sprintf("%d/%d", update.Progress.Completed, update.Progress.Total)
		switch update.Outcome.Status {
		case batch.StatusProcessing:
			logger.Debug().Str("file", update.Item.Name).Str("progress", progress).Msg("reviewing")
		case batch.StatusError:
			logger.Warn().Str("file", update.Item.Name).Str("progress", progress).Str("error", update.Outcome.Error).Msg("review failed")
		case batch.StatusComplete:
			event := logger.Info().Str("file", update.Item.Name).Str("progress", progress)
			if result := update.Outcome.Result; result != nil && !result.GhostMode {
				event = event.Bool("pass", result.Pass).Int("confidence", result.Confidence)
			}
			event.Msg("reviewed")
		}
	}
}
