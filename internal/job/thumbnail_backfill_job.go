package job

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/mephisto/internal/model"
)

const defaultBackfillBatch = 50

type ThumbnailRegenerator interface {
	MissingThumbnails(ctx context.Context, limit uint) ([]model.Asset, error)
	RegenerateThumbnails(ctx context.Context, asset *model.Asset) (int, error)
}

// ThumbnailBackfillJob generates thumbnails for image assets that have none,
// e.g. after the configured sizes changed.
type ThumbnailBackfillJob struct {
	assets ThumbnailRegenerator
	batch  uint
}

func NewThumbnailBackfillJob(assets ThumbnailRegenerator, batch uint) *ThumbnailBackfillJob {
	if batch == 0 {
		batch = defaultBackfillBatch
	}
	return &ThumbnailBackfillJob{assets: assets, batch: batch}
}

func (j *ThumbnailBackfillJob) Name() string {
	return "thumbnail_backfill"
}

func (j *ThumbnailBackfillJob) Run(ctx context.Context) error {
	if j.assets == nil {
		return nil
	}
	items, err := j.assets.MissingThumbnails(ctx, j.batch)
	if err != nil {
		return err
	}
	logger := logutil.GetLogger(ctx)
	generated := 0
	for i := range items {
		if err := ctx.Err(); err != nil {
			return err
		}
		asset := &items[i]
		count, err := j.assets.RegenerateThumbnails(ctx, asset)
		if err != nil {
			logger.Warn("regenerate thumbnails failed", zap.String("asset_id", asset.ID), zap.Error(err))
			continue
		}
		generated += count
	}
	if len(items) > 0 {
		logger.Info("thumbnail backfill done", zap.Int("assets", len(items)), zap.Int("thumbnails", generated))
	}
	return nil
}
