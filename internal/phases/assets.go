package phases

import (
	"context"
	"fmt"

	"github.com/fyrsmithlabs/pipelined/internal/collab"
	"github.com/fyrsmithlabs/pipelined/internal/outcome"
	"github.com/fyrsmithlabs/pipelined/internal/pipeline"
	"go.uber.org/zap"
)

// Assets exports design images in fixed-size batches and uploads them to
// the CMS. Per batch: one attempt at full fidelity, one retry at reduced
// fidelity, then every identifier in the batch is marked failed. Individual
// download/upload misses are counted. The phase itself never fails on asset
// errors.
type Assets struct {
	deps *Deps
}

func (h *Assets) Name() string { return pipeline.PhaseAssets }

func (h *Assets) Execute(ctx context.Context, hc *pipeline.HandlerContext) (*pipeline.Result, error) {
	analysis, err := requireArtifact[AnalysisResult](hc.Artifacts, pipeline.PhaseAnalysis)
	if err != nil {
		return nil, err
	}

	result := &AssetsResult{IDs: make(map[string]*string, len(analysis.ImageIDs))}
	if len(analysis.ImageIDs) == 0 {
		return &pipeline.Result{Value: result}, nil
	}

	urls := h.exportBatches(ctx, hc.Profile.DesignFileKey, analysis.ImageIDs)

	for _, id := range analysis.ImageIDs {
		url, ok := urls[id]
		if !ok {
			result.IDs[id] = nil
			result.Failed++
			continue
		}
		media := h.transfer(ctx, id, url)
		if media == nil {
			result.IDs[id] = nil
			result.Failed++
			continue
		}
		mediaURL := media.URL
		result.IDs[id] = &mediaURL
		result.Uploaded++
	}

	h.deps.Logger.Info("asset pipeline finished",
		zap.String("build_id", hc.Run.ID),
		zap.Int("uploaded", result.Uploaded),
		zap.Int("failed", result.Failed),
	)
	return &pipeline.Result{Value: result}, nil
}

// exportBatches walks ceil(N/B) sequential batches and returns node ID to
// export URL for every asset whose batch succeeded. A batch that fails at
// full scale gets exactly one retry at reduced scale; a second failure
// drops the whole batch and the loop continues.
func (h *Assets) exportBatches(ctx context.Context, fileKey string, ids []string) map[string]string {
	batchSize := h.deps.Cfg.AssetBatchSize
	urls := make(map[string]string, len(ids))

	for start := 0; start < len(ids); start += batchSize {
		end := start + batchSize
		if end > len(ids) {
			end = len(ids)
		}
		batch := ids[start:end]

		exported, err := h.deps.Design.ExportImages(ctx, fileKey, batch, collab.ScaleFull)
		if err != nil {
			h.deps.Logger.Warn("batch export failed at full scale, retrying reduced",
				zap.Int("batch_start", start),
				zap.Error(err),
			)
			exported, err = h.deps.Design.ExportImages(ctx, fileKey, batch, collab.ScaleReduced)
		}
		if err != nil {
			h.deps.Logger.Warn("batch export failed twice, dropping batch",
				zap.Int("batch_start", start),
				zap.Int("batch_len", len(batch)),
				zap.Error(err),
			)
			continue
		}
		for id, url := range exported {
			urls[id] = url
		}
	}
	return urls
}

// transfer downloads one exported asset and uploads it to the CMS. Both
// steps are tolerated; a miss returns nil.
func (h *Assets) transfer(ctx context.Context, id, url string) *collab.Media {
	download := outcome.Tolerate(ctx, func(ctx context.Context) ([]byte, error) {
		return h.deps.Design.DownloadImage(ctx, url)
	})
	if !download.OK() {
		h.deps.Logger.Warn("asset download failed", zap.String("asset_id", id), zap.Error(download.Err))
		return nil
	}

	upload := outcome.Tolerate(ctx, func(ctx context.Context) (*collab.Media, error) {
		return h.deps.CMS.UploadMedia(ctx, fmt.Sprintf("asset-%s", id), download.Value)
	})
	if !upload.OK() {
		h.deps.Logger.Warn("asset upload failed", zap.String("asset_id", id), zap.Error(upload.Err))
		return nil
	}
	return upload.Value
}
