// Package service contains the business services bridging the relational
// store and the search index.
package service

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/artriverapp/artriver-server/internal/domain"
	apperrors "github.com/artriverapp/artriver-server/internal/errors"
	"github.com/artriverapp/artriver-server/internal/search"
	"github.com/artriverapp/artriver-server/internal/store"
)

const (
	// defaultBatchSize pages the source table during bulk indexing.
	defaultBatchSize = 100

	// reindexChunkSize bounds id-list queries regardless of what callers
	// pass to the bulk path.
	reindexChunkSize = 200

	// healthyThreshold is the index/db ratio above which the index is
	// reported healthy. Policy, not law.
	healthyThreshold = 0.95
)

// IndexingService bridges the relational source and the search index. It is
// the only component that reads the store for bulk operations.
type IndexingService struct {
	store      store.ImageReader
	index      *search.Index
	logger     *slog.Logger
	batchPause time.Duration
}

// NewIndexingService creates the indexing service. batchPause spaces bulk
// batches so long jobs don't monopolize the database connection pool.
func NewIndexingService(index *search.Index, st store.ImageReader, batchPause time.Duration, logger *slog.Logger) *IndexingService {
	return &IndexingService{
		store:      st,
		index:      index,
		logger:     logger,
		batchPause: batchPause,
	}
}

// ValidationResult compares source and index cardinality.
//
// Consistent is a coarse heuristic: equal counts do not prove equal
// content. That limitation is deliberate - the check stays cheap enough to
// run on every admin request. Consistent=false is data, never an error.
type ValidationResult struct {
	DBCount    int64 `json:"db_count"`
	IndexCount int64 `json:"index_count"`
	Consistent bool  `json:"consistent"`
}

// Health classifies index coverage.
type Health string

// Health states reported by Report.
const (
	HealthEmpty   Health = "empty"
	HealthHealthy Health = "healthy"
	HealthPartial Health = "partial"
)

// HealthReport is the three-level index health classification.
type HealthReport struct {
	Status     Health `json:"status"`
	DBCount    int64  `json:"db_count"`
	IndexCount int64  `json:"index_count"`
}

// IndexAll builds the index from a cold start. It pages the source by
// primary key ascending, batch-fetches tags per page, and upserts each page
// in one call. Interrupting and re-running is safe: upserts are idempotent,
// so a restart from offset zero merely repeats work.
//
// Returns the number of records processed, which is meaningful even when an
// error aborts the job partway.
func (s *IndexingService) IndexAll(ctx context.Context, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	total, err := s.store.CountImages(ctx)
	if err != nil {
		return 0, apperrors.SourceUnavailable("count images", err)
	}

	s.logger.Info("starting bulk index", "total", total, "batch_size", batchSize)

	// Pace batches so the shared connection pool keeps serving live traffic.
	var limiter *rate.Limiter
	if s.batchPause > 0 {
		limiter = rate.NewLimiter(rate.Every(s.batchPause), 1)
	}

	processed := 0
	offset := 0

	for {
		if err := ctx.Err(); err != nil {
			return processed, apperrors.Wrapf(err, apperrors.CodeInternal,
				"bulk index canceled after %d of %d records", processed, total)
		}

		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return processed, apperrors.Wrapf(err, apperrors.CodeInternal,
					"bulk index canceled after %d of %d records", processed, total)
			}
		}

		images, err := s.store.ListImages(ctx, offset, batchSize)
		if err != nil {
			return processed, apperrors.SourceUnavailable(
				"list images (processed "+strconv.Itoa(processed)+" of "+strconv.FormatInt(total, 10)+")", err)
		}
		if len(images) == 0 {
			break
		}

		docs, err := s.buildDocuments(ctx, images)
		if err != nil {
			return processed, err
		}

		if err := s.index.AddDocuments(docs); err != nil {
			return processed, err
		}

		processed += len(images)
		offset += batchSize

		s.logger.Info("indexed batch", "processed", processed, "total", total)
	}

	s.logger.Info("bulk index complete", "processed", processed)
	return processed, nil
}

// IndexImage transforms and upserts a single image. Fails loudly with a
// NotFound error when the record is missing: this path is driven by change
// events, and silently indexing nothing would hide caller-side bugs.
func (s *IndexingService) IndexImage(ctx context.Context, id int64) error {
	img, err := s.store.GetImage(ctx, id)
	if err != nil {
		if apperrors.Is(err, store.ErrNotFound) {
			return apperrors.NotFoundf("image %d not found", id)
		}
		return apperrors.SourceUnavailable("get image", err)
	}

	var tags []string
	if img.PID != "" {
		tagMap, err := s.tagsByPID(ctx, []string{img.PID})
		if err != nil {
			return err
		}
		tags = tagMap[img.PID]
	}

	doc := search.NewDocument(img, tags)
	if err := s.index.UpdateDocuments([]*search.Document{doc}); err != nil {
		return err
	}

	s.logger.Debug("indexed image", "id", id, "title", img.Title)
	return nil
}

// RemoveImage deletes a document from the index. Removing an id that was
// never indexed is not an error.
func (s *IndexingService) RemoveImage(ctx context.Context, id int64) error {
	if err := s.index.DeleteDocuments([]string{strconv.FormatInt(id, 10)}); err != nil {
		return err
	}

	s.logger.Debug("removed image from index", "id", id)
	return nil
}

// ReindexImages rebuilds the documents for an explicit id list. Ids are
// chunked internally to bound query size; ids with no matching row are
// skipped.
func (s *IndexingService) ReindexImages(ctx context.Context, ids []int64) (int, error) {
	processed := 0

	for i := 0; i < len(ids); i += reindexChunkSize {
		end := min(i+reindexChunkSize, len(ids))

		images, err := s.store.GetImagesByIDs(ctx, ids[i:end])
		if err != nil {
			return processed, apperrors.SourceUnavailable("get images by ids", err)
		}

		docs, err := s.buildDocuments(ctx, images)
		if err != nil {
			return processed, err
		}

		if err := s.index.UpdateDocuments(docs); err != nil {
			return processed, err
		}

		processed += len(images)
	}

	s.logger.Info("reindexed images", "requested", len(ids), "processed", processed)
	return processed, nil
}

// SyncRecent upserts every image created within the past hoursBack hours.
// Recent windows are assumed small, but the result is still chunked
// defensively in case a backfill lands a large window.
func (s *IndexingService) SyncRecent(ctx context.Context, hoursBack int) (int, error) {
	if hoursBack <= 0 {
		return 0, apperrors.Validationf("invalid sync window: %d hours", hoursBack)
	}

	since := time.Now().UTC().Add(-time.Duration(hoursBack) * time.Hour)

	images, err := s.store.ListImagesSince(ctx, since)
	if err != nil {
		return 0, apperrors.SourceUnavailable("list recent images", err)
	}

	processed := 0
	for i := 0; i < len(images); i += reindexChunkSize {
		end := min(i+reindexChunkSize, len(images))

		docs, err := s.buildDocuments(ctx, images[i:end])
		if err != nil {
			return processed, err
		}

		if err := s.index.UpdateDocuments(docs); err != nil {
			return processed, err
		}

		processed += len(docs)
	}

	s.logger.Info("synced recent images", "hours_back", hoursBack, "processed", processed)
	return processed, nil
}

// Validate compares source and index document counts.
func (s *IndexingService) Validate(ctx context.Context) (*ValidationResult, error) {
	dbCount, err := s.store.CountImages(ctx)
	if err != nil {
		return nil, apperrors.SourceUnavailable("count images", err)
	}

	indexCount, err := s.index.Count()
	if err != nil {
		return nil, err
	}

	return &ValidationResult{
		DBCount:    dbCount,
		IndexCount: int64(indexCount), //nolint:gosec // Safe: document counts fit in int64
		Consistent: dbCount == int64(indexCount),
	}, nil
}

// Report classifies index health. Best-effort: store or engine failures
// degrade the inputs to zero instead of failing, since the report feeds
// status displays.
func (s *IndexingService) Report(ctx context.Context) *HealthReport {
	var dbCount int64
	if count, err := s.store.CountImages(ctx); err == nil {
		dbCount = count
	} else {
		s.logger.Warn("health report could not count source records", "error", err)
	}

	var indexCount int64
	if stats := s.index.GetStats(); stats != nil {
		indexCount = int64(stats.DocumentCount) //nolint:gosec // Safe: document counts fit in int64
	}

	status := HealthPartial
	switch {
	case indexCount == 0:
		status = HealthEmpty
	case float64(indexCount) >= healthyThreshold*float64(dbCount):
		status = HealthHealthy
	}

	return &HealthReport{
		Status:     status,
		DBCount:    dbCount,
		IndexCount: indexCount,
	}
}

// Rebuild clears the index and repopulates it from the source. Destructive:
// queries racing the rebuild see a partially-empty index until IndexAll
// finishes.
func (s *IndexingService) Rebuild(ctx context.Context) (int, error) {
	s.logger.Info("starting index rebuild")

	if err := s.index.Clear(); err != nil {
		return 0, err
	}

	return s.IndexAll(ctx, defaultBatchSize)
}

// buildDocuments transforms a page of images, batch-fetching their tags in
// one query rather than one per image.
func (s *IndexingService) buildDocuments(ctx context.Context, images []*domain.Image) ([]*search.Document, error) {
	pids := make([]string, 0, len(images))
	seen := make(map[string]struct{}, len(images))
	for _, img := range images {
		if img.PID == "" {
			continue
		}
		if _, ok := seen[img.PID]; ok {
			continue
		}
		seen[img.PID] = struct{}{}
		pids = append(pids, img.PID)
	}

	tagsByPID, err := s.tagsByPID(ctx, pids)
	if err != nil {
		return nil, err
	}

	docs := make([]*search.Document, 0, len(images))
	for _, img := range images {
		docs = append(docs, search.NewDocument(img, tagsByPID[img.PID]))
	}
	return docs, nil
}

// tagsByPID fetches tags for a set of pids and groups them, cleaned, per
// pid. Pids without tags simply have no entry.
func (s *IndexingService) tagsByPID(ctx context.Context, pids []string) (map[string][]string, error) {
	if len(pids) == 0 {
		return nil, nil
	}

	rows, err := s.store.GetTagsByPIDs(ctx, pids)
	if err != nil {
		return nil, apperrors.SourceUnavailable("get tags", err)
	}

	grouped := make(map[string][]string)
	for _, row := range rows {
		grouped[row.PID] = append(grouped[row.PID], row.Tag)
	}
	for pid, tags := range grouped {
		grouped[pid] = search.CleanTags(tags)
	}
	return grouped, nil
}
