package service

import (
	"context"
	"log/slog"

	apperrors "github.com/artriverapp/artriver-server/internal/errors"
	"github.com/artriverapp/artriver-server/internal/store"
)

// IndexHooks keeps the search index in step with store writes. The store
// calls these synchronously after each successful commit.
//
// Every indexing failure is swallowed and logged: a search engine outage
// must never fail a write that already committed. The index catches up on
// the next sync or rebuild.
type IndexHooks struct {
	indexer *IndexingService
	store   store.ImageReader
	logger  *slog.Logger
}

// NewIndexHooks creates the change listener wired to the indexing service.
func NewIndexHooks(indexer *IndexingService, st store.ImageReader, logger *slog.Logger) *IndexHooks {
	return &IndexHooks{
		indexer: indexer,
		store:   st,
		logger:  logger,
	}
}

var _ store.IndexHooks = (*IndexHooks)(nil)

// OnImageCreated indexes a newly created image.
func (h *IndexHooks) OnImageCreated(ctx context.Context, id int64) {
	if err := h.indexer.IndexImage(ctx, id); err != nil {
		h.logger.Warn("failed to index created image", "id", id, "error", err)
	}
}

// OnImageUpdated reindexes an updated image.
func (h *IndexHooks) OnImageUpdated(ctx context.Context, id int64) {
	if err := h.indexer.IndexImage(ctx, id); err != nil {
		h.logger.Warn("failed to index updated image", "id", id, "error", err)
	}
}

// OnImageDeleted removes a deleted image from the index.
func (h *IndexHooks) OnImageDeleted(ctx context.Context, id int64) {
	if err := h.indexer.RemoveImage(ctx, id); err != nil {
		h.logger.Warn("failed to remove deleted image from index", "id", id, "error", err)
	}
}

// OnTagsUpdated reindexes the image owning pid so its tag fields refresh.
// A pid with no image row is a no-op: tags can land before their image
// during ingest, and the image's own create event will pick them up.
func (h *IndexHooks) OnTagsUpdated(ctx context.Context, pid string) {
	id, err := h.store.GetImageIDByPID(ctx, pid)
	if err != nil {
		if apperrors.Is(err, store.ErrNotFound) {
			h.logger.Debug("tags updated for unknown pid", "pid", pid)
			return
		}
		h.logger.Warn("failed to resolve pid for tag update", "pid", pid, "error", err)
		return
	}

	if err := h.indexer.IndexImage(ctx, id); err != nil {
		h.logger.Warn("failed to reindex image after tag update", "id", id, "pid", pid, "error", err)
	}
}
