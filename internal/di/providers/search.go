package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/artriverapp/artriver-server/internal/config"
	"github.com/artriverapp/artriver-server/internal/logger"
	"github.com/artriverapp/artriver-server/internal/search"
	"github.com/artriverapp/artriver-server/internal/service"
)

// SearchIndexHandle wraps the search index with shutdown capability.
type SearchIndexHandle struct {
	*search.Index
}

// Shutdown implements do.Shutdownable.
func (h *SearchIndexHandle) Shutdown() error {
	return h.Close()
}

// ProvideSearchIndex provides the Bleve search index.
func ProvideSearchIndex(i do.Injector) (*SearchIndexHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	index, err := search.NewIndex(search.Options{
		DataPath: cfg.Data.BasePath,
		Logger:   log.Logger,
	})
	if err != nil {
		return nil, err
	}

	docCount, _ := index.Count()
	log.Info("Search index initialized", "documents", docCount)

	return &SearchIndexHandle{Index: index}, nil
}

// ProvideIndexingService provides the indexing service.
func ProvideIndexingService(i do.Injector) (*service.IndexingService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewIndexingService(indexHandle.Index, storeHandle.Store, cfg.Index.BatchPause, log.Logger), nil
}

// ProvideIndexHooks provides the change listener and wires it into the store
// so writes propagate to the search index.
func ProvideIndexHooks(i do.Injector) (*service.IndexHooks, error) {
	indexing := do.MustInvoke[*service.IndexingService](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	hooks := service.NewIndexHooks(indexing, storeHandle.Store, log.Logger)
	storeHandle.SetIndexHooks(hooks)

	return hooks, nil
}

// ProvideSearchService provides the search query service.
func ProvideSearchService(i do.Injector) (*service.SearchService, error) {
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewSearchService(indexHandle.Index, log.Logger), nil
}

// ProvideAdminService provides the index administration service.
func ProvideAdminService(i do.Injector) (*service.AdminService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	indexing := do.MustInvoke[*service.IndexingService](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewAdminService(indexing, indexHandle.Index, cfg.Index.SyncWindowHours, log.Logger), nil
}

// TriggerIndexBuildIfNeeded starts a background bulk index when the index
// is empty but the source has records. Should be called after all services
// are wired.
func TriggerIndexBuildIfNeeded(i do.Injector) {
	cfg := do.MustInvoke[*config.Config](i)
	indexing := do.MustInvoke[*service.IndexingService](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	docCount, err := indexHandle.Count()
	if err != nil || docCount > 0 {
		return
	}

	ctx := context.Background()
	dbCount, err := storeHandle.CountImages(ctx)
	if err != nil || dbCount == 0 {
		return
	}

	log.Info("Search index is empty but images exist, triggering initial index build",
		"image_count", dbCount,
	)

	go func() {
		processed, err := indexing.IndexAll(context.Background(), cfg.Index.BatchSize)
		if err != nil {
			log.Error("Initial index build failed", "error", err, "processed", processed)
			return
		}
		log.Info("Initial index build completed", "documents", processed)
	}()
}
