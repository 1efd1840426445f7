package search

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/blevesearch/bleve/v2"

	apperrors "github.com/artriverapp/artriver-server/internal/errors"
)

// Index wraps a Bleve index with gallery-specific operations. It is the only
// component that talks to the engine; everything else goes through it.
//
// Thread safety: all public methods are safe for concurrent use. The mutex
// protects against index corruption during Clear.
//
// Write semantics: Add/Update/Delete are idempotent by document id. The
// original engine acknowledged task acceptance, not completion, so callers
// must not assume read-your-own-write; Bleve happens to apply synchronously,
// which only strengthens that contract.
type Index struct {
	index  bleve.Index
	path   string
	logger *slog.Logger
	mu     sync.RWMutex // Protects index swap during Clear
}

// Options configures the search index.
type Options struct {
	DataPath string       // Directory for index storage
	Logger   *slog.Logger // Logger for operations (stderr text if nil)
}

// mappingVersion is incremented whenever the index mapping changes.
// This triggers an automatic rebuild on startup when the version doesn't match.
const mappingVersion = "2"

// engineBatchSize chunks large document sets to bound memory while batching.
const engineBatchSize = 500

// Stats reports engine-side index health.
type Stats struct {
	DocumentCount  uint64 `json:"document_count"`
	Path           string `json:"path"`
	MappingVersion string `json:"mapping_version"`
}

// NewIndex opens or creates the search index. Re-runnable without side
// effects beyond configuration: an existing index with the current mapping
// version is opened in place; a corrupt index or a stale mapping version is
// removed and recreated.
func NewIndex(opts Options) (*Index, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}

	indexPath := filepath.Join(opts.DataPath, "gallery.bleve")
	versionPath := filepath.Join(opts.DataPath, "gallery.version")

	var index bleve.Index
	var err error
	needsRebuild := false

	indexExists := false
	if _, statErr := os.Stat(indexPath); statErr == nil {
		indexExists = true
	}

	if indexExists {
		existingVersion, readErr := os.ReadFile(versionPath)
		if readErr != nil {
			logger.Info("search index has no version file, will rebuild with current mapping",
				"new_version", mappingVersion,
			)
			needsRebuild = true
		} else if string(existingVersion) != mappingVersion {
			logger.Info("search index mapping version changed, will rebuild",
				"old_version", string(existingVersion),
				"new_version", mappingVersion,
			)
			needsRebuild = true
		}
	}

	if !needsRebuild && indexExists {
		index, err = bleve.Open(indexPath)
		if err != nil {
			logger.Warn("failed to open existing index, will recreate",
				"path", indexPath,
				"error", err,
			)
			needsRebuild = true
		}
	}

	if needsRebuild {
		if removeErr := os.RemoveAll(indexPath); removeErr != nil {
			return nil, fmt.Errorf("remove old index: %w", removeErr)
		}
		index = nil
	}

	if index == nil {
		indexMapping := buildIndexMapping()
		index, err = bleve.New(indexPath, indexMapping)
		if err != nil {
			return nil, apperrors.SearchBackend("create index", err)
		}
		if writeErr := os.WriteFile(versionPath, []byte(mappingVersion), 0644); writeErr != nil {
			logger.Warn("failed to write search version file", "error", writeErr)
		}
		logger.Info("created new search index", "path", indexPath, "mapping_version", mappingVersion)
	} else {
		logger.Info("opened existing search index", "path", indexPath)
	}

	return &Index{
		index:  index,
		path:   indexPath,
		logger: logger,
	}, nil
}

// Close closes the index and releases resources.
func (s *Index) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Close()
}

// AddDocuments upserts documents into the index in batches. An empty slice
// is a no-op. Re-adding an existing id replaces the previous document.
func (s *Index) AddDocuments(docs []*Document) error {
	if len(docs) == 0 {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := 0; i < len(docs); i += engineBatchSize {
		end := min(i+engineBatchSize, len(docs))
		chunk := docs[i:end]

		batch := s.index.NewBatch()
		for _, doc := range chunk {
			// Convert to map so field names match the mapping (lowercase)
			if err := batch.Index(doc.ID, doc.ToMap()); err != nil {
				return apperrors.SearchBackend(fmt.Sprintf("batch index %s", doc.ID), err)
			}
		}

		if err := s.index.Batch(batch); err != nil {
			return apperrors.SearchBackend(fmt.Sprintf("commit batch %d-%d", i, end), err)
		}
	}

	return nil
}

// UpdateDocuments upserts documents. Identical to AddDocuments because the
// engine keys by id; kept separate so call sites read as intended.
func (s *Index) UpdateDocuments(docs []*Document) error {
	return s.AddDocuments(docs)
}

// DeleteDocuments removes documents by id. Deleting an id that is not in
// the index is not an error.
func (s *Index) DeleteDocuments(ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	batch := s.index.NewBatch()
	for _, id := range ids {
		batch.Delete(id)
	}

	if err := s.index.Batch(batch); err != nil {
		return apperrors.SearchBackend("delete documents", err)
	}
	return nil
}

// Count returns the total number of indexed documents.
func (s *Index) Count() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count, err := s.index.DocCount()
	if err != nil {
		return 0, apperrors.SearchBackend("doc count", err)
	}
	return count, nil
}

// GetStats returns document count and health metadata. Transient engine
// errors are swallowed: callers get nil rather than a failure, since stats
// feed best-effort status displays.
func (s *Index) GetStats() *Stats {
	count, err := s.Count()
	if err != nil {
		s.logger.Warn("failed to read index stats", "error", err)
		return nil
	}

	return &Stats{
		DocumentCount:  count,
		Path:           s.path,
		MappingVersion: mappingVersion,
	}
}

// Clear drops every document by recreating the index. Used only by rebuild.
//
// This acquires an exclusive lock and blocks all other operations; queries
// racing a rebuild see a partially-empty index until repopulation finishes.
// TODO: blue-green index swap would remove that window; needs a second
// index directory and an atomic alias flip.
func (s *Index) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.index.Close(); err != nil {
		return apperrors.SearchBackend("close index", err)
	}

	if err := os.RemoveAll(s.path); err != nil {
		return fmt.Errorf("remove index: %w", err)
	}

	indexMapping := buildIndexMapping()
	index, err := bleve.New(s.path, indexMapping)
	if err != nil {
		return apperrors.SearchBackend("create index", err)
	}

	s.index = index
	s.logger.Info("cleared search index", "path", s.path)

	return nil
}
