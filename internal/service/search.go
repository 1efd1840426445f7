package service

import (
	"context"
	"log/slog"
	"strings"

	apperrors "github.com/artriverapp/artriver-server/internal/errors"
	"github.com/artriverapp/artriver-server/internal/search"
)

const (
	// maxSearchLimit caps page size on the public search surface.
	maxSearchLimit = 100

	// Suggestion prefixes shorter than this return nothing useful, so the
	// service rejects them before touching the engine.
	minSuggestPrefix = 2
	maxSuggestLimit  = 20
	defaultSuggest   = 10
)

// SearchService is the read-side facade over the search index. It owns
// parameter sanitization so handlers stay thin.
type SearchService struct {
	index  *search.Index
	logger *slog.Logger
}

// NewSearchService creates the search query service.
func NewSearchService(index *search.Index, logger *slog.Logger) *SearchService {
	return &SearchService{
		index:  index,
		logger: logger,
	}
}

// Search runs a query with sanitized parameters. Limits are clamped rather
// than rejected: an oversized limit is a tuning mistake, not a bad request.
func (s *SearchService) Search(ctx context.Context, params search.Params) (*search.Result, error) {
	if params.Limit <= 0 {
		params.Limit = search.DefaultParams().Limit
	}
	if params.Limit > maxSearchLimit {
		params.Limit = maxSearchLimit
	}
	if params.Offset < 0 {
		params.Offset = 0
	}
	params.Query = strings.TrimSpace(params.Query)

	result, err := s.index.Search(ctx, params)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("search executed",
		"query", params.Query,
		"total", result.Total,
		"took_ms", result.TookMs)
	return result, nil
}

// Suggest returns autocomplete candidates for a prefix. Prefixes shorter
// than two characters are a validation error.
func (s *SearchService) Suggest(ctx context.Context, prefix string, limit int) ([]string, error) {
	prefix = strings.TrimSpace(prefix)
	if len([]rune(prefix)) < minSuggestPrefix {
		return nil, apperrors.Validationf("suggestion prefix must be at least %d characters", minSuggestPrefix)
	}

	if limit <= 0 {
		limit = defaultSuggest
	}
	if limit > maxSuggestLimit {
		limit = maxSuggestLimit
	}

	return s.index.Suggest(ctx, prefix, limit)
}

// Artists lists the distinct authors present in the index with their
// document counts, most prolific first.
func (s *SearchService) Artists(ctx context.Context) ([]search.FacetCount, error) {
	params := search.DefaultParams()
	params.Limit = 0
	params.Highlight = false
	params.IncludeFacets = true
	params.FacetFields = []string{"author"}

	result, err := s.index.Search(ctx, params)
	if err != nil {
		return nil, err
	}
	return result.Facets.Authors, nil
}
