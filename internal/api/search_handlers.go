package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	apperrors "github.com/artriverapp/artriver-server/internal/errors"
	"github.com/artriverapp/artriver-server/internal/search"
)

func (s *Server) registerSearchRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "search",
		Method:      http.MethodGet,
		Path:        "/api/v1/search",
		Summary:     "Search images",
		Description: "Full-text search over the image gallery with filters and facets",
		Tags:        []string{"Search"},
	}, s.handleSearch)

	huma.Register(s.api, huma.Operation{
		OperationID: "searchSuggest",
		Method:      http.MethodGet,
		Path:        "/api/v1/search/suggest",
		Summary:     "Search suggestions",
		Description: "Autocomplete suggestions drawn from titles, authors, and tags",
		Tags:        []string{"Search"},
	}, s.handleSuggest)

	huma.Register(s.api, huma.Operation{
		OperationID: "searchArtists",
		Method:      http.MethodGet,
		Path:        "/api/v1/search/artists",
		Summary:     "List artists",
		Description: "Distinct artists in the index with their image counts",
		Tags:        []string{"Search"},
	}, s.handleArtists)
}

// === DTOs ===

// SearchInput contains parameters for searching the gallery.
type SearchInput struct {
	Query         string `query:"q" doc:"Free-text search query"`
	ID            string `query:"id" doc:"Exact document id"`
	Platform      string `query:"platform" doc:"Exact platform name (e.g. pixiv, twitter)"`
	Tags          string `query:"tags" doc:"Comma-separated tags. Every listed tag must match."`
	Artist        string `query:"artist" doc:"Exact artist name"`
	ExcludeAdult  bool   `query:"exclude_adult" doc:"Drop age-restricted images"`
	AdultOnly     bool   `query:"adult_only" doc:"Keep only age-restricted images"`
	MinWidth      int    `query:"min_width" minimum:"0" doc:"Minimum pixel width (inclusive)"`
	MaxWidth      int    `query:"max_width" minimum:"0" doc:"Maximum pixel width (inclusive)"`
	MinHeight     int    `query:"min_height" minimum:"0" doc:"Minimum pixel height (inclusive)"`
	MaxHeight     int    `query:"max_height" minimum:"0" doc:"Maximum pixel height (inclusive)"`
	CreatedAfter  string `query:"created_after" doc:"Creation time lower bound (RFC 3339, inclusive)"`
	CreatedBefore string `query:"created_before" doc:"Creation time upper bound (RFC 3339, exclusive)"`
	Limit         int    `query:"limit" minimum:"0" maximum:"100" doc:"Max results (default 20)"`
	Offset        int    `query:"offset" minimum:"0" doc:"Pagination offset"`
	Sort          string `query:"sort" doc:"Sort order: relevance, title, author, or recent"`
	Order         string `query:"order" doc:"Sort direction: asc or desc"`
	Facets        bool   `query:"facets" doc:"Include facet counts in response"`
	Highlight     bool   `query:"highlight" doc:"Include match highlighting"`
}

// SearchHitResult contains a single search result.
type SearchHitResult struct {
	ID           string            `json:"id" doc:"Document id"`
	Score        float64           `json:"score" doc:"Search relevance score"`
	Title        string            `json:"title,omitempty" doc:"Image title"`
	Author       string            `json:"author,omitempty" doc:"Artist name"`
	AuthorID     string            `json:"author_id,omitempty" doc:"Artist id on the source platform"`
	Platform     string            `json:"platform,omitempty" doc:"Source platform"`
	Tags         []string          `json:"tags,omitempty" doc:"Image tags"`
	Width        int               `json:"width,omitempty" doc:"Pixel width"`
	Height       int               `json:"height,omitempty" doc:"Pixel height"`
	Filename     string            `json:"filename,omitempty" doc:"Stored filename"`
	ThumbnailURL string            `json:"thumbnail_url,omitempty" doc:"Thumbnail URL"`
	RawURL       string            `json:"raw_url,omitempty" doc:"Full-size image URL"`
	XRestrict    bool              `json:"x_restrict" doc:"Age-restricted flag"`
	AIType       bool              `json:"ai_type" doc:"AI-generated flag"`
	CreatedAt    string            `json:"created_at,omitempty" doc:"Creation timestamp (RFC 3339)"`
	Highlights   map[string]string `json:"highlights,omitempty" doc:"Highlighted matches"`
}

// SearchFacets contains facet counts for filtering.
type SearchFacets struct {
	Platforms []FacetCount `json:"platforms,omitempty" doc:"Platform facets"`
	Tags      []FacetCount `json:"tags,omitempty" doc:"Tag facets"`
	Authors   []FacetCount `json:"authors,omitempty" doc:"Artist facets"`
}

// FacetCount represents a facet value and its count.
type FacetCount struct {
	Value string `json:"value" doc:"Facet value"`
	Count int    `json:"count" doc:"Number of matches"`
}

// SearchResponse contains search results.
type SearchResponse struct {
	Query  string            `json:"query" doc:"Original search query"`
	Total  int64             `json:"total" doc:"Approximate total matches"`
	TookMs int64             `json:"took_ms" doc:"Search duration in milliseconds"`
	Hits   []SearchHitResult `json:"hits" doc:"Search results"`
	Facets *SearchFacets     `json:"facets,omitempty" doc:"Facet counts for filtering"`
}

// SearchOutput wraps the search response for Huma.
type SearchOutput struct {
	Body SearchResponse
}

// SuggestInput contains parameters for autocomplete suggestions.
type SuggestInput struct {
	Query string `query:"q" required:"true" minLength:"2" maxLength:"100" doc:"Prefix to complete (at least 2 characters)"`
	Limit int    `query:"limit" minimum:"0" maximum:"20" doc:"Max suggestions (default 10)"`
}

// SuggestResponse contains autocomplete suggestions.
type SuggestResponse struct {
	Query       string   `json:"query" doc:"Original prefix"`
	Suggestions []string `json:"suggestions" doc:"Completion candidates"`
}

// SuggestOutput wraps the suggestion response for Huma.
type SuggestOutput struct {
	Body SuggestResponse
}

// ArtistsResponse lists the artists present in the index.
type ArtistsResponse struct {
	Artists []FacetCount `json:"artists" doc:"Artists with image counts, most prolific first"`
	Total   int          `json:"total" doc:"Number of distinct artists returned"`
}

// ArtistsOutput wraps the artists response for Huma.
type ArtistsOutput struct {
	Body ArtistsResponse
}

// === Handlers ===

func (s *Server) handleSearch(ctx context.Context, input *SearchInput) (*SearchOutput, error) {
	params := search.Params{
		Query:         input.Query,
		ID:            input.ID,
		Platform:      input.Platform,
		Artist:        input.Artist,
		ExcludeAdult:  input.ExcludeAdult,
		AdultOnly:     input.AdultOnly,
		MinWidth:      input.MinWidth,
		MaxWidth:      input.MaxWidth,
		MinHeight:     input.MinHeight,
		MaxHeight:     input.MaxHeight,
		CreatedAfter:  input.CreatedAfter,
		CreatedBefore: input.CreatedBefore,
		Limit:         input.Limit,
		Offset:        input.Offset,
		SortBy:        input.Sort,
		SortOrder:     input.Order,
		IncludeFacets: input.Facets,
		Highlight:     input.Highlight,
	}
	if input.Facets {
		params.FacetFields = search.DefaultParams().FacetFields
	}

	for t := range strings.SplitSeq(input.Tags, ",") {
		t = strings.TrimSpace(t)
		if t != "" {
			params.Tags = append(params.Tags, t)
		}
	}

	result, err := s.services.Search.Search(ctx, params)
	if err != nil {
		return nil, s.searchError(err, input.Query)
	}

	resp := SearchResponse{
		Query:  result.Query,
		Total:  int64(result.Total), //nolint:gosec // Safe: total count won't exceed int64
		TookMs: result.TookMs,
		Hits:   make([]SearchHitResult, 0, len(result.Hits)),
	}

	for i := range result.Hits {
		hit := &result.Hits[i]
		resp.Hits = append(resp.Hits, SearchHitResult{
			ID:           hit.ID,
			Score:        hit.Score,
			Title:        hit.Title,
			Author:       hit.Author,
			AuthorID:     hit.AuthorID,
			Platform:     hit.Platform,
			Tags:         hit.Tags,
			Width:        hit.Width,
			Height:       hit.Height,
			Filename:     hit.Filename,
			ThumbnailURL: hit.ThumbnailURL,
			RawURL:       hit.RawURL,
			XRestrict:    hit.XRestrict,
			AIType:       hit.AIType,
			CreatedAt:    hit.CreatedAt,
			Highlights:   hit.Highlights,
		})
	}

	if input.Facets {
		resp.Facets = convertFacets(result.Facets)
	}

	return &SearchOutput{Body: resp}, nil
}

func (s *Server) handleSuggest(ctx context.Context, input *SuggestInput) (*SuggestOutput, error) {
	suggestions, err := s.services.Search.Suggest(ctx, input.Query, input.Limit)
	if err != nil {
		return nil, s.searchError(err, input.Query)
	}

	if suggestions == nil {
		suggestions = []string{}
	}

	return &SuggestOutput{
		Body: SuggestResponse{
			Query:       input.Query,
			Suggestions: suggestions,
		},
	}, nil
}

func (s *Server) handleArtists(ctx context.Context, _ *struct{}) (*ArtistsOutput, error) {
	artists, err := s.services.Search.Artists(ctx)
	if err != nil {
		return nil, s.searchError(err, "")
	}

	resp := ArtistsResponse{
		Artists: make([]FacetCount, 0, len(artists)),
		Total:   len(artists),
	}
	for _, a := range artists {
		resp.Artists = append(resp.Artists, FacetCount{Value: a.Value, Count: a.Count})
	}

	return &ArtistsOutput{Body: resp}, nil
}

// searchError hides engine internals from public responses. Backend
// failures are logged in full and surfaced as a generic 503.
func (s *Server) searchError(err error, query string) error {
	if apperrors.Is(err, apperrors.ErrSearchBackend) {
		s.logger.Error("Search backend failure", "error", err, "query", query)
		return huma.Error503ServiceUnavailable("search is temporarily unavailable")
	}
	return err
}

func convertFacets(facets search.Facets) *SearchFacets {
	out := &SearchFacets{}
	for _, f := range facets.Platforms {
		out.Platforms = append(out.Platforms, FacetCount{Value: f.Value, Count: f.Count})
	}
	for _, f := range facets.Tags {
		out.Tags = append(out.Tags, FacetCount{Value: f.Value, Count: f.Count})
	}
	for _, f := range facets.Authors {
		out.Authors = append(out.Authors, FacetCount{Value: f.Value, Count: f.Count})
	}
	return out
}
