package search

import (
	"context"
	"math"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	apperrors "github.com/artriverapp/artriver-server/internal/errors"
)

// Params configures a search query.
type Params struct {
	Query string // Free-text query

	// Filters, combined conjunctively
	ID           string   // Exact document id
	Platform     string   // Exact platform name
	Tags         []string // Every listed tag must match
	Artist       string   // Exact author name
	ExcludeAdult bool     // Drop x_restrict documents
	AdultOnly    bool     // Keep only x_restrict documents

	// Range filters, also conjunctive; zero values mean unbounded
	MinWidth      int
	MaxWidth      int
	MinHeight     int
	MaxHeight     int
	CreatedAfter  string // RFC3339, inclusive lower bound
	CreatedBefore string // RFC3339, exclusive upper bound

	// Pagination
	Limit  int
	Offset int

	// Sorting
	SortBy    string // "relevance", "title", "author", "recent"
	SortOrder string // "asc", "desc"

	// Options
	IncludeFacets bool     // Include facet counts in results
	FacetFields   []string // Which fields to facet on
	Highlight     bool     // Include match highlighting
}

// DefaultParams returns sensible defaults.
func DefaultParams() Params {
	return Params{
		Limit:         20,
		Offset:        0,
		SortBy:        "relevance",
		SortOrder:     "desc",
		IncludeFacets: true,
		FacetFields:   []string{"platform", "tags", "author"},
		Highlight:     true,
	}
}

// Result holds search results.
//
// Total is the engine's estimate and must be treated as approximate for
// pagination: the engine may revise it as segments merge.
type Result struct {
	Query  string `json:"query"`
	Total  uint64 `json:"total"`
	TookMs int64  `json:"took_ms"`
	Hits   []Hit  `json:"hits"`
	Facets Facets `json:"facets,omitempty"`
}

// Hit is a single search result.
type Hit struct {
	ID           string            `json:"id"`
	Score        float64           `json:"score"`
	Title        string            `json:"title,omitempty"`
	Author       string            `json:"author,omitempty"`
	AuthorID     string            `json:"author_id,omitempty"`
	Platform     string            `json:"platform,omitempty"`
	Tags         []string          `json:"tags,omitempty"`
	Width        int               `json:"width,omitempty"`
	Height       int               `json:"height,omitempty"`
	Filename     string            `json:"filename,omitempty"`
	ThumbnailURL string            `json:"thumbnail_url,omitempty"`
	RawURL       string            `json:"raw_url,omitempty"`
	XRestrict    bool              `json:"x_restrict"`
	AIType       bool              `json:"ai_type"`
	CreatedAt    string            `json:"created_at,omitempty"`
	Highlights   map[string]string `json:"highlights,omitempty"`
}

// Facets contains facet counts.
type Facets struct {
	Platforms []FacetCount `json:"platforms,omitempty"`
	Tags      []FacetCount `json:"tags,omitempty"`
	Authors   []FacetCount `json:"authors,omitempty"`
}

// FacetCount represents a facet value and its count.
type FacetCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// querySynonyms expands free-text queries at query time. Keeping the table
// here instead of in the engine keeps initialization idempotent and the
// expansion inspectable.
var querySynonyms = map[string][]string{
	"artwork":      {"illustration"},
	"illustration": {"artwork"},
	"wallpaper":    {"background"},
	"girl":         {"1girl"},
	"boy":          {"1boy"},
}

// Search executes a search query.
func (s *Index) Search(ctx context.Context, params Params) (*Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	searchQuery := buildSearchQuery(params)

	searchRequest := bleve.NewSearchRequestOptions(searchQuery, params.Limit, params.Offset, false)

	addSorting(searchRequest, params)

	if params.IncludeFacets {
		addFacets(searchRequest, params)
	}

	if params.Highlight {
		searchRequest.Highlight = bleve.NewHighlight()
		searchRequest.Highlight.AddField("title")
		searchRequest.Highlight.AddField("searchable_content")
	}

	searchRequest.Fields = []string{
		"id", "title", "author", "author_id", "platform", "tags",
		"width", "height", "filename", "thumbnail_url", "raw_url",
		"x_restrict", "ai_type", "created_at",
	}

	searchResult, err := s.index.SearchInContext(ctx, searchRequest)
	if err != nil {
		return nil, apperrors.SearchBackend("execute search", err)
	}

	result := &Result{
		Query:  params.Query,
		Total:  searchResult.Total,
		TookMs: searchResult.Took.Milliseconds(),
		Hits:   make([]Hit, 0, len(searchResult.Hits)),
	}

	for _, hit := range searchResult.Hits {
		h := Hit{
			ID:    hit.ID,
			Score: hit.Score,
		}

		h.Title = stringField(hit.Fields, "title")
		h.Author = stringField(hit.Fields, "author")
		h.AuthorID = stringField(hit.Fields, "author_id")
		h.Platform = stringField(hit.Fields, "platform")
		h.Tags = stringSliceField(hit.Fields, "tags")
		h.Width = intField(hit.Fields, "width")
		h.Height = intField(hit.Fields, "height")
		h.Filename = stringField(hit.Fields, "filename")
		h.ThumbnailURL = stringField(hit.Fields, "thumbnail_url")
		h.RawURL = stringField(hit.Fields, "raw_url")
		h.XRestrict = boolField(hit.Fields, "x_restrict")
		h.AIType = boolField(hit.Fields, "ai_type")
		h.CreatedAt = stringField(hit.Fields, "created_at")

		if len(hit.Fragments) > 0 {
			h.Highlights = make(map[string]string)
			for field, fragments := range hit.Fragments {
				if len(fragments) > 0 {
					h.Highlights[field] = fragments[0]
				}
			}
		}

		result.Hits = append(result.Hits, h)
	}

	if params.IncludeFacets {
		result.Facets = extractFacets(searchResult)
	}

	return result, nil
}

// SearchByTag is a convenience wrapper filtering to a single tag.
func (s *Index) SearchByTag(ctx context.Context, tag string, params Params) (*Result, error) {
	params.Tags = append(params.Tags, strings.TrimLeft(tag, "#"))
	return s.Search(ctx, params)
}

// SearchByArtist is a convenience wrapper filtering to one author name.
func (s *Index) SearchByArtist(ctx context.Context, author string, params Params) (*Result, error) {
	params.Artist = author
	return s.Search(ctx, params)
}

// SearchByPlatform is a convenience wrapper filtering to one platform.
func (s *Index) SearchByPlatform(ctx context.Context, platform string, params Params) (*Result, error) {
	params.Platform = platform
	return s.Search(ctx, params)
}

// buildSearchQuery constructs the Bleve query from params.
func buildSearchQuery(params Params) query.Query {
	var queries []query.Query

	// Main text query: boosted title match, catch-all content match,
	// fuzzy typo tolerance, prefix for incremental typing, plus
	// query-time synonym expansion over the content field.
	if params.Query != "" {
		textQueries := []query.Query{}

		titleMatch := bleve.NewMatchQuery(params.Query)
		titleMatch.SetField("title")
		titleMatch.SetBoost(3.0)
		textQueries = append(textQueries, titleMatch)

		contentMatch := bleve.NewMatchQuery(params.Query)
		contentMatch.SetField("searchable_content")
		contentMatch.SetBoost(1.5)
		textQueries = append(textQueries, contentMatch)

		fuzzyQuery := bleve.NewFuzzyQuery(params.Query)
		fuzzyQuery.SetFuzziness(1)
		fuzzyQuery.SetField("title")
		fuzzyQuery.SetBoost(0.8)
		textQueries = append(textQueries, fuzzyQuery)

		if len(params.Query) >= 2 {
			prefixQuery := bleve.NewPrefixQuery(strings.ToLower(params.Query))
			prefixQuery.SetField("title")
			prefixQuery.SetBoost(0.5)
			textQueries = append(textQueries, prefixQuery)
		}

		for _, syn := range querySynonyms[strings.ToLower(params.Query)] {
			synMatch := bleve.NewMatchQuery(syn)
			synMatch.SetField("searchable_content")
			synMatch.SetBoost(0.7)
			textQueries = append(textQueries, synMatch)
		}

		queries = append(queries, bleve.NewDisjunctionQuery(textQueries...))
	}

	// Exact id filter
	if params.ID != "" {
		idQuery := bleve.NewTermQuery(params.ID)
		idQuery.SetField("id")
		queries = append(queries, idQuery)
	}

	// Platform filter
	if params.Platform != "" {
		platformQuery := bleve.NewTermQuery(params.Platform)
		platformQuery.SetField("platform")
		queries = append(queries, platformQuery)
	}

	// Tag filters - every listed tag must match
	for _, tag := range params.Tags {
		tagQuery := bleve.NewTermQuery(tag)
		tagQuery.SetField("tags")
		queries = append(queries, tagQuery)
	}

	// Artist filter
	if params.Artist != "" {
		artistQuery := bleve.NewTermQuery(params.Artist)
		artistQuery.SetField("author")
		queries = append(queries, artistQuery)
	}

	// Width range filter
	if params.MinWidth > 0 || params.MaxWidth > 0 {
		min := float64(params.MinWidth)
		max := float64(params.MaxWidth)
		if params.MaxWidth == 0 {
			max = math.MaxFloat64
		}
		rangeQuery := bleve.NewNumericRangeQuery(&min, &max)
		rangeQuery.SetField("width")
		queries = append(queries, rangeQuery)
	}

	// Height range filter
	if params.MinHeight > 0 || params.MaxHeight > 0 {
		min := float64(params.MinHeight)
		max := float64(params.MaxHeight)
		if params.MaxHeight == 0 {
			max = math.MaxFloat64
		}
		rangeQuery := bleve.NewNumericRangeQuery(&min, &max)
		rangeQuery.SetField("height")
		queries = append(queries, rangeQuery)
	}

	// Creation window - created_at is fixed-width RFC3339 in UTC, so a
	// term range compares chronologically. Empty bounds are open ends.
	if params.CreatedAfter != "" || params.CreatedBefore != "" {
		rangeQuery := bleve.NewTermRangeQuery(params.CreatedAfter, params.CreatedBefore)
		rangeQuery.SetField("created_at")
		queries = append(queries, rangeQuery)
	}

	// Adult-content flag
	if params.ExcludeAdult {
		safeQuery := bleve.NewBoolFieldQuery(false)
		safeQuery.SetField("x_restrict")
		queries = append(queries, safeQuery)
	} else if params.AdultOnly {
		adultQuery := bleve.NewBoolFieldQuery(true)
		adultQuery.SetField("x_restrict")
		queries = append(queries, adultQuery)
	}

	if len(queries) == 0 {
		return bleve.NewMatchAllQuery()
	}
	if len(queries) == 1 {
		return queries[0]
	}
	return bleve.NewConjunctionQuery(queries...)
}

// addSorting configures sort order.
func addSorting(req *bleve.SearchRequest, params Params) {
	switch params.SortBy {
	case "title":
		if params.SortOrder == "desc" {
			req.SortBy([]string{"-title"})
		} else {
			req.SortBy([]string{"title"})
		}
	case "author":
		if params.SortOrder == "desc" {
			req.SortBy([]string{"-author", "-title"})
		} else {
			req.SortBy([]string{"author", "title"})
		}
	case "recent":
		if params.SortOrder == "asc" {
			req.SortBy([]string{"created_at"})
		} else {
			req.SortBy([]string{"-created_at"})
		}
	default:
		// Relevance (score) is default
		req.SortBy([]string{"-_score"})
	}
}

// addFacets configures facet requests.
func addFacets(req *bleve.SearchRequest, params Params) {
	fields := params.FacetFields
	if len(fields) == 0 {
		fields = []string{"platform", "tags", "author"}
	}
	for _, field := range fields {
		facetReq := bleve.NewFacetRequest(field, 20) // Top 20 values
		req.AddFacet(field, facetReq)
	}
}

// extractFacets converts Bleve facets to our format.
func extractFacets(result *bleve.SearchResult) Facets {
	facets := Facets{}

	if platformFacet, ok := result.Facets["platform"]; ok {
		for _, term := range platformFacet.Terms.Terms() {
			facets.Platforms = append(facets.Platforms, FacetCount{
				Value: term.Term,
				Count: term.Count,
			})
		}
	}

	if tagsFacet, ok := result.Facets["tags"]; ok {
		for _, term := range tagsFacet.Terms.Terms() {
			facets.Tags = append(facets.Tags, FacetCount{
				Value: term.Term,
				Count: term.Count,
			})
		}
	}

	if authorFacet, ok := result.Facets["author"]; ok {
		for _, term := range authorFacet.Terms.Terms() {
			facets.Authors = append(facets.Authors, FacetCount{
				Value: term.Term,
				Count: term.Count,
			})
		}
	}

	return facets
}

// stringField extracts a stored string field.
func stringField(fields map[string]interface{}, name string) string {
	if v, ok := fields[name].(string); ok {
		return v
	}
	return ""
}

// stringSliceField extracts a stored multi-valued string field. Bleve
// returns a bare string when a document stored exactly one value.
func stringSliceField(fields map[string]interface{}, name string) []string {
	switch v := fields[name].(type) {
	case string:
		return []string{v}
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// intField extracts a stored numeric field (Bleve returns float64).
func intField(fields map[string]interface{}, name string) int {
	if v, ok := fields[name].(float64); ok {
		return int(v)
	}
	return 0
}

// boolField extracts a stored boolean field.
func boolField(fields map[string]interface{}, name string) bool {
	if v, ok := fields[name].(bool); ok {
		return v
	}
	return false
}
