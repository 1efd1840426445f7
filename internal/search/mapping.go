package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/simple"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
)

// buildIndexMapping creates the Bleve index mapping for gallery documents.
//
// Priorities:
//  1. Fast full-text search on title and searchable_content with English
//     stemming and stop-words
//  2. Exact keyword matching for tag, platform, and author filters/facets
//  3. String-ordered created_at for recency sorting
//  4. URLs and filename stored for result rendering, never analyzed
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = en.AnalyzerName

	docMapping := bleve.NewDocumentMapping()

	// --- Text fields (full-text searchable) ---

	// Title - primary search target, boosted at query time
	titleFieldMapping := bleve.NewTextFieldMapping()
	titleFieldMapping.Analyzer = en.AnalyzerName
	titleFieldMapping.Store = true
	titleFieldMapping.IncludeTermVectors = true // For highlighting
	docMapping.AddFieldMappingsAt("title", titleFieldMapping)

	// Searchable content - the catch-all derived field
	contentFieldMapping := bleve.NewTextFieldMapping()
	contentFieldMapping.Analyzer = en.AnalyzerName
	contentFieldMapping.Store = false
	contentFieldMapping.IncludeTermVectors = true
	docMapping.AddFieldMappingsAt("searchable_content", contentFieldMapping)

	// --- Keyword fields (exact match, filterable, facetable) ---

	// Author - artist names are identities, filtered and faceted exactly;
	// partial-name matches come through searchable_content instead
	authorFieldMapping := bleve.NewTextFieldMapping()
	authorFieldMapping.Analyzer = keyword.Name
	authorFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("author", authorFieldMapping)

	// Tags - keyword analyzer keeps compound tags intact (e.g. "blue-archive")
	tagsFieldMapping := bleve.NewTextFieldMapping()
	tagsFieldMapping.Analyzer = keyword.Name
	tagsFieldMapping.Store = true
	tagsFieldMapping.IncludeTermVectors = true // For faceting
	docMapping.AddFieldMappingsAt("tags", tagsFieldMapping)

	// Platform - enum-like source site name
	platformFieldMapping := bleve.NewTextFieldMapping()
	platformFieldMapping.Analyzer = keyword.Name
	platformFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("platform", platformFieldMapping)

	// ID and author id - exact lookup only
	idFieldMapping := bleve.NewTextFieldMapping()
	idFieldMapping.Analyzer = keyword.Name
	idFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("id", idFieldMapping)

	authorIDFieldMapping := bleve.NewTextFieldMapping()
	authorIDFieldMapping.Analyzer = keyword.Name
	authorIDFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("author_id", authorIDFieldMapping)

	// Filename - searchable with simple analyzer (no stemming)
	filenameFieldMapping := bleve.NewTextFieldMapping()
	filenameFieldMapping.Analyzer = simple.Name
	filenameFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("filename", filenameFieldMapping)

	// created_at - RFC3339 string; keyword keeps it sortable as written
	createdAtFieldMapping := bleve.NewTextFieldMapping()
	createdAtFieldMapping.Analyzer = keyword.Name
	createdAtFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("created_at", createdAtFieldMapping)

	// --- Boolean flags ---

	xRestrictFieldMapping := bleve.NewBooleanFieldMapping()
	xRestrictFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("x_restrict", xRestrictFieldMapping)

	aiTypeFieldMapping := bleve.NewBooleanFieldMapping()
	aiTypeFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("ai_type", aiTypeFieldMapping)

	// --- Numeric fields ---

	widthFieldMapping := bleve.NewNumericFieldMapping()
	widthFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("width", widthFieldMapping)

	heightFieldMapping := bleve.NewNumericFieldMapping()
	heightFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("height", heightFieldMapping)

	// --- Stored-only fields (never searched) ---

	thumbFieldMapping := bleve.NewTextFieldMapping()
	thumbFieldMapping.Index = false
	thumbFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("thumbnail_url", thumbFieldMapping)

	rawFieldMapping := bleve.NewTextFieldMapping()
	rawFieldMapping.Index = false
	rawFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("raw_url", rawFieldMapping)

	indexMapping.AddDocumentMapping("_default", docMapping)

	return indexMapping
}
