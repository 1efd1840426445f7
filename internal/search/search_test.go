package search

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artriverapp/artriver-server/internal/domain"
)

// setupTestIndex creates a temporary search index for testing.
func setupTestIndex(t *testing.T) (*Index, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "search-test-*")
	require.NoError(t, err)

	index, err := NewIndex(Options{
		DataPath: tmpDir,
		Logger:   nil,
	})
	require.NoError(t, err)

	cleanup := func() {
		_ = index.Close()
		_ = os.RemoveAll(tmpDir)
	}

	return index, cleanup
}

func testImage() *domain.Image {
	return &domain.Image{
		ID:        1,
		PID:       "p1",
		Title:     "Sunset Over the Bay",
		Author:    "Ada",
		AuthorID:  "a42",
		Platform:  "pixiv",
		Width:     1920,
		Height:    1080,
		Filename:  "sunset.png",
		CreatedAt: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestNewDocument(t *testing.T) {
	doc := NewDocument(testImage(), []string{"#nature", "sky"})

	assert.Equal(t, "1", doc.ID)
	assert.Equal(t, "Sunset Over the Bay", doc.Title)
	assert.Equal(t, []string{"nature", "sky"}, doc.Tags)
	assert.Equal(t, "Sunset Over the Bay Ada nature sky pixiv", doc.SearchableContent)
	assert.Equal(t, "2024-06-01T12:00:00Z", doc.CreatedAt)
}

func TestNewDocument_Deterministic(t *testing.T) {
	img := testImage()
	tags := []string{"#nature", "sky"}

	first := NewDocument(img, tags)
	second := NewDocument(img, tags)

	assert.Equal(t, first, second)
}

func TestNewDocument_EmptyFieldsDropped(t *testing.T) {
	img := &domain.Image{ID: 7, CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}

	doc := NewDocument(img, nil)

	assert.Equal(t, "7", doc.ID)
	assert.Empty(t, doc.SearchableContent)
	assert.Empty(t, doc.Tags)

	m := doc.ToMap()
	assert.NotContains(t, m, "title")
	assert.NotContains(t, m, "author")
	assert.NotContains(t, m, "tags")
	assert.Contains(t, m, "x_restrict")
	assert.Contains(t, m, "created_at")
}

func TestCleanTags(t *testing.T) {
	cleaned := CleanTags([]string{"#foo", "##bar", "baz", "#", "", "foo"})
	assert.Equal(t, []string{"foo", "bar", "baz"}, cleaned)
}

func TestNewIndex(t *testing.T) {
	index, cleanup := setupTestIndex(t)
	defer cleanup()

	count, err := index.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}

func TestIndex_AddDocuments(t *testing.T) {
	index, cleanup := setupTestIndex(t)
	defer cleanup()

	docs := []*Document{
		NewDocument(testImage(), []string{"nature"}),
		NewDocument(&domain.Image{ID: 2, Title: "Moonlit Garden", Author: "Bea", Platform: "twitter",
			CreatedAt: time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)}, nil),
	}

	err := index.AddDocuments(docs)
	require.NoError(t, err)

	count, err := index.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)
}

func TestIndex_AddDocuments_Empty(t *testing.T) {
	index, cleanup := setupTestIndex(t)
	defer cleanup()

	require.NoError(t, index.AddDocuments(nil))
}

func TestIndex_AddDocuments_UpsertByID(t *testing.T) {
	index, cleanup := setupTestIndex(t)
	defer cleanup()

	img := testImage()
	require.NoError(t, index.AddDocuments([]*Document{NewDocument(img, nil)}))

	img.Title = "Sunrise Over the Bay"
	require.NoError(t, index.AddDocuments([]*Document{NewDocument(img, nil)}))

	count, err := index.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)

	result, err := index.Search(context.Background(), Params{Query: "sunrise", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), result.Total)
}

func TestIndex_DeleteDocuments(t *testing.T) {
	index, cleanup := setupTestIndex(t)
	defer cleanup()

	require.NoError(t, index.AddDocuments([]*Document{NewDocument(testImage(), nil)}))

	require.NoError(t, index.DeleteDocuments([]string{"1"}))

	count, err := index.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)

	// Deleting an unknown id is a no-op
	require.NoError(t, index.DeleteDocuments([]string{"999"}))
}

func TestIndex_Clear(t *testing.T) {
	index, cleanup := setupTestIndex(t)
	defer cleanup()

	require.NoError(t, index.AddDocuments([]*Document{NewDocument(testImage(), nil)}))
	require.NoError(t, index.Clear())

	count, err := index.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)

	// Index remains usable after a clear
	require.NoError(t, index.AddDocuments([]*Document{NewDocument(testImage(), nil)}))
	count, err = index.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}

func TestIndex_PersistsAcrossReopen(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "search-test-*")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	index, err := NewIndex(Options{DataPath: tmpDir})
	require.NoError(t, err)

	require.NoError(t, index.AddDocuments([]*Document{NewDocument(testImage(), nil)}))
	require.NoError(t, index.Close())

	reopened, err := NewIndex(Options{DataPath: tmpDir})
	require.NoError(t, err)
	defer reopened.Close()

	count, err := reopened.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}

func seedSearchDocs(t *testing.T, index *Index) {
	t.Helper()

	images := []*domain.Image{
		{ID: 1, Title: "Sunset Over the Bay", Author: "Ada", Platform: "pixiv",
			Width: 1920, Height: 1080,
			CreatedAt: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)},
		{ID: 2, Title: "Moonlit Garden", Author: "Ada", Platform: "pixiv", XRestrict: true,
			Width: 800, Height: 1200,
			CreatedAt: time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)},
		{ID: 3, Title: "City Lights", Author: "Bea", Platform: "twitter",
			Width: 3840, Height: 2160,
			CreatedAt: time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)},
	}
	tags := [][]string{
		{"nature", "sky"},
		{"nature", "night"},
		{"urban", "night"},
	}

	docs := make([]*Document, len(images))
	for i, img := range images {
		docs[i] = NewDocument(img, tags[i])
	}
	require.NoError(t, index.AddDocuments(docs))
}

func TestIndex_Search_Basic(t *testing.T) {
	index, cleanup := setupTestIndex(t)
	defer cleanup()
	seedSearchDocs(t, index)

	result, err := index.Search(context.Background(), Params{Query: "sunset", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), result.Total)
	require.Len(t, result.Hits, 1)
	assert.Equal(t, "1", result.Hits[0].ID)
	assert.Equal(t, "Sunset Over the Bay", result.Hits[0].Title)
}

func TestIndex_Search_MatchAll(t *testing.T) {
	index, cleanup := setupTestIndex(t)
	defer cleanup()
	seedSearchDocs(t, index)

	result, err := index.Search(context.Background(), Params{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, uint64(3), result.Total)
}

func TestIndex_Search_TagFilterConjunctive(t *testing.T) {
	index, cleanup := setupTestIndex(t)
	defer cleanup()
	seedSearchDocs(t, index)

	result, err := index.Search(context.Background(), Params{Tags: []string{"nature", "night"}, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), result.Total)
	require.Len(t, result.Hits, 1)
	assert.Equal(t, "2", result.Hits[0].ID)
}

func TestIndex_Search_PlatformFilter(t *testing.T) {
	index, cleanup := setupTestIndex(t)
	defer cleanup()
	seedSearchDocs(t, index)

	result, err := index.SearchByPlatform(context.Background(), "twitter", Params{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), result.Total)
	assert.Equal(t, "3", result.Hits[0].ID)
}

func TestIndex_Search_ArtistFilter(t *testing.T) {
	index, cleanup := setupTestIndex(t)
	defer cleanup()
	seedSearchDocs(t, index)

	result, err := index.SearchByArtist(context.Background(), "Ada", Params{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), result.Total)
}

func TestIndex_SearchByTag_StripsMarker(t *testing.T) {
	index, cleanup := setupTestIndex(t)
	defer cleanup()
	seedSearchDocs(t, index)

	result, err := index.SearchByTag(context.Background(), "#urban", Params{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), result.Total)
	assert.Equal(t, "3", result.Hits[0].ID)
}

func TestIndex_Search_AdultFilters(t *testing.T) {
	index, cleanup := setupTestIndex(t)
	defer cleanup()
	seedSearchDocs(t, index)

	excluded, err := index.Search(context.Background(), Params{ExcludeAdult: true, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), excluded.Total)
	for _, hit := range excluded.Hits {
		assert.False(t, hit.XRestrict)
	}

	only, err := index.Search(context.Background(), Params{AdultOnly: true, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), only.Total)
	assert.Equal(t, "2", only.Hits[0].ID)
}

func TestIndex_Search_WidthRange(t *testing.T) {
	index, cleanup := setupTestIndex(t)
	defer cleanup()
	seedSearchDocs(t, index)

	// Open upper bound
	wide, err := index.Search(context.Background(), Params{MinWidth: 1000, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), wide.Total)
	assert.ElementsMatch(t, []string{"1", "3"}, hitIDs(wide))

	// Both bounds
	mid, err := index.Search(context.Background(), Params{MinWidth: 1000, MaxWidth: 2000, Limit: 10})
	require.NoError(t, err)
	require.Len(t, mid.Hits, 1)
	assert.Equal(t, "1", mid.Hits[0].ID)

	// Open lower bound
	narrow, err := index.Search(context.Background(), Params{MaxWidth: 900, Limit: 10})
	require.NoError(t, err)
	require.Len(t, narrow.Hits, 1)
	assert.Equal(t, "2", narrow.Hits[0].ID)
}

func TestIndex_Search_HeightRange(t *testing.T) {
	index, cleanup := setupTestIndex(t)
	defer cleanup()
	seedSearchDocs(t, index)

	tall, err := index.Search(context.Background(), Params{MinHeight: 1100, Limit: 10})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"2", "3"}, hitIDs(tall))
}

func TestIndex_Search_CreatedWindow(t *testing.T) {
	index, cleanup := setupTestIndex(t)
	defer cleanup()
	seedSearchDocs(t, index)

	// Lower bound is inclusive
	after, err := index.Search(context.Background(), Params{CreatedAfter: "2024-06-02T00:00:00Z", Limit: 10})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"2", "3"}, hitIDs(after))

	// Upper bound is exclusive
	before, err := index.Search(context.Background(), Params{CreatedBefore: "2024-06-02T00:00:00Z", Limit: 10})
	require.NoError(t, err)
	require.Len(t, before.Hits, 1)
	assert.Equal(t, "1", before.Hits[0].ID)

	window, err := index.Search(context.Background(), Params{
		CreatedAfter:  "2024-06-02T00:00:00Z",
		CreatedBefore: "2024-06-03T00:00:00Z",
		Limit:         10,
	})
	require.NoError(t, err)
	require.Len(t, window.Hits, 1)
	assert.Equal(t, "2", window.Hits[0].ID)
}

func hitIDs(result *Result) []string {
	ids := make([]string, 0, len(result.Hits))
	for _, hit := range result.Hits {
		ids = append(ids, hit.ID)
	}
	return ids
}

func TestIndex_Search_SortRecent(t *testing.T) {
	index, cleanup := setupTestIndex(t)
	defer cleanup()
	seedSearchDocs(t, index)

	result, err := index.Search(context.Background(), Params{SortBy: "recent", Limit: 10})
	require.NoError(t, err)
	require.Len(t, result.Hits, 3)
	assert.Equal(t, "3", result.Hits[0].ID)
	assert.Equal(t, "1", result.Hits[2].ID)
}

func TestIndex_Search_Facets(t *testing.T) {
	index, cleanup := setupTestIndex(t)
	defer cleanup()
	seedSearchDocs(t, index)

	result, err := index.Search(context.Background(), Params{
		Limit:         10,
		IncludeFacets: true,
		FacetFields:   []string{"platform", "tags", "author"},
	})
	require.NoError(t, err)

	platforms := map[string]int{}
	for _, f := range result.Facets.Platforms {
		platforms[f.Value] = f.Count
	}
	assert.Equal(t, 2, platforms["pixiv"])
	assert.Equal(t, 1, platforms["twitter"])

	authors := map[string]int{}
	for _, f := range result.Facets.Authors {
		authors[f.Value] = f.Count
	}
	assert.Equal(t, 2, authors["Ada"])
}

func TestIndex_Search_Pagination(t *testing.T) {
	index, cleanup := setupTestIndex(t)
	defer cleanup()
	seedSearchDocs(t, index)

	page, err := index.Search(context.Background(), Params{Limit: 2, SortBy: "recent"})
	require.NoError(t, err)
	assert.Equal(t, uint64(3), page.Total)
	assert.Len(t, page.Hits, 2)

	next, err := index.Search(context.Background(), Params{Limit: 2, Offset: 2, SortBy: "recent"})
	require.NoError(t, err)
	assert.Len(t, next.Hits, 1)
	assert.Equal(t, "1", next.Hits[0].ID)
}

func TestIndex_Suggest(t *testing.T) {
	index, cleanup := setupTestIndex(t)
	defer cleanup()
	seedSearchDocs(t, index)

	suggestions, err := index.Suggest(context.Background(), "sun", 10)
	require.NoError(t, err)
	assert.Contains(t, suggestions, "Sunset Over the Bay")
}

func TestIndex_Suggest_Dedup(t *testing.T) {
	index, cleanup := setupTestIndex(t)
	defer cleanup()

	images := []*domain.Image{
		{ID: 1, Title: "Cat Nap", CreatedAt: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)},
		{ID: 2, Title: "Dog Days", CreatedAt: time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)},
	}
	docs := []*Document{
		NewDocument(images[0], []string{"cat"}),
		NewDocument(images[1], []string{"cat"}),
	}
	require.NoError(t, index.AddDocuments(docs))

	suggestions, err := index.Suggest(context.Background(), "cat", 10)
	require.NoError(t, err)

	occurrences := 0
	for _, s := range suggestions {
		if s == "cat" {
			occurrences++
		}
	}
	assert.Equal(t, 1, occurrences)
}
