// Package search provides full-text search over the gallery using Bleve.
// It owns the derived search index: document transformation, index
// maintenance, queries with faceted filtering, and suggestions.
package search

import (
	"strconv"
	"strings"
	"time"

	"github.com/artriverapp/artriver-server/internal/domain"
)

// Document is the flat, denormalized record stored in the search index.
// It is fully derived from an Image plus its tags and can always be
// reconstructed by re-running NewDocument, so the index is disposable.
type Document struct {
	// ID is the string form of the source image id and the index primary key.
	ID string `json:"id"`

	Title    string   `json:"title,omitempty"`
	Author   string   `json:"author,omitempty"`
	AuthorID string   `json:"author_id,omitempty"`
	Platform string   `json:"platform,omitempty"`
	Tags     []string `json:"tags,omitempty"`

	Width  int `json:"width,omitempty"`
	Height int `json:"height,omitempty"`

	Filename     string `json:"filename,omitempty"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	RawURL       string `json:"raw_url,omitempty"`

	XRestrict bool `json:"x_restrict"`
	AIType    bool `json:"ai_type"`

	// CreatedAt is RFC3339 in UTC; lexicographic order matches time order.
	CreatedAt string `json:"created_at"`

	// SearchableContent is the whitespace-joined concatenation of title,
	// author, tags, and platform with empty components dropped. It gives
	// free-text queries a single field covering everything.
	SearchableContent string `json:"searchable_content,omitempty"`
}

// NewDocument maps an image record and its tag list into a search document.
// Pure and deterministic: identical input yields an identical document.
// A nil tag slice is treated as empty.
func NewDocument(img *domain.Image, tags []string) *Document {
	cleaned := CleanTags(tags)

	parts := make([]string, 0, len(cleaned)+3)
	if img.Title != "" {
		parts = append(parts, img.Title)
	}
	if img.Author != "" {
		parts = append(parts, img.Author)
	}
	parts = append(parts, cleaned...)
	if img.Platform != "" {
		parts = append(parts, img.Platform)
	}

	return &Document{
		ID:                strconv.FormatInt(img.ID, 10),
		Title:             img.Title,
		Author:            img.Author,
		AuthorID:          img.AuthorID,
		Platform:          img.Platform,
		Tags:              cleaned,
		Width:             img.Width,
		Height:            img.Height,
		Filename:          img.Filename,
		ThumbnailURL:      img.ThumbnailURL,
		RawURL:            img.RawURL,
		XRestrict:         img.XRestrict,
		AIType:            img.AIType,
		CreatedAt:         img.CreatedAt.UTC().Format(time.RFC3339),
		SearchableContent: strings.Join(parts, " "),
	}
}

// CleanTags strips leading '#' markers, drops entries left empty, and
// deduplicates preserving first-seen order.
func CleanTags(tags []string) []string {
	cleaned := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))

	for _, tag := range tags {
		tag = strings.TrimLeft(tag, "#")
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		cleaned = append(cleaned, tag)
	}

	return cleaned
}

// ToMap converts the document to a map with lowercase field names matching
// the index mapping. Optional fields are omitted entirely when absent so an
// empty string never produces a false-positive match.
func (d *Document) ToMap() map[string]interface{} {
	m := map[string]interface{}{
		"id":         d.ID,
		"x_restrict": d.XRestrict,
		"ai_type":    d.AIType,
		"created_at": d.CreatedAt,
	}

	if d.Title != "" {
		m["title"] = d.Title
	}
	if d.Author != "" {
		m["author"] = d.Author
	}
	if d.AuthorID != "" {
		m["author_id"] = d.AuthorID
	}
	if d.Platform != "" {
		m["platform"] = d.Platform
	}
	if len(d.Tags) > 0 {
		m["tags"] = d.Tags
	}
	if d.Width > 0 {
		m["width"] = d.Width
	}
	if d.Height > 0 {
		m["height"] = d.Height
	}
	if d.Filename != "" {
		m["filename"] = d.Filename
	}
	if d.ThumbnailURL != "" {
		m["thumbnail_url"] = d.ThumbnailURL
	}
	if d.RawURL != "" {
		m["raw_url"] = d.RawURL
	}
	if d.SearchableContent != "" {
		m["searchable_content"] = d.SearchableContent
	}

	return m
}
