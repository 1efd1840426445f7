// Package domain defines the core entities of the ArtRiver gallery.
package domain

import "time"

// Image is a single artwork record in the relational store.
// It is the source of truth from which the search index is derived.
type Image struct {
	ID int64 `json:"id"`

	// PID is the external platform identifier (e.g. a pixiv illust id).
	// Tags join against it, not against ID.
	PID string `json:"pid"`

	Title    string `json:"title,omitempty"`
	Author   string `json:"author,omitempty"`
	AuthorID string `json:"author_id,omitempty"`
	Platform string `json:"platform,omitempty"`

	Width  int `json:"width,omitempty"`
	Height int `json:"height,omitempty"`

	Filename     string `json:"filename"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	RawURL       string `json:"raw_url,omitempty"`

	// XRestrict marks adult content; AIType marks AI-generated works.
	XRestrict bool `json:"x_restrict"`
	AIType    bool `json:"ai_type"`

	CreatedAt time.Time `json:"created_at"`
}

// ImageTag associates a tag with every image sharing a PID.
// Tag text may carry one or more leading '#' markers from the ingest
// pipeline; consumers strip them before use.
type ImageTag struct {
	PID string `json:"pid"`
	Tag string `json:"tag"`
}
