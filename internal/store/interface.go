// Package store defines the persistence interface for the ArtRiver gallery
// and the hooks that keep the search index in step with it.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/artriverapp/artriver-server/internal/domain"
)

// Sentinel errors returned by store implementations.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)

// ImageStore is the relational source of truth for images and their tags.
// The indexing service only uses the read side; the write side exists for
// the ingest paths and fires IndexHooks after each committed mutation.
type ImageStore interface {
	ImageReader
	ImageWriter

	// SetIndexHooks wires the search index hooks fired on write paths.
	SetIndexHooks(hooks IndexHooks)

	Close() error
}

// ImageReader is the read-only view the indexing service depends on.
type ImageReader interface {
	// GetImage returns a single image by primary key.
	// Returns ErrNotFound if no row matches.
	GetImage(ctx context.Context, id int64) (*domain.Image, error)

	// GetImagesByIDs returns all images matching the given ids, in
	// ascending id order. Missing ids are skipped, not errors.
	GetImagesByIDs(ctx context.Context, ids []int64) ([]*domain.Image, error)

	// ListImages returns a page of images ordered by id ascending.
	ListImages(ctx context.Context, offset, limit int) ([]*domain.Image, error)

	// ListImagesSince returns images created at or after the given time.
	ListImagesSince(ctx context.Context, since time.Time) ([]*domain.Image, error)

	// CountImages returns the total number of images.
	CountImages(ctx context.Context) (int64, error)

	// GetImageIDByPID resolves a platform id to the image primary key.
	// Returns ErrNotFound if no image carries the pid.
	GetImageIDByPID(ctx context.Context, pid string) (int64, error)

	// GetTagsByPIDs returns all tag rows matching the given pids in one
	// query. Callers group the result themselves.
	GetTagsByPIDs(ctx context.Context, pids []string) ([]*domain.ImageTag, error)
}

// ImageWriter is the mutation side used by ingest paths.
type ImageWriter interface {
	CreateImage(ctx context.Context, img *domain.Image) error
	UpdateImage(ctx context.Context, img *domain.Image) error
	DeleteImage(ctx context.Context, id int64) error

	// SetImageTags replaces the full tag set for a pid.
	SetImageTags(ctx context.Context, pid string, tags []string) error
}

// IndexHooks is fired synchronously from store write paths so the search
// index tracks the source. Implementations must never return an error that
// would fail the write that triggered them; they swallow and log instead.
type IndexHooks interface {
	OnImageCreated(ctx context.Context, id int64)
	OnImageUpdated(ctx context.Context, id int64)
	OnImageDeleted(ctx context.Context, id int64)
	OnTagsUpdated(ctx context.Context, pid string)
}

// NoopIndexHooks is a no-op implementation for tests and bootstrap.
type NoopIndexHooks struct{}

func (NoopIndexHooks) OnImageCreated(context.Context, int64) {}
func (NoopIndexHooks) OnImageUpdated(context.Context, int64) {}
func (NoopIndexHooks) OnImageDeleted(context.Context, int64) {}
func (NoopIndexHooks) OnTagsUpdated(context.Context, string) {}

// NewNoopIndexHooks returns hooks that do nothing.
func NewNoopIndexHooks() IndexHooks { return NoopIndexHooks{} }
