package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/artriverapp/artriver-server/internal/domain"
	"github.com/artriverapp/artriver-server/internal/store"
)

// imageColumns is the ordered list of columns selected in image queries.
// Must match the scan order in scanImage.
const imageColumns = `id, pid, title, author, author_id, platform, width, height,
	filename, thumbnail_url, raw_url, x_restrict, ai_type, created_at`

// scanImage scans a sql.Row (or sql.Rows via its Scan method) into a domain.Image.
func scanImage(scanner interface{ Scan(dest ...any) error }) (*domain.Image, error) {
	var img domain.Image

	var (
		title     sql.NullString
		author    sql.NullString
		authorID  sql.NullString
		platform  sql.NullString
		width     sql.NullInt64
		height    sql.NullInt64
		thumbURL  sql.NullString
		rawURL    sql.NullString
		xRestrict int
		aiType    int
		createdAt string
	)

	err := scanner.Scan(
		&img.ID,
		&img.PID,
		&title,
		&author,
		&authorID,
		&platform,
		&width,
		&height,
		&img.Filename,
		&thumbURL,
		&rawURL,
		&xRestrict,
		&aiType,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	img.Title = title.String
	img.Author = author.String
	img.AuthorID = authorID.String
	img.Platform = platform.String
	img.Width = int(width.Int64)
	img.Height = int(height.Int64)
	img.ThumbnailURL = thumbURL.String
	img.RawURL = rawURL.String
	img.XRestrict = xRestrict != 0
	img.AIType = aiType != 0

	img.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}

	return &img, nil
}

// CreateImage inserts a new image and fires the created hook.
// A zero id lets SQLite assign one; the assigned id is written back.
// Returns store.ErrAlreadyExists on duplicate id.
func (s *Store) CreateImage(ctx context.Context, img *domain.Image) error {
	if img.CreatedAt.IsZero() {
		img.CreatedAt = time.Now().UTC()
	}

	var idArg any
	if img.ID != 0 {
		idArg = img.ID
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO images (
			id, pid, title, author, author_id, platform, width, height,
			filename, thumbnail_url, raw_url, x_restrict, ai_type, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		idArg,
		img.PID,
		nullString(img.Title),
		nullString(img.Author),
		nullString(img.AuthorID),
		nullString(img.Platform),
		nullInt(img.Width),
		nullInt(img.Height),
		img.Filename,
		nullString(img.ThumbnailURL),
		nullString(img.RawURL),
		boolToInt(img.XRestrict),
		boolToInt(img.AIType),
		formatTime(img.CreatedAt),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return store.ErrAlreadyExists
		}
		return err
	}

	if img.ID == 0 {
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		img.ID = id
	}

	s.hooks.OnImageCreated(ctx, img.ID)
	return nil
}

// UpdateImage replaces a stored image and fires the updated hook.
// Returns store.ErrNotFound if no row matches the id.
func (s *Store) UpdateImage(ctx context.Context, img *domain.Image) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE images SET
			pid = ?, title = ?, author = ?, author_id = ?, platform = ?,
			width = ?, height = ?, filename = ?, thumbnail_url = ?,
			raw_url = ?, x_restrict = ?, ai_type = ?
		WHERE id = ?`,
		img.PID,
		nullString(img.Title),
		nullString(img.Author),
		nullString(img.AuthorID),
		nullString(img.Platform),
		nullInt(img.Width),
		nullInt(img.Height),
		img.Filename,
		nullString(img.ThumbnailURL),
		nullString(img.RawURL),
		boolToInt(img.XRestrict),
		boolToInt(img.AIType),
		img.ID,
	)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}

	s.hooks.OnImageUpdated(ctx, img.ID)
	return nil
}

// DeleteImage removes an image and its tags, then fires the deleted hook.
func (s *Store) DeleteImage(ctx context.Context, id int64) error {
	img, err := s.GetImage(ctx, id)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM images WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete image: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM image_tags WHERE pid = ?`, img.PID); err != nil {
		return fmt.Errorf("delete image tags: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	s.hooks.OnImageDeleted(ctx, id)
	return nil
}

// GetImage retrieves an image by its primary key.
// Returns store.ErrNotFound if the image does not exist.
func (s *Store) GetImage(ctx context.Context, id int64) (*domain.Image, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+imageColumns+` FROM images WHERE id = ?`, id)

	img, err := scanImage(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return img, nil
}

// GetImagesByIDs returns all images matching the given ids in ascending id
// order. Missing ids are simply absent from the result.
func (s *Store) GetImagesByIDs(ctx context.Context, ids []int64) ([]*domain.Image, error) {
	if len(ids) == 0 {
		return []*domain.Image{}, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+imageColumns+` FROM images WHERE id IN (`+strings.Join(placeholders, ",")+`) ORDER BY id ASC`,
		args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectImages(rows)
}

// ListImages returns a page of images ordered by id ascending.
func (s *Store) ListImages(ctx context.Context, offset, limit int) ([]*domain.Image, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+imageColumns+` FROM images ORDER BY id ASC LIMIT ? OFFSET ?`,
		limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectImages(rows)
}

// ListImagesSince returns images created at or after the given time,
// ordered by id ascending. Timestamps are stored fixed-width in UTC, so
// lexicographic comparison matches chronological order.
func (s *Store) ListImagesSince(ctx context.Context, since time.Time) ([]*domain.Image, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+imageColumns+` FROM images WHERE created_at >= ? ORDER BY id ASC`,
		formatTime(since))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectImages(rows)
}

// CountImages returns the total number of images.
func (s *Store) CountImages(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM images`).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// GetImageIDByPID resolves a platform id to the image primary key.
// Returns store.ErrNotFound if no image carries the pid.
func (s *Store) GetImageIDByPID(ctx context.Context, pid string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM images WHERE pid = ?`, pid).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, store.ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return id, nil
}

// collectImages drains rows into a slice.
func collectImages(rows *sql.Rows) ([]*domain.Image, error) {
	var images []*domain.Image
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if images == nil {
		images = []*domain.Image{}
	}

	return images, nil
}
