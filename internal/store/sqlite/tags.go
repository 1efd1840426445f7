package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/artriverapp/artriver-server/internal/domain"
	"github.com/artriverapp/artriver-server/internal/store"
)

// GetTagsByPIDs returns all tag rows matching the given pids in a single
// query. Grouping into per-pid lists is left to the caller.
func (s *Store) GetTagsByPIDs(ctx context.Context, pids []string) ([]*domain.ImageTag, error) {
	if len(pids) == 0 {
		return []*domain.ImageTag{}, nil
	}

	placeholders := make([]string, len(pids))
	args := make([]any, len(pids))
	for i, pid := range pids {
		placeholders[i] = "?"
		args[i] = pid
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT pid, tag FROM image_tags WHERE pid IN (`+strings.Join(placeholders, ",")+`) ORDER BY pid, tag`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("query image_tags: %w", err)
	}
	defer rows.Close()

	var tags []*domain.ImageTag
	for rows.Next() {
		var t domain.ImageTag
		if err := rows.Scan(&t.PID, &t.Tag); err != nil {
			return nil, fmt.Errorf("scan image_tag: %w", err)
		}
		tags = append(tags, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	if tags == nil {
		tags = []*domain.ImageTag{}
	}

	return tags, nil
}

// SetImageTags replaces the full tag set for a pid in one transaction, then
// fires the tag-update hook. An empty tag list clears the pid's tags.
func (s *Store) SetImageTags(ctx context.Context, pid string, tags []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM image_tags WHERE pid = ?`, pid); err != nil {
		return fmt.Errorf("delete image_tags: %w", err)
	}

	for _, tag := range tags {
		if tag == "" {
			continue
		}
		_, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO image_tags (pid, tag)
			VALUES (?, ?)`,
			pid,
			tag,
		)
		if err != nil {
			return fmt.Errorf("insert image_tag: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	s.hooks.OnTagsUpdated(ctx, pid)
	return nil
}

// compile-time interface check
var _ store.ImageStore = (*Store)(nil)
