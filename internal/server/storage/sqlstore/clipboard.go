package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iudanet/snipkeeper/internal/dbx"
	"github.com/iudanet/snipkeeper/internal/models"
	"github.com/iudanet/snipkeeper/internal/server/storage"
)

const clipboardColumns = `id, content, type, user_id, created_at`

func scanClipboardItem(row scanner) (*models.ClipboardItem, error) {
	var (
		it      models.ClipboardItem
		created int64
	)
	if err := row.Scan(&it.ID, &it.Content, &it.Type, &it.UserID, &created); err != nil {
		return nil, err
	}
	it.CreatedAt = fromMillis(created)
	return &it, nil
}

// ListClipboardItems returns the user's history, newest first.
func (s *Store) ListClipboardItems(ctx context.Context, userID string) ([]*models.ClipboardItem, error) {
	rows, err := s.db.QueryContext(ctx,
		s.q(`SELECT `+clipboardColumns+` FROM clipboard_items WHERE user_id = ? ORDER BY created_at DESC, id DESC`), userID)
	if err != nil {
		return nil, classify("list clipboard items", err)
	}
	defer rows.Close()

	var items []*models.ClipboardItem
	for rows.Next() {
		it, err := scanClipboardItem(rows)
		if err != nil {
			return nil, classify("list clipboard items", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list clipboard items", err)
	}
	return items, nil
}

// CreateClipboardItem stores an item unless an identical one was stored
// within storage.DuplicateWindow, then trims history to the limit.
func (s *Store) CreateClipboardItem(ctx context.Context, input models.ClipboardInput, userID string) (*models.ClipboardItem, error) {
	input, err := storage.NormalizeClipboardInput(input)
	if err != nil {
		return nil, err
	}

	var result *models.ClipboardItem
	err = s.withTx(ctx, "create clipboard item", func(ctx context.Context, tx dbx.DBTX) error {
		now := s.millis()
		cutoff := storage.DuplicateCutoff(fromMillis(now)).UnixMilli()

		// Дубликат: тот же текст и тип строго после cutoff
		existing, err := scanClipboardItem(tx.QueryRowContext(ctx,
			s.q(`SELECT `+clipboardColumns+` FROM clipboard_items
				WHERE user_id = ? AND content = ? AND type = ? AND created_at > ?
				ORDER BY created_at DESC, id DESC LIMIT 1`),
			userID, input.Content, input.Type, cutoff))
		switch {
		case err == nil:
			result = existing
			return nil
		case !errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("failed to check duplicate: %w", err)
		}

		result = &models.ClipboardItem{
			ID:        storage.NewID(),
			Content:   input.Content,
			Type:      input.Type,
			UserID:    userID,
			CreatedAt: fromMillis(now),
		}
		_, err = tx.ExecContext(ctx,
			s.q(`INSERT INTO clipboard_items (`+clipboardColumns+`) VALUES (?, ?, ?, ?, ?)`),
			result.ID, result.Content, result.Type, result.UserID, now)
		if err != nil {
			return fmt.Errorf("failed to insert clipboard item: %w", err)
		}

		return s.trimHistory(ctx, tx, userID)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// trimHistory deletes the oldest items of userID beyond the configured limit.
func (s *Store) trimHistory(ctx context.Context, tx dbx.DBTX, userID string) error {
	settings, err := s.settings(ctx, tx)
	if err != nil {
		return err
	}
	limit := storage.HistoryLimit(settings)

	count, err := countQuery(ctx, tx, s.q(`SELECT COUNT(*) FROM clipboard_items WHERE user_id = ?`), userID)
	if err != nil {
		return fmt.Errorf("failed to count clipboard items: %w", err)
	}
	if count <= limit {
		return nil
	}

	// Удаляем самые старые записи сверх лимита
	rows, err := tx.QueryContext(ctx,
		s.q(`SELECT id FROM clipboard_items WHERE user_id = ? ORDER BY created_at ASC, id ASC LIMIT ?`),
		userID, count-limit)
	if err != nil {
		return fmt.Errorf("failed to select excess clipboard items: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan clipboard id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM clipboard_items WHERE id = ?`), id); err != nil {
			return fmt.Errorf("failed to trim clipboard history: %w", err)
		}
	}
	return nil
}

// DeleteClipboardItem removes one item owned by userID.
func (s *Store) DeleteClipboardItem(ctx context.Context, id, userID string) error {
	res, err := s.db.ExecContext(ctx, s.q(`DELETE FROM clipboard_items WHERE id = ? AND user_id = ?`), id, userID)
	if err != nil {
		return classify("delete clipboard item", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return classify("delete clipboard item", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ClearClipboardHistory removes every item of userID.
func (s *Store) ClearClipboardHistory(ctx context.Context, userID string) (int, error) {
	res, err := s.db.ExecContext(ctx, s.q(`DELETE FROM clipboard_items WHERE user_id = ?`), userID)
	if err != nil {
		return 0, classify("clear clipboard history", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, classify("clear clipboard history", err)
	}
	return int(n), nil
}
