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

const snippetColumns = `id, title, content, "trigger", description, folder_id, user_id, created_at, updated_at`

func scanSnippet(row scanner) (*models.Snippet, error) {
	var (
		sn                    models.Snippet
		description, folderID sql.NullString
		created, updated      int64
	)
	err := row.Scan(&sn.ID, &sn.Title, &sn.Content, &sn.Trigger, &description, &folderID,
		&sn.UserID, &created, &updated)
	if err != nil {
		return nil, err
	}
	sn.Description = stringPtr(description)
	sn.FolderID = stringPtr(folderID)
	sn.CreatedAt = fromMillis(created)
	sn.UpdatedAt = fromMillis(updated)
	return &sn, nil
}

func (s *Store) snippet(ctx context.Context, tx dbx.DBTX, id, userID string) (*models.Snippet, error) {
	sn, err := scanSnippet(tx.QueryRowContext(ctx,
		s.q(`SELECT `+snippetColumns+` FROM snippets WHERE id = ? AND user_id = ?`), id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snippet: %w", err)
	}
	return sn, nil
}

// checkFolderRef verifies that folderID names one of the user's folders.
func (s *Store) checkFolderRef(ctx context.Context, tx dbx.DBTX, folderID *string, userID string) error {
	if folderID == nil {
		return nil
	}
	n, err := countQuery(ctx, tx,
		s.q(`SELECT COUNT(*) FROM folders WHERE id = ? AND user_id = ?`), *folderID, userID)
	if err != nil {
		return fmt.Errorf("failed to check folder: %w", err)
	}
	if n == 0 {
		return storage.FolderNotFound(*folderID)
	}
	return nil
}

// checkTrigger verifies no other snippet of the user uses trigger.
func (s *Store) checkTrigger(ctx context.Context, tx dbx.DBTX, trigger, userID, selfID string) error {
	n, err := countQuery(ctx, tx,
		s.q(`SELECT COUNT(*) FROM snippets WHERE user_id = ? AND "trigger" = ? AND id <> ?`),
		userID, trigger, selfID)
	if err != nil {
		return fmt.Errorf("failed to check trigger: %w", err)
	}
	if n > 0 {
		return storage.ErrDuplicateTrigger
	}
	return nil
}

// ListSnippets returns the user's snippets, most recently updated first.
func (s *Store) ListSnippets(ctx context.Context, userID string) ([]*models.Snippet, error) {
	rows, err := s.db.QueryContext(ctx,
		s.q(`SELECT `+snippetColumns+` FROM snippets WHERE user_id = ? ORDER BY updated_at DESC, id DESC`), userID)
	if err != nil {
		return nil, classify("list snippets", err)
	}
	defer rows.Close()

	var snippets []*models.Snippet
	for rows.Next() {
		sn, err := scanSnippet(rows)
		if err != nil {
			return nil, classify("list snippets", err)
		}
		snippets = append(snippets, sn)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list snippets", err)
	}
	return snippets, nil
}

// GetSnippet returns a snippet owned by userID.
func (s *Store) GetSnippet(ctx context.Context, id, userID string) (*models.Snippet, error) {
	sn, err := s.snippet(ctx, s.db, id, userID)
	if err != nil {
		return nil, classify("get snippet", err)
	}
	return sn, nil
}

// GetSnippetByTrigger looks a snippet up by its trigger.
func (s *Store) GetSnippetByTrigger(ctx context.Context, trigger, userID string) (*models.Snippet, error) {
	sn, err := scanSnippet(s.db.QueryRowContext(ctx,
		s.q(`SELECT `+snippetColumns+` FROM snippets WHERE user_id = ? AND "trigger" = ? LIMIT 1`), userID, trigger))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, classify("get snippet by trigger", err)
	}
	return sn, nil
}

// CreateSnippet stores a new snippet.
func (s *Store) CreateSnippet(ctx context.Context, input models.SnippetInput, userID string) (*models.Snippet, error) {
	input, err := storage.NormalizeSnippetInput(input)
	if err != nil {
		return nil, err
	}

	var created *models.Snippet
	err = s.withTx(ctx, "create snippet", func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.checkFolderRef(ctx, tx, input.FolderID, userID); err != nil {
			return err
		}
		if err := s.checkTrigger(ctx, tx, input.Trigger, userID, ""); err != nil {
			return err
		}

		now := s.millis()
		created = &models.Snippet{
			ID:          storage.NewID(),
			Title:       input.Title,
			Content:     input.Content,
			Trigger:     input.Trigger,
			Description: input.Description,
			FolderID:    input.FolderID,
			UserID:      userID,
			CreatedAt:   fromMillis(now),
			UpdatedAt:   fromMillis(now),
		}
		_, err := tx.ExecContext(ctx,
			s.q(`INSERT INTO snippets (`+snippetColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
			created.ID, created.Title, created.Content, created.Trigger,
			nullString(created.Description), nullString(created.FolderID), created.UserID, now, now)
		if s.dialect.IsUniqueViolation(err) {
			return storage.ErrDuplicateTrigger
		}
		if err != nil {
			return fmt.Errorf("failed to insert snippet: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// UpdateSnippet applies a partial update.
func (s *Store) UpdateSnippet(ctx context.Context, id string, update models.SnippetUpdate, userID string) (*models.Snippet, error) {
	var updated *models.Snippet
	err := s.withTx(ctx, "update snippet", func(ctx context.Context, tx dbx.DBTX) error {
		sn, err := s.snippet(ctx, tx, id, userID)
		if err != nil {
			return err
		}
		if err := storage.ApplySnippetUpdate(sn, update); err != nil {
			return err
		}
		if update.FolderID.HasValue() {
			if err := s.checkFolderRef(ctx, tx, sn.FolderID, userID); err != nil {
				return err
			}
		}
		if update.Trigger.HasValue() {
			if err := s.checkTrigger(ctx, tx, sn.Trigger, userID, sn.ID); err != nil {
				return err
			}
		}

		now := s.millis()
		_, err = tx.ExecContext(ctx,
			s.q(`UPDATE snippets SET title = ?, content = ?, "trigger" = ?, description = ?, folder_id = ?, updated_at = ?
				WHERE id = ? AND user_id = ?`),
			sn.Title, sn.Content, sn.Trigger, nullString(sn.Description), nullString(sn.FolderID), now,
			sn.ID, userID)
		if s.dialect.IsUniqueViolation(err) {
			return storage.ErrDuplicateTrigger
		}
		if err != nil {
			return fmt.Errorf("failed to update snippet: %w", err)
		}

		sn.UpdatedAt = fromMillis(now)
		updated = sn
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteSnippet removes a snippet owned by userID.
func (s *Store) DeleteSnippet(ctx context.Context, id, userID string) error {
	res, err := s.db.ExecContext(ctx, s.q(`DELETE FROM snippets WHERE id = ? AND user_id = ?`), id, userID)
	if err != nil {
		return classify("delete snippet", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return classify("delete snippet", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}
