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

// RemapUser moves every folder, snippet and clipboard item of fromUserID to
// toUserID. Folder name or trigger clashes abort the whole remap.
func (s *Store) RemapUser(ctx context.Context, fromUserID, toUserID string) (*storage.RemapResult, error) {
	if err := storage.CheckRemap(fromUserID, toUserID); err != nil {
		return nil, err
	}

	result := &storage.RemapResult{}
	err := s.withTx(ctx, "remap user", func(ctx context.Context, tx dbx.DBTX) error {
		// Конфликты имён папок и триггеров отменяют весь перенос
		var clash string
		err := tx.QueryRowContext(ctx, s.q(`SELECT f.name FROM folders f
			WHERE f.user_id = ? AND f.name <> ?
			AND EXISTS (SELECT 1 FROM folders t WHERE t.user_id = ? AND t.name = f.name)
			ORDER BY f.name LIMIT 1`),
			fromUserID, models.GeneralFolderName, toUserID).Scan(&clash)
		if err == nil {
			return fmt.Errorf("%w: %q", storage.ErrDuplicateName, clash)
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to check folder names: %w", err)
		}

		err = tx.QueryRowContext(ctx, s.q(`SELECT sn."trigger" FROM snippets sn
			WHERE sn.user_id = ?
			AND EXISTS (SELECT 1 FROM snippets t WHERE t.user_id = ? AND t."trigger" = sn."trigger")
			ORDER BY sn."trigger" LIMIT 1`),
			fromUserID, toUserID).Scan(&clash)
		if err == nil {
			return fmt.Errorf("%w: %q", storage.ErrDuplicateTrigger, clash)
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to check triggers: %w", err)
		}

		toGeneral, err := s.ensureGeneral(ctx, tx, toUserID)
		if err != nil {
			return err
		}

		var maxOrder int
		err = tx.QueryRowContext(ctx,
			s.q(`SELECT COALESCE(MAX(sort_order), 0) FROM folders WHERE user_id = ?`), toUserID).Scan(&maxOrder)
		if err != nil {
			return fmt.Errorf("failed to read sort order: %w", err)
		}

		rows, err := tx.QueryContext(ctx,
			s.q(`SELECT `+folderColumns+` FROM folders WHERE user_id = ? ORDER BY sort_order, name, id`), fromUserID)
		if err != nil {
			return fmt.Errorf("failed to query folders: %w", err)
		}
		var fromFolders []*models.Folder
		for rows.Next() {
			f, err := scanFolder(rows)
			if err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan folder: %w", err)
			}
			fromFolders = append(fromFolders, f)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return err
		}
		rows.Close()

		now := s.millis()
		for _, f := range fromFolders {
			// General источника сливается с General получателя
			if f.IsGeneral() {
				_, err := tx.ExecContext(ctx,
					s.q(`UPDATE snippets SET folder_id = ? WHERE user_id = ? AND folder_id = ?`),
					toGeneral.ID, fromUserID, f.ID)
				if err != nil {
					return fmt.Errorf("failed to move general snippets: %w", err)
				}
				if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM folders WHERE id = ?`), f.ID); err != nil {
					return fmt.Errorf("failed to delete general folder: %w", err)
				}
				continue
			}

			maxOrder++
			_, err := tx.ExecContext(ctx,
				s.q(`UPDATE folders SET user_id = ?, sort_order = ?, updated_at = ? WHERE id = ?`),
				toUserID, maxOrder, now, f.ID)
			if err != nil {
				return fmt.Errorf("failed to move folder: %w", err)
			}
			result.Folders++
		}

		res, err := tx.ExecContext(ctx, s.q(`UPDATE snippets SET user_id = ? WHERE user_id = ?`), toUserID, fromUserID)
		if err != nil {
			return fmt.Errorf("failed to move snippets: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		result.Snippets = int(n)

		res, err = tx.ExecContext(ctx, s.q(`UPDATE clipboard_items SET user_id = ? WHERE user_id = ?`), toUserID, fromUserID)
		if err != nil {
			return fmt.Errorf("failed to move clipboard items: %w", err)
		}
		n, err = res.RowsAffected()
		if err != nil {
			return err
		}
		result.ClipboardItems = int(n)

		return s.trimHistory(ctx, tx, toUserID)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
