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

const folderColumns = `id, name, user_id, sort_order, created_at, updated_at`

func scanFolder(row scanner) (*models.Folder, error) {
	var (
		f                models.Folder
		created, updated int64
	)
	if err := row.Scan(&f.ID, &f.Name, &f.UserID, &f.SortOrder, &created, &updated); err != nil {
		return nil, err
	}
	f.CreatedAt = fromMillis(created)
	f.UpdatedAt = fromMillis(updated)
	return &f, nil
}

func (s *Store) folder(ctx context.Context, tx dbx.DBTX, id, userID string) (*models.Folder, error) {
	f, err := scanFolder(tx.QueryRowContext(ctx,
		s.q(`SELECT `+folderColumns+` FROM folders WHERE id = ? AND user_id = ?`), id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get folder: %w", err)
	}
	return f, nil
}

// ensureGeneral returns the General folder of userID, inserting it if needed.
// A concurrent first request may insert it between the lookup and the
// insert; the insert then does nothing and the winner's row is returned.
func (s *Store) ensureGeneral(ctx context.Context, tx dbx.DBTX, userID string) (*models.Folder, error) {
	f, err := s.findGeneral(ctx, tx, userID)
	if err == nil {
		return f, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to find general folder: %w", err)
	}

	now := s.millis()
	f = &models.Folder{
		ID:        storage.NewID(),
		Name:      models.GeneralFolderName,
		UserID:    userID,
		SortOrder: 0,
		CreatedAt: fromMillis(now),
		UpdatedAt: fromMillis(now),
	}
	// ON CONFLICT без цели: при миграции уникального индекса еще может не быть
	res, err := tx.ExecContext(ctx,
		s.q(`INSERT INTO folders (`+folderColumns+`) VALUES (?, ?, ?, ?, ?, ?) ON CONFLICT DO NOTHING`),
		f.ID, f.Name, f.UserID, f.SortOrder, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create general folder: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 1 {
		return f, nil
	}

	// Папку успела создать параллельная транзакция
	f, err = s.findGeneral(ctx, tx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find general folder: %w", err)
	}
	return f, nil
}

func (s *Store) findGeneral(ctx context.Context, tx dbx.DBTX, userID string) (*models.Folder, error) {
	return scanFolder(tx.QueryRowContext(ctx,
		s.q(`SELECT `+folderColumns+` FROM folders WHERE user_id = ? AND name = ? ORDER BY id LIMIT 1`),
		userID, models.GeneralFolderName))
}

// EnsureGeneralFolder returns the user's General folder, creating it if needed.
func (s *Store) EnsureGeneralFolder(ctx context.Context, userID string) (*models.Folder, error) {
	var general *models.Folder
	err := s.withTx(ctx, "ensure general folder", func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		general, err = s.ensureGeneral(ctx, tx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return general, nil
}

// ListFolders returns the user's folders, General first.
func (s *Store) ListFolders(ctx context.Context, userID string) ([]*models.Folder, error) {
	var folders []*models.Folder
	err := s.withTx(ctx, "list folders", func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.ensureGeneral(ctx, tx, userID); err != nil {
			return err
		}

		rows, err := tx.QueryContext(ctx,
			s.q(`SELECT `+folderColumns+` FROM folders WHERE user_id = ? ORDER BY sort_order, name, id`), userID)
		if err != nil {
			return fmt.Errorf("failed to query folders: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			f, err := scanFolder(rows)
			if err != nil {
				return fmt.Errorf("failed to scan folder: %w", err)
			}
			folders = append(folders, f)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return folders, nil
}

// GetFolder returns a folder owned by userID.
func (s *Store) GetFolder(ctx context.Context, id, userID string) (*models.Folder, error) {
	f, err := s.folder(ctx, s.db, id, userID)
	if err != nil {
		return nil, classify("get folder", err)
	}
	return f, nil
}

func (s *Store) nameTaken(ctx context.Context, tx dbx.DBTX, name, userID, exceptID string) (bool, error) {
	n, err := countQuery(ctx, tx,
		s.q(`SELECT COUNT(*) FROM folders WHERE user_id = ? AND name = ? AND id <> ?`), userID, name, exceptID)
	if err != nil {
		return false, fmt.Errorf("failed to check folder name: %w", err)
	}
	return n > 0, nil
}

// CreateFolder adds a folder at the end of the user's list.
func (s *Store) CreateFolder(ctx context.Context, name, userID string) (*models.Folder, error) {
	name, err := storage.NormalizeFolderName(name)
	if err != nil {
		return nil, err
	}

	var created *models.Folder
	err = s.withTx(ctx, "create folder", func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.ensureGeneral(ctx, tx, userID); err != nil {
			return err
		}
		taken, err := s.nameTaken(ctx, tx, name, userID, "")
		if err != nil {
			return err
		}
		if taken {
			return storage.ErrDuplicateName
		}

		var maxOrder int
		err = tx.QueryRowContext(ctx,
			s.q(`SELECT COALESCE(MAX(sort_order), 0) FROM folders WHERE user_id = ?`), userID).Scan(&maxOrder)
		if err != nil {
			return fmt.Errorf("failed to read sort order: %w", err)
		}

		now := s.millis()
		created = &models.Folder{
			ID:        storage.NewID(),
			Name:      name,
			UserID:    userID,
			SortOrder: maxOrder + 1,
			CreatedAt: fromMillis(now),
			UpdatedAt: fromMillis(now),
		}
		_, err = tx.ExecContext(ctx,
			s.q(`INSERT INTO folders (`+folderColumns+`) VALUES (?, ?, ?, ?, ?, ?)`),
			created.ID, created.Name, created.UserID, created.SortOrder, now, now)
		if s.dialect.IsUniqueViolation(err) {
			return storage.ErrDuplicateName
		}
		if err != nil {
			return fmt.Errorf("failed to insert folder: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// RenameFolder changes the name of a folder other than General.
func (s *Store) RenameFolder(ctx context.Context, id, name, userID string) (*models.Folder, error) {
	var renamed *models.Folder
	err := s.withTx(ctx, "rename folder", func(ctx context.Context, tx dbx.DBTX) error {
		f, err := s.folder(ctx, tx, id, userID)
		if err != nil {
			return err
		}
		if f.IsGeneral() {
			return storage.ErrRenameGeneral
		}

		newName, err := storage.NormalizeFolderName(name)
		if err != nil {
			return err
		}
		if newName == f.Name {
			renamed = f
			return nil
		}

		taken, err := s.nameTaken(ctx, tx, newName, userID, f.ID)
		if err != nil {
			return err
		}
		if taken {
			return storage.ErrDuplicateName
		}

		now := s.millis()
		_, err = tx.ExecContext(ctx,
			s.q(`UPDATE folders SET name = ?, updated_at = ? WHERE id = ? AND user_id = ?`),
			newName, now, f.ID, userID)
		if s.dialect.IsUniqueViolation(err) {
			return storage.ErrDuplicateName
		}
		if err != nil {
			return fmt.Errorf("failed to rename folder: %w", err)
		}

		f.Name = newName
		f.UpdatedAt = fromMillis(now)
		renamed = f
		return nil
	})
	if err != nil {
		return nil, err
	}
	return renamed, nil
}

// DeleteFolder moves the folder's snippets to General and removes it, in
// one transaction.
func (s *Store) DeleteFolder(ctx context.Context, id, userID string) error {
	return s.withTx(ctx, "delete folder", func(ctx context.Context, tx dbx.DBTX) error {
		f, err := s.folder(ctx, tx, id, userID)
		if err != nil {
			return err
		}
		if f.IsGeneral() {
			return storage.ErrReservedFolder
		}

		general, err := s.ensureGeneral(ctx, tx, userID)
		if err != nil {
			return err
		}

		// Сначала переносим сниппеты в General, потом удаляем папку
		_, err = tx.ExecContext(ctx,
			s.q(`UPDATE snippets SET folder_id = ?, updated_at = ? WHERE folder_id = ? AND user_id = ?`),
			general.ID, s.millis(), id, userID)
		if err != nil {
			return fmt.Errorf("failed to reassign snippets: %w", err)
		}

		_, err = tx.ExecContext(ctx, s.q(`DELETE FROM folders WHERE id = ? AND user_id = ?`), id, userID)
		if err != nil {
			return fmt.Errorf("failed to delete folder: %w", err)
		}
		return nil
	})
}
