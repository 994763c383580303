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

const settingsColumns = `id, snippet_shortcut, clipboard_shortcut, clipboard_enabled, history_limit, launch_on_startup, theme`

// settings reads the row without creating it.
func (s *Store) settings(ctx context.Context, tx dbx.DBTX) (*models.Settings, error) {
	var st models.Settings
	err := tx.QueryRowContext(ctx, s.q(`SELECT `+settingsColumns+` FROM settings WHERE id = ?`), models.SettingsID).
		Scan(&st.ID, &st.SnippetShortcut, &st.ClipboardShortcut, &st.ClipboardEnabled,
			&st.HistoryLimit, &st.LaunchOnStartup, &st.Theme)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.DefaultSettings(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}
	return &st, nil
}

func (s *Store) insertDefaultSettings(ctx context.Context, tx dbx.DBTX) error {
	d := storage.DefaultSettings()
	_, err := tx.ExecContext(ctx,
		s.q(`INSERT INTO settings (`+settingsColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?) ON CONFLICT (id) DO NOTHING`),
		d.ID, d.SnippetShortcut, d.ClipboardShortcut, d.ClipboardEnabled, d.HistoryLimit, d.LaunchOnStartup, d.Theme)
	if err != nil {
		return fmt.Errorf("failed to create settings: %w", err)
	}
	return nil
}

// GetSettings returns the settings row, creating it with defaults.
func (s *Store) GetSettings(ctx context.Context) (*models.Settings, error) {
	var st *models.Settings
	err := s.withTx(ctx, "get settings", func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.insertDefaultSettings(ctx, tx); err != nil {
			return err
		}
		var err error
		st, err = s.settings(ctx, tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return st, nil
}

// UpdateSettings applies a partial update to the settings row.
func (s *Store) UpdateSettings(ctx context.Context, update models.SettingsUpdate) (*models.Settings, error) {
	var st *models.Settings
	err := s.withTx(ctx, "update settings", func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.insertDefaultSettings(ctx, tx); err != nil {
			return err
		}
		var err error
		st, err = s.settings(ctx, tx)
		if err != nil {
			return err
		}
		if err := storage.ApplySettingsUpdate(st, update); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx,
			s.q(`UPDATE settings SET snippet_shortcut = ?, clipboard_shortcut = ?, clipboard_enabled = ?,
				history_limit = ?, launch_on_startup = ?, theme = ? WHERE id = ?`),
			st.SnippetShortcut, st.ClipboardShortcut, st.ClipboardEnabled,
			st.HistoryLimit, st.LaunchOnStartup, st.Theme, st.ID)
		if err != nil {
			return fmt.Errorf("failed to update settings: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return st, nil
}
