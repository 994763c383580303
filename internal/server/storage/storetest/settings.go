package storetest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/snipkeeper/internal/models"
	"github.com/iudanet/snipkeeper/internal/server/storage"
)

func testSettings(t *testing.T, newStore Factory) {
	t.Run("defaults on first read", func(t *testing.T) {
		s, _, ctx := setup(t, newStore)

		st, err := s.GetSettings(ctx)
		require.NoError(t, err)
		assert.Equal(t, storage.DefaultSettings(), st)

		again, err := s.GetSettings(ctx)
		require.NoError(t, err)
		assert.Equal(t, st, again)
	})

	t.Run("partial update", func(t *testing.T) {
		s, _, ctx := setup(t, newStore)

		st, err := s.UpdateSettings(ctx, models.SettingsUpdate{
			Theme:           models.Some(models.ThemeDark),
			HistoryLimit:    models.Some(50),
			LaunchOnStartup: models.Some(true),
		})
		require.NoError(t, err)
		assert.Equal(t, models.ThemeDark, st.Theme)
		assert.Equal(t, 50, st.HistoryLimit)
		assert.True(t, st.LaunchOnStartup)
		assert.Equal(t, "ctrl+;", st.SnippetShortcut)
		assert.True(t, st.ClipboardEnabled)

		st, err = s.UpdateSettings(ctx, models.SettingsUpdate{ClipboardEnabled: models.Some(false)})
		require.NoError(t, err)
		assert.False(t, st.ClipboardEnabled)
		assert.Equal(t, models.ThemeDark, st.Theme)

		got, err := s.GetSettings(ctx)
		require.NoError(t, err)
		assert.Equal(t, st, got)
	})

	t.Run("invalid update changes nothing", func(t *testing.T) {
		tests := []struct {
			name   string
			field  string
			update models.SettingsUpdate
		}{
			{name: "unknown theme", field: "theme", update: models.SettingsUpdate{Theme: models.Some("neon")}},
			{name: "zero history", field: "historyLimit", update: models.SettingsUpdate{HistoryLimit: models.Some(0)}},
			{name: "null shortcut", field: "snippetShortcut", update: models.SettingsUpdate{SnippetShortcut: models.Null[string]()}},
			{name: "empty shortcut", field: "clipboardShortcut", update: models.SettingsUpdate{ClipboardShortcut: models.Some("")}},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				s, _, ctx := setup(t, newStore)

				_, err := s.UpdateSettings(ctx, tt.update)
				assertValidation(t, err, tt.field)

				st, err := s.GetSettings(ctx)
				require.NoError(t, err)
				assert.Equal(t, storage.DefaultSettings(), st)
			})
		}
	})
}
