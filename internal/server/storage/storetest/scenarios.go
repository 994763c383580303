package storetest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/snipkeeper/internal/models"
	"github.com/iudanet/snipkeeper/internal/server/storage"
)

func testScenarios(t *testing.T, newStore Factory) {
	t.Run("same folder name for two users", func(t *testing.T) {
		s, _, ctx := setup(t, newStore)
		a := mustFolder(t, s, "Work", userA)
		b := mustFolder(t, s, "Work", userB)
		assert.NotEqual(t, a.ID, b.ID)

		for user, want := range map[string]string{userA: a.ID, userB: b.ID} {
			folders, err := s.ListFolders(ctx, user)
			require.NoError(t, err)
			assert.Equal(t, []string{"General", "Work"}, folderNames(folders))
			assert.Equal(t, want, folders[1].ID)
		}
	})

	t.Run("trigger unique per user", func(t *testing.T) {
		s, _, ctx := setup(t, newStore)
		mustSnippet(t, s, "hello", nil, userA)

		_, err := s.CreateSnippet(ctx, models.SnippetInput{Title: "t", Content: "c", Trigger: "hello"}, userA)
		assert.ErrorIs(t, err, storage.ErrDuplicateTrigger)

		_, err = s.CreateSnippet(ctx, models.SnippetInput{Title: "t", Content: "c", Trigger: "hello"}, userB)
		assert.NoError(t, err)
	})

	t.Run("deleting a folder keeps its snippets", func(t *testing.T) {
		s, _, ctx := setup(t, newStore)
		temp := mustFolder(t, s, "Temp", userA)
		var ids []string
		for _, trg := range []string{"t1", "t2", "t3"} {
			ids = append(ids, mustSnippet(t, s, trg, &temp.ID, userA).ID)
		}

		require.NoError(t, s.DeleteFolder(ctx, temp.ID, userA))

		gen := general(t, s, userA)
		for _, id := range ids {
			sn, err := s.GetSnippet(ctx, id, userA)
			require.NoError(t, err)
			require.NotNil(t, sn.FolderID)
			assert.Equal(t, gen.ID, *sn.FolderID)
		}
		folders, err := s.ListFolders(ctx, userA)
		require.NoError(t, err)
		assert.NotContains(t, folderNames(folders), "Temp")
	})

	t.Run("history limit of two", func(t *testing.T) {
		s, clock, ctx := setup(t, newStore)
		_, err := s.UpdateSettings(ctx, models.SettingsUpdate{HistoryLimit: models.Some(2)})
		require.NoError(t, err)

		for _, c := range []string{"a", "b", "c"} {
			_, err := s.CreateClipboardItem(ctx, models.ClipboardInput{Content: c}, userA)
			require.NoError(t, err)
			clock.Advance(6 * time.Second)
		}

		items, err := s.ListClipboardItems(ctx, userA)
		require.NoError(t, err)
		assert.Equal(t, []string{"c", "b"}, clipboardContents(items))
	})
}
