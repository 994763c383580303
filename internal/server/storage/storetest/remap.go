package storetest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/snipkeeper/internal/models"
	"github.com/iudanet/snipkeeper/internal/server/storage"
)

func testRemap(t *testing.T, newStore Factory) {
	t.Run("moves everything", func(t *testing.T) {
		s, _, ctx := setup(t, newStore)
		genA := general(t, s, userA)
		work := mustFolder(t, s, "Work", userA)
		inGeneral := mustSnippet(t, s, "g", &genA.ID, userA)
		inWork := mustSnippet(t, s, "w", &work.ID, userA)
		_, err := s.CreateClipboardItem(ctx, models.ClipboardInput{Content: "clip"}, userA)
		require.NoError(t, err)
		mustFolder(t, s, "Home", userB)

		res, err := s.RemapUser(ctx, userA, userB)
		require.NoError(t, err)
		assert.Equal(t, &storage.RemapResult{Folders: 1, Snippets: 2, ClipboardItems: 1}, res)

		genB := general(t, s, userB)
		folders, err := s.ListFolders(ctx, userB)
		require.NoError(t, err)
		assert.Equal(t, []string{"General", "Home", "Work"}, folderNames(folders))

		got, err := s.GetSnippet(ctx, inGeneral.ID, userB)
		require.NoError(t, err)
		assert.Equal(t, genB.ID, *got.FolderID)
		got, err = s.GetSnippet(ctx, inWork.ID, userB)
		require.NoError(t, err)
		assert.Equal(t, work.ID, *got.FolderID)

		items, err := s.ListClipboardItems(ctx, userB)
		require.NoError(t, err)
		assert.Len(t, items, 1)

		snippets, err := s.ListSnippets(ctx, userA)
		require.NoError(t, err)
		assert.Empty(t, snippets)
		_, err = s.GetFolder(ctx, genA.ID, userA)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("conflicts abort", func(t *testing.T) {
		tests := []struct {
			wantErr error
			prepare func(t *testing.T, s storage.Store)
			name    string
		}{
			{
				name:    "folder name",
				wantErr: storage.ErrDuplicateName,
				prepare: func(t *testing.T, s storage.Store) { mustFolder(t, s, "Work", userB) },
			},
			{
				name:    "trigger",
				wantErr: storage.ErrDuplicateTrigger,
				prepare: func(t *testing.T, s storage.Store) { mustSnippet(t, s, "w", nil, userB) },
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				s, _, ctx := setup(t, newStore)
				work := mustFolder(t, s, "Work", userA)
				mustSnippet(t, s, "w", &work.ID, userA)
				tt.prepare(t, s)

				_, err := s.RemapUser(ctx, userA, userB)
				assert.ErrorIs(t, err, tt.wantErr)

				snippets, err := s.ListSnippets(ctx, userA)
				require.NoError(t, err)
				assert.Len(t, snippets, 1)
				_, err = s.GetFolder(ctx, work.ID, userA)
				assert.NoError(t, err)
			})
		}
	})

	t.Run("same user", func(t *testing.T) {
		s, _, ctx := setup(t, newStore)

		_, err := s.RemapUser(ctx, userA, userA)
		assert.ErrorIs(t, err, storage.ErrValidation)
	})
}
