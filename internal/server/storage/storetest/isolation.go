package storetest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/snipkeeper/internal/models"
	"github.com/iudanet/snipkeeper/internal/server/storage"
)

func testIsolation(t *testing.T, newStore Factory) {
	s, _, ctx := setup(t, newStore)

	workA := mustFolder(t, s, "Work", userA)
	workB := mustFolder(t, s, "Work", userB)
	snA := mustSnippet(t, s, "same", &workA.ID, userA)
	snB := mustSnippet(t, s, "same", &workB.ID, userB)
	itA, err := s.CreateClipboardItem(ctx, models.ClipboardInput{Content: "copy"}, userA)
	require.NoError(t, err)
	itB, err := s.CreateClipboardItem(ctx, models.ClipboardInput{Content: "copy"}, userB)
	require.NoError(t, err)

	for _, tc := range []struct {
		user, folderID, snippetID, itemID string
	}{
		{userA, workA.ID, snA.ID, itA.ID},
		{userB, workB.ID, snB.ID, itB.ID},
	} {
		folders, err := s.ListFolders(ctx, tc.user)
		require.NoError(t, err)
		require.Len(t, folders, 2)
		for _, f := range folders {
			assert.Equal(t, tc.user, f.UserID)
		}
		assert.Equal(t, tc.folderID, folders[1].ID)

		snippets, err := s.ListSnippets(ctx, tc.user)
		require.NoError(t, err)
		require.Len(t, snippets, 1)
		assert.Equal(t, tc.snippetID, snippets[0].ID)

		byTrigger, err := s.GetSnippetByTrigger(ctx, "same", tc.user)
		require.NoError(t, err)
		assert.Equal(t, tc.snippetID, byTrigger.ID)

		items, err := s.ListClipboardItems(ctx, tc.user)
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, tc.itemID, items[0].ID)
	}

	_, err = s.GetSnippet(ctx, snA.ID, userB)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = s.GetFolder(ctx, workB.ID, userA)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, s.DeleteSnippet(ctx, snB.ID, userA), storage.ErrNotFound)
	assert.ErrorIs(t, s.DeleteClipboardItem(ctx, itB.ID, userA), storage.ErrNotFound)
}
