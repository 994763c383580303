package storetest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/snipkeeper/internal/models"
	"github.com/iudanet/snipkeeper/internal/server/storage"
)

func testClipboard(t *testing.T, newStore Factory) {
	t.Run("default type", func(t *testing.T) {
		s, _, ctx := setup(t, newStore)

		it, err := s.CreateClipboardItem(ctx, models.ClipboardInput{Content: "copied"}, userA)
		require.NoError(t, err)
		assert.Equal(t, models.DefaultClipboardType, it.Type)
		assert.Equal(t, userA, it.UserID)
	})

	t.Run("empty content is rejected", func(t *testing.T) {
		s, _, ctx := setup(t, newStore)

		_, err := s.CreateClipboardItem(ctx, models.ClipboardInput{Content: ""}, userA)
		assertValidation(t, err, "content")
	})

	t.Run("duplicate window", func(t *testing.T) {
		s, clock, ctx := setup(t, newStore)
		in := models.ClipboardInput{Content: "same", Type: "text"}

		first, err := s.CreateClipboardItem(ctx, in, userA)
		require.NoError(t, err)

		clock.Advance(4 * time.Second)
		again, err := s.CreateClipboardItem(ctx, in, userA)
		require.NoError(t, err)
		assert.Equal(t, first, again)

		otherType, err := s.CreateClipboardItem(ctx, models.ClipboardInput{Content: "same", Type: "html"}, userA)
		require.NoError(t, err)
		assert.NotEqual(t, first.ID, otherType.ID)

		otherUser, err := s.CreateClipboardItem(ctx, in, userB)
		require.NoError(t, err)
		assert.NotEqual(t, first.ID, otherUser.ID)

		items, err := s.ListClipboardItems(ctx, userA)
		require.NoError(t, err)
		assert.Len(t, items, 2)

		clock.Advance(time.Second)
		later, err := s.CreateClipboardItem(ctx, in, userA)
		require.NoError(t, err)
		assert.NotEqual(t, first.ID, later.ID)

		items, err = s.ListClipboardItems(ctx, userA)
		require.NoError(t, err)
		assert.Len(t, items, 3)
	})

	t.Run("history never exceeds limit", func(t *testing.T) {
		s, clock, ctx := setup(t, newStore)
		_, err := s.UpdateSettings(ctx, models.SettingsUpdate{HistoryLimit: models.Some(3)})
		require.NoError(t, err)

		contents := []string{"1", "2", "3", "4", "5", "6"}
		for _, c := range contents {
			clock.Advance(time.Second)
			_, err := s.CreateClipboardItem(ctx, models.ClipboardInput{Content: c}, userA)
			require.NoError(t, err)

			items, err := s.ListClipboardItems(ctx, userA)
			require.NoError(t, err)
			assert.LessOrEqual(t, len(items), 3)
		}

		items, err := s.ListClipboardItems(ctx, userA)
		require.NoError(t, err)
		assert.Equal(t, []string{"6", "5", "4"}, clipboardContents(items))
	})

	t.Run("items created in the same instant keep insertion order", func(t *testing.T) {
		s, _, ctx := setup(t, newStore)
		_, err := s.UpdateSettings(ctx, models.SettingsUpdate{HistoryLimit: models.Some(2)})
		require.NoError(t, err)

		for _, c := range []string{"a", "b", "c"} {
			_, err := s.CreateClipboardItem(ctx, models.ClipboardInput{Content: c}, userA)
			require.NoError(t, err)
		}

		items, err := s.ListClipboardItems(ctx, userA)
		require.NoError(t, err)
		assert.Equal(t, []string{"c", "b"}, clipboardContents(items))
	})

	t.Run("delete and clear", func(t *testing.T) {
		s, clock, ctx := setup(t, newStore)
		var ids []string
		for _, c := range []string{"a", "b", "c"} {
			clock.Advance(time.Second)
			it, err := s.CreateClipboardItem(ctx, models.ClipboardInput{Content: c}, userA)
			require.NoError(t, err)
			ids = append(ids, it.ID)
		}
		_, err := s.CreateClipboardItem(ctx, models.ClipboardInput{Content: "b's"}, userB)
		require.NoError(t, err)

		assert.ErrorIs(t, s.DeleteClipboardItem(ctx, ids[0], userB), storage.ErrNotFound)
		require.NoError(t, s.DeleteClipboardItem(ctx, ids[0], userA))
		assert.ErrorIs(t, s.DeleteClipboardItem(ctx, ids[0], userA), storage.ErrNotFound)

		removed, err := s.ClearClipboardHistory(ctx, userA)
		require.NoError(t, err)
		assert.Equal(t, 2, removed)

		items, err := s.ListClipboardItems(ctx, userA)
		require.NoError(t, err)
		assert.Empty(t, items)

		items, err = s.ListClipboardItems(ctx, userB)
		require.NoError(t, err)
		assert.Len(t, items, 1)
	})
}
