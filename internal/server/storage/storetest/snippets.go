package storetest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/snipkeeper/internal/models"
	"github.com/iudanet/snipkeeper/internal/server/storage"
)

func testSnippets(t *testing.T, newStore Factory) {
	t.Run("create and get", func(t *testing.T) {
		s, _, ctx := setup(t, newStore)
		work := mustFolder(t, s, "Work", userA)

		sn, err := s.CreateSnippet(ctx, models.SnippetInput{
			Title:       " Greeting ",
			Content:     "Hello, world",
			Trigger:     ";hi",
			Description: strPtr("says hi"),
			FolderID:    &work.ID,
		}, userA)
		require.NoError(t, err)
		assert.Equal(t, "Greeting", sn.Title)
		assert.Equal(t, ";hi", sn.Trigger)
		require.NotNil(t, sn.Description)
		assert.Equal(t, "says hi", *sn.Description)
		assert.Equal(t, work.ID, *sn.FolderID)
		assert.Equal(t, userA, sn.UserID)
		assert.Equal(t, sn.CreatedAt, sn.UpdatedAt)

		got, err := s.GetSnippet(ctx, sn.ID, userA)
		require.NoError(t, err)
		assert.Equal(t, sn, got)

		byTrigger, err := s.GetSnippetByTrigger(ctx, ";hi", userA)
		require.NoError(t, err)
		assert.Equal(t, sn.ID, byTrigger.ID)

		_, err = s.GetSnippetByTrigger(ctx, ";nope", userA)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("create without folder", func(t *testing.T) {
		s, _, ctx := setup(t, newStore)

		sn, err := s.CreateSnippet(ctx, models.SnippetInput{
			Title: "t", Content: "c", Trigger: "x", FolderID: strPtr(""), Description: strPtr(""),
		}, userA)
		require.NoError(t, err)
		assert.Nil(t, sn.FolderID)
		assert.Nil(t, sn.Description)
	})

	t.Run("create validation", func(t *testing.T) {
		tests := []struct {
			name  string
			field string
			input models.SnippetInput
		}{
			{name: "empty title", field: "title", input: models.SnippetInput{Title: " ", Content: "c", Trigger: "t"}},
			{name: "empty trigger", field: "trigger", input: models.SnippetInput{Title: "t", Content: "c", Trigger: ""}},
			{name: "trigger with space", field: "trigger", input: models.SnippetInput{Title: "t", Content: "c", Trigger: "a b"}},
			{name: "empty content", field: "content", input: models.SnippetInput{Title: "t", Content: "", Trigger: "t"}},
			{name: "unknown folder", field: "folderId", input: models.SnippetInput{Title: "t", Content: "c", Trigger: "t", FolderID: strPtr("nope")}},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				s, _, ctx := setup(t, newStore)

				_, err := s.CreateSnippet(ctx, tt.input, userA)
				assertValidation(t, err, tt.field)

				list, err := s.ListSnippets(ctx, userA)
				require.NoError(t, err)
				assert.Empty(t, list)
			})
		}
	})

	t.Run("folder of another user is rejected", func(t *testing.T) {
		s, _, ctx := setup(t, newStore)
		foreign := mustFolder(t, s, "Theirs", userB)

		_, err := s.CreateSnippet(ctx, models.SnippetInput{
			Title: "t", Content: "c", Trigger: "t", FolderID: &foreign.ID,
		}, userA)
		assertValidation(t, err, "folderId")
		assert.Contains(t, err.Error(), foreign.ID)
	})

	t.Run("duplicate trigger", func(t *testing.T) {
		s, _, ctx := setup(t, newStore)
		mustSnippet(t, s, "hello", nil, userA)

		_, err := s.CreateSnippet(ctx, models.SnippetInput{Title: "t", Content: "c", Trigger: "hello"}, userA)
		assert.ErrorIs(t, err, storage.ErrDuplicateTrigger)
		assert.EqualError(t, err, "Trigger already exists")

		list, err := s.ListSnippets(ctx, userA)
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})

	t.Run("partial update", func(t *testing.T) {
		s, clock, ctx := setup(t, newStore)
		work := mustFolder(t, s, "Work", userA)
		sn, err := s.CreateSnippet(ctx, models.SnippetInput{
			Title: "t", Content: "c", Trigger: "trg", Description: strPtr("d"), FolderID: &work.ID,
		}, userA)
		require.NoError(t, err)

		clock.Advance(time.Second)
		updated, err := s.UpdateSnippet(ctx, sn.ID, models.SnippetUpdate{Title: models.Some("new title")}, userA)
		require.NoError(t, err)
		assert.Equal(t, "new title", updated.Title)
		assert.Equal(t, "c", updated.Content)
		assert.Equal(t, "trg", updated.Trigger)
		assert.Equal(t, "d", *updated.Description)
		assert.Equal(t, work.ID, *updated.FolderID)
		assert.Equal(t, sn.CreatedAt, updated.CreatedAt)
		assert.True(t, updated.UpdatedAt.After(sn.UpdatedAt))

		cleared, err := s.UpdateSnippet(ctx, sn.ID, models.SnippetUpdate{
			Description: models.Null[string](),
			FolderID:    models.Null[string](),
		}, userA)
		require.NoError(t, err)
		assert.Nil(t, cleared.Description)
		assert.Nil(t, cleared.FolderID)
		assert.Equal(t, "new title", cleared.Title)

		got, err := s.GetSnippet(ctx, sn.ID, userA)
		require.NoError(t, err)
		assert.Equal(t, cleared, got)
	})

	t.Run("update errors", func(t *testing.T) {
		s, _, ctx := setup(t, newStore)
		first := mustSnippet(t, s, "one", nil, userA)
		mustSnippet(t, s, "two", nil, userA)

		_, err := s.UpdateSnippet(ctx, first.ID, models.SnippetUpdate{Trigger: models.Some("two")}, userA)
		assert.ErrorIs(t, err, storage.ErrDuplicateTrigger)

		_, err = s.UpdateSnippet(ctx, first.ID, models.SnippetUpdate{Trigger: models.Some("one")}, userA)
		assert.NoError(t, err, "keeping own trigger is not a clash")

		_, err = s.UpdateSnippet(ctx, first.ID, models.SnippetUpdate{Title: models.Null[string]()}, userA)
		assertValidation(t, err, "title")

		_, err = s.UpdateSnippet(ctx, first.ID, models.SnippetUpdate{FolderID: models.Some("missing")}, userA)
		assertValidation(t, err, "folderId")

		_, err = s.UpdateSnippet(ctx, first.ID, models.SnippetUpdate{Title: models.Some("x")}, userB)
		assert.ErrorIs(t, err, storage.ErrNotFound)

		_, err = s.UpdateSnippet(ctx, "missing", models.SnippetUpdate{Title: models.Some("x")}, userA)
		assert.ErrorIs(t, err, storage.ErrNotFound)

		got, err := s.GetSnippet(ctx, first.ID, userA)
		require.NoError(t, err)
		assert.Equal(t, first.Title, got.Title)
		assert.Nil(t, got.FolderID)
	})

	t.Run("list is newest update first", func(t *testing.T) {
		s, clock, ctx := setup(t, newStore)
		a := mustSnippet(t, s, "a", nil, userA)
		clock.Advance(time.Second)
		b := mustSnippet(t, s, "b", nil, userA)
		clock.Advance(time.Second)
		c := mustSnippet(t, s, "c", nil, userA)
		clock.Advance(time.Second)
		_, err := s.UpdateSnippet(ctx, a.ID, models.SnippetUpdate{Content: models.Some("changed")}, userA)
		require.NoError(t, err)

		list, err := s.ListSnippets(ctx, userA)
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, []string{a.ID, c.ID, b.ID}, []string{list[0].ID, list[1].ID, list[2].ID})
	})

	t.Run("delete", func(t *testing.T) {
		s, _, ctx := setup(t, newStore)
		sn := mustSnippet(t, s, "gone", nil, userA)

		assert.ErrorIs(t, s.DeleteSnippet(ctx, sn.ID, userB), storage.ErrNotFound)
		require.NoError(t, s.DeleteSnippet(ctx, sn.ID, userA))
		assert.ErrorIs(t, s.DeleteSnippet(ctx, sn.ID, userA), storage.ErrNotFound)

		_, err := s.GetSnippet(ctx, sn.ID, userA)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}
