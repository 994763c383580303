package storetest

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/snipkeeper/internal/models"
	"github.com/iudanet/snipkeeper/internal/server/storage"
)

func testFolders(t *testing.T, newStore Factory) {
	t.Run("general folder is created once", func(t *testing.T) {
		s, _, ctx := setup(t, newStore)

		first, err := s.EnsureGeneralFolder(ctx, userA)
		require.NoError(t, err)
		for range 3 {
			again, err := s.EnsureGeneralFolder(ctx, userA)
			require.NoError(t, err)
			assert.Equal(t, first.ID, again.ID)
		}

		folders, err := s.ListFolders(ctx, userA)
		require.NoError(t, err)
		require.Len(t, folders, 1)
		assert.Equal(t, models.GeneralFolderName, folders[0].Name)
		assert.Equal(t, 0, folders[0].SortOrder)
		assert.Equal(t, userA, folders[0].UserID)
		assert.Equal(t, first.ID, folders[0].ID)
	})

	t.Run("concurrent first requests share one general folder", func(t *testing.T) {
		s, _, ctx := setup(t, newStore)

		const workers = 8
		ids := make([]string, workers)
		errs := make([]error, workers)
		var wg sync.WaitGroup
		for i := range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if i%2 == 0 {
					var f *models.Folder
					f, errs[i] = s.EnsureGeneralFolder(ctx, userA)
					if f != nil {
						ids[i] = f.ID
					}
					return
				}
				var folders []*models.Folder
				folders, errs[i] = s.ListFolders(ctx, userA)
				if len(folders) > 0 {
					ids[i] = folders[0].ID
				}
			}()
		}
		wg.Wait()

		for i := range workers {
			require.NoError(t, errs[i])
			assert.Equal(t, ids[0], ids[i])
		}

		folders, err := s.ListFolders(ctx, userA)
		require.NoError(t, err)
		require.Len(t, folders, 1)
		assert.Equal(t, ids[0], folders[0].ID)
	})

	t.Run("list creates general and orders by sort order", func(t *testing.T) {
		s, _, ctx := setup(t, newStore)

		work := mustFolder(t, s, "Work", userA)
		home := mustFolder(t, s, "Home", userA)
		assert.Equal(t, 1, work.SortOrder)
		assert.Equal(t, 2, home.SortOrder)

		folders, err := s.ListFolders(ctx, userA)
		require.NoError(t, err)
		assert.Equal(t, []string{"General", "Work", "Home"}, folderNames(folders))
	})

	t.Run("create", func(t *testing.T) {
		tests := []struct {
			wantErr  error
			name     string
			input    string
			wantName string
		}{
			{name: "plain name", input: "Work", wantName: "Work"},
			{name: "trimmed", input: "  Projects  ", wantName: "Projects"},
			{name: "reserved exact", input: "General", wantErr: storage.ErrReservedName},
			{name: "reserved lower", input: "general", wantErr: storage.ErrReservedName},
			{name: "reserved upper padded", input: "  GENERAL ", wantErr: storage.ErrReservedName},
			{name: "empty", input: "   ", wantErr: storage.ErrValidation},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				s, _, ctx := setup(t, newStore)

				f, err := s.CreateFolder(ctx, tt.input, userA)
				if tt.wantErr != nil {
					assert.ErrorIs(t, err, tt.wantErr)
					assert.Nil(t, f)
					return
				}
				require.NoError(t, err)
				assert.Equal(t, tt.wantName, f.Name)
				assert.NotEmpty(t, f.ID)
				assert.False(t, f.CreatedAt.IsZero())
			})
		}
	})

	t.Run("create duplicate name", func(t *testing.T) {
		s, _, ctx := setup(t, newStore)
		mustFolder(t, s, "Work", userA)

		_, err := s.CreateFolder(ctx, "Work", userA)
		assert.ErrorIs(t, err, storage.ErrDuplicateName)
		assert.EqualError(t, err, "Folder name already exists")

		folders, err := s.ListFolders(ctx, userA)
		require.NoError(t, err)
		assert.Len(t, folders, 2)
	})

	t.Run("get", func(t *testing.T) {
		s, _, ctx := setup(t, newStore)
		work := mustFolder(t, s, "Work", userA)

		got, err := s.GetFolder(ctx, work.ID, userA)
		require.NoError(t, err)
		assert.Equal(t, work, got)

		_, err = s.GetFolder(ctx, work.ID, userB)
		assert.ErrorIs(t, err, storage.ErrNotFound)

		_, err = s.GetFolder(ctx, "missing", userA)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("rename", func(t *testing.T) {
		s, clock, ctx := setup(t, newStore)
		work := mustFolder(t, s, "Work", userA)
		mustFolder(t, s, "Home", userA)
		gen := general(t, s, userA)

		clock.Advance(time.Minute)
		renamed, err := s.RenameFolder(ctx, work.ID, " Office ", userA)
		require.NoError(t, err)
		assert.Equal(t, "Office", renamed.Name)
		assert.Equal(t, work.SortOrder, renamed.SortOrder)
		assert.True(t, renamed.UpdatedAt.After(work.UpdatedAt))

		same, err := s.RenameFolder(ctx, work.ID, "Office", userA)
		require.NoError(t, err)
		assert.Equal(t, "Office", same.Name)

		_, err = s.RenameFolder(ctx, work.ID, "Home", userA)
		assert.ErrorIs(t, err, storage.ErrDuplicateName)

		for _, name := range []string{"General", "general", "GENERAL"} {
			_, err = s.RenameFolder(ctx, work.ID, name, userA)
			assert.ErrorIs(t, err, storage.ErrReservedName, name)
		}

		_, err = s.RenameFolder(ctx, gen.ID, "Inbox", userA)
		assert.ErrorIs(t, err, storage.ErrReservedName)
		assert.EqualError(t, err, "Cannot rename the 'General' folder")

		_, err = s.RenameFolder(ctx, work.ID, "Stolen", userB)
		assert.ErrorIs(t, err, storage.ErrNotFound)

		got, err := s.GetFolder(ctx, work.ID, userA)
		require.NoError(t, err)
		assert.Equal(t, "Office", got.Name)
	})

	t.Run("delete general is rejected and changes nothing", func(t *testing.T) {
		s, _, ctx := setup(t, newStore)
		gen := general(t, s, userA)
		sn := mustSnippet(t, s, "kept", &gen.ID, userA)

		err := s.DeleteFolder(ctx, gen.ID, userA)
		assert.ErrorIs(t, err, storage.ErrReservedFolder)
		assert.EqualError(t, err, "Cannot delete the 'General' folder")

		folders, err := s.ListFolders(ctx, userA)
		require.NoError(t, err)
		assert.Equal(t, []string{"General"}, folderNames(folders))

		got, err := s.GetSnippet(ctx, sn.ID, userA)
		require.NoError(t, err)
		assert.Equal(t, sn, got)
	})

	t.Run("delete reassigns snippets to general", func(t *testing.T) {
		s, _, ctx := setup(t, newStore)
		temp := mustFolder(t, s, "Temp", userA)
		other := mustFolder(t, s, "Other", userA)
		moved := mustSnippet(t, s, "moved", &temp.ID, userA)
		untouched := mustSnippet(t, s, "untouched", &other.ID, userA)

		require.NoError(t, s.DeleteFolder(ctx, temp.ID, userA))

		gen := general(t, s, userA)
		got, err := s.GetSnippet(ctx, moved.ID, userA)
		require.NoError(t, err)
		require.NotNil(t, got.FolderID)
		assert.Equal(t, gen.ID, *got.FolderID)

		got, err = s.GetSnippet(ctx, untouched.ID, userA)
		require.NoError(t, err)
		assert.Equal(t, other.ID, *got.FolderID)

		_, err = s.GetFolder(ctx, temp.ID, userA)
		assert.ErrorIs(t, err, storage.ErrNotFound)

		folders, err := s.ListFolders(ctx, userA)
		require.NoError(t, err)
		assert.Equal(t, []string{"General", "Other"}, folderNames(folders))
	})

	t.Run("delete foreign or missing folder", func(t *testing.T) {
		s, _, ctx := setup(t, newStore)
		work := mustFolder(t, s, "Work", userA)

		assert.ErrorIs(t, s.DeleteFolder(ctx, work.ID, userB), storage.ErrNotFound)
		assert.ErrorIs(t, s.DeleteFolder(ctx, "missing", userA), storage.ErrNotFound)

		_, err := s.GetFolder(ctx, work.ID, userA)
		assert.NoError(t, err)
	})
}
