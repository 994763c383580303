package filestore

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/snipkeeper/internal/models"
	"github.com/iudanet/snipkeeper/internal/server/storage"
	"github.com/iudanet/snipkeeper/internal/server/storage/kvstore"
	"github.com/iudanet/snipkeeper/internal/server/storage/storetest"
)

const user = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCompliance(t *testing.T) {
	storetest.Run(t, func(t *testing.T, clock *storetest.Clock) storage.Store {
		s, err := New(context.Background(), t.TempDir(), testLogger(), storage.WithClock(clock.Now))
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestNew_EmptyDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")

	s, err := New(context.Background(), dir, testLogger())
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Ping(context.Background()))
	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestFiles_WrittenAndReloaded(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := New(ctx, dir, testLogger())
	require.NoError(t, err)
	work, err := s.CreateFolder(ctx, "Work", user)
	require.NoError(t, err)
	sn, err := s.CreateSnippet(ctx, models.SnippetInput{Title: "t", Content: "c", Trigger: "x", FolderID: &work.ID}, user)
	require.NoError(t, err)
	_, err = s.CreateClipboardItem(ctx, models.ClipboardInput{Content: "clip"}, user)
	require.NoError(t, err)
	_, err = s.UpdateSettings(ctx, models.SettingsUpdate{Theme: models.Some(models.ThemeDark)})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	raw, err := os.ReadFile(filepath.Join(dir, FoldersFile))
	require.NoError(t, err)
	var folders []models.Folder
	require.NoError(t, json.Unmarshal(raw, &folders))
	assert.Len(t, folders, 2, "General and Work")

	raw, err = os.ReadFile(filepath.Join(dir, SettingsFile))
	require.NoError(t, err)
	var st models.Settings
	require.NoError(t, json.Unmarshal(raw, &st))
	assert.Equal(t, models.ThemeDark, st.Theme)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp-", "temp files must not be left behind")
	}

	s, err = New(ctx, dir, testLogger())
	require.NoError(t, err)
	defer s.Close()

	got, err := s.GetSnippet(ctx, sn.ID, user)
	require.NoError(t, err)
	assert.Equal(t, sn, got)

	items, err := s.ListClipboardItems(ctx, user)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	settings, err := s.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.ThemeDark, settings.Theme)
}

func TestNew_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, SnippetsFile), []byte("{not json"), 0o600))

	_, err := New(context.Background(), dir, testLogger())
	assert.Error(t, err)
}

func TestNew_RecordWithoutID(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FoldersFile), []byte(`[{"name":"Work"}]`), 0o600))

	_, err := New(context.Background(), dir, testLogger())
	assert.ErrorContains(t, err, "record without id")
}

func TestWrite_FailureKeepsPreviousState(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := New(ctx, dir, testLogger())
	require.NoError(t, err)
	defer s.Close()
	_, err = s.CreateFolder(ctx, "Work", user)
	require.NoError(t, err)

	require.NoError(t, os.RemoveAll(dir))

	_, err = s.CreateFolder(ctx, "Home", user)
	require.ErrorIs(t, err, storage.ErrUnavailable)
	assert.ErrorIs(t, s.Ping(ctx), storage.ErrUnavailable)

	// the failed write is not visible
	folders, err := s.ListFolders(ctx, user)
	require.NoError(t, err)
	assert.Len(t, folders, 2)
}

func readFolders(t *testing.T, dir string) []models.Folder {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join(dir, FoldersFile))
	require.NoError(t, err)
	var folders []models.Folder
	require.NoError(t, json.Unmarshal(raw, &folders))
	return folders
}

func assertNoLeftovers(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp-")
		assert.NotEqual(t, journalFile, e.Name())
	}
}

// Удаление папки меняет два файла; если второй не записался, первый
// возвращается к прежнему содержимому
func TestDeleteFolder_SecondFileFailsRollsBack(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := New(ctx, dir, testLogger())
	require.NoError(t, err)
	defer s.Close()

	temp, err := s.CreateFolder(ctx, "Temp", user)
	require.NoError(t, err)
	sn, err := s.CreateSnippet(ctx, models.SnippetInput{Title: "t", Content: "c", Trigger: "x", FolderID: &temp.ID}, user)
	require.NoError(t, err)

	// snippets.json нельзя заменить
	snippetsPath := filepath.Join(dir, SnippetsFile)
	require.NoError(t, os.Remove(snippetsPath))
	require.NoError(t, os.MkdirAll(filepath.Join(snippetsPath, "busy"), 0o700))

	err = s.DeleteFolder(ctx, temp.ID, user)
	require.ErrorIs(t, err, storage.ErrUnavailable)

	// на диске папка осталась
	var names []string
	for _, f := range readFolders(t, dir) {
		names = append(names, f.Name)
	}
	assert.ElementsMatch(t, []string{models.GeneralFolderName, "Temp"}, names)

	// в памяти тоже
	_, err = s.GetFolder(ctx, temp.ID, user)
	require.NoError(t, err)
	got, err := s.GetSnippet(ctx, sn.ID, user)
	require.NoError(t, err)
	assert.Equal(t, temp.ID, *got.FolderID)

	assertNoLeftovers(t, dir)

	// после устранения причины удаление проходит
	require.NoError(t, os.RemoveAll(snippetsPath))
	require.NoError(t, s.DeleteFolder(ctx, temp.ID, user))
	require.NoError(t, s.Close())

	s, err = New(ctx, dir, testLogger())
	require.NoError(t, err)
	defer s.Close()
	_, err = s.GetFolder(ctx, temp.ID, user)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	got, err = s.GetSnippet(ctx, sn.ID, user)
	require.NoError(t, err)
	assert.NotEqual(t, temp.ID, *got.FolderID)
}

// Процесс упал после записи журнала: при старте коммит доводится до конца
func TestNew_CompletesInterruptedCommit(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := New(ctx, dir, testLogger())
	require.NoError(t, err)
	work, err := s.CreateFolder(ctx, "Work", user)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	sn := models.Snippet{
		ID: "01SNIPPET", Title: "t", Content: "c", Trigger: "x",
		FolderID: &work.ID, UserID: user, CreatedAt: now, UpdatedAt: now,
	}
	list, err := json.Marshal([]models.Snippet{sn})
	require.NoError(t, err)
	tmp, err := stage(dir, SnippetsFile, list)
	require.NoError(t, err)

	// folders.json уже переименован до падения: его временного файла нет
	plan := journal{Files: []staged{
		{Bucket: kvstore.BucketFolders, Temp: ".folders.json.tmp-gone", Target: FoldersFile},
		{Bucket: kvstore.BucketSnippets, Temp: tmp, Target: SnippetsFile},
	}}
	raw, err := json.Marshal(plan)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, journalFile), raw, 0o600))

	s, err = New(ctx, dir, testLogger())
	require.NoError(t, err)
	defer s.Close()

	got, err := s.GetSnippetByTrigger(ctx, "x", user)
	require.NoError(t, err)
	assert.Equal(t, work.ID, *got.FolderID)
	assertNoLeftovers(t, dir)
}

func TestNew_RemovesStaleTempFiles(t *testing.T) {
	dir := t.TempDir()
	stale := filepath.Join(dir, ".folders.json.tmp-12345")
	require.NoError(t, os.WriteFile(stale, []byte("[half"), 0o600))

	s, err := New(context.Background(), dir, testLogger())
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(stale)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestNew_CorruptJournal(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, journalFile), []byte("{"), 0o600))

	_, err := New(context.Background(), dir, testLogger())
	assert.ErrorContains(t, err, "failed to parse journal")
}
