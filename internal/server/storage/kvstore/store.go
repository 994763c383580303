package kvstore

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/iudanet/snipkeeper/internal/models"
	"github.com/iudanet/snipkeeper/internal/server/storage"
)

// Store is the shared key/value backend.
type Store struct {
	engine Engine
	now    func() time.Time
}

var _ storage.Store = (*Store)(nil)

// New wraps engine. The Store owns the engine and closes it.
func New(engine Engine, opts ...storage.Option) *Store {
	o := storage.ApplyOptions(opts)
	return &Store{engine: engine, now: o.Now}
}

// Ping checks the engine.
func (s *Store) Ping(ctx context.Context) error {
	return storage.Unavailable("ping", s.engine.Ping(ctx))
}

// Close closes the engine.
func (s *Store) Close() error {
	return s.engine.Close()
}

func (s *Store) timestamp() time.Time {
	return storage.Timestamp(s.now())
}

func (s *Store) view(ctx context.Context, op string, fn func(tx Tx) error) error {
	return classify(op, s.engine.View(ctx, fn))
}

func (s *Store) update(ctx context.Context, op string, fn func(tx Tx) error) error {
	return classify(op, s.engine.Update(ctx, fn))
}

// classify keeps domain errors intact and marks everything else unavailable.
func classify(op string, err error) error {
	if err == nil || storage.IsClientError(err) || errors.Is(err, storage.ErrUnavailable) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return storage.Unavailable(op, err)
}

func getJSON[T any](tx Tx, bucket, key string) (*T, error) {
	data, err := tx.Get(bucket, key)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}
	v := new(T)
	if err := json.Unmarshal(data, v); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s/%s: %w", bucket, key, err)
	}
	return v, nil
}

func putJSON(tx Tx, bucket, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s/%s: %w", bucket, key, err)
	}
	if err := tx.Put(bucket, key, data); err != nil {
		return fmt.Errorf("failed to save %s/%s: %w", bucket, key, err)
	}
	return nil
}

// scan decodes every value of bucket and keeps those accepted by keep.
func scan[T any](tx Tx, bucket string, keep func(*T) bool) ([]*T, error) {
	var out []*T
	err := tx.ForEach(bucket, func(key string, value []byte) error {
		v := new(T)
		if err := json.Unmarshal(value, v); err != nil {
			return fmt.Errorf("failed to unmarshal %s/%s: %w", bucket, key, err)
		}
		if keep(v) {
			out = append(out, v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// --- Folders ---

func (s *Store) userFolders(tx Tx, userID string) ([]*models.Folder, error) {
	return scan(tx, BucketFolders, func(f *models.Folder) bool { return f.UserID == userID })
}

func (s *Store) folder(tx Tx, id, userID string) (*models.Folder, error) {
	f, err := getJSON[models.Folder](tx, BucketFolders, id)
	if err != nil {
		return nil, err
	}
	if f == nil || f.UserID != userID {
		return nil, storage.ErrNotFound
	}
	return f, nil
}

func (s *Store) ensureGeneral(tx Tx, userID string) (*models.Folder, error) {
	folders, err := s.userFolders(tx, userID)
	if err != nil {
		return nil, err
	}
	for _, f := range folders {
		if f.IsGeneral() {
			return f, nil
		}
	}

	now := s.timestamp()
	f := &models.Folder{
		ID:        storage.NewID(),
		Name:      models.GeneralFolderName,
		UserID:    userID,
		SortOrder: 0,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := putJSON(tx, BucketFolders, f.ID, f); err != nil {
		return nil, err
	}
	return f, nil
}

func sortFolders(folders []*models.Folder) {
	slices.SortFunc(folders, func(a, b *models.Folder) int {
		return cmp.Or(cmp.Compare(a.SortOrder, b.SortOrder), cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
	})
}

// EnsureGeneralFolder returns the user's General folder, creating it if needed.
func (s *Store) EnsureGeneralFolder(ctx context.Context, userID string) (*models.Folder, error) {
	var general *models.Folder
	err := s.update(ctx, "ensure general folder", func(tx Tx) error {
		var err error
		general, err = s.ensureGeneral(tx, userID)
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
	err := s.update(ctx, "list folders", func(tx Tx) error {
		if _, err := s.ensureGeneral(tx, userID); err != nil {
			return err
		}
		var err error
		folders, err = s.userFolders(tx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	sortFolders(folders)
	return folders, nil
}

// GetFolder returns a folder owned by userID.
func (s *Store) GetFolder(ctx context.Context, id, userID string) (*models.Folder, error) {
	var f *models.Folder
	err := s.view(ctx, "get folder", func(tx Tx) error {
		var err error
		f, err = s.folder(tx, id, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return f, nil
}

// CreateFolder adds a folder at the end of the user's list.
func (s *Store) CreateFolder(ctx context.Context, name, userID string) (*models.Folder, error) {
	name, err := storage.NormalizeFolderName(name)
	if err != nil {
		return nil, err
	}

	var created *models.Folder
	err = s.update(ctx, "create folder", func(tx Tx) error {
		if _, err := s.ensureGeneral(tx, userID); err != nil {
			return err
		}
		folders, err := s.userFolders(tx, userID)
		if err != nil {
			return err
		}

		maxOrder := 0
		for _, f := range folders {
			if f.Name == name {
				return storage.ErrDuplicateName
			}
			maxOrder = max(maxOrder, f.SortOrder)
		}

		now := s.timestamp()
		created = &models.Folder{
			ID:        storage.NewID(),
			Name:      name,
			UserID:    userID,
			SortOrder: maxOrder + 1,
			CreatedAt: now,
			UpdatedAt: now,
		}
		return putJSON(tx, BucketFolders, created.ID, created)
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// RenameFolder changes the name of a folder other than General.
func (s *Store) RenameFolder(ctx context.Context, id, name, userID string) (*models.Folder, error) {
	var renamed *models.Folder
	err := s.update(ctx, "rename folder", func(tx Tx) error {
		f, err := s.folder(tx, id, userID)
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

		folders, err := s.userFolders(tx, userID)
		if err != nil {
			return err
		}
		for _, other := range folders {
			if other.ID != f.ID && other.Name == newName {
				return storage.ErrDuplicateName
			}
		}

		f.Name = newName
		f.UpdatedAt = s.timestamp()
		renamed = f
		return putJSON(tx, BucketFolders, f.ID, f)
	})
	if err != nil {
		return nil, err
	}
	return renamed, nil
}

// DeleteFolder moves the folder's snippets to General and removes it, in
// one transaction.
func (s *Store) DeleteFolder(ctx context.Context, id, userID string) error {
	return s.update(ctx, "delete folder", func(tx Tx) error {
		f, err := s.folder(tx, id, userID)
		if err != nil {
			return err
		}
		if f.IsGeneral() {
			return storage.ErrReservedFolder
		}

		general, err := s.ensureGeneral(tx, userID)
		if err != nil {
			return err
		}

		// Сниппеты папки переезжают в General в той же транзакции
		snippets, err := scan(tx, BucketSnippets, func(sn *models.Snippet) bool {
			return sn.UserID == userID && sn.FolderID != nil && *sn.FolderID == id
		})
		if err != nil {
			return err
		}
		now := s.timestamp()
		for _, sn := range snippets {
			generalID := general.ID
			sn.FolderID = &generalID
			sn.UpdatedAt = now
			if err := putJSON(tx, BucketSnippets, sn.ID, sn); err != nil {
				return err
			}
		}

		return tx.Delete(BucketFolders, id)
	})
}

// --- Snippets ---

func (s *Store) userSnippets(tx Tx, userID string) ([]*models.Snippet, error) {
	return scan(tx, BucketSnippets, func(sn *models.Snippet) bool { return sn.UserID == userID })
}

func (s *Store) snippet(tx Tx, id, userID string) (*models.Snippet, error) {
	sn, err := getJSON[models.Snippet](tx, BucketSnippets, id)
	if err != nil {
		return nil, err
	}
	if sn == nil || sn.UserID != userID {
		return nil, storage.ErrNotFound
	}
	return sn, nil
}

// checkFolderRef verifies that folderID names one of the user's folders.
func (s *Store) checkFolderRef(tx Tx, folderID *string, userID string) error {
	if folderID == nil {
		return nil
	}
	if _, err := s.folder(tx, *folderID, userID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.FolderNotFound(*folderID)
		}
		return err
	}
	return nil
}

// checkTrigger verifies no other snippet of the user uses trigger.
func (s *Store) checkTrigger(tx Tx, trigger, userID, selfID string) error {
	clash, err := scan(tx, BucketSnippets, func(sn *models.Snippet) bool {
		return sn.UserID == userID && sn.Trigger == trigger && sn.ID != selfID
	})
	if err != nil {
		return err
	}
	if len(clash) > 0 {
		return storage.ErrDuplicateTrigger
	}
	return nil
}

// ListSnippets returns the user's snippets, most recently updated first.
func (s *Store) ListSnippets(ctx context.Context, userID string) ([]*models.Snippet, error) {
	var snippets []*models.Snippet
	err := s.view(ctx, "list snippets", func(tx Tx) error {
		var err error
		snippets, err = s.userSnippets(tx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(snippets, func(a, b *models.Snippet) int {
		return cmp.Or(b.UpdatedAt.Compare(a.UpdatedAt), cmp.Compare(b.ID, a.ID))
	})
	return snippets, nil
}

// GetSnippet returns a snippet owned by userID.
func (s *Store) GetSnippet(ctx context.Context, id, userID string) (*models.Snippet, error) {
	var sn *models.Snippet
	err := s.view(ctx, "get snippet", func(tx Tx) error {
		var err error
		sn, err = s.snippet(tx, id, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return sn, nil
}

// GetSnippetByTrigger looks a snippet up by its trigger.
func (s *Store) GetSnippetByTrigger(ctx context.Context, trigger, userID string) (*models.Snippet, error) {
	var found *models.Snippet
	err := s.view(ctx, "get snippet by trigger", func(tx Tx) error {
		matches, err := scan(tx, BucketSnippets, func(sn *models.Snippet) bool {
			return sn.UserID == userID && sn.Trigger == trigger
		})
		if err != nil {
			return err
		}
		if len(matches) == 0 {
			return storage.ErrNotFound
		}
		found = matches[0]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// CreateSnippet stores a new snippet.
func (s *Store) CreateSnippet(ctx context.Context, input models.SnippetInput, userID string) (*models.Snippet, error) {
	input, err := storage.NormalizeSnippetInput(input)
	if err != nil {
		return nil, err
	}

	var created *models.Snippet
	err = s.update(ctx, "create snippet", func(tx Tx) error {
		if err := s.checkFolderRef(tx, input.FolderID, userID); err != nil {
			return err
		}
		if err := s.checkTrigger(tx, input.Trigger, userID, ""); err != nil {
			return err
		}

		now := s.timestamp()
		created = &models.Snippet{
			ID:          storage.NewID(),
			Title:       input.Title,
			Content:     input.Content,
			Trigger:     input.Trigger,
			Description: input.Description,
			FolderID:    input.FolderID,
			UserID:      userID,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		return putJSON(tx, BucketSnippets, created.ID, created)
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// UpdateSnippet applies a partial update.
func (s *Store) UpdateSnippet(ctx context.Context, id string, update models.SnippetUpdate, userID string) (*models.Snippet, error) {
	var updated *models.Snippet
	err := s.update(ctx, "update snippet", func(tx Tx) error {
		sn, err := s.snippet(tx, id, userID)
		if err != nil {
			return err
		}
		if err := storage.ApplySnippetUpdate(sn, update); err != nil {
			return err
		}
		if update.FolderID.HasValue() {
			if err := s.checkFolderRef(tx, sn.FolderID, userID); err != nil {
				return err
			}
		}
		if update.Trigger.HasValue() {
			if err := s.checkTrigger(tx, sn.Trigger, userID, sn.ID); err != nil {
				return err
			}
		}

		sn.UpdatedAt = s.timestamp()
		updated = sn
		return putJSON(tx, BucketSnippets, sn.ID, sn)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteSnippet removes a snippet owned by userID.
func (s *Store) DeleteSnippet(ctx context.Context, id, userID string) error {
	return s.update(ctx, "delete snippet", func(tx Tx) error {
		if _, err := s.snippet(tx, id, userID); err != nil {
			return err
		}
		return tx.Delete(BucketSnippets, id)
	})
}

// --- Clipboard ---

func (s *Store) userClipboard(tx Tx, userID string) ([]*models.ClipboardItem, error) {
	return scan(tx, BucketClipboard, func(it *models.ClipboardItem) bool { return it.UserID == userID })
}

func newestFirst(a, b *models.ClipboardItem) int {
	return cmp.Or(b.CreatedAt.Compare(a.CreatedAt), cmp.Compare(b.ID, a.ID))
}

// ListClipboardItems returns the user's history, newest first.
func (s *Store) ListClipboardItems(ctx context.Context, userID string) ([]*models.ClipboardItem, error) {
	var items []*models.ClipboardItem
	err := s.view(ctx, "list clipboard items", func(tx Tx) error {
		var err error
		items, err = s.userClipboard(tx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(items, newestFirst)
	return items, nil
}

// CreateClipboardItem stores an item unless an identical one was stored
// within storage.DuplicateWindow, then trims history to the limit.
func (s *Store) CreateClipboardItem(ctx context.Context, input models.ClipboardInput, userID string) (*models.ClipboardItem, error) {
	input, err := storage.NormalizeClipboardInput(input)
	if err != nil {
		return nil, err
	}

	var result *models.ClipboardItem
	err = s.update(ctx, "create clipboard item", func(tx Tx) error {
		now := s.timestamp()
		items, err := s.userClipboard(tx, userID)
		if err != nil {
			return err
		}
		slices.SortFunc(items, newestFirst)

		// Тот же текст за последние 5 секунд: возвращаем существующую запись
		cutoff := storage.DuplicateCutoff(now)
		for _, it := range items {
			if storage.IsRecentDuplicate(it, input, cutoff) {
				result = it
				return nil
			}
		}

		result = &models.ClipboardItem{
			ID:        storage.NewID(),
			Content:   input.Content,
			Type:      input.Type,
			UserID:    userID,
			CreatedAt: now,
		}
		if err := putJSON(tx, BucketClipboard, result.ID, result); err != nil {
			return err
		}

		settings, err := s.settings(tx)
		if err != nil {
			return err
		}
		// Новая запись первая, обрезаем хвост по лимиту из настроек
		items = append([]*models.ClipboardItem{result}, items...)
		return trimHistory(tx, items, storage.HistoryLimit(settings))
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// trimHistory deletes everything past limit from items sorted newest first.
func trimHistory(tx Tx, items []*models.ClipboardItem, limit int) error {
	if len(items) <= limit {
		return nil
	}
	for _, it := range items[limit:] {
		if err := tx.Delete(BucketClipboard, it.ID); err != nil {
			return err
		}
	}
	return nil
}

// DeleteClipboardItem removes one item owned by userID.
func (s *Store) DeleteClipboardItem(ctx context.Context, id, userID string) error {
	return s.update(ctx, "delete clipboard item", func(tx Tx) error {
		it, err := getJSON[models.ClipboardItem](tx, BucketClipboard, id)
		if err != nil {
			return err
		}
		if it == nil || it.UserID != userID {
			return storage.ErrNotFound
		}
		return tx.Delete(BucketClipboard, id)
	})
}

// ClearClipboardHistory removes every item of userID.
func (s *Store) ClearClipboardHistory(ctx context.Context, userID string) (int, error) {
	removed := 0
	err := s.update(ctx, "clear clipboard history", func(tx Tx) error {
		items, err := s.userClipboard(tx, userID)
		if err != nil {
			return err
		}
		for _, it := range items {
			if err := tx.Delete(BucketClipboard, it.ID); err != nil {
				return err
			}
		}
		removed = len(items)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// --- Settings ---

var settingsKey = strconv.Itoa(models.SettingsID)

// settings reads the row without creating it.
func (s *Store) settings(tx Tx) (*models.Settings, error) {
	st, err := getJSON[models.Settings](tx, BucketSettings, settingsKey)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return storage.DefaultSettings(), nil
	}
	return st, nil
}

// GetSettings returns the settings row, creating it with defaults.
func (s *Store) GetSettings(ctx context.Context) (*models.Settings, error) {
	var st *models.Settings
	err := s.update(ctx, "get settings", func(tx Tx) error {
		existing, err := getJSON[models.Settings](tx, BucketSettings, settingsKey)
		if err != nil {
			return err
		}
		if existing != nil {
			st = existing
			return nil
		}
		st = storage.DefaultSettings()
		return putJSON(tx, BucketSettings, settingsKey, st)
	})
	if err != nil {
		return nil, err
	}
	return st, nil
}

// UpdateSettings applies a partial update to the settings row.
func (s *Store) UpdateSettings(ctx context.Context, update models.SettingsUpdate) (*models.Settings, error) {
	var st *models.Settings
	err := s.update(ctx, "update settings", func(tx Tx) error {
		var err error
		st, err = s.settings(tx)
		if err != nil {
			return err
		}
		if err := storage.ApplySettingsUpdate(st, update); err != nil {
			return err
		}
		return putJSON(tx, BucketSettings, settingsKey, st)
	})
	if err != nil {
		return nil, err
	}
	return st, nil
}
