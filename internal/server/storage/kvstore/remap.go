package kvstore

import (
	"context"
	"fmt"
	"slices"

	"github.com/iudanet/snipkeeper/internal/server/storage"
)

// RemapUser moves every folder, snippet and clipboard item of fromUserID to
// toUserID. Folder name or trigger clashes abort the whole remap.
func (s *Store) RemapUser(ctx context.Context, fromUserID, toUserID string) (*storage.RemapResult, error) {
	if err := storage.CheckRemap(fromUserID, toUserID); err != nil {
		return nil, err
	}

	result := &storage.RemapResult{}
	err := s.update(ctx, "remap user", func(tx Tx) error {
		*result = storage.RemapResult{}

		fromFolders, err := s.userFolders(tx, fromUserID)
		if err != nil {
			return err
		}
		toGeneral, err := s.ensureGeneral(tx, toUserID)
		if err != nil {
			return err
		}
		toFolders, err := s.userFolders(tx, toUserID)
		if err != nil {
			return err
		}

		taken := make(map[string]bool, len(toFolders))
		maxOrder := 0
		for _, f := range toFolders {
			taken[f.Name] = true
			maxOrder = max(maxOrder, f.SortOrder)
		}
		// Проверяем конфликты до любых изменений
		for _, f := range fromFolders {
			if !f.IsGeneral() && taken[f.Name] {
				return fmt.Errorf("%w: %q", storage.ErrDuplicateName, f.Name)
			}
		}

		fromSnippets, err := s.userSnippets(tx, fromUserID)
		if err != nil {
			return err
		}
		toSnippets, err := s.userSnippets(tx, toUserID)
		if err != nil {
			return err
		}
		triggers := make(map[string]bool, len(toSnippets))
		for _, sn := range toSnippets {
			triggers[sn.Trigger] = true
		}
		for _, sn := range fromSnippets {
			if triggers[sn.Trigger] {
				return fmt.Errorf("%w: %q", storage.ErrDuplicateTrigger, sn.Trigger)
			}
		}

		sortFolders(fromFolders)
		now := s.timestamp()
		var fromGeneralID string
		for _, f := range fromFolders {
			// General источника удаляется, его сниппеты уйдут в General получателя
			if f.IsGeneral() {
				fromGeneralID = f.ID
				if err := tx.Delete(BucketFolders, f.ID); err != nil {
					return err
				}
				continue
			}
			maxOrder++
			f.UserID = toUserID
			f.SortOrder = maxOrder
			f.UpdatedAt = now
			if err := putJSON(tx, BucketFolders, f.ID, f); err != nil {
				return err
			}
			result.Folders++
		}

		for _, sn := range fromSnippets {
			sn.UserID = toUserID
			if sn.FolderID != nil && *sn.FolderID == fromGeneralID {
				generalID := toGeneral.ID
				sn.FolderID = &generalID
			}
			if err := putJSON(tx, BucketSnippets, sn.ID, sn); err != nil {
				return err
			}
			result.Snippets++
		}

		fromItems, err := s.userClipboard(tx, fromUserID)
		if err != nil {
			return err
		}
		for _, it := range fromItems {
			it.UserID = toUserID
			if err := putJSON(tx, BucketClipboard, it.ID, it); err != nil {
				return err
			}
			result.ClipboardItems++
		}

		items, err := s.userClipboard(tx, toUserID)
		if err != nil {
			return err
		}
		slices.SortFunc(items, newestFirst)
		settings, err := s.settings(tx)
		if err != nil {
			return err
		}
		return trimHistory(tx, items, storage.HistoryLimit(settings))
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
