// Package filestore is the flat-file backend: one JSON document per entity
// kind under a data directory.
//
// A transaction that touches several files is committed in three steps: every
// new file is written and synced under a temporary name, a journal listing
// the pending renames is written, then the renames are applied. A journal
// found at startup means the process stopped mid-commit; its remaining
// renames are applied before loading, so readers never see half a commit.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/iudanet/snipkeeper/internal/models"
	"github.com/iudanet/snipkeeper/internal/server/storage"
	"github.com/iudanet/snipkeeper/internal/server/storage/kvstore"
	"github.com/iudanet/snipkeeper/internal/server/storage/memstore"
)

// File names inside the data directory.
const (
	FoldersFile   = "folders.json"
	SnippetsFile  = "snippets.json"
	ClipboardFile = "clipboard_items.json"
	SettingsFile  = "settings.json"
)

// journalFile lists the renames of a commit in progress.
const journalFile = ".commit.json"

var files = map[string]string{
	kvstore.BucketFolders:   FoldersFile,
	kvstore.BucketSnippets:  SnippetsFile,
	kvstore.BucketClipboard: ClipboardFile,
	kvstore.BucketSettings:  SettingsFile,
}

var settingsKey = strconv.Itoa(models.SettingsID)

type engine struct {
	*memstore.Engine
	dir string
}

// Ping checks that the data directory is still there.
func (e *engine) Ping(ctx context.Context) error {
	if err := e.Engine.Ping(ctx); err != nil {
		return err
	}
	if _, err := os.Stat(e.dir); err != nil {
		return fmt.Errorf("data directory: %w", err)
	}
	return nil
}

// New loads dir (creating it when missing) and returns a Store that writes
// back on every change.
func New(ctx context.Context, dir string, logger *slog.Logger, opts ...storage.Option) (*kvstore.Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	if err := recoverCommit(dir, logger); err != nil {
		return nil, err
	}

	data, err := load(dir)
	if err != nil {
		return nil, err
	}
	logger.Info("Flat-file storage loaded",
		"dir", dir,
		"folders", len(data[kvstore.BucketFolders]),
		"snippets", len(data[kvstore.BucketSnippets]),
		"clipboard_items", len(data[kvstore.BucketClipboard]),
	)

	e := &engine{
		Engine: memstore.NewEngine(data, func(prev, next memstore.Data, dirty []string) error {
			return commit(dir, prev, next, dirty)
		}),
		dir: dir,
	}
	return kvstore.New(e, opts...), nil
}

type journal struct {
	Files []staged `json:"files"`
}

// staged is one pending rename; both names are relative to the data directory.
type staged struct {
	Bucket string `json:"bucket"`
	Temp   string `json:"temp"`
	Target string `json:"target"`
}

// commit makes next durable for the dirty buckets. On error the files on
// disk hold prev again.
func commit(dir string, prev, next memstore.Data, dirty []string) error {
	var plan journal
	removeTemps := func(from int) {
		for _, f := range plan.Files[from:] {
			_ = os.Remove(filepath.Join(dir, f.Temp))
		}
	}

	// 1. все новые файлы записаны и синхронизированы до первого rename
	for _, bucket := range dirty {
		out, err := encodeBucket(bucket, next[bucket])
		if err != nil {
			removeTemps(0)
			return err
		}
		tmp, err := stage(dir, files[bucket], out)
		if err != nil {
			removeTemps(0)
			return err
		}
		plan.Files = append(plan.Files, staged{Bucket: bucket, Temp: tmp, Target: files[bucket]})
	}

	// 2. журнал: после падения процесса коммит будет доведён при старте
	raw, err := json.Marshal(plan)
	if err != nil {
		removeTemps(0)
		return fmt.Errorf("failed to encode journal: %w", err)
	}
	if err := writeFileAtomic(filepath.Join(dir, journalFile), raw); err != nil {
		removeTemps(0)
		return err
	}

	// 3. переименования
	done, err := apply(dir, plan)
	if err != nil {
		removeTemps(done)
		// Возвращаем уже заменённые файлы к prev
		var rollbackErrs []error
		for _, f := range slices.Backward(plan.Files[:done]) {
			if rbErr := writeBucket(dir, f.Bucket, prev[f.Bucket]); rbErr != nil {
				rollbackErrs = append(rollbackErrs, rbErr)
			}
		}
		_ = os.Remove(filepath.Join(dir, journalFile))
		if len(rollbackErrs) > 0 {
			return errors.Join(err, fmt.Errorf("rollback failed: %w", errors.Join(rollbackErrs...)))
		}
		return err
	}

	if err := os.Remove(filepath.Join(dir, journalFile)); err != nil {
		return fmt.Errorf("failed to remove journal: %w", err)
	}
	return syncDir(dir)
}

// apply renames the staged files in order and returns how many were
// renamed before an error.
func apply(dir string, plan journal) (int, error) {
	for i, f := range plan.Files {
		if err := os.Rename(filepath.Join(dir, f.Temp), filepath.Join(dir, f.Target)); err != nil {
			return i, fmt.Errorf("failed to replace %s: %w", f.Target, err)
		}
	}
	if err := syncDir(dir); err != nil {
		return len(plan.Files), err
	}
	return len(plan.Files), nil
}

// recoverCommit finishes a commit interrupted by a crash and removes
// temporary files no journal refers to.
func recoverCommit(dir string, logger *slog.Logger) error {
	path := filepath.Join(dir, journalFile)
	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return fmt.Errorf("failed to read journal: %w", err)
	default:
		var plan journal
		if err := json.Unmarshal(raw, &plan); err != nil {
			return fmt.Errorf("failed to parse journal: %w", err)
		}
		// Временные файлы, которых уже нет, были переименованы до остановки
		var pending journal
		for _, f := range plan.Files {
			if _, err := os.Stat(filepath.Join(dir, f.Temp)); err == nil {
				pending.Files = append(pending.Files, f)
			}
		}
		if _, err := apply(dir, pending); err != nil {
			return fmt.Errorf("failed to complete interrupted commit: %w", err)
		}
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("failed to remove journal: %w", err)
		}
		logger.Warn("Completed interrupted commit",
			"dir", dir,
			"files", len(plan.Files),
			"renamed", len(pending.Files),
		)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read data directory: %w", err)
	}
	for _, e := range entries {
		if isTemp(e.Name()) {
			if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
				return fmt.Errorf("failed to remove stale %s: %w", e.Name(), err)
			}
		}
	}
	return syncDir(dir)
}

func isTemp(name string) bool {
	return strings.HasPrefix(name, ".") && strings.Contains(name, ".tmp-")
}

func load(dir string) (memstore.Data, error) {
	data := make(memstore.Data, len(files))
	for bucket, name := range files {
		records, err := readBucket(filepath.Join(dir, name), bucket)
		if err != nil {
			return nil, err
		}
		data[bucket] = records
	}
	return data, nil
}

// readBucket parses one file. A missing file is an empty bucket.
func readBucket(path, bucket string) (map[string][]byte, error) {
	records := make(map[string][]byte)

	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return records, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if bucket == kvstore.BucketSettings {
		if len(raw) > 0 && string(raw) != "null" {
			var probe models.Settings
			if err := json.Unmarshal(raw, &probe); err != nil {
				return nil, fmt.Errorf("failed to parse %s: %w", path, err)
			}
			records[settingsKey] = raw
		}
		return records, nil
	}

	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	for i, item := range list {
		var head struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(item, &head); err != nil {
			return nil, fmt.Errorf("failed to parse %s[%d]: %w", path, i, err)
		}
		if head.ID == "" {
			return nil, fmt.Errorf("%s[%d]: record without id", path, i)
		}
		records[head.ID] = item
	}
	return records, nil
}

func encodeBucket(bucket string, records map[string][]byte) ([]byte, error) {
	var (
		out []byte
		err error
	)
	if bucket == kvstore.BucketSettings {
		raw, ok := records[settingsKey]
		if !ok {
			raw = []byte("null")
		}
		out, err = json.MarshalIndent(json.RawMessage(raw), "", "  ")
	} else {
		list := make([]json.RawMessage, 0, len(records))
		for _, key := range slices.Sorted(maps.Keys(records)) {
			list = append(list, records[key])
		}
		out, err = json.MarshalIndent(list, "", "  ")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", bucket, err)
	}
	return append(out, '\n'), nil
}

// writeBucket replaces one bucket file on its own.
func writeBucket(dir, bucket string, records map[string][]byte) error {
	out, err := encodeBucket(bucket, records)
	if err != nil {
		return err
	}
	return writeFileAtomic(filepath.Join(dir, files[bucket]), out)
}

// writeFileAtomic replaces path so readers see either the old or the new
// content, never a partial write.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := stage(dir, filepath.Base(path), data)
	if err != nil {
		return err
	}
	tmpPath := filepath.Join(dir, tmp)
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return syncDir(dir)
}

// stage writes data to a synced temporary file next to target and returns
// its name relative to dir.
func stage(dir, target string, data []byte) (string, error) {
	tmp, err := os.CreateTemp(dir, "."+target+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	fail := func(action string, err error) (string, error) {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("failed to %s %s: %w", action, tmpPath, err)
	}

	if _, err := tmp.Write(data); err != nil {
		return fail("write", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		return fail("chmod", err)
	}
	if err := tmp.Sync(); err != nil {
		return fail("sync", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("failed to close %s: %w", tmpPath, err)
	}
	return filepath.Base(tmpPath), nil
}

// syncDir makes renames inside dir durable.
func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", dir, err)
	}
	defer d.Close()
	if err := d.Sync(); err != nil {
		return fmt.Errorf("failed to sync %s: %w", dir, err)
	}
	return nil
}
