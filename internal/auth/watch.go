// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce coalesces the create/write/rename burst of an atomic save.
const watchDebounce = 150 * time.Millisecond

// Watch reloads the store whenever the credentials file changes on disk,
// for example after `taxease login` in another terminal, and calls
// onChange with the new session. It blocks until ctx is done.
//
// The parent directory is watched rather than the file because saves
// replace the file by rename.
func (f *FileStore) Watch(ctx context.Context, onChange func(Session)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create credentials directory: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	target := filepath.Base(f.path)
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				timer.Reset(watchDebounce)
			}

		case <-timer.C:
			before := f.Session()
			if err := f.Reload(); err != nil {
				continue
			}
			after := f.Session()
			if onChange != nil && (before.AccessToken != after.AccessToken || before.RefreshToken != after.RefreshToken) {
				onChange(after)
			}

		case _, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
		}
	}
}
