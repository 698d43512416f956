package file

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// promptChangeOps are the events that can change a prompt file's content.
const promptChangeOps = fsnotify.Create | fsnotify.Write | fsnotify.Remove | fsnotify.Rename

// Watch reloads the prompt cache whenever a prompt file in the prompt
// directory is created, written, removed or renamed, so edits apply to a
// running server without a restart. It creates the directory if needed and
// blocks until ctx is done.
func (s *PromptStore) Watch(ctx context.Context) error {
	s.initOnce.Do(s.initialise)
	if s.initErr != nil {
		return fmt.Errorf("prompt store init failed: %w", s.initErr)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create prompt watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(s.promptDir); err != nil {
		return fmt.Errorf("watch %s: %w", s.promptDir, err)
	}
	logger.Debug("Watching prompts in %s", s.promptDir)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isPromptChange(event) {
				continue
			}
			s.Reload()
			logger.Info("Prompt %s changed, reloaded", filepath.Base(event.Name))

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Prompt watcher: %v", err)
		}
	}
}

// isPromptChange reports whether event touches a prompt template.
// The README and editor swap files are ignored.
func isPromptChange(event fsnotify.Event) bool {
	if filepath.Ext(event.Name) != ".txt" {
		return false
	}
	return event.Op&promptChangeOps != 0
}
