package config

import (
	"context"
	"path/filepath"

	"github.com/dkaus1/vscode-ai-ext/internal/logging"
	"github.com/dkaus1/vscode-ai-ext/pkg/types"
	"github.com/fsnotify/fsnotify"
)

// Watch reloads the configuration whenever a project config file or the
// project .env in directory changes, and hands the result to fn. It blocks
// until ctx is done.
func Watch(ctx context.Context, directory string, fn func(*types.Config)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	// Watch the directory rather than the files so that editors which
	// replace files on save are picked up.
	if err := w.Add(directory); err != nil {
		return err
	}

	watched := make(map[string]bool)
	for _, name := range configFileNames(".aicodecompanion") {
		watched[name] = true
	}
	watched[".env"] = true

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			if !watched[filepath.Base(ev.Name)] {
				continue
			}
			cfg, err := Load(directory)
			if err != nil {
				logging.Warn().Err(err).Str("file", ev.Name).Msg("config reload failed")
				continue
			}
			logging.Info().Str("file", ev.Name).Msg("config reloaded")
			fn(cfg)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logging.Error().Err(err).Msg("config watcher error")
		}
	}
}
