package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"reflect"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDebounce is how long the file must stay quiet before it is reloaded.
var reloadDebounce = 250 * time.Millisecond

// Watch reloads path after it changes and calls onChange when a hot-reloadable
// setting (the simulation block or the interval) differs from the last
// accepted config. It runs until ctx is cancelled.
//
// Bursts of events are coalesced into one reload. Invalid files are logged
// and skipped. Changes to restart-only settings are logged and otherwise
// ignored.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("config: watch %s: %w", path, err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// The directory survives rename-based saves; the file inode does not.
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return err
	}

	current, err := Load(abs)
	if err != nil {
		slog.Warn("config: no valid baseline, first good reload will apply", "path", abs, "err", err)
	}
	initial := current
	slog.Info("config: watching for changes", "path", abs, "debounce", reloadDebounce)

	timer := time.NewTimer(reloadDebounce)
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
			if filepath.Clean(event.Name) != abs || !(event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
				continue
			}
			timer.Reset(reloadDebounce)

		case <-timer.C:
			next, err := Load(abs)
			if err != nil {
				slog.Error("config: reload failed, keeping previous config", "path", abs, "err", err)
				continue
			}
			if initial != nil && restartChanged(initial, next) {
				slog.Warn("config: endpoint, auth, buffer or sink changes need a restart", "path", abs)
			}
			if current != nil && !hotChanged(current, next) {
				slog.Debug("config: reload has no hot-reloadable changes", "path", abs)
				current = next
				continue
			}
			current = next
			slog.Info("config: reloaded", "path", abs)
			onChange(next)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("config: watcher error", "err", err)
		}
	}
}

// hotChanged reports whether settings the running agent can apply differ.
func hotChanged(old, next *Config) bool {
	return old.Agent.Interval != next.Agent.Interval ||
		!reflect.DeepEqual(old.Agent.Simulation, next.Agent.Simulation)
}

// restartChanged reports whether settings fixed at startup differ.
func restartChanged(old, next *Config) bool {
	return old.Agent.ServerEndpoint != next.Agent.ServerEndpoint ||
		old.Agent.BufferSize != next.Agent.BufferSize ||
		!reflect.DeepEqual(old.Agent.ServerAuth, next.Agent.ServerAuth) ||
		!reflect.DeepEqual(old.Agent.Sinks, next.Agent.Sinks)
}
