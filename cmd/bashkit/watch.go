package main

import (
	"fmt"
	"os"

	"github.com/fsnotify/fsnotify"
)

// watchAndRun re-runs file against a fresh session every time it changes on
// the host disk. This is a CLI-only collaborator: the core interpreter
// never touches the host filesystem, only the session's internal/vfs.FS.
func watchAndRun(file, configPath string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(file); err != nil {
		return fmt.Errorf("watch: %w", err)
	}

	fmt.Fprintf(os.Stderr, "watching %s, ctrl-c to stop\n", file)
	if _, err := runOnce(file, configPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}

	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			fmt.Fprintf(os.Stderr, "--- re-running %s ---\n", file)
			if _, err := runOnce(file, configPath); err != nil {
				fmt.Fprintln(os.Stderr, err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintln(os.Stderr, "watch error:", err)
		}
	}
}
