package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

// debounceWindow coalesces the burst of fsnotify events editors emit on a
// single save.
const debounceWindow = 200 * time.Millisecond

var watchCmd = &cobra.Command{
	Use:   "watch <file>",
	Short: "Re-run a document's run_on_save chunks whenever it is written",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.close()

		abs, err := filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("resolve document path: %w", err)
		}

		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("create watcher: %w", err)
		}
		defer watcher.Close()

		// Watch the directory, not the file: most editors replace the file
		// on save, which drops a direct file watch.
		if err := watcher.Add(filepath.Dir(abs)); err != nil {
			return fmt.Errorf("watch directory: %w", err)
		}

		rt.logger.Info("watching document", "path", abs)

		// Run the on-save set once up front so the first state is current.
		results, err := runDocument(cmd.Context(), rt, abs, true)
		if err != nil {
			return err
		}
		printResults(results)

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		var debounce *time.Timer
		runs := make(chan struct{}, 1)

		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return nil
				}
				if filepath.Clean(event.Name) != abs {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(debounceWindow, func() {
					select {
					case runs <- struct{}{}:
					default:
					}
				})

			case <-runs:
				results, err := runDocument(cmd.Context(), rt, abs, true)
				if err != nil {
					rt.logger.Error("run on save", "error", err)
					continue
				}
				printResults(results)

			case err, ok := <-watcher.Errors:
				if !ok {
					return nil
				}
				rt.logger.Error("watcher error", "error", err)

			case sig := <-quit:
				rt.logger.Info("stopping watch", "signal", sig.String())
				return nil
			}
		}
	},
}
