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
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-fbx/internal/importer"
	"github.com/Faultbox/midgard-fbx/internal/logger"
)

func newWatchCmd(a *app) *cobra.Command {
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch <file.fbx>...",
		Short: "Re-import containers whenever they change on disk",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if debounce <= 0 {
				return fmt.Errorf("--debounce must be greater than 0")
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			watcher, err := fsnotify.NewWatcher()
			if err != nil {
				return err
			}
			defer watcher.Close()

			// exporters usually replace the file, so watch the directories
			targets := make(map[string]bool)
			dirs := make(map[string]bool)
			for _, p := range args {
				abs, err := filepath.Abs(p)
				if err != nil {
					return err
				}
				targets[abs] = true
				dirs[filepath.Dir(abs)] = true
			}
			for dir := range dirs {
				if err := watcher.Add(dir); err != nil {
					return fmt.Errorf("watching %s: %w", dir, err)
				}
			}

			cache := importer.NewCache()
			log := logger.Named("watch")
			reload := func(path string) {
				res, cached, err := cache.Load(ctx, path, a.cfg, importer.WithLogger(logger.Named("importer")))
				if cached {
					return
				}
				printSummary(cmd.OutOrStdout(), summarize(path, res, err))
			}
			for path := range targets {
				reload(path)
			}

			pending := make(map[string]time.Time)
			tick := time.NewTicker(max(debounce/2, time.Millisecond))
			defer tick.Stop()
			for {
				select {
				case <-ctx.Done():
					hits, misses := cache.Stats()
					log.Debug("watch stopped", zap.Int("cache_hits", hits), zap.Int("imports", misses))
					return nil
				case ev, ok := <-watcher.Events:
					if !ok {
						return nil
					}
					name, err := filepath.Abs(ev.Name)
					if err != nil || !targets[name] {
						continue
					}
					if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
						pending[name] = time.Now()
					}
				case err, ok := <-watcher.Errors:
					if !ok {
						return nil
					}
					log.Warn("watcher error", zap.Error(err))
				case now := <-tick.C:
					for name, at := range pending {
						if now.Sub(at) < debounce {
							continue
						}
						delete(pending, name)
						cache.Invalidate(name)
						reload(name)
					}
				}
			}
		},
	}

	cmd.Flags().DurationVar(&debounce, "debounce", 300*time.Millisecond, "wait this long after the last change before re-importing")
	return cmd
}
