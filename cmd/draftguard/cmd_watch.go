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

	"draftguard/internal/logging"
)

var watchDebounce time.Duration

// watchCmd re-runs the pipeline when a clarification file changes
var watchCmd = &cobra.Command{
	Use:   "watch [directory]",
	Short: "Watch a directory of clarification files and re-run on change",
	Long: `Watches a directory for clarification YAML changes and re-runs the full
pipeline for each changed file. Useful while iterating on clarification
answers: edit the file, get a fresh validated document.

Stops on SIGINT/SIGTERM.`,
	Args: cobra.ExactArgs(1),
	RunE: watchDirectory,
}

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 500*time.Millisecond, "delay before re-running after a change")
	watchCmd.Flags().StringVarP(&outDir, "out", "o", ".", "directory for rendered documents")
	watchCmd.Flags().StringVar(&outFormat, "format", "md", "output format: md or html")
}

func watchDirectory(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	dir := args[0]

	info, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}

	orch, db, err := buildPipeline(ctx, cfg)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sig)

	log := logging.Get(logging.CategoryPipeline)
	fmt.Printf("watching %s for clarification changes\n", dir)

	deb := newDebouncer(watchDebounce)
	defer deb.stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-sig:
			fmt.Println("\nstopping watch")
			return nil
		case path := <-deb.fired:
			delete(deb.pending, path)
			fmt.Printf("change detected: %s\n", path)
			if err := runOne(ctx, orch, db, path); err != nil {
				fmt.Fprintln(os.Stderr, err)
			}
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			ext := filepath.Ext(event.Name)
			if ext != ".yaml" && ext != ".yml" {
				continue
			}
			log.Debug("fs event %s on %s", event.Op, event.Name)
			deb.bump(event.Name)
		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", zap.Error(werr))
		}
	}
}

// debouncer coalesces rapid file events per path; editors fire several
// events per save.
type debouncer struct {
	delay   time.Duration
	fired   chan string
	done    chan struct{}
	pending map[string]*time.Timer
}

func newDebouncer(delay time.Duration) *debouncer {
	return &debouncer{
		delay:   delay,
		fired:   make(chan string, 1),
		done:    make(chan struct{}),
		pending: make(map[string]*time.Timer),
	}
}

// bump (re)arms the timer for path. Owned by the watch loop goroutine.
func (d *debouncer) bump(path string) {
	if t, ok := d.pending[path]; ok {
		t.Stop()
	}
	d.pending[path] = time.AfterFunc(d.delay, func() {
		select {
		case d.fired <- path:
		case <-d.done:
		}
	})
}

// stop releases any timer goroutine still waiting to deliver.
func (d *debouncer) stop() {
	close(d.done)
	for _, t := range d.pending {
		t.Stop()
	}
}
