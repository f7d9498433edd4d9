package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/reposync/reposync/internal/layout"
	"github.com/reposync/reposync/internal/manifest"
	"github.com/reposync/reposync/internal/syncengine"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-run check whenever the repo manifest changes",
	RunE:  runWatch,
}

// debounce absorbs editors that emit several fsnotify events per save
// (write, chmod, rename-into-place) as one logical change.
const debounce = 200 * time.Millisecond

func runWatch(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	loc, err := layout.Detect(cwd)
	if err != nil {
		return err
	}
	paths := manifest.DefaultPaths(loc.ConfigRoot, "")

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close() //nolint:errcheck

	watched := map[string]bool{}
	for _, p := range []string{paths.Repo, paths.RepoLocal} {
		dir := filepath.Dir(p)
		if watched[dir] {
			continue
		}
		if err := watcher.Add(dir); err == nil {
			watched[dir] = true
		}
	}
	if len(watched) == 0 {
		return fmt.Errorf("nothing to watch: %s does not exist", loc.ConfigRoot)
	}

	fmt.Printf("watching %s for manifest changes (ctrl-c to stop)\n", loc.ConfigRoot)
	printCheckSummary()

	var timer *time.Timer
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Name != paths.Repo && event.Name != paths.RepoLocal {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, printCheckSummary)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintln(os.Stderr, "watch error:", err)
		}
	}
}

func printCheckSummary() {
	engine, err := buildEngine()
	if err != nil {
		fmt.Fprintln(os.Stderr, "watch:", err)
		return
	}
	rep, err := engine.Check(syncengine.Options{})
	if err != nil {
		fmt.Fprintln(os.Stderr, "watch:", err)
		return
	}
	fmt.Printf("[%s] %d/%d healthy\n", time.Now().Format(time.RFC3339), rep.Healthy, rep.Total)
}
