package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/reposync/reposync/internal/syncengine"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Resolve the manifest and project it into every active tool's config",
	RunE:  runSync,
}

func runSync(cmd *cobra.Command, args []string) error {
	engine, err := buildEngine()
	if err != nil {
		return err
	}

	rep, err := engine.Sync(syncengine.Options{DryRun: flagDryRun})
	if err != nil {
		return err
	}

	if outputFormat() == "json" {
		return json.NewEncoder(os.Stdout).Encode(rep)
	}

	for _, t := range rep.Tools {
		status := "ok"
		if t.Err != nil {
			status = t.Err.Error()
		}
		fmt.Printf("%-16s %3d projections  %s\n", t.Tool, len(t.Projections), status)
	}
	for _, p := range rep.Presets {
		status := string(p.Result.Status)
		if p.Err != nil {
			status = p.Err.Error()
		}
		fmt.Printf("%-16s preset  %s\n", p.Preset, status)
	}
	if len(rep.Removed) > 0 {
		fmt.Printf("removed %d orphaned projection(s)\n", len(rep.Removed))
	}
	for _, w := range rep.Warnings {
		fmt.Fprintln(os.Stderr, "warning:", w)
	}
	if !rep.OK {
		return fmt.Errorf("sync completed with failures")
	}
	return nil
}
