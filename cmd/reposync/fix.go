package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/reposync/reposync/internal/syncengine"
)

var fixCmd = &cobra.Command{
	Use:   "fix",
	Short: "Repair Missing/Modified projections; Extra files are never touched",
	RunE:  runFix,
}

func runFix(cmd *cobra.Command, args []string) error {
	engine, err := buildEngine()
	if err != nil {
		return err
	}

	rep, err := engine.Fix(syncengine.Options{DryRun: flagDryRun})
	if err != nil {
		return err
	}

	if outputFormat() == "json" {
		return json.NewEncoder(os.Stdout).Encode(rep)
	}

	fmt.Printf("repaired %d, skipped %d (extra, left untouched)\n", len(rep.Repaired), len(rep.Skipped))
	for _, e := range rep.Errors {
		fmt.Fprintln(os.Stderr, "error:", e)
	}
	if len(rep.Errors) > 0 {
		return fmt.Errorf("fix completed with errors")
	}
	return nil
}
