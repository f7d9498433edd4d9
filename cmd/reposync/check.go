package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/reposync/reposync/internal/report"
	"github.com/reposync/reposync/internal/syncengine"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Report drift between the ledger and the working tree (read-only)",
	RunE:  runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	engine, err := buildEngine()
	if err != nil {
		return err
	}

	rep, err := engine.Check(syncengine.Options{})
	if err != nil {
		return err
	}

	if outputFormat() == "json" {
		return json.NewEncoder(os.Stdout).Encode(rep)
	}

	rows := make([]report.DriftRow, 0, len(rep.Items))
	for _, item := range rep.Items {
		rows = append(rows, report.DriftRow{
			Tool:  item.Projection.Tool,
			File:  item.Projection.File,
			Kind:  string(item.Projection.Kind),
			State: string(item.State),
		})
	}
	if err := report.RenderDrift(os.Stdout, rows); err != nil {
		return err
	}
	fmt.Printf("%d/%d healthy\n", rep.Healthy, rep.Total)
	return nil
}
