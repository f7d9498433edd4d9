package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/reposync/reposync/internal/config"
	"github.com/reposync/reposync/internal/engineconfig"
	"github.com/reposync/reposync/internal/layout"
	"github.com/reposync/reposync/internal/manifest"
	"github.com/reposync/reposync/internal/syncengine"
	"github.com/reposync/reposync/internal/tooldispatch"
)

var (
	flagDryRun     bool
	flagVerbose    bool
	flagOutput     string
	flagStrict     bool
	flagConfigFile string
)

var rootCmd = &cobra.Command{
	Use:   "reposync",
	Short: "Keep AI coding tool configs in sync with one set of rules",
	Long: `reposync resolves a layered set of rules and presets into every AI
coding tool's native config format, records what it wrote in a ledger, and
can later check or repair drift between the ledger and the working tree.

Commands:
  check   report drift without writing anything
  sync    resolve the manifest and project it into every active tool
  fix     repair Missing/Modified projections, leaving unknown files alone
  watch   re-run check whenever the repo manifest changes`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "reposync:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagDryRun, "dry-run", false, "show what would change without writing")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&flagOutput, "output", "o", "", "output format (table, json)")
	rootCmd.PersistentFlags().BoolVar(&flagStrict, "strict", false, "treat unknown tools/presets as errors")
	rootCmd.PersistentFlags().StringVar(&flagConfigFile, "config", "", "CLI config file (default: .reposync/config.yaml)")

	rootCmd.AddCommand(checkCmd, syncCmd, fixCmd, watchCmd)
}

// buildEngine detects the project layout from the working directory,
// resolves CLI and engine-level config, and wires a syncengine.Engine
// against the built-in tool integrations.
func buildEngine() (*syncengine.Engine, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	if flagConfigFile != "" {
		if err := os.Setenv("REPOSYNC_CONFIG", flagConfigFile); err != nil {
			return nil, err
		}
	}

	cliCfg, err := config.Load(&config.Config{
		Output:  flagOutput,
		Verbose: flagVerbose,
		Strict:  flagStrict,
	})
	if err != nil {
		return nil, err
	}

	loc, err := layout.Detect(cwd)
	if err != nil {
		return nil, err
	}

	engineCfg := engineconfig.Resolve(engineconfig.Overrides{
		LockTimeoutSeconds: cliCfg.LockTimeoutSeconds,
	})

	ledgerPath := cliCfg.LedgerPath
	if !filepath.IsAbs(ledgerPath) {
		ledgerPath = filepath.Join(loc.WorkingTreeRoot, ledgerPath)
	}

	paths := manifest.DefaultPaths(loc.ConfigRoot, "")

	return &syncengine.Engine{
		ManifestPaths:   paths,
		LedgerPath:      ledgerPath,
		WorkingTreeRoot: loc.WorkingTreeRoot,
		Integrations:    tooldispatch.Builtins(),
		LockTimeout:     engineCfg.LockTimeoutDuration(),
		Strict:          cliCfg.Strict,
		Logger:          tooldispatch.NewDefaultLogger(os.Stderr, cliCfg.Verbose),
	}, nil
}

func outputFormat() string {
	if flagOutput != "" {
		return flagOutput
	}
	cliCfg, err := config.Load(nil)
	if err != nil || cliCfg.Output == "" {
		return "table"
	}
	return cliCfg.Output
}
