package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kingrea/nbimport/internal/config"
	"github.com/kingrea/nbimport/internal/loader"
	"github.com/kingrea/nbimport/internal/logging"
	"github.com/kingrea/nbimport/internal/metrics"
)

var (
	cfgFile  string
	dirFlag  string
	logLevel string

	rootCmd = &cobra.Command{
		Use:   "nbimport",
		Short: "Import Go notebooks as modules",
		Long: titleStyle.Render("nbimport") + mutedStyle.Render(" - import Go notebooks as modules") + `

A module name M resolves to M.ipynb in the search directory. Code cells run in
order into one namespace; cells starting with "%" and cells tagged "noimport"
are skipped.

Examples:
  nbimport run util            Import util.ipynb and list its bindings
  nbimport cells util          Show which cells of util.ipynb would run
  nbimport cluster util -w 4   Import util.ipynb on four workers
  nbimport init                Write a default .nbimport.yaml`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./"+config.FileName+")")
	rootCmd.PersistentFlags().StringVarP(&dirFlag, "dir", "C", "", "notebook search directory (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(cellsCmd)
	rootCmd.AddCommand(clusterCmd)
	rootCmd.AddCommand(initCmd)
}

// environment is everything a subcommand needs, resolved once from flags and config.
type environment struct {
	cfg     *config.Config
	logger  *logging.Logger
	metrics *metrics.Collector
}

func loadEnvironment(stderr io.Writer, collector *metrics.Collector) (*environment, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("determine working directory: %w", err)
	}
	cfg, err := config.Load(cwd, cfgFile)
	if err != nil {
		return nil, err
	}
	if dirFlag != "" {
		abs, err := filepath.Abs(dirFlag)
		if err != nil {
			return nil, fmt.Errorf("resolve --dir: %w", err)
		}
		cfg.Project.Search.Dir = abs
	}
	level := cfg.Project.Log.Level
	if logLevel != "" {
		level = logLevel
	}
	logger, err := logging.New(logging.Options{
		Level:  level,
		Prefix: "nbimport",
		Writer: stderr,
		Dir:    cfg.LogsDir(),
	})
	if err != nil {
		return nil, err
	}
	return &environment{cfg: cfg, logger: logger, metrics: collector}, nil
}

func (env *environment) finderOptions() []loader.Option {
	p := env.cfg.Project
	return []loader.Option{
		loader.WithDir(p.Search.Dir),
		loader.WithExtension(p.Search.Extension),
		loader.WithDirectivePrefixes(p.Filters.DirectivePrefixes...),
		loader.WithExcludeTag(p.Filters.ExcludeTag),
		loader.WithLogger(env.logger.Logger),
		loader.WithMetrics(env.metrics),
	}
}

func (env *environment) Close() {
	_ = env.logger.Close()
}
