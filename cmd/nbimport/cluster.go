package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/kingrea/nbimport/internal/cluster"
	"github.com/kingrea/nbimport/internal/runtime"
)

var (
	clusterWorkers int
	clusterThreads int

	clusterCmd = &cobra.Command{
		Use:   "cluster <module>",
		Short: "Import a notebook on every worker of a local cluster",
		Args:  cobra.ExactArgs(1),
		RunE:  runCluster,
	}
)

func init() {
	clusterCmd.Flags().IntVarP(&clusterWorkers, "workers", "w", -1, "number of workers (0 = one per CPU, default from config)")
	clusterCmd.Flags().IntVarP(&clusterThreads, "threads", "t", 0, "tasks each worker runs at once (default from config)")
}

func runCluster(cmd *cobra.Command, args []string) error {
	env, err := loadEnvironment(cmd.ErrOrStderr(), nil)
	if err != nil {
		return err
	}
	defer env.Close()

	workers := env.cfg.Project.Cluster.Workers
	if clusterWorkers >= 0 {
		workers = clusterWorkers
	}
	threads := env.cfg.Project.Cluster.ThreadsPerWorker
	if clusterThreads > 0 {
		threads = clusterThreads
	}

	client, c, err := cluster.Setup(workers, threads, env.logger.Logger, env.finderOptions()...)
	if err != nil {
		return err
	}
	defer c.Close()

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt)
	defer stop()

	results, runErr := client.Run(ctx, cluster.ImportTask(args[0]))
	out := cmd.OutOrStdout()
	for _, res := range results {
		if res.WorkerID == "" {
			continue
		}
		id := mutedStyle.Render(shortID(res.WorkerID))
		switch {
		case res.Err != nil:
			fmt.Fprintf(out, "%s %s %v\n", id, errorStyle.Render("failed"), res.Err)
		case res.Value != nil:
			m := res.Value.(*runtime.Module)
			fmt.Fprintf(out, "%s %s %d cells, %d names\n", id, successStyle.Render(string(m.State())), m.Executed(), len(m.Namespace.Names()))
		}
	}
	return runErr
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
