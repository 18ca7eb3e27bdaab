// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paper-survey/internal/intent"
	"github.com/pdiddy/paper-survey/internal/server"
	"github.com/pdiddy/paper-survey/internal/task"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serve starts the HTTP API:

  POST /search        run a structured query (JSON body) and wait for results
  GET  /search?q=...  parse free text and run it
  POST /tasks         {"query": "..."} starts a background search, returns 202 with task_id
  GET  /tasks/:id     poll a task's status, per-source progress and results
  GET  /healthz       liveness

Finished tasks are kept for tasks.ttl (default 30m).`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default 127.0.0.1:8000)")
	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := task.NewStore(cfg.Tasks.TTL, task.WithLogger(logger))
	go store.Run(ctx, cfg.Tasks.SweepInterval)

	agg := newAggregator()
	parser := newParser()
	orch := task.NewOrchestrator(ctx, store, parser, agg, cfg, logger)
	defer orch.Close()

	router := server.New(&server.Handler{
		Aggregator:   agg,
		Orchestrator: orch,
		Parser:       parser,
		Options:      intent.OptionsFrom(cfg.Search),
		Logger:       logger,
	})
	return server.Serve(ctx, cfg.Server.Addr, router, logger)
}
