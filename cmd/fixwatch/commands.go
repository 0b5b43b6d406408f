package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marcin-skalski/fixwatch/internal/config"
	"github.com/marcin-skalski/fixwatch/internal/logging"
	"github.com/marcin-skalski/fixwatch/internal/run"
	"github.com/marcin-skalski/fixwatch/internal/simulator"
)

func newRunCmd() *cobra.Command {
	var req run.StartRequest

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start an auto-fix run and follow it",
		Long: `Start an auto-fix run for a repository and follow it until it finishes.

In the TUI the flags pre-fill the start form; when all three are given the run
starts right away. Headless mode requires all three.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(true)
			if err != nil {
				return err
			}
			defer a.Close()

			if a.tui {
				return a.runTUI(cmd.Context(), req, true)
			}
			a.logger.Info("fixwatch starting (headless)", "backend", a.cfg.BackendURL)
			return runHeadless(cmd.Context(), a.poller, req, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&req.RepoURL, "repo", "", "GitHub repository URL")
	cmd.Flags().StringVar(&req.TeamName, "team", "", "team name")
	cmd.Flags().StringVar(&req.LeaderName, "leader", "", "team leader name")
	return cmd
}

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch RUN_ID",
		Short: "Follow a run that was already started",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(true)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.poller.Attach(cmd.Context(), args[0]); err != nil {
				return err
			}
			if a.tui {
				return a.runTUI(cmd.Context(), run.StartRequest{}, false)
			}
			return waitAndReport(cmd.Context(), a.poller, cmd.OutOrStdout())
		},
	}
}

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the agent backend is up",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(false)
			if err != nil {
				return err
			}
			defer a.Close()

			h, err := a.client.Health(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (%s)\n", a.cfg.BackendURL, h.Status, h.Service)
			return nil
		},
	}
}

func newSimulateCmd() *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Serve a simulated agent backend",
		Long: `Serve an in-memory agent backend whose runs move from pending through a
number of fix iterations to completion. Repositories listed under
simulator.fail_repos end in a failed run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger, closer, err := logging.Setup(logging.Options{File: cfg.LogFile, Level: cfg.Log.Level})
			if err != nil {
				return fmt.Errorf("setup logger: %w", err)
			}
			defer closer.Close()

			if listen == "" {
				listen = cfg.Simulator.Listen
			}
			sim := simulator.New(simulator.Config{
				PendingFor:     cfg.Simulator.PendingFor,
				IterationEvery: cfg.Simulator.IterationEvery,
				MaxIterations:  cfg.Simulator.MaxIterations,
				InitialIssues:  cfg.Simulator.InitialIssues,
				FailRepos:      cfg.Simulator.FailRepos,
			}, logger)
			return sim.Serve(cmd.Context(), listen)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "listen address (overrides simulator.listen)")
	return cmd
}
