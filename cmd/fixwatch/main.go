package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	configPath  string
	backendFlag string
	noTUI       bool

	rootCmd = &cobra.Command{
		Use:   "fixwatch",
		Short: "fixwatch - monitor autonomous CI/CD healing runs",
		Long: `fixwatch starts repository auto-fix runs on an agent backend and follows
them until they finish, showing the target branch, the fixes applied, the
score and a timeline of iterations.`,
		SilenceUsage: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "fixwatch.yaml", "config file path")
	rootCmd.PersistentFlags().StringVar(&backendFlag, "backend", "", "agent backend URL (overrides backend_url)")
	rootCmd.PersistentFlags().BoolVar(&noTUI, "no-tui", false, "disable TUI mode")

	rootCmd.AddCommand(newRunCmd(), newWatchCmd(), newHealthCmd(), newSimulateCmd())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
