package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"

	"github.com/marcin-skalski/fixwatch/internal/backend"
	"github.com/marcin-skalski/fixwatch/internal/config"
	"github.com/marcin-skalski/fixwatch/internal/dashboard"
	"github.com/marcin-skalski/fixwatch/internal/logging"
	"github.com/marcin-skalski/fixwatch/internal/poller"
	"github.com/marcin-skalski/fixwatch/internal/run"
	"github.com/marcin-skalski/fixwatch/internal/tui"
)

type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	logCloser io.Closer
	client    *backend.Client
	poller    *poller.Poller
	tui       bool
}

// newApp loads config and wires logging, the backend client and the poller.
// withTUI is ignored when stdin or stdout is not a terminal.
func newApp(withTUI bool) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if backendFlag != "" {
		if err := config.ValidateBackendURL(backendFlag); err != nil {
			return nil, err
		}
		cfg.BackendURL = backendFlag
	}

	// Auto-detect TUI capability
	enableTUI := withTUI && !noTUI && os.Getenv("FIXWATCH_TUI") != "0" &&
		isatty.IsTerminal(os.Stdin.Fd()) && isatty.IsTerminal(os.Stdout.Fd())

	logger, closer, err := logging.Setup(logging.Options{
		File:  cfg.LogFile,
		Level: cfg.Log.Level,
		TUI:   enableTUI,
	})
	if err != nil {
		return nil, fmt.Errorf("setup logger: %w", err)
	}

	client := backend.NewClient(cfg.BackendURL, cfg.RequestTimeout, logger)
	return &app{
		cfg:       cfg,
		logger:    logger,
		logCloser: closer,
		client:    client,
		poller:    poller.New(client, cfg.PollInterval, logger),
		tui:       enableTUI,
	}, nil
}

func (a *app) Close() {
	a.poller.Stop()
	_ = a.logCloser.Close()
}

func (a *app) runTUI(ctx context.Context, req run.StartRequest, autoStart bool) error {
	m := tui.NewModel(ctx, a.poller, tui.ModelConfig{
		RefreshInterval: a.cfg.TUI.RefreshInterval,
		Request:         req,
		AutoStart:       autoStart,
	})
	p := tea.NewProgram(m, tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// runHeadless starts a run and blocks until it finishes, then prints the
// report.
func runHeadless(ctx context.Context, p *poller.Poller, req run.StartRequest, out io.Writer) error {
	if err := p.Start(ctx, req); err != nil {
		return err
	}
	return waitAndReport(ctx, p, out)
}

// waitAndReport prints what is known about the run and fails unless it
// finished with verdict PASSED.
func waitAndReport(ctx context.Context, p *poller.Poller, out io.Writer) error {
	waitErr := p.Wait(ctx)

	snap := p.GetSnapshot()
	if snap.View != nil {
		if err := dashboard.WriteReport(out, *snap.View, time.Now()); err != nil {
			return err
		}
	}

	switch {
	case snap.Err != "":
		return fmt.Errorf("monitor run %s: %s", snap.RunID, snap.Err)
	case waitErr != nil:
		return fmt.Errorf("monitor run %s: %w", snap.RunID, waitErr)
	case snap.View == nil:
		return fmt.Errorf("monitor run %s: stopped before the first snapshot", snap.RunID)
	case !snap.View.Status.IsTerminal():
		return fmt.Errorf("monitor run %s: stopped while %s", snap.RunID, snap.View.Status)
	case snap.View.Verdict == run.VerdictFailed:
		return fmt.Errorf("run %s finished with verdict %s", snap.RunID, snap.View.Verdict)
	}
	return nil
}
