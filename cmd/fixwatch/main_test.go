package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcin-skalski/fixwatch/internal/backend"
	"github.com/marcin-skalski/fixwatch/internal/poller"
	"github.com/marcin-skalski/fixwatch/internal/run"
	"github.com/marcin-skalski/fixwatch/internal/simulator"
)

func startSimulator(t *testing.T, cfg simulator.Config) *poller.Poller {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	ts := httptest.NewServer(simulator.New(cfg, logger).Handler())
	t.Cleanup(ts.Close)

	client := backend.NewClient(ts.URL, time.Second, logger)
	p := poller.New(client, 10*time.Millisecond, logger)
	t.Cleanup(p.Stop)
	return p
}

func TestRunHeadless_Passed(t *testing.T) {
	p := startSimulator(t, simulator.Config{
		PendingFor:     20 * time.Millisecond,
		IterationEvery: 20 * time.Millisecond,
		MaxIterations:  5,
		InitialIssues:  2,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var out bytes.Buffer
	err := runHeadless(ctx, p, run.StartRequest{
		RepoURL:    "https://github.com/acme/widgets",
		TeamName:   "RIFT ORGANISERS",
		LeaderName: "Saiyam Kumar",
	}, &out)
	require.NoError(t, err)

	report := out.String()
	assert.Contains(t, report, "PASSED")
	assert.Contains(t, report, "acme/widgets")
	assert.Contains(t, report, "RIFT_ORGANISERS_SAIYAM_KUMAR_AI_FIX")
	assert.Contains(t, report, "(2 fixes)")
	assert.Equal(t, poller.StateTerminated, p.Status().State)
}

func TestRunHeadless_FailedRun(t *testing.T) {
	p := startSimulator(t, simulator.Config{
		IterationEvery: 20 * time.Millisecond,
		InitialIssues:  2,
		FailRepos:      []string{"https://github.com/acme/broken"},
	})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var out bytes.Buffer
	err := runHeadless(ctx, p, run.StartRequest{
		RepoURL:    "https://github.com/acme/broken",
		TeamName:   "RIFT",
		LeaderName: "Saiyam",
	}, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "verdict FAILED")
	assert.Contains(t, out.String(), "push to RIFT_SAIYAM_AI_FIX rejected")
}

func TestRunHeadless_InvalidRequest(t *testing.T) {
	p := startSimulator(t, simulator.Config{})

	err := runHeadless(context.Background(), p, run.StartRequest{RepoURL: "https://github.com/acme/widgets"}, io.Discard)
	require.ErrorIs(t, err, run.ErrValidation)
}

func TestWaitAndReport_Interrupted(t *testing.T) {
	p := startSimulator(t, simulator.Config{
		PendingFor:     time.Hour,
		IterationEvery: time.Hour,
		InitialIssues:  1,
	})
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, p.Start(ctx, run.StartRequest{RepoURL: "u", TeamName: "t", LeaderName: "l"}))
	require.Eventually(t, func() bool { return p.Status().Snapshot != nil }, 5*time.Second, 5*time.Millisecond)
	cancel()

	err := waitAndReport(ctx, p, io.Discard)
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "verdict FAILED")
}
