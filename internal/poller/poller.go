package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/marcin-skalski/fixwatch/internal/dashboard"
	"github.com/marcin-skalski/fixwatch/internal/run"
	"github.com/marcin-skalski/fixwatch/internal/tui"
)

// DefaultInterval is the pause between the end of one fetch and the next.
const DefaultInterval = 2 * time.Second

// ErrBusy is returned when a run is already being started or polled.
var ErrBusy = errors.New("a run is already being monitored")

// StartError reports that the backend refused or failed to start a run.
type StartError struct {
	Err error
}

func (e *StartError) Error() string {
	return fmt.Sprintf("failed to start agent: %v", e.Err)
}

func (e *StartError) Unwrap() error { return e.Err }

// Client is the subset of the backend used by the poller.
type Client interface {
	StartRun(ctx context.Context, req run.StartRequest) (string, error)
	FetchRun(ctx context.Context, runID string) (*run.Snapshot, error)
}

type State int

const (
	StateIdle State = iota
	StateStarting
	StatePolling
	StateTerminated
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StatePolling:
		return "polling"
	case StateTerminated:
		return "terminated"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// Status is a copy of the poller's state at one instant.
type Status struct {
	State        State
	RunID        string
	Snapshot     *run.Snapshot
	Loading      bool
	Err          error
	SkippedPolls int
	LastPoll     time.Time
}

// session is one polling run. A fetch result is applied only while its
// session is still the poller's current one.
type session struct {
	runID    string
	cancel   context.CancelFunc
	done     chan struct{}
	settled  chan struct{} // signalled when a Refresh fetch completes
	inFlight atomic.Bool
	logger   *slog.Logger
}

type Poller struct {
	client   Client
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time

	mu       sync.Mutex
	state    State
	current  *session
	snapshot *run.Snapshot
	lastErr  error
	skipped  int
	lastPoll time.Time
	starts   uint64
}

type Option func(*Poller)

// WithClock replaces time.Now for score derivation and poll timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Poller) { p.now = now }
}

func New(client Client, interval time.Duration, logger *slog.Logger, opts ...Option) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	p := &Poller{
		client:   client,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start validates req, asks the backend for a new run and begins polling it.
// The polling loop lives until ctx is cancelled, Stop is called, or the run
// reaches a terminal state.
func (p *Poller) Start(ctx context.Context, req run.StartRequest) error {
	if err := req.Validate(); err != nil {
		p.logger.Warn("start refused", "err", err)
		return err
	}

	p.mu.Lock()
	if p.state == StateStarting || p.state == StatePolling {
		p.mu.Unlock()
		return ErrBusy
	}
	p.state = StateStarting
	p.starts++
	seq := p.starts
	p.resetLocked()
	p.mu.Unlock()

	p.logger.Info("starting run", "repo", req.RepoURL, "team", req.TeamName, "leader", req.LeaderName)
	runID, err := p.client.StartRun(ctx, req)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StateStarting || p.starts != seq {
		// Stopped while the start request was outstanding.
		return context.Canceled
	}
	if err != nil {
		serr := &StartError{Err: err}
		p.state = StateErrored
		p.snapshot = nil
		p.lastErr = serr
		p.logger.Error("start run failed", "repo", req.RepoURL, "err", err)
		return serr
	}

	p.beginLocked(ctx, runID)
	return nil
}

// Attach begins polling a run that was started elsewhere.
func (p *Poller) Attach(ctx context.Context, runID string) error {
	if runID == "" {
		return fmt.Errorf("%w: run id required", run.ErrValidation)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == StateStarting || p.state == StatePolling {
		return ErrBusy
	}
	p.resetLocked()
	p.beginLocked(ctx, runID)
	return nil
}

func (p *Poller) resetLocked() {
	p.snapshot = nil
	p.lastErr = nil
	p.skipped = 0
	p.lastPoll = time.Time{}
}

func (p *Poller) beginLocked(ctx context.Context, runID string) {
	sctx, cancel := context.WithCancel(ctx)
	s := &session{
		runID:   runID,
		cancel:  cancel,
		done:    make(chan struct{}),
		settled: make(chan struct{}, 1),
		logger:  p.logger.With("run_id", runID),
	}
	p.current = s
	p.state = StatePolling

	s.logger.Info("polling run", "interval", p.interval)
	go p.loop(sctx, s)
}

// loop fetches immediately, then waits one interval after each completed
// fetch before the next. Fetches issued by Refresh count too: the wait
// restarts when one of them completes.
func (p *Poller) loop(ctx context.Context, s *session) {
	defer close(s.done)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			p.release(s)
			s.logger.Debug("polling stopped")
			return
		case <-timer.C:
			if !p.fetch(ctx, s) {
				// A refresh holds the slot; re-arm when it settles.
				continue
			}
		case <-s.settled:
		}

		if !p.isCurrentPolling(s) {
			return
		}
		timer.Reset(p.interval)
	}
}

// fetch issues one request for s unless another is still outstanding. It
// reports whether a request was issued.
func (p *Poller) fetch(ctx context.Context, s *session) bool {
	if !s.inFlight.CompareAndSwap(false, true) {
		s.logger.Debug("fetch already in flight, skipping")
		return false
	}
	defer s.inFlight.Store(false)

	snap, err := p.client.FetchRun(ctx, s.runID)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current != s || p.state != StatePolling {
		s.logger.Debug("discarding result for inactive run")
		return true
	}

	if err == nil {
		err = run.CheckProgress(p.snapshot, snap)
	}
	switch {
	case err == nil:
	case errors.Is(err, run.ErrIntegrity):
		s.logger.Error("run snapshot violates data contract, stopping", "err", err)
		p.state = StateErrored
		p.lastErr = err
		s.cancel()
		return true
	case ctx.Err() != nil:
		return true
	default:
		p.skipped++
		s.logger.Warn("poll skipped", "err", err, "skipped", p.skipped)
		return true
	}

	p.snapshot = snap
	p.lastPoll = p.now()
	s.logger.Debug("polled run", "status", snap.Status, "iteration", snap.Iteration,
		"outstanding", snap.OutstandingFailures(), "fixes", len(snap.FixedIssues))

	if snap.Status.IsTerminal() {
		p.state = StateTerminated
		s.cancel()
		s.logger.Info("run finished", "status", snap.Status, "verdict", snap.Verdict())
	}
	return true
}

// release returns the poller to idle when s was cancelled from outside.
func (p *Poller) release(s *session) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == s && p.state == StatePolling {
		p.state = StateIdle
	}
}

func (p *Poller) isCurrentPolling(s *session) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current == s && p.state == StatePolling
}

// Refresh fetches right away instead of waiting for the next tick. It
// returns false when nothing is being polled or a fetch is already running.
func (p *Poller) Refresh(ctx context.Context) bool {
	p.mu.Lock()
	s := p.current
	polling := p.state == StatePolling
	p.mu.Unlock()

	if !polling || s == nil {
		return false
	}
	if !p.fetch(ctx, s) {
		return false
	}
	select {
	case s.settled <- struct{}{}:
	default:
	}
	return true
}

// Stop cancels polling. A fetch already in flight completes but its result
// is dropped. The last snapshot is kept.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current != nil {
		p.current.cancel()
	}
	if p.state == StatePolling || p.state == StateStarting {
		p.logger.Info("monitoring stopped")
		p.state = StateIdle
	}
}

// Wait blocks until the current polling loop exits or ctx is done.
func (p *Poller) Wait(ctx context.Context) error {
	p.mu.Lock()
	s := p.current
	p.mu.Unlock()

	if s == nil {
		return nil
	}
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Status returns a copy of the current state. The snapshot pointer is shared;
// snapshots are never mutated once stored.
func (p *Poller) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()

	st := Status{
		State:        p.state,
		Snapshot:     p.snapshot,
		Loading:      p.state == StateStarting || p.state == StatePolling,
		Err:          p.lastErr,
		SkippedPolls: p.skipped,
		LastPoll:     p.lastPoll,
	}
	if p.current != nil {
		st.RunID = p.current.runID
	}
	return st
}

// GetSnapshot derives the view state the TUI renders.
func (p *Poller) GetSnapshot() tui.Snapshot {
	st := p.Status()
	now := p.now()

	snap := tui.Snapshot{
		Timestamp:    now,
		State:        st.State.String(),
		RunID:        st.RunID,
		Loading:      st.Loading,
		SkippedPolls: st.SkippedPolls,
		LastPoll:     st.LastPoll,
	}
	if st.Err != nil {
		snap.Err = st.Err.Error()
	}
	if st.Snapshot != nil {
		v, err := dashboard.Derive(st.Snapshot, now)
		if err != nil {
			p.logger.Error("derive view", "run_id", st.RunID, "err", err)
			snap.Err = err.Error()
		} else {
			snap.View = &v
		}
	}
	return snap
}
