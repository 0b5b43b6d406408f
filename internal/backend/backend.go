package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/marcin-skalski/fixwatch/internal/run"
)

// ErrMalformed marks a response body that could not be decoded into the
// expected shape.
var ErrMalformed = errors.New("malformed response")

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Method, e.Path, e.Code, e.Body)
}

type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type analyzeRequest struct {
	RepoURL    string `json:"repo_url"`
	TeamName   string `json:"team_name"`
	LeaderName string `json:"leader_name"`
}

type analyzeResponse struct {
	RunID  string `json:"run_id"`
	Status string `json:"status"`
}

// Health is the backend's /status payload.
type Health struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// StartRun asks the backend to start a run and returns its id.
func (c *Client) StartRun(ctx context.Context, req run.StartRequest) (string, error) {
	body, err := json.Marshal(analyzeRequest{
		RepoURL:    req.RepoURL,
		TeamName:   req.TeamName,
		LeaderName: req.LeaderName,
	})
	if err != nil {
		return "", fmt.Errorf("encode analyze request: %w", err)
	}

	out, err := c.do(ctx, http.MethodPost, "/analyze", body)
	if err != nil {
		return "", fmt.Errorf("start run: %w", err)
	}

	var resp analyzeResponse
	if err := json.Unmarshal(out, &resp); err != nil {
		return "", fmt.Errorf("parse analyze response: %w: %v", ErrMalformed, err)
	}
	if resp.RunID == "" {
		return "", fmt.Errorf("parse analyze response: %w: missing run_id", ErrMalformed)
	}

	c.logger.Debug("run started", "run_id", resp.RunID, "repo", req.RepoURL)
	return resp.RunID, nil
}

// FetchRun fetches the current snapshot of a run. The returned snapshot has
// passed run.Snapshot.Validate.
func (c *Client) FetchRun(ctx context.Context, runID string) (*run.Snapshot, error) {
	out, err := c.do(ctx, http.MethodGet, "/results/"+url.PathEscape(runID), nil)
	if err != nil {
		return nil, fmt.Errorf("fetch run %s: %w", runID, err)
	}

	var w wireSnapshot
	if err := json.Unmarshal(out, &w); err != nil {
		return nil, fmt.Errorf("parse run %s: %w: %v", runID, ErrMalformed, err)
	}

	snap, err := normalizeSnapshot(runID, w)
	if err != nil {
		return nil, fmt.Errorf("parse run %s: %w", runID, err)
	}
	if err := snap.Validate(); err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	for _, f := range snap.FixedIssues {
		if !f.Status.Known() {
			c.logger.Warn("unknown fix status", "run_id", runID, "file", f.File, "line", f.Line, "status", string(f.Status))
		}
	}
	return snap, nil
}

// Health checks that the backend is reachable.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	out, err := c.do(ctx, http.MethodGet, "/status", nil)
	if err != nil {
		return nil, fmt.Errorf("health: %w", err)
	}

	var h Health
	if err := json.Unmarshal(out, &h); err != nil {
		return nil, fmt.Errorf("parse health: %w: %v", ErrMalformed, err)
	}
	return &h, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	c.logger.Debug("backend request", "method", method, "path", path)

	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{
			Method: method,
			Path:   path,
			Code:   resp.StatusCode,
			Body:   strings.TrimSpace(string(out)),
		}
	}
	return out, nil
}
