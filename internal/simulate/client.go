package simulate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/okian/foosrank/internal/domain/types"
)

// submitResult classifies a POST /matches response.
type submitResult int

const (
	submitAccepted submitResult = iota
	submitDuplicate
	submitRejected
	submitFailed
)

type ackResponse struct {
	Status    string `json:"status"`
	MatchID   string `json:"match_id"`
	Duplicate bool   `json:"duplicate"`
}

type leaderboardResponse struct {
	Discipline string        `json:"discipline"`
	Entries    []types.Entry `json:"entries"`
}

// serviceStats is the subset of GET /stats the simulator reads.
type serviceStats struct {
	Processed   int64 `json:"matches_processed"`
	Duplicates  int64 `json:"matches_duplicate"`
	Rejected    int64 `json:"matches_rejected"`
	QueueLength int   `json:"queue_length"`
}

func (s serviceStats) settled() int64 { return s.Processed + s.Duplicates + s.Rejected }

// client talks to the foosrank HTTP API.
type client struct {
	base string
	http *http.Client
}

func newClient(base string, timeout time.Duration) *client {
	return &client{base: base, http: &http.Client{Timeout: timeout}}
}

func (c *client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		r = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, r)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

// getJSON decodes a 200 response into v.
func (c *client) getJSON(ctx context.Context, path string, v any) error {
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("GET %s: HTTP %d: %s", path, resp.StatusCode, bytes.TrimSpace(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("GET %s: failed to parse response: %w", path, err)
	}
	return nil
}

func (c *client) health(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/healthz", nil)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnhealthy, resp.StatusCode)
	}
	return nil
}

func (c *client) submit(ctx context.Context, m MatchRequest) submitResult {
	resp, err := c.do(ctx, http.MethodPost, "/matches", m)
	if err != nil {
		return submitFailed
	}
	defer func() { _ = resp.Body.Close() }()

	var ack ackResponse
	_ = json.NewDecoder(resp.Body).Decode(&ack)
	switch {
	case resp.StatusCode == http.StatusAccepted:
		return submitAccepted
	case resp.StatusCode == http.StatusOK && ack.Duplicate:
		return submitDuplicate
	case resp.StatusCode == http.StatusBadRequest:
		return submitRejected
	default:
		return submitFailed
	}
}

func (c *client) stats(ctx context.Context) (serviceStats, error) {
	var st serviceStats
	err := c.getJSON(ctx, "/stats", &st)
	return st, err
}

func (c *client) leaderboard(ctx context.Context, discipline string, limit int) ([]types.Entry, error) {
	q := url.Values{}
	q.Set("discipline", discipline)
	q.Set("limit", strconv.Itoa(limit))
	var resp leaderboardResponse
	if err := c.getJSON(ctx, "/leaderboard?"+q.Encode(), &resp); err != nil {
		return nil, err
	}
	return resp.Entries, nil
}

func (c *client) rating(ctx context.Context, discipline, id string) (types.Entry, error) {
	var e types.Entry
	err := c.getJSON(ctx, "/rating/"+url.PathEscape(discipline)+"/"+url.PathEscape(id), &e)
	return e, err
}
