package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hyperjump/copilot/internal/engine"
	"github.com/hyperjump/copilot/internal/models"
)

// Client calls a running co-pilot server.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the server at baseURL. Generation can take
// minutes on a local model, so timeout should be generous.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(resp.Body)
		var e struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(b))
		if json.Unmarshal(b, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Generate posts a challenge and returns the generated solutions.
func (c *Client) Generate(ctx context.Context, challenge models.ChallengeInput) (*models.GenerationResult, error) {
	var out models.GenerationResult
	if err := c.do(ctx, http.MethodPost, "/api/generate-solutions", challenge, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DatabaseStatus returns the server's catalog and index status.
func (c *Client) DatabaseStatus(ctx context.Context) (*engine.DatabaseStatus, error) {
	var out engine.DatabaseStatus
	if err := c.do(ctx, http.MethodGet, "/api/database-status", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health returns the server's health report.
func (c *Client) Health(ctx context.Context) (*engine.Health, error) {
	var out engine.Health
	if err := c.do(ctx, http.MethodGet, "/api/health", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Reindex asks the server to re-run indexing and returns the technology count.
func (c *Client) Reindex(ctx context.Context, force bool) (int, error) {
	var out struct {
		TechnologyCount int `json:"technology_count"`
	}
	in := map[string]bool{"force": force}
	if err := c.do(ctx, http.MethodPost, "/api/admin/reindex", in, &out); err != nil {
		return 0, err
	}
	return out.TechnologyCount, nil
}

// ListSubmissions returns every submission.
func (c *Client) ListSubmissions(ctx context.Context) (*models.SubmissionList, error) {
	var out models.SubmissionList
	if err := c.do(ctx, http.MethodGet, "/api/admin/submissions", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListPending returns the pending submissions.
func (c *Client) ListPending(ctx context.Context) (*models.PendingList, error) {
	var out models.PendingList
	if err := c.do(ctx, http.MethodGet, "/api/admin/submissions/pending", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetSubmission returns one submission.
func (c *Client) GetSubmission(ctx context.Context, id string) (*models.Submission, error) {
	var out models.Submission
	if err := c.do(ctx, http.MethodGet, "/api/admin/submissions/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ReviewResult is the server's answer to a review.
type ReviewResult struct {
	Message    string            `json:"message"`
	Submission models.Submission `json:"submission"`
}

// Review applies action to a pending submission.
func (c *Client) Review(ctx context.Context, id, action string, feedback *string) (*ReviewResult, error) {
	var out ReviewResult
	in := models.ReviewAction{Action: action, Feedback: feedback}
	if err := c.do(ctx, http.MethodPost, "/api/admin/submissions/"+url.PathEscape(id)+"/review", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
