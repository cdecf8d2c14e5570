// Package examclient is a typed HTTP client for the exam endpoints. It is
// used by the proctoring session and the terminal monitor.
package examclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cgpaplus/exam-core/internal/model"
	"github.com/google/uuid"
)

const defaultTimeout = 10 * time.Second

// APIError is a non-2xx response decoded from the error envelope.
type APIError struct {
	Status  int
	Code    string
	Message string
}

// Error returns the server's message unchanged so callers can show it as is.
func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("request failed with status %d", e.Status)
}

// HasCode reports whether err is an *APIError carrying code.
func HasCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

// Client talks to one exam-core server on behalf of one bearer token.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a Client. baseURL includes the API prefix, e.g.
// http://localhost:8080/api.
func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Status reports whether the caller already submitted.
func (c *Client) Status(ctx context.Context) (*model.ExamStatusResponse, error) {
	var out model.ExamStatusResponse
	if err := c.do(ctx, http.MethodGet, "/exam/status", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateProgress posts one progress tick.
func (c *Client) UpdateProgress(ctx context.Context, req model.UpdateProgressRequest) error {
	return c.do(ctx, http.MethodPost, "/exam/progress", req, nil)
}

// Submit sends the final answers.
func (c *Client) Submit(ctx context.Context, req model.SubmitExamRequest) (*model.SubmitExamResponse, error) {
	var out model.SubmitExamResponse
	if err := c.do(ctx, http.MethodPost, "/exam/submit", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Leaderboard fetches the ranked results. Admin only.
func (c *Client) Leaderboard(ctx context.Context) ([]model.LeaderboardEntry, error) {
	var out []model.LeaderboardEntry
	if err := c.do(ctx, http.MethodGet, "/exam/leaderboard", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// LiveView fetches the monitor view. Admin only.
func (c *Client) LiveView(ctx context.Context) (*model.LiveView, error) {
	var out model.LiveView
	if err := c.do(ctx, http.MethodGet, "/exam/live", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Reset archives and clears the current batch. Admin only.
func (c *Client) Reset(ctx context.Context, label string) (*model.ResetExamResponse, error) {
	var out model.ResetExamResponse
	if err := c.do(ctx, http.MethodPost, "/exam/reset", model.ResetExamRequest{Label: label}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// History lists archives, newest first. Admin only.
func (c *Client) History(ctx context.Context) ([]model.ExamArchive, error) {
	var out []model.ExamArchive
	if err := c.do(ctx, http.MethodGet, "/exam/history", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteArchive removes one archive. Admin only.
func (c *Client) DeleteArchive(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/exam/history/"+id.String(), nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		bodyReader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		if decodeErr == nil && env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		}
		return apiErr
	}
	if decodeErr != nil {
		return fmt.Errorf("decode response: %w", decodeErr)
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}
