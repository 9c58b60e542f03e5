// Package backend is the HTTP client of the persistence backend: block
// ingestion, task actual-hours updates and project/task lookup.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/actionsum/tasktrack/internal/activity"
	"github.com/actionsum/tasktrack/internal/models"
)

// ErrUnexpectedStatus is wrapped by every StatusError.
var ErrUnexpectedStatus = errors.New("unexpected status")

// StatusError reports a non-2xx backend response.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s %s: %s %d", e.Method, e.Path, ErrUnexpectedStatus, e.Code)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

func (e *StatusError) Unwrap() error { return ErrUnexpectedStatus }

// Client talks to the persistence backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

var (
	_ activity.Submitter    = (*Client)(nil)
	_ activity.HoursUpdater = (*Client)(nil)
)

// NewClient creates a backend client. A zero timeout means 30s.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// SubmitBlock posts one finalized block.
func (c *Client) SubmitBlock(ctx context.Context, rec *activity.Record) error {
	return c.do(ctx, http.MethodPost, "/activity", rec, nil)
}

// UpdateActualHours overwrites the task's cumulative actual hours.
func (c *Client) UpdateActualHours(ctx context.Context, taskID int64, hours float64) error {
	body := map[string]float64{"actHours": hours}
	return c.do(ctx, http.MethodPatch, "/tasks/"+strconv.FormatInt(taskID, 10), body, nil)
}

// ListProjects returns every project.
func (c *Client) ListProjects(ctx context.Context) ([]models.Project, error) {
	var projects []models.Project
	if err := c.do(ctx, http.MethodGet, "/projects", nil, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// ListTasks returns the tasks of a project.
func (c *Client) ListTasks(ctx context.Context, projectID int64) ([]models.Task, error) {
	var tasks []models.Task
	path := "/tasks?projectId=" + url.QueryEscape(strconv.FormatInt(projectID, 10))
	if err := c.do(ctx, http.MethodGet, path, nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// GetTask returns one task.
func (c *Client) GetTask(ctx context.Context, taskID int64) (*models.Task, error) {
	var task models.Task
	if err := c.do(ctx, http.MethodGet, "/tasks/"+strconv.FormatInt(taskID, 10), nil, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return errors.Wrap(err, "encoding request")
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return errors.Wrap(err, "creating request")
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{
			Method: method,
			Path:   path,
			Code:   resp.StatusCode,
			Body:   strings.TrimSpace(string(snippet)),
		}
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "decoding %s response", path)
	}
	return nil
}
