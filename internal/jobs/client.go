package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"rigshift/internal/services"
)

// UploadResponse is returned by /api/upload.
type UploadResponse struct {
	JobID  string `json:"jobId"`
	Status string `json:"status"`
}

// StatusResponse is returned by /api/status.
type StatusResponse struct {
	JobID             string `json:"jobId"`
	Filename          string `json:"filename"`
	Status            string `json:"status"`
	Message           string `json:"message"`
	R2ETETASeconds    int    `json:"r2etEtaSeconds"`
	StudentETASeconds int    `json:"studentEtaSeconds"`
}

// Service is the remote job API used by Manager.
type Service interface {
	Upload(ctx context.Context, path string) (*UploadResponse, error)
	Status(ctx context.Context, jobID string) (*StatusResponse, error)
	Download(ctx context.Context, jobID, dest string) (int64, error)
	Delete(ctx context.Context, jobID string) error
}

// Client provides access to the job service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

var _ Service = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout sets the per-request timeout of the default client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// New creates a job service client.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, services.Wrap(services.ErrConfiguration, "jobs", "new client", "service base url required", nil)
	}
	client := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// BaseURL returns the normalized service root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Upload posts the rig file as multipart field "file".
func (c *Client) Upload(ctx context.Context, path string) (*UploadResponse, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "jobs", "upload", "open rig file", err)
	}
	defer f.Close()

	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)
	go func() {
		part, err := form.CreateFormFile("file", filepath.Base(path))
		if err == nil {
			_, err = io.Copy(part, f)
		}
		if err == nil {
			err = form.Close()
		}
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/upload", pr)
	if err != nil {
		_ = pr.Close()
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	var payload UploadResponse
	if err := c.doJSON(req, "upload", &payload); err != nil {
		return nil, err
	}
	if strings.TrimSpace(payload.JobID) == "" {
		return nil, services.Wrap(services.ErrValidation, "jobs", "upload", "service returned no job id", nil)
	}
	return &payload, nil
}

// Status queries the state of jobID.
func (c *Client) Status(ctx context.Context, jobID string) (*StatusResponse, error) {
	endpoint := c.baseURL + "/api/status?" + url.Values{"jobId": {jobID}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	var payload StatusResponse
	if err := c.doJSON(req, "status", &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// Download streams the result archive of jobID into dest and returns the
// number of bytes written. A partial file is removed on failure.
func (c *Client) Download(ctx context.Context, jobID, dest string) (int64, error) {
	endpoint := c.baseURL + "/api/download?" + url.Values{"jobId": {jobID}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.do(req, "download")
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return 0, fmt.Errorf("create download dir: %w", err)
	}
	out, err := os.Create(dest)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", dest, err)
	}
	n, copyErr := io.Copy(out, resp.Body)
	closeErr := out.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		_ = os.Remove(dest)
		return n, services.Wrap(services.ErrTransient, "jobs", "download", "write archive", err)
	}
	return n, nil
}

// Delete removes jobID and its files on the service.
func (c *Client) Delete(ctx context.Context, jobID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/api/job/"+url.PathEscape(jobID), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := c.do(req, "delete")
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}

// Ping reports whether the service answers HTTP at all. Any status below 500,
// including 404 from services without a health route, counts as reachable.
func (c *Client) Ping(ctx context.Context) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/health", nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, services.Wrap(services.ErrTransient, "jobs", "ping", "service unreachable", err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode >= http.StatusInternalServerError {
		return resp.StatusCode, services.Wrap(services.ErrTransient, "jobs", "ping", fmt.Sprintf("service returned %d", resp.StatusCode), nil)
	}
	return resp.StatusCode, nil
}

func (c *Client) do(req *http.Request, op string) (*http.Response, error) {
	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "jobs", op, fmt.Sprintf("execute request (latency=%v)", latency), err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		msg := fmt.Sprintf("service returned %d (latency=%v)", resp.StatusCode, latency)
		if text := strings.TrimSpace(string(body)); text != "" {
			msg += ": " + text
		}
		return nil, services.Wrap(statusMarker(resp.StatusCode), "jobs", op, msg, nil)
	}
	return resp, nil
}

func (c *Client) doJSON(req *http.Request, op string, out any) error {
	resp, err := c.do(req, op)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return services.Wrap(services.ErrValidation, "jobs", op, "decode response", err)
	}
	return nil
}

func statusMarker(code int) error {
	switch {
	case code == http.StatusNotFound:
		return services.ErrNotFound
	case code >= 500, code == http.StatusTooManyRequests, code == http.StatusRequestTimeout:
		return services.ErrTransient
	default:
		return services.ErrValidation
	}
}
