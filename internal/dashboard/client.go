package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"OfficeSLAMonitor/internal/models"
)

// StatusError is shown to the viewer as-is.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("request failed with status %d", e.Code)
}

// Client reads the SLA API.
type Client struct {
	base    string
	http    *http.Client
	timeout time.Duration
}

func NewClient(base string, timeout time.Duration, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{}
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{base: base, http: hc, timeout: timeout}
}

func windowQuery(office string, w models.Window) url.Values {
	q := url.Values{}
	q.Set("t_start", strconv.FormatInt(w.TStart, 10))
	q.Set("t_end", strconv.FormatInt(w.TEnd, 10))
	if office != "" {
		q.Set("office", office)
	}
	return q
}

func (c *Client) SLA(ctx context.Context, office string, w models.Window) (*models.SlaResponse, error) {
	var resp models.SlaResponse
	if err := c.get(ctx, "/api/sla", windowQuery(office, w), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Samples(ctx context.Context, office string, w models.Window) (*models.SamplesResponse, error) {
	var resp models.SamplesResponse
	if err := c.get(ctx, "/api/samples", windowQuery(office, w), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ReportURL links to the PDF export for the same query.
func (c *Client) ReportURL(office string, w models.Window, tz string) string {
	q := windowQuery(office, w)
	if tz != "" {
		q.Set("tz", tz)
	}
	return c.base + "/api/sla/report.pdf?" + q.Encode()
}

func (c *Client) get(ctx context.Context, path string, q url.Values, v interface{}) error {
	return c.getPath(ctx, path+"?"+q.Encode(), v)
}

func (c *Client) getPath(ctx context.Context, path string, v interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &StatusError{Code: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid response from %s: %w", path, err)
	}
	return nil
}

// Health reports whether the API is ready to serve queries.
func (c *Client) Health(ctx context.Context) error {
	var status map[string]string
	return c.getPath(ctx, "/health/ready", &status)
}
