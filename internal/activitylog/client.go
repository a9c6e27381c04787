package activitylog

import (
	"bytes"
	"context"
	"crypto/sha1" //nolint:gosec // API-SECRET header carries the SHA1 of the shared secret
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mrcode/nursery-advisor/internal/models"
)

// Client reads and writes activities on a remote care-log server
type Client struct {
	baseURL    string
	apiSecret  string
	apiToken   string
	useToken   bool
	httpClient *http.Client
}

// NewClient creates a new care-log client
func NewClient(baseURL, apiSecret, apiToken string, useToken bool) *Client {
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiSecret: apiSecret,
		apiToken:  apiToken,
		useToken:  useToken,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// HashSecret returns the hex SHA1 of a plain API secret, as sent in the
// API-SECRET header
func HashSecret(secret string) string {
	hasher := sha1.New() //nolint:gosec
	hasher.Write([]byte(secret))
	return hex.EncodeToString(hasher.Sum(nil))
}

// buildRequest creates an HTTP request with proper authentication
func (c *Client) buildRequest(ctx context.Context, method, endpoint string, params url.Values, body io.Reader) (*http.Request, error) {
	fullURL := c.baseURL + endpoint
	if params != nil {
		fullURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	if c.useToken && c.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
	} else if c.apiSecret != "" {
		req.Header.Set("API-SECRET", HashSecret(c.apiSecret))
	}

	return req, nil
}

// doRequest executes an HTTP request and returns the response body
func (c *Client) doRequest(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound && req.Method == http.MethodDelete {
		return nil, ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("API error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return body, nil
}

// Activities retrieves the records logged in [from, to]
func (c *Client) Activities(ctx context.Context, from, to time.Time) ([]models.ActivityRecord, error) {
	params := url.Values{}
	params.Set("from", from.UTC().Format(time.RFC3339))
	params.Set("to", to.UTC().Format(time.RFC3339))

	req, err := c.buildRequest(ctx, http.MethodGet, "/api/v1/activities", params, nil)
	if err != nil {
		return nil, err
	}

	body, err := c.doRequest(req)
	if err != nil {
		return nil, err
	}

	var records []models.ActivityRecord
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("parsing activities: %w", err)
	}

	return records, nil
}

// AddActivity posts a record and returns it as stored by the server
func (c *Client) AddActivity(ctx context.Context, r models.ActivityRecord) (*models.ActivityRecord, error) {
	payload, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encoding activity: %w", err)
	}

	req, err := c.buildRequest(ctx, http.MethodPost, "/api/v1/activities", nil, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}

	body, err := c.doRequest(req)
	if err != nil {
		return nil, err
	}

	var stored models.ActivityRecord
	if err := json.Unmarshal(body, &stored); err != nil {
		return nil, fmt.Errorf("parsing activity: %w", err)
	}
	return &stored, nil
}

// DeleteActivity removes a record on the server
func (c *Client) DeleteActivity(ctx context.Context, id string) error {
	req, err := c.buildRequest(ctx, http.MethodDelete, "/api/v1/activities/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return err
	}
	_, err = c.doRequest(req)
	return err
}

// TestConnection checks that the server is reachable
func (c *Client) TestConnection(ctx context.Context) error {
	req, err := c.buildRequest(ctx, http.MethodGet, "/healthz", nil, nil)
	if err != nil {
		return err
	}
	_, err = c.doRequest(req)
	return err
}
