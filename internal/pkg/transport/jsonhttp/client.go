// Package jsonhttp provides a small client for JSON APIs served over plain
// HTTP, such as the REST interface of a NEM node. Every request carries a
// generated X-Request-ID so that it can be found in the server's logs.
package jsonhttp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// ErrServerReturnedError indicates that the remote server answered with an error status.
var ErrServerReturnedError = errors.New("server error")

// errorResponse is the error body returned by NIS-style servers.
type errorResponse struct {
	TimeStamp int64  `json:"timeStamp"`
	Error     string `json:"error"`
	Message   string `json:"message"`
	Status    int    `json:"status"`
}

// Err wraps ErrServerReturnedError with the status and whatever description
// the server gave.
func (r errorResponse) Err(status int) error {
	desc := strings.TrimSpace(strings.Join([]string{r.Error, r.Message}, " "))
	if desc == "" {
		desc = http.StatusText(status)
	}
	return fmt.Errorf("%w: [%d] - %s", ErrServerReturnedError, status, desc)
}

// Client defines the interface for a JSON-over-HTTP client.
type Client interface {
	// Get fetches path, relative to the client's base URL, and decodes the
	// JSON body into out. Query values may be nil.
	Get(ctx context.Context, path string, query url.Values, out any) error
}

type client struct {
	baseURL    string       // scheme and authority of the remote server
	httpClient *http.Client // HTTP client used to perform requests
}

var _ Client = (*client)(nil)

func (c *client) Get(ctx context.Context, path string, query url.Values, out any) error {
	endpoint := strings.TrimSuffix(c.baseURL, "/") + "/" + strings.TrimPrefix(path, "/")
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	res, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode >= http.StatusBadRequest {
		var data errorResponse
		_ = json.NewDecoder(res.Body).Decode(&data)
		return data.Err(res.StatusCode)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(res.Body).Decode(out)
}

// NewClient returns a Client that sends its requests to baseURL with httpClient.
func NewClient(httpClient *http.Client, baseURL string) *client {
	return &client{
		baseURL:    baseURL,
		httpClient: httpClient,
	}
}
