// Package firefly provides a client for the Firefly III-style ledger API:
// paginated reads of accounts, categories, bills and transactions, plus
// transaction submission.
package firefly

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

// ErrDecode reports a response body that could not be deserialized. The
// sync engine treats it as end-of-stream for the current run rather than a
// retryable fault.
var ErrDecode = errors.New("firefly: undecodable response")

// Client wraps HTTP calls to the ledger's REST API. All requests pass
// through a circuit breaker so a dead ledger fails fast instead of hanging
// every caller.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	pageSize   int
	cb         *gobreaker.CircuitBreaker
	log        zerolog.Logger
}

// NewClient creates a ledger client. baseURL should point at the API root
// (".../api/v1"); token is a personal access token.
func NewClient(httpClient *http.Client, baseURL, token string, log zerolog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		cb:         newCircuitBreaker("firefly"),
		log:        log,
	}
}

// WithPageSize sets the page size requested from paginated list endpoints.
// Zero keeps the ledger's default.
func (c *Client) WithPageSize(size int) *Client {
	c.pageSize = size
	return c
}

func newCircuitBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
	})
}

// joinURL appends endpoint to the API root regardless of stray slashes on
// either side.
func (c *Client) joinURL(endpoint string) string {
	return c.baseURL + "/" + strings.TrimLeft(endpoint, "/")
}

type rawResponse struct {
	status int
	body   []byte
}

// doRequest executes one authenticated request through the circuit breaker
// and returns the raw body with the HTTP status code. Transport faults and
// server errors count against the breaker; client errors (validation) pass
// through so callers can classify them.
func (c *Client) doRequest(ctx context.Context, method, endpoint string, query url.Values, payload any) ([]byte, int, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, fmt.Errorf("doRequest: encoding payload: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	u := c.joinURL(endpoint)
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return nil, 0, fmt.Errorf("doRequest: creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	result, err := c.cb.Execute(func() (any, error) {
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("reading response body: %w", err)
		}
		if resp.StatusCode >= 500 {
			return nil, fmt.Errorf("server error %d: %s", resp.StatusCode, snippet(data))
		}
		return &rawResponse{status: resp.StatusCode, body: data}, nil
	})
	if err != nil {
		c.log.Warn().
			Str("method", method).
			Str("endpoint", endpoint).
			Err(err).
			Msg("ledger request failed")
		return nil, 0, fmt.Errorf("doRequest: %s %s: %w", method, endpoint, err)
	}

	raw := result.(*rawResponse)
	return raw.body, raw.status, nil
}

// apiItem is one resource in a paginated "data" envelope: a string id plus
// a type-specific attributes object.
type apiItem struct {
	ID         string          `json:"id"`
	Attributes json.RawMessage `json:"attributes"`
}

// listPage fetches one page of a paginated collection and decodes the
// "data" array. A body that is not the expected envelope yields ErrDecode.
func (c *Client) listPage(ctx context.Context, endpoint string, page int, query url.Values) ([]apiItem, error) {
	if query == nil {
		query = url.Values{}
	}
	query.Set("page", strconv.Itoa(page))
	if c.pageSize > 0 {
		query.Set("limit", strconv.Itoa(c.pageSize))
	}

	body, status, err := c.doRequest(ctx, http.MethodGet, endpoint, query, nil)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("listPage: %s page %d: status %d: %s", endpoint, page, status, snippet(body))
	}

	var envelope struct {
		Data []apiItem `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("listPage: %s page %d: %w: %v", endpoint, page, ErrDecode, err)
	}
	return envelope.Data, nil
}

func snippet(body []byte) string {
	const maxLen = 300
	s := string(body)
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	return s
}
