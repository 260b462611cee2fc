// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/jeranaias/obelisk-tui/internal/model"
)

// Configuration constants for the backend API.
const (
	// DefaultBaseURL is the backend URL used when none is configured.
	DefaultBaseURL = "http://localhost:8000"

	// DefaultTimeout is the default timeout for non-streaming requests.
	DefaultTimeout = 30 * time.Second

	// DefaultRequestsPerSecond caps the outgoing request rate.
	DefaultRequestsPerSecond = 4

	// MaxResponseSize is the maximum allowed response body size.
	// SECURITY: Response size limit prevents memory exhaustion attacks.
	MaxResponseSize = 10 * 1024 * 1024 // 10MB limit
)

var (
	// PERFORMANCE: Connection pooling reduces TCP handshake overhead.
	// Shared HTTP client for all non-streaming backend requests.
	sharedHTTPClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
		Timeout: DefaultTimeout,
	}

	// sharedStreamingClient is used for streaming requests (no timeout,
	// context-controlled).
	sharedStreamingClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
		// No timeout for streaming - controlled via context
	}
)

// Error variables for common backend errors.
var (
	// ErrSessionNotFound indicates the requested session does not exist.
	ErrSessionNotFound = errors.New("session not found")

	// ErrBackendUnavailable indicates the backend could not be reached.
	ErrBackendUnavailable = errors.New("backend unavailable")

	// ErrRateLimited indicates the backend rejected the request for rate.
	ErrRateLimited = errors.New("rate limited")
)

// APIError represents an error response from the backend.
type APIError struct {
	Message string
	Status  int
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("backend error (HTTP %d): %s", e.Status, e.Message)
}

// apiErrorResponse is the backend's error body shape. It sends either
// {"detail": "..."} or {"error": "..."}.
type apiErrorResponse struct {
	Detail string `json:"detail"`
	Err    string `json:"error"`
}

func (r *apiErrorResponse) message() string {
	if r.Detail != "" {
		return r.Detail
	}
	return r.Err
}

// =============================================================================
// CLIENT
// =============================================================================

// Client communicates with the Obelisk backend.
type Client struct {
	baseURL string
	timeout time.Duration

	// limiter paces outgoing requests so paging through sessions does not
	// hammer the backend. Nil means unlimited.
	limiter *rate.Limiter

	// overridden in tests
	httpClient      *http.Client
	streamingClient *http.Client
}

// NewClient creates a backend client for the given base URL.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:         strings.TrimSuffix(baseURL, "/"),
		timeout:         DefaultTimeout,
		limiter:         rate.NewLimiter(rate.Limit(DefaultRequestsPerSecond), 1),
		httpClient:      sharedHTTPClient,
		streamingClient: sharedStreamingClient,
	}
}

// WithTimeout sets the non-streaming request timeout.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	c.timeout = timeout
	return c
}

// WithRateLimit sets the outgoing request rate. Zero disables pacing.
func (c *Client) WithRateLimit(rps float64) *Client {
	if rps <= 0 {
		c.limiter = nil
	} else {
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
	return c
}

// BaseURL returns the configured backend URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// wait blocks until the rate limiter admits the next request.
func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

// =============================================================================
// LOGGING
// =============================================================================

// logRequest logs an API request without the body, which carries the
// user's message text.
func (c *Client) logRequest(req *http.Request) {
	log.Printf("API Request: %s %s", req.Method, req.URL.Path)
}

// logResponse logs an API response with duration.
func (c *Client) logResponse(resp *http.Response, duration time.Duration) {
	log.Printf("API Response: %d %s (%v)", resp.StatusCode, resp.Status, duration)
}

// =============================================================================
// REQUEST PLUMBING
// =============================================================================

// readResponse reads the response body with size limits.
//
// SECURITY: Response size limit prevents memory exhaustion attacks.
func readResponse(resp *http.Response) ([]byte, error) {
	limitedReader := io.LimitReader(resp.Body, MaxResponseSize)
	body, err := io.ReadAll(limitedReader)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if int64(len(body)) == MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}

	return body, nil
}

// doJSON performs a request and decodes the JSON response into out.
func (c *Client) doJSON(ctx context.Context, method, requestURL string, reqBody io.Reader, out any) error {
	if err := c.wait(ctx); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, requestURL, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "obelisk-tui/1.0")

	c.logRequest(req)
	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()
	c.logResponse(resp, time.Since(startTime))

	body, err := readResponse(resp)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return handleErrorResponse(resp.StatusCode, body)
	}

	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// handleErrorResponse converts HTTP error responses to appropriate Go errors.
func handleErrorResponse(statusCode int, body []byte) error {
	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.message() != "" {
		switch statusCode {
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s", ErrSessionNotFound, apiErr.message())
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: %s", ErrRateLimited, apiErr.message())
		default:
			return &APIError{Message: apiErr.message(), Status: statusCode}
		}
	}

	// Fallback for unparseable error responses
	switch statusCode {
	case http.StatusNotFound:
		return ErrSessionNotFound
	case http.StatusTooManyRequests:
		return ErrRateLimited
	default:
		return &APIError{Message: strings.TrimSpace(string(body)), Status: statusCode}
	}
}

// =============================================================================
// SESSION ENDPOINTS
// =============================================================================

// SessionPage is one page of the session listing.
type SessionPage struct {
	Sessions   []model.Session `json:"sessions"`
	Page       int             `json:"page"`
	PageSize   int             `json:"page_size"`
	Total      int             `json:"total"`
	TotalPages int             `json:"total_pages"`
}

// ListSessions fetches one page of sessions.
func (c *Client) ListSessions(ctx context.Context, page, pageSize int) (*SessionPage, error) {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if pageSize > 0 {
		q.Set("page_size", strconv.Itoa(pageSize))
	}

	requestURL := c.baseURL + "/sessions"
	if enc := q.Encode(); enc != "" {
		requestURL += "?" + enc
	}

	var result SessionPage
	if err := c.doJSON(ctx, http.MethodGet, requestURL, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetSession fetches one session document, including its full conversation
// history.
func (c *Client) GetSession(ctx context.Context, sessionID string) (*model.SessionDocument, error) {
	if sessionID == "" {
		return nil, errors.New("session ID required")
	}

	requestURL := c.baseURL + "/sessions/" + url.PathEscape(sessionID)

	var doc model.SessionDocument
	if err := c.doJSON(ctx, http.MethodGet, requestURL, nil, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// CreateSession creates a new named session and returns its document.
func (c *Client) CreateSession(ctx context.Context, name string) (*model.SessionDocument, error) {
	reqBody, err := json.Marshal(map[string]string{"name": name})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var doc model.SessionDocument
	if err := c.doJSON(ctx, http.MethodPost, c.baseURL+"/sessions", strings.NewReader(string(reqBody)), &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// DeleteSession removes a session.
func (c *Client) DeleteSession(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return errors.New("session ID required")
	}
	return c.doJSON(ctx, http.MethodDelete, c.baseURL+"/sessions/"+url.PathEscape(sessionID), nil, nil)
}

// Health checks backend reachability.
func (c *Client) Health(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodGet, c.baseURL+"/health", nil, nil)
}
