package trello

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/hivemq/trello-mcp/internal/config"
)

const (
	myBoardsEndpoint = "/members/me/boards"
	boardsEndpoint   = "/boards"

	// maxErrorBody bounds how much of a failed response is kept on HTTPError.
	maxErrorBody = 64 << 10
)

// Client talks to the Trello REST API. It is immutable after construction
// and safe for concurrent use.
type Client struct {
	baseURL    string
	auth       url.Values
	httpClient *http.Client
	logger     hclog.Logger
}

// Option configures a Client.
type Option func(*clientOptions)

type clientOptions struct {
	httpClient *http.Client
	logger     hclog.Logger
	timeout    time.Duration
}

// WithHTTPClient replaces the default HTTP client. The supplied client's
// timeout is used as-is.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(o *clientOptions) {
		o.httpClient = httpClient
	}
}

// WithLogger sets the logger. Defaults to a null logger.
func WithLogger(logger hclog.Logger) Option {
	return func(o *clientOptions) {
		o.logger = logger
	}
}

// WithTimeout overrides the configured request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(o *clientOptions) {
		o.timeout = timeout
	}
}

func NewClient(cfg *config.Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: config is required", ErrInvalidArgument)
	}
	if cfg.APIKey == "" || cfg.APIToken == "" {
		return nil, &config.Error{Err: config.ErrMissingCredentials}
	}

	o := &clientOptions{timeout: cfg.Timeout}
	for _, opt := range opts {
		opt(o)
	}

	if o.logger == nil {
		o.logger = hclog.NewNullLogger()
	}
	if o.httpClient == nil {
		o.httpClient = &http.Client{Timeout: o.timeout}
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = config.DefaultBaseURL
	}

	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		auth: url.Values{
			"key":   {cfg.APIKey},
			"token": {cfg.APIToken},
		},
		httpClient: o.httpClient,
		logger:     o.logger.Named("trello"),
	}, nil
}

// ListMyBoards returns every board of the authenticated member. Only id and
// name are requested and nested lists are suppressed.
func (c *Client) ListMyBoards(ctx context.Context) ([]Board, error) {
	query := url.Values{
		"fields": {"name,id"},
		"lists":  {"none"},
	}

	resp, err := c.dispatch(ctx, http.MethodGet, myBoardsEndpoint, query, nil)
	if err != nil {
		return nil, err
	}

	boards := []Board{}
	if err := decodeJSON(resp, &boards); err != nil {
		return nil, fmt.Errorf("failed to parse boards: %w", err)
	}
	if boards == nil {
		boards = []Board{}
	}

	return boards, nil
}

// CreateBoard creates a board with the given name and returns it.
func (c *Client) CreateBoard(ctx context.Context, name string) (*Board, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: board name cannot be empty", ErrInvalidArgument)
	}

	form := url.Values{"name": {name}}

	resp, err := c.dispatch(ctx, http.MethodPost, boardsEndpoint, nil, form)
	if err != nil {
		return nil, err
	}

	var board Board
	if err := decodeJSON(resp, &board); err != nil {
		return nil, fmt.Errorf("failed to parse created board: %w", err)
	}

	return &board, nil
}

// DeleteBoard deletes a board and returns the HTTP status code of the
// successful response.
func (c *Client) DeleteBoard(ctx context.Context, boardID string) (int, error) {
	if strings.TrimSpace(boardID) == "" {
		return 0, fmt.Errorf("%w: board ID cannot be empty", ErrInvalidArgument)
	}

	resp, err := c.dispatch(ctx, http.MethodDelete, boardsEndpoint+"/"+url.PathEscape(boardID), nil, nil)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	// drain so the connection can be reused
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode, nil
}

// mergeAuthParams returns a new set of query parameters holding params plus
// auth. Auth values replace caller values stored under the same key. Neither
// input is modified.
func mergeAuthParams(params, auth url.Values) url.Values {
	merged := make(url.Values, len(params)+len(auth))
	for k, v := range params {
		merged[k] = append([]string(nil), v...)
	}
	for k, v := range auth {
		merged[k] = append([]string(nil), v...)
	}
	return merged
}

// dispatch performs one authenticated request. On success the caller owns
// resp.Body. Non-2xx answers become *HTTPError (or *RateLimitError for 429)
// and transport failures become *ConnectionError. Nothing is retried here.
func (c *Client) dispatch(ctx context.Context, method, endpoint string, query, form url.Values) (*http.Response, error) {
	reqURL := c.baseURL + endpoint
	params := mergeAuthParams(query, c.auth)

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL+"?"+params.Encode(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	// reqURL, never req.URL: the query string carries the credentials
	c.logger.Debug("executing request", "method", method, "url", reqURL)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		err = stripCredentials(err, reqURL)
		c.logger.Error("connection error", "method", method, "endpoint", endpoint, "error", err)
		return nil, &ConnectionError{Method: method, Endpoint: endpoint, Err: err}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	defer resp.Body.Close()
	responseBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	httpErr := &HTTPError{
		Method:     method,
		Endpoint:   endpoint,
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       strings.TrimSpace(string(responseBody)),
	}
	var apiErr APIError
	if err := json.Unmarshal(responseBody, &apiErr); err == nil {
		httpErr.Message = apiErr.Message
		if httpErr.Message == "" {
			httpErr.Message = apiErr.Error
		}
	}

	c.logger.Error("HTTP error", "method", method, "endpoint", endpoint,
		"status", resp.StatusCode, "body", httpErr.Body)

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &RateLimitError{
			HTTPError:  httpErr,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}

	return nil, httpErr
}

// stripCredentials rewrites the URL inside a *url.Error so the key and token
// never end up in error strings or logs.
func stripCredentials(err error, reqURL string) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return &url.Error{Op: urlErr.Op, URL: reqURL, Err: urlErr.Err}
	}
	return err
}

func decodeJSON(resp *http.Response, v interface{}) error {
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(v)
}
