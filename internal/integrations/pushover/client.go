// Package pushover sends owner notifications through the Pushover
// messages API.
package pushover

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// credentialPayload is the JSON shape stored in SSM for the Pushover
// application token and user key.
type credentialPayload struct {
	Token string `json:"token"`
	User  string `json:"user"`
}

// messageResponse is the minimal response shape of the messages endpoint.
type messageResponse struct {
	Status int      `json:"status"`
	Errors []string `json:"errors"`
}

type Getter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// HTTPStatusError captures non-2xx upstream responses with status-aware context.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("pushover: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// Client posts messages to the Pushover API. Credentials are fetched
// from SSM on the first Push and reused for the process lifetime.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	getter      Getter
	paramPrefix string

	credOnce sync.Once
	token    string
	user     string
	credErr  error
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSpace(baseURL)
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a Client backed by the given paramstore getter for
// credential retrieval.
func NewClient(ps Getter, paramPrefix string, opts ...Option) (*Client, error) {
	if ps == nil {
		return nil, errors.New("pushover: paramstore getter must not be nil")
	}
	paramPrefix = strings.TrimRight(strings.TrimSpace(paramPrefix), "/")
	if paramPrefix == "" {
		return nil, errors.New("pushover: parameter prefix must not be empty")
	}
	c := &Client{
		baseURL:     "https://api.pushover.net",
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		getter:      ps,
		paramPrefix: paramPrefix,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) credentialParameterName() string {
	return c.paramPrefix + "/pushover"
}

func (c *Client) resolvedHTTPClient() *http.Client {
	if c.httpClient != nil {
		return c.httpClient
	}
	return &http.Client{Timeout: 10 * time.Second}
}

// resolveCredentials fetches the token and user key from SSM on the
// first call and caches the result.
func (c *Client) resolveCredentials(ctx context.Context) (token, user string, err error) {
	c.credOnce.Do(func() {
		c.token, c.user, c.credErr = fetchCredentialsFromParamStore(ctx, c.getter, c.credentialParameterName())
	})
	return c.token, c.user, c.credErr
}

func messagesURL(baseURL string) string {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		base = "https://api.pushover.net"
	}
	return base + "/1/messages.json"
}

// Push delivers a single notification message to the site owner.
func (c *Client) Push(ctx context.Context, message string) error {
	message = strings.TrimSpace(message)
	if message == "" {
		return errors.New("pushover: message must not be empty")
	}

	token, user, err := c.resolveCredentials(ctx)
	if err != nil {
		return err
	}

	form := url.Values{}
	form.Set("token", token)
	form.Set("user", user)
	form.Set("message", message)

	endpoint := messagesURL(c.baseURL)

	req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if reqErr != nil {
		return fmt.Errorf("pushover: create request: %w", reqErr)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, doErr := c.resolvedHTTPClient().Do(req)
	if doErr != nil {
		return fmt.Errorf("pushover: request failed: %w", doErr)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return &HTTPStatusError{
			StatusCode: res.StatusCode,
			URL:        endpoint,
			Body:       string(buf),
		}
	}

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<16))
	if err != nil {
		return fmt.Errorf("pushover: read response body: %w", err)
	}
	var payload messageResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("pushover: decode response: %w", err)
	}
	if payload.Status != 1 {
		return fmt.Errorf("pushover: delivery rejected: %s", strings.Join(payload.Errors, "; "))
	}
	return nil
}

func fetchCredentialsFromParamStore(ctx context.Context, getter Getter, name string) (token, user string, err error) {
	if getter == nil {
		return "", "", errors.New("pushover: paramstore getter is nil")
	}
	raw, err := getter.GetParameter(ctx, name)
	if err != nil {
		return "", "", fmt.Errorf("pushover: fetch credentials from paramstore: %w", err)
	}
	var cp credentialPayload
	if err := json.Unmarshal([]byte(raw), &cp); err != nil {
		return "", "", fmt.Errorf("pushover: unmarshal paramstore credential value as JSON: %w", err)
	}
	if cp.Token == "" || cp.User == "" {
		return "", "", errors.New("pushover: token and user must both be set")
	}
	return cp.Token, cp.User, nil
}
