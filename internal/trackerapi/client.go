// Package trackerapi is the client for the remote tracking database: a
// resource-oriented JSON API with cookie-session auth, search-filtered
// list endpoints, and nested events under task_groups/{id}/projects.
//
// Write calls honour dry-run mode: they log the operation that would
// have happened and return without touching the network, while reads
// behave identically in both modes.
package trackerapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/partrack/partrack/pkg/errors"
	"github.com/partrack/partrack/pkg/logging"
)

// DefaultTimeout bounds every tracker request.
const DefaultTimeout = 30 * time.Second

// Client talks to the tracker API. The session cookie obtained by
// SignIn lives in the client's cookie jar; a client is not safe for
// concurrent use, matching the single-writer model of a run.
type Client struct {
	base   *url.URL
	http   *http.Client
	logger zerolog.Logger
	dryRun bool
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the client logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithDryRun suppresses all write operations.
func WithDryRun(dryRun bool) Option {
	return func(c *Client) { c.dryRun = dryRun }
}

// WithHTTPClient replaces the underlying HTTP client; the cookie jar is
// preserved if the replacement has none.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc.Jar == nil {
			hc.Jar = c.http.Jar
		}
		c.http = hc
	}
}

// New creates a tracker client for the given API base URL.
func New(baseURL string, opts ...Option) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.NewConfigError("tracker", fmt.Sprintf("invalid API URL %q", baseURL), err)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, errors.NewConfigError("tracker", "cookie jar", err)
	}
	c := &Client{
		base:   base,
		http:   &http.Client{Timeout: DefaultTimeout, Jar: jar},
		logger: *logging.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// DryRun reports whether writes are suppressed.
func (c *Client) DryRun() bool { return c.dryRun }

// signInRequest is the body of the sign-in POST.
type signInRequest struct {
	User struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	} `json:"user"`
}

// SignIn obtains a session cookie. It must be called before any write;
// reads on some deployments work unauthenticated but the client does
// not rely on that.
func (c *Client) SignIn(ctx context.Context, email, password string) error {
	var body signInRequest
	body.User.Email = email
	body.User.Password = password

	resp, err := c.send(ctx, http.MethodPost, "users/sign_in", nil, body)
	if err != nil {
		return &errors.AuthenticationError{Service: "tracker", Method: "session", Message: "sign-in request failed", Err: err}
	}
	defer drain(resp)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &errors.AuthenticationError{
			Service: "tracker", Method: "session",
			Message: fmt.Sprintf("sign-in rejected with status %d", resp.StatusCode),
		}
	}
	c.logger.Debug().Str("email", email).Msg("Signed in to tracker")
	return nil
}

// endpoint resolves a relative API path with optional query parameters.
func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.base
	u.Path, _ = url.JoinPath(u.Path, path)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// send performs one request. The caller owns the response body.
func (c *Client) send(ctx context.Context, method, path string, query url.Values, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding %s %s body: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.http.Do(req)
}

// get performs a read and decodes the JSON response into out.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	resp, err := c.send(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	defer drain(resp)

	if err := checkResponse("get "+path, path, resp); err != nil {
		return err
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// write performs a mutating request, honouring dry-run mode. When out is
// non-nil the response body is decoded into it. The returned bool is
// false when the write was suppressed.
func (c *Client) write(ctx context.Context, op, method, path string, body, out any) (bool, error) {
	if c.dryRun {
		c.logger.Info().Str("op", op).Str("endpoint", path).Msg("Dry run: write suppressed")
		return false, nil
	}

	resp, err := c.send(ctx, method, path, nil, body)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	defer drain(resp)

	if err := checkResponse(op, path, resp); err != nil {
		return false, err
	}
	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
			return true, fmt.Errorf("%s: decoding response: %w", op, err)
		}
	}
	return true, nil
}

// errorBody is the structured error response the tracker returns on
// validation failure.
type errorBody struct {
	Errors map[string][]string `json:"errors"`
}

// checkResponse turns a non-2xx response into an APIError, preserving
// the field->messages mapping when the body carries one.
func checkResponse(op, endpoint string, resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	apiErr := &errors.APIError{
		Operation:  op,
		Endpoint:   endpoint,
		StatusCode: resp.StatusCode,
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err == nil {
		var body errorBody
		if json.Unmarshal(raw, &body) == nil && len(body.Errors) > 0 {
			apiErr.Fields = body.Errors
		}
	}
	return apiErr
}

// drain discards any unread body so the connection can be reused.
func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
