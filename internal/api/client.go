package api

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	SessionCookieName = "sessionid"
	CSRFCookieName    = "csrftoken"

	maxBodyBytes = 10 << 20
)

type Options struct {
	BaseURL            string
	Timeout            time.Duration
	InsecureSkipVerify bool
	// UsernameField is the login form field carrying the account name.
	UsernameField string
	Logger        *slog.Logger
	// Transport overrides the HTTP transport, mainly for tests.
	Transport http.RoundTripper
}

// Client is the transport for the webmail JSON endpoints. Each call issues
// exactly one request and never retries.
type Client struct {
	httpClient    *http.Client
	baseURL       *url.URL
	timeout       time.Duration
	usernameField string
	logger        *slog.Logger
}

func New(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url %q must include scheme and host", opts.BaseURL)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}

	transport := opts.Transport
	if transport == nil {
		t := http.DefaultTransport.(*http.Transport).Clone()
		if opts.InsecureSkipVerify {
			t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in via config
		}
		transport = t
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	field := opts.UsernameField
	if field == "" {
		field = "email"
	}

	return &Client{
		httpClient: &http.Client{
			Transport: transport,
			Jar:       jar,
			// Redirects are inspected, not followed: a redirect to the
			// login page is how the server says the session is gone.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		baseURL:       base,
		timeout:       opts.Timeout,
		usernameField: field,
		logger:        logger,
	}, nil
}

func (c *Client) ListMailbox(ctx context.Context, mailbox Mailbox) ([]MessageSummary, error) {
	path := "/emails/" + string(mailbox)
	var list []MessageSummary
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &list); err != nil {
		return nil, err
	}
	if list == nil {
		return nil, &ServerError{Op: "GET " + path, Message: "expected a JSON array"}
	}
	if err := validateSummaries(list); err != nil {
		return nil, &ServerError{Op: "GET " + path, Err: err}
	}
	return list, nil
}

func (c *Client) GetMessage(ctx context.Context, id MessageID) (*Message, error) {
	path := "/emails/" + id.String()
	var msg Message
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &msg); err != nil {
		return nil, err
	}
	if err := validateMessage(&msg); err != nil {
		return nil, &ServerError{Op: "GET " + path, Err: err}
	}
	return &msg, nil
}

func (c *Client) SendMessage(ctx context.Context, req SendRequest) error {
	return c.doJSON(ctx, http.MethodPost, "/emails", req, nil)
}

func (c *Client) UpdateMessage(ctx context.Context, id MessageID, update Update) error {
	if update.Empty() {
		return fmt.Errorf("update for message %d sets no fields", id)
	}
	return c.doJSON(ctx, http.MethodPut, "/emails/"+id.String(), update, nil)
}

// Login performs the form login: fetch the page for its CSRF cookie, then
// post the credentials. Success is a redirect away from the login page with
// a session cookie set.
func (c *Client) Login(ctx context.Context, username, password string) error {
	if _, _, err := c.send(ctx, http.MethodGet, "/login", "", nil); err != nil {
		return err
	}

	form := url.Values{}
	form.Set(c.usernameField, username)
	form.Set("password", password)
	form.Set("csrfmiddlewaretoken", c.cookie(CSRFCookieName))

	resp, _, err := c.send(ctx, http.MethodPost, "/login", "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	if !isRedirect(resp.StatusCode) || isLoginRedirect(resp) {
		if resp.StatusCode == http.StatusOK || isRedirect(resp.StatusCode) {
			return ErrLoginFailed
		}
		return &ServerError{Op: "POST /login", Status: resp.StatusCode}
	}
	if c.SessionCookie() == "" {
		return ErrLoginFailed
	}
	return nil
}

func (c *Client) Logout(ctx context.Context) error {
	resp, _, err := c.send(ctx, http.MethodGet, "/logout", "", nil)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return &ServerError{Op: "GET /logout", Status: resp.StatusCode}
	}
	c.SetSessionCookie("")
	return nil
}

func (c *Client) SessionCookie() string {
	return c.cookie(SessionCookieName)
}

// SetSessionCookie restores a session saved by a previous login. An empty
// value expires the cookie.
func (c *Client) SetSessionCookie(value string) {
	cookie := &http.Cookie{Name: SessionCookieName, Value: value, Path: "/"}
	if value == "" {
		cookie.MaxAge = -1
	}
	c.httpClient.Jar.SetCookies(c.baseURL, []*http.Cookie{cookie})
}

func (c *Client) cookie(name string) string {
	for _, ck := range c.httpClient.Jar.Cookies(c.baseURL) {
		if ck.Name == name {
			return ck.Value
		}
	}
	return ""
}

func (c *Client) doJSON(ctx context.Context, method, path string, in any, out any) error {
	op := method + " " + path

	var body io.Reader
	contentType := ""
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}

	resp, data, err := c.send(ctx, method, path, contentType, body)
	if err != nil {
		return err
	}

	switch {
	case isRedirect(resp.StatusCode):
		if isLoginRedirect(resp) {
			return fmt.Errorf("%s: %w", op, ErrAuthenticationRequired)
		}
		return &ServerError{Op: op, Status: resp.StatusCode, Message: "unexpected redirect to " + resp.Header.Get("Location")}
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%s: %w", op, ErrAuthenticationRequired)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return &ServerError{Op: op, Status: resp.StatusCode, Message: errorMessage(data)}
	}

	if unauthenticated(data) {
		return fmt.Errorf("%s: %w", op, ErrAuthenticationRequired)
	}

	if out == nil {
		return nil
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return &ServerError{Op: op, Status: resp.StatusCode, Message: "empty response body"}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &ServerError{Op: op, Status: resp.StatusCode, Err: err}
	}
	return nil
}

// send issues one request and returns the response with its body already
// read. Only transport-level failures are returned as errors.
func (c *Client) send(ctx context.Context, method, path, contentType string, body io.Reader) (*http.Response, []byte, error) {
	op := method + " " + path

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	target := c.baseURL.JoinPath(path)
	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: build request: %w", op, err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	req.Header.Set("Referer", c.baseURL.String()+"/")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if method != http.MethodGet {
		if token := c.cookie(CSRFCookieName); token != "" {
			req.Header.Set("X-CSRFToken", token)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("api request failed", "method", method, "path", path, "request_id", requestID, "error", err)
		return nil, nil, &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, nil, &NetworkError{Op: op, Err: fmt.Errorf("read body: %w", err)}
	}

	c.logger.Debug("api request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
		"request_id", requestID,
	)
	return resp, data, nil
}

func isRedirect(status int) bool {
	return status >= 300 && status < 400
}

func isLoginRedirect(resp *http.Response) bool {
	loc, err := resp.Location()
	if err != nil {
		return false
	}
	return strings.HasPrefix(loc.Path, "/login") || strings.HasPrefix(loc.Path, "/accounts/login")
}

func errorMessage(data []byte) string {
	var body errorBody
	if err := json.Unmarshal(data, &body); err == nil {
		if body.Error != "" {
			return body.Error
		}
		return body.Message
	}
	return ""
}

func unauthenticated(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return false
	}
	var probe struct {
		UserIsAuthenticated *bool `json:"user_is_authenticated"`
	}
	if err := json.Unmarshal(trimmed, &probe); err != nil {
		return false
	}
	return probe.UserIsAuthenticated != nil && !*probe.UserIsAuthenticated
}

// IsCanceled reports whether err came from a context the caller cancelled,
// as opposed to a genuine transport failure.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled)
}
