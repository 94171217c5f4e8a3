// Package portal fetches pages from the standards development server and
// the ballot mail archive. The development server uses a stylised login
// form; the archive protects its pages with HTTP basic auth.
package portal

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/net/html"

	"github.com/partrack/partrack/internal/htmlquery"
	"github.com/partrack/partrack/pkg/errors"
	"github.com/partrack/partrack/pkg/logging"
)

// Client is a session-holding fetcher for the development server. Login
// must succeed before any page behind the form is requested.
type Client struct {
	http   *http.Client
	logger zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the client logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithHTTPClient replaces the underlying HTTP client. The cookie jar is
// preserved unless the replacement brings its own.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New returns a Client with a fresh cookie jar.
func New(opts ...Option) *Client {
	jar, _ := cookiejar.New(nil)
	c := &Client{
		http:   &http.Client{Jar: jar},
		logger: *logging.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http.Jar == nil {
		c.http.Jar = jar
	}
	return c
}

// Login fetches the host's landing page, fills in its access form and
// submits it. The form is recognised by shape, not by URL: the first
// form on the page, with x1/x2 holding the credentials, f0 selecting
// the project area and the privacy-consent box checked.
func (c *Client) Login(ctx context.Context, host, user, password string) error {
	pageURL := "http://" + host
	doc, finalURL, err := c.fetch(ctx, pageURL)
	if err != nil {
		return &errors.AuthenticationError{Service: "portal", Method: "form", Message: "fetching login page", Err: err}
	}

	form := htmlquery.Find(doc, "form", "")
	if form == nil {
		return &errors.AuthenticationError{Service: "portal", Method: "form", Message: "no login form on " + pageURL}
	}

	fields := formValues(form)
	fields.Set("x1", user)
	fields.Set("x2", password)
	fields.Set("f0", "3") // project area selector
	if hasInput(form, "privacyconsent") {
		fields.Set("privacyconsent", "on")
	}

	action := htmlquery.Attr(form, "action")
	target, err := finalURL.Parse(action)
	if err != nil {
		return &errors.AuthenticationError{Service: "portal", Method: "form", Message: "unresolvable form action " + action, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.String(), strings.NewReader(fields.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return &errors.AuthenticationError{Service: "portal", Method: "form", Message: "submitting login form", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &errors.AuthenticationError{
			Service: "portal", Method: "form",
			Message: fmt.Sprintf("login rejected with status %d", resp.StatusCode),
		}
	}
	c.logger.Debug().Str("host", host).Msg("Logged in to development server")
	return nil
}

// GetDocument fetches a page within the established session and parses it.
func (c *Client) GetDocument(ctx context.Context, rawurl string) (*html.Node, error) {
	doc, _, err := c.fetch(ctx, rawurl)
	return doc, err
}

func (c *Client) fetch(ctx context.Context, rawurl string) (*html.Node, *url.URL, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawurl, nil)
	if err != nil {
		return nil, nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("GET %s: status %d", rawurl, resp.StatusCode)
	}
	doc, err := htmlquery.Parse(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing %s: %w", rawurl, err)
	}
	// Redirects may have moved us; relative form actions resolve
	// against where we ended up.
	return doc, resp.Request.URL, nil
}

// formValues collects the pre-filled state of a form: hidden inputs,
// text defaults and selected options, keyed by input name. Submit
// buttons contribute their value so the first button "clicks" itself.
func formValues(form *html.Node) url.Values {
	values := url.Values{}
	buttonDone := false
	for _, input := range htmlquery.FindAll(form, "input", "") {
		name := htmlquery.Attr(input, "name")
		if name == "" {
			continue
		}
		typ := strings.ToLower(htmlquery.Attr(input, "type"))
		switch typ {
		case "submit", "button", "image":
			if !buttonDone {
				values.Set(name, htmlquery.Attr(input, "value"))
				buttonDone = true
			}
		case "checkbox", "radio":
			if _, ok := attrLookup(input, "checked"); ok {
				values.Set(name, inputValue(input))
			}
		default:
			values.Set(name, htmlquery.Attr(input, "value"))
		}
	}
	for _, sel := range htmlquery.FindAll(form, "select", "") {
		name := htmlquery.Attr(sel, "name")
		if name == "" {
			continue
		}
		options := htmlquery.FindAll(sel, "option", "")
		for _, opt := range options {
			if _, ok := attrLookup(opt, "selected"); ok {
				values.Set(name, optionValue(opt))
				break
			}
		}
		if !values.Has(name) && len(options) > 0 {
			values.Set(name, optionValue(options[0]))
		}
	}
	return values
}

// hasInput reports whether the form contains any input with the given name.
func hasInput(form *html.Node, name string) bool {
	for _, input := range htmlquery.FindAll(form, "input", "") {
		if htmlquery.Attr(input, "name") == name {
			return true
		}
	}
	return false
}

func attrLookup(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func inputValue(n *html.Node) string {
	if v, ok := attrLookup(n, "value"); ok {
		return v
	}
	return "on"
}

func optionValue(opt *html.Node) string {
	if v, ok := attrLookup(opt, "value"); ok {
		return v
	}
	return htmlquery.TrimmedText(opt)
}
