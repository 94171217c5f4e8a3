package portal

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"
	"golang.org/x/net/html"

	"github.com/partrack/partrack/internal/htmlquery"
	"github.com/partrack/partrack/pkg/errors"
	"github.com/partrack/partrack/pkg/logging"
)

// Archive fetches pages protected by HTTP basic auth, covering both the
// ballot mail archive and the members' draft file area.
type Archive struct {
	user     string
	password string
	http     *http.Client
	logger   zerolog.Logger
}

// ArchiveOption configures an Archive.
type ArchiveOption func(*Archive)

// WithArchiveLogger sets the fetcher logger.
func WithArchiveLogger(logger zerolog.Logger) ArchiveOption {
	return func(a *Archive) { a.logger = logger }
}

// WithArchiveHTTPClient replaces the underlying HTTP client.
func WithArchiveHTTPClient(hc *http.Client) ArchiveOption {
	return func(a *Archive) { a.http = hc }
}

// NewArchive returns a basic-auth fetcher for the given credentials.
func NewArchive(user, password string, opts ...ArchiveOption) *Archive {
	a := &Archive{
		user:     user,
		password: password,
		http:     http.DefaultClient,
		logger:   *logging.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Fetch retrieves a raw page body.
func (a *Archive) Fetch(ctx context.Context, rawurl string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawurl, nil)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(a.user, a.password)

	resp, err := a.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &errors.AuthenticationError{
			Service: "archive", Method: "basic",
			Message: fmt.Sprintf("credentials rejected for %s", rawurl),
		}
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("GET %s: status %d", rawurl, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// GetDocument retrieves and parses an HTML page.
func (a *Archive) GetDocument(ctx context.Context, rawurl string) (*html.Node, error) {
	body, err := a.Fetch(ctx, rawurl)
	if err != nil {
		return nil, err
	}
	doc, err := htmlquery.ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", rawurl, err)
	}
	return doc, nil
}
