// Package scrape talks to the EMS scraping backend, which logs into the student
// portal on the user's behalf and returns their grades.
package scrape

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/jrsteele09/go-ems-client/credentials"
	"github.com/jrsteele09/go-ems-client/grades"
	"github.com/jrsteele09/go-ems-client/internal/config"
	apperrors "github.com/jrsteele09/go-ems-client/internal/errors"
	"github.com/pkg/errors"
)

const (
	scrapePath       = "/scrape"
	scrapeStreamPath = "/scrape-stream"

	maxErrorBody = 64 << 10
)

// ProgressFunc receives interim status messages while a scrape runs. It may be nil.
type ProgressFunc func(message string)

// Scraper performs the authenticate+retrieve operation. Both protocols resolve to
// the final grade collection or an error wrapping one of ErrAuthenticationRejected,
// ErrServer, ErrNetworkUnreachable or ErrProtocol. Caller cancellation is
// returned as the context's error.
type Scraper interface {
	Scrape(ctx context.Context, creds credentials.Credentials, progress ProgressFunc) ([]grades.Grade, error)
}

// New returns the Scraper for the configured sync mode.
func New(cfg config.SyncConfig, options ...Option) Scraper {
	if timeout := cfg.GetHTTPTimeout(); timeout > 0 {
		options = append([]Option{WithTimeout(timeout)}, options...)
	}
	if cfg.GetSyncMode() == config.SyncModeStream {
		return NewStreamClient(cfg.GetBaseURL(), options...)
	}
	return NewHTTPClient(cfg.GetBaseURL(), options...)
}

// Option configures the HTTP transport shared by both clients.
type Option func(*transport)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(client *http.Client) Option {
	return func(t *transport) {
		t.httpClient = client
	}
}

// WithTimeout bounds the whole request, including reading the body. Zero means no
// limit. It applies to the client given by WithHTTPClient too, in either order.
func WithTimeout(timeout time.Duration) Option {
	return func(t *transport) {
		t.timeout = &timeout
	}
}

type transport struct {
	baseURL    string
	httpClient *http.Client
	timeout    *time.Duration
}

func newTransport(baseURL string, options []Option) transport {
	t := transport{baseURL: baseURL, httpClient: &http.Client{}}
	for _, opt := range options {
		opt(&t)
	}
	if t.timeout != nil {
		c := *t.httpClient
		c.Timeout = *t.timeout
		t.httpClient = &c
	}
	return t
}

type scrapeRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (t transport) newRequest(ctx context.Context, path string, creds credentials.Credentials) (*http.Request, error) {
	body, err := json.Marshal(scrapeRequest{Username: creds.Username, Password: creds.Password})
	if err != nil {
		return nil, errors.Wrap(err, "encode scrape request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "create scrape request")
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// transportError maps a failed round trip. Cancellation by the caller wins over
// the network error it caused.
func transportError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return errors.Wrap(apperrors.ErrNetworkUnreachable, err.Error())
}

// statusError maps a non-200 response onto the error taxonomy.
func statusError(resp *http.Response) error {
	message := errorMessage(resp.Body)
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return errors.Wrapf(apperrors.ErrAuthenticationRejected, "status %d %s", resp.StatusCode, message)
	}
	return &apperrors.ServerError{Status: resp.StatusCode, Message: message}
}

// errorMessage extracts the backend's "message" (or "error") field from an error body.
func errorMessage(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, maxErrorBody))
	if err != nil || len(data) == 0 {
		return ""
	}
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return ""
	}
	if payload.Message != "" {
		return payload.Message
	}
	return payload.Error
}

func report(progress ProgressFunc, message string) {
	if progress != nil && message != "" {
		progress(message)
	}
}
