package scrape

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/jrsteele09/go-ems-client/credentials"
	"github.com/jrsteele09/go-ems-client/grades"
	apperrors "github.com/jrsteele09/go-ems-client/internal/errors"
	"github.com/rs/zerolog/log"
)

const malformedPayload = "Invalid data format received from server."

var _ Scraper = (*HTTPClient)(nil)

// HTTPClient runs the single-shot protocol: one POST /scrape answered with a
// JSON array of grades.
type HTTPClient struct {
	transport
}

func NewHTTPClient(baseURL string, options ...Option) *HTTPClient {
	return &HTTPClient{transport: newTransport(baseURL, options)}
}

// Scrape never calls progress; the single-shot protocol has no interim updates.
func (c *HTTPClient) Scrape(ctx context.Context, creds credentials.Credentials, _ ProgressFunc) ([]grades.Grade, error) {
	req, err := c.newRequest(ctx, scrapePath, creds)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportError(ctx, err)
	}
	defer func(resp *http.Response) {
		_ = resp.Body.Close()
	}(resp)

	if resp.StatusCode != http.StatusOK {
		log.Debug().Int("status", resp.StatusCode).Msg("scrape rejected")
		return nil, statusError(resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError(ctx, err)
	}
	if trimmed := bytes.TrimSpace(body); len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, &apperrors.ServerError{Message: malformedPayload}
	}

	var gs []grades.Grade
	if err := json.Unmarshal(body, &gs); err != nil {
		return nil, &apperrors.ServerError{Message: malformedPayload}
	}
	log.Debug().Int("grades", len(gs)).Msg("scrape complete")
	return gs, nil
}
