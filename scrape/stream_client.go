package scrape

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/jrsteele09/go-ems-client/credentials"
	"github.com/jrsteele09/go-ems-client/grades"
	apperrors "github.com/jrsteele09/go-ems-client/internal/errors"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	connectionOpenMessage = "Connection open. Starting data sync..."
	streamFailedMessage   = "Sync failed."
)

var _ Scraper = (*StreamClient)(nil)

// StreamClient runs the streamed protocol: POST /scrape-stream answered with
// server-sent events carrying progress, the final data or an error.
type StreamClient struct {
	transport
}

func NewStreamClient(baseURL string, options ...Option) *StreamClient {
	return &StreamClient{transport: newTransport(baseURL, options)}
}

// Scrape reports every progress message and returns once a data or error event
// arrives. The connection is closed on return, including when ctx is cancelled.
func (c *StreamClient) Scrape(ctx context.Context, creds credentials.Credentials, progress ProgressFunc) ([]grades.Grade, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	req, err := c.newRequest(ctx, scrapeStreamPath, creds)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportError(ctx, err)
	}
	defer func(resp *http.Response) {
		_ = resp.Body.Close()
	}(resp)

	if resp.StatusCode != http.StatusOK {
		log.Debug().Int("status", resp.StatusCode).Msg("scrape stream rejected")
		return nil, statusError(resp)
	}
	report(progress, connectionOpenMessage)

	events := newEventReader(resp.Body)
	for {
		eventType, data, err := events.Next()
		if err == io.EOF {
			return nil, errors.Wrap(apperrors.ErrNetworkUnreachable, "stream closed before data")
		}
		if errors.Is(err, bufio.ErrTooLong) {
			return nil, errors.Wrap(apperrors.ErrProtocol, "stream event too large")
		}
		if err != nil {
			return nil, transportError(ctx, err)
		}
		if data == "" || (eventType != "" && eventType != "message") {
			continue
		}

		var ev Event
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			return nil, errors.Wrap(apperrors.ErrProtocol, "undecodable stream event")
		}
		log.Debug().Str("stage", string(ev.Stage)).Msg("scrape event")

		switch ev.Stage {
		case StageProgress:
			report(progress, ev.Message)
		case StageData:
			return decodeStreamData(ev.Data)
		case StageError:
			message := ev.Message
			if message == "" {
				message = streamFailedMessage
			}
			return nil, &apperrors.ServerError{Message: message}
		default:
			return nil, errors.Wrapf(apperrors.ErrProtocol, "unexpected stream stage %q", ev.Stage)
		}
	}
}

func decodeStreamData(raw json.RawMessage) ([]grades.Grade, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, errors.Wrap(apperrors.ErrProtocol, "data event without a grade array")
	}
	var gs []grades.Grade
	if err := json.Unmarshal(trimmed, &gs); err != nil {
		return nil, errors.Wrap(apperrors.ErrProtocol, "malformed grade array")
	}
	return gs, nil
}
