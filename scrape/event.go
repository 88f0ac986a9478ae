package scrape

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"
)

// Stage is the kind of a streamed scrape event.
type Stage string

const (
	StageProgress Stage = "progress"
	StageData     Stage = "data"
	StageError    Stage = "error"
)

// Event is one JSON frame of the scrape stream.
type Event struct {
	Stage   Stage           `json:"stage"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

const maxEventSize = 8 << 20

// eventReader splits a text/event-stream body into events. Only the data field
// and the event type matter here; id and retry are ignored.
type eventReader struct {
	scanner *bufio.Scanner
	done    bool
}

func newEventReader(body io.Reader) *eventReader {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64<<10), maxEventSize)
	return &eventReader{scanner: scanner}
}

// Next returns the next dispatched event. A trailing event that the server did
// not terminate with a blank line is still returned before io.EOF.
func (r *eventReader) Next() (eventType string, data string, err error) {
	if r.done {
		return "", "", io.EOF
	}
	var lines []string
	for r.scanner.Scan() {
		line := r.scanner.Text()
		if line == "" {
			if len(lines) == 0 && eventType == "" {
				continue
			}
			return eventType, strings.Join(lines, "\n"), nil
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "event":
			eventType = value
		case "data":
			lines = append(lines, value)
		}
	}
	r.done = true
	if err := r.scanner.Err(); err != nil {
		return "", "", err
	}
	if len(lines) > 0 {
		return eventType, strings.Join(lines, "\n"), nil
	}
	return "", "", io.EOF
}
