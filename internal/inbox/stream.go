package inbox

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/roomchat-backend/internal/realtime"
)

// Event is one server-sent event frame.
type Event struct {
	Name string
	Data []byte
}

// ReadEvents parses an event stream and calls fn per frame until the reader
// ends, ctx is done, or fn returns an error. Comment lines (heartbeats) are
// skipped.
func ReadEvents(ctx context.Context, r io.Reader, fn func(Event) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), 1<<20)

	var (
		name string
		data bytes.Buffer
	)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := sc.Text()
		switch {
		case line == "":
			if name == "" && data.Len() == 0 {
				continue
			}
			ev := Event{Name: name, Data: append([]byte(nil), data.Bytes()...)}
			name = ""
			data.Reset()
			if ev.Name == "" {
				ev.Name = "message"
			}
			if err := fn(ev); err != nil {
				return err
			}
		case strings.HasPrefix(line, ":"):
		default:
			field, value, _ := strings.Cut(line, ":")
			value = strings.TrimPrefix(value, " ")
			switch field {
			case "event":
				name = value
			case "data":
				if data.Len() > 0 {
					data.WriteByte('\n')
				}
				data.WriteString(value)
			}
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return io.EOF
}

// Signal is a decoded inbox stream frame.
type Signal struct {
	Kind         realtime.SSEEvent
	Channel      string
	Scope        *uuid.UUID
	ConnectionID uuid.UUID
}

type wireFrame struct {
	Channel string          `json:"channel"`
	Event   string          `json:"event"`
	Data    json.RawMessage `json:"data"`
}

// DecodeSignal reads the frames this client understands. ok is false for
// anything else.
func DecodeSignal(ev Event) (sig Signal, ok bool, err error) {
	switch realtime.SSEEvent(ev.Name) {
	case realtime.SSEEventConnected, realtime.SSEEventChatActivity:
	default:
		return Signal{}, false, nil
	}
	var f wireFrame
	if err := json.Unmarshal(ev.Data, &f); err != nil {
		return Signal{}, false, fmt.Errorf("decode %s frame: %w", ev.Name, err)
	}
	sig = Signal{Kind: realtime.SSEEvent(ev.Name), Channel: f.Channel}
	switch sig.Kind {
	case realtime.SSEEventConnected:
		var hello struct {
			ConnectionID uuid.UUID `json:"connection_id"`
		}
		if err := json.Unmarshal(f.Data, &hello); err != nil {
			return Signal{}, false, fmt.Errorf("decode hello: %w", err)
		}
		sig.ConnectionID = hello.ConnectionID
	case realtime.SSEEventChatActivity:
		var p realtime.ActivityPayload
		if len(f.Data) > 0 {
			if err := json.Unmarshal(f.Data, &p); err != nil {
				return Signal{}, false, fmt.Errorf("decode activity: %w", err)
			}
		}
		sig.Scope = p.Scope
	}
	return sig, true, nil
}
