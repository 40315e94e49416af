package wyoming

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"time"
)

// Wire framing: one JSON header object per line, followed by payload_length
// raw bytes when the event carries audio. The header holds the event type and
// its JSON data.
type wireHeader struct {
	Type          string          `json:"type"`
	Data          json.RawMessage `json:"data,omitempty"`
	PayloadLength int             `json:"payload_length,omitempty"`
}

// EventClient is the subset of Client the send/receive tasks depend on.
// Tests substitute scripted fakes.
type EventClient interface {
	WriteEvent(Event) error
	ReadEvent() (Event, error)
}

// Client is a connection to a Wyoming peer. Reads and writes are each safe
// from a single goroutine; one turn owns exactly one reader and one writer.
type Client struct {
	conn net.Conn
	r    *bufio.Reader
	w    *bufio.Writer
}

const dialTimeout = 10 * time.Second

// Dial connects to a Wyoming server. A refused connection surfaces as an
// error for the caller to translate into "no result this turn".
func Dial(ctx context.Context, host string, port int) (*Client, error) {
	d := net.Dialer{Timeout: dialTimeout}
	conn, err := d.DialContext(ctx, "tcp", fmt.Sprintf("%s:%d", host, port))
	if err != nil {
		return nil, fmt.Errorf("wyoming: connect %s:%d: %w", host, port, err)
	}
	return NewClient(conn), nil
}

// NewClient wraps an established connection. Useful for tests over net.Pipe.
func NewClient(conn net.Conn) *Client {
	return &Client{conn: conn, r: bufio.NewReader(conn), w: bufio.NewWriter(conn)}
}

// Close tears down the connection. It also unblocks a pending ReadEvent.
func (c *Client) Close() error { return c.conn.Close() }

// WriteEvent encodes and sends one event.
func (c *Client) WriteEvent(ev Event) error {
	hdr := wireHeader{Type: ev.eventType()}
	var payload []byte
	switch e := ev.(type) {
	case Unknown:
		// never sent; nothing to encode
	case AudioChunk:
		payload = e.Audio
		hdr.PayloadLength = len(payload)
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("wyoming: encode %s: %w", hdr.Type, err)
		}
		hdr.Data = data
	default:
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("wyoming: encode %s: %w", hdr.Type, err)
		}
		hdr.Data = data
	}

	line, err := json.Marshal(hdr)
	if err != nil {
		return fmt.Errorf("wyoming: encode header: %w", err)
	}
	if _, err := c.w.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("wyoming: write: %w", err)
	}
	if len(payload) > 0 {
		if _, err := c.w.Write(payload); err != nil {
			return fmt.Errorf("wyoming: write payload: %w", err)
		}
	}
	if err := c.w.Flush(); err != nil {
		return fmt.Errorf("wyoming: flush: %w", err)
	}
	return nil
}

// ReadEvent blocks for the next event. io.EOF means the peer closed the
// connection cleanly; callers treat that as end-of-stream, not a failure.
func (c *Client) ReadEvent() (Event, error) {
	line, err := c.r.ReadBytes('\n')
	if err != nil {
		if err == io.EOF && len(line) == 0 {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("wyoming: read: %w", err)
	}
	var hdr wireHeader
	if err := json.Unmarshal(line, &hdr); err != nil {
		return nil, fmt.Errorf("wyoming: decode header: %w", err)
	}
	var payload []byte
	if hdr.PayloadLength > 0 {
		payload = make([]byte, hdr.PayloadLength)
		if _, err := io.ReadFull(c.r, payload); err != nil {
			return nil, fmt.Errorf("wyoming: read payload: %w", err)
		}
	}
	return decodeEvent(hdr, payload)
}

// decodeEvent is the single place wire types become Go types. Anything not in
// the closed set maps to Unknown.
func decodeEvent(hdr wireHeader, payload []byte) (Event, error) {
	unmarshal := func(v any) error {
		if len(hdr.Data) == 0 {
			return nil
		}
		if err := json.Unmarshal(hdr.Data, v); err != nil {
			return fmt.Errorf("wyoming: decode %s: %w", hdr.Type, err)
		}
		return nil
	}

	switch hdr.Type {
	case "transcribe":
		return Transcribe{}, nil
	case "audio-start":
		var e AudioStart
		return e, unmarshal(&e)
	case "audio-chunk":
		var e AudioChunk
		if err := unmarshal(&e); err != nil {
			return nil, err
		}
		e.Audio = payload
		return e, nil
	case "audio-stop":
		return AudioStop{}, nil
	case "transcript-start":
		return TranscriptStart{}, nil
	case "transcript-chunk":
		var e TranscriptChunk
		return e, unmarshal(&e)
	case "transcript":
		var e Transcript
		return e, unmarshal(&e)
	case "transcript-stop":
		return TranscriptStop{}, nil
	case "detect":
		var e Detect
		return e, unmarshal(&e)
	case "detection":
		var e Detection
		return e, unmarshal(&e)
	case "not-detected":
		return NotDetected{}, nil
	case "synthesize":
		var e Synthesize
		return e, unmarshal(&e)
	default:
		return Unknown{Type: hdr.Type}, nil
	}
}
