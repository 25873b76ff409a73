package chat

import (
	"encoding/json"
	"fmt"
	"io"
)

// Envelope framing of a streamed turn. The body is one JSON document:
//
//	{"ok": true, "chunks": [{"delta":"Hel"},{"delta":"lo"}]}
const (
	envelopeOpen  = `{"ok": true, "chunks": [`
	envelopeSep   = `,`
	envelopeClose = `]}`
)

// StreamEvent is one entry of the chunks array: either a delta of assistant
// text or a terminal error.
type StreamEvent struct {
	Delta string `json:"delta,omitempty"`
	Error string `json:"error,omitempty"`
}

// flusher is implemented by http.ResponseWriter.
type flusher interface {
	Flush()
}

// envelopeWriter writes the envelope incrementally and flushes after every
// write. The first write error is sticky: later writes are skipped.
type envelopeWriter struct {
	w       io.Writer
	flusher flusher
	events  int
	closed  bool
	err     error
}

func newEnvelopeWriter(w io.Writer) *envelopeWriter {
	ew := &envelopeWriter{w: w}
	if f, ok := w.(flusher); ok {
		ew.flusher = f
	}
	return ew
}

func (ew *envelopeWriter) open() error {
	return ew.write(envelopeOpen)
}

// event appends one StreamEvent to the chunks array.
func (ew *envelopeWriter) event(ev StreamEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal stream event: %w", err)
	}

	chunk := string(data)
	if ew.events > 0 {
		chunk = envelopeSep + chunk
	}
	if err := ew.write(chunk); err != nil {
		return err
	}
	ew.events++
	return nil
}

// close terminates the envelope. It runs at most once.
func (ew *envelopeWriter) close() error {
	if ew.closed {
		return ew.err
	}
	ew.closed = true
	return ew.write(envelopeClose)
}

func (ew *envelopeWriter) write(s string) error {
	if ew.err != nil {
		return ew.err
	}
	if _, err := io.WriteString(ew.w, s); err != nil {
		ew.err = fmt.Errorf("failed to write stream: %w", err)
		return ew.err
	}
	if ew.flusher != nil {
		ew.flusher.Flush()
	}
	return nil
}
