// Package sse decodes the server-sent-events wire framing used by the
// streaming Messages API. It is the leaf of the dependency order named in
// spec.md §2: nothing else in this module depends on it being anything more
// than bytes in, typed frames out.
package sse

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Frame is one parsed SSE event: an `event:`/`data:`/`id:`/`retry:` field
// group terminated by a blank line. Multi-line `data:` fields are joined
// with "\n" per the spec.
//
// Grounded on SSEEvent (pkg/providerutils/streaming/sse.go), trimmed to the
// fields a client actually needs — the teacher's SSEWriter / WriteDone /
// IsStreamDone helpers are server-emission concerns this client-only
// decoder has no counterpart for and does not carry over.
type Frame struct {
	Event string
	Data  string
	ID    string
	Retry int
}

// Decoder pulls Frames off a byte stream one at a time.
type Decoder struct {
	scanner *bufio.Scanner
	err     error
}

// NewDecoder wraps r for line-oriented SSE parsing. Callers should give r a
// reasonably sized read buffer upstream (e.g. http.Response.Body); Decoder
// itself buffers only a scanner's line at a time.
func NewDecoder(r io.Reader) *Decoder {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &Decoder{scanner: s}
}

// Next returns the next complete Frame, or io.EOF when the stream ends
// cleanly. A transport error from the underlying reader is returned as-is;
// callers map it to message.Streaming (mid-stream decode errors do not
// terminate the outer HTTP retry — see spec.md §4.2).
func (d *Decoder) Next() (*Frame, error) {
	if d.err != nil {
		return nil, d.err
	}

	frame := &Frame{}
	var dataLines []string

	for d.scanner.Scan() {
		line := d.scanner.Text()

		if line == "" {
			if len(dataLines) > 0 || frame.Event != "" || frame.ID != "" {
				frame.Data = strings.Join(dataLines, "\n")
				return frame, nil
			}
			continue
		}

		if strings.HasPrefix(line, ":") {
			continue // comment line
		}

		colon := strings.IndexByte(line, ':')
		var field, value string
		if colon == -1 {
			field = line
		} else {
			field = line[:colon]
			value = line[colon+1:]
			if len(value) > 0 && value[0] == ' ' {
				value = value[1:]
			}
		}

		switch field {
		case "event":
			frame.Event = value
		case "data":
			dataLines = append(dataLines, value)
		case "id":
			frame.ID = value
		case "retry":
			var retry int
			fmt.Sscanf(value, "%d", &retry)
			frame.Retry = retry
		}
	}

	if err := d.scanner.Err(); err != nil {
		d.err = err
		return nil, err
	}

	if len(dataLines) > 0 || frame.Event != "" {
		frame.Data = strings.Join(dataLines, "\n")
		d.err = io.EOF
		return frame, nil
	}

	d.err = io.EOF
	return nil, io.EOF
}
