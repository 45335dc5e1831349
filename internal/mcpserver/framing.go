package mcpserver

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
)

// maxHeaderLines bounds the number of header lines accepted per frame so a
// misbehaving client cannot stall the reader with an endless header block.
const maxHeaderLines = 32

// FrameReader reads LSP-style framed JSON-RPC messages from a stream.
//
// The primary format is one or more HTTP-style header lines terminated by
// a blank line, then exactly Content-Length bytes of UTF-8 JSON. As a
// fallback, a bare JSON object on a single line is accepted when the first
// non-whitespace byte is '{'.
type FrameReader struct {
	br *bufio.Reader
}

// NewFrameReader wraps r for frame-by-frame reading.
func NewFrameReader(r io.Reader) *FrameReader {
	return &FrameReader{br: bufio.NewReader(r)}
}

// Read returns the next message body. It returns io.EOF when the stream is
// exhausted, which callers treat as graceful shutdown.
func (r *FrameReader) Read() ([]byte, error) {
	for {
		b, err := r.br.ReadByte()
		if err != nil {
			return nil, err
		}
		switch b {
		case '\r', '\n', ' ', '\t':
			continue
		case '{':
			if err := r.br.UnreadByte(); err != nil {
				return nil, err
			}
			return r.readBareLine()
		default:
			if err := r.br.UnreadByte(); err != nil {
				return nil, err
			}
			return r.readFramed()
		}
	}
}

// readBareLine consumes a single line holding one JSON object. A final
// line without a trailing newline is still a complete message.
func (r *FrameReader) readBareLine() ([]byte, error) {
	line, err := r.br.ReadBytes('\n')
	if err != nil && err != io.EOF {
		return nil, err
	}
	line = bytes.TrimRight(line, "\r\n")
	if len(line) == 0 {
		return nil, io.EOF
	}
	return line, nil
}

// readFramed parses header lines up to the blank separator, then reads
// exactly Content-Length body bytes. No over-read: bytes after the body
// belong to the next frame.
func (r *FrameReader) readFramed() ([]byte, error) {
	length := -1
	for i := 0; ; i++ {
		if i >= maxHeaderLines {
			return nil, fmt.Errorf("too many header lines in frame")
		}
		line, err := r.br.ReadString('\n')
		if err != nil {
			return nil, err
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		if after, ok := strings.CutPrefix(strings.ToLower(line), "content-length:"); ok {
			n, err := strconv.Atoi(strings.TrimSpace(after))
			if err != nil {
				return nil, fmt.Errorf("invalid Content-Length header %q: %w", line, err)
			}
			length = n
		}
		// Other headers (e.g. Content-Type) are tolerated and ignored.
	}
	if length < 0 {
		return nil, fmt.Errorf("missing Content-Length header")
	}
	body := make([]byte, length)
	if _, err := io.ReadFull(r.br, body); err != nil {
		return nil, err
	}
	return body, nil
}

// FrameWriter writes framed messages. The writer always emits the
// Content-Length header even though the reader tolerates bare lines.
type FrameWriter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewFrameWriter wraps w for framed writes.
func NewFrameWriter(w io.Writer) *FrameWriter {
	return &FrameWriter{w: w}
}

// Write frames and writes one message body.
func (w *FrameWriter) Write(body []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := fmt.Fprintf(w.w, "Content-Length: %d\r\n\r\n", len(body)); err != nil {
		return err
	}
	if _, err := w.w.Write(body); err != nil {
		return err
	}
	return nil
}
