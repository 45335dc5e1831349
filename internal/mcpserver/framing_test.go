package mcpserver

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func frame(body string) string {
	return fmt.Sprintf("Content-Length: %d\r\n\r\n%s", len(body), body)
}

func TestFrameReader_SingleFrame(t *testing.T) {
	r := NewFrameReader(strings.NewReader(frame(`{"jsonrpc":"2.0","id":1,"method":"ping"}`)))

	body, err := r.Read()
	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":1,"method":"ping"}`, string(body))

	_, err = r.Read()
	assert.Equal(t, io.EOF, err)
}

func TestFrameReader_BackToBackFrames(t *testing.T) {
	// Exactly Content-Length bytes must be consumed per frame so that the
	// next frame's headers are intact.
	input := frame(`{"id":1}`) + frame(`{"id":2}`)
	r := NewFrameReader(strings.NewReader(input))

	first, err := r.Read()
	require.NoError(t, err)
	assert.Equal(t, `{"id":1}`, string(first))

	second, err := r.Read()
	require.NoError(t, err)
	assert.Equal(t, `{"id":2}`, string(second))
}

func TestFrameReader_ExtraHeadersTolerated(t *testing.T) {
	body := `{"id":7}`
	input := fmt.Sprintf("Content-Type: application/json\r\nContent-Length: %d\r\n\r\n%s", len(body), body)
	r := NewFrameReader(strings.NewReader(input))

	got, err := r.Read()
	require.NoError(t, err)
	assert.Equal(t, body, string(got))
}

func TestFrameReader_BareJSONLineFallback(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"with newline", "{\"id\":1,\"method\":\"ping\"}\n"},
		{"without trailing newline", `{"id":1,"method":"ping"}`},
		{"leading blank lines", "\r\n\n{\"id\":1,\"method\":\"ping\"}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewFrameReader(strings.NewReader(tt.input))
			body, err := r.Read()
			require.NoError(t, err)
			assert.JSONEq(t, `{"id":1,"method":"ping"}`, string(body))
		})
	}
}

func TestFrameReader_BareLineThenFrame(t *testing.T) {
	input := "{\"id\":1}\n" + frame(`{"id":2}`)
	r := NewFrameReader(strings.NewReader(input))

	first, err := r.Read()
	require.NoError(t, err)
	assert.Equal(t, `{"id":1}`, string(first))

	second, err := r.Read()
	require.NoError(t, err)
	assert.Equal(t, `{"id":2}`, string(second))
}

func TestFrameReader_MissingContentLength(t *testing.T) {
	r := NewFrameReader(strings.NewReader("X-Other: 1\r\n\r\nbody"))
	_, err := r.Read()
	assert.Error(t, err)
}

func TestFrameReader_InvalidContentLength(t *testing.T) {
	r := NewFrameReader(strings.NewReader("Content-Length: nope\r\n\r\n{}"))
	_, err := r.Read()
	assert.Error(t, err)
}

func TestFrameWriter_AlwaysFrames(t *testing.T) {
	var buf bytes.Buffer
	w := NewFrameWriter(&buf)

	require.NoError(t, w.Write([]byte(`{"id":1}`)))

	assert.Equal(t, "Content-Length: 8\r\n\r\n{\"id\":1}", buf.String())
}

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewFrameWriter(&buf)
	bodies := []string{`{"id":1}`, `{"id":2,"result":{}}`, `{"id":"three"}`}
	for _, b := range bodies {
		require.NoError(t, w.Write([]byte(b)))
	}

	r := NewFrameReader(&buf)
	for _, want := range bodies {
		got, err := r.Read()
		require.NoError(t, err)
		assert.Equal(t, want, string(got))
	}
	_, err := r.Read()
	assert.Equal(t, io.EOF, err)
}
