package mcp

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
)

// maxMessageSize bounds a single newline-delimited JSON-RPC message.
const maxMessageSize = 8 << 20

// ErrInvalidMessage marks a line that was consumed but is not a usable
// JSON-RPC message. Reading may continue after it.
var ErrInvalidMessage = errors.New("invalid message")

// Transport handles MCP communication over stdio
type Transport struct {
	reader *bufio.Reader
	writer io.Writer
	mu     sync.Mutex
}

// NewTransport creates a new stdio transport
func NewTransport(r io.Reader, w io.Writer) *Transport {
	return &Transport{
		reader: bufio.NewReaderSize(r, 64*1024),
		writer: w,
	}
}

// ReadMessage reads the next JSON-RPC message. Blank lines are skipped. A line
// longer than maxMessageSize is discarded without being buffered in full and
// reported as ErrInvalidMessage.
func (t *Transport) ReadMessage() (*Request, error) {
	for {
		line, err := t.readLine()
		if errors.Is(err, errLineTooLong) {
			return nil, fmt.Errorf("%w: exceeds %d bytes", ErrInvalidMessage, maxMessageSize)
		}
		trimmed := bytes.TrimSpace(line)
		if len(trimmed) == 0 {
			if err != nil {
				return nil, err
			}
			continue
		}

		var req Request
		if jerr := json.Unmarshal(trimmed, &req); jerr != nil {
			return nil, fmt.Errorf("%w: failed to parse message: %v", ErrInvalidMessage, jerr)
		}
		return &req, nil
	}
}

var errLineTooLong = errors.New("line too long")

// readLine returns one line, holding at most maxMessageSize bytes of it.
// Past the limit the rest of the line is drained and errLineTooLong returned.
func (t *Transport) readLine() ([]byte, error) {
	var line []byte
	tooLong := false
	for {
		chunk, err := t.reader.ReadSlice('\n')
		if !tooLong {
			if len(line)+len(chunk) > maxMessageSize {
				tooLong = true
				line = nil
			} else {
				line = append(line, chunk...)
			}
		}
		switch {
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case tooLong:
			return nil, errLineTooLong
		default:
			return line, err
		}
	}
}

// WriteResponse writes a JSON-RPC response to stdout
func (t *Transport) WriteResponse(resp *Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return t.writeLine(data)
}

func (t *Transport) writeLine(data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, err := fmt.Fprintf(t.writer, "%s\n", data)
	return err
}
