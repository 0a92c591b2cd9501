package stream

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strings"
)

// DefaultMaxFrameBytes caps a single frame's accumulated data.
const DefaultMaxFrameBytes = 1 << 20

// ErrFrameTooLarge is returned when a frame exceeds the configured limit.
var ErrFrameTooLarge = errors.New("stream frame exceeds max bytes")

// Frame is one Server-Sent-Events message.
type Frame struct {
	Event string
	ID    string
	Data  []byte
}

// Decoder splits an event-stream body into frames.
type Decoder struct {
	r        *bufio.Reader
	maxBytes int
}

// NewDecoder wraps r. maxBytes <= 0 selects DefaultMaxFrameBytes.
func NewDecoder(r io.Reader, maxBytes int) *Decoder {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxFrameBytes
	}
	return &Decoder{r: bufio.NewReader(r), maxBytes: maxBytes}
}

// Next blocks until a complete frame is read. Frames without data lines are
// skipped. It returns io.EOF when the stream ends cleanly between frames and
// io.ErrUnexpectedEOF when it ends inside one.
func (d *Decoder) Next() (Frame, error) {
	var (
		frame   Frame
		data    bytes.Buffer
		hasData bool
		started bool
	)
	for {
		line, err := d.readLine()
		if err != nil {
			if errors.Is(err, io.EOF) && started {
				return Frame{}, io.ErrUnexpectedEOF
			}
			return Frame{}, err
		}
		if len(line) == 0 {
			if hasData {
				frame.Data = data.Bytes()
				return frame, nil
			}
			frame, started = Frame{}, false
			continue
		}
		started = true
		if line[0] == ':' {
			continue
		}
		field, value := splitField(line)
		switch field {
		case "data":
			if hasData {
				data.WriteByte('\n')
			}
			data.WriteString(value)
			hasData = true
			if data.Len() > d.maxBytes {
				return Frame{}, ErrFrameTooLarge
			}
		case "event":
			frame.Event = value
		case "id":
			frame.ID = value
		}
	}
}

func (d *Decoder) readLine() (string, error) {
	var out []byte
	for {
		frag, err := d.r.ReadSlice('\n')
		out = append(out, frag...)
		if len(out) > d.maxBytes {
			return "", ErrFrameTooLarge
		}
		if err == nil {
			break
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if errors.Is(err, io.EOF) && len(out) > 0 {
			break
		}
		return "", err
	}
	return strings.TrimRight(string(out), "\r\n"), nil
}

func splitField(line string) (string, string) {
	field, value, found := strings.Cut(line, ":")
	if !found {
		return line, ""
	}
	return field, strings.TrimPrefix(value, " ")
}
