package stomp

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Client and server commands of STOMP 1.2 used by this package.
const (
	CommandConnect     = "CONNECT"
	CommandConnected   = "CONNECTED"
	CommandSubscribe   = "SUBSCRIBE"
	CommandUnsubscribe = "UNSUBSCRIBE"
	CommandDisconnect  = "DISCONNECT"
	CommandMessage     = "MESSAGE"
	CommandReceipt     = "RECEIPT"
	CommandError       = "ERROR"
)

// Frame headers used by this package.
const (
	HeaderAcceptVersion = "accept-version"
	HeaderAck           = "ack"
	HeaderContentLength = "content-length"
	HeaderContentType   = "content-type"
	HeaderDestination   = "destination"
	HeaderHeartBeat     = "heart-beat"
	HeaderHost          = "host"
	HeaderID            = "id"
	HeaderMessage       = "message"
	HeaderMessageID     = "message-id"
	HeaderReceipt       = "receipt"
	HeaderReceiptID     = "receipt-id"
	HeaderSubscription  = "subscription"
	HeaderVersion       = "version"
)

// ErrMalformedFrame is returned when a WebSocket message does not hold a valid frame.
var ErrMalformedFrame = errors.New("malformed stomp frame")

// Header is a single frame header. Frames keep headers in wire order because
// the first occurrence of a repeated header wins.
type Header struct {
	Key   string
	Value string
}

// Frame is one STOMP frame.
type Frame struct {
	Command string
	Headers []Header
	Body    []byte
}

// NewFrame builds a frame from alternating header keys and values.
func NewFrame(command string, kv ...string) Frame {
	f := Frame{Command: command}
	for i := 0; i+1 < len(kv); i += 2 {
		f.Headers = append(f.Headers, Header{Key: kv[i], Value: kv[i+1]})
	}
	return f
}

// Get returns the value of the first header named key.
func (f Frame) Get(key string) (string, bool) {
	for _, h := range f.Headers {
		if h.Key == key {
			return h.Value, true
		}
	}
	return "", false
}

// Value is Get without the presence flag.
func (f Frame) Value(key string) string {
	v, _ := f.Get(key)
	return v
}

// escapes reports whether header values of command are escaped. CONNECT and
// CONNECTED frames are exempt for compatibility with STOMP 1.0.
func escapes(command string) bool {
	return command != CommandConnect && command != CommandConnected
}

var (
	headerEncoder = strings.NewReplacer(`\`, `\\`, "\r", `\r`, "\n", `\n`, ":", `\c`)
	headerDecoder = strings.NewReplacer(`\\`, `\`, `\r`, "\r", `\n`, "\n", `\c`, ":")
)

// Marshal encodes f. A content-length header is added when the body is not
// empty and none was set.
func (f Frame) Marshal() []byte {
	var buf bytes.Buffer

	buf.WriteString(f.Command)
	buf.WriteByte('\n')

	escape := escapes(f.Command)
	for _, h := range f.Headers {
		key, value := h.Key, h.Value
		if escape {
			key, value = headerEncoder.Replace(key), headerEncoder.Replace(value)
		}
		buf.WriteString(key)
		buf.WriteByte(':')
		buf.WriteString(value)
		buf.WriteByte('\n')
	}

	if _, ok := f.Get(HeaderContentLength); !ok && len(f.Body) > 0 {
		buf.WriteString(HeaderContentLength)
		buf.WriteByte(':')
		buf.WriteString(strconv.Itoa(len(f.Body)))
		buf.WriteByte('\n')
	}

	buf.WriteByte('\n')
	buf.Write(f.Body)
	buf.WriteByte(0)

	return buf.Bytes()
}

// isHeartBeat reports whether data only holds end-of-line heart-beats.
func isHeartBeat(data []byte) bool {
	return len(bytes.Trim(data, "\r\n")) == 0
}

// Unmarshal decodes the single frame held by one WebSocket message. Leading
// heart-beats and trailing end-of-lines are ignored.
func Unmarshal(data []byte) (Frame, error) {
	data = bytes.TrimLeft(data, "\r\n")

	end := bytes.IndexByte(data, '\n')
	if end < 0 {
		return Frame{}, fmt.Errorf("%w: missing command", ErrMalformedFrame)
	}

	f := Frame{Command: string(bytes.TrimSuffix(data[:end], []byte("\r")))}
	if f.Command == "" {
		return Frame{}, fmt.Errorf("%w: empty command", ErrMalformedFrame)
	}
	data = data[end+1:]

	escape := escapes(f.Command)
	for {
		end = bytes.IndexByte(data, '\n')
		if end < 0 {
			return Frame{}, fmt.Errorf("%w: unterminated headers", ErrMalformedFrame)
		}

		line := bytes.TrimSuffix(data[:end], []byte("\r"))
		data = data[end+1:]
		if len(line) == 0 {
			break
		}

		key, value, ok := bytes.Cut(line, []byte(":"))
		if !ok {
			return Frame{}, fmt.Errorf("%w: header %q has no value", ErrMalformedFrame, line)
		}

		h := Header{Key: string(key), Value: string(value)}
		if escape {
			h.Key, h.Value = headerDecoder.Replace(h.Key), headerDecoder.Replace(h.Value)
		}
		f.Headers = append(f.Headers, h)
	}

	body, err := readBody(f, data)
	if err != nil {
		return Frame{}, err
	}
	f.Body = body

	return f, nil
}

func readBody(f Frame, data []byte) ([]byte, error) {
	if raw, ok := f.Get(HeaderContentLength); ok {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%w: invalid content-length %q", ErrMalformedFrame, raw)
		}
		if len(data) < n+1 || data[n] != 0 {
			return nil, fmt.Errorf("%w: body shorter than content-length %d", ErrMalformedFrame, n)
		}
		return data[:n:n], nil
	}

	end := bytes.IndexByte(data, 0)
	if end < 0 {
		return nil, fmt.Errorf("%w: missing NULL terminator", ErrMalformedFrame)
	}
	return data[:end:end], nil
}
