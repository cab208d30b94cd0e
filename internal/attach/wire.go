// Package attach implements the terminal attach client (spec component
// C11): the raw-mode event loop a user's terminal runs once it connects
// to a running psmuxd and issues "client-attach" (spec.md §4.10).
//
// wire.go is the low-level protocol client both the attach loop and
// cmd/psmux's one-shot CLI commands share: dial, AUTH/TARGET handshake,
// and response framing. Grounded on the same raw net.Conn handling
// other_examples' grove cmd_attach.go uses (dial, write a request,
// read a response), adapted from that file's length-prefixed binary
// frames to this module's line/NC-marker framing (internal/control's
// own wire format, not a borrowed one — see control/server.go).
package attach

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"
)

// dialDeadline bounds connecting and the AUTH/OK handshake.
const dialDeadline = 3 * time.Second

// Response is one parsed reply to a Request call: Unchanged marks the
// 2-byte "NC" short response (only ever returned for a "dump-state nc"
// request), Data carries every other response body with its trailing
// newline stripped, and both are empty/false for a fire-and-forget verb
// the server never writes anything back for.
type Response struct {
	Unchanged bool
	Data      []byte
}

// Conn is one authenticated control-protocol connection.
type Conn struct {
	conn     net.Conn
	reader   *bufio.Reader
	writeMu  sync.Mutex
	attached bool
}

// Dial connects to 127.0.0.1:port and completes the AUTH handshake.
func Dial(port int, authKey string) (*Conn, error) {
	raw, err := net.DialTimeout("tcp", fmt.Sprintf("127.0.0.1:%d", port), dialDeadline)
	if err != nil {
		return nil, fmt.Errorf("attach: dial: %w", err)
	}
	c := &Conn{conn: raw, reader: bufio.NewReaderSize(raw, 1<<20)}

	if err := c.conn.SetDeadline(time.Now().Add(dialDeadline)); err != nil {
		c.conn.Close()
		return nil, err
	}
	if err := c.writeLine("AUTH " + authKey); err != nil {
		c.conn.Close()
		return nil, err
	}
	line, err := c.reader.ReadString('\n')
	if err != nil {
		c.conn.Close()
		return nil, fmt.Errorf("attach: read auth reply: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line != "OK" {
		c.conn.Close()
		return nil, fmt.Errorf("attach: authentication failed: %s", line)
	}
	return c, nil
}

// SetTarget sends a TARGET line that every subsequent request on this
// connection inherits until changed again. The server acknowledges
// nothing on success (see internal/control/server.go's handleConnection
// loop), so a malformed target string here would be silently
// indistinguishable from the next request's own response; callers only
// ever pass a syntactically well-formed target they built themselves.
func (c *Conn) SetTarget(target string) error {
	if target == "" {
		return nil
	}
	return c.writeLine("TARGET " + target)
}

// Attach marks this connection as a streaming client (spec.md §4.10):
// the server keeps it open across many requests instead of closing
// after the first.
func (c *Conn) Attach() error {
	if err := c.writeLine("client-attach"); err != nil {
		return err
	}
	c.attached = true
	return c.conn.SetDeadline(time.Time{})
}

// Detach sends the explicit detach line and closes the connection.
func (c *Conn) Detach() {
	c.writeLine("client-detach")
	c.conn.Close()
}

// Close closes the underlying connection without sending client-detach
// (used when the connection is already known to be dead).
func (c *Conn) Close() error {
	return c.conn.Close()
}

// Fire sends a verb expected to produce no response (every streaming
// input-forwarding verb: send-key, send-text, mouse-*, scroll-*). It
// does not read anything back, matching control.Server.writeResponse's
// Empty case, which writes zero bytes.
func (c *Conn) Fire(line string) error {
	return c.writeLine(line)
}

// Request sends a verb line and reads back its one response, handling
// the "NC" 2-byte marker that (uniquely among response shapes) carries
// no trailing newline: a Blob/Line response always starts with some
// byte other than 'N' immediately followed by 'C', so peeking one byte
// is enough to disambiguate without a length prefix.
func (c *Conn) Request(line string) (Response, error) {
	if err := c.writeLine(line); err != nil {
		return Response{}, err
	}
	return c.readResponse()
}

func (c *Conn) readResponse() (Response, error) {
	first, err := c.reader.Peek(1)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Response{}, nil
		}
		return Response{}, fmt.Errorf("attach: read response: %w", err)
	}
	if first[0] == 'N' {
		buf := make([]byte, 2)
		if _, err := io.ReadFull(c.reader, buf); err != nil {
			return Response{}, fmt.Errorf("attach: read NC marker: %w", err)
		}
		if string(buf) == "NC" {
			return Response{Unchanged: true}, nil
		}
		// A real response that happens to start with 'N' but isn't the
		// marker (e.g. a session named "Nx"): fall through and keep
		// reading the rest of the line.
		rest, err := c.reader.ReadBytes('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return Response{}, fmt.Errorf("attach: read response: %w", err)
		}
		return Response{Data: append(buf, trimNewline(rest)...)}, nil
	}

	data, err := c.reader.ReadBytes('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return Response{}, fmt.Errorf("attach: read response: %w", err)
	}
	return Response{Data: trimNewline(data)}, nil
}

func trimNewline(b []byte) []byte {
	return []byte(strings.TrimRight(string(b), "\r\n"))
}

func (c *Conn) writeLine(line string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_, err := c.conn.Write([]byte(line + "\n"))
	return err
}
