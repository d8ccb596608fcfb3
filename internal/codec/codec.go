// Package codec implements the length-prefixed JSON framing the Debug
// Adapter Protocol runs over: a "Content-Length: <N>\r\n\r\n" header
// followed by exactly N bytes of UTF-8 JSON body.
//
// Decoding is built on bufio.Reader rather than a hand-rolled byte
// assembler: Go's blocking I/O model already gives resumability across
// short reads for free, so there is no need to model the header/body
// split as an explicit non-blocking state machine the way a cooperative
// runtime in another language might have to.
package codec

import (
	"bufio"
	"fmt"
	"io"

	"github.com/google/go-dap"
)

// ErrBadFrame is wrapped around any framing-level failure: a missing or
// malformed Content-Length header, or a body that does not parse as a DAP
// message. Callers treat it as recoverable: log it and keep reading.
type ErrBadFrame struct {
	Cause error
}

func (e *ErrBadFrame) Error() string { return fmt.Sprintf("bad frame: %v", e.Cause) }
func (e *ErrBadFrame) Unwrap() error { return e.Cause }

// Codec reads and writes DAP envelopes on a byte stream. It holds no
// state of its own beyond the buffered reader required to parse headers
// that may arrive in more than one read syscall.
type Codec struct {
	r *bufio.Reader
	w io.Writer
}

// New wraps r and w as a DAP frame codec. r is wrapped in a bufio.Reader
// if it is not already one, since go-dap's protocol reader requires
// byte-at-a-time header scanning.
func New(r io.Reader, w io.Writer) *Codec {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &Codec{r: br, w: w}
}

// Decode blocks until one full DAP message has been read, or returns an
// error. A *ErrBadFrame indicates the stream is still usable and reading
// may continue; any other error (notably io.EOF) means the peer is gone.
func (c *Codec) Decode() (dap.Message, error) {
	msg, err := dap.ReadProtocolMessage(c.r)
	if err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, &ErrBadFrame{Cause: err}
	}
	return msg, nil
}

// Encode serializes msg with the Content-Length framing and writes it in
// one call. It does not assign a sequence number; callers are expected
// to have done that already (see frontend.Client).
func (c *Codec) Encode(msg dap.Message) error {
	if err := dap.WriteProtocolMessage(c.w, msg); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}
