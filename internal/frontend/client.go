// Package frontend implements the Protocol Front-End: the cooperative,
// single-threaded half of the debug adapter that owns the wire codec,
// the adapter's forward-only lifecycle state, and the monotonically
// increasing outbound sequence counter.
package frontend

import (
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/google/go-dap"

	"github.com/thunklang/thunk-dap/internal/codec"
	"github.com/thunklang/thunk-dap/log"
)

// State is the adapter's lifecycle, a total order that may only advance.
type State int32

const (
	StateUninitialized State = iota
	StateInitializing
	StateInitialized
	StateShutDown
	StateExited
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "Uninitialized"
	case StateInitializing:
		return "Initializing"
	case StateInitialized:
		return "Initialized"
	case StateShutDown:
		return "ShutDown"
	case StateExited:
		return "Exited"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Client is the front-end's view of one DAP session: a codec plus the
// lifecycle state and sequence counter. It is not safe to share across
// sessions — one Client per connection.
type Client struct {
	codec   *codec.Codec
	log     log.Logger
	state   atomic.Int32
	sendSeq atomic.Int64
}

// New wraps a codec as a front-end Client in the Uninitialized state.
func New(c *codec.Codec, logger log.Logger) *Client {
	if logger == nil {
		logger = log.Nop
	}
	return &Client{codec: c, log: logger}
}

// State returns the current lifecycle state.
func (c *Client) State() State {
	return State(c.state.Load())
}

// AdvanceState performs a forward-only transition. Only current+1 is a
// legal target; anything else is a logged no-op, never a panic, mirroring
// the source this design is ported from, which treats a lifecycle
// regression as a logic bug to report rather than a reason to crash.
func (c *Client) AdvanceState(target State) bool {
	current := State(c.state.Load())
	if target != current+1 {
		c.log.Errorf("lifecycle: refusing to set state to %s from %s", target, current)
		return false
	}
	ok := c.state.CompareAndSwap(int32(current), int32(target))
	if !ok {
		c.log.Errorf("lifecycle: compare-and-swap to %s failed, state changed concurrently", target)
		return false
	}
	c.log.Debugf("lifecycle: %s -> %s", current, target)
	return true
}

// NextSeq returns the next outbound sequence number, starting at 0 and
// incrementing on every call. Callers embed the returned value in the
// ProtocolMessage.Seq field of the response or event they are about to
// send, then pass the fully constructed message to Send.
func (c *Client) NextSeq() int {
	return int(c.sendSeq.Add(1) - 1)
}

// Send encodes and flushes msg. A write failure means the peer is gone;
// it is logged, not propagated, since the adapter will observe the same
// fact on its next read returning io.EOF.
func (c *Client) Send(msg dap.Message) {
	if err := c.codec.Encode(msg); err != nil {
		c.log.Errorf("send failed: %v", err)
	}
}

// NextInbound blocks until a message arrives, retrying past any
// recoverable framing error. It returns io.EOF once the stream is closed;
// every other returned error is terminal for the session as well.
func (c *Client) NextInbound() (dap.Message, error) {
	for {
		msg, err := c.codec.Decode()
		if err == nil {
			return msg, nil
		}
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		var badFrame *codec.ErrBadFrame
		if errors.As(err, &badFrame) {
			c.log.Warnf("discarding malformed frame: %v", err)
			continue
		}
		return nil, err
	}
}
