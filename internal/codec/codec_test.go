package codec

import (
	"bytes"
	"io"
	"testing"

	"github.com/google/go-dap"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	c := New(&buf, &buf)

	req := &dap.InitializeRequest{
		Request: dap.Request{
			ProtocolMessage: dap.ProtocolMessage{Seq: 1, Type: "request"},
			Command:         "initialize",
		},
		Arguments: dap.InitializeRequestArguments{AdapterID: "thunk-dap"},
	}

	require.NoError(t, c.Encode(req))

	got, err := c.Decode()
	require.NoError(t, err)

	gotReq, ok := got.(*dap.InitializeRequest)
	require.True(t, ok, "expected *dap.InitializeRequest, got %T", got)
	require.Equal(t, req.Seq, gotReq.Seq)
	require.Equal(t, req.Command, gotReq.Command)
	require.Equal(t, req.Arguments.AdapterID, gotReq.Arguments.AdapterID)
}

func TestDecodeEOF(t *testing.T) {
	c := New(&bytes.Buffer{}, io.Discard)
	_, err := c.Decode()
	require.ErrorIs(t, err, io.EOF)
}

func TestDecodeBadFrame(t *testing.T) {
	r := bytes.NewBufferString("not-a-valid-header\r\n\r\n")
	c := New(r, io.Discard)
	_, err := c.Decode()
	require.Error(t, err)
	var badFrame *ErrBadFrame
	require.ErrorAs(t, err, &badFrame)
}
