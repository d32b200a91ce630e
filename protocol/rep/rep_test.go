package rep

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/scaproust-go/scaproust/message"
	"github.com/scaproust-go/scaproust/protocol"
	"github.com/scaproust-go/scaproust/protocol/internal/prototest"
)

func TestRepSendWithoutRequestFails(t *testing.T) {
	p := New()
	net := prototest.NewNetwork()
	ctx := prototest.NewContext(net)

	var gotErr error
	p.Send(ctx, message.New([]byte("reply")), func(err error) { gotErr = err })
	assert.ErrorIs(t, gotErr, protocol.ErrProtoOp)
}

func TestRepRoutesReplyBackToRequestingPipeOnly(t *testing.T) {
	p := New()
	net := prototest.NewNetwork()
	ctx := prototest.NewContext(net)
	p.AddPipe(ctx, protocol.PipeInfo{ID: 1, RecvPriority: 8})
	net.Ready[1] = true

	requestID := []byte{0x80, 0, 0, 1}
	var req *message.Message
	p.Recv(ctx, func(msg *message.Message, err error) { req = msg })
	p.OnRecvAck(ctx, 1, message.NewWithHeader(requestID, []byte("ping")))
	assert.Equal(t, []byte("ping"), req.Body)
	assert.True(t, p.IsSendReady())

	var sendErr error
	p.Send(ctx, message.New([]byte("pong")), func(err error) { sendErr = err })
	assert.NoError(t, sendErr)
	assert.Len(t, net.Sent, 1)
	assert.Equal(t, protocol.EndpointID(1), net.Sent[0].Pipe)
	assert.Equal(t, requestID, net.Sent[0].Msg.Header)

	// the backtrace is one-shot: a second Send without a new request fails.
	var secondErr error
	p.Send(ctx, message.New([]byte("again")), func(err error) { secondErr = err })
	assert.ErrorIs(t, secondErr, protocol.ErrProtoOp)
}

func TestRepDiscardsMalformedHeaderAndResumes(t *testing.T) {
	p := New()
	net := prototest.NewNetwork()
	ctx := prototest.NewContext(net)
	p.AddPipe(ctx, protocol.PipeInfo{ID: 1, RecvPriority: 8})

	var gotErr error
	p.Recv(ctx, func(msg *message.Message, err error) { gotErr = err })
	p.OnRecvAck(ctx, 1, message.New([]byte("no header at all")))
	assert.ErrorIs(t, gotErr, protocol.ErrInvalidInput)
	assert.Equal(t, []protocol.EndpointID{1}, net.Resumed)
	assert.False(t, p.IsSendReady())
}

func TestRepBuffersRequestUntilRecvCalled(t *testing.T) {
	p := New()
	net := prototest.NewNetwork()
	ctx := prototest.NewContext(net)
	p.AddPipe(ctx, protocol.PipeInfo{ID: 1, RecvPriority: 8})

	requestID := []byte{0x80, 0, 0, 7}
	p.OnRecvAck(ctx, 1, message.NewWithHeader(requestID, []byte("buffered")))
	assert.True(t, p.IsRecvReady())
	assert.Empty(t, net.Resumed)

	var got *message.Message
	p.Recv(ctx, func(msg *message.Message, err error) { got = msg })
	assert.Equal(t, []byte("buffered"), got.Body)
	assert.Equal(t, []protocol.EndpointID{1}, net.Resumed)
}

func TestRepRemovePipeClearsBacktraceForThatPipe(t *testing.T) {
	p := New()
	net := prototest.NewNetwork()
	ctx := prototest.NewContext(net)
	p.AddPipe(ctx, protocol.PipeInfo{ID: 1, RecvPriority: 8})

	p.OnRecvAck(ctx, 1, message.NewWithHeader([]byte{0x80, 0, 0, 1}, []byte("ping")))
	p.Recv(ctx, func(msg *message.Message, err error) {})
	assert.True(t, p.IsSendReady())

	p.RemovePipe(ctx, 1)
	assert.False(t, p.IsSendReady())
}
