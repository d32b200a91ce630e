package pair

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/scaproust-go/scaproust/message"
	"github.com/scaproust-go/scaproust/protocol"
	"github.com/scaproust-go/scaproust/protocol/internal/prototest"
)

func TestPairSendRequiresActivePeer(t *testing.T) {
	p := New()
	net := prototest.NewNetwork()
	ctx := prototest.NewContext(net)

	var gotErr error
	p.Send(ctx, message.New([]byte("hi")), func(err error) { gotErr = err })
	assert.ErrorIs(t, gotErr, protocol.ErrNotConnected)
}

func TestPairSendCompletesOnceSendReady(t *testing.T) {
	p := New()
	net := prototest.NewNetwork()
	ctx := prototest.NewContext(net)

	p.AddPipe(ctx, protocol.PipeInfo{ID: 1})
	net.Ready[1] = true
	p.OnSendReady(ctx, 1)

	var gotErr error
	called := false
	p.Send(ctx, message.New([]byte("hi")), func(err error) { called = true; gotErr = err })
	// Send submitted the frame inline (SendTo succeeded), but only
	// completes once the pipe reports OnSendAck.
	assert.False(t, called)
	assert.Len(t, net.Sent, 1)
	assert.Equal(t, protocol.EndpointID(1), net.Sent[0].Pipe)

	p.OnSendAck(ctx, 1)
	assert.True(t, called)
	assert.NoError(t, gotErr)
}

func TestPairSendQueuesUntilReady(t *testing.T) {
	p := New()
	net := prototest.NewNetwork()
	ctx := prototest.NewContext(net)
	p.AddPipe(ctx, protocol.PipeInfo{ID: 1})

	called := false
	p.Send(ctx, message.New([]byte("hi")), func(err error) { called = true })
	assert.False(t, called)
	assert.Empty(t, net.Sent)

	net.Ready[1] = true
	p.OnSendReady(ctx, 1)
	assert.Len(t, net.Sent, 1)
	assert.False(t, called)

	p.OnSendAck(ctx, 1)
	assert.True(t, called)
}

func TestPairFallsBackToBackupPeer(t *testing.T) {
	p := New()
	net := prototest.NewNetwork()
	ctx := prototest.NewContext(net)

	p.AddPipe(ctx, protocol.PipeInfo{ID: 1})
	p.AddPipe(ctx, protocol.PipeInfo{ID: 2})

	p.RemovePipe(ctx, 1)

	net.Ready[2] = true
	p.OnSendReady(ctx, 2)

	called := false
	p.Send(ctx, message.New([]byte("hi")), func(err error) { called = true })
	assert.Len(t, net.Sent, 1)
	assert.Equal(t, protocol.EndpointID(2), net.Sent[0].Pipe)

	p.OnSendAck(ctx, 2)
	assert.True(t, called)
}

func TestPairRecvDeliversBufferedMessageAndResumes(t *testing.T) {
	p := New()
	net := prototest.NewNetwork()
	ctx := prototest.NewContext(net)
	p.AddPipe(ctx, protocol.PipeInfo{ID: 1})

	p.OnRecvAck(ctx, 1, message.New([]byte("incoming")))
	assert.True(t, p.IsRecvReady())

	var got *message.Message
	p.Recv(ctx, func(msg *message.Message, err error) { got = msg })
	assert.Equal(t, []byte("incoming"), got.Body)
	assert.Equal(t, []protocol.EndpointID{1}, net.Resumed)
}

func TestPairRecvWaitsThenCompletesOnArrival(t *testing.T) {
	p := New()
	net := prototest.NewNetwork()
	ctx := prototest.NewContext(net)
	p.AddPipe(ctx, protocol.PipeInfo{ID: 1})

	var got *message.Message
	p.Recv(ctx, func(msg *message.Message, err error) { got = msg })
	assert.Nil(t, got)

	p.OnRecvAck(ctx, 1, message.New([]byte("late")))
	assert.Equal(t, []byte("late"), got.Body)
}

func TestPairSendTimeoutCompletesPending(t *testing.T) {
	p := New()
	net := prototest.NewNetwork()
	ctx := prototest.NewContext(net)
	p.AddPipe(ctx, protocol.PipeInfo{ID: 1})

	var gotErr error
	p.Send(ctx, message.New([]byte("hi")), func(err error) { gotErr = err })
	p.OnSendTimeout(ctx)
	assert.ErrorIs(t, gotErr, protocol.ErrTimedOut)
}
