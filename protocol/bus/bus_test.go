package bus

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/scaproust-go/scaproust/message"
	"github.com/scaproust-go/scaproust/protocol"
	"github.com/scaproust-go/scaproust/protocol/internal/prototest"
)

func TestBusSendBroadcastsAndRecvFairQueues(t *testing.T) {
	b := New()
	net := prototest.NewNetwork()
	ctx := prototest.NewContext(net)

	b.AddPipe(ctx, protocol.PipeInfo{ID: 1, RecvPriority: 8})
	b.AddPipe(ctx, protocol.PipeInfo{ID: 2, RecvPriority: 8})
	net.Ready[1], net.Ready[2] = true, true
	b.OnSendReady(ctx, 1)
	b.OnSendReady(ctx, 2)

	called := false
	b.Send(ctx, message.New([]byte("gossip")), func(err error) { called = true })
	assert.True(t, called)
	assert.Len(t, net.Sent, 2)

	b.OnRecvAck(ctx, 1, message.New([]byte("from-1")))
	var got *message.Message
	b.Recv(ctx, func(msg *message.Message, err error) { got = msg })
	assert.Equal(t, []byte("from-1"), got.Body)
}

func TestBusSendExcludesOriginPipe(t *testing.T) {
	b := New()
	net := prototest.NewNetwork()
	ctx := prototest.NewContext(net)

	b.AddPipe(ctx, protocol.PipeInfo{ID: 1, RecvPriority: 8})
	b.AddPipe(ctx, protocol.PipeInfo{ID: 2, RecvPriority: 8})
	b.AddPipe(ctx, protocol.PipeInfo{ID: 3, RecvPriority: 8})
	net.Ready[1], net.Ready[2], net.Ready[3] = true, true, true
	b.OnSendReady(ctx, 1)
	b.OnSendReady(ctx, 2)
	b.OnSendReady(ctx, 3)

	b.OnRecvAck(ctx, 1, message.New([]byte("relay me")))
	var got *message.Message
	b.Recv(ctx, func(msg *message.Message, err error) { got = msg })
	assert.Equal(t, uint32(1), got.Origin)

	b.Send(ctx, got, func(err error) {})
	assert.Len(t, net.Sent, 2)
	for _, sent := range net.Sent {
		assert.NotEqual(t, protocol.EndpointID(1), sent.Pipe)
	}
}

func TestBusSendWithNoOriginReachesEveryReadyPipe(t *testing.T) {
	b := New()
	net := prototest.NewNetwork()
	ctx := prototest.NewContext(net)

	b.AddPipe(ctx, protocol.PipeInfo{ID: 1, RecvPriority: 8})
	b.AddPipe(ctx, protocol.PipeInfo{ID: 2, RecvPriority: 8})
	net.Ready[1], net.Ready[2] = true, true
	b.OnSendReady(ctx, 1)
	b.OnSendReady(ctx, 2)

	b.Send(ctx, message.New([]byte("direct")), func(err error) {})
	assert.Len(t, net.Sent, 2)
}

func TestBusRecvWaitsThenDelivers(t *testing.T) {
	b := New()
	net := prototest.NewNetwork()
	ctx := prototest.NewContext(net)
	b.AddPipe(ctx, protocol.PipeInfo{ID: 1, RecvPriority: 8})

	var got *message.Message
	b.Recv(ctx, func(msg *message.Message, err error) { got = msg })
	assert.Nil(t, got)
	b.OnRecvAck(ctx, 1, message.New([]byte("late")))
	assert.Equal(t, []byte("late"), got.Body)
}
