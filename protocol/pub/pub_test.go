package pub

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/scaproust-go/scaproust/message"
	"github.com/scaproust-go/scaproust/protocol"
	"github.com/scaproust-go/scaproust/protocol/internal/prototest"
)

func TestPubRecvUnsupported(t *testing.T) {
	p := New()
	net := prototest.NewNetwork()
	ctx := prototest.NewContext(net)

	var gotErr error
	p.Recv(ctx, func(msg *message.Message, err error) { gotErr = err })
	assert.ErrorIs(t, gotErr, protocol.ErrProtoOp)
}

func TestPubBroadcastsToEveryReadyPipeAndNeverBlocks(t *testing.T) {
	p := New()
	net := prototest.NewNetwork()
	ctx := prototest.NewContext(net)

	p.AddPipe(ctx, protocol.PipeInfo{ID: 1})
	p.AddPipe(ctx, protocol.PipeInfo{ID: 2})
	p.AddPipe(ctx, protocol.PipeInfo{ID: 3}) // never becomes ready
	net.Ready[1], net.Ready[2] = true, true
	p.OnSendReady(ctx, 1)
	p.OnSendReady(ctx, 2)

	called := false
	p.Send(ctx, message.New([]byte("news")), func(err error) { called = true })
	assert.True(t, called, "pub never queues a send, even with a slow/absent subscriber")
	assert.Len(t, net.Sent, 2)
	pipes := map[protocol.EndpointID]bool{}
	for _, s := range net.Sent {
		pipes[s.Pipe] = true
		assert.Equal(t, []byte("news"), s.Msg.Body)
	}
	assert.True(t, pipes[1] && pipes[2])
}
