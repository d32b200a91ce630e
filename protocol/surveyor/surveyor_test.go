package surveyor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/scaproust-go/scaproust/message"
	"github.com/scaproust-go/scaproust/protocol"
	"github.com/scaproust-go/scaproust/protocol/internal/prototest"
)

func readySurveyor(net *prototest.Network, ctx *prototest.Context, ids ...protocol.EndpointID) *Surveyor {
	s := New()
	for _, id := range ids {
		s.AddPipe(ctx, protocol.PipeInfo{ID: id, RecvPriority: 8})
		net.Ready[id] = true
		s.OnSendReady(ctx, id)
	}
	return s
}

func TestSurveyorRecvRefusedBeforeSend(t *testing.T) {
	s := New()
	net := prototest.NewNetwork()
	ctx := prototest.NewContext(net)

	var gotErr error
	s.Recv(ctx, func(msg *message.Message, err error) { gotErr = err })
	assert.ErrorIs(t, gotErr, protocol.ErrProtoOp)
}

func TestSurveyorBroadcastsAndCollectsMultipleReplies(t *testing.T) {
	net := prototest.NewNetwork()
	ctx := prototest.NewContext(net)
	s := readySurveyor(net, ctx, 1, 2)

	var sendErr error
	s.Send(ctx, message.New([]byte("ping all")), func(err error) { sendErr = err })
	assert.NoError(t, sendErr)
	assert.Len(t, net.Sent, 2)

	surveyID := net.Sent[0].Msg.Header
	assert.Equal(t, surveyID, net.Sent[1].Msg.Header, "every respondent sees the same survey id")

	s.OnRecvAck(ctx, 1, message.NewWithHeader(surveyID, []byte("from-1")))
	s.OnRecvAck(ctx, 2, message.NewWithHeader(surveyID, []byte("from-2")))

	var first, second *message.Message
	s.Recv(ctx, func(msg *message.Message, err error) { first = msg })
	s.Recv(ctx, func(msg *message.Message, err error) { second = msg })
	assert.NotNil(t, first)
	assert.NotNil(t, second)
	assert.NotEqual(t, first.Body, second.Body)
}

func TestSurveyorDeadlineFailsPendingRecv(t *testing.T) {
	net := prototest.NewNetwork()
	ctx := prototest.NewContext(net)
	s := readySurveyor(net, ctx, 1)

	s.Send(ctx, message.New([]byte("ping")), func(error) {})

	var gotErr error
	s.Recv(ctx, func(msg *message.Message, err error) { gotErr = err })
	assert.True(t, ctx.Fire())
	assert.ErrorIs(t, gotErr, protocol.ErrTimedOut)

	// after the deadline, the survey is over: further Recv times out too.
	var afterErr error
	s.Recv(ctx, func(msg *message.Message, err error) { afterErr = err })
	assert.ErrorIs(t, afterErr, protocol.ErrTimedOut)
}

func TestSurveyorSetOptionDeadline(t *testing.T) {
	net := prototest.NewNetwork()
	ctx := prototest.NewContext(net)
	s := New()

	assert.NoError(t, s.SetOption(ctx, protocol.OptionSurveyDeadline, 3*time.Second))
	v, err := s.GetOption(protocol.OptionSurveyDeadline)
	assert.NoError(t, err)
	assert.Equal(t, 3*time.Second, v)
}
