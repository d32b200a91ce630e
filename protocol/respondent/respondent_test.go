package respondent

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/scaproust-go/scaproust/message"
	"github.com/scaproust-go/scaproust/protocol"
	"github.com/scaproust-go/scaproust/protocol/internal/prototest"
)

func TestRespondentSendWithoutSurveyFails(t *testing.T) {
	p := New()
	net := prototest.NewNetwork()
	ctx := prototest.NewContext(net)

	var gotErr error
	p.Send(ctx, message.New([]byte("answer")), func(err error) { gotErr = err })
	assert.ErrorIs(t, gotErr, protocol.ErrProtoOp)
}

func TestRespondentAnswersBackToSurveyingPipeOnly(t *testing.T) {
	p := New()
	net := prototest.NewNetwork()
	ctx := prototest.NewContext(net)
	p.AddPipe(ctx, protocol.PipeInfo{ID: 1, RecvPriority: 8})
	net.Ready[1] = true

	surveyID := []byte{0x80, 0, 0, 9}
	var survey *message.Message
	p.Recv(ctx, func(msg *message.Message, err error) { survey = msg })
	p.OnRecvAck(ctx, 1, message.NewWithHeader(surveyID, []byte("how are you")))
	assert.Equal(t, []byte("how are you"), survey.Body)

	var sendErr error
	p.Send(ctx, message.New([]byte("fine")), func(err error) { sendErr = err })
	assert.NoError(t, sendErr)
	assert.Equal(t, surveyID, net.Sent[0].Msg.Header)

	var secondErr error
	p.Send(ctx, message.New([]byte("again")), func(err error) { secondErr = err })
	assert.ErrorIs(t, secondErr, protocol.ErrProtoOp)
}
