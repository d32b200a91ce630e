package base

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/scaproust-go/scaproust/message"
)

func TestPendingSendCompletesExactlyOnce(t *testing.T) {
	var p PendingSend
	assert.False(t, p.Active())

	calls := 0
	var gotErr error
	p.Start(message.New([]byte("hi")), func(err error) {
		calls++
		gotErr = err
	})
	assert.True(t, p.Active())
	assert.Equal(t, []byte("hi"), p.Msg().Body)

	boom := errors.New("boom")
	p.Complete(boom)
	assert.False(t, p.Active())
	assert.Equal(t, 1, calls)
	assert.Equal(t, boom, gotErr)

	// a second Complete with nothing pending is a no-op
	p.Complete(errors.New("ignored"))
	assert.Equal(t, 1, calls)
}

func TestPendingRecvCompletesExactlyOnce(t *testing.T) {
	var p PendingRecv
	assert.False(t, p.Active())

	calls := 0
	var gotMsg *message.Message
	p.Start(func(msg *message.Message, err error) {
		calls++
		gotMsg = msg
	})
	assert.True(t, p.Active())

	want := message.New([]byte("reply"))
	p.Complete(want, nil)
	assert.False(t, p.Active())
	assert.Equal(t, 1, calls)
	assert.Same(t, want, gotMsg)

	p.Complete(message.New([]byte("ignored")), nil)
	assert.Equal(t, 1, calls)
}
