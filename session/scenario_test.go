package session

import (
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scaproust-go/scaproust/agent/log"
	"github.com/scaproust-go/scaproust/config"
	"github.com/scaproust-go/scaproust/protocol"
	"github.com/scaproust-go/scaproust/protocol/pair"
	"github.com/scaproust-go/scaproust/protocol/pub"
	"github.com/scaproust-go/scaproust/protocol/pull"
	"github.com/scaproust-go/scaproust/protocol/push"
	"github.com/scaproust-go/scaproust/protocol/rep"
	"github.com/scaproust-go/scaproust/protocol/req"
	"github.com/scaproust-go/scaproust/protocol/sub"
)

func freeTCPAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return fmt.Sprintf("tcp://%s", addr)
}

// PAIR loopback over a real TCP connection, matching the zero-length
// body case explicitly called out in the allowed-frames scenarios.
func TestScenarioPairLoopbackOverTCP(t *testing.T) {
	s := testSession(t)
	addr := freeTCPAddr(t)

	a := s.NewSocket(pair.New())
	defer a.Close()
	b := s.NewSocket(pair.New())
	defer b.Close()

	_, err := a.Listen(addr)
	require.NoError(t, err)
	_, err = b.Dial(addr)
	require.NoError(t, err)
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, a.Send([]byte("hello")))
	body, err := b.Recv()
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), body)

	require.NoError(t, b.Send([]byte{}))
	body, err = a.Recv()
	require.NoError(t, err)
	assert.Empty(t, body)
}

func TestScenarioPubSubFiltersByPrefix(t *testing.T) {
	s := testSession(t)
	addr := "inproc://scenario-pubsub"

	p := s.NewSocket(pub.New())
	defer p.Close()
	subSock := s.NewSocket(sub.New())
	defer subSock.Close()

	_, err := p.Listen(addr)
	require.NoError(t, err)
	_, err = subSock.Dial(addr)
	require.NoError(t, err)
	require.NoError(t, subSock.SetOption(protocol.OptionSubscribe, []byte("topic/a")))
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, p.Send([]byte("topic/b x")))
	require.NoError(t, p.Send([]byte("topic/a y")))

	done := make(chan []byte, 1)
	go func() {
		body, err := subSock.Recv()
		if err == nil {
			done <- body
		}
	}()

	select {
	case body := <-done:
		assert.Equal(t, []byte("topic/a y"), body)
	case <-time.After(time.Second):
		t.Fatal("subscriber never received the matching message")
	}

	select {
	case body := <-done:
		t.Fatalf("unexpected second message delivered: %q", body)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestScenarioReqRepRoundTrip(t *testing.T) {
	s := testSession(t)
	addr := "inproc://scenario-reqrep"

	r := s.NewSocket(rep.New())
	defer r.Close()
	q := s.NewSocket(req.New())
	defer q.Close()

	_, err := r.Listen(addr)
	require.NoError(t, err)
	_, err = q.Dial(addr)
	require.NoError(t, err)
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, q.Send([]byte("ping")))
	body, err := r.Recv()
	require.NoError(t, err)
	assert.Equal(t, []byte("ping"), body)

	require.NoError(t, r.Send([]byte("pong")))
	body, err = q.Recv()
	require.NoError(t, err)
	assert.Equal(t, []byte("pong"), body)
}

func TestScenarioPushFanOutNoGapsOrDuplicates(t *testing.T) {
	s := testSession(t)
	addr := "inproc://scenario-pushpull"

	psh := s.NewSocket(push.New())
	defer psh.Close()
	pullA := s.NewSocket(pull.New())
	defer pullA.Close()
	pullB := s.NewSocket(pull.New())
	defer pullB.Close()

	_, err := psh.Listen(addr)
	require.NoError(t, err)
	_, err = pullA.Dial(addr)
	require.NoError(t, err)
	_, err = pullB.Dial(addr)
	require.NoError(t, err)
	time.Sleep(100 * time.Millisecond)

	const total = 1000
	go func() {
		for i := 0; i < total; i++ {
			psh.Send([]byte(fmt.Sprintf("%d", i)))
		}
	}()

	results := make(chan string, total)
	relay := func(sock *Socket) {
		for {
			body, err := sock.Recv()
			if err != nil {
				return
			}
			results <- string(body)
		}
	}
	go relay(pullA)
	go relay(pullB)

	seen := map[string]int{}
	deadline := time.After(3 * time.Second)
	for len(seen) < total {
		select {
		case body := <-results:
			seen[body]++
		case <-deadline:
			t.Fatalf("only received %d/%d messages before timing out", len(seen), total)
		}
	}

	for body, n := range seen {
		assert.Equal(t, 1, n, "message %q delivered %d times", body, n)
	}
	assert.Len(t, seen, total)
}

func TestScenarioPushSendTimeoutWithNoPeer(t *testing.T) {
	s := testSession(t)
	psh := s.NewSocket(push.New())
	defer psh.Close()

	require.NoError(t, psh.SetOption(protocol.OptionSendTimeout, 100*time.Millisecond))

	start := time.Now()
	err := psh.Send([]byte("x"))
	elapsed := time.Since(start)

	assert.ErrorIs(t, err, protocol.ErrTimedOut)
	assert.GreaterOrEqual(t, elapsed, 80*time.Millisecond)
	assert.LessOrEqual(t, elapsed, 500*time.Millisecond)
}
