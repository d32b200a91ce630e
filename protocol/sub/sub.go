// Package sub implements the subscribe side of PUB/SUB: Recv fair-queues
// across every pipe, filtering each incoming message against the socket's
// subscription prefix set; Send is unsupported. Grounded on mangos's xsub.
package sub

import (
	"bytes"

	"github.com/scaproust-go/scaproust/message"
	"github.com/scaproust-go/scaproust/protocol"
	"github.com/scaproust-go/scaproust/protocol/internal/base"
	"github.com/scaproust-go/scaproust/protocol/internal/policy"
)

// Sub is the SUB protocol implementation.
type Sub struct {
	inbox  *policy.Inbox
	recv   base.PendingRecv
	topics [][]byte
}

// New returns a Sub protocol with no subscriptions (matches nothing until
// Subscribe is called, per spec.md §4.2 — SUB starts deaf, not omniscient).
func New() *Sub { return &Sub{inbox: policy.NewInbox()} }

func (s *Sub) Info() protocol.Info {
	return protocol.Info{Self: protocol.Sub, Peer: protocol.Pub, SelfName: "sub", PeerName: "pub"}
}

func (s *Sub) AddPipe(ctx protocol.Context, pipe protocol.PipeInfo) {
	s.inbox.Add(pipe.ID, pipe.RecvPriority)
}
func (s *Sub) RemovePipe(ctx protocol.Context, id protocol.EndpointID) { s.inbox.Remove(id) }

func (s *Sub) Send(ctx protocol.Context, msg *message.Message, done protocol.SendDone) {
	done(protocol.ErrProtoOp)
}

func (s *Sub) Recv(ctx protocol.Context, done protocol.RecvDone) {
	if s.drain(ctx, done) {
		return
	}
	s.recv.Start(done)
}

// drain pops ready messages until one matches a subscription (delivering
// it) or the inbox runs dry. Every popped pipe is resumed regardless of
// whether its message matched, so a filtered-out topic doesn't starve it.
func (s *Sub) drain(ctx protocol.Context, done protocol.RecvDone) bool {
	for {
		id, msg, ok := s.inbox.Pop()
		if !ok {
			return false
		}
		ctx.Network().ResumeRecv(id)
		if s.matches(msg) {
			done(msg, nil)
			return true
		}
	}
}

func (s *Sub) matches(msg *message.Message) bool {
	if len(s.topics) == 0 {
		return false
	}
	for _, t := range s.topics {
		if bytes.HasPrefix(msg.Body, t) {
			return true
		}
	}
	return false
}

func (s *Sub) OnSendAck(ctx protocol.Context, id protocol.EndpointID) {}

func (s *Sub) OnRecvAck(ctx protocol.Context, id protocol.EndpointID, msg *message.Message) {
	if s.recv.Active() {
		if s.matches(msg) {
			s.recv.Complete(msg, nil)
			ctx.Network().ResumeRecv(id)
			return
		}
		ctx.Network().ResumeRecv(id)
		return
	}
	s.inbox.Push(id, msg)
}

func (s *Sub) OnSendReady(ctx protocol.Context, id protocol.EndpointID) {}
func (s *Sub) OnRecvReady(ctx protocol.Context, id protocol.EndpointID) {}

func (s *Sub) OnSendTimeout(ctx protocol.Context) {}
func (s *Sub) OnRecvTimeout(ctx protocol.Context) { s.recv.Complete(nil, protocol.ErrTimedOut) }
func (s *Sub) OnSurveyTimeout(ctx protocol.Context)  {}
func (s *Sub) OnRequestTimeout(ctx protocol.Context) {}

func (s *Sub) IsSendReady() bool { return false }
func (s *Sub) IsRecvReady() bool { return s.inbox.AnyReady() }

func (s *Sub) SetOption(ctx protocol.Context, name string, value interface{}) error {
	switch name {
	case protocol.OptionSubscribe:
		topic, ok := value.([]byte)
		if !ok {
			return protocol.ErrBadOption
		}
		s.topics = append(s.topics, topic)
		return nil
	case protocol.OptionUnsubscribe:
		topic, ok := value.([]byte)
		if !ok {
			return protocol.ErrBadOption
		}
		for i, t := range s.topics {
			if bytes.Equal(t, topic) {
				s.topics = append(s.topics[:i], s.topics[i+1:]...)
				return nil
			}
		}
		return nil
	}
	return protocol.ErrBadOption
}

func (s *Sub) GetOption(name string) (interface{}, error) { return nil, protocol.ErrBadOption }
func (s *Sub) Close(ctx protocol.Context)                 { s.recv.Complete(nil, protocol.ErrClosed) }
