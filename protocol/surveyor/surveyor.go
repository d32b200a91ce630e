// Package surveyor implements SURVEYOR: Send broadcasts a survey tagged
// with a 4-byte survey id to every ready pipe; Recv may be called
// repeatedly to collect one reply per respondent until the survey deadline
// elapses, at which point any further (or currently pending) Recv fails
// with a timeout. Grounded on mangos's xsurveyor plus its surveyor.go
// cooked layer (deadline-bounded multi-reply collection).
package surveyor

import (
	"encoding/binary"
	"time"

	"github.com/scaproust-go/scaproust/message"
	"github.com/scaproust-go/scaproust/protocol"
	"github.com/scaproust-go/scaproust/protocol/internal/base"
	"github.com/scaproust-go/scaproust/protocol/internal/policy"
)

// DefaultDeadline is how long a survey stays open for replies.
const DefaultDeadline = time.Second

// Surveyor is the SURVEYOR protocol implementation.
type Surveyor struct {
	pipes *policy.Broadcast
	inbox *policy.Inbox

	recv base.PendingRecv

	active      bool
	surveyID    uint32
	deadline    time.Duration
	timer       protocol.ScheduledID
	hasTimer    bool
	nextID      uint32
}

// New returns a ready-to-use Surveyor protocol.
func New() *Surveyor {
	return &Surveyor{
		pipes:    policy.NewBroadcast(),
		inbox:    policy.NewInbox(),
		deadline: DefaultDeadline,
		nextID:   1,
	}
}

func (s *Surveyor) Info() protocol.Info {
	return protocol.Info{Self: protocol.Surveyor, Peer: protocol.Respondent, SelfName: "surveyor", PeerName: "respondent"}
}

func (s *Surveyor) AddPipe(ctx protocol.Context, pipe protocol.PipeInfo) {
	s.pipes.Add(pipe.ID)
	s.inbox.Add(pipe.ID, pipe.RecvPriority)
}
func (s *Surveyor) RemovePipe(ctx protocol.Context, id protocol.EndpointID) {
	s.pipes.Remove(id)
	s.inbox.Remove(id)
}

func (s *Surveyor) Send(ctx protocol.Context, msg *message.Message, done protocol.SendDone) {
	if s.hasTimer {
		ctx.Cancel(s.timer)
	}
	s.surveyID = s.allocID()
	s.active = true
	header := make([]byte, 4)
	binary.BigEndian.PutUint32(header, s.surveyID)
	framed := msg.PushHeader(header)
	for _, id := range s.pipes.Ready() {
		ctx.Network().SendTo(id, framed.Clone())
	}
	s.timer = ctx.Schedule(func() { s.OnSurveyTimeout(ctx) }, s.deadline)
	s.hasTimer = true
	done(nil)
}

func (s *Surveyor) allocID() uint32 {
	id := s.nextID
	s.nextID++
	return id | 0x80000000
}

func (s *Surveyor) Recv(ctx protocol.Context, done protocol.RecvDone) {
	if !s.active {
		if s.surveyID != 0 {
			done(nil, protocol.ErrTimedOut)
			return
		}
		done(nil, protocol.ErrProtoOp)
		return
	}
	if s.drain(ctx, done) {
		return
	}
	s.recv.Start(done)
}

func (s *Surveyor) drain(ctx protocol.Context, done protocol.RecvDone) bool {
	for {
		id, msg, ok := s.inbox.Pop()
		if !ok {
			return false
		}
		ctx.Network().ResumeRecv(id)
		prefix, rest := msg.PopHeader(4)
		if len(prefix) == 4 && binary.BigEndian.Uint32(prefix) == s.surveyID {
			done(rest, nil)
			return true
		}
	}
}

func (s *Surveyor) OnSendAck(ctx protocol.Context, id protocol.EndpointID) {}

func (s *Surveyor) OnRecvAck(ctx protocol.Context, id protocol.EndpointID, msg *message.Message) {
	if !s.active {
		ctx.Network().ResumeRecv(id)
		return
	}
	if s.recv.Active() {
		prefix, rest := msg.PopHeader(4)
		ctx.Network().ResumeRecv(id)
		if len(prefix) == 4 && binary.BigEndian.Uint32(prefix) == s.surveyID {
			s.recv.Complete(rest, nil)
		}
		return
	}
	s.inbox.Push(id, msg)
}

func (s *Surveyor) OnSendReady(ctx protocol.Context, id protocol.EndpointID) { s.pipes.SetReady(id, true) }
func (s *Surveyor) OnRecvReady(ctx protocol.Context, id protocol.EndpointID) {}

func (s *Surveyor) OnSendTimeout(ctx protocol.Context) {}
func (s *Surveyor) OnRecvTimeout(ctx protocol.Context) {}

// OnSurveyTimeout closes the current survey window: any Recv waiting on
// another reply fails with a timeout, and further Recv calls fail with a
// timeout too until the next Send opens a new survey.
func (s *Surveyor) OnSurveyTimeout(ctx protocol.Context) {
	s.active = false
	s.hasTimer = false
	s.recv.Complete(nil, protocol.ErrTimedOut)
}
func (s *Surveyor) OnRequestTimeout(ctx protocol.Context) {}

func (s *Surveyor) IsSendReady() bool { return true }
func (s *Surveyor) IsRecvReady() bool { return s.active && s.inbox.AnyReady() }

func (s *Surveyor) SetOption(ctx protocol.Context, name string, value interface{}) error {
	if name == protocol.OptionSurveyDeadline {
		d, ok := value.(time.Duration)
		if !ok {
			return protocol.ErrBadOption
		}
		s.deadline = d
		return nil
	}
	return protocol.ErrBadOption
}

func (s *Surveyor) GetOption(name string) (interface{}, error) {
	if name == protocol.OptionSurveyDeadline {
		return s.deadline, nil
	}
	return nil, protocol.ErrBadOption
}

func (s *Surveyor) Close(ctx protocol.Context) {
	if s.hasTimer {
		ctx.Cancel(s.timer)
	}
	s.recv.Complete(nil, protocol.ErrClosed)
}
