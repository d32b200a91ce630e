// Copyright 2016 Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"). You may not
// use this file except in compliance with the License. A copy of the
// License is located at
//
// http://aws.amazon.com/apache2.0/
//
// or in the "license" file accompanying this file. This file is distributed
// on an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND,
// either express or implied. See the License for the specific language governing
// permissions and limitations under the License.

// Package protocol defines the contract every messaging pattern (PAIR,
// PUB/SUB, REQ/REP, PUSH/PULL, SURVEYOR/RESPONDENT, BUS) implements, and
// the contract the reactor core (internal/core) exposes to drive it. A
// Protocol is a pure, single-threaded state machine: the dispatcher goroutine
// is the only caller of any Protocol method, so implementations need no
// internal locking.
package protocol

import (
	"errors"
	"time"

	"github.com/scaproust-go/scaproust/message"
)

// ID is a scalable-protocols wire protocol identifier (spec.md §6 registry).
type ID uint16

// Protocol id registry. Values match the nanomsg/SP wire registry so a
// handshake against another SP implementation's byte stream still rejects
// correctly on mismatch.
const (
	Pair       ID = 16
	Pub        ID = 32
	Sub        ID = 33
	Req        ID = 48
	Rep        ID = 49
	Push       ID = 80
	Pull       ID = 81
	Surveyor   ID = 98
	Respondent ID = 99
	Bus        ID = 112
)

var names = map[ID]string{
	Pair: "pair", Pub: "pub", Sub: "sub", Req: "req", Rep: "rep",
	Push: "push", Pull: "pull", Surveyor: "surveyor", Respondent: "respondent", Bus: "bus",
}

// String returns the protocol's short name, or "unknown" if unregistered.
func (p ID) String() string {
	if n, ok := names[p]; ok {
		return n
	}
	return "unknown"
}

var peers = map[ID]ID{
	Pair: Pair,
	Pub:  Sub, Sub: Pub,
	Req: Rep, Rep: Req,
	Push: Pull, Pull: Push,
	Surveyor: Respondent, Respondent: Surveyor,
	Bus: Bus,
}

// PeerOf returns the protocol id a pipe of protocol id id is allowed to
// shake hands with, per the allowed-pairs table in spec.md §6.
func PeerOf(id ID) (ID, bool) {
	p, ok := peers[id]
	return p, ok
}

// SocketID uniquely names a Socket for the life of a session.
type SocketID uint32

// EndpointID names a Pipe or an Acceptor interchangeably within a session;
// it also doubles as the Registrar's readiness-registration token.
type EndpointID uint32

// ScheduledID is an opaque handle a Protocol uses to cancel a timer it
// previously asked the core to start via Context.Schedule.
type ScheduledID uint32

// Error is a sentinel error kind, matching spec.md §7's closed set.
type Error string

func (e Error) Error() string { return string(e) }

// Error kinds. Per-pipe I/O errors (ConnectionReset, BrokenPipe, Other) never
// reach a user directly — see spec.md §7's propagation policy — but are
// exported so transports and tests can recognize them.
const (
	ErrInvalidInput    Error = "scaproust: invalid input"
	ErrNotConnected    Error = "scaproust: not connected"
	ErrTimedOut        Error = "scaproust: timed out"
	ErrClosed          Error = "scaproust: closed"
	ErrProtoOp         Error = "scaproust: operation not supported by protocol"
	ErrOpInProgress    Error = "scaproust: an operation of this kind is already pending"
	ErrBadOption       Error = "scaproust: bad option value"
	ErrBadVersion      Error = "scaproust: bad handshake"
	ErrTooLong         Error = "scaproust: message exceeds maximum size"
	ErrConnectionReset Error = "scaproust: connection reset"
	ErrBrokenPipe      Error = "scaproust: broken pipe"
)

// Is allows errors.Is(err, protocol.ErrTimedOut) to work when an Error has
// been wrapped with fmt.Errorf("...: %w", err).
func (e Error) Is(target error) bool {
	var other Error
	if errors.As(target, &other) {
		return other == e
	}
	return false
}

// Info identifies a protocol implementation and the peer it expects.
type Info struct {
	Self     ID
	Peer     ID
	SelfName string
	PeerName string
}

// PipeInfo is what the core tells a Protocol about a newly added pipe.
// Protocols never touch the underlying transport stream directly; all I/O
// happens through the Network facade, keyed by EndpointID, which keeps the
// ownership graph a tree (EndpointCollection owns Pipes; Protocol only ever
// holds the id) per spec.md §9.
type PipeInfo struct {
	ID           EndpointID
	SendPriority int
	RecvPriority int
}

// EventKind tags an Event raised by a Protocol to its Socket.
type EventKind int

const (
	// CanSend reports a change in the protocol's readiness to accept a
	// Send request without blocking/queuing.
	CanSend EventKind = iota
	// CanRecv reports a change in the protocol's readiness to produce a
	// Recv result without blocking/queuing.
	CanRecv
	// Readable is the recv-readiness kind for device mode (OptionDeviceItem).
	// No protocol in this module raises it or handles OptionDeviceItem; the
	// Socket treats a Readable event the same as CanRecv.
	Readable
)

// Event is what a Protocol raises through Context.Raise to inform its Socket
// of a readiness change.
type Event struct {
	Kind  EventKind
	Ready bool
}

// Network is the façade a Protocol uses to act on pipes/acceptors by
// EndpointID: dial, bind, send on a specific pipe, or close it. It is only
// ever called from the dispatcher goroutine.
type Network interface {
	// Dial starts an outbound connection attempt and returns the
	// EndpointID that will be used for all further events about it.
	Dial(url string) (EndpointID, error)
	// Listen starts a listener and returns the EndpointID naming the
	// Acceptor.
	Listen(url string) (EndpointID, error)
	// SendTo hands msg to the pipe's single outbound frame slot. The
	// caller (a Protocol) must only call this when it has observed
	// CanSend-equivalent readiness for that pipe (on_send_ready/the
	// ready-pipe set it tracks); otherwise ErrNotConnected is returned.
	SendTo(id EndpointID, msg *message.Message) error
	// ResumeRecv tells pipe id's reader it may read its next frame. A pipe
	// delivers at most one buffered recv frame (via OnRecvAck) before
	// stalling; a Protocol that did not hand that frame straight to a
	// pending Recv must call ResumeRecv once it has finished with it
	// (either consumed it or discarded it), or the pipe starves forever.
	ResumeRecv(id EndpointID)
	// Close tears down a pipe or acceptor. For a dialed pipe lost
	// non-gracefully this is not called by the protocol — the core
	// schedules reconnect on its own (spec.md §3 Lifecycles).
	Close(id EndpointID) error
}

// Context is threaded into every Protocol method by the dispatcher. It is
// the Protocol's only way to affect the world outside its own fields.
type Context interface {
	// Raise reports a readiness change to the owning Socket.
	Raise(Event)
	// Schedule asks the core to call task after delay, from the dispatcher
	// goroutine. The returned handle is used to Cancel.
	Schedule(task func(), delay time.Duration) ScheduledID
	// Cancel aborts a previously scheduled task. Canceling an id whose
	// task already fired is a no-op (spec.md §3 Invariant 5).
	Cancel(ScheduledID)
	// Network is this protocol's handle on the endpoint pool.
	Network() Network
}

// SendDone is the callback a Protocol invokes exactly once to complete a
// pending Send, per spec.md §4.3 ("send... must eventually reply exactly
// once with Send or Err"). It may be called synchronously within Send, or
// later from OnSendReady/OnSendAck/OnSendTimeout.
type SendDone func(error)

// RecvDone is the callback a Protocol invokes exactly once to complete a
// pending Recv.
type RecvDone func(*message.Message, error)

// Protocol implements one messaging pattern. Every method is called from
// the single dispatcher goroutine that owns the Socket this Protocol
// belongs to; implementations carry no internal synchronization.
type Protocol interface {
	// Info identifies this protocol and its expected peer.
	Info() Info

	// AddPipe registers a newly opened pipe with the protocol's routing
	// policy (broadcast set, load-balance list, or fair-queue list).
	AddPipe(ctx Context, pipe PipeInfo)
	// RemovePipe unregisters a pipe, e.g. after it closes or errors.
	RemovePipe(ctx Context, id EndpointID)

	// Send attempts to deliver msg per this protocol's send policy,
	// invoking done exactly once: immediately if the policy can satisfy
	// the send right away (broadcast, or a load-balanced pipe is ready),
	// or later once one becomes ready, or with an error if the protocol
	// never accepts sends (e.g. SUB) or a protocol-specific condition
	// applies (e.g. REQ already has a request outstanding).
	Send(ctx Context, msg *message.Message, done SendDone)
	// Recv attempts to produce one message per this protocol's recv
	// policy, invoking done exactly once, immediately or later.
	Recv(ctx Context, done RecvDone)

	// OnSendAck is called when the pipe id has finished writing the frame
	// most recently handed to it via Network.SendTo.
	OnSendAck(ctx Context, id EndpointID)
	// OnRecvAck is called when pipe id has assembled a complete incoming
	// message.
	OnRecvAck(ctx Context, id EndpointID, msg *message.Message)
	// OnSendReady is called when pipe id becomes able to accept a send.
	OnSendReady(ctx Context, id EndpointID)
	// OnRecvReady is called when pipe id becomes able to produce a
	// message (used by protocols whose recv policy spans many pipes, to
	// learn a previously-unready pipe is eligible again).
	OnRecvReady(ctx Context, id EndpointID)

	// OnSendTimeout is called by the Socket when its send-level timeout
	// fires while a Send is still pending; the Protocol must invoke the
	// pending SendDone with ErrTimedOut if it has not already fired, and
	// discard whatever it had queued for that send.
	OnSendTimeout(ctx Context)
	// OnRecvTimeout is the Recv analogue of OnSendTimeout.
	OnRecvTimeout(ctx Context)
	// OnSurveyTimeout fires when a SURVEYOR's collection window elapses;
	// a no-op for every protocol but surveyor.
	OnSurveyTimeout(ctx Context)
	// OnRequestTimeout fires when REQ's resend interval elapses without a
	// matching reply; a no-op for every protocol but req.
	OnRequestTimeout(ctx Context)

	// IsSendReady / IsRecvReady report whether Send / Recv would currently
	// complete without waiting on a future readiness event.
	IsSendReady() bool
	IsRecvReady() bool

	// SetOption applies a socket option. Returns ErrBadOption for unknown
	// names or out-of-range values.
	SetOption(ctx Context, name string, value interface{}) error
	// GetOption reads a socket option previously set (or its default).
	GetOption(name string) (interface{}, error)

	// Close releases any protocol-held resources (pending timers, etc.)
	// The EndpointCollection itself is torn down by the Socket, not here.
	Close(ctx Context)
}

// Option names shared across protocols (spec.md §6).
const (
	OptionSendTimeout       = "send-timeout"
	OptionRecvTimeout       = "recv-timeout"
	OptionSendPriority      = "send-priority"
	OptionRecvPriority      = "recv-priority"
	OptionTCPNoDelay        = "tcp-nodelay"
	OptionDeviceItem        = "device-item"
	OptionSubscribe         = "subscribe"
	OptionUnsubscribe       = "unsubscribe"
	OptionSurveyDeadline    = "survey-deadline"
	OptionRequestResendIvl  = "request-resend-interval"
)

// DefaultPriority is the default send/recv priority, per spec.md §3.
const DefaultPriority = 8

// MinPriority and MaxPriority bound SendPriority/RecvPriority (spec.md §6).
const (
	MinPriority = 1
	MaxPriority = 16
)
