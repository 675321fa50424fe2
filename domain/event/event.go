// Package event defines the realtime events exchanged over a connection.
//
// Chat and the call-signaling variants are client requests addressed to
// another user. Presence and Error are emitted by the server only.
package event

import "realtime-hub/domain"

type Kind string

const (
	ChatKind         Kind = "Chat"
	PresenceKind     Kind = "Status"
	CallOfferKind    Kind = "CallOffer"
	CallAnswerKind   Kind = "CallAnswer"
	IceCandidateKind Kind = "IceCandidate"
	EndCallKind      Kind = "EndCall"
	ErrorKind        Kind = "Error"
)

type RealtimeEvent interface {
	Kind() Kind
}

// Addressed is implemented by every event the router forwards to a single user.
type Addressed interface {
	RealtimeEvent
	Recipient() domain.UserID
}

type Chat struct {
	To      domain.UserID `json:"to_user_id"`
	Content string        `json:"content"`
}

// Presence travels under the "Status" tag, the name web clients already listen for.
type Presence struct {
	Of     domain.UserID `json:"user_id"`
	Online bool          `json:"online"`
}

type CallOffer struct {
	To  domain.UserID `json:"to_user_id"`
	SDP string        `json:"sdp"`
}

type CallAnswer struct {
	To  domain.UserID `json:"to_user_id"`
	SDP string        `json:"sdp"`
}

type IceCandidate struct {
	To        domain.UserID `json:"to_user_id"`
	Candidate string        `json:"candidate"`
}

type EndCall struct {
	To domain.UserID `json:"to_user_id"`
}

type Error struct {
	Message string `json:"message"`
}

func (Chat) Kind() Kind         { return ChatKind }
func (Presence) Kind() Kind     { return PresenceKind }
func (CallOffer) Kind() Kind    { return CallOfferKind }
func (CallAnswer) Kind() Kind   { return CallAnswerKind }
func (IceCandidate) Kind() Kind { return IceCandidateKind }
func (EndCall) Kind() Kind      { return EndCallKind }
func (Error) Kind() Kind        { return ErrorKind }

func (e Chat) Recipient() domain.UserID         { return e.To }
func (e CallOffer) Recipient() domain.UserID    { return e.To }
func (e CallAnswer) Recipient() domain.UserID   { return e.To }
func (e IceCandidate) Recipient() domain.UserID { return e.To }
func (e EndCall) Recipient() domain.UserID      { return e.To }

// IsServerOnly reports whether a client is forbidden from sending this event.
func IsServerOnly(e RealtimeEvent) bool {
	switch e.(type) {
	case Presence, Error:
		return true
	default:
		return false
	}
}

// IsSignal reports whether the event belongs to the call-signaling family.
func IsSignal(e RealtimeEvent) bool {
	switch e.(type) {
	case CallOffer, CallAnswer, IceCandidate, EndCall:
		return true
	default:
		return false
	}
}
