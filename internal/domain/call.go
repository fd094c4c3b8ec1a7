package domain

import "time"

type CallState string

const (
	CallRinging   CallState = "ringing"
	CallConnected CallState = "connected"
	CallEnded     CallState = "ended"
	CallTimeout   CallState = "timeout"
)

// CallSession is kept in memory only while ring tracking is enabled.
type CallSession struct {
	ID        string    `json:"callId"`
	Caller    UserID    `json:"caller"`
	Callee    UserID    `json:"callee"`
	RoomID    RoomID    `json:"roomId"`
	State     CallState `json:"state"`
	StartedAt time.Time `json:"startedAt"`
}
