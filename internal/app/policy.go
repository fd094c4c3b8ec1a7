package app

import "github.com/dkeye/Huddle/internal/core"

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	KickMember
	DropFrame
)

// Policy decides what happens to a member whose send queue is full.
type Policy interface {
	OnBackPressure(member core.Member) BackpressureAction
}

type DropPolicy struct{}

func (DropPolicy) OnBackPressure(core.Member) BackpressureAction {
	return DropFrame
}

type KickPolicy struct{}

func (KickPolicy) OnBackPressure(core.Member) BackpressureAction {
	return KickMember
}

// PolicyFor maps the hub.slow_consumer setting to a Policy.
func PolicyFor(name string) Policy {
	if name == "kick" {
		return KickPolicy{}
	}
	return DropPolicy{}
}
