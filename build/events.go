package build

import "github.com/wippyai/ccbuild/process"

// EventType identifies a step in a build's lifecycle.
type EventType uint8

const (
	UnitStarted EventType = iota
	UnitFinished
	UnitFailed
	ArchiveStarted
	ArchiveFinished
)

func (t EventType) String() string {
	switch t {
	case UnitStarted:
		return "unit-started"
	case UnitFinished:
		return "unit-finished"
	case UnitFailed:
		return "unit-failed"
	case ArchiveStarted:
		return "archive-started"
	case ArchiveFinished:
		return "archive-finished"
	default:
		return "unknown"
	}
}

// Event describes one lifecycle step. Index is the unit's input position;
// archive events carry the library path in Object.
type Event struct {
	Command *process.Command
	Err     error
	Source  string
	Object  string
	Index   int
	Total   int
	Type    EventType
}

// Observer receives build events. Events are delivered from a single
// goroutine, in the order the coordinator sees them.
type Observer interface {
	OnBuildEvent(Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Event)

func (f ObserverFunc) OnBuildEvent(e Event) {
	f(e)
}
