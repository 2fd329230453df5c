package engine

import "strconv"

// Event is a lifecycle event of a run.
type Event int

const (
	Starting Event = iota
	Started
	StartError
	IOData
	IOEof
	IOError
	ExitRequested
	KillRequested
	Exited
	KillError
)

func (e Event) String() string {
	switch e {
	case Starting:
		return "Starting"
	case Started:
		return "Started"
	case StartError:
		return "StartError"
	case IOData:
		return "IOData"
	case IOEof:
		return "IOEof"
	case IOError:
		return "IOError"
	case ExitRequested:
		return "ExitRequested"
	case KillRequested:
		return "KillRequested"
	case Exited:
		return "Exited"
	case KillError:
		return "KillError"
	default:
		return "Event(" + strconv.Itoa(int(e)) + ")"
	}
}

// Terminal reports whether no other event follows e.
func (e Event) Terminal() bool {
	return e == StartError || e == Exited || e == KillError
}
