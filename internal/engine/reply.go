package engine

// Control is the decision an Observer returns.
type Control int

const (
	// ControlNone leaves the run going and does not touch Result.ExitRequested.
	ControlNone Control = iota
	ControlContinue
	// ControlStop ends the read loop when returned for IOData.
	ControlStop
)

// PayloadKind tags the value held by a Payload.
type PayloadKind int

const (
	PayloadNone PayloadKind = iota
	PayloadStrings
	PayloadBool
	PayloadInt
	PayloadFloat
)

// Payload is an Observer supplied value delivered back to the caller in the
// Result. The zero value holds nothing.
type Payload struct {
	kind PayloadKind
	strs []string
	b    bool
	i    int64
	f    float64
}

func Strings(s ...string) Payload {
	return Payload{kind: PayloadStrings, strs: append([]string{}, s...)}
}

func Bool(b bool) Payload {
	return Payload{kind: PayloadBool, b: b}
}

func Int(i int64) Payload {
	return Payload{kind: PayloadInt, i: i}
}

func Float(f float64) Payload {
	return Payload{kind: PayloadFloat, f: f}
}

func (p Payload) Kind() PayloadKind {
	return p.kind
}

func (p Payload) IsZero() bool {
	return p.kind == PayloadNone
}

func (p Payload) Strings() ([]string, bool) {
	return p.strs, p.kind == PayloadStrings
}

func (p Payload) Bool() (bool, bool) {
	return p.b, p.kind == PayloadBool
}

func (p Payload) Int() (int64, bool) {
	return p.i, p.kind == PayloadInt
}

func (p Payload) Float() (float64, bool) {
	return p.f, p.kind == PayloadFloat
}

// Reply is what an Observer returns for an event.
type Reply struct {
	Control Control
	Payload Payload
}

// Observer receives every event of a run. It is called synchronously on the
// goroutine executing the run and must not start another run reading the
// same Observation.
type Observer interface {
	Observe(ev Event, obs *Observation) Reply
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ev Event, obs *Observation) Reply

func (f ObserverFunc) Observe(ev Event, obs *Observation) Reply {
	return f(ev, obs)
}
