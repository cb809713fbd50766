package report

import (
	"net/netip"
	"sync"
)

// Kind names a scan event.
type Kind string

const (
	KindStarted   Kind = "started"
	KindScanning  Kind = "scanning"
	KindOpen      Kind = "open"
	KindCompleted Kind = "completed"
)

// Event is the structured form of one report line.
type Event struct {
	Kind      Kind   `json:"kind" msgpack:"kind"`
	Target    string `json:"target,omitempty" msgpack:"target,omitempty"`
	Port      uint16 `json:"port,omitempty" msgpack:"port,omitempty"`
	StartPort uint16 `json:"start_port,omitempty" msgpack:"start_port,omitempty"`
	EndPort   uint16 `json:"end_port,omitempty" msgpack:"end_port,omitempty"`
}

// Func adapts a function into a Reporter that receives structured events.
// The function may be called concurrently.
type Func func(Event)

func (f Func) Started(target netip.Addr, start, end uint16) {
	f(Event{Kind: KindStarted, Target: target.String(), StartPort: start, EndPort: end})
}

func (f Func) Scanning(port uint16) { f(Event{Kind: KindScanning, Port: port}) }

func (f Func) Open(port uint16) { f(Event{Kind: KindOpen, Port: port}) }

func (f Func) Completed() { f(Event{Kind: KindCompleted}) }

// Recorder keeps every event it receives, in arrival order.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Started(target netip.Addr, start, end uint16) {
	r.add(Event{Kind: KindStarted, Target: target.String(), StartPort: start, EndPort: end})
}

func (r *Recorder) Scanning(port uint16) { r.add(Event{Kind: KindScanning, Port: port}) }

func (r *Recorder) Open(port uint16) { r.add(Event{Kind: KindOpen, Port: port}) }

func (r *Recorder) Completed() { r.add(Event{Kind: KindCompleted}) }

func (r *Recorder) add(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}
