package actor

// Readiness tracks startup gating: the user program runs once, after both
// the bus and the timer subsystem have been announced.
type Readiness struct {
	Bus    bool
	Timers bool
	Ran    bool
}

// Next applies msg and reports whether the program must run now. Once Ran
// is set it stays set, so repeated readiness messages never re-trigger it.
func (r Readiness) Next(msg Message) (Readiness, bool) {
	switch msg.(type) {
	case BusReady:
		r.Bus = true
	case TimersReady:
		r.Timers = true
	}
	if r.Bus && r.Timers && !r.Ran {
		r.Ran = true
		return r, true
	}
	return r, false
}
