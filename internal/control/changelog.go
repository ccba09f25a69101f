package control

const historySize = 5

type stateChange struct {
	state     State
	startTime Ticks
}

// Durations describes the two most recent activation periods. A period
// starts when the actuator becomes Active and ends when it becomes Active
// again.
type Durations struct {
	CurrentActive  Ticks
	CurrentPeriod  Ticks
	PreviousActive Ticks
	PreviousPeriod Ticks
}

// ActuatorDigitalChangeLogged records the last state transitions of an
// ActuatorDigital. The history has an odd length, so when toggling the
// oldest entry has the same state as the newest.
type ActuatorDigitalChangeLogged struct {
	digital *ActuatorDigital
	history [historySize]stateChange
}

func NewActuatorDigitalChangeLogged(digital *ActuatorDigital) *ActuatorDigitalChangeLogged {
	a := &ActuatorDigitalChangeLogged{digital: digital}
	for i := range a.history {
		a.history[i] = stateChange{state: Unknown}
	}
	return a
}

func (a *ActuatorDigitalChangeLogged) Digital() *ActuatorDigital {
	return a.digital
}

// State returns the last logged state.
func (a *ActuatorDigitalChangeLogged) State() State {
	return a.history[0].state
}

// SetState writes state to the actuator and logs the change.
func (a *ActuatorDigitalChangeLogged) SetState(state State, now Ticks) bool {
	ok := a.digital.SetState(state)
	a.Update(now)
	return ok
}

// Update logs a change of the sensed state, also when it was not caused by
// SetState.
func (a *ActuatorDigitalChangeLogged) Update(now Ticks) {
	state := a.digital.State()
	if state == a.history[0].state {
		return
	}
	copy(a.history[1:], a.history[:historySize-1])
	a.history[0] = stateChange{state: state, startTime: now}
}

func (a *ActuatorDigitalChangeLogged) entryEnd(i int, now Ticks) Ticks {
	if i == 0 {
		return now
	}
	return a.history[i-1].startTime
}

func (a *ActuatorDigitalChangeLogged) indexOf(state State, from int) int {
	for i := from; i < historySize; i++ {
		if a.history[i].state == state {
			return i
		}
	}
	return -1
}

// LastStartEndTime returns the start and end of the most recent period in
// which the actuator was in state. The end is now when it still is.
func (a *ActuatorDigitalChangeLogged) LastStartEndTime(state State, now Ticks) (start Ticks, end Ticks, ok bool) {
	i := a.indexOf(state, 0)
	if i < 0 {
		return 0, 0, false
	}
	return a.history[i].startTime, a.entryEnd(i, now), true
}

// ActiveDurations returns the active time and the period length of the
// current and the previous cycle.
func (a *ActuatorDigitalChangeLogged) ActiveDurations(now Ticks) Durations {
	var d Durations
	current := a.indexOf(Active, 0)
	if current < 0 {
		return d
	}
	start := a.history[current].startTime
	d.CurrentActive = a.entryEnd(current, now) - start
	d.CurrentPeriod = now - start

	previous := a.indexOf(Active, current+1)
	if previous < 0 {
		return d
	}
	d.PreviousActive = a.entryEnd(previous, now) - a.history[previous].startTime
	d.PreviousPeriod = start - a.history[previous].startTime
	return d
}
