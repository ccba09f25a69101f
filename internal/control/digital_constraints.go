package control

const (
	orderMinOff uint8 = iota
	orderMinOn
	orderDelayedOn
	orderDelayedOff
	orderMutex
)

// elapsedIn returns for how long the actuator has been in state, or false
// when it is not in that state.
func elapsedIn(state State, now Ticks, act *ActuatorDigitalConstrained) (Ticks, bool) {
	if act.State() != state {
		return 0, false
	}
	start, _, ok := act.Logged().LastStartEndTime(state, now)
	if !ok {
		return 0, false
	}
	return now - start, true
}

func remaining(duration, elapsed Ticks) Ticks {
	if elapsed >= duration {
		return 0
	}
	return duration - elapsed
}

// MinOffTime keeps the actuator Inactive for at least Duration.
type MinOffTime struct {
	Duration Ticks
}

func (c *MinOffTime) Order() uint8 {
	return orderMinOff
}

func (c *MinOffTime) Allowed(newState State, now Ticks, act *ActuatorDigitalConstrained) Ticks {
	if newState != Active {
		return 0
	}
	elapsed, ok := elapsedIn(Inactive, now, act)
	if !ok {
		return 0
	}
	return remaining(c.Duration, elapsed)
}

// MinOnTime keeps the actuator Active for at least Duration.
type MinOnTime struct {
	Duration Ticks
}

func (c *MinOnTime) Order() uint8 {
	return orderMinOn
}

func (c *MinOnTime) Allowed(newState State, now Ticks, act *ActuatorDigitalConstrained) Ticks {
	if newState != Inactive {
		return 0
	}
	elapsed, ok := elapsedIn(Active, now, act)
	if !ok {
		return 0
	}
	return remaining(c.Duration, elapsed)
}

// DelayedOn applies a request for Active only after it was desired for
// Delay.
type DelayedOn struct {
	Delay Ticks
}

func (c *DelayedOn) Order() uint8 {
	return orderDelayedOn
}

func (c *DelayedOn) Allowed(newState State, now Ticks, act *ActuatorDigitalConstrained) Ticks {
	if newState != Active {
		return 0
	}
	return remaining(c.Delay, now-act.DesiredSince())
}

// DelayedOff applies a request for Inactive only after it was desired for
// Delay.
type DelayedOff struct {
	Delay Ticks
}

func (c *DelayedOff) Order() uint8 {
	return orderDelayedOff
}

func (c *DelayedOff) Allowed(newState State, now Ticks, act *ActuatorDigitalConstrained) Ticks {
	if newState != Inactive {
		return 0
	}
	return remaining(c.Delay, now-act.DesiredSince())
}

// Mutex only lets the actuator become Active while it holds a shared
// TimedMutex. The lock is released once the actuator has been Inactive for
// HoldTime.
type Mutex struct {
	Mutex    Lookup[*TimedMutex]
	HoldTime Ticks

	locked *TimedMutex
}

func (c *Mutex) Order() uint8 {
	return orderMutex
}

// HasLock reports whether the actuator currently holds the lock.
func (c *Mutex) HasLock() bool {
	return c.locked != nil
}

func (c *Mutex) Allowed(newState State, now Ticks, act *ActuatorDigitalConstrained) Ticks {
	if newState != Active {
		return 0
	}
	mutex, ok := c.Mutex.get()
	if !ok || mutex == nil {
		return 1
	}
	if c.locked != nil && c.locked != mutex {
		// the mutex object was replaced
		c.locked.Unlock(act, now)
		c.locked = nil
	}
	if mutex.TryLock(act, now) {
		c.locked = mutex
		return 0
	}
	if wait := mutex.WaitRemaining(act, now); wait > 0 {
		return wait
	}
	return 1
}

func (c *Mutex) Update(now Ticks, act *ActuatorDigitalConstrained) {
	if c.locked == nil || act.DesiredState() == Active {
		return
	}
	elapsed, ok := elapsedIn(Inactive, now, act)
	if ok && elapsed >= c.HoldTime {
		c.locked.Unlock(act, now)
		c.locked = nil
	}
}

func (c *Mutex) Release(act *ActuatorDigitalConstrained) {
	if c.locked != nil {
		c.locked.forget(act)
		c.locked = nil
	}
}
