package control

// TimedMutex is a cooperative single owner lock. After it was released by
// one actuator, other actuators have to wait DifferentActuatorWait before
// they can lock it. It is not a synchronization primitive.
type TimedMutex struct {
	DifferentActuatorWait Ticks

	holder       *ActuatorDigitalConstrained
	lastHolder   *ActuatorDigitalConstrained
	lastReleased Ticks
}

func NewTimedMutex() *TimedMutex {
	return &TimedMutex{}
}

// TryLock locks the mutex for owner. It succeeds when owner already holds
// the lock.
func (m *TimedMutex) TryLock(owner *ActuatorDigitalConstrained, now Ticks) bool {
	if m.holder == owner {
		return true
	}
	if m.holder != nil {
		return false
	}
	if m.lastHolder != nil && m.lastHolder != owner && now-m.lastReleased < m.DifferentActuatorWait {
		return false
	}
	m.holder = owner
	return true
}

func (m *TimedMutex) Unlock(owner *ActuatorDigitalConstrained, now Ticks) {
	if m.holder != owner {
		return
	}
	m.holder = nil
	m.lastHolder = owner
	m.lastReleased = now
}

// forget drops the lock of an owner that is going away, without making
// others wait.
func (m *TimedMutex) forget(owner *ActuatorDigitalConstrained) {
	if m.holder == owner {
		m.holder = nil
	}
	if m.lastHolder == owner {
		m.lastHolder = nil
	}
}

func (m *TimedMutex) Locked() bool {
	return m.holder != nil
}

func (m *TimedMutex) HeldBy(owner *ActuatorDigitalConstrained) bool {
	return m.holder != nil && m.holder == owner
}

// WaitRemaining returns how long owner still has to wait because another
// actuator released the lock recently. It returns 0 when the wait is
// unknown or over.
func (m *TimedMutex) WaitRemaining(owner *ActuatorDigitalConstrained, now Ticks) Ticks {
	if m.holder != nil || m.lastHolder == nil || m.lastHolder == owner {
		return 0
	}
	return remaining(m.DifferentActuatorWait, now-m.lastReleased)
}
