package control

import "github.com/markusressel/controlbox/internal/cbox"

// ActuatorDigital drives one channel of an IoArray.
type ActuatorDigital struct {
	hwDevice Lookup[IoArray]
	owner    cbox.ObjectID
	channel  uint8
	invert   bool

	claimedDevice  IoArray
	claimedChannel uint8
}

// NewActuatorDigital creates an actuator that claims its channel on behalf
// of owner.
func NewActuatorDigital(hwDevice Lookup[IoArray], owner cbox.ObjectID) *ActuatorDigital {
	return &ActuatorDigital{
		hwDevice: hwDevice,
		owner:    owner,
	}
}

// SetOwner changes the id channels are claimed for. A held claim is
// released first.
func (a *ActuatorDigital) SetOwner(owner cbox.ObjectID) {
	if owner == a.owner {
		return
	}
	a.Release()
	a.owner = owner
}

func (a *ActuatorDigital) SetHwDevice(hwDevice Lookup[IoArray]) {
	a.hwDevice = hwDevice
}

func (a *ActuatorDigital) Channel() uint8 {
	return a.channel
}

func (a *ActuatorDigital) SetChannel(channel uint8) {
	a.channel = channel
}

func (a *ActuatorDigital) Invert() bool {
	return a.invert
}

func (a *ActuatorDigital) SetInvert(invert bool) {
	a.invert = invert
}

// claim makes sure the configured channel is claimed on the current device.
func (a *ActuatorDigital) claim() (IoArray, bool) {
	device, ok := a.hwDevice.get()
	if !ok || device == nil || a.channel == 0 {
		a.Release()
		return nil, false
	}
	if a.claimedDevice == device && a.claimedChannel == a.channel {
		return device, true
	}
	a.Release()
	if !device.ClaimChannel(a.channel, a.owner) {
		return nil, false
	}
	a.claimedDevice = device
	a.claimedChannel = a.channel
	return device, true
}

// Release hands the claimed channel back to the device.
func (a *ActuatorDigital) Release() {
	if a.claimedDevice != nil {
		a.claimedDevice.ReleaseChannel(a.claimedChannel, a.owner)
	}
	a.claimedDevice = nil
	a.claimedChannel = 0
}

// State returns the current logical state, Unknown when the device or
// channel is not available.
func (a *ActuatorDigital) State() State {
	device, ok := a.claim()
	if !ok {
		return Unknown
	}
	level, ok := device.SenseChannel(a.channel)
	if !ok {
		return Unknown
	}
	if a.invert {
		return level.Invert()
	}
	return level
}

// SetState writes a logical state to the channel.
func (a *ActuatorDigital) SetState(state State) bool {
	if state == Unknown {
		return false
	}
	device, ok := a.claim()
	if !ok {
		return false
	}
	config := ChannelActiveLow
	if (state == Active) != a.invert {
		config = ChannelActiveHigh
	}
	return device.WriteChannelConfig(a.channel, config)
}
