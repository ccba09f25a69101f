package control

import "github.com/markusressel/controlbox/internal/cbox"

type ChannelConfig uint8

const (
	ChannelUnused ChannelConfig = iota
	ChannelActiveHigh
	ChannelActiveLow
	ChannelInput
	ChannelUnknown
)

func (c ChannelConfig) String() string {
	switch c {
	case ChannelUnused:
		return "Unused"
	case ChannelActiveHigh:
		return "ActiveHigh"
	case ChannelActiveLow:
		return "ActiveLow"
	case ChannelInput:
		return "Input"
	default:
		return "Unknown"
	}
}

// IoArray is a bank of numbered digital channels. Channel numbers start at 1,
// 0 means "no channel".
type IoArray interface {
	// SenseChannel returns the level of a channel, Active meaning high.
	SenseChannel(channel uint8) (State, bool)
	WriteChannelConfig(channel uint8, config ChannelConfig) bool
	// ClaimChannel reserves a channel for owner. It fails when the channel is
	// claimed by another owner.
	ClaimChannel(channel uint8, owner cbox.ObjectID) bool
	ReleaseChannel(channel uint8, owner cbox.ObjectID)
	// SupportsFastIo reports whether channels can be toggled between update
	// ticks.
	SupportsFastIo() bool
}

type ioChannel struct {
	config ChannelConfig
	owner  cbox.ObjectID
}

// IoArrayBase keeps channel configs and claims. Hardware implementations
// embed it and add SenseChannel and WriteChannelConfig.
type IoArrayBase struct {
	channels []ioChannel
}

func NewIoArrayBase(size int) IoArrayBase {
	return IoArrayBase{channels: make([]ioChannel, size)}
}

// Resize changes the number of channels. Channels that remain keep their
// config and claim.
func (a *IoArrayBase) Resize(size int) {
	channels := make([]ioChannel, size)
	copy(channels, a.channels)
	a.channels = channels
}

func (a *IoArrayBase) Size() int {
	return len(a.channels)
}

func (a *IoArrayBase) ValidChannel(channel uint8) bool {
	return channel > 0 && int(channel) <= len(a.channels)
}

func (a *IoArrayBase) ChannelConfig(channel uint8) ChannelConfig {
	if !a.ValidChannel(channel) {
		return ChannelUnknown
	}
	return a.channels[channel-1].config
}

// SetChannelConfig records the config of a channel.
func (a *IoArrayBase) SetChannelConfig(channel uint8, config ChannelConfig) bool {
	if !a.ValidChannel(channel) {
		return false
	}
	a.channels[channel-1].config = config
	return true
}

func (a *IoArrayBase) ClaimChannel(channel uint8, owner cbox.ObjectID) bool {
	if !a.ValidChannel(channel) || owner == cbox.InvalidID {
		return false
	}
	ch := &a.channels[channel-1]
	if ch.owner != cbox.InvalidID && ch.owner != owner {
		return false
	}
	ch.owner = owner
	return true
}

func (a *IoArrayBase) ReleaseChannel(channel uint8, owner cbox.ObjectID) {
	if !a.ValidChannel(channel) {
		return
	}
	ch := &a.channels[channel-1]
	if ch.owner == owner {
		ch.owner = cbox.InvalidID
		ch.config = ChannelUnused
	}
}

// ChannelOwner returns the id of the object that claimed a channel.
func (a *IoArrayBase) ChannelOwner(channel uint8) cbox.ObjectID {
	if !a.ValidChannel(channel) {
		return cbox.InvalidID
	}
	return a.channels[channel-1].owner
}
