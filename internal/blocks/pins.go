package blocks

import (
	"io"
	"sync"

	"github.com/markusressel/controlbox/internal/cbox"
	"github.com/markusressel/controlbox/internal/codec"
	"github.com/markusressel/controlbox/internal/control"
	"github.com/markusressel/controlbox/internal/ui"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

const (
	DefaultMockPinsChannels = 8
	maxPinChannels          = 32
)

func writeChannels(m *codec.Message, base *control.IoArrayBase, sense func(channel uint8) (control.State, bool)) {
	items := make([]*codec.Message, 0, base.Size())
	for ch := 1; ch <= base.Size(); ch++ {
		channel := uint8(ch)
		item := codec.NewMessage()
		item.SetInt("id", int64(channel))
		item.SetString("config", base.ChannelConfig(channel).String())
		item.SetInt("owner", int64(base.ChannelOwner(channel)))
		if state, ok := sense(channel); ok {
			item.SetString("state", state.String())
		} else {
			item.Strip("state")
		}
		items = append(items, item)
	}
	m.SetList("channels", items)
}

// MockPins is an IoArray without hardware. A channel reads back the level it
// was configured to drive.
type MockPins struct {
	control.IoArrayBase
}

func NewMockPins() *MockPins {
	return &MockPins{IoArrayBase: control.NewIoArrayBase(DefaultMockPinsChannels)}
}

func (b *MockPins) TypeID() cbox.TypeID {
	return MockPinsType
}

func (b *MockPins) SenseChannel(channel uint8) (control.State, bool) {
	switch b.ChannelConfig(channel) {
	case control.ChannelActiveHigh:
		return control.Active, true
	case control.ChannelActiveLow, control.ChannelUnused, control.ChannelInput:
		return control.Inactive, true
	default:
		return control.Unknown, false
	}
}

func (b *MockPins) WriteChannelConfig(channel uint8, config control.ChannelConfig) bool {
	return b.SetChannelConfig(channel, config)
}

func (b *MockPins) SupportsFastIo() bool {
	return true
}

func (b *MockPins) StreamFrom(in io.Reader) error {
	m, err := decode(in)
	if err != nil {
		return err
	}
	if count, ok := m.Int("channelCount"); ok && count > 0 && count <= maxPinChannels && int(count) != b.Size() {
		b.Resize(int(count))
	}
	return nil
}

func (b *MockPins) message(runtime bool) *codec.Message {
	m := codec.NewMessage()
	m.SetInt("channelCount", int64(b.Size()))
	if runtime {
		writeChannels(m, &b.IoArrayBase, b.SenseChannel)
	}
	return m
}

func (b *MockPins) StreamTo(out io.Writer) error {
	return encode(b.message(true), out)
}

func (b *MockPins) StreamPersistedTo(out io.Writer) error {
	return encode(b.message(false), out)
}

func (b *MockPins) Update(now cbox.Ticks) cbox.Ticks {
	return cbox.Never
}

func (b *MockPins) Implements(iface cbox.InterfaceID) any {
	if iface == IfaceIoArray {
		return control.IoArray(b)
	}
	return nil
}

var (
	hostOnce sync.Once
	hostErr  error
)

func initHost() error {
	hostOnce.Do(func() {
		if _, err := host.Init(); err != nil {
			hostErr = err
			ui.Warning("Unable to initialize gpio host drivers: %v", err)
		}
	})
	return hostErr
}

// GpioPins maps channels to host gpio pins by name, for example "GPIO17".
type GpioPins struct {
	control.IoArrayBase
	names []string
	pins  []gpio.PinIO
}

func NewGpioPins() *GpioPins {
	return &GpioPins{}
}

func (b *GpioPins) TypeID() cbox.TypeID {
	return GpioPinsType
}

func (b *GpioPins) pin(channel uint8) gpio.PinIO {
	if !b.ValidChannel(channel) {
		return nil
	}
	return b.pins[channel-1]
}

func (b *GpioPins) SenseChannel(channel uint8) (control.State, bool) {
	pin := b.pin(channel)
	if pin == nil {
		return control.Unknown, false
	}
	if pin.Read() == gpio.High {
		return control.Active, true
	}
	return control.Inactive, true
}

func (b *GpioPins) WriteChannelConfig(channel uint8, config control.ChannelConfig) bool {
	pin := b.pin(channel)
	if pin == nil {
		return false
	}
	var err error
	switch config {
	case control.ChannelActiveHigh:
		err = pin.Out(gpio.High)
	case control.ChannelActiveLow:
		err = pin.Out(gpio.Low)
	case control.ChannelInput, control.ChannelUnused:
		err = pin.In(gpio.PullNoChange, gpio.NoEdge)
	default:
		return false
	}
	if err != nil {
		ui.Warning("Unable to configure gpio %s: %v", pin.Name(), err)
		return false
	}
	return b.SetChannelConfig(channel, config)
}

func (b *GpioPins) SupportsFastIo() bool {
	return false
}

func (b *GpioPins) setPins(names []string) {
	if len(names) > maxPinChannels {
		names = names[:maxPinChannels]
	}
	b.names = names
	b.pins = make([]gpio.PinIO, len(names))
	b.IoArrayBase = control.NewIoArrayBase(len(names))
	if len(names) == 0 || initHost() != nil {
		return
	}
	for i, name := range names {
		b.pins[i] = gpioreg.ByName(name)
		if b.pins[i] == nil {
			ui.Warning("No gpio pin named %s", name)
		}
	}
}

func (b *GpioPins) StreamFrom(in io.Reader) error {
	m, err := decode(in)
	if err != nil {
		return err
	}
	if items, ok := m.List("pins"); ok {
		names := make([]string, 0, len(items))
		for _, item := range items {
			name, _ := item.String("name")
			names = append(names, name)
		}
		b.setPins(names)
	}
	return nil
}

func (b *GpioPins) message(runtime bool) *codec.Message {
	m := codec.NewMessage()
	items := make([]*codec.Message, 0, len(b.names))
	for _, name := range b.names {
		item := codec.NewMessage()
		item.SetString("name", name)
		items = append(items, item)
	}
	m.SetList("pins", items)
	if runtime {
		writeChannels(m, &b.IoArrayBase, b.SenseChannel)
	}
	return m
}

func (b *GpioPins) StreamTo(out io.Writer) error {
	return encode(b.message(true), out)
}

func (b *GpioPins) StreamPersistedTo(out io.Writer) error {
	return encode(b.message(false), out)
}

func (b *GpioPins) Update(now cbox.Ticks) cbox.Ticks {
	return cbox.Never
}

func (b *GpioPins) Implements(iface cbox.InterfaceID) any {
	if iface == IfaceIoArray {
		return control.IoArray(b)
	}
	return nil
}

// Release switches all configured outputs back to inputs.
func (b *GpioPins) Release() {
	for i, pin := range b.pins {
		if pin != nil && b.ChannelConfig(uint8(i+1)) != control.ChannelUnused {
			_ = pin.In(gpio.PullNoChange, gpio.NoEdge)
		}
	}
}
