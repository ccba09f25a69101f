package blocks

import (
	"io"
	"runtime"

	"github.com/markusressel/controlbox/internal/cbox"
	"github.com/markusressel/controlbox/internal/codec"
	"github.com/markusressel/controlbox/internal/ui"
)

// Groups holds the active groups of the container. The system group is
// always active and not listed.
type Groups struct {
	env    *Env
	groups cbox.Groups
}

func NewGroups(env *Env) *Groups {
	return &Groups{env: env, groups: 0x01}
}

func (b *Groups) TypeID() cbox.TypeID {
	return GroupsType
}

// GroupsFromList converts group numbers 0..7 to a mask.
func GroupsFromList(numbers []int64) cbox.Groups {
	var groups cbox.Groups
	for _, n := range numbers {
		if n >= 0 && n < 8 {
			groups |= 1 << n
		}
	}
	return groups
}

// GroupsToList converts a mask to group numbers, leaving out the system
// group.
func GroupsToList(groups cbox.Groups) []int64 {
	numbers := make([]int64, 0, 8)
	for n := 0; n < 7; n++ {
		if groups&(1<<n) != 0 {
			numbers = append(numbers, int64(n))
		}
	}
	return numbers
}

func (b *Groups) active() cbox.Groups {
	if b.env != nil && b.env.Groups != nil {
		return b.env.Groups.ActiveGroups()
	}
	return b.groups
}

func (b *Groups) StreamFrom(in io.Reader) error {
	m, err := decode(in)
	if err != nil {
		return err
	}
	numbers, ok := m.IntList("activeGroups")
	if !ok {
		return nil
	}
	b.groups = GroupsFromList(numbers) | cbox.SystemGroup
	if b.env != nil && b.env.Groups != nil {
		if err := b.env.Groups.SetActiveGroups(b.groups); err != nil {
			ui.Warning("Some objects could not be activated: %v", err)
		}
	}
	return nil
}

func (b *Groups) message() *codec.Message {
	m := codec.NewMessage()
	m.SetIntList("activeGroups", GroupsToList(b.active()))
	return m
}

func (b *Groups) StreamTo(out io.Writer) error {
	return encode(b.message(), out)
}

func (b *Groups) StreamPersistedTo(out io.Writer) error {
	return encode(b.message(), out)
}

func (b *Groups) Update(now cbox.Ticks) cbox.Ticks {
	return cbox.Never
}

func (b *Groups) Implements(iface cbox.InterfaceID) any {
	return nil
}

// SysInfo describes the device. It is read only.
type SysInfo struct {
	env *Env
}

func NewSysInfo(env *Env) *SysInfo {
	return &SysInfo{env: env}
}

func (b *SysInfo) TypeID() cbox.TypeID {
	return SysInfoType
}

func (b *SysInfo) StreamFrom(in io.Reader) error {
	_, err := decode(in)
	return err
}

func (b *SysInfo) StreamTo(out io.Writer) error {
	m := codec.NewMessage()
	if b.env != nil {
		m.SetString("deviceId", b.env.DeviceID)
		m.SetString("version", b.env.Version)
	}
	m.SetString("platform", runtime.GOOS+"/"+runtime.GOARCH)
	return encode(m, out)
}

func (b *SysInfo) StreamPersistedTo(out io.Writer) error {
	return cbox.ErrPersistingNotNeeded
}

func (b *SysInfo) Update(now cbox.Ticks) cbox.Ticks {
	return cbox.Never
}

func (b *SysInfo) Implements(iface cbox.InterfaceID) any {
	return nil
}

// Ticks exposes the uptime and keeps the device UTC time. The time is
// unknown (0) until it is written.
type Ticks struct {
	now     cbox.Ticks
	utcBase int64
	baseAt  cbox.Ticks
}

func NewTicks() *Ticks {
	return &Ticks{}
}

func (b *Ticks) TypeID() cbox.TypeID {
	return TicksType
}

// UtcSeconds returns the current device time in seconds since the epoch, or
// 0 when it was never set.
func (b *Ticks) UtcSeconds() int64 {
	if b.utcBase == 0 {
		return 0
	}
	return b.utcBase + int64((b.now-b.baseAt)/cbox.Second)
}

func (b *Ticks) SetUtcSeconds(seconds int64) {
	b.utcBase = seconds
	b.baseAt = b.now
}

func (b *Ticks) StreamFrom(in io.Reader) error {
	m, err := decode(in)
	if err != nil {
		return err
	}
	if seconds, ok := m.Int("secondsSinceEpoch"); ok && seconds >= 0 {
		b.SetUtcSeconds(seconds)
	}
	return nil
}

func (b *Ticks) StreamTo(out io.Writer) error {
	m := codec.NewMessage()
	m.SetInt("millisSinceBoot", int64(b.now))
	if utc := b.UtcSeconds(); utc != 0 {
		m.SetInt("secondsSinceEpoch", utc)
	} else {
		m.Strip("secondsSinceEpoch")
	}
	return encode(m, out)
}

func (b *Ticks) StreamPersistedTo(out io.Writer) error {
	return cbox.ErrPersistingNotNeeded
}

func (b *Ticks) Update(now cbox.Ticks) cbox.Ticks {
	b.now = now
	return now
}

func (b *Ticks) Implements(iface cbox.InterfaceID) any {
	if iface == IfaceUtcSource {
		return b
	}
	return nil
}
