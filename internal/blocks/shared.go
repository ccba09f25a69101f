package blocks

import (
	"io"

	"github.com/markusressel/controlbox/internal/cbox"
	"github.com/markusressel/controlbox/internal/codec"
	"github.com/markusressel/controlbox/internal/control"
)

// Balancer shares a budget between the actuators that have a balanced
// constraint referring to it.
type Balancer struct {
	balancer *control.Balancer
}

func NewBalancer() *Balancer {
	return &Balancer{balancer: control.NewBalancer()}
}

func (b *Balancer) TypeID() cbox.TypeID {
	return BalancerType
}

func (b *Balancer) StreamFrom(in io.Reader) error {
	m, err := decode(in)
	if err != nil {
		return err
	}
	if available, ok := m.Value("available"); ok && available >= 0 {
		b.balancer.Available = available
	}
	return nil
}

func (b *Balancer) message(runtime bool) *codec.Message {
	m := codec.NewMessage()
	m.SetValue("available", b.balancer.Available)
	if runtime {
		clients := b.balancer.Clients()
		items := make([]*codec.Message, 0, len(clients))
		for _, client := range clients {
			item := codec.NewMessage()
			item.SetInt("id", int64(client.ID))
			item.SetValue("requested", client.Requested)
			item.SetValue("granted", client.Granted)
			items = append(items, item)
		}
		m.SetList("clients", items)
	}
	return m
}

func (b *Balancer) StreamTo(out io.Writer) error {
	return encode(b.message(true), out)
}

func (b *Balancer) StreamPersistedTo(out io.Writer) error {
	return encode(b.message(false), out)
}

func (b *Balancer) Update(now cbox.Ticks) cbox.Ticks {
	b.balancer.Update()
	return now + cbox.Second
}

func (b *Balancer) Implements(iface cbox.InterfaceID) any {
	if iface == IfaceBalancer {
		return b.balancer
	}
	return nil
}

// Mutex lets only one of the digital actuators referring to it be active.
type Mutex struct {
	mutex *control.TimedMutex
}

func NewMutex() *Mutex {
	return &Mutex{mutex: control.NewTimedMutex()}
}

func (b *Mutex) TypeID() cbox.TypeID {
	return MutexType
}

func (b *Mutex) StreamFrom(in io.Reader) error {
	m, err := decode(in)
	if err != nil {
		return err
	}
	if wait, ok := readTicks(m, "differentActuatorWait"); ok {
		b.mutex.DifferentActuatorWait = wait
	}
	return nil
}

func (b *Mutex) message(runtime bool) *codec.Message {
	m := codec.NewMessage()
	m.SetInt("differentActuatorWait", int64(b.mutex.DifferentActuatorWait))
	if runtime {
		m.SetBool("locked", b.mutex.Locked())
	}
	return m
}

func (b *Mutex) StreamTo(out io.Writer) error {
	return encode(b.message(true), out)
}

func (b *Mutex) StreamPersistedTo(out io.Writer) error {
	return encode(b.message(false), out)
}

func (b *Mutex) Update(now cbox.Ticks) cbox.Ticks {
	return cbox.Never
}

func (b *Mutex) Implements(iface cbox.InterfaceID) any {
	if iface == IfaceTimedMutex {
		return b.mutex
	}
	return nil
}
