package blocks

import (
	"io"

	"github.com/markusressel/controlbox/internal/cbox"
	"github.com/markusressel/controlbox/internal/codec"
	"github.com/markusressel/controlbox/internal/control"
)

type Pid struct {
	input  *cbox.Ptr[control.PidInput]
	output *cbox.Ptr[control.ProcessValue]
	pid    *control.Pid
}

func NewPid(env *Env) *Pid {
	input := lookup[control.PidInput](env, IfacePidInput)
	output := lookup[control.ProcessValue](env, IfaceProcessValue)
	return &Pid{
		input:  input,
		output: output,
		pid:    control.NewPid(asLookup(input), asLookup(output)),
	}
}

func (b *Pid) TypeID() cbox.TypeID {
	return PidType
}

func (b *Pid) Pid() *control.Pid {
	return b.pid
}

func (b *Pid) StreamFrom(in io.Reader) error {
	m, err := decode(in)
	if err != nil {
		return err
	}
	if id, ok := readID(m, "inputId"); ok {
		b.input.SetID(id)
	}
	if id, ok := readID(m, "outputId"); ok {
		b.output.SetID(id)
	}
	if kp, ok := m.Value("kp"); ok {
		b.pid.Kp = kp
	}
	if ti, ok := m.Int("ti"); ok && ti >= 0 {
		b.pid.Ti = ti
	}
	if td, ok := m.Int("td"); ok && td >= 0 {
		b.pid.Td = td
	}
	if v, ok := m.Value("boilPointAdjust"); ok {
		b.pid.BoilPointAdjust = v
	}
	if v, ok := m.Value("boilMinOutput"); ok {
		b.pid.BoilMinOutput = v
	}
	readEnabled(m, b.pid)
	// applied last, the integral depends on kp and ti
	if v, ok := m.Value("integralReset"); ok {
		b.pid.SetIntegral(v)
	}
	return nil
}

func (b *Pid) message(runtime bool) *codec.Message {
	m := codec.NewMessage()
	m.SetInt("inputId", int64(b.input.ID()))
	m.SetInt("outputId", int64(b.output.ID()))
	m.SetValue("kp", b.pid.Kp)
	m.SetInt("ti", b.pid.Ti)
	m.SetInt("td", b.pid.Td)
	m.SetValue("boilPointAdjust", b.pid.BoilPointAdjust)
	m.SetValue("boilMinOutput", b.pid.BoilMinOutput)
	m.SetBool("enabled", b.pid.Enabled())
	if !runtime {
		return m
	}
	active := b.pid.Active()
	m.SetBool("active", active)
	m.SetBool("boilModeActive", b.pid.BoilModeActive())
	m.SetValidValue("inputSetting", b.pid.InputSetting(), active)
	m.SetValidValue("inputValue", b.pid.InputValue(), active)
	m.SetValidValue("outputSetting", b.pid.OutputValue(), active)
	m.SetValue("error", b.pid.Error())
	m.SetFloat("integral", b.pid.Integral().Float())
	m.SetValue("derivative", b.pid.Derivative())
	m.SetValue("p", b.pid.P())
	m.SetValue("i", b.pid.I())
	m.SetValue("d", b.pid.D())
	return m
}

func (b *Pid) StreamTo(out io.Writer) error {
	return encode(b.message(true), out)
}

func (b *Pid) StreamPersistedTo(out io.Writer) error {
	return encode(b.message(false), out)
}

func (b *Pid) Update(now cbox.Ticks) cbox.Ticks {
	return b.pid.Update(now)
}

func (b *Pid) Implements(iface cbox.InterfaceID) any {
	if iface == IfaceEnabler {
		return Enabler(b.pid)
	}
	return nil
}
