package blocks

import (
	"io"

	"github.com/markusressel/controlbox/internal/cbox"
	"github.com/markusressel/controlbox/internal/codec"
	"github.com/markusressel/controlbox/internal/control"
)

const digitalActuatorInterval cbox.Ticks = 100

// DigitalActuator switches one channel of an IoArray block, subject to its
// constraints.
type DigitalActuator struct {
	env      *Env
	hwDevice *cbox.Ptr[control.IoArray]
	digital  *control.ActuatorDigital
	act      *control.ActuatorDigitalConstrained

	// a desired state written through the protocol, applied on the next
	// update because it needs the current time
	pending    control.State
	hasPending bool
}

func NewDigitalActuator(env *Env) *DigitalActuator {
	hwDevice := lookup[control.IoArray](env, IfaceIoArray)
	digital := control.NewActuatorDigital(asLookup(hwDevice), cbox.InvalidID)
	return &DigitalActuator{
		env:      env,
		hwDevice: hwDevice,
		digital:  digital,
		act:      control.NewActuatorDigitalConstrained(control.NewActuatorDigitalChangeLogged(digital)),
	}
}

func (b *DigitalActuator) TypeID() cbox.TypeID {
	return DigitalActuatorType
}

func (b *DigitalActuator) SetObjectID(id cbox.ObjectID) {
	b.digital.SetOwner(id)
}

func (b *DigitalActuator) Actuator() *control.ActuatorDigitalConstrained {
	return b.act
}

func (b *DigitalActuator) StreamFrom(in io.Reader) error {
	m, err := decode(in)
	if err != nil {
		return err
	}
	if id, ok := readID(m, "hwDevice"); ok {
		b.hwDevice.SetID(id)
	}
	if channel, ok := m.Int("channel"); ok && channel >= 0 && channel <= 0xFF {
		b.digital.SetChannel(uint8(channel))
	}
	if invert, ok := m.Bool("invert"); ok {
		b.digital.SetInvert(invert)
	}
	readDigitalConstraints(b.env, m, b.act)
	if state, ok := readState(m, "desiredState"); ok {
		b.pending = state
		b.hasPending = true
	}
	return nil
}

func (b *DigitalActuator) desiredState() control.State {
	if b.hasPending {
		return b.pending
	}
	return b.act.DesiredState()
}

func (b *DigitalActuator) message(runtime bool) *codec.Message {
	m := codec.NewMessage()
	m.SetInt("hwDevice", int64(b.hwDevice.ID()))
	m.SetInt("channel", int64(b.digital.Channel()))
	m.SetBool("invert", b.digital.Invert())
	m.SetString("desiredState", b.desiredState().String())
	writeDigitalConstraints(m, b.act, runtime)
	if runtime {
		m.SetString("state", b.act.State().String())
		m.SetInt("waitRemaining", int64(b.act.WaitRemaining()))
	}
	return m
}

func (b *DigitalActuator) StreamTo(out io.Writer) error {
	return encode(b.message(true), out)
}

func (b *DigitalActuator) StreamPersistedTo(out io.Writer) error {
	return encode(b.message(false), out)
}

func (b *DigitalActuator) Update(now cbox.Ticks) cbox.Ticks {
	if b.hasPending {
		b.hasPending = false
		b.act.SetDesiredState(b.pending, now)
	}
	b.act.Update(now)
	return now + digitalActuatorInterval
}

func (b *DigitalActuator) Implements(iface cbox.InterfaceID) any {
	if iface == IfaceActuatorDigitalConstrained {
		return b.act
	}
	return nil
}

// Release hands back the io channel and mutex locks.
func (b *DigitalActuator) Release() {
	b.act.Release()
}

var (
	logicOpNames   = []string{"OR", "AND", "NOR", "NAND", "XOR"}
	compareOpNames = []string{"lt", "gt"}
)

// ActuatorLogic sets a digital actuator from a combination of the states of
// other actuators and comparisons of process values.
type ActuatorLogic struct {
	env    *Env
	target *cbox.Ptr[*control.ActuatorDigitalConstrained]
	logic  *control.ActuatorLogic

	// ids behind the lookups of each section
	sectionIDs []logicSectionIDs
}

type logicSectionIDs struct {
	digitals []cbox.ObjectID
	analog   cbox.ObjectID
}

func NewActuatorLogic(env *Env) *ActuatorLogic {
	target := lookup[*control.ActuatorDigitalConstrained](env, IfaceActuatorDigitalConstrained)
	return &ActuatorLogic{
		env:    env,
		target: target,
		logic:  control.NewActuatorLogic(asLookup(target)),
	}
}

func (b *ActuatorLogic) TypeID() cbox.TypeID {
	return ActuatorLogicType
}

func (b *ActuatorLogic) StreamFrom(in io.Reader) error {
	m, err := decode(in)
	if err != nil {
		return err
	}
	if id, ok := readID(m, "targetId"); ok {
		b.target.SetID(id)
	}
	readEnabled(m, b.logic)
	if op, ok := readEnum(m, "combineOp", logicOpNames); ok {
		b.logic.CombineOp = control.LogicOp(op)
	}
	if items, ok := m.List("sections"); ok {
		b.readSections(items)
	}
	return nil
}

func (b *ActuatorLogic) readSections(items []*codec.Message) {
	sections := make([]control.LogicSection, 0, len(items))
	ids := make([]logicSectionIDs, 0, len(items))
	for _, item := range items {
		var section control.LogicSection
		var sectionIDs logicSectionIDs
		if op, ok := readEnum(item, "op", logicOpNames); ok {
			section.Op = control.LogicOp(op)
		}
		if id, ok := readID(item, "analogId"); ok && id != cbox.InvalidID {
			ptr := lookup[control.ProcessValue](b.env, IfaceProcessValue)
			ptr.SetID(id)
			section.Analog = asLookup(ptr)
			sectionIDs.analog = id
			if compare, ok := readEnum(item, "compare", compareOpNames); ok {
				section.Compare = control.CompareOp(compare)
			}
			section.Threshold, _ = item.Value("threshold")
			section.UseSetting, _ = item.Bool("useSetting")
		} else if digitals, ok := item.IntList("digitals"); ok {
			for _, id := range digitals {
				ptr := lookup[*control.ActuatorDigitalConstrained](b.env, IfaceActuatorDigitalConstrained)
				ptr.SetID(cbox.ObjectID(id))
				section.Digitals = append(section.Digitals, asLookup(ptr))
				sectionIDs.digitals = append(sectionIDs.digitals, cbox.ObjectID(id))
			}
		}
		sections = append(sections, section)
		ids = append(ids, sectionIDs)
	}
	b.logic.Sections = sections
	b.sectionIDs = ids
}

func (b *ActuatorLogic) message(runtime bool) *codec.Message {
	m := codec.NewMessage()
	m.SetInt("targetId", int64(b.target.ID()))
	m.SetBool("enabled", b.logic.Enabled())
	m.SetString("combineOp", b.logic.CombineOp.String())
	items := make([]*codec.Message, 0, len(b.logic.Sections))
	for i, section := range b.logic.Sections {
		item := codec.NewMessage()
		item.SetString("op", section.Op.String())
		if b.sectionIDs[i].analog != cbox.InvalidID {
			item.SetInt("analogId", int64(b.sectionIDs[i].analog))
			item.SetString("compare", compareOpNames[section.Compare])
			item.SetValue("threshold", section.Threshold)
			item.SetBool("useSetting", section.UseSetting)
		} else {
			digitals := make([]int64, 0, len(b.sectionIDs[i].digitals))
			for _, id := range b.sectionIDs[i].digitals {
				digitals = append(digitals, int64(id))
			}
			item.SetIntList("digitals", digitals)
		}
		items = append(items, item)
	}
	m.SetList("sections", items)
	if runtime {
		result, valid := b.logic.Result()
		if valid {
			m.SetBool("result", result)
		} else {
			m.Strip("result")
		}
	}
	return m
}

func (b *ActuatorLogic) StreamTo(out io.Writer) error {
	return encode(b.message(true), out)
}

func (b *ActuatorLogic) StreamPersistedTo(out io.Writer) error {
	return encode(b.message(false), out)
}

func (b *ActuatorLogic) Update(now cbox.Ticks) cbox.Ticks {
	return b.logic.Update(now)
}

func (b *ActuatorLogic) Implements(iface cbox.InterfaceID) any {
	if iface == IfaceEnabler {
		return Enabler(b.logic)
	}
	return nil
}
