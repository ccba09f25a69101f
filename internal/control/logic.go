package control

import "github.com/markusressel/controlbox/internal/fp"

const LogicInterval Ticks = 100

type LogicOp uint8

const (
	LogicOr LogicOp = iota
	LogicAnd
	LogicNor
	LogicNand
	LogicXor
)

func (op LogicOp) String() string {
	switch op {
	case LogicOr:
		return "OR"
	case LogicAnd:
		return "AND"
	case LogicNor:
		return "NOR"
	case LogicNand:
		return "NAND"
	case LogicXor:
		return "XOR"
	default:
		return "UNKNOWN"
	}
}

func (op LogicOp) apply(values []bool) bool {
	count := 0
	for _, v := range values {
		if v {
			count++
		}
	}
	switch op {
	case LogicAnd:
		return count == len(values)
	case LogicNor:
		return count == 0
	case LogicNand:
		return count != len(values)
	case LogicXor:
		return count%2 == 1
	default:
		return count > 0
	}
}

type CompareOp uint8

const (
	CompareLessThan CompareOp = iota
	CompareGreaterThan
)

// LogicSection is either a combination of digital actuator states or a
// comparison of a process value against a threshold.
type LogicSection struct {
	Op       LogicOp
	Digitals []Lookup[*ActuatorDigitalConstrained]

	Analog     Lookup[ProcessValue]
	UseSetting bool
	Compare    CompareOp
	Threshold  fp.Value
}

func (s *LogicSection) evaluate() bool {
	if s.Analog != nil {
		pv, ok := s.Analog.get()
		if !ok || pv == nil {
			return false
		}
		value, valid := pv.Value(), pv.ValueValid()
		if s.UseSetting {
			value, valid = pv.Setting(), pv.SettingValid()
		}
		if !valid {
			return false
		}
		if s.Compare == CompareGreaterThan {
			return value > s.Threshold
		}
		return value < s.Threshold
	}

	values := make([]bool, 0, len(s.Digitals))
	for _, lookup := range s.Digitals {
		act, ok := lookup.get()
		values = append(values, ok && act != nil && act.State() == Active)
	}
	return s.Op.apply(values)
}

// ActuatorLogic evaluates its sections left to right and writes the result
// as the desired state of a target actuator.
type ActuatorLogic struct {
	target Lookup[*ActuatorDigitalConstrained]

	Sections  []LogicSection
	CombineOp LogicOp

	enabled bool
	result  bool
	valid   bool
}

func NewActuatorLogic(target Lookup[*ActuatorDigitalConstrained]) *ActuatorLogic {
	return &ActuatorLogic{
		target:  target,
		enabled: true,
	}
}

func (l *ActuatorLogic) SetTarget(target Lookup[*ActuatorDigitalConstrained]) {
	l.target = target
}

func (l *ActuatorLogic) Enabled() bool {
	return l.enabled
}

func (l *ActuatorLogic) SetEnabled(enabled bool) {
	l.enabled = enabled
}

// Result returns the last evaluated result.
func (l *ActuatorLogic) Result() (bool, bool) {
	return l.result, l.valid
}

// Evaluate combines all sections. The first section is OR'd with an
// Inactive base.
func (l *ActuatorLogic) Evaluate() bool {
	result := false
	for i := range l.Sections {
		value := l.Sections[i].evaluate()
		op := l.CombineOp
		if i == 0 {
			op = LogicOr
		}
		result = op.apply([]bool{result, value})
	}
	return result
}

func (l *ActuatorLogic) Update(now Ticks) Ticks {
	l.result = l.Evaluate()
	l.valid = true
	if !l.enabled {
		return now + LogicInterval
	}
	target, ok := l.target.get()
	if !ok || target == nil {
		l.valid = false
		return now + LogicInterval
	}
	state := Inactive
	if l.result {
		state = Active
	}
	target.SetDesiredState(state, now)
	return now + LogicInterval
}
