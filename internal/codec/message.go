// Package codec encodes block payloads as protobuf Struct messages.
//
// A payload is a flat or nested set of named fields. Numbers are carried as
// doubles, fixed point values are converted on the way in and out. Fields
// whose value is currently unknown are left out and their names are listed
// in the "strippedFields" field.
package codec

import (
	"errors"
	"io"
	"math"
	"strings"

	"github.com/markusressel/controlbox/internal/fp"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

const StrippedFieldsKey = "strippedFields"

var (
	ErrDecode = errors.New("unable to decode payload")
	ErrEncode = errors.New("unable to encode payload")
)

type Message struct {
	fields   map[string]*structpb.Value
	stripped []string
}

func NewMessage() *Message {
	return &Message{fields: map[string]*structpb.Value{}}
}

// Decode reads all bytes from r and parses them as a payload. An empty input
// yields an empty message.
func Decode(r io.Reader) (*Message, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, ErrDecode
	}
	return Unmarshal(data)
}

func Unmarshal(data []byte) (*Message, error) {
	s := &structpb.Struct{}
	if len(data) > 0 {
		if err := proto.Unmarshal(data, s); err != nil {
			return nil, ErrDecode
		}
	}
	return fromStruct(s), nil
}

func fromStruct(s *structpb.Struct) *Message {
	m := NewMessage()
	for key, value := range s.GetFields() {
		if key == StrippedFieldsKey {
			for _, v := range value.GetListValue().GetValues() {
				m.stripped = append(m.stripped, v.GetStringValue())
			}
			continue
		}
		m.fields[key] = value
	}
	return m
}

func (m *Message) toStruct() *structpb.Struct {
	fields := make(map[string]*structpb.Value, len(m.fields)+1)
	for key, value := range m.fields {
		fields[key] = value
	}
	if len(m.stripped) > 0 {
		values := make([]*structpb.Value, 0, len(m.stripped))
		for _, name := range m.stripped {
			values = append(values, structpb.NewStringValue(name))
		}
		fields[StrippedFieldsKey] = structpb.NewListValue(&structpb.ListValue{Values: values})
	}
	return &structpb.Struct{Fields: fields}
}

func (m *Message) Marshal() ([]byte, error) {
	data, err := proto.MarshalOptions{Deterministic: true}.Marshal(m.toStruct())
	if err != nil {
		return nil, ErrEncode
	}
	return data, nil
}

func (m *Message) Encode(w io.Writer) error {
	data, err := m.Marshal()
	if err != nil {
		return err
	}
	if _, err = w.Write(data); err != nil {
		return ErrEncode
	}
	return nil
}

// FromMap builds a message from generic data, as found in configuration
// files or JSON documents.
func FromMap(data map[string]interface{}) (*Message, error) {
	s, err := structpb.NewStruct(normalize(data).(map[string]interface{}))
	if err != nil {
		return nil, err
	}
	return fromStruct(s), nil
}

// normalize converts map[interface{}]interface{} (as produced by some yaml
// decoders) into map[string]interface{} recursively.
func normalize(v interface{}) interface{} {
	switch value := v.(type) {
	case map[string]interface{}:
		result := make(map[string]interface{}, len(value))
		for key, item := range value {
			result[key] = normalize(item)
		}
		return result
	case map[interface{}]interface{}:
		result := make(map[string]interface{}, len(value))
		for key, item := range value {
			if s, ok := key.(string); ok {
				result[s] = normalize(item)
			}
		}
		return result
	case []interface{}:
		result := make([]interface{}, len(value))
		for i, item := range value {
			result[i] = normalize(item)
		}
		return result
	default:
		return v
	}
}

// AsMap returns the payload as generic data, including the stripped fields.
func (m *Message) AsMap() map[string]interface{} {
	return m.toStruct().AsMap()
}

func (m *Message) Has(name string) bool {
	_, ok := m.field(name)
	return ok
}

// field looks up a field by name. Names are matched case-insensitively when
// there is no exact match, configuration loaders lowercase map keys.
func (m *Message) field(name string) (*structpb.Value, bool) {
	if v, ok := m.fields[name]; ok {
		return v, true
	}
	for key, v := range m.fields {
		if strings.EqualFold(key, name) {
			return v, true
		}
	}
	return nil, false
}

func (m *Message) Len() int {
	return len(m.fields)
}

func (m *Message) Strip(name string) {
	delete(m.fields, name)
	m.stripped = append(m.stripped, name)
}

func (m *Message) Stripped() []string {
	return m.stripped
}

func (m *Message) SetFloat(name string, value float64) {
	m.fields[name] = structpb.NewNumberValue(value)
}

func (m *Message) SetValue(name string, value fp.Value) {
	m.SetFloat(name, value.Float())
}

// SetValidValue writes value when valid is true and strips the field
// otherwise.
func (m *Message) SetValidValue(name string, value fp.Value, valid bool) {
	if valid {
		m.SetValue(name, value)
	} else {
		m.Strip(name)
	}
}

func (m *Message) SetInt(name string, value int64) {
	m.SetFloat(name, float64(value))
}

func (m *Message) SetBool(name string, value bool) {
	m.fields[name] = structpb.NewBoolValue(value)
}

func (m *Message) SetString(name string, value string) {
	m.fields[name] = structpb.NewStringValue(value)
}

func (m *Message) SetMessage(name string, value *Message) {
	m.fields[name] = structpb.NewStructValue(value.toStruct())
}

func (m *Message) SetList(name string, values []*Message) {
	list := make([]*structpb.Value, 0, len(values))
	for _, value := range values {
		list = append(list, structpb.NewStructValue(value.toStruct()))
	}
	m.fields[name] = structpb.NewListValue(&structpb.ListValue{Values: list})
}

func (m *Message) SetIntList(name string, values []int64) {
	list := make([]*structpb.Value, 0, len(values))
	for _, value := range values {
		list = append(list, structpb.NewNumberValue(float64(value)))
	}
	m.fields[name] = structpb.NewListValue(&structpb.ListValue{Values: list})
}

func (m *Message) number(name string) (float64, bool) {
	v, ok := m.field(name)
	if !ok {
		return 0, false
	}
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, false
	}
	if math.IsNaN(n.NumberValue) || math.IsInf(n.NumberValue, 0) {
		return 0, false
	}
	return n.NumberValue, true
}

func (m *Message) Float(name string) (float64, bool) {
	return m.number(name)
}

func (m *Message) Value(name string) (fp.Value, bool) {
	n, ok := m.number(name)
	if !ok {
		return fp.Zero, false
	}
	return fp.FromFloat(n), true
}

func (m *Message) Int(name string) (int64, bool) {
	n, ok := m.number(name)
	if !ok {
		return 0, false
	}
	return int64(math.Round(n)), true
}

func (m *Message) Bool(name string) (bool, bool) {
	v, ok := m.field(name)
	if !ok {
		return false, false
	}
	b, ok := v.GetKind().(*structpb.Value_BoolValue)
	if !ok {
		return false, false
	}
	return b.BoolValue, true
}

func (m *Message) String(name string) (string, bool) {
	v, ok := m.field(name)
	if !ok {
		return "", false
	}
	s, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", false
	}
	return s.StringValue, true
}

func (m *Message) Message(name string) (*Message, bool) {
	v, ok := m.field(name)
	if !ok {
		return nil, false
	}
	s := v.GetStructValue()
	if s == nil {
		return nil, false
	}
	return fromStruct(s), true
}

// List returns the nested messages of a list field. Non-struct items are
// skipped.
func (m *Message) List(name string) ([]*Message, bool) {
	v, ok := m.field(name)
	if !ok {
		return nil, false
	}
	list := v.GetListValue()
	if list == nil {
		return nil, false
	}
	result := make([]*Message, 0, len(list.GetValues()))
	for _, item := range list.GetValues() {
		if s := item.GetStructValue(); s != nil {
			result = append(result, fromStruct(s))
		}
	}
	return result, true
}

func (m *Message) IntList(name string) ([]int64, bool) {
	v, ok := m.field(name)
	if !ok {
		return nil, false
	}
	list := v.GetListValue()
	if list == nil {
		return nil, false
	}
	result := make([]int64, 0, len(list.GetValues()))
	for _, item := range list.GetValues() {
		if n, ok := item.GetKind().(*structpb.Value_NumberValue); ok {
			result = append(result, int64(math.Round(n.NumberValue)))
		}
	}
	return result, true
}
