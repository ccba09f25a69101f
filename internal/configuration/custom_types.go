package configuration

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// Optional is a generic container for optional configuration values.
type Optional[T any] struct {
	// Value holds the actual as unmarshalled.
	Value T
	// Present indicates if the value was present in the configuration.
	Present bool
	// RuntimeOverride indicates if the value was overridden at runtime.
	RuntimeOverride bool
}

// Get returns the value if present or overridden, otherwise it returns the provided defaultValue.
func (o *Optional[T]) Get() T {
	return o.Value
}

// SetOverride sets the value and marks it as overridden at runtime.
func (o *Optional[T]) SetOverride(value T) {
	o.RuntimeOverride = true
	o.Value = value
}

// DefaultTrueBool is a boolean type that defaults to true if not present and not overridden.
type DefaultTrueBool struct {
	Optional[bool]
}

// Get returns the boolean value, defaulting to true if not present and not overridden.
func (b *DefaultTrueBool) Get() bool {
	if !b.Present && !b.RuntimeOverride {
		return true
	}
	return b.Value
}

// DefaultTrueBoolHookFunc returns a mapstructure decode hook function for DefaultTrueBool.
func DefaultTrueBoolHookFunc() mapstructure.DecodeHookFuncType {
	return func(
		f reflect.Type,
		t reflect.Type,
		data interface{}) (interface{}, error) {

		// Only target our specific named type
		if t != reflect.TypeOf(DefaultTrueBool{}) {
			return data, nil
		}

		var val bool
		switch v := data.(type) {
		case bool:
			val = v
		case string:
			parsed, err := strconv.ParseBool(v)
			if err != nil {
				return data, nil
			}
			val = parsed
		default:
			return data, nil
		}

		// Return the specific type with the inner Optional initialized
		return DefaultTrueBool{
			Optional: Optional[bool]{
				Value:   val,
				Present: true,
			},
		}, nil
	}
}

// GroupMask is a set of object groups. In configuration files it is written
// either as a list of group numbers (0..7) or as a mask.
type GroupMask uint8

// Groups returns the group numbers contained in the mask.
func (m GroupMask) Groups() []int {
	var groups []int
	for n := 0; n < 8; n++ {
		if m&(1<<n) != 0 {
			groups = append(groups, n)
		}
	}
	return groups
}

// GroupMaskHookFunc returns a mapstructure decode hook function for
// GroupMask.
func GroupMaskHookFunc() mapstructure.DecodeHookFuncType {
	maskType := reflect.TypeOf(GroupMask(0))

	return func(
		f reflect.Type,
		t reflect.Type,
		data interface{}) (interface{}, error) {

		if t != maskType {
			return data, nil
		}

		value := reflect.ValueOf(data)
		switch value.Kind() {
		case reflect.Slice, reflect.Array:
			var mask GroupMask
			for i := 0; i < value.Len(); i++ {
				n, err := anyToInt(value.Index(i).Interface())
				if err != nil {
					return nil, fmt.Errorf("invalid group %v: %w", value.Index(i).Interface(), err)
				}
				if n < 0 || n > 7 {
					return nil, fmt.Errorf("invalid group %d, must be in 0..7", n)
				}
				mask |= 1 << n
			}
			return mask, nil
		case reflect.String:
			s := strings.TrimSpace(value.String())
			if strings.Contains(s, ",") {
				var mask GroupMask
				for _, item := range strings.Split(s, ",") {
					n, err := strconv.Atoi(strings.TrimSpace(item))
					if err != nil || n < 0 || n > 7 {
						return nil, fmt.Errorf("invalid group %q, must be in 0..7", item)
					}
					mask |= 1 << n
				}
				return mask, nil
			}
			n, err := strconv.ParseUint(s, 0, 8)
			if err != nil {
				return nil, fmt.Errorf("invalid group mask %q: %w", s, err)
			}
			return GroupMask(n), nil
		default:
			n, err := anyToInt(data)
			if err != nil {
				return data, nil
			}
			if n < 0 || n > 0xFF {
				return nil, fmt.Errorf("invalid group mask %d", n)
			}
			return GroupMask(n), nil
		}
	}
}

// anyToInt converts numeric and string values to int.
func anyToInt(v interface{}) (int, error) {
	switch val := v.(type) {
	case int:
		return val, nil
	case int64:
		return int(val), nil
	case int32:
		return int(val), nil
	case uint8:
		return int(val), nil
	case uint64:
		return int(val), nil
	case float64:
		return int(val), nil
	case string:
		n, err := strconv.Atoi(val)
		if err != nil {
			return 0, fmt.Errorf("cannot parse %q as int: %w", val, err)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("cannot convert %T to int", v)
	}
}
