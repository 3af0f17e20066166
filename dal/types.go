package dal

import (
	"strings"
)

type Type string

const (
	StringType   Type = `str`
	AutoType          = `auto`
	BooleanType       = `bool`
	IntType           = `int`
	FloatType         = `float`
	TimeType          = `time`
	ObjectType        = `object`
	ArrayType         = `array`
	ObjectIDType      = `objectid`
	RawType           = `raw`
)

func (self Type) String() string {
	return string(self)
}

// Returns the canonical Type for the given string, or an empty Type if it is not recognized.
func ParseFieldType(in string) Type {
	switch strings.ToLower(in) {
	case `str`, `string`:
		return StringType
	case `auto`:
		return AutoType
	case `bool`, `boolean`:
		return BooleanType
	case `int`, `integer`:
		return IntType
	case `float`, `number`:
		return FloatType
	case `time`, `date`:
		return TimeType
	case `object`, `embedded`:
		return ObjectType
	case `array`, `list`:
		return ArrayType
	case `objectid`, `ref`:
		return ObjectIDType
	case `raw`:
		return RawType
	default:
		return ``
	}
}

// Whether a value of this type can hold several values.
func (self Type) IsArray() bool {
	return self == ArrayType
}
