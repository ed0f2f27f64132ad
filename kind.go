package denorm

import (
	"fmt"
	"strings"
)

// Kind identifies the aggregate function a descriptor maintains.
type Kind uint8

const (
	KindCount Kind = iota + 1
	KindSum
	KindMin
	KindMax
)

func (k Kind) String() string {
	switch k {
	case KindCount:
		return "count"
	case KindSum:
		return "sum"
	case KindMin:
		return "min"
	case KindMax:
		return "max"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// NeedsSource reports whether the kind aggregates a child column value.
// Count is insensitive to source values.
func (k Kind) NeedsSource() bool {
	return k == KindSum || k == KindMin || k == KindMax
}

// ParseKind parses a textual kind name (count, sum, min, max).
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "count":
		return KindCount, nil
	case "sum":
		return KindSum, nil
	case "min":
		return KindMin, nil
	case "max":
		return KindMax, nil
	default:
		return 0, NewError(CodeConfig, "denorm.kind", fmt.Sprintf("unsupported aggregate kind %q", s), nil)
	}
}

// UnmarshalText implements encoding.TextUnmarshaler so Kind can be used
// directly in YAML/JSON configuration.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if k < KindCount || k > KindMax {
		return nil, NewError(CodeConfig, "denorm.kind", fmt.Sprintf("unsupported aggregate kind %d", uint8(k)), nil)
	}
	return []byte(k.String()), nil
}
