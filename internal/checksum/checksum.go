// Package checksum fingerprints JSON-representable values. The digest is
// invariant to map key order at every nesting depth, sensitive to array
// element order and to value content, and is the sole input to the job
// detail change-detection protocol.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
)

// MaxSafeInt is the largest integer magnitude representable exactly as a
// JSON number. Integers beyond it are rejected rather than silently
// truncated.
const MaxSafeInt = 1<<53 - 1

// Value is a sealed sum type over the JSON-representable values the codec
// accepts: Null, Bool, Number, String, Array, Map. Nothing else implements
// it.
type Value interface {
	value()
}

// Null is the JSON null value.
type Null struct{}

// Bool is a JSON boolean.
type Bool bool

// Number is a JSON number. Integers within ±MaxSafeInt convert losslessly.
type Number float64

// String is a JSON string.
type String string

// Array is an ordered JSON array. Element order is significant.
type Array []Value

// Map is a JSON object. Key order is canonicalized away before hashing.
type Map map[string]Value

func (Null) value()   {}
func (Bool) value()   {}
func (Number) value() {}
func (String) value() {}
func (Array) value()  {}
func (Map) value()    {}

// FromAny converts a plain Go value (as produced by encoding/json or built
// by hand) into the Value sum type. Unsupported types — funcs, channels,
// structs, integers beyond ±MaxSafeInt, NaN, infinities — are rejected with
// an error naming the offending type. Rejection is a hard failure, never a
// coercion: it signals a schema bug in the caller.
func FromAny(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case bool:
		return Bool(val), nil
	case string:
		return String(val), nil
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return nil, fmt.Errorf("checksum: non-finite number %v is not JSON-representable", val)
		}
		return Number(val), nil
	case float32:
		return FromAny(float64(val))
	case int:
		return fromInt(int64(val))
	case int8:
		return Number(val), nil
	case int16:
		return Number(val), nil
	case int32:
		return Number(val), nil
	case int64:
		return fromInt(val)
	case uint:
		return fromUint(uint64(val))
	case uint8:
		return Number(val), nil
	case uint16:
		return Number(val), nil
	case uint32:
		return Number(val), nil
	case uint64:
		return fromUint(val)
	case []any:
		arr := make(Array, len(val))
		for i, elem := range val {
			cv, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			arr[i] = cv
		}
		return arr, nil
	case map[string]any:
		m := make(Map, len(val))
		for k, elem := range val {
			cv, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", k, err)
			}
			m[k] = cv
		}
		return m, nil
	default:
		return nil, fmt.Errorf("checksum: unsupported type %T", v)
	}
}

func fromInt(i int64) (Value, error) {
	if i > MaxSafeInt || i < -MaxSafeInt {
		return nil, fmt.Errorf("checksum: integer %d exceeds the safe JSON range", i)
	}
	return Number(i), nil
}

func fromUint(u uint64) (Value, error) {
	if u > MaxSafeInt {
		return nil, fmt.Errorf("checksum: integer %d exceeds the safe JSON range", u)
	}
	return Number(u), nil
}

// Sum converts v via FromAny, canonicalizes it, and returns the SHA-256
// digest of the canonical form as a 64-character lowercase hex string.
// Sum(a) == Sum(b) exactly when a and b differ only in map key order.
func Sum(v any) (string, error) {
	cv, err := FromAny(v)
	if err != nil {
		return "", err
	}
	canonical := MarshalCanonical(cv)
	digest := sha256.Sum256(canonical)
	return hex.EncodeToString(digest[:]), nil
}
