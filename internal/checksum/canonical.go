package checksum

import (
	"bytes"
	"encoding/json"
	"math"
	"sort"
	"strconv"
)

// MarshalCanonical serializes a Value into the canonical text form that is
// hashed. Map keys are emitted in lexicographic order at every depth; array
// order is preserved. The output is stable for any given input, which is
// the only property the fingerprint protocol requires of it.
func MarshalCanonical(v Value) []byte {
	var buf bytes.Buffer
	writeCanonical(&buf, v)
	return buf.Bytes()
}

func writeCanonical(buf *bytes.Buffer, v Value) {
	switch val := v.(type) {
	case Null:
		buf.WriteString("null")
	case Bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case Number:
		buf.WriteString(formatNumber(float64(val)))
	case String:
		// json.Marshal of a string cannot fail and is deterministic.
		b, _ := json.Marshal(string(val))
		buf.Write(b)
	case Array:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeCanonical(buf, elem)
		}
		buf.WriteByte(']')
	case Map:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, _ := json.Marshal(k)
			buf.Write(kb)
			buf.WriteByte(':')
			writeCanonical(buf, val[k])
		}
		buf.WriteByte('}')
	}
}

// formatNumber renders integral values without a fractional part so that
// Number(2) and an int input 2 hash identically. Non-integral values use
// the shortest round-trip decimal form.
func formatNumber(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) <= MaxSafeInt {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
