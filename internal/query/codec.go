package query

import (
	"encoding/json"
	"strconv"
)

// maxSafeInteger is the largest integer a float64-backed JSON consumer can
// hold without precision loss.
const maxSafeInteger = 1<<53 - 1

// NormalizeWideInts walks a decoded value and string-encodes every integer
// whose magnitude exceeds the safe range, so 64-bit identifiers survive
// transport losslessly. Applied uniformly to the whole data payload at the
// serialization boundary rather than per flagged field.
func NormalizeWideInts(v any) any {
	switch value := v.(type) {
	case map[string]any:
		for k, item := range value {
			value[k] = NormalizeWideInts(item)
		}
		return value
	case []any:
		for i, item := range value {
			value[i] = NormalizeWideInts(item)
		}
		return value
	case []map[string]any:
		for _, item := range value {
			NormalizeWideInts(item)
		}
		return value
	case int64:
		if value > maxSafeInteger || value < -maxSafeInteger {
			return strconv.FormatInt(value, 10)
		}
		return value
	case uint64:
		if value > maxSafeInteger {
			return strconv.FormatUint(value, 10)
		}
		return value
	case int:
		return NormalizeWideInts(int64(value))
	case json.Number:
		if i, err := value.Int64(); err == nil {
			return NormalizeWideInts(i)
		}
		return value
	default:
		return v
	}
}
