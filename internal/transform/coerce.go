package transform

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// maxEpochMillis is 9999-12-31T23:59:59.999Z; anything beyond is treated as unparseable.
const maxEpochMillis = 253402300799999

func toFloat(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func toEpochMillis(v any) (int64, bool) {
	if n, ok := v.(json.Number); ok {
		if i, err := n.Int64(); err == nil {
			return i, inEpochRange(i)
		}
	}
	if i, ok := v.(int64); ok {
		return i, inEpochRange(i)
	}
	f, ok := toFloat(v)
	if !ok || math.Abs(f) > maxEpochMillis {
		return 0, false
	}
	return int64(f), true
}

func inEpochRange(ms int64) bool {
	return ms >= -maxEpochMillis && ms <= maxEpochMillis
}

func toTime(v any) *time.Time {
	ms, ok := toEpochMillis(v)
	if !ok {
		return nil
	}
	t := time.UnixMilli(ms).UTC()
	return &t
}

func toText(v any) (string, bool) {
	switch s := v.(type) {
	case nil:
		return "", false
	case string:
		return s, true
	case json.Number:
		return s.String(), true
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(s), true
	default:
		return fmt.Sprint(s), true
	}
}
