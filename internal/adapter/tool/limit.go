package tool

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"

	"serper-mcp/internal/domain"
)

// ParseLimit coerces a loosely typed limit argument into an integer.
// Absent, null or unparseable values fall back to domain.DefaultLimit;
// numbers are truncated toward zero. It never fails.
func ParseLimit(raw json.RawMessage) int {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return domain.DefaultLimit
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return domain.DefaultLimit
		}
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			var ne *strconv.NumError
			if errors.As(err, &ne) && errors.Is(ne.Err, strconv.ErrRange) {
				return clampLimit(n)
			}
			return domain.DefaultLimit
		}
		return clampLimit(n)
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		var f float64
		if err := json.Unmarshal(raw, &f); err != nil || math.IsNaN(f) {
			return domain.DefaultLimit
		}
		if f > math.MaxInt32 {
			return math.MaxInt32
		}
		if f < math.MinInt32 {
			return math.MinInt32
		}
		return int(f)
	default:
		return domain.DefaultLimit
	}
}

// clampLimit bounds n to the int32 range so string and number limits agree.
// Atoi returns the saturated int on ErrRange, so the sign is preserved.
func clampLimit(n int) int {
	switch {
	case n > math.MaxInt32:
		return math.MaxInt32
	case n < math.MinInt32:
		return math.MinInt32
	default:
		return n
	}
}
