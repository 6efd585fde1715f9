package tract

import (
	"math"
	"strconv"
	"strings"
)

// NormalizeID returns the canonical string form of a tract identifier so that
// values read as floats ("123.0") compare equal to their integer form ("123").
// Values that are not integral numbers are returned trimmed but otherwise
// unchanged.
func NormalizeID(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.Contains(s, ".") {
		return s
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) || f != math.Trunc(f) {
		return s
	}
	return strconv.FormatFloat(f, 'f', 0, 64)
}
