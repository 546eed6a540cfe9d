package fitproc

import (
	"regexp"
	"strings"
	"time"
)

const semicirclesToDegrees = 180.0 / 2147483648.0 // 2^31

const (
	minPlausiblePower     = 0
	maxPlausiblePower     = 2000
	minPlausibleHeartRate = 30
	maxPlausibleHeartRate = 220
)

var (
	camelBoundaryRe = regexp.MustCompile(`([a-z0-9])([A-Z])`)
	underscoreRunRe = regexp.MustCompile(`_+`)
)

// normalizeFieldName converts protocol and developer field names to
// snake_case: spaces and hyphens become underscores, camelCase boundaries
// split, repeated underscores collapse.
func normalizeFieldName(name string) string {
	s := strings.ReplaceAll(name, " ", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = camelBoundaryRe.ReplaceAllString(s, "${1}_${2}")
	s = underscoreRunRe.ReplaceAllString(s, "_")
	return strings.ToLower(strings.Trim(s, "_"))
}

// resolveValue validates and converts one field value for storage under the
// given normalized name. ok=false means the field is omitted from the
// document entirely.
func resolveValue(name string, v any) (any, bool) {
	switch x := v.(type) {
	case string:
		return x, x != ""
	case []any:
		out := make([]float64, 0, len(x))
		for _, e := range x {
			if f, ok := asFloat(e); ok && !isSentinel(f) {
				out = append(out, f)
			}
		}
		if len(out) == 0 {
			return nil, false
		}
		return out, true
	case []byte:
		return nil, false
	}

	f, ok := asFloat(v)
	if !ok {
		return nil, false
	}
	if isSentinel(f) {
		return nil, false
	}

	lower := strings.ToLower(name)
	if strings.Contains(lower, "timestamp") {
		return fitEpoch.Add(time.Duration(f) * time.Second).UTC().Format(time.RFC3339), true
	}
	if strings.Contains(lower, "position") && (f > 180 || f < -180) {
		return f * semicirclesToDegrees, true
	}
	if strings.Contains(lower, "power") {
		if f < minPlausiblePower || f > maxPlausiblePower {
			return nil, false
		}
	}
	if strings.Contains(lower, "heart_rate") {
		if f < minPlausibleHeartRate || f > maxPlausibleHeartRate {
			return nil, false
		}
	}
	return f, true
}

// FIT "no value" sentinels that must never reach a stored document.
func isSentinel(f float64) bool {
	switch f {
	case 0xFF, 65534, 0xFFFF:
		return true
	}
	return false
}
