// Package peakfit holds the shared types and unit conversions used by the FIT
// processing and training analytics packages in this module.
package peakfit

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	metersPerKilometer = 1000.0
	secondsPerMinute   = 60.0
)

// SpeedToPace converts a speed in meters per second to a pace in minutes per
// kilometer. Zero or negative speed yields +Inf.
func SpeedToPace(speedMps float64) float64 {
	if speedMps <= 0 {
		return math.Inf(1)
	}
	return metersPerKilometer / speedMps / secondsPerMinute
}

// PaceToSpeed converts a pace in minutes per kilometer back to meters per
// second. Nonpositive or infinite pace yields 0.
func PaceToSpeed(minPerKm float64) float64 {
	if minPerKm <= 0 || math.IsInf(minPerKm, 0) || math.IsNaN(minPerKm) {
		return 0
	}
	return metersPerKilometer / (minPerKm * secondsPerMinute)
}

// FormatPace renders a decimal pace as "m:ss", e.g. 4.5 -> "4:30".
func FormatPace(minPerKm float64) string {
	if math.IsInf(minPerKm, 0) || math.IsNaN(minPerKm) || minPerKm < 0 {
		return "--:--"
	}
	minutes := int(minPerKm)
	seconds := int(math.Round((minPerKm - float64(minutes)) * secondsPerMinute))
	if seconds >= 60 {
		minutes++
		seconds -= 60
	}
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}

// ParsePace parses an "m:ss" pace string into decimal minutes per kilometer.
func ParsePace(s string) (float64, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, &ValidationError{Field: "pace", Reason: fmt.Sprintf("%q is not in m:ss form", s)}
	}
	minutes, err := strconv.Atoi(parts[0])
	if err != nil || minutes < 0 {
		return 0, &ValidationError{Field: "pace", Reason: fmt.Sprintf("bad minutes in %q", s)}
	}
	seconds, err := strconv.Atoi(parts[1])
	if err != nil || seconds < 0 || seconds >= 60 {
		return 0, &ValidationError{Field: "pace", Reason: fmt.Sprintf("bad seconds in %q", s)}
	}
	return float64(minutes) + float64(seconds)/secondsPerMinute, nil
}
