// Package zones computes ordered training-zone tables for power, running
// pace, and heart rate from athlete thresholds. Calculators are pure: the
// same inputs always produce the same table, and nothing here retains state
// between calls.
package zones

import (
	"time"

	peakfit "github.com/fafnerzhang/codetrekking-sub001"
)

// Zone is a single training zone expressed in the metric's native unit
// (watts, min/km, or bpm). Low/High form a half-open [Low, High) band except
// for unbounded top zones, where High may be +Inf.
type Zone struct {
	Number           int     `json:"zone"`
	Name             string  `json:"name"`
	Low              float64 `json:"low"`
	High             float64 `json:"high"`
	PercentLow       float64 `json:"percent_low"`
	PercentHigh      float64 `json:"percent_high"`
	Description      string  `json:"description,omitempty"`
	Purpose          string  `json:"purpose,omitempty"`
	DurationGuidance string  `json:"duration_guidance,omitempty"`
	EffortLevel      string  `json:"effort_level,omitempty"`
}

// Metadata describes how a zone table was produced.
type Metadata struct {
	MethodDescription string    `json:"method_description"`
	CalculatedAt      time.Time `json:"calculated_at"`
}

// breakpoint is a percentage band used by the fixed zone tables.
type breakpoint struct {
	name     string
	loPct    float64
	hiPct    float64
	desc     string
	purpose  string
	duration string
	effort   string
}

// expand multiplies percentage breakpoints by the threshold, producing the
// contiguous ascending zone list every calculator guarantees.
func expand(table []breakpoint, threshold float64) []Zone {
	out := make([]Zone, 0, len(table))
	for i, b := range table {
		out = append(out, Zone{
			Number:           i + 1,
			Name:             b.name,
			Low:              threshold * b.loPct / 100,
			High:             threshold * b.hiPct / 100,
			PercentLow:       b.loPct,
			PercentHigh:      b.hiPct,
			Description:      b.desc,
			Purpose:          b.purpose,
			DurationGuidance: b.duration,
			EffortLevel:      b.effort,
		})
	}
	return out
}

func validThreshold(field string, threshold float64) error {
	if threshold <= 0 {
		return &peakfit.ValidationError{Field: field, Reason: "must be positive"}
	}
	return nil
}
