package zones

import (
	"time"

	peakfit "github.com/fafnerzhang/codetrekking-sub001"
)

// HeartRateMethod selects a heart rate zone methodology.
type HeartRateMethod string

const (
	HRJoeFriel     HeartRateMethod = "joe_friel"
	HRSallyEdwards HeartRateMethod = "sally_edwards"
	HRTimex        HeartRateMethod = "timex"
)

// lthrFromMaxRatio is the typical lactate threshold fraction of max HR used
// when only a max HR is known.
const lthrFromMaxRatio = 0.86

// HeartRateOptions carries the alternative inputs for HR zones. JoeFriel
// wants an LTHR; the max-HR methods want a max HR; either can fall back to an
// age-based estimate.
type HeartRateOptions struct {
	MaxHeartRate              float64
	LactateThresholdHeartRate float64
	Age                       int
	EstimationFormula         string // "tanaka" (default), "gulati", "fairbarn"
}

// HeartRateResult is a computed heart rate zone table in bpm.
type HeartRateResult struct {
	Method                    HeartRateMethod `json:"method"`
	MaxHeartRate              float64         `json:"max_heart_rate"`
	LactateThresholdHeartRate float64         `json:"lactate_threshold_heart_rate,omitempty"`
	Zones                     []Zone          `json:"zones"`
	Metadata                  Metadata        `json:"metadata"`
}

// EstimateMaxHeartRate predicts max HR from age.
func EstimateMaxHeartRate(age int, formula string) float64 {
	switch formula {
	case "gulati":
		return 206 - 0.88*float64(age)
	case "fairbarn":
		return 201 - 0.63*float64(age)
	default: // tanaka
		return 208 - 0.7*float64(age)
	}
}

var sallyEdwardsTable = []breakpoint{
	{name: "Healthy Heart", loPct: 50, hiPct: 60,
		desc: "Basic fitness and health maintenance", effort: "Very comfortable"},
	{name: "Temperate", loPct: 60, hiPct: 70,
		desc: "Comfortable aerobic training for base fitness", effort: "Comfortable"},
	{name: "Aerobic", loPct: 70, hiPct: 80,
		desc: "Core aerobic training zone", effort: "Moderate"},
	{name: "Threshold", loPct: 80, hiPct: 90,
		desc: "High-intensity aerobic training near threshold", effort: "Hard"},
	{name: "Red Line", loPct: 90, hiPct: 100,
		desc: "Maximum intensity training", effort: "Very hard to maximal"},
}

var timexTable = []breakpoint{
	{name: "Warm-up", loPct: 50, hiPct: 60,
		desc: "Light activity for warm-up and recovery", effort: "Very light"},
	{name: "Fat Burn", loPct: 60, hiPct: 70,
		desc: "Fat burning and base fitness", effort: "Comfortable"},
	{name: "Aerobic", loPct: 70, hiPct: 80,
		desc: "Cardiovascular fitness and endurance", effort: "Moderate"},
	{name: "Anaerobic", loPct: 80, hiPct: 90,
		desc: "High-intensity performance training", effort: "Hard"},
	{name: "VO2 Max", loPct: 90, hiPct: 100,
		desc: "Maximum intensity for peak fitness", effort: "Very hard to maximal"},
}

var joeFrielHRTable = []breakpoint{
	{name: "Recovery", loPct: 0, hiPct: 85,
		desc: "Active recovery and very light aerobic activity", effort: "Very easy"},
	{name: "Aerobic", loPct: 85, hiPct: 89,
		desc: "Fundamental aerobic base training", effort: "Easy"},
	{name: "Tempo", loPct: 90, hiPct: 94,
		desc: "Moderate aerobic endurance development", effort: "Moderate"},
	{name: "Lactate Threshold", loPct: 95, hiPct: 99,
		desc: "At or just below lactate threshold", effort: "Hard"},
	{name: "VO2max (5a)", loPct: 100, hiPct: 102,
		desc: "High-intensity aerobic intervals", effort: "Very hard"},
	{name: "Anaerobic (5b)", loPct: 103, hiPct: 106,
		desc: "Anaerobic capacity and speed endurance", effort: "Extremely hard"},
	{name: "Neuromuscular (5c)", loPct: 107, hiPct: 120,
		desc: "Maximum neuromuscular power", effort: "All-out"},
}

// HeartRateZones computes the zone table for one methodology.
func HeartRateZones(method HeartRateMethod, opts HeartRateOptions) (*HeartRateResult, error) {
	maxHR := opts.MaxHeartRate
	if maxHR <= 0 && opts.Age > 0 {
		maxHR = EstimateMaxHeartRate(opts.Age, opts.EstimationFormula)
	}

	switch method {
	case HRSallyEdwards, HRTimex:
		if maxHR <= 0 {
			return nil, &peakfit.ValidationError{Field: "max_heart_rate", Reason: "max heart rate or age required"}
		}
		table := sallyEdwardsTable
		desc := "Sally Edwards heart rate zones (5 zones, % of max HR)"
		if method == HRTimex {
			table = timexTable
			desc = "Timex heart rate zones (5 zones, % of max HR)"
		}
		return &HeartRateResult{
			Method:       method,
			MaxHeartRate: maxHR,
			Zones:        expand(table, maxHR),
			Metadata:     Metadata{MethodDescription: desc, CalculatedAt: time.Now().UTC()},
		}, nil

	case HRJoeFriel:
		lthr := opts.LactateThresholdHeartRate
		if lthr <= 0 {
			if maxHR <= 0 {
				return nil, &peakfit.ValidationError{Field: "lthr", Reason: "LTHR, max heart rate, or age required"}
			}
			lthr = maxHR * lthrFromMaxRatio
		}
		if maxHR <= 0 {
			maxHR = lthr / lthrFromMaxRatio
		}
		return &HeartRateResult{
			Method:                    HRJoeFriel,
			MaxHeartRate:              maxHR,
			LactateThresholdHeartRate: lthr,
			Zones:                     expand(joeFrielHRTable, lthr),
			Metadata: Metadata{
				MethodDescription: "Joe Friel heart rate zones (7 zones, % of LTHR)",
				CalculatedAt:      time.Now().UTC(),
			},
		}, nil

	default:
		return nil, &peakfit.ValidationError{Field: "method", Reason: "unsupported heart rate zone method " + string(method)}
	}
}
