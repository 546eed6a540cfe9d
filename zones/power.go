package zones

import (
	"time"

	peakfit "github.com/fafnerzhang/codetrekking-sub001"
)

// PowerMethod selects a power zone methodology.
type PowerMethod string

const (
	PowerStevePalladino PowerMethod = "steve_palladino"
	PowerStrydRunning   PowerMethod = "stryd_running"
	PowerCriticalPower  PowerMethod = "critical_power"
)

// DefaultWPrimeKJ is the anaerobic work capacity assumed when the critical
// power method is used without a measured W'.
const DefaultWPrimeKJ = 20.0

// PowerOptions carries the optional athlete parameters for power zones.
type PowerOptions struct {
	BodyWeightKg float64
	WPrimeKJ     float64
}

// PowerResult is a computed power zone table.
type PowerResult struct {
	Method         PowerMethod `json:"method"`
	ThresholdPower float64     `json:"threshold_power"`
	Zones          []Zone      `json:"zones"`
	WattsPerKg     float64     `json:"watts_per_kg,omitempty"`
	WPrimeKJ       float64     `json:"w_prime_kj,omitempty"`
	Metadata       Metadata    `json:"metadata"`
}

var palladinoTable = []breakpoint{
	{name: "Easy Running", loPct: 50, hiPct: 80,
		desc: "Easy aerobic running well below threshold",
		purpose: "Recovery and aerobic base", duration: "Unlimited", effort: "Very easy"},
	{name: "Endurance / Long Run", loPct: 81, hiPct: 87,
		desc: "Steady endurance and long-run intensity",
		purpose: "Aerobic endurance development", duration: "1-3 hours", effort: "Easy, conversational"},
	{name: "Threshold Stimulus", loPct: 88, hiPct: 101,
		desc: "Around functional threshold power",
		purpose: "Lactate threshold development", duration: "10-60 minutes", effort: "Comfortably hard"},
	{name: "Supra Threshold", loPct: 102, hiPct: 105,
		desc: "Just above threshold",
		purpose: "Threshold tolerance", duration: "5-20 minutes", effort: "Hard"},
	{name: "Maximal Aerobic Power", loPct: 106, hiPct: 116,
		desc: "Near maximal aerobic power",
		purpose: "VO2max development", duration: "2-8 minutes", effort: "Very hard"},
	{name: "Anaerobic Power", loPct: 117, hiPct: 150,
		desc: "Anaerobic power above maximal aerobic intensity",
		purpose: "Anaerobic capacity", duration: "30 seconds to 2 minutes", effort: "Extremely hard"},
	{name: "Sprint / Maximal Power", loPct: 151, hiPct: 300,
		desc: "Sprint and maximal neuromuscular power",
		purpose: "Peak power development", duration: "Seconds", effort: "All-out"},
}

var strydTable = []breakpoint{
	{name: "Easy", loPct: 65, hiPct: 80,
		desc: "Easy running power", purpose: "Aerobic base and recovery",
		duration: "Unlimited", effort: "Easy"},
	{name: "Moderate", loPct: 80, hiPct: 90,
		desc: "Moderate aerobic running", purpose: "Endurance development",
		duration: "1-3 hours", effort: "Moderate"},
	{name: "Threshold", loPct: 90, hiPct: 100,
		desc: "Up to critical power", purpose: "Threshold development",
		duration: "20-70 minutes", effort: "Comfortably hard"},
	{name: "Interval", loPct: 100, hiPct: 115,
		desc: "Above critical power interval work", purpose: "VO2max and CP development",
		duration: "2-12 minutes in intervals", effort: "Hard"},
	{name: "Repetition", loPct: 115, hiPct: 130,
		desc: "Short fast repetitions", purpose: "Speed and economy",
		duration: "Under 2 minutes", effort: "Very hard"},
}

var criticalPowerTable = []breakpoint{
	{name: "Recovery", loPct: 0, hiPct: 60,
		desc: "Below aerobic threshold, recovery efforts",
		purpose: "Active recovery", duration: "Unlimited", effort: "Very easy"},
	{name: "Aerobic", loPct: 60, hiPct: 80,
		desc: "Aerobic base training, well below CP",
		purpose: "Aerobic development", duration: "Several hours", effort: "Easy, conversational"},
	{name: "Extensive Endurance", loPct: 80, hiPct: 90,
		desc: "Moderate aerobic intensity, below CP",
		purpose: "Aerobic capacity", duration: "1-4 hours", effort: "Moderate"},
	{name: "Intensive Endurance", loPct: 90, hiPct: 100,
		desc: "Near critical power, high-end aerobic",
		purpose: "CP development", duration: "30-90 minutes", effort: "Hard but steady"},
	{name: "Critical Power", loPct: 100, hiPct: 105,
		desc: "At or slightly above critical power",
		purpose: "CP and lactate threshold work", duration: "20-60 minutes", effort: "Hard, sustainable with focus"},
	{name: "W' Depletion", loPct: 105, hiPct: 130,
		desc: "Above CP, drawing on the anaerobic reserve",
		purpose: "W' development and lactate tolerance", duration: "Limited by W' depletion", effort: "Very hard, time-limited"},
	{name: "Maximal Power", loPct: 130, hiPct: 300,
		desc: "High W' depletion rate, sprint power",
		purpose: "Peak power development", duration: "Seconds to a few minutes", effort: "Maximal"},
}

var powerTables = map[PowerMethod][]breakpoint{
	PowerStevePalladino: palladinoTable,
	PowerStrydRunning:   strydTable,
	PowerCriticalPower:  criticalPowerTable,
}

var powerDescriptions = map[PowerMethod]string{
	PowerStevePalladino: "Steve Palladino running power zones (7 zones, % of FTP)",
	PowerStrydRunning:   "Stryd running power zones (5 zones, % of critical power)",
	PowerCriticalPower:  "Critical Power model zones based on CP and W' (anaerobic work capacity)",
}

// PowerZones computes the zone table for one methodology from a threshold
// power (FTP or critical power) in watts.
func PowerZones(method PowerMethod, thresholdWatts float64, opts PowerOptions) (*PowerResult, error) {
	if err := validThreshold("threshold_power", thresholdWatts); err != nil {
		return nil, err
	}
	table, ok := powerTables[method]
	if !ok {
		return nil, &peakfit.ValidationError{Field: "method", Reason: "unsupported power zone method " + string(method)}
	}
	result := &PowerResult{
		Method:         method,
		ThresholdPower: thresholdWatts,
		Zones:          expand(table, thresholdWatts),
		Metadata: Metadata{
			MethodDescription: powerDescriptions[method],
			CalculatedAt:      time.Now().UTC(),
		},
	}
	if opts.BodyWeightKg > 0 {
		result.WattsPerKg = thresholdWatts / opts.BodyWeightKg
	}
	if method == PowerCriticalPower {
		result.WPrimeKJ = opts.WPrimeKJ
		if result.WPrimeKJ <= 0 {
			result.WPrimeKJ = DefaultWPrimeKJ
		}
	}
	return result, nil
}
