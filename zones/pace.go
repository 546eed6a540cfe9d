package zones

import (
	"math"
	"time"

	peakfit "github.com/fafnerzhang/codetrekking-sub001"
)

// PaceMethod selects a running pace zone methodology.
type PaceMethod string

const (
	PaceJoeFriel    PaceMethod = "joe_friel"
	PaceJackDaniels PaceMethod = "jack_daniels"
	PacePZI         PaceMethod = "pzi"
)

// PaceOptions carries the alternative inputs for pace zones. Jack Daniels
// takes a VDOT or a race performance; PZI takes a race performance; Joe Friel
// takes a threshold pace or a race performance.
type PaceOptions struct {
	VDOT            float64
	RaceDistanceKm  float64
	RaceTimeSeconds float64
}

// PaceResult is a computed pace zone table. Zone bounds are exposed in
// min/km; the breakpoint math runs in sec/km.
type PaceResult struct {
	Method        PaceMethod `json:"method"`
	ThresholdPace float64    `json:"threshold_pace"` // min/km
	VDOT          float64    `json:"vdot,omitempty"`
	Zones         []Zone     `json:"zones"`
	Metadata      Metadata   `json:"metadata"`
}

// FormatZone renders a zone's pace bounds as "m:ss" strings, fast to slow.
func FormatZone(z Zone) (fast, slow string) {
	return peakfit.FormatPace(z.Low), peakfit.FormatPace(z.High)
}

// PaceZones computes the zone table for one methodology. thresholdMinPerKm is
// required for the Joe Friel method unless a race performance is supplied; it
// is ignored by Jack Daniels and PZI, which derive their own reference paces.
func PaceZones(method PaceMethod, thresholdMinPerKm float64, opts PaceOptions) (*PaceResult, error) {
	switch method {
	case PaceJoeFriel:
		return joeFrielPaceZones(thresholdMinPerKm, opts)
	case PaceJackDaniels:
		return jackDanielsZones(opts)
	case PacePZI:
		return pziZones(opts)
	default:
		return nil, &peakfit.ValidationError{Field: "method", Reason: "unsupported pace zone method " + string(method)}
	}
}

// joeFrielPaceTable holds multipliers of threshold pace in sec/km. Zone
// numbers ascend from slowest (recovery) to fastest; a zero hi marks the
// unbounded fast end and an inf slow end is produced for zone 1.
var joeFrielPaceTable = []struct {
	name         string
	fastMult     float64 // faster (numerically lower) bound
	slowMult     float64 // slower (numerically higher) bound; 0 means unbounded
	desc, effort string
}{
	{"Recovery", 1.29, 0, "Very easy recovery running", "Very easy"},
	{"Aerobic", 1.14, 1.29, "Aerobic base building", "Easy, conversational"},
	{"Tempo", 1.06, 1.13, "Steady tempo running", "Moderate"},
	{"Sub-Threshold", 1.01, 1.05, "Just below threshold pace", "Comfortably hard"},
	{"Super-Threshold", 0.97, 1.00, "At and slightly above threshold pace", "Hard"},
	{"Aerobic Capacity", 0.90, 0.96, "VO2max interval pace", "Very hard"},
	{"Anaerobic Capacity", 0, 0.90, "Faster than VO2max pace", "Extremely hard"},
}

func joeFrielPaceZones(thresholdMinPerKm float64, opts PaceOptions) (*PaceResult, error) {
	thresholdSec := thresholdMinPerKm * 60
	if thresholdSec <= 0 {
		if opts.RaceDistanceKm <= 0 || opts.RaceTimeSeconds <= 0 {
			return nil, &peakfit.ValidationError{Field: "threshold_pace", Reason: "threshold pace or race performance required"}
		}
		racePace := opts.RaceTimeSeconds / opts.RaceDistanceKm
		switch {
		case opts.RaceDistanceKm <= 5.5:
			thresholdSec = racePace * 1.03
		case opts.RaceDistanceKm <= 10.5:
			thresholdSec = racePace * 1.01
		default:
			thresholdSec = racePace * 0.98
		}
	}

	zones := make([]Zone, 0, len(joeFrielPaceTable))
	for i, row := range joeFrielPaceTable {
		low := thresholdSec * row.fastMult
		high := thresholdSec * row.slowMult
		if row.slowMult == 0 {
			high = math.Inf(1)
		}
		if row.fastMult == 0 {
			low = 0
		}
		zones = append(zones, Zone{
			Number:      i + 1,
			Name:        row.name,
			Low:         low / 60,
			High:        high / 60,
			PercentLow:  row.fastMult * 100,
			PercentHigh: row.slowMult * 100,
			Description: row.desc,
			EffortLevel: row.effort,
		})
	}
	return &PaceResult{
		Method:        PaceJoeFriel,
		ThresholdPace: thresholdSec / 60,
		Zones:         zones,
		Metadata: Metadata{
			MethodDescription: "Joe Friel running pace zones (7 zones, % of threshold pace)",
			CalculatedAt:      time.Now().UTC(),
		},
	}, nil
}

// RaceTimeToVDOT derives a VDOT value from a race performance using the
// Daniels/Gilbert VO2 demand and drop-off curves. The result is clamped to
// the practical 30-85 range.
func RaceTimeToVDOT(distanceKm, timeSeconds float64) (float64, error) {
	if distanceKm <= 0 || timeSeconds <= 0 {
		return 0, &peakfit.ValidationError{Field: "race", Reason: "distance and time must be positive"}
	}
	timeMinutes := timeSeconds / 60
	velocity := distanceKm * 1000 / timeMinutes // m/min
	vo2Demand := -4.6 + 0.182258*velocity + 0.000104*velocity*velocity
	percentVO2Max := 0.8 +
		0.1894393*math.Exp(-0.012778*timeMinutes) +
		0.2989558*math.Exp(-0.1932605*timeMinutes)
	vdot := vo2Demand / percentVO2Max
	vdot = math.Round(vdot*10) / 10
	return math.Max(30, math.Min(85, vdot)), nil
}

// vdotToPaceSec converts a VDOT to a training pace in sec/km for one of the
// E/M/T/I/R pace types.
func vdotToPaceSec(vdot float64, paceType byte) float64 {
	baseVelocity := 15.3 * vdot // m/min at vVO2max
	var velocity float64
	switch paceType {
	case 'E':
		velocity = baseVelocity * 0.75
	case 'M':
		velocity = baseVelocity * 0.85
	case 'T':
		velocity = baseVelocity * 0.88
	case 'I':
		velocity = baseVelocity
	case 'R':
		velocity = baseVelocity * 1.1
	default:
		velocity = baseVelocity
	}
	return 1000 / velocity * 60
}

func jackDanielsZones(opts PaceOptions) (*PaceResult, error) {
	vdot := opts.VDOT
	if vdot <= 0 {
		var err error
		vdot, err = RaceTimeToVDOT(opts.RaceDistanceKm, opts.RaceTimeSeconds)
		if err != nil {
			return nil, &peakfit.ValidationError{Field: "vdot", Reason: "VDOT or race performance required"}
		}
	}

	bands := []struct {
		name         string
		refPace      float64 // sec/km
		fastPct      float64
		slowPct      float64
		desc, effort string
	}{
		{"Easy/Long (E)", vdotToPaceSec(vdot, 'E'), 95, 115, "Easy and long-run pace", "Easy, conversational"},
		{"Marathon (M)", vdotToPaceSec(vdot, 'M'), 95, 105, "Marathon race pace", "Moderate, steady"},
		{"Threshold (T)", vdotToPaceSec(vdot, 'T'), 98, 102, "Lactate threshold pace", "Comfortably hard"},
		{"Interval (I)", vdotToPaceSec(vdot, 'I'), 98, 102, "VO2max interval pace", "Hard"},
		{"Repetition (R)", vdotToPaceSec(vdot, 'R'), 97, 103, "Fast repetition pace", "Very hard"},
	}

	zones := make([]Zone, 0, len(bands))
	for i, b := range bands {
		zones = append(zones, Zone{
			Number:      i + 1,
			Name:        b.name,
			Low:         b.refPace * b.fastPct / 100 / 60,
			High:        b.refPace * b.slowPct / 100 / 60,
			PercentLow:  b.fastPct,
			PercentHigh: b.slowPct,
			Description: b.desc,
			EffortLevel: b.effort,
		})
	}
	return &PaceResult{
		Method:        PaceJackDaniels,
		ThresholdPace: vdotToPaceSec(vdot, 'T') / 60,
		VDOT:          vdot,
		Zones:         zones,
		Metadata: Metadata{
			MethodDescription: "Jack Daniels VDOT training paces (E/M/T/I/R)",
			CalculatedAt:      time.Now().UTC(),
		},
	}, nil
}

// pziTable holds multipliers of equivalent 5K pace, slowest zone first.
var pziTable = []struct {
	name               string
	fastMult, slowMult float64 // 0 slowMult means unbounded slow end
	desc               string
}{
	{"Gray Zone 1", 2.00, 0, "Slower than productive easy running"},
	{"Low Aerobic", 1.55, 1.85, "Easy aerobic running"},
	{"Moderate Aerobic", 1.40, 1.55, "Steady aerobic running"},
	{"High Aerobic", 1.15, 1.40, "Upper aerobic intensity"},
	{"Gray Zone 2", 1.05, 1.15, "Between aerobic and threshold work"},
	{"Threshold", 0.95, 1.05, "Lactate threshold pace band"},
	{"Gray Zone 3", 0.88, 0.95, "Between threshold and VO2max work"},
	{"VO2max", 0.83, 0.88, "VO2max interval pace"},
	{"Gray Zone 4", 0.78, 0.83, "Between VO2max and speed work"},
	{"Speed", 0, 0.78, "Maximal speed work"},
}

// pziSpeedFloorSec caps the fastest zone at roughly a 3:00/km pace.
const pziSpeedFloorSec = 180.0

func pziZones(opts PaceOptions) (*PaceResult, error) {
	if opts.RaceDistanceKm <= 0 || opts.RaceTimeSeconds <= 0 {
		return nil, &peakfit.ValidationError{Field: "race", Reason: "race distance and time required"}
	}
	racePace := opts.RaceTimeSeconds / opts.RaceDistanceKm
	equivalent5K := racePace
	switch opts.RaceDistanceKm {
	case 3.0:
		equivalent5K = racePace * 1.02
	case 10.0:
		equivalent5K = racePace * 0.97
	}

	zones := make([]Zone, 0, len(pziTable))
	for i, row := range pziTable {
		low := equivalent5K * row.fastMult
		high := equivalent5K * row.slowMult
		if row.slowMult == 0 {
			high = math.Inf(1)
		}
		if row.fastMult == 0 {
			low = pziSpeedFloorSec
		}
		zones = append(zones, Zone{
			Number:      i + 1,
			Name:        row.name,
			Low:         low / 60,
			High:        high / 60,
			PercentLow:  row.fastMult * 100,
			PercentHigh: row.slowMult * 100,
			Description: row.desc,
		})
	}
	return &PaceResult{
		Method:        PacePZI,
		ThresholdPace: equivalent5K * 0.95 / 60,
		Zones:         zones,
		Metadata: Metadata{
			MethodDescription: "PZI pace zones (10 zones from equivalent 5K pace)",
			CalculatedAt:      time.Now().UTC(),
		},
	}, nil
}
