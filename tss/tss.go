// Package tss implements Training Stress Score calculations over activity
// record series: power TSS with normalized power, heart rate TSS with
// TRIMP-style weighting, running pace TSS with normalized graded pace, and a
// composite selector that prefers power over heart rate over pace.
package tss

import (
	"context"
	"math"
	"sort"
	"time"

	peakfit "github.com/fafnerzhang/codetrekking-sub001"
	"github.com/fafnerzhang/codetrekking-sub001/storage"
)

const (
	rollingWindow  = 30
	secondsPerHour = 3600.0
	maxIntensity   = 2.0
)

// Calculator computes TSS, either from caller-supplied record documents or
// from record documents fetched through the injected store.
type Calculator struct {
	store      storage.Interface
	thresholds peakfit.MetricThresholds
}

// NewCalculator builds a calculator. thresholds carries zone tables and
// athlete parameters used when explicit values are not supplied.
func NewCalculator(store storage.Interface, thresholds peakfit.MetricThresholds) *Calculator {
	return &Calculator{store: store, thresholds: thresholds}
}

// PowerResult holds a power-based TSS calculation.
type PowerResult struct {
	TSS             float64 `json:"tss"`
	NormalizedPower float64 `json:"normalized_power"`
	IntensityFactor float64 `json:"intensity_factor"`
	FTP             float64 `json:"ftp"`
	DurationSeconds int     `json:"duration_seconds"`
	DurationHours   float64 `json:"duration_hours"`
	AvgPower        float64 `json:"avg_power"`
	MaxPower        float64 `json:"max_power"`
	Method          string  `json:"calculation_method"`
}

// HeartRateResult holds a heart-rate-based TSS calculation.
type HeartRateResult struct {
	TSS             float64 `json:"tss"`
	IntensityFactor float64 `json:"intensity_factor"`
	ThresholdHR     float64 `json:"threshold_hr"`
	MaxHR           float64 `json:"max_hr"`
	AvgHR           float64 `json:"avg_hr"`
	DurationSeconds int     `json:"duration_seconds"`
	DurationHours   float64 `json:"duration_hours"`
	Method          string  `json:"calculation_method"`
}

// PaceResult holds a running-pace-based TSS calculation. Paces are min/km.
type PaceResult struct {
	TSS                     float64 `json:"tss"`
	NormalizedPace          float64 `json:"normalized_pace"`
	NormalizedPaceFormatted string  `json:"normalized_pace_formatted"`
	IntensityFactor         float64 `json:"intensity_factor"`
	ThresholdPace           float64 `json:"threshold_pace"`
	ThresholdPaceFormatted  string  `json:"threshold_pace_formatted"`
	AvgPace                 float64 `json:"avg_pace"`
	BestPace                float64 `json:"best_pace"`
	DurationSeconds         int     `json:"duration_seconds"`
	DurationHours           float64 `json:"duration_hours"`
	Method                  string  `json:"calculation_method"`
}

// CompositeResult combines every channel that could be computed. TSS and
// PrimaryMethod come from the highest-priority available channel.
type CompositeResult struct {
	TSS           float64          `json:"tss"`
	PrimaryMethod string           `json:"primary_method"`
	Power         *PowerResult     `json:"power_tss,omitempty"`
	HeartRate     *HeartRateResult `json:"hr_tss,omitempty"`
	Pace          *PaceResult      `json:"pace_tss,omitempty"`
	CalculatedAt  time.Time        `json:"calculated_at"`
}

// PowerTSS computes power-based TSS from record documents. A nonpositive ftp
// falls back to the zone-derived estimate, then the 250 W default.
func (c *Calculator) PowerTSS(records []storage.Document, ftp float64) (*PowerResult, error) {
	power := powerSeries(records)
	if len(power) == 0 {
		return nil, &peakfit.InsufficientDataError{Metric: "power", Need: 1, Got: 0}
	}
	if ftp <= 0 {
		ftp = c.ftpEstimate()
	}
	if ftp <= 0 {
		return nil, &peakfit.CalculationError{Op: "power tss", Err: &peakfit.ValidationError{Field: "ftp", Reason: "must be positive"}}
	}

	np := normalizedPower(power)
	durationSeconds := len(power)
	intensity := np / ftp
	tss := float64(durationSeconds) * np * intensity / (ftp * secondsPerHour) * 100

	return &PowerResult{
		TSS:             round1(tss),
		NormalizedPower: round1(np),
		IntensityFactor: round3(intensity),
		FTP:             ftp,
		DurationSeconds: durationSeconds,
		DurationHours:   round2(float64(durationSeconds) / secondsPerHour),
		AvgPower:        round1(mean(power)),
		MaxPower:        maxOf(power),
		Method:          "power",
	}, nil
}

// HeartRateTSS computes hrTSS from record documents. maxHR <= 0 is estimated
// from the 95th percentile of the samples.
func (c *Calculator) HeartRateTSS(records []storage.Document, thresholdHR, maxHR float64) (*HeartRateResult, error) {
	hr := heartRateSeries(records)
	if len(hr) == 0 {
		return nil, &peakfit.InsufficientDataError{Metric: "heart_rate", Need: 1, Got: 0}
	}
	if thresholdHR <= 0 {
		thresholdHR = c.thresholdHREstimate()
	}
	if thresholdHR <= 0 {
		return nil, &peakfit.CalculationError{Op: "hr tss", Err: &peakfit.ValidationError{Field: "threshold_hr", Reason: "must be positive"}}
	}
	if maxHR <= 0 {
		maxHR = estimateMaxHR(hr)
	}

	durationSeconds := len(hr)
	durationHours := float64(durationSeconds) / secondsPerHour
	intensity := hrIntensityFactor(hr, thresholdHR, maxHR)
	tss := durationHours * intensity * intensity * 100

	return &HeartRateResult{
		TSS:             round1(tss),
		IntensityFactor: round3(intensity),
		ThresholdHR:     thresholdHR,
		MaxHR:           maxHR,
		AvgHR:           round1(mean(hr)),
		DurationSeconds: durationSeconds,
		DurationHours:   round2(durationHours),
		Method:          "heart_rate",
	}, nil
}

// PaceTSS computes rTSS from record documents. thresholdPace is min/km.
//
// The published pace formula reduces algebraically to the same
// hours * IF^2 * 100 shape as the power formula once IF = threshold/NGP is
// substituted, so that form is computed directly here.
func (c *Calculator) PaceTSS(records []storage.Document, thresholdPace float64) (*PaceResult, error) {
	speeds := speedSeries(records)
	if len(speeds) == 0 {
		return nil, &peakfit.InsufficientDataError{Metric: "pace", Need: 1, Got: 0}
	}
	paces := make([]float64, 0, len(speeds))
	for _, s := range speeds {
		if s > 0 {
			paces = append(paces, peakfit.SpeedToPace(s))
		}
	}
	if len(paces) == 0 {
		return nil, &peakfit.InsufficientDataError{Metric: "pace", Need: 1, Got: 0}
	}
	if thresholdPace <= 0 {
		thresholdPace = c.thresholdPaceEstimate()
	}
	if thresholdPace <= 0 {
		return nil, &peakfit.CalculationError{Op: "pace tss", Err: &peakfit.ValidationError{Field: "threshold_pace", Reason: "must be positive"}}
	}

	ngp := normalizedPace(paces)
	intensity := 0.0
	if ngp > 0 {
		intensity = thresholdPace / ngp
	}
	intensity = math.Max(0, math.Min(intensity, maxIntensity))

	durationSeconds := len(paces)
	durationHours := float64(durationSeconds) / secondsPerHour
	tss := durationHours * intensity * intensity * 100

	return &PaceResult{
		TSS:                     round1(tss),
		NormalizedPace:          round2(ngp),
		NormalizedPaceFormatted: peakfit.FormatPace(ngp),
		IntensityFactor:         round3(intensity),
		ThresholdPace:           thresholdPace,
		ThresholdPaceFormatted:  peakfit.FormatPace(thresholdPace),
		AvgPace:                 round2(mean(paces)),
		BestPace:                round2(minOf(paces)),
		DurationSeconds:         durationSeconds,
		DurationHours:           round2(durationHours),
		Method:                  "pace",
	}, nil
}

// CompositeTSS tries every channel and selects the best available by the
// power > heart rate > pace priority. It fails with InsufficientDataError
// only when no channel is usable.
func (c *Calculator) CompositeTSS(records []storage.Document, overrides Overrides) (*CompositeResult, error) {
	result := &CompositeResult{CalculatedAt: time.Now().UTC()}

	if power, err := c.PowerTSS(records, overrides.FTP); err == nil {
		result.Power = power
		result.PrimaryMethod = "power"
		result.TSS = power.TSS
	}
	if hr, err := c.HeartRateTSS(records, overrides.ThresholdHR, overrides.MaxHR); err == nil {
		result.HeartRate = hr
		if result.PrimaryMethod == "" {
			result.PrimaryMethod = "heart_rate"
			result.TSS = hr.TSS
		}
	}
	if pace, err := c.PaceTSS(records, overrides.ThresholdPace); err == nil {
		result.Pace = pace
		if result.PrimaryMethod == "" {
			result.PrimaryMethod = "pace"
			result.TSS = pace.TSS
		}
	}

	if result.PrimaryMethod == "" {
		return nil, &peakfit.InsufficientDataError{Metric: "composite", Need: 1, Got: 0}
	}
	return result, nil
}

// CompositeTSSForActivity fetches the activity's record documents through the
// store and computes composite TSS from them.
func (c *Calculator) CompositeTSSForActivity(ctx context.Context, activityID string, overrides Overrides) (*CompositeResult, error) {
	records, err := c.fetchRecords(ctx, activityID)
	if err != nil {
		return nil, err
	}
	return c.CompositeTSS(records, overrides)
}

func (c *Calculator) fetchRecords(ctx context.Context, activityID string) ([]storage.Document, error) {
	return c.store.Search(ctx, storage.DataTypeRecord, storage.QueryFilter{
		ActivityID: activityID,
		Sort:       []storage.SortKey{{Field: "timestamp"}},
		Size:       10000,
	})
}

// Overrides are explicit caller-supplied thresholds; zero values defer to the
// stored/zone-derived/default resolution chain.
type Overrides struct {
	FTP           float64
	ThresholdHR   float64
	MaxHR         float64
	ThresholdPace float64
}

func powerSeries(records []storage.Document) []float64 {
	out := make([]float64, 0, len(records))
	for _, r := range records {
		if v, ok := numericField(r, "power"); ok && v > 0 {
			out = append(out, v)
		}
	}
	return out
}

func heartRateSeries(records []storage.Document) []float64 {
	out := make([]float64, 0, len(records))
	for _, r := range records {
		if v, ok := numericField(r, "heart_rate"); ok && v > 0 {
			out = append(out, v)
		}
	}
	return out
}

func speedSeries(records []storage.Document) []float64 {
	out := make([]float64, 0, len(records))
	for _, r := range records {
		v, ok := numericField(r, "speed")
		if !ok || v <= 0 {
			v, ok = numericField(r, "enhanced_speed")
		}
		if ok && v > 0 {
			out = append(out, v)
		}
	}
	return out
}

func numericField(doc storage.Document, key string) (float64, bool) {
	switch v := doc[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint8:
		return float64(v), true
	default:
		return 0, false
	}
}

// normalizedPower is the 4th root of the mean 4th power of the 30-sample
// rolling average; below one window it degrades to a simple mean.
func normalizedPower(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	if len(samples) < rollingWindow {
		return mean(samples)
	}

	sum := 0.0
	for i := 0; i < rollingWindow; i++ {
		sum += samples[i]
	}
	fourthTotal := 0.0
	count := 0
	for i := rollingWindow - 1; i < len(samples); i++ {
		if i >= rollingWindow {
			sum += samples[i] - samples[i-rollingWindow]
		}
		rolling := sum / rollingWindow
		fourthTotal += math.Pow(rolling, 4)
		count++
	}
	return math.Pow(fourthTotal/float64(count), 0.25)
}

// normalizedPace smooths in the speed domain: each 30-sample rolling pace
// average is converted to speed, raised to the 4th power, averaged, and the
// result converted back to pace. Weighting effort in the speed domain keeps
// fast sections dominant the same way high-power sections dominate NP.
func normalizedPace(paces []float64) float64 {
	if len(paces) == 0 {
		return 0
	}
	if len(paces) < rollingWindow {
		return mean(paces)
	}

	sum := 0.0
	for i := 0; i < rollingWindow; i++ {
		sum += paces[i]
	}
	fourthTotal := 0.0
	count := 0
	for i := rollingWindow - 1; i < len(paces); i++ {
		if i >= rollingWindow {
			sum += paces[i] - paces[i-rollingWindow]
		}
		rollingPace := sum / rollingWindow
		if rollingPace > 0 {
			speed := peakfit.PaceToSpeed(rollingPace)
			fourthTotal += math.Pow(speed, 4)
		}
		count++
	}
	if count == 0 || fourthTotal == 0 {
		return mean(paces)
	}
	normalizedSpeed := math.Pow(fourthTotal/float64(count), 0.25)
	if normalizedSpeed <= 0 {
		return mean(paces)
	}
	return peakfit.SpeedToPace(normalizedSpeed)
}

// hrIntensityFactor is the ratio of the session's accumulated TRIMP to the
// TRIMP accumulated at threshold effort, capped at 2.
func hrIntensityFactor(hr []float64, thresholdHR, maxHR float64) float64 {
	if len(hr) == 0 || thresholdHR <= 0 {
		return 0
	}
	thresholdRatio := 0.85
	if maxHR > 0 {
		thresholdRatio = thresholdHR / maxHR
	}
	thresholdFactor := trimpFactor(thresholdRatio)

	totalTrimp := 0.0
	for _, sample := range hr {
		ratio := 0.5
		if maxHR > 0 {
			ratio = math.Min(sample/maxHR, 1.0)
		}
		totalTrimp += trimpFactor(ratio)
	}
	thresholdTrimp := thresholdFactor * float64(len(hr))
	if thresholdTrimp <= 0 {
		return 0
	}
	return math.Min(totalTrimp/thresholdTrimp, maxIntensity)
}

func trimpFactor(ratio float64) float64 {
	if ratio > 0.5 {
		return 0.64 * math.Exp(1.92*ratio)
	}
	return ratio
}

// estimateMaxHR uses the 95th percentile of the sample distribution, falling
// back to the population default when no samples exist.
func estimateMaxHR(hr []float64) float64 {
	if len(hr) == 0 {
		return peakfit.DefaultMaxHeartRateBpm
	}
	sorted := append([]float64(nil), hr...)
	sort.Float64s(sorted)
	idx := int(0.95 * float64(len(sorted)-1))
	return sorted[idx]
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total / float64(len(values))
}

func maxOf(values []float64) float64 {
	best := 0.0
	for _, v := range values {
		if v > best {
			best = v
		}
	}
	return best
}

func minOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	best := values[0]
	for _, v := range values[1:] {
		if v < best {
			best = v
		}
	}
	return best
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round3(v float64) float64 { return math.Round(v*1000) / 1000 }
