package tss

import (
	"context"
	"fmt"
	"math"
	"time"

	peakfit "github.com/fafnerzhang/codetrekking-sub001"
)

// IntensityMetric names the channel a workout segment targets.
type IntensityMetric string

const (
	MetricPower     IntensityMetric = "power"
	MetricHeartRate IntensityMetric = "heart_rate"
	MetricPace      IntensityMetric = "pace"
)

// Segment is one constant-intensity block of a planned workout. Build it with
// NewSegment so the plausibility bounds are enforced.
type Segment struct {
	DurationMinutes float64         `json:"duration_minutes"`
	Metric          IntensityMetric `json:"intensity_metric"`
	TargetValue     float64         `json:"target_value"`
}

// NewSegment validates a planned segment. Targets must sit inside metric
// plausibility bounds: power (0, 2500) W, heart rate [30, 250] bpm, pace
// [1, 20] min/km.
func NewSegment(durationMinutes float64, metric IntensityMetric, target float64) (Segment, error) {
	if durationMinutes <= 0 {
		return Segment{}, &peakfit.ValidationError{Field: "duration_minutes", Reason: "must be positive"}
	}
	switch metric {
	case MetricPower:
		if target <= 0 || target >= 2500 {
			return Segment{}, &peakfit.ValidationError{Field: "target_value", Reason: "power target must be in (0, 2500) W"}
		}
	case MetricHeartRate:
		if target < 30 || target > 250 {
			return Segment{}, &peakfit.ValidationError{Field: "target_value", Reason: "heart rate target must be in [30, 250] bpm"}
		}
	case MetricPace:
		if target < 1 || target > 20 {
			return Segment{}, &peakfit.ValidationError{Field: "target_value", Reason: "pace target must be in [1, 20] min/km"}
		}
	default:
		return Segment{}, &peakfit.ValidationError{Field: "intensity_metric", Reason: fmt.Sprintf("unknown metric %q", metric)}
	}
	return Segment{DurationMinutes: durationMinutes, Metric: metric, TargetValue: target}, nil
}

// DurationHours converts the segment duration to hours.
func (s Segment) DurationHours() float64 { return s.DurationMinutes / 60 }

// Plan is an ordered, validated workout plan. Segments are fixed at
// construction.
type Plan struct {
	name     string
	segments []Segment
}

// NewPlan builds a plan from validated segments.
func NewPlan(name string, segments ...Segment) (*Plan, error) {
	if len(segments) == 0 {
		return nil, &peakfit.ValidationError{Field: "segments", Reason: "plan needs at least one segment"}
	}
	return &Plan{name: name, segments: append([]Segment(nil), segments...)}, nil
}

func (p *Plan) Name() string { return p.name }

// Segments returns a copy of the plan's segments.
func (p *Plan) Segments() []Segment { return append([]Segment(nil), p.segments...) }

// TotalDurationMinutes sums the segment durations.
func (p *Plan) TotalDurationMinutes() float64 {
	total := 0.0
	for _, s := range p.segments {
		total += s.DurationMinutes
	}
	return total
}

// SegmentEstimate is the per-segment outcome of a plan estimation.
type SegmentEstimate struct {
	Metric          IntensityMetric `json:"intensity_metric"`
	DurationMinutes float64         `json:"duration_minutes"`
	TargetValue     float64         `json:"target_value"`
	TargetFormatted string          `json:"target_formatted"`
	EstimatedTSS    float64         `json:"estimated_tss"`
	IntensityFactor float64         `json:"intensity_factor"`
}

// ThresholdsUsed records which thresholds the estimation resolved.
type ThresholdsUsed struct {
	ThresholdPower float64 `json:"threshold_power"`
	ThresholdHR    float64 `json:"threshold_hr"`
	MaxHR          float64 `json:"max_hr,omitempty"`
	ThresholdPace  float64 `json:"threshold_pace"`
}

// PlanEstimate is the pre-execution TSS estimate for a whole plan.
type PlanEstimate struct {
	EstimatedTSS         float64           `json:"estimated_tss"`
	TotalDurationMinutes float64           `json:"total_duration_minutes"`
	TotalDurationHours   float64           `json:"total_duration_hours"`
	SegmentCount         int               `json:"segment_count"`
	PrimaryMethod        string            `json:"primary_method"`
	Segments             []SegmentEstimate `json:"segments"`
	ThresholdsUsed       ThresholdsUsed    `json:"thresholds_used"`
	Method               string            `json:"calculation_method"`
	EstimatedAt          time.Time         `json:"estimated_at"`
}

// EstimateWorkoutPlanTSS treats each segment's target as a constant effort
// for its duration and applies the per-channel TSS formulas. Thresholds run
// through the usual resolution chain; userID may be empty when explicit
// overrides are given.
func (c *Calculator) EstimateWorkoutPlanTSS(ctx context.Context, plan *Plan, userID string, overrides Overrides) (*PlanEstimate, error) {
	if plan == nil || len(plan.segments) == 0 {
		return nil, &peakfit.InsufficientDataError{Metric: "workout_plan", Need: 1, Got: 0}
	}
	resolved := c.ResolveThresholds(ctx, userID, overrides)

	estimate := &PlanEstimate{
		SegmentCount: len(plan.segments),
		Segments:     make([]SegmentEstimate, 0, len(plan.segments)),
		ThresholdsUsed: ThresholdsUsed{
			ThresholdPower: resolved.FTP,
			ThresholdHR:    resolved.ThresholdHR,
			MaxHR:          resolved.MaxHR,
			ThresholdPace:  resolved.ThresholdPace,
		},
		Method:      "workout_plan_estimation",
		EstimatedAt: time.Now().UTC(),
	}

	var hasPower, hasHR, hasPace bool
	for _, seg := range plan.segments {
		se, err := estimateSegment(seg, resolved)
		if err != nil {
			return nil, err
		}
		estimate.Segments = append(estimate.Segments, se)
		estimate.EstimatedTSS += se.EstimatedTSS
		estimate.TotalDurationMinutes += seg.DurationMinutes
		switch seg.Metric {
		case MetricPower:
			hasPower = true
		case MetricHeartRate:
			hasHR = true
		case MetricPace:
			hasPace = true
		}
	}

	estimate.EstimatedTSS = round1(estimate.EstimatedTSS)
	estimate.TotalDurationHours = round2(estimate.TotalDurationMinutes / 60)
	switch {
	case hasPower:
		estimate.PrimaryMethod = string(MetricPower)
	case hasHR:
		estimate.PrimaryMethod = string(MetricHeartRate)
	case hasPace:
		estimate.PrimaryMethod = string(MetricPace)
	default:
		estimate.PrimaryMethod = "unknown"
	}
	return estimate, nil
}

func estimateSegment(seg Segment, thresholds Overrides) (SegmentEstimate, error) {
	se := SegmentEstimate{
		Metric:          seg.Metric,
		DurationMinutes: seg.DurationMinutes,
		TargetValue:     seg.TargetValue,
	}

	var intensity float64
	switch seg.Metric {
	case MetricPower:
		if thresholds.FTP <= 0 {
			return se, &peakfit.CalculationError{Op: "segment estimate", Err: &peakfit.ValidationError{Field: "ftp", Reason: "must be positive"}}
		}
		intensity = seg.TargetValue / thresholds.FTP
		se.TargetFormatted = fmt.Sprintf("%dW", int(seg.TargetValue))
	case MetricHeartRate:
		if thresholds.ThresholdHR <= 0 {
			return se, &peakfit.CalculationError{Op: "segment estimate", Err: &peakfit.ValidationError{Field: "threshold_hr", Reason: "must be positive"}}
		}
		intensity = seg.TargetValue / thresholds.ThresholdHR
		se.TargetFormatted = fmt.Sprintf("%d bpm", int(seg.TargetValue))
	case MetricPace:
		if thresholds.ThresholdPace <= 0 {
			return se, &peakfit.CalculationError{Op: "segment estimate", Err: &peakfit.ValidationError{Field: "threshold_pace", Reason: "must be positive"}}
		}
		// Inverted: a faster (numerically lower) pace is harder.
		intensity = thresholds.ThresholdPace / seg.TargetValue
		se.TargetFormatted = peakfit.FormatPace(seg.TargetValue)
	}

	intensity = math.Max(0, math.Min(intensity, maxIntensity))
	se.IntensityFactor = round3(intensity)
	se.EstimatedTSS = round1(seg.DurationHours() * intensity * intensity * 100)
	return se, nil
}
