package tss

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	peakfit "github.com/fafnerzhang/codetrekking-sub001"
	"github.com/fafnerzhang/codetrekking-sub001/storage"
)

func mustSegment(t *testing.T, minutes float64, metric IntensityMetric, target float64) Segment {
	t.Helper()
	seg, err := NewSegment(minutes, metric, target)
	require.NoError(t, err)
	return seg
}

func TestSegmentValidation(t *testing.T) {
	seg := mustSegment(t, 30, MetricPower, 250)
	assert.Equal(t, 0.5, seg.DurationHours())

	cases := []struct {
		minutes float64
		metric  IntensityMetric
		target  float64
	}{
		{-10, MetricPower, 250},
		{30, MetricPower, -100},
		{30, MetricPower, 3000},
		{30, MetricHeartRate, 300},
		{30, MetricHeartRate, 20},
		{30, MetricPace, 0.5},
		{30, MetricPace, 25},
		{30, IntensityMetric("watts"), 250},
	}
	for _, tc := range cases {
		_, err := NewSegment(tc.minutes, tc.metric, tc.target)
		var verr *peakfit.ValidationError
		assert.True(t, errors.As(err, &verr), "minutes=%v metric=%v target=%v", tc.minutes, tc.metric, tc.target)
	}
}

func TestPlanValidation(t *testing.T) {
	_, err := NewPlan("empty")
	require.Error(t, err)

	plan, err := NewPlan("intervals",
		mustSegment(t, 10, MetricPower, 150),
		mustSegment(t, 30, MetricPower, 250),
		mustSegment(t, 10, MetricPower, 150),
	)
	require.NoError(t, err)
	assert.Equal(t, 50.0, plan.TotalDurationMinutes())
	assert.Len(t, plan.Segments(), 3)
}

func TestEstimatePowerPlan(t *testing.T) {
	calc := newTestCalculator()
	plan, err := NewPlan("over-unders",
		mustSegment(t, 10, MetricPower, 150),
		mustSegment(t, 20, MetricPower, 250),
		mustSegment(t, 10, MetricPower, 150),
	)
	require.NoError(t, err)

	result, err := calc.EstimateWorkoutPlanTSS(context.Background(), plan, "", Overrides{FTP: 250})
	require.NoError(t, err)

	assert.Equal(t, "power", result.PrimaryMethod)
	assert.Equal(t, 3, result.SegmentCount)
	assert.Equal(t, 40.0, result.TotalDurationMinutes)
	assert.Equal(t, "workout_plan_estimation", result.Method)
	assert.Positive(t, result.EstimatedTSS)

	// 20 min at FTP contributes exactly a third of an hour at IF 1.
	threshold := result.Segments[1]
	assert.InDelta(t, 1.0, threshold.IntensityFactor, 0.001)
	assert.InDelta(t, 33.3, threshold.EstimatedTSS, 0.1)
	assert.Equal(t, "250W", threshold.TargetFormatted)
}

func TestEstimatePacePlanInvertedIntensity(t *testing.T) {
	calc := newTestCalculator()
	plan, err := NewPlan("tempo", mustSegment(t, 25, MetricPace, 3.8))
	require.NoError(t, err)

	result, err := calc.EstimateWorkoutPlanTSS(context.Background(), plan, "", Overrides{ThresholdPace: 4.0})
	require.NoError(t, err)

	// Faster than threshold means IF above 1.
	assert.Greater(t, result.Segments[0].IntensityFactor, 1.0)
	assert.Equal(t, "3:48", result.Segments[0].TargetFormatted)
}

func TestEstimateMixedPlanPrimaryMethod(t *testing.T) {
	calc := newTestCalculator()
	plan, err := NewPlan("brick",
		mustSegment(t, 10, MetricPower, 200),
		mustSegment(t, 15, MetricHeartRate, 160),
		mustSegment(t, 20, MetricPace, 4.2),
	)
	require.NoError(t, err)

	result, err := calc.EstimateWorkoutPlanTSS(context.Background(), plan, "",
		Overrides{FTP: 250, ThresholdHR: 170, MaxHR: 190, ThresholdPace: 4.0})
	require.NoError(t, err)

	assert.Equal(t, "power", result.PrimaryMethod)
	assert.Equal(t, 45.0, result.TotalDurationMinutes)
	assert.Len(t, result.Segments, 3)
	assert.Equal(t, "160 bpm", result.Segments[1].TargetFormatted)
}

func TestEstimatePlanUsesStoredThresholds(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	require.NoError(t, store.IndexDocument(ctx, storage.DataTypeUserIndicator, "athlete-1_indicator", storage.Document{
		"user_id":         "athlete-1",
		"threshold_power": 300.0,
	}))
	calc := NewCalculator(store, peakfit.MetricThresholds{})

	plan, err := NewPlan("steady", mustSegment(t, 60, MetricPower, 300))
	require.NoError(t, err)

	result, err := calc.EstimateWorkoutPlanTSS(ctx, plan, "athlete-1", Overrides{})
	require.NoError(t, err)
	assert.Equal(t, 300.0, result.ThresholdsUsed.ThresholdPower)
	assert.InDelta(t, 100.0, result.EstimatedTSS, 0.1)
}

func TestEstimatePlanNil(t *testing.T) {
	calc := newTestCalculator()
	_, err := calc.EstimateWorkoutPlanTSS(context.Background(), nil, "", Overrides{})
	var insufficient *peakfit.InsufficientDataError
	require.True(t, errors.As(err, &insufficient))
}
