package zones

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	peakfit "github.com/fafnerzhang/codetrekking-sub001"
)

func TestPalladinoZoneBounds(t *testing.T) {
	result, err := PowerZones(PowerStevePalladino, 200, PowerOptions{})
	require.NoError(t, err)
	require.Len(t, result.Zones, 7)

	assert.Equal(t, 100.0, result.Zones[0].Low)
	assert.Equal(t, 160.0, result.Zones[0].High)
	assert.Equal(t, 302.0, result.Zones[6].Low)
	assert.Equal(t, 600.0, result.Zones[6].High)
}

func TestStrydZoneBounds(t *testing.T) {
	result, err := PowerZones(PowerStrydRunning, 250, PowerOptions{})
	require.NoError(t, err)
	require.Len(t, result.Zones, 5)

	assert.Equal(t, 162.5, result.Zones[0].Low)
	assert.Equal(t, 200.0, result.Zones[0].High)
}

func TestCriticalPowerZone(t *testing.T) {
	result, err := PowerZones(PowerCriticalPower, 280, PowerOptions{})
	require.NoError(t, err)

	var cp *Zone
	for i := range result.Zones {
		if result.Zones[i].Name == "Critical Power" {
			cp = &result.Zones[i]
		}
	}
	require.NotNil(t, cp)
	assert.InDelta(t, 280.0, cp.Low, 1e-9)
	assert.InDelta(t, 294.0, cp.High, 1e-9)
	assert.Equal(t, DefaultWPrimeKJ, result.WPrimeKJ)
}

func TestPowerZonesOrderedAndContiguous(t *testing.T) {
	for _, method := range []PowerMethod{PowerStevePalladino, PowerStrydRunning, PowerCriticalPower} {
		result, err := PowerZones(method, 237, PowerOptions{})
		require.NoError(t, err, method)
		for i, z := range result.Zones {
			assert.Equal(t, i+1, z.Number, method)
			assert.Less(t, z.Low, z.High, method)
			if i > 0 {
				assert.GreaterOrEqual(t, z.Low, result.Zones[i-1].High-0.02*237, method)
			}
		}
	}
}

func TestPowerZonesRejectsBadThreshold(t *testing.T) {
	_, err := PowerZones(PowerStevePalladino, 0, PowerOptions{})
	var verr *peakfit.ValidationError
	require.True(t, errors.As(err, &verr))

	_, err = PowerZones(PowerMethod("unknown"), 250, PowerOptions{})
	require.Error(t, err)
}

func TestPowerZonesWattsPerKg(t *testing.T) {
	result, err := PowerZones(PowerStrydRunning, 300, PowerOptions{BodyWeightKg: 75})
	require.NoError(t, err)
	assert.InDelta(t, 4.0, result.WattsPerKg, 1e-9)
}

func TestJoeFrielPaceZones(t *testing.T) {
	result, err := PaceZones(PaceJoeFriel, 4.0, PaceOptions{})
	require.NoError(t, err)
	require.Len(t, result.Zones, 7)

	super := result.Zones[4]
	assert.Equal(t, "Super-Threshold", super.Name)
	assert.InDelta(t, 3.88, super.Low, 0.001)
	assert.InDelta(t, 4.0, super.High, 0.001)

	// Zone numbers ascend as paces get faster.
	assert.True(t, math.IsInf(result.Zones[0].High, 1))
	for i := 1; i < len(result.Zones); i++ {
		assert.LessOrEqual(t, result.Zones[i].Low, result.Zones[i-1].Low)
	}
}

func TestJoeFrielPaceFromRace(t *testing.T) {
	// 5K in 20:00 is a 4:00/km race pace; threshold is ~3% slower.
	result, err := PaceZones(PaceJoeFriel, 0, PaceOptions{RaceDistanceKm: 5, RaceTimeSeconds: 1200})
	require.NoError(t, err)
	assert.InDelta(t, 4.12, result.ThresholdPace, 0.001)
}

func TestRaceTimeToVDOT(t *testing.T) {
	vdot, err := RaceTimeToVDOT(5, 1200)
	require.NoError(t, err)
	assert.InDelta(t, 49.8, vdot, 0.1)

	_, err = RaceTimeToVDOT(0, 1200)
	require.Error(t, err)
}

func TestJackDanielsPaceOrdering(t *testing.T) {
	result, err := PaceZones(PaceJackDaniels, 0, PaceOptions{VDOT: 50})
	require.NoError(t, err)
	require.Len(t, result.Zones, 5)
	assert.Equal(t, 50.0, result.VDOT)

	// E through R reference paces get progressively faster.
	for i := 1; i < len(result.Zones); i++ {
		assert.Less(t, result.Zones[i].Low, result.Zones[i-1].Low)
	}
	assert.Positive(t, result.ThresholdPace)
}

func TestPZIZones(t *testing.T) {
	result, err := PaceZones(PacePZI, 0, PaceOptions{RaceDistanceKm: 5, RaceTimeSeconds: 1200})
	require.NoError(t, err)
	require.Len(t, result.Zones, 10)

	threshold := result.Zones[5]
	assert.Equal(t, "Threshold", threshold.Name)
	assert.InDelta(t, 3.8, threshold.Low, 0.001)
	assert.InDelta(t, 4.2, threshold.High, 0.001)
	assert.InDelta(t, 3.8, result.ThresholdPace, 0.001)

	speed := result.Zones[9]
	assert.InDelta(t, 3.0, speed.Low, 0.001)
}

func TestFormatZone(t *testing.T) {
	fast, slow := FormatZone(Zone{Low: 3.8, High: 4.2})
	assert.Equal(t, "3:48", fast)
	assert.Equal(t, "4:12", slow)
}

func TestSallyEdwardsZones(t *testing.T) {
	result, err := HeartRateZones(HRSallyEdwards, HeartRateOptions{MaxHeartRate: 190})
	require.NoError(t, err)
	require.Len(t, result.Zones, 5)

	assert.Equal(t, 95.0, result.Zones[0].Low)
	assert.Equal(t, 114.0, result.Zones[0].High)
	assert.Equal(t, 190.0, result.Zones[4].High)
}

func TestTimexZonesFromAge(t *testing.T) {
	result, err := HeartRateZones(HRTimex, HeartRateOptions{Age: 30})
	require.NoError(t, err)
	assert.InDelta(t, 187, result.MaxHeartRate, 0.001) // tanaka: 208 - 0.7*30
}

func TestJoeFrielHRZones(t *testing.T) {
	result, err := HeartRateZones(HRJoeFriel, HeartRateOptions{LactateThresholdHeartRate: 170})
	require.NoError(t, err)
	require.Len(t, result.Zones, 7)

	lt := result.Zones[3]
	assert.Equal(t, "Lactate Threshold", lt.Name)
	assert.InDelta(t, 161.5, lt.Low, 0.001)
	assert.InDelta(t, 168.3, lt.High, 0.001)
}

func TestJoeFrielHREstimatesLTHR(t *testing.T) {
	result, err := HeartRateZones(HRJoeFriel, HeartRateOptions{MaxHeartRate: 200})
	require.NoError(t, err)
	assert.InDelta(t, 172, result.LactateThresholdHeartRate, 0.001)

	_, err = HeartRateZones(HRJoeFriel, HeartRateOptions{})
	require.Error(t, err)
}

func TestEstimateMaxHeartRateFormulas(t *testing.T) {
	assert.InDelta(t, 187.0, EstimateMaxHeartRate(30, "tanaka"), 0.001)
	assert.InDelta(t, 179.6, EstimateMaxHeartRate(30, "gulati"), 0.001)
	assert.InDelta(t, 182.1, EstimateMaxHeartRate(30, "fairbarn"), 0.001)
}
