package peakfit

// Fallback thresholds used when neither explicit values nor stored athlete
// indicators are available.
const (
	DefaultFTPWatts         = 250.0
	DefaultLTHRBpm          = 170.0
	DefaultThresholdPaceMin = 4.0 // min/km
	DefaultMaxHeartRateBpm  = 185.0
)

// ZoneRange is an inclusive-exclusive [Low, High) bound for a named zone.
type ZoneRange struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// MetricThresholds carries the athlete parameters every calculator keys off.
// Zero values mean "unknown"; resolution order is explicit input, stored
// indicator, zone-derived, then the Default* constants above.
type MetricThresholds struct {
	PowerZones     map[string]ZoneRange `json:"power_zones,omitempty"`
	HeartRateZones map[string]ZoneRange `json:"heart_rate_zones,omitempty"`
	PaceZones      map[string]ZoneRange `json:"pace_zones,omitempty"`

	FunctionalThresholdPower  float64 `json:"functional_threshold_power,omitempty"`
	LactateThresholdHeartRate float64 `json:"lactate_threshold_heart_rate,omitempty"`
	CriticalPaceMinPerKm      float64 `json:"critical_pace,omitempty"`
	MaxHeartRate              float64 `json:"max_heart_rate,omitempty"`
	RestingHeartRate          float64 `json:"resting_heart_rate,omitempty"`
	WeightKg                  float64 `json:"weight_kg,omitempty"`
}
