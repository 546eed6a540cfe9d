package fitproc

import (
	"strings"

	"github.com/fafnerzhang/codetrekking-sub001/storage"
)

// Category bucket keys inside session, record and lap documents.
const (
	bucketPower            = "power_fields"
	bucketRunningDynamics  = "running_dynamics"
	bucketEnvironmental    = "environmental"
	bucketAdditionalFields = "additional_fields"
)

var allowedPowerFields = map[string]struct{}{
	"power": {}, "form_power": {}, "air_power": {}, "lap_power": {},
	"enhanced_power": {}, "normalized_power": {},
	"functional_threshold_power": {}, "threshold_power": {}, "cp": {},
	"left_power": {}, "right_power": {}, "left_right_balance": {},
	"left_torque_effectiveness": {}, "right_torque_effectiveness": {},
	"left_pedal_smoothness": {}, "right_pedal_smoothness": {}, "combined_pedal_smoothness": {},
	"training_stress_score": {}, "tss": {}, "intensity_factor": {},
}

var allowedRunningDynamicsFields = map[string]struct{}{
	"ground_time": {}, "ground_contact_time": {}, "stance_time": {}, "stance_time_percent": {},
	"stance_time_balance": {}, "ground_contact_balance": {},
	"vertical_oscillation": {}, "vertical_ratio": {}, "vertical_oscillation_percent": {},
	"step_length": {}, "stride_frequency": {}, "step_frequency": {},
	"impact_loading_rate": {}, "leg_spring_stiffness": {},
	"duty_factor": {}, "flight_time": {}, "form_power_ratio": {},
	"left_right_balance": {}, "efficiency_score": {},
}

var runningDynamicsKeywords = []string{
	"oscillation", "stance", "ground", "contact", "vertical", "step_length",
	"loading", "stiffness", "flight", "form_power",
}

var runningDynamicsExcluded = map[string]struct{}{
	"cadence_position": {}, "max_cadence_position": {}, "avg_cadence_position": {},
	"total_distance": {}, "distance": {}, "total_strides": {}, "strides": {},
	"wkt_step_index": {}, "message_index": {}, "fractional_cadence": {},
	"running_cadence": {}, "max_running_cadence": {}, "avg_running_cadence": {},
}

var powerFieldExcluded = map[string]struct{}{
	"power_position": {}, "max_power_position": {}, "avg_power_position": {},
}

var essentialIndicators = []string{
	"distance", "total_distance",
	"elapsed_time", "total_elapsed_time", "timer_time",
	"calories", "total_calories",
	"avg_speed", "max_speed",
	"avg_heart_rate", "max_heart_rate",
	"total_ascent", "total_descent",
	"avg_cadence", "max_cadence",
	"training_stress_score", "tss",
	"normalized_power", "np",
	"intensity_factor", "if",
	"threshold_power", "ftp",
}

var environmentalIndicators = []string{
	"temperature", "humidity", "pressure", "wind", "air", "baseline",
	"stryd_temp", "stryd_hum", "elevation",
}

func stripAggPrefix(name string) string {
	if strings.HasPrefix(name, "avg_") || strings.HasPrefix(name, "max_") {
		return name[4:]
	}
	return name
}

func isPowerField(name string) bool {
	n := normalizeFieldName(name)
	base := stripAggPrefix(n)
	if base != n {
		_, ok := allowedPowerFields[base]
		return ok
	}
	if strings.Contains(n, "power") {
		if _, excluded := powerFieldExcluded[n]; !excluded {
			return true
		}
		return false
	}
	_, ok := allowedPowerFields[n]
	return ok
}

func isRunningDynamicsField(name string) bool {
	n := normalizeFieldName(name)
	base := stripAggPrefix(n)
	if base != n {
		_, ok := allowedRunningDynamicsFields[base]
		return ok
	}
	if _, excluded := runningDynamicsExcluded[n]; excluded {
		return false
	}
	for _, kw := range runningDynamicsKeywords {
		if strings.Contains(n, kw) {
			return true
		}
	}
	_, ok := allowedRunningDynamicsFields[n]
	return ok
}

func isEnvironmentalField(name string) bool {
	lower := strings.ToLower(name)
	for _, indicator := range environmentalIndicators {
		if strings.Contains(lower, indicator) {
			return true
		}
	}
	return false
}

func isEssentialField(name string) bool {
	lower := strings.ToLower(name)
	for _, indicator := range essentialIndicators {
		if strings.Contains(lower, indicator) {
			return true
		}
	}
	return false
}

// displayName folds per-sample aggregate aliases onto their base metric name
// so session and lap statistics line up with record fields.
var displayAliases = map[string]string{
	"avg_power":                "power",
	"avg_ground_time":          "ground_time",
	"avg_vertical_oscillation": "vertical_oscillation",
	"avg_vertical_ratio":       "vertical_ratio",
	"avg_step_length":          "step_length",
	"avg_stance_time":          "stance_time",
}

func displayName(name string) string {
	n := normalizeFieldName(name)
	if alias, ok := displayAliases[n]; ok {
		return alias
	}
	return n
}

var sessionCoreFields = map[string]struct{}{
	"activity_id": {}, "user_id": {}, "timestamp": {}, "start_time": {},
	"sport": {}, "sub_sport": {},
}

// categorizeSession splits a flat session field map into the categorized
// document shape: identity and sport fields stay at the top, power and
// running dynamics move into buckets, everything uncategorized lands in
// additional_fields.
func categorizeSession(flat storage.Document) storage.Document {
	out := storage.Document{}
	for key := range sessionCoreFields {
		if v, ok := flat[key]; ok {
			out[key] = v
		}
	}

	power := storage.Document{}
	dynamics := storage.Document{}
	environmental := storage.Document{}
	additional := storage.Document{}

	for name, value := range flat {
		if _, core := sessionCoreFields[name]; core {
			continue
		}
		switch {
		case isPowerField(name):
			power[displayName(name)] = value
		case isRunningDynamicsField(name):
			dynamics[displayName(name)] = value
		case isEnvironmentalField(name):
			environmental[name] = value
		case isEssentialField(name):
			out[name] = value
		default:
			additional[name] = value
		}
	}

	attachBuckets(out, power, dynamics, environmental, additional)
	return out
}

var recordCoreFields = []string{
	"activity_id", "user_id", "sequence", "timestamp", "elapsed_time",
	"distance", "heart_rate", "power",
}

// categorizeRecord shapes one per-second sample. Uncategorized extras are
// dropped here, unlike sessions and laps, to keep the record stream lean.
func categorizeRecord(flat storage.Document) storage.Document {
	out := storage.Document{}
	for _, key := range recordCoreFields {
		if v, ok := flat[key]; ok {
			out[key] = v
		}
	}
	if v, ok := flat["speed"]; ok {
		out["speed"] = v
	} else if v, ok := flat["enhanced_speed"]; ok {
		out["speed"] = v
	}

	lat, okLat := asFloat(flat["position_lat"])
	lon, okLon := asFloat(flat["position_long"])
	if okLat && okLon && lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180 {
		out["location"] = storage.Document{"lat": lat, "lon": lon}
	}

	power := storage.Document{}
	dynamics := storage.Document{}
	environmental := storage.Document{}

	for name, value := range flat {
		if _, taken := out[name]; taken {
			continue
		}
		if name == "speed" || name == "enhanced_speed" || strings.HasPrefix(name, "position_") {
			continue
		}
		switch {
		case isPowerField(name) && name != "power":
			power[displayName(name)] = value
		case isRunningDynamicsField(name):
			dynamics[displayName(name)] = value
		case isEnvironmentalField(name):
			environmental[name] = value
		}
	}

	attachBuckets(out, power, dynamics, environmental, nil)
	return out
}

var lapCoreFields = map[string]struct{}{
	"activity_id": {}, "user_id": {}, "timestamp": {}, "start_time": {},
	"sport": {}, "sub_sport": {}, "lap_number": {},
}

func categorizeLap(flat storage.Document) storage.Document {
	out := storage.Document{}
	for key := range lapCoreFields {
		if v, ok := flat[key]; ok {
			out[key] = v
		}
	}

	power := storage.Document{}
	dynamics := storage.Document{}
	environmental := storage.Document{}
	additional := storage.Document{}

	for name, value := range flat {
		if _, core := lapCoreFields[name]; core {
			continue
		}
		switch {
		case isPowerField(name):
			power[displayName(name)] = value
		case isRunningDynamicsField(name):
			dynamics[displayName(name)] = value
		case isEnvironmentalField(name):
			environmental[name] = value
		case isEssentialField(name):
			out[name] = value
		default:
			additional[name] = value
		}
	}

	attachBuckets(out, power, dynamics, environmental, additional)
	return out
}

func attachBuckets(out, power, dynamics, environmental, additional storage.Document) {
	if len(power) > 0 {
		out[bucketPower] = power
	}
	if len(dynamics) > 0 {
		out[bucketRunningDynamics] = dynamics
	}
	if len(environmental) > 0 {
		out[bucketEnvironmental] = environmental
	}
	if len(additional) > 0 {
		out[bucketAdditionalFields] = additional
	}
}
