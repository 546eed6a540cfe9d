package fitproc

import (
	"fmt"
	"time"
)

// fieldSemantic maps a native field number to its profile name, units and
// scaling rule.
type fieldSemantic struct {
	name   string
	units  string
	scaler func(decoded any) (any, bool)
}

var semanticsByMessage = map[uint16]map[uint8]fieldSemantic{
	msgFileID: {
		0: {name: "type"},
		1: {name: "manufacturer"},
		2: {name: "product"},
		3: {name: "serial_number"},
		4: {name: "time_created", units: "s_since_fit_epoch", scaler: scaleTimestamp},
		5: {name: "number"},
		8: {name: "product_name"},
	},
	msgSession: {
		253: {name: "timestamp", units: "s_since_fit_epoch", scaler: scaleTimestamp},
		2:   {name: "start_time", units: "s_since_fit_epoch", scaler: scaleTimestamp},
		5:   {name: "sport", scaler: scaleSport},
		6:   {name: "sub_sport", scaler: scaleSubSport},
		7:   {name: "total_elapsed_time", units: "s", scaler: scaleBy(1000, 0)},
		8:   {name: "total_timer_time", units: "s", scaler: scaleBy(1000, 0)},
		9:   {name: "total_distance", units: "m", scaler: scaleBy(100, 0)},
		11:  {name: "total_calories", units: "kcal"},
		14:  {name: "avg_speed", units: "m/s", scaler: scaleBy(1000, 0)},
		15:  {name: "max_speed", units: "m/s", scaler: scaleBy(1000, 0)},
		16:  {name: "avg_heart_rate", units: "bpm"},
		17:  {name: "max_heart_rate", units: "bpm"},
		18:  {name: "avg_cadence", units: "rpm"},
		19:  {name: "max_cadence", units: "rpm"},
		20:  {name: "avg_power", units: "w"},
		21:  {name: "max_power", units: "w"},
		22:  {name: "total_ascent", units: "m"},
		23:  {name: "total_descent", units: "m"},
		34:  {name: "normalized_power", units: "w"},
		35:  {name: "training_stress_score", scaler: scaleBy(10, 0)},
		36:  {name: "intensity_factor", scaler: scaleBy(1000, 0)},
		57:  {name: "threshold_power", units: "w"},
		87:  {name: "avg_vertical_oscillation", units: "mm", scaler: scaleBy(10, 0)},
		88:  {name: "avg_stance_time_percent", units: "percent", scaler: scaleBy(100, 0)},
		89:  {name: "avg_stance_time", units: "ms", scaler: scaleBy(10, 0)},
	},
	msgLap: {
		253: {name: "timestamp", units: "s_since_fit_epoch", scaler: scaleTimestamp},
		2:   {name: "start_time", units: "s_since_fit_epoch", scaler: scaleTimestamp},
		7:   {name: "total_elapsed_time", units: "s", scaler: scaleBy(1000, 0)},
		8:   {name: "total_timer_time", units: "s", scaler: scaleBy(1000, 0)},
		9:   {name: "total_distance", units: "m", scaler: scaleBy(100, 0)},
		11:  {name: "total_calories", units: "kcal"},
		13:  {name: "avg_speed", units: "m/s", scaler: scaleBy(1000, 0)},
		14:  {name: "max_speed", units: "m/s", scaler: scaleBy(1000, 0)},
		15:  {name: "avg_heart_rate", units: "bpm"},
		16:  {name: "max_heart_rate", units: "bpm"},
		17:  {name: "avg_cadence", units: "rpm"},
		18:  {name: "max_cadence", units: "rpm"},
		19:  {name: "avg_power", units: "w"},
		20:  {name: "max_power", units: "w"},
		21:  {name: "total_ascent", units: "m"},
		22:  {name: "total_descent", units: "m"},
		42:  {name: "total_work", units: "j"},
	},
	msgRecord: {
		253: {name: "timestamp", units: "s_since_fit_epoch", scaler: scaleTimestamp},
		0:   {name: "position_lat", units: "semicircles"},
		1:   {name: "position_long", units: "semicircles"},
		2:   {name: "altitude", units: "m", scaler: scaleBy(5, 500)},
		3:   {name: "heart_rate", units: "bpm"},
		4:   {name: "cadence", units: "rpm"},
		5:   {name: "distance", units: "m", scaler: scaleBy(100, 0)},
		6:   {name: "speed", units: "m/s", scaler: scaleBy(1000, 0)},
		7:   {name: "power", units: "w"},
		9:   {name: "grade", units: "percent", scaler: scaleBy(100, 0)},
		13:  {name: "temperature", units: "c"},
		39:  {name: "vertical_oscillation", units: "mm", scaler: scaleBy(10, 0)},
		40:  {name: "stance_time_percent", units: "percent", scaler: scaleBy(100, 0)},
		41:  {name: "stance_time", units: "ms", scaler: scaleBy(10, 0)},
		73:  {name: "enhanced_speed", units: "m/s", scaler: scaleBy(1000, 0)},
		78:  {name: "enhanced_altitude", units: "m", scaler: scaleBy(5, 500)},
		83:  {name: "vertical_ratio", units: "percent", scaler: scaleBy(100, 0)},
		84:  {name: "stance_time_balance", units: "percent", scaler: scaleBy(100, 0)},
		85:  {name: "step_length", units: "mm", scaler: scaleBy(10, 0)},
	},
	msgDeviceInfo: {
		253: {name: "timestamp", units: "s_since_fit_epoch", scaler: scaleTimestamp},
		0:   {name: "device_index"},
		1:   {name: "device_type"},
		2:   {name: "manufacturer"},
		3:   {name: "serial_number"},
		4:   {name: "product"},
		5:   {name: "software_version", scaler: scaleBy(100, 0)},
		27:  {name: "product_name"},
	},
	msgFieldDescription: {
		0: {name: "developer_data_index"},
		1: {name: "field_definition_number"},
		2: {name: "fit_base_type_id"},
		3: {name: "field_name"},
		6: {name: "native_mesg_num"},
		7: {name: "native_field_num"},
		8: {name: "units"},
	},
	msgDeveloperDataID: {
		0: {name: "developer_id"},
		1: {name: "application_id"},
		2: {name: "manufacturer_id"},
		3: {name: "developer_data_index"},
		4: {name: "application_version"},
	},
}

func semanticForField(global uint16, field uint8) fieldSemantic {
	if m, ok := semanticsByMessage[global]; ok {
		if s, ok := m[field]; ok {
			return s
		}
	}
	return fieldSemantic{name: fmt.Sprintf("field_%d", field)}
}

func scaleBy(scale, offset float64) func(any) (any, bool) {
	return func(decoded any) (any, bool) {
		if v, ok := asFloat(decoded); ok {
			return (v / scale) - offset, true
		}
		return nil, false
	}
}

func scaleTimestamp(decoded any) (any, bool) {
	var raw uint32
	switch v := decoded.(type) {
	case uint32:
		raw = v
	case uint64:
		raw = uint32(v)
	default:
		return nil, false
	}
	if raw == 0xFFFFFFFF {
		return nil, false
	}
	return fitEpoch.Add(time.Duration(raw) * time.Second).UTC().Format(time.RFC3339), true
}

var sportNames = map[uint8]string{
	0:  "generic",
	1:  "running",
	2:  "cycling",
	3:  "transition",
	4:  "fitness_equipment",
	5:  "swimming",
	11: "walking",
	17: "hiking",
	10: "training",
}

var subSportNames = map[uint8]string{
	0:  "generic",
	1:  "treadmill",
	2:  "street",
	3:  "trail",
	4:  "track",
	7:  "indoor_cycling",
	8:  "road",
	9:  "mountain",
	58: "virtual_activity",
}

func scaleSport(decoded any) (any, bool) {
	v, ok := decoded.(uint8)
	if !ok {
		return nil, false
	}
	if name, ok := sportNames[v]; ok {
		return name, true
	}
	return fmt.Sprintf("sport_%d", v), true
}

func scaleSubSport(decoded any) (any, bool) {
	v, ok := decoded.(uint8)
	if !ok {
		return nil, false
	}
	if name, ok := subSportNames[v]; ok {
		return name, true
	}
	return fmt.Sprintf("sub_sport_%d", v), true
}

// ANT+ device types able to report power.
const (
	deviceTypeBikePower           = 11
	deviceTypeStrideSpeedDistance = 124
)

// FIT manufacturer ids for makers of power meters and footpods.
var powerManufacturers = map[uint16]string{
	6:  "srm",
	7:  "quarq",
	9:  "powertap",
	69: "stages",
	95: "stryd",
}

var manufacturerNames = map[uint16]string{
	1:   "garmin",
	6:   "srm",
	7:   "quarq",
	9:   "powertap",
	16:  "timex",
	23:  "suunto",
	32:  "wahoo_fitness",
	69:  "stages",
	95:  "stryd",
	260: "zwift",
}

func manufacturerName(id uint16) string {
	if name, ok := manufacturerNames[id]; ok {
		return name
	}
	return fmt.Sprintf("manufacturer_%d", id)
}

func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int8:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint8:
		return float64(x), true
	case uint16:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	default:
		return 0, false
	}
}
