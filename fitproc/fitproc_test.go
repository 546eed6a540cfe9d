package fitproc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fafnerzhang/codetrekking-sub001/storage"
)

func TestNormalizeFieldName(t *testing.T) {
	cases := map[string]string{
		"Stryd Temperature":  "stryd_temperature",
		"Form Power":         "form_power",
		"leftRightBalance":   "left_right_balance",
		"Ground  Time":       "ground_time",
		"impact-loading-rate": "impact_loading_rate",
		"power":              "power",
	}
	for in, want := range cases {
		assert.Equal(t, want, normalizeFieldName(in), in)
	}
}

func TestResolveValueSentinels(t *testing.T) {
	for _, sentinel := range []float64{0xFF, 65534, 0xFFFF} {
		_, ok := resolveValue("cadence", sentinel)
		assert.False(t, ok, "sentinel %v must be dropped", sentinel)
	}
	v, ok := resolveValue("cadence", uint8(90))
	require.True(t, ok)
	assert.Equal(t, 90.0, v)
}

func TestResolveValueSemicircles(t *testing.T) {
	v, ok := resolveValue("position_lat", int32(1073741824)) // 2^30
	require.True(t, ok)
	assert.InDelta(t, 90.0, v.(float64), 1e-9)

	// Small magnitudes are already degrees and pass through.
	v, ok = resolveValue("position_long", 121.5)
	require.True(t, ok)
	assert.Equal(t, 121.5, v)
}

func TestResolveValuePlausibility(t *testing.T) {
	_, ok := resolveValue("power", 2500.0)
	assert.False(t, ok)
	_, ok = resolveValue("heart_rate", 20.0)
	assert.False(t, ok)
	_, ok = resolveValue("avg_heart_rate", 221.0)
	assert.False(t, ok)

	v, ok := resolveValue("power", 350.0)
	require.True(t, ok)
	assert.Equal(t, 350.0, v)
}

func TestResolveValueTimestamp(t *testing.T) {
	v, ok := resolveValue("timestamp", uint32(0))
	require.True(t, ok)
	assert.Equal(t, "1989-12-31T00:00:00Z", v)
}

func TestRegistryResolvesAndFallsBack(t *testing.T) {
	reg := NewDeveloperRegistry()
	assert.Equal(t, "dev_field_3_7", reg.ResolveName(3, 7))

	reg.AddFieldDescription(Message{
		Global: msgFieldDescription,
		Fields: []FieldValue{
			{FieldNumber: 0, Value: uint8(0)},
			{FieldNumber: 1, Value: uint8(5)},
			{FieldNumber: 2, Value: uint8(0x84)},
			{FieldNumber: 3, Value: "Form Power"},
			{FieldNumber: 8, Value: "W"},
		},
	})
	assert.Equal(t, "form_power", reg.ResolveName(0, 5))
	assert.Equal(t, "W", reg.Units(0, 5))

	name, value, ok := reg.DecodeValue(DeveloperFieldValue{
		FieldNumber:    5,
		DeveloperIndex: 0,
		Raw:            []byte{0x2C, 0x01}, // uint16 LE 300
	})
	require.True(t, ok)
	assert.Equal(t, "form_power", name)
	assert.Equal(t, 300.0, value)
}

func TestFieldClassification(t *testing.T) {
	assert.True(t, isPowerField("form_power"))
	assert.True(t, isPowerField("avg_power"))
	assert.True(t, isPowerField("enhanced_power"))
	assert.False(t, isPowerField("power_position"))
	assert.False(t, isPowerField("heart_rate"))

	assert.True(t, isRunningDynamicsField("vertical_oscillation"))
	assert.True(t, isRunningDynamicsField("stance_time_percent"))
	assert.True(t, isRunningDynamicsField("leg_spring_stiffness"))
	assert.False(t, isRunningDynamicsField("fractional_cadence"))
	assert.False(t, isRunningDynamicsField("total_distance"))

	assert.True(t, isEnvironmentalField("stryd_temperature"))
	assert.True(t, isEnvironmentalField("humidity"))
	assert.False(t, isEnvironmentalField("power"))

	assert.True(t, isEssentialField("total_distance"))
	assert.True(t, isEssentialField("training_stress_score"))
	assert.False(t, isEssentialField("left_pedal_smoothness"))
}

func TestCategorizeRecordLocationAndBuckets(t *testing.T) {
	flat := storage.Document{
		"activity_id":          "a1",
		"user_id":              "u1",
		"sequence":             0,
		"timestamp":            "2026-03-14T08:00:00Z",
		"heart_rate":           150.0,
		"power":                250.0,
		"enhanced_speed":       3.9,
		"position_lat":         25.03,
		"position_long":        121.56,
		"form_power":           72.0,
		"vertical_oscillation": 8.2,
		"temperature":          24.0,
	}
	doc := categorizeRecord(flat)

	assert.Equal(t, 250.0, doc["power"])
	assert.Equal(t, 3.9, doc["speed"])

	loc, ok := doc["location"].(storage.Document)
	require.True(t, ok)
	assert.Equal(t, 25.03, loc["lat"])

	power, ok := doc[bucketPower].(storage.Document)
	require.True(t, ok)
	assert.Equal(t, 72.0, power["form_power"])

	dynamics, ok := doc[bucketRunningDynamics].(storage.Document)
	require.True(t, ok)
	assert.Equal(t, 8.2, dynamics["vertical_oscillation"])

	env, ok := doc[bucketEnvironmental].(storage.Document)
	require.True(t, ok)
	assert.Equal(t, 24.0, env["temperature"])
}

func TestCategorizeRecordDropsOutOfBoundsLocation(t *testing.T) {
	doc := categorizeRecord(storage.Document{
		"position_lat":  95.0,
		"position_long": 10.0,
	})
	_, ok := doc["location"]
	assert.False(t, ok)
}

func TestCategorizeSessionKeepsEverything(t *testing.T) {
	doc := categorizeSession(storage.Document{
		"activity_id":    "a1",
		"sport":          "running",
		"total_distance": 10000.0,
		"avg_power":      260.0,
		"first_lap_index": 0.0,
	})
	assert.Equal(t, "running", doc["sport"])
	assert.Equal(t, 10000.0, doc["total_distance"])

	power := doc[bucketPower].(storage.Document)
	assert.Equal(t, 260.0, power["power"])

	additional := doc[bucketAdditionalFields].(storage.Document)
	assert.Equal(t, 0.0, additional["first_lap_index"])
}

func makeRecord(seq int, ts time.Time, power float64) storage.Document {
	return storage.Document{
		"sequence":  seq,
		"timestamp": ts.Format(time.RFC3339),
		"power":     power,
		bucketRunningDynamics: storage.Document{
			"ground_time": 240.0 + float64(seq),
		},
	}
}

func TestEnrichLapSelectsWindow(t *testing.T) {
	start := time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC)
	records := make([]storage.Document, 0, 100)
	for i := 0; i < 100; i++ {
		records = append(records, makeRecord(i, start.Add(time.Duration(i)*time.Second), 200.0+float64(i)))
	}

	lap := storage.Document{
		"lap_number":         1,
		"start_time":         start.Format(time.RFC3339),
		"total_elapsed_time": 30.0,
	}
	EnrichLap(lap, records)

	power := lap[bucketPower].(storage.Document)
	// Window covers samples 0..30 inclusive: powers 200..230.
	assert.Equal(t, 215.0, power["avg_power"])
	assert.Equal(t, 230.0, power["max_power"])
	assert.Equal(t, 200.0, power["min_power"])

	dynamics := lap[bucketRunningDynamics].(storage.Document)
	assert.Equal(t, 270.0, dynamics["max_ground_time"])
}

func TestEnrichLapPositionalFallback(t *testing.T) {
	records := make([]storage.Document, 0, 10)
	for i := 0; i < 10; i++ {
		records = append(records, storage.Document{"sequence": i, "power": 100.0 * float64(i+1)})
	}

	// Second of two laps, no usable timing: takes the second half.
	lap := storage.Document{"lap_number": 2}
	EnrichLap(lap, records)

	power := lap[bucketPower].(storage.Document)
	assert.Equal(t, 600.0, power["min_power"])
	assert.Equal(t, 1000.0, power["max_power"])
}

func TestEnrichSessionRoundsAverages(t *testing.T) {
	records := []storage.Document{
		{"power": 100.0},
		{"power": 101.0},
		{"power": 101.0},
	}
	session := storage.Document{}
	EnrichSession(session, records)
	power := session[bucketPower].(storage.Document)
	assert.Equal(t, 100.67, power["avg_power"])
}

func sessionMessage(startRaw uint32) Message {
	return Message{
		Global: msgSession,
		Fields: []FieldValue{
			{FieldNumber: 253, Value: startRaw + 600},
			{FieldNumber: 2, Value: startRaw},
			{FieldNumber: 5, Value: uint8(1)},
			{FieldNumber: 7, Value: uint32(600000)},
			{FieldNumber: 9, Value: uint32(250000)},
			{FieldNumber: 16, Value: uint8(150)},
			{FieldNumber: 20, Value: uint16(255)}, // sentinel avg_power, dropped
		},
	}
}

func TestProcessMessagesEndToEnd(t *testing.T) {
	const startRaw uint32 = 1000000000
	start := fitEpoch.Add(time.Duration(startRaw) * time.Second)

	msgs := []Message{
		{
			Global: msgDeveloperDataID,
			Fields: []FieldValue{{FieldNumber: 3, Value: uint8(0)}},
		},
		{
			Global: msgFieldDescription,
			Fields: []FieldValue{
				{FieldNumber: 0, Value: uint8(0)},
				{FieldNumber: 1, Value: uint8(5)},
				{FieldNumber: 2, Value: uint8(0x84)},
				{FieldNumber: 3, Value: "Form Power"},
				{FieldNumber: 8, Value: "W"},
			},
		},
		{
			Global: msgDeviceInfo,
			Fields: []FieldValue{
				{FieldNumber: 2, Value: uint16(95)}, // stryd
				{FieldNumber: 27, Value: "Stryd Pod"},
			},
		},
		sessionMessage(startRaw),
	}
	for i := 0; i < 10; i++ {
		msgs = append(msgs, Message{
			Global: msgRecord,
			Fields: []FieldValue{
				{FieldNumber: 253, Value: startRaw + uint32(i)},
				{FieldNumber: 7, Value: uint16(300 + i)},
				{FieldNumber: 3, Value: uint8(150)},
			},
			DeveloperFields: []DeveloperFieldValue{
				{FieldNumber: 5, DeveloperIndex: 0, Raw: []byte{0x48, 0x00}}, // 72 W
			},
		})
	}
	msgs = append(msgs, Message{
		Global: msgLap,
		Fields: []FieldValue{
			{FieldNumber: 2, Value: startRaw},
			{FieldNumber: 7, Value: uint32(4000)}, // 4 s window
		},
	})

	proc := NewProcessor("act-7", "athlete-2", nil)
	result, err := proc.ProcessMessages(msgs)
	require.NoError(t, err)

	assert.Equal(t, "act-7_session", SessionDocID(result.ActivityID))
	assert.Equal(t, "act-7_record_3", RecordDocID(result.ActivityID, 3))
	assert.Equal(t, "act-7_lap_1", LapDocID(result.ActivityID, 1))

	assert.Equal(t, "running", result.Session["sport"])
	assert.Equal(t, 2500.0, result.Session["total_distance"])
	assert.Equal(t, start.Format(time.RFC3339), result.Session["start_time"])
	_, hasAvgPower := result.Session["avg_power"]
	assert.False(t, hasAvgPower, "sentinel avg_power must not be stored")

	require.Len(t, result.Records, 10)
	first := result.Records[0]
	assert.Equal(t, 300.0, first["power"])
	powerBucket := first[bucketPower].(storage.Document)
	assert.Equal(t, 72.0, powerBucket["form_power"])

	require.Len(t, result.Laps, 1)
	lap := result.Laps[0]
	assert.Equal(t, 1, lap["lap_number"])
	lapPower := lap[bucketPower].(storage.Document)
	// Window covers records 0..4: powers 300..304.
	assert.Equal(t, 302.0, lapPower["avg_power"])
	assert.Equal(t, 304.0, lapPower["max_power"])

	require.Len(t, result.Metadata.PowerSources, 1)
	assert.Equal(t, "stryd", result.Metadata.PowerSources[0]["manufacturer"])

	// Session aggregation picked up record power and developer form power.
	sessionPower := result.Session[bucketPower].(storage.Document)
	assert.Equal(t, 304.5, sessionPower["avg_power"])
	assert.Equal(t, 72.0, sessionPower["avg_form_power"])
}
