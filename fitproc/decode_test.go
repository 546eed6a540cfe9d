package fitproc

import (
	"bytes"
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tormoder/fit"

	"github.com/fafnerzhang/codetrekking-sub001/storage"
)

func buildActivityFIT(t *testing.T, powers []uint16) []byte {
	t.Helper()

	header := fit.NewHeader(fit.V20, true)
	file, err := fit.NewFile(fit.FileTypeActivity, header)
	require.NoError(t, err)

	activity, err := file.Activity()
	require.NoError(t, err)

	start := time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC)
	begin := fit.NewEventMsg()
	begin.Timestamp = start
	begin.Event = fit.EventTimer
	begin.EventType = fit.EventTypeStart
	activity.Events = append(activity.Events, begin)

	for i, p := range powers {
		rec := fit.NewRecordMsg()
		rec.Timestamp = start.Add(time.Duration(i) * time.Second)
		rec.HeartRate = 142
		rec.Cadence = 88
		rec.Power = p
		activity.Records = append(activity.Records, rec)
	}

	stop := fit.NewEventMsg()
	stop.Timestamp = start.Add(time.Duration(len(powers)) * time.Second)
	stop.Event = fit.EventTimer
	stop.EventType = fit.EventTypeStop
	activity.Events = append(activity.Events, stop)

	var buf bytes.Buffer
	require.NoError(t, fit.Encode(&buf, file, binary.LittleEndian))
	return buf.Bytes()
}

func TestDecodeMessagesReadsRecords(t *testing.T) {
	data := buildActivityFIT(t, []uint16{200, 210, 220})

	msgs, err := DecodeMessages(data)
	require.NoError(t, err)

	var recs []Message
	for _, m := range msgs {
		if m.Global == msgRecord {
			recs = append(recs, m)
		}
	}
	require.Len(t, recs, 3)

	power, ok := recs[0].Field(7)
	require.True(t, ok)
	pf, ok := asFloat(power)
	require.True(t, ok)
	assert.Equal(t, 200.0, pf)

	hr, ok := recs[1].Field(3)
	require.True(t, ok)
	hf, _ := asFloat(hr)
	assert.Equal(t, 142.0, hf)

	_, ok = recs[0].Field(253)
	assert.True(t, ok, "records should carry a timestamp field")
}

func TestDecodeMessagesRejectsGarbage(t *testing.T) {
	_, err := DecodeMessages([]byte("definitely not a fit file, far too short? no"))
	require.Error(t, err)

	data := buildActivityFIT(t, []uint16{200})
	data[len(data)-1] ^= 0xFF
	_, err = DecodeMessages(data)
	require.Error(t, err, "corrupted trailing CRC must fail the file")
}

func TestProcessFileRoundTrip(t *testing.T) {
	data := buildActivityFIT(t, []uint16{240, 240, 240, 240})

	msgs, err := DecodeMessages(data)
	require.NoError(t, err)

	proc := NewProcessor("act-9", "athlete-1", nil)
	result, err := proc.ProcessMessages(msgs)
	require.NoError(t, err)

	require.Len(t, result.Records, 4)
	for i, rec := range result.Records {
		assert.Equal(t, i, rec["sequence"])
		assert.Equal(t, "act-9", rec["activity_id"])
		assert.Equal(t, 240.0, rec["power"])
		assert.Equal(t, 142.0, rec["heart_rate"])
		ts, ok := rec["timestamp"].(string)
		require.True(t, ok)
		_, err := time.Parse(time.RFC3339, ts)
		require.NoError(t, err)
	}

	// Session statistics are aggregated from the records.
	bucket, ok := result.Session[bucketPower].(storage.Document)
	require.True(t, ok)
	assert.Equal(t, 240.0, bucket["avg_power"])
	assert.Equal(t, 240.0, bucket["max_power"])
}
