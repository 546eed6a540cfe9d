package pipeline

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tormoder/fit"

	"github.com/fafnerzhang/codetrekking-sub001/storage"
)

func writeActivityFIT(t *testing.T, dir, name string, powers []uint16) string {
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
		rec.HeartRate = 148
		rec.Cadence = 86
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

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func constantPowers(n int, watts uint16) []uint16 {
	out := make([]uint16, n)
	for i := range out {
		out[i] = watts
	}
	return out
}

func TestRunValidatesOptions(t *testing.T) {
	ctx := context.Background()

	_, err := Run(ctx, Options{})
	require.Error(t, err)

	_, err = Run(ctx, Options{Paths: []string{"a.fit"}, Store: storage.NewMemoryStore()})
	require.Error(t, err, "user id is required")

	_, err = Run(ctx, Options{
		Paths:  []string{"a.fit"},
		UserID: "athlete-1",
		Store:  storage.NewMemoryStore(),
		Format: "xml",
	})
	require.Error(t, err)

	_, err = Run(ctx, Options{
		Paths:  []string{"a.fit"},
		UserID: "athlete-1",
		Store:  storage.NewMemoryStore(),
		Format: "csv",
	})
	require.Error(t, err, "export directory is required for csv export")
}

func TestRunIndexesAndExportsCSV(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	fitPath := writeActivityFIT(t, dir, "morning-ride.fit", constantPowers(60, 250))

	store := storage.NewMemoryStore()
	exportDir := filepath.Join(dir, "out")
	res, err := Run(ctx, Options{
		Paths:     []string{fitPath},
		UserID:    "athlete-1",
		Store:     store,
		ExportDir: exportDir,
		Format:    "csv",
	})
	require.NoError(t, err)

	require.Equal(t, 1, res.Processed)
	require.Len(t, res.Outcomes, 1)
	outcome := res.Outcomes[0]
	assert.Equal(t, "morning-ride", outcome.ActivityID)
	assert.Equal(t, 60, outcome.Records)
	assert.Equal(t, "power", outcome.TSSMethod)
	assert.Greater(t, outcome.TSS, 0.0)

	session, err := store.GetByID(ctx, storage.DataTypeSession, "morning-ride_session")
	require.NoError(t, err)
	power, ok := session["power_fields"].(storage.Document)
	require.True(t, ok)
	assert.Equal(t, 250.0, power["avg_power"])

	records, err := store.Search(ctx, storage.DataTypeRecord, storage.QueryFilter{ActivityID: "morning-ride"})
	require.NoError(t, err)
	assert.Len(t, records, 60)

	tssDoc, err := store.GetByID(ctx, storage.DataTypeTSS, "morning-ride_tss")
	require.NoError(t, err)
	assert.Equal(t, "power", tssDoc["primary_method"])

	f, err := os.Open(outcome.ExportPath)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 61)
	assert.Equal(t, recordCSVHeader, rows[0])
	assert.Equal(t, "250", rows[1][3], "power_w column")
}

func TestRunExportsParquet(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	fitPath := writeActivityFIT(t, dir, "intervals.fit", constantPowers(10, 300))

	res, err := Run(ctx, Options{
		Paths:     []string{fitPath},
		UserID:    "athlete-1",
		Store:     storage.NewMemoryStore(),
		ExportDir: filepath.Join(dir, "out"),
		Format:    "parquet",
	})
	require.NoError(t, err)
	require.Equal(t, 1, res.Processed)

	info, err := os.Stat(res.Outcomes[0].ExportPath)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestRunSkipsUndecodableFile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	badPath := filepath.Join(dir, "corrupt.fit")
	require.NoError(t, os.WriteFile(badPath, []byte("not a fit file in any way whatsoever"), 0o644))
	goodPath := writeActivityFIT(t, dir, "evening-run.fit", constantPowers(5, 180))

	store := storage.NewMemoryStore()
	res, err := Run(ctx, Options{
		Paths:  []string{badPath, goodPath},
		UserID: "athlete-1",
		Store:  store,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 1, res.Processed)
	require.Len(t, res.Outcomes, 2)
	assert.True(t, res.Outcomes[0].Skipped)
	assert.NotEmpty(t, res.Outcomes[0].Error)
	assert.Equal(t, "evening-run", res.Outcomes[1].ActivityID)

	_, err = store.GetByID(ctx, storage.DataTypeSession, "corrupt_session")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestBuildRecordSamplesElapsedAndBuckets(t *testing.T) {
	start := time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC)
	records := []storage.Document{
		{
			"sequence":  0,
			"timestamp": start.Format(time.RFC3339),
			"power":     210.0,
			"power_fields": storage.Document{
				"form_power": 68.0,
			},
		},
		{
			"sequence":   1,
			"timestamp":  start.Add(5 * time.Second).Format(time.RFC3339),
			"heart_rate": 151.0,
			"location":   storage.Document{"lat": 25.03, "lon": 121.56},
		},
	}

	samples := buildRecordSamples(records)
	require.Len(t, samples, 2)

	require.NotNil(t, samples[0].PowerW)
	assert.Equal(t, 210.0, *samples[0].PowerW)
	require.NotNil(t, samples[0].FormPowerW)
	assert.Equal(t, 68.0, *samples[0].FormPowerW)
	assert.Nil(t, samples[0].HRBPM)
	assert.Equal(t, 0.0, samples[0].ElapsedS)

	assert.Equal(t, 5.0, samples[1].ElapsedS)
	require.NotNil(t, samples[1].Lat)
	assert.Equal(t, 25.03, *samples[1].Lat)
	assert.Nil(t, samples[1].PowerW)
}
