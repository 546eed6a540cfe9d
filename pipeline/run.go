// Package pipeline runs the end-to-end flow for activity files: decode,
// resolve and categorize, aggregate, compute TSS, index through the storage
// backend, and optionally export the record series as parquet or CSV.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	peakfit "github.com/fafnerzhang/codetrekking-sub001"
	"github.com/fafnerzhang/codetrekking-sub001/fitproc"
	"github.com/fafnerzhang/codetrekking-sub001/storage"
	"github.com/fafnerzhang/codetrekking-sub001/tss"
)

// Run processes every input file. A file whose decode fails is logged and
// skipped; storage failures abort the run.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if len(opts.Paths) == 0 {
		return nil, fmt.Errorf("at least one input file is required")
	}
	if strings.TrimSpace(opts.UserID) == "" {
		return nil, fmt.Errorf("user id is required")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("storage backend is required")
	}
	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format == "none" {
		format = ""
	}
	if format != "" && format != "parquet" && format != "csv" {
		return nil, fmt.Errorf("unsupported format %q (expected parquet|csv|none)", opts.Format)
	}
	if format != "" {
		if strings.TrimSpace(opts.ExportDir) == "" {
			return nil, fmt.Errorf("export directory is required for %s export", format)
		}
		if err := os.MkdirAll(opts.ExportDir, 0o755); err != nil {
			return nil, fmt.Errorf("create export directory: %w", err)
		}
	}
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}

	analyzer := tss.NewAnalyzer(opts.Store, opts.Thresholds, log)
	res := &Result{}

	for _, path := range opts.Paths {
		activityID := activityIDFromPath(path)
		proc := fitproc.NewProcessor(activityID, opts.UserID, log)

		processed, err := proc.ProcessFile(path)
		if err != nil {
			var skip *peakfit.DecodeSkip
			if errors.As(err, &skip) {
				log.Warn("decode failed, file skipped",
					zap.String("path", path),
					zap.Error(skip.Err))
				res.Outcomes = append(res.Outcomes, FileOutcome{
					Path:       path,
					ActivityID: activityID,
					Skipped:    true,
					Error:      err.Error(),
				})
				res.Skipped++
				continue
			}
			return res, err
		}

		if err := indexActivity(ctx, opts.Store, processed); err != nil {
			return res, err
		}

		outcome := FileOutcome{
			Path:       path,
			ActivityID: activityID,
			Records:    len(processed.Records),
			Laps:       len(processed.Laps),
		}

		composite, err := analyzer.CalculateAndIndex(ctx, opts.UserID, activityID, opts.Overrides)
		if err != nil {
			var insufficient *peakfit.InsufficientDataError
			if !errors.As(err, &insufficient) {
				return res, err
			}
			log.Debug("tss unavailable for activity",
				zap.String("activity_id", activityID),
				zap.Error(err))
		} else {
			outcome.TSS = composite.TSS
			outcome.TSSMethod = composite.PrimaryMethod
		}

		if format != "" {
			exportPath := filepath.Join(opts.ExportDir, activityID+"_records."+format)
			samples := buildRecordSamples(processed.Records)
			switch format {
			case "csv":
				err = writeRecordsCSV(exportPath, samples)
			case "parquet":
				err = writeRecordsParquet(exportPath, samples)
			}
			if err != nil {
				return res, fmt.Errorf("export %s: %w", exportPath, err)
			}
			outcome.ExportPath = exportPath
		}

		res.Outcomes = append(res.Outcomes, outcome)
		res.Processed++
		log.Info("activity indexed",
			zap.String("activity_id", activityID),
			zap.Int("records", outcome.Records),
			zap.Int("laps", outcome.Laps),
			zap.Float64("tss", outcome.TSS))
	}
	return res, nil
}

func activityIDFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// indexActivity writes the session, lap and record documents for one
// processed file. Records go through a single bulk write.
func indexActivity(ctx context.Context, store storage.Interface, processed *fitproc.Result) error {
	session := processed.Session
	if len(processed.Metadata.PowerSources) > 0 || processed.Metadata.ProcessedAt != "" {
		session["metadata"] = storage.Document{
			"power_sources": processed.Metadata.PowerSources,
			"processed_at":  processed.Metadata.ProcessedAt,
		}
	}
	if err := store.IndexDocument(ctx, storage.DataTypeSession, fitproc.SessionDocID(processed.ActivityID), session); err != nil {
		return &peakfit.StorageError{Op: "index session", Err: err}
	}

	for _, lap := range processed.Laps {
		n := 1
		if v, ok := lap["lap_number"].(int); ok {
			n = v
		}
		if err := store.IndexDocument(ctx, storage.DataTypeLap, fitproc.LapDocID(processed.ActivityID, n), lap); err != nil {
			return &peakfit.StorageError{Op: "index lap", Err: err}
		}
	}

	docs := make([]storage.IdentifiedDocument, 0, len(processed.Records))
	for _, rec := range processed.Records {
		seq := 0
		if v, ok := rec["sequence"].(int); ok {
			seq = v
		}
		docs = append(docs, storage.IdentifiedDocument{
			ID:  fitproc.RecordDocID(processed.ActivityID, seq),
			Doc: rec,
		})
	}
	if len(docs) == 0 {
		return nil
	}
	bulk, err := store.BulkIndex(ctx, storage.DataTypeRecord, docs)
	if err != nil {
		return &peakfit.StorageError{Op: "bulk index records", Err: err}
	}
	if bulk.FailedCount > 0 {
		return &peakfit.StorageError{
			Op:  "bulk index records",
			Err: fmt.Errorf("%d of %d documents failed: %s", bulk.FailedCount, len(docs), strings.Join(bulk.Errors, "; ")),
		}
	}
	return nil
}

// buildRecordSamples flattens categorized record documents into export rows,
// in sequence order with elapsed seconds measured from the first timestamped
// sample.
func buildRecordSamples(records []storage.Document) []RecordSample {
	samples := make([]RecordSample, 0, len(records))
	var firstTS time.Time
	for _, rec := range records {
		sample := RecordSample{}
		if v, ok := rec["sequence"].(int); ok {
			sample.Sequence = v
		}
		if raw, ok := rec["timestamp"].(string); ok {
			if ts, err := time.Parse(time.RFC3339, raw); err == nil {
				sample.Timestamp = ts
				sample.TSUTCISO = ts.UTC().Format(time.RFC3339)
				if firstTS.IsZero() {
					firstTS = ts
				}
				sample.ElapsedS = ts.Sub(firstTS).Seconds()
			}
		}
		sample.PowerW = docFloat(rec, "power")
		sample.HRBPM = docFloat(rec, "heart_rate")
		sample.SpeedMPS = docFloat(rec, "speed")
		sample.DistanceM = docFloat(rec, "distance")
		if loc, ok := rec["location"].(storage.Document); ok {
			sample.Lat = docFloat(loc, "lat")
			sample.Lon = docFloat(loc, "lon")
		}
		if bucket, ok := rec["power_fields"].(storage.Document); ok {
			sample.FormPowerW = docFloat(bucket, "form_power")
		}
		if bucket, ok := rec["running_dynamics"].(storage.Document); ok {
			sample.GroundTimeMS = docFloat(bucket, "ground_time")
			sample.VerticalOscillationMM = docFloat(bucket, "vertical_oscillation")
		}
		if bucket, ok := rec["environmental"].(storage.Document); ok {
			sample.TemperatureC = docFloat(bucket, "temperature")
		}
		samples = append(samples, sample)
	}
	return samples
}

func docFloat(doc storage.Document, key string) *float64 {
	switch v := doc[key].(type) {
	case float64:
		out := v
		return &out
	case float32:
		out := float64(v)
		return &out
	case int:
		out := float64(v)
		return &out
	default:
		return nil
	}
}
