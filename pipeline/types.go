package pipeline

import (
	"time"

	"go.uber.org/zap"

	peakfit "github.com/fafnerzhang/codetrekking-sub001"
	"github.com/fafnerzhang/codetrekking-sub001/storage"
	"github.com/fafnerzhang/codetrekking-sub001/tss"
)

// Options configures one processing run.
type Options struct {
	Paths      []string
	UserID     string
	Store      storage.Interface
	Thresholds peakfit.MetricThresholds
	Overrides  tss.Overrides
	ExportDir  string
	Format     string // parquet|csv|none
	Log        *zap.Logger
}

// FileOutcome reports what happened to one input file.
type FileOutcome struct {
	Path       string  `json:"path"`
	ActivityID string  `json:"activity_id"`
	Records    int     `json:"records"`
	Laps       int     `json:"laps"`
	TSS        float64 `json:"tss,omitempty"`
	TSSMethod  string  `json:"tss_method,omitempty"`
	ExportPath string  `json:"export_path,omitempty"`
	Skipped    bool    `json:"skipped,omitempty"`
	Error      string  `json:"error,omitempty"`
}

// Result summarizes a run over every input file.
type Result struct {
	Outcomes  []FileOutcome `json:"outcomes"`
	Processed int           `json:"processed"`
	Skipped   int           `json:"skipped"`
}

// RecordSample is one flattened record row for columnar export. Pointers are
// nil where the source document has no value for the metric.
type RecordSample struct {
	Timestamp             time.Time `json:"-"`
	TSUTCISO              string    `json:"ts_utc_iso"`
	Sequence              int       `json:"sequence"`
	ElapsedS              float64   `json:"elapsed_s"`
	PowerW                *float64  `json:"power_w,omitempty"`
	HRBPM                 *float64  `json:"hr_bpm,omitempty"`
	SpeedMPS              *float64  `json:"speed_mps,omitempty"`
	DistanceM             *float64  `json:"distance_m,omitempty"`
	Lat                   *float64  `json:"lat,omitempty"`
	Lon                   *float64  `json:"lon,omitempty"`
	FormPowerW            *float64  `json:"form_power_w,omitempty"`
	GroundTimeMS          *float64  `json:"ground_time_ms,omitempty"`
	VerticalOscillationMM *float64  `json:"vertical_oscillation_mm,omitempty"`
	TemperatureC          *float64  `json:"temperature_c,omitempty"`
}
