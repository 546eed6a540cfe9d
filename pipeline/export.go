package pipeline

import (
	"encoding/csv"
	"math"
	"os"
	"strconv"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"
)

var recordCSVHeader = []string{
	"ts_utc_iso", "sequence", "elapsed_s", "power_w", "hr_bpm", "speed_mps",
	"distance_m", "lat", "lon", "form_power_w", "ground_time_ms",
	"vertical_oscillation_mm", "temperature_c",
}

func writeRecordsCSV(path string, samples []RecordSample) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(recordCSVHeader); err != nil {
		return err
	}
	for _, s := range samples {
		row := []string{
			s.TSUTCISO,
			strconv.Itoa(s.Sequence),
			formatFloat(s.ElapsedS),
			formatFloatPtr(s.PowerW),
			formatFloatPtr(s.HRBPM),
			formatFloatPtr(s.SpeedMPS),
			formatFloatPtr(s.DistanceM),
			formatFloatPtr(s.Lat),
			formatFloatPtr(s.Lon),
			formatFloatPtr(s.FormPowerW),
			formatFloatPtr(s.GroundTimeMS),
			formatFloatPtr(s.VerticalOscillationMM),
			formatFloatPtr(s.TemperatureC),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

type recordParquetRow struct {
	TSUTCISO              string  `parquet:"name=ts_utc_iso, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Sequence              int64   `parquet:"name=sequence, type=INT64"`
	ElapsedS              float64 `parquet:"name=elapsed_s, type=DOUBLE"`
	PowerW                float64 `parquet:"name=power_w, type=DOUBLE"`
	HRBPM                 float64 `parquet:"name=hr_bpm, type=DOUBLE"`
	SpeedMPS              float64 `parquet:"name=speed_mps, type=DOUBLE"`
	DistanceM             float64 `parquet:"name=distance_m, type=DOUBLE"`
	Lat                   float64 `parquet:"name=lat, type=DOUBLE"`
	Lon                   float64 `parquet:"name=lon, type=DOUBLE"`
	FormPowerW            float64 `parquet:"name=form_power_w, type=DOUBLE"`
	GroundTimeMS          float64 `parquet:"name=ground_time_ms, type=DOUBLE"`
	VerticalOscillationMM float64 `parquet:"name=vertical_oscillation_mm, type=DOUBLE"`
	TemperatureC          float64 `parquet:"name=temperature_c, type=DOUBLE"`
}

func writeRecordsParquet(path string, samples []RecordSample) error {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return err
	}
	pw, err := writer.NewParquetWriter(fw, new(recordParquetRow), 4)
	if err != nil {
		_ = fw.Close()
		return err
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY
	for _, s := range samples {
		row := recordParquetRow{
			TSUTCISO:              s.TSUTCISO,
			Sequence:              int64(s.Sequence),
			ElapsedS:              s.ElapsedS,
			PowerW:                valueOrNaN(s.PowerW),
			HRBPM:                 valueOrNaN(s.HRBPM),
			SpeedMPS:              valueOrNaN(s.SpeedMPS),
			DistanceM:             valueOrNaN(s.DistanceM),
			Lat:                   valueOrNaN(s.Lat),
			Lon:                   valueOrNaN(s.Lon),
			FormPowerW:            valueOrNaN(s.FormPowerW),
			GroundTimeMS:          valueOrNaN(s.GroundTimeMS),
			VerticalOscillationMM: valueOrNaN(s.VerticalOscillationMM),
			TemperatureC:          valueOrNaN(s.TemperatureC),
		}
		if err := pw.Write(row); err != nil {
			_ = pw.WriteStop()
			_ = fw.Close()
			return err
		}
	}
	if err := pw.WriteStop(); err != nil {
		_ = fw.Close()
		return err
	}
	return fw.Close()
}

func valueOrNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatFloatPtr(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}
