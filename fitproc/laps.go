package fitproc

import (
	"math"
	"time"

	"github.com/fafnerzhang/codetrekking-sub001/storage"
)

// EnrichLap adds avg/max/min power and running dynamics statistics to a lap,
// computed from the records that fall inside the lap's time window. When the
// lap timing cannot be parsed, records are partitioned positionally into
// lap_number equal slices instead.
func EnrichLap(lap storage.Document, records []storage.Document) storage.Document {
	if len(records) == 0 || lap == nil {
		return lap
	}

	selected := recordsInLapWindow(lap, records)
	if selected == nil {
		selected = recordsByPosition(lap, records)
	}

	power, dynamics := collectMetricSeries(selected)
	writeStats(lap, bucketPower, power)
	writeStats(lap, bucketRunningDynamics, dynamics)
	return lap
}

// EnrichSession applies the same statistics across the entire record set.
func EnrichSession(session storage.Document, records []storage.Document) storage.Document {
	if len(records) == 0 || session == nil {
		return session
	}
	power, dynamics := collectMetricSeries(records)
	writeStats(session, bucketPower, power)
	writeStats(session, bucketRunningDynamics, dynamics)
	return session
}

// recordsInLapWindow selects records with a timestamp inside
// [start_time, start_time + total_elapsed_time], bounds inclusive. Returns
// nil when the lap window cannot be established.
func recordsInLapWindow(lap storage.Document, records []storage.Document) []storage.Document {
	startRaw, ok := lap["start_time"].(string)
	if !ok {
		return nil
	}
	start, err := time.Parse(time.RFC3339, startRaw)
	if err != nil {
		return nil
	}
	elapsed, ok := asFloat(lap["total_elapsed_time"])
	if !ok || elapsed <= 0 {
		return nil
	}
	end := start.Add(time.Duration(elapsed * float64(time.Second)))

	selected := make([]storage.Document, 0, len(records))
	for _, rec := range records {
		tsRaw, ok := rec["timestamp"].(string)
		if !ok {
			continue
		}
		ts, err := time.Parse(time.RFC3339, tsRaw)
		if err != nil {
			continue
		}
		if !ts.Before(start) && !ts.After(end) {
			selected = append(selected, rec)
		}
	}
	return selected
}

// recordsByPosition partitions the record list into equal contiguous slices
// and returns the one matching this lap's number.
func recordsByPosition(lap storage.Document, records []storage.Document) []storage.Document {
	lapNumber := 1
	if v, ok := asFloat(lap["lap_number"]); ok && v >= 1 {
		lapNumber = int(v)
	}
	perLap := len(records) / lapNumber
	if perLap < 1 {
		perLap = len(records)
	}
	start := (lapNumber - 1) * perLap
	end := lapNumber * perLap
	if start >= len(records) {
		return nil
	}
	if end > len(records) {
		end = len(records)
	}
	return records[start:end]
}

func collectMetricSeries(records []storage.Document) (map[string][]float64, map[string][]float64) {
	power := make(map[string][]float64)
	dynamics := make(map[string][]float64)
	for _, rec := range records {
		if v, ok := asFloat(rec["power"]); ok {
			power["power"] = append(power["power"], v)
		}
		if bucket, ok := rec[bucketPower].(storage.Document); ok {
			for name, raw := range bucket {
				if v, ok := asFloat(raw); ok && isPowerField(name) {
					power[name] = append(power[name], v)
				}
			}
		}
		if bucket, ok := rec[bucketRunningDynamics].(storage.Document); ok {
			for name, raw := range bucket {
				if v, ok := asFloat(raw); ok && isRunningDynamicsField(name) {
					dynamics[name] = append(dynamics[name], v)
				}
			}
		}
	}
	return power, dynamics
}

func writeStats(doc storage.Document, bucketKey string, series map[string][]float64) {
	if len(series) == 0 {
		return
	}
	bucket, ok := doc[bucketKey].(storage.Document)
	if !ok {
		bucket = storage.Document{}
		doc[bucketKey] = bucket
	}
	for name, values := range series {
		if len(values) == 0 {
			continue
		}
		sum, maxV, minV := 0.0, values[0], values[0]
		for _, v := range values {
			sum += v
			if v > maxV {
				maxV = v
			}
			if v < minV {
				minV = v
			}
		}
		bucket["avg_"+name] = math.Round(sum/float64(len(values))*100) / 100
		bucket["max_"+name] = maxV
		bucket["min_"+name] = minV
	}
}
