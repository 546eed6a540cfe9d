package tss

import (
	"context"
	"strings"

	peakfit "github.com/fafnerzhang/codetrekking-sub001"
	"github.com/fafnerzhang/codetrekking-sub001/storage"
)

// GetUserThresholds reads the athlete's stored indicator documents and
// extracts training thresholds. Threshold power falls back to critical power
// when only that is stored. Lookup failures degrade to empty thresholds so
// the resolution chain can continue with zone-derived values and defaults.
func GetUserThresholds(ctx context.Context, store storage.Interface, userID string) peakfit.MetricThresholds {
	var out peakfit.MetricThresholds

	indicators, err := store.Search(ctx, storage.DataTypeUserIndicator, storage.QueryFilter{
		UserID: userID,
		Size:   10,
	})
	if err != nil {
		return out
	}

	for _, indicator := range indicators {
		if v, ok := numericField(indicator, "threshold_power"); ok && v > 0 {
			out.FunctionalThresholdPower = v
		} else if v, ok := numericField(indicator, "critical_power"); ok && v > 0 {
			out.FunctionalThresholdPower = v
		}
		if v, ok := numericField(indicator, "threshold_pace"); ok && v > 0 {
			out.CriticalPaceMinPerKm = v
		}
		if v, ok := numericField(indicator, "threshold_heart_rate"); ok && v > 0 {
			out.LactateThresholdHeartRate = v
		}
		if v, ok := numericField(indicator, "max_heart_rate"); ok && v > 0 {
			out.MaxHeartRate = v
		}
		if v, ok := numericField(indicator, "weight"); ok && v > 0 {
			out.WeightKg = v
		}
	}
	return out
}

// ResolveThresholds applies the full resolution order for every channel:
// explicit override, stored user indicator, zone-derived estimate, default.
func (c *Calculator) ResolveThresholds(ctx context.Context, userID string, overrides Overrides) Overrides {
	resolved := overrides

	var stored peakfit.MetricThresholds
	if userID != "" && c.store != nil {
		stored = GetUserThresholds(ctx, c.store, userID)
	}

	if resolved.FTP <= 0 {
		resolved.FTP = stored.FunctionalThresholdPower
	}
	if resolved.FTP <= 0 {
		resolved.FTP = c.ftpEstimate()
	}

	if resolved.ThresholdHR <= 0 {
		resolved.ThresholdHR = stored.LactateThresholdHeartRate
	}
	if resolved.ThresholdHR <= 0 {
		resolved.ThresholdHR = c.thresholdHREstimate()
	}

	if resolved.MaxHR <= 0 {
		resolved.MaxHR = stored.MaxHeartRate
	}

	if resolved.ThresholdPace <= 0 {
		resolved.ThresholdPace = stored.CriticalPaceMinPerKm
	}
	if resolved.ThresholdPace <= 0 {
		resolved.ThresholdPace = c.thresholdPaceEstimate()
	}

	return resolved
}

// ftpEstimate derives FTP from the configured power zone table: the lower
// bound of the threshold zone, else the upper bound of zone 3, else 250 W.
func (c *Calculator) ftpEstimate() float64 {
	if c.thresholds.FunctionalThresholdPower > 0 {
		return c.thresholds.FunctionalThresholdPower
	}
	if v := zoneBound(c.thresholds.PowerZones, "zone_4", "threshold", false); v > 0 {
		return v
	}
	if v := zoneBound(c.thresholds.PowerZones, "zone_3", "", true); v > 0 {
		return v
	}
	return peakfit.DefaultFTPWatts
}

func (c *Calculator) thresholdHREstimate() float64 {
	if c.thresholds.LactateThresholdHeartRate > 0 {
		return c.thresholds.LactateThresholdHeartRate
	}
	if v := zoneBound(c.thresholds.HeartRateZones, "zone_4", "threshold", false); v > 0 {
		return v
	}
	if v := zoneBound(c.thresholds.HeartRateZones, "zone_3", "", true); v > 0 {
		return v
	}
	return peakfit.DefaultLTHRBpm
}

// thresholdPaceEstimate reads the upper (slower) bound of the threshold pace
// zone since for pace the bigger number is the easier end of the band.
func (c *Calculator) thresholdPaceEstimate() float64 {
	if c.thresholds.CriticalPaceMinPerKm > 0 {
		return c.thresholds.CriticalPaceMinPerKm
	}
	if v := zoneBound(c.thresholds.PaceZones, "zone_4", "threshold", true); v > 0 {
		return v
	}
	if v := zoneBound(c.thresholds.PaceZones, "zone_3", "", true); v > 0 {
		return v
	}
	return peakfit.DefaultThresholdPaceMin
}

// zoneBound scans a zone map for a name containing either keyword and returns
// the requested bound of the first match.
func zoneBound(zones map[string]peakfit.ZoneRange, keyword, altKeyword string, upper bool) float64 {
	for name, r := range zones {
		lower := strings.ToLower(name)
		if strings.Contains(lower, keyword) || (altKeyword != "" && strings.Contains(lower, altKeyword)) {
			if upper {
				return r.High
			}
			return r.Low
		}
	}
	return 0
}
