package tss

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	peakfit "github.com/fafnerzhang/codetrekking-sub001"
	"github.com/fafnerzhang/codetrekking-sub001/storage"
)

// Analyzer is the storage-backed service layer over the calculator: it
// computes TSS for stored activities, persists the results, and produces
// training-load summaries.
type Analyzer struct {
	store storage.Interface
	calc  *Calculator
	log   *zap.Logger
}

// NewAnalyzer builds an analyzer. logger may be nil.
func NewAnalyzer(store storage.Interface, thresholds peakfit.MetricThresholds, logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{
		store: store,
		calc:  NewCalculator(store, thresholds),
		log:   logger,
	}
}

// Calculator exposes the underlying pure calculator.
func (a *Analyzer) Calculator() *Calculator { return a.calc }

// CalculateAndIndex computes composite TSS for a stored activity and writes
// the result document back through the store.
func (a *Analyzer) CalculateAndIndex(ctx context.Context, userID, activityID string, overrides Overrides) (*CompositeResult, error) {
	resolved := a.calc.ResolveThresholds(ctx, userID, overrides)
	result, err := a.calc.CompositeTSSForActivity(ctx, activityID, resolved)
	if err != nil {
		return nil, err
	}

	doc := storage.Document{
		"user_id":        userID,
		"activity_id":    activityID,
		"tss":            result.TSS,
		"primary_method": result.PrimaryMethod,
		"calculated_at":  result.CalculatedAt.Format(time.RFC3339),
	}
	if result.Power != nil {
		doc["power_tss"] = result.Power.TSS
		doc["normalized_power"] = result.Power.NormalizedPower
		doc["intensity_factor"] = result.Power.IntensityFactor
	}
	if result.HeartRate != nil {
		doc["hr_tss"] = result.HeartRate.TSS
	}
	if result.Pace != nil {
		doc["pace_tss"] = result.Pace.TSS
	}

	if err := a.store.IndexDocument(ctx, storage.DataTypeTSS, activityID+"_tss", doc); err != nil {
		return nil, err
	}
	a.log.Info("indexed tss result",
		zap.String("activity_id", activityID),
		zap.Float64("tss", result.TSS),
		zap.String("method", result.PrimaryMethod))
	return result, nil
}

// RecalculateMissing computes and indexes TSS for every stored activity of
// the user that has no TSS document yet. Per-activity failures are logged and
// skipped; the count of successful calculations is returned.
func (a *Analyzer) RecalculateMissing(ctx context.Context, userID string) (int, error) {
	sessions, err := a.store.Search(ctx, storage.DataTypeSession, storage.QueryFilter{UserID: userID})
	if err != nil {
		return 0, err
	}

	done := 0
	for _, session := range sessions {
		activityID, _ := session["activity_id"].(string)
		if activityID == "" {
			continue
		}
		if _, err := a.store.GetByID(ctx, storage.DataTypeTSS, activityID+"_tss"); err == nil {
			continue
		} else if !errors.Is(err, storage.ErrNotFound) {
			return done, err
		}
		if _, err := a.CalculateAndIndex(ctx, userID, activityID, Overrides{}); err != nil {
			a.log.Warn("tss calculation skipped",
				zap.String("activity_id", activityID),
				zap.Error(err))
			continue
		}
		done++
	}
	return done, nil
}

// SportLoad is the per-sport slice of a training-stress summary.
type SportLoad struct {
	TSS   float64 `json:"tss"`
	Count int     `json:"count"`
}

// Summary aggregates training stress over a period.
type Summary struct {
	TotalTSS             float64              `json:"total_tss"`
	AvgWeeklyTSS         float64              `json:"avg_weekly_tss"`
	AvgDailyTSS          float64              `json:"avg_daily_tss"`
	ActivityCount        int                  `json:"activity_count"`
	SportBreakdown       map[string]SportLoad `json:"sport_breakdown"`
	PeriodDays           int                  `json:"period_days"`
	TrainingLoadCategory string               `json:"training_load_category"`
}

// TrainingStressSummary computes total and average TSS for the user's
// activities whose start time falls inside [start, end]. Activities whose TSS
// cannot be computed are skipped.
func (a *Analyzer) TrainingStressSummary(ctx context.Context, userID string, start, end time.Time) (*Summary, error) {
	if !end.After(start) {
		return nil, &peakfit.ValidationError{Field: "time_range", Reason: "end must be after start"}
	}
	sessions, err := a.store.Search(ctx, storage.DataTypeSession, storage.QueryFilter{UserID: userID})
	if err != nil {
		return nil, err
	}

	summary := &Summary{SportBreakdown: make(map[string]SportLoad)}
	for _, session := range sessions {
		startTime, ok := sessionStartTime(session)
		if ok && (startTime.Before(start) || startTime.After(end)) {
			continue
		}
		activityID, _ := session["activity_id"].(string)
		if activityID == "" {
			continue
		}
		result, err := a.calc.CompositeTSSForActivity(ctx, activityID, Overrides{})
		if err != nil {
			a.log.Debug("activity excluded from summary",
				zap.String("activity_id", activityID),
				zap.Error(err))
			continue
		}

		sport, _ := session["sport"].(string)
		if sport == "" {
			sport = "unknown"
		}
		load := summary.SportBreakdown[sport]
		load.TSS += result.TSS
		load.Count++
		summary.SportBreakdown[sport] = load

		summary.TotalTSS += result.TSS
		summary.ActivityCount++
	}

	days := int(end.Sub(start).Hours() / 24)
	weeks := float64(days) / 7
	if weeks < 1 {
		weeks = 1
	}
	if days < 1 {
		days = 1
	}
	summary.PeriodDays = days
	summary.TotalTSS = round1(summary.TotalTSS)
	summary.AvgWeeklyTSS = round1(summary.TotalTSS / weeks)
	summary.AvgDailyTSS = round1(summary.TotalTSS / float64(days))
	summary.TrainingLoadCategory = categorizeTrainingLoad(summary.AvgWeeklyTSS)
	return summary, nil
}

func sessionStartTime(doc storage.Document) (time.Time, bool) {
	for _, key := range []string{"start_time", "timestamp"} {
		if s, ok := doc[key].(string); ok {
			if t, err := time.Parse(time.RFC3339, s); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

func categorizeTrainingLoad(weeklyTSS float64) string {
	switch {
	case weeklyTSS < 150:
		return "low"
	case weeklyTSS < 300:
		return "moderate"
	case weeklyTSS < 450:
		return "high"
	default:
		return "very_high"
	}
}
