package fitproc

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	peakfit "github.com/fafnerzhang/codetrekking-sub001"
	"github.com/fafnerzhang/codetrekking-sub001/storage"
)

// Document id scheme shared by the pipeline and storage layers.
func SessionDocID(activityID string) string { return activityID + "_session" }

func RecordDocID(activityID string, sequence int) string {
	return fmt.Sprintf("%s_record_%d", activityID, sequence)
}

func LapDocID(activityID string, lapNumber int) string {
	return fmt.Sprintf("%s_lap_%d", activityID, lapNumber)
}

// Metadata describes one processing pass.
type Metadata struct {
	PowerSources []storage.Document `json:"power_sources"`
	ProcessedAt  string             `json:"processed_at"`
}

// Result holds the categorized documents extracted from one activity file.
type Result struct {
	ActivityID string
	UserID     string
	Session    storage.Document
	Records    []storage.Document
	Laps       []storage.Document
	Metadata   Metadata
}

// Processor extracts documents from a single activity file. Each file needs
// its own Processor: the developer field registry and accumulated state are
// only valid for one pass.
type Processor struct {
	activityID string
	userID     string
	registry   *DeveloperRegistry
	log        *zap.Logger
}

func NewProcessor(activityID, userID string, log *zap.Logger) *Processor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Processor{
		activityID: activityID,
		userID:     userID,
		registry:   NewDeveloperRegistry(),
		log:        log,
	}
}

// Registry exposes the developer field registry built during processing.
func (p *Processor) Registry() *DeveloperRegistry { return p.registry }

// ProcessFile decodes and processes one FIT file. Decode failures are
// reported as DecodeSkip so callers can drop the file and continue a batch.
func (p *Processor) ProcessFile(path string) (*Result, error) {
	msgs, err := DecodeFile(path)
	if err != nil {
		return nil, &peakfit.DecodeSkip{Path: path, Err: err}
	}
	return p.ProcessMessages(msgs)
}

// ProcessMessages runs the full resolve, categorize and aggregate pass over
// decoded messages.
func (p *Processor) ProcessMessages(msgs []Message) (*Result, error) {
	// Definitions first so developer fields on records resolve regardless
	// of message ordering.
	for _, msg := range msgs {
		switch msg.Global {
		case msgDeveloperDataID:
			p.registry.AddDataID(msg)
		case msgFieldDescription:
			p.registry.AddFieldDescription(msg)
		}
	}

	sessionFlat := storage.Document{
		"activity_id": p.activityID,
		"user_id":     p.userID,
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
	}
	var (
		powerSources []storage.Document
		records      []storage.Document
		lapFlats     []storage.Document
	)
	sequence := 0

	for _, msg := range msgs {
		switch msg.Global {
		case msgFileID, msgSession:
			p.mergeFields(msg, sessionFlat)
		case msgDeviceInfo:
			device := storage.Document{}
			p.mergeFields(msg, device)
			if id, ok := asFloat(device["manufacturer"]); ok {
				device["manufacturer"] = manufacturerName(uint16(id))
			}
			if isPowerSource(device) {
				powerSources = append(powerSources, device)
			}
		case msgRecord:
			flat := storage.Document{
				"activity_id": p.activityID,
				"user_id":     p.userID,
				"sequence":    sequence,
			}
			p.mergeFields(msg, flat)
			records = append(records, categorizeRecord(flat))
			sequence++
		case msgLap:
			flat := storage.Document{
				"activity_id": p.activityID,
				"user_id":     p.userID,
				"lap_number":  len(lapFlats) + 1,
			}
			p.mergeFields(msg, flat)
			lapFlats = append(lapFlats, flat)
		}
	}

	session := categorizeSession(sessionFlat)
	EnrichSession(session, records)

	laps := make([]storage.Document, 0, len(lapFlats))
	for _, flat := range lapFlats {
		laps = append(laps, EnrichLap(categorizeLap(flat), records))
	}

	p.log.Debug("processed activity file",
		zap.String("activity_id", p.activityID),
		zap.Int("records", len(records)),
		zap.Int("laps", len(laps)),
		zap.Int("developer_fields", p.registry.Len()),
		zap.Int("power_sources", len(powerSources)))

	return &Result{
		ActivityID: p.activityID,
		UserID:     p.userID,
		Session:    session,
		Records:    records,
		Laps:       laps,
		Metadata: Metadata{
			PowerSources: powerSources,
			ProcessedAt:  time.Now().UTC().Format(time.RFC3339),
		},
	}, nil
}

// mergeFields resolves every native and developer field of a message into
// the flat map. Invalid and implausible fields are omitted, never stored.
func (p *Processor) mergeFields(msg Message, flat storage.Document) {
	for _, fv := range msg.Fields {
		if fv.Invalid {
			continue
		}
		sem := semanticForField(msg.Global, fv.FieldNumber)
		value := fv.Value
		if sem.scaler != nil {
			scaled, ok := sem.scaler(value)
			if !ok {
				continue
			}
			value = scaled
		}
		name := normalizeFieldName(sem.name)
		if resolved, ok := resolveValue(name, value); ok {
			flat[name] = resolved
		}
	}

	for _, dv := range msg.DeveloperFields {
		name, value, ok := p.registry.DecodeValue(dv)
		if !ok {
			continue
		}
		if resolved, ok := resolveValue(name, value); ok {
			flat[name] = resolved
		}
	}
}

var powerManufacturerNames = func() map[string]struct{} {
	out := make(map[string]struct{}, len(powerManufacturers))
	for _, name := range powerManufacturers {
		out[name] = struct{}{}
	}
	return out
}()

// isPowerSource reports whether a device_info document describes a device
// that can record power.
func isPowerSource(device storage.Document) bool {
	if dt, ok := asFloat(device["device_type"]); ok {
		if int(dt) == deviceTypeBikePower || int(dt) == deviceTypeStrideSpeedDistance {
			return true
		}
	}
	if name, ok := device["manufacturer"].(string); ok {
		if _, ok := powerManufacturerNames[strings.ToLower(name)]; ok {
			return true
		}
	}
	if product, ok := device["product_name"].(string); ok {
		lower := strings.ToLower(product)
		for _, kw := range []string{"power", "stryd", "powermeter"} {
			if strings.Contains(lower, kw) {
				return true
			}
		}
	}
	return false
}
