// Package storage defines the document store the processing pipeline and the
// analytics engine write through, plus in-memory and SQLite backends.
package storage

import (
	"context"
	"errors"
	"sort"
)

// DataType names a document collection.
type DataType string

const (
	DataTypeActivity      DataType = "activity"
	DataTypeRecord        DataType = "record"
	DataTypeLap           DataType = "lap"
	DataTypeSession       DataType = "session"
	DataTypeUserIndicator DataType = "user_indicator"
	DataTypeTSS           DataType = "tss"
)

// Document is a flattened, JSON-serializable activity document.
type Document map[string]any

// ErrNotFound is returned by GetByID when no document has the given id.
var ErrNotFound = errors.New("document not found")

// SortKey orders search results by a document field.
type SortKey struct {
	Field      string
	Descending bool
}

// QueryFilter narrows a Search. Zero-value fields are ignored.
type QueryFilter struct {
	UserID     string
	ActivityID string
	Sort       []SortKey
	Size       int
}

// IdentifiedDocument pairs a document with its id for bulk writes.
type IdentifiedDocument struct {
	ID  string
	Doc Document
}

// BulkResult summarizes a bulk write.
type BulkResult struct {
	SuccessCount int
	FailedCount  int
	Errors       []string
}

// Interface is the store injected into the pipeline and analytics engine.
// Implementations must be safe for concurrent use.
type Interface interface {
	Search(ctx context.Context, dt DataType, filter QueryFilter) ([]Document, error)
	GetByID(ctx context.Context, dt DataType, id string) (Document, error)
	IndexDocument(ctx context.Context, dt DataType, id string, doc Document) error
	BulkIndex(ctx context.Context, dt DataType, docs []IdentifiedDocument) (BulkResult, error)
}

func matchesFilter(doc Document, filter QueryFilter) bool {
	if filter.UserID != "" && asString(doc["user_id"]) != filter.UserID {
		return false
	}
	if filter.ActivityID != "" && asString(doc["activity_id"]) != filter.ActivityID {
		return false
	}
	return true
}

// applySort orders docs by the filter's sort keys and trims to Size.
func applySort(docs []Document, filter QueryFilter) []Document {
	if len(filter.Sort) > 0 {
		sort.SliceStable(docs, func(i, j int) bool {
			for _, key := range filter.Sort {
				c := compareField(docs[i][key.Field], docs[j][key.Field])
				if c == 0 {
					continue
				}
				if key.Descending {
					return c > 0
				}
				return c < 0
			}
			return false
		})
	}
	if filter.Size > 0 && len(docs) > filter.Size {
		docs = docs[:filter.Size]
	}
	return docs
}

func compareField(a, b any) int {
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if aok && bok {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
	as, bs := asString(a), asString(b)
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	default:
		return 0
	}
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	default:
		return 0, false
	}
}
