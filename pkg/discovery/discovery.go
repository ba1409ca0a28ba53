// Package discovery enumerates available CRM object types and their
// record counts instead of querying a specific one.
package discovery

import (
	"context"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	KindStandard = "standard"
	KindCustom   = "custom"

	// CountErrored marks an object whose count call failed; the loop
	// keeps going past individual failures.
	CountErrored = -1

	// countDelay paces successive count calls so discovery does not
	// burst the remote API.
	countDelay = 100 * time.Millisecond
)

// Object describes one queryable CRM entity type.
type Object struct {
	Name      string `json:"name"`
	Label     string `json:"label"`
	Kind      string `json:"kind"`
	Queryable bool   `json:"queryable"`
}

// Result is one discovered object with its record count.
type Result struct {
	Object
	// Count is CountErrored when the count call failed. Skipped is set
	// for non-queryable objects that were never counted.
	Count   int  `json:"count"`
	Skipped bool `json:"skipped"`
}

// CountLabel renders the count for display: a number, "Error" for a
// failed count, or "N/A" for a non-queryable object.
func (r Result) CountLabel() string {
	if r.Skipped {
		return "N/A"
	}
	if r.Count == CountErrored {
		return "Error"
	}
	return strconv.Itoa(r.Count)
}

// Counter is the per-platform count operation.
type Counter interface {
	Count(ctx context.Context, objectType string) (int, error)
}

// Progress is invoked before each count call.
type Progress func(index, total int, name string)

// Filter narrows objects by a case-insensitive substring match on name
// or label. An empty term keeps everything.
func Filter(objects []Object, term string) []Object {
	if term == "" {
		return objects
	}
	term = strings.ToLower(term)
	var filtered []Object
	for _, obj := range objects {
		if strings.Contains(strings.ToLower(obj.Name), term) ||
			strings.Contains(strings.ToLower(obj.Label), term) {
			filtered = append(filtered, obj)
		}
	}
	return filtered
}

// CountObjects counts each object sequentially with a fixed delay
// between calls. A failed count becomes the CountErrored sentinel rather
// than aborting the sweep; non-queryable objects are skipped entirely.
func CountObjects(ctx context.Context, counter Counter, objects []Object, progress Progress, logger *zap.Logger) []Result {
	results := make([]Result, 0, len(objects))

	for i, obj := range objects {
		if progress != nil {
			progress(i+1, len(objects), obj.Name)
		}

		if !obj.Queryable {
			results = append(results, Result{Object: obj, Skipped: true})
			continue
		}

		count, err := counter.Count(ctx, obj.Name)
		if err != nil {
			logger.Warn("Count failed during discovery",
				zap.String("object", obj.Name),
				zap.Error(err))
			count = CountErrored
		}
		results = append(results, Result{Object: obj, Count: count})

		if i < len(objects)-1 {
			select {
			case <-ctx.Done():
				return results
			case <-time.After(countDelay):
			}
		}
	}

	return results
}
