package discovery

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeCounter struct {
	counts map[string]int
	calls  []string
}

func (f *fakeCounter) Count(_ context.Context, objectType string) (int, error) {
	f.calls = append(f.calls, objectType)
	count, ok := f.counts[objectType]
	if !ok {
		return 0, fmt.Errorf("no access to %s", objectType)
	}
	return count, nil
}

func TestFilter(t *testing.T) {
	objects := []Object{
		{Name: "Account", Label: "Account"},
		{Name: "Contact", Label: "Contact"},
		{Name: "Machine__c", Label: "Factory Machine"},
	}

	assert.Len(t, Filter(objects, ""), 3)
	assert.Equal(t, []Object{objects[0]}, Filter(objects, "ACCOUNT"))
	// Label matches too.
	assert.Equal(t, []Object{objects[2]}, Filter(objects, "factory"))
	assert.Empty(t, Filter(objects, "nothing"))
}

func TestCountObjects(t *testing.T) {
	counter := &fakeCounter{counts: map[string]int{"contacts": 42, "deals": 7}}
	objects := []Object{
		{Name: "contacts", Queryable: true},
		{Name: "restricted", Queryable: true},
		{Name: "feed", Queryable: false},
		{Name: "deals", Queryable: true},
	}

	var progress []string
	results := CountObjects(context.Background(), counter, objects, func(index, total int, name string) {
		progress = append(progress, fmt.Sprintf("%d/%d %s", index, total, name))
	}, zap.NewNop())

	require.Len(t, results, 4)
	assert.Equal(t, 42, results[0].Count)
	// A failed count becomes the sentinel, not an aborted sweep.
	assert.Equal(t, CountErrored, results[1].Count)
	assert.True(t, results[2].Skipped)
	assert.Equal(t, 7, results[3].Count)

	// Non-queryable objects are never counted.
	assert.Equal(t, []string{"contacts", "restricted", "deals"}, counter.calls)
	// Progress fires for every object, including skipped ones.
	assert.Equal(t, []string{"1/4 contacts", "2/4 restricted", "3/4 feed", "4/4 deals"}, progress)
}

func TestCountObjectsContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	counter := &fakeCounter{counts: map[string]int{"a": 1, "b": 2}}
	objects := []Object{{Name: "a", Queryable: true}, {Name: "b", Queryable: true}}

	cancel()
	results := CountObjects(ctx, counter, objects, nil, zap.NewNop())
	// The sweep stops at the pacing delay after the first count.
	assert.Len(t, results, 1)
}

func TestCountLabel(t *testing.T) {
	assert.Equal(t, "N/A", Result{Skipped: true}.CountLabel())
	assert.Equal(t, "Error", Result{Count: CountErrored}.CountLabel())
	assert.Equal(t, "1342", Result{Count: 1342}.CountLabel())
}
