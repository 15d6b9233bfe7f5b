package views

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeUserBehavior(t *testing.T) {
	tests := []struct {
		name     string
		events   []map[string]interface{}
		types    map[string]int
		pages    map[string]int
		first    *int64
		last     *int64
		duration int64
	}{
		{
			name:   "empty",
			events: nil,
			types:  map[string]int{},
			pages:  map[string]int{},
		},
		{
			name: "timestamps out of order",
			events: []map[string]interface{}{
				{"event_type": "view", "page_url": "/a", "timestamp": float64(100)},
				{"event_type": "view", "page_url": "/b", "timestamp": float64(500)},
				{"event_type": "click", "page_url": "/a", "timestamp": float64(300)},
			},
			types:    map[string]int{"view": 2, "click": 1},
			pages:    map[string]int{"/a": 2, "/b": 1},
			first:    int64Ptr(100),
			last:     int64Ptr(500),
			duration: 400,
		},
		{
			name: "missing type and empty page",
			events: []map[string]interface{}{
				{"page_url": ""},
				{"event_type": "view"},
			},
			types: map[string]int{"unknown": 1, "view": 1},
			pages: map[string]int{},
		},
		{
			name: "zero and missing timestamps are ignored",
			events: []map[string]interface{}{
				{"event_type": "view", "timestamp": float64(0)},
				{"event_type": "view", "timestamp": "250"},
				{"event_type": "view"},
			},
			types: map[string]int{"view": 3},
			pages: map[string]int{},
			first: int64Ptr(250),
			last:  int64Ptr(250),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AnalyzeUserBehavior(tt.events)

			assert.Equal(t, len(tt.events), got.TotalEvents)
			assert.Equal(t, tt.types, got.EventTypes)
			assert.Equal(t, tt.pages, got.MostVisitedPages)
			assert.Equal(t, tt.first, got.FirstVisit)
			assert.Equal(t, tt.last, got.LastVisit)
			assert.Equal(t, tt.duration, got.SessionDuration)
		})
	}
}

func TestAnalyzeUserBehavior_TopFivePages(t *testing.T) {
	var events []map[string]interface{}
	visits := map[string]int{"/a": 1, "/b": 6, "/c": 3, "/d": 3, "/e": 5, "/f": 2, "/g": 3}
	for url, n := range visits {
		for i := 0; i < n; i++ {
			events = append(events, map[string]interface{}{"event_type": "view", "page_url": url})
		}
	}

	got := AnalyzeUserBehavior(events)

	require.Len(t, got.MostVisitedPages, 5)
	assert.Equal(t, map[string]int{"/b": 6, "/e": 5, "/c": 3, "/d": 3, "/g": 3}, got.MostVisitedPages)
}

func int64Ptr(v int64) *int64 {
	return &v
}
