package adapter

import (
	"math"
	"strings"
	"time"

	"github.com/insightflow/insightflow-bff/pkg/aggregator"
	"github.com/insightflow/insightflow-bff/pkg/models"
)

// ClientType identifies the consuming device class
type ClientType string

const (
	Web    ClientType = "web"
	Mobile ClientType = "mobile"
	TV     ClientType = "tv"
)

// ClientTypes lists every supported client type
var ClientTypes = []ClientType{Web, Mobile, TV}

// profile describes how a client type trims the dashboard
type profile struct {
	hotPages int
	// eventTypes restricts events_by_type to these keys (missing keys report 0).
	// nil keeps the full breakdown.
	eventTypes []string
}

var profiles = map[ClientType]profile{
	Web:    {hotPages: 5},
	Mobile: {hotPages: 3, eventTypes: []string{"view", "click"}},
	TV:     {hotPages: 10},
}

// ParseClientType maps a path segment to a client type. Unknown values are Web.
func ParseClientType(s string) ClientType {
	ct := ClientType(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := profiles[ct]; ok {
		return ct
	}
	return Web
}

// String returns the wire name
func (c ClientType) String() string {
	return string(c)
}

// HotPageLimit returns how many hot pages the client type receives
func (c ClientType) HotPageLimit() int {
	return profiles[ParseClientType(string(c))].hotPages
}

// Adapt shapes aggregated inputs into the dashboard for a client type.
// Hot pages keep upstream order; only the prefix is kept.
func Adapt(clientType ClientType, in aggregator.DashboardInputs, now time.Time) models.DashboardView {
	p := profiles[ParseClientType(string(clientType))]
	payloads := in.Resolve()

	return models.DashboardView{
		OnlineUsers:    nonNegative(payloads.Online.Count),
		TotalEvents:    nonNegative(payloads.Events.TotalEvents),
		EventsByType:   eventsByType(payloads.Events.EventsByType, p.eventTypes),
		HotPages:       prefix(payloads.HotPages.Pages, p.hotPages),
		ConversionRate: clampRate(payloads.Conversion.Rate),
		LastUpdated:    now,
	}
}

func eventsByType(all map[string]int64, keep []string) map[string]int64 {
	if keep == nil {
		out := make(map[string]int64, len(all))
		for k, v := range all {
			out[k] = nonNegative(v)
		}
		return out
	}
	out := make(map[string]int64, len(keep))
	for _, k := range keep {
		out[k] = nonNegative(all[k])
	}
	return out
}

func prefix(pages []models.PageRecord, n int) []models.PageRecord {
	if len(pages) > n {
		pages = pages[:n]
	}
	out := make([]models.PageRecord, len(pages))
	copy(out, pages)
	return out
}

func nonNegative(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}

func clampRate(r float64) float64 {
	switch {
	case math.IsNaN(r), r < 0:
		return 0
	case r > 1:
		return 1
	default:
		return r
	}
}
