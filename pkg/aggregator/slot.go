package aggregator

import (
	"github.com/insightflow/insightflow-bff/pkg/models"
	"github.com/insightflow/insightflow-bff/pkg/upstream"
)

// Slot names, also used as metric labels
const (
	SlotOnline     = "online"
	SlotHotPages   = "hot_pages"
	SlotEvents     = "events"
	SlotConversion = "conversion"
)

// Slot holds the outcome of one upstream call
type Slot[T any] struct {
	Value T
	Err   error
}

// OK reports whether the call succeeded
func (s Slot[T]) OK() bool {
	return s.Err == nil
}

// Or returns the value, or def when the call failed
func (s Slot[T]) Or(def T) T {
	if s.Err != nil {
		return def
	}
	return s.Value
}

// DashboardInputs is the per-request result of the dashboard fan-out
type DashboardInputs struct {
	Online     Slot[upstream.OnlineStats]
	HotPages   Slot[upstream.HotPages]
	Events     Slot[upstream.EventStats]
	Conversion Slot[upstream.ConversionStats]
}

// DashboardPayloads are dashboard inputs with failed slots replaced by defaults.
// Collections are never nil.
type DashboardPayloads struct {
	Online     upstream.OnlineStats
	HotPages   upstream.HotPages
	Events     upstream.EventStats
	Conversion upstream.ConversionStats
}

// Resolve applies defaults to failed slots
func (in DashboardInputs) Resolve() DashboardPayloads {
	out := DashboardPayloads{
		Online:     in.Online.Or(upstream.OnlineStats{}),
		HotPages:   in.HotPages.Or(upstream.HotPages{}),
		Events:     in.Events.Or(upstream.EventStats{}),
		Conversion: in.Conversion.Or(upstream.ConversionStats{}),
	}
	if out.HotPages.Pages == nil {
		out.HotPages.Pages = []models.PageRecord{}
	}
	if out.Events.EventsByType == nil {
		out.Events.EventsByType = map[string]int64{}
	}
	return out
}

// Failed lists the slots whose call failed, in fixed order
func (in DashboardInputs) Failed() []string {
	var failed []string
	if !in.Online.OK() {
		failed = append(failed, SlotOnline)
	}
	if !in.HotPages.OK() {
		failed = append(failed, SlotHotPages)
	}
	if !in.Events.OK() {
		failed = append(failed, SlotEvents)
	}
	if !in.Conversion.OK() {
		failed = append(failed, SlotConversion)
	}
	return failed
}

// RealtimeInputs is the per-request result of the realtime fan-out
type RealtimeInputs struct {
	Online Slot[upstream.OnlineStats]
	Events Slot[upstream.EventStats]
}

// RealtimePayloads are realtime inputs with defaults applied
type RealtimePayloads struct {
	Online upstream.OnlineStats
	Events upstream.EventStats
}

// Resolve applies defaults to failed slots
func (in RealtimeInputs) Resolve() RealtimePayloads {
	out := RealtimePayloads{
		Online: in.Online.Or(upstream.OnlineStats{}),
		Events: in.Events.Or(upstream.EventStats{}),
	}
	if out.Events.EventsByType == nil {
		out.Events.EventsByType = map[string]int64{}
	}
	return out
}

// Failed lists the slots whose call failed
func (in RealtimeInputs) Failed() []string {
	var failed []string
	if !in.Online.OK() {
		failed = append(failed, SlotOnline)
	}
	if !in.Events.OK() {
		failed = append(failed, SlotEvents)
	}
	return failed
}
