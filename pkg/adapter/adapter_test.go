package adapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightflow/insightflow-bff/pkg/aggregator"
	"github.com/insightflow/insightflow-bff/pkg/models"
	"github.com/insightflow/insightflow-bff/pkg/upstream"
)

var now = time.Date(2024, 6, 1, 10, 30, 0, 0, time.UTC)

func pages(n int) []models.PageRecord {
	out := make([]models.PageRecord, n)
	for i := range out {
		out[i] = models.PageRecord{"page_url": fmt.Sprintf("/p%d", i), "views": float64(100 - i)}
	}
	return out
}

func inputs(pageCount int) aggregator.DashboardInputs {
	return aggregator.DashboardInputs{
		Online:   aggregator.Slot[upstream.OnlineStats]{Value: upstream.OnlineStats{Count: 7}},
		HotPages: aggregator.Slot[upstream.HotPages]{Value: upstream.HotPages{Pages: pages(pageCount)}},
		Events: aggregator.Slot[upstream.EventStats]{Value: upstream.EventStats{
			TotalEvents:  42,
			EventsByType: map[string]int64{"view": 30, "click": 10, "scroll": 2},
		}},
		Conversion: aggregator.Slot[upstream.ConversionStats]{Value: upstream.ConversionStats{Rate: 0.12}},
	}
}

func TestParseClientType(t *testing.T) {
	tests := []struct {
		in   string
		want ClientType
	}{
		{"web", Web},
		{"mobile", Mobile},
		{"tv", TV},
		{"TV", TV},
		{" mobile ", Mobile},
		{"watch", Web},
		{"", Web},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseClientType(tt.in))
		})
	}
}

func TestHotPageLimit(t *testing.T) {
	assert.Equal(t, 5, Web.HotPageLimit())
	assert.Equal(t, 3, Mobile.HotPageLimit())
	assert.Equal(t, 10, TV.HotPageLimit())
	assert.Equal(t, 5, ClientType("fridge").HotPageLimit())
}

func TestAdapt_Mobile(t *testing.T) {
	view := Adapt(Mobile, inputs(6), now)

	assert.Equal(t, int64(7), view.OnlineUsers)
	assert.Equal(t, int64(42), view.TotalEvents)
	assert.Equal(t, map[string]int64{"view": 30, "click": 10}, view.EventsByType)
	require.Len(t, view.HotPages, 3)
	assert.Equal(t, "/p0", view.HotPages[0]["page_url"])
	assert.Equal(t, "/p2", view.HotPages[2]["page_url"])
	assert.InDelta(t, 0.12, view.ConversionRate, 1e-9)
	assert.Equal(t, now, view.LastUpdated)
}

func TestAdapt_MobileMissingKeysReportZero(t *testing.T) {
	in := inputs(1)
	in.Events.Value.EventsByType = map[string]int64{"scroll": 9}

	view := Adapt(Mobile, in, now)
	assert.Equal(t, map[string]int64{"view": 0, "click": 0}, view.EventsByType)
}

func TestAdapt_PageLimits(t *testing.T) {
	tests := []struct {
		clientType ClientType
		available  int
		want       int
	}{
		{Web, 12, 5},
		{TV, 12, 10},
		{Mobile, 12, 3},
		{TV, 4, 4},
		{Web, 0, 0},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%d", tt.clientType, tt.available), func(t *testing.T) {
			view := Adapt(tt.clientType, inputs(tt.available), now)
			assert.Len(t, view.HotPages, tt.want)
			assert.NotNil(t, view.HotPages)
			for i, p := range view.HotPages {
				assert.Equal(t, fmt.Sprintf("/p%d", i), p["page_url"], "order is preserved")
			}
		})
	}
}

func TestAdapt_WebAndTVKeepFullBreakdown(t *testing.T) {
	for _, ct := range []ClientType{Web, TV} {
		view := Adapt(ct, inputs(1), now)
		assert.Equal(t, map[string]int64{"view": 30, "click": 10, "scroll": 2}, view.EventsByType)
	}
}

func TestAdapt_UnknownFallsBackToWeb(t *testing.T) {
	in := inputs(8)
	assert.Equal(t, Adapt(Web, in, now), Adapt(ClientType("smartwatch"), in, now))
}

func TestAdapt_FailedSlotsUseDefaults(t *testing.T) {
	down := &upstream.Error{Kind: upstream.KindUnavailable}
	in := aggregator.DashboardInputs{
		Online:     aggregator.Slot[upstream.OnlineStats]{Err: down},
		HotPages:   aggregator.Slot[upstream.HotPages]{Err: down},
		Events:     aggregator.Slot[upstream.EventStats]{Err: errors.New("bad")},
		Conversion: aggregator.Slot[upstream.ConversionStats]{Err: down},
	}

	view := Adapt(TV, in, now)
	assert.Zero(t, view.OnlineUsers)
	assert.Zero(t, view.TotalEvents)
	assert.Zero(t, view.ConversionRate)

	body, err := json.Marshal(view)
	require.NoError(t, err)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &decoded))
	for _, field := range []string{"online_users", "total_events", "events_by_type", "hot_pages", "conversion_rate", "last_updated"} {
		assert.NotNil(t, decoded[field], "field %s must never be null", field)
	}
}

func TestAdapt_ClampsOutOfRangeValues(t *testing.T) {
	in := inputs(1)
	in.Online.Value.Count = -3
	in.Events.Value.TotalEvents = -1
	in.Events.Value.EventsByType = map[string]int64{"view": -5}

	tests := []struct {
		rate float64
		want float64
	}{
		{1.7, 1},
		{-0.2, 0},
		{math.NaN(), 0},
		{0.5, 0.5},
	}
	for _, tt := range tests {
		in.Conversion.Value.Rate = tt.rate
		view := Adapt(Web, in, now)
		assert.Equal(t, tt.want, view.ConversionRate)
		assert.Zero(t, view.OnlineUsers)
		assert.Zero(t, view.TotalEvents)
		assert.Zero(t, view.EventsByType["view"])
	}
}

func TestAdapt_DoesNotAliasInput(t *testing.T) {
	in := inputs(4)
	view := Adapt(Web, in, now)
	view.HotPages[0] = models.PageRecord{"page_url": "/mutated"}
	view.EventsByType["view"] = 0

	assert.Equal(t, "/p0", in.HotPages.Value.Pages[0]["page_url"])
	assert.Equal(t, int64(30), in.Events.Value.EventsByType["view"])
}
