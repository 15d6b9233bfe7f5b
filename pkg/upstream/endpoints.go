package upstream

import (
	"context"
	"net/url"
	"strconv"

	"github.com/insightflow/insightflow-bff/pkg/models"
)

// OnlineStats is the body of GET /api/stats/online
type OnlineStats struct {
	Count int64 `json:"count"`
}

// HotPages is the body of GET /api/stats/hot-pages
type HotPages struct {
	Pages []models.PageRecord `json:"pages"`
}

// EventStats is the body of GET /api/stats/events
type EventStats struct {
	TotalEvents  int64            `json:"total_events"`
	EventsByType map[string]int64 `json:"events_by_type"`
}

// ConversionStats is the body of GET /api/stats/conversion
type ConversionStats struct {
	Rate float64 `json:"rate"`
}

// UserEvents is the body of GET /api/user/{id}/events
type UserEvents struct {
	Events []map[string]interface{} `json:"events"`
}

// OnlineStats fetches the current online user count
func (c *Client) OnlineStats(ctx context.Context) (OnlineStats, error) {
	var out OnlineStats
	err := c.Get(ctx, "/stats/online", nil, &out)
	return out, err
}

// HotPages fetches the ranked hot page list
func (c *Client) HotPages(ctx context.Context) (HotPages, error) {
	var out HotPages
	err := c.Get(ctx, "/stats/hot-pages", nil, &out)
	return out, err
}

// EventStats fetches event totals and the per-type breakdown
func (c *Client) EventStats(ctx context.Context) (EventStats, error) {
	var out EventStats
	err := c.Get(ctx, "/stats/events", nil, &out)
	return out, err
}

// ConversionStats fetches the overall conversion rate
func (c *Client) ConversionStats(ctx context.Context) (ConversionStats, error) {
	var out ConversionStats
	err := c.Get(ctx, "/stats/conversion", nil, &out)
	return out, err
}

// UserEvents fetches up to limit recent events for a user
func (c *Client) UserEvents(ctx context.Context, userID string, limit int) (UserEvents, error) {
	var out UserEvents
	params := url.Values{"limit": []string{strconv.Itoa(limit)}}
	err := c.Get(ctx, "/user/"+url.PathEscape(userID)+"/events", params, &out)
	return out, err
}

// FunnelAnalysis fetches the analysis for a funnel definition
func (c *Client) FunnelAnalysis(ctx context.Context, funnelID string) (models.FunnelAnalysis, error) {
	var out models.FunnelAnalysis
	err := c.Get(ctx, "/funnel/"+url.PathEscape(funnelID)+"/analysis", nil, &out)
	return out, err
}

// PostEvents forwards a sanitized batch as {"events": [...]}
func (c *Client) PostEvents(ctx context.Context, events []models.Event) (map[string]interface{}, error) {
	out := map[string]interface{}{}
	err := c.Post(ctx, "/events", map[string]interface{}{"events": events}, &out)
	return out, err
}
