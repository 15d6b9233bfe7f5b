package models

import (
	"bytes"
	"encoding/json"
	"math"
	"time"
)

// Field length limits applied by the ingestion sanitizer
const (
	MaxPageURLLength     = 512
	MaxElementLength     = 128
	MaxElementTextLength = 256
)

// Event is a sanitized user behavior event as forwarded upstream
type Event struct {
	UserID      string                 `json:"user_id"`
	SessionID   string                 `json:"session_id"`
	EventType   string                 `json:"event_type"`
	PageURL     string                 `json:"page_url"`
	Element     string                 `json:"element,omitempty"`
	ElementText string                 `json:"element_text,omitempty"`
	Timestamp   int64                  `json:"timestamp"`
	ExtraData   map[string]interface{} `json:"extra_data,omitempty"`
}

// RawEvent is an inbound event record before sanitation. Every field is optional.
type RawEvent struct {
	UserID      *string                `json:"user_id,omitempty"`
	SessionID   *string                `json:"session_id,omitempty"`
	EventType   *string                `json:"event_type,omitempty"`
	PageURL     *string                `json:"page_url,omitempty"`
	Element     *string                `json:"element,omitempty"`
	ElementText *string                `json:"element_text,omitempty"`
	Timestamp   *EventTime             `json:"timestamp,omitempty"`
	ExtraData   map[string]interface{} `json:"extra_data,omitempty"`
}

// EventTime is a leniently decoded unix-seconds timestamp. Integral numbers
// decode even when written as floats (1700000000.0) or numeric strings.
// Anything else decodes without error and is left invalid.
type EventTime struct {
	Seconds int64
	Valid   bool
}

// UnixTime returns a valid EventTime for sec
func UnixTime(sec int64) *EventTime {
	return &EventTime{Seconds: sec, Valid: true}
}

// UnmarshalJSON never fails so one odd timestamp cannot reject a whole batch
func (t *EventTime) UnmarshalJSON(data []byte) error {
	*t = EventTime{}

	data = bytes.Trim(bytes.TrimSpace(data), `"`)
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return nil
	}
	if v, err := n.Int64(); err == nil {
		*t = EventTime{Seconds: v, Valid: true}
		return nil
	}
	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) || f > math.MaxInt64 || f < math.MinInt64 {
		return nil
	}
	*t = EventTime{Seconds: int64(f), Valid: true}
	return nil
}

// MarshalJSON writes the seconds, or null when invalid
func (t EventTime) MarshalJSON() ([]byte, error) {
	if !t.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(t.Seconds)
}

// BatchEventRequest is the body of POST /bff/events/batch
type BatchEventRequest struct {
	Events []RawEvent `json:"events"`
}

// EventResponse reports the outcome of an ingested batch
type EventResponse struct {
	Status           string                 `json:"status"`
	Message          string                 `json:"message"`
	ProcessedCount   int                    `json:"processed_count"`
	UpstreamResponse map[string]interface{} `json:"upstream_response,omitempty"`
}

// PageRecord is a single hot page entry. The upstream shape is passed through untouched.
type PageRecord map[string]interface{}

// DashboardView is the client-adapted dashboard payload
type DashboardView struct {
	OnlineUsers    int64            `json:"online_users"`
	TotalEvents    int64            `json:"total_events"`
	EventsByType   map[string]int64 `json:"events_by_type"`
	HotPages       []PageRecord     `json:"hot_pages"`
	ConversionRate float64          `json:"conversion_rate"`
	LastUpdated    time.Time        `json:"last_updated"`
}

// RealtimeStats is the uncached realtime statistics payload
type RealtimeStats struct {
	OnlineUsers     int64  `json:"online_users"`
	TotalEvents     int64  `json:"total_events"`
	EventsPerMinute int64  `json:"events_per_minute"`
	Timestamp       int64  `json:"timestamp"`
	ServerTime      string `json:"server_time"`
}

// FunnelAnalysis is the upstream funnel result
type FunnelAnalysis struct {
	Steps          []map[string]interface{} `json:"steps"`
	TotalUsers     int64                    `json:"total_users"`
	ConversionRate float64                  `json:"conversion_rate"`
}

// UserBehaviorSummary is derived from a user's recent events
type UserBehaviorSummary struct {
	TotalEvents      int            `json:"total_events"`
	EventTypes       map[string]int `json:"event_types"`
	MostVisitedPages map[string]int `json:"most_visited_pages"`
	SessionDuration  int64          `json:"session_duration"`
	FirstVisit       *int64         `json:"first_visit"`
	LastVisit        *int64         `json:"last_visit"`
}

// UserAnalytics is the payload of GET /bff/user/{id}/analytics
type UserAnalytics struct {
	UserID  string                   `json:"user_id"`
	Events  []map[string]interface{} `json:"events"`
	Summary UserBehaviorSummary      `json:"summary"`
}

// SystemMetrics is the JSON payload of GET /metrics
type SystemMetrics struct {
	RedisMemoryUsed   string `json:"redis_memory_used"`
	ActiveConnections string `json:"active_connections"`
	CacheHitRate      string `json:"cache_hit_rate"`
	Timestamp         string `json:"timestamp"`
}
