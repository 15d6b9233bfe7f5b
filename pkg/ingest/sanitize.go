package ingest

import (
	"time"
	"unicode/utf8"

	"github.com/insightflow/insightflow-bff/pkg/models"
)

// Sanitize normalizes a raw event. Missing fields are not rejected: absent
// strings become "" and an absent or undecodable timestamp becomes now.
// A present timestamp, zero included, is copied through.
func Sanitize(raw models.RawEvent, now time.Time) models.Event {
	event := models.Event{
		UserID:    deref(raw.UserID),
		SessionID: deref(raw.SessionID),
		EventType: deref(raw.EventType),
		PageURL:   truncate(deref(raw.PageURL), models.MaxPageURLLength),
		Timestamp: now.Unix(),
	}

	if raw.Element != nil && *raw.Element != "" {
		event.Element = truncate(*raw.Element, models.MaxElementLength)
	}
	if raw.ElementText != nil && *raw.ElementText != "" {
		event.ElementText = truncate(*raw.ElementText, models.MaxElementTextLength)
	}
	if len(raw.ExtraData) > 0 {
		event.ExtraData = raw.ExtraData
	}
	if raw.Timestamp != nil && raw.Timestamp.Valid {
		event.Timestamp = raw.Timestamp.Seconds
	}

	return event
}

// SanitizeAll sanitizes a batch, preserving order
func SanitizeAll(raw []models.RawEvent, now time.Time) []models.Event {
	events := make([]models.Event, len(raw))
	for i, r := range raw {
		events[i] = Sanitize(r, now)
	}
	return events
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// truncate cuts s to at most max runes
func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}
