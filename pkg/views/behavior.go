package views

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/insightflow/insightflow-bff/pkg/models"
)

// topPages is how many pages most_visited_pages keeps
const topPages = 5

// AnalyzeUserBehavior summarizes a user's events.
//
// Events without an event_type count as "unknown". Pages are ranked by visit
// count, ties broken by URL. Visits span the smallest and largest non-zero
// timestamps.
func AnalyzeUserBehavior(events []map[string]interface{}) models.UserBehaviorSummary {
	summary := models.UserBehaviorSummary{
		TotalEvents:      len(events),
		EventTypes:       map[string]int{},
		MostVisitedPages: map[string]int{},
	}

	pageCounts := map[string]int{}
	var first, last int64
	seen := false

	for _, event := range events {
		summary.EventTypes[eventType(event)]++

		if url, ok := event["page_url"].(string); ok && url != "" {
			pageCounts[url]++
		}

		ts, ok := timestamp(event["timestamp"])
		if !ok || ts == 0 {
			continue
		}
		if !seen || ts < first {
			first = ts
		}
		if !seen || ts > last {
			last = ts
		}
		seen = true
	}

	if seen {
		summary.FirstVisit = &first
		summary.LastVisit = &last
		summary.SessionDuration = last - first
	}

	type pageCount struct {
		url   string
		count int
	}
	ranked := make([]pageCount, 0, len(pageCounts))
	for url, count := range pageCounts {
		ranked = append(ranked, pageCount{url, count})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].url < ranked[j].url
	})
	if len(ranked) > topPages {
		ranked = ranked[:topPages]
	}
	for _, p := range ranked {
		summary.MostVisitedPages[p.url] = p.count
	}

	return summary
}

func eventType(event map[string]interface{}) string {
	v, ok := event["event_type"]
	if !ok || v == nil {
		return "unknown"
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// timestamp accepts the numeric forms a decoded JSON event may carry
func timestamp(v interface{}) (int64, bool) {
	switch t := v.(type) {
	case float64:
		return int64(t), true
	case int64:
		return t, true
	case int:
		return int64(t), true
	case json.Number:
		n, err := t.Int64()
		return n, err == nil
	case string:
		n, err := strconv.ParseInt(t, 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}
