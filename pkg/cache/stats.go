package cache

import "sync/atomic"

// Stats is a snapshot of view cache effectiveness
type Stats struct {
	Hits    int64
	Misses  int64
	HitRate float64
}

// Counters tracks hits and misses across all views
type Counters struct {
	hits   atomic.Int64
	misses atomic.Int64
}

// NewCounters creates zeroed counters
func NewCounters() *Counters {
	return &Counters{}
}

func (c *Counters) RecordHit() {
	c.hits.Add(1)
}

func (c *Counters) RecordMiss() {
	c.misses.Add(1)
}

// Snapshot returns the current counts and hit rate (0 when nothing was recorded)
func (c *Counters) Snapshot() Stats {
	stats := Stats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
	}
	if total := stats.Hits + stats.Misses; total > 0 {
		stats.HitRate = float64(stats.Hits) / float64(total)
	}
	return stats
}
