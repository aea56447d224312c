package dashboard

import (
	"math"

	"github.com/abduss/pipelinedash/internal/records"
)

// SummaryStatistics aggregates segment-filtered metadata.
type SummaryStatistics struct {
	TotalUsers     int              `json:"total_users"`
	AnonymousUsers int              `json:"anonymous_users"`
	IndiaUsers     int              `json:"india_users"`
	Counters       []CounterSummary `json:"counters"`
}

// CounterSummary is the total of one counter and, when defined, its per-user average.
type CounterSummary struct {
	Name    string   `json:"name"`
	Label   string   `json:"label"`
	Total   int64    `json:"total"`
	Average *float64 `json:"average,omitempty"`
}

// Total returns the sum recorded for the named counter.
func (s SummaryStatistics) Total(name string) int64 {
	for _, c := range s.Counters {
		if c.Name == name {
			return c.Total
		}
	}
	return 0
}

// Average returns the per-user average for the named counter, or 0.
func (s SummaryStatistics) Average(name string) float64 {
	for _, c := range s.Counters {
		if c.Name == name && c.Average != nil {
			return *c.Average
		}
	}
	return 0
}

// Aggregate filters rows by seg and sums every counter.
func Aggregate(rows []records.UserMetadata, seg Segment, counters []Counter) SummaryStatistics {
	totals := make([]int64, len(counters))

	var summary SummaryStatistics
	for _, row := range rows {
		if !seg.Match(row) {
			continue
		}
		summary.TotalUsers++
		if row.IsAnonymous {
			summary.AnonymousUsers++
		}
		if row.IsIndia {
			summary.IndiaUsers++
		}
		for i, c := range counters {
			totals[i] += c.Value(row)
		}
	}

	summary.Counters = make([]CounterSummary, len(counters))
	for i, c := range counters {
		cs := CounterSummary{Name: c.Name, Label: c.Label, Total: totals[i]}
		if c.Averaged {
			avg := average(totals[i], summary.TotalUsers)
			cs.Average = &avg
		}
		summary.Counters[i] = cs
	}
	return summary
}

// average rounds to two decimals; an empty population averages to 0.
func average(sum int64, count int) float64 {
	if count == 0 {
		return 0
	}
	return math.Round(float64(sum)/float64(count)*100) / 100
}
