package dashboard

import "github.com/abduss/pipelinedash/internal/records"

// Counter describes one lifetime metric shown in the summary and per user.
type Counter struct {
	Name     string
	Label    string
	Value    func(records.UserMetadata) int64
	Averaged bool
}

// DefaultCounters is the counter set tracked by user_metadata.
var DefaultCounters = []Counter{
	{Name: "transforms", Label: "Transforms", Value: func(m records.UserMetadata) int64 { return m.TotalTransforms }, Averaged: true},
	{Name: "shares", Label: "Shares", Value: func(m records.UserMetadata) int64 { return m.TotalShares }, Averaged: true},
	{Name: "likes", Label: "Likes", Value: func(m records.UserMetadata) int64 { return m.TotalLikes }, Averaged: true},
	{Name: "dislikes", Label: "Dislikes", Value: func(m records.UserMetadata) int64 { return m.TotalDislikes }, Averaged: true},
	{Name: "buy_credits_calls", Label: "Buy Credits", Value: func(m records.UserMetadata) int64 { return m.TotalBuyCreditsCalls }},
	{Name: "source_uploads", Label: "Source Uploads", Value: func(m records.UserMetadata) int64 { return m.TotalSourceUploads }, Averaged: true},
	{Name: "add_credits_calls", Label: "Add Credits", Value: func(m records.UserMetadata) int64 { return m.TotalAddCreditsCalls }, Averaged: true},
}

// CounterValue is a single named counter reading.
type CounterValue struct {
	Name  string `json:"name"`
	Label string `json:"label"`
	Value int64  `json:"value"`
}

func counterValues(meta records.UserMetadata, counters []Counter) []CounterValue {
	values := make([]CounterValue, 0, len(counters))
	for _, c := range counters {
		values = append(values, CounterValue{Name: c.Name, Label: c.Label, Value: c.Value(meta)})
	}
	return values
}
