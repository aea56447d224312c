package dashboard

import (
	"reflect"
	"testing"

	"github.com/abduss/pipelinedash/internal/records"
)

func sampleMetadata() []records.UserMetadata {
	return []records.UserMetadata{
		{UserID: "u1", IsAnonymous: true, IsIndia: true, TotalTransforms: 3, TotalShares: 1, TotalLikes: 2, TotalBuyCreditsCalls: 1, TotalSourceUploads: 2},
		{UserID: "u2", IsIndia: true, TotalTransforms: 4, TotalLikes: 1, TotalDislikes: 1, TotalSourceUploads: 1, TotalAddCreditsCalls: 1},
		{UserID: "u3", TotalTransforms: 5, TotalShares: 2, TotalBuyCreditsCalls: 3},
	}
}

func TestAggregateAllUsers(t *testing.T) {
	summary := Aggregate(sampleMetadata(), Segment{Anonymous: AnonymousAll, India: IndiaAll}, DefaultCounters)

	if summary.TotalUsers != 3 || summary.AnonymousUsers != 1 || summary.IndiaUsers != 2 {
		t.Fatalf("unexpected counts: %+v", summary)
	}
	if summary.Total("transforms") != 12 || summary.Average("transforms") != 4 {
		t.Fatalf("unexpected transforms: total %d avg %v", summary.Total("transforms"), summary.Average("transforms"))
	}
	if summary.Total("shares") != 3 || summary.Average("shares") != 1 {
		t.Fatalf("unexpected shares: total %d avg %v", summary.Total("shares"), summary.Average("shares"))
	}
	if summary.Total("buy_credits_calls") != 4 {
		t.Fatalf("unexpected buy credits total %d", summary.Total("buy_credits_calls"))
	}
	for _, c := range summary.Counters {
		if c.Name == "buy_credits_calls" && c.Average != nil {
			t.Fatalf("buy credits calls must not carry an average")
		}
	}
}

func TestAggregateAppliesBothSelectors(t *testing.T) {
	summary := Aggregate(sampleMetadata(), Segment{Anonymous: RegisteredOnly, India: IndiaOnly}, DefaultCounters)

	if summary.TotalUsers != 1 || summary.IndiaUsers != 1 || summary.AnonymousUsers != 0 {
		t.Fatalf("expected only u2, got %+v", summary)
	}
	if summary.Total("transforms") != 4 || summary.Average("dislikes") != 1 {
		t.Fatalf("unexpected totals for u2: %+v", summary.Counters)
	}

	summary = Aggregate(sampleMetadata(), Segment{Anonymous: AnonymousOnly, India: NonIndiaOnly}, DefaultCounters)
	if summary.TotalUsers != 0 {
		t.Fatalf("expected no users, got %d", summary.TotalUsers)
	}
}

func TestAggregateRoundsAndHandlesEmpty(t *testing.T) {
	rows := []records.UserMetadata{
		{UserID: "a", TotalLikes: 1},
		{UserID: "b"},
		{UserID: "c"},
	}
	summary := Aggregate(rows, Segment{}, DefaultCounters)
	if got := summary.Average("likes"); got != 0.33 {
		t.Fatalf("expected 0.33, got %v", got)
	}

	rows[1].TotalLikes = 1
	if got := Aggregate(rows, Segment{}, DefaultCounters).Average("likes"); got != 0.67 {
		t.Fatalf("expected 0.67, got %v", got)
	}

	empty := Aggregate(nil, Segment{}, DefaultCounters)
	if empty.TotalUsers != 0 || len(empty.Counters) != len(DefaultCounters) {
		t.Fatalf("expected zero summary with all counters, got %+v", empty)
	}
	for _, c := range empty.Counters {
		if c.Total != 0 || (c.Average != nil && *c.Average != 0) {
			t.Fatalf("expected zero counter, got %+v", c)
		}
	}
}

func TestAggregateIsIdempotent(t *testing.T) {
	rows := sampleMetadata()
	seg := Segment{Anonymous: AnonymousAll, India: IndiaOnly}

	first := Aggregate(rows, seg, DefaultCounters)
	second := Aggregate(rows, seg, DefaultCounters)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("aggregate is not deterministic: %+v vs %+v", first, second)
	}
}

func TestAggregateCustomCounters(t *testing.T) {
	counters := []Counter{
		{Name: "engagement", Label: "Engagement", Value: func(m records.UserMetadata) int64 { return m.TotalLikes + m.TotalShares }, Averaged: true},
	}
	summary := Aggregate(sampleMetadata(), Segment{}, counters)

	if len(summary.Counters) != 1 || summary.Total("engagement") != 6 || summary.Average("engagement") != 2 {
		t.Fatalf("unexpected custom summary: %+v", summary.Counters)
	}
}
