package dashboard

import (
	"sort"

	"github.com/abduss/pipelinedash/internal/records"
)

// NoUserKey groups records that have no owning user.
const NoUserKey = "null"

// Grouping holds records partitioned by user key in first-seen order.
type Grouping struct {
	keys   []string
	groups map[string][]records.ProcessedRecord
}

// GroupByUser partitions recs by owner and orders each partition newest first.
// Records with equal timestamps keep their input order.
func GroupByUser(recs []records.ProcessedRecord) Grouping {
	g := Grouping{groups: make(map[string][]records.ProcessedRecord)}
	for _, rec := range recs {
		key := UserKey(rec)
		if _, ok := g.groups[key]; !ok {
			g.keys = append(g.keys, key)
		}
		g.groups[key] = append(g.groups[key], rec)
	}

	for _, list := range g.groups {
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		})
	}
	return g
}

// UserKey returns the grouping key of a record.
func UserKey(rec records.ProcessedRecord) string {
	if rec.UserID == nil || *rec.UserID == "" {
		return NoUserKey
	}
	return *rec.UserID
}

// Keys returns user keys in first-seen order.
func (g Grouping) Keys() []string {
	return append([]string(nil), g.keys...)
}

// Records returns the ordered records of one user.
func (g Grouping) Records(key string) []records.ProcessedRecord {
	return g.groups[key]
}

// Len is the number of user groups.
func (g Grouping) Len() int {
	return len(g.keys)
}
