package dashboard

import (
	"context"
	"fmt"

	"github.com/abduss/pipelinedash/internal/preview"
	"github.com/abduss/pipelinedash/internal/records"
	"go.uber.org/zap"
)

// DisplayLayout formats record timestamps for the operator.
const DisplayLayout = "01/02/2006, 03:04:05 PM MST"

// View is the renderable result of one filter operation.
type View struct {
	Window      Window            `json:"window"`
	Segment     Segment           `json:"segment"`
	Summary     SummaryStatistics `json:"summary"`
	RecordCount int               `json:"record_count"`
	UserCount   int               `json:"user_count"`
	Groups      []GroupView       `json:"groups"`
}

// GroupView is one user's block of rows.
type GroupView struct {
	UserKey     string         `json:"user_key"`
	Title       string         `json:"title"`
	RecordCount int            `json:"record_count"`
	Metadata    *MetadataStrip `json:"metadata,omitempty"`
	Previews    preview.Set    `json:"previews"`
	Rows        []RowView      `json:"rows"`
}

// MetadataStrip shows a user's lifetime counters above their rows.
type MetadataStrip struct {
	Anonymous bool           `json:"anonymous"`
	India     bool           `json:"india"`
	Counters  []CounterValue `json:"counters"`
}

// RowView is a single processed record.
type RowView struct {
	RecordID  string      `json:"record_id"`
	UserKey   string      `json:"user_key"`
	Number    int         `json:"number,omitempty"`
	Timestamp string      `json:"timestamp"`
	Task      string      `json:"task"`
	Images    []ImageSlot `json:"images"`
}

// ImageSlot is either an image URL or a placeholder text.
type ImageSlot struct {
	Label       string `json:"label"`
	URL         string `json:"url,omitempty"`
	Placeholder string `json:"placeholder,omitempty"`
}

type previewResolver interface {
	Resolve(ctx context.Context, userKey string) preview.Set
}

// previewCache resolves each user's previews at most once per invocation.
type previewCache struct {
	resolver previewResolver
	sets     map[string]preview.Set
}

func newPreviewCache(resolver previewResolver) *previewCache {
	return &previewCache{resolver: resolver, sets: make(map[string]preview.Set)}
}

func (c *previewCache) get(ctx context.Context, key string) preview.Set {
	if key == NoUserKey || c.resolver == nil {
		return preview.Set{}
	}
	if set, ok := c.sets[key]; ok {
		return set
	}
	set := c.resolver.Resolve(ctx, key)
	c.sets[key] = set
	return set
}

type assembler struct {
	previews *previewCache
	counters []Counter
	display  func(records.ProcessedRecord) string
	logger   *zap.Logger
}

// assemble builds one group per selected key, in order. Users are processed
// one at a time.
func (a *assembler) assemble(ctx context.Context, grouping Grouping, keys []string, known map[string]records.UserMetadata) []GroupView {
	groups := make([]GroupView, 0, len(keys))
	for _, key := range keys {
		recs := grouping.Records(key)
		set := a.previews.get(ctx, key)

		group := GroupView{
			UserKey:     key,
			Title:       groupTitle(key, len(recs)),
			RecordCount: len(recs),
			Previews:    set,
			Rows:        make([]RowView, 0, len(recs)),
		}
		if meta, ok := known[key]; ok {
			group.Metadata = &MetadataStrip{
				Anonymous: meta.IsAnonymous,
				India:     meta.IsIndia,
				Counters:  counterValues(meta, a.counters),
			}
		}

		for i, rec := range recs {
			group.Rows = append(group.Rows, a.row(key, i, len(recs), rec, set))
		}
		groups = append(groups, group)
	}
	return groups
}

func (a *assembler) row(key string, index, total int, rec records.ProcessedRecord, set preview.Set) RowView {
	task, ok := FormatTask(rec.Task)
	if !ok {
		a.logger.Debug("task payload is not valid JSON", zap.String("record_id", rec.ID))
	}

	resultURL := ""
	if rec.ResultURL != nil {
		resultURL = *rec.ResultURL
	}

	row := RowView{
		RecordID:  rec.ID,
		UserKey:   displayKey(key),
		Timestamp: a.display(rec),
		Task:      task,
		Images: []ImageSlot{
			imageSlot("Source", set.Get(preview.RoleSource)),
			imageSlot("Profile", set.Get(preview.RoleTarget)),
			imageSlot("Target Style", TargetStyleURL(rec.Task)),
			imageSlot("Result", resultURL),
		},
	}
	if total > 1 {
		row.Number = index + 1
	}
	return row
}

func imageSlot(label, u string) ImageSlot {
	if u == "" {
		return ImageSlot{Label: label, Placeholder: fmt.Sprintf("No %s image", label)}
	}
	return ImageSlot{Label: label, URL: u}
}

func displayKey(key string) string {
	if key == NoUserKey || key == "" {
		return NotAvailable
	}
	return key
}

func groupTitle(key string, count int) string {
	noun := "records"
	if count == 1 {
		noun = "record"
	}
	return fmt.Sprintf("User: %s (%d %s)", displayKey(key), count, noun)
}
