package dashboard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/abduss/pipelinedash/internal/preview"
	"github.com/abduss/pipelinedash/internal/records"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	records  []records.ProcessedRecord
	metadata map[string]records.UserMetadata
	listErr  error
	idsErr   error
	metaErr  error

	mu          sync.Mutex
	listCalls   int
	metaCalls   int
	lookupCalls map[string]int
}

func (f *fakeSource) ListProcessed(ctx context.Context, start, end time.Time) ([]records.ProcessedRecord, error) {
	f.mu.Lock()
	f.listCalls++
	f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []records.ProcessedRecord
	for _, r := range f.records {
		if !r.CreatedAt.Before(start) && !r.CreatedAt.After(end) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeSource) DistinctUserIDs(ctx context.Context, start, end time.Time) ([]string, error) {
	if f.idsErr != nil {
		return nil, f.idsErr
	}
	seen := map[string]bool{}
	var ids []string
	for _, r := range f.records {
		if r.UserID == nil || seen[*r.UserID] || r.CreatedAt.Before(start) || r.CreatedAt.After(end) {
			continue
		}
		seen[*r.UserID] = true
		ids = append(ids, *r.UserID)
	}
	return ids, nil
}

func (f *fakeSource) MetadataForUsers(ctx context.Context, userIDs []string) ([]records.UserMetadata, error) {
	f.mu.Lock()
	f.metaCalls++
	f.mu.Unlock()
	if f.metaErr != nil {
		return nil, f.metaErr
	}
	var out []records.UserMetadata
	for _, id := range userIDs {
		if m, ok := f.metadata[id]; ok {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeSource) MetadataByUser(ctx context.Context, userID string) (records.UserMetadata, error) {
	f.mu.Lock()
	if f.lookupCalls == nil {
		f.lookupCalls = map[string]int{}
	}
	f.lookupCalls[userID]++
	f.mu.Unlock()

	m, ok := f.metadata[userID]
	if !ok {
		return records.UserMetadata{}, records.ErrMetadataNotFound
	}
	return m, nil
}

type fakeProvider struct {
	src      records.Source
	err      error
	released *int
}

func (p fakeProvider) Acquire() (records.Source, func(), error) {
	if p.err != nil {
		return nil, nil, p.err
	}
	return p.src, func() {
		if p.released != nil {
			*p.released++
		}
	}, nil
}

type fakeResolver struct {
	calls map[string]int
}

func (r *fakeResolver) Resolve(ctx context.Context, userKey string) preview.Set {
	if r.calls == nil {
		r.calls = map[string]int{}
	}
	r.calls[userKey]++
	return preview.Set{Source: "https://minio/" + userKey + "/source", Target: "https://minio/" + userKey + "/target"}
}

type fakePrefs struct {
	windows  [][2]string
	segments [][2]string
	err      error
}

func (p *fakePrefs) SaveWindow(ctx context.Context, start, end string) error {
	p.windows = append(p.windows, [2]string{start, end})
	return p.err
}

func (p *fakePrefs) SaveSegments(ctx context.Context, anonymous, india string) error {
	p.segments = append(p.segments, [2]string{anonymous, india})
	return p.err
}

func dayQuery() Query {
	return Query{Start: "2024-03-01T00:00", End: "2024-03-02T00:00"}
}

func at(hour int) time.Time {
	return time.Date(2024, 3, 1, hour, 0, 0, 0, time.UTC)
}

func populatedSource() *fakeSource {
	task := `{"taskId":"t1","targetStyleUrl":"https://cdn/style.png","style":"anime"}`
	result := "https://cdn/result.png"
	return &fakeSource{
		records: []records.ProcessedRecord{
			{ID: "r1", UserID: strPtr("alice"), CreatedAt: at(1), Task: &task, ResultURL: &result},
			{ID: "r2", CreatedAt: at(2)},
			{ID: "r3", UserID: strPtr("bob"), CreatedAt: at(3)},
			{ID: "r4", UserID: strPtr("alice"), CreatedAt: at(4)},
			{ID: "r5", UserID: strPtr("carol"), CreatedAt: at(5)},
		},
		metadata: map[string]records.UserMetadata{
			"alice": {UserID: "alice", IsAnonymous: true, TotalTransforms: 2},
			"bob":   {UserID: "bob", IsIndia: true, TotalTransforms: 5},
		},
	}
}

func TestFilterBuildsGroupedView(t *testing.T) {
	src := populatedSource()
	resolver := &fakeResolver{}
	prefs := &fakePrefs{}
	svc := NewService(fakeProvider{src: src}, resolver, prefs, time.UTC, nil)

	view, err := svc.Filter(context.Background(), dayQuery())
	require.NoError(t, err)

	assert.Equal(t, 5, view.RecordCount)
	assert.Equal(t, 4, view.UserCount)
	assert.Equal(t, 2, view.Summary.TotalUsers)
	assert.Equal(t, int64(7), view.Summary.Total("transforms"))
	assert.Equal(t, 3.5, view.Summary.Average("transforms"))

	require.Len(t, view.Groups, 4)
	assert.Equal(t, "alice", view.Groups[0].UserKey)
	assert.Equal(t, "User: alice (2 records)", view.Groups[0].Title)
	assert.Equal(t, "User: N/A (1 record)", view.Groups[1].Title)
	assert.Nil(t, view.Groups[1].Metadata)
	assert.Nil(t, view.Groups[3].Metadata, "carol has no metadata row")

	alice := view.Groups[0]
	require.NotNil(t, alice.Metadata)
	assert.True(t, alice.Metadata.Anonymous)
	require.Len(t, alice.Rows, 2)
	assert.Equal(t, "r4", alice.Rows[0].RecordID)
	assert.Equal(t, 1, alice.Rows[0].Number)
	assert.Equal(t, 2, alice.Rows[1].Number)
	assert.Equal(t, "03/01/2024, 01:00:00 AM UTC", alice.Rows[1].Timestamp)
	assert.Equal(t, "{\n  \"style\": \"anime\"\n}", alice.Rows[1].Task)

	images := alice.Rows[1].Images
	require.Len(t, images, 4)
	assert.Equal(t, "https://minio/alice/source", images[0].URL)
	assert.Equal(t, "https://minio/alice/target", images[1].URL)
	assert.Equal(t, "https://cdn/style.png", images[2].URL)
	assert.Equal(t, "https://cdn/result.png", images[3].URL)
	assert.Equal(t, "No Result image", alice.Rows[0].Images[3].Placeholder)

	bob := view.Groups[2]
	assert.Equal(t, 0, bob.Rows[0].Number)
	assert.Equal(t, NotAvailable, view.Groups[1].Rows[0].UserKey)
	assert.Equal(t, NotAvailable, view.Groups[1].Rows[0].Task)

	assert.Equal(t, map[string]int{"alice": 1, "bob": 1, "carol": 1}, resolver.calls)
	assert.Equal(t, [][2]string{{"2024-03-01T00:00", "2024-03-02T00:00"}}, prefs.windows)
	assert.Equal(t, [][2]string{{"all", "all"}}, prefs.segments)
}

func TestFilterSegmentKeepsUsersWithoutMetadata(t *testing.T) {
	src := populatedSource()
	svc := NewService(fakeProvider{src: src}, nil, nil, time.UTC, nil)

	q := dayQuery()
	q.Anonymous = "registered-only"
	view, err := svc.Filter(context.Background(), q)
	require.NoError(t, err)

	keys := make([]string, 0, len(view.Groups))
	for _, g := range view.Groups {
		keys = append(keys, g.UserKey)
	}
	assert.Equal(t, []string{NoUserKey, "bob", "carol"}, keys)
	assert.Equal(t, 1, view.Summary.TotalUsers)
	assert.Equal(t, 1, src.lookupCalls["alice"], "metadata is looked up once per user")
	assert.Empty(t, view.Groups[0].Previews, "no resolver means empty previews")
}

func TestFilterRejectsInvalidInputWithoutFetching(t *testing.T) {
	src := populatedSource()
	prefs := &fakePrefs{}
	svc := NewService(fakeProvider{src: src}, nil, prefs, time.UTC, nil)

	cases := []Query{
		{Start: "", End: "2024-03-02T00:00"},
		{Start: "2024-03-02T00:00", End: "2024-03-01T00:00"},
		{Start: "2024-03-01T00:00", End: "2024-03-02T00:00", India: "mars"},
	}
	for _, q := range cases {
		_, err := svc.Filter(context.Background(), q)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr, "query %+v", q)
	}

	assert.Zero(t, src.listCalls)
	assert.Empty(t, prefs.windows)
}

func TestFilterEmptyStore(t *testing.T) {
	svc := NewService(fakeProvider{src: &fakeSource{}}, &fakeResolver{}, nil, time.UTC, nil)

	view, err := svc.Filter(context.Background(), dayQuery())
	require.NoError(t, err)

	assert.Zero(t, view.RecordCount)
	assert.Zero(t, view.UserCount)
	assert.Empty(t, view.Groups)
	assert.Zero(t, view.Summary.TotalUsers)
	for _, c := range DefaultCounters {
		assert.Zero(t, view.Summary.Total(c.Name))
		assert.Zero(t, view.Summary.Average(c.Name))
	}
}

func TestFilterSkipsMetadataWhenNoOwners(t *testing.T) {
	src := &fakeSource{
		records: []records.ProcessedRecord{{ID: "r1", CreatedAt: at(1)}, {ID: "r2", CreatedAt: at(2)}},
		metaErr: errors.New("metadata must not be queried"),
	}
	svc := NewService(fakeProvider{src: src}, &fakeResolver{}, nil, time.UTC, nil)

	view, err := svc.Filter(context.Background(), dayQuery())
	require.NoError(t, err)

	assert.Zero(t, src.metaCalls)
	assert.Equal(t, 2, view.RecordCount)
	assert.Zero(t, view.Summary.TotalUsers)
	for _, c := range DefaultCounters {
		assert.Zero(t, view.Summary.Total(c.Name))
	}
	require.Len(t, view.Groups, 1)
	assert.Equal(t, NoUserKey, view.Groups[0].UserKey)
}

func TestFilterReleasesConnection(t *testing.T) {
	released := 0
	svc := NewService(fakeProvider{src: populatedSource(), released: &released}, nil, nil, time.UTC, nil)

	_, err := svc.Filter(context.Background(), dayQuery())
	require.NoError(t, err)
	_, err = svc.Filter(context.Background(), Query{Start: "bad", End: "worse"})
	require.Error(t, err)

	assert.Equal(t, 2, released)
}

func TestFilterFetchFailureAborts(t *testing.T) {
	cause := errors.New("relation does not exist")

	for name, src := range map[string]*fakeSource{
		"records":  {listErr: cause},
		"metadata": {records: populatedSource().records, metaErr: cause},
	} {
		resolver := &fakeResolver{}
		svc := NewService(fakeProvider{src: src}, resolver, nil, time.UTC, nil)

		_, err := svc.Filter(context.Background(), dayQuery())
		var ferr *FetchError
		require.ErrorAs(t, err, &ferr, name)
		assert.ErrorIs(t, err, cause)
		assert.Empty(t, resolver.calls, name)
	}
}

func TestFilterWithoutConnection(t *testing.T) {
	svc := NewService(fakeProvider{err: errors.New("not connected")}, nil, nil, time.UTC, nil)

	_, err := svc.Filter(context.Background(), dayQuery())
	assert.ErrorIs(t, err, ErrNoConnection)
}

func TestFilterIgnoresPreferenceFailures(t *testing.T) {
	prefs := &fakePrefs{err: errors.New("disk full")}
	svc := NewService(fakeProvider{src: &fakeSource{}}, nil, prefs, time.UTC, nil)

	_, err := svc.Filter(context.Background(), dayQuery())
	require.NoError(t, err)
	assert.Len(t, prefs.windows, 1)
}

func TestServiceLastDay(t *testing.T) {
	prefs := &fakePrefs{}
	svc := NewService(fakeProvider{src: &fakeSource{}}, nil, prefs, time.UTC, nil)
	svc.nowFunc = func() time.Time { return time.Date(2024, 3, 2, 9, 30, 0, 0, time.UTC) }

	start, end := svc.LastDay(context.Background())
	assert.Equal(t, "2024-03-01T09:30", start)
	assert.Equal(t, "2024-03-02T09:30", end)
	assert.Equal(t, [][2]string{{start, end}}, prefs.windows)
}
