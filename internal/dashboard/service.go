package dashboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abduss/pipelinedash/internal/metrics"
	"github.com/abduss/pipelinedash/internal/records"
	"go.uber.org/zap"
)

type sourceProvider interface {
	Acquire() (records.Source, func(), error)
}

type preferenceStore interface {
	SaveWindow(ctx context.Context, start, end string) error
	SaveSegments(ctx context.Context, anonymous, india string) error
}

// Query is the operator's filter input.
type Query struct {
	Start     string `json:"start"`
	End       string `json:"end"`
	Anonymous string `json:"anonymous"`
	India     string `json:"india"`
}

// Service runs the fetch, aggregate, group, filter and assemble pipeline.
type Service struct {
	sources  sourceProvider
	previews previewResolver
	prefs    preferenceStore
	counters []Counter
	location *time.Location
	logger   *zap.Logger
	nowFunc  func() time.Time
}

// NewService wires the pipeline. previews and prefs may be nil.
func NewService(sources sourceProvider, previews previewResolver, prefs preferenceStore, location *time.Location, logger *zap.Logger) *Service {
	if location == nil {
		location = time.Local
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		sources:  sources,
		previews: previews,
		prefs:    prefs,
		counters: DefaultCounters,
		location: location,
		logger:   logger,
		nowFunc:  time.Now,
	}
}

// Filter validates q, fetches the window and builds the view model.
func (s *Service) Filter(ctx context.Context, q Query) (View, error) {
	view, err := s.filter(ctx, q)
	switch {
	case err == nil:
		metrics.ObserveFilter("ok")
	case isValidation(err):
		metrics.ObserveFilter("invalid")
	default:
		metrics.ObserveFilter("error")
	}
	return view, err
}

func (s *Service) filter(ctx context.Context, q Query) (View, error) {
	src, release, err := s.sources.Acquire()
	if err != nil {
		return View{}, fmt.Errorf("%w: %v", ErrNoConnection, err)
	}
	defer release()

	window, err := NormalizeWindow(q.Start, q.End, s.location)
	if err != nil {
		return View{}, err
	}
	seg, err := ParseSegment(q.Anonymous, q.India)
	if err != nil {
		return View{}, err
	}
	s.remember(ctx, q, seg)

	fetched, err := fetch(ctx, src, window)
	if err != nil {
		s.logger.Error("filter fetch failed", zap.Error(err))
		return View{}, err
	}

	summary := Aggregate(fetched.metadata, seg, s.counters)
	grouping := GroupByUser(fetched.records)
	keys, known := FilterUsers(ctx, grouping.Keys(), src, seg, s.logger)

	asm := &assembler{
		previews: newPreviewCache(s.previews),
		counters: s.counters,
		display:  s.formatTimestamp,
		logger:   s.logger,
	}
	groups := asm.assemble(ctx, grouping, keys, known)

	s.logger.Info("filter completed",
		zap.Time("start", window.Start),
		zap.Time("end", window.End),
		zap.Int("records", len(fetched.records)),
		zap.Int("owners", grouping.Len()),
		zap.Int("users", len(keys)),
	)

	return View{
		Window:      window,
		Segment:     seg,
		Summary:     summary,
		RecordCount: len(fetched.records),
		UserCount:   len(keys),
		Groups:      groups,
	}, nil
}

// LastDay returns the 24 hours ending now as input strings and remembers them.
func (s *Service) LastDay(ctx context.Context) (string, string) {
	start, end := LastDay(s.nowFunc(), s.location)
	if s.prefs != nil {
		if err := s.prefs.SaveWindow(ctx, start, end); err != nil {
			s.logger.Warn("could not cache window", zap.Error(err))
		}
	}
	return start, end
}

// DefaultWindow is the window offered when none has been cached.
func (s *Service) DefaultWindow() (string, string) {
	return LastDay(s.nowFunc(), s.location)
}

func (s *Service) remember(ctx context.Context, q Query, seg Segment) {
	if s.prefs == nil {
		return
	}
	if err := s.prefs.SaveWindow(ctx, q.Start, q.End); err != nil {
		s.logger.Warn("could not cache window", zap.Error(err))
	}
	if err := s.prefs.SaveSegments(ctx, string(seg.Anonymous), string(seg.India)); err != nil {
		s.logger.Warn("could not cache filters", zap.Error(err))
	}
}

func (s *Service) formatTimestamp(rec records.ProcessedRecord) string {
	return rec.CreatedAt.In(s.location).Format(DisplayLayout)
}

func isValidation(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr) || errors.Is(err, ErrNoConnection)
}
