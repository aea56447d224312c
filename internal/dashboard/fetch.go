package dashboard

import (
	"context"

	"github.com/abduss/pipelinedash/internal/records"
	"golang.org/x/sync/errgroup"
)

type fetchResult struct {
	records  []records.ProcessedRecord
	metadata []records.UserMetadata
}

// fetch loads the window's records and the metadata of their owners
// concurrently. Either failure aborts both.
func fetch(ctx context.Context, src records.Source, w Window) (fetchResult, error) {
	var res fetchResult
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		recs, err := src.ListProcessed(gctx, w.Start, w.End)
		if err != nil {
			return &FetchError{Op: "fetch processed images", Err: err}
		}
		res.records = recs
		return nil
	})

	g.Go(func() error {
		ids, err := src.DistinctUserIDs(gctx, w.Start, w.End)
		if err != nil {
			return &FetchError{Op: "fetch processed users", Err: err}
		}
		if len(ids) == 0 {
			return nil
		}
		meta, err := src.MetadataForUsers(gctx, ids)
		if err != nil {
			return &FetchError{Op: "fetch user metadata", Err: err}
		}
		res.metadata = meta
		return nil
	})

	if err := g.Wait(); err != nil {
		return fetchResult{}, err
	}
	return res, nil
}
