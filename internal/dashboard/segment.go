package dashboard

import (
	"context"
	"errors"

	"github.com/abduss/pipelinedash/internal/records"
	"go.uber.org/zap"
)

// AnonymousSelector narrows users by anonymity.
type AnonymousSelector string

const (
	AnonymousAll   AnonymousSelector = "all"
	AnonymousOnly  AnonymousSelector = "anonymous-only"
	RegisteredOnly AnonymousSelector = "registered-only"
)

// IndiaSelector narrows users by region.
type IndiaSelector string

const (
	IndiaAll     IndiaSelector = "all"
	IndiaOnly    IndiaSelector = "india-only"
	NonIndiaOnly IndiaSelector = "non-india-only"
)

// Segment combines both selectors; a user must pass both.
type Segment struct {
	Anonymous AnonymousSelector `json:"anonymous"`
	India     IndiaSelector     `json:"india"`
}

// ParseSegment validates selector values; empty means "all".
func ParseSegment(anonymous, india string) (Segment, error) {
	seg := Segment{Anonymous: AnonymousAll, India: IndiaAll}

	switch a := AnonymousSelector(anonymous); a {
	case "":
	case AnonymousAll, AnonymousOnly, RegisteredOnly:
		seg.Anonymous = a
	default:
		return Segment{}, invalid("unknown anonymous filter %q", anonymous)
	}

	switch i := IndiaSelector(india); i {
	case "":
	case IndiaAll, IndiaOnly, NonIndiaOnly:
		seg.India = i
	default:
		return Segment{}, invalid("unknown india filter %q", india)
	}

	return seg, nil
}

// All reports whether the segment lets every user through.
func (s Segment) All() bool {
	return (s.Anonymous == AnonymousAll || s.Anonymous == "") && (s.India == IndiaAll || s.India == "")
}

// Match applies both predicates to a metadata row.
func (s Segment) Match(meta records.UserMetadata) bool {
	switch s.Anonymous {
	case AnonymousOnly:
		if !meta.IsAnonymous {
			return false
		}
	case RegisteredOnly:
		if meta.IsAnonymous {
			return false
		}
	}

	switch s.India {
	case IndiaOnly:
		if !meta.IsIndia {
			return false
		}
	case NonIndiaOnly:
		if meta.IsIndia {
			return false
		}
	}
	return true
}

type metadataLookup interface {
	MetadataByUser(ctx context.Context, userID string) (records.UserMetadata, error)
}

// FilterUsers keeps the keys whose metadata matches seg, preserving order.
// Users without known metadata always pass. The metadata found along the way
// is returned so callers need not look it up again.
func FilterUsers(ctx context.Context, keys []string, lookup metadataLookup, seg Segment, logger *zap.Logger) ([]string, map[string]records.UserMetadata) {
	if logger == nil {
		logger = zap.NewNop()
	}

	known := make(map[string]records.UserMetadata, len(keys))
	kept := make([]string, 0, len(keys))
	for _, key := range keys {
		if key == NoUserKey || key == "" {
			kept = append(kept, key)
			continue
		}

		meta, err := lookup.MetadataByUser(ctx, key)
		if err != nil {
			if !errors.Is(err, records.ErrMetadataNotFound) {
				logger.Warn("could not fetch user metadata", zap.String("user_id", key), zap.Error(err))
			}
			kept = append(kept, key)
			continue
		}

		known[key] = meta
		if seg.All() || seg.Match(meta) {
			kept = append(kept, key)
		}
	}
	return kept, known
}
