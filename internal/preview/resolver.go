package preview

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/abduss/pipelinedash/internal/metrics"
	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// Role names a fixed image category stored under each user prefix.
type Role string

const (
	RoleSource Role = "source"
	RoleResult Role = "result"
	RoleTarget Role = "target"
)

// Roles lists the resolved roles in resolution order.
var Roles = []Role{RoleSource, RoleResult, RoleTarget}

const (
	defaultTTL   = time.Hour
	defaultLimit = 100
)

var errNoObjects = errors.New("no stored objects")

// Set holds one signed URL per role; an empty string means no image.
type Set struct {
	Source string `json:"source,omitempty"`
	Result string `json:"result,omitempty"`
	Target string `json:"target,omitempty"`
}

// Get returns the URL stored for the role.
func (s Set) Get(role Role) string {
	switch role {
	case RoleSource:
		return s.Source
	case RoleResult:
		return s.Result
	case RoleTarget:
		return s.Target
	}
	return ""
}

func (s *Set) set(role Role, u string) {
	switch role {
	case RoleSource:
		s.Source = u
	case RoleResult:
		s.Result = u
	case RoleTarget:
		s.Target = u
	}
}

type objectStore interface {
	ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expiry time.Duration, reqParams url.Values) (*url.URL, error)
}

// Resolver turns the newest stored object per role into a time-limited URL.
type Resolver struct {
	store  objectStore
	bucket string
	ttl    time.Duration
	limit  int
	logger *zap.Logger
}

// NewResolver constructs a resolver over the given bucket.
func NewResolver(store objectStore, bucket string, ttl time.Duration, limit int, logger *zap.Logger) *Resolver {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		store:  store,
		bucket: bucket,
		ttl:    ttl,
		limit:  limit,
		logger: logger,
	}
}

// Resolve signs the latest object of every role for the user. Failures are
// logged per role and leave that slot empty.
func (r *Resolver) Resolve(ctx context.Context, userKey string) Set {
	var set Set
	for _, role := range Roles {
		u, err := r.resolveRole(ctx, userKey, role)
		if err != nil {
			if !errors.Is(err, errNoObjects) {
				metrics.ObservePreviewWarning(string(role))
				r.logger.Warn("could not resolve preview",
					zap.String("user_id", userKey),
					zap.String("role", string(role)),
					zap.Error(err),
				)
			}
			continue
		}
		set.set(role, u)
	}
	return set
}

// Latest lists objects under {userKey}/{role}/ and returns them newest first,
// capped at the configured limit.
func (r *Resolver) Latest(ctx context.Context, userKey string, role Role) ([]minio.ObjectInfo, error) {
	prefix := fmt.Sprintf("%s/%s/", userKey, role)

	// stops the lister goroutine if we bail out early
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var objects []minio.ObjectInfo
	for obj := range r.store.ListObjects(ctx, r.bucket, minio.ListObjectsOptions{Prefix: prefix}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list %s: %w", prefix, obj.Err)
		}
		// folder markers carry no image
		if strings.HasSuffix(obj.Key, "/") || strings.HasSuffix(obj.Key, ".emptyFolderPlaceholder") {
			continue
		}
		objects = append(objects, obj)
	}

	sort.SliceStable(objects, func(i, j int) bool {
		return objects[i].LastModified.After(objects[j].LastModified)
	})
	if len(objects) > r.limit {
		objects = objects[:r.limit]
	}
	return objects, nil
}

func (r *Resolver) resolveRole(ctx context.Context, userKey string, role Role) (string, error) {
	objects, err := r.Latest(ctx, userKey, role)
	if err != nil {
		return "", err
	}
	if len(objects) == 0 {
		return "", errNoObjects
	}

	signed, err := r.store.PresignedGetObject(ctx, r.bucket, objects[0].Key, r.ttl, make(url.Values))
	if err != nil {
		return "", fmt.Errorf("sign %s: %w", objects[0].Key, err)
	}
	return signed.String(), nil
}
