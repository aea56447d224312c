package records

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const repoTimeout = 5 * time.Second

const metadataColumns = `
       user_id::text,
       COALESCE(is_anonymous, FALSE),
       COALESCE(is_india, FALSE),
       COALESCE(total_transforms, 0),
       COALESCE(total_shares, 0),
       COALESCE(total_likes, 0),
       COALESCE(total_dislikes, 0),
       COALESCE(total_buy_credits_calls, 0),
       COALESCE(total_source_uploads, 0),
       COALESCE(total_add_credits_calls, 0)`

// Repository reads processed images and user metadata from the pipeline database.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds a read-only repository over the pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListProcessed returns records created within [start, end], newest first.
func (r *Repository) ListProcessed(ctx context.Context, start, end time.Time) ([]ProcessedRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `
SELECT id::text, user_id::text, created_at, task::text, result_url
FROM processed_images
WHERE created_at >= $1 AND created_at <= $2
ORDER BY created_at DESC;`

	rows, err := r.pool.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("list processed images: %w", err)
	}
	defer rows.Close()

	var list []ProcessedRecord
	for rows.Next() {
		var rec ProcessedRecord
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.CreatedAt, &rec.Task, &rec.ResultURL); err != nil {
			return nil, fmt.Errorf("scan processed image: %w", err)
		}
		list = append(list, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate processed images: %w", err)
	}
	return list, nil
}

// DistinctUserIDs returns the owners of records created within [start, end].
func (r *Repository) DistinctUserIDs(ctx context.Context, start, end time.Time) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `
SELECT DISTINCT user_id::text
FROM processed_images
WHERE created_at >= $1 AND created_at <= $2
  AND user_id IS NOT NULL;`

	rows, err := r.pool.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("list processed users: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user ids: %w", err)
	}
	return ids, nil
}

// MetadataForUsers returns metadata rows for the given user IDs.
// user_id is compared uncast so a uuid column keeps its index.
func (r *Repository) MetadataForUsers(ctx context.Context, userIDs []string) ([]UserMetadata, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `SELECT` + metadataColumns + `
FROM user_metadata
WHERE user_id = ANY($1);`

	rows, err := r.pool.Query(ctx, query, userIDs)
	if err != nil {
		return nil, fmt.Errorf("list user metadata: %w", err)
	}
	defer rows.Close()

	var list []UserMetadata
	for rows.Next() {
		meta, err := scanMetadata(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, meta)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user metadata: %w", err)
	}
	return list, nil
}

// MetadataByUser fetches the single metadata row for a user.
func (r *Repository) MetadataByUser(ctx context.Context, userID string) (UserMetadata, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `SELECT` + metadataColumns + `
FROM user_metadata
WHERE user_id = $1;`

	meta, err := scanMetadata(r.pool.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return UserMetadata{}, ErrMetadataNotFound
		}
		return UserMetadata{}, err
	}
	return meta, nil
}

// Ping checks connectivity to the database.
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func scanMetadata(row pgx.Row) (UserMetadata, error) {
	var meta UserMetadata
	err := row.Scan(
		&meta.UserID,
		&meta.IsAnonymous,
		&meta.IsIndia,
		&meta.TotalTransforms,
		&meta.TotalShares,
		&meta.TotalLikes,
		&meta.TotalDislikes,
		&meta.TotalBuyCreditsCalls,
		&meta.TotalSourceUploads,
		&meta.TotalAddCreditsCalls,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return UserMetadata{}, err
		}
		return UserMetadata{}, fmt.Errorf("scan user metadata: %w", err)
	}
	return meta, nil
}
