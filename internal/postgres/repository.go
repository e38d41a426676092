// Package postgres provides a Postgres-backed shoe store and activity
// source for multi-device deployments.
package postgres

import (
	"context"
	_ "embed"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mesh-intelligence/shoerack/pkg/types"
)

//go:embed schema.sql
var schemaSQL string

const shoeColumns = `shoe_id, brand, model, nickname, acquired_at, lifespan_distance, image_ref,
    is_retired, retired_at, is_default_shoe, default_run_types, suitable_run_types, workouts,
    total_distance, total_duration_ns, last_activity_at, wear_ratio, personal_bests, total_runs,
    created_at, updated_at`

const upsertShoe = `INSERT INTO shoes (` + shoeColumns + `)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)
    ON CONFLICT (shoe_id) DO UPDATE SET
        brand = EXCLUDED.brand,
        model = EXCLUDED.model,
        nickname = EXCLUDED.nickname,
        acquired_at = EXCLUDED.acquired_at,
        lifespan_distance = EXCLUDED.lifespan_distance,
        image_ref = EXCLUDED.image_ref,
        is_retired = EXCLUDED.is_retired,
        retired_at = EXCLUDED.retired_at,
        is_default_shoe = EXCLUDED.is_default_shoe,
        default_run_types = EXCLUDED.default_run_types,
        suitable_run_types = EXCLUDED.suitable_run_types,
        workouts = EXCLUDED.workouts,
        total_distance = EXCLUDED.total_distance,
        total_duration_ns = EXCLUDED.total_duration_ns,
        last_activity_at = EXCLUDED.last_activity_at,
        wear_ratio = EXCLUDED.wear_ratio,
        personal_bests = EXCLUDED.personal_bests,
        total_runs = EXCLUDED.total_runs,
        updated_at = EXCLUDED.updated_at`

// Repository provides Postgres-backed persistence for shoes, activities and
// distance samples.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Connect opens a pool for url and verifies it with a ping.
func Connect(ctx context.Context, url string) (*Repository, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("opening postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	return NewRepository(pool), nil
}

// Migrate creates the tables and indexes if they do not exist.
func (r *Repository) Migrate(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}
	return nil
}

// Close releases the pool.
func (r *Repository) Close() {
	r.pool.Close()
}

// LoadShoes implements types.ShoeStore. Shoes are returned in creation
// order.
func (r *Repository) LoadShoes(ctx context.Context) ([]*types.Shoe, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+shoeColumns+` FROM shoes ORDER BY created_at, shoe_id`)
	if err != nil {
		return nil, fmt.Errorf("querying shoes: %w", err)
	}
	defer rows.Close()

	var shoes []*types.Shoe
	for rows.Next() {
		var row shoeRow
		if err := rows.Scan(row.dest()...); err != nil {
			return nil, fmt.Errorf("scanning shoe: %w", err)
		}
		s, err := row.shoe()
		if err != nil {
			return nil, err
		}
		shoes = append(shoes, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return shoes, nil
}

// SaveShoes implements types.ShoeStore. All shoes are upserted inside a
// single transaction.
func (r *Repository) SaveShoes(ctx context.Context, shoes ...*types.Shoe) (err error) {
	if len(shoes) == 0 {
		return nil
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	for _, s := range shoes {
		if s == nil || s.ShoeID == "" {
			return types.ErrInvalidID
		}
		row, encErr := newShoeRow(s)
		if encErr != nil {
			return fmt.Errorf("encoding shoe %s: %w", s.ShoeID, encErr)
		}
		if _, err = tx.Exec(ctx, upsertShoe, row.args()...); err != nil {
			return fmt.Errorf("upserting shoe %s: %w", s.ShoeID, err)
		}
	}
	return tx.Commit(ctx)
}

// DeleteShoe implements types.ShoeStore.
func (r *Repository) DeleteShoe(ctx context.Context, shoeID string) error {
	if shoeID == "" {
		return types.ErrInvalidID
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM shoes WHERE shoe_id=$1`, shoeID)
	if err != nil {
		return fmt.Errorf("deleting shoe: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("shoe %s: %w", shoeID, types.ErrNotFound)
	}
	return nil
}

// GetActivities implements types.ActivitySource. IDs without a stored
// activity are omitted.
func (r *Repository) GetActivities(ctx context.Context, ids []string) ([]types.Activity, error) {
	if len(ids) == 0 {
		return []types.Activity{}, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT activity_id, start_time, end_time, distance, source
        FROM activities WHERE activity_id = ANY($1) ORDER BY end_time DESC, activity_id`, ids)
	if err != nil {
		return nil, fmt.Errorf("querying activities: %w", err)
	}
	return collectActivities(rows)
}

// GetDistanceSamples implements types.ActivitySource. Returns
// ErrActivityNotFound for an unknown activity.
func (r *Repository) GetDistanceSamples(ctx context.Context, activityID string) ([]types.Sample, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM activities WHERE activity_id=$1)`, activityID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("looking up activity: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("activity %s: %w", activityID, types.ErrActivityNotFound)
	}

	rows, err := r.pool.Query(ctx, `SELECT start_time, end_time, distance
        FROM samples WHERE activity_id=$1 ORDER BY seq`, activityID)
	if err != nil {
		return nil, fmt.Errorf("querying samples: %w", err)
	}
	samples, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (types.Sample, error) {
		var s types.Sample
		err := row.Scan(&s.StartTime, &s.EndTime, &s.Distance)
		s.StartTime = s.StartTime.UTC()
		s.EndTime = s.EndTime.UTC()
		return s, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning samples: %w", err)
	}
	if samples == nil {
		samples = []types.Sample{}
	}
	return samples, nil
}

// PutActivity implements types.ActivityWriter. The activity and its samples
// replace any previous version in one transaction.
func (r *Repository) PutActivity(ctx context.Context, activity types.Activity, samples []types.Sample) (err error) {
	if err := activity.Validate(); err != nil {
		return err
	}
	sorted := append([]types.Sample(nil), samples...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].StartTime.Before(sorted[j].StartTime) })

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, `INSERT INTO activities (activity_id, start_time, end_time, distance, source)
        VALUES ($1,$2,$3,$4,$5)
        ON CONFLICT (activity_id) DO UPDATE SET
            start_time = EXCLUDED.start_time,
            end_time = EXCLUDED.end_time,
            distance = EXCLUDED.distance,
            source = EXCLUDED.source`,
		activity.ActivityID, activity.StartTime.UTC(), activity.EndTime.UTC(), activity.Distance, activity.Source); err != nil {
		return fmt.Errorf("upserting activity: %w", err)
	}
	if _, err = tx.Exec(ctx, `DELETE FROM samples WHERE activity_id=$1`, activity.ActivityID); err != nil {
		return fmt.Errorf("clearing samples: %w", err)
	}

	rows := make([][]any, len(sorted))
	for i, s := range sorted {
		rows[i] = []any{activity.ActivityID, i, s.StartTime.UTC(), s.EndTime.UTC(), s.Distance}
	}
	if _, err = tx.CopyFrom(ctx,
		pgx.Identifier{"samples"},
		[]string{"activity_id", "seq", "start_time", "end_time", "distance"},
		pgx.CopyFromRows(rows),
	); err != nil {
		return fmt.Errorf("copying samples: %w", err)
	}
	return tx.Commit(ctx)
}

// ListActivities implements types.ActivityWriter, newest first.
func (r *Repository) ListActivities(ctx context.Context) ([]types.Activity, error) {
	rows, err := r.pool.Query(ctx, `SELECT activity_id, start_time, end_time, distance, source
        FROM activities ORDER BY end_time DESC, activity_id`)
	if err != nil {
		return nil, fmt.Errorf("querying activities: %w", err)
	}
	return collectActivities(rows)
}

func collectActivities(rows pgx.Rows) ([]types.Activity, error) {
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (types.Activity, error) {
		var a types.Activity
		err := row.Scan(&a.ActivityID, &a.StartTime, &a.EndTime, &a.Distance, &a.Source)
		a.StartTime = a.StartTime.UTC()
		a.EndTime = a.EndTime.UTC()
		return a, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning activities: %w", err)
	}
	if out == nil {
		out = []types.Activity{}
	}
	return out, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}

// compile-time interface checks
var (
	_ types.ShoeStore      = (*Repository)(nil)
	_ types.ActivitySource = (*Repository)(nil)
	_ types.ActivityWriter = (*Repository)(nil)
)
