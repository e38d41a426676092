package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mesh-intelligence/shoerack/pkg/types"
)

// GetActivities implements types.ActivitySource. IDs without a stored
// activity are omitted.
func (b *Backend) GetActivities(ctx context.Context, ids []string) ([]types.Activity, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrStoreDetached
	}
	if len(ids) == 0 {
		return []types.Activity{}, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	rows, err := b.db.QueryContext(ctx,
		"SELECT activity_id, start_time, end_time, distance, source FROM activities WHERE activity_id IN ("+
			strings.Join(placeholders, ", ")+") ORDER BY end_time DESC, activity_id", args...)
	if err != nil {
		return nil, fmt.Errorf("querying activities: %w", err)
	}
	defer rows.Close()
	return scanActivities(rows)
}

// GetDistanceSamples implements types.ActivitySource. Returns
// ErrActivityNotFound for an unknown activity.
func (b *Backend) GetDistanceSamples(ctx context.Context, activityID string) ([]types.Sample, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrStoreDetached
	}

	var exists int
	if err := b.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM activities WHERE activity_id = ?", activityID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("looking up activity: %w", err)
	}
	if exists == 0 {
		return nil, fmt.Errorf("activity %s: %w", activityID, types.ErrActivityNotFound)
	}

	rows, err := b.db.QueryContext(ctx,
		"SELECT activity_id, seq, start_time, end_time, distance FROM samples WHERE activity_id = ? ORDER BY seq",
		activityID)
	if err != nil {
		return nil, fmt.Errorf("querying samples: %w", err)
	}
	defer rows.Close()

	samples := []types.Sample{}
	for rows.Next() {
		var rec sampleJSON
		if err := rows.Scan(&rec.ActivityID, &rec.Seq, &rec.StartTime, &rec.EndTime, &rec.Distance); err != nil {
			return nil, fmt.Errorf("scanning sample: %w", err)
		}
		s, err := hydrateSample(rec)
		if err != nil {
			return nil, err
		}
		samples = append(samples, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return samples, nil
}

// PutActivity implements types.ActivityWriter. The activity and its samples
// replace any previous version in one transaction.
func (b *Backend) PutActivity(ctx context.Context, activity types.Activity, samples []types.Sample) error {
	if err := activity.Validate(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return types.ErrStoreDetached
	}

	sorted := append([]types.Sample(nil), samples...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].StartTime.Before(sorted[j].StartTime) })

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning activity write: %w", err)
	}
	defer tx.Rollback()

	rec := dehydrateActivity(activity)
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO activities (activity_id, start_time, end_time, distance, source)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(activity_id) DO UPDATE SET
			start_time = excluded.start_time,
			end_time = excluded.end_time,
			distance = excluded.distance,
			source = excluded.source`,
		rec.ActivityID, rec.StartTime, rec.EndTime, rec.Distance, rec.Source); err != nil {
		return fmt.Errorf("upserting activity: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM samples WHERE activity_id = ?", activity.ActivityID); err != nil {
		return fmt.Errorf("clearing samples: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO samples (activity_id, seq, start_time, end_time, distance) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("preparing sample insert: %w", err)
	}
	defer stmt.Close()
	for i, s := range sorted {
		if _, err := stmt.ExecContext(ctx, activity.ActivityID, i, formatTime(s.StartTime), formatTime(s.EndTime), s.Distance); err != nil {
			return fmt.Errorf("inserting sample %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing activity write: %w", err)
	}
	if err := b.persist(activitiesJSONL, b.persistActivitiesJSONL); err != nil {
		return err
	}
	return b.persist(samplesJSONL, b.persistSamplesJSONL)
}

// ListActivities implements types.ActivityWriter, newest first.
func (b *Backend) ListActivities(ctx context.Context) ([]types.Activity, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrStoreDetached
	}

	rows, err := b.db.QueryContext(ctx,
		"SELECT activity_id, start_time, end_time, distance, source FROM activities ORDER BY end_time DESC, activity_id")
	if err != nil {
		return nil, fmt.Errorf("querying activities: %w", err)
	}
	defer rows.Close()
	return scanActivities(rows)
}

func scanActivities(rows interface {
	rowScanner
	Next() bool
	Err() error
}) ([]types.Activity, error) {
	out := []types.Activity{}
	for rows.Next() {
		var rec activityJSON
		if err := rows.Scan(&rec.ActivityID, &rec.StartTime, &rec.EndTime, &rec.Distance, &rec.Source); err != nil {
			return nil, fmt.Errorf("scanning activity: %w", err)
		}
		a, err := hydrateActivity(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// persistActivitiesJSONL rewrites activities.jsonl from the activities table.
func (b *Backend) persistActivitiesJSONL() error {
	rows, err := b.db.Query("SELECT activity_id, start_time, end_time, distance, source FROM activities ORDER BY start_time, activity_id")
	if err != nil {
		return fmt.Errorf("reading activities for JSONL: %w", err)
	}
	defer rows.Close()

	var records []json.RawMessage
	for rows.Next() {
		var rec activityJSON
		if err := rows.Scan(&rec.ActivityID, &rec.StartTime, &rec.EndTime, &rec.Distance, &rec.Source); err != nil {
			return fmt.Errorf("scanning activity for JSONL: %w", err)
		}
		raw, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		records = append(records, raw)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	return writeJSONL(filepath.Join(b.dataDir, activitiesJSONL), records)
}

// persistSamplesJSONL rewrites samples.jsonl from the samples table.
func (b *Backend) persistSamplesJSONL() error {
	rows, err := b.db.Query("SELECT activity_id, seq, start_time, end_time, distance FROM samples ORDER BY activity_id, seq")
	if err != nil {
		return fmt.Errorf("reading samples for JSONL: %w", err)
	}
	defer rows.Close()

	var records []json.RawMessage
	for rows.Next() {
		var rec sampleJSON
		if err := rows.Scan(&rec.ActivityID, &rec.Seq, &rec.StartTime, &rec.EndTime, &rec.Distance); err != nil {
			return fmt.Errorf("scanning sample for JSONL: %w", err)
		}
		raw, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		records = append(records, raw)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	return writeJSONL(filepath.Join(b.dataDir, samplesJSONL), records)
}
