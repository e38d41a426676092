package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/shoerack/pkg/types"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoadJSONLToleratesUnknownFieldsAndBadLines(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, shoesJSONL, `{"shoe_id":"s1","brand":"B","model":"M","nickname":"","acquired_at":"2026-01-01T00:00:00Z","lifespan_distance":500,"image_ref":"","is_retired":false,"retired_at":null,"is_default_shoe":true,"default_run_types":["daily","sprint"],"suitable_run_types":[],"workouts":["a1"],"total_distance":10,"total_duration_ns":3000000000000,"last_activity_at":"2026-01-02T07:00:00Z","wear_ratio":0.02,"personal_bests":{"10k":{"elapsed_ns":3000000000000,"activity_id":"a1"},"ultra":{"elapsed_ns":1,"activity_id":"x"}},"total_runs":{"5k":1,"10k":1},"created_at":"2026-01-01T00:00:00Z","updated_at":"2026-01-01T00:00:00Z","colorway":"red"}
garbage line
{"shoe_id":"s2"}
`)
	writeFile(t, dir, activitiesJSONL, `{"activity_id":"a1","start_time":"2026-01-02T06:10:00Z","end_time":"2026-01-02T07:00:00Z","distance":10000,"source":"fit","heart_rate":150}
`)
	writeFile(t, dir, samplesJSONL, `{"activity_id":"a1","seq":0,"start_time":"2026-01-02T06:10:00Z","end_time":"2026-01-02T06:35:00Z","distance":5000}
{"activity_id":"a1","seq":1,"start_time":"2026-01-02T06:35:00Z","end_time":"2026-01-02T07:00:00Z","distance":5000}
{"activity_id":"orphan","seq":0,"start_time":"2026-01-02T06:10:00Z","end_time":"2026-01-02T06:35:00Z","distance":5000}
`)

	b := attach(t, dir, types.SQLiteConfig{})
	ctx := context.Background()

	shoes, err := b.LoadShoes(ctx)
	require.NoError(t, err)
	require.Len(t, shoes, 1, "incomplete record is skipped")
	s := shoes[0]
	assert.Equal(t, []types.RunCategory{types.RunDaily}, s.DefaultRunTypes, "unknown category dropped")
	assert.Equal(t, 3000000000000, int(s.TotalDuration))
	pb, ok := s.PersonalBests.Lookup(types.Category10K)
	require.True(t, ok)
	assert.Equal(t, "a1", pb.ActivityID)
	assert.Len(t, s.PersonalBests, 1)
	assert.Equal(t, 1, s.TotalRuns[types.Category5K])

	samples, err := b.GetDistanceSamples(ctx, "a1")
	require.NoError(t, err)
	assert.Len(t, samples, 2)

	var orphans int
	require.NoError(t, b.db.QueryRow("SELECT COUNT(*) FROM samples WHERE activity_id = 'orphan'").Scan(&orphans))
	assert.Zero(t, orphans)
}

func TestColumnValue(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want any
	}{
		{"nil", nil, nil},
		{"string", "x", "x"},
		{"bool", true, true},
		{"array", []any{"a", "b"}, `["a","b"]`},
		{"object", map[string]any{"k": "v"}, `{"k":"v"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, columnValue(tt.in))
		})
	}
}
