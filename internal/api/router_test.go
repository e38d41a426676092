package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/shoerack/internal/entitlement"
	"github.com/mesh-intelligence/shoerack/internal/memory"
	"github.com/mesh-intelligence/shoerack/internal/rack"
	"github.com/mesh-intelligence/shoerack/pkg/types"
)

var t0 = time.Date(2026, 5, 4, 6, 30, 0, 0, time.UTC)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type shoeEnvelope struct {
	Shoe struct {
		ShoeID          string              `json:"shoe_id"`
		Model           string              `json:"model"`
		IsDefaultShoe   bool                `json:"is_default_shoe"`
		DefaultRunTypes []types.RunCategory `json:"default_run_types"`
		Workouts        []string            `json:"workouts"`
		TotalDistance   float64             `json:"total_distance"`
		IsRetired       bool                `json:"is_retired"`
		Condition       string              `json:"condition"`
		Restricted      bool                `json:"restricted"`
		Statistics      struct {
			ActivityCount int `json:"activity_count"`
		} `json:"statistics"`
	} `json:"shoe"`
}

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type testServer struct {
	engine *gin.Engine
	store  *memory.Store
}

func setup(t *testing.T, opts ...rack.Option) *testServer {
	t.Helper()
	store := memory.NewStore()
	n := 0
	base := []rack.Option{
		rack.WithLogger(log.New(io.Discard, "", 0)),
		rack.WithClock(func() time.Time { return t0 }),
		rack.WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("shoe-%d", n)
		}),
	}
	r, err := rack.Open(context.Background(), store, store, append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return &testServer{engine: NewRouter(NewHandler(r, store), io.Discard), store: store}
}

func (s *testServer) do(t *testing.T, method, path string, body any) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	return rec.Code, rec.Body.Bytes()
}

func (s *testServer) createShoe(t *testing.T, model string) shoeEnvelope {
	t.Helper()
	status, raw := s.do(t, http.MethodPost, "/api/shoes", map[string]any{
		"brand": "Brooks", "model": model, "lifespan_distance": 500,
	})
	require.Equal(t, http.StatusCreated, status, string(raw))
	var env shoeEnvelope
	require.NoError(t, json.Unmarshal(raw, &env))
	return env
}

func (s *testServer) putRun(t *testing.T, id string, meters float64) {
	t.Helper()
	end := t0.Add(time.Duration(meters/1000) * 5 * time.Minute)
	a := types.Activity{ActivityID: id, StartTime: t0, EndTime: end, Distance: meters}
	samples := []types.Sample{{StartTime: t0, EndTime: end, Distance: meters}}
	require.NoError(t, s.store.PutActivity(context.Background(), a, samples))
}

func decodeError(t *testing.T, raw []byte) errorEnvelope {
	t.Helper()
	var env errorEnvelope
	require.NoError(t, json.Unmarshal(raw, &env))
	return env
}

func TestHealthAndMetrics(t *testing.T) {
	s := setup(t)

	status, raw := s.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"ok"}`, string(raw))

	status, raw = s.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(raw), "shoerack_rack_commit_conflicts_total")
}

func TestCreateListGetShoe(t *testing.T) {
	s := setup(t)

	first := s.createShoe(t, "Ghost")
	assert.Equal(t, "shoe-1", first.Shoe.ShoeID)
	assert.True(t, first.Shoe.IsDefaultShoe)
	assert.Equal(t, []types.RunCategory{types.RunDaily}, first.Shoe.DefaultRunTypes)
	assert.Equal(t, string(types.WearNew), first.Shoe.Condition)

	second := s.createShoe(t, "Hyperion")
	assert.False(t, second.Shoe.IsDefaultShoe)

	status, raw := s.do(t, http.MethodGet, "/api/shoes", nil)
	require.Equal(t, http.StatusOK, status)
	var list struct {
		Shoes []struct {
			ShoeID string `json:"shoe_id"`
		} `json:"shoes"`
	}
	require.NoError(t, json.Unmarshal(raw, &list))
	require.Len(t, list.Shoes, 2)
	assert.Equal(t, "shoe-1", list.Shoes[0].ShoeID)

	status, raw = s.do(t, http.MethodGet, "/api/shoes/shoe-2", nil)
	require.Equal(t, http.StatusOK, status)
	var got shoeEnvelope
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "Hyperion", got.Shoe.Model)
}

func TestCreateShoeValidation(t *testing.T) {
	s := setup(t)

	tests := []struct {
		name     string
		body     any
		wantCode string
	}{
		{"no name", map[string]any{"lifespan_distance": 500}, "invalid_name"},
		{"negative lifespan", map[string]any{"brand": "Nike", "lifespan_distance": -1}, "invalid_lifespan"},
		{"bad category", map[string]any{"brand": "Nike", "suitable_run_types": []string{"sprint"}}, "invalid_run_category"},
		{"malformed", "not an object", "invalid_json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, raw := s.do(t, http.MethodPost, "/api/shoes", tt.body)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.Equal(t, tt.wantCode, decodeError(t, raw).Error.Code)
		})
	}
}

func TestUnknownShoe(t *testing.T) {
	s := setup(t)
	status, raw := s.do(t, http.MethodGet, "/api/shoes/missing", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "shoe_not_found", decodeError(t, raw).Error.Code)
}

func TestAssignAndUnassignActivities(t *testing.T) {
	s := setup(t)
	s.createShoe(t, "Ghost")
	s.createShoe(t, "Hyperion")
	s.putRun(t, "run-1", 5000)
	s.putRun(t, "run-2", 10000)

	status, raw := s.do(t, http.MethodPost, "/api/shoes/shoe-1/activities", map[string]any{
		"activity_ids": []string{"run-1", "run-2"},
	})
	require.Equal(t, http.StatusOK, status, string(raw))
	var env shoeEnvelope
	require.NoError(t, json.Unmarshal(raw, &env))
	assert.ElementsMatch(t, []string{"run-1", "run-2"}, env.Shoe.Workouts)
	assert.InDelta(t, 15, env.Shoe.TotalDistance, 1e-9)
	assert.Equal(t, 2, env.Shoe.Statistics.ActivityCount)

	// Moving run-2 to the other shoe removes it from the first.
	status, _ = s.do(t, http.MethodPost, "/api/shoes/shoe-2/activities", map[string]any{
		"activity_ids": []string{"run-2"},
	})
	require.Equal(t, http.StatusOK, status)
	status, raw = s.do(t, http.MethodGet, "/api/shoes/shoe-1", nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(raw, &env))
	assert.Equal(t, []string{"run-1"}, env.Shoe.Workouts)

	status, raw = s.do(t, http.MethodDelete, "/api/shoes/shoe-1/activities", map[string]any{
		"activity_ids": []string{"run-1"},
	})
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(raw, &env))
	assert.Empty(t, env.Shoe.Workouts)
	assert.Zero(t, env.Shoe.TotalDistance)

	status, raw = s.do(t, http.MethodPost, "/api/shoes/shoe-1/activities", map[string]any{
		"activity_ids": []string{"nope"},
	})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "activity_not_found", decodeError(t, raw).Error.Code)

	status, raw = s.do(t, http.MethodPost, "/api/shoes/shoe-2/recompute", nil)
	require.Equal(t, http.StatusOK, status)
	var stats struct {
		Statistics types.Statistics `json:"statistics"`
	}
	require.NoError(t, json.Unmarshal(raw, &stats))
	assert.InDelta(t, 10, stats.Statistics.TotalDistance, 1e-9)
}

func TestDefaultsSuitableAndRetire(t *testing.T) {
	s := setup(t)
	s.createShoe(t, "Ghost")
	s.createShoe(t, "Hyperion")

	status, raw := s.do(t, http.MethodPut, "/api/shoes/shoe-2/defaults", map[string]any{
		"categories": []string{"race", "daily"},
	})
	require.Equal(t, http.StatusOK, status, string(raw))
	var env shoeEnvelope
	require.NoError(t, json.Unmarshal(raw, &env))
	assert.Equal(t, []types.RunCategory{types.RunDaily, types.RunRace}, env.Shoe.DefaultRunTypes)

	status, raw = s.do(t, http.MethodGet, "/api/shoes/shoe-1", nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(raw, &env))
	assert.False(t, env.Shoe.IsDefaultShoe)

	status, raw = s.do(t, http.MethodPut, "/api/shoes/shoe-2/defaults", map[string]any{
		"categories": []string{"long"}, "mode": "merge",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid_mode", decodeError(t, raw).Error.Code)

	status, raw = s.do(t, http.MethodPut, "/api/shoes/shoe-2/defaults", map[string]any{"categories": []string{}})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "empty_categories", decodeError(t, raw).Error.Code)

	status, _ = s.do(t, http.MethodPut, "/api/shoes/shoe-1/suitable", map[string]any{
		"categories": []string{"trail"},
	})
	assert.Equal(t, http.StatusOK, status)

	status, raw = s.do(t, http.MethodDelete, "/api/shoes/shoe-2/defaults", map[string]any{
		"categories": []string{"race"},
	})
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(raw, &env))
	assert.Equal(t, []types.RunCategory{types.RunDaily}, env.Shoe.DefaultRunTypes)

	status, raw = s.do(t, http.MethodPost, "/api/shoes/shoe-2/retire", nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(raw, &env))
	assert.True(t, env.Shoe.IsRetired)
	assert.Empty(t, env.Shoe.DefaultRunTypes)
}

func TestRestrictedShoes(t *testing.T) {
	s := setup(t, rack.WithEntitlement(entitlement.Static{Limit: 1}))
	s.createShoe(t, "Ghost")
	second := s.createShoe(t, "Hyperion")
	assert.True(t, second.Shoe.Restricted)

	status, raw := s.do(t, http.MethodGet, "/api/entitlement/restricted", nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"restricted":["shoe-2"]}`, string(raw))

	status, raw = s.do(t, http.MethodPut, "/api/shoes/shoe-2", map[string]any{"nickname": "fast"})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "shoe_restricted", decodeError(t, raw).Error.Code)

	status, _ = s.do(t, http.MethodPost, "/api/shoes/shoe-2/retire", nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestDeleteShoe(t *testing.T) {
	s := setup(t)
	s.createShoe(t, "Ghost")

	status, raw := s.do(t, http.MethodDelete, "/api/shoes/shoe-1", nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"deleted":"shoe-1","lost_defaults":["daily"],"needs_daily_default":true}`, string(raw))

	status, _ = s.do(t, http.MethodDelete, "/api/shoes/shoe-1", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestEditShoe(t *testing.T) {
	s := setup(t)
	s.createShoe(t, "Ghost")

	status, raw := s.do(t, http.MethodPut, "/api/shoes/shoe-1", map[string]any{"model": "Ghost 16"})
	require.Equal(t, http.StatusOK, status)
	var env shoeEnvelope
	require.NoError(t, json.Unmarshal(raw, &env))
	assert.Equal(t, "Ghost 16", env.Shoe.Model)
}

func TestListActivities(t *testing.T) {
	s := setup(t)
	s.putRun(t, "run-1", 3000)

	status, raw := s.do(t, http.MethodGet, "/api/activities", nil)
	require.Equal(t, http.StatusOK, status)
	var out struct {
		Activities []types.Activity `json:"activities"`
	}
	require.NoError(t, json.Unmarshal(raw, &out))
	require.Len(t, out.Activities, 1)
	assert.Equal(t, "run-1", out.Activities[0].ActivityID)
}
