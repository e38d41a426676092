// JSON record structures for the JSONL data files. JSON keys match the
// SQLite column names so the loader can insert records directly.
package sqlite

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mesh-intelligence/shoerack/pkg/types"
)

// timeLayout is used for every timestamp column and JSONL field. The
// fixed-width fraction keeps text ordering chronological in SQL.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// shoeColumns lists the shoes table columns in insert order.
var shoeColumns = []string{
	"shoe_id", "brand", "model", "nickname", "acquired_at", "lifespan_distance", "image_ref",
	"is_retired", "retired_at", "is_default_shoe", "default_run_types", "suitable_run_types",
	"workouts", "total_distance", "total_duration_ns", "last_activity_at", "wear_ratio",
	"personal_bests", "total_runs", "created_at", "updated_at",
}

// shoeJSON represents a shoe in shoes.jsonl.
type shoeJSON struct {
	ShoeID           string                      `json:"shoe_id"`
	Brand            string                      `json:"brand"`
	Model            string                      `json:"model"`
	Nickname         string                      `json:"nickname"`
	AcquiredAt       string                      `json:"acquired_at"`
	LifespanDistance float64                     `json:"lifespan_distance"`
	ImageRef         string                      `json:"image_ref"`
	IsRetired        bool                        `json:"is_retired"`
	RetiredAt        *string                     `json:"retired_at"`
	IsDefaultShoe    bool                        `json:"is_default_shoe"`
	DefaultRunTypes  []string                    `json:"default_run_types"`
	SuitableRunTypes []string                    `json:"suitable_run_types"`
	Workouts         []string                    `json:"workouts"`
	TotalDistance    float64                     `json:"total_distance"`
	TotalDurationNS  int64                       `json:"total_duration_ns"`
	LastActivityAt   *string                     `json:"last_activity_at"`
	WearRatio        float64                     `json:"wear_ratio"`
	PersonalBests    map[string]personalBestJSON `json:"personal_bests"`
	TotalRuns        map[string]int              `json:"total_runs"`
	CreatedAt        string                      `json:"created_at"`
	UpdatedAt        string                      `json:"updated_at"`
}

// personalBestJSON is one achieved category inside shoeJSON.
type personalBestJSON struct {
	ElapsedNS  int64  `json:"elapsed_ns"`
	ActivityID string `json:"activity_id"`
}

// activityJSON represents an activity in activities.jsonl.
type activityJSON struct {
	ActivityID string  `json:"activity_id"`
	StartTime  string  `json:"start_time"`
	EndTime    string  `json:"end_time"`
	Distance   float64 `json:"distance"`
	Source     string  `json:"source"`
}

// sampleJSON represents one distance sample in samples.jsonl.
type sampleJSON struct {
	ActivityID string  `json:"activity_id"`
	Seq        int     `json:"seq"`
	StartTime  string  `json:"start_time"`
	EndTime    string  `json:"end_time"`
	Distance   float64 `json:"distance"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: bad timestamp %q", types.ErrInvalidData, s)
	}
	return t, nil
}

func parseTimePtr(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := parseTime(*s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// dehydrateShoe converts a shoe to its record form.
func dehydrateShoe(s *types.Shoe) shoeJSON {
	rec := shoeJSON{
		ShoeID:           s.ShoeID,
		Brand:            s.Brand,
		Model:            s.Model,
		Nickname:         s.Nickname,
		AcquiredAt:       formatTime(s.AcquiredAt),
		LifespanDistance: s.LifespanDistance,
		ImageRef:         s.ImageRef,
		IsRetired:        s.IsRetired,
		RetiredAt:        formatTimePtr(s.RetiredAt),
		IsDefaultShoe:    s.IsDefaultShoe,
		DefaultRunTypes:  runCategoryStrings(s.DefaultRunTypes),
		SuitableRunTypes: runCategoryStrings(s.SuitableRunTypes),
		Workouts:         append([]string{}, s.Workouts...),
		TotalDistance:    s.TotalDistance,
		TotalDurationNS:  int64(s.TotalDuration),
		LastActivityAt:   formatTimePtr(s.LastActivityAt),
		WearRatio:        s.WearRatio,
		PersonalBests:    make(map[string]personalBestJSON, len(s.PersonalBests)),
		TotalRuns:        make(map[string]int, len(s.TotalRuns)),
		CreatedAt:        formatTime(s.CreatedAt),
		UpdatedAt:        formatTime(s.UpdatedAt),
	}
	for c, pb := range s.PersonalBests {
		rec.PersonalBests[string(c)] = personalBestJSON{ElapsedNS: int64(pb.Elapsed), ActivityID: pb.ActivityID}
	}
	for c, n := range s.TotalRuns {
		rec.TotalRuns[string(c)] = n
	}
	return rec
}

// hydrateShoe converts a record back to a shoe. Unknown categories are
// dropped so a file written by a newer version still loads.
func hydrateShoe(rec shoeJSON) (*types.Shoe, error) {
	s := &types.Shoe{
		ShoeID:           rec.ShoeID,
		Brand:            rec.Brand,
		Model:            rec.Model,
		Nickname:         rec.Nickname,
		LifespanDistance: rec.LifespanDistance,
		ImageRef:         rec.ImageRef,
		IsRetired:        rec.IsRetired,
		IsDefaultShoe:    rec.IsDefaultShoe,
		DefaultRunTypes:  parseRunCategories(rec.DefaultRunTypes),
		SuitableRunTypes: parseRunCategories(rec.SuitableRunTypes),
		Workouts:         append([]string{}, rec.Workouts...),
		TotalDistance:    rec.TotalDistance,
		TotalDuration:    time.Duration(rec.TotalDurationNS),
		WearRatio:        rec.WearRatio,
		PersonalBests:    types.PersonalBests{},
		TotalRuns:        map[types.ActivityCategory]int{},
	}
	var err error
	if s.AcquiredAt, err = parseTime(rec.AcquiredAt); err != nil {
		return nil, err
	}
	if s.CreatedAt, err = parseTime(rec.CreatedAt); err != nil {
		return nil, err
	}
	if s.UpdatedAt, err = parseTime(rec.UpdatedAt); err != nil {
		return nil, err
	}
	if s.RetiredAt, err = parseTimePtr(rec.RetiredAt); err != nil {
		return nil, err
	}
	if s.LastActivityAt, err = parseTimePtr(rec.LastActivityAt); err != nil {
		return nil, err
	}
	for name, pb := range rec.PersonalBests {
		c := types.ActivityCategory(name)
		if !c.Valid() {
			continue
		}
		s.PersonalBests[c] = types.PersonalBest{Elapsed: time.Duration(pb.ElapsedNS), ActivityID: pb.ActivityID}
	}
	for name, n := range rec.TotalRuns {
		c := types.ActivityCategory(name)
		if c.Valid() {
			s.TotalRuns[c] = n
		}
	}
	s.Normalize()
	return s, nil
}

func runCategoryStrings(cats []types.RunCategory) []string {
	out := make([]string, 0, len(cats))
	for _, c := range cats {
		out = append(out, string(c))
	}
	return out
}

func parseRunCategories(names []string) []types.RunCategory {
	out := make([]types.RunCategory, 0, len(names))
	for _, n := range names {
		if c := types.RunCategory(n); c.Valid() {
			out = append(out, c)
		}
	}
	return out
}

// shoeArgs returns the insert arguments for a shoe in shoeColumns order.
func shoeArgs(rec shoeJSON) ([]any, error) {
	jsonText := func(v any) (string, error) {
		b, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	defaults, err := jsonText(rec.DefaultRunTypes)
	if err != nil {
		return nil, err
	}
	suitable, err := jsonText(rec.SuitableRunTypes)
	if err != nil {
		return nil, err
	}
	workouts, err := jsonText(rec.Workouts)
	if err != nil {
		return nil, err
	}
	bests, err := jsonText(rec.PersonalBests)
	if err != nil {
		return nil, err
	}
	runs, err := jsonText(rec.TotalRuns)
	if err != nil {
		return nil, err
	}
	return []any{
		rec.ShoeID, rec.Brand, rec.Model, rec.Nickname, rec.AcquiredAt, rec.LifespanDistance, rec.ImageRef,
		rec.IsRetired, rec.RetiredAt, rec.IsDefaultShoe, defaults, suitable,
		workouts, rec.TotalDistance, rec.TotalDurationNS, rec.LastActivityAt, rec.WearRatio,
		bests, runs, rec.CreatedAt, rec.UpdatedAt,
	}, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanShoeRecord reads one shoes row selected with shoeColumns.
func scanShoeRecord(row rowScanner) (shoeJSON, error) {
	var rec shoeJSON
	var defaults, suitable, workouts, bests, runs string
	err := row.Scan(
		&rec.ShoeID, &rec.Brand, &rec.Model, &rec.Nickname, &rec.AcquiredAt, &rec.LifespanDistance, &rec.ImageRef,
		&rec.IsRetired, &rec.RetiredAt, &rec.IsDefaultShoe, &defaults, &suitable,
		&workouts, &rec.TotalDistance, &rec.TotalDurationNS, &rec.LastActivityAt, &rec.WearRatio,
		&bests, &runs, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return shoeJSON{}, err
	}
	for _, f := range []struct {
		text string
		dst  any
	}{
		{defaults, &rec.DefaultRunTypes},
		{suitable, &rec.SuitableRunTypes},
		{workouts, &rec.Workouts},
		{bests, &rec.PersonalBests},
		{runs, &rec.TotalRuns},
	} {
		if err := json.Unmarshal([]byte(f.text), f.dst); err != nil {
			return shoeJSON{}, fmt.Errorf("%w: shoe %s: %v", types.ErrInvalidData, rec.ShoeID, err)
		}
	}
	return rec, nil
}

func dehydrateActivity(a types.Activity) activityJSON {
	return activityJSON{
		ActivityID: a.ActivityID,
		StartTime:  formatTime(a.StartTime),
		EndTime:    formatTime(a.EndTime),
		Distance:   a.Distance,
		Source:     a.Source,
	}
}

func hydrateActivity(rec activityJSON) (types.Activity, error) {
	start, err := parseTime(rec.StartTime)
	if err != nil {
		return types.Activity{}, err
	}
	end, err := parseTime(rec.EndTime)
	if err != nil {
		return types.Activity{}, err
	}
	return types.Activity{
		ActivityID: rec.ActivityID,
		StartTime:  start,
		EndTime:    end,
		Distance:   rec.Distance,
		Source:     rec.Source,
	}, nil
}

func hydrateSample(rec sampleJSON) (types.Sample, error) {
	start, err := parseTime(rec.StartTime)
	if err != nil {
		return types.Sample{}, err
	}
	end, err := parseTime(rec.EndTime)
	if err != nil {
		return types.Sample{}, err
	}
	return types.Sample{StartTime: start, EndTime: end, Distance: rec.Distance}, nil
}
