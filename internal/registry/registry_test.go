package registry

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/shoerack/pkg/types"
)

var now = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func newShoe(id string, defaults ...types.RunCategory) *types.Shoe {
	s := &types.Shoe{ShoeID: id, Brand: "Brand", Model: id}
	s.Normalize()
	if len(defaults) > 0 {
		s.DefaultRunTypes = defaults
		s.IsDefaultShoe = true
	}
	return s
}

func TestSetDefault(t *testing.T) {
	tests := []struct {
		name     string
		shoes    func() []*types.Shoe
		target   string
		cats     []types.RunCategory
		mode     types.DefaultMode
		want     map[string][]types.RunCategory
		wantFlag map[string]bool
		touched  []string
		wantErr  error
	}{
		{
			name: "replace moves category from other shoe",
			shoes: func() []*types.Shoe {
				return []*types.Shoe{newShoe("a", types.RunDaily, types.RunLong), newShoe("b")}
			},
			target:   "b",
			cats:     []types.RunCategory{types.RunDaily},
			mode:     types.DefaultReplace,
			want:     map[string][]types.RunCategory{"a": {types.RunLong}, "b": {types.RunDaily}},
			wantFlag: map[string]bool{"a": true, "b": true},
			touched:  []string{"a", "b"},
		},
		{
			name: "removal that empties defaults clears flag",
			shoes: func() []*types.Shoe {
				return []*types.Shoe{newShoe("a", types.RunTempo), newShoe("b")}
			},
			target:   "b",
			cats:     []types.RunCategory{types.RunTempo},
			mode:     types.DefaultReplace,
			want:     map[string][]types.RunCategory{"a": {}, "b": {types.RunTempo}},
			wantFlag: map[string]bool{"a": false, "b": true},
			touched:  []string{"a", "b"},
		},
		{
			name: "replace overwrites target categories",
			shoes: func() []*types.Shoe {
				return []*types.Shoe{newShoe("a", types.RunLong, types.RunRace)}
			},
			target:   "a",
			cats:     []types.RunCategory{types.RunDaily},
			mode:     types.DefaultReplace,
			want:     map[string][]types.RunCategory{"a": {types.RunDaily}},
			wantFlag: map[string]bool{"a": true},
			touched:  []string{"a"},
		},
		{
			name: "append unions with target categories",
			shoes: func() []*types.Shoe {
				return []*types.Shoe{newShoe("a", types.RunTrail), newShoe("b", types.RunDaily)}
			},
			target:   "a",
			cats:     []types.RunCategory{types.RunDaily, types.RunTrail},
			mode:     types.DefaultAppend,
			want:     map[string][]types.RunCategory{"a": {types.RunDaily, types.RunTrail}, "b": {}},
			wantFlag: map[string]bool{"a": true, "b": false},
			touched:  []string{"b", "a"},
		},
		{
			name:    "unknown shoe",
			shoes:   func() []*types.Shoe { return []*types.Shoe{newShoe("a")} },
			target:  "zzz",
			cats:    []types.RunCategory{types.RunDaily},
			mode:    types.DefaultReplace,
			wantErr: types.ErrShoeNotFound,
		},
		{
			name:    "empty categories",
			shoes:   func() []*types.Shoe { return []*types.Shoe{newShoe("a")} },
			target:  "a",
			mode:    types.DefaultReplace,
			wantErr: types.ErrEmptyCategories,
		},
		{
			name:    "invalid mode",
			shoes:   func() []*types.Shoe { return []*types.Shoe{newShoe("a")} },
			target:  "a",
			cats:    []types.RunCategory{types.RunDaily},
			mode:    "merge",
			wantErr: types.ErrInvalidMode,
		},
		{
			name:    "invalid category",
			shoes:   func() []*types.Shoe { return []*types.Shoe{newShoe("a")} },
			target:  "a",
			cats:    []types.RunCategory{"sprint"},
			mode:    types.DefaultReplace,
			wantErr: types.ErrInvalidRunCategory,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shoes := tt.shoes()
			touched, err := SetDefault(shoes, tt.target, tt.cats, tt.mode, now)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.touched, touched)
			for id, cats := range tt.want {
				s := Find(shoes, id)
				require.NotNil(t, s)
				assert.Equal(t, cats, s.DefaultRunTypes, "shoe %s", id)
				assert.Equal(t, tt.wantFlag[id], s.IsDefaultShoe, "shoe %s", id)
			}
			require.NoError(t, Check(shoes))
		})
	}
}

func TestSetDefaultReinstatesRetired(t *testing.T) {
	s := newShoe("a")
	retiredAt := now.Add(-time.Hour)
	s.IsRetired = true
	s.RetiredAt = &retiredAt
	shoes := []*types.Shoe{s}

	_, err := SetDefault(shoes, "a", []types.RunCategory{types.RunRace}, types.DefaultReplace, now)
	require.NoError(t, err)

	assert.False(t, s.IsRetired)
	assert.Nil(t, s.RetiredAt)
	assert.True(t, s.IsDefaultShoe)
	assert.Equal(t, now, s.UpdatedAt)
}

func TestRetireClearsDefaultsWithoutReassignment(t *testing.T) {
	a := newShoe("a", types.RunDaily, types.RunTempo)
	b := newShoe("b", types.RunLong)
	c := newShoe("c")
	shoes := []*types.Shoe{a, b, c}

	retired, cleared, err := Retire(shoes, "a", now)
	require.NoError(t, err)

	assert.True(t, retired)
	assert.Equal(t, []types.RunCategory{types.RunDaily, types.RunTempo}, cleared)
	assert.True(t, a.IsRetired)
	require.NotNil(t, a.RetiredAt)
	assert.False(t, a.IsDefaultShoe)
	assert.Empty(t, a.DefaultRunTypes)
	assert.Nil(t, DefaultFor(shoes, types.RunDaily))
	assert.Nil(t, DefaultFor(shoes, types.RunTempo))
	assert.Equal(t, b, DefaultFor(shoes, types.RunLong))
	assert.False(t, c.IsDefaultShoe)
	require.NoError(t, Check(shoes))
}

func TestRetireToggles(t *testing.T) {
	shoes := []*types.Shoe{newShoe("a")}

	retired, _, err := Retire(shoes, "a", now)
	require.NoError(t, err)
	assert.True(t, retired)

	retired, cleared, err := Retire(shoes, "a", now.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, retired)
	assert.Empty(t, cleared)
	assert.False(t, shoes[0].IsRetired)
	assert.Nil(t, shoes[0].RetiredAt)
	assert.Empty(t, shoes[0].DefaultRunTypes)
}

func TestRetireUnknown(t *testing.T) {
	_, _, err := Retire(nil, "missing", now)
	assert.ErrorIs(t, err, types.ErrShoeNotFound)
}

func TestDelete(t *testing.T) {
	tests := []struct {
		name      string
		target    string
		wantLost  []types.RunCategory
		wantDaily bool
		wantLeft  []string
	}{
		{"daily default", "a", []types.RunCategory{types.RunDaily, types.RunRace}, true, []string{"b", "c"}},
		{"other default", "b", []types.RunCategory{types.RunLong}, false, []string{"a", "c"}},
		{"not default", "c", []types.RunCategory{}, false, []string{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shoes := []*types.Shoe{
				newShoe("a", types.RunDaily, types.RunRace),
				newShoe("b", types.RunLong),
				newShoe("c"),
			}

			remaining, out, err := Delete(shoes, tt.target)
			require.NoError(t, err)

			assert.Equal(t, tt.target, out.ShoeID)
			assert.Equal(t, tt.wantLost, out.LostDefaults)
			assert.Equal(t, tt.wantDaily, out.NeedsDailyDefault)
			var ids []string
			for _, s := range remaining {
				ids = append(ids, s.ShoeID)
			}
			assert.Equal(t, tt.wantLeft, ids)
			for _, c := range tt.wantLost {
				assert.Nil(t, DefaultFor(remaining, c), "category %s should stay orphaned", c)
			}
			require.NoError(t, Check(remaining))
		})
	}
}

func TestDeleteUnknown(t *testing.T) {
	shoes := []*types.Shoe{newShoe("a")}
	remaining, _, err := Delete(shoes, "missing")
	assert.ErrorIs(t, err, types.ErrShoeNotFound)
	assert.Len(t, remaining, 1)
}

func TestSetSuitableHasNoExclusivity(t *testing.T) {
	a := newShoe("a")
	b := newShoe("b", types.RunDaily)
	shoes := []*types.Shoe{a, b}

	require.NoError(t, SetSuitable(shoes, "a", []types.RunCategory{types.RunTrail, types.RunDaily, types.RunTrail}, now))
	require.NoError(t, SetSuitable(shoes, "b", []types.RunCategory{types.RunTrail}, now))

	assert.Equal(t, []types.RunCategory{types.RunDaily, types.RunTrail}, a.SuitableRunTypes)
	assert.Equal(t, []types.RunCategory{types.RunTrail}, b.SuitableRunTypes)
	assert.Equal(t, []types.RunCategory{types.RunDaily}, b.DefaultRunTypes)
	assert.False(t, a.IsDefaultShoe)

	assert.ErrorIs(t, SetSuitable(shoes, "a", []types.RunCategory{"hills"}, now), types.ErrInvalidRunCategory)
	assert.ErrorIs(t, SetSuitable(shoes, "zzz", nil, now), types.ErrShoeNotFound)
}

func TestClearDefault(t *testing.T) {
	a := newShoe("a", types.RunDaily, types.RunLong)
	shoes := []*types.Shoe{a}

	touched, err := ClearDefault(shoes, "a", []types.RunCategory{types.RunLong}, now)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, touched)
	assert.Equal(t, []types.RunCategory{types.RunDaily}, a.DefaultRunTypes)
	assert.True(t, a.IsDefaultShoe)

	touched, err = ClearDefault(shoes, "a", nil, now)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, touched)
	assert.Empty(t, a.DefaultRunTypes)
	assert.False(t, a.IsDefaultShoe)

	touched, err = ClearDefault(shoes, "a", nil, now)
	require.NoError(t, err)
	assert.Empty(t, touched)
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name  string
		shoes []*types.Shoe
		ok    bool
	}{
		{"empty", nil, true},
		{"valid", []*types.Shoe{newShoe("a", types.RunDaily), newShoe("b", types.RunLong), newShoe("c")}, true},
		{"flag without categories", []*types.Shoe{{ShoeID: "a", IsDefaultShoe: true}}, false},
		{"categories without flag", []*types.Shoe{{ShoeID: "a", DefaultRunTypes: []types.RunCategory{types.RunDaily}}}, false},
		{"retired default", []*types.Shoe{{ShoeID: "a", IsRetired: true, IsDefaultShoe: true, DefaultRunTypes: []types.RunCategory{types.RunDaily}}}, false},
		{"shared category", []*types.Shoe{newShoe("a", types.RunDaily), newShoe("b", types.RunDaily)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Check(tt.shoes)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, types.ErrInvariantViolation)
			}
		})
	}
}

// TestInvariantsHoldOverRandomSequences drives random setDefault, retire and
// delete operations and checks the invariants after each one.
func TestInvariantsHoldOverRandomSequences(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	modes := []types.DefaultMode{types.DefaultReplace, types.DefaultAppend}

	for round := 0; round < 50; round++ {
		var shoes []*types.Shoe
		for i := 0; i < 6; i++ {
			shoes = append(shoes, newShoe(fmt.Sprintf("s%d", i)))
		}

		for step := 0; step < 40 && len(shoes) > 0; step++ {
			target := shoes[rng.Intn(len(shoes))].ShoeID
			switch rng.Intn(5) {
			case 0, 1, 2:
				var cats []types.RunCategory
				for _, c := range types.RunCategories {
					if rng.Intn(3) == 0 {
						cats = append(cats, c)
					}
				}
				if len(cats) == 0 {
					cats = []types.RunCategory{types.RunCategories[rng.Intn(len(types.RunCategories))]}
				}
				_, err := SetDefault(shoes, target, cats, modes[rng.Intn(2)], now)
				require.NoError(t, err)
			case 3:
				_, _, err := Retire(shoes, target, now)
				require.NoError(t, err)
			case 4:
				var err error
				shoes, _, err = Delete(shoes, target)
				require.NoError(t, err)
			}
			require.NoError(t, Check(shoes), "round %d step %d", round, step)
		}
	}
}
