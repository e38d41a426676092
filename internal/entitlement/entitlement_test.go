package entitlement

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/shoerack/pkg/types"
)

var base = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func shoe(id string, acquiredDay int, lastActivityDay *int) *types.Shoe {
	s := &types.Shoe{ShoeID: id, AcquiredAt: base.AddDate(0, 0, acquiredDay)}
	if lastActivityDay != nil {
		at := base.AddDate(0, 0, *lastActivityDay)
		s.LastActivityAt = &at
	}
	s.Normalize()
	return s
}

func day(d int) *int { return &d }

// seven builds the collection used by the selection tests: one daily
// default with no activity, two recently used shoes, one older used shoe
// and three never used shoes.
func seven() []*types.Shoe {
	daily := shoe("daily", 0, nil)
	daily.DefaultRunTypes = []types.RunCategory{types.RunDaily}
	daily.IsDefaultShoe = true
	return []*types.Shoe{
		shoe("idle-old", 1, nil),
		shoe("used-old", 2, day(10)),
		daily,
		shoe("used-new", 3, day(40)),
		shoe("idle-new", 30, nil),
		shoe("used-mid", 4, day(20)),
		shoe("idle-mid", 15, nil),
	}
}

func TestUnrestrictedOrder(t *testing.T) {
	got := Unrestricted(seven(), 10)
	assert.Equal(t, []string{
		"daily",
		"used-new", "used-mid", "used-old",
		"idle-new", "idle-mid", "idle-old",
	}, got)
}

func TestRestrictedSevenShoesLimitThree(t *testing.T) {
	shoes := seven()

	first := Restricted(shoes, false, 3)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, Restricted(shoes, false, 3))
	}

	assert.Len(t, first, 4)
	for _, id := range []string{"daily", "used-new", "used-mid"} {
		assert.False(t, IsRestricted(first, id), id)
	}
	assert.Equal(t, []string{"idle-mid", "idle-new", "idle-old", "used-old"}, SortedIDs(first))
}

func TestRestrictedPremium(t *testing.T) {
	assert.Empty(t, Restricted(seven(), true, 3))
}

func TestUnrestrictedSize(t *testing.T) {
	tests := []struct {
		limit int
		n     int
		want  int
	}{
		{limit: 3, n: 7, want: 3},
		{limit: 3, n: 2, want: 2},
		{limit: 0, n: 4, want: 0},
		{limit: -1, n: 4, want: 0},
		{limit: 5, n: 0, want: 0},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("limit%d_n%d", tt.limit, tt.n), func(t *testing.T) {
			var shoes []*types.Shoe
			for i := 0; i < tt.n; i++ {
				shoes = append(shoes, shoe(fmt.Sprintf("s%d", i), i, nil))
			}
			got := Unrestricted(shoes, tt.limit)
			assert.Len(t, got, tt.want)
			assert.Len(t, Restricted(shoes, false, tt.limit), tt.n-tt.want)
		})
	}
}

func TestUnrestrictedTieBreakByID(t *testing.T) {
	shoes := []*types.Shoe{
		shoe("c", 5, day(9)),
		shoe("a", 5, day(9)),
		shoe("b", 5, day(9)),
		shoe("z", 5, nil),
		shoe("y", 5, nil),
	}
	assert.Equal(t, []string{"a", "b", "c", "y", "z"}, Unrestricted(shoes, 5))
}

func TestUnrestrictedWithoutDailyDefault(t *testing.T) {
	shoes := []*types.Shoe{
		shoe("old", 0, nil),
		shoe("new", 9, nil),
		shoe("used", 1, day(2)),
	}
	assert.Equal(t, []string{"used", "new"}, Unrestricted(shoes, 2))
}

func TestRestrictedIncludesRetiredShoes(t *testing.T) {
	retired := shoe("retired", 50, nil)
	retired.IsRetired = true
	shoes := []*types.Shoe{retired, shoe("a", 1, nil)}

	got := Restricted(shoes, false, 1)
	require.Len(t, got, 1)
	assert.True(t, IsRestricted(got, "a"))
}

func TestRestrictedFor(t *testing.T) {
	shoes := seven()
	assert.Len(t, RestrictedFor(shoes, Static{Limit: 3}), 4)
	assert.Empty(t, RestrictedFor(shoes, Static{Premium: true, Limit: 3}))
	assert.Empty(t, RestrictedFor(shoes, nil))

	var src types.EntitlementSource = Static{Premium: true, Limit: 7}
	assert.True(t, src.IsPremium())
	assert.Equal(t, 7, src.ShoeLimit())
}
