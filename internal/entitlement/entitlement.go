// Package entitlement decides which shoes stay usable on the free tier.
package entitlement

import (
	"sort"

	"github.com/mesh-intelligence/shoerack/pkg/types"
)

// DefaultFreeTierLimit is the number of usable shoes without premium.
const DefaultFreeTierLimit = 3

// Static is an EntitlementSource backed by configuration.
type Static struct {
	Premium bool
	Limit   int
}

// IsPremium implements types.EntitlementSource.
func (s Static) IsPremium() bool { return s.Premium }

// ShoeLimit implements types.EntitlementSource.
func (s Static) ShoeLimit() int { return s.Limit }

// Unrestricted returns, in selection order, the IDs of the shoes that stay
// usable under a free-tier limit. The daily default comes first, then shoes
// by most recent activity, then the remaining shoes by acquisition date.
// Ties within a tier are broken by shoe ID.
func Unrestricted(shoes []*types.Shoe, limit int) []string {
	if limit <= 0 || len(shoes) == 0 {
		return []string{}
	}

	ordered := make([]*types.Shoe, 0, len(shoes))
	var daily *types.Shoe
	var active, idle []*types.Shoe
	for _, s := range shoes {
		switch {
		case daily == nil && s.IsDefaultFor(types.RunDaily):
			daily = s
		case s.LastActivityAt != nil:
			active = append(active, s)
		default:
			idle = append(idle, s)
		}
	}

	sort.Slice(active, func(i, j int) bool {
		a, b := active[i], active[j]
		if !a.LastActivityAt.Equal(*b.LastActivityAt) {
			return a.LastActivityAt.After(*b.LastActivityAt)
		}
		return a.ShoeID < b.ShoeID
	})
	sort.Slice(idle, func(i, j int) bool {
		a, b := idle[i], idle[j]
		if !a.AcquiredAt.Equal(b.AcquiredAt) {
			return a.AcquiredAt.After(b.AcquiredAt)
		}
		return a.ShoeID < b.ShoeID
	})

	if daily != nil {
		ordered = append(ordered, daily)
	}
	ordered = append(ordered, active...)
	ordered = append(ordered, idle...)

	if limit > len(ordered) {
		limit = len(ordered)
	}
	ids := make([]string, 0, limit)
	for _, s := range ordered[:limit] {
		ids = append(ids, s.ShoeID)
	}
	return ids
}

// Restricted returns the IDs of shoes outside the usable set. It is empty
// for premium users.
func Restricted(shoes []*types.Shoe, premium bool, limit int) map[string]struct{} {
	restricted := make(map[string]struct{})
	if premium {
		return restricted
	}
	keep := make(map[string]struct{}, limit)
	for _, id := range Unrestricted(shoes, limit) {
		keep[id] = struct{}{}
	}
	for _, s := range shoes {
		if _, ok := keep[s.ShoeID]; !ok {
			restricted[s.ShoeID] = struct{}{}
		}
	}
	return restricted
}

// RestrictedFor evaluates Restricted against an entitlement source. A nil
// source means premium.
func RestrictedFor(shoes []*types.Shoe, src types.EntitlementSource) map[string]struct{} {
	if src == nil {
		return map[string]struct{}{}
	}
	return Restricted(shoes, src.IsPremium(), src.ShoeLimit())
}

// IsRestricted reports whether id is in the restricted set.
func IsRestricted(restricted map[string]struct{}, id string) bool {
	_, ok := restricted[id]
	return ok
}

// SortedIDs returns the set's members in ascending order.
func SortedIDs(set map[string]struct{}) []string {
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
