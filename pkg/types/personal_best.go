package types

import "time"

// PersonalBest is the fastest elapsed time a shoe has recorded over one
// activity category, and the activity that produced it.
type PersonalBest struct {
	Elapsed    time.Duration `json:"elapsed"`
	ActivityID string        `json:"activity_id"`
}

// PersonalBests maps each achieved category to its best. A category with no
// entry has never been achieved, which is distinct from a zero time.
type PersonalBests map[ActivityCategory]PersonalBest

// Lookup returns the best for c and whether one has been achieved.
func (p PersonalBests) Lookup(c ActivityCategory) (PersonalBest, bool) {
	pb, ok := p[c]
	return pb, ok
}

// Clone returns a copy of the map. A nil receiver yields an empty map.
func (p PersonalBests) Clone() PersonalBests {
	out := make(PersonalBests, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
