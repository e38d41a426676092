package types

import "time"

// EventType names a change to the shoe collection.
type EventType string

// Event types emitted by the rack after a committed mutation.
const (
	EventShoeAdded            EventType = "shoe.added"
	EventShoeUpdated          EventType = "shoe.updated"
	EventShoeRetired          EventType = "shoe.retired"
	EventShoeReinstated       EventType = "shoe.reinstated"
	EventShoeDeleted          EventType = "shoe.deleted"
	EventDefaultsChanged      EventType = "shoe.defaults_changed"
	EventSuitableChanged      EventType = "shoe.suitable_changed"
	EventActivitiesAssigned   EventType = "shoe.activities_assigned"
	EventActivitiesUnassigned EventType = "shoe.activities_unassigned"
	EventStatisticsRecomputed EventType = "shoe.statistics_recomputed"
)

// Event describes one committed change. Shoe is a snapshot taken after the
// change and is nil for deletions.
type Event struct {
	Type        EventType     `json:"type"`
	ShoeID      string        `json:"shoe_id"`
	ActivityIDs []string      `json:"activity_ids,omitempty"`
	Categories  []RunCategory `json:"categories,omitempty"`
	OccurredAt  time.Time     `json:"occurred_at"`
	Shoe        *Shoe         `json:"shoe,omitempty"`
}
