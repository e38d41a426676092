// Package types defines the shoe and activity entities, the collaborator
// interfaces (ShoeStore, ActivitySource, EntitlementSource, Publisher),
// configuration, and the standard error values for the shoerack engine.
//
// Entity methods operate on the struct in memory only. Cross-shoe
// invariants (default categories, activity exclusivity) are maintained by
// the rack, which persists changes through a ShoeStore.
package types
