// Package inventory is the gateway to the system-of-record database that owns
// buildings and their proevents.
//
// Reads list buildings (cached for a short TTL) and a building's points with
// their reactive state. The only mutation is SetReactiveState, a single
// parameterized UPDATE that skips an exclusion set passed as a Postgres array
// and reports how many rows actually changed.
package inventory
