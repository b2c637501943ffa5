// Package schedule persists building schedule windows, per-proevent exception
// rules and the proevent state history in a local SQLite database.
//
// The Store is pure data access: it validates the HH:MM format on write but
// leaves every arming decision to the reconciliation engine. Each exception
// upsert is a single atomic statement, so a concurrent full-table read never
// observes a half-written rule.
package schedule
