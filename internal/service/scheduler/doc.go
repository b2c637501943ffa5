// Package scheduler drives periodic reconciliation passes over all buildings
// and exposes synchronous on-demand reconciliation of a single building.
package scheduler
