// Package arming contains core domain types for scheduled arming.
//
// It defines buildings with their daily schedule Window, proevent Points and
// their ReactiveState, per-point ExceptionRule overrides indexed by building,
// the Notification sent to the monitoring endpoint and the Result of one
// reconciliation.
package arming
