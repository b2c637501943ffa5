// Package notify delivers reconciliation notifications to external monitoring.
//
// Every Dispatcher is fire-and-forget: Notify is bounded by a short timeout,
// logs delivery failures and never returns them, so reconciliation results do
// not depend on the monitoring side being reachable.
package notify
