// Package rest exposes manual control of the arming scheduler over HTTP:
// the global panel flag, building schedules, exception rules, bulk
// arm/disarm and on-demand re-evaluation. Every route lives under /api,
// except /health.
package rest
