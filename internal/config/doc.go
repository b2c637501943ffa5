// Package config defines the settings of the arming server and control CLI and
// provides helpers to load, validate and save them in YAML format.
//
// Config covers listen addresses, the inventory database, the schedule store,
// the panel flag cache, the ProServer endpoint, optional MQTT fan-out, the
// reconciliation interval and logging.
package config
