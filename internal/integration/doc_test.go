// Package integration exercises the arming stack end to end over HTTP,
// with real stores on temp files and a loopback monitoring receiver.
package integration
