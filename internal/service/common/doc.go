// Package common holds helpers shared by the command-line tools.
//
// It provides a gRPC client for the arming control API with per-call
// timeouts, and detection of the current system actor (hostname/username)
// sent along with panel changes for the audit log.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
