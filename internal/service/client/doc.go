// Package client implements the arming-ctl operations.
//
// Each operation connects to the arming server over gRPC, performs one
// control call and prints a short report.
package client
