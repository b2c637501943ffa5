// Package arming implements the gRPC control API of the arming scheduler.
//
// The service is declared in Go and exchanges protobuf well-known types,
// so no generated code is required on either side.
package arming
