// Package logger wraps zap for the arming services:
//   - a global sugared logger with console or JSON encoding,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level parsing and leveled helpers (Infof, ErrorKV, etc.).
//
// Components receive a context and log through the logger stored in it, so a
// reconciliation pass can carry building and pass identifiers in every line.
package logger
