// Package monitoring holds the process-wide diagnostic logger. Every package
// logs through Logf so deployments (and tests) can redirect or silence output
// in one place.
package monitoring

import "log"

// Logf is the diagnostic logger. It defaults to log.Printf and may be swapped
// with SetLogger.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil installs a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}
