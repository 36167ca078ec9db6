// Package xlog carries the conversion engine's error taxonomy: a classified
// *Exception, returned as a plain error, propagates up to the CLI driver
// which maps its Class to a process exit code.
package xlog

import "fmt"

// Class names one of the engine's fatal error categories.
type Class string

const (
	// Config marks invalid configuration shape, duplicate names,
	// unresolved dependencies, or variable reference cycles.
	Config Class = "config"
	// Pattern marks a Refname/RevisionRef template referencing an
	// undefined variable or an out-of-range capture.
	Pattern Class = "pattern"
	// Source marks a malformed changeset, missing parent, or corrupt
	// .hgtags content coming out of the HG reader.
	Source Class = "source"
	// Target marks a refusal or failure from the Git writer.
	Target Class = "target"
)

// Exception is a typed, classified fatal error, returned like any other
// error rather than panicked. The CLI driver's exitCodeFor type-asserts the
// error it gets back from Run to pick a process exit code by Class.
type Exception struct {
	Class   Class
	Message string
}

func (e *Exception) Error() string {
	return fmt.Sprintf("%s: %s", e.Class, e.Message)
}

// Throw builds an *Exception satisfying the error interface.
func Throw(class Class, format string, args ...interface{}) *Exception {
	return &Exception{Class: class, Message: fmt.Sprintf(format, args...)}
}
