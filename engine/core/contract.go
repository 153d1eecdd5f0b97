package core

import (
	"github.com/cockroachdb/errors"
)

// Expects panics with an assertion failure when a precondition does not hold.
// A failed contract means the caller handed over a malformed graph; there is
// nothing sensible left to do with the current traversal.
func Expects(cond bool, format string, args ...interface{}) {
	if !cond {
		panic(errors.AssertionFailedWithDepthf(1, "expects: "+format, args...))
	}
}

// Ensures is Expects for postconditions.
func Ensures(cond bool, format string, args ...interface{}) {
	if !cond {
		panic(errors.AssertionFailedWithDepthf(1, "ensures: "+format, args...))
	}
}

// IsContractViolation reports whether err carries a failed Expects/Ensures.
func IsContractViolation(err error) bool {
	return errors.HasAssertionFailure(err)
}

// RecoverContract converts a contract violation panic into *errp. Any other
// panic value is re-raised. Must be deferred directly.
func RecoverContract(errp *error) {
	r := recover()
	if r == nil {
		return
	}
	err, ok := r.(error)
	if !ok || !IsContractViolation(err) {
		panic(r)
	}
	*errp = err
}
