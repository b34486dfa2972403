package amr

import (
	"fmt"
)

// PreconditionError is the panic value used when a caller hands the library
// something it must never see: a nil hierarchy, a level out of range, an
// invalidated particle on a path that requires a live one.
type PreconditionError struct {
	Msg string
}

func (e *PreconditionError) Error() string {
	return "amrpart precondition violated: " + e.Msg
}

// ConsistencyError is the panic value used when the hierarchy contradicts
// itself, e.g. a single cell owned by zero or several blocks of a set that is
// supposed to be disjoint.
type ConsistencyError struct {
	Msg string
}

func (e *ConsistencyError) Error() string {
	return "amrpart hierarchy is inconsistent: " + e.Msg
}

// Preconditionf panics with a PreconditionError.
func Preconditionf(format string, a ...interface{}) {
	panic(&PreconditionError{fmt.Sprintf(format, a...)})
}

// Inconsistentf panics with a ConsistencyError.
func Inconsistentf(format string, a ...interface{}) {
	panic(&ConsistencyError{fmt.Sprintf(format, a...)})
}

// Recover turns a PreconditionError or ConsistencyError panic into *err. Any
// other panic is passed on. It must be deferred directly:
//
//     defer amr.Recover(&err)
func Recover(err *error) {
	switch e := recover().(type) {
	case nil:
	case *PreconditionError:
		*err = e
	case *ConsistencyError:
		*err = e
	default:
		panic(e)
	}
}
