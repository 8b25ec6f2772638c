package assert

import "github.com/localphysics/localsim/serror"

func IsTrue(ok bool, message string, args ...interface{}) {
	if !ok {
		panic(serror.New(message, args...))
	}
}

// InBounds panics if idx does not address a valid slot in a sequence of
// length n.
func InBounds(idx, n int, what string) {
	if idx < 0 || idx >= n {
		panic(serror.New("%s index %d out of bounds [0, %d)", what, idx, n))
	}
}
