// Package utils holds the handful of small generic helpers shared across
// ashc's packages — too small individually to justify their own package,
// but repeated often enough that inlining them everywhere would be worse.
package utils

import "golang.org/x/exp/constraints"

// Box returns a pointer to a copy of t, for turning a value produced in
// an expression into the pointer the compiler's byte/nil-sentinel
// conventions (e.g. a global's constant-pool index, or nil for a local)
// expect.
func Box[T any](t T) *T { return &t }

func BoolToInt[I constraints.Integer](b bool) I {
	if b {
		return 1
	}
	return 0
}
