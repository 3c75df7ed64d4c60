// Package opt provides the tagged "unset or value" variant used by every
// configurable attribute in modelconnect.
//
// A configuration attribute starts Unset. Resolution replaces Unset values
// with computed defaults and never touches a value that was set explicitly:
//
//	canSort := opt.Unset[bool]()
//	opt.Coalesce(&canSort, true)  // canSort is now Set(true)
//	opt.Coalesce(&canSort, false) // no-op, still Set(true)
//
// The zero Value is Unset, so struct literals only need to name the
// attributes they override:
//
//	options.ModelField{CanFilter: opt.Some(false)}
package opt

import "fmt"

// Value holds either nothing (Unset) or a value of type T.
type Value[T any] struct {
	v   T
	set bool
}

// Some returns a Value holding v.
func Some[T any](v T) Value[T] {
	return Value[T]{v: v, set: true}
}

// Unset returns an empty Value.
func Unset[T any]() Value[T] {
	return Value[T]{}
}

// IsSet reports whether the value was set.
func (o Value[T]) IsSet() bool { return o.set }

// Get returns the held value and whether it was set.
func (o Value[T]) Get() (T, bool) { return o.v, o.set }

// Must returns the held value. It panics if the value is unset.
func (o Value[T]) Must() T {
	if !o.set {
		panic(fmt.Sprintf("opt: Must called on unset %T", o.v))
	}
	return o.v
}

// Or returns the held value, or def if the value is unset.
func (o Value[T]) Or(def T) T {
	if o.set {
		return o.v
	}
	return def
}

// String implements fmt.Stringer.
func (o Value[T]) String() string {
	if !o.set {
		return "<unset>"
	}
	return fmt.Sprint(o.v)
}

// Coalesce sets *o to def if it is unset and returns the resolved value.
func Coalesce[T any](o *Value[T], def T) T {
	if !o.set {
		*o = Some(def)
	}
	return o.v
}

// CoalesceFunc is like Coalesce, but computes the default only when needed.
func CoalesceFunc[T any](o *Value[T], def func() T) T {
	if !o.set {
		*o = Some(def())
	}
	return o.v
}
