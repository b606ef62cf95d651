package change

import (
	"math"
	"reflect"
)

// Detector decides whether a value changed between two snapshots.
type Detector struct {
	clock *Clock
}

// NewDetector creates a detector bound to a clock. A nil clock gets a private one.
func NewDetector(c *Clock) *Detector {
	if c == nil {
		c = NewClock()
	}
	return &Detector{clock: c}
}

// Clock returns the clock used to resolve mutation stamps.
func (d *Detector) Clock() *Clock {
	return d.clock
}

// WasModified compares against the most recently opened window of the detector's clock.
func (d *Detector) WasModified(old, new any) bool {
	return d.WasModifiedIn(d.clock.Last(), old, new)
}

// WasModifiedIn compares old and new, attributing mutation stamps to window w.
func (d *Detector) WasModifiedIn(w Window, old, new any) bool {
	if old == nil && new == nil {
		return false
	}
	if old == nil || new == nil {
		return true
	}
	return modified(w, reflect.ValueOf(old), reflect.ValueOf(new))
}

func modified(w Window, a, b reflect.Value) bool {
	if !a.IsValid() || !b.IsValid() {
		return a.IsValid() != b.IsValid()
	}
	if a.Type() != b.Type() {
		return true
	}

	switch a.Kind() {
	case reflect.Pointer, reflect.UnsafePointer, reflect.Chan, reflect.Func:
		if a.Pointer() != b.Pointer() {
			return true
		}
		return markedIn(w, a)
	case reflect.Map:
		if a.Pointer() != b.Pointer() {
			return true
		}
		return markedIn(w, a)
	case reflect.Slice:
		if a.Pointer() != b.Pointer() || a.Len() != b.Len() {
			return true
		}
		return markedIn(w, a)
	case reflect.Interface:
		if a.IsNil() || b.IsNil() {
			return a.IsNil() != b.IsNil()
		}
		return modified(w, a.Elem(), b.Elem())
	case reflect.Struct:
		if markedIn(w, a) {
			return true
		}
		for i := 0; i < a.NumField(); i++ {
			if modified(w, a.Field(i), b.Field(i)) {
				return true
			}
		}
		return false
	case reflect.Array:
		for i := 0; i < a.Len(); i++ {
			if modified(w, a.Index(i), b.Index(i)) {
				return true
			}
		}
		return false
	case reflect.Float32, reflect.Float64:
		// Bitwise, so NaN is unchanged against itself.
		return math.Float64bits(a.Float()) != math.Float64bits(b.Float())
	case reflect.Complex64, reflect.Complex128:
		ca, cb := a.Complex(), b.Complex()
		return math.Float64bits(real(ca)) != math.Float64bits(real(cb)) ||
			math.Float64bits(imag(ca)) != math.Float64bits(imag(cb))
	default:
		return !a.Equal(b)
	}
}

// markedIn reports whether v carries a mutation stamp inside w.
func markedIn(w Window, v reflect.Value) bool {
	if !v.CanInterface() {
		return false
	}
	if v.Kind() == reflect.Pointer && v.IsNil() {
		return false
	}
	m, ok := v.Interface().(Marker)
	if !ok {
		return false
	}
	return w.Contains(m.LastMutated())
}
