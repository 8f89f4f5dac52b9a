package store

import "reflect"

// Same reports whether a and b are the same state value by reference.
//
// Maps, pointers, channels and funcs are the same when they point at the same
// object. Slices are the same when they share backing array, length and
// capacity. Other comparable values use ==. Values that are not comparable
// (structs holding slices or maps) are never the same, so Combine treats
// them as changed.
func Same(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Type() != vb.Type() {
		return false
	}

	switch va.Kind() {
	case reflect.Map, reflect.Pointer, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return va.Pointer() == vb.Pointer()
	case reflect.Slice:
		return va.Pointer() == vb.Pointer() && va.Len() == vb.Len() && va.Cap() == vb.Cap()
	}

	if !va.Comparable() || !vb.Comparable() {
		return false
	}
	return va.Equal(vb)
}
