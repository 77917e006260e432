package engine

import "reflect"

// Identical reports whether a and b are the same value by reference.
//
// Maps, pointers, channels and funcs are identical when they point at the same
// thing. Slices are identical when they share backing array, length and
// capacity. Structs and arrays are identical when every field or element is
// identical, so a struct copied out of the state and handed back unchanged
// still counts as unchanged. Other values compare with ==.
//
// Identical never panics, unlike == on interface values holding uncomparable
// types.
func Identical(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return identical(reflect.ValueOf(a), reflect.ValueOf(b))
}

func identical(va, vb reflect.Value) bool {
	if va.Type() != vb.Type() {
		return false
	}

	switch va.Kind() {
	case reflect.Map, reflect.Pointer, reflect.Chan, reflect.UnsafePointer:
		return va.UnsafePointer() == vb.UnsafePointer()
	case reflect.Func:
		// Funcs are only comparable to nil.
		return va.IsNil() && vb.IsNil()
	case reflect.Slice:
		if va.IsNil() || vb.IsNil() {
			return va.IsNil() && vb.IsNil()
		}
		return va.UnsafePointer() == vb.UnsafePointer() &&
			va.Len() == vb.Len() &&
			va.Cap() == vb.Cap()
	case reflect.Interface:
		if va.IsNil() || vb.IsNil() {
			return va.IsNil() && vb.IsNil()
		}
		return identical(va.Elem(), vb.Elem())
	case reflect.Struct:
		for i := 0; i < va.NumField(); i++ {
			if !identical(va.Field(i), vb.Field(i)) {
				return false
			}
		}
		return true
	case reflect.Array:
		for i := 0; i < va.Len(); i++ {
			if !identical(va.Index(i), vb.Index(i)) {
				return false
			}
		}
		return true
	}

	// Remaining kinds are scalars and strings. Value.Equal also reads
	// unexported fields, which Interface would refuse.
	return va.Equal(vb)
}
