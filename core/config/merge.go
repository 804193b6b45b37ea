package config

import (
	"reflect"
)

// Overlay copies every non-zero field of src onto dst. Both must be pointers
// to values of the same type. Nested structs are overlaid field by field,
// non-empty slices replace, maps merge key by key. Zero values in src never
// clear a field in dst, so a partially filled src acts as a set of
// overrides.
func Overlay(dst, src any) {
	dstVal := reflect.ValueOf(dst)
	srcVal := reflect.ValueOf(src)

	if dstVal.Kind() != reflect.Ptr || srcVal.Kind() != reflect.Ptr {
		return
	}
	if dstVal.IsNil() || srcVal.IsNil() || dstVal.Type() != srcVal.Type() {
		return
	}

	overlayValue(dstVal.Elem(), srcVal.Elem())
}

func overlayValue(dst, src reflect.Value) {
	if !dst.CanSet() || !src.IsValid() {
		return
	}

	switch dst.Kind() {
	case reflect.Struct:
		for i := 0; i < dst.NumField(); i++ {
			overlayValue(dst.Field(i), src.Field(i))
		}
	case reflect.Map:
		overlayMap(dst, src)
	case reflect.Slice:
		if src.Len() > 0 {
			dst.Set(src)
		}
	default:
		if !src.IsZero() {
			dst.Set(src)
		}
	}
}

func overlayMap(dst, src reflect.Value) {
	if src.IsNil() {
		return
	}
	if dst.IsNil() {
		dst.Set(reflect.MakeMap(dst.Type()))
	}
	for _, key := range src.MapKeys() {
		dst.SetMapIndex(key, src.MapIndex(key))
	}
}
