package table

import (
	"reflect"
	"strings"
)

// resolveField walks a dotted path ("Build.Timestamp") through structs,
// pointers, interfaces and string-keyed maps. The second result is false
// when a segment is missing or a nil is reached before the end of the path.
func resolveField(rec any, path string) (any, bool) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, false
	}
	v := reflect.ValueOf(rec)
	for _, seg := range strings.Split(path, ".") {
		v = indirect(v)
		if !v.IsValid() {
			return nil, false
		}
		switch v.Kind() {
		case reflect.Struct:
			f := v.FieldByName(seg)
			if !f.IsValid() || !f.CanInterface() {
				return nil, false
			}
			v = f
		case reflect.Map:
			if v.Type().Key().Kind() != reflect.String {
				return nil, false
			}
			f := v.MapIndex(reflect.ValueOf(seg).Convert(v.Type().Key()))
			if !f.IsValid() {
				return nil, false
			}
			v = f
		default:
			return nil, false
		}
	}
	v = indirect(v)
	if !v.IsValid() {
		return nil, false
	}
	return v.Interface(), true
}

func indirect(v reflect.Value) reflect.Value {
	for v.IsValid() && (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}
