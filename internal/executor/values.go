package executor

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
)

// identityKey maps an identity value to a comparable key. Numbers compare by
// value regardless of their Go type, so an int from one handler matches the
// float64 a JSON-backed handler decoded for the same identity.
func identityKey(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		return "s:" + x, true
	case []byte:
		return "s:" + string(x), true
	case bool:
		return "b:" + strconv.FormatBool(x), true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return "n:" + strconv.FormatInt(rv.Int(), 10), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "n:" + strconv.FormatUint(rv.Uint(), 10), true
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if f == math.Trunc(f) && math.Abs(f) < 1<<63 {
			return "n:" + strconv.FormatInt(int64(f), 10), true
		}
		return "n:" + strconv.FormatFloat(f, 'g', -1, 64), true
	case reflect.String:
		return "s:" + rv.String(), true
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct, reflect.Func, reflect.Chan, reflect.Pointer:
		return "", false
	}
	return fmt.Sprintf("%T:%v", v, v), true
}

// identities reads the raw value of a compound attribute: nil, a single
// identity, or a list of identities.
func identities(v any) ([]string, error) {
	if isNullish(v) {
		return nil, nil
	}
	if key, ok := identityKey(v); ok {
		return []string{key}, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("expected an identity or a list of identities, got %T", v)
	}
	keys := make([]string, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		item := rv.Index(i).Interface()
		key, ok := identityKey(item)
		if !ok {
			return nil, fmt.Errorf("expected an identity at index %d, got %T", i, item)
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// isNullish returns true for nil interfaces and typed nils (map, slice, ptr, interface)
func isNullish(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Interface, reflect.Ptr, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}
