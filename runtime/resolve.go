package runtime

import (
	"fmt"
	"reflect"
	"strings"
	"unicode"
	"unicode/utf8"
)

// resolveAttribute looks attr up on value: map keys, exported struct fields
// and methods without arguments. found is false when nothing matched.
func resolveAttribute(value interface{}, attr string) (result interface{}, found bool) {
	if value == nil || isUndefinedValue(value) {
		return nil, false
	}

	switch v := value.(type) {
	case map[string]interface{}:
		result, found = v[attr]
		return result, found
	case map[string]string:
		result, found = v[attr]
		return result, found
	}

	val := reflect.ValueOf(value)
	exported := exportedName(attr)

	if val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return nil, false
		}
		if method := val.MethodByName(exported); method.IsValid() {
			return callAccessor(method)
		}
		val = val.Elem()
	}

	switch val.Kind() {
	case reflect.Map:
		if val.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		key := reflect.ValueOf(attr).Convert(val.Type().Key())
		if item := val.MapIndex(key); item.IsValid() {
			return item.Interface(), true
		}
	case reflect.Struct:
		if field := val.FieldByName(exported); field.IsValid() && field.CanInterface() {
			return field.Interface(), true
		}
		if method := val.MethodByName(exported); method.IsValid() {
			return callAccessor(method)
		}
	case reflect.Interface:
		return resolveAttribute(val.Interface(), attr)
	}

	return nil, false
}

// callAccessor calls a method taking no arguments. Methods with other
// signatures are returned as values so templates can call them.
func callAccessor(method reflect.Value) (interface{}, bool) {
	typ := method.Type()
	if typ.NumIn() == 0 && typ.NumOut() == 1 {
		return method.Call(nil)[0].Interface(), true
	}
	return method.Interface(), true
}

func exportedName(attr string) string {
	r, size := utf8.DecodeRuneInString(attr)
	if r == utf8.RuneError {
		return attr
	}
	return string(unicode.ToUpper(r)) + attr[size:]
}

// resolveIndex resolves value[index] for maps, slices, arrays and strings.
// Negative indexes count from the end.
func resolveIndex(value interface{}, index interface{}) (interface{}, bool, error) {
	if value == nil || isUndefinedValue(value) {
		return nil, false, nil
	}

	val := reflect.ValueOf(value)
	if val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return nil, false, nil
		}
		val = val.Elem()
	}

	switch val.Kind() {
	case reflect.Map:
		keyVal := reflect.ValueOf(index)
		if !keyVal.IsValid() || !keyVal.Type().ConvertibleTo(val.Type().Key()) {
			return nil, false, fmt.Errorf("invalid map key type: %T", index)
		}
		if item := val.MapIndex(keyVal.Convert(val.Type().Key())); item.IsValid() {
			return item.Interface(), true, nil
		}
		return nil, false, nil
	case reflect.Slice, reflect.Array, reflect.String:
		idx, ok := index.(int)
		if !ok {
			return nil, false, fmt.Errorf("invalid index type: %T", index)
		}
		if val.Kind() == reflect.String {
			runes := []rune(val.String())
			if idx < 0 {
				idx += len(runes)
			}
			if idx < 0 || idx >= len(runes) {
				return nil, false, nil
			}
			return string(runes[idx]), true, nil
		}
		if idx < 0 {
			idx += val.Len()
		}
		if idx < 0 || idx >= val.Len() {
			return nil, false, nil
		}
		return val.Index(idx).Interface(), true, nil
	case reflect.Interface:
		return resolveIndex(val.Interface(), index)
	}

	return nil, false, fmt.Errorf("cannot index %T", value)
}

// toString converts a value to its template output form
func toString(value interface{}) string {
	if value == nil {
		return ""
	}

	switch v := value.(type) {
	case string:
		return v
	case Markup:
		return string(v)
	case fmt.Stringer:
		return v.String()
	case []interface{}:
		parts := make([]string, len(v))
		for i, item := range v {
			parts[i] = toString(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return fmt.Sprintf("%v", value)
	}
}

// isTruthy reports whether a value counts as true for filters like default
func isTruthy(value interface{}) bool {
	if value == nil || isUndefinedValue(value) {
		return false
	}

	switch v := value.(type) {
	case bool:
		return v
	case int:
		return v != 0
	case int64:
		return v != 0
	case float64:
		return v != 0
	case string:
		return v != ""
	case Markup:
		return v != ""
	}

	val := reflect.ValueOf(value)
	switch val.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return val.Len() > 0
	case reflect.Ptr, reflect.Interface:
		return !val.IsNil()
	}
	return true
}
