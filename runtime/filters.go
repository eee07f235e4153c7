package runtime

import (
	"fmt"
	"html/template"
	"reflect"
	"strings"
	"unicode"
)

// registerBuiltinFilters registers all built-in filters with the environment
func (env *Environment) registerBuiltinFilters() {
	// String filters
	env.AddFilter("upper", filterUpper)
	env.AddFilter("lower", filterLower)
	env.AddFilter("capitalize", filterCapitalize)
	env.AddFilter("title", filterTitle)
	env.AddFilter("trim", filterTrim)
	env.AddFilter("replace", filterReplace)

	// Escaping
	env.AddFilter("escape", filterEscape)
	env.AddFilter("e", filterEscape)
	env.AddFilter("safe", filterSafe)

	// Sequences
	env.AddFilter("length", filterLength)
	env.AddFilter("join", filterJoin)

	env.AddFilter("default", filterDefault)
	env.AddFilter("d", filterDefault)
}

func filterUpper(ctx *Context, value interface{}, args ...interface{}) (interface{}, error) {
	return strings.ToUpper(toString(value)), nil
}

func filterLower(ctx *Context, value interface{}, args ...interface{}) (interface{}, error) {
	return strings.ToLower(toString(value)), nil
}

func filterCapitalize(ctx *Context, value interface{}, args ...interface{}) (interface{}, error) {
	str := toString(value)
	if str == "" {
		return str, nil
	}
	runes := []rune(str)
	return strings.ToUpper(string(runes[0])) + strings.ToLower(string(runes[1:])), nil
}

// filterTitle upper-cases the first letter of every word and lower-cases
// the rest
func filterTitle(ctx *Context, value interface{}, args ...interface{}) (interface{}, error) {
	runes := []rune(toString(value))
	start := true
	for i, r := range runes {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if start {
				runes[i] = unicode.ToUpper(r)
			} else {
				runes[i] = unicode.ToLower(r)
			}
			start = false
			continue
		}
		start = unicode.IsSpace(r) || r == '-' || r == '(' || r == '['
	}
	return string(runes), nil
}

func filterTrim(ctx *Context, value interface{}, args ...interface{}) (interface{}, error) {
	str := toString(value)
	if len(args) > 0 {
		return strings.Trim(str, toString(args[0])), nil
	}
	return strings.TrimSpace(str), nil
}

func filterReplace(ctx *Context, value interface{}, args ...interface{}) (interface{}, error) {
	if len(args) < 2 {
		return nil, fmt.Errorf("replace filter requires 2 arguments")
	}

	result := strings.ReplaceAll(toString(value), toString(args[0]), toString(args[1]))
	if _, ok := value.(Markup); ok {
		return Markup(result), nil
	}
	return result, nil
}

func filterEscape(ctx *Context, value interface{}, args ...interface{}) (interface{}, error) {
	if markup, ok := value.(Markup); ok {
		return markup, nil
	}
	return Markup(template.HTMLEscapeString(toString(value))), nil
}

func filterSafe(ctx *Context, value interface{}, args ...interface{}) (interface{}, error) {
	return Markup(toString(value)), nil
}

func filterLength(ctx *Context, value interface{}, args ...interface{}) (interface{}, error) {
	switch v := value.(type) {
	case string:
		return len([]rune(v)), nil
	case Markup:
		return len([]rune(string(v))), nil
	case []interface{}:
		return len(v), nil
	case map[string]interface{}:
		return len(v), nil
	case Undefined:
		return 0, nil
	}

	val := reflect.ValueOf(value)
	switch val.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map, reflect.String:
		return val.Len(), nil
	default:
		return 0, fmt.Errorf("length filter requires a sequence or mapping")
	}
}

func filterJoin(ctx *Context, value interface{}, args ...interface{}) (interface{}, error) {
	separator := ""
	if len(args) > 0 {
		separator = toString(args[0])
	}

	switch v := value.(type) {
	case []interface{}:
		strs := make([]string, len(v))
		for i, item := range v {
			strs[i] = toString(item)
		}
		return strings.Join(strs, separator), nil
	case []string:
		return strings.Join(v, separator), nil
	}

	val := reflect.ValueOf(value)
	if val.Kind() == reflect.Slice || val.Kind() == reflect.Array {
		strs := make([]string, val.Len())
		for i := 0; i < val.Len(); i++ {
			strs[i] = toString(val.Index(i).Interface())
		}
		return strings.Join(strs, separator), nil
	}
	return nil, fmt.Errorf("join filter requires a sequence")
}

// filterDefault replaces undefined values. With a true second argument it
// also replaces falsy ones.
func filterDefault(ctx *Context, value interface{}, args ...interface{}) (interface{}, error) {
	var defaultValue interface{} = ""
	if len(args) > 0 {
		defaultValue = args[0]
	}

	applyOnFalsy := false
	if len(args) > 1 {
		switch v := args[1].(type) {
		case bool:
			applyOnFalsy = v
		case int:
			applyOnFalsy = v != 0
		case string:
			applyOnFalsy = strings.EqualFold(v, "true")
		}
	}

	if isUndefinedValue(value) {
		return defaultValue, nil
	}
	if applyOnFalsy && !isTruthy(value) {
		return defaultValue, nil
	}
	return value, nil
}
