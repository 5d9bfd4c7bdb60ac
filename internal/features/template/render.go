package template

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var tokenPattern = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_\-]+(?:\.[A-Za-z0-9_\-]+)*)\s*\}\}`)

// Render substitutes {{dotted.path}} tokens from the variable bag. It is
// pure and total: unresolved tokens, including any missing intermediate key
// on the path, become the empty string. Preview and generation share this
// one code path.
func Render(body string, vars map[string]any) string {
	return tokenPattern.ReplaceAllStringFunc(body, func(token string) string {
		path := tokenPattern.FindStringSubmatch(token)[1]
		val, ok := resolvePath(vars, strings.Split(path, "."))
		if !ok {
			return ""
		}
		return stringify(val)
	})
}

func resolvePath(vars map[string]any, path []string) (any, bool) {
	var current any = vars
	for _, key := range path {
		val, ok := lookupKey(current, key)
		if !ok {
			return nil, false
		}
		current = val
	}
	return current, true
}

// lookupKey reads a string key out of any map-shaped value. Named map types
// (bson.M documents decoded from the store) walk the same as plain maps.
func lookupKey(current any, key string) (any, bool) {
	if m, ok := current.(map[string]any); ok {
		v, ok := m[key]
		return v, ok
	}
	rv := reflect.ValueOf(current)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	v := rv.MapIndex(reflect.ValueOf(key))
	if !v.IsValid() {
		return nil, false
	}
	return v.Interface(), true
}

// stringify formats values locale-independently.
func stringify(val any) string {
	switch v := val.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case time.Time:
		return v.UTC().Format("2006-01-02 15:04:05")
	default:
		return fmt.Sprintf("%v", v)
	}
}

// ResolveVariables applies declared defaults and enforces required
// variables against the supplied bag. The returned bag is a shallow copy;
// the input is never mutated.
func ResolveVariables(declared []TemplateVariable, supplied map[string]any) (map[string]any, error) {
	bag := make(map[string]any, len(supplied))
	for k, v := range supplied {
		bag[k] = v
	}

	for _, d := range declared {
		if _, ok := bag[d.Name]; ok {
			continue
		}
		if d.Default != nil {
			bag[d.Name] = d.Default
			continue
		}
		if d.Required {
			return nil, fmt.Errorf("missing required template variable: %s", d.Name)
		}
	}

	return bag, nil
}
