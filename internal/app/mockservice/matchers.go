package mockservice

import (
	"fmt"
	"sort"
)

// json_class values pact-go v1 uses when serializing matchers.
const (
	jsonClass       = "json_class"
	classTerm       = "Pact::Term"
	classLike       = "Pact::SomethingLike"
	classArrayLike  = "Pact::ArrayLike"
	defaultArrayMin = 1
)

func matcherClass(v interface{}) (string, map[string]interface{}, bool) {
	m, ok := v.(map[string]interface{})
	if !ok {
		return "", nil, false
	}
	class, ok := m[jsonClass].(string)
	if !ok {
		return "", nil, false
	}
	return class, m, true
}

// termParts returns the example value and the regex of a Pact::Term.
func termParts(term map[string]interface{}) (interface{}, string, error) {
	data, ok := term["data"].(map[string]interface{})
	if !ok {
		return nil, "", fmt.Errorf("term matcher has no data")
	}
	matcher, ok := data["matcher"].(map[string]interface{})
	if !ok {
		return nil, "", fmt.Errorf("term matcher has no regex")
	}
	regex, ok := matcher["s"].(string)
	if !ok {
		return nil, "", fmt.Errorf("term matcher regex is not a string")
	}
	return data["generate"], regex, nil
}

func arrayMin(arrayLike map[string]interface{}) int {
	if n, ok := arrayLike["min"].(float64); ok && n > 0 {
		return int(n)
	}
	return defaultArrayMin
}

// reify replaces matchers with the concrete example values they carry, so a
// response can be served from a definition.
func reify(v interface{}) interface{} {
	if class, m, ok := matcherClass(v); ok {
		switch class {
		case classLike:
			return reify(m["contents"])
		case classArrayLike:
			contents := reify(m["contents"])
			items := make([]interface{}, arrayMin(m))
			for i := range items {
				items[i] = contents
			}
			return items
		case classTerm:
			generate, _, err := termParts(m)
			if err != nil {
				return nil
			}
			return generate
		}
	}

	switch val := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			out[k] = reify(item)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = reify(item)
		}
		return out
	}
	return v
}

// stringValue reifies v and renders it as a string. Lists use their first element.
func stringValue(v interface{}) (string, bool) {
	switch val := reify(v).(type) {
	case string:
		return val, true
	case []interface{}:
		if len(val) == 0 {
			return "", false
		}
		return stringValue(val[0])
	case nil:
		return "", false
	default:
		return fmt.Sprintf("%v", val), true
	}
}

// matchType checks actual against the shape of template. Literals must have
// the same JSON type, objects must have exactly the template keys and arrays
// the template length, unless an ArrayLike allows any length above its min.
func matchType(path string, template, actual interface{}) error {
	if class, m, ok := matcherClass(template); ok {
		switch class {
		case classLike:
			return matchType(path, m["contents"], actual)
		case classArrayLike:
			items, ok := actual.([]interface{})
			if !ok {
				return fmt.Errorf("value at path '%s' is %s, expected an array", path, jsonType(actual))
			}
			if min := arrayMin(m); len(items) < min {
				return fmt.Errorf("array at path '%s' has %d elements, expected at least %d", path, len(items), min)
			}
			for idx, item := range items {
				if err := matchType(indexPath(path, idx), m["contents"], item); err != nil {
					return err
				}
			}
			return nil
		case classTerm:
			_, regex, err := termParts(m)
			if err != nil {
				return err
			}
			constraint, err := regexConstraint(path, regex)
			if err != nil {
				return err
			}
			return constraint.check(actual)
		}
	}

	switch t := template.(type) {
	case map[string]interface{}:
		if err := checkKeys(path, keysOf(t), actual); err != nil {
			return err
		}
		object := actual.(map[string]interface{})
		for _, k := range keysOf(t) {
			value, ok := object[k]
			if !ok {
				return fmt.Errorf("no value found at path '%s'", childPath(path, k))
			}
			if err := matchType(childPath(path, k), t[k], value); err != nil {
				return err
			}
		}
		return nil
	case []interface{}:
		items, ok := actual.([]interface{})
		if !ok {
			return fmt.Errorf("value at path '%s' is %s, expected an array", path, jsonType(actual))
		}
		if len(items) != len(t) {
			return fmt.Errorf("array at path '%s' has %d elements, expected %d", path, len(items), len(t))
		}
		for idx, item := range items {
			if err := matchType(indexPath(path, idx), t[idx], item); err != nil {
				return err
			}
		}
		return nil
	}

	if expected, got := jsonType(template), jsonType(actual); expected != got {
		return fmt.Errorf("value at path '%s' is %s, expected %s", path, got, expected)
	}
	return nil
}

func jsonType(v interface{}) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "a string"
	case float64, float32, int, int64:
		return "a number"
	case bool:
		return "a boolean"
	case map[string]interface{}:
		return "an object"
	case []interface{}:
		return "an array"
	}
	return fmt.Sprintf("%T", v)
}

func keysOf(object map[string]interface{}) []string {
	keys := make([]string, 0, len(object))
	for k := range object {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
