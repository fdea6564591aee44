package mockservice

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/PaesslerAG/jsonpath"
	log "github.com/sirupsen/logrus"
)

type constraintKind string

const (
	kindValue   constraintKind = ""
	kindPresent constraintKind = "present"
	kindKeys    constraintKind = "keys"
	kindLength  constraintKind = "length"
	kindType    constraintKind = "type"
)

type interactionConstraint struct {
	Path     string         `json:"path"`
	Kind     constraintKind `json:"kind,omitempty"`
	Values   []interface{}  `json:"values,omitempty"`
	Format   string         `json:"format,omitempty"`
	Pattern  *regexp.Regexp `json:"-"`
	Keys     []string       `json:"keys,omitempty"`
	Length   int            `json:"length,omitempty"`
	Template interface{}    `json:"template,omitempty"`
}

// Key is unique per path and kind, so a path can carry both a shape and a
// value constraint.
func (c interactionConstraint) Key() string {
	if c.Kind == kindValue {
		return c.Path
	}
	return c.Path + "#" + string(c.Kind)
}

// evaluate reads the constrained value out of request and checks it.
func (c interactionConstraint) evaluate(request requestDocument) error {
	actual, err := jsonpath.Get(c.Path, map[string]interface{}(request))
	if err != nil {
		log.Debugf("no value at path '%s': %v", c.Path, err)
		return fmt.Errorf("no value found at path '%s'", c.Path)
	}
	return c.check(actual)
}

func (c interactionConstraint) check(actualValue interface{}) error {
	switch c.Kind {
	case kindPresent:
		return nil
	case kindKeys:
		return checkKeys(c.Path, c.Keys, actualValue)
	case kindLength:
		items, ok := actualValue.([]interface{})
		if !ok {
			return fmt.Errorf("value at path '%s' is %s, expected an array", c.Path, jsonType(actualValue))
		}
		if len(items) != c.Length {
			return fmt.Errorf("array at path '%s' has %d elements, expected %d", c.Path, len(items), c.Length)
		}
		return nil
	case kindType:
		return matchType(c.Path, c.Template, actualValue)
	}

	actual := fmt.Sprintf("%v", actualValue)
	if c.Pattern != nil {
		if !c.Pattern.MatchString(actual) {
			return fmt.Errorf("value '%s' at path '%s' does not match regex '%s'", actual, c.Path, c.Pattern)
		}
		return nil
	}

	expected := fmt.Sprintf(c.Format, c.Values...)
	if expected != actual {
		return fmt.Errorf("value '%s' at path '%s' does not match constraint '%s'", actual, c.Path, expected)
	}
	return nil
}

func checkKeys(path string, allowed []string, actualValue interface{}) error {
	object, ok := actualValue.(map[string]interface{})
	if !ok {
		return fmt.Errorf("value at path '%s' is %s, expected an object", path, jsonType(actualValue))
	}

	known := make(map[string]bool, len(allowed))
	for _, k := range allowed {
		known[k] = true
	}
	var unexpected []string
	for k := range object {
		if !known[k] {
			unexpected = append(unexpected, k)
		}
	}
	if len(unexpected) > 0 {
		sort.Strings(unexpected)
		return fmt.Errorf("unexpected keys [%s] at path '%s'", strings.Join(unexpected, ", "), path)
	}
	return nil
}

func equalsConstraint(path string, value interface{}) interactionConstraint {
	return interactionConstraint{
		Path:   path,
		Format: "%v",
		Values: []interface{}{value},
	}
}

func regexConstraint(path, pattern string) (interactionConstraint, error) {
	regex, err := regexp.Compile("^(?:" + pattern + ")$")
	if err != nil {
		return interactionConstraint{}, fmt.Errorf("invalid regex '%s' for path '%s': %w", pattern, path, err)
	}
	return interactionConstraint{
		Path:    path,
		Pattern: regex,
	}, nil
}

func presentConstraint(path string) interactionConstraint {
	return interactionConstraint{Path: path, Kind: kindPresent}
}

// keysConstraint only allows the keys of object at path.
func keysConstraint(path string, object map[string]interface{}) interactionConstraint {
	return interactionConstraint{Path: path, Kind: kindKeys, Keys: keysOf(object)}
}

func lengthConstraint(path string, length int) interactionConstraint {
	return interactionConstraint{Path: path, Kind: kindLength, Length: length}
}

// typeConstraint matches the value at path by shape against template, which
// is usually a type matcher.
func typeConstraint(path string, template interface{}) interactionConstraint {
	return interactionConstraint{Path: path, Kind: kindType, Template: template}
}

// childPath appends key to a json path using bracket notation so keys with
// dots or spaces are addressed correctly.
func childPath(parent, key string) string {
	return parent + `["` + strings.ReplaceAll(key, `"`, `\"`) + `"]`
}

func indexPath(parent string, index int) string {
	return fmt.Sprintf("%s[%d]", parent, index)
}
