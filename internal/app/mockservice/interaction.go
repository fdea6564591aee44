package mockservice

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	mediaTypeJSON = "application/json"
	mediaTypeText = "text/plain"
)

type pathMatcher interface {
	match(val string) bool
	String() string
}

type stringPathMatcher struct {
	val string
}

func (m *stringPathMatcher) match(val string) bool {
	return val == m.val
}

func (m *stringPathMatcher) String() string {
	return m.val
}

type regexPathMatcher struct {
	val *regexp.Regexp
}

func (m *regexPathMatcher) match(val string) bool {
	return m.val.MatchString(val)
}

func (m *regexPathMatcher) String() string {
	return m.val.String()
}

type interaction struct {
	mu            sync.RWMutex
	pathMatcher   pathMatcher
	Method        string          `json:"method"`
	Description   string          `json:"description"`
	ProviderState string          `json:"provider_state,omitempty"`
	RequestCount  int             `json:"request_count"`
	LastRequest   requestDocument `json:"last_request"`
	constraints   map[string]interactionConstraint
	response      response
}

func loadInteraction(data []byte) (*interaction, error) {
	definition := make(map[string]interface{})
	if err := json.Unmarshal(data, &definition); err != nil {
		return nil, errors.Wrap(err, "unable to parse interaction definition")
	}

	description, ok := definition["description"].(string)
	if !ok {
		return nil, errors.New("unable to parse interaction definition, no description defined")
	}

	request, ok := definition["request"].(map[string]interface{})
	if !ok {
		return nil, errors.Errorf("unable to parse interaction '%s', no request defined", description)
	}

	method, _ := request["method"].(string)
	if method == "" {
		return nil, errors.Errorf("unable to parse interaction '%s', no method defined", description)
	}

	matchingRules := getMatchingRules(request)
	matcher, err := newPathMatcher(request["path"], matchingRules)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to parse path of interaction '%s'", description)
	}

	i := &interaction{
		pathMatcher:   matcher,
		Method:        strings.ToUpper(method),
		Description:   description,
		ProviderState: providerState(definition),
		constraints:   map[string]interactionConstraint{},
	}

	if err := i.addQueryConstraints(request["query"], getValuesWithMatchingRules(matchingRules, "query", "$.query")); err != nil {
		return nil, errors.Wrapf(err, "unable to parse query of interaction '%s'", description)
	}
	if err := i.addHeaderConstraints(request["headers"], getValuesWithMatchingRules(matchingRules, "header", "$.headers")); err != nil {
		return nil, errors.Wrapf(err, "unable to parse headers of interaction '%s'", description)
	}
	if err := i.addBodyConstraints(request, matchingRules); err != nil {
		return nil, errors.Wrapf(err, "unable to parse body of interaction '%s'", description)
	}

	i.response, err = loadResponse(definition["response"])
	if err != nil {
		return nil, errors.Wrapf(err, "unable to parse response of interaction '%s'", description)
	}
	return i, nil
}

func providerState(definition map[string]interface{}) string {
	if state, ok := definition["providerState"].(string); ok {
		return state
	}
	if states, ok := definition["providerStates"].([]interface{}); ok && len(states) > 0 {
		if state, ok := states[0].(map[string]interface{}); ok {
			name, _ := state["name"].(string)
			return name
		}
	}
	return ""
}

func newPathMatcher(path interface{}, matchingRules map[string]interface{}) (pathMatcher, error) {
	regexString, err := getPathRegex(matchingRules)
	if err != nil {
		return nil, err
	}

	if regexString == "" {
		switch p := path.(type) {
		case string:
			return &stringPathMatcher{val: p}, nil
		case map[string]interface{}:
			class, term, ok := matcherClass(p)
			if !ok || class != classTerm {
				return nil, errors.New("only regex matchers are supported for paths")
			}
			if _, regexString, err = termParts(term); err != nil {
				return nil, err
			}
		default:
			return nil, errors.New("no path defined")
		}
	}

	regex, err := regexp.Compile("^" + regexString + "$")
	if err != nil {
		return nil, errors.Wrap(err, "cannot parse path regex rule")
	}
	return &regexPathMatcher{val: regex}, nil
}

// looks for a matching rule for key "$.path" in the supplied map
// if the found element is a map, it is treated as a pact v2 style matching rule (i.e. "$.path": { "regex": "<expression>" } )
// if the found element is an array, it is treated as a pact v3 list of matchers (i.e. "path": { "matchers": [ {"match": "regex", "regex": "<exp>"}]} )
func getPathRegex(matchingRules map[string]interface{}) (string, error) {
	if rule, hasPathV2Rule := matchingRules["$.path"]; hasPathV2Rule {
		val, ok := rule.(map[string]interface{})
		if !ok {
			return "", fmt.Errorf("invalid v2 pathRegex invalid content")
		}
		regexType, ok := val["regex"]
		if !ok {
			return "", fmt.Errorf("invalid v2 pathRegex does not have regex value")
		}
		regexString, ok := regexType.(string)
		if !ok {
			return "", fmt.Errorf("invalid v2 pathRegex invalid regex type")
		}
		return regexString, nil
	}

	rule, hasPathV3Rule := matchingRules["path"]
	if !hasPathV3Rule {
		return "", nil
	}

	val, ok := rule.(map[string]interface{})
	if !ok {
		return "", fmt.Errorf("invalid v3 pathRegex invalid content")
	}
	matchersArray, ok := val["matchers"].([]interface{})
	if !ok || len(matchersArray) == 0 {
		return "", fmt.Errorf("invalid v3 pathRegex - invalid matchers")
	}

	for _, matcher := range matchersArray {
		matchersStruct, ok := matcher.(map[string]interface{})
		if !ok {
			continue
		}
		if match, _ := matchersStruct["match"].(string); match != "regex" {
			continue
		}
		regex, ok := matchersStruct["regex"].(string)
		if !ok {
			return "", fmt.Errorf("invalid v3 pathRegex - invalid regex type")
		}
		return regex, nil
	}

	return "", fmt.Errorf("invalid v3 pathRegex - regex matcher is not found")
}

func getMatchingRules(request map[string]interface{}) map[string]interface{} {
	rules, ok := request["matchingRules"].(map[string]interface{})
	if !ok {
		return map[string]interface{}{}
	}
	return rules
}

// finds the paths of the body properties for which the matchingRules map
// contains matching rules. It understands both v2 style matching rules
// ("$.body.data.id": { "regex": "<exp>" }) and v3 style matching rules
// ("body": { "$.data.id": { "matchers": [...] } }).
func getBodyPropertiesWithMatchingRules(matchingRules map[string]interface{}) map[string]bool {
	results := map[string]bool{}
	for k, v := range matchingRules {
		if strings.HasPrefix(k, "$.body") {
			results[k] = true
		} else if k == "body" {
			if properties, ok := v.(map[string]interface{}); ok {
				for propertyName := range properties {
					path := strings.TrimPrefix(propertyName, "$")
					results["$.body"+path] = true
				}
			}
		}
	}
	return results
}

// finds the query parameters or headers that have a matching rule, from v2
// style ("$.query.page") or v3 style ("query": { "page": {...} }) rules.
// Header names are canonicalized.
func getValuesWithMatchingRules(matchingRules map[string]interface{}, category, v2Prefix string) map[string]bool {
	canonical := func(name string) string {
		if category == "header" {
			return http.CanonicalHeaderKey(name)
		}
		return name
	}

	results := map[string]bool{}
	for k, v := range matchingRules {
		if strings.HasPrefix(k, v2Prefix+".") {
			results[canonical(strings.TrimPrefix(k, v2Prefix+"."))] = true
		} else if k == category {
			if names, ok := v.(map[string]interface{}); ok {
				for name := range names {
					results[canonical(name)] = true
				}
			}
		}
	}
	return results
}

func parseMediaType(request map[string]interface{}) (string, error) {
	headers, ok := request["headers"].(map[string]interface{})
	if !ok {
		return "", nil
	}

	for name, value := range headers {
		if http.CanonicalHeaderKey(name) != "Content-Type" {
			continue
		}
		contentType, ok := stringValue(value)
		if !ok {
			return "", errors.New("incorrect format of Content-Type header")
		}
		mediaType, _, err := mime.ParseMediaType(contentType)
		if err != nil {
			return "", err
		}
		return mediaType, nil
	}
	return "", nil
}

// addQueryConstraints constrains the declared parameters and rejects any
// parameter the interaction does not declare.
func (i *interaction) addQueryConstraints(query interface{}, matchingRules map[string]bool) error {
	root := childPath("$", "query")
	switch q := query.(type) {
	case nil:
		i.AddConstraint(keysConstraint(root, nil))
		return nil
	case string:
		values, err := url.ParseQuery(q)
		if err != nil {
			return err
		}
		declared := make(map[string]interface{}, len(values))
		for name := range values {
			declared[name] = values.Get(name)
			if matchingRules[name] {
				i.AddConstraint(presentConstraint(childPath(root, name)))
				continue
			}
			i.AddConstraint(equalsConstraint(childPath(root, name), values.Get(name)))
		}
		i.AddConstraint(keysConstraint(root, declared))
		return nil
	case map[string]interface{}:
		for name, value := range q {
			if matchingRules[name] {
				i.AddConstraint(presentConstraint(childPath(root, name)))
				continue
			}
			if err := i.addValueConstraint(childPath(root, name), value); err != nil {
				return err
			}
		}
		i.AddConstraint(keysConstraint(root, q))
		return nil
	}
	return errors.New("incorrect format of query")
}

func (i *interaction) addHeaderConstraints(headers interface{}, matchingRules map[string]bool) error {
	if headers == nil {
		return nil
	}
	h, ok := headers.(map[string]interface{})
	if !ok {
		return errors.New("incorrect format of request headers")
	}

	root := childPath("$", "headers")
	for name, value := range h {
		path := childPath(root, http.CanonicalHeaderKey(name))
		if matchingRules[http.CanonicalHeaderKey(name)] {
			i.AddConstraint(presentConstraint(path))
			continue
		}
		if err := i.addValueConstraint(path, value); err != nil {
			return err
		}
	}
	return nil
}

// addValueConstraint constrains a single query or header value, which may be
// a literal, a list of literals, a regex matcher or a type matcher. Type
// matched values only have to be present since they always arrive as strings.
func (i *interaction) addValueConstraint(path string, value interface{}) error {
	if list, ok := value.([]interface{}); ok && len(list) > 0 {
		value = list[0]
	}

	if class, m, ok := matcherClass(value); ok {
		if class != classTerm {
			i.AddConstraint(presentConstraint(path))
			return nil
		}
		_, regex, err := termParts(m)
		if err != nil {
			return err
		}
		constraint, err := regexConstraint(path, regex)
		if err != nil {
			return err
		}
		i.AddConstraint(constraint)
		return nil
	}

	s, ok := stringValue(value)
	if !ok {
		return nil
	}
	i.AddConstraint(equalsConstraint(path, s))
	return nil
}

func (i *interaction) addBodyConstraints(request, matchingRules map[string]interface{}) error {
	body, ok := request["body"]
	if !ok || body == nil {
		return nil
	}

	mediaType, err := parseMediaType(request)
	if err != nil {
		return errors.Wrap(err, "unable to parse media type")
	}

	rules := getBodyPropertiesWithMatchingRules(matchingRules)
	if text, ok := body.(string); ok {
		var decoded interface{}
		if mediaType != mediaTypeJSON || json.Unmarshal([]byte(text), &decoded) != nil {
			i.addTextConstraintsFromPact(rules, text)
			return nil
		}
		body = decoded
	}

	return i.addJSONConstraintsFromPact(childPath("$", "body"), "$.body", rules, body)
}

// adds constraints for the JSON request body. Leaves without a matching rule
// must be equal, objects may not carry undeclared keys and arrays must keep
// their length. Regex matchers become regex constraints and type matchers are
// matched by shape. Anything with a matching rule only has to be present.
func (i *interaction) addJSONConstraintsFromPact(path, rulePath string, matchingRules map[string]bool, value interface{}) error {
	if matchingRules[rulePath] {
		i.AddConstraint(presentConstraint(path))
		return nil
	}

	switch val := value.(type) {
	case map[string]interface{}:
		if class, m, ok := matcherClass(val); ok {
			if class != classTerm {
				i.AddConstraint(typeConstraint(path, val))
				return nil
			}
			_, regex, err := termParts(m)
			if err != nil {
				return err
			}
			constraint, err := regexConstraint(path, regex)
			if err != nil {
				return err
			}
			i.AddConstraint(constraint)
			return nil
		}
		i.AddConstraint(keysConstraint(path, val))
		for k, v := range val {
			if err := i.addJSONConstraintsFromPact(childPath(path, k), rulePath+"."+k, matchingRules, v); err != nil {
				return err
			}
		}
	case []interface{}:
		i.AddConstraint(lengthConstraint(path, len(val)))
		for idx, v := range val {
			if err := i.addJSONConstraintsFromPact(indexPath(path, idx), fmt.Sprintf("%s[%d]", rulePath, idx), matchingRules, v); err != nil {
				return err
			}
		}
	default:
		i.AddConstraint(equalsConstraint(path, val))
	}
	return nil
}

// adds a constraint for the entire plain text request body if it doesn't
// have a corresponding matching rule
func (i *interaction) addTextConstraintsFromPact(matchingRules map[string]bool, body string) {
	if matchingRules["$.body"] {
		i.AddConstraint(presentConstraint(childPath("$", "body")))
		return
	}
	i.AddConstraint(equalsConstraint(childPath("$", "body"), body))
}

func (i *interaction) Match(path, method string) bool {
	return method == i.Method && i.pathMatcher.match(path)
}

func (i *interaction) AddConstraint(constraint interactionConstraint) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.constraints[constraint.Key()] = constraint
}

// EvaluateConstraints checks request against every constraint, reporting
// violations in path order.
func (i *interaction) EvaluateConstraints(request requestDocument) (bool, []string) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	keys := make([]string, 0, len(i.constraints))
	for k := range i.constraints {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	violations := make([]string, 0)
	for _, k := range keys {
		if err := i.constraints[k].evaluate(request); err != nil {
			violations = append(violations, err.Error())
		}
	}

	if len(violations) > 0 {
		log.WithField("interaction", i.Description).Debugf("%d constraint violations", len(violations))
	}
	return len(violations) == 0, violations
}

func (i *interaction) StoreRequest(request requestDocument) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.LastRequest = request
	i.RequestCount++
}

func (i *interaction) HasRequests(count int) bool {
	return i.getRequestCount() >= count
}

func (i *interaction) getRequestCount() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.RequestCount
}
