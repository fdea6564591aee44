package consumer

import (
	"fmt"
)

// SignatureError reports a fixture whose function does not have the shape
// required for its kind.
type SignatureError struct {
	Fixture  string
	Expected string
	Actual   string
}

func (e *SignatureError) Error() string {
	return fmt.Sprintf("fixture %s does not conform to required signature '%s', got '%s'", e.Fixture, e.Expected, e.Actual)
}

// ConfigurationError reports ambiguous or contradictory declarations.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "invalid pact configuration: " + e.Reason
}

func configurationErrorf(format string, a ...interface{}) error {
	return &ConfigurationError{Reason: fmt.Sprintf(format, a...)}
}

// UnresolvedFragmentError reports an explicitly requested provider without a
// matching fixture.
type UnresolvedFragmentError struct {
	Provider string
	Fragment string
}

func (e *UnresolvedFragmentError) Error() string {
	if e.Fragment == "" {
		return fmt.Sprintf("could not find a pact fixture for provider %s", e.Provider)
	}
	return fmt.Sprintf("could not find pact fixture %s for provider %s", e.Fragment, e.Provider)
}
