package mockserver

import (
	"fmt"
	"sort"
	"strings"
)

// Mismatch is a difference between the expected and the received interactions.
type Mismatch interface {
	Describe() string
}

// MissingRequest is an expected interaction that was never received.
type MissingRequest struct {
	Description string `json:"description"`
	Method      string `json:"method"`
	Path        string `json:"path"`
}

func (m MissingRequest) Describe() string {
	return fmt.Sprintf("missing request '%s': %s %s", m.Description, m.Method, m.Path)
}

// UnexpectedRequest is a received request no interaction expects.
type UnexpectedRequest struct {
	Method string `json:"method"`
	Path   string `json:"path"`
}

func (m UnexpectedRequest) Describe() string {
	return fmt.Sprintf("unexpected request: %s %s", m.Method, m.Path)
}

// RequestMismatch is a received request that matched the method and path of
// at least one interaction but violated its constraints.
type RequestMismatch struct {
	Method     string              `json:"method"`
	Path       string              `json:"path"`
	Violations map[string][]string `json:"violations"`
}

func (m RequestMismatch) Describe() string {
	var b strings.Builder
	fmt.Fprintf(&b, "request does not match: %s %s", m.Method, m.Path)
	descriptions := make([]string, 0, len(m.Violations))
	for description := range m.Violations {
		descriptions = append(descriptions, description)
	}
	sort.Strings(descriptions)
	for _, description := range descriptions {
		fmt.Fprintf(&b, "\n  '%s':", description)
		for _, v := range m.Violations[description] {
			fmt.Fprintf(&b, "\n    - %s", v)
		}
	}
	return b.String()
}
