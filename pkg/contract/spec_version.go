package contract

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// SpecVersion is the version of the pact specification a contract is written against.
type SpecVersion int

const (
	V2 SpecVersion = 2
	V3 SpecVersion = 3
	V4 SpecVersion = 4
)

// DefaultSpecVersion is used whenever no version has been configured.
const DefaultSpecVersion = V3

func ParseSpecVersion(value string) (SpecVersion, error) {
	v := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(value)), "v")
	switch {
	case v == "":
		return DefaultSpecVersion, nil
	case v == "2" || strings.HasPrefix(v, "2."):
		return V2, nil
	case v == "3" || strings.HasPrefix(v, "3."):
		return V3, nil
	case v == "4" || strings.HasPrefix(v, "4."):
		return V4, nil
	}
	return 0, errors.Errorf("unsupported pact specification version %q", value)
}

// OrDefault returns DefaultSpecVersion for the zero value.
func (v SpecVersion) OrDefault() SpecVersion {
	if v == 0 {
		return DefaultSpecVersion
	}
	return v
}

// Version is the semantic version written into pact file metadata.
func (v SpecVersion) Version() string {
	return fmt.Sprintf("%d.0.0", int(v.OrDefault()))
}

func (v SpecVersion) String() string {
	return fmt.Sprintf("V%d", int(v.OrDefault()))
}

// EnvDecode lets envconfig populate a SpecVersion from the environment.
func (v *SpecVersion) EnvDecode(value string) error {
	parsed, err := ParseSpecVersion(value)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
