package consumer

import (
	"reflect"
	"runtime"
	"strings"
)

// FixtureKind tells what a fixture function produces.
type FixtureKind int

const (
	// KindContract fixtures have the shape func(*contract.Builder) contract.Document,
	// optionally returning an error as well.
	KindContract FixtureKind = iota
	// KindDefaultRequest fixtures have the shape func(*contract.RequestDefaults).
	KindDefaultRequest
	// KindDefaultResponse fixtures have the shape func(*contract.ResponseDefaults).
	KindDefaultResponse
)

func (k FixtureKind) String() string {
	switch k {
	case KindContract:
		return "contract"
	case KindDefaultRequest:
		return "default request"
	case KindDefaultResponse:
		return "default response"
	}
	return "unknown"
}

// Metadata describes a contract fixture. Provider and Consumer may contain
// ${name} or ${name:default} placeholders, expanded each time the fixture is
// resolved. An empty Provider matches any provider.
type Metadata struct {
	Provider string
	Consumer string
	Fragment string
}

// Fixture is a function of a test subject that contributes to a contract.
type Fixture struct {
	Metadata
	Kind FixtureKind
	Fn   interface{}
}

// ContractFixture registers fn as a contract producer. The fragment name
// defaults to the name of fn.
func ContractFixture(meta Metadata, fn interface{}) Fixture {
	if meta.Fragment == "" {
		meta.Fragment = funcName(fn)
	}
	return Fixture{Metadata: meta, Kind: KindContract, Fn: fn}
}

func DefaultRequestFixture(fn interface{}) Fixture {
	return Fixture{Metadata: Metadata{Fragment: funcName(fn)}, Kind: KindDefaultRequest, Fn: fn}
}

func DefaultResponseFixture(fn interface{}) Fixture {
	return Fixture{Metadata: Metadata{Fragment: funcName(fn)}, Kind: KindDefaultResponse, Fn: fn}
}

// Name identifies the fixture in logs and errors.
func (f Fixture) Name() string {
	if f.Fragment != "" {
		return f.Fragment
	}
	if name := funcName(f.Fn); name != "" {
		return name
	}
	return "<anonymous " + f.Kind.String() + " fixture>"
}

// Subject is a test subject declaring fixtures, in registration order.
type Subject interface {
	PactFixtures() []Fixture
}

// DirectorySubject is a Subject declaring where its pact files are written.
type DirectorySubject interface {
	Subject
	PactDirectory() string
}

// Fixtures is a Subject made of a plain list of fixtures.
type Fixtures []Fixture

func (f Fixtures) PactFixtures() []Fixture {
	return f
}

// funcName returns the bare name of a function or method value, e.g.
// "GetOrderPact" for (*ordersTest).GetOrderPact.
func funcName(fn interface{}) string {
	v := reflect.ValueOf(fn)
	if !v.IsValid() || v.Kind() != reflect.Func || v.IsNil() {
		return ""
	}
	f := runtime.FuncForPC(v.Pointer())
	if f == nil {
		return ""
	}
	name := strings.TrimSuffix(f.Name(), "-fm")
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return name
}
