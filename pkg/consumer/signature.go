package consumer

import (
	"fmt"
	"reflect"

	"github.com/form3tech-oss/pact-consumer/pkg/contract"
	"github.com/pkg/errors"
)

var (
	builderType          = reflect.TypeOf((*contract.Builder)(nil))
	documentType         = reflect.TypeOf((*contract.Document)(nil)).Elem()
	errorType            = reflect.TypeOf((*error)(nil)).Elem()
	requestDefaultsType  = reflect.TypeOf((*contract.RequestDefaults)(nil))
	responseDefaultsType = reflect.TypeOf((*contract.ResponseDefaults)(nil))
)

var expectedSignatures = map[FixtureKind]string{
	KindContract:        "func(*contract.Builder) contract.Document",
	KindDefaultRequest:  "func(*contract.RequestDefaults)",
	KindDefaultResponse: "func(*contract.ResponseDefaults)",
}

// validateSignature checks the function of f has the shape its kind requires.
func validateSignature(f Fixture) error {
	expected, ok := expectedSignatures[f.Kind]
	if !ok {
		return &SignatureError{Fixture: f.Name(), Expected: "a known fixture kind", Actual: f.Kind.String()}
	}

	v := reflect.ValueOf(f.Fn)
	if !v.IsValid() || v.Kind() != reflect.Func || v.IsNil() {
		return &SignatureError{Fixture: f.Name(), Expected: expected, Actual: fmt.Sprintf("%T", f.Fn)}
	}

	t := v.Type()
	var conforms bool
	switch f.Kind {
	case KindContract:
		conforms = acceptsOnly(t, builderType) && returnsDocument(t)
	case KindDefaultRequest:
		conforms = acceptsOnly(t, requestDefaultsType) && t.NumOut() == 0
	case KindDefaultResponse:
		conforms = acceptsOnly(t, responseDefaultsType) && t.NumOut() == 0
	}

	if !conforms {
		return &SignatureError{Fixture: f.Name(), Expected: expected, Actual: t.String()}
	}
	return nil
}

func acceptsOnly(t, argument reflect.Type) bool {
	return t.NumIn() == 1 && !t.IsVariadic() && argument.AssignableTo(t.In(0))
}

func returnsDocument(t reflect.Type) bool {
	switch t.NumOut() {
	case 1:
		return t.Out(0).Implements(documentType)
	case 2:
		return t.Out(0).Implements(documentType) && t.Out(1) == errorType
	}
	return false
}

// invokeContract calls a validated contract fixture. A panicking fixture is
// reported as an error.
func invokeContract(f Fixture, builder *contract.Builder) (doc contract.Document, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = errors.Errorf("failed to invoke pact fixture %s: %v", f.Name(), p)
		}
	}()

	out := reflect.ValueOf(f.Fn).Call([]reflect.Value{reflect.ValueOf(builder)})
	if len(out) == 2 && !out[1].IsNil() {
		return nil, errors.Wrapf(out[1].Interface().(error), "failed to invoke pact fixture %s", f.Name())
	}

	result := out[0]
	if isNil(result) {
		return nil, errors.Errorf("pact fixture %s returned no contract", f.Name())
	}
	return result.Interface().(contract.Document), nil
}

func invokeDefaults(f Fixture, argument interface{}) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = errors.Errorf("failed to invoke %s fixture %s: %v", f.Kind, f.Name(), p)
		}
	}()

	reflect.ValueOf(f.Fn).Call([]reflect.Value{reflect.ValueOf(argument)})
	return nil
}

func isNil(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return v.IsNil()
	}
	return false
}
