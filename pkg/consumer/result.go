package consumer

import (
	"fmt"
	"strings"

	"github.com/form3tech-oss/pact-consumer/pkg/mockserver"
)

// VerificationResult is the outcome of one orchestrated run: one of Ok,
// PactMismatch, ExceptionOccurred or UserCodeFailed.
type VerificationResult interface {
	verificationResult()
}

// Ok means the body succeeded and the mock service saw exactly the expected requests.
type Ok struct{}

// PactMismatch means the mock service did not see exactly the expected requests.
type PactMismatch struct {
	Mismatches []mockserver.Mismatch
}

// ExceptionOccurred is an infrastructure failure unrelated to the contract.
type ExceptionOccurred struct {
	Err error
}

// UserCodeFailed means the test body returned an error or panicked.
type UserCodeFailed struct {
	Err error
}

func (Ok) verificationResult()                {}
func (PactMismatch) verificationResult()      {}
func (ExceptionOccurred) verificationResult() {}
func (UserCodeFailed) verificationResult()    {}

func (r PactMismatch) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "the following %d mismatches occurred:", len(r.Mismatches))
	for _, m := range r.Mismatches {
		b.WriteString("\n  - ")
		b.WriteString(m.Describe())
	}
	return b.String()
}

// AssertionError is the test failure raised for any result other than Ok.
type AssertionError struct {
	Result  VerificationResult
	Message string
}

func (e *AssertionError) Error() string {
	return e.Message
}

func (e *AssertionError) Unwrap() error {
	switch r := e.Result.(type) {
	case ExceptionOccurred:
		return r.Err
	case UserCodeFailed:
		return r.Err
	}
	return nil
}

// ValidateResult turns a result into a test failure. Ok returns nil.
func ValidateResult(result VerificationResult) error {
	switch r := result.(type) {
	case Ok:
		return nil
	case PactMismatch:
		return &AssertionError{Result: r, Message: "pact verification failed, " + r.String()}
	case ExceptionOccurred:
		return &AssertionError{Result: r, Message: fmt.Sprintf("pact verification failed with an error: %v", r.Err)}
	case UserCodeFailed:
		return &AssertionError{Result: r, Message: fmt.Sprintf("test failed: %v", r.Err)}
	case nil:
		return &AssertionError{Message: "pact verification produced no result"}
	}
	return &AssertionError{Result: result, Message: fmt.Sprintf("unknown verification result %T", result)}
}
