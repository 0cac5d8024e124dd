package generate

import (
	"errors"
	"fmt"
)

// Model-quality failures: the call transport worked but the model produced
// something unusable. These are never retried as network errors; at most
// one extra same-prompt attempt is made.

type MalformedResponseError struct {
	Reason string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed model response: %s", e.Reason)
}

type JSONParseError struct {
	Err error
}

func (e *JSONParseError) Error() string {
	return fmt.Sprintf("model response is not valid JSON: %v", e.Err)
}

func (e *JSONParseError) Unwrap() error { return e.Err }

type MissingSectionError struct {
	Section string
}

func (e *MissingSectionError) Error() string {
	return fmt.Sprintf("model response missing required section %q", e.Section)
}

// IsModelQuality reports whether an error is a model-quality failure
// rather than a transport failure.
func IsModelQuality(err error) bool {
	var malformed *MalformedResponseError
	var parse *JSONParseError
	var missing *MissingSectionError
	return errors.As(err, &malformed) || errors.As(err, &parse) || errors.As(err, &missing)
}
