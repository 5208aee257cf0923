package pagination

import "fmt"

// ShapeReason says how a response failed to match the expected shape.
type ShapeReason string

const (
	ReasonInvalidJSON ShapeReason = "invalid_json"
	ReasonNotObject   ShapeReason = "not_object"
	ReasonMissingKey  ShapeReason = "missing_key"
	ReasonNotList     ShapeReason = "not_list"
)

// ShapeError is returned when a list response is not a JSON object holding
// a list of objects at the expected key.
type ShapeError struct {
	URL    string
	Key    string
	Reason ShapeReason
	Err    error
}

// Error implements the error interface.
func (e *ShapeError) Error() string {
	var msg string
	switch e.Reason {
	case ReasonInvalidJSON:
		msg = "Intercom did not return valid JSON"
	case ReasonNotObject:
		msg = "Intercom did not return a JSON Object"
	case ReasonMissingKey:
		msg = fmt.Sprintf("Intercom did not return %q data", e.Key)
	case ReasonNotList:
		msg = fmt.Sprintf("Intercom returned %q data that is not a list of objects", e.Key)
	default:
		msg = "Intercom returned an unexpected response"
	}

	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *ShapeError) Unwrap() error {
	return e.Err
}
