package gateway

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/syllabus/core"
)

var (
	// ErrSubjectHasSections is returned by DeleteSubject when the pre-check finds sections.
	ErrSubjectHasSections = errors.New("Cannot delete subject with sections. Delete its sections first.")
	// ErrSectionHasTopics is returned by DeleteSection when the pre-check finds topics.
	ErrSectionHasTopics = errors.New("Cannot delete section with topics. Delete its topics first.")
)

const (
	networkMessage       = "Unable to reach the server. Please check your connection and try again."
	malformedLoadMessage = "Failed to load subjects. Please try again later."
	malformedMessage     = "Unexpected response from the server. Please try again later."

	opFetchSubjects = "fetch subjects"
)

// RequestRejectedError is a non-2xx response.
type RequestRejectedError struct {
	StatusCode int
	Message    string
}

func (err *RequestRejectedError) Error() string {
	return err.Message
}

// NetworkError means no response was received.
type NetworkError struct {
	Op  string
	Err error
}

func (err *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", err.Op, err.Err)
}

func (err *NetworkError) Unwrap() error { return err.Err }

// MalformedResponseError means a 2xx response whose body could not be decoded.
type MalformedResponseError struct {
	Op  string
	Err error
}

func (err *MalformedResponseError) Error() string {
	return fmt.Sprintf("%s: malformed response: %v", err.Op, err.Err)
}

func (err *MalformedResponseError) Unwrap() error { return err.Err }

// rejected builds the error of a non-2xx response from its body.
// The server message is used when present: either a string or a field->message object.
func rejected(status int, body []byte) *RequestRejectedError {
	err := &RequestRejectedError{
		StatusCode: status,
		Message:    fmt.Sprintf("Request failed with status %d", status),
	}

	var payload struct {
		Error json.RawMessage `json:"error"`
	}
	if json.Unmarshal(body, &payload) != nil || len(payload.Error) == 0 {
		return err
	}

	var msg string
	if json.Unmarshal(payload.Error, &msg) == nil {
		if msg != "" {
			err.Message = msg
		}
		return err
	}

	var fields map[string]string
	if json.Unmarshal(payload.Error, &fields) == nil && len(fields) > 0 {
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		msgs := make([]string, 0, len(keys))
		for _, k := range keys {
			msgs = append(msgs, k+": "+fields[k])
		}
		err.Message = strings.Join(msgs, "; ")
	}
	return err
}

// Message returns the text shown to the user for err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	cause := errors.Cause(err)
	switch e := cause.(type) {
	case *core.ValidationError:
		return e.Error()
	case *RequestRejectedError:
		return e.Message
	case *NetworkError:
		return networkMessage
	case *MalformedResponseError:
		if e.Op == opFetchSubjects {
			return malformedLoadMessage
		}
		return malformedMessage
	}
	return cause.Error()
}

func IsRejected(err error) bool {
	_, ok := errors.Cause(err).(*RequestRejectedError)
	return ok
}

func IsNetwork(err error) bool {
	_, ok := errors.Cause(err).(*NetworkError)
	return ok
}

func IsMalformed(err error) bool {
	_, ok := errors.Cause(err).(*MalformedResponseError)
	return ok
}
