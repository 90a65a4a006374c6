package homework

import (
	"fmt"
	"strconv"
)

// RemoteStatusError is returned when the API answers with anything but 200.
type RemoteStatusError struct {
	Code int
	// Message is the API's own diagnostic ("message" field), if it sent one.
	Message string
}

func (e *RemoteStatusError) Error() string {
	s := "api status code is not 200: " + strconv.Itoa(e.Code)
	if e.Message != "" {
		s += " (" + e.Message + ")"
	}
	return s
}

// ShapeError reports a response body that does not look like a statuses payload.
type ShapeError struct {
	Reason string
}

func (e *ShapeError) Error() string { return "malformed api response: " + e.Reason }

// UnknownStatusError is returned by Translate for a status code outside the verdict table.
type UnknownStatusError struct {
	Status string
}

func (e *UnknownStatusError) Error() string {
	return fmt.Sprintf("unknown homework status %q", e.Status)
}
