package client

import "fmt"

// TransportError means the request never produced a usable reply: the
// connection failed, the context ended, or the body was not an envelope.
type TransportError struct {
	Method string
	URL    string
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s %s: status %d: %v", e.Method, e.URL, e.Status, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// APIError is a reply whose envelope code is not zero.
type APIError struct {
	Code    int
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("report api error (code %d)", e.Code)
	}
	return fmt.Sprintf("report api error (code %d): %s", e.Code, e.Message)
}

// UserMessage is the server text, or a generic line when the server sent none.
func (e *APIError) UserMessage() string {
	if e.Message != "" {
		return e.Message
	}
	return "The report service could not complete the request"
}
