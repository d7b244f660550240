package backend

import (
	"fmt"
	"strings"
)

// TransportError is a failure below HTTP: the request never got a complete
// response (refused, timed out, cancelled, body cut short).
type TransportError struct {
	RequestID RequestID
	Method    string
	URL       string
	Err       error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error (request_id=%s): %s %s: %v", e.RequestID, e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// RemoteError is a response with a non-success status. Body holds whatever
// the server sent, usually a JSON error document.
type RemoteError struct {
	RequestID RequestID
	Status    int
	Body      []byte
}

func (e *RemoteError) Error() string {
	if detail := e.Detail(); detail != "" {
		return fmt.Sprintf("remote error (request_id=%s): status %d: %s", e.RequestID, e.Status, detail)
	}
	return fmt.Sprintf("remote error (request_id=%s): status %d", e.RequestID, e.Status)
}

// Detail extracts the server-supplied explanation. FastAPI-style
// {"detail": "..."} bodies yield the detail string; anything else is
// returned trimmed.
func (e *RemoteError) Detail() string {
	if detail := detailFromBody(e.Body); detail != "" {
		return detail
	}
	return strings.TrimSpace(string(e.Body))
}
