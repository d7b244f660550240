package workflow

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"threadterm/internal/backend"
	"threadterm/internal/model"
)

// Describe turns an error from any layer into a one-line message for the
// user. Request ids are kept so a report can be matched to server logs.
func Describe(err error) string {
	if err == nil {
		return ""
	}

	var transport *backend.TransportError
	var remote *backend.RemoteError
	switch {
	case errors.Is(err, context.Canceled):
		return "Cancelled."
	case errors.Is(err, context.DeadlineExceeded):
		return "The backend took too long to answer."
	case errors.As(err, &transport):
		return fmt.Sprintf("Cannot reach the backend (request %s): %v", transport.RequestID, transport.Err)
	case errors.As(err, &remote):
		if detail := remote.Detail(); detail != "" {
			return fmt.Sprintf("The backend refused the request (%d, request %s): %s", remote.Status, remote.RequestID, detail)
		}
		return fmt.Sprintf("The backend refused the request (%d, request %s).", remote.Status, remote.RequestID)
	case errors.Is(err, model.ErrMalformedPayload):
		return "The backend sent something unexpected: " + err.Error()
	case errors.Is(err, model.ErrCallerContract):
		return "Not possible right now: " + err.Error()
	}
	return err.Error()
}
