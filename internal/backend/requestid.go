package backend

import "github.com/google/uuid"

// RequestID correlates one request with its response in logs and errors.
// It is a random (v4) UUID drawn from crypto/rand, so ids are never reused
// within a process in practice.
type RequestID string

func NewRequestID() RequestID {
	return RequestID(uuid.NewString())
}

// HeaderRequestID carries the RequestID to the server.
const HeaderRequestID = "X-Request-ID"
