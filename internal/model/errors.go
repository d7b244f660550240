package model

import "github.com/pkg/errors"

// ErrMalformedPayload marks a payload that does not match the message schema.
// It is never coerced: callers get the wrapped error and the operation fails.
var ErrMalformedPayload = errors.New("malformed payload")

// ErrCallerContract marks a request the caller should never have made, such as
// an empty selection or a batch that spans threads.
var ErrCallerContract = errors.New("caller contract violation")
