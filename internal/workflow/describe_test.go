package workflow

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"threadterm/internal/backend"
	"threadterm/internal/model"
)

func TestDescribe(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{
			name: "transport",
			err:  &backend.TransportError{RequestID: "abc", Err: errors.New("connection refused")},
			want: "Cannot reach the backend (request abc): connection refused",
		},
		{
			name: "remote with detail",
			err:  errors.Wrap(&backend.RemoteError{RequestID: "abc", Status: 404, Body: []byte(`{"detail":"Thread not found"}`)}, "list messages"),
			want: "The backend refused the request (404, request abc): Thread not found",
		},
		{
			name: "remote without body",
			err:  &backend.RemoteError{RequestID: "abc", Status: 500},
			want: "The backend refused the request (500, request abc).",
		},
		{
			name: "cancelled",
			err:  &backend.TransportError{RequestID: "abc", Err: context.Canceled},
			want: "Cancelled.",
		},
		{
			name: "malformed",
			err:  errors.Wrap(model.ErrMalformedPayload, "message 2"),
			want: "The backend sent something unexpected: message 2: malformed payload",
		},
		{
			name: "caller contract",
			err:  errors.Wrap(model.ErrCallerContract, "archive: no messages selected"),
			want: "Not possible right now: archive: no messages selected: caller contract violation",
		},
		{name: "other", err: errors.New("whatever"), want: "whatever"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Describe(tt.err))
		})
	}
}
