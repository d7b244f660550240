package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"threadterm/internal/model"
)

func newTestConnector(t *testing.T, base string) *Connector {
	t.Helper()
	c, err := NewConnector(Config{BaseURL: base, Logger: zerolog.Nop()})
	require.NoError(t, err)
	return c
}

func TestReadSendsQueryAndRequestID(t *testing.T) {
	var gotPath, gotQuery, gotID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotID = r.Header.Get(HeaderRequestID)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"ok":true}`)
	}))
	defer srv.Close()

	c := newTestConnector(t, srv.URL+"/api/")
	q := url.Values{}
	q.Add("messages_orders", "1")
	q.Add("messages_orders", "2")

	body, err := c.Read(context.Background(), "/threads/t1/archives/suggest", q)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(body))
	assert.Equal(t, "/api/threads/t1/archives/suggest", gotPath)
	assert.Equal(t, "messages_orders=1&messages_orders=2", gotQuery)
	assert.Len(t, gotID, 36)
}

func TestWritePostsJSON(t *testing.T) {
	var gotMethod, gotType string
	var gotBody []map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotType = r.Header.Get("Content-Type")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = io.WriteString(w, `[]`)
	}))
	defer srv.Close()

	c := newTestConnector(t, srv.URL)
	_, err := c.Write(context.Background(), "threads/t1/messages", []map[string]any{{"order": 1}})
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "application/json", gotType)
	require.Len(t, gotBody, 1)
	assert.EqualValues(t, 1, gotBody[0]["order"])
}

func TestRequestIDsAreFresh(t *testing.T) {
	seen := map[string]bool{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen[r.Header.Get(HeaderRequestID)] = true
		_, _ = io.WriteString(w, `{}`)
	}))
	defer srv.Close()

	c := newTestConnector(t, srv.URL)
	for i := 0; i < 20; i++ {
		_, err := c.Read(context.Background(), "/x", nil)
		require.NoError(t, err)
	}
	assert.Len(t, seen, 20)
}

func TestRemoteError(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"detail":"There's no t9 thread"}`)
	}))
	defer srv.Close()

	c := newTestConnector(t, srv.URL)
	_, err := c.Read(context.Background(), "/threads/t9/messages", nil)
	require.Error(t, err)

	var remote *RemoteError
	require.True(t, errors.As(err, &remote))
	assert.Equal(t, http.StatusNotFound, remote.Status)
	assert.Equal(t, "There's no t9 thread", remote.Detail())
	assert.NotEmpty(t, remote.RequestID)
	assert.Equal(t, 1, calls, "failed requests must not be retried")
}

func TestRemoteErrorPlainBody(t *testing.T) {
	e := &RemoteError{RequestID: "r", Status: 500, Body: []byte(" boom \n")}
	assert.Equal(t, "boom", e.Detail())
	assert.Contains(t, e.Error(), "status 500: boom")
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := srv.URL
	srv.Close()

	c := newTestConnector(t, base)
	_, err := c.Read(context.Background(), "/threads/t1/messages", nil)
	require.Error(t, err)

	var transport *TransportError
	require.True(t, errors.As(err, &transport))
	assert.Equal(t, http.MethodGet, transport.Method)
	assert.NotEmpty(t, transport.RequestID)
}

func TestTimeoutIsTransportError(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	c, err := NewConnector(Config{BaseURL: srv.URL, Timeout: 50 * time.Millisecond, Logger: zerolog.Nop()})
	require.NoError(t, err)

	_, err = c.Read(context.Background(), "/slow", nil)
	var transport *TransportError
	assert.True(t, errors.As(err, &transport))
}

func TestNonJSONResponseIsMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `<html>`)
	}))
	defer srv.Close()

	c := newTestConnector(t, srv.URL)
	_, err := c.Read(context.Background(), "/x", nil)
	assert.True(t, errors.Is(err, model.ErrMalformedPayload))
}

func TestNewConnectorValidatesBaseURL(t *testing.T) {
	_, err := NewConnector(Config{})
	assert.Error(t, err)

	_, err = NewConnector(Config{BaseURL: "ftp://example.com"})
	assert.Error(t, err)

	c, err := NewConnector(Config{BaseURL: "http://127.0.0.1:8000/api/"})
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:8000/api", c.BaseURL())
}
