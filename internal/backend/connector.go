package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"threadterm/internal/model"
)

type Config struct {
	// BaseURL is prepended to every route, e.g. "http://127.0.0.1:8000/api".
	BaseURL string
	// Timeout bounds a whole request. Zero disables it.
	Timeout time.Duration
	// HTTPClient overrides the default client; Timeout is ignored when set.
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// Connector issues read and write requests against the dialog backend.
// Each call is a single attempt: failures are returned, never retried.
type Connector struct {
	baseURL *url.URL
	client  *http.Client
	logger  zerolog.Logger
}

func NewConnector(cfg Config) (*Connector, error) {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		return nil, errors.New("backend: base url is required")
	}

	u, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return nil, errors.Wrapf(err, "backend: parse base url %q", base)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.Errorf("backend: unsupported scheme %q in %q", u.Scheme, base)
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	return &Connector{
		baseURL: u,
		client:  client,
		logger:  cfg.Logger.With().Str("component", "backend").Logger(),
	}, nil
}

func (c *Connector) BaseURL() string { return c.baseURL.String() }

// Read issues a GET for route with the given query and returns the raw JSON body.
func (c *Connector) Read(ctx context.Context, route string, query url.Values) (json.RawMessage, error) {
	requestID := NewRequestID()
	target := c.resolve(route, query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "backend: build request %s", requestID)
	}

	c.logger.Debug().
		Str("request_id", string(requestID)).
		Str("method", http.MethodGet).
		Str("url", target).
		Msg("request to server")

	return c.do(req, requestID)
}

// Write POSTs body encoded as JSON to route and returns the raw JSON body.
func (c *Connector) Write(ctx context.Context, route string, body any) (json.RawMessage, error) {
	requestID := NewRequestID()
	target := c.resolve(route, nil)

	data, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Wrapf(err, "backend: encode body for %s", route)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrapf(err, "backend: build request %s", requestID)
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug().
		Str("request_id", string(requestID)).
		Str("method", http.MethodPost).
		Str("url", target).
		RawJSON("body", data).
		Msg("request to server")

	return c.do(req, requestID)
}

func (c *Connector) do(req *http.Request, requestID RequestID) (json.RawMessage, error) {
	req.Header.Set(HeaderRequestID, string(requestID))
	req.Header.Set("Accept", "application/json")

	logger := c.logger.With().Str("request_id", string(requestID)).Logger()

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		logger.Error().Err(err).Str("url", req.URL.String()).Msg("request failed")
		return nil, &TransportError{RequestID: requestID, Method: req.Method, URL: req.URL.String(), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		logger.Error().Err(err).Int("status", resp.StatusCode).Msg("read response body failed")
		return nil, &TransportError{RequestID: requestID, Method: req.Method, URL: req.URL.String(), Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logger.Error().
			Int("status", resp.StatusCode).
			Bytes("body", body).
			Dur("duration", time.Since(start)).
			Msg("server returned error")
		return nil, &RemoteError{RequestID: requestID, Status: resp.StatusCode, Body: body}
	}

	if !json.Valid(body) {
		logger.Error().Int("status", resp.StatusCode).Msg("response is not json")
		return nil, errors.Wrapf(model.ErrMalformedPayload, "response %s is not valid json", requestID)
	}

	logger.Debug().
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		RawJSON("body", body).
		Msg("response from server")

	return json.RawMessage(body), nil
}

// resolve joins route onto the base url. route is expected to be escaped
// already (see dialog's path helpers).
func (c *Connector) resolve(route string, query url.Values) string {
	target := c.baseURL.String() + "/" + strings.TrimLeft(route, "/")
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	return target
}

func detailFromBody(body []byte) string {
	var doc struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &doc); err != nil || len(doc.Detail) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(doc.Detail, &s); err == nil {
		return s
	}
	return string(doc.Detail)
}
