// Package model defines shared types for the gateway.
package model

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// Request is the runtime-agnostic description of one inbound gateway call.
// Both runtime adapters build one of these before entering the pipeline.
type Request struct {
	Method     string
	Path       string
	Header     http.Header
	Query      url.Values
	PathParams map[string]string
	Body       []byte
}

// Response is the normalized gateway result. Body is JSON text on every
// path except the preflight acknowledgement, where it is empty.
type Response struct {
	StatusCode int
	Header     map[string]string
	Body       string
}

// Configuration holds the upstream settings resolved for a single invocation.
type Configuration struct {
	BaseURL string
	APIKey  string
}

// UpstreamRequest is the fully built outbound call to the private REST API.
type UpstreamRequest struct {
	Method string
	URL    string
	Query  map[string]string
	Header map[string]string
	Body   json.RawMessage
}

// UpstreamResult captures a 2xx upstream response verbatim.
type UpstreamResult struct {
	StatusCode int
	Body       []byte
}

// UpstreamError reports a failed upstream call. StatusCode and Body are set
// when the upstream answered with a non-2xx status; both are zero for
// transport failures, in which case Err holds the cause.
type UpstreamError struct {
	StatusCode int
	Body       []byte
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("upstream responded with status %d", e.StatusCode)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// HasBody reports whether the upstream supplied a response payload.
func (e *UpstreamError) HasBody() bool {
	return len(e.Body) > 0
}
