package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"bff-gateway/internal/model"
)

const userAgent = "bff-gateway/1.0"

// Upstream header names.
const (
	headerAPIKey  = "x-api-key"
	headerSession = "sessionid"
)

// forwardedHeaders are the only caller headers copied onto the upstream call.
var forwardedHeaders = []string{
	"Accept-Language",
	"X-Request-Id",
}

// Upstream executes a built request against the private REST API. It returns
// a *model.UpstreamError for transport failures and non-2xx responses.
type Upstream interface {
	Do(ctx context.Context, req *model.UpstreamRequest) (*model.UpstreamResult, error)
}

// buildUpstreamRequest turns validated inputs into the outbound call.
func buildUpstreamRequest(ep *Endpoint, cfg model.Configuration, in inputs, session string, inbound http.Header) (*model.UpstreamRequest, error) {
	path := ep.UpstreamPath
	if ep.Session != SessionNone {
		path = strings.ReplaceAll(path, "{session}", url.PathEscape(session))
	}
	for name, value := range in {
		path = strings.ReplaceAll(path, "{"+name+"}", url.PathEscape(fieldString(value)))
	}

	req := &model.UpstreamRequest{
		Method: ep.UpstreamMethod,
		URL:    cfg.BaseURL + path,
		Header: map[string]string{
			headerAPIKey: cfg.APIKey,
			"Accept":     "application/json",
			"User-Agent": userAgent,
		},
	}
	for _, key := range forwardedHeaders {
		if v := inbound.Get(key); v != "" {
			req.Header[key] = v
		}
	}
	if ep.Session != SessionNone {
		req.Header[headerSession] = session
	}

	if len(ep.UpstreamQuery) > 0 {
		req.Query = make(map[string]string, len(ep.UpstreamQuery))
		for _, name := range ep.UpstreamQuery {
			req.Query[name] = fieldString(in[name])
		}
	}

	if len(ep.UpstreamBody) > 0 {
		payload := make(map[string]any, len(ep.UpstreamBody))
		for _, name := range ep.UpstreamBody {
			payload[name] = in[name]
		}
		body, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode upstream body: %w", err)
		}
		req.Body = body
		req.Header["Content-Type"] = "application/json"
	}

	return req, nil
}

// fieldString renders a field value for use in a URL.
func fieldString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case json.Number:
		return s.String()
	default:
		return fmt.Sprint(s)
	}
}
