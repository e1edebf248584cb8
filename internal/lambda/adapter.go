// Package lambda adapts API Gateway proxy events to the gateway pipeline.
package lambda

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/aws/aws-lambda-go/events"

	"bff-gateway/internal/config"
	"bff-gateway/internal/model"
	"bff-gateway/internal/service"
)

const notFoundBody = `{"error":"Not found"}`

// Adapter serves buffered invocations: the whole event arrives at once and
// the whole response is returned as a value.
type Adapter struct {
	pipeline *service.Pipeline
	router   *service.Router
	env      config.Env
	fixed    *service.Endpoint
	logger   *slog.Logger
}

// NewAdapter creates an Adapter. When endpoint is non-empty every event is
// served by that endpoint regardless of its path; otherwise the endpoint is
// picked from the request path.
func NewAdapter(p *service.Pipeline, router *service.Router, env config.Env, endpoint string, logger *slog.Logger) (*Adapter, error) {
	a := &Adapter{
		pipeline: p,
		router:   router,
		env:      env,
		logger:   logger.With("component", "lambda_adapter"),
	}
	if endpoint != "" {
		ep, ok := router.Lookup(endpoint)
		if !ok {
			return nil, fmt.Errorf("lambda: unknown endpoint %q", endpoint)
		}
		a.fixed = ep
	}
	return a, nil
}

// Handle converts one API Gateway event, runs the pipeline and converts the
// result back. The returned error is always nil; failures become JSON responses.
func (a *Adapter) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	ep, params, ok := a.route(event)
	if !ok {
		a.logger.Debug("no endpoint for path", "path", event.Path, "request_id", event.RequestContext.RequestID)
		headers := a.pipeline.CORS().BaseHeaders()
		headers["Content-Type"] = "application/json"
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusNotFound,
			Headers:    headers,
			Body:       notFoundBody,
		}, nil
	}

	body, err := decodeBody(event)
	if err != nil {
		// The raw text reaches the pipeline, which reports it as unparseable.
		a.logger.Warn("decoding event body", "err", err, "endpoint", ep.Name)
		body = []byte(event.Body)
	}

	req := &model.Request{
		Method:     event.HTTPMethod,
		Path:       event.Path,
		Header:     mergeHeaders(event.Headers, event.MultiValueHeaders),
		Query:      mergeQuery(event.QueryStringParameters, event.MultiValueQueryStringParameters),
		PathParams: params,
		Body:       body,
	}

	resp := a.pipeline.Handle(ctx, ep, config.ResolveUpstream(a.env), req)
	return events.APIGatewayProxyResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       resp.Body,
	}, nil
}

// route picks the endpoint and its path parameters. Parameters supplied by
// API Gateway take precedence over those parsed from the path.
func (a *Adapter) route(event events.APIGatewayProxyRequest) (*service.Endpoint, map[string]string, bool) {
	ep, params, ok := a.router.Match(event.Path)
	if a.fixed != nil {
		if !ok || ep != a.fixed {
			params = map[string]string{}
		}
		ep, ok = a.fixed, true
	}
	if !ok {
		return nil, nil, false
	}

	for _, name := range ep.PathFields() {
		if v := event.PathParameters[name]; v != "" {
			params[name] = v
		}
	}
	return ep, params, true
}

func decodeBody(event events.APIGatewayProxyRequest) ([]byte, error) {
	if !event.IsBase64Encoded {
		return []byte(event.Body), nil
	}
	b, err := base64.StdEncoding.DecodeString(event.Body)
	if err != nil {
		return nil, fmt.Errorf("decode base64 body: %w", err)
	}
	return b, nil
}

// mergeHeaders prefers multi-value entries and fills in single-value ones
// that are not already present.
func mergeHeaders(single map[string]string, multi map[string][]string) http.Header {
	h := make(http.Header, len(single)+len(multi))
	for k, vs := range multi {
		for _, v := range vs {
			h.Add(k, v)
		}
	}
	for k, v := range single {
		if len(h.Values(k)) == 0 {
			h.Set(k, v)
		}
	}
	return h
}

func mergeQuery(single map[string]string, multi map[string][]string) url.Values {
	q := make(url.Values, len(single)+len(multi))
	for k, vs := range multi {
		q[k] = append(q[k], vs...)
	}
	for k, v := range single {
		if _, ok := q[k]; !ok {
			q.Set(k, v)
		}
	}
	return q
}
