// Package service implements the adapter-agnostic gateway pipeline: method
// guard, session resolution, input validation, the upstream call and
// response normalization.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"bff-gateway/internal/config"
	"bff-gateway/internal/model"
)

// Pipeline runs one gateway invocation end to end. It holds no per-request
// state and is safe for concurrent use.
type Pipeline struct {
	upstream Upstream
	observer Observer
	cors     CORS
	validate *validator.Validate
}

// NewPipeline creates a Pipeline. A nil observer discards events.
func NewPipeline(up Upstream, cors CORS, obs Observer) *Pipeline {
	if obs == nil {
		obs = NopObserver{}
	}
	return &Pipeline{
		upstream: up,
		observer: obs,
		cors:     cors,
		validate: validator.New(),
	}
}

// CORS returns the cross-origin settings applied to every pipeline response.
func (p *Pipeline) CORS() CORS {
	return p.cors
}

// Handle processes req for ep using the configuration resolved by the
// calling adapter. It always returns a response; panics are recovered into
// a 500 envelope.
func (p *Pipeline) Handle(ctx context.Context, ep *Endpoint, cfg model.Configuration, req *model.Request) (resp *model.Response) {
	defer func() {
		if r := recover(); r != nil {
			p.emit(ctx, ep, slog.LevelError, EventPipelinePanic, slog.String("panic", fmt.Sprint(r)))
			resp = p.finish(ep, errorResponse(http.StatusInternalServerError, "internal gateway error"))
		}
	}()
	return p.finish(ep, p.run(ctx, ep, cfg, req))
}

func (p *Pipeline) run(ctx context.Context, ep *Endpoint, cfg model.Configuration, req *model.Request) *model.Response {
	switch checkMethod(ep, req.Method) {
	case guardPreflight:
		p.emit(ctx, ep, slog.LevelDebug, EventPreflight)
		return &model.Response{StatusCode: http.StatusOK}
	case guardRejected:
		p.emit(ctx, ep, slog.LevelWarn, EventMethodRejected, slog.String("method", req.Method))
		return errorResponse(http.StatusMethodNotAllowed, "Method not allowed")
	}

	var session string
	if ep.Session != SessionNone {
		s, ok := ResolveSession(ep.Session, req)
		if !ok {
			p.emit(ctx, ep, slog.LevelInfo, EventAuthRejected)
			return errorResponse(http.StatusUnauthorized, ep.unauthorizedMessage())
		}
		session = s
	}

	in, missing, err := extractInputs(p.validate, ep, req)
	if err != nil {
		p.emit(ctx, ep, slog.LevelWarn, EventRequestError, slog.String("err", err.Error()))
		return failureResponse(ep, err)
	}
	if missing != "" {
		p.emit(ctx, ep, slog.LevelInfo, EventValidationRejected, slog.String("field", missing))
		return errorResponse(http.StatusBadRequest, ep.MissingMessage)
	}

	if err := config.ValidateUpstream(cfg); err != nil {
		p.emit(ctx, ep, slog.LevelError, EventConfigRejected, slog.String("err", err.Error()))
		return failureResponse(ep, err)
	}

	ureq, err := buildUpstreamRequest(ep, cfg, in, session, req.Header)
	if err != nil {
		return failureResponse(ep, err)
	}

	p.emit(ctx, ep, slog.LevelDebug, EventUpstreamCallStart,
		slog.String("method", ureq.Method),
		slog.String("path", ep.UpstreamPath),
	)

	// The upstream call runs to completion even if the caller goes away.
	res, err := p.upstream.Do(context.WithoutCancel(ctx), ureq)
	if err != nil {
		p.emit(ctx, ep, slog.LevelError, EventUpstreamCallError, slog.String("err", err.Error()))
		return failureResponse(ep, err)
	}

	p.emit(ctx, ep, slog.LevelInfo, EventUpstreamCallResult, slog.Int("status", res.StatusCode))
	return successResponse(ep, res)
}

// finish attaches the headers every gateway response carries.
func (p *Pipeline) finish(ep *Endpoint, resp *model.Response) *model.Response {
	resp.Header = p.cors.headers(ep)
	resp.Header["Content-Type"] = "application/json"
	return resp
}

func (p *Pipeline) emit(ctx context.Context, ep *Endpoint, level slog.Level, name string, attrs ...slog.Attr) {
	p.observer.Observe(ctx, Event{
		Level:    level,
		Name:     name,
		Endpoint: ep.Name,
		Attrs:    attrs,
	})
}
