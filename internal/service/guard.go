package service

import (
	"net/http"
)

type guardResult int

const (
	guardProceed guardResult = iota
	guardPreflight
	guardRejected
)

// checkMethod decides the method-guard outcome from the request method alone.
func checkMethod(ep *Endpoint, method string) guardResult {
	switch {
	case method == http.MethodOptions:
		return guardPreflight
	case method != ep.Method:
		return guardRejected
	default:
		return guardProceed
	}
}

// CORS holds the cross-origin headers attached to every response.
type CORS struct {
	AllowOrigin  string
	AllowHeaders string
}

// BaseHeaders returns the CORS headers that do not depend on an endpoint.
// Responses produced outside the pipeline (unknown routes, framework errors)
// carry these.
func (c CORS) BaseHeaders() map[string]string {
	origin := c.AllowOrigin
	if origin == "" {
		origin = "*"
	}
	allowHeaders := c.AllowHeaders
	if allowHeaders == "" {
		allowHeaders = "Content-Type, sessionid"
	}
	return map[string]string{
		"Access-Control-Allow-Origin":  origin,
		"Access-Control-Allow-Headers": allowHeaders,
	}
}

func (c CORS) headers(ep *Endpoint) map[string]string {
	h := c.BaseHeaders()
	h["Access-Control-Allow-Methods"] = ep.Method + ", " + http.MethodOptions
	return h
}
