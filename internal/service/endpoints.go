package service

import (
	"net/http"
	"strings"
)

// SessionSource says where an endpoint expects the caller's session token.
type SessionSource int

const (
	// SessionNone means the endpoint needs no session, or carries it as a body field.
	SessionNone SessionSource = iota
	// SessionCookie reads the sessionID entry of the cookie header.
	SessionCookie
	// SessionHeader reads the sessionid request header.
	SessionHeader
)

// FieldSource says where a required input field is read from.
type FieldSource int

const (
	FromPath FieldSource = iota
	FromQuery
	FromBody
)

// ErrorDetail selects what a failed upstream call reports back.
type ErrorDetail int

const (
	// ErrorBody reports the whole upstream error body.
	ErrorBody ErrorDetail = iota
	// ErrorMessage reports the upstream body's "message" field when present.
	ErrorMessage
)

// Field is a required input of an endpoint.
type Field struct {
	Name   string
	Source FieldSource
}

// Endpoint is the static description of one gateway route. Values are
// built once at startup and never mutated afterwards.
type Endpoint struct {
	Name    string
	Method  string
	Session SessionSource

	// Fields are checked in order; MissingMessage is returned for the first one absent.
	Fields         []Field
	MissingMessage string

	// UpstreamPath may reference {session} and any field name as {name}.
	UpstreamMethod string
	UpstreamPath   string
	UpstreamQuery  []string
	UpstreamBody   []string

	// NormalizeStatus reports every 2xx upstream answer as 200.
	NormalizeStatus bool
	ErrorDetail     ErrorDetail
}

// PathFields returns the names of the fields read from path segments, in order.
func (e *Endpoint) PathFields() []string {
	var names []string
	for _, f := range e.Fields {
		if f.Source == FromPath {
			names = append(names, f.Name)
		}
	}
	return names
}

// hasBodyFields reports whether any required field comes from the JSON body.
func (e *Endpoint) hasBodyFields() bool {
	for _, f := range e.Fields {
		if f.Source == FromBody {
			return true
		}
	}
	return false
}

// BasePath is the gateway route without path parameters.
func (e *Endpoint) BasePath() string {
	return "/" + e.Name
}

// Route is the echo route pattern, with path fields as :name segments.
func (e *Endpoint) Route() string {
	var b strings.Builder
	b.WriteString(e.BasePath())
	for _, name := range e.PathFields() {
		b.WriteString("/:")
		b.WriteString(name)
	}
	return b.String()
}

func (e *Endpoint) unauthorizedMessage() string {
	if e.Session == SessionHeader {
		return "Unauthorized: Missing sessionid header"
	}
	return "Unauthorized: No session ID found"
}

// Endpoints returns the gateway's endpoint table.
func Endpoints() []*Endpoint {
	return []*Endpoint{
		{
			Name:           "getUserTeams",
			Method:         http.MethodGet,
			Session:        SessionCookie,
			UpstreamMethod: http.MethodGet,
			UpstreamPath:   "/teams/session/{session}",
		},
		{
			Name:            "getTeams",
			Method:          http.MethodGet,
			Session:         SessionHeader,
			UpstreamMethod:  http.MethodGet,
			UpstreamPath:    "/rest-api/teams/session/{session}",
			NormalizeStatus: true,
		},
		{
			Name:            "getAllGames",
			Method:          http.MethodGet,
			UpstreamMethod:  http.MethodGet,
			UpstreamPath:    "/rest-api/games",
			NormalizeStatus: true,
		},
		{
			Name:            "getUserGames",
			Method:          http.MethodGet,
			Fields:          []Field{{Name: "team_name", Source: FromQuery}},
			MissingMessage:  "Missing team_name parameter",
			UpstreamMethod:  http.MethodGet,
			UpstreamPath:    "/rest-api/games/team/{team_name}",
			NormalizeStatus: true,
		},
		{
			Name:   "getUnityPackages",
			Method: http.MethodPost,
			Fields: []Field{
				{Name: "team_id", Source: FromBody},
				{Name: "session_id", Source: FromBody},
			},
			MissingMessage: "team_id and session_id required",
			UpstreamMethod: http.MethodGet,
			UpstreamPath:   "/rest-api/unityPackages",
			UpstreamQuery:  []string{"team_id", "session_id"},
			ErrorDetail:    ErrorMessage,
		},
		{
			Name:   "deleteUnityPackage",
			Method: http.MethodDelete,
			Fields: []Field{
				{Name: "package_id", Source: FromPath},
				{Name: "team_id", Source: FromBody},
				{Name: "session_id", Source: FromBody},
			},
			MissingMessage: "package_id, team_id and session_id required",
			UpstreamMethod: http.MethodDelete,
			UpstreamPath:   "/rest-api/unityPackages/{package_id}",
			UpstreamBody:   []string{"team_id", "session_id"},
			ErrorDetail:    ErrorMessage,
		},
	}
}

// Router finds endpoints by name or by request path.
type Router struct {
	byName map[string]*Endpoint
	order  []*Endpoint
}

// NewRouter indexes the given endpoints by name.
func NewRouter(endpoints []*Endpoint) *Router {
	r := &Router{byName: make(map[string]*Endpoint, len(endpoints))}
	for _, ep := range endpoints {
		r.byName[ep.Name] = ep
		r.order = append(r.order, ep)
	}
	return r
}

// Endpoints returns all endpoints in registration order.
func (r *Router) Endpoints() []*Endpoint {
	return r.order
}

// Lookup returns the endpoint with the given name.
func (r *Router) Lookup(name string) (*Endpoint, bool) {
	ep, ok := r.byName[name]
	return ep, ok
}

// Match resolves a request path such as "/.netlify/functions/deleteUnityPackage/42"
// or "/prod/getAllGames". The first segment naming an endpoint selects it; the
// segments after it fill the endpoint's path fields in order.
func (r *Router) Match(path string) (*Endpoint, map[string]string, bool) {
	segments := strings.FieldsFunc(path, func(c rune) bool { return c == '/' })
	for i, seg := range segments {
		ep, ok := r.byName[seg]
		if !ok {
			continue
		}
		rest := segments[i+1:]
		names := ep.PathFields()
		if len(rest) > len(names) {
			return nil, nil, false
		}
		params := make(map[string]string, len(rest))
		for j, v := range rest {
			params[names[j]] = v
		}
		return ep, params, true
	}
	return nil, nil, false
}
