package website

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/snapwall/snapwall/src/logging"
	"github.com/snapwall/snapwall/src/perf"
	"github.com/snapwall/snapwall/src/storage"
)

/*
Router dispatches to the first registered route whose method and regexes match
the request. Each regex of a route consumes a prefix of the path, so groups
can be nested (see RouteBuilder.Group). Named subexpressions become path
params. Routes are registered once at startup and never modified afterwards.
*/
type Router struct {
	Routes []Route

	Conn          *pgxpool.Pool
	Storage       storage.Store
	PerfCollector *perf.PerfCollector
}

type Route struct {
	Method  string // empty matches any method
	Regexes []*regexp.Regexp
	Handler Handler
}

type Handler func(c *RequestContext) ResponseData
type Middleware func(h Handler) Handler

func (r *Route) String() string {
	var routeStrings []string
	for _, regex := range r.Regexes {
		routeStrings = append(routeStrings, regex.String())
	}
	return fmt.Sprintf("%s %v", r.Method, routeStrings)
}

// match reports whether the route accepts the given method and path, and
// returns the named path params if so.
func (r *Route) match(method, path string) (map[string]string, bool) {
	if r.Method != "" && r.Method != method {
		return nil, false
	}

	params := map[string]string{}
	rest := normalizePath(path)
	for _, regex := range r.Regexes {
		m := regex.FindStringSubmatch(rest)
		if m == nil {
			return nil, false
		}

		for i, name := range regex.SubexpNames() {
			if name == "" {
				continue
			}
			if _, dup := params[name]; dup {
				logging.Warn().
					Str("route", r.String()).
					Str("paramName", name).
					Msg("duplicate names for path parameters; last one wins")
			}
			params[name] = m[i]
		}

		// A trailing slash is never consumed, so the next regex still sees it.
		rest = normalizePath(rest[len(strings.TrimSuffix(m[0], "/")):])
	}
	return params, true
}

func normalizePath(p string) string {
	p = strings.TrimSuffix(p, "/")
	if p == "" {
		return "/"
	}
	return p
}

func (r *Router) ServeHTTP(rw http.ResponseWriter, req *http.Request) {
	method := req.Method
	if method == http.MethodHead {
		method = http.MethodGet
	}

	for i := range r.Routes {
		route := &r.Routes[i]
		params, ok := route.match(method, req.URL.Path)
		if !ok {
			continue
		}
		doRequest(rw, r.newRequestContext(route, rw, req, params), route.Handler)
		return
	}

	// Only reachable if no catch-all route was registered.
	logging.Error().Str("path", req.URL.Path).Msg("request did not match any route")
	http.NotFound(rw, req)
}

func (r *Router) newRequestContext(route *Route, rw http.ResponseWriter, req *http.Request, params map[string]string) *RequestContext {
	name := route.String()
	logger := logging.GlobalLogger().With().Str("route", name).Logger()
	return &RequestContext{
		Route:      name,
		Logger:     &logger,
		Req:        req,
		Res:        rw,
		PathParams: params,

		Conn:          r.Conn,
		Storage:       r.Storage,
		PerfCollector: r.PerfCollector,

		ctx: logging.AttachLoggerToContext(&logger, req.Context()),
	}
}

/*
RouteBuilder registers routes on a Router with a fixed set of path prefixes and
middlewares. Builders are values: WithMiddleware and Group return new builders
and leave the receiver untouched.
*/
type RouteBuilder struct {
	Router      *Router
	Prefixes    []*regexp.Regexp
	Middlewares []Middleware
}

func (rb *RouteBuilder) Handle(methods []string, regex *regexp.Regexp, h Handler) {
	if !strings.HasPrefix(regex.String(), "^") {
		panic("All routing regexes must begin with '^'")
	}

	for i := len(rb.Middlewares) - 1; i >= 0; i-- {
		h = rb.Middlewares[i](h)
	}
	for _, method := range methods {
		rb.Router.Routes = append(rb.Router.Routes, Route{
			Method:  method,
			Regexes: appendCopy(rb.Prefixes, regex),
			Handler: h,
		})
	}
}

func (rb *RouteBuilder) AnyMethod(regex *regexp.Regexp, h Handler) {
	rb.Handle([]string{""}, regex, h)
}

func (rb *RouteBuilder) GET(regex *regexp.Regexp, h Handler) {
	rb.Handle([]string{http.MethodGet}, regex, h)
}

func (rb *RouteBuilder) POST(regex *regexp.Regexp, h Handler) {
	rb.Handle([]string{http.MethodPost}, regex, h)
}

func (rb *RouteBuilder) WithMiddleware(ms ...Middleware) RouteBuilder {
	newRb := *rb
	newRb.Middlewares = appendCopy(rb.Middlewares, ms...)
	return newRb
}

func (rb *RouteBuilder) Group(regex *regexp.Regexp, ms ...Middleware) RouteBuilder {
	newRb := rb.WithMiddleware(ms...)
	newRb.Prefixes = appendCopy(rb.Prefixes, regex)
	return newRb
}

// Builders derived from the same parent must never share a backing array.
func appendCopy[T any](s []T, items ...T) []T {
	result := make([]T, 0, len(s)+len(items))
	result = append(result, s...)
	return append(result, items...)
}
