package website

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"html"
	"html/template"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/snapwall/snapwall/src/logging"
	"github.com/snapwall/snapwall/src/models"
	"github.com/snapwall/snapwall/src/perf"
	"github.com/snapwall/snapwall/src/storage"
	"github.com/snapwall/snapwall/src/templates"
	"github.com/snapwall/snapwall/src/urls"
)

/*
RequestContext is everything a handler gets: the request, the shared pool and
object store, and whatever the middlewares learned about the caller. It is
also the request's context.Context, so it can be passed straight to the db and
storage packages.
*/
type RequestContext struct {
	Route      string
	Logger     *zerolog.Logger
	Req        *http.Request
	PathParams map[string]string

	// The real http.ResponseWriter. Only for things like http.MaxBytesReader
	// that need the connection; handlers write to their ResponseData.
	Res http.ResponseWriter

	Conn    *pgxpool.Pool
	Storage storage.Store

	CurrentUser    *models.User
	CurrentSession *models.Session

	Perf          *perf.RequestPerf
	PerfCollector *perf.PerfCollector

	ctx context.Context
}

var _ context.Context = &RequestContext{}

func (c *RequestContext) Deadline() (time.Time, bool) { return c.ctx.Deadline() }
func (c *RequestContext) Done() <-chan struct{}       { return c.ctx.Done() }
func (c *RequestContext) Err() error                  { return c.ctx.Err() }

func (c *RequestContext) Value(key any) any {
	if key == perf.PerfContextKey {
		return c.Perf
	}
	return c.ctx.Value(key)
}

// CurrentUrl reconstructs the absolute URL the client asked for, honoring
// X-Forwarded-Proto from a reverse proxy.
func (c *RequestContext) CurrentUrl() string {
	scheme := c.Req.Header.Get("X-Forwarded-Proto")
	if scheme == "" {
		scheme = "http"
		if c.Req.TLS != nil {
			scheme = "https"
		}
	}

	u := url.URL{
		Scheme:   scheme,
		Host:     c.Req.Host,
		Path:     c.Req.URL.Path,
		RawQuery: c.Req.URL.RawQuery,
	}
	return u.String()
}

/*
The caller's IP: the first entry of X-Forwarded-For when present, otherwise
the peer address with the port stripped. Returns "" when neither yields
anything.
*/
func (c *RequestContext) GetIP() string {
	return requestIP(c.Req)
}

func requestIP(req *http.Request) string {
	if forwarded := req.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		// No port to strip
		return strings.Trim(req.RemoteAddr, "[]")
	}
	return host
}

func (c *RequestContext) PathParamInt(name string) (int, bool) {
	id, err := strconv.Atoi(c.PathParams[name])
	if err != nil {
		return 0, false
	}
	return id, true
}

func (c *RequestContext) GetFormValues() (url.Values, error) {
	if err := c.Req.ParseForm(); err != nil {
		return nil, err
	}
	return c.Req.PostForm, nil
}

/*
Redirect answers with a Location header. Relative destinations are resolved
against the current request path; anything unparseable sends the client home
instead.
*/
func (c *RequestContext) Redirect(dest string, code int) ResponseData {
	var res ResponseData

	destUrl, err := url.Parse(dest)
	if err != nil {
		c.Logger.Warn().Err(err).Str("dest", dest).Msg("Failed to parse redirect URI")
		destUrl = &url.URL{Path: urls.BuildHomepage()}
	}
	if !destUrl.IsAbs() && destUrl.Host == "" {
		destUrl = (&url.URL{Path: normalizePath(c.Req.URL.Path)}).ResolveReference(destUrl)
	}
	location := destUrl.String()

	res.StatusCode = code
	res.Header().Set("Location", location)
	if c.Req.Method == http.MethodGet {
		res.Header().Set("Content-Type", "text/html; charset=utf-8")
		res.Write([]byte("<a href=\"" + html.EscapeString(location) + "\">" + http.StatusText(code) + "</a>.\n"))
	}
	return res
}

func (c *RequestContext) ErrorResponse(status int, errs ...error) ResponseData {
	defer func() {
		if r := recover(); r != nil {
			logContextErrors(c, errs...)
			panic(r)
		}
	}()

	res := ResponseData{
		StatusCode: status,
		Errors:     errs,
	}
	res.MustWriteTemplate("error.html", getBaseData(c, "Error"), c.Perf)
	return res
}

// Redirects with a notice for the next page. This is how every expected
// failure reaches the user.
func (c *RequestContext) RedirectWithNotice(dest, class, content string) ResponseData {
	res := c.Redirect(dest, http.StatusSeeOther)
	res.AddFutureNotice(class, content)
	return res
}

/*
ResponseData is a buffered response. Handlers fill it in and return it, and
the Router copies it to the connection afterwards, so middlewares can still
change the status or headers on the way out. It is an http.ResponseWriter
itself, which lets stdlib handlers like http.FileServer write into it.
*/
type ResponseData struct {
	StatusCode    int
	Body          *bytes.Buffer
	Errors        []error
	FutureNotices []templates.Notice

	header http.Header
}

var _ http.ResponseWriter = &ResponseData{}

func (rd *ResponseData) Header() http.Header {
	if rd.header == nil {
		rd.header = make(http.Header)
	}
	return rd.header
}

func (rd *ResponseData) Write(p []byte) (n int, err error) {
	if rd.Body == nil {
		rd.Body = new(bytes.Buffer)
	}
	return rd.Body.Write(p)
}

func (rd *ResponseData) WriteHeader(status int) {
	rd.StatusCode = status
}

func (rd *ResponseData) SetCookie(cookie *http.Cookie) {
	rd.Header().Add("Set-Cookie", cookie.String())
}

// Content is plain text.
func (rd *ResponseData) AddFutureNotice(class string, content string) {
	rd.FutureNotices = append(rd.FutureNotices, templates.Notice{
		Class:   class,
		Content: template.HTML(template.HTMLEscapeString(content)),
	})
}

func (rd *ResponseData) WriteTemplate(name string, data interface{}, rp *perf.RequestPerf) error {
	defer rp.StartBlock("TEMPLATE", name).End()
	rd.Header().Set("Content-Type", "text/html; charset=utf-8")
	return templates.GetTemplate(name).Execute(rd, data)
}

func (rd *ResponseData) MustWriteTemplate(name string, data interface{}, rp *perf.RequestPerf) {
	if err := rd.WriteTemplate(name, data, rp); err != nil {
		panic(err)
	}
}

func (rd *ResponseData) WriteJson(data any, rp *perf.RequestPerf) {
	defer rp.StartBlock("JSON", "Marshal response").End()
	dataJson, err := json.Marshal(data)
	if err != nil {
		panic(err)
	}
	rd.Header().Set("Content-Type", "application/json")
	rd.Write(dataJson)
}

func doRequest(rw http.ResponseWriter, c *RequestContext, h Handler) {
	defer func() {
		// Last resort. Error pages for panics come from panicCatcherMiddleware.
		if recovered := recover(); recovered != nil {
			rw.WriteHeader(http.StatusInternalServerError)
			logging.LogPanicValue(c.Logger, recovered, "request panicked and was not handled")
			rw.Write([]byte("There was a problem handling your request.\nPlease try again later."))
		}
	}()

	res := h(c)
	if res.StatusCode == 0 {
		res.StatusCode = http.StatusOK
	}

	for name, vals := range res.Header() {
		for _, val := range vals {
			rw.Header().Add(name, val)
		}
	}

	// Content-Type and Content-Length are set here so HEAD responses carry
	// them too.
	var body []byte
	if res.Body != nil {
		body = res.Body.Bytes()
		if rw.Header().Get("Content-Type") == "" {
			rw.Header().Set("Content-Type", http.DetectContentType(body))
		}
		if rw.Header().Get("Content-Length") == "" {
			rw.Header().Set("Content-Length", strconv.Itoa(len(body)))
		}
	}
	rw.WriteHeader(res.StatusCode)

	if c.Req.Method == http.MethodHead || len(body) == 0 {
		return
	}
	if _, err := io.Copy(rw, bytes.NewReader(body)); err != nil {
		if errors.Is(err, syscall.EPIPE) {
			// Client hung up
			logging.Debug().Msg("Broken pipe")
		} else {
			c.Logger.Error().Err(err).Msg("Failed to write response body")
		}
	}
}
