package website

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/snapwall/snapwall/src/auth"
	"github.com/snapwall/snapwall/src/oops"
	"github.com/snapwall/snapwall/src/perf"
	"github.com/snapwall/snapwall/src/urls"
)

// Uploads are capped well below this by the upload handler itself.
const maxFormMemory = 32 * 1024 * 1024

func panicCatcherMiddleware(h Handler) Handler {
	return func(c *RequestContext) (res ResponseData) {
		defer func() {
			if recovered := recover(); recovered != nil {
				maybeError, ok := recovered.(error)
				var err error
				if ok {
					err = oops.New(maybeError, "Recovered from panic")
				} else {
					err = oops.New(nil, fmt.Sprintf("Recovered from panic with value: %v", recovered))
				}
				res = c.ErrorResponse(http.StatusInternalServerError, err)
			}
		}()

		return h(c)
	}
}

func trackRequestPerf(h Handler) Handler {
	return func(c *RequestContext) ResponseData {
		c.Perf = perf.MakeNewRequestPerf(c.Route, c.Req.Method, c.Req.URL.Path)
		defer func() {
			c.Perf.EndRequest()
			log := c.Logger.Debug()
			blockStack := make([]time.Time, 0)
			for i, block := range c.Perf.Blocks {
				for len(blockStack) > 0 && block.End.After(blockStack[len(blockStack)-1]) {
					blockStack = blockStack[:len(blockStack)-1]
				}
				log.Str(fmt.Sprintf("[%4.d] At %9.2fms", i, c.Perf.MsFromStart(&block)), fmt.Sprintf("%*.s[%s] %s (%.4fms)", len(blockStack)*2, "", block.Category, block.Description, block.DurationMs()))
				blockStack = append(blockStack, block.End)
			}
			log.Msg(fmt.Sprintf("Served [%s] %s in %.4fms", c.Perf.Method, c.Perf.Path, float64(c.Perf.Duration().Nanoseconds())/1000/1000))
			c.PerfCollector.SubmitRun(c.Perf)
		}()

		return h(c)
	}
}

func needsAuth(h Handler) Handler {
	return func(c *RequestContext) ResponseData {
		if c.CurrentUser == nil {
			return c.Redirect(urls.BuildLogin(), http.StatusSeeOther)
		}

		return h(c)
	}
}

func adminsOnly(h Handler) Handler {
	return func(c *RequestContext) ResponseData {
		if c.CurrentUser == nil || !c.CurrentUser.IsAdmin {
			return c.Redirect(urls.BuildLogin(), http.StatusSeeOther)
		}

		return h(c)
	}
}

// Only valid after needsAuth, which guarantees a session.
func csrfMiddleware(h Handler) Handler {
	// CSRF mitigation actions per the OWASP cheat sheet:
	// https://cheatsheetseries.owasp.org/cheatsheets/Cross-Site_Request_Forgery_Prevention_Cheat_Sheet.html
	return func(c *RequestContext) ResponseData {
		if err := c.Req.ParseMultipartForm(maxFormMemory); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return c.RedirectWithNotice(urls.BuildImages(), "failure", "File is too large")
			}
		}
		csrfToken := c.Req.Form.Get(auth.CSRFFieldName)
		if c.CurrentSession == nil || csrfToken != c.CurrentSession.CSRFToken {
			c.Logger.Warn().Str("username", c.CurrentUser.Username).Msg("user failed CSRF validation - potential attack?")

			res := c.Redirect(urls.BuildLogin(), http.StatusSeeOther)
			logoutUser(c, &res)

			return res
		}

		return h(c)
	}
}

// Caps the size of request bodies. Must run before anything reads the form.
func limitRequestBody(maxBytes int64) Middleware {
	return func(h Handler) Handler {
		return func(c *RequestContext) ResponseData {
			c.Req.Body = http.MaxBytesReader(c.Res, c.Req.Body, maxBytes)
			return h(c)
		}
	}
}

func logContextErrors(c *RequestContext, errs ...error) {
	for _, err := range errs {
		c.Logger.Error().Timestamp().Stack().Str("Requested", c.CurrentUrl()).Err(err).Msg("error occurred during request")
	}
}

func logContextErrorsMiddleware(h Handler) Handler {
	return func(c *RequestContext) ResponseData {
		res := h(c)
		logContextErrors(c, res.Errors...)
		return res
	}
}

