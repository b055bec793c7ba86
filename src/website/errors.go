package website

import (
	"net/http"
	"strings"

	"github.com/snapwall/snapwall/src/imgdata"
	"github.com/snapwall/snapwall/src/oops"
)

func FourOhFour(c *RequestContext) ResponseData {
	var res ResponseData
	res.StatusCode = http.StatusNotFound

	if c.Req.Header["Accept"] != nil && strings.Contains(c.Req.Header["Accept"][0], "text/html") {
		res.MustWriteTemplate("404.html", getBaseData(c, "Page not found"), c.Perf)
	} else {
		res.Write([]byte("Not Found"))
	}
	return res
}

/*
Shared tail of every handler that calls into imgdata. Expected failures
become a notice on the redirect to dest; anything else is a 500.
*/
func (c *RequestContext) handleDataError(err error, dest, context string) ResponseData {
	if msg, ok := imgdata.UserMessage(err); ok {
		return c.RedirectWithNotice(dest, "failure", msg)
	}
	return c.ErrorResponse(http.StatusInternalServerError, oops.New(err, context))
}
