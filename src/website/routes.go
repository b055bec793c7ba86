package website

import (
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/snapwall/snapwall/src/perf"
	"github.com/snapwall/snapwall/src/storage"
	"github.com/snapwall/snapwall/src/templates"
	"github.com/snapwall/snapwall/src/urls"
)

func NewWebsiteRoutes(conn *pgxpool.Pool, store storage.Store, perfCollector *perf.PerfCollector) http.Handler {
	router := &Router{
		Conn:          conn,
		Storage:       store,
		PerfCollector: perfCollector,
	}
	routes := RouteBuilder{
		Router: router,
		Middlewares: []Middleware{
			trackRequestPerf,
			logContextErrorsMiddleware,
			panicCatcherMiddleware,
			storeNoticesInCookieMiddleware,
			loadCommonData,
		},
	}

	// Reachable from banned IPs
	routes.GET(urls.RegexHealth, Health)
	routes.GET(urls.RegexStatic, StaticFile)
	routes.GET(urls.RegexLogin, LoginPage)
	routes.POST(urls.RegexLogin, Login)
	routes.GET(urls.RegexRegister, RegisterPage)
	routes.POST(urls.RegexRegister, Register)
	routes.GET(urls.RegexLogout, Logout)
	routes.POST(urls.RegexLogout, Logout)
	adminIndex := routes.WithMiddleware(adminsOnly)
	adminIndex.GET(urls.RegexAdmin, AdminIndex)

	guarded := routes.WithMiddleware(banGuard)
	authed := guarded.WithMiddleware(needsAuth)
	authedPost := authed.WithMiddleware(csrfMiddleware)
	admin := guarded.WithMiddleware(adminsOnly)
	adminPost := admin.WithMiddleware(csrfMiddleware)

	guarded.GET(urls.RegexHomepage, Index)
	authed.GET(urls.RegexProfile, Profile)

	authed.GET(urls.RegexImages, ImagesList)
	upload := guarded.WithMiddleware(limitRequestBody(maxUploadSize), needsAuth, csrfMiddleware)
	upload.POST(urls.RegexImageUpload, ImageUpload)
	authed.GET(urls.RegexImageFile, ImageFile)
	authed.GET(urls.RegexImageEdit, ImageEdit)
	authedPost.POST(urls.RegexImageEdit, ImageEditSubmit)
	authedPost.POST(urls.RegexImageDelete, ImageDelete)
	authedPost.POST(urls.RegexImageUnlock, ImageUnlock)
	authedPost.POST(urls.RegexImageLike, ImageLike)
	authedPost.POST(urls.RegexImageUnlike, ImageUnlike)

	admin.GET(urls.RegexAdminPerf, AdminPerf)
	adminPost.POST(urls.RegexAdminBan, AdminBan)
	adminPost.POST(urls.RegexAdminUnban, AdminUnban)

	guarded.AnyMethod(urls.RegexCatchAll, FourOhFour)

	return router
}

var staticFiles = http.StripPrefix(urls.StaticPath, http.FileServer(http.FS(templates.StaticFS())))

func StaticFile(c *RequestContext) ResponseData {
	var res ResponseData
	staticFiles.ServeHTTP(&res, c.Req)
	return res
}
