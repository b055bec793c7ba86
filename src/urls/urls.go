package urls

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/snapwall/snapwall/src/config"
)

const StaticPath = "/static"

var baseUrl = config.Config.BaseUrl

// Overrides the base url used by every Build function. Called once at startup,
// after the config is loaded.
func SetGlobalBaseUrl(u string) {
	baseUrl = strings.TrimSuffix(u, "/")
}

type Q struct {
	Name  string
	Value string
}

func Url(path string, query []Q) string {
	result := baseUrl + "/" + trim(path)
	if q := encodeQuery(query); q != "" {
		result += "?" + q
	}
	return result
}

func StaticUrl(path string, query []Q) string {
	return Url(StaticPath+"/"+trim(path), query)
}

func trim(path string) string {
	if len(path) > 0 && path[0] == '/' {
		return path[1:]
	}
	return path
}

func encodeQuery(query []Q) string {
	result := url.Values{}
	for _, q := range query {
		result.Set(q.Name, q.Value)
	}
	return result.Encode()
}

var RegexHomepage = regexp.MustCompile("^/$")

func BuildHomepage() string {
	return Url("/", nil)
}

var RegexLogin = regexp.MustCompile("^/login$")

func BuildLogin() string {
	return Url("/login", nil)
}

var RegexLogout = regexp.MustCompile("^/logout$")

func BuildLogout() string {
	return Url("/logout", nil)
}

var RegexRegister = regexp.MustCompile("^/register$")

func BuildRegister() string {
	return Url("/register", nil)
}

var RegexProfile = regexp.MustCompile("^/profile$")

func BuildProfile() string {
	return Url("/profile", nil)
}

var RegexHealth = regexp.MustCompile("^/health$")

func BuildHealth() string {
	return Url("/health", nil)
}

/*
* Images
 */

var RegexImages = regexp.MustCompile("^/images$")

func BuildImages() string {
	return Url("/images", nil)
}

var RegexImageUpload = regexp.MustCompile("^/images/upload$")

func BuildImageUpload() string {
	return Url("/images/upload", nil)
}

var RegexImageFile = regexp.MustCompile(`^/images/(?P<imageid>\d+)/file$`)

func BuildImageFile(imageID int) string {
	return Url(imagePath(imageID, "file"), nil)
}

var RegexImageEdit = regexp.MustCompile(`^/images/(?P<imageid>\d+)/edit$`)

func BuildImageEdit(imageID int) string {
	return Url(imagePath(imageID, "edit"), nil)
}

var RegexImageDelete = regexp.MustCompile(`^/images/(?P<imageid>\d+)/delete$`)

func BuildImageDelete(imageID int) string {
	return Url(imagePath(imageID, "delete"), nil)
}

var RegexImageUnlock = regexp.MustCompile(`^/images/(?P<imageid>\d+)/unlock$`)

func BuildImageUnlock(imageID int) string {
	return Url(imagePath(imageID, "unlock"), nil)
}

var RegexImageLike = regexp.MustCompile(`^/images/(?P<imageid>\d+)/like$`)

func BuildImageLike(imageID int) string {
	return Url(imagePath(imageID, "like"), nil)
}

var RegexImageUnlike = regexp.MustCompile(`^/images/(?P<imageid>\d+)/unlike$`)

func BuildImageUnlike(imageID int) string {
	return Url(imagePath(imageID, "unlike"), nil)
}

func imagePath(imageID int, action string) string {
	return "/images/" + strconv.Itoa(imageID) + "/" + action
}

/*
* Admin
 */

// The router trims trailing slashes, so this also serves /admin/.
var RegexAdmin = regexp.MustCompile("^/admin$")

func BuildAdmin(ipFilter string) string {
	var query []Q
	if ipFilter != "" {
		query = []Q{{Name: "ip", Value: ipFilter}}
	}
	return Url("/admin/", query)
}

var RegexAdminBan = regexp.MustCompile(`^/admin/ban/(?P<userid>\d+)$`)

func BuildAdminBan(userID int) string {
	return Url("/admin/ban/"+strconv.Itoa(userID), nil)
}

var RegexAdminUnban = regexp.MustCompile(`^/admin/unban/(?P<userid>\d+)$`)

func BuildAdminUnban(userID int) string {
	return Url("/admin/unban/"+strconv.Itoa(userID), nil)
}

var RegexAdminPerf = regexp.MustCompile("^/admin/perf$")

func BuildAdminPerf() string {
	return Url("/admin/perf", nil)
}

/*
* Static files
 */

var RegexStatic = regexp.MustCompile("^/static/")

var RegexCatchAll = regexp.MustCompile("^")
