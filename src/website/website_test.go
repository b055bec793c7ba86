package website

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/snapwall/snapwall/src/auth"
	"github.com/snapwall/snapwall/src/config"
	"github.com/snapwall/snapwall/src/db"
	"github.com/snapwall/snapwall/src/db/dbtest"
	"github.com/snapwall/snapwall/src/imgdata"
	"github.com/snapwall/snapwall/src/storage"
	"github.com/snapwall/snapwall/src/urls"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bannedUrl = "https://banned.example/"

type testSite struct {
	t     *testing.T
	conn  *pgxpool.Pool
	store *storage.Local
	srv   *httptest.Server
}

func newTestSite(t *testing.T) *testSite {
	conn := dbtest.Open(t)
	store, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)

	oldConfig := config.Config
	config.Config.Auth.SecretKey = "test secret"
	config.Config.Auth.BannedRedirectUrl = bannedUrl
	config.Config.Auth.CookieSecure = false

	srv := httptest.NewServer(NewWebsiteRoutes(conn, store, nil))
	urls.SetGlobalBaseUrl(srv.URL)
	t.Cleanup(func() {
		srv.Close()
		config.Config = oldConfig
		urls.SetGlobalBaseUrl(oldConfig.BaseUrl)
	})

	return &testSite{t: t, conn: conn, store: store, srv: srv}
}

type page struct {
	Status   int
	Location string
	Body     string
}

// A browser: keeps cookies, doesn't follow redirects, and claims to come
// from the given IP.
type testClient struct {
	t    *testing.T
	site *testSite
	http *http.Client
	ip   string
}

func (s *testSite) client(ip string) *testClient {
	jar, err := cookiejar.New(nil)
	require.NoError(s.t, err)
	return &testClient{
		t:    s.t,
		site: s,
		ip:   ip,
		http: &http.Client{
			Jar: jar,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (c *testClient) do(req *http.Request) page {
	c.t.Helper()
	if c.ip != "" {
		req.Header.Set("X-Forwarded-For", c.ip)
	}
	req.Header.Set("Accept", "text/html")
	res, err := c.http.Do(req)
	require.NoError(c.t, err)
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(c.t, err)
	return page{Status: res.StatusCode, Location: res.Header.Get("Location"), Body: string(body)}
}

func (c *testClient) url(path string) string {
	if strings.HasPrefix(path, "http") {
		return path
	}
	return c.site.srv.URL + path
}

func (c *testClient) get(path string) page {
	c.t.Helper()
	req, err := http.NewRequest(http.MethodGet, c.url(path), nil)
	require.NoError(c.t, err)
	return c.do(req)
}

func (c *testClient) post(path string, form url.Values) page {
	c.t.Helper()
	req, err := http.NewRequest(http.MethodPost, c.url(path), strings.NewReader(form.Encode()))
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

// Posts with the session's CSRF token added.
func (c *testClient) postAuthed(path string, form url.Values) page {
	c.t.Helper()
	if form == nil {
		form = url.Values{}
	}
	form.Set(auth.CSRFFieldName, c.csrfToken())
	return c.post(path, form)
}

var csrfRegex = regexp.MustCompile(`name="csrf_token" value="([^"]+)"`)

func (c *testClient) csrfToken() string {
	c.t.Helper()
	p := c.get("/profile")
	require.Equal(c.t, http.StatusOK, p.Status, "must be logged in to get a CSRF token")
	match := csrfRegex.FindStringSubmatch(p.Body)
	require.NotNil(c.t, match)
	return match[1]
}

// Follows a redirect and returns the page it lands on.
func (c *testClient) follow(p page) page {
	c.t.Helper()
	require.Equal(c.t, http.StatusSeeOther, p.Status, "expected a redirect, got: %s", p.Body)
	return c.get(p.Location)
}

func (c *testClient) register(username, password string) page {
	c.t.Helper()
	return c.post("/register", url.Values{"username": {username}, "password": {password}})
}

func (c *testClient) upload(filename string, content []byte, fields map[string]string) page {
	c.t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	require.NoError(c.t, w.WriteField(auth.CSRFFieldName, c.csrfToken()))
	for name, value := range fields {
		require.NoError(c.t, w.WriteField(name, value))
	}
	if filename != "" {
		part, err := w.CreateFormFile("file", filename)
		require.NoError(c.t, err)
		_, err = part.Write(content)
		require.NoError(c.t, err)
	}
	require.NoError(c.t, w.Close())

	req, err := http.NewRequest(http.MethodPost, c.url("/images/upload"), &body)
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return c.do(req)
}

func (s *testSite) imageID(filename string) int {
	s.t.Helper()
	id, err := db.QueryOneScalar[int](context.Background(), s.conn,
		"SELECT id FROM images WHERE original_filename = $1", filename)
	require.NoError(s.t, err)
	return id
}

func pathOf(t *testing.T, location string) string {
	u, err := url.Parse(location)
	require.NoError(t, err)
	return u.Path
}

func makePNG(t *testing.T, w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestRegisterLoginLogout(t *testing.T) {
	site := newTestSite(t)
	alice := site.client("198.51.100.1")

	p := alice.get("/")
	assert.Equal(t, "/login", pathOf(t, p.Location))
	assert.Equal(t, "/login", pathOf(t, alice.get("/profile").Location))

	p = alice.register("alice", "hunter2")
	require.Equal(t, http.StatusSeeOther, p.Status)
	assert.Equal(t, "/profile", pathOf(t, p.Location))

	p = alice.get("/profile")
	assert.Equal(t, http.StatusOK, p.Status)
	assert.Contains(t, p.Body, "alice")
	assert.Contains(t, p.Body, "198.51.100.1")
	assert.Equal(t, "/profile", pathOf(t, alice.get("/").Location))

	p = alice.post("/logout", nil)
	assert.Equal(t, "/login", pathOf(t, p.Location))
	assert.Equal(t, "/login", pathOf(t, alice.get("/profile").Location))

	sessions, err := db.QueryOneScalar[int](context.Background(), site.conn, "SELECT COUNT(*) FROM sessions")
	require.NoError(t, err)
	assert.Equal(t, 0, sessions)

	t.Run("wrong password", func(t *testing.T) {
		p := alice.follow(alice.post("/login", url.Values{"username": {"alice"}, "password": {"nope"}}))
		assert.Contains(t, p.Body, "Invalid credentials")
		assert.Equal(t, "/login", pathOf(t, alice.get("/profile").Location))
	})
	t.Run("unknown user", func(t *testing.T) {
		p := alice.follow(alice.post("/login", url.Values{"username": {"nobody"}, "password": {"hunter2"}}))
		assert.Contains(t, p.Body, "Invalid credentials")
	})
	t.Run("login records IP", func(t *testing.T) {
		elsewhere := site.client("198.51.100.99")
		p := elsewhere.post("/login", url.Values{"username": {" alice "}, "password": {"hunter2"}})
		assert.Equal(t, "/profile", pathOf(t, p.Location))

		user, err := imgdata.FetchUserByUsername(context.Background(), site.conn, "alice")
		require.NoError(t, err)
		assert.Equal(t, "198.51.100.99", user.LastIPString())
	})
}

func TestRegisterValidation(t *testing.T) {
	site := newTestSite(t)
	c := site.client("")

	p := c.follow(c.register("", "pw"))
	assert.Contains(t, p.Body, "Username and password are required.")

	c.register("bob", "pw")
	other := site.client("")
	p = other.register("bob", "other")
	assert.Equal(t, "/register", pathOf(t, p.Location))
	assert.Contains(t, other.follow(p).Body, "Username already exists.")
}

func TestForgedSessionCookieIsIgnored(t *testing.T) {
	site := newTestSite(t)
	c := site.client("")
	c.register("mallory", "pw")

	var sessionID string
	err := site.conn.QueryRow(context.Background(), "SELECT id FROM sessions").Scan(&sessionID)
	require.NoError(t, err)

	forged, err := auth.EncodeSessionToken("some other key", sessionID, time.Now().Add(time.Hour))
	require.NoError(t, err)

	attacker := site.client("")
	u, _ := url.Parse(site.srv.URL)
	attacker.http.Jar.SetCookies(u, []*http.Cookie{{Name: auth.SessionCookieName, Value: forged, Path: "/"}})
	assert.Equal(t, "/login", pathOf(t, attacker.get("/profile").Location))
}

func TestCSRFMismatchLogsOut(t *testing.T) {
	site := newTestSite(t)
	c := site.client("")
	c.register("carol", "pw")

	p := c.post("/images/1/like", url.Values{auth.CSRFFieldName: {"wrong"}})
	assert.Equal(t, "/login", pathOf(t, p.Location))
	assert.Equal(t, "/login", pathOf(t, c.get("/profile").Location))
}

func TestUploadListAndLikes(t *testing.T) {
	site := newTestSite(t)
	alice := site.client("")
	alice.register("alice", "pw")

	p := alice.follow(alice.upload("", nil, nil))
	assert.Contains(t, p.Body, "No file selected")

	p = alice.follow(alice.upload("notes.txt", []byte("hello"), nil))
	assert.Contains(t, p.Body, "Unsupported file type")

	p = alice.follow(alice.upload("fake.png", []byte("not really a png"), nil))
	assert.Contains(t, p.Body, "Unsupported file type")

	p = alice.follow(alice.upload("beach.png", makePNG(t, 3, 2), map[string]string{
		"hide_location": "on",
		"location":      "Kyiv",
	}))
	assert.Contains(t, p.Body, "Password is required to hide location")

	p = alice.follow(alice.upload("beach.png", makePNG(t, 3, 2), map[string]string{
		"description": "a *sunny* day",
	}))
	assert.Contains(t, p.Body, "Uploaded")
	assert.Contains(t, p.Body, "<em>sunny</em>")
	assert.Contains(t, p.Body, "0 likes")
	id := site.imageID("beach.png")

	file := alice.get(urls.BuildImageFile(id))
	assert.Equal(t, http.StatusOK, file.Status)
	assert.Equal(t, makePNG(t, 3, 2), []byte(file.Body))

	bob := site.client("")
	bob.register("bob", "pw")

	p = bob.follow(bob.postAuthed(urls.BuildImageLike(id), nil))
	assert.Contains(t, p.Body, "1 like")
	assert.Contains(t, p.Body, "Unlike")

	p = bob.follow(bob.postAuthed(urls.BuildImageLike(id), nil))
	assert.Contains(t, p.Body, "You already liked this image")
	assert.Contains(t, p.Body, "1 like")

	p = bob.follow(bob.postAuthed(urls.BuildImageUnlike(id), nil))
	assert.Contains(t, p.Body, "0 likes")

	p = bob.follow(bob.postAuthed(urls.BuildImageUnlike(id), nil))
	assert.Contains(t, p.Body, "You have not liked this image")

	p = bob.follow(bob.postAuthed(urls.BuildImageLike(id+1000), nil))
	assert.Contains(t, p.Body, "Image not found")

	p = bob.follow(bob.get(urls.BuildImageFile(id + 1000)))
	assert.Contains(t, p.Body, "Access denied")
}

func TestOnlyOwnerCanEditOrDelete(t *testing.T) {
	site := newTestSite(t)
	alice := site.client("")
	alice.register("alice", "pw")
	alice.upload("cat.png", makePNG(t, 1, 1), nil)
	id := site.imageID("cat.png")

	bob := site.client("")
	bob.register("bob", "pw")

	p := bob.follow(bob.get(urls.BuildImageEdit(id)))
	assert.Contains(t, p.Body, "Access denied")
	p = bob.follow(bob.postAuthed(urls.BuildImageEdit(id), url.Values{"description": {"mine now"}}))
	assert.Contains(t, p.Body, "Access denied")
	p = bob.follow(bob.postAuthed(urls.BuildImageDelete(id), nil))
	assert.Contains(t, p.Body, "Access denied")
	p = bob.follow(bob.postAuthed(urls.BuildImageDelete(id+1000), nil))
	assert.Contains(t, p.Body, "Access denied")

	p = alice.get(urls.BuildImageEdit(id))
	assert.Equal(t, http.StatusOK, p.Status)
	p = alice.follow(alice.postAuthed(urls.BuildImageEdit(id), url.Values{"description": {"a cat"}}))
	assert.Contains(t, p.Body, "a cat")
	assert.NotContains(t, p.Body, "mine now")

	p = alice.follow(alice.postAuthed(urls.BuildImageDelete(id), nil))
	assert.Contains(t, p.Body, "Deleted")
	assert.NotContains(t, p.Body, "a cat")
}

func TestHiddenLocation(t *testing.T) {
	site := newTestSite(t)
	alice := site.client("")
	alice.register("alice", "pw")
	alice.upload("secret.png", makePNG(t, 1, 1), map[string]string{
		"hide_location":     "on",
		"location":          "Secret Beach",
		"location_password": "open sesame",
	})
	id := site.imageID("secret.png")

	assert.Contains(t, alice.get("/images").Body, "Secret Beach")

	bob := site.client("")
	bob.register("bob", "pw")
	assert.NotContains(t, bob.get("/images").Body, "Secret Beach")

	p := bob.follow(bob.postAuthed(urls.BuildImageUnlock(id), url.Values{"location_password": {"wrong"}}))
	assert.Contains(t, p.Body, "Wrong password")
	assert.NotContains(t, p.Body, "Secret Beach")

	p = bob.follow(bob.postAuthed(urls.BuildImageUnlock(id), url.Values{"location_password": {"open sesame"}}))
	assert.Contains(t, p.Body, "Location unlocked")
	assert.Contains(t, p.Body, "Secret Beach")

	// The unlock belongs to bob's session, not to bob or the image.
	bobAgain := site.client("")
	bobAgain.post("/login", url.Values{"username": {"bob"}, "password": {"pw"}})
	assert.NotContains(t, bobAgain.get("/images").Body, "Secret Beach")

	t.Run("edit keeps the existing password", func(t *testing.T) {
		p := alice.follow(alice.postAuthed(urls.BuildImageEdit(id), url.Values{
			"hide_location": {"on"},
			"location":      {"Secret Cove"},
		}))
		assert.Contains(t, p.Body, "Image updated")

		p = bobAgain.follow(bobAgain.postAuthed(urls.BuildImageUnlock(id), url.Values{"location_password": {"open sesame"}}))
		assert.Contains(t, p.Body, "Secret Cove")
	})
}

func TestBannedIPs(t *testing.T) {
	site := newTestSite(t)
	ctx := context.Background()

	root := site.client("192.0.2.1")
	root.register("root", "pw")
	require.NoError(t, imgdata.SetAdmin(ctx, site.conn, "root", true))

	bob := site.client("203.0.113.5")
	bob.register("bob", "pw")
	bobID, err := db.QueryOneScalar[int](ctx, site.conn, "SELECT id FROM users WHERE username = 'bob'")
	require.NoError(t, err)

	p := bob.get("/admin")
	assert.Equal(t, "/login", pathOf(t, p.Location))

	p = root.get("/admin?ip=203.0.113")
	assert.Equal(t, http.StatusOK, p.Status)
	assert.Contains(t, p.Body, "bob")
	assert.NotContains(t, p.Body, "192.0.2.1")

	p = root.get("/admin?ip=10.9.9")
	assert.Contains(t, p.Body, "No users with an IP matching")

	p = root.follow(root.postAuthed(urls.BuildAdminBan(bobID), nil))
	assert.Contains(t, p.Body, "User bob banned by IP 203.0.113.5")

	p = root.follow(root.postAuthed(urls.BuildAdminBan(bobID), nil))
	assert.Contains(t, p.Body, "IP already banned")

	p = bob.get("/images")
	assert.Equal(t, http.StatusSeeOther, p.Status)
	assert.Equal(t, bannedUrl, p.Location)
	assert.Equal(t, bannedUrl, bob.get("/profile").Location)

	// Allow-listed routes still work
	assert.Equal(t, http.StatusOK, bob.get("/login").Status)
	assert.Equal(t, http.StatusOK, bob.get("/health").Status)

	// Admins get through from a banned address
	root.ip = "203.0.113.5"
	assert.Equal(t, http.StatusOK, root.get("/images").Status)

	p = root.follow(root.postAuthed(urls.BuildAdminUnban(bobID), nil))
	assert.Contains(t, p.Body, "User unbanned successfully")
	p = root.follow(root.postAuthed(urls.BuildAdminUnban(bobID), nil))
	assert.Contains(t, p.Body, "User was not banned")

	assert.Equal(t, http.StatusOK, bob.get("/images").Status)

	p = root.follow(root.postAuthed(urls.BuildAdminBan(bobID+1000), nil))
	assert.Contains(t, p.Body, "User not found")
}

func TestAdminPerf(t *testing.T) {
	site := newTestSite(t)
	root := site.client("")
	root.register("root", "pw")
	require.NoError(t, imgdata.SetAdmin(context.Background(), site.conn, "root", true))

	p := root.get("/admin/perf")
	assert.Equal(t, http.StatusOK, p.Status)
	assert.Equal(t, "[]", p.Body)
}
