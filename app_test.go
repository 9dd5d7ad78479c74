package cleanblog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testCSRF = "test-csrf-token"

var testSiteURL, _ = url.Parse("http://blog.test")

func stub(format string, args ...any) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, format, args...)
		return err
	})
}

func pageInfo(p Page) string {
	user := "anonymous"
	if p.CurrentUser != nil {
		user = p.CurrentUser.Username
	}
	return fmt.Sprintf("user=%s flashes=%q", user, p.Flashes)
}

func errText(fe FieldErrors) string {
	if len(fe) == 0 {
		return "none"
	}
	return fe.Error()
}

func stubViews() ViewFuncs {
	return ViewFuncs{
		Home: func(p Page, posts []BlogPost) templ.Component {
			titles := make([]string, len(posts))
			for i, post := range posts {
				titles[i] = post.Title
			}
			return stub("home %s posts=%s", pageInfo(p), strings.Join(titles, "|"))
		},
		About:   func(p Page) templ.Component { return stub("about %s", pageInfo(p)) },
		Contact: func(p Page) templ.Component { return stub("contact %s", pageInfo(p)) },
		Post: func(p Page, post BlogPost, comments []Comment, form CommentForm) templ.Component {
			texts := make([]string, len(comments))
			for i, c := range comments {
				texts[i] = c.AuthorName + ":" + c.Text
			}
			return stub("post %s title=%s author=%s date=%s comments=%s errors=%v",
				pageInfo(p), post.Title, post.AuthorName, post.Date, strings.Join(texts, "|"), errText(form.Errors))
		},
		PostForm: func(p Page, form PostForm) templ.Component {
			return stub("postform %s heading=%s action=%s title=%s errors=%v",
				pageInfo(p), form.Heading, form.Action, form.Input.Title, errText(form.Errors))
		},
		Register: func(p Page, form RegisterForm) templ.Component {
			return stub("register %s username=%s errors=%v", pageInfo(p), form.Username, errText(form.Errors))
		},
		Login: func(p Page, form LoginForm) templ.Component {
			return stub("login %s errors=%v", pageInfo(p), errText(form.Errors))
		},
		AdminImages: func(p Page, images []Image) templ.Component {
			names := make([]string, len(images))
			for i, img := range images {
				names[i] = img.Filename
			}
			return stub("images %s files=%s", pageInfo(p), strings.Join(names, "|"))
		},
		NotFound:    func(p Page) templ.Component { return stub("not found") },
		Forbidden:   func(p Page) templ.Component { return stub("forbidden") },
		ServerError: func(p Page) templ.Component { return stub("server error") },
	}
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	dir := t.TempDir()
	cfg := SiteConfig{
		Name:               "Test Blog",
		URL:                testSiteURL.String(),
		DatabasePath:       filepath.Join(dir, "blog.db"),
		SessionSecret:      "0123456789abcdef0123456789abcdef",
		LoginMaxAttempts:   3,
		WriteRatePerMinute: 6000,
	}
	a := New(cfg, stubViews(), WithLogger(zap.NewNop()), WithStaticDir(filepath.Join(dir, "public")))
	require.NoError(t, a.Setup())
	a.Store.now = func() time.Time { return testNow }
	t.Cleanup(func() { a.Close() })
	return a
}

// client is a cookie-keeping browser that sends the CSRF double-submit pair.
type client struct {
	t   *testing.T
	app *App
	jar http.CookieJar
	ip  string
}

func newClient(t *testing.T, a *App) *client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	jar.SetCookies(testSiteURL, []*http.Cookie{{Name: "_csrf", Value: testCSRF, Path: "/"}})
	return &client{t: t, app: a, jar: jar, ip: "192.0.2.10"}
}

func (cl *client) do(req *http.Request) *httptest.ResponseRecorder {
	cl.t.Helper()
	for _, c := range cl.jar.Cookies(testSiteURL) {
		req.AddCookie(c)
	}
	req.RemoteAddr = cl.ip + ":40000"
	rec := httptest.NewRecorder()
	cl.app.Echo.ServeHTTP(rec, req)
	cl.jar.SetCookies(testSiteURL, rec.Result().Cookies())
	return rec
}

func (cl *client) get(path string) *httptest.ResponseRecorder {
	return cl.do(httptest.NewRequest(http.MethodGet, testSiteURL.String()+path, nil))
}

func (cl *client) post(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, testSiteURL.String()+path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-CSRF-Token", testCSRF)
	return cl.do(req)
}

func (cl *client) register(username, email, password string) *httptest.ResponseRecorder {
	return cl.post("/register", url.Values{"username": {username}, "email": {email}, "password": {password}})
}

func (cl *client) login(email, password string) *httptest.ResponseRecorder {
	return cl.post("/login", url.Values{"email": {email}, "password": {password}})
}

// sessionUserID decodes the session cookie with the app's own store and
// returns the signed-in user id, or 0.
func (cl *client) sessionUserID() int64 {
	cl.t.Helper()
	req := httptest.NewRequest(http.MethodGet, testSiteURL.String()+"/", nil)
	for _, c := range cl.jar.Cookies(testSiteURL) {
		req.AddCookie(c)
	}
	sess, err := cl.app.newSessionStore().Get(req, sessionName)
	require.NoError(cl.t, err)
	id, _ := sess.Values[sessionUserKey].(int64)
	return id
}

func postForm(title string) url.Values {
	return url.Values{
		"title":    {title},
		"subtitle": {"World"},
		"img_url":  {"http://x/y.png"},
		"body":     {"<p>hi</p>"},
	}
}

func assertRedirect(t *testing.T, rec *httptest.ResponseRecorder, location string) {
	t.Helper()
	assert.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	assert.Equal(t, location, rec.Header().Get("Location"))
}

// withAdminAndReader registers the administrator and a regular reader.
func withAdminAndReader(t *testing.T) (*App, *client, *client) {
	a := newTestApp(t)
	admin := newClient(t, a)
	assertRedirect(t, admin.register("admin", "admin@example.com", "secret1"), "/")
	reader := newClient(t, a)
	reader.ip = "192.0.2.20"
	assertRedirect(t, reader.register("reader", "reader@example.com", "secret1"), "/")
	return a, admin, reader
}

func TestAliceEndToEnd(t *testing.T) {
	a := newTestApp(t)
	alice := newClient(t, a)

	rec := alice.register("alice", "alice@x.com", "secret1")
	assertRedirect(t, rec, "/")
	u, err := a.Store.GetUserByEmail("alice@x.com")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
	assert.True(t, u.IsAdmin(), "first account is the administrator")

	rec = alice.get("/")
	assert.Contains(t, rec.Body.String(), "user=alice")

	// A failed login leaves the existing session alone.
	require.Equal(t, u.ID, alice.sessionUserID())
	rec = alice.login("alice@x.com", "secret2")
	assert.Equal(t, u.ID, alice.sessionUserID())
	assertRedirect(t, rec, "/login")
	rec = alice.get("/login")
	assert.Contains(t, rec.Body.String(), flashBadPassword)
	assert.Contains(t, rec.Body.String(), "user=alice")

	rec = alice.post("/new-post", postForm("Hello"))
	assertRedirect(t, rec, "/")
	posts, err := a.Store.ListPosts()
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "Hello", posts[0].Title)
	assert.Equal(t, "World", posts[0].Subtitle)
	assert.Equal(t, "http://x/y.png", posts[0].ImgURL)
	assert.Equal(t, "<p>hi</p>", posts[0].Body)
	assert.Equal(t, testNow.Format(PostDateLayout), posts[0].Date)
	assert.Equal(t, u.ID, posts[0].AuthorID)

	rec = alice.get("/post?index=1")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "title=Hello author=alice date=January 15, 2024")
}

func TestRegisterDuplicatesFlash(t *testing.T) {
	a := newTestApp(t)
	first := newClient(t, a)
	assertRedirect(t, first.register("alice", "alice@x.com", "secret1"), "/")

	other := newClient(t, a)
	assertRedirect(t, other.register("alice2", "alice@x.com", "secret1"), "/login")
	assert.Contains(t, other.get("/login").Body.String(), flashDuplicateEmail)

	assertRedirect(t, other.register("alice", "other@x.com", "secret1"), "/register")
	rec := other.get("/register")
	assert.Contains(t, rec.Body.String(), flashDuplicateUsername)
	assert.Contains(t, rec.Body.String(), "user=anonymous")

	// Flashes are consumed once shown.
	assert.NotContains(t, other.get("/register").Body.String(), flashDuplicateUsername)
}

func TestRegisterInvalidRerenders(t *testing.T) {
	a := newTestApp(t)
	cl := newClient(t, a)

	rec := cl.register("al", "nope", "1")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "register user=anonymous")
	assert.Contains(t, body, "username=al")
	assert.Contains(t, body, "email:")
	assert.Contains(t, body, "password:")

	rec = cl.register("alice", "alice@x.com", strings.Repeat("a", 100))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "password: Must be at most 72 bytes.")
	_, err := a.Store.GetUserByEmail("alice@x.com")
	assert.ErrorIs(t, err, ErrNotFound)

	rec = cl.login("alice@x.com", strings.Repeat("a", 100))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "password: Must be at most 72 bytes.")
}

func TestLoginFlows(t *testing.T) {
	a := newTestApp(t)
	assertRedirect(t, newClient(t, a).register("alice", "alice@x.com", "secret1"), "/")

	cl := newClient(t, a)
	assertRedirect(t, cl.login("ghost@x.com", "secret1"), "/login")
	assert.Contains(t, cl.get("/login").Body.String(), flashUnknownEmail)
	assert.Contains(t, cl.get("/about").Body.String(), "user=anonymous")

	assertRedirect(t, cl.login("ALICE@x.com", "secret1"), "/")
	assert.Contains(t, cl.get("/").Body.String(), "user=alice")

	assertRedirect(t, cl.get("/logout"), "/")
	assert.Contains(t, cl.get("/").Body.String(), "user=anonymous")

	// Logging out twice is harmless.
	assertRedirect(t, cl.get("/logout"), "/")
}

func TestLoginRateLimited(t *testing.T) {
	a := newTestApp(t)
	assertRedirect(t, newClient(t, a).register("alice", "alice@x.com", "secret1"), "/")

	cl := newClient(t, a)
	cl.ip = "192.0.2.99"
	for i := 0; i < a.Config.LoginMaxAttempts; i++ {
		assertRedirect(t, cl.login("alice@x.com", "wrong-pass"), "/login")
	}
	rec := cl.login("alice@x.com", "secret1")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	other := newClient(t, a)
	other.ip = "192.0.2.100"
	assertRedirect(t, other.login("alice@x.com", "secret1"), "/")
}

func TestAdminRoutesForbidden(t *testing.T) {
	a, admin, reader := withAdminAndReader(t)
	assertRedirect(t, admin.post("/new-post", postForm("Hello")), "/")
	anon := newClient(t, a)

	cases := []struct {
		name string
		do   func(cl *client) *httptest.ResponseRecorder
	}{
		{"new-post form", func(cl *client) *httptest.ResponseRecorder { return cl.get("/new-post") }},
		{"new-post submit", func(cl *client) *httptest.ResponseRecorder { return cl.post("/new-post", postForm("Sneaky")) }},
		{"edit-post form", func(cl *client) *httptest.ResponseRecorder { return cl.get("/edit-post?post_id=1") }},
		{"edit-post submit", func(cl *client) *httptest.ResponseRecorder {
			return cl.post("/edit-post?post_id=1", postForm("Defaced"))
		}},
		{"delete", func(cl *client) *httptest.ResponseRecorder { return cl.get("/delete?post_id=1") }},
		{"images", func(cl *client) *httptest.ResponseRecorder { return cl.get("/admin/images") }},
	}
	for _, tc := range cases {
		for who, cl := range map[string]*client{"anonymous": anon, "reader": reader} {
			t.Run(tc.name+"/"+who, func(t *testing.T) {
				rec := tc.do(cl)
				assert.Equal(t, http.StatusForbidden, rec.Code)
				assert.Equal(t, "forbidden", rec.Body.String())
			})
		}
	}

	posts, err := a.Store.ListPosts()
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "Hello", posts[0].Title)
}

func TestAnonymousCommentRedirectsToLogin(t *testing.T) {
	a, admin, _ := withAdminAndReader(t)
	assertRedirect(t, admin.post("/new-post", postForm("Hello")), "/")

	anon := newClient(t, a)
	rec := anon.post("/post?index=1", url.Values{"text": {"first!"}})
	assertRedirect(t, rec, "/login")
	assert.Contains(t, anon.get("/login").Body.String(), commentLoginFlash)

	comments, err := a.Store.GetCommentsByPost(1)
	require.NoError(t, err)
	assert.Empty(t, comments)
}

func TestReaderComments(t *testing.T) {
	a, admin, reader := withAdminAndReader(t)
	assertRedirect(t, admin.post("/new-post", postForm("Hello")), "/")

	assertRedirect(t, reader.post("/post?index=1", url.Values{"text": {"<b>nice</b><script>x()</script>"}}), "/post?index=1")
	rec := reader.get("/post?index=1")
	assert.Contains(t, rec.Body.String(), "comments=reader:<b>nice</b>")

	rec = reader.post("/post?index=1", url.Values{"text": {""}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "text:")

	rec = reader.post("/post?index=9", url.Values{"text": {"hello?"}})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	comments, err := a.Store.GetCommentsByPost(1)
	require.NoError(t, err)
	assert.Len(t, comments, 1)
}

func TestNewPostDuplicateTitle(t *testing.T) {
	a, admin, _ := withAdminAndReader(t)
	assertRedirect(t, admin.post("/new-post", postForm("T1")), "/")

	dup := postForm("T1")
	dup.Set("body", "<p>replacement</p>")
	rec := admin.post("/new-post", dup)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "title: "+duplicateTitleMessage)
	assert.Contains(t, rec.Body.String(), "title=T1")

	post, err := a.Store.GetPost(1)
	require.NoError(t, err)
	assert.Equal(t, "<p>hi</p>", post.Body)
}

func TestNewPostInvalidRerenders(t *testing.T) {
	_, admin, _ := withAdminAndReader(t)

	rec := admin.get("/new-post")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "heading=New Post action=/new-post title= errors=none")

	bad := postForm("Broken")
	bad.Set("img_url", "not a url")
	rec = admin.post("/new-post", bad)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "title=Broken")
	assert.Contains(t, rec.Body.String(), "img_url:")
}

func TestEditPostKeepsAuthorAndDate(t *testing.T) {
	a, admin, _ := withAdminAndReader(t)
	assertRedirect(t, admin.post("/new-post", postForm("Hello")), "/")
	original, err := a.Store.GetPost(1)
	require.NoError(t, err)

	// Warm the cache so the redirect target must see the invalidation.
	assert.Contains(t, admin.get("/post?index=1").Body.String(), "title=Hello")

	rec := admin.get("/edit-post?post_id=1")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "heading=Edit Post action=/edit-post?post_id=1 title=Hello")

	a.Store.now = func() time.Time { return testNow.AddDate(1, 0, 0) }
	edit := url.Values{
		"title":    {"Hello, edited"},
		"subtitle": {"New world"},
		"img_url":  {"https://example.com/new.png"},
		"body":     {"<p>changed</p>"},
	}
	assertRedirect(t, admin.post("/edit-post?post_id=1", edit), "/post?index=1")

	got, err := a.Store.GetPost(1)
	require.NoError(t, err)
	assert.Equal(t, "Hello, edited", got.Title)
	assert.Equal(t, "New world", got.Subtitle)
	assert.Equal(t, "https://example.com/new.png", got.ImgURL)
	assert.Equal(t, "<p>changed</p>", got.Body)
	assert.Equal(t, original.Date, got.Date)
	assert.Equal(t, original.AuthorID, got.AuthorID)

	assert.Contains(t, admin.get("/post?index=1").Body.String(), "title=Hello, edited")
	assert.Equal(t, http.StatusNotFound, admin.get("/edit-post?post_id=7").Code)
}

func TestDeletePost(t *testing.T) {
	a, admin, reader := withAdminAndReader(t)
	assertRedirect(t, admin.post("/new-post", postForm("Doomed")), "/")
	assertRedirect(t, reader.post("/post?index=1", url.Values{"text": {"bye"}}), "/post?index=1")

	assertRedirect(t, admin.get("/delete?post_id=1"), "/")
	assert.Equal(t, http.StatusNotFound, reader.get("/post?index=1").Code)
	assert.Equal(t, http.StatusNotFound, admin.get("/delete?post_id=1").Code)

	comments, err := a.Store.GetCommentsByPost(1)
	require.NoError(t, err)
	assert.Empty(t, comments)
}

func TestPostNotFound(t *testing.T) {
	a := newTestApp(t)
	cl := newClient(t, a)

	for _, path := range []string{"/post?index=1", "/post?index=abc", "/post", "/no-such-page"} {
		rec := cl.get(path)
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
		assert.Equal(t, "not found", rec.Body.String(), path)
	}
}

func TestCSRFRequired(t *testing.T) {
	a := newTestApp(t)
	req := httptest.NewRequest(http.MethodPost, testSiteURL.String()+"/register",
		strings.NewReader(url.Values{"username": {"alice"}, "email": {"alice@x.com"}, "password": {"secret1"}}.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	a.Echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	_, err := a.Store.GetUser(1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStaticPagesAndFeeds(t *testing.T) {
	_, admin, _ := withAdminAndReader(t)
	assertRedirect(t, admin.post("/new-post", postForm("Hello")), "/")
	anon := newClient(t, admin.app)

	assert.Contains(t, anon.get("/about").Body.String(), "about user=anonymous")
	assert.Contains(t, anon.get("/contact").Body.String(), "contact user=anonymous")
	assert.Contains(t, anon.get("/").Body.String(), "posts=Hello")

	rec := anon.get("/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = anon.get("/feed.xml")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/rss+xml")
	assert.Contains(t, rec.Body.String(), "<title>Hello</title>")
	assert.Contains(t, rec.Body.String(), "http://blog.test/post?index=1")

	rec = anon.get("/sitemap.xml")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<lastmod>2024-01-15</lastmod>")
}

func TestAuthorize(t *testing.T) {
	a, admin, reader := withAdminAndReader(t)
	anon := newClient(t, a)

	cases := []struct {
		cl    *client
		level Level
		want  Access
	}{
		{anon, LevelLogin, AccessLoginRequired},
		{anon, LevelAdmin, AccessForbidden},
		{reader, LevelLogin, AccessGranted},
		{reader, LevelAdmin, AccessForbidden},
		{admin, LevelLogin, AccessGranted},
		{admin, LevelAdmin, AccessGranted},
	}
	var got Access
	var loginOK, adminOK bool
	level := LevelLogin
	a.Echo.GET("/authz", func(c echo.Context) error {
		_, access, err := a.Authorize(c, level)
		got = access
		loginOK = a.RequireLogin(c)
		adminOK = a.RequireAdmin(c)
		return err
	})
	for _, tc := range cases {
		level = tc.level
		assert.Equal(t, http.StatusOK, tc.cl.get("/authz").Code)
		assert.Equal(t, tc.want, got)
		assert.Equal(t, tc.cl != anon, loginOK, "RequireLogin")
		assert.Equal(t, tc.cl == admin, adminOK, "RequireAdmin")
	}
	assert.ErrorIs(t, AccessForbidden.Err(), ErrForbidden)
	assert.ErrorIs(t, AccessLoginRequired.Err(), ErrLoginRequired)
	assert.NoError(t, AccessGranted.Err())
}
