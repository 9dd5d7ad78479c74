package cleanblog

import (
	"errors"
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

const (
	sessionName    = "cleanblog_session"
	sessionUserKey = "user_id"
	currentUserKey = "cleanblog.user"
)

// Access is the outcome of an authorization decision.
type Access int

const (
	AccessGranted Access = iota
	AccessLoginRequired
	AccessForbidden
)

func (a Access) String() string {
	switch a {
	case AccessGranted:
		return "granted"
	case AccessLoginRequired:
		return "login required"
	case AccessForbidden:
		return "forbidden"
	}
	return "unknown"
}

// Err maps a denial to its sentinel error; AccessGranted maps to nil.
func (a Access) Err() error {
	switch a {
	case AccessLoginRequired:
		return ErrLoginRequired
	case AccessForbidden:
		return ErrForbidden
	}
	return nil
}

// Level is the privilege an action needs.
type Level int

const (
	LevelLogin Level = iota
	LevelAdmin
)

func (a *App) newSessionStore() *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(a.Config.SessionSecret))
	store.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
		MaxAge:   60 * 60 * 24 * 7,
		SameSite: http.SameSiteLaxMode,
		Secure:   a.Config.CookieSecure,
	}
	return store
}

// CurrentUser returns the user the session belongs to, or nil for anonymous
// requests. The user is reloaded from the store once per request, so a
// session pointing at a missing user is anonymous.
func (a *App) CurrentUser(c echo.Context) (*User, error) {
	if u, ok := c.Get(currentUserKey).(*User); ok {
		return u, nil
	}
	var current *User
	if sess, err := session.Get(sessionName, c); err == nil {
		if id, ok := sess.Values[sessionUserKey].(int64); ok {
			u, err := a.Store.GetUser(id)
			switch {
			case err == nil:
				current = &u
			case !errors.Is(err, ErrNotFound):
				return nil, err
			}
		}
	}
	if current != nil {
		c.Set(currentUserKey, current)
	}
	return current, nil
}

// Authorize decides whether the request may perform an action at level.
func (a *App) Authorize(c echo.Context, level Level) (*User, Access, error) {
	u, err := a.CurrentUser(c)
	if err != nil {
		return nil, AccessForbidden, err
	}
	switch {
	case u == nil && level == LevelAdmin:
		return nil, AccessForbidden, nil
	case u == nil:
		return nil, AccessLoginRequired, nil
	case level == LevelAdmin && !u.IsAdmin():
		return u, AccessForbidden, nil
	}
	return u, AccessGranted, nil
}

// RequireLogin reports whether the session belongs to a persisted user.
func (a *App) RequireLogin(c echo.Context) bool {
	_, access, err := a.Authorize(c, LevelLogin)
	return err == nil && access == AccessGranted
}

// RequireAdmin reports whether the session belongs to the administrator.
func (a *App) RequireAdmin(c echo.Context) bool {
	_, access, err := a.Authorize(c, LevelAdmin)
	return err == nil && access == AccessGranted
}

// requireAdmin fails with 403 for anonymous and non-admin sessions alike.
func (a *App) requireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		u, access, err := a.Authorize(c, LevelAdmin)
		if err != nil {
			return err
		}
		if access != AccessGranted {
			fields := []zap.Field{zap.String("path", c.Request().URL.Path), zap.String("ip", c.RealIP())}
			if u != nil {
				fields = append(fields, zap.Int64("user_id", u.ID))
			}
			a.Logger.Warn("admin route denied", fields...)
			return ErrForbidden
		}
		return next(c)
	}
}

// requireLogin sends anonymous sessions to the login page with msg flashed.
func (a *App) requireLogin(msg string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			_, access, err := a.Authorize(c, LevelLogin)
			if err != nil {
				return err
			}
			if access != AccessGranted {
				return redirectWithFlash(c, "/login", msg)
			}
			return next(c)
		}
	}
}

func setUserSession(c echo.Context, u User) error {
	sess, err := session.Get(sessionName, c)
	if err != nil && sess == nil {
		return err
	}
	sess.Values[sessionUserKey] = u.ID
	c.Set(currentUserKey, &u)
	return sess.Save(c.Request(), c.Response())
}

func clearSession(c echo.Context) error {
	sess, err := session.Get(sessionName, c)
	if err != nil && sess == nil {
		return err
	}
	delete(sess.Values, sessionUserKey)
	sess.Options.MaxAge = -1
	return sess.Save(c.Request(), c.Response())
}

func addFlash(c echo.Context, msg string) error {
	sess, err := session.Get(sessionName, c)
	if err != nil && sess == nil {
		return err
	}
	sess.AddFlash(msg)
	return sess.Save(c.Request(), c.Response())
}

// takeFlashes pops pending flash messages. It must run before the response
// header is written.
func takeFlashes(c echo.Context) []string {
	sess, err := session.Get(sessionName, c)
	if err != nil && sess == nil {
		return nil
	}
	raw := sess.Flashes()
	if len(raw) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(raw))
	for _, f := range raw {
		if s, ok := f.(string); ok {
			msgs = append(msgs, s)
		}
	}
	_ = sess.Save(c.Request(), c.Response())
	return msgs
}

func redirectWithFlash(c echo.Context, to, msg string) error {
	if err := addFlash(c, msg); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, to)
}

// CsrfToken extracts the CSRF token from the Echo context.
func CsrfToken(c echo.Context) string {
	token, _ := c.Get(middleware.DefaultCSRFConfig.ContextKey).(string)
	return token
}
