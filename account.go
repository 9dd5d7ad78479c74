package cleanblog

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const (
	flashDuplicateEmail    = "You've already signed up with that email, log in instead!"
	flashDuplicateUsername = "That username is taken, please choose another."
	flashBadPassword       = "Password incorrect, please try again."
	flashUnknownEmail      = "That email does not exist, please try again."
)

func (a *App) handleRegisterForm(c echo.Context) error {
	return a.renderRegister(c, http.StatusOK, RegisterForm{})
}

func (a *App) handleRegister(c echo.Context) error {
	var in RegisterInput
	if err := c.Bind(&in); err != nil {
		return err
	}
	u, err := a.Store.Register(in)
	var fe FieldErrors
	switch {
	case errors.Is(err, ErrDuplicateEmail):
		return redirectWithFlash(c, "/login", flashDuplicateEmail)
	case errors.Is(err, ErrDuplicateUsername):
		return redirectWithFlash(c, "/register", flashDuplicateUsername)
	case errors.As(err, &fe):
		in.normalize()
		return a.renderRegister(c, http.StatusUnprocessableEntity, RegisterForm{Username: in.Username, Email: in.Email, Errors: fe})
	case err != nil:
		return err
	}
	if err := setUserSession(c, u); err != nil {
		return err
	}
	a.Logger.Info("user registered", zap.Int64("user_id", u.ID), zap.Bool("admin", u.IsAdmin()))
	return c.Redirect(http.StatusSeeOther, "/")
}

func (a *App) renderRegister(c echo.Context, code int, form RegisterForm) error {
	p, err := a.page(c, "Register")
	if err != nil {
		return err
	}
	return RenderStatus(c, code, a.Views.Register(p, form))
}

func (a *App) handleLoginForm(c echo.Context) error {
	return a.renderLogin(c, http.StatusOK, LoginForm{})
}

func (a *App) handleLogin(c echo.Context) error {
	ip := c.RealIP()
	if !a.loginLimiter.Check(ip) {
		a.Logger.Warn("login rate limited", zap.String("ip", ip))
		return echo.NewHTTPError(http.StatusTooManyRequests, "Too many login attempts. Try again later.")
	}
	var in LoginInput
	if err := c.Bind(&in); err != nil {
		return err
	}
	in.normalize()
	if err := validateInput(in); err != nil {
		var fe FieldErrors
		if errors.As(err, &fe) {
			return a.renderLogin(c, http.StatusUnprocessableEntity, LoginForm{Email: in.Email, Errors: fe})
		}
		return err
	}
	u, err := a.Store.Authenticate(in.Email, in.Password)
	switch {
	case errors.Is(err, ErrUnknownEmail):
		a.loginLimiter.Record(ip)
		return redirectWithFlash(c, "/login", flashUnknownEmail)
	case errors.Is(err, ErrBadPassword):
		a.loginLimiter.Record(ip)
		return redirectWithFlash(c, "/login", flashBadPassword)
	case err != nil:
		return err
	}
	a.loginLimiter.Reset(ip)
	if err := setUserSession(c, u); err != nil {
		return err
	}
	a.Logger.Info("user logged in", zap.Int64("user_id", u.ID))
	return c.Redirect(http.StatusSeeOther, "/")
}

func (a *App) renderLogin(c echo.Context, code int, form LoginForm) error {
	p, err := a.page(c, "Log In")
	if err != nil {
		return err
	}
	return RenderStatus(c, code, a.Views.Login(p, form))
}

// handleLogout is idempotent: anonymous sessions are simply redirected.
func handleLogout(c echo.Context) error {
	if err := clearSession(c); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/")
}
