package cleanblog

import (
	"errors"
	"net/http"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Render writes a templ component as an HTTP 200 HTML response.
func Render(c echo.Context, cmp templ.Component) error {
	return RenderStatus(c, http.StatusOK, cmp)
}

// RenderStatus writes a templ component with a specific HTTP status code.
func RenderStatus(c echo.Context, code int, cmp templ.Component) error {
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(code)
	return cmp.Render(c.Request().Context(), c.Response().Writer)
}

// page builds the per-request view state. It pops pending flashes, so call it
// once per rendered response and before anything is written.
func (a *App) page(c echo.Context, title string) (Page, error) {
	u, err := a.CurrentUser(c)
	if err != nil {
		return Page{}, err
	}
	meta := PageMeta{
		Title:       a.Config.Name,
		Description: a.Config.Description,
		URL:         a.absURL(c.Request().URL.RequestURI()),
		OGType:      "website",
	}
	if title != "" {
		meta.Title = title + " | " + a.Config.Name
	}
	return Page{
		Site:        a.Config,
		Meta:        meta,
		CurrentUser: u,
		Flashes:     takeFlashes(c),
		CSRFToken:   CsrfToken(c),
	}, nil
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	var he *echo.HTTPError
	switch {
	case errors.Is(err, ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, ErrForbidden):
		code = http.StatusForbidden
	case errors.As(err, &he):
		code = he.Code
	}

	var view func(Page) templ.Component
	switch {
	case code == http.StatusNotFound:
		view = a.Views.NotFound
	case code == http.StatusForbidden:
		view = a.Views.Forbidden
	case code >= 500:
		a.Logger.Error("server error", zap.Error(err), zap.String("path", c.Request().URL.Path))
		view = a.Views.ServerError
	}
	if view == nil {
		a.Echo.DefaultHTTPErrorHandler(err, c)
		return
	}
	p, perr := a.page(c, http.StatusText(code))
	if perr != nil {
		p = Page{Site: a.Config}
	}
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	if rerr := RenderStatus(c, code, view(p)); rerr != nil {
		a.Logger.Error("render error page", zap.Error(rerr), zap.String("path", c.Request().URL.Path))
	}
}
