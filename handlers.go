package cleanblog

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const commentLoginFlash = "You need to login or register to comment."

func (a *App) handleHome(c echo.Context) error {
	posts, err := a.Cache.ListPosts()
	if err != nil {
		return err
	}
	p, err := a.page(c, "")
	if err != nil {
		return err
	}
	return Render(c, a.Views.Home(p, posts))
}

func (a *App) handleAbout(c echo.Context) error {
	p, err := a.page(c, "About")
	if err != nil {
		return err
	}
	return Render(c, a.Views.About(p))
}

func (a *App) handleContact(c echo.Context) error {
	p, err := a.page(c, "Contact")
	if err != nil {
		return err
	}
	return Render(c, a.Views.Contact(p))
}

func (a *App) handlePost(c echo.Context) error {
	id, err := parseID(c.QueryParam("index"))
	if err != nil {
		return err
	}
	return a.renderPost(c, id, http.StatusOK, CommentForm{})
}

func (a *App) renderPost(c echo.Context, id int64, code int, form CommentForm) error {
	post, err := a.Cache.GetPost(id)
	if err != nil {
		return err
	}
	comments, err := a.Store.GetCommentsByPost(id)
	if err != nil {
		return err
	}
	p, err := a.page(c, post.Title)
	if err != nil {
		return err
	}
	p.Meta.Description = post.Subtitle
	p.Meta.OGType = "article"
	return RenderStatus(c, code, a.Views.Post(p, post, comments, form))
}

func (a *App) handleComment(c echo.Context) error {
	id, err := parseID(c.QueryParam("index"))
	if err != nil {
		return err
	}
	var in CommentInput
	if err := c.Bind(&in); err != nil {
		return err
	}
	u, err := a.CurrentUser(c)
	if err != nil {
		return err
	}
	comment, err := a.Store.AddComment(id, u, in)
	var fe FieldErrors
	switch {
	case errors.Is(err, ErrLoginRequired):
		return redirectWithFlash(c, "/login", commentLoginFlash)
	case errors.As(err, &fe):
		return a.renderPost(c, id, http.StatusUnprocessableEntity, CommentForm{Text: in.Text, Errors: fe})
	case err != nil:
		return err
	}
	a.Logger.Info("comment added", zap.Int64("post_id", id), zap.Int64("comment_id", comment.ID), zap.Int64("user_id", u.ID))
	return c.Redirect(http.StatusSeeOther, postPath(id))
}

func (a *App) handleSitemap(c echo.Context) error {
	posts, err := a.Cache.ListPosts()
	if err != nil {
		return err
	}
	return a.renderSitemap(c, posts)
}

func (a *App) handleFeed(c echo.Context) error {
	posts, err := a.Cache.ListPosts()
	if err != nil {
		return err
	}
	return a.renderRSS(c, posts)
}

func handleHealth(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}
