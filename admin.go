package cleanblog

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const duplicateTitleMessage = "A post with this title already exists."

func (a *App) handleNewPostForm(c echo.Context) error {
	return a.renderPostForm(c, http.StatusOK, newPostForm(PostInput{}, nil))
}

func (a *App) handleNewPost(c echo.Context) error {
	var in PostInput
	if err := c.Bind(&in); err != nil {
		return err
	}
	u, err := a.CurrentUser(c)
	if err != nil {
		return err
	}
	if u == nil {
		return ErrForbidden
	}
	post, err := a.Store.CreatePost(*u, in)
	if fe, ok := formErrors(err); ok {
		return a.renderPostForm(c, http.StatusUnprocessableEntity, newPostForm(in, fe))
	}
	if err != nil {
		return err
	}
	a.Cache.Invalidate()
	a.Logger.Info("post created", zap.Int64("post_id", post.ID), zap.String("title", post.Title))
	return c.Redirect(http.StatusSeeOther, "/")
}

func (a *App) handleEditPostForm(c echo.Context) error {
	id, err := parseID(c.QueryParam("post_id"))
	if err != nil {
		return err
	}
	post, err := a.Store.GetPost(id)
	if err != nil {
		return err
	}
	in := PostInput{Title: post.Title, Subtitle: post.Subtitle, ImgURL: post.ImgURL, Body: post.Body}
	return a.renderPostForm(c, http.StatusOK, editPostForm(id, in, nil))
}

func (a *App) handleEditPost(c echo.Context) error {
	id, err := parseID(c.QueryParam("post_id"))
	if err != nil {
		return err
	}
	var in PostInput
	if err := c.Bind(&in); err != nil {
		return err
	}
	post, err := a.Store.UpdatePost(id, FullUpdate(in))
	if fe, ok := formErrors(err); ok {
		return a.renderPostForm(c, http.StatusUnprocessableEntity, editPostForm(id, in, fe))
	}
	if err != nil {
		return err
	}
	a.Cache.Invalidate()
	a.Logger.Info("post updated", zap.Int64("post_id", post.ID))
	return c.Redirect(http.StatusSeeOther, post.Link())
}

func (a *App) handleDeletePost(c echo.Context) error {
	id, err := parseID(c.QueryParam("post_id"))
	if err != nil {
		return err
	}
	if err := a.Store.DeletePost(id); err != nil {
		return err
	}
	a.Cache.Invalidate()
	a.Logger.Info("post deleted", zap.Int64("post_id", id))
	return c.Redirect(http.StatusSeeOther, "/")
}

func newPostForm(in PostInput, fe FieldErrors) PostForm {
	return PostForm{Heading: "New Post", Action: "/new-post", Input: in, Errors: fe}
}

func editPostForm(id int64, in PostInput, fe FieldErrors) PostForm {
	return PostForm{Heading: "Edit Post", Action: editPostPath(id), Input: in, Errors: fe}
}

// formErrors turns validation and duplicate-title failures into field errors
// for re-rendering.
func formErrors(err error) (FieldErrors, bool) {
	var fe FieldErrors
	switch {
	case errors.As(err, &fe):
		return fe, true
	case errors.Is(err, ErrDuplicateTitle):
		return FieldErrors{"title": duplicateTitleMessage}, true
	}
	return nil, false
}

func (a *App) renderPostForm(c echo.Context, code int, form PostForm) error {
	p, err := a.page(c, form.Heading)
	if err != nil {
		return err
	}
	return RenderStatus(c, code, a.Views.PostForm(p, form))
}
