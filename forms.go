package cleanblog

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// PostInput is the submitted content of the post-authoring form.
type PostInput struct {
	Title    string `form:"title" validate:"required,max=250"`
	Subtitle string `form:"subtitle" validate:"required,max=250"`
	ImgURL   string `form:"img_url" validate:"required,http_url,max=250"`
	Body     string `form:"body" validate:"required"`
}

func (in *PostInput) normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Subtitle = strings.TrimSpace(in.Subtitle)
	in.ImgURL = strings.TrimSpace(in.ImgURL)
	in.Body = strings.TrimSpace(in.Body)
}

// PostUpdate replaces the non-nil fields of a post. Author and date are not
// editable.
type PostUpdate struct {
	Title    *string
	Subtitle *string
	ImgURL   *string
	Body     *string
}

// FullUpdate turns a complete form submission into a PostUpdate.
func FullUpdate(in PostInput) PostUpdate {
	return PostUpdate{Title: &in.Title, Subtitle: &in.Subtitle, ImgURL: &in.ImgURL, Body: &in.Body}
}

// apply returns the input obtained by overlaying u on p.
func (u PostUpdate) apply(p BlogPost) PostInput {
	in := PostInput{Title: p.Title, Subtitle: p.Subtitle, ImgURL: p.ImgURL, Body: p.Body}
	if u.Title != nil {
		in.Title = *u.Title
	}
	if u.Subtitle != nil {
		in.Subtitle = *u.Subtitle
	}
	if u.ImgURL != nil {
		in.ImgURL = *u.ImgURL
	}
	if u.Body != nil {
		in.Body = *u.Body
	}
	return in
}

// RegisterInput is the submitted registration form.
type RegisterInput struct {
	Username string `form:"username" validate:"required,min=3,max=30"`
	Email    string `form:"email" validate:"required,email,max=100"`
	Password string `form:"password" validate:"required,min=6,maxbytes=72"`
}

func (in *RegisterInput) normalize() {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = normalizeEmail(in.Email)
}

// LoginInput is the submitted login form.
type LoginInput struct {
	Email    string `form:"email" validate:"required,email,max=100"`
	Password string `form:"password" validate:"required,maxbytes=72"`
}

func (in *LoginInput) normalize() {
	in.Email = normalizeEmail(in.Email)
}

// CommentInput is the submitted comment form.
type CommentInput struct {
	Text string `form:"text" validate:"required,max=5000"`
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// PostForm is the state of the post-authoring form handed to the view.
// Errors is empty for a fresh (or pre-populated) form.
type PostForm struct {
	Heading string
	Action  string
	Input   PostInput
	Errors  FieldErrors
}

// RegisterForm is the registration form state. The password is never echoed back.
type RegisterForm struct {
	Username string
	Email    string
	Errors   FieldErrors
}

// LoginForm is the login form state.
type LoginForm struct {
	Email  string
	Errors FieldErrors
}

// CommentForm is the comment box state under a post.
type CommentForm struct {
	Text   string
	Errors FieldErrors
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// bcrypt refuses passwords longer than 72 bytes; max counts runes.
	_ = v.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
		n, err := strconv.Atoi(fl.Param())
		return err == nil && len(fl.Field().String()) <= n
	})
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
		if name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// validateInput runs the struct's validate tags and converts failures to
// FieldErrors keyed by form field name.
func validateInput(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fe := FieldErrors{}
	for _, e := range verrs {
		if _, seen := fe[e.Field()]; !seen {
			fe[e.Field()] = fieldMessage(e)
		}
	}
	return fe
}

func fieldMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "url", "http_url":
		return "Enter a valid URL."
	case "min":
		return fmt.Sprintf("Must be at least %s characters.", e.Param())
	case "max":
		return fmt.Sprintf("Must be at most %s characters.", e.Param())
	case "maxbytes":
		return fmt.Sprintf("Must be at most %s bytes.", e.Param())
	}
	return "Invalid value."
}
