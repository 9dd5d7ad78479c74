// Package views provides plain HTML components for every cleanblog page.
// Sites that want their own markup can supply a different
// cleanblog.ViewFuncs.
package views

import (
	"bytes"
	"strconv"

	"github.com/a-h/templ"

	"github.com/eringen/cleanblog"
)

// Default returns the built-in ViewFuncs.
func Default() cleanblog.ViewFuncs {
	return cleanblog.ViewFuncs{
		Home:        Home,
		About:       About,
		Contact:     Contact,
		Post:        Post,
		PostForm:    PostForm,
		Register:    Register,
		Login:       Login,
		AdminImages: AdminImages,
		NotFound:    NotFound,
		Forbidden:   Forbidden,
		ServerError: ServerError,
	}
}

// Home lists every post, oldest first, with admin controls for the administrator.
func Home(p cleanblog.Page, posts []cleanblog.BlogPost) templ.Component {
	h := headerData{Heading: p.Site.Name, Subheading: p.Site.Description}
	return page(p, h, func(buf *bytes.Buffer) {
		buf.WriteString(`<script type="application/ld+json">` + cleanblog.WebsiteJsonLD(p.Site) + `</script>`)
		if len(posts) == 0 {
			buf.WriteString(`<p class="empty">No posts yet.</p>`)
		}
		for _, post := range posts {
			buf.WriteString(`<article class="post-preview"><a href="` + esc(post.Link()) + `">`)
			buf.WriteString(`<h2 class="post-title">` + esc(post.Title) + `</h2>`)
			buf.WriteString(`<h3 class="post-subtitle">` + esc(post.Subtitle) + `</h3></a>`)
			buf.WriteString(`<p class="post-meta">Posted by ` + esc(post.AuthorName) + ` on ` + esc(post.Date))
			if p.IsAdmin() {
				buf.WriteString(` <a class="delete" href="/delete?post_id=` + strconv.FormatInt(post.ID, 10) + `">✘</a>`)
			}
			buf.WriteString(`</p></article>`)
		}
		if p.IsAdmin() {
			buf.WriteString(`<p class="actions"><a class="button" href="/new-post">Create New Post</a></p>`)
		}
	})
}

// About is the static about page.
func About(p cleanblog.Page) templ.Component {
	h := headerData{Heading: "About Me", Subheading: "This is what I do."}
	return page(p, h, func(buf *bytes.Buffer) {
		buf.WriteString(`<p>` + esc(p.Site.Description) + `</p>`)
	})
}

// Contact is the static contact page.
func Contact(p cleanblog.Page) templ.Component {
	h := headerData{Heading: "Contact Me", Subheading: "Have questions? I have answers."}
	return page(p, h, func(buf *bytes.Buffer) {
		buf.WriteString(`<p>Want to get in touch? Reach `)
		if p.Site.Author != "" {
			buf.WriteString(esc(p.Site.Author))
		} else {
			buf.WriteString(`the author`)
		}
		buf.WriteString(` through ` + esc(p.Site.URL) + `.</p>`)
	})
}

// Post renders a post body, its comments and the comment box.
func Post(p cleanblog.Page, post cleanblog.BlogPost, comments []cleanblog.Comment, form cleanblog.CommentForm) templ.Component {
	h := headerData{
		Heading:    post.Title,
		Subheading: post.Subtitle,
		Meta:       "Posted by " + post.AuthorName + " on " + post.Date,
		ImageURL:   post.ImgURL,
	}
	return page(p, h, func(buf *bytes.Buffer) {
		buf.WriteString(`<script type="application/ld+json">` + cleanblog.BlogPostingJsonLD(post, p.Site) + `</script>`)
		// Bodies are sanitized before they are stored.
		buf.WriteString(`<article class="post-body">` + post.Body + `</article>`)
		if p.IsAdmin() {
			buf.WriteString(`<p class="actions"><a class="button" href="/edit-post?post_id=` + strconv.FormatInt(post.ID, 10) + `">Edit Post</a></p>`)
		}

		buf.WriteString(`<section class="comments"><h4>Comments</h4>`)
		buf.WriteString(`<form method="post" action="` + esc(post.Link()) + `">`)
		csrfField(buf, p.CSRFToken)
		textarea(buf, "text", "Comment", form.Text, form.Errors)
		buf.WriteString(`<button type="submit">Submit Comment</button></form><ul class="comment-list">`)
		for _, cm := range comments {
			buf.WriteString(`<li class="comment"><div class="comment-text">` + cm.Text + `</div>`)
			buf.WriteString(`<span class="comment-author">` + esc(cm.AuthorName) + `</span></li>`)
		}
		buf.WriteString(`</ul></section>`)
	})
}

// PostForm is the create and edit form for posts.
func PostForm(p cleanblog.Page, form cleanblog.PostForm) templ.Component {
	h := headerData{Heading: form.Heading, Subheading: "You're going to make a great blog post!"}
	return page(p, h, func(buf *bytes.Buffer) {
		buf.WriteString(`<form method="post" action="` + esc(form.Action) + `">`)
		csrfField(buf, p.CSRFToken)
		field(buf, "text", "title", "Blog Post Title", form.Input.Title, form.Errors)
		field(buf, "text", "subtitle", "Subtitle", form.Input.Subtitle, form.Errors)
		field(buf, "url", "img_url", "Blog Image URL", form.Input.ImgURL, form.Errors)
		textarea(buf, "body", "Blog Content", form.Input.Body, form.Errors)
		buf.WriteString(`<button type="submit">Submit Post</button></form>`)
	})
}

// Register is the sign-up form.
func Register(p cleanblog.Page, form cleanblog.RegisterForm) templ.Component {
	h := headerData{Heading: "Register", Subheading: "Start contributing to the blog!"}
	return page(p, h, func(buf *bytes.Buffer) {
		buf.WriteString(`<form method="post" action="/register">`)
		csrfField(buf, p.CSRFToken)
		field(buf, "email", "email", "Email", form.Email, form.Errors)
		field(buf, "password", "password", "Password", "", form.Errors)
		field(buf, "text", "username", "Name", form.Username, form.Errors)
		buf.WriteString(`<button type="submit">Sign Me Up!</button></form>`)
	})
}

// Login is the log-in form.
func Login(p cleanblog.Page, form cleanblog.LoginForm) templ.Component {
	h := headerData{Heading: "Log In", Subheading: "Welcome Back!"}
	return page(p, h, func(buf *bytes.Buffer) {
		buf.WriteString(`<form method="post" action="/login">`)
		csrfField(buf, p.CSRFToken)
		field(buf, "email", "email", "Email", form.Email, form.Errors)
		field(buf, "password", "password", "Password", "", form.Errors)
		buf.WriteString(`<button type="submit">Let Me In!</button></form>`)
	})
}

// AdminImages lists uploaded images with their absolute URLs and an upload form.
func AdminImages(p cleanblog.Page, images []cleanblog.Image) templ.Component {
	h := headerData{Heading: "Images", Subheading: "Header images for your posts."}
	return page(p, h, func(buf *bytes.Buffer) {
		buf.WriteString(`<form method="post" action="/admin/images/upload" enctype="multipart/form-data">`)
		csrfField(buf, p.CSRFToken)
		buf.WriteString(`<input type="file" name="image" accept="image/jpeg,image/png,image/gif">`)
		buf.WriteString(`<button type="submit">Upload</button></form><ul class="images">`)
		for _, img := range images {
			u := img.URL(p.Site.URL)
			buf.WriteString(`<li><img src="` + esc(u) + `" alt="` + esc(img.OriginalName) + `" width="160">`)
			buf.WriteString(`<code>` + esc(u) + `</code> <span>` + strconv.Itoa(img.Width) + `×` + strconv.Itoa(img.Height) + `</span></li>`)
		}
		buf.WriteString(`</ul>`)
	})
}

// NotFound is the 404 page.
func NotFound(p cleanblog.Page) templ.Component {
	return errorPage(p, "Page not found", "The page you were looking for does not exist.")
}

// Forbidden is the 403 page.
func Forbidden(p cleanblog.Page) templ.Component {
	return errorPage(p, "Forbidden", "You are not allowed to do that.")
}

// ServerError is the 500 page.
func ServerError(p cleanblog.Page) templ.Component {
	return errorPage(p, "Something went wrong", "Please try again in a moment.")
}

func errorPage(p cleanblog.Page, heading, text string) templ.Component {
	return page(p, headerData{Heading: heading}, func(buf *bytes.Buffer) {
		buf.WriteString(`<p>` + esc(text) + ` <a href="/">Back to the blog</a></p>`)
	})
}
