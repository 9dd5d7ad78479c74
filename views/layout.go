package views

import (
	"bytes"
	"context"
	"html"
	"io"
	"strings"

	"github.com/a-h/templ"

	"github.com/eringen/cleanblog"
)

// page wraps body in the shared document shell: head, navigation, flashes
// and footer.
func page(p cleanblog.Page, header headerData, body func(buf *bytes.Buffer)) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var buf bytes.Buffer
		writeHead(&buf, p)
		writeNav(&buf, p)
		writeHeader(&buf, header)
		writeFlashes(&buf, p.Flashes)
		buf.WriteString(`<main class="container">`)
		body(&buf)
		buf.WriteString(`</main>`)
		writeFooter(&buf, p)
		_, err := w.Write(buf.Bytes())
		return err
	})
}

// headerData is the masthead shown above the page content.
type headerData struct {
	Heading    string
	Subheading string
	Meta       string
	ImageURL   string
}

func writeHead(buf *bytes.Buffer, p cleanblog.Page) {
	buf.WriteString(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
	buf.WriteString(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
	buf.WriteString(`<title>` + esc(p.Meta.Title) + `</title>`)
	if p.Meta.Description != "" {
		buf.WriteString(`<meta name="description" content="` + esc(p.Meta.Description) + `">`)
		buf.WriteString(`<meta property="og:description" content="` + esc(p.Meta.Description) + `">`)
	}
	buf.WriteString(`<meta property="og:title" content="` + esc(p.Meta.Title) + `">`)
	buf.WriteString(`<meta property="og:type" content="` + esc(p.Meta.OGType) + `">`)
	if p.Meta.URL != "" {
		buf.WriteString(`<meta property="og:url" content="` + esc(p.Meta.URL) + `">`)
		buf.WriteString(`<link rel="canonical" href="` + esc(p.Meta.URL) + `">`)
	}
	buf.WriteString(`<link rel="alternate" type="application/rss+xml" title="` + esc(p.Site.Name) + `" href="/feed.xml">`)
	buf.WriteString(`<link rel="stylesheet" href="/public/styles.css">`)
	buf.WriteString(`</head><body>`)
}

func writeNav(buf *bytes.Buffer, p cleanblog.Page) {
	buf.WriteString(`<nav class="navbar"><a class="brand" href="/">` + esc(p.Site.Name) + `</a><ul>`)
	navLink(buf, "/", "Home")
	navLink(buf, "/about", "About")
	navLink(buf, "/contact", "Contact")
	switch {
	case p.LoggedIn():
		if p.IsAdmin() {
			navLink(buf, "/admin/images", "Images")
		}
		buf.WriteString(`<li><span class="user">` + esc(p.CurrentUser.Username) + `</span></li>`)
		navLink(buf, "/logout", "Log Out")
	default:
		navLink(buf, "/login", "Login")
		navLink(buf, "/register", "Register")
	}
	buf.WriteString(`</ul></nav>`)
}

func navLink(buf *bytes.Buffer, href, label string) {
	buf.WriteString(`<li><a href="` + esc(href) + `">` + esc(label) + `</a></li>`)
}

func writeHeader(buf *bytes.Buffer, h headerData) {
	buf.WriteString(`<header class="masthead"`)
	if h.ImageURL != "" {
		buf.WriteString(` style="background-image: url('` + esc(cssURL(h.ImageURL)) + `')"`)
	}
	buf.WriteString(`><div class="heading"><h1>` + esc(h.Heading) + `</h1>`)
	if h.Subheading != "" {
		buf.WriteString(`<h2 class="subheading">` + esc(h.Subheading) + `</h2>`)
	}
	if h.Meta != "" {
		buf.WriteString(`<span class="meta">` + esc(h.Meta) + `</span>`)
	}
	buf.WriteString(`</div></header>`)
}

func writeFlashes(buf *bytes.Buffer, flashes []string) {
	if len(flashes) == 0 {
		return
	}
	buf.WriteString(`<div class="flashes">`)
	for _, f := range flashes {
		buf.WriteString(`<p class="flash">` + esc(f) + `</p>`)
	}
	buf.WriteString(`</div>`)
}

func writeFooter(buf *bytes.Buffer, p cleanblog.Page) {
	buf.WriteString(`<footer><p class="copyright">`)
	if p.Site.Author != "" {
		buf.WriteString(`Copyright &copy; ` + esc(p.Site.Author))
	} else {
		buf.WriteString(esc(p.Site.Name))
	}
	buf.WriteString(`</p></footer></body></html>`)
}

func csrfField(buf *bytes.Buffer, token string) {
	buf.WriteString(`<input type="hidden" name="_csrf" value="` + esc(token) + `">`)
}

// field writes a labelled input with its validation message, if any.
func field(buf *bytes.Buffer, kind, name, label, value string, errs cleanblog.FieldErrors) {
	buf.WriteString(`<div class="field"><label for="` + esc(name) + `">` + esc(label) + `</label>`)
	buf.WriteString(`<input type="` + esc(kind) + `" id="` + esc(name) + `" name="` + esc(name) + `" value="` + esc(value) + `">`)
	fieldError(buf, name, errs)
	buf.WriteString(`</div>`)
}

func textarea(buf *bytes.Buffer, name, label, value string, errs cleanblog.FieldErrors) {
	buf.WriteString(`<div class="field"><label for="` + esc(name) + `">` + esc(label) + `</label>`)
	buf.WriteString(`<textarea id="` + esc(name) + `" name="` + esc(name) + `" rows="8">` + esc(value) + `</textarea>`)
	fieldError(buf, name, errs)
	buf.WriteString(`</div>`)
}

func fieldError(buf *bytes.Buffer, name string, errs cleanblog.FieldErrors) {
	if msg, ok := errs[name]; ok {
		buf.WriteString(`<p class="error" data-field="` + esc(name) + `">` + esc(msg) + `</p>`)
	}
}

func esc(s string) string {
	return html.EscapeString(s)
}

// cssURLEscaper percent-encodes the characters that could end a quoted CSS url().
var cssURLEscaper = strings.NewReplacer(`'`, "%27", `"`, "%22", "(", "%28", ")", "%29", "\\", "%5C", "\n", "%0A", "\r", "%0D")

func cssURL(u string) string {
	return cssURLEscaper.Replace(u)
}
