package cleanblog

import (
	"net/url"
	"time"
)

// AdminUserID is the id of the single administrator: the first account ever
// registered.
const AdminUserID int64 = 1

// PostDateLayout is the layout of BlogPost.Date.
const PostDateLayout = "January 02, 2006"

// User is a registered account. Passwords are stored as bcrypt hashes only.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// IsAdmin reports whether u is the distinguished administrator.
func (u User) IsAdmin() bool {
	return u.ID == AdminUserID
}

// BlogPost is the core content type stored in SQLite and rendered by templates.
type BlogPost struct {
	ID         int64
	Title      string
	Subtitle   string
	Date       string
	Body       string
	ImgURL     string
	AuthorID   int64
	AuthorName string
}

// Link is the site-relative URL of the post page.
func (p BlogPost) Link() string {
	return postPath(p.ID)
}

// Published parses Date back into a time.
func (p BlogPost) Published() (time.Time, error) {
	return time.Parse(PostDateLayout, p.Date)
}

// Comment is a reader's note on a post. Comments are never edited.
type Comment struct {
	ID         int64
	PostID     int64
	AuthorID   int64
	AuthorName string
	Text       string
	CreatedAt  time.Time
}

// Image is an uploaded header image stored under the static uploads directory.
type Image struct {
	Filename     string
	OriginalName string
	Width        int
	Height       int
	Size         int
	UploadedAt   string
}

// URL is the absolute address of the image, usable as a post's img_url.
func (img Image) URL(siteURL string) string {
	u, err := url.JoinPath(siteURL, "public", uploadsSubdir, img.Filename)
	if err != nil {
		return "/public/" + uploadsSubdir + "/" + img.Filename
	}
	return u
}

// PageMeta carries per-page OpenGraph and SEO metadata into the <head> template.
type PageMeta struct {
	Title       string
	Description string
	URL         string // canonical + og:url
	OGType      string // "website" or "article"
}

// Page is the per-request state every view receives.
type Page struct {
	Site        SiteConfig
	Meta        PageMeta
	CurrentUser *User
	Flashes     []string
	CSRFToken   string
}

// LoggedIn reports whether the request carries an authenticated user.
func (p Page) LoggedIn() bool {
	return p.CurrentUser != nil
}

// IsAdmin reports whether the request belongs to the administrator.
func (p Page) IsAdmin() bool {
	return p.CurrentUser != nil && p.CurrentUser.IsAdmin()
}
