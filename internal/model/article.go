package model

type Article struct {
	ID          string `json:"id"`
	SiteID      string `json:"site_id" validate:"required"`
	UserID      string `json:"user_id" validate:"required"`
	UpdaterID   string `json:"updater_id"`
	Title       string `json:"title" validate:"required,max=255"`
	Permalink   string `json:"permalink"`
	Excerpt     string `json:"excerpt"`
	Body        string `json:"body"`
	BodyHTML    string `json:"body_html"`
	Filter      string `json:"filter"`
	AuthorIP    string `json:"author_ip"`
	PublishedAt int64  `json:"published_at"`
	Ctime       int64  `json:"ctime"`
	Mtime       int64  `json:"mtime"`
}
