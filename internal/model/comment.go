package model

type Comment struct {
	ID          string `json:"id"`
	ArticleID   string `json:"article_id" validate:"required"`
	SiteID      string `json:"site_id"`
	Author      string `json:"author" validate:"required,max=100"`
	AuthorEmail string `json:"author_email" validate:"required,email"`
	AuthorURL   string `json:"author_url" validate:"omitempty,url"`
	AuthorIP    string `json:"author_ip"`
	Body        string `json:"body" validate:"required"`
	BodyHTML    string `json:"body_html"`
	Filter      string `json:"filter"`
	Approved    bool   `json:"approved"`
	Ctime       int64  `json:"ctime"`
}
