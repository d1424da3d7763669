package model

type Asset struct {
	ID              string `json:"id"`
	SiteID          string `json:"site_id" validate:"required"`
	ParentID        string `json:"parent_id,omitempty"`
	Thumbnail       string `json:"thumbnail,omitempty"`
	Dir             string `json:"dir"`
	Filename        string `json:"filename" validate:"required,max=255"`
	Title           string `json:"title"`
	ContentType     string `json:"content_type" validate:"required"`
	Size            int64  `json:"size" validate:"gt=0"`
	Width           int    `json:"width,omitempty"`
	Height          int    `json:"height,omitempty"`
	ThumbnailsCount int    `json:"thumbnails_count"`
	Ctime           int64  `json:"ctime"`
	Mtime           int64  `json:"mtime"`
}

// Key is the storage key of the asset file: "<dir>/<filename>".
func (a *Asset) Key() string {
	if a.Dir == "" {
		return a.Filename
	}
	return a.Dir + "/" + a.Filename
}

func (a *Asset) IsThumbnail() bool {
	return a.ParentID != ""
}

func (a *Asset) DisplayTitle() string {
	if a.Title == "" {
		return a.Filename
	}
	return a.Title
}
