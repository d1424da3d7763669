package model

type User struct {
	ID           string `json:"id"`
	Login        string `json:"login" validate:"required,max=40"`
	Email        string `json:"email" validate:"required,email"`
	DisplayName  string `json:"display_name"`
	PasswordHash string `json:"-"`
	Admin        bool   `json:"admin"`
	Ctime        int64  `json:"ctime"`
	Mtime        int64  `json:"mtime"`
}

type Membership struct {
	SiteID string `json:"site_id"`
	UserID string `json:"user_id"`
	Admin  bool   `json:"admin"`
	Ctime  int64  `json:"ctime"`
}
