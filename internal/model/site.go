package model

type Site struct {
	ID     string `json:"id"`
	Title  string `json:"title" validate:"required"`
	Host   string `json:"host" validate:"required,hostname_port|hostname"`
	Filter string `json:"filter"`
	Ctime  int64  `json:"ctime"`
	Mtime  int64  `json:"mtime"`
}
