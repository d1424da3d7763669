package converter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

type dump struct {
	Users    []*SourceUser    `json:"users"`
	Articles []*SourceArticle `json:"articles"`
}

// JSONSource reads a dump of the form
// {"users": [...], "articles": [{..., "comments": [...]}]}.
type JSONSource struct {
	BaseSource
	data dump
}

func LoadJSONSource(path string) (*JSONSource, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dump: %w", err)
	}
	defer file.Close()
	return DecodeJSONSource(file)
}

func DecodeJSONSource(r io.Reader) (*JSONSource, error) {
	var data dump
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode dump: %w", err)
	}
	return &JSONSource{data: data}, nil
}

func (s *JSONSource) Name() string {
	return "json"
}

func (s *JSONSource) Users(ctx context.Context) ([]*SourceUser, error) {
	return s.data.Users, nil
}

func (s *JSONSource) Articles(ctx context.Context) ([]*SourceArticle, error) {
	return s.data.Articles, nil
}

func (s *JSONSource) CommentsFor(ctx context.Context, article *SourceArticle) ([]*SourceComment, error) {
	return article.Comments, nil
}
