package converter

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/mephisto/internal/model"
)

const sampleDump = `{
  "users": [{"login": "alice", "email": "alice@example.com", "display_name": "Alice"}],
  "articles": [
    {"key": "p1", "author": "alice", "title": "Hello world", "body": "*hi*",
     "comments": [{"author": "Ann", "author_email": "ann@example.com", "body": "welcome"}]},
    {"key": "p2", "title": "No comments", "body": "quiet"}
  ]
}`

func TestDecodeJSONSource(t *testing.T) {
	src, err := DecodeJSONSource(strings.NewReader(sampleDump))
	require.NoError(t, err)
	require.Equal(t, "json", src.Name())

	users, err := src.Users(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 1)
	require.Equal(t, "Alice", users[0].DisplayName)

	articles, err := src.Articles(context.Background())
	require.NoError(t, err)
	require.Len(t, articles, 2)
	comments, err := src.CommentsFor(context.Background(), articles[0])
	require.NoError(t, err)
	require.Len(t, comments, 1)

	_, err = DecodeJSONSource(strings.NewReader("{"))
	require.Error(t, err)
}

func TestConvertFromJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dump.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleDump), 0o600))
	src, err := LoadJSONSource(path)
	require.NoError(t, err)

	f := newImportFixture(t)
	run := f.run(t, Options{Filter: "markdown"})
	counters, err := Convert(context.Background(), run, src, DefaultMappers())
	require.NoError(t, err)
	require.Equal(t, model.ImportCounters{Users: 1, Articles: 2, Comments: 1}, counters)

	alice, err := f.users.GetByLogin(context.Background(), "alice")
	require.NoError(t, err)
	require.Equal(t, alice.ID, f.articles.items[0].UserID)
	require.Equal(t, alice.ID, f.articles.items[1].UserID)
	require.Contains(t, f.articles.items[0].BodyHTML, "<em>hi</em>")

	_, err = LoadJSONSource(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}

func TestOpenSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dump.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleDump), 0o600))

	src, err := OpenSource("JSON", path)
	require.NoError(t, err)
	require.Equal(t, "json", src.Name())

	_, err = OpenSource("typo", path)
	require.Error(t, err)
}
