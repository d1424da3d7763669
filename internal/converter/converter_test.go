package converter

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/mephisto/internal/model"
	appErr "github.com/xxxsen/mephisto/internal/pkg/errors"
	"github.com/xxxsen/mephisto/internal/service"
)

type importFixture struct {
	site     *model.Site
	userRepo *memUsers
	users    *service.UserService
	articles *memArticles
	comments *memComments
}

func newImportFixture(t *testing.T) *importFixture {
	t.Helper()
	userRepo := &memUsers{}
	return &importFixture{
		site:     &model.Site{ID: "site-1", Title: "Blog", Host: "blog.example.com", Filter: "textile_filter"},
		userRepo: userRepo,
		users:    service.NewUserService(userRepo),
		articles: &memArticles{},
		comments: &memComments{},
	}
}

func (f *importFixture) run(t *testing.T, opts Options) *Run {
	t.Helper()
	if opts.NewUserPassword == "" {
		opts.NewUserPassword = "mephistomigrator"
	}
	run, err := NewRun(f.site, f.users,
		service.NewArticleService(f.articles),
		service.NewCommentService(f.comments),
		opts)
	require.NoError(t, err)
	return run
}

func (f *importFixture) addUser(t *testing.T, login string) *model.User {
	t.Helper()
	user := &model.User{Login: login, Email: login + "@example.com"}
	require.NoError(t, f.users.Create(context.Background(), user, "secret"))
	return user
}

func sampleArticles() []*SourceArticle {
	return []*SourceArticle{
		{Key: "1", Author: "alice", Title: "First post", Body: "hello", Comments: []*SourceComment{
			{Author: "Ann", AuthorEmail: "ann@example.com", Body: "nice"},
			{Author: "Ben", AuthorEmail: "ben@example.com", AuthorURL: "http://ben.example.com/", Body: "great"},
		}},
		{Key: "2", Author: "bob", Title: "Second post", Body: "again", Comments: []*SourceComment{
			{Author: "Cid", AuthorEmail: "cid@example.com", Body: "ok"},
			{Author: "Dee", AuthorEmail: "dee@example.com", Body: "meh"},
		}},
		{Key: "3", Author: "nobody", Title: "Third post", Body: "bye", Comments: []*SourceComment{
			{Author: "Eve", AuthorEmail: "eve@example.com", Body: "bye!"},
		}},
	}
}

type staticSource struct {
	BaseSource
	users    []*SourceUser
	articles []*SourceArticle
}

func (s *staticSource) Name() string { return "static" }

func (s *staticSource) Users(ctx context.Context) ([]*SourceUser, error) { return s.users, nil }

func (s *staticSource) Articles(ctx context.Context) ([]*SourceArticle, error) {
	return s.articles, nil
}

func (s *staticSource) CommentsFor(ctx context.Context, article *SourceArticle) ([]*SourceComment, error) {
	return article.Comments, nil
}

func TestConvertEndToEnd(t *testing.T) {
	f := newImportFixture(t)
	f.addUser(t, "alice")
	run := f.run(t, Options{Filter: "markdown"})

	src := &staticSource{
		users: []*SourceUser{
			{Login: "alice", Email: "alice@other.example.com"},
			{Login: "bob", Email: "bob@example.com"},
		},
		articles: sampleArticles(),
	}
	counters, err := Convert(context.Background(), run, src, DefaultMappers())
	require.NoError(t, err)
	require.Equal(t, model.ImportCounters{Users: 1, Articles: 3, Comments: 5}, counters)

	comments := f.comments.all()
	require.Len(t, comments, 5)
	perArticle := map[string]int{"1": 2, "2": 2, "3": 1}
	for key, want := range perArticle {
		dest, ok := run.DestinationArticle(key)
		require.True(t, ok, key)
		got := 0
		for _, c := range comments {
			if c.ArticleID == dest {
				got++
			}
		}
		require.Equal(t, want, got, key)
	}
	for _, c := range comments {
		require.True(t, c.Approved)
		require.Equal(t, "127.0.0.1", c.AuthorIP)
		require.Equal(t, "textile_filter", c.Filter)
		require.Equal(t, "site-1", c.SiteID)
	}

	alice, err := f.users.GetByLogin(context.Background(), "alice")
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", alice.Email)
}

func TestImportUsersSkipsExistingLogin(t *testing.T) {
	f := newImportFixture(t)
	f.addUser(t, "alice")
	run := f.run(t, Options{})

	outcome, err := run.ImportUser(context.Background(), &SourceUser{Login: "alice", Email: "a@example.com"}, MapUser)
	require.NoError(t, err)
	require.Equal(t, model.OutcomeSkippedExisting, outcome)
	require.Equal(t, 0, run.Counters().Users)

	users, err := f.users.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, users, 1)
}

func TestImportUsersReplacesBadEmail(t *testing.T) {
	f := newImportFixture(t)
	run := f.run(t, Options{})

	src := &SourceUser{Login: "carol", Email: "not an email"}
	outcome, err := run.ImportUser(context.Background(), src, MapUser)
	require.NoError(t, err)
	require.Equal(t, model.OutcomeRecovered, outcome)
	require.Equal(t, 1, run.Counters().Users)

	carol, err := f.users.GetByLogin(context.Background(), "carol")
	require.NoError(t, err)
	require.Equal(t, "carol@nodomain.com", carol.Email)
	require.NotEmpty(t, carol.PasswordHash)
	require.Equal(t, "not an email", src.Email)
}

func TestImportUsersPlaceholderEmailUsesSourceLogin(t *testing.T) {
	f := newImportFixture(t)
	run := f.run(t, Options{})
	prefixed := func(ctx context.Context, run *Run, src *SourceUser) (*model.User, error) {
		return &model.User{Login: "old_" + src.Login, Email: src.Email}, nil
	}
	outcome, err := run.ImportUser(context.Background(), &SourceUser{Login: "erin", Email: "bad"}, prefixed)
	require.NoError(t, err)
	require.Equal(t, model.OutcomeRecovered, outcome)

	erin, err := f.users.GetByLogin(context.Background(), "old_erin")
	require.NoError(t, err)
	require.Equal(t, "erin@nodomain.com", erin.Email)
}

func TestImportUsersEmailRetryIsBounded(t *testing.T) {
	f := newImportFixture(t)
	run := f.run(t, Options{})
	calls := 0
	stubborn := func(ctx context.Context, run *Run, src *SourceUser) (*model.User, error) {
		calls++
		return &model.User{Login: src.Login, Email: "still bad"}, nil
	}
	outcome, err := run.ImportUser(context.Background(), &SourceUser{Login: "dave", Email: "bad"}, stubborn)
	require.ErrorIs(t, err, appErr.ErrInvalid)
	require.Equal(t, model.OutcomeFatal, outcome)
	require.Equal(t, 2, calls)
	require.Equal(t, 0, run.Counters().Users)
}

func TestImportUsersOtherFailureIsFatal(t *testing.T) {
	f := newImportFixture(t)
	run := f.run(t, Options{})
	_, err := run.ImportUsers(context.Background(), []*SourceUser{
		{Login: strings.Repeat("x", 41), Email: "long@example.com"},
	}, MapUser)
	verr, ok := appErr.AsValidation(err)
	require.True(t, ok)
	require.True(t, verr.Has("login"))
}

func TestImportArticlesFillsDefaults(t *testing.T) {
	f := newImportFixture(t)
	f.addUser(t, "someone")
	member := f.addUser(t, "editor")
	require.NoError(t, f.users.AddMember(context.Background(), f.site.ID, member.ID, true))
	run := f.run(t, Options{Filter: "markdown"})

	count, err := run.ImportArticles(context.Background(), []*SourceArticle{
		{Key: "a", Title: "Hello", Body: "# hi"},
	}, MapArticle)
	require.NoError(t, err)
	require.Equal(t, 1, count)

	article := f.articles.items[0]
	require.Equal(t, "site-1", article.SiteID)
	require.Equal(t, member.ID, article.UserID)
	require.Equal(t, member.ID, article.UpdaterID)
	require.Equal(t, "markdown_filter", article.Filter)
	require.Equal(t, "127.0.0.1", article.AuthorIP)
	require.Equal(t, "hello", article.Permalink)
	require.Contains(t, article.BodyHTML, "<h1")
}

func TestImportArticlesDefaultsToFirstUserWithoutMembers(t *testing.T) {
	f := newImportFixture(t)
	first := f.addUser(t, "first")
	f.addUser(t, "second")
	run := f.run(t, Options{})

	_, err := run.ImportArticles(context.Background(), []*SourceArticle{{Key: "a", Title: "Hello"}}, MapArticle)
	require.NoError(t, err)
	require.Equal(t, first.ID, f.articles.items[0].UserID)
	require.Equal(t, "textile_filter", f.articles.items[0].Filter)
}

func TestImportArticlesValidationIsFatal(t *testing.T) {
	f := newImportFixture(t)
	f.addUser(t, "first")
	run := f.run(t, Options{})

	_, err := run.ImportArticles(context.Background(), []*SourceArticle{
		{Key: "a", Title: "ok"},
		{Key: "b", Title: ""},
		{Key: "c", Title: "never reached"},
	}, MapArticle)
	verr, ok := appErr.AsValidation(err)
	require.True(t, ok)
	require.True(t, verr.Has("title"))
	require.Equal(t, 1, run.Counters().Articles)
	require.Len(t, f.articles.items, 1)
}

func TestImportCommentsBeforeArticlesFailsFast(t *testing.T) {
	f := newImportFixture(t)
	run := f.run(t, Options{})
	src := sampleArticles()
	_, err := run.ImportComments(context.Background(), src, (&staticSource{}).CommentsFor, MapComment)
	require.ErrorIs(t, err, appErr.ErrArticlesNotImported)
	require.Empty(t, f.comments.all())
}

func TestImportCommentsUnknownArticleFailsFast(t *testing.T) {
	f := newImportFixture(t)
	f.addUser(t, "alice")
	run := f.run(t, Options{})
	src := sampleArticles()
	_, err := run.ImportArticles(context.Background(), src[:1], MapArticle)
	require.NoError(t, err)

	_, err = run.ImportComments(context.Background(), src, (&staticSource{}).CommentsFor, MapComment)
	require.ErrorIs(t, err, appErr.ErrArticlesNotImported)
	require.Len(t, f.comments.all(), 2)
}

func TestImportCommentsSkipsCommentsOfSkippedArticles(t *testing.T) {
	f := newImportFixture(t)
	f.addUser(t, "alice")
	run := f.run(t, Options{})
	src := sampleArticles()
	skipSecond := func(ctx context.Context, run *Run, a *SourceArticle) (*model.Article, error) {
		if a.Key == "2" {
			return nil, nil
		}
		return MapArticle(ctx, run, a)
	}
	count, err := run.ImportArticles(context.Background(), src, skipSecond)
	require.NoError(t, err)
	require.Equal(t, 2, count)

	count, err = run.ImportComments(context.Background(), src, (&staticSource{}).CommentsFor, MapComment)
	require.NoError(t, err)
	require.Equal(t, 3, count)
}

func TestImportCommentRecoversFieldsInOrder(t *testing.T) {
	f := newImportFixture(t)
	run := f.run(t, Options{})

	src := &SourceComment{Author: "", AuthorEmail: "nope", AuthorURL: "not a url", Body: "  "}
	outcome, err := run.ImportComment(context.Background(), "article-1", src, MapComment)
	require.ErrorIs(t, err, appErr.ErrInvalid)
	require.Contains(t, err.Error(), "[author_email author_url author body]")
	require.Equal(t, model.OutcomeRecovered, outcome)
	require.Equal(t, 1, run.Counters().Comments)
	require.Equal(t, &SourceComment{Author: "", AuthorEmail: "nope", AuthorURL: "not a url", Body: "  "}, src)

	stored := f.comments.all()
	require.Len(t, stored, 1)
	require.Equal(t, "invalid@nodomain.com", stored[0].AuthorEmail)
	require.Equal(t, "http://nowhere.com/", stored[0].AuthorURL)
	require.Equal(t, "unknown", stored[0].Author)
	require.Equal(t, "empty", stored[0].Body)
	require.True(t, stored[0].Approved)
}

func TestImportCommentLenientRecovery(t *testing.T) {
	f := newImportFixture(t)
	run := f.run(t, Options{LenientCommentRecovery: true})

	outcome, err := run.ImportComment(context.Background(), "article-1",
		&SourceComment{Author: "Ann", AuthorEmail: "broken", Body: "hi"}, MapComment)
	require.NoError(t, err)
	require.Equal(t, model.OutcomeRecovered, outcome)
	stored := f.comments.all()
	require.Len(t, stored, 1)
	require.Equal(t, "invalid@nodomain.com", stored[0].AuthorEmail)
}

func TestImportCommentRecoveryIsBounded(t *testing.T) {
	f := newImportFixture(t)
	run := f.run(t, Options{})
	calls := 0
	stubborn := func(ctx context.Context, run *Run, src *SourceComment) (*model.Comment, error) {
		calls++
		return &model.Comment{Author: src.Author, AuthorEmail: "broken", Body: src.Body}, nil
	}
	outcome, err := run.ImportComment(context.Background(), "article-1", &SourceComment{Author: "Ann", Body: "hi"}, stubborn)
	require.Error(t, err)
	require.Equal(t, model.OutcomeFatal, outcome)
	require.Equal(t, 2, calls)
	require.Empty(t, f.comments.all())
}

func TestImportCommentsStopAfterRecoveredComment(t *testing.T) {
	f := newImportFixture(t)
	f.addUser(t, "alice")
	run := f.run(t, Options{})
	src := []*SourceArticle{{Key: "1", Author: "alice", Title: "Post", Comments: []*SourceComment{
		{Author: "Ann", AuthorEmail: "ann@example.com", Body: "fine"},
		{Author: "Ben", AuthorEmail: "broken", Body: "fixable"},
		{Author: "Cid", AuthorEmail: "cid@example.com", Body: "never reached"},
	}}}
	_, err := run.ImportArticles(context.Background(), src, MapArticle)
	require.NoError(t, err)

	count, err := run.ImportComments(context.Background(), src, (&staticSource{}).CommentsFor, MapComment)
	require.ErrorIs(t, err, appErr.ErrInvalid)
	require.Equal(t, 2, count)
	require.Equal(t, 2, run.Counters().Comments)
	require.Len(t, f.comments.all(), 2)
}

func TestBaseSourceIsNotImplemented(t *testing.T) {
	f := newImportFixture(t)
	run := f.run(t, Options{})
	_, err := Convert(context.Background(), run, BaseSource{}, DefaultMappers())
	require.ErrorIs(t, err, appErr.ErrNotImplemented)
}

func TestNewRunRequiresSite(t *testing.T) {
	f := newImportFixture(t)
	_, err := NewRun(nil, f.users, service.NewArticleService(f.articles), service.NewCommentService(f.comments), Options{})
	require.ErrorIs(t, err, appErr.ErrNotFound)
}
