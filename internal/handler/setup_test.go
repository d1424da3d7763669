package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/xxxsen/common/webapi"

	"github.com/xxxsen/mephisto/internal/assetkind"
	"github.com/xxxsen/mephisto/internal/config"
	"github.com/xxxsen/mephisto/internal/filestore"
	"github.com/xxxsen/mephisto/internal/handler"
	"github.com/xxxsen/mephisto/internal/middleware"
	"github.com/xxxsen/mephisto/internal/model"
	"github.com/xxxsen/mephisto/internal/repo"
	"github.com/xxxsen/mephisto/internal/service"
	"github.com/xxxsen/mephisto/internal/testutil"
	"github.com/xxxsen/mephisto/internal/thumbnail"
)

type testEnv struct {
	router http.Handler
	site   *model.Site
	token  string
}

func setupRouter(t *testing.T) (*testEnv, func()) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	db, cleanup := testutil.OpenTestDB(t)
	userRepo := repo.NewUserRepo(db)
	siteService := service.NewSiteService(repo.NewSiteRepo(db), time.Minute)
	userService := service.NewUserService(userRepo)
	authService := service.NewAuthService(userRepo, []byte("test-secret"), time.Hour)

	site, err := siteService.Create(ctx, service.SiteInput{Title: "Blog", Host: "blog.example.com"})
	require.NoError(t, err)
	editor := &model.User{Login: "editor", Email: "editor@example.com"}
	require.NoError(t, userService.Create(ctx, editor, "secret"))
	require.NoError(t, userService.AddMember(ctx, site.ID, editor.ID, true))

	store, err := filestore.New(config.FileStoreConfig{
		Type: "local",
		Data: map[string]interface{}{"dir": t.TempDir()},
	})
	require.NoError(t, err)
	assetService := service.NewAssetService(repo.NewAssetRepo(db), siteService, store, service.AssetOptions{
		MaxSize:    1024 * 1024,
		Thumbnails: []thumbnail.Size{{Label: "thumb", MaxEdge: 120}, {Label: "tiny", MaxEdge: 50}},
		Classifier: assetkind.NewDefault(),
		Processor:  thumbnail.NewImaging(),
	})

	deps := handler.RouterDeps{
		Auth:      handler.NewAuthHandler(authService),
		Assets:    handler.NewAssetHandler(assetService, userService, 1024*1024),
		Files:     handler.NewFileHandler(store),
		JWTSecret: []byte("test-secret"),
	}
	engine, err := webapi.NewEngine(
		"/",
		"",
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(middleware.CORS(nil)),
	)
	require.NoError(t, err)

	env := &testEnv{router: engine, site: site}
	env.token = env.login(t, "editor", "secret")
	return env, cleanup
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"msg"`
	Data    json.RawMessage `json:"data"`
}

func (e *testEnv) do(t *testing.T, req *http.Request) envelope {
	t.Helper()
	if e.token != "" {
		req.Header.Set("Authorization", "Bearer "+e.token)
	}
	resp := httptest.NewRecorder()
	e.router.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var out envelope
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))
	return out
}

func (e *testEnv) login(t *testing.T, login, pass string) string {
	t.Helper()
	payload, _ := json.Marshal(map[string]string{"login": login, "password": pass})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	out := e.do(t, req)
	require.Equal(t, 0, out.Code, out.Message)
	var data struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(out.Data, &data))
	require.NotEmpty(t, data.Token)
	return data.Token
}

func uploadRequest(t *testing.T, siteID, filename, contentType string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	header := make(map[string][]string)
	header["Content-Disposition"] = []string{`form-data; name="file"; filename="` + filename + `"`}
	header["Content-Type"] = []string{contentType}
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sites/"+siteID+"/assets", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 240, 160))
	for x := 0; x < 240; x++ {
		img.Set(x, x%160, color.RGBA{R: 255, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}
