package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/mephisto/internal/middleware"
)

const (
	APIPrefix       = "/api/v1"
	loginRateWindow = time.Second
)

type RouterDeps struct {
	Auth      *AuthHandler
	Assets    *AssetHandler
	Files     *FileHandler
	JWTSecret []byte
}

// RegisterRoutes mounts the admin api under APIPrefix and the stored files
// under /assets, which is the public path of every asset.
func RegisterRoutes(root *gin.RouterGroup, deps RouterDeps) {
	root.Use(middleware.RequestID())
	root.GET("/assets/*key", deps.Files.Get)

	api := root.Group(APIPrefix)
	api.POST("/auth/login", middleware.RateLimit(loginRateWindow), deps.Auth.Login)

	authGroup := api.Group("")
	authGroup.Use(middleware.JWTAuth(deps.JWTSecret))
	authGroup.POST("/sites/:site_id/assets", deps.Assets.Upload)
	authGroup.GET("/sites/:site_id/assets", deps.Assets.List)
	authGroup.GET("/sites/:site_id/assets/:id", deps.Assets.Get)
	authGroup.PUT("/sites/:site_id/assets/:id", deps.Assets.Update)
	authGroup.DELETE("/sites/:site_id/assets/:id", deps.Assets.Delete)
}
