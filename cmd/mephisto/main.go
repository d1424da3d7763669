package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/xxxsen/mephisto/internal/config"
	"github.com/xxxsen/mephisto/internal/db"
	"github.com/xxxsen/mephisto/internal/filestore"
	"github.com/xxxsen/mephisto/internal/handler"
	"github.com/xxxsen/mephisto/internal/job"
	"github.com/xxxsen/mephisto/internal/middleware"
	"github.com/xxxsen/mephisto/internal/repo"
	"github.com/xxxsen/mephisto/internal/schedule"
	"github.com/xxxsen/mephisto/internal/service"
)

const siteCacheTTL = 5 * time.Minute

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "mephisto",
		Short: "mephisto blog backend",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.json")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run mephisto server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, conn, err := bootstrap(configPath)
			if err != nil {
				return err
			}
			defer conn.Close()
			return runServer(cfg, conn)
		},
	}

	rootCmd.AddCommand(runCmd, newImportCmd(&configPath), newSiteCmd(&configPath), newUserCmd(&configPath))

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("command failed", zap.Error(err))
	}
}

// bootstrap loads the config, initializes logging and opens the migrated
// database.
func bootstrap(configPath string) (*config.Config, *sql.DB, error) {
	if configPath == "" {
		return nil, nil, fmt.Errorf("--config is required")
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	logger.Init(
		cfg.LogConfig.File,
		cfg.LogConfig.Level,
		int(cfg.LogConfig.FileCount),
		int(cfg.LogConfig.FileSize),
		int(cfg.LogConfig.KeepDays),
		cfg.LogConfig.Console,
	)
	logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))

	conn, err := db.Open(cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.ApplyMigrations(conn); err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("migrations: %w", err)
	}
	return cfg, conn, nil
}

func runServer(cfg *config.Config, conn *sql.DB) error {
	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("file_store", cfg.FileStore.Type),
		zap.Bool("multi_sites", cfg.Assets.MultiSites),
	)

	userRepo := repo.NewUserRepo(conn)
	siteService := service.NewSiteService(repo.NewSiteRepo(conn), siteCacheTTL)
	userService := service.NewUserService(userRepo)
	authService := service.NewAuthService(userRepo, []byte(cfg.JWTSecret), time.Hour*time.Duration(cfg.JWTTTLHours))

	store, err := filestore.New(cfg.FileStore)
	if err != nil {
		return fmt.Errorf("init file store: %w", err)
	}
	assetService := service.NewAssetService(repo.NewAssetRepo(conn), siteService, store, service.AssetOptionsFromConfig(cfg.Assets))

	deps := handler.RouterDeps{
		Auth:      handler.NewAuthHandler(authService),
		Assets:    handler.NewAssetHandler(assetService, userService, cfg.Assets.MaxSizeBytes()),
		Files:     handler.NewFileHandler(store),
		JWTSecret: []byte(cfg.JWTSecret),
	}

	engine, err := webapi.NewEngine(
		"/",
		addr,
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.CORS(cfg.CORSOrigins),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := schedule.NewCronScheduler()
	if cfg.Assets.BackfillSpec != "" {
		if err := scheduler.AddJob(job.NewThumbnailBackfillJob(assetService, 0), cfg.Assets.BackfillSpec); err != nil {
			return fmt.Errorf("schedule thumbnail backfill: %w", err)
		}
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", addr))
	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}
