package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/mephisto/internal/converter"
	"github.com/xxxsen/mephisto/internal/repo"
	"github.com/xxxsen/mephisto/internal/service"
)

func newImportCmd(configPath *string) *cobra.Command {
	var (
		sourceKind string
		file       string
		siteID     string
	)
	cmd := &cobra.Command{
		Use:   "import",
		Short: "import users, articles and comments from another blog",
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				return fmt.Errorf("--file is required")
			}
			cfg, conn, err := bootstrap(*configPath)
			if err != nil {
				return err
			}
			defer conn.Close()
			ctx := context.Background()
			logger := logutil.GetLogger(ctx).With(zap.String("source", sourceKind), zap.String("file", file))

			src, err := converter.OpenSource(sourceKind, file)
			if err != nil {
				return err
			}
			if siteID == "" {
				siteID = cfg.Import.SiteID
			}
			sites := service.NewSiteService(repo.NewSiteRepo(conn), time.Minute)
			site, err := sites.Resolve(ctx, siteID)
			if err != nil {
				return fmt.Errorf("resolve destination site: %w", err)
			}
			run, err := converter.NewRun(
				site,
				service.NewUserService(repo.NewUserRepo(conn)),
				service.NewArticleService(repo.NewArticleRepo(conn)),
				service.NewCommentService(repo.NewCommentRepo(conn)),
				converter.OptionsFromConfig(cfg.Import),
			)
			if err != nil {
				return err
			}
			counters, err := converter.Convert(ctx, run, src, converter.DefaultMappers())
			logger.Info("import finished",
				zap.String("site", site.Host),
				zap.Int("users", counters.Users),
				zap.Int("articles", counters.Articles),
				zap.Int("comments", counters.Comments),
			)
			if err != nil {
				return fmt.Errorf("import aborted: %w", err)
			}
			fmt.Printf("imported %d users, %d articles, %d comments into %s\n",
				counters.Users, counters.Articles, counters.Comments, site.Host)
			return nil
		},
	}
	cmd.Flags().StringVar(&sourceKind, "source", "json", "source format")
	cmd.Flags().StringVar(&file, "file", "", "path to the source dump")
	cmd.Flags().StringVar(&siteID, "site", "", "destination site id (defaults to import.site_id)")
	return cmd
}
