package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/xxxsen/mephisto/internal/model"
	"github.com/xxxsen/mephisto/internal/repo"
	"github.com/xxxsen/mephisto/internal/service"
)

func newSiteCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "site",
		Short: "manage sites",
	}
	var in service.SiteInput
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "create a site",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, conn, err := bootstrap(*configPath)
			if err != nil {
				return err
			}
			defer conn.Close()
			site, err := service.NewSiteService(repo.NewSiteRepo(conn), time.Minute).Create(context.Background(), in)
			if err != nil {
				return err
			}
			fmt.Printf("site %s created for %s\n", site.ID, site.Host)
			return nil
		},
	}
	addCmd.Flags().StringVar(&in.Title, "title", "", "site title")
	addCmd.Flags().StringVar(&in.Host, "host", "", "site host")
	addCmd.Flags().StringVar(&in.Filter, "filter", "", "default text filter")
	cmd.AddCommand(addCmd)
	return cmd
}

func newUserCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "manage users",
	}
	var (
		user     model.User
		password string
		siteID   string
	)
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "create a user, optionally as a site member",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, conn, err := bootstrap(*configPath)
			if err != nil {
				return err
			}
			defer conn.Close()
			ctx := context.Background()
			users := service.NewUserService(repo.NewUserRepo(conn))
			if err := users.Create(ctx, &user, password); err != nil {
				return err
			}
			if siteID != "" {
				if _, err := service.NewSiteService(repo.NewSiteRepo(conn), time.Minute).GetByID(ctx, siteID); err != nil {
					return fmt.Errorf("site %s: %w", siteID, err)
				}
				if err := users.AddMember(ctx, siteID, user.ID, user.Admin); err != nil {
					return err
				}
			}
			fmt.Printf("user %s created (%s)\n", user.Login, user.ID)
			return nil
		},
	}
	addCmd.Flags().StringVar(&user.Login, "login", "", "login name")
	addCmd.Flags().StringVar(&user.Email, "email", "", "email address")
	addCmd.Flags().StringVar(&password, "password", "", "password")
	addCmd.Flags().BoolVar(&user.Admin, "admin", false, "grant global admin")
	addCmd.Flags().StringVar(&siteID, "site", "", "add the user as a member of this site")
	cmd.AddCommand(addCmd)
	return cmd
}
