/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/tenantdesk/apiserver/internal/db"
	"github.com/tenantdesk/apiserver/internal/services"
	"github.com/tenantdesk/apiserver/internal/store"
	"github.com/tenantdesk/apiserver/types"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage platform operators",
}

// adminCreateCmd bootstraps a super-admin. Registration only ever creates
// tenant admins, so this is the one way to get the first operator account.
var adminCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a super-admin account",
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		email, _ := cmd.Flags().GetString("email")
		password, _ := cmd.Flags().GetString("password")

		cfg, log, err := loadRuntime()
		if err != nil {
			return err
		}

		conn, err := db.Open(cmd.Context(), cfg.Database)
		if err != nil {
			return err
		}
		defer conn.Close()

		users := services.NewUserService(
			store.NewUserRepository(conn),
			store.NewTenantRepository(conn),
			services.NewValidator(),
			nil,
		)
		user, err := users.CreateSuperAdmin(cmd.Context(), types.NewUser{
			FullName: name,
			Email:    email,
			Password: password,
		})
		if err != nil {
			return err
		}

		log.Info().Str("user_id", user.ID.String()).Str("email", user.Email).Msg("super-admin created")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(adminCmd)
	adminCmd.AddCommand(adminCreateCmd)

	adminCreateCmd.Flags().String("name", "", "full name")
	adminCreateCmd.Flags().String("email", "", "login email")
	adminCreateCmd.Flags().String("password", "", "password (at least 8 characters, at most 72 bytes)")
	_ = adminCreateCmd.MarkFlagRequired("email")
	_ = adminCreateCmd.MarkFlagRequired("password")
	_ = adminCreateCmd.MarkFlagRequired("name")
}
