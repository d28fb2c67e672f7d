package cmd

import (
	"errors"
	"fmt"

	"studio-orders/config"
	"studio-orders/database"
	authapi "studio-orders/internal/api/auth"
	"studio-orders/internal/domain/users"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func adminCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage studio administrator accounts",
	}

	var name, lastname, email, password string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an administrator account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" || password == "" {
				return errors.New("--email and --password are required")
			}
			if err := database.InitDB(cfg.DBURL, cfg.SlowQuery); err != nil {
				return err
			}
			u, err := authapi.CreateUser(database.DB, name, lastname, email, password, users.RoleAdmin)
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("user %s already exists", email)
			}
			if err != nil {
				return err
			}
			cmd.Printf("created admin %s\n", u.Email)
			return nil
		},
	}
	create.Flags().StringVar(&email, "email", "", "account email")
	create.Flags().StringVar(&password, "password", "", "account password")
	create.Flags().StringVar(&name, "name", "Studio", "first name")
	create.Flags().StringVar(&lastname, "lastname", "Admin", "last name")

	cmd.AddCommand(create)
	return cmd
}
