package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/coreybb/storybook/datastore"
	rh "github.com/coreybb/storybook/route-handlers"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users",
}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a user and print its API token",
	Long:  "Create a user and print its API token. The token is not stored and cannot be shown again.",
	RunE:  runUserCreate,
}

type userCreateArgs struct {
	email    string
	username string
}

var createUserArgs userCreateArgs

func init() {
	userCreateCmd.Flags().StringVarP(&createUserArgs.email, "email", "e", "", "email address")
	userCreateCmd.Flags().StringVarP(&createUserArgs.username, "username", "u", "", "display name")

	userCmd.AddCommand(userCreateCmd)
	RootCmd.AddCommand(userCmd)
}

func runUserCreate(cmd *cobra.Command, args []string) error {
	user, token, err := rh.NewUser(createUserArgs.email, createUserArgs.username)
	if err != nil {
		return err
	}

	cfg, logger, err := loadRuntime()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	ctx := context.Background()
	db, err := datastore.Open(ctx, cfg.Database.Driver, cfg.Database.URL, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := datastore.EnsureSchema(ctx, db); err != nil {
		return err
	}
	if err := datastore.NewUserRepository(db).CreateUser(ctx, user); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{"user": user, "token": token})
}
