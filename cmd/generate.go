package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/coreybb/storybook/datastore"
	"github.com/coreybb/storybook/models"
	"github.com/coreybb/storybook/processing"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Create a book for a user and print progress as NDJSON",
	RunE:  runGenerate,
}

type generateArgs struct {
	email      string
	objective  string
	age        int
	characters string
	setting    string
	length     string
}

var genArgs generateArgs

func init() {
	generateCmd.Flags().StringVarP(&genArgs.email, "email", "e", "", "email of the book owner")
	generateCmd.Flags().StringVarP(&genArgs.objective, "objective", "o", "", "educational objective")
	generateCmd.Flags().IntVarP(&genArgs.age, "age", "a", 0, "reader age (4-12)")
	generateCmd.Flags().StringVar(&genArgs.characters, "characters", "", "main characters")
	generateCmd.Flags().StringVarP(&genArgs.setting, "setting", "s", "", "story setting")
	generateCmd.Flags().StringVarP(&genArgs.length, "length", "l", string(models.BookLengthShort), "book length: short, medium or long")

	RootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	if genArgs.email == "" {
		return fmt.Errorf("email is required")
	}
	req := models.BookRequest{
		EducationalObjective: genArgs.objective,
		Age:                  genArgs.age,
		Characters:           genArgs.characters,
		Setting:              genArgs.setting,
		BookLength:           models.BookLength(genArgs.length),
	}.Normalized()
	if err := req.Validate(); err != nil {
		return err
	}

	cfg, logger, err := loadRuntime()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := openApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := datastore.EnsureSchema(ctx, a.db); err != nil {
		return err
	}
	owner, err := a.users.GetUserByEmail(ctx, genArgs.email)
	if err != nil {
		return fmt.Errorf("failed to find user %s: %w", genArgs.email, err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	events, results := a.processor.Start(ctx, req, owner.ID)
	for ev := range events {
		if err := enc.Encode(ev); err != nil {
			logger.Sugar().Warnf("failed to print progress: %v", err)
		}
	}
	res := <-results
	if res.State != processing.StateCompleted {
		return fmt.Errorf("book creation failed: %w", res.Err)
	}
	return nil
}
