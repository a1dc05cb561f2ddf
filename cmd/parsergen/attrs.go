package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"parsergen/internal/attrstore"
)

func newAttrsCommand() *cobra.Command {
	var dbConnStr string

	cmd := &cobra.Command{
		Use:   "attrs",
		Short: "Manage centrally-stored grammar attribute overrides",
	}
	cmd.PersistentFlags().StringVar(&dbConnStr, "db", "", "attribute-override database connection string")
	cmd.MarkPersistentFlagRequired("db")

	cmd.AddCommand(newAttrsGetCommand(&dbConnStr))
	cmd.AddCommand(newAttrsSetCommand(&dbConnStr))
	cmd.AddCommand(newAttrsListCommand(&dbConnStr))
	return cmd
}

func openRepo(ctx context.Context, dbConnStr string) (*attrstore.PostgresRepository, error) {
	if dbConnStr == "" {
		return nil, fmt.Errorf("--db is required")
	}
	return attrstore.Open(ctx, dbConnStr)
}

func newAttrsGetCommand(dbConnStr *string) *cobra.Command {
	var grammar, rule, name string
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Print a single attribute override's current value",
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := openRepo(cmd.Context(), *dbConnStr)
			if err != nil {
				return err
			}
			defer repo.Close()

			o, err := repo.Get(cmd.Context(), grammar, rule, name)
			if attrstore.IsNotFound(err) {
				fmt.Printf("no override set for %s/%s/%s\n", grammar, rule, name)
				return nil
			}
			if err != nil {
				return fmt.Errorf("parsergen: attrs get failed: %w", err)
			}
			fmt.Printf("%s = %q (updated by %s at %s)\n", o.Name, o.Value, o.UpdatedBy, o.UpdatedAt.Format("2006-01-02 15:04:05"))
			return nil
		},
	}
	cmd.Flags().StringVar(&grammar, "grammar", "", "grammar name")
	cmd.Flags().StringVar(&rule, "rule", "", "rule name (empty for a root-scoped attribute)")
	cmd.Flags().StringVar(&name, "name", "", "attribute name")
	cmd.MarkFlagRequired("grammar")
	cmd.MarkFlagRequired("name")
	return cmd
}

func newAttrsSetCommand(dbConnStr *string) *cobra.Command {
	var grammar, rule, name, value, changedBy, reason string
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Write an attribute override, recording an audit entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := openRepo(cmd.Context(), *dbConnStr)
			if err != nil {
				return err
			}
			defer repo.Close()

			if err := repo.Set(cmd.Context(), grammar, rule, name, value, changedBy, reason); err != nil {
				return fmt.Errorf("parsergen: attrs set failed: %w", err)
			}
			fmt.Printf("set %s/%s/%s = %q\n", grammar, rule, name, value)
			return nil
		},
	}
	cmd.Flags().StringVar(&grammar, "grammar", "", "grammar name")
	cmd.Flags().StringVar(&rule, "rule", "", "rule name (empty for a root-scoped attribute)")
	cmd.Flags().StringVar(&name, "name", "", "attribute name")
	cmd.Flags().StringVar(&value, "value", "", "new attribute value")
	cmd.Flags().StringVar(&changedBy, "changed-by", "", "who is making this change")
	cmd.Flags().StringVar(&reason, "reason", "", "why this override is being set")
	cmd.MarkFlagRequired("grammar")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("value")
	cmd.MarkFlagRequired("changed-by")
	return cmd
}

func newAttrsListCommand(dbConnStr *string) *cobra.Command {
	var grammar string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List every attribute override stored for a grammar",
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := openRepo(cmd.Context(), *dbConnStr)
			if err != nil {
				return err
			}
			defer repo.Close()

			overrides, err := repo.List(cmd.Context(), grammar)
			if err != nil {
				return fmt.Errorf("parsergen: attrs list failed: %w", err)
			}
			if len(overrides) == 0 {
				fmt.Printf("no overrides stored for grammar %s\n", grammar)
				return nil
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RULE\tNAME\tVALUE\tUPDATED BY\tUPDATED AT")
			for _, o := range overrides {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", o.Rule, o.Name, o.Value, o.UpdatedBy, o.UpdatedAt.Format("2006-01-02 15:04:05"))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&grammar, "grammar", "", "grammar name")
	cmd.MarkFlagRequired("grammar")
	return cmd
}
