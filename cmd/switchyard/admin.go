package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/veridianlabs/switchyard/pkg/alias"
	"github.com/veridianlabs/switchyard/pkg/catalog"
	"github.com/veridianlabs/switchyard/pkg/history"
)

// withCatalog loads config, opens the catalog, runs fn, and closes
func withCatalog(fn func(ctx context.Context, cat *catalog.Bolt) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cat, err := openCatalog(cfg)
	if err != nil {
		return err
	}
	ctx := context.Background()
	defer cat.Close(ctx)
	return fn(ctx, cat)
}

var databasesCmd = &cobra.Command{
	Use:   "databases",
	Short: "List all user databases",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCatalog(func(ctx context.Context, cat *catalog.Bolt) error {
			databases, err := cat.ListDatabases(ctx)
			if err != nil {
				return err
			}
			if len(databases) == 0 {
				fmt.Println("No databases found.")
				return nil
			}
			for _, name := range databases {
				fmt.Println(name)
			}
			return nil
		})
	},
}

var aliasCmd = &cobra.Command{
	Use:   "aliases",
	Short: "Manage database aliases",
}

var aliasListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all aliases and their targets",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCatalog(func(ctx context.Context, cat *catalog.Bolt) error {
			aliases, err := cat.ListAliases(ctx)
			if err != nil {
				return err
			}
			if len(aliases) == 0 {
				fmt.Println("No aliases found.")
				return nil
			}
			for name, target := range aliases {
				fmt.Printf("%-24s -> %s\n", name, target)
			}
			return nil
		})
	},
}

var aliasSetCmd = &cobra.Command{
	Use:   "set <alias> <target-database>",
	Short: "Create or repoint an alias",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCatalog(func(ctx context.Context, cat *catalog.Bolt) error {
			if err := cat.SetAlias(ctx, args[0], args[1]); err != nil {
				return err
			}
			fmt.Printf("Alias %s -> %s\n", args[0], args[1])
			return nil
		})
	},
}

var aliasDropCmd = &cobra.Command{
	Use:   "drop <alias>",
	Short: "Drop an alias",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCatalog(func(ctx context.Context, cat *catalog.Bolt) error {
			if err := cat.DropAlias(ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("Alias %s dropped\n", args[0])
			return nil
		})
	},
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Drop a tenant's databases beyond the retention cap",
	RunE: func(cmd *cobra.Command, args []string) error {
		tenant, _ := cmd.Flags().GetString("tenant")
		keep, _ := cmd.Flags().GetInt("keep")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		if tenant == "" {
			return fmt.Errorf("--tenant is required")
		}

		return withCatalog(func(ctx context.Context, cat *catalog.Bolt) error {
			databases, err := cat.ListDatabases(ctx)
			if err != nil {
				return err
			}
			aliases, err := cat.ListAliases(ctx)
			if err != nil {
				return err
			}

			victims := alias.RetentionVictims(tenant, databases, keep, aliases[tenant])
			if len(victims) == 0 {
				fmt.Printf("Nothing to clean up for %s\n", tenant)
				return nil
			}
			for _, victim := range victims {
				if dryRun {
					fmt.Printf("Would drop %s\n", victim)
					continue
				}
				if err := cat.DropDatabase(ctx, victim); err != nil {
					return err
				}
				fmt.Printf("Dropped %s\n", victim)
			}
			return nil
		})
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded deployment outcomes",
	RunE: func(cmd *cobra.Command, args []string) error {
		tenant, _ := cmd.Flags().GetString("tenant")

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.History.Path == "" {
			return fmt.Errorf("history recording is disabled: set history.path in the config")
		}

		store, err := history.Open(cfg.History.Path)
		if err != nil {
			return err
		}
		defer store.Close()

		records, err := store.List(tenant)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Println("No deployment history.")
			return nil
		}
		for _, r := range records {
			line := fmt.Sprintf("%-24s %-10s retries=%d  %s",
				r.Database, r.State, r.RetryCount, r.FinishedAt.Format("2006-01-02 15:04:05"))
			if r.LastError != "" {
				line += "  error: " + r.LastError
			}
			fmt.Println(line)
		}
		return nil
	},
}

func init() {
	aliasCmd.AddCommand(aliasListCmd)
	aliasCmd.AddCommand(aliasSetCmd)
	aliasCmd.AddCommand(aliasDropCmd)

	cleanupCmd.Flags().String("tenant", "", "Tenant to clean up (required)")
	cleanupCmd.Flags().Int("keep", 2, "Number of newest databases to keep")
	cleanupCmd.Flags().Bool("dry-run", false, "Print what would be dropped without dropping")

	historyCmd.Flags().String("tenant", "", "Filter history by tenant")
}
