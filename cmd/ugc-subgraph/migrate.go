package main

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"github.com/syssam/ugc-subgraph/internal/config"
	"github.com/syssam/ugc-subgraph/internal/store"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending forward-only schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			db, err := sql.Open("postgres", cfg.Database.URL)
			if err != nil {
				return fmt.Errorf("migrate: open database: %w", err)
			}
			defer db.Close()
			if err := store.Migrate(db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			fmt.Println("migrations applied")
			return nil
		},
	}
}
