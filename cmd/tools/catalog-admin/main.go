// cmd/tools/catalog-admin/main.go
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"agritour-certification/internal/assessment/catalog"
	"agritour-certification/internal/common/config"
	"agritour-certification/internal/common/database"
	"agritour-certification/internal/common/logger"
	"agritour-certification/pkg/catalogfile"
)

var catalogPath string

var rootCmd = &cobra.Command{
	Use:           "catalog-admin",
	Short:         "Manage the assessment question catalog",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var validateCmd = &cobra.Command{
	Use:   "validate [file.yaml]",
	Short: "Check a catalog file for structural problems",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := catalogfile.Load(pathArg(args))
		if err != nil {
			return fmt.Errorf("failed to load catalog: %w", err)
		}
		if err := catalogfile.Validate(f); err != nil {
			return fmt.Errorf("catalog validation failed:\n%w", err)
		}
		cat := f.Catalog()
		fmt.Fprintf(cmd.OutOrStdout(), "Catalog validation passed: %d sections, %d questions.\n", len(cat), cat.QuestionCount())
		return nil
	},
}

var exportFrom string

var exportCmd = &cobra.Command{
	Use:   "export [file.yaml]",
	Short: "Write the built-in or stored catalog to a file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		var src catalog.Source
		switch exportFrom {
		case "static":
			src = catalog.NewStaticSource()
		case "postgres":
			db, closeDB, err := openPostgres()
			if err != nil {
				return err
			}
			defer closeDB()
			src = catalog.NewPostgresSource(db)
		default:
			return fmt.Errorf("unknown source %q, expected static or postgres", exportFrom)
		}

		cat, err := catalog.Fetch(ctx, src)
		if err != nil {
			return err
		}
		f := catalogfile.FromCatalog(cat, exportFrom)
		f.LastUpdated = time.Now().UTC().Format(time.RFC3339)
		path := pathArg(args)
		if err := catalogfile.Save(path, f); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d questions to %s\n", cat.QuestionCount(), path)
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed [file.yaml]",
	Short: "Replace the assessment_templates table with a catalog file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := catalogfile.Load(pathArg(args))
		if err != nil {
			return fmt.Errorf("failed to load catalog: %w", err)
		}
		if err := catalogfile.Validate(f); err != nil {
			return fmt.Errorf("refusing to seed an invalid catalog:\n%w", err)
		}

		db, closeDB, err := openPostgres()
		if err != nil {
			return err
		}
		defer closeDB()

		ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
		defer cancel()
		if err := database.EnsureSchema(ctx, db); err != nil {
			return err
		}
		rows := f.Rows()
		if err := database.WithTx(ctx, db, func(tx *sql.Tx) error {
			return catalog.InsertRows(ctx, tx, rows)
		}); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d questions.\n", len(rows))
		return invalidateCache(ctx)
	},
}

func pathArg(args []string) string {
	if len(args) == 1 {
		return args[0]
	}
	return catalogPath
}

func openPostgres() (*sql.DB, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		return nil, nil, err
	}
	return pg.DB, func() { pg.Close() }, nil
}

// invalidateCache drops the cached copy so portals pick up the new rows on their
// next load instead of after the TTL.
func invalidateCache(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	rdb, err := database.NewRedis(cfg.Database.Redis)
	if err != nil {
		return err
	}
	defer rdb.Close()

	cached := catalog.NewCachedSource(catalog.NewPostgresSource(nil), rdb.Client, 0, logger.NewNoOpLogger())
	return cached.Invalidate(ctx)
}

func main() {
	rootCmd.PersistentFlags().StringVar(&catalogPath, "path", "configs/catalog.yaml", "Path to catalog file")
	exportCmd.Flags().StringVar(&exportFrom, "from", "static", "Catalog source to export (static, postgres)")
	rootCmd.AddCommand(validateCmd, exportCmd, seedCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
