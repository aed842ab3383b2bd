package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/ecotrace/carbon-tracker/catalog"
	"github.com/ecotrace/carbon-tracker/models"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the schema and seed the emission factors",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		return withDB(cmd.Context(), cfg, func(db *gorm.DB, cat *catalog.Catalog) error {
			n, err := models.NewEmissionFactorsRepository(db).Count(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Schema ready, %d emission factors (catalog %s)\n", n, cat.Version)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
