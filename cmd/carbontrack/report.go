package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/ecotrace/carbon-tracker/advice"
	"github.com/ecotrace/carbon-tracker/catalog"
	"github.com/ecotrace/carbon-tracker/footprint"
	"github.com/ecotrace/carbon-tracker/models"
)

var (
	reportUser  uint
	reportKind  string
	reportDate  string
	reportYear  int
	reportMonth int
)

var reportKinds = []string{"daily", "weekly", "monthly", "comparison", "recommendations"}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print a footprint report for one user as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		if reportUser == 0 {
			return fmt.Errorf("--user is required")
		}
		day := models.CalendarDay(time.Now())
		if reportDate != "" {
			parsed, err := time.Parse("2006-01-02", reportDate)
			if err != nil {
				return fmt.Errorf("invalid --date %q (expected YYYY-MM-DD)", reportDate)
			}
			day = parsed
		}

		cfg := loadConfig()
		return withDB(cmd.Context(), cfg, func(db *gorm.DB, cat *catalog.Catalog) error {
			store := footprint.Join(models.NewActivitiesRepository(db), models.NewEmissionFactorsRepository(db))
			ctx := cmd.Context()

			var (
				out any
				err error
			)
			switch reportKind {
			case "daily":
				out, err = footprint.Daily(ctx, store, reportUser, day)
			case "weekly":
				out, err = footprint.Weekly(ctx, store, reportUser, day)
			case "monthly":
				year, month, rerr := footprint.ResolveMonth(reportYear, reportMonth, day)
				if rerr != nil {
					return rerr
				}
				out, err = footprint.Monthly(ctx, store, reportUser, year, month)
			case "comparison":
				out, err = footprint.CompareWithAverage(ctx, store, reportUser, day, cat.NationalAverage)
			case "recommendations":
				out = advice.Personalized(ctx, store, reportUser, day, cat)
			default:
				return fmt.Errorf("unknown --kind %q (one of %v)", reportKind, reportKinds)
			}
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		})
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().UintVar(&reportUser, "user", 0, "User id")
	reportCmd.Flags().StringVar(&reportKind, "kind", "daily", "Report kind: daily, weekly, monthly, comparison, recommendations")
	reportCmd.Flags().StringVar(&reportDate, "date", "", "Reference date YYYY-MM-DD (default today)")
	reportCmd.Flags().IntVar(&reportYear, "year", 0, "Year for the monthly report (default current)")
	reportCmd.Flags().IntVar(&reportMonth, "month", 0, "Month for the monthly report (default current)")
}
