// Package footprint computes carbon footprints from logged activities.
//
// All functions are stateless: the caller passes the store, the user and the
// reference date explicitly. Daily figures skip broken records and report how
// many were skipped; monthly figures fail on the first broken record.
package footprint

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ecotrace/carbon-tracker/catalog"
	"github.com/ecotrace/carbon-tracker/models"
)

const (
	// TrendDays is the length of the weekly trend, today included.
	TrendDays = 7

	dateLayout    = "2006-01-02"
	displayLayout = "02/01"
)

// ErrInvalidMonth is returned for a month outside 1..12 or a non-positive year.
var ErrInvalidMonth = errors.New("invalid month")

var hundred = decimal.NewFromInt(100)

// CategoryTotals maps every known category to an amount.
type CategoryTotals map[models.Category]float64

func roundedTotals(in map[models.Category]decimal.Decimal, places int32) CategoryTotals {
	out := make(CategoryTotals, len(models.Categories))
	for _, c := range models.Categories {
		out[c] = round(in[c], places)
	}
	return out
}

// DailyFootprint is the footprint of one calendar day. Total is not rounded;
// category values are rounded to 2 decimals.
type DailyFootprint struct {
	Date       string         `json:"date"`
	Total      float64        `json:"total"`
	ByCategory CategoryTotals `json:"by_category"`
	Skipped    int            `json:"skipped"`
}

// Daily computes the footprint of the user's activities on day. Records with
// data-integrity gaps are skipped; only store failures return an error.
func Daily(ctx context.Context, store Store, userID uint, day time.Time) (DailyFootprint, error) {
	day = models.CalendarDay(day)
	activities, err := store.ActivitiesOnDate(ctx, userID, day)
	if err != nil {
		return DailyFootprint{}, fmt.Errorf("load activities for %s: %w", day.Format(dateLayout), err)
	}
	b, err := Aggregate(ctx, store, activities, Lenient)
	if err != nil {
		return DailyFootprint{}, err
	}
	return DailyFootprint{
		Date:       day.Format(dateLayout),
		Total:      b.Total.InexactFloat64(),
		ByCategory: roundedTotals(b.ByCategory, 2),
		Skipped:    b.SkippedCount(),
	}, nil
}

// TrendPoint is one day of the weekly trend.
type TrendPoint struct {
	Date        string  `json:"date"`
	DisplayDate string  `json:"display_date"`
	Emissions   float64 `json:"emissions"`
}

// Weekly returns the daily totals of the last TrendDays days ending on today,
// oldest first.
func Weekly(ctx context.Context, store Store, userID uint, today time.Time) ([]TrendPoint, error) {
	today = models.CalendarDay(today)
	points := make([]TrendPoint, 0, TrendDays)
	for offset := TrendDays - 1; offset >= 0; offset-- {
		day := today.AddDate(0, 0, -offset)
		daily, err := Daily(ctx, store, userID, day)
		if err != nil {
			return nil, err
		}
		points = append(points, TrendPoint{
			Date:        day.Format(dateLayout),
			DisplayDate: day.Format(displayLayout),
			Emissions:   round(decimal.NewFromFloat(daily.Total), 2),
		})
	}
	return points, nil
}

// MonthlySummary aggregates one calendar month.
type MonthlySummary struct {
	Year         int            `json:"year"`
	Month        int            `json:"month"`
	Total        float64        `json:"total"`
	DailyAverage float64        `json:"daily_average"`
	ByCategory   CategoryTotals `json:"by_category"`
}

// ResolveMonth fills a zero year or month from now and validates the result.
func ResolveMonth(year, month int, now time.Time) (int, time.Month, error) {
	if month == 0 {
		month = int(now.Month())
	}
	if year == 0 {
		year = now.Year()
	}
	if month < 1 || month > 12 || year < 1 {
		return 0, 0, fmt.Errorf("%w: %d-%02d", ErrInvalidMonth, year, month)
	}
	return year, time.Month(month), nil
}

// DaysIn returns the number of days of the month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Monthly sums every activity of the month. Unlike Daily, a record with a
// missing factor or unknown category fails the whole summary.
func Monthly(ctx context.Context, store Store, userID uint, year int, month time.Month) (MonthlySummary, error) {
	if month < time.January || month > time.December || year < 1 {
		return MonthlySummary{}, fmt.Errorf("%w: %d-%02d", ErrInvalidMonth, year, month)
	}
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	days := DaysIn(year, month)
	last := first.AddDate(0, 0, days-1)

	activities, err := store.ActivitiesInRange(ctx, userID, first, last)
	if err != nil {
		return MonthlySummary{}, fmt.Errorf("load activities for %s: %w", first.Format("2006-01"), err)
	}
	b, err := Aggregate(ctx, store, activities, Strict)
	if err != nil {
		return MonthlySummary{}, fmt.Errorf("monthly summary %s: %w", first.Format("2006-01"), err)
	}

	average := decimal.Zero
	if days > 0 {
		average = b.Total.Div(decimal.NewFromInt(int64(days)))
	}
	return MonthlySummary{
		Year:         year,
		Month:        int(month),
		Total:        round(b.Total, 2),
		DailyAverage: round(average, 2),
		ByCategory:   roundedTotals(b.ByCategory, 2),
	}, nil
}

// Percentage holds the overall share of the national average.
type Percentage struct {
	Total float64 `json:"total"`
}

// Comparison relates today's footprint to the national daily average.
type Comparison struct {
	NationalAverage      catalog.NationalAverage `json:"national_average"`
	UserFootprint        DailyFootprint          `json:"user_footprint"`
	Percentage           Percentage              `json:"percentage"`
	PercentageByCategory CategoryTotals          `json:"percentage_by_category"`
}

// CompareWithAverage expresses today's footprint as a percentage of the
// national average, overall and per category, rounded to 1 decimal.
func CompareWithAverage(ctx context.Context, store Store, userID uint, today time.Time, average catalog.NationalAverage) (Comparison, error) {
	daily, err := Daily(ctx, store, userID, today)
	if err != nil {
		return Comparison{}, err
	}

	byCategory := make(CategoryTotals, len(models.Categories))
	for _, c := range models.Categories {
		byCategory[c] = PercentOf(daily.ByCategory[c], average.For(c))
	}
	return Comparison{
		NationalAverage:      average,
		UserFootprint:        daily,
		Percentage:           Percentage{Total: PercentOf(daily.Total, average.Total)},
		PercentageByCategory: byCategory,
	}, nil
}

// PercentOf returns value/reference*100 rounded to 1 decimal, 0 when the
// reference is not positive.
func PercentOf(value, reference float64) float64 {
	if reference <= 0 || !finite(value) || !finite(reference) {
		return 0
	}
	ratio := decimal.NewFromFloat(value).Div(decimal.NewFromFloat(reference)).Mul(hundred)
	return round(ratio, 1)
}

// ActivityEmissions returns the rounded emissions of a single activity with
// its factor already resolved.
func ActivityEmissions(a models.Activity, factor *models.EmissionFactor) (float64, error) {
	if factor == nil {
		return 0, fmt.Errorf("activity %d: %w", a.ID, ErrMissingFactor)
	}
	emissions, reason := computeEmissions(a.Quantity, factor)
	if reason != "" {
		return 0, fmt.Errorf("activity %d: %w", a.ID, reasonError(reason))
	}
	return round(emissions, 2), nil
}
