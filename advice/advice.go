// Package advice selects recommendations from a user's recent footprint.
package advice

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ecotrace/carbon-tracker/catalog"
	"github.com/ecotrace/carbon-tracker/footprint"
	"github.com/ecotrace/carbon-tracker/models"
	"github.com/ecotrace/carbon-tracker/observability"
)

const (
	// WindowDays is how far back activities are considered.
	WindowDays = 30
	// MinActivities is the smallest history that gets personalized advice.
	MinActivities = 5
	// GenericTail is how many generic items follow the category items.
	GenericTail = 2
)

// Reason explains how a recommendation list was selected.
type Reason string

const (
	ReasonPersonalized     Reason = "personalized"
	ReasonInsufficientData Reason = "insufficient_data"
	ReasonNoEmissions      Reason = "no_emissions"
	ReasonFallback         Reason = "fallback"
)

// Source is what the selector reads.
type Source interface {
	ActivitiesSince(ctx context.Context, userID uint, from time.Time) ([]models.Activity, error)
	footprint.FactorLookup
}

// Result is an ordered list of recommendations. Degraded is set when an
// error forced the generic fallback.
type Result struct {
	Items    []catalog.Recommendation `json:"items"`
	Category models.Category          `json:"category,omitempty"`
	Reason   Reason                   `json:"reason"`
	Skipped  int                      `json:"skipped"`
	Degraded bool                     `json:"degraded"`
}

// Personalized returns the dominant category's recommendations followed by
// the first generic ones. It never fails: any error yields the generic list.
// A nil catalog means the embedded default.
func Personalized(ctx context.Context, src Source, userID uint, today time.Time, cat *catalog.Catalog) (res Result) {
	if cat == nil {
		cat = catalog.Default()
	}
	defer func() {
		if r := recover(); r != nil {
			res = fallback(userID, fmt.Errorf("panic: %v", r), cat)
		}
	}()

	res, err := personalized(ctx, src, userID, today, cat)
	if err != nil {
		return fallback(userID, err, cat)
	}
	observability.RecordRecommendation(string(res.Reason))
	return res
}

func personalized(ctx context.Context, src Source, userID uint, today time.Time, cat *catalog.Catalog) (Result, error) {
	since := models.CalendarDay(today).AddDate(0, 0, -WindowDays)
	activities, err := src.ActivitiesSince(ctx, userID, since)
	if err != nil {
		return Result{}, fmt.Errorf("load recent activities: %w", err)
	}
	if len(activities) < MinActivities {
		return Result{Items: cat.Generic(), Reason: ReasonInsufficientData}, nil
	}

	b, err := footprint.Aggregate(ctx, src, activities, footprint.Lenient)
	if err != nil {
		return Result{}, err
	}

	dominant, ok := DominantCategory(b)
	if !ok {
		return Result{Items: cat.Generic(), Reason: ReasonNoEmissions, Skipped: b.SkippedCount()}, nil
	}

	items := cat.ForCategory(dominant)
	generic := cat.Generic()
	if len(generic) > GenericTail {
		generic = generic[:GenericTail]
	}
	return Result{
		Items:    append(items, generic...),
		Category: dominant,
		Reason:   ReasonPersonalized,
		Skipped:  b.SkippedCount(),
	}, nil
}

// DominantCategory returns the category with the highest total. Ties go to
// the alphabetically first category. It reports false when every total is zero.
func DominantCategory(b footprint.Breakdown) (models.Category, bool) {
	candidates := append([]models.Category(nil), models.Categories...)
	sort.Slice(candidates, func(i, j int) bool { return candidates[i] < candidates[j] })

	allZero := true
	best := candidates[0]
	for _, c := range candidates {
		total := b.ByCategory[c]
		if !total.IsZero() {
			allZero = false
		}
		if total.GreaterThan(b.ByCategory[best]) {
			best = c
		}
	}
	if allZero {
		return "", false
	}
	return best, true
}

func fallback(userID uint, err error, cat *catalog.Catalog) Result {
	log.Warn().Err(err).Uint("user_id", userID).Msg("recommendations fell back to generic list")
	observability.RecordRecommendation(string(ReasonFallback))
	return Result{Items: cat.Generic(), Reason: ReasonFallback, Degraded: true}
}
