package footprint

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/ecotrace/carbon-tracker/models"
	"github.com/ecotrace/carbon-tracker/observability"
)

var (
	// ErrMissingFactor reports an activity whose factor id is null or dangling.
	ErrMissingFactor = errors.New("activity has no resolvable emission factor")
	// ErrUnknownCategory reports a factor outside the four known categories.
	ErrUnknownCategory = errors.New("emission factor has an unknown category")
	// ErrInvalidQuantity reports emissions that cannot be computed.
	ErrInvalidQuantity = errors.New("activity emissions are not computable")
)

// ActivitySource returns a user's activities.
type ActivitySource interface {
	ActivitiesOnDate(ctx context.Context, userID uint, day time.Time) ([]models.Activity, error)
	ActivitiesInRange(ctx context.Context, userID uint, from, to time.Time) ([]models.Activity, error)
	ActivitiesSince(ctx context.Context, userID uint, from time.Time) ([]models.Activity, error)
}

// FactorLookup resolves emission factors by id. Missing rows are reported
// with models.ErrEmissionFactorNotFound.
type FactorLookup interface {
	GetEmissionFactor(ctx context.Context, id uint) (*models.EmissionFactor, error)
}

// Store is everything the calculator reads.
type Store interface {
	ActivitySource
	FactorLookup
}

type joinedStore struct {
	ActivitySource
	FactorLookup
}

// Join combines an activity source and a factor lookup into a Store.
func Join(activities ActivitySource, factors FactorLookup) Store {
	return joinedStore{ActivitySource: activities, FactorLookup: factors}
}

// Policy decides what happens to records with data-integrity gaps.
type Policy int

const (
	// Lenient skips and counts broken records.
	Lenient Policy = iota
	// Strict fails the whole aggregation on the first broken record.
	Strict
)

// SkipReason labels why a record was left out of a lenient aggregation.
type SkipReason string

const (
	SkipNoFactorID      SkipReason = "no_factor_id"
	SkipFactorNotFound  SkipReason = "factor_not_found"
	SkipUnknownCategory SkipReason = "unknown_category"
	SkipInvalidQuantity SkipReason = "invalid_quantity"
)

// Breakdown is the exact result of an aggregation.
type Breakdown struct {
	Total      decimal.Decimal
	ByCategory map[models.Category]decimal.Decimal
	Skipped    map[SkipReason]int
}

func newBreakdown() Breakdown {
	b := Breakdown{
		Total:      decimal.Zero,
		ByCategory: make(map[models.Category]decimal.Decimal, len(models.Categories)),
		Skipped:    make(map[SkipReason]int),
	}
	for _, c := range models.Categories {
		b.ByCategory[c] = decimal.Zero
	}
	return b
}

// SkippedCount is the number of records left out.
func (b Breakdown) SkippedCount() int {
	n := 0
	for _, v := range b.Skipped {
		n += v
	}
	return n
}

// Aggregate sums quantity * co2_factor across activities, grouped by category.
// Factor lookups are memoized for the duration of the call. Lookup failures
// other than a missing row are returned regardless of policy.
func Aggregate(ctx context.Context, factors FactorLookup, activities []models.Activity, policy Policy) (Breakdown, error) {
	b := newBreakdown()
	cache := make(map[uint]*models.EmissionFactor)

	for i := range activities {
		a := &activities[i]

		factor, reason, err := resolveFactor(ctx, factors, cache, a)
		if err != nil {
			return Breakdown{}, err
		}
		var emissions decimal.Decimal
		if reason == "" {
			emissions, reason = computeEmissions(a.Quantity, factor)
		}

		if reason != "" {
			if policy == Strict {
				return Breakdown{}, fmt.Errorf("activity %d: %w", a.ID, reasonError(reason))
			}
			b.Skipped[reason]++
			observability.RecordSkippedActivity(string(reason))
			log.Debug().
				Uint("activity_id", a.ID).
				Uint("user_id", a.UserID).
				Str("reason", string(reason)).
				Msg("skipping activity in footprint aggregation")
			continue
		}

		b.Total = b.Total.Add(emissions)
		b.ByCategory[factor.Category] = b.ByCategory[factor.Category].Add(emissions)
	}
	return b, nil
}

func resolveFactor(ctx context.Context, factors FactorLookup, cache map[uint]*models.EmissionFactor, a *models.Activity) (*models.EmissionFactor, SkipReason, error) {
	if a.EmissionFactorID == nil {
		return nil, SkipNoFactorID, nil
	}
	id := *a.EmissionFactorID

	factor := a.EmissionFactor
	if factor == nil || factor.ID != id {
		cached, seen := cache[id]
		if !seen {
			found, err := factors.GetEmissionFactor(ctx, id)
			switch {
			case errors.Is(err, models.ErrEmissionFactorNotFound):
				found = nil
			case err != nil:
				return nil, "", fmt.Errorf("resolve emission factor %d: %w", id, err)
			}
			cache[id] = found
			cached = found
		}
		factor = cached
	}

	if factor == nil {
		return nil, SkipFactorNotFound, nil
	}
	if !factor.Category.Valid() {
		return nil, SkipUnknownCategory, nil
	}
	return factor, "", nil
}

func computeEmissions(quantity float64, factor *models.EmissionFactor) (decimal.Decimal, SkipReason) {
	if !finite(quantity) || !finite(factor.CO2Factor) || !finite(quantity*factor.CO2Factor) {
		return decimal.Zero, SkipInvalidQuantity
	}
	return decimal.NewFromFloat(quantity).Mul(decimal.NewFromFloat(factor.CO2Factor)), ""
}

func reasonError(reason SkipReason) error {
	switch reason {
	case SkipUnknownCategory:
		return ErrUnknownCategory
	case SkipInvalidQuantity:
		return ErrInvalidQuantity
	default:
		return ErrMissingFactor
	}
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// round converts an exact amount to a float rounded half away from zero.
func round(d decimal.Decimal, places int32) float64 {
	return d.Round(places).InexactFloat64()
}
