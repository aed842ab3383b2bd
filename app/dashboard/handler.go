package dashboard

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/ecotrace/carbon-tracker/advice"
	"github.com/ecotrace/carbon-tracker/app/activities"
	"github.com/ecotrace/carbon-tracker/app/httpio"
	"github.com/ecotrace/carbon-tracker/auth"
	"github.com/ecotrace/carbon-tracker/catalog"
	"github.com/ecotrace/carbon-tracker/footprint"
	"github.com/ecotrace/carbon-tracker/models"
)

// RecentActivities is how many history rows the dashboard shows.
const RecentActivities = 3

const dateLayout = "2006-01-02"

// Dashboard parts, as reported in Response.Degraded.
const (
	partDaily           = "daily"
	partWeekly          = "weekly"
	partMonthly         = "monthly"
	partComparison      = "comparison"
	partTotal           = "total_emissions"
	partRecent          = "recent_activities"
	partRecommendations = "recommendations"
)

type ActivityReader interface {
	History(ctx context.Context, userID uint, limit int) ([]models.Activity, error)
	UserTotalEmissions(ctx context.Context, userID uint) (float64, error)
}

// Response is the combined dashboard payload. Parts that failed carry their
// empty default and are listed in Degraded.
type Response struct {
	Date             string                        `json:"date"`
	TotalEmissions   float64                       `json:"total_emissions"`
	DailyTotal       float64                       `json:"daily_total"`
	Daily            footprint.DailyFootprint      `json:"daily"`
	Weekly           []footprint.TrendPoint        `json:"weekly"`
	Monthly          *footprint.MonthlySummary     `json:"monthly"`
	Comparison       *footprint.Comparison         `json:"comparison"`
	Recommendations  advice.Result                 `json:"recommendations"`
	RecentActivities []activities.ActivityResponse `json:"recent_activities"`
	Degraded         []string                      `json:"degraded"`
}

type DashboardHandler struct {
	store      footprint.Store
	activities ActivityReader
	catalog    *catalog.Catalog
	clock      func() time.Time
}

func NewDashboardHandler(store footprint.Store, a ActivityReader, cat *catalog.Catalog) *DashboardHandler {
	return &DashboardHandler{store: store, activities: a, catalog: cat, clock: time.Now}
}

func (h *DashboardHandler) today() time.Time {
	return models.CalendarDay(h.clock())
}

func currentUser(w http.ResponseWriter, r *http.Request) (uint, bool) {
	id, ok := auth.UserID(r.Context())
	if !ok {
		httpio.WriteError(w, http.StatusUnauthorized, "authentication required")
	}
	return id, ok
}

func computeFailed(w http.ResponseWriter, userID uint, what string, err error) {
	log.Error().Err(err).Uint("user_id", userID).Msg("failed to compute " + what)
	httpio.WriteError(w, http.StatusInternalServerError, "failed to compute "+what)
}

func (h *DashboardHandler) HandleDaily(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	day := h.today()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse(dateLayout, raw)
		if err != nil {
			httpio.WriteError(w, http.StatusBadRequest, "Format de date invalide.")
			return
		}
		day = parsed
	}

	daily, err := footprint.Daily(r.Context(), h.store, userID, day)
	if err != nil {
		computeFailed(w, userID, "daily footprint", err)
		return
	}
	httpio.WriteJSON(w, http.StatusOK, daily)
}

func (h *DashboardHandler) HandleWeekly(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	trend, err := footprint.Weekly(r.Context(), h.store, userID, h.today())
	if err != nil {
		computeFailed(w, userID, "weekly trend", err)
		return
	}
	httpio.WriteJSON(w, http.StatusOK, trend)
}

func (h *DashboardHandler) HandleMonthly(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var year, month int
	for _, p := range []struct {
		key string
		dst *int
	}{{"year", &year}, {"month", &month}} {
		raw := r.URL.Query().Get(p.key)
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			httpio.WriteError(w, http.StatusBadRequest, "invalid "+p.key)
			return
		}
		*p.dst = v
	}
	y, m, err := footprint.ResolveMonth(year, month, h.clock())
	if err != nil {
		httpio.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	summary, err := footprint.Monthly(r.Context(), h.store, userID, y, m)
	switch {
	case isDataGap(err):
		log.Warn().Err(err).Uint("user_id", userID).Msg("monthly summary blocked by incomplete records")
		httpio.WriteError(w, http.StatusUnprocessableEntity, err.Error())
	case err != nil:
		computeFailed(w, userID, "monthly summary", err)
	default:
		httpio.WriteJSON(w, http.StatusOK, summary)
	}
}

func (h *DashboardHandler) HandleComparison(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	cmp, err := footprint.CompareWithAverage(r.Context(), h.store, userID, h.today(), h.catalog.NationalAverage)
	if err != nil {
		computeFailed(w, userID, "comparison", err)
		return
	}
	httpio.WriteJSON(w, http.StatusOK, cmp)
}

func (h *DashboardHandler) HandleRecommendations(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	httpio.WriteJSON(w, http.StatusOK, advice.Personalized(r.Context(), h.store, userID, h.today(), h.catalog))
}

// HandleDashboard combines every view. A failing part never fails the
// response: it is logged, replaced by its empty default and listed in
// Degraded.
func (h *DashboardHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	httpio.WriteJSON(w, http.StatusOK, h.Build(r.Context(), userID))
}

// Build assembles the dashboard for userID.
func (h *DashboardHandler) Build(ctx context.Context, userID uint) Response {
	now := h.clock()
	today := models.CalendarDay(now)
	logger := log.With().Uint("user_id", userID).Logger()
	resp := Response{
		Date:             today.Format(dateLayout),
		Daily:            emptyDaily(today),
		Weekly:           []footprint.TrendPoint{},
		RecentActivities: []activities.ActivityResponse{},
		Degraded:         []string{},
	}
	degrade := func(part string, err error) {
		logger.Warn().Err(err).Str("part", part).Msg("dashboard part unavailable")
		resp.Degraded = append(resp.Degraded, part)
	}

	if total, err := h.activities.UserTotalEmissions(ctx, userID); err != nil {
		degrade(partTotal, err)
	} else {
		resp.TotalEmissions = round2(total)
	}

	if daily, err := footprint.Daily(ctx, h.store, userID, today); err != nil {
		degrade(partDaily, err)
	} else {
		resp.Daily = daily
		resp.DailyTotal = round2(daily.Total)
	}

	if trend, err := footprint.Weekly(ctx, h.store, userID, today); err != nil {
		degrade(partWeekly, err)
	} else {
		resp.Weekly = trend
	}

	if monthly, err := footprint.Monthly(ctx, h.store, userID, now.Year(), now.Month()); err != nil {
		degrade(partMonthly, err)
	} else {
		resp.Monthly = &monthly
	}

	if cmp, err := footprint.CompareWithAverage(ctx, h.store, userID, today, h.catalog.NationalAverage); err != nil {
		degrade(partComparison, err)
	} else {
		resp.Comparison = &cmp
	}

	resp.Recommendations = advice.Personalized(ctx, h.store, userID, today, h.catalog)
	if resp.Recommendations.Degraded {
		resp.Degraded = append(resp.Degraded, partRecommendations)
	}

	if recent, err := h.activities.History(ctx, userID, RecentActivities); err != nil {
		degrade(partRecent, err)
	} else {
		for _, a := range recent {
			resp.RecentActivities = append(resp.RecentActivities, activities.ToResponse(a))
		}
	}

	logger.Debug().Strs("degraded", resp.Degraded).Float64("daily_total", resp.DailyTotal).Msg("dashboard built")
	return resp
}

func emptyDaily(day time.Time) footprint.DailyFootprint {
	byCategory := make(footprint.CategoryTotals, len(models.Categories))
	for _, c := range models.Categories {
		byCategory[c] = 0
	}
	return footprint.DailyFootprint{Date: day.Format(dateLayout), ByCategory: byCategory}
}

func isDataGap(err error) bool {
	return errors.Is(err, footprint.ErrMissingFactor) ||
		errors.Is(err, footprint.ErrUnknownCategory) ||
		errors.Is(err, footprint.ErrInvalidQuantity)
}

func round2(f float64) float64 {
	return decimal.NewFromFloat(f).Round(2).InexactFloat64()
}
