package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecotrace/carbon-tracker/advice"
	"github.com/ecotrace/carbon-tracker/auth"
	"github.com/ecotrace/carbon-tracker/catalog"
	"github.com/ecotrace/carbon-tracker/footprint"
	"github.com/ecotrace/carbon-tracker/models"
)

// --- Mock Store ---

type MockStore struct {
	Activities []models.Activity
	Factors    map[uint]*models.EmissionFactor
	Err        error
}

func (m *MockStore) filter(userID uint, keep func(time.Time) bool) ([]models.Activity, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	var out []models.Activity
	for _, a := range m.Activities {
		if a.UserID == userID && keep(a.Date) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *MockStore) ActivitiesOnDate(_ context.Context, userID uint, day time.Time) ([]models.Activity, error) {
	return m.filter(userID, func(d time.Time) bool { return d.Equal(day) })
}

func (m *MockStore) ActivitiesInRange(_ context.Context, userID uint, from, to time.Time) ([]models.Activity, error) {
	return m.filter(userID, func(d time.Time) bool { return !d.Before(from) && !d.After(to) })
}

func (m *MockStore) ActivitiesSince(_ context.Context, userID uint, from time.Time) ([]models.Activity, error) {
	return m.filter(userID, func(d time.Time) bool { return !d.Before(from) })
}

func (m *MockStore) GetEmissionFactor(_ context.Context, id uint) (*models.EmissionFactor, error) {
	if f, ok := m.Factors[id]; ok {
		return f, nil
	}
	return nil, models.ErrEmissionFactorNotFound
}

type MockActivityReader struct {
	Recent    []models.Activity
	Total     float64
	Err       error
	lastLimit int
}

func (m *MockActivityReader) History(_ context.Context, _ uint, limit int) ([]models.Activity, error) {
	m.lastLimit = limit
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Recent, nil
}

func (m *MockActivityReader) UserTotalEmissions(context.Context, uint) (float64, error) {
	return m.Total, m.Err
}

// --- Helpers ---

var (
	now   = time.Date(2026, time.October, 18, 14, 0, 0, 0, time.UTC)
	today = models.CalendarDay(now)

	factors = map[uint]*models.EmissionFactor{
		1: {ID: 1, Category: models.CategoryTransport, ActivityName: "Voiture essence", Unit: "km", CO2Factor: 0.192},
		2: {ID: 2, Category: models.CategoryFood, ActivityName: "Boeuf", Unit: "kg", CO2Factor: 27},
	}
)

func id(v uint) *uint { return &v }

func sampleActivities() []models.Activity {
	return []models.Activity{
		{ID: 1, UserID: 7, EmissionFactorID: id(1), Quantity: 100, Date: today},
		{ID: 2, UserID: 7, EmissionFactorID: id(2), Quantity: 1, Date: today.AddDate(0, 0, -3)},
		{ID: 3, UserID: 8, EmissionFactorID: id(2), Quantity: 10, Date: today},
	}
}

func newHandler(store *MockStore, reader *MockActivityReader) *DashboardHandler {
	h := NewDashboardHandler(store, reader, catalog.Default())
	h.clock = func() time.Time { return now }
	return h
}

func authed(req *http.Request) *http.Request {
	return req.WithContext(auth.WithClaims(req.Context(), &auth.Claims{UserID: 7}))
}

// --- Tests: GET /dashboard ---

func TestBuild(t *testing.T) {
	t.Run("Every part available", func(t *testing.T) {
		reader := &MockActivityReader{Total: 46.2, Recent: []models.Activity{
			{ID: 1, UserID: 7, EmissionFactorID: id(1), EmissionFactor: factors[1], Quantity: 100, Date: today},
		}}
		h := newHandler(&MockStore{Activities: sampleActivities(), Factors: factors}, reader)

		resp := h.Build(context.Background(), 7)

		assert.Empty(t, resp.Degraded)
		assert.Equal(t, "2026-10-18", resp.Date)
		assert.Equal(t, 46.2, resp.TotalEmissions)
		assert.Equal(t, 19.2, resp.DailyTotal)
		assert.Equal(t, 19.2, resp.Daily.ByCategory[models.CategoryTransport])
		require.Len(t, resp.Weekly, footprint.TrendDays)
		assert.Equal(t, 27.0, resp.Weekly[3].Emissions)
		require.NotNil(t, resp.Monthly)
		assert.Equal(t, 46.2, resp.Monthly.Total)
		require.NotNil(t, resp.Comparison)
		assert.Equal(t, 160.0, resp.Comparison.Percentage.Total)
		assert.Equal(t, advice.ReasonInsufficientData, resp.Recommendations.Reason)
		assert.Len(t, resp.Recommendations.Items, 5)
		require.Len(t, resp.RecentActivities, 1)
		assert.Equal(t, 19.2, resp.RecentActivities[0].Emissions)
		assert.Equal(t, RecentActivities, reader.lastLimit)
	})

	t.Run("Store failure degrades every part", func(t *testing.T) {
		h := newHandler(&MockStore{Err: errors.New("db down")}, &MockActivityReader{Err: errors.New("db down")})

		resp := h.Build(context.Background(), 7)

		assert.ElementsMatch(t, []string{
			partTotal, partDaily, partWeekly, partMonthly, partComparison, partRecommendations, partRecent,
		}, resp.Degraded)
		assert.Zero(t, resp.DailyTotal)
		assert.Len(t, resp.Daily.ByCategory, 4)
		assert.NotNil(t, resp.Weekly)
		assert.Empty(t, resp.Weekly)
		assert.Nil(t, resp.Monthly)
		assert.Nil(t, resp.Comparison)
		assert.Equal(t, advice.ReasonFallback, resp.Recommendations.Reason)
		assert.Len(t, resp.Recommendations.Items, 5)
		assert.NotNil(t, resp.RecentActivities)
	})

	t.Run("Dangling factor only blocks the monthly summary", func(t *testing.T) {
		acts := append(sampleActivities(), models.Activity{ID: 9, UserID: 7, EmissionFactorID: id(99), Quantity: 1, Date: today})
		h := newHandler(&MockStore{Activities: acts, Factors: factors}, &MockActivityReader{})

		resp := h.Build(context.Background(), 7)

		assert.Equal(t, []string{partMonthly}, resp.Degraded)
		assert.Equal(t, 1, resp.Daily.Skipped)
		assert.Equal(t, 19.2, resp.DailyTotal)
	})
}

func TestHandleDashboard(t *testing.T) {
	h := newHandler(&MockStore{Activities: sampleActivities(), Factors: factors}, &MockActivityReader{})

	rec := httptest.NewRecorder()
	h.HandleDashboard(rec, authed(httptest.NewRequest("GET", "/dashboard", nil)))

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	for _, key := range []string{"daily", "weekly", "monthly", "comparison", "recommendations", "recent_activities", "degraded"} {
		assert.Contains(t, resp, key)
	}

	rec = httptest.NewRecorder()
	h.HandleDashboard(rec, httptest.NewRequest("GET", "/dashboard", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// --- Tests: GET /footprint/* ---

func TestFootprintEndpoints(t *testing.T) {
	withGap := append(sampleActivities(), models.Activity{ID: 9, UserID: 7, Quantity: 1, Date: today.AddDate(0, 0, -10)})

	testCases := []struct {
		name               string
		target             string
		handler            func(h *DashboardHandler) http.HandlerFunc
		mockStoreSetup     func() *MockStore
		expectedStatusCode int
		checkResponse      func(t *testing.T, rec *httptest.ResponseRecorder)
	}{
		{
			name:               "Daily for today",
			target:             "/footprint/daily",
			handler:            func(h *DashboardHandler) http.HandlerFunc { return h.HandleDaily },
			mockStoreSetup:     func() *MockStore { return &MockStore{Activities: sampleActivities(), Factors: factors} },
			expectedStatusCode: http.StatusOK,
			checkResponse: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var resp footprint.DailyFootprint
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
				assert.Equal(t, "2026-10-18", resp.Date)
				assert.Equal(t, 19.2, resp.Total)
			},
		},
		{
			name:               "Daily for an explicit date",
			target:             "/footprint/daily?date=2026-10-15",
			handler:            func(h *DashboardHandler) http.HandlerFunc { return h.HandleDaily },
			mockStoreSetup:     func() *MockStore { return &MockStore{Activities: sampleActivities(), Factors: factors} },
			expectedStatusCode: http.StatusOK,
			checkResponse: func(t *testing.T, rec *httptest.ResponseRecorder) {
				assert.Contains(t, rec.Body.String(), `"food":27`)
			},
		},
		{
			name:               "Daily with a malformed date",
			target:             "/footprint/daily?date=15/10/2026",
			handler:            func(h *DashboardHandler) http.HandlerFunc { return h.HandleDaily },
			mockStoreSetup:     func() *MockStore { return &MockStore{} },
			expectedStatusCode: http.StatusBadRequest,
		},
		{
			name:               "Daily store failure",
			target:             "/footprint/daily",
			handler:            func(h *DashboardHandler) http.HandlerFunc { return h.HandleDaily },
			mockStoreSetup:     func() *MockStore { return &MockStore{Err: errors.New("db down")} },
			expectedStatusCode: http.StatusInternalServerError,
		},
		{
			name:               "Weekly trend",
			target:             "/footprint/weekly",
			handler:            func(h *DashboardHandler) http.HandlerFunc { return h.HandleWeekly },
			mockStoreSetup:     func() *MockStore { return &MockStore{Activities: sampleActivities(), Factors: factors} },
			expectedStatusCode: http.StatusOK,
			checkResponse: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var resp []footprint.TrendPoint
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
				require.Len(t, resp, 7)
				assert.Equal(t, "12/10", resp[0].DisplayDate)
				assert.Equal(t, 19.2, resp[6].Emissions)
			},
		},
		{
			name:               "Monthly defaults to the current month",
			target:             "/footprint/monthly",
			handler:            func(h *DashboardHandler) http.HandlerFunc { return h.HandleMonthly },
			mockStoreSetup:     func() *MockStore { return &MockStore{Activities: sampleActivities(), Factors: factors} },
			expectedStatusCode: http.StatusOK,
			checkResponse: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var resp footprint.MonthlySummary
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
				assert.Equal(t, 2026, resp.Year)
				assert.Equal(t, 10, resp.Month)
				assert.Equal(t, 46.2, resp.Total)
				assert.Equal(t, 1.49, resp.DailyAverage)
			},
		},
		{
			name:               "Monthly for an empty month",
			target:             "/footprint/monthly?year=2026&month=2",
			handler:            func(h *DashboardHandler) http.HandlerFunc { return h.HandleMonthly },
			mockStoreSetup:     func() *MockStore { return &MockStore{Activities: sampleActivities(), Factors: factors} },
			expectedStatusCode: http.StatusOK,
			checkResponse: func(t *testing.T, rec *httptest.ResponseRecorder) {
				assert.Contains(t, rec.Body.String(), `"total":0`)
			},
		},
		{
			name:               "Monthly with month 13",
			target:             "/footprint/monthly?month=13",
			handler:            func(h *DashboardHandler) http.HandlerFunc { return h.HandleMonthly },
			mockStoreSetup:     func() *MockStore { return &MockStore{} },
			expectedStatusCode: http.StatusBadRequest,
		},
		{
			name:               "Monthly with a non-numeric year",
			target:             "/footprint/monthly?year=next",
			handler:            func(h *DashboardHandler) http.HandlerFunc { return h.HandleMonthly },
			mockStoreSetup:     func() *MockStore { return &MockStore{} },
			expectedStatusCode: http.StatusBadRequest,
			checkResponse: func(t *testing.T, rec *httptest.ResponseRecorder) {
				assert.JSONEq(t, `{"error":"invalid year"}`, rec.Body.String())
			},
		},
		{
			name:               "Monthly blocked by a record without factor",
			target:             "/footprint/monthly",
			handler:            func(h *DashboardHandler) http.HandlerFunc { return h.HandleMonthly },
			mockStoreSetup:     func() *MockStore { return &MockStore{Activities: withGap, Factors: factors} },
			expectedStatusCode: http.StatusUnprocessableEntity,
		},
		{
			name:               "Comparison",
			target:             "/footprint/comparison",
			handler:            func(h *DashboardHandler) http.HandlerFunc { return h.HandleComparison },
			mockStoreSetup:     func() *MockStore { return &MockStore{Activities: sampleActivities(), Factors: factors} },
			expectedStatusCode: http.StatusOK,
			checkResponse: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var resp footprint.Comparison
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
				assert.Equal(t, 160.0, resp.Percentage.Total)
				assert.Equal(t, 384.0, resp.PercentageByCategory[models.CategoryTransport])
			},
		},
		{
			name:               "Recommendations never fail",
			target:             "/recommendations",
			handler:            func(h *DashboardHandler) http.HandlerFunc { return h.HandleRecommendations },
			mockStoreSetup:     func() *MockStore { return &MockStore{Err: errors.New("db down")} },
			expectedStatusCode: http.StatusOK,
			checkResponse: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var resp advice.Result
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
				assert.True(t, resp.Degraded)
				assert.Len(t, resp.Items, 5)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// Arrange
			h := newHandler(tc.mockStoreSetup(), &MockActivityReader{})
			req := authed(httptest.NewRequest("GET", tc.target, nil))
			rec := httptest.NewRecorder()

			// Act
			tc.handler(h)(rec, req)

			// Assert
			assert.Equal(t, tc.expectedStatusCode, rec.Code)
			if tc.checkResponse != nil {
				tc.checkResponse(t, rec)
			}
		})
	}
}
