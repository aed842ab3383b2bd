package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day = time.Date(2026, time.October, 18, 0, 0, 0, 0, time.UTC)

// --- Emission factors ---

func TestEmissionFactorsSeedIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	repo := NewEmissionFactorsRepository(db)
	seedFactors(t, db)

	n, err := repo.Seed(t.Context(), []EmissionFactor{{Category: CategoryFood, ActivityName: "Extra", Unit: "kg", CO2Factor: 1}})

	require.NoError(t, err)
	assert.Zero(t, n)
	count, err := repo.Count(t.Context())
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestEmissionFactorsLookups(t *testing.T) {
	db := newTestDB(t)
	repo := NewEmissionFactorsRepository(db)
	factors := seedFactors(t, db)

	got, err := repo.GetEmissionFactor(t.Context(), factors[1].ID)
	require.NoError(t, err)
	assert.Equal(t, "Boeuf", got.ActivityName)
	assert.Equal(t, 27.0, got.CO2Factor)

	_, err = repo.GetEmissionFactor(t.Context(), 999)
	assert.ErrorIs(t, err, ErrEmissionFactorNotFound)

	transport, err := repo.GetByCategory(t.Context(), CategoryTransport)
	require.NoError(t, err)
	require.Len(t, transport, 1)
	assert.Equal(t, "Voiture essence", transport[0].ActivityName)

	none, err := repo.GetByCategory(t.Context(), CategoryConsumption)
	require.NoError(t, err)
	assert.Empty(t, none)
}

// --- Users ---

func TestUsersCreateAndLookup(t *testing.T) {
	repo := NewUsersRepository(newTestDB(t))

	user := &User{Name: "Alice", Email: "  Alice@Example.com ", PasswordHash: "hash"}
	require.NoError(t, repo.Create(t.Context(), user))
	assert.NotZero(t, user.ID)
	assert.Equal(t, "alice@example.com", user.Email)

	byEmail, err := repo.GetByEmail(t.Context(), "ALICE@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	byID, err := repo.GetByID(t.Context(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", byID.Name)

	_, err = repo.GetByID(t.Context(), 42)
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = repo.GetByEmail(t.Context(), "bob@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUsersCreateDuplicateEmail(t *testing.T) {
	repo := NewUsersRepository(newTestDB(t))
	require.NoError(t, repo.Create(t.Context(), &User{Name: "A", Email: "a@example.com", PasswordHash: "x"}))

	err := repo.Create(t.Context(), &User{Name: "B", Email: "A@EXAMPLE.COM", PasswordHash: "y"})

	assert.ErrorIs(t, err, ErrEmailTaken)
	count, err := repo.Count(t.Context())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

// --- Activities ---

func TestActivitiesDateQueries(t *testing.T) {
	db := newTestDB(t)
	factors := seedFactors(t, db)
	repo := NewActivitiesRepository(db)

	for _, a := range []Activity{
		{UserID: 1, EmissionFactorID: ptr(factors[0].ID), Quantity: 100, Date: day.Add(15 * time.Hour)},
		{UserID: 1, EmissionFactorID: ptr(factors[1].ID), Quantity: 1, Date: day.AddDate(0, 0, -3)},
		{UserID: 1, EmissionFactorID: ptr(factors[2].ID), Quantity: 10, Date: day.AddDate(0, 0, -40)},
		{UserID: 2, EmissionFactorID: ptr(factors[0].ID), Quantity: 5, Date: day},
	} {
		require.NoError(t, repo.Create(t.Context(), &a))
	}

	onDate, err := repo.ActivitiesOnDate(t.Context(), 1, day.Add(9*time.Hour))
	require.NoError(t, err)
	require.Len(t, onDate, 1)
	assert.Equal(t, 100.0, onDate[0].Quantity)
	assert.True(t, onDate[0].Date.Equal(day), "date stored as calendar day")

	inRange, err := repo.ActivitiesInRange(t.Context(), 1, day.AddDate(0, 0, -6), day)
	require.NoError(t, err)
	assert.Len(t, inRange, 2)

	since, err := repo.ActivitiesSince(t.Context(), 1, day.AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.Len(t, since, 2)

	history, err := repo.History(t.Context(), 1, 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.True(t, history[0].Date.Equal(day))
	require.NotNil(t, history[0].EmissionFactor)
	assert.Equal(t, "Voiture essence", history[0].EmissionFactor.ActivityName)

	all, err := repo.History(t.Context(), 1, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestActivitiesDeleteOwned(t *testing.T) {
	db := newTestDB(t)
	factors := seedFactors(t, db)
	repo := NewActivitiesRepository(db)

	a := &Activity{UserID: 1, EmissionFactorID: ptr(factors[0].ID), Quantity: 10, Date: day}
	require.NoError(t, repo.Create(t.Context(), a))

	assert.ErrorIs(t, repo.DeleteOwned(t.Context(), 2, a.ID), ErrActivityNotFound)
	require.NoError(t, repo.DeleteOwned(t.Context(), 1, a.ID))
	assert.ErrorIs(t, repo.DeleteOwned(t.Context(), 1, a.ID), ErrActivityNotFound)

	count, err := repo.Count(t.Context())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestActivitiesTotals(t *testing.T) {
	db := newTestDB(t)
	factors := seedFactors(t, db)
	repo := NewActivitiesRepository(db)

	total, err := repo.TotalEmissions(t.Context())
	require.NoError(t, err)
	assert.Zero(t, total)

	for _, a := range []Activity{
		{UserID: 1, EmissionFactorID: ptr(factors[0].ID), Quantity: 100, Date: day},
		{UserID: 1, EmissionFactorID: ptr(factors[1].ID), Quantity: 0.5, Date: day},
		{UserID: 1, Quantity: 3, Date: day},
		{UserID: 2, EmissionFactorID: ptr(factors[1].ID), Quantity: 1, Date: day},
	} {
		require.NoError(t, repo.Create(t.Context(), &a))
	}

	count, err := repo.Count(t.Context())
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)

	total, err = repo.TotalEmissions(t.Context())
	require.NoError(t, err)
	assert.InDelta(t, 19.2+13.5+27.0, total, 1e-9)

	userTotal, err := repo.UserTotalEmissions(t.Context(), 1)
	require.NoError(t, err)
	assert.InDelta(t, 32.7, userTotal, 1e-9)
}
