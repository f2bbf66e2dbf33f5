package store

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUpsertDailySummary_InsertThenRead(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.UpsertDailySummary(DailySummary{
		SummaryDate:   "2026-06-17",
		Opens:         2,
		Closes:        1,
		Wins:          1,
		Losses:        0,
		TotalPnL:      170,
		AccountValue:  100170,
		CapitalAtRisk: 18750,
	}))

	got, err := db.GetDailySummary("2026-06-17")
	require.NoError(t, err)
	require.Equal(t, 2, got.Opens)
	require.Equal(t, 170.0, got.TotalPnL)
}

func TestUpsertDailySummary_PreservesReflectionWhenBlank(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.UpsertDailySummary(DailySummary{SummaryDate: "2026-06-17", Opens: 1}))
	require.NoError(t, db.SetReflection("2026-06-17", "solid day overall"))

	require.NoError(t, db.UpsertDailySummary(DailySummary{SummaryDate: "2026-06-17", Opens: 1, Closes: 1}))

	got, err := db.GetDailySummary("2026-06-17")
	require.NoError(t, err)
	require.Equal(t, "solid day overall", got.Reflection, "a blank-reflection upsert must not clobber an existing reflection")
	require.Equal(t, 1, got.Closes)
}

func TestSetReflection_CreatesRowIfAbsent(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.SetReflection("2026-06-18", "quiet day, no trades"))

	got, err := db.GetDailySummary("2026-06-18")
	require.NoError(t, err)
	require.Equal(t, "quiet day, no trades", got.Reflection)
}

func TestGetDailySummary_NotFound(t *testing.T) {
	db := openTestDB(t)

	_, err := db.GetDailySummary("2020-01-01")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGetDailySummaries_NewestFirst(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.UpsertDailySummary(DailySummary{SummaryDate: "2026-06-15"}))
	require.NoError(t, db.UpsertDailySummary(DailySummary{SummaryDate: "2026-06-17"}))
	require.NoError(t, db.UpsertDailySummary(DailySummary{SummaryDate: "2026-06-16"}))

	summaries, err := db.GetDailySummaries(10)
	require.NoError(t, err)
	require.Len(t, summaries, 3)
	require.Equal(t, "2026-06-17", summaries[0].SummaryDate)
	require.Equal(t, "2026-06-16", summaries[1].SummaryDate)
	require.Equal(t, "2026-06-15", summaries[2].SummaryDate)
}
