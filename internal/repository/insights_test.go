package repository

import (
	"context"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsights_CatalogNamesUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, in := range Insights() {
		assert.False(t, seen[in.Name], "duplicate insight %s", in.Name)
		seen[in.Name] = true
		assert.NotEmpty(t, in.Title)
		assert.NotEmpty(t, in.Category)
		if in.Supported() {
			assert.NotEmpty(t, in.Query, in.Name)
		}
	}
}

func TestInsights_UnsupportedReferenceAbsentColumns(t *testing.T) {
	columns := ColumnNames()
	var unsupported []string
	for _, in := range Insights() {
		if in.Supported() {
			continue
		}
		unsupported = append(unsupported, in.Name)
		for _, col := range in.Missing {
			assert.NotContains(t, columns, col, "%s lists %s as missing", in.Name, col)
		}
	}
	assert.ElementsMatch(t, []string{
		"casualties-by-place", "economic-loss-by-continent", "economic-loss-by-alert-level", "alert-level-counts",
	}, unsupported)
}

func TestRunInsight_AllSupportedExecute(t *testing.T) {
	s := seededStore(t)
	ctx := context.Background()

	for _, in := range Insights() {
		if !in.Supported() {
			continue
		}
		t.Run(in.Name, func(t *testing.T) {
			res, err := s.RunInsight(ctx, in.Name)
			require.NoError(t, err)
			assert.Equal(t, in.Name, res.Insight)
			assert.NotEmpty(t, res.Columns)
		})
	}
}

func TestRunInsight_Results(t *testing.T) {
	s := seededStore(t)
	ctx := context.Background()

	res, err := s.RunInsight(ctx, "top-strongest")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "magnitude", "depth_km", "place", "time"}, res.Columns)
	require.Len(t, res.Rows, 4)
	assert.Equal(t, "c1", res.Rows[0][0])
	assert.Equal(t, 7.0, res.Rows[0][1])

	res, err = s.RunInsight(ctx, "events-per-hour")
	require.NoError(t, err)
	assert.Equal(t, [][]any{{int64(5), int64(2)}, {int64(12), int64(1)}}, res.Rows)

	res, err = s.RunInsight(ctx, "busiest-year")
	require.NoError(t, err)
	assert.Equal(t, [][]any{{int64(2021), int64(2)}}, res.Rows)

	res, err = s.RunInsight(ctx, "tsunami-magnitude-difference")
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.InDelta(t, 7.0-(5.0+6.5+4.6)/3, res.Rows[0][0], 1e-9)

	res, err = s.RunInsight(ctx, "top-countries-avg-magnitude")
	require.NoError(t, err)
	require.NotEmpty(t, res.Rows)
	assert.Equal(t, "Chile", res.Rows[0][0])

	res, err = s.RunInsight(ctx, "deep-focus-regions")
	require.NoError(t, err)
	assert.Equal(t, [][]any{{"Pacific Ring of Fire", int64(1)}}, res.Rows)
}

func TestRunInsight_Errors(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	_, err := s.RunInsight(ctx, "no-such-query")
	assert.ErrorIs(t, err, ErrUnknownInsight)

	_, err = s.RunInsight(ctx, "casualties-by-place")
	assert.ErrorIs(t, err, ErrUnsupportedInsight)
	assert.Contains(t, err.Error(), "casualties")
}

func TestLookupInsight(t *testing.T) {
	in, err := LookupInsight("yoy-growth")
	require.NoError(t, err)
	assert.True(t, in.Supported())

	names := make([]string, 0)
	for _, in := range Insights() {
		names = append(names, in.Name)
	}
	assert.True(t, slices.Contains(names, "shallow-deep-ratio"))
}
