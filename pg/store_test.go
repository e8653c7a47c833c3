package pg

import (
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timescale/TimescaleDB-HybridSearch/search"
)

func TestNewStore_RequiresPool(t *testing.T) {
	_, err := NewStore(nil)
	require.Error(t, err)
}

func TestNewRestorer_RequiresPool(t *testing.T) {
	_, err := NewRestorer(nil, nil)
	require.Error(t, err)
}

func TestWindowPredicate_NilWindowIsPassthrough(t *testing.T) {
	args := pgx.NamedArgs{}

	assert.Equal(t, "", windowPredicate("", args, nil))
	assert.Equal(t, "WHERE d.x = 1", windowPredicate("WHERE d.x = 1", args, nil))
	assert.Empty(t, args)
}

func TestWindowPredicate_BindsIntervalAsParameter(t *testing.T) {
	w, err := search.ParseTimeWindow("12 months")
	require.NoError(t, err)

	args := pgx.NamedArgs{}
	where := windowPredicate("", args, &w)

	assert.Equal(t, "WHERE d.published_date >= now() - @window::interval", where)
	assert.Equal(t, "12 months", args["window"])

	// The interval never appears inline in the SQL fragment.
	assert.NotContains(t, where, "12 months")
}

func TestWindowPredicate_AppendsToExistingWhere(t *testing.T) {
	w, err := search.ParseTimeWindow("1 year")
	require.NoError(t, err)

	args := pgx.NamedArgs{}
	where := windowPredicate("WHERE d.search_vector @@ tsq.query", args, &w)

	assert.Equal(t,
		"WHERE d.search_vector @@ tsq.query AND d.published_date >= now() - @window::interval",
		where)
	assert.Equal(t, "1 years", args["window"])
}
