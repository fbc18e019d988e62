package database

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryMaps(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"customer_name", "annual_run_rate_usd", "relevance_score"}).
		AddRow([]byte("Acme"), 120000.5, int64(42)).
		AddRow("Globex", nil, int64(17))
	mock.ExpectQuery(`SELECT \* FROM base_projects`).WillReturnRows(rows)

	data, columns, err := QueryMaps(context.Background(), db, "SELECT * FROM base_projects")
	require.NoError(t, err)

	assert.Equal(t, []string{"customer_name", "annual_run_rate_usd", "relevance_score"}, columns)
	require.Len(t, data, 2)
	assert.Equal(t, "Acme", data[0]["customer_name"])
	assert.Equal(t, 120000.5, data[0]["annual_run_rate_usd"])
	assert.Nil(t, data[1]["annual_run_rate_usd"])
	assert.Equal(t, int64(17), data[1]["relevance_score"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryMaps_Empty(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT 1`).WillReturnRows(sqlmock.NewRows([]string{"x"}))

	data, _, err := QueryMaps(context.Background(), db, "SELECT 1")
	require.NoError(t, err)
	assert.NotNil(t, data)
	assert.Empty(t, data)
}

func TestQueryMaps_Errors(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT 1`).WillReturnError(errors.New("relation does not exist"))
	_, _, err = QueryMaps(context.Background(), db, "SELECT 1")
	assert.EqualError(t, err, "relation does not exist")

	rows := sqlmock.NewRows([]string{"x"}).AddRow(1).RowError(0, errors.New("connection reset"))
	mock.ExpectQuery(`SELECT 2`).WillReturnRows(rows)
	_, _, err = QueryMaps(context.Background(), db, "SELECT 2")
	assert.ErrorContains(t, err, "connection reset")
}
