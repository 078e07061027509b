package repository

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"reflect"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"luch-agregator/logger"
)

// idsArg matches the []int64 passed to ANY($1), which the default value converter rejects
type idsArg []int64

func (a idsArg) Match(v driver.Value) bool {
	got, ok := v.([]int64)
	return ok && reflect.DeepEqual([]int64(a), got)
}

// int64SliceConverter lets []int64 through to the mock the way the pgx driver accepts it
type int64SliceConverter struct{}

func (int64SliceConverter) ConvertValue(v any) (driver.Value, error) {
	if ids, ok := v.([]int64); ok {
		return ids, nil
	}
	return driver.DefaultParameterConverter.ConvertValue(v)
}

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.ValueConverterOption(int64SliceConverter{}))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return db, mock
}

func nopLogger() *logger.Logger { return logger.Nop() }

func modelRow(id int64, name, price string) []driver.Value {
	return []driver.Value{id, name, price, "", "", id * 10, fmt.Sprintf("Product %d", id), int64(1), "Category"}
}

var modelColumnNames = []string{"id", "name", "price", "details", "image", "product_id", "product_name", "category_id", "category_name"}
