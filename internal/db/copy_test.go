package db

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyFrom_EmptyRows(t *testing.T) {
	n, err := CopyFrom(context.TODO(), nil, "atlas_alt_names", []string{"alt_key_name", "alt_name"}, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestCopyFrom_Success(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"atlas_alt_names"}, []string{"alt_key_name", "alt_name"}).WillReturnResult(3)

	rows := [][]any{{"BIGAPPLE", "Big Apple"}, {"GOTHAM", "Gotham"}, {"LUTETIA", "Lutetia"}}
	n, err := CopyFrom(context.Background(), mock, "atlas_alt_names", []string{"alt_key_name", "alt_name"}, rows)
	assert.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyFrom_Error(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"atlas_alt_names"}, []string{"alt_key_name", "alt_name"}).WillReturnError(fmt.Errorf("copy failed"))

	rows := [][]any{{"BIGAPPLE", "Big Apple"}}
	_, err = CopyFrom(context.Background(), mock, "atlas_alt_names", []string{"alt_key_name", "alt_name"}, rows)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COPY INTO atlas_alt_names")
	assert.NoError(t, mock.ExpectationsWereMet())
}
