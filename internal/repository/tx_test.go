package repository

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestNormalizePage(t *testing.T) {
	cases := []struct {
		limit, offset     int
		wantLim, wantOffs int
	}{
		{0, 0, 50, 0},
		{-5, -1, 50, 0},
		{20, 40, 20, 40},
		{500, 10, 100, 10},
	}
	for _, tc := range cases {
		lim, off := NormalizePage(tc.limit, tc.offset)
		assert.Equal(t, tc.wantLim, lim)
		assert.Equal(t, tc.wantOffs, off)
	}
}

func TestExpectOne(t *testing.T) {
	assert.ErrorIs(t, expectOne(pgconn.NewCommandTag("UPDATE 0")), ErrStateMismatch)
	assert.NoError(t, expectOne(pgconn.NewCommandTag("UPDATE 1")))
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, isUniqueViolation(errors.New("boom")))
}
