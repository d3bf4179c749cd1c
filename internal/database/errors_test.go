package database

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		want      ErrorClass
		retryable bool
	}{
		{"serialization", &pq.Error{Code: "40001"}, ErrorClassSerialization, true},
		{"deadlock", &pq.Error{Code: "40P01"}, ErrorClassDeadlock, true},
		{"lock not available", &pq.Error{Code: "55P03"}, ErrorClassTransient, true},
		{"unique violation", &pq.Error{Code: "23505"}, ErrorClassConflict, false},
		{"check violation", &pq.Error{Code: "23514"}, ErrorClassPermanent, false},
		{"wrapped deadlock", fmt.Errorf("charge: %w", &pq.Error{Code: "40P01"}), ErrorClassDeadlock, true},
		{"no rows", sql.ErrNoRows, ErrorClassPermanent, false},
		{"plain error", errors.New("boom"), ErrorClassPermanent, false},
		{"nil", nil, ErrorClassPermanent, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyError(tt.err))
			assert.Equal(t, tt.retryable, IsRetryable(tt.err))
		})
	}

	assert.True(t, IsUniqueViolation(&pq.Error{Code: "23505"}))
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrationsFS.ReadDir("migrations")
	assert.NoError(t, err)
	assert.Len(t, entries, 2)
}
