package repo

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/dineshsunshine/ai-studio-backend-sub001/internal/domain"
)

func TestMapDBError(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name  string
		in    error
		check func(t *testing.T, got error)
	}{
		{name: "nil", in: nil, check: func(t *testing.T, got error) { assert.NoError(t, got) }},
		{name: "no rows", in: fmt.Errorf("scan: %w", pgx.ErrNoRows), check: func(t *testing.T, got error) {
			assert.ErrorIs(t, got, domain.ErrNotFound)
		}},
		{name: "unique", in: &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "users_email_key"}, check: func(t *testing.T, got error) {
			assert.ErrorIs(t, got, domain.ErrConflict)
			assert.Contains(t, got.Error(), "users_email_key")
		}},
		{name: "check", in: &pgconn.PgError{Code: pgerrcode.CheckViolation, ConstraintName: "video_jobs_result_matches_status", Message: "violates"}, check: func(t *testing.T, got error) {
			assert.True(t, domain.IsValidation(got))
		}},
		{name: "bad uuid", in: &pgconn.PgError{Code: pgerrcode.InvalidTextRepresentation}, check: func(t *testing.T, got error) {
			assert.ErrorIs(t, got, domain.ErrNotFound)
		}},
		{name: "timeout passthrough", in: context.DeadlineExceeded, check: func(t *testing.T, got error) {
			assert.ErrorIs(t, got, context.DeadlineExceeded)
		}},
		{name: "unknown passthrough", in: boom, check: func(t *testing.T, got error) {
			assert.Same(t, boom, got)
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.check(t, mapDBError(tc.in))
		})
	}
}
