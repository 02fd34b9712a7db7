package repo

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dineshsunshine/ai-studio-backend-sub001/internal/infra"
)

// fakeDB replays scripted rows in call order and records every statement.
type fakeDB struct {
	rows     []fakeRow
	execTags []pgconn.CommandTag
	execErr  error

	queries []string
	execs   []recordedExec
	txCount int
}

type recordedExec struct {
	query string
	args  []any
}

func (f *fakeDB) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, recordedExec{query: query, args: args})
	if f.execErr != nil {
		return pgconn.CommandTag{}, f.execErr
	}
	if len(f.execTags) == 0 {
		return pgconn.NewCommandTag("UPDATE 1"), nil
	}
	tag := f.execTags[0]
	f.execTags = f.execTags[1:]
	return tag, nil
}

func (f *fakeDB) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	f.queries = append(f.queries, query)
	if len(f.rows) == 0 {
		return fakeRow{err: pgx.ErrNoRows}
	}
	row := f.rows[0]
	f.rows = f.rows[1:]
	return row
}

func (f *fakeDB) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeDB) InTx(ctx context.Context, fn func(tx infra.SQLExecutor) error) error {
	f.txCount++
	return fn(f)
}

func (f *fakeDB) execQueries() []string {
	out := make([]string, 0, len(f.execs))
	for _, e := range f.execs {
		out = append(out, e.query)
	}
	return out
}

type fakeRow struct {
	values []any
	err    error
}

func row(values ...any) fakeRow { return fakeRow{values: values} }

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != len(r.values) {
		return fmt.Errorf("scan: %d destinations for %d values", len(dest), len(r.values))
	}
	for i, d := range dest {
		target := reflect.ValueOf(d).Elem()
		if r.values[i] == nil {
			target.Set(reflect.Zero(target.Type()))
			continue
		}
		v := reflect.ValueOf(r.values[i])
		if target.Kind() == reflect.Pointer && v.Kind() != reflect.Pointer {
			p := reflect.New(target.Type().Elem())
			p.Elem().Set(v.Convert(target.Type().Elem()))
			target.Set(p)
			continue
		}
		if !v.Type().ConvertibleTo(target.Type()) {
			return fmt.Errorf("scan: column %d: cannot assign %T to %s", i, r.values[i], target.Type())
		}
		target.Set(v.Convert(target.Type()))
	}
	return nil
}
