package mysql

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"time"

	"ebike_tours/internal/domain"
)

//go:embed migrations/*.sql
var migrations embed.FS

const maxListLimit = 500

func valStr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

// Repo is the fetch audit log. It only ever appends; the catalog itself is
// never written to the database.
type Repo struct{ db *sql.DB }

var _ domain.FetchLog = (*Repo)(nil)

func New(db *sql.DB) *Repo { return &Repo{db: db} }

// Migrate applies the embedded migrations in file name order. Every
// statement is idempotent.
func (r *Repo) Migrate(ctx context.Context) error {
	names, err := fs.Glob(migrations, "migrations/*.sql")
	if err != nil {
		return err
	}
	sort.Strings(names)
	for _, n := range names {
		b, err := migrations.ReadFile(n)
		if err != nil {
			return err
		}
		if _, err := r.db.ExecContext(ctx, string(b)); err != nil {
			return fmt.Errorf("migration %s: %w", n, err)
		}
	}
	return nil
}

func (r *Repo) RecordFetch(ctx context.Context, a domain.FetchAttempt) error {
	_, err := r.db.ExecContext(ctx, insertFetchSQL,
		a.StartedAt.UTC(),
		a.Duration.Milliseconds(),
		a.Trigger,
		a.OK,
		a.Tours,
		a.Featured,
		a.Duplicates,
		valStr(a.Error),
	)
	return err
}

func (r *Repo) ListFetches(ctx context.Context, limit int) ([]domain.FetchAttempt, error) {
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}
	rows, err := r.db.QueryContext(ctx, listFetchesSQL, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.FetchAttempt
	for rows.Next() {
		var (
			a          domain.FetchAttempt
			durationMS int64
			errText    sql.NullString
		)
		if err := rows.Scan(
			&a.ID,
			&a.StartedAt,
			&durationMS,
			&a.Trigger,
			&a.OK,
			&a.Tours,
			&a.Featured,
			&a.Duplicates,
			&errText,
		); err != nil {
			return nil, err
		}
		a.Duration = time.Duration(durationMS) * time.Millisecond
		if errText.Valid {
			s := errText.String
			a.Error = &s
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
