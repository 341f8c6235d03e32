package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/arcliffe/openidcore/pkg/grants"
)

const (
	putGrantQuery = `
INSERT INTO openidcore.persisted_grant (
  key, grant_type, subject_id, client_id, session_id, description, creation_time, expiration, consumed_time, data
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (key) DO UPDATE
SET
  grant_type = EXCLUDED.grant_type,
  subject_id = EXCLUDED.subject_id,
  client_id = EXCLUDED.client_id,
  session_id = EXCLUDED.session_id,
  description = EXCLUDED.description,
  creation_time = EXCLUDED.creation_time,
  expiration = EXCLUDED.expiration,
  consumed_time = EXCLUDED.consumed_time,
  data = EXCLUDED.data
`

	getGrantQuery = `
SELECT
  key, grant_type, subject_id, client_id, session_id, description, creation_time, expiration, consumed_time, data
FROM openidcore.persisted_grant
WHERE key = $1
  AND (expiration IS NULL OR expiration > now())
`

	deleteGrantQuery = `DELETE FROM openidcore.persisted_grant WHERE key = $1`

	sweepGrantsQuery = `
DELETE FROM openidcore.persisted_grant
WHERE expiration IS NOT NULL AND expiration <= now()
`
)

func (a *Adapter) Store(ctx context.Context, grant grants.PersistedGrant) error {
	if err := a.requirePreparedStatements(); err != nil {
		return err
	}

	_, err := a.stmts.putGrant.ExecContext(
		ctx,
		grant.Key,
		grant.Type,
		grant.SubjectID,
		grant.ClientID,
		grant.SessionID,
		grant.Description,
		grant.CreationTime.UTC(),
		nullableTime(grant.Expiration),
		nullableTime(grant.ConsumedTime),
		grant.Data,
	)
	return err
}

func (a *Adapter) Get(ctx context.Context, key string) (*grants.PersistedGrant, error) {
	if err := a.requirePreparedStatements(); err != nil {
		return nil, err
	}

	row := a.stmts.getGrant.QueryRowContext(ctx, key)
	grant, err := scanGrant(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &grant, nil
}

func (a *Adapter) Remove(ctx context.Context, key string) error {
	if err := a.requirePreparedStatements(); err != nil {
		return err
	}

	_, err := a.stmts.deleteGrant.ExecContext(ctx, key)
	return err
}

func (a *Adapter) GetAll(ctx context.Context, filter grants.Filter) ([]grants.PersistedGrant, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	db, err := a.requireDB()
	if err != nil {
		return nil, err
	}

	where, args := buildFilterClause(filter)
	query := fmt.Sprintf(`
SELECT
  key, grant_type, subject_id, client_id, session_id, description, creation_time, expiration, consumed_time, data
FROM openidcore.persisted_grant
WHERE %s
  AND (expiration IS NULL OR expiration > now())
`, where)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	matched := []grants.PersistedGrant{}
	for rows.Next() {
		grant, scanErr := scanGrant(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		matched = append(matched, grant)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return matched, nil
}

func (a *Adapter) RemoveAll(ctx context.Context, filter grants.Filter) error {
	if err := filter.Validate(); err != nil {
		return err
	}
	db, err := a.requireDB()
	if err != nil {
		return err
	}

	where, args := buildFilterClause(filter)
	query := fmt.Sprintf(`DELETE FROM openidcore.persisted_grant WHERE %s`, where)

	_, err = db.ExecContext(ctx, query, args...)
	return err
}

// Sweep deletes expired grants and reports how many were removed.
func (a *Adapter) Sweep(ctx context.Context) (int64, error) {
	if err := a.requirePreparedStatements(); err != nil {
		return 0, err
	}

	result, err := a.stmts.sweepGrants.ExecContext(ctx)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func buildFilterClause(filter grants.Filter) (string, []any) {
	clauses := make([]string, 0, 4)
	args := make([]any, 0, 4+len(filter.Types))

	if filter.SubjectID != "" {
		args = append(args, filter.SubjectID)
		clauses = append(clauses, fmt.Sprintf("subject_id = $%d", len(args)))
	}
	if filter.ClientID != "" {
		args = append(args, filter.ClientID)
		clauses = append(clauses, fmt.Sprintf("client_id = $%d", len(args)))
	}
	if filter.SessionID != "" {
		args = append(args, filter.SessionID)
		clauses = append(clauses, fmt.Sprintf("session_id = $%d", len(args)))
	}
	if len(filter.Types) > 0 {
		placeholders := make([]string, len(filter.Types))
		for i, grantType := range filter.Types {
			args = append(args, grantType)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("grant_type IN (%s)", strings.Join(placeholders, ", ")))
	}

	return strings.Join(clauses, " AND "), args
}

func scanGrant(s scanner) (grants.PersistedGrant, error) {
	var (
		grant        grants.PersistedGrant
		expiration   sql.NullTime
		consumedTime sql.NullTime
	)

	if err := s.Scan(
		&grant.Key,
		&grant.Type,
		&grant.SubjectID,
		&grant.ClientID,
		&grant.SessionID,
		&grant.Description,
		&grant.CreationTime,
		&expiration,
		&consumedTime,
		&grant.Data,
	); err != nil {
		return grants.PersistedGrant{}, err
	}

	grant.CreationTime = grant.CreationTime.UTC()
	if expiration.Valid {
		t := expiration.Time.UTC()
		grant.Expiration = &t
	}
	if consumedTime.Valid {
		t := consumedTime.Time.UTC()
		grant.ConsumedTime = &t
	}

	return grant, nil
}

func nullableTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
