package postgres

import (
	"context"

	"github.com/arcliffe/openidcore/pkg/keymgr"
)

const (
	putSigningKeyQuery = `
INSERT INTO openidcore.signing_key (
  id, version, algorithm, is_x509_certificate, created, data
) VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO UPDATE
SET
  version = EXCLUDED.version,
  algorithm = EXCLUDED.algorithm,
  is_x509_certificate = EXCLUDED.is_x509_certificate,
  created = EXCLUDED.created,
  data = EXCLUDED.data
`

	listSigningKeysQuery = `
SELECT
  id, version, algorithm, is_x509_certificate, created, data
FROM openidcore.signing_key
ORDER BY created
`

	deleteSigningKeyQuery = `DELETE FROM openidcore.signing_key WHERE id = $1`
)

func (a *Adapter) LoadKeys(ctx context.Context) ([]keymgr.SerializedKey, error) {
	if err := a.requirePreparedStatements(); err != nil {
		return nil, err
	}

	rows, err := a.stmts.listSigningKeys.QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := []keymgr.SerializedKey{}
	for rows.Next() {
		var key keymgr.SerializedKey
		if err := rows.Scan(
			&key.ID,
			&key.Version,
			&key.Algorithm,
			&key.IsX509Certificate,
			&key.Created,
			&key.Data,
		); err != nil {
			return nil, err
		}
		key.Created = key.Created.UTC()
		keys = append(keys, key)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return keys, nil
}

func (a *Adapter) StoreKey(ctx context.Context, key keymgr.SerializedKey) error {
	if err := a.requirePreparedStatements(); err != nil {
		return err
	}

	_, err := a.stmts.putSigningKey.ExecContext(
		ctx,
		key.ID,
		key.Version,
		key.Algorithm,
		key.IsX509Certificate,
		key.Created.UTC(),
		key.Data,
	)
	return err
}

func (a *Adapter) DeleteKey(ctx context.Context, id string) error {
	if err := a.requirePreparedStatements(); err != nil {
		return err
	}

	_, err := a.stmts.deleteSigningKey.ExecContext(ctx, id)
	return err
}
