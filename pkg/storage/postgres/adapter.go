package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/arcliffe/openidcore/pkg/grants"
	"github.com/arcliffe/openidcore/pkg/keymgr"
)

// Adapter backs the persisted grant store and the signing key store with a
// postgres database. Statements are prepared once at construction.
type Adapter struct {
	db *sql.DB

	stmts preparedStatements
}

type preparedStatements struct {
	putGrant    *sql.Stmt
	getGrant    *sql.Stmt
	deleteGrant *sql.Stmt
	sweepGrants *sql.Stmt

	putSigningKey    *sql.Stmt
	listSigningKeys  *sql.Stmt
	deleteSigningKey *sql.Stmt
}

type prepareStatementSpec struct {
	label  string
	query  string
	assign func(*preparedStatements, *sql.Stmt)
}

var prepareStatementSpecs = []prepareStatementSpec{
	{
		label: "put grant",
		query: putGrantQuery,
		assign: func(ps *preparedStatements, stmt *sql.Stmt) {
			ps.putGrant = stmt
		},
	},
	{
		label: "get grant",
		query: getGrantQuery,
		assign: func(ps *preparedStatements, stmt *sql.Stmt) {
			ps.getGrant = stmt
		},
	},
	{
		label: "delete grant",
		query: deleteGrantQuery,
		assign: func(ps *preparedStatements, stmt *sql.Stmt) {
			ps.deleteGrant = stmt
		},
	},
	{
		label: "sweep grants",
		query: sweepGrantsQuery,
		assign: func(ps *preparedStatements, stmt *sql.Stmt) {
			ps.sweepGrants = stmt
		},
	},
	{
		label: "put signing key",
		query: putSigningKeyQuery,
		assign: func(ps *preparedStatements, stmt *sql.Stmt) {
			ps.putSigningKey = stmt
		},
	},
	{
		label: "list signing keys",
		query: listSigningKeysQuery,
		assign: func(ps *preparedStatements, stmt *sql.Stmt) {
			ps.listSigningKeys = stmt
		},
	},
	{
		label: "delete signing key",
		query: deleteSigningKeyQuery,
		assign: func(ps *preparedStatements, stmt *sql.Stmt) {
			ps.deleteSigningKey = stmt
		},
	},
}

var (
	ErrNilDB                 = errors.New("postgres adapter: db is nil")
	ErrAdapterNotInitialized = errors.New("postgres adapter: adapter not initialized")
)

var _ grants.PersistedGrantStore = (*Adapter)(nil)
var _ keymgr.SigningKeyStore = (*Adapter)(nil)

func NewAdapter(db *sql.DB) (*Adapter, error) {
	adapter := &Adapter{db: db}

	if err := adapter.prepareStatements(); err != nil {
		_ = adapter.Close()
		return nil, err
	}

	return adapter, nil
}

func (a *Adapter) Close() error {
	if a == nil {
		return nil
	}

	return closeStatements(
		a.stmts.putGrant,
		a.stmts.getGrant,
		a.stmts.deleteGrant,
		a.stmts.sweepGrants,
		a.stmts.putSigningKey,
		a.stmts.listSigningKeys,
		a.stmts.deleteSigningKey,
	)
}

func (a *Adapter) prepareStatements() (err error) {
	db, err := a.requireDB()
	if err != nil {
		return err
	}

	prepared := make([]*sql.Stmt, 0, len(prepareStatementSpecs))
	defer func() {
		if err != nil {
			_ = closeStatements(prepared...)
		}
	}()

	for _, spec := range prepareStatementSpecs {
		stmt, prepErr := db.Prepare(spec.query)
		if prepErr != nil {
			err = fmt.Errorf("postgres adapter: prepare %s statement: %w", spec.label, prepErr)
			return err
		}
		prepared = append(prepared, stmt)
		spec.assign(&a.stmts, stmt)
	}
	return nil
}

func (a *Adapter) requirePreparedStatements() error {
	if _, err := a.requireDB(); err != nil {
		return err
	}

	if a.stmts.putGrant == nil || a.stmts.getGrant == nil || a.stmts.deleteGrant == nil || a.stmts.sweepGrants == nil {
		return ErrAdapterNotInitialized
	}
	if a.stmts.putSigningKey == nil || a.stmts.listSigningKeys == nil || a.stmts.deleteSigningKey == nil {
		return ErrAdapterNotInitialized
	}

	return nil
}

func (a *Adapter) requireDB() (*sql.DB, error) {
	if a == nil || a.db == nil {
		return nil, ErrNilDB
	}
	return a.db, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func closeStatements(stmts ...*sql.Stmt) error {
	var errs []error
	for _, stmt := range stmts {
		if stmt == nil {
			continue
		}
		if err := stmt.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
