package attrstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// PostgresRepository implements Repository against a "parsergen" schema,
// adapted from vocabulary.PostgresRepository's query/wrap-error shape.
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository wraps an already-connected sqlx.DB.
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Open connects to Postgres and wraps the result, mirroring the
// sqlx.Connect("postgres", ...) call site used throughout the teacher's
// CLI commands (e.g. migrate_vocabulary.go).
func Open(ctx context.Context, connStr string) (*PostgresRepository, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("attrstore: failed to connect to database: %w", err)
	}
	return &PostgresRepository{db: db}, nil
}

// Close releases the underlying connection pool.
func (r *PostgresRepository) Close() error { return r.db.Close() }

func (r *PostgresRepository) Get(ctx context.Context, grammar, rule, name string) (*Override, error) {
	var o Override
	query := `
		SELECT override_id, grammar, rule, name, value, updated_by, updated_at
		FROM parsergen.attribute_overrides
		WHERE grammar = $1 AND rule = $2 AND name = $3`

	err := r.db.GetContext(ctx, &o, query, grammar, rule, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("attrstore: failed to get override: %w", err)
	}
	return &o, nil
}

func (r *PostgresRepository) Set(ctx context.Context, grammar, rule, name, value, changedBy, reason string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("attrstore: failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var oldValue *string
	existing, err := r.getTx(ctx, tx, grammar, rule, name)
	if err != nil && !IsNotFound(err) {
		return err
	}
	if existing != nil {
		v := existing.Value
		oldValue = &v
	}

	upsert := `
		INSERT INTO parsergen.attribute_overrides (grammar, rule, name, value, updated_by)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (grammar, rule, name)
		DO UPDATE SET value = $4, updated_by = $5, updated_at = now()`
	if _, err := tx.ExecContext(ctx, upsert, grammar, rule, name, value, changedBy); err != nil {
		return fmt.Errorf("attrstore: failed to set override: %w", err)
	}

	audit := `
		INSERT INTO parsergen.attribute_overrides_audit
		(grammar, rule, name, old_value, new_value, changed_by, change_reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := tx.ExecContext(ctx, audit, grammar, rule, name, oldValue, value, changedBy, reason); err != nil {
		return fmt.Errorf("attrstore: failed to record audit entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("attrstore: failed to commit override: %w", err)
	}
	return nil
}

func (r *PostgresRepository) getTx(ctx context.Context, tx *sqlx.Tx, grammar, rule, name string) (*Override, error) {
	var o Override
	query := `
		SELECT override_id, grammar, rule, name, value, updated_by, updated_at
		FROM parsergen.attribute_overrides
		WHERE grammar = $1 AND rule = $2 AND name = $3`
	err := tx.GetContext(ctx, &o, query, grammar, rule, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("attrstore: failed to get override: %w", err)
	}
	return &o, nil
}

func (r *PostgresRepository) List(ctx context.Context, grammar string) ([]*Override, error) {
	var overrides []*Override
	query := `
		SELECT override_id, grammar, rule, name, value, updated_by, updated_at
		FROM parsergen.attribute_overrides
		WHERE grammar = $1
		ORDER BY rule, name`

	if err := r.db.SelectContext(ctx, &overrides, query, grammar); err != nil {
		return nil, fmt.Errorf("attrstore: failed to list overrides: %w", err)
	}
	return overrides, nil
}

func (r *PostgresRepository) Audit(ctx context.Context, grammar string) ([]*AuditEntry, error) {
	var entries []*AuditEntry
	query := `
		SELECT audit_id, grammar, rule, name, old_value, new_value, changed_by, change_reason, created_at
		FROM parsergen.attribute_overrides_audit
		WHERE grammar = $1
		ORDER BY created_at DESC`

	if err := r.db.SelectContext(ctx, &entries, query, grammar); err != nil {
		return nil, fmt.Errorf("attrstore: failed to list audit trail: %w", err)
	}
	return entries, nil
}

// AsOverrides adapts a Repository into attrs.Overrides, looking each
// attribute up under the grammar name the resolver passes in and
// swallowing not-found as "no override" (any
// other error is also treated as "no override" — the resolver has no
// error channel per spec section 7; a transient DB error should not
// abort generation, only fall through to the grammar's own attributes).
type AsOverrides struct {
	Repo Repository
}

func (a AsOverrides) RootAttr(grammarName, name string) (any, bool) {
	return a.lookup(grammarName, "", name)
}

func (a AsOverrides) RuleAttr(grammarName, ruleName, name string) (any, bool) {
	return a.lookup(grammarName, ruleName, name)
}

func (a AsOverrides) lookup(grammarName, ruleName, name string) (any, bool) {
	o, err := a.Repo.Get(context.Background(), grammarName, ruleName, name)
	if err != nil {
		return nil, false
	}
	return o.Value, true
}
