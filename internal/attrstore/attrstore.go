// Package attrstore provides a Postgres-backed repository for
// centrally-managed grammar attribute overrides, adapted from the
// teacher's vocabulary.PostgresRepository/GrammarRepository pattern
// (ordered CRUD methods over sqlx, query-then-wrap error handling).
//
// This exists so organizations that run the generator across many
// grammars can override root- or rule-scoped attributes (parserClass,
// psiPackage, and the like) from a shared table instead of editing
// grammar source per environment. It implements attrs.Overrides.
package attrstore

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Override is one stored (grammar, rule, name) -> value attribute
// override. Rule is empty for a root-scoped override.
type Override struct {
	OverrideID string    `json:"override_id" db:"override_id"`
	Grammar    string    `json:"grammar" db:"grammar"`
	Rule       string    `json:"rule" db:"rule"`
	Name       string    `json:"name" db:"name"`
	Value      string    `json:"value" db:"value"`
	UpdatedBy  string    `json:"updated_by" db:"updated_by"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// AuditEntry records a single override write, grounded on the
// teacher's VocabularyAudit table.
type AuditEntry struct {
	AuditID      string    `json:"audit_id" db:"audit_id"`
	Grammar      string    `json:"grammar" db:"grammar"`
	Rule         string    `json:"rule" db:"rule"`
	Name         string    `json:"name" db:"name"`
	OldValue     *string   `json:"old_value" db:"old_value"`
	NewValue     string    `json:"new_value" db:"new_value"`
	ChangedBy    string    `json:"changed_by" db:"changed_by"`
	ChangeReason string    `json:"change_reason" db:"change_reason"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Repository is the CRUD surface over the overrides table plus its
// audit trail.
type Repository interface {
	Get(ctx context.Context, grammar, rule, name string) (*Override, error)
	Set(ctx context.Context, grammar, rule, name, value, changedBy, reason string) error
	List(ctx context.Context, grammar string) ([]*Override, error)
	Audit(ctx context.Context, grammar string) ([]*AuditEntry, error)
}

// errNotFound is returned by Get when no override row matches; callers
// (attrs.Overrides implementations) translate this into "no override",
// not an error.
var errNotFound = errors.New("attrstore: override not found")

// IsNotFound reports whether err is the repository's not-found sentinel.
func IsNotFound(err error) bool { return errors.Is(err, errNotFound) }

// rowScanner is satisfied by both *sql.DB and *sql.Tx so Repository
// implementations can share the read path across a transaction or not.
type rowScanner interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
