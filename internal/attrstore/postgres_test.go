package attrstore

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
)

func newMockRepo(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock DB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return &PostgresRepository{db: sqlx.NewDb(db, "sqlmock")}, mock
}

func TestGetOverride(t *testing.T) {
	repo, mock := newMockRepo(t)

	rows := sqlmock.NewRows([]string{"override_id", "grammar", "rule", "name", "value", "updated_by", "updated_at"}).
		AddRow("ov-1", "expr-grammar", "expr", "parserClass", "com.example.ExprParser", "alice", time.Now())

	mock.ExpectQuery(`SELECT override_id, grammar, rule, name, value, updated_by, updated_at.*FROM parsergen.attribute_overrides WHERE grammar = \$1 AND rule = \$2 AND name = \$3`).
		WithArgs("expr-grammar", "expr", "parserClass").
		WillReturnRows(rows)

	o, err := repo.Get(context.Background(), "expr-grammar", "expr", "parserClass")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if o.Value != "com.example.ExprParser" {
		t.Errorf("expected value 'com.example.ExprParser', got %q", o.Value)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %s", err)
	}
}

func TestGetOverrideNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT override_id, grammar, rule, name, value, updated_by, updated_at.*FROM parsergen.attribute_overrides`).
		WithArgs("expr-grammar", "expr", "parserClass").
		WillReturnRows(sqlmock.NewRows([]string{"override_id", "grammar", "rule", "name", "value", "updated_by", "updated_at"}))

	_, err := repo.Get(context.Background(), "expr-grammar", "expr", "parserClass")
	if !IsNotFound(err) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestSetOverrideRecordsAudit(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT override_id, grammar, rule, name, value, updated_by, updated_at.*FROM parsergen.attribute_overrides`).
		WithArgs("expr-grammar", "expr", "parserClass").
		WillReturnRows(sqlmock.NewRows([]string{"override_id", "grammar", "rule", "name", "value", "updated_by", "updated_at"}))
	mock.ExpectExec(`INSERT INTO parsergen.attribute_overrides`).
		WithArgs("expr-grammar", "expr", "parserClass", "com.example.ExprParser", "alice").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO parsergen.attribute_overrides_audit`).
		WithArgs("expr-grammar", "expr", "parserClass", nil, "com.example.ExprParser", "alice", "initial rollout").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := repo.Set(context.Background(), "expr-grammar", "expr", "parserClass", "com.example.ExprParser", "alice", "initial rollout")
	if err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %s", err)
	}
}

func TestAsOverridesFallsThroughOnMiss(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT override_id, grammar, rule, name, value, updated_by, updated_at.*FROM parsergen.attribute_overrides`).
		WillReturnRows(sqlmock.NewRows([]string{"override_id", "grammar", "rule", "name", "value", "updated_by", "updated_at"}))

	ov := AsOverrides{Repo: repo}
	_, ok := ov.RuleAttr("expr-grammar", "expr", "parserClass")
	if ok {
		t.Fatalf("expected no override on a miss")
	}
}
