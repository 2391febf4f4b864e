package pg

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"tableside.org/internal/authz"
)

func TestCatalogCreateMapsDuplicates(t *testing.T) {
	store, mock := newMockStore(t)
	catalog := store.Catalog()

	cases := []struct {
		constraint string
		want       error
	}{
		{"permissions_name_key", authz.ErrDuplicateName},
		{"permissions_resource_action_key", authz.ErrDuplicateResourceAction},
	}
	for _, tc := range cases {
		mock.ExpectExec("insert into permissions").
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: tc.constraint})

		p := &authz.Permission{ID: "p1", Name: "View Widgets", Resource: "widgets", Action: "view", Active: true}
		if err := catalog.Create(context.Background(), p); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.constraint, tc.want, err)
		}
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCatalogFindNotFound(t *testing.T) {
	store, mock := newMockStore(t)
	catalog := store.Catalog()

	mock.ExpectQuery("select (.+) from permissions where id").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := catalog.Find(context.Background(), "missing")
	if !errors.Is(err, authz.ErrPermissionNotFound) {
		t.Fatalf("expected ErrPermissionNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCatalogUpdateMissingRow(t *testing.T) {
	store, mock := newMockStore(t)
	catalog := store.Catalog()

	mock.ExpectExec("update permissions").
		WillReturnResult(sqlmock.NewResult(0, 0))

	p := &authz.Permission{ID: "gone", Name: "View Widgets", Resource: "widgets", Action: "view"}
	if err := catalog.Update(context.Background(), p); !errors.Is(err, authz.ErrPermissionNotFound) {
		t.Fatalf("expected ErrPermissionNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCatalogListActiveScansRows(t *testing.T) {
	store, mock := newMockStore(t)
	catalog := store.Catalog()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{
		"id", "name", "description", "resource", "action", "is_active", "created_at", "updated_at",
	}).AddRow("p1", "View Widgets", nil, "widgets", "view", true, now, now)

	mock.ExpectQuery("select (.+) from permissions where is_active").
		WillReturnRows(rows)

	perms, err := catalog.ListActive(context.Background())
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	if len(perms) != 1 {
		t.Fatalf("expected 1 row, got %d", len(perms))
	}
	if perms[0].Description != "" {
		t.Fatalf("null description not handled: %+v", perms[0])
	}
	if perms[0].Key() != "widgets:view" {
		t.Fatalf("unexpected key: %s", perms[0].Key())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
