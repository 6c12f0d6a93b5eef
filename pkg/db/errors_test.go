package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsUniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "ux_negotiation_invoices_number"}
	wrapped := fmt.Errorf("insert invoice: %w", pgErr)

	if !IsUniqueViolation(wrapped, "") {
		t.Fatal("expected wrapped pg error to be detected")
	}
	if !IsUniqueViolation(wrapped, "ux_negotiation_invoices_number") {
		t.Fatal("expected matching constraint to be detected")
	}
	if IsUniqueViolation(wrapped, "ux_other") {
		t.Fatal("expected other constraint to be ignored")
	}
	if IsUniqueViolation(&pgconn.PgError{Code: "23503"}, "") {
		t.Fatal("expected foreign key violation to be ignored")
	}
	if !IsUniqueViolation(errors.New("UNIQUE constraint failed: negotiation_invoices.invoice_number"), "") {
		t.Fatal("expected sqlite unique failure to be detected")
	}
	if IsUniqueViolation(nil, "") {
		t.Fatal("expected nil error to be ignored")
	}
}

func TestIsLockTimeout(t *testing.T) {
	if !IsLockTimeout(fmt.Errorf("lock admin: %w", &pgconn.PgError{Code: "55P03"})) {
		t.Fatal("expected lock_not_available to be detected")
	}
	if IsLockTimeout(&pgconn.PgError{Code: "23505"}) {
		t.Fatal("unique violation is not a lock timeout")
	}
	if !IsLockTimeout(errors.New("database is locked")) {
		t.Fatal("expected sqlite busy error to be detected")
	}
	if IsLockTimeout(nil) {
		t.Fatal("expected nil error to be ignored")
	}
}
