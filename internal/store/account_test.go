package store

import (
	"testing"

	"tokenjar/internal/database"
)

func setupAccountTestDB(t *testing.T) *AccountStore {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewAccountStore(db)
}

func TestAccountCreateAndGet(t *testing.T) {
	as := setupAccountTestDB(t)

	created, err := as.Create("acct-1", "ann@example.com", "hash1")
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	if created.TokenBalance != 0 {
		t.Errorf("new account balance = %d, want 0", created.TokenBalance)
	}

	got, err := as.GetByID("acct-1")
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if got == nil {
		t.Fatal("expected account, got nil")
	}
	if got.Email != "ann@example.com" {
		t.Errorf("email = %q, want %q", got.Email, "ann@example.com")
	}

	byEmail, err := as.GetByEmail("ann@example.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if byEmail == nil || byEmail.ID != "acct-1" {
		t.Errorf("get by email returned %+v", byEmail)
	}
}

func TestAccountGetMissing(t *testing.T) {
	as := setupAccountTestDB(t)

	got, err := as.GetByID("nope")
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for missing account, got %+v", got)
	}
}

func TestAccountCreateIfAbsent(t *testing.T) {
	as := setupAccountTestDB(t)

	first, err := as.CreateIfAbsent("acct-1", "ann@example.com", "hash1")
	if err != nil {
		t.Fatalf("first create: %v", err)
	}
	if first == nil {
		t.Fatal("expected account on first create")
	}

	// Same email again converges on the existing row.
	second, err := as.CreateIfAbsent("acct-2", "ann@example.com", "hash2")
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if second.ID != "acct-1" {
		t.Errorf("id = %q, want existing %q", second.ID, "acct-1")
	}
	if second.PasswordHash != "hash1" {
		t.Errorf("expected original password hash retained")
	}
}

func TestAccountListIDs(t *testing.T) {
	as := setupAccountTestDB(t)

	as.Create("acct-1", "a@example.com", "h")
	as.Create("acct-2", "b@example.com", "h")

	ids, err := as.ListIDs()
	if err != nil {
		t.Fatalf("list ids: %v", err)
	}
	if len(ids) != 2 {
		t.Errorf("len(ids) = %d, want 2", len(ids))
	}
}

func TestAccountCreditAndDebit(t *testing.T) {
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	as := NewAccountStore(db)

	as.Create("acct-1", "a@example.com", "h")

	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := as.Credit(tx, "acct-1", 10); err != nil {
		t.Fatalf("credit: %v", err)
	}

	ok, err := as.DebitIfSufficient(tx, "acct-1", 15)
	if err != nil {
		t.Fatalf("debit: %v", err)
	}
	if ok {
		t.Error("expected debit of 15 against 10 to be refused")
	}

	ok, err = as.DebitIfSufficient(tx, "acct-1", 10)
	if err != nil {
		t.Fatalf("debit: %v", err)
	}
	if !ok {
		t.Error("expected debit of full balance to succeed")
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	got, _ := as.GetByID("acct-1")
	if got.TokenBalance != 0 {
		t.Errorf("balance = %d, want 0", got.TokenBalance)
	}
}

func TestAccountCreditMissingAccount(t *testing.T) {
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	as := NewAccountStore(db)

	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer tx.Rollback()

	if err := as.Credit(tx, "nope", 5); err == nil {
		t.Error("expected error crediting a missing account")
	}
}
