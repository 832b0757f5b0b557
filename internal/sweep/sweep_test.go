package sweep

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"tokenjar/internal/database"
	"tokenjar/internal/ledger"
	"tokenjar/internal/store"
)

func setupSweepTest(t *testing.T, scope ledger.SweepScope, onReset func(int64)) (*Scheduler, *ledger.Service, *store.ChoreStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	accounts := store.NewAccountStore(db)
	chores := store.NewChoreStore(db)
	rewards := store.NewRewardStore(db)
	notifications := store.NewNotificationStore(db)
	svc := ledger.New(db, accounts, chores, rewards, notifications, slog.Default())

	if _, err := accounts.Create("acct-1", "a@example.com", "h"); err != nil {
		t.Fatalf("create account: %v", err)
	}
	if _, err := accounts.Create("acct-2", "b@example.com", "h"); err != nil {
		t.Fatalf("create account: %v", err)
	}

	cfg := Config{Hour: 0, Location: time.UTC, Scope: scope}
	return NewScheduler(svc, accounts, cfg, onReset, slog.Default()), svc, chores
}

func completeNewChore(t *testing.T, svc *ledger.Service, accountID string) int64 {
	t.Helper()
	chore, err := svc.CreateChore(context.Background(), accountID, "Chore", 1)
	if err != nil {
		t.Fatalf("create chore: %v", err)
	}
	if _, err := svc.CompleteChore(context.Background(), accountID, chore.ID); err != nil {
		t.Fatalf("complete chore: %v", err)
	}
	return chore.ID
}

func TestRunGlobalResetsAllAccounts(t *testing.T) {
	var got int64
	sched, svc, chores := setupSweepTest(t, ledger.SweepGlobal, func(count int64) { got = count })

	c1 := completeNewChore(t, svc, "acct-1")
	c2 := completeNewChore(t, svc, "acct-2")

	if err := sched.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got != 2 {
		t.Errorf("onReset count = %d, want 2", got)
	}

	for _, id := range []int64{c1, c2} {
		chore, err := chores.GetByID(id)
		if err != nil {
			t.Fatalf("get chore: %v", err)
		}
		if chore.Completed {
			t.Errorf("chore %d still completed after sweep", id)
		}
	}
}

func TestRunPerAccountWalksEveryAccount(t *testing.T) {
	var got int64
	sched, svc, _ := setupSweepTest(t, ledger.SweepPerAccount, func(count int64) { got = count })

	completeNewChore(t, svc, "acct-1")
	completeNewChore(t, svc, "acct-2")

	if err := sched.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got != 2 {
		t.Errorf("onReset count = %d, want 2", got)
	}
}

func TestRunSkipsCallbackWhenNothingReset(t *testing.T) {
	called := false
	sched, _, _ := setupSweepTest(t, ledger.SweepGlobal, func(int64) { called = true })

	if err := sched.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if called {
		t.Error("expected no callback when no chores were reset")
	}
}

func TestStartStop(t *testing.T) {
	sched, _, _ := setupSweepTest(t, ledger.SweepGlobal, nil)

	sched.Start(context.Background())

	done := make(chan struct{})
	go func() {
		sched.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}
}
