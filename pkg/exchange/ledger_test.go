package exchange

import (
	"errors"
	"testing"

	"github.com/xrave110/dex/pkg/storage"
)

func TestLedger_CreditDebitBalance(t *testing.T) {
	l := NewLedger(nil)
	alice := addr(1)

	if got := l.Balance(alice, NativeSymbol); got != 0 {
		t.Fatalf("fresh balance = %d, want 0", got)
	}
	if err := l.Credit(alice, NativeSymbol, 100); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if err := l.Debit(alice, NativeSymbol, 40); err != nil {
		t.Fatalf("debit: %v", err)
	}
	if got := l.Balance(alice, NativeSymbol); got != 60 {
		t.Fatalf("balance = %d, want 60", got)
	}
}

func TestLedger_DebitInsufficient(t *testing.T) {
	l := NewLedger(nil)
	alice := addr(1)
	if err := l.Credit(alice, "LINK", 10); err != nil {
		t.Fatalf("credit: %v", err)
	}

	err := l.Debit(alice, "LINK", 11)
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("err = %v, want ErrInsufficientBalance", err)
	}
	// Failed debit leaves the balance untouched.
	if got := l.Balance(alice, "LINK"); got != 10 {
		t.Fatalf("balance after failed debit = %d, want 10", got)
	}
}

func TestLedger_RejectsNonPositiveAmounts(t *testing.T) {
	l := NewLedger(nil)
	alice := addr(1)

	for _, amount := range []int64{0, -5} {
		if err := l.Credit(alice, "LINK", amount); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("credit %d: err = %v, want ErrInvalidArgument", amount, err)
		}
		if err := l.Debit(alice, "LINK", amount); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("debit %d: err = %v, want ErrInvalidArgument", amount, err)
		}
	}
}

func TestLedger_BalancesAreIndependent(t *testing.T) {
	l := NewLedger(nil)
	alice, bob := addr(1), addr(2)

	if err := l.Credit(alice, "LINK", 10); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if err := l.Credit(alice, NativeSymbol, 20); err != nil {
		t.Fatalf("credit: %v", err)
	}

	if got := l.Balance(alice, "LINK"); got != 10 {
		t.Errorf("alice LINK = %d, want 10", got)
	}
	if got := l.Balance(alice, NativeSymbol); got != 20 {
		t.Errorf("alice native = %d, want 20", got)
	}
	if got := l.Balance(bob, "LINK"); got != 0 {
		t.Errorf("bob LINK = %d, want 0", got)
	}
}

func TestLedger_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	alice := addr(7)

	store, err := storage.Open(dir)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	l := NewLedger(store)
	if err := l.Credit(alice, "LINK", 55); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if err := l.Debit(alice, "LINK", 5); err != nil {
		t.Fatalf("debit: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	store2, err := storage.Open(dir)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	t.Cleanup(func() { store2.Close() })

	l2 := NewLedger(store2)
	if got := l2.Balance(alice, "LINK"); got != 50 {
		t.Fatalf("reloaded balance = %d, want 50", got)
	}
}

func TestStagedLedger_OverlaySeesEarlierSteps(t *testing.T) {
	l := NewLedger(nil)
	alice, bob := addr(1), addr(2)
	if err := l.Credit(alice, NativeSymbol, 100); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if err := l.Credit(bob, "LINK", 10); err != nil {
		t.Fatalf("credit: %v", err)
	}

	stage := newStagedLedger(l)
	// First step spends 60 of alice's 100 native units.
	if err := stage.transfer(alice, bob, "LINK", 6, 60); err != nil {
		t.Fatalf("first step: %v", err)
	}
	// A second 60-unit step must see only 40 left and fail.
	if err := stage.transfer(alice, bob, "LINK", 4, 60); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("second step err = %v, want ErrInsufficientBalance", err)
	}

	// Nothing committed yet: the real ledger is untouched.
	if got := l.Balance(alice, NativeSymbol); got != 100 {
		t.Fatalf("uncommitted ledger balance = %d, want 100", got)
	}

	if err := stage.commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if got := l.Balance(alice, NativeSymbol); got != 40 {
		t.Errorf("alice native = %d, want 40", got)
	}
	if got := l.Balance(alice, "LINK"); got != 6 {
		t.Errorf("alice LINK = %d, want 6", got)
	}
	if got := l.Balance(bob, NativeSymbol); got != 60 {
		t.Errorf("bob native = %d, want 60", got)
	}
	if got := l.Balance(bob, "LINK"); got != 4 {
		t.Errorf("bob LINK = %d, want 4", got)
	}
}
