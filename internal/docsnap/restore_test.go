package docsnap_test

import (
	"context"
	"errors"
	"testing"

	"docsnap/internal/docsnap"
	"docsnap/internal/gitrepo"
	"docsnap/internal/testutil"
)

func TestService_Restore(t *testing.T) {
	t.Run("replaces existing collections", func(t *testing.T) {
		f := newFixture(t, true, true, docsnap.Options{})
		seed(t, f.store, "faq", 9)
		f.repo.SetSnapshot(snapshotOf(t, map[string]int{"regras_sistema": 3, "faq": 2}, "regras_sistema", "faq"))

		n, err := f.svc.Restore(context.Background())
		if err != nil {
			t.Fatalf("Restore() error = %v", err)
		}
		if n != 5 {
			t.Errorf("Restore() = %d, want 5", n)
		}
		if got := count(t, f.store, "faq"); got != 2 {
			t.Errorf("faq count = %d, want 2 (old records must be gone)", got)
		}
		if got := count(t, f.store, "regras_sistema"); got != 3 {
			t.Errorf("regras_sistema count = %d, want 3", got)
		}
	})

	t.Run("batches are sized by the batch option", func(t *testing.T) {
		f := newFixture(t, true, true, docsnap.Options{BatchSize: 100})
		f.repo.SetSnapshot(snapshotOf(t, map[string]int{"big": 250}, "big"))

		n, err := f.svc.Restore(context.Background())
		if err != nil {
			t.Fatalf("Restore() error = %v", err)
		}
		if n != 250 {
			t.Errorf("Restore() = %d, want 250", n)
		}
		if got := f.store.Calls("AddRecords"); got != 3 {
			t.Errorf("AddRecords calls = %d, want 3", got)
		}
	})

	t.Run("failed batch is skipped and later batches run", func(t *testing.T) {
		f := newFixture(t, true, true, docsnap.Options{BatchSize: 100})
		f.repo.SetSnapshot(snapshotOf(t, map[string]int{"big": 250}, "big"))
		f.store.AddFault = func(collection string, n int) error {
			if n == 1 {
				return testutil.ErrInjected
			}
			return nil
		}

		n, err := f.svc.Restore(context.Background())
		if err != nil {
			t.Fatalf("Restore() error = %v", err)
		}
		if n != 250 {
			t.Errorf("Restore() = %d, want 250 attempted", n)
		}
		if got := count(t, f.store, "big"); got != 150 {
			t.Errorf("big count = %d, want 150", got)
		}
		if got := f.store.Calls("AddRecords"); got != 3 {
			t.Errorf("AddRecords calls = %d, want 3", got)
		}
	})

	t.Run("collection that cannot be created is skipped", func(t *testing.T) {
		f := newFixture(t, true, true, docsnap.Options{})
		f.repo.SetSnapshot(snapshotOf(t, map[string]int{"a": 2, "b": 3}, "a", "b"))
		f.store.CreateErr = map[string]error{"a": testutil.ErrInjected}

		n, err := f.svc.Restore(context.Background())
		if err != nil {
			t.Fatalf("Restore() error = %v", err)
		}
		if n != 3 {
			t.Errorf("Restore() = %d, want 3", n)
		}
	})

	t.Run("every collection failing is an error", func(t *testing.T) {
		f := newFixture(t, true, true, docsnap.Options{})
		f.repo.SetSnapshot(snapshotOf(t, map[string]int{"regras_sistema": 3, "faq": 2}, "regras_sistema", "faq"))
		f.store.DeleteErr = map[string]error{"regras_sistema": testutil.ErrInjected}
		f.store.CreateErr = map[string]error{"faq": testutil.ErrInjected}

		n, err := f.svc.Restore(context.Background())
		if n != 0 {
			t.Errorf("Restore() = %d, want 0", n)
		}
		if !errors.Is(err, docsnap.ErrNothingRestored) {
			t.Fatalf("Restore() error = %v, want ErrNothingRestored", err)
		}
		var werr *docsnap.StoreWriteError
		if !errors.As(err, &werr) || !errors.Is(err, testutil.ErrInjected) {
			t.Errorf("Restore() error = %v, want the store write failure wrapped", err)
		}
	})

	t.Run("corrupt snapshot restores nothing", func(t *testing.T) {
		f := newFixture(t, true, true, docsnap.Options{})
		seed(t, f.store, "keep", 1)
		f.repo.SetSnapshot([]byte(`{"timestamp": "x", "collections": [`))

		n, err := f.svc.Restore(context.Background())
		if n != 0 {
			t.Errorf("Restore() = %d, want 0", n)
		}
		if !docsnap.IsCorruptSnapshot(err) {
			t.Fatalf("Restore() error = %v, want corrupt snapshot", err)
		}
		if f.store.Calls("DeleteCollection") != 0 {
			t.Error("store was modified for a corrupt snapshot")
		}
	})

	t.Run("missing snapshot", func(t *testing.T) {
		f := newFixture(t, true, true, docsnap.Options{})

		n, err := f.svc.Restore(context.Background())
		if n != 0 || !errors.Is(err, gitrepo.ErrSnapshotMissing) {
			t.Errorf("Restore() = %d, %v; want 0, ErrSnapshotMissing", n, err)
		}
	})

	t.Run("reset not allowed keeps existing collections", func(t *testing.T) {
		f := newFixture(t, true, false, docsnap.Options{})
		seed(t, f.store, "faq", 9)
		f.repo.SetSnapshot(snapshotOf(t, map[string]int{"regras_sistema": 3, "faq": 2}, "regras_sistema", "faq"))

		n, err := f.svc.Restore(context.Background())
		if err != nil {
			t.Fatalf("Restore() error = %v", err)
		}
		if n != 3 {
			t.Errorf("Restore() = %d, want 3", n)
		}
		if got := count(t, f.store, "faq"); got != 9 {
			t.Errorf("faq count = %d, want 9", got)
		}
		if f.store.Calls("DeleteCollection") != 1 {
			t.Errorf("DeleteCollection calls = %d, want 1", f.store.Calls("DeleteCollection"))
		}
	})

	t.Run("remote disabled contacts nothing", func(t *testing.T) {
		f := newFixture(t, false, true, docsnap.Options{})

		n, err := f.svc.Restore(context.Background())
		if n != 0 || !errors.Is(err, docsnap.ErrRemoteDisabled) {
			t.Errorf("Restore() = %d, %v; want 0, ErrRemoteDisabled", n, err)
		}
		if f.store.TotalCalls() != 0 || f.repo.TotalCalls() != 0 {
			t.Errorf("calls: store=%d repo=%d, want 0", f.store.TotalCalls(), f.repo.TotalCalls())
		}
	})

	t.Run("empty collection is recreated", func(t *testing.T) {
		f := newFixture(t, true, true, docsnap.Options{})
		f.repo.SetSnapshot(snapshotOf(t, map[string]int{"empty": 0}, "empty"))

		n, err := f.svc.Restore(context.Background())
		if err != nil || n != 0 {
			t.Fatalf("Restore() = %d, %v", n, err)
		}
		if got := count(t, f.store, "empty"); got != 0 {
			t.Errorf("empty count = %d", got)
		}
		if f.store.Calls("AddRecords") != 0 {
			t.Error("AddRecords called for an empty collection")
		}
	})
}
