package auditlog_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jmerrifield20/seasense/internal/auditlog"
)

var ctx = context.Background()

func TestNew_genesisEntry(t *testing.T) {
	l := auditlog.New()

	n, err := l.Len(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("expected 1 genesis entry, got %d", n)
	}

	e, err := l.Get(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if e.Action != auditlog.ActionGenesis || e.Actor != auditlog.SystemActor {
		t.Errorf("genesis: got action=%q actor=%q", e.Action, e.Actor)
	}
	if e.Hash != auditlog.GenesisHash {
		t.Errorf("genesis hash: got %q", e.Hash)
	}
}

func TestAppend_chains(t *testing.T) {
	l := auditlog.New()

	e1, err := l.Append(ctx, "9123456", auditlog.ActionAssess, "analyst", map[string]int{"score": 60})
	if err != nil {
		t.Fatal(err)
	}
	e2, err := l.Append(ctx, "9234567", auditlog.ActionAssess, "analyst", nil)
	if err != nil {
		t.Fatal(err)
	}

	if e1.PrevHash != auditlog.GenesisHash {
		t.Errorf("e1.PrevHash = %q, want genesis", e1.PrevHash)
	}
	if e2.PrevHash != e1.Hash {
		t.Errorf("chain broken: e2.PrevHash=%q, e1.Hash=%q", e2.PrevHash, e1.Hash)
	}
	if e2.Index != 2 {
		t.Errorf("e2.Index = %d, want 2", e2.Index)
	}

	root, _ := l.Root(ctx)
	if root != e2.Hash {
		t.Errorf("root = %q, want tip hash %q", root, e2.Hash)
	}
	if err := l.Verify(ctx); err != nil {
		t.Errorf("Verify: %v", err)
	}
}

func TestAppend_samePayloadSameDataHash(t *testing.T) {
	l := auditlog.New()
	p := map[string]any{"score": 100, "level": 4}

	a, _ := l.Append(ctx, "1", auditlog.ActionAssess, "x", p)
	b, _ := l.Append(ctx, "1", auditlog.ActionAssess, "x", p)
	if a.DataHash != b.DataHash {
		t.Error("identical payloads hashed differently")
	}
	if a.Hash == b.Hash {
		t.Error("distinct entries share a hash")
	}
}

func TestAppend_unmarshalablePayload(t *testing.T) {
	l := auditlog.New()
	if _, err := l.Append(ctx, "1", auditlog.ActionAssess, "x", make(chan int)); err == nil {
		t.Fatal("expected marshal error")
	}
	if n, _ := l.Len(ctx); n != 1 {
		t.Errorf("failed append left %d entries", n)
	}
}

func TestGet_outOfRange(t *testing.T) {
	l := auditlog.New()
	for _, idx := range []int{-1, 1, 99} {
		if _, err := l.Get(ctx, idx); !errors.Is(err, auditlog.ErrEntryNotFound) {
			t.Errorf("Get(%d): got %v, want ErrEntryNotFound", idx, err)
		}
	}
}

func TestGet_returnsCopy(t *testing.T) {
	l := auditlog.New()
	e, _ := l.Append(ctx, "9123456", auditlog.ActionAssess, "x", 1)
	e.IMO = "tampered"

	got, _ := l.Get(ctx, 1)
	if got.IMO != "9123456" {
		t.Errorf("stored entry changed through returned pointer: %q", got.IMO)
	}
	if err := l.Verify(ctx); err != nil {
		t.Errorf("Verify: %v", err)
	}
}

func TestForIMO(t *testing.T) {
	l := auditlog.New()
	for _, imo := range []string{"1", "2", "1", "1"} {
		if _, err := l.Append(ctx, imo, auditlog.ActionAssess, "x", imo); err != nil {
			t.Fatal(err)
		}
	}

	got, err := l.ForIMO(ctx, "1", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d entries, want 2", len(got))
	}
	if got[0].Index != 4 || got[1].Index != 3 {
		t.Errorf("want newest first, got indexes %d, %d", got[0].Index, got[1].Index)
	}

	all, _ := l.ForIMO(ctx, "1", 0)
	if len(all) != 3 {
		t.Errorf("unbounded: got %d, want 3", len(all))
	}
	none, _ := l.ForIMO(ctx, "", 0)
	if len(none) != 0 {
		t.Errorf("genesis returned for empty imo: %v", none)
	}
}
