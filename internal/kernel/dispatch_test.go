package kernel

import (
	"context"
	"testing"
)

type stubHandler struct {
	id string
}

func (s *stubHandler) HandleRequest(_ context.Context, _ string, payload Payload, reply *ReplyHandle) {
	reply.Fulfill(payload)
}

func (s *stubHandler) HandleNotification(_ string, _ Payload) {}

func (s *stubHandler) ComponentInfo() ComponentInfo {
	return LeafComponent(s.id, s.id)
}

func TestRegisterDuplicatePrefixPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("Register() with duplicate prefix did not panic")
		}
	}()

	table := NewTable()
	table.Register("echo", &stubHandler{id: "echo"})
	table.Register("echo", &stubHandler{id: "echo2"})
}

func TestLookupMatchesByMethodPrefix(t *testing.T) {
	table := NewTable()
	h := &stubHandler{id: "echo"}
	table.Register("echo", h)

	got, ok := table.Lookup("echo/ping")
	if !ok {
		t.Fatal("Lookup() ok = false, want true")
	}
	if got != h {
		t.Error("Lookup() returned a different handler instance")
	}

	if _, ok := table.Lookup("nonexistent/method"); ok {
		t.Error("Lookup() ok = true for unregistered prefix, want false")
	}
}

func TestLookupSplitsOnSlashNotDot(t *testing.T) {
	table := NewTable()
	table.Register("nope", &stubHandler{id: "nope"})

	// "nope.x" has no "/", so the whole string is the prefix, which is
	// not registered — it must not be confused with the registered
	// "nope" prefix the way a "."-based split would.
	if _, ok := table.Lookup("nope.x"); ok {
		t.Error("Lookup(\"nope.x\") ok = true, want false (prefix split is \"/\", not \".\")")
	}

	if _, ok := table.Lookup("nope/x"); !ok {
		t.Error("Lookup(\"nope/x\") ok = false, want true")
	}
}

func TestPrefixesPreservesRegistrationOrder(t *testing.T) {
	table := NewTable()
	table.Register("b", &stubHandler{id: "b"})
	table.Register("a", &stubHandler{id: "a"})
	table.Register("c", &stubHandler{id: "c"})

	got := table.Prefixes()
	want := []string{"b", "a", "c"}
	for i, p := range want {
		if got[i] != p {
			t.Errorf("Prefixes()[%d] = %q, want %q", i, got[i], p)
		}
	}
}

func TestComponentTreeSortsChildrenByID(t *testing.T) {
	table := NewTable()
	table.Register("zebra", &stubHandler{id: "zebra"})
	table.Register("apple", &stubHandler{id: "apple"})

	tree := table.ComponentTree(0)
	if tree.ID != "supervisor" {
		t.Fatalf("tree.ID = %q, want %q", tree.ID, "supervisor")
	}
	if len(tree.Children) != 2 {
		t.Fatalf("len(tree.Children) = %d, want 2", len(tree.Children))
	}
	if tree.Children[0].ID != "apple" || tree.Children[1].ID != "zebra" {
		t.Errorf("children not sorted: got %q, %q", tree.Children[0].ID, tree.Children[1].ID)
	}
	if tree.Name != "Supervisor" {
		t.Errorf("tree.Name = %q, want %q", tree.Name, "Supervisor")
	}
	if tree.Status != "running" {
		t.Errorf("tree.Status = %q, want %q", tree.Status, "running")
	}
	if tree.State != StatusOn {
		t.Errorf("tree.State = %q, want %q", tree.State, StatusOn)
	}
}

func TestComponentTreeStableAcrossRepeatedCalls(t *testing.T) {
	table := NewTable()
	table.Register("a", &stubHandler{id: "a"})
	table.Register("b", &stubHandler{id: "b"})

	first := table.ComponentTree(0)
	second := table.ComponentTree(0)
	if len(first.Children) != len(second.Children) {
		t.Fatal("ComponentTree() produced different shapes across calls")
	}
	for i := range first.Children {
		if first.Children[i].ID != second.Children[i].ID {
			t.Errorf("children[%d] differ across calls: %q vs %q", i, first.Children[i].ID, second.Children[i].ID)
		}
	}
}
