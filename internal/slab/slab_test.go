package slab

import (
	"testing"

	"github.com/momentics/hioload-logrelay/api"
)

func TestInsertStartsAtBase(t *testing.T) {
	s := New[string](3, 4)
	tok, err := s.Insert("a")
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if tok.Index() != 3 {
		t.Errorf("first index = %d, want 3", tok.Index())
	}
	tok2, _ := s.Insert("b")
	if tok2.Index() != 4 {
		t.Errorf("second index = %d, want 4", tok2.Index())
	}
	if s.Len() != 2 {
		t.Errorf("Len = %d", s.Len())
	}
}

func TestRemoveReusesLowestFreeSlot(t *testing.T) {
	s := New[int](1, 0)
	var toks []api.Token
	for i := 0; i < 5; i++ {
		tok, _ := s.Insert(i)
		toks = append(toks, tok)
	}
	s.Remove(toks[3])
	s.Remove(toks[1])
	s.Remove(toks[4])

	want := []uint32{toks[1].Index(), toks[3].Index(), toks[4].Index(), 6}
	for _, w := range want {
		tok, _ := s.Insert(99)
		if tok.Index() != w {
			t.Fatalf("reused index %d, want %d", tok.Index(), w)
		}
	}
}

func TestStaleTokenDoesNotResolve(t *testing.T) {
	s := New[string](1, 0)
	old, _ := s.Insert("first")
	if _, ok := s.Remove(old); !ok {
		t.Fatal("Remove of live token failed")
	}
	fresh, _ := s.Insert("second")
	if fresh.Index() != old.Index() {
		t.Fatalf("slot not reused: %s vs %s", fresh, old)
	}
	if fresh == old {
		t.Fatal("recycled slot kept the same generation")
	}
	if _, ok := s.Get(old); ok {
		t.Error("stale token resolved after reuse")
	}
	if _, ok := s.Remove(old); ok {
		t.Error("stale token removed the new occupant")
	}
	if v, ok := s.Get(fresh); !ok || v != "second" {
		t.Errorf("Get(fresh) = %q, %v", v, ok)
	}
}

func TestLookupOutOfRange(t *testing.T) {
	s := New[int](5, 0)
	s.Insert(1)
	for _, tok := range []api.Token{api.NewToken(0, 0), api.NewToken(4, 0), api.NewToken(6, 0), api.InvalidToken} {
		if s.Contains(tok) {
			t.Errorf("Contains(%s) = true", tok)
		}
	}
}

func TestRangeVisitsLiveSlotsInOrder(t *testing.T) {
	s := New[int](1, 0)
	a, _ := s.Insert(10)
	b, _ := s.Insert(20)
	c, _ := s.Insert(30)
	s.Remove(b)

	var seen []api.Token
	s.Range(func(tok api.Token, v int) bool {
		seen = append(seen, tok)
		return true
	})
	if len(seen) != 2 || seen[0] != a || seen[1] != c {
		t.Errorf("Range visited %v", seen)
	}

	count := 0
	s.Range(func(api.Token, int) bool {
		count++
		return false
	})
	if count != 1 {
		t.Errorf("Range did not stop early, visited %d", count)
	}
}
