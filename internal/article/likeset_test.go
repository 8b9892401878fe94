package article

import (
	"encoding/json"
	"testing"
)

func TestLikeSetDedupesAndKeepsOrder(t *testing.T) {
	s := NewLikeSet("a1", "a2", "a1", "", " a3 ")
	got := s.IDs()
	want := []ID{"a1", "a2", "a3"}
	if len(got) != len(want) {
		t.Fatalf("expected %d ids, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ids[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestLikeSetSet(t *testing.T) {
	s := NewLikeSet("a1", "a2")

	s.Set("a3", true)
	s.Set("a3", true)
	if s.Len() != 3 {
		t.Errorf("expected 3 after liking a3 twice, got %d", s.Len())
	}

	s.Set("a1", false)
	if s.Contains("a1") {
		t.Error("a1 should be removed")
	}
	s.Set("missing", false)
	if s.Len() != 2 {
		t.Errorf("expected 2, got %d", s.Len())
	}
}

func TestLikeSetCloneIsIndependent(t *testing.T) {
	s := NewLikeSet("a1")
	c := s.Clone()
	c.Add("a2")
	if s.Contains("a2") {
		t.Error("clone mutation leaked into original")
	}
}

func TestLikeSetEqualIgnoresOrder(t *testing.T) {
	if !NewLikeSet("a", "b").Equal(NewLikeSet("b", "a")) {
		t.Error("expected equal sets")
	}
	if NewLikeSet("a").Equal(NewLikeSet("a", "b")) {
		t.Error("expected different sets")
	}
	var empty LikeSet
	if !empty.Equal(NewLikeSet()) {
		t.Error("zero value should equal empty set")
	}
}

func TestLikeSetJSON(t *testing.T) {
	var empty LikeSet
	data, err := json.Marshal(empty)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != "[]" {
		t.Errorf("empty set marshals to %s, want []", data)
	}

	var s LikeSet
	if err := json.Unmarshal([]byte(`["a1", {"$oid": "a2"}, "a1"]`), &s); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !s.Equal(NewLikeSet("a1", "a2")) {
		t.Errorf("unexpected set %v", s.IDs())
	}
}
