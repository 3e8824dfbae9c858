package util

import "testing"

func TestStackPushPopOrder(t *testing.T) {
	var s Stack
	s.Push("a")
	s.Push("b")
	s.Push("c")

	if got := s.Size(); got != 3 {
		t.Fatalf("Size() = %d, want 3", got)
	}
	if got := s.Pop(); got != "c" {
		t.Fatalf("Pop() = %v, want c", got)
	}
	if got := s.Pop(); got != "b" {
		t.Fatalf("Pop() = %v, want b", got)
	}
	if got := s.Size(); got != 1 {
		t.Fatalf("Size() = %d, want 1", got)
	}
	if got := s.Pop(); got != "a" {
		t.Fatalf("Pop() = %v, want a", got)
	}
	if got := s.Pop(); got != nil {
		t.Fatalf("Pop() on empty stack = %v, want nil", got)
	}
}

func TestStackPeekDoesNotRemove(t *testing.T) {
	var s Stack
	s.Push(1)
	s.Push(2)
	if got := s.Peek(); got != 2 {
		t.Fatalf("Peek() = %v, want 2", got)
	}
	if got := s.Size(); got != 2 {
		t.Fatalf("Size() after Peek = %d, want 2", got)
	}
}

func TestStackGetTopDown(t *testing.T) {
	var s Stack
	s.Push("bottom")
	s.Push("middle")
	s.Push("top")

	cases := []struct {
		n    int
		want interface{}
	}{
		{1, "top"},
		{2, "middle"},
		{3, "bottom"},
	}
	for _, c := range cases {
		if got := s.Get(c.n); got != c.want {
			t.Errorf("Get(%d) = %v, want %v", c.n, got, c.want)
		}
	}
	if got := s.Get(0); got != nil {
		t.Errorf("Get(0) = %v, want nil", got)
	}
	if got := s.Get(4); got != nil {
		t.Errorf("Get(4) = %v, want nil", got)
	}
}

func TestStackIgnoresNil(t *testing.T) {
	var s Stack
	s.Push(nil)
	if got := s.Size(); got != 0 {
		t.Fatalf("Size() after pushing nil = %d, want 0", got)
	}
}
