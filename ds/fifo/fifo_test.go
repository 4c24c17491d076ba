package fifo

import (
	"testing"
)

func TestPushPop(t *testing.T) {
	q := New[int](2)
	for i := 0; i < 100; i++ {
		q.Push(i)
	}
	if q.Len() != 100 {
		t.Fatalf("len: %d", q.Len())
	}
	for i := 0; i < 100; i++ {
		v, ok := q.Pop()
		if !ok || v != i {
			t.Fatalf("pop %d: %v %v", i, v, ok)
		}
	}
	if _, ok := q.Pop(); ok {
		t.Fatal("pop on empty should fail")
	}
}

func TestPopN(t *testing.T) {
	q := New[string](0)
	q.Push("a")
	q.Push("b")
	q.Push("c")
	if _, ok := q.PopN(4); ok {
		t.Fatal("popn beyond len should fail")
	}
	if q.Len() != 3 {
		t.Fatal("failed popn must not consume")
	}
	vs, ok := q.PopN(2)
	if !ok || len(vs) != 2 || vs[0] != "a" || vs[1] != "b" {
		t.Fatalf("popn: %v %v", vs, ok)
	}
	if v, _ := q.First(); v != "c" {
		t.Fatalf("first: %v", v)
	}
}

func TestWrapAround(t *testing.T) {
	q := New[int](4)
	for round := 0; round < 10; round++ {
		for i := 0; i < 7; i++ {
			q.Push(round*10 + i)
		}
		for i := 0; i < 7; i++ {
			v, ok := q.Pop()
			if !ok || v != round*10+i {
				t.Fatalf("round %d pop %d: %v", round, i, v)
			}
		}
	}
}

func TestRangeClear(t *testing.T) {
	q := New[int](0)
	for i := 0; i < 5; i++ {
		q.Push(i)
	}
	sum := 0
	q.Range(func(v int) bool {
		sum += v
		return true
	})
	if sum != 10 {
		t.Fatalf("range sum: %d", sum)
	}
	q.Clear()
	if !q.IsEmpty() {
		t.Fatal("clear should empty the queue")
	}
}
