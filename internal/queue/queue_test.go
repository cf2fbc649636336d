package queue

import (
	"testing"

	"github.com/arobi/forgesim/internal/job"
)

func newJob(id string) *job.Job {
	return job.NewJob(id, [int(job.NumStages)]int{}, [int(job.NumStages)]float64{})
}

func TestQueueFIFOOrder(t *testing.T) {
	q := New()
	if !q.IsEmpty() {
		t.Fatal("new queue is not empty")
	}

	a, b, c := newJob("a"), newJob("b"), newJob("c")
	q.Push(a)
	q.Push(b)
	q.Push(c)

	if got := q.Len(); got != 3 {
		t.Fatalf("Len() = %d, want 3", got)
	}
	if got := q.Pop(); got != a {
		t.Errorf("first Pop() = %v, want a", got.ID)
	}
	if got := q.Pop(); got != b {
		t.Errorf("second Pop() = %v, want b", got.ID)
	}
	if got := q.Pop(); got != c {
		t.Errorf("third Pop() = %v, want c", got.ID)
	}
	if got := q.Pop(); got != nil {
		t.Errorf("Pop() on empty queue = %v, want nil", got)
	}
}

func TestQueueRemoveFromMiddle(t *testing.T) {
	q := New()
	a, b, c := newJob("a"), newJob("b"), newJob("c")
	q.Push(a)
	q.Push(b)
	q.Push(c)

	q.Remove(b)
	if got := q.Len(); got != 2 {
		t.Fatalf("Len() after Remove = %d, want 2", got)
	}
	if got := q.Pop(); got != a {
		t.Errorf("Pop() = %v, want a", got.ID)
	}
	if got := q.Pop(); got != c {
		t.Errorf("Pop() = %v, want c (b was removed)", got.ID)
	}
}

func TestQueueRemoveAbsentIsNoop(t *testing.T) {
	q := New()
	a := newJob("a")
	q.Push(a)
	q.Remove(newJob("a")) // different pointer, same ID
	if got := q.Len(); got != 1 {
		t.Errorf("Len() after removing absent job = %d, want 1", got)
	}
}
