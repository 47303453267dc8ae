package bot

import (
	"sync"
	"testing"
)

func TestAskSession_TogglePreservesPickOrder(t *testing.T) {
	st := newSessionStore()
	s := st.begin(100)

	s.toggle(200)
	s.toggle(300)
	s.toggle(400)
	if len(s.Selected) != 3 {
		t.Fatalf("selected = %d, want 3", len(s.Selected))
	}

	// Removing the middle pick keeps the rest in first-pick order.
	s.toggle(300)
	if _, ok := s.Selected[300]; ok {
		t.Fatalf("300 still selected after toggle off")
	}
	if len(s.Order) != 2 || s.Order[0] != 200 || s.Order[1] != 400 {
		t.Fatalf("order = %v", s.Order)
	}

	// Re-picking appends at the end.
	s.toggle(300)
	if len(s.Order) != 3 || s.Order[2] != 300 {
		t.Fatalf("order after re-pick = %v", s.Order)
	}
}

func TestSessionStore_BeginReplacesAndClearDiscards(t *testing.T) {
	st := newSessionStore()

	first := st.begin(100)
	first.toggle(200)
	first.Text = "half-typed"

	// A second /ask starts over: old selection and text are gone.
	second := st.begin(100)
	if second == first {
		t.Fatalf("begin returned the same session")
	}
	if second.State != statePickingAssignees || len(second.Selected) != 0 || second.Text != "" {
		t.Fatalf("stale state in fresh session: %+v", second)
	}
	if got := st.get(100); got != second {
		t.Fatalf("get returned stale session")
	}

	st.clear(100)
	if got := st.get(100); got != nil {
		t.Fatalf("session survived clear: %+v", got)
	}
}

func TestSessionStore_PerUserIsolation(t *testing.T) {
	st := newSessionStore()

	a := st.begin(100)
	b := st.begin(200)
	a.toggle(300)

	if len(b.Selected) != 0 {
		t.Fatalf("selection leaked across users")
	}
	if st.get(999) != nil {
		t.Fatalf("phantom session for unknown user")
	}
}

func TestSessionStore_ConcurrentAccess(t *testing.T) {
	st := newSessionStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			s := st.begin(id)
			s.toggle(id + 1000)
			st.get(id)
			st.clear(id)
		}(int64(i))
	}
	wg.Wait()

	for i := 0; i < 50; i++ {
		if st.get(int64(i)) != nil {
			t.Fatalf("session %d survived clear", i)
		}
	}
}
