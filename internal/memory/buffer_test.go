package memory

import (
	"fmt"
	"testing"
)

func TestBufferEviction(t *testing.T) {
	buf := NewBuffer(40)

	// 25 pairs overflow the 40-entry cap
	for i := 1; i <= 25; i++ {
		buf.AddPair(fmt.Sprintf("question %d", i), fmt.Sprintf("answer %d", i))
	}

	if buf.Len() != 40 {
		t.Errorf("Len = %d, expected cap of 40", buf.Len())
	}

	// Oldest pairs are gone, newest survive
	recent := buf.Recent(20)
	if recent[0].Content != "question 6" {
		t.Errorf("Oldest surviving entry = %q, expected 'question 6'", recent[0].Content)
	}
	if recent[len(recent)-1].Content != "answer 25" {
		t.Errorf("Newest entry = %q, expected 'answer 25'", recent[len(recent)-1].Content)
	}
}

func TestBufferRecent(t *testing.T) {
	buf := NewBuffer(40)
	buf.AddPair("q1", "a1")
	buf.AddPair("q2", "a2")

	// Asking for more pairs than buffered returns everything
	if got := buf.Recent(3); len(got) != 4 {
		t.Errorf("Recent(3) on 2 pairs = %d entries, expected 4", len(got))
	}

	got := buf.Recent(1)
	if len(got) != 2 {
		t.Fatalf("Recent(1) = %d entries, expected 2", len(got))
	}
	if got[0].Content != "q2" || got[1].Content != "a2" {
		t.Errorf("Recent(1) returned wrong pair: %+v", got)
	}

	buf.Clear()
	if buf.Len() != 0 {
		t.Errorf("Len after Clear = %d, expected 0", buf.Len())
	}
}
