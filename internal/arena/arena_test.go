package arena

import "testing"

func TestAllocBumpsPointer(t *testing.T) {
	a := New()
	s1 := a.Alloc()
	s2 := a.Alloc()
	if s1 == s2 {
		t.Fatalf("expected distinct states from successive Alloc calls")
	}
	if a.Allocated() != 2 {
		t.Errorf("expected 2 allocations, got %d", a.Allocated())
	}
}

func TestDiscardPopsMostRecent(t *testing.T) {
	a := New()
	_ = a.Alloc()
	s2 := a.Alloc()
	a.Discard(s2)
	if a.Discarded() != 1 {
		t.Errorf("expected 1 discard, got %d", a.Discarded())
	}
	if a.Live() != 1 {
		t.Errorf("expected 1 live state after discarding the most recent, got %d", a.Live())
	}
	// the slot should be reused by the next Alloc
	s3 := a.Alloc()
	if s3 != s2 {
		t.Errorf("expected the discarded slot to be reused by the next Alloc")
	}
}

func TestChunkRollover(t *testing.T) {
	a := New()
	for i := 0; i < ChunkSize+1; i++ {
		a.Alloc()
	}
	if a.Chunks() != 2 {
		t.Errorf("expected a new chunk to be linked after filling the first, got %d chunks", a.Chunks())
	}
}

func TestResetFreesAllChunks(t *testing.T) {
	a := New()
	for i := 0; i < ChunkSize*3; i++ {
		a.Alloc()
	}
	a.Reset()
	if a.Chunks() != 0 {
		t.Errorf("expected 0 chunks after Reset, got %d", a.Chunks())
	}
}
